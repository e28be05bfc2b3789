// Package session runs summary retrieval end to end: cache check, initial
// request, fixed-interval re-polling while the remote job is running, and
// termination on completion, failure, timeout or cancellation. At most one
// session is live per Manager; starting a new one supersedes the old.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/topicsum/internal/store"
	"github.com/briangreenhill/topicsum/internal/summary"
)

const (
	// DefaultPollInterval is the fixed delay between polls while the remote
	// job reports in_progress. Deliberately not exponential: the job either
	// finishes within a few minutes or not at all.
	DefaultPollInterval = 20 * time.Second
	// DefaultTimeout is the wall-clock ceiling for one session, measured
	// from session start rather than from the last poll.
	DefaultTimeout = 180 * time.Second
)

// Fetcher is the slice of the remote client a session needs.
type Fetcher interface {
	Summary(ctx context.Context, topicID, day string) (summary.Result, error)
}

// OutcomeKind is a session's terminal state.
type OutcomeKind string

const (
	OutcomeCompleted OutcomeKind = "completed"
	OutcomeFailed    OutcomeKind = "failed"
	OutcomeTimedOut  OutcomeKind = "timed_out"
	OutcomeCancelled OutcomeKind = "cancelled"
)

// FailReason qualifies OutcomeFailed.
type FailReason string

const (
	ReasonInvalidDate  FailReason = "invalid_date"
	ReasonMissingTopic FailReason = "missing_topic"
	ReasonTransport    FailReason = "transport"
	ReasonServer       FailReason = "server"
)

// Outcome is the single terminal result of one session. Summary is raw
// untrusted text, present only on OutcomeCompleted; Reason qualifies
// OutcomeFailed.
type Outcome struct {
	Kind    OutcomeKind
	Summary string
	Reason  FailReason
}

// Manager owns the result store, the remote client, and the single live
// session slot.
type Manager struct {
	store    store.Store
	fetch    Fetcher
	log      zerolog.Logger
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time

	mu     sync.Mutex
	active *liveSession
}

type liveSession struct {
	cancel context.CancelFunc
}

type Option func(*Manager)

func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) { m.interval = d }
}
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithNow overrides the clock used for the request-day guard.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(st store.Store, f Fetcher, opts ...Option) *Manager {
	m := &Manager{
		store:    st,
		fetch:    f,
		log:      zerolog.Nop(),
		interval: DefaultPollInterval,
		timeout:  DefaultTimeout,
		now:      time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Fetch runs one retrieval session to its terminal outcome, blocking through
// however many poll cycles it takes. Any session already live is cancelled
// first. Cancellation of ctx (or a Cancel call, or a superseding Fetch) ends
// the session with OutcomeCancelled; a response already in flight at that
// point is discarded without side effects.
func (m *Manager) Fetch(ctx context.Context, topicID, day string) Outcome {
	sess, sessCtx := m.begin(ctx)
	defer m.end(sess)

	log := m.log.With().
		Str("session_id", uuid.NewString()).
		Str("topic_id", topicID).
		Str("day", day).
		Logger()

	if err := summary.ValidDay(day, m.now()); err != nil {
		log.Debug().Err(err).Msg("rejected request day")
		return Outcome{Kind: OutcomeFailed, Reason: ReasonInvalidDate}
	}
	if topicID == "" {
		log.Debug().Msg("missing topic identifier")
		return Outcome{Kind: OutcomeFailed, Reason: ReasonMissingTopic}
	}

	if res, ok := m.store.Get(topicID, day); ok && res.Status == summary.StatusCompleted {
		log.Debug().Msg("serving summary from cache")
		return Outcome{Kind: OutcomeCompleted, Summary: res.Summary}
	}

	startedAt := time.Now()
	for {
		res, err := m.fetch.Summary(sessCtx, topicID, day)

		// A cancelled session never transitions again, whatever the
		// in-flight call returned.
		if sessCtx.Err() != nil {
			log.Debug().Msg("session cancelled, response discarded")
			return Outcome{Kind: OutcomeCancelled}
		}
		if err != nil {
			log.Warn().Err(err).Msg("summarize request failed")
			return Outcome{Kind: OutcomeFailed, Reason: ReasonTransport}
		}

		switch res.Status {
		case summary.StatusCompleted:
			if err := m.store.Put(topicID, day, res); err != nil {
				log.Warn().Err(err).Msg("could not persist summary")
			}
			log.Info().Dur("took", time.Since(startedAt)).Msg("summary ready")
			return Outcome{Kind: OutcomeCompleted, Summary: res.Summary}
		case summary.StatusError:
			log.Warn().Msg("summarization service reported failure")
			return Outcome{Kind: OutcomeFailed, Reason: ReasonServer}
		}

		// Still in progress. The ceiling is evaluated here, at a response,
		// never mid-delay.
		if time.Since(startedAt) > m.timeout {
			log.Info().Msg("gave up waiting for summary")
			return Outcome{Kind: OutcomeTimedOut}
		}

		select {
		case <-sessCtx.Done():
			return Outcome{Kind: OutcomeCancelled}
		case <-time.After(m.interval):
		}
	}
}

// Cancel cancels the live session, if any. Safe to call at any time; the
// cancelled Fetch returns OutcomeCancelled.
func (m *Manager) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		m.active.cancel()
	}
}

// begin supersedes any live session and installs this one.
func (m *Manager) begin(ctx context.Context) (*liveSession, context.Context) {
	sessCtx, cancel := context.WithCancel(ctx)
	sess := &liveSession{cancel: cancel}

	m.mu.Lock()
	if m.active != nil {
		m.active.cancel()
	}
	m.active = sess
	m.mu.Unlock()
	return sess, sessCtx
}

func (m *Manager) end(sess *liveSession) {
	m.mu.Lock()
	if m.active == sess {
		m.active = nil
	}
	m.mu.Unlock()
	sess.cancel()
}
