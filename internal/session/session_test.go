package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/topicsum/internal/store"
	"github.com/briangreenhill/topicsum/internal/summary"
)

// fetchFunc adapts a function to the Fetcher interface.
type fetchFunc func(ctx context.Context, topicID, day string) (summary.Result, error)

func (f fetchFunc) Summary(ctx context.Context, topicID, day string) (summary.Result, error) {
	return f(ctx, topicID, day)
}

// testNow pins "today" so request days in the past stay valid forever.
func testNow() time.Time {
	return time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)
}

func newTestStore(t *testing.T) *store.FileStore {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return fs
}

// scripted returns a Fetcher that replays results in order, counting calls.
// The last result repeats once the script is exhausted.
func scripted(calls *atomic.Int32, script ...summary.Result) Fetcher {
	return fetchFunc(func(ctx context.Context, topicID, day string) (summary.Result, error) {
		n := int(calls.Add(1)) - 1
		if n >= len(script) {
			n = len(script) - 1
		}
		return script[n], nil
	})
}

func TestFetchServesFromCache(t *testing.T) {
	st := newTestStore(t)
	cached := summary.Result{Status: summary.StatusCompleted, Summary: "from cache"}
	require.NoError(t, st.Put("12#34#56", "2024-01-01", cached))

	var calls atomic.Int32
	m := NewManager(st, scripted(&calls, summary.Result{Status: summary.StatusCompleted, Summary: "from network"}),
		WithNow(testNow))

	o := m.Fetch(context.Background(), "12#34#56", "2024-01-01")
	require.Equal(t, OutcomeCompleted, o.Kind)
	require.Equal(t, "from cache", o.Summary)
	require.Zero(t, calls.Load(), "a cache hit must not touch the network")
}

func TestFetchRejectsInvalidDay(t *testing.T) {
	var calls atomic.Int32
	m := NewManager(newTestStore(t), scripted(&calls, summary.Result{Status: summary.StatusCompleted}),
		WithNow(testNow))

	for _, day := range []string{"2024-06-15", "2024-06-16", "2030-01-01", "yesterday", ""} {
		o := m.Fetch(context.Background(), "1#2#3", day)
		require.Equal(t, OutcomeFailed, o.Kind, "day %q", day)
		require.Equal(t, ReasonInvalidDate, o.Reason, "day %q", day)
	}
	require.Zero(t, calls.Load(), "rejected days must not touch the network")
}

func TestFetchRejectsMissingTopic(t *testing.T) {
	var calls atomic.Int32
	m := NewManager(newTestStore(t), scripted(&calls, summary.Result{Status: summary.StatusCompleted}),
		WithNow(testNow))

	o := m.Fetch(context.Background(), "", "2024-01-01")
	require.Equal(t, OutcomeFailed, o.Kind)
	require.Equal(t, ReasonMissingTopic, o.Reason)
	require.Zero(t, calls.Load())
}

func TestFetchCompletedFirstTry(t *testing.T) {
	st := newTestStore(t)
	var calls atomic.Int32
	m := NewManager(st, scripted(&calls, summary.Result{Status: summary.StatusCompleted, Summary: "done"}),
		WithNow(testNow))

	o := m.Fetch(context.Background(), "1#2#3", "2024-01-01")
	require.Equal(t, OutcomeCompleted, o.Kind)
	require.Equal(t, "done", o.Summary)
	require.Equal(t, int32(1), calls.Load())

	got, ok := st.Get("1#2#3", "2024-01-01")
	require.True(t, ok, "completed result must be cached")
	require.Equal(t, "done", got.Summary)
}

func TestFetchPollsUntilCompleted(t *testing.T) {
	st := newTestStore(t)
	var calls atomic.Int32
	m := NewManager(st, scripted(&calls,
		summary.Result{Status: summary.StatusInProgress},
		summary.Result{Status: summary.StatusInProgress},
		summary.Result{Status: summary.StatusCompleted, Summary: "Résumé <b>court</b>."},
	), WithNow(testNow), WithPollInterval(5*time.Millisecond))

	o := m.Fetch(context.Background(), "12#34#56", "2024-01-01")
	require.Equal(t, OutcomeCompleted, o.Kind)
	require.Equal(t, "Résumé <b>court</b>.", o.Summary)
	require.Equal(t, int32(3), calls.Load())

	got, ok := st.Get("12#34#56", "2024-01-01")
	require.True(t, ok)
	require.Equal(t, summary.Result{Status: summary.StatusCompleted, Summary: "Résumé <b>court</b>."}, got)

	// Identical arguments now resolve from cache, with no further calls.
	o = m.Fetch(context.Background(), "12#34#56", "2024-01-01")
	require.Equal(t, OutcomeCompleted, o.Kind)
	require.Equal(t, "Résumé <b>court</b>.", o.Summary)
	require.Equal(t, int32(3), calls.Load())
}

func TestFetchServerError(t *testing.T) {
	st := newTestStore(t)
	var calls atomic.Int32
	m := NewManager(st, scripted(&calls, summary.Result{Status: summary.StatusError}), WithNow(testNow))

	o := m.Fetch(context.Background(), "1#2#3", "2024-01-01")
	require.Equal(t, OutcomeFailed, o.Kind)
	require.Equal(t, ReasonServer, o.Reason)

	_, ok := st.Get("1#2#3", "2024-01-01")
	require.False(t, ok, "failures are never cached")
}

func TestFetchTransportError(t *testing.T) {
	st := newTestStore(t)
	m := NewManager(st, fetchFunc(func(ctx context.Context, topicID, day string) (summary.Result, error) {
		return summary.Result{}, errors.New("connection refused")
	}), WithNow(testNow))

	o := m.Fetch(context.Background(), "1#2#3", "2024-01-01")
	require.Equal(t, OutcomeFailed, o.Kind)
	require.Equal(t, ReasonTransport, o.Reason)

	_, ok := st.Get("1#2#3", "2024-01-01")
	require.False(t, ok)
}

func TestFetchTimesOut(t *testing.T) {
	st := newTestStore(t)
	var calls atomic.Int32
	m := NewManager(st, scripted(&calls, summary.Result{Status: summary.StatusInProgress}),
		WithNow(testNow),
		WithPollInterval(10*time.Millisecond),
		WithTimeout(25*time.Millisecond))

	started := time.Now()
	o := m.Fetch(context.Background(), "1#2#3", "2024-01-01")
	require.Equal(t, OutcomeTimedOut, o.Kind)
	require.GreaterOrEqual(t, time.Since(started), 25*time.Millisecond,
		"timeout fires at the next evaluation point after the ceiling")
	require.GreaterOrEqual(t, calls.Load(), int32(2), "ceiling is checked at responses, not mid-delay")

	_, ok := st.Get("1#2#3", "2024-01-01")
	require.False(t, ok, "timeouts are never cached")
}

func TestCancelDuringPollDelay(t *testing.T) {
	st := newTestStore(t)
	firstCall := make(chan struct{})
	var once atomic.Bool
	m := NewManager(st, fetchFunc(func(ctx context.Context, topicID, day string) (summary.Result, error) {
		if once.CompareAndSwap(false, true) {
			close(firstCall)
		}
		return summary.Result{Status: summary.StatusInProgress}, nil
	}), WithNow(testNow), WithPollInterval(10*time.Second))

	done := make(chan Outcome, 1)
	go func() { done <- m.Fetch(context.Background(), "1#2#3", "2024-01-01") }()

	<-firstCall
	m.Cancel()

	select {
	case o := <-done:
		require.Equal(t, OutcomeCancelled, o.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled session did not return promptly")
	}

	_, ok := st.Get("1#2#3", "2024-01-01")
	require.False(t, ok)
}

func TestCancelDiscardsInFlightResponse(t *testing.T) {
	st := newTestStore(t)
	inFlight := make(chan struct{})
	release := make(chan struct{})
	// A transport that ignores cancellation: the call runs to completion and
	// hands back a completed result after the session was cancelled.
	m := NewManager(st, fetchFunc(func(ctx context.Context, topicID, day string) (summary.Result, error) {
		close(inFlight)
		<-release
		return summary.Result{Status: summary.StatusCompleted, Summary: "late"}, nil
	}), WithNow(testNow))

	done := make(chan Outcome, 1)
	go func() { done <- m.Fetch(context.Background(), "1#2#3", "2024-01-01") }()

	<-inFlight
	m.Cancel()
	close(release)

	o := <-done
	require.Equal(t, OutcomeCancelled, o.Kind)
	require.Empty(t, o.Summary, "a discarded response must not surface")

	_, ok := st.Get("1#2#3", "2024-01-01")
	require.False(t, ok, "a discarded response must not be cached")
}

func TestNewFetchSupersedesActiveSession(t *testing.T) {
	st := newTestStore(t)
	firstInFlight := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	m := NewManager(st, fetchFunc(func(ctx context.Context, topicID, day string) (summary.Result, error) {
		if calls.Add(1) == 1 {
			close(firstInFlight)
			<-release
			return summary.Result{Status: summary.StatusCompleted, Summary: "stale"}, nil
		}
		return summary.Result{Status: summary.StatusCompleted, Summary: "current"}, nil
	}), WithNow(testNow))

	first := make(chan Outcome, 1)
	go func() { first <- m.Fetch(context.Background(), "1#2#3", "2024-01-01") }()
	<-firstInFlight

	// Second session starts while the first's call is still in flight.
	o := m.Fetch(context.Background(), "1#2#3", "2024-01-02")
	require.Equal(t, OutcomeCompleted, o.Kind)
	require.Equal(t, "current", o.Summary)

	close(release)
	require.Equal(t, OutcomeCancelled, (<-first).Kind)

	_, ok := st.Get("1#2#3", "2024-01-01")
	require.False(t, ok, "the superseded session's late response must not be cached")
	got, ok := st.Get("1#2#3", "2024-01-02")
	require.True(t, ok)
	require.Equal(t, "current", got.Summary)
}

func TestCallerContextCancelsSession(t *testing.T) {
	st := newTestStore(t)
	inFlight := make(chan struct{})
	m := NewManager(st, fetchFunc(func(ctx context.Context, topicID, day string) (summary.Result, error) {
		close(inFlight)
		<-ctx.Done()
		return summary.Result{}, ctx.Err()
	}), WithNow(testNow))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Outcome, 1)
	go func() { done <- m.Fetch(ctx, "1#2#3", "2024-01-01") }()

	<-inFlight
	cancel()
	require.Equal(t, OutcomeCancelled, (<-done).Kind)
}

func TestFetchAfterFailureStartsFresh(t *testing.T) {
	st := newTestStore(t)
	var calls atomic.Int32
	m := NewManager(st, fetchFunc(func(ctx context.Context, topicID, day string) (summary.Result, error) {
		if calls.Add(1) == 1 {
			return summary.Result{Status: summary.StatusError}, nil
		}
		return summary.Result{Status: summary.StatusCompleted, Summary: "recovered"}, nil
	}), WithNow(testNow))

	o := m.Fetch(context.Background(), "1#2#3", "2024-01-01")
	require.Equal(t, OutcomeFailed, o.Kind)

	o = m.Fetch(context.Background(), "1#2#3", "2024-01-01")
	require.Equal(t, OutcomeCompleted, o.Kind)
	require.Equal(t, "recovered", o.Summary)
}
