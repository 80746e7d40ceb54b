package reconciler

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payment-reconciler/internal/circuitbreaker"
	"payment-reconciler/internal/models"
	"payment-reconciler/internal/poller"
	"payment-reconciler/internal/resume"
)

// fakeFetcher scripts lookup responses and counts calls.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	respond func(call int) (*models.RawStatusReport, error)
	gate    chan struct{} // when set, fetches block until the gate closes
}

func (f *fakeFetcher) FetchStatus(ctx context.Context, orderID string) (*models.RawStatusReport, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.respond(call)
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fastConfig() Config {
	return Config{
		Poll: poller.Config{
			Interval: 10 * time.Millisecond,
			Timeout:  2 * time.Second,
		},
		Breaker: circuitbreaker.Config{FailureThreshold: 100, Cooldown: time.Minute},
	}
}

func cachedStore(t *testing.T, record *models.ResumeRecord) resume.Store {
	t.Helper()
	store := resume.NewMemoryStore()
	if record != nil {
		require.NoError(t, store.Save(context.Background(), record))
	}
	return store
}

func TestRedirectSuccessConfirmedByFetch(t *testing.T) {
	// Redirect carries status=SUCCESS, no capture status, no amount;
	// cache holds amount 500 for the same order.
	fetcher := &fakeFetcher{
		gate: make(chan struct{}),
		respond: func(call int) (*models.RawStatusReport, error) {
			return &models.RawStatusReport{Status: "SUCCESS", Amount: float64(500)}, nil
		},
	}
	store := cachedStore(t, &models.ResumeRecord{ProviderCollectID: "collect-1", Amount: 500})

	r := New(store, fetcher, fastConfig())
	session, err := r.Start(context.Background(), Redirect{OrderID: "collect-1", Status: "SUCCESS"})
	require.NoError(t, err)
	defer session.Stop()

	// Seeded synchronously: visible Success, amount unresolved, and
	// crucially not terminal-locked before the confirming fetch.
	seeded := session.Snapshot()
	assert.Equal(t, models.StatusSuccess, seeded.Status)
	assert.Equal(t, 0.0, seeded.Amount)
	assert.Nil(t, seeded.TerminalSince)

	close(fetcher.gate)

	require.Eventually(t, func() bool {
		return session.Snapshot().TerminalLocked()
	}, time.Second, 5*time.Millisecond)

	final := session.Snapshot()
	assert.Equal(t, models.StatusSuccess, final.Status)
	assert.Equal(t, 500.0, final.Amount)
	assert.Equal(t, poller.StateStopped, session.PollState())
}

func TestRedirectSuccessWithPendingCaptureKeepsPolling(t *testing.T) {
	fetcher := &fakeFetcher{
		respond: func(call int) (*models.RawStatusReport, error) {
			if call < 3 {
				return &models.RawStatusReport{Status: "PENDING"}, nil
			}
			return &models.RawStatusReport{Status: "SUCCESS", Amount: float64(250)}, nil
		},
	}

	r := New(resume.NewMemoryStore(), fetcher, fastConfig())
	session, err := r.Start(context.Background(), Redirect{
		OrderID:       "collect-2",
		Status:        "SUCCESS",
		CaptureStatus: "PENDING",
	})
	require.NoError(t, err)
	defer session.Stop()

	assert.Equal(t, models.StatusPending, session.Snapshot().Status)
	assert.Nil(t, session.Snapshot().TerminalSince)

	require.Eventually(t, func() bool {
		return session.Snapshot().TerminalLocked()
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, models.StatusSuccess, session.Snapshot().Status)
	assert.GreaterOrEqual(t, fetcher.callCount(), 3)
}

func TestMissingIdentifierNoFetch(t *testing.T) {
	fetcher := &fakeFetcher{
		respond: func(call int) (*models.RawStatusReport, error) {
			return &models.RawStatusReport{}, nil
		},
	}

	r := New(resume.NewMemoryStore(), fetcher, fastConfig())
	_, err := r.Start(context.Background(), Redirect{})

	require.ErrorIs(t, err, ErrMissingIdentifier)
	assert.Equal(t, 0, fetcher.callCount(), "no fetch may be attempted without an identifier")
}

func TestIdentifierResolvedFromResumeCache(t *testing.T) {
	fetcher := &fakeFetcher{
		respond: func(call int) (*models.RawStatusReport, error) {
			return &models.RawStatusReport{Status: "PENDING"}, nil
		},
	}
	store := cachedStore(t, &models.ResumeRecord{ProviderCollectID: "collect-3", Amount: 120})

	r := New(store, fetcher, fastConfig())
	session, err := r.Start(context.Background(), Redirect{}) // redirect lost everything
	require.NoError(t, err)
	defer session.Stop()

	assert.Equal(t, "collect-3", session.OrderKey())

	seeded := session.Snapshot()
	assert.Equal(t, models.StatusPending, seeded.Status, "no status is ever assumed from cache")
	assert.Equal(t, 120.0, seeded.Amount)
	assert.Equal(t, "collect-3", seeded.OrderIdentifier)
}

func TestTransientErrorsReportedWithoutStoppingPolls(t *testing.T) {
	var recovered atomic.Bool
	fetcher := &fakeFetcher{
		respond: func(call int) (*models.RawStatusReport, error) {
			if !recovered.Load() {
				return nil, errors.New("connection refused")
			}
			return &models.RawStatusReport{Status: "COMPLETED", Amount: float64(80)}, nil
		},
	}

	r := New(resume.NewMemoryStore(), fetcher, fastConfig())
	session, err := r.Start(context.Background(), Redirect{OrderID: "collect-4"})
	require.NoError(t, err)
	defer session.Stop()

	require.Eventually(t, func() bool {
		return session.Err() != ""
	}, time.Second, 5*time.Millisecond)

	// The error never blocked the snapshot, and polling recovered.
	assert.Equal(t, models.StatusPending, session.Snapshot().Status)

	recovered.Store(true)

	require.Eventually(t, func() bool {
		return session.Snapshot().TerminalLocked()
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, models.StatusSuccess, session.Snapshot().Status)
	assert.Empty(t, session.Err(), "error banner cleared by the next good fetch")
}

func TestAmountFallsBackToRedirect(t *testing.T) {
	fetcher := &fakeFetcher{
		respond: func(call int) (*models.RawStatusReport, error) {
			return &models.RawStatusReport{Status: "SUCCESS"}, nil // no amount anywhere
		},
	}

	r := New(resume.NewMemoryStore(), fetcher, fastConfig())
	session, err := r.Start(context.Background(), Redirect{OrderID: "collect-5", Amount: 640})
	require.NoError(t, err)
	defer session.Stop()

	require.Eventually(t, func() bool {
		return session.Snapshot().TerminalLocked()
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 640.0, session.Snapshot().Amount)
}

func TestConfirmedCustomOrderIDSupersedesProvider(t *testing.T) {
	fetcher := &fakeFetcher{
		respond: func(call int) (*models.RawStatusReport, error) {
			return &models.RawStatusReport{
				Status:        "SUCCESS",
				Amount:        float64(90),
				CustomOrderID: "ORD_1736000000_ab12cd34",
				PaymentMode:   "upi",
			}, nil
		},
	}

	r := New(resume.NewMemoryStore(), fetcher, fastConfig())
	session, err := r.Start(context.Background(), Redirect{OrderID: "collect-6"})
	require.NoError(t, err)
	defer session.Stop()

	require.Eventually(t, func() bool {
		return session.Snapshot().TerminalLocked()
	}, time.Second, 5*time.Millisecond)

	final := session.Snapshot()
	assert.Equal(t, "ORD_1736000000_ab12cd34", final.OrderIdentifier)
	assert.Equal(t, "upi", final.PaymentMode)
	assert.Equal(t, "collect-6", session.OrderKey(), "lookup key stays the provider id")
}

func TestPollTimeoutSurfacedKeepsSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{
		respond: func(call int) (*models.RawStatusReport, error) {
			return &models.RawStatusReport{Status: "PENDING"}, nil
		},
	}

	config := fastConfig()
	config.Poll.Timeout = 60 * time.Millisecond

	r := New(resume.NewMemoryStore(), fetcher, config)
	session, err := r.Start(context.Background(), Redirect{OrderID: "collect-7", Amount: 45})
	require.NoError(t, err)

	require.Eventually(t, session.TimedOut, time.Second, 5*time.Millisecond)

	assert.Equal(t, poller.StateStopped, session.PollState())
	assert.NotEmpty(t, session.Err())
	snap := session.Snapshot()
	assert.Equal(t, models.StatusPending, snap.Status, "last known snapshot stays displayed")
	assert.Equal(t, 45.0, snap.Amount)
}

func TestParseRedirect(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Redirect
	}{
		{
			"canonical params",
			"providerCollectId=c1&status=SUCCESS&capture_status=PENDING&amount=500",
			Redirect{OrderID: "c1", Status: "SUCCESS", CaptureStatus: "PENDING", Amount: 500},
		},
		{
			"edviron alias",
			"EdvironCollectRequestId=68c39eee154d1bce65b3e0c2&status=SUCCESS",
			Redirect{OrderID: "68c39eee154d1bce65b3e0c2", Status: "SUCCESS"},
		},
		{
			"snake case alias and short amount",
			"collect_request_id=c3&am=75",
			Redirect{OrderID: "c3", Amount: 75},
		},
		{
			"order id alias",
			"order_id=c4",
			Redirect{OrderID: "c4"},
		},
		{
			"alias priority",
			"order_id=low&providerCollectId=high",
			Redirect{OrderID: "high"},
		},
		{
			"bad amount ignored",
			"collect_id=c5&amount=free",
			Redirect{OrderID: "c5"},
		},
		{
			"empty",
			"",
			Redirect{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ParseRedirect(query))
		})
	}
}

func TestManagerReusesRunningSession(t *testing.T) {
	fetcher := &fakeFetcher{
		respond: func(call int) (*models.RawStatusReport, error) {
			return &models.RawStatusReport{Status: "PENDING"}, nil
		},
	}

	m := NewManager(New(resume.NewMemoryStore(), fetcher, fastConfig()))
	defer m.StopAll()

	first, err := m.StartOrGet(context.Background(), Redirect{OrderID: "collect-8"})
	require.NoError(t, err)

	second, err := m.StartOrGet(context.Background(), Redirect{OrderID: "collect-8", Status: "SUCCESS"})
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestManagerStopRemovesSession(t *testing.T) {
	fetcher := &fakeFetcher{
		respond: func(call int) (*models.RawStatusReport, error) {
			return &models.RawStatusReport{Status: "PENDING"}, nil
		},
	}

	m := NewManager(New(resume.NewMemoryStore(), fetcher, fastConfig()))

	session, err := m.StartOrGet(context.Background(), Redirect{OrderID: "collect-9"})
	require.NoError(t, err)

	assert.True(t, m.Stop("collect-9"))
	assert.Equal(t, poller.StateStopped, session.PollState())

	_, ok := m.Get("collect-9")
	assert.False(t, ok)
	assert.False(t, m.Stop("collect-9"))
}
