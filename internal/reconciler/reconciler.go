package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"payment-reconciler/internal/circuitbreaker"
	"payment-reconciler/internal/models"
	"payment-reconciler/internal/poller"
	"payment-reconciler/internal/resume"
	"payment-reconciler/internal/snapshot"
	"payment-reconciler/internal/status"
)

// ErrMissingIdentifier means no order identifier was resolvable from
// the redirect parameters or the resume cache. Reconciliation cannot
// start; this is the only non-retryable error the caller sees.
var ErrMissingIdentifier = errors.New("reconciler: no order identifier in redirect parameters or resume cache")

// StatusFetcher performs the idempotent status lookup by order id.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, orderID string) (*models.RawStatusReport, error)
}

// Config holds reconciler configuration.
type Config struct {
	Poll    poller.Config
	Breaker circuitbreaker.Config
}

// Reconciler merges redirect parameters, cached resume records and live
// poll results into one authoritative snapshot per order. All snapshot
// writes flow through here.
type Reconciler struct {
	resumeStore resume.Store
	fetcher     StatusFetcher
	config      Config
}

// New creates a reconciler over a resume store and a status fetcher.
func New(resumeStore resume.Store, fetcher StatusFetcher, config Config) *Reconciler {
	return &Reconciler{
		resumeStore: resumeStore,
		fetcher:     fetcher,
		config:      config,
	}
}

// Start opens a reconciliation session for the given redirect.
//
// The snapshot is seeded synchronously, before any network call, so the
// caller has something to show immediately: from the redirect's status
// when present, otherwise from the cached resume record (identifier and
// amount only; no status is ever assumed from cache). Polling then
// begins with an immediate fetch — even a redirect that carried a
// terminal status gets a confirming fetch before the terminal lock can
// engage.
func (r *Reconciler) Start(ctx context.Context, redirect Redirect) (*Session, error) {
	collectID := redirect.OrderID
	idPriority := models.IdentifierProvider

	var cached *models.ResumeRecord
	if collectID != "" {
		record, err := r.resumeStore.Get(ctx, collectID)
		if err == nil {
			cached = record
		} else if !errors.Is(err, resume.ErrNotFound) {
			log.Printf("Resume lookup failed for %s: %v", collectID, err)
		}
	} else {
		record, err := r.resumeStore.Latest(ctx)
		if err == nil {
			cached = record
			collectID = record.ProviderCollectID
			idPriority = models.IdentifierCached
		} else if !errors.Is(err, resume.ErrNotFound) {
			log.Printf("Latest resume lookup failed: %v", err)
		}
	}

	if collectID == "" {
		return nil, ErrMissingIdentifier
	}

	session := &Session{
		id:        uuid.New(),
		collectID: collectID,
		store:     snapshot.New(),
		poll:      poller.NewController(r.config.Poll),
	}

	// Fallback amounts for every poll result, in trust order: the
	// redirect's amount, then the cached amount for this order.
	var fallbacks []float64
	if redirect.Amount > 0 {
		fallbacks = append(fallbacks, redirect.Amount)
	}
	if cached != nil && cached.Amount > 0 {
		fallbacks = append(fallbacks, cached.Amount)
	}

	seed := snapshot.Incoming{
		Status:             models.StatusPending,
		OrderIdentifier:    collectID,
		IdentifierPriority: idPriority,
		Amount:             redirect.Amount,
	}
	if redirect.HasStatus() {
		seed.Status = redirect.NormalizedStatus()
	} else if cached != nil {
		seed.Amount = cached.Amount
	}
	session.store.Seed(seed)

	breaker := circuitbreaker.New(r.config.Breaker)
	fetch := func(ctx context.Context) (*models.RawStatusReport, error) {
		return breaker.Execute(ctx, func(ctx context.Context) (*models.RawStatusReport, error) {
			return r.fetcher.FetchStatus(ctx, collectID)
		})
	}

	onResult := func(report *models.RawStatusReport, err error) bool {
		if err != nil {
			session.setError(fmt.Sprintf("failed to fetch payment status: %v", err))
			return session.store.TerminalLocked()
		}
		r.applyReport(session, report, fallbacks)
		session.clearError()
		return session.store.TerminalLocked()
	}

	if err := session.poll.Start(fetch, onResult, session.markTimedOut); err != nil {
		return nil, fmt.Errorf("failed to start polling for %s: %w", collectID, err)
	}

	log.Printf("Reconciliation started for order %s (session %s)", collectID, session.id)
	return session, nil
}

// applyReport runs one raw lookup response through the normalizer and
// amount resolver and merges it into the session snapshot.
func (r *Reconciler) applyReport(session *Session, report *models.RawStatusReport, fallbacks []float64) {
	incoming := snapshot.Incoming{
		Status:      status.Normalize(report.PrimaryStatus(), report.CaptureStatus),
		Amount:      status.ResolveAmount(report, fallbacks),
		PaymentMode: report.ResolvedPaymentMode(),
	}

	if confirmed := report.ConfirmedOrderID(); confirmed != "" {
		incoming.OrderIdentifier = confirmed
		incoming.IdentifierPriority = models.IdentifierCustom
	}

	session.store.Apply(incoming)
}
