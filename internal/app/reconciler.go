package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/realshaunoneill/servicetracker/internal/domain"
	"github.com/realshaunoneill/servicetracker/internal/metrics"
)

// mergeAttempts bounds the conditional-update retry loop. The in-process
// keyed lock already serializes local callers, so more than one retry only
// happens when another instance wins the storage race.
const mergeAttempts = 3

// Reconciler applies incoming session reports to a service's session
// collection: find the first session with a matching dataID and merge into
// it, or create a new one. At most one accepted mutation per
// (service, dataID) becomes visible at a time: locally via a keyed critical
// section, across instances via the repository's conditional update.
type Reconciler struct {
	finder   domain.ServiceFinder
	services domain.ServiceRepository
	clock    clockwork.Clock
	locks    *keyedLock
	degraded bool
}

// NewReconciler creates the reconciliation engine. finder resolves service
// metadata (it may be the Redis read-through cache); services is the
// authoritative store for session reads and writes. degraded short-circuits
// persistence entirely (debug mode or no database configured).
func NewReconciler(finder domain.ServiceFinder, services domain.ServiceRepository, clock clockwork.Clock, degraded bool) *Reconciler {
	return &Reconciler{
		finder:   finder,
		services: services,
		clock:    clock,
		locks:    newKeyedLock(),
		degraded: degraded,
	}
}

// RecordSession resolves the target service by name and reconciles the
// report into its session collection.
//
// Rejections are sentinel errors: domain.ErrInvalidInput (wrapped with the
// field message), domain.ErrServiceNotFound, domain.ErrNotPermitted (token
// required and missing or mismatched), domain.ErrTooSoon (cooldown window
// not yet elapsed). None of them leave side effects.
func (r *Reconciler) RecordSession(ctx context.Context, req domain.RecordSessionRequest) (*domain.ReconciliationResult, error) {
	timer := prometheus.NewTimer(metrics.ReconcileDuration)
	defer timer.ObserveDuration()

	if req.ServiceName == "" {
		return nil, fmt.Errorf("%w: service name is required", domain.ErrInvalidInput)
	}
	if req.DataID == "" {
		return nil, fmt.Errorf("%w: sessionID is required", domain.ErrInvalidInput)
	}

	if r.degraded {
		slog.Info("Degraded mode, session report not persisted",
			"service", req.ServiceName, "data_id", req.DataID)
		metrics.SessionsRecordedTotal.WithLabelValues(string(domain.OutcomeSkipped)).Inc()
		return &domain.ReconciliationResult{Outcome: domain.OutcomeSkipped}, nil
	}

	svc, err := r.finder.GetByName(ctx, req.ServiceName)
	if err != nil {
		return nil, err
	}

	return r.reconcile(ctx, svc, req)
}

// reconcile runs the matching and merge algorithm against a resolved service.
func (r *Reconciler) reconcile(ctx context.Context, svc *domain.Service, req domain.RecordSessionRequest) (*domain.ReconciliationResult, error) {
	// The token gate is per-service and separate from admin authorization.
	if svc.RequireToken && req.Token != svc.AppToken {
		metrics.SessionsRecordedTotal.WithLabelValues("forbidden").Inc()
		return nil, domain.ErrNotPermitted
	}

	unlock := r.locks.Lock(svc.ID.String() + "\x00" + req.DataID)
	defer unlock()

	session, err := r.services.FirstSessionByDataID(ctx, svc.ID, req.DataID)
	switch {
	case err == nil:
		return r.merge(ctx, svc, session, req)
	case errors.Is(err, domain.ErrSessionNotFound):
		return r.create(ctx, svc, req)
	default:
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}
}

func (r *Reconciler) create(ctx context.Context, svc *domain.Service, req domain.RecordSessionRequest) (*domain.ReconciliationResult, error) {
	now := r.clock.Now().UTC()
	session := &domain.Session{
		ID:               uuid.New(),
		DataID:           req.DataID,
		DataURL:          req.URL,
		Token:            req.Token,
		SameSessionCount: 0,
		Texts:            []domain.SessionText{{SessionCount: 0, Text: req.Text}},
		CreatedAt:        now,
		LastUpdatedAt:    now,
	}

	if err := r.services.InsertSession(ctx, svc.ID, session); err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}

	slog.Info("Session created", "service", svc.Name, "data_id", req.DataID)
	metrics.SessionsRecordedTotal.WithLabelValues(string(domain.OutcomeCreated)).Inc()
	return &domain.ReconciliationResult{Outcome: domain.OutcomeCreated, Session: session}, nil
}

func (r *Reconciler) merge(ctx context.Context, svc *domain.Service, session *domain.Session, req domain.RecordSessionRequest) (*domain.ReconciliationResult, error) {
	for attempt := 0; attempt < mergeAttempts; attempt++ {
		if err := r.checkCooldown(svc, session); err != nil {
			return nil, err
		}

		now := r.clock.Now().UTC()
		ok, err := r.services.MergeSession(ctx, session.ID, session.SameSessionCount, now, req.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to merge session: %w", err)
		}
		if !ok {
			// Another instance updated the row since our read. Re-read and
			// re-apply the cooldown check against the fresh state.
			metrics.MergeRetries.Inc()
			session, err = r.services.FirstSessionByDataID(ctx, svc.ID, req.DataID)
			if err != nil {
				return nil, fmt.Errorf("session re-read failed: %w", err)
			}
			continue
		}

		updated := *session
		updated.SameSessionCount++
		updated.LastUpdatedAt = now
		updated.Texts = append(append([]domain.SessionText(nil), session.Texts...),
			domain.SessionText{SessionCount: updated.SameSessionCount, Text: req.Text})

		slog.Info("Session merged", "service", svc.Name, "data_id", req.DataID,
			"same_session_count", updated.SameSessionCount)
		metrics.SessionsRecordedTotal.WithLabelValues(string(domain.OutcomeMerged)).Inc()
		return &domain.ReconciliationResult{Outcome: domain.OutcomeMerged, Session: &updated}, nil
	}

	return nil, fmt.Errorf("merge contention for service %s dataID %s: gave up after %d attempts", svc.Name, req.DataID, mergeAttempts)
}

// checkCooldown rejects a merge when fewer whole days than the service's
// timeout have elapsed since the session's last accepted update.
func (r *Reconciler) checkCooldown(svc *domain.Service, session *domain.Session) error {
	if svc.SessionTimeoutDays <= 0 {
		return nil
	}
	elapsedDays := int(r.clock.Now().Sub(session.LastUpdatedAt) / (24 * time.Hour))
	if elapsedDays < svc.SessionTimeoutDays {
		metrics.SessionsRecordedTotal.WithLabelValues("too_soon").Inc()
		return domain.ErrTooSoon
	}
	return nil
}
