package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mobihelp/sync-service/internal/entities"
	"github.com/mobihelp/sync-service/internal/remote"
	"github.com/mobihelp/sync-service/internal/store"
	"github.com/mobihelp/sync-service/pkg/utils"
	"golang.org/x/sync/errgroup"
)

const opQueueSize = 64

type Config struct {
	ReconcileInterval      time.Duration
	ProfileRefreshInterval time.Duration
}

// SyncService owns the record store and serializes every access to it
// through a single op queue: optimistic mutations, change-feed events,
// profile refetches and reconciliation ticks are all folded in strict
// arrival order by one goroutine, so the store needs no locking.
type SyncService struct {
	logger *slog.Logger
	actor  entities.Actor
	store  *store.RecordStore
	remote remote.DataStore

	validate *validator.Validate
	now      func() time.Time

	reconcileEvery time.Duration
	refreshEvery   time.Duration

	ops        chan func()
	reconcileC chan struct{}

	runCtx context.Context
}

func NewSyncService(logger *slog.Logger, actor entities.Actor, st *store.RecordStore, ds remote.DataStore, cfg Config) *SyncService {
	return &SyncService{
		logger:         logger.With(slog.String("service", "sync")),
		actor:          actor,
		store:          st,
		remote:         ds,
		validate:       validator.New(),
		now:            time.Now,
		reconcileEvery: cfg.ReconcileInterval,
		refreshEvery:   cfg.ProfileRefreshInterval,
		ops:            make(chan func(), opQueueSize),
		reconcileC:     make(chan struct{}, 1),
		runCtx:         context.Background(),
	}
}

// Start loads the initial snapshot and launches the fold loop.
func (s *SyncService) Start(ctx context.Context) error {
	// The push goroutines read runCtx, and the first reconcile pass below
	// may already spawn one, so the field must be set before anything else.
	s.runCtx = ctx

	if err := s.loadSnapshot(ctx); err != nil {
		return fmt.Errorf("failed to load initial snapshot: %w", err)
	}
	s.reconcile()

	go s.run(ctx)

	s.logger.Info("sync started",
		slog.String("actor", s.actor.ID),
		slog.String("role", string(s.actor.Role)),
	)
	return nil
}

// loadSnapshot fetches the actor-relevant orders and the full profile
// roster. Startup is the one place that retries: once running, staleness
// self-corrects on the next tick or realtime event instead.
func (s *SyncService) loadSnapshot(ctx context.Context) error {
	cfg := utils.RetryConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxAttempts:  5,
		Multiplier:   2,
	}

	var (
		orders   []entities.Order
		profiles []entities.UserProfile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return utils.Retry(cfg, func() error {
			var err error
			switch s.actor.Role {
			case entities.RoleCustomer:
				orders, err = s.remote.OrdersForCustomer(gctx, s.actor.ID)
			case entities.RoleExecutor:
				orders, err = s.remote.OrdersForExecutor(gctx, s.actor.ID)
			default:
				orders, err = s.remote.AllOrders(gctx)
			}
			return err
		})
	})
	g.Go(func() error {
		return utils.Retry(cfg, func() error {
			var err error
			profiles, err = s.remote.AllProfiles(gctx)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return err
	}

	for _, o := range orders {
		s.store.UpsertOrder(o)
	}
	s.foldProfiles(profiles)
	return nil
}

func (s *SyncService) run(ctx context.Context) {
	reconcile := time.NewTicker(s.reconcileEvery)
	defer reconcile.Stop()
	refresh := time.NewTicker(s.refreshEvery)
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case op := <-s.ops:
			op()
			divergedRecords.Set(float64(s.store.DivergedCount()))
		case <-s.reconcileC:
			s.reconcile()
		case <-reconcile.C:
			s.reconcile()
		case <-refresh.C:
			go s.refreshProfiles(ctx)
		}
	}
}

// refreshProfiles is the polling half of the poll+push hybrid: profiles
// are not streamed, only periodically refetched in full.
func (s *SyncService) refreshProfiles(ctx context.Context) {
	profiles, err := s.remote.AllProfiles(ctx)
	if err != nil {
		// Stale roster until the next cycle.
		s.logger.Error("failed to refresh profiles", slog.Any("error", err))
		return
	}
	s.dispatch(func() {
		s.foldProfiles(profiles)
	})
	s.TriggerReconcile()
}

// foldProfiles replaces the profile roster with an authoritative snapshot.
// Profiles gone from the remote (deleted accounts) are dropped from the
// mirror; optimistic local profile edits are overwritten, never merged.
func (s *SyncService) foldProfiles(profiles []entities.UserProfile) {
	seen := make(map[string]struct{}, len(profiles))
	for _, p := range profiles {
		seen[p.ID] = struct{}{}
		s.store.UpsertProfile(p)
	}
	for _, p := range s.store.Profiles() {
		if _, ok := seen[p.ID]; !ok {
			s.store.RemoveProfile(p.ID)
		}
	}
}

// TriggerReconcile requests an immediate reconciliation pass. Coalesces
// with an already-pending trigger.
func (s *SyncService) TriggerReconcile() {
	select {
	case s.reconcileC <- struct{}{}:
	default:
	}
}

// do runs fn on the fold goroutine and waits for it to finish.
func (s *SyncService) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case s.ops <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.runCtx.Done():
		return s.runCtx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatch queues fn without waiting. Used by fire-and-forget completions.
func (s *SyncService) dispatch(fn func()) {
	select {
	case s.ops <- fn:
	case <-s.runCtx.Done():
	}
}

// Apply validates the mutation, applies it to the local mirror
// synchronously, and issues the remote write without waiting for it.
func (s *SyncService) Apply(ctx context.Context, m Mutation) error {
	if err := s.validateMutation(m); err != nil {
		return err
	}

	var applyErr error
	if err := s.do(ctx, func() {
		applyErr = s.apply(m)
	}); err != nil {
		return err
	}
	if applyErr == nil {
		mutationsApplied.WithLabelValues(m.kind()).Inc()
	}
	return applyErr
}

func (s *SyncService) validateMutation(m Mutation) error {
	if err := s.validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %s: %v", entities.ErrInvalidMutation, m.kind(), err)
	}
	return nil
}

// ApplyOrderChange folds one change-feed event into the mirror. Events are
// applied strictly in arrival order; callers must not reorder or coalesce.
func (s *SyncService) ApplyOrderChange(ctx context.Context, change remote.OrderChange) error {
	return s.do(ctx, func() {
		s.ingestChange(change)
	})
}

// Actor returns the acting user this instance syncs for.
func (s *SyncService) Actor() entities.Actor {
	return s.actor
}

// pushOrder issues the async remote write for an optimistically updated
// order. Failures are logged and mark the record diverged; local state is
// never rolled back, the next authoritative read overwrites it.
func (s *SyncService) pushOrder(o entities.Order, insert bool) {
	write := s.remote.UpdateOrder
	if insert {
		write = s.remote.InsertOrder
	}
	go func() {
		if err := write(s.runCtx, o); err != nil {
			s.logger.Error("remote order write failed, local state diverged",
				slog.String("order_id", o.ID), slog.Any("error", err))
			remoteWriteFailures.WithLabelValues("orders").Inc()
			s.dispatch(func() { s.store.MarkDiverged(store.KindOrder, o.ID) })
			return
		}
		s.dispatch(func() { s.store.MarkWriteSettled(store.KindOrder, o.ID) })
	}()
}

func (s *SyncService) pushOrderDelete(id string) {
	go func() {
		if err := s.remote.DeleteOrder(s.runCtx, id); err != nil {
			s.logger.Error("remote order delete failed",
				slog.String("order_id", id), slog.Any("error", err))
			remoteWriteFailures.WithLabelValues("orders").Inc()
		}
	}()
}

func (s *SyncService) pushProfile(p entities.UserProfile) {
	go func() {
		if err := s.remote.UpdateProfile(s.runCtx, p); err != nil {
			s.logger.Error("remote profile write failed, local state diverged",
				slog.String("profile_id", p.ID), slog.Any("error", err))
			remoteWriteFailures.WithLabelValues("profiles").Inc()
			s.dispatch(func() { s.store.MarkDiverged(store.KindProfile, p.ID) })
			return
		}
		s.dispatch(func() { s.store.MarkWriteSettled(store.KindProfile, p.ID) })
	}()
}
