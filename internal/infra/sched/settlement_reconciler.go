package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"openapp-settlement/internal/domain"
	"openapp-settlement/internal/domain/model"
	"openapp-settlement/internal/domain/ports/repository"
	"openapp-settlement/internal/infra/worker"
	"openapp-settlement/internal/usecase"
)

const reconcilerLeaderKey = "settlement:reconciler:leader"

// SettlementReconciler re-drives settlements that stalled between phases:
// approved intents whose completion never arrived and pending idempotency
// claims left behind by a crashed run. A Redis leader lock keeps a single
// instance scanning at a time; the actual re-drive goes through the same
// idempotent engine as live traffic, so racing with it is harmless.
type SettlementReconciler struct {
	uc       usecase.SettlementUseCase
	payments repository.PaymentIntentRepository
	idem     repository.IdempotencyRepository
	locks    usecase.Locker
	pool     submitter

	interval   time.Duration
	staleAfter time.Duration
	log        *zerolog.Logger
}

type submitter interface {
	Submit(task worker.Task) error
}

func NewSettlementReconciler(
	uc usecase.SettlementUseCase,
	payments repository.PaymentIntentRepository,
	idem repository.IdempotencyRepository,
	locks usecase.Locker,
	pool submitter,
	interval, staleAfter time.Duration,
	logger *zerolog.Logger,
) *SettlementReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	l := logger.With().Str("component", "SettlementReconciler").Logger()
	return &SettlementReconciler{
		uc:         uc,
		payments:   payments,
		idem:       idem,
		locks:      locks,
		pool:       pool,
		interval:   interval,
		staleAfter: staleAfter,
		log:        &l,
	}
}

func (w *SettlementReconciler) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting settlement reconciler")
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping settlement reconciler")
			return ctx.Err()
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *SettlementReconciler) tick(ctx context.Context) {
	token, err := w.locks.TryLock(ctx, reconcilerLeaderKey, w.interval)
	if err != nil {
		// Another instance holds the leadership for this round.
		return
	}
	defer func() {
		if err := w.locks.Unlock(ctx, reconcilerLeaderKey, token); err != nil {
			w.log.Warn().Err(err).Msg("leader lock release failed")
		}
	}()

	cutoff := time.Now().UTC().Add(-w.staleAfter)
	w.redriveStaleClaims(ctx, cutoff)
	w.redriveApproved(ctx, cutoff)
}

// redriveStaleClaims retries pending idempotency rows that have a txid: the
// network completion may or may not have happened, and the verified path
// resolves either case.
func (w *SettlementReconciler) redriveStaleClaims(ctx context.Context, cutoff time.Time) {
	stale, err := w.idem.ListStalePending(ctx, nil, cutoff, 100)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		w.log.Error().Err(err).Msg("list stale claims failed")
		return
	}
	for _, rec := range stale {
		if rec.TxID == "" {
			continue
		}
		w.submit(rec.PaymentID, rec.TxID, rec.Metadata)
	}
}

// redriveApproved finds intents stuck in approved: the client either never
// called complete or the call was lost. Only intents whose metadata carries a
// txid can be finished server-side.
func (w *SettlementReconciler) redriveApproved(ctx context.Context, cutoff time.Time) {
	approved, err := w.payments.ListApprovedOlderThan(ctx, nil, cutoff, 100)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		w.log.Error().Err(err).Msg("list approved intents failed")
		return
	}
	for _, p := range approved {
		txid := ""
		if p.TxID != nil {
			txid = *p.TxID
		}
		if txid == "" {
			continue
		}
		w.submit(p.PaymentID, txid, p.Metadata)
	}
}

func (w *SettlementReconciler) submit(paymentID, txid string, meta model.Metadata) {
	task := func(ctx context.Context) error {
		res, err := w.uc.CompleteVerified(ctx, paymentID, txid, meta)
		if err != nil {
			if errors.Is(err, domain.ErrSettlementInFlight) {
				return nil
			}
			w.log.Error().Err(err).Str("payment_id", paymentID).Msg("reconcile failed")
			return err
		}
		if !res.Replayed {
			w.log.Info().Str("payment_id", paymentID).Msg("stalled settlement reconciled")
		}
		return nil
	}
	if err := w.pool.Submit(task); err != nil {
		w.log.Warn().Err(err).Str("payment_id", paymentID).Msg("reconcile submission dropped")
	}
}
