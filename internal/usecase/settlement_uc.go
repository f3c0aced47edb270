package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"openapp-settlement/internal/domain"
	"openapp-settlement/internal/domain/model"
	"openapp-settlement/internal/domain/ports/adapter"
	"openapp-settlement/internal/domain/ports/repository"
)

// Compile-time check
var _ SettlementUseCase = (*settlementUC)(nil)

// Locker serializes settlement per payment id. Satisfied by the Redis locker.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// ApproveRequest is phase one of the protocol.
type ApproveRequest struct {
	PaymentID string
	UserID    string
	Amount    decimal.Decimal
	Memo      string
	Metadata  model.Metadata
}

// CompleteRequest is the client-triggered completion. It is routed through
// the same idempotent engine as webhook-driven verified completion.
type CompleteRequest struct {
	PaymentID string
	TxID      string
	UserID    string
	Amount    decimal.Decimal
	Memo      string
	Metadata  model.Metadata
}

// SettlementResult is what both completion paths return. Replayed marks a
// duplicate request answered from the idempotency ledger; callers render it
// as a plain success.
type SettlementResult struct {
	Payment      *adapter.NetworkPayment
	PaymentRowID string
	Replayed     bool
}

type SettlementUseCase interface {
	// Approve marks the payment approved on the network, then records the
	// intent. A network failure leaves no local state behind.
	Approve(ctx context.Context, req ApproveRequest) (*adapter.NetworkPayment, error)
	// Complete settles a payment on behalf of the paying client.
	Complete(ctx context.Context, req CompleteRequest) (*SettlementResult, error)
	// CompleteVerified is the authoritative idempotent settlement path,
	// safe under duplicate webhooks and concurrent retries.
	CompleteVerified(ctx context.Context, paymentID, txid string, meta model.Metadata) (*SettlementResult, error)
	// Cancel marks the intent cancelled locally. No network call, no
	// reversal of prior side effects.
	Cancel(ctx context.Context, paymentID string) error
}

type settlementUC struct {
	network  adapter.PaymentNetwork
	payments repository.PaymentIntentRepository
	idem     repository.IdempotencyRepository
	profiles repository.ProfileRepository
	listings repository.ListingRepository
	earnings EarningsUseCase
	subs     SubscriptionUseCase
	affil    AffiliateUseCase
	locks    Locker
	txm      repository.TransactionManager

	lockTTL       time.Duration
	staleClaimAge time.Duration
	log           *zerolog.Logger
}

func NewSettlementUseCase(
	network adapter.PaymentNetwork,
	payments repository.PaymentIntentRepository,
	idem repository.IdempotencyRepository,
	profiles repository.ProfileRepository,
	listings repository.ListingRepository,
	earnings EarningsUseCase,
	subs SubscriptionUseCase,
	affil AffiliateUseCase,
	locks Locker,
	txm repository.TransactionManager,
	lockTTL, staleClaimAge time.Duration,
	logger *zerolog.Logger,
) *settlementUC {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	if staleClaimAge <= 0 {
		staleClaimAge = 2 * time.Minute
	}
	l := logger.With().Str("component", "SettlementUC").Logger()
	return &settlementUC{
		network:       network,
		payments:      payments,
		idem:          idem,
		profiles:      profiles,
		listings:      listings,
		earnings:      earnings,
		subs:          subs,
		affil:         affil,
		locks:         locks,
		txm:           txm,
		lockTTL:       lockTTL,
		staleClaimAge: staleClaimAge,
		log:           &l,
	}
}

func (u *settlementUC) Approve(ctx context.Context, req ApproveRequest) (*adapter.NetworkPayment, error) {
	if req.PaymentID == "" || req.UserID == "" {
		return nil, domain.ErrInvalidArgument
	}
	np, err := u.network.Approve(ctx, req.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("approve payment %s: %w", req.PaymentID, err)
	}

	now := time.Now().UTC()
	p := &model.PaymentIntent{
		ID:        uuid.NewString(),
		PaymentID: req.PaymentID,
		UserID:    req.UserID,
		Amount:    req.Amount,
		Memo:      req.Memo,
		Status:    model.PaymentStatusApproved,
		Metadata:  req.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.payments.Insert(ctx, nil, p); err != nil {
		return nil, err
	}
	u.log.Info().Str("payment_id", req.PaymentID).Str("user_id", req.UserID).Msg("payment approved")
	return np, nil
}

// Complete folds the client-supplied expectations into metadata and hands off
// to the verified engine, so both completion paths share one idempotency
// guard and one set of side effects.
func (u *settlementUC) Complete(ctx context.Context, req CompleteRequest) (*SettlementResult, error) {
	if req.PaymentID == "" || req.TxID == "" {
		return nil, domain.ErrInvalidArgument
	}
	meta := make(model.Metadata, len(req.Metadata)+3)
	for k, v := range req.Metadata {
		meta[k] = v
	}
	if req.UserID != "" {
		meta["user_id"] = req.UserID
	}
	if !req.Amount.IsZero() {
		meta["amount"] = req.Amount.String()
	}
	if req.Memo != "" {
		meta["memo"] = req.Memo
	}
	return u.CompleteVerified(ctx, req.PaymentID, req.TxID, meta)
}

func (u *settlementUC) CompleteVerified(ctx context.Context, paymentID, txid string, meta model.Metadata) (*SettlementResult, error) {
	if paymentID == "" || txid == "" {
		return nil, domain.ErrInvalidArgument
	}
	log := u.log.With().Str("payment_id", paymentID).Str("txid", txid).Logger()

	lockKey := "settlement:" + paymentID
	token, err := u.locks.TryLock(ctx, lockKey, u.lockTTL)
	if err != nil {
		return nil, domain.ErrSettlementInFlight
	}
	defer func() {
		if err := u.locks.Unlock(ctx, lockKey, token); err != nil {
			log.Warn().Err(err).Msg("settlement lock release failed")
		}
	}()

	existing, err := u.idem.Find(ctx, nil, paymentID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing.Replayable() {
		log.Info().Msg("duplicate completion short-circuited from idempotency ledger")
		return u.replay(existing), nil
	}

	merged := meta
	if existing != nil {
		merged = existing.Metadata.Merge(meta)
	}

	claim := &model.IdempotencyRecord{
		PaymentID: paymentID,
		ProfileID: merged.ProfileID(),
		Status:    model.SettlementStatusPending,
		TxID:      txid,
		Metadata:  merged,
		CreatedAt: time.Now().UTC(),
	}
	claimed, err := u.idem.ClaimPending(ctx, nil, claim)
	if err != nil {
		return nil, err
	}
	if !claimed {
		cur, err := u.idem.Find(ctx, nil, paymentID)
		if err != nil {
			return nil, err
		}
		if cur.Replayable() {
			return u.replay(cur), nil
		}
		if time.Since(cur.CreatedAt) < u.staleClaimAge {
			return nil, domain.ErrSettlementInFlight
		}
		// Stale claim from a crashed run; we hold the lock, take it over.
		log.Warn().Time("claimed_at", cur.CreatedAt).Msg("taking over stale pending settlement claim")
		merged = cur.Metadata.Merge(meta)
	}

	np, err := u.network.Get(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("verify payment %s: %w", paymentID, err)
	}
	u.checkExpectations(&log, np, merged)
	if np.Status == adapter.StatusCancelled {
		log.Warn().Msg("network reports payment cancelled; attempting completion anyway")
	}

	// Completion is attempted regardless of the reported status; the network
	// returns a stable success for repeat completion.
	done, err := u.network.Complete(ctx, paymentID, txid)
	if err != nil {
		return nil, fmt.Errorf("complete payment %s: %w", paymentID, err)
	}

	rowID, err := u.recordIntent(ctx, paymentID, txid, done, merged)
	if err != nil {
		// Claim stays pending; the reconciler re-drives this settlement.
		return nil, err
	}

	sealed := &model.IdempotencyRecord{
		PaymentID: paymentID,
		TxID:      txid,
		Metadata:  merged,
		Amount:    done.Amount,
		Memo:      done.Memo,
		Payload:   done.Raw,
	}
	if err := u.idem.MarkCompleted(ctx, nil, sealed); err != nil {
		return nil, err
	}

	u.applySideEffects(ctx, &log, u.buildSideEffects(rowID, paymentID, txid, done, merged))

	log.Info().Str("payment_row_id", rowID).Msg("payment settled")
	return &SettlementResult{Payment: done, PaymentRowID: rowID}, nil
}

func (u *settlementUC) Cancel(ctx context.Context, paymentID string) error {
	if paymentID == "" {
		return domain.ErrInvalidArgument
	}
	if err := u.payments.UpdateStatus(ctx, nil, paymentID, model.PaymentStatusCancelled, nil); err != nil {
		return err
	}
	u.log.Info().Str("payment_id", paymentID).Msg("payment cancelled")
	return nil
}

// replay rebuilds the original success response from the sealed ledger row,
// which carries the network's completion result verbatim.
func (u *settlementUC) replay(rec *model.IdempotencyRecord) *SettlementResult {
	np := &adapter.NetworkPayment{
		Identifier: rec.PaymentID,
		Amount:     rec.Amount,
		Memo:       rec.Memo,
		Status:     adapter.StatusCompleted,
		TxID:       rec.TxID,
		Raw:        rec.Payload,
	}
	return &SettlementResult{Payment: np, Replayed: true}
}

// checkExpectations compares the network's view against the merged metadata.
// Mismatches are warnings only; the network is ground truth for what was
// charged.
func (u *settlementUC) checkExpectations(log *zerolog.Logger, np *adapter.NetworkPayment, meta model.Metadata) {
	if want, ok := meta.ExpectedAmount(); ok && !want.Equal(np.Amount) {
		log.Warn().
			Str("expected_amount", want.String()).
			Str("network_amount", np.Amount.String()).
			Msg("amount mismatch; settling with network amount")
	}
	if want := meta.ExpectedMemo(); want != "" && np.Memo != "" && want != np.Memo {
		log.Warn().
			Str("expected_memo", want).
			Str("network_memo", np.Memo).
			Msg("memo mismatch")
	}
}

// recordIntent upserts the completed intent row and returns its internal id.
// The upsert also covers guest flows where the approve-phase insert never ran.
func (u *settlementUC) recordIntent(ctx context.Context, paymentID, txid string, np *adapter.NetworkPayment, meta model.Metadata) (string, error) {
	now := time.Now().UTC()
	p := &model.PaymentIntent{
		ID:        uuid.NewString(),
		PaymentID: paymentID,
		UserID:    meta.UserID(),
		TxID:      &txid,
		Amount:    np.Amount,
		Memo:      np.Memo,
		Status:    model.PaymentStatusCompleted,
		Metadata:  meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p.Memo == "" {
		p.Memo = meta.ExpectedMemo()
	}
	return u.payments.UpsertCompleted(ctx, nil, p)
}

// sideEffect is a named, individually fallible settlement consequence. Its
// error is logged and discarded; failure never fails the parent settlement.
type sideEffect struct {
	name string
	run  func(ctx context.Context) error
}

func (u *settlementUC) applySideEffects(ctx context.Context, log *zerolog.Logger, effects []sideEffect) {
	for _, e := range effects {
		if err := e.run(ctx); err != nil {
			log.Error().Err(err).Str("side_effect", e.name).Msg("settlement side effect failed")
		}
	}
}

func (u *settlementUC) buildSideEffects(rowID, paymentID, txid string, np *adapter.NetworkPayment, meta model.Metadata) []sideEffect {
	var effects []sideEffect

	switch meta.Purpose() {
	case model.PurposeAppListing:
		if draftID := meta.DraftID(); draftID != "" {
			effects = append(effects, sideEffect{name: "listing_paid", run: func(ctx context.Context) error {
				return u.listings.MarkDraftPaid(ctx, nil, draftID, paymentID)
			}})
		}
	case model.PurposeAppPurchase, model.PurposeAppSubscriptionRnwl:
		appID, devID := meta.AppID(), meta.DeveloperID()
		if appID != "" && devID != "" {
			amount := np.Amount
			effects = append(effects, sideEffect{name: "earnings_split", run: func(ctx context.Context) error {
				_, err := u.earnings.Record(ctx, nil, devID, appID, rowID, amount)
				return err
			}})
		}
	}

	if plan := meta.SubscriptionPlan(); plan.Paid() {
		period := meta.BillingPeriod()
		effects = append(effects, sideEffect{name: "subscription_activation", run: func(ctx context.Context) error {
			profile, err := u.resolveProfile(ctx, meta)
			if err != nil {
				return err
			}
			if _, err := u.subs.Activate(ctx, nil, profile, plan, period, np.Amount, paymentID, txid); err != nil {
				return err
			}
			// Reward tracking is independent of the activation above. Its
			// read-modify-write on the invite row runs in a transaction so the
			// row lock serializes concurrent settlements for the same
			// referred profile.
			err = u.inTx(ctx, func(ctx context.Context, tx repository.Tx) error {
				_, err := u.affil.Track(ctx, tx, profile, plan, paymentID, txid)
				return err
			})
			if err != nil {
				return fmt.Errorf("affiliate tracking: %w", err)
			}
			return nil
		}})
	}
	return effects
}

func (u *settlementUC) inTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if u.txm == nil {
		return fn(ctx, nil)
	}
	return u.txm.WithTx(ctx, pgx.TxOptions{}, fn)
}

// resolveProfile locates the settling profile: directly by metadata profile
// id, otherwise by username lookup.
func (u *settlementUC) resolveProfile(ctx context.Context, meta model.Metadata) (*model.Profile, error) {
	if id := meta.ProfileID(); id != "" {
		p, err := u.profiles.FindByID(ctx, id)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	if username := meta.Username(); username != "" {
		p, err := u.profiles.FindByUsername(ctx, username)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return nil, domain.ErrProfileUnresolvable
}
