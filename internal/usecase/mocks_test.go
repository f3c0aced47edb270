package usecase

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"openapp-settlement/internal/domain"
	"openapp-settlement/internal/domain/model"
	"openapp-settlement/internal/domain/ports/adapter"
	"openapp-settlement/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// memPaymentRepo is a small in-memory PaymentIntentRepository.
type memPaymentRepo struct {
	mu    sync.RWMutex
	rows  map[string]*model.PaymentIntent // by network payment id
	fails map[string]error                // method name -> forced error
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{rows: make(map[string]*model.PaymentIntent), fails: make(map[string]error)}
}

func (m *memPaymentRepo) Insert(ctx context.Context, tx repository.Tx, p *model.PaymentIntent) error {
	if err := m.fails["Insert"]; err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[p.PaymentID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *p
	m.rows[p.PaymentID] = &cp
	return nil
}

func (m *memPaymentRepo) UpsertCompleted(ctx context.Context, tx repository.Tx, p *model.PaymentIntent) (string, error) {
	if err := m.fails["UpsertCompleted"]; err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.rows[p.PaymentID]; ok {
		existing.Status = model.PaymentStatusCompleted
		existing.TxID = p.TxID
		existing.Amount = p.Amount
		if p.Memo != "" {
			existing.Memo = p.Memo
		}
		existing.Metadata = p.Metadata
		existing.UpdatedAt = p.UpdatedAt
		return existing.ID, nil
	}
	cp := *p
	m.rows[p.PaymentID] = &cp
	return cp.ID, nil
}

func (m *memPaymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, paymentID string, status model.PaymentStatus, txid *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[paymentID]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	if txid != nil {
		p.TxID = txid
	}
	return nil
}

func (m *memPaymentRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.PaymentIntent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.rows[paymentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPaymentRepo) ListApprovedOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentIntent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.PaymentIntent
	for _, p := range m.rows {
		if p.Status == model.PaymentStatusApproved && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// memIdemRepo is an in-memory IdempotencyRepository with atomic claims.
type memIdemRepo struct {
	mu    sync.Mutex
	rows  map[string]*model.IdempotencyRecord
	fails map[string]error
}

func newMemIdemRepo() *memIdemRepo {
	return &memIdemRepo{rows: make(map[string]*model.IdempotencyRecord), fails: make(map[string]error)}
}

func (m *memIdemRepo) Find(ctx context.Context, tx repository.Tx, paymentID string) (*model.IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[paymentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memIdemRepo) ClaimPending(ctx context.Context, tx repository.Tx, rec *model.IdempotencyRecord) (bool, error) {
	if err := m.fails["ClaimPending"]; err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[rec.PaymentID]; ok {
		return false, nil
	}
	cp := *rec
	m.rows[rec.PaymentID] = &cp
	return true, nil
}

func (m *memIdemRepo) MarkCompleted(ctx context.Context, tx repository.Tx, rec *model.IdempotencyRecord) error {
	if err := m.fails["MarkCompleted"]; err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[rec.PaymentID]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now().UTC()
	r.Status = model.SettlementStatusCompleted
	r.TxID = rec.TxID
	r.Metadata = rec.Metadata
	r.Amount = rec.Amount
	r.Memo = rec.Memo
	r.Payload = rec.Payload
	r.CompletedAt = &now
	return nil
}

func (m *memIdemRepo) ListStalePending(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.IdempotencyRecord
	for _, r := range m.rows {
		if r.Status == model.SettlementStatusPending && r.CreatedAt.Before(olderThan) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

// memEarningsRepo collects ledger rows in insertion order.
type memEarningsRepo struct {
	mu   sync.Mutex
	rows []*model.EarningsRecord
}

func newMemEarningsRepo() *memEarningsRepo { return &memEarningsRepo{} }

func (m *memEarningsRepo) Insert(ctx context.Context, tx repository.Tx, rec *model.EarningsRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memEarningsRepo) ListByDeveloper(ctx context.Context, developerID string, limit int) ([]*model.EarningsRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.EarningsRecord
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if m.rows[i].DeveloperID == developerID {
			cp := *m.rows[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memEarningsRepo) TotalsByDeveloper(ctx context.Context, developerID string) (*repository.DeveloperTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &repository.DeveloperTotals{}
	for _, r := range m.rows {
		if r.DeveloperID != developerID {
			continue
		}
		t.Gross = t.Gross.Add(r.TotalAmount)
		t.DeveloperShare = t.DeveloperShare.Add(r.DeveloperShare)
		t.PlatformFee = t.PlatformFee.Add(r.PlatformFee)
		t.Purchases++
	}
	return t, nil
}

// memSubRepo keys subscriptions by profile id, mirroring the upsert-by-PK.
type memSubRepo struct {
	mu   sync.Mutex
	subs map[string]*model.SubscriptionRecord
}

func newMemSubRepo() *memSubRepo {
	return &memSubRepo{subs: make(map[string]*model.SubscriptionRecord)}
}

func (m *memSubRepo) Upsert(ctx context.Context, tx repository.Tx, sub *model.SubscriptionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sub
	m.subs[sub.ProfileID] = &cp
	return nil
}

func (m *memSubRepo) FindByProfile(ctx context.Context, tx repository.Tx, profileID string) (*model.SubscriptionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[profileID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubRepo) ListLapsed(ctx context.Context, cutoff time.Time, limit int) ([]*model.SubscriptionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.SubscriptionRecord
	for _, s := range m.subs {
		if s.Status == model.SubscriptionStatusActive && s.EndDate.Before(cutoff) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memSubRepo) MarkExpired(ctx context.Context, profileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[profileID]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = model.SubscriptionStatusExpired
	return nil
}

// memAffiliateRepo enforces the one-invite-per-referred-profile rule.
type memAffiliateRepo struct {
	mu      sync.Mutex
	invites map[string]*model.AffiliateInvite // by referred profile id
}

func newMemAffiliateRepo() *memAffiliateRepo {
	return &memAffiliateRepo{invites: make(map[string]*model.AffiliateInvite)}
}

func (m *memAffiliateRepo) FindByReferredProfile(ctx context.Context, tx repository.Tx, referredProfileID string) (*model.AffiliateInvite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invites[referredProfileID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *memAffiliateRepo) Insert(ctx context.Context, tx repository.Tx, inv *model.AffiliateInvite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invites[inv.ReferredProfileID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *inv
	m.invites[inv.ReferredProfileID] = &cp
	return nil
}

func (m *memAffiliateRepo) Update(ctx context.Context, tx repository.Tx, inv *model.AffiliateInvite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.invites[inv.ReferredProfileID]
	if !ok || existing.Status == model.InviteStatusPaid {
		return domain.ErrNotFound
	}
	cp := *inv
	m.invites[inv.ReferredProfileID] = &cp
	return nil
}

// memProfileRepo also records mirror writes for assertions.
type memProfileRepo struct {
	mu        sync.Mutex
	profiles  map[string]*model.Profile
	mirrorErr error
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{profiles: make(map[string]*model.Profile)}
}

func (m *memProfileRepo) add(p *model.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.profiles[p.ID] = &cp
}

func (m *memProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProfileRepo) FindByUsername(ctx context.Context, username string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Username == username {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memProfileRepo) UpdateSubscriptionMirror(ctx context.Context, profileID string, plan model.PlanType, status model.SubscriptionStatus, expiresAt time.Time, hasPremium bool) error {
	if m.mirrorErr != nil {
		return m.mirrorErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[profileID]
	if !ok {
		return domain.ErrNotFound
	}
	p.SubscriptionPlan = plan
	p.SubscriptionStatus = status
	exp := expiresAt
	p.ExpiresAt = &exp
	p.HasPremium = hasPremium
	return nil
}

// memListingRepo tracks which drafts were marked paid.
type memListingRepo struct {
	mu   sync.Mutex
	paid map[string]string // draft id -> payment id
}

func newMemListingRepo() *memListingRepo {
	return &memListingRepo{paid: make(map[string]string)}
}

func (m *memListingRepo) MarkDraftPaid(ctx context.Context, tx repository.Tx, draftID, paymentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paid[draftID] = paymentID
	return nil
}

// fakeNetwork scripts the Pi platform's behavior per payment id.
type fakeNetwork struct {
	mu         sync.Mutex
	payments   map[string]*adapter.NetworkPayment
	approveErr error
	getErr     error
	complErr   error

	approveCalls  int
	getCalls      int
	completeCalls int
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{payments: make(map[string]*adapter.NetworkPayment)}
}

func (f *fakeNetwork) add(id string, amount decimal.Decimal, memo string, status adapter.NetworkStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments[id] = &adapter.NetworkPayment{Identifier: id, Amount: amount, Memo: memo, Status: status}
}

func (f *fakeNetwork) Name() string { return "fake" }

func (f *fakeNetwork) Approve(ctx context.Context, paymentID string) (*adapter.NetworkPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approveCalls++
	if f.approveErr != nil {
		return nil, f.approveErr
	}
	if p, ok := f.payments[paymentID]; ok {
		cp := *p
		cp.Status = adapter.StatusApproved
		return &cp, nil
	}
	return &adapter.NetworkPayment{Identifier: paymentID, Status: adapter.StatusApproved}, nil
}

func (f *fakeNetwork) Get(ctx context.Context, paymentID string) (*adapter.NetworkPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if p, ok := f.payments[paymentID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeNetwork) Complete(ctx context.Context, paymentID, txid string) (*adapter.NetworkPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completeCalls++
	if f.complErr != nil {
		return nil, f.complErr
	}
	p, ok := f.payments[paymentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	cp.Status = adapter.StatusCompleted
	cp.TxID = txid
	return &cp, nil
}

// fakeLocker hands out locks like the Redis implementation, in memory.
type fakeLocker struct {
	mu    sync.Mutex
	held  map[string]string
	fail  bool
	locks int
}

func newFakeLocker() *fakeLocker { return &fakeLocker{held: make(map[string]string)} }

func (f *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", domain.ErrSettlementInFlight
	}
	if _, ok := f.held[key]; ok {
		return "", domain.ErrSettlementInFlight
	}
	f.locks++
	token := "tok"
	f.held[key] = token
	return token, nil
}

func (f *fakeLocker) Unlock(ctx context.Context, key, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, key)
	return nil
}

// fakeNotifier records what was announced.
type fakeNotifier struct {
	mu       sync.Mutex
	earnings []*model.EarningsRecord
	subs     []*model.SubscriptionRecord
}

func (f *fakeNotifier) NotifyEarnings(ctx context.Context, rec *model.EarningsRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.earnings = append(f.earnings, rec)
	return nil
}

func (f *fakeNotifier) NotifySubscription(ctx context.Context, sub *model.SubscriptionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, sub)
	return nil
}

// fakeTxManager passes nil through; the mem repos ignore tx handles anyway.
type fakeTxManager struct{}

func (fakeTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}
