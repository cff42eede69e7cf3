package integration

import (
	"context"
	"strings"
	"sync"
	"time"

	"reward-ledger/internal/core/domain"
	"reward-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Actor Repo ---

type inMemoryActorRepo struct {
	mu     sync.RWMutex
	actors map[uuid.UUID]*domain.Actor
}

func newInMemoryActorRepo() *inMemoryActorRepo {
	return &inMemoryActorRepo{actors: make(map[uuid.UUID]*domain.Actor)}
}

func (r *inMemoryActorRepo) Create(ctx context.Context, a *domain.Actor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.actors[a.ID] = &cp
	return nil
}

func (r *inMemoryActorRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actors[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *inMemoryActorRepo) GetByCode(ctx context.Context, code string) (*domain.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.actors {
		if a.Code == code {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryActorRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.actors {
		if a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet // keyed by user id
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.wallets[w.UserID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[userID]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *inMemoryWalletRepo) UpdateBalances(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.wallets[w.UserID] = &cp
	return nil
}

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	mu      sync.RWMutex
	entries []domain.WalletTransaction
}

func newInMemoryLedgerRepo() *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{}
}

func (r *inMemoryLedgerRepo) Append(ctx context.Context, tx pgx.Tx, entry *domain.WalletTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *inMemoryLedgerRepo) ListByUser(ctx context.Context, params ports.LedgerListParams) ([]domain.WalletTransaction, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []domain.WalletTransaction
	// Newest first, matching the SQL ordering.
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if e.UserID != params.UserID {
			continue
		}
		if params.Bucket != nil && e.Bucket != *params.Bucket {
			continue
		}
		matched = append(matched, e)
	}
	total := int64(len(matched))
	start := (params.Page - 1) * params.PageSize
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// allByUser returns every ledger row for a user in append order, for
// replaying the movement chain in assertions.
func (r *inMemoryLedgerRepo) allByUser(userID uuid.UUID) []domain.WalletTransaction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.WalletTransaction
	for _, e := range r.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

// --- In-Memory Commission Repo ---

type inMemoryCommissionRepo struct {
	mu          sync.RWMutex
	commissions map[uuid.UUID]*domain.Commission
	order       []uuid.UUID // insertion order
}

func newInMemoryCommissionRepo() *inMemoryCommissionRepo {
	return &inMemoryCommissionRepo{commissions: make(map[uuid.UUID]*domain.Commission)}
}

func (r *inMemoryCommissionRepo) Create(ctx context.Context, tx pgx.Tx, c *domain.Commission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.commissions[c.ID] = &cp
	r.order = append(r.order, c.ID)
	return nil
}

func (r *inMemoryCommissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Commission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.commissions[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *inMemoryCommissionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Commission, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryCommissionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.CommissionStatus, confirmedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.commissions[id]
	if !ok {
		return pgx.ErrNoRows
	}
	c.Status = status
	if confirmedAt != nil {
		c.ConfirmedAt = confirmedAt
	}
	return nil
}

func (r *inMemoryCommissionRepo) ListByActor(ctx context.Context, params ports.CommissionListParams) ([]domain.Commission, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []domain.Commission
	for i := len(r.order) - 1; i >= 0; i-- {
		c := r.commissions[r.order[i]]
		if c.ActorID != params.ActorID {
			continue
		}
		if params.Status != nil && c.Status != *params.Status {
			continue
		}
		matched = append(matched, *c)
	}
	total := int64(len(matched))
	start := (params.Page - 1) * params.PageSize
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *inMemoryCommissionRepo) GetStats(ctx context.Context, actorID uuid.UUID) (*ports.CommissionStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &ports.CommissionStats{}
	for _, c := range r.commissions {
		if c.ActorID != actorID {
			continue
		}
		stats.Count++
		switch c.Status {
		case domain.CommissionStatusConfirmed:
			stats.TotalConfirmed += c.Amount
			stats.TotalEarned += c.Amount
		case domain.CommissionStatusPending:
			stats.TotalPending += c.Amount
			stats.TotalEarned += c.Amount
		case domain.CommissionStatusReversed:
			stats.TotalReversed += c.Amount
		}
	}
	return stats, nil
}

// --- In-Memory Payout Repo ---

type inMemoryPayoutRepo struct {
	mu      sync.RWMutex
	payouts map[uuid.UUID]*domain.Payout
	order   []uuid.UUID
}

func newInMemoryPayoutRepo() *inMemoryPayoutRepo {
	return &inMemoryPayoutRepo{payouts: make(map[uuid.UUID]*domain.Payout)}
}

func (r *inMemoryPayoutRepo) Create(ctx context.Context, p *domain.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payouts[p.ID] = &cp
	r.order = append(r.order, p.ID)
	return nil
}

func (r *inMemoryPayoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payouts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryPayoutRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Payout, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryPayoutRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PayoutStatus, settlementRef, notes *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payouts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	p.Status = status
	if settlementRef != nil {
		p.SettlementRef = settlementRef
	}
	if notes != nil {
		p.Notes = notes
	}
	now := time.Now().UTC()
	p.ProcessedAt = &now
	return nil
}

func (r *inMemoryPayoutRepo) ListByActor(ctx context.Context, actorID uuid.UUID, page, pageSize int) ([]domain.Payout, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []domain.Payout
	for i := len(r.order) - 1; i >= 0; i-- {
		p := r.payouts[r.order[i]]
		if p.ActorID == actorID {
			matched = append(matched, *p)
		}
	}
	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// --- In-Memory Click Repo ---

type inMemoryClickRepo struct {
	mu     sync.RWMutex
	clicks []domain.Click
}

func newInMemoryClickRepo() *inMemoryClickRepo {
	return &inMemoryClickRepo{}
}

func (r *inMemoryClickRepo) Create(ctx context.Context, c *domain.Click) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clicks = append(r.clicks, *c)
	return nil
}

func (r *inMemoryClickRepo) CountByActor(ctx context.Context, actorID uuid.UUID, since time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, c := range r.clicks {
		if c.ActorID == actorID && !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// --- In-Memory Event Repo ---

type inMemoryEventRepo struct {
	mu     sync.RWMutex
	events map[string]*domain.ProcessedEvent
}

func newInMemoryEventRepo() *inMemoryEventRepo {
	return &inMemoryEventRepo{events: make(map[string]*domain.ProcessedEvent)}
}

func (r *inMemoryEventRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.ProcessedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[e.OrderID]; ok {
		return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	}
	cp := *e
	r.events[e.OrderID] = &cp
	return nil
}

func (r *inMemoryEventRepo) Get(ctx context.Context, orderID string) (*domain.ProcessedEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.events[orderID]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

// --- In-Memory Referral Repo ---

type inMemoryReferralRepo struct {
	mu           sync.RWMutex
	settings     *domain.ReferralSettings
	settingsRows int64
	transactions []domain.ReferralTransaction
	events       *inMemoryEventRepo // prior-order checks read the processed event log
}

func newInMemoryReferralRepo(events *inMemoryEventRepo) *inMemoryReferralRepo {
	return &inMemoryReferralRepo{events: events}
}

func (r *inMemoryReferralRepo) GetLatestSettings(ctx context.Context) (*domain.ReferralSettings, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.settings == nil {
		return nil, 0, nil
	}
	cp := *r.settings
	return &cp, r.settingsRows, nil
}

func (r *inMemoryReferralRepo) UpsertSettings(ctx context.Context, s *domain.ReferralSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.settings = &cp
	r.settingsRows = 1
	return nil
}

func (r *inMemoryReferralRepo) CreateTransaction(ctx context.Context, t *domain.ReferralTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions = append(r.transactions, *t)
	return nil
}

func (r *inMemoryReferralRepo) CountByReferrerSince(ctx context.Context, referrerID uuid.UUID, since time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, t := range r.transactions {
		if t.ReferrerID == referrerID && t.Status == domain.ReferralStatusAllowed && !t.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *inMemoryReferralRepo) CountByReferrerForReferee(ctx context.Context, referrerID, refereeID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, t := range r.transactions {
		if t.ReferrerID == referrerID && t.RefereeID == refereeID && t.Status == domain.ReferralStatusAllowed {
			n++
		}
	}
	return n, nil
}

func (r *inMemoryReferralRepo) HasPriorOrders(ctx context.Context, refereeID uuid.UUID, excludeOrderID string) (bool, error) {
	r.events.mu.RLock()
	defer r.events.mu.RUnlock()
	for orderID, e := range r.events.events {
		if e.BuyerID == refereeID && orderID != excludeOrderID {
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemoryReferralRepo) ListBlocked(ctx context.Context, page, pageSize int) ([]domain.ReferralTransaction, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []domain.ReferralTransaction
	for i := len(r.transactions) - 1; i >= 0; i-- {
		if r.transactions[i].Status == domain.ReferralStatusBlocked {
			matched = append(matched, r.transactions[i])
		}
	}
	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu   sync.RWMutex
	logs []domain.AuditLog
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *log)
	return nil
}

func (r *inMemoryAuditRepo) List(ctx context.Context, page, pageSize int) ([]domain.AuditLog, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []domain.AuditLog
	for i := len(r.logs) - 1; i >= 0; i-- {
		matched = append(matched, r.logs[i])
	}
	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *inMemoryAuditRepo) byActionSubstring(s string) []domain.AuditLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.AuditLog
	for _, l := range r.logs {
		if strings.Contains(string(l.Action), s) {
			out = append(out, l)
		}
	}
	return out
}

// --- Locking Transactor ---

// lockingTransactor serializes transactions with a single mutex, standing in
// for the row lock SELECT ... FOR UPDATE takes in PostgreSQL. Without it the
// read-modify-write inside a ledger mutation would race between goroutines.
type lockingTransactor struct {
	mu sync.Mutex
}

func newLockingTransactor() *lockingTransactor {
	return &lockingTransactor{}
}

func (t *lockingTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &lockingTx{release: t.mu.Unlock}, nil
}

// lockingTx holds the transactor lock from Begin until the first Commit or
// Rollback. Services call Commit and then the deferred Rollback, so the
// release must be idempotent.
type lockingTx struct {
	mu      sync.Mutex
	done    bool
	release func()
}

func (t *lockingTx) end() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	t.release()
}

func (t *lockingTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }

func (t *lockingTx) Commit(ctx context.Context) error {
	t.end()
	return nil
}

func (t *lockingTx) Rollback(ctx context.Context) error {
	t.end()
	return nil
}

func (t *lockingTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *lockingTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *lockingTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *lockingTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *lockingTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *lockingTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *lockingTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *lockingTx) Conn() *pgx.Conn { return nil }
