package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"billing-ledger/internal/domain"
	"billing-ledger/internal/domain/model"
	"billing-ledger/internal/domain/ports/adapter"
	"billing-ledger/internal/domain/ports/repository"
)

func newLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memTxManager satisfies repository.TransactionManager without a database.
// Callbacks run inline with a nil handle; lock acquisitions are counted so
// tests can assert the locking discipline.
type memTxManager struct {
	mu        sync.Mutex
	lockCalls []string
}

func (m *memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

func (m *memTxManager) WithAccountLock(ctx context.Context, accountID string, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	m.lockCalls = append(m.lockCalls, accountID)
	m.mu.Unlock()
	return fn(ctx, nil)
}

// recDispatcher records scheduled tasks; when run is set the task is executed
// inline, which keeps async follow-ups deterministic in tests.
type recDispatcher struct {
	mu    sync.Mutex
	tasks []model.Task
	run   func(ctx context.Context, task model.Task) error
}

func (d *recDispatcher) Schedule(ctx context.Context, task model.Task) error {
	d.mu.Lock()
	d.tasks = append(d.tasks, task)
	run := d.run
	d.mu.Unlock()
	if run != nil {
		return run(ctx, task)
	}
	return nil
}

func (d *recDispatcher) scheduled(operation string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, t := range d.tasks {
		if t.Operation == operation {
			n++
		}
	}
	return n
}

// ---- repositories ----

type memAccountRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Account
	saveErr error
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{store: make(map[string]*model.Account)}
}

func (m *memAccountRepo) Save(ctx context.Context, _ repository.Tx, a *model.Account) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *memAccountRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAccountRepo) Delete(ctx context.Context, _ repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *memAccountRepo) IncrementBalance(ctx context.Context, _ repository.Tx, id string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Balance += delta
	a.NeedsBalancing = true
	return nil
}

func (m *memAccountRepo) SetNeedsBalancing(ctx context.Context, _ repository.Tx, id string, needs bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.NeedsBalancing = needs
	return nil
}

func (m *memAccountRepo) ListNeedsBalancing(ctx context.Context, _ repository.Tx, limit int) ([]*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Account
	for _, a := range m.store {
		if a.NeedsBalancing && len(out) < limit {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memAccountRepo) ListCollectable(ctx context.Context, _ repository.Tx, attemptedBefore time.Time, limit int) ([]*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Account
	for _, a := range m.store {
		if len(out) >= limit {
			break
		}
		if a.Balance <= model.PayableDebtFloor {
			continue
		}
		if a.LastPaymentAttemptedAt != nil && !a.LastPaymentAttemptedAt.Before(attemptedBefore) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

type memPaymentMethodRepo struct {
	mu    sync.RWMutex
	store map[string]*model.PaymentMethod // by id
}

func newMemPaymentMethodRepo() *memPaymentMethodRepo {
	return &memPaymentMethodRepo{store: make(map[string]*model.PaymentMethod)}
}

func (m *memPaymentMethodRepo) Save(ctx context.Context, _ repository.Tx, pm *model.PaymentMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *pm
	m.store[pm.ID] = &cp
	return nil
}

func (m *memPaymentMethodRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.PaymentMethod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pm, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *pm
	return &cp, nil
}

func (m *memPaymentMethodRepo) FindByToken(ctx context.Context, _ repository.Tx, token string) (*model.PaymentMethod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, pm := range m.store {
		if pm.Token == token {
			cp := *pm
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPaymentMethodRepo) ListByAccount(ctx context.Context, _ repository.Tx, accountID string) ([]*model.PaymentMethod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.PaymentMethod
	for _, pm := range m.store {
		if pm.AccountID == accountID {
			cp := *pm
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memPaymentMethodRepo) DeleteByToken(ctx context.Context, _ repository.Tx, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, pm := range m.store {
		if pm.Token == token {
			delete(m.store, id)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memPaymentMethodRepo) ReplaceForAccount(ctx context.Context, _ repository.Tx, accountID string, pms []*model.PaymentMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, pm := range m.store {
		if pm.AccountID == accountID {
			delete(m.store, id)
		}
	}
	for _, pm := range pms {
		cp := *pm
		m.store[pm.ID] = &cp
	}
	return nil
}

type memTransactionRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Transaction
	saveErr error
}

func newMemTransactionRepo() *memTransactionRepo {
	return &memTransactionRepo{store: make(map[string]*model.Transaction)}
}

func (m *memTransactionRepo) Save(ctx context.Context, _ repository.Tx, t *model.Transaction) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.store[t.ID] = &cp
	return nil
}

func (m *memTransactionRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTransactionRepo) ListCompletedForAccount(ctx context.Context, _ repository.Tx, accountID string) ([]*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Transaction
	for _, t := range m.store {
		if t.AccountID == accountID && t.State == model.TransactionStateCompleted {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memTransactionRepo) FindCompletedForInvoice(ctx context.Context, _ repository.Tx, invoiceID string) (*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.store {
		if t.InvoiceID != nil && *t.InvoiceID == invoiceID && t.State == model.TransactionStateCompleted {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memTransactionRepo) FindForPayment(ctx context.Context, _ repository.Tx, paymentID string) (*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.store {
		if t.PaymentID != nil && *t.PaymentID == paymentID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memTransactionRepo) CountCompletedForCoupon(ctx context.Context, _ repository.Tx, couponID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, t := range m.store {
		if t.CouponID != nil && *t.CouponID == couponID && t.State == model.TransactionStateCompleted {
			n++
		}
	}
	return n, nil
}

func (m *memTransactionRepo) CountCompletedForCouponAndAccount(ctx context.Context, _ repository.Tx, couponID, accountID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, t := range m.store {
		if t.CouponID != nil && *t.CouponID == couponID && t.AccountID == accountID && t.State == model.TransactionStateCompleted {
			n++
		}
	}
	return n, nil
}

type memPaymentRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Payment
	saveErr error
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{store: make(map[string]*model.Payment)}
}

func (m *memPaymentRepo) Save(ctx context.Context, _ repository.Tx, p *model.Payment) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *memPaymentRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPaymentRepo) ListByAccount(ctx context.Context, _ repository.Tx, accountID string) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		if p.AccountID == accountID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memPaymentRepo) ListPendingOlderThan(ctx context.Context, _ repository.Tx, cutoff time.Time, limit int) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		if len(out) >= limit {
			break
		}
		if p.Pending() && p.CreatedAt.Before(cutoff) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memEntryRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Entry
	// accountOf resolves an entry's owning account for the coupon counters;
	// tests register subscription owners here.
	accountOf map[string]string // subscriptionID -> accountID
	// chargedInvoices backs CountChargedInvoices per entry id.
	chargedInvoices map[string]int
}

func newMemEntryRepo() *memEntryRepo {
	return &memEntryRepo{
		store:           make(map[string]*model.Entry),
		accountOf:       make(map[string]string),
		chargedInvoices: make(map[string]int),
	}
}

func (m *memEntryRepo) owner(e *model.Entry) string {
	if e.AccountID != nil {
		return *e.AccountID
	}
	if e.SubscriptionID != nil {
		return m.accountOf[*e.SubscriptionID]
	}
	return ""
}

func (m *memEntryRepo) Save(ctx context.Context, _ repository.Tx, e *model.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.store[e.ID] = &cp
	return nil
}

func (m *memEntryRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memEntryRepo) Delete(ctx context.Context, _ repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *memEntryRepo) ListInvoiceableForSubscription(ctx context.Context, _ repository.Tx, subscriptionID string) ([]*model.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Entry
	for _, e := range m.store {
		if e.SubscriptionID != nil && *e.SubscriptionID == subscriptionID && e.Invoiceable() {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memEntryRepo) ListForSubscription(ctx context.Context, _ repository.Tx, subscriptionID string) ([]*model.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Entry
	for _, e := range m.store {
		if e.SubscriptionID != nil && *e.SubscriptionID == subscriptionID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memEntryRepo) DeleteForSubscription(ctx context.Context, _ repository.Tx, subscriptionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.store {
		if e.SubscriptionID != nil && *e.SubscriptionID == subscriptionID {
			delete(m.store, id)
		}
	}
	return nil
}

func (m *memEntryRepo) CountValidForCouponAndAccount(ctx context.Context, _ repository.Tx, couponID, accountID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.store {
		if e.CouponID != nil && *e.CouponID == couponID && e.State == model.EntryStateValid && m.owner(e) == accountID {
			n++
		}
	}
	return n, nil
}

func (m *memEntryRepo) CountInvoicedForCoupon(ctx context.Context, _ repository.Tx, couponID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.store {
		if e.CouponID != nil && *e.CouponID == couponID && e.InvoicedCount > 0 {
			n++
		}
	}
	return n, nil
}

func (m *memEntryRepo) CountInvoicedForCouponAndAccount(ctx context.Context, _ repository.Tx, couponID, accountID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.store {
		if e.CouponID != nil && *e.CouponID == couponID && e.InvoicedCount > 0 && m.owner(e) == accountID {
			n++
		}
	}
	return n, nil
}

func (m *memEntryRepo) FindForCouponAndSubscription(ctx context.Context, _ repository.Tx, couponID, subscriptionID string) (*model.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.store {
		if e.CouponID != nil && *e.CouponID == couponID &&
			e.SubscriptionID != nil && *e.SubscriptionID == subscriptionID &&
			e.State == model.EntryStateValid {
			cp := *e
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memEntryRepo) CountChargedInvoices(ctx context.Context, _ repository.Tx, entryID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chargedInvoices[entryID], nil
}

type memInvoiceRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Invoice
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{store: make(map[string]*model.Invoice)}
}

func (m *memInvoiceRepo) Save(ctx context.Context, _ repository.Tx, inv *model.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *inv
	cp.Entries = append([]*model.Entry(nil), inv.Entries...)
	m.store[inv.ID] = &cp
	return nil
}

func (m *memInvoiceRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	cp.Entries = append([]*model.Entry(nil), inv.Entries...)
	return &cp, nil
}

type memSubscriptionRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Subscription
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{store: make(map[string]*model.Subscription)}
}

func (m *memSubscriptionRepo) Save(ctx context.Context, _ repository.Tx, s *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *memSubscriptionRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubscriptionRepo) ListActiveForAccount(ctx context.Context, _ repository.Tx, accountID string) ([]*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Subscription
	for _, s := range m.store {
		if s.AccountID == accountID && s.Active() {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memSubscriptionRepo) ListRenewable(ctx context.Context, _ repository.Tx, limit int) ([]*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	var out []*model.Subscription
	for _, s := range m.store {
		if len(out) >= limit {
			break
		}
		if s.Active() && s.IsAutorenewable && s.Expired(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memSubscriptionRepo) Delete(ctx context.Context, _ repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

type memCouponRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Coupon
}

func newMemCouponRepo() *memCouponRepo {
	return &memCouponRepo{store: make(map[string]*model.Coupon)}
}

func (m *memCouponRepo) Save(ctx context.Context, _ repository.Tx, c *model.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.store[c.ID] = &cp
	return nil
}

func (m *memCouponRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCouponRepo) FindByCode(ctx context.Context, _ repository.Tx, code string) (*model.Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.store {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memProductRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Product
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{store: make(map[string]*model.Product)}
}

func (m *memProductRepo) Save(ctx context.Context, _ repository.Tx, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *memProductRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProductRepo) FindByKey(ctx context.Context, _ repository.Tx, key string) (*model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.Key == key {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memProductRepo) ListAvailable(ctx context.Context, _ repository.Tx) ([]*model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Product
	for _, p := range m.store {
		if p.IsAvailable {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- gateway ----

// mockGateway scripts provider behavior per test.
type mockGateway struct {
	mu sync.Mutex

	sendErr   error // returned by SendPayment when set
	statusErr error // returned by PaymentStatus when set

	seq        int
	customers  map[string][]model.PaymentMethodSnapshot
	sent       []int64  // amounts sent
	voided     []string // transaction ids voided
	statusByID map[string]string
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		customers:  make(map[string][]model.PaymentMethodSnapshot),
		statusByID: make(map[string]string),
	}
}

func (g *mockGateway) Name() string { return "mock" }

func (g *mockGateway) CreateCustomer(ctx context.Context, info adapter.CustomerInfo) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	id := fmt.Sprintf("cus_%d", g.seq)
	g.customers[id] = nil
	return id, nil
}

func (g *mockGateway) DeleteCustomer(ctx context.Context, customerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.customers[customerID]; !ok {
		return &domain.GatewayError{Code: domain.GatewayCodeNotFound, Message: "customer not found"}
	}
	delete(g.customers, customerID)
	return nil
}

func (g *mockGateway) SavePaymentMethod(ctx context.Context, customerID, token, nonce string) (model.PaymentMethodSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.customers[customerID]; !ok {
		return model.PaymentMethodSnapshot{}, &domain.GatewayError{Code: domain.GatewayCodeNotFound, Message: "customer not found"}
	}
	if token == "" {
		g.seq++
		token = fmt.Sprintf("tok_%d", g.seq)
	}
	snap := model.PaymentMethodSnapshot{
		Token:          token,
		Type:           "credit_card",
		MaskedNumber:   "411111******1111",
		Last4:          "1111",
		ExpirationDate: "12/2030",
		CardType:       "Visa",
		CustomerID:     customerID,
	}
	methods := g.customers[customerID]
	replaced := false
	for i, m := range methods {
		if m.Token == token {
			methods[i] = snap
			replaced = true
		}
	}
	if !replaced {
		methods = append(methods, snap)
	}
	g.customers[customerID] = methods
	return snap, nil
}

func (g *mockGateway) DeletePaymentMethod(ctx context.Context, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for cid, methods := range g.customers {
		for i, m := range methods {
			if m.Token == token {
				g.customers[cid] = append(methods[:i], methods[i+1:]...)
				return nil
			}
		}
	}
	return &domain.GatewayError{Code: domain.GatewayCodeNotFound, Message: "payment method not found"}
}

func (g *mockGateway) ListPaymentMethods(ctx context.Context, customerID string) ([]model.PaymentMethodSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	methods, ok := g.customers[customerID]
	if !ok {
		return nil, &domain.GatewayError{Code: domain.GatewayCodeNotFound, Message: "customer not found"}
	}
	return append([]model.PaymentMethodSnapshot(nil), methods...), nil
}

func (g *mockGateway) SendPayment(ctx context.Context, amount int64, paymentMethodToken string) (adapter.PaymentResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return adapter.PaymentResult{}, g.sendErr
	}
	g.seq++
	id := fmt.Sprintf("txn_%d", g.seq)
	g.sent = append(g.sent, amount)
	g.statusByID[id] = "submitted_for_settlement"
	return adapter.PaymentResult{ID: id, Status: "submitted_for_settlement"}, nil
}

func (g *mockGateway) VoidPayment(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.voided = append(g.voided, id)
	g.statusByID[id] = "voided"
	return nil
}

func (g *mockGateway) PaymentStatus(ctx context.Context, id string) (adapter.PaymentResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.statusErr != nil {
		return adapter.PaymentResult{}, g.statusErr
	}
	status, ok := g.statusByID[id]
	if !ok {
		return adapter.PaymentResult{}, &domain.GatewayError{Code: domain.GatewayCodeNotFound, Message: "transaction not found"}
	}
	return adapter.PaymentResult{ID: id, Status: status}, nil
}
