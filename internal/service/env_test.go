package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"kelabpetani/internal/events"
	"kelabpetani/internal/lifecycle"
	"kelabpetani/internal/model"
	"kelabpetani/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type sentMail struct {
	to, subject, body string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (n *fakeNotifier) Send(_ context.Context, to, subject, body string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return false
	}
	n.sent = append(n.sent, sentMail{to: to, subject: subject, body: body})
	return true
}

func (n *fakeNotifier) recipients() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, m := range n.sent {
		out = append(out, m.to)
	}
	return out
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

type panickyPublisher struct{}

func (panickyPublisher) Publish(context.Context, events.Event) error { panic("broker gone") }

// failingAudit breaks every audit insert so the surrounding transaction
// must roll back.
type failingAudit struct {
	repository.AuditRepository
}

func (failingAudit) Log(context.Context, *model.AuditLog) error {
	return errors.New("disk full")
}

type testEnv struct {
	db        *gorm.DB
	users     repository.UserRepository
	products  repository.ProductRepository
	orders    repository.OrderRepository
	projects  repository.PawahRepository
	messages  repository.MessageRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	notifier  *fakeNotifier
	publisher *fakePublisher
	dispatch  *Dispatcher
	writer    *AuditWriter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Order{},
		&model.PawahProject{},
		&model.Message{},
		&model.AuditLog{},
	))

	env := &testEnv{
		db:        db,
		users:     repository.NewUserRepository(db),
		products:  repository.NewProductRepository(db),
		orders:    repository.NewOrderRepository(db),
		projects:  repository.NewPawahRepository(db),
		messages:  repository.NewMessageRepository(db),
		auditRepo: repository.NewAuditRepository(db),
		txManager: repository.NewTransactionManager(db),
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
	}
	env.dispatch = NewDispatcher(env.users, env.notifier, env.publisher, nil)
	env.writer = NewAuditWriter(env.auditRepo)
	return env
}

// breakAudit swaps the audit writer for one whose inserts always fail.
func (e *testEnv) breakAudit() {
	e.writer = NewAuditWriter(failingAudit{e.auditRepo})
}

func (e *testEnv) orderService() OrderService {
	return NewOrderService(e.orders, e.products, e.writer, e.txManager, e.dispatch, nil)
}

func (e *testEnv) pawahService() PawahService {
	return NewPawahService(e.projects, e.writer, e.txManager, e.dispatch, nil)
}

func (e *testEnv) moderationService() ModerationService {
	return NewModerationService(e.products, e.projects, e.writer, e.txManager, e.dispatch, nil)
}

func (e *testEnv) marketplaceService() MarketplaceService {
	return NewMarketplaceService(e.products, e.writer, e.txManager, nil)
}

func (e *testEnv) messageService() MessageService {
	return NewMessageService(e.messages, e.orders, e.projects, e.dispatch, nil)
}

func (e *testEnv) user(t *testing.T, name string) Actor {
	t.Helper()
	u := &model.User{Email: name + "@example.com", Name: name, IsActive: true}
	require.NoError(t, e.users.Create(context.Background(), u))
	return Actor{ID: u.ID}
}

func (e *testEnv) admin(t *testing.T) Actor {
	t.Helper()
	a := e.user(t, "admin")
	a.IsAdmin = true
	return a
}

func intPtr(v int) *int { return &v }

// product inserts an active, approved listing. A nil quantity means
// untracked stock.
func (e *testEnv) product(t *testing.T, seller Actor, quantity *int) *model.Product {
	t.Helper()
	p := &model.Product{
		SellerID: seller.ID,
		Title:    "Cabai Merah",
		Price:    decimal.RequireFromString("12500.50"),
		Quantity: quantity,
		IsActive: true,
	}
	p.IsApproved = true
	require.NoError(t, e.products.Create(context.Background(), p))
	return p
}

func (e *testEnv) orderIn(t *testing.T, buyer Actor, product *model.Product, status lifecycle.OrderStatus) *model.Order {
	t.Helper()
	o := &model.Order{
		BuyerID:    buyer.ID,
		ProductID:  product.ID,
		Quantity:   1,
		TotalPrice: product.Price,
		Status:     status,
	}
	require.NoError(t, e.orders.Create(context.Background(), o))
	return o
}

func (e *testEnv) project(t *testing.T, owner Actor, status lifecycle.PawahStatus, farmer *Actor, approved bool) *model.PawahProject {
	t.Helper()
	p := &model.PawahProject{
		OwnerID:            owner.ID,
		Title:              "Padi musim hujan",
		CropType:           "padi",
		Location:           "Garut",
		DurationMonths:     4,
		CapitalRequired:    decimal.NewFromInt(5000000),
		OwnerSharePercent:  60,
		FarmerSharePercent: 40,
		Status:             status,
	}
	p.IsApproved = approved
	if farmer != nil {
		id := farmer.ID
		p.FarmerID = &id
	}
	require.NoError(t, e.projects.Create(context.Background(), p))
	return p
}

func (e *testEnv) auditRows(t *testing.T, entityID uuid.UUID) []model.AuditLog {
	t.Helper()
	var rows []model.AuditLog
	require.NoError(t, e.db.Where("entity_id = ?", entityID).Order("created_at asc").Find(&rows).Error)
	return rows
}

func (e *testEnv) reloadProduct(t *testing.T, id uuid.UUID) *model.Product {
	t.Helper()
	p, err := e.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (e *testEnv) reloadOrder(t *testing.T, id uuid.UUID) *model.Order {
	t.Helper()
	o, err := e.orders.FindByID(context.Background(), id)
	require.NoError(t, err)
	return o
}

func (e *testEnv) reloadProject(t *testing.T, id uuid.UUID) *model.PawahProject {
	t.Helper()
	p, err := e.projects.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

// staleOrders reports a fixed status from FindByID, the way a reader that
// loaded the order just before a concurrent change would see it.
type staleOrders struct {
	repository.OrderRepository
	status lifecycle.OrderStatus
}

func (r staleOrders) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	o, err := r.OrderRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Status = r.status
	return o, nil
}

// staleProjects does the same for pawah projects. A nil farmer clears the
// assignment in the returned snapshot.
type staleProjects struct {
	repository.PawahRepository
	status lifecycle.PawahStatus
	farmer *uuid.UUID
}

func (r staleProjects) FindByID(ctx context.Context, id uuid.UUID) (*model.PawahProject, error) {
	p, err := r.PawahRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Status = r.status
	p.FarmerID = r.farmer
	return p, nil
}
