package service_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diagnosis/jf-travel/pkg/config"
	"github.com/diagnosis/jf-travel/pkg/events"
	"github.com/diagnosis/jf-travel/pkg/payments"
	"github.com/diagnosis/jf-travel/services/travel/internal/domain"
	"github.com/diagnosis/jf-travel/services/travel/internal/repository"
	"github.com/diagnosis/jf-travel/services/travel/internal/storage"
)

// ---------- Mocks ----------

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Currency.Reference = "USD"
	cfg.Currency.Locale = "en"
	cfg.Currency.MinDepositAmount = "10"
	return cfg
}

type mockRateRepo struct {
	nextID int64
	rates  map[int64]*domain.CurrencyRate
	inUse  map[string]bool
}

func newMockRateRepo(seed map[string]string) *mockRateRepo {
	m := &mockRateRepo{nextID: 1, rates: map[int64]*domain.CurrencyRate{}, inUse: map[string]bool{}}
	for code, rate := range seed {
		r := decimal.RequireFromString(rate)
		name := code
		m.Create(context.Background(), &domain.RateInput{Code: &code, Name: &name, Rate: &r, BuyRate: &r, SellRate: &r})
	}
	return m
}

func (m *mockRateRepo) List(context.Context) ([]domain.CurrencyRate, error) {
	out := []domain.CurrencyRate{}
	for _, r := range m.rates {
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockRateRepo) GetByID(_ context.Context, id int64) (*domain.CurrencyRate, error) {
	if r, ok := m.rates[id]; ok {
		c := *r
		return &c, nil
	}
	return nil, nil
}

func (m *mockRateRepo) GetByCode(_ context.Context, code string) (*domain.CurrencyRate, error) {
	for _, r := range m.rates {
		if r.Code == strings.ToUpper(code) {
			c := *r
			return &c, nil
		}
	}
	return nil, nil
}

func (m *mockRateRepo) Create(_ context.Context, in *domain.RateInput) (*domain.CurrencyRate, error) {
	for _, r := range m.rates {
		if r.Code == *in.Code {
			return nil, repository.ErrDuplicate
		}
	}
	r := &domain.CurrencyRate{
		ID: m.nextID, Code: *in.Code, Name: *in.Name,
		Rate: *in.Rate, BuyRate: *in.BuyRate, SellRate: *in.SellRate, Flag: in.Flag,
	}
	m.rates[r.ID] = r
	m.nextID++
	c := *r
	return &c, nil
}

func (m *mockRateRepo) Update(_ context.Context, id int64, in *domain.RateInput) (*domain.CurrencyRate, error) {
	r, ok := m.rates[id]
	if !ok {
		return nil, nil
	}
	if in.Code != nil {
		r.Code = *in.Code
	}
	if in.Name != nil {
		r.Name = *in.Name
	}
	if in.Rate != nil {
		r.Rate = *in.Rate
	}
	c := *r
	return &c, nil
}

func (m *mockRateRepo) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := m.rates[id]; !ok {
		return false, nil
	}
	delete(m.rates, id)
	return true, nil
}

func (m *mockRateRepo) CodeInUse(_ context.Context, code string) (bool, error) {
	return m.inUse[code], nil
}

type mockTourRepo struct {
	nextID   int64
	tours    map[int64]*domain.Tour
	bookings map[int64]bool
}

func newMockTourRepo() *mockTourRepo {
	return &mockTourRepo{nextID: 1, tours: map[int64]*domain.Tour{}, bookings: map[int64]bool{}}
}

func (m *mockTourRepo) add(name, price string) *domain.Tour {
	t := &domain.Tour{ID: m.nextID, Name: name, Price: decimal.RequireFromString(price), Category: domain.CategoryBeach}
	m.tours[t.ID] = t
	m.nextID++
	return t
}

func (m *mockTourRepo) List(context.Context, domain.TourFilter) ([]domain.Tour, error) {
	out := []domain.Tour{}
	for _, t := range m.tours {
		out = append(out, *t)
	}
	return out, nil
}

func (m *mockTourRepo) GetByID(_ context.Context, id int64) (*domain.Tour, error) {
	if t, ok := m.tours[id]; ok {
		c := *t
		return &c, nil
	}
	return nil, nil
}

func (m *mockTourRepo) Create(_ context.Context, in *domain.TourInput, image *string) (*domain.Tour, error) {
	t := &domain.Tour{ID: m.nextID, Name: *in.Name, Price: *in.Price, Image: image}
	m.tours[t.ID] = t
	m.nextID++
	c := *t
	return &c, nil
}

func (m *mockTourRepo) Update(_ context.Context, id int64, in *domain.TourInput, image *string) (*domain.Tour, error) {
	t, ok := m.tours[id]
	if !ok {
		return nil, nil
	}
	if in.Name != nil {
		t.Name = *in.Name
	}
	if in.Price != nil {
		t.Price = *in.Price
	}
	if image != nil {
		t.Image = image
	}
	c := *t
	return &c, nil
}

func (m *mockTourRepo) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := m.tours[id]; !ok {
		return false, nil
	}
	delete(m.tours, id)
	return true, nil
}

func (m *mockTourRepo) HasBookings(_ context.Context, id int64) (bool, error) {
	return m.bookings[id], nil
}

type mockUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{nextID: 1, users: map[int64]*domain.User{}}
}

func (m *mockUserRepo) add(email, role string) *domain.User {
	u, _ := m.Create(context.Background(), email, strings.Split(email, "@")[0], role, "")
	return u
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (m *mockUserRepo) Create(_ context.Context, email, name, role, uidHash string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return nil, repository.ErrDuplicate
		}
	}
	u := &domain.User{ID: m.nextID, Email: email, Name: name, Role: role, PreferredCurrency: "USD"}
	if uidHash != "" {
		u.FirebaseUIDHash = &uidHash
	}
	m.users[u.ID] = u
	m.nextID++
	c := *u
	return &c, nil
}

func (m *mockUserRepo) BindIdentity(_ context.Context, id int64, uidHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok && u.FirebaseUIDHash == nil {
		u.FirebaseUIDHash = &uidHash
	}
	return nil
}

type mockBookingRepo struct {
	nextID   int64
	bookings map[int64]*domain.TourBooking
	users    *mockUserRepo
	tours    *mockTourRepo
	// raceTo simulates a concurrent status change landing first
	raceTo domain.BookingStatus
}

func newMockBookingRepo(users *mockUserRepo, tours *mockTourRepo) *mockBookingRepo {
	return &mockBookingRepo{nextID: 1, bookings: map[int64]*domain.TourBooking{}, users: users, tours: tours}
}

func (m *mockBookingRepo) join(b *domain.TourBooking) *domain.TourBooking {
	c := *b
	if u, ok := m.users.users[b.UserID]; ok {
		c.UserName, c.UserEmail = u.Name, u.Email
	}
	if t, ok := m.tours.tours[b.TourID]; ok {
		c.TourName = t.Name
	}
	return &c
}

func (m *mockBookingRepo) Create(_ context.Context, in *domain.TourBooking) (*domain.TourBooking, error) {
	b := *in
	b.ID = m.nextID
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	m.bookings[b.ID] = &b
	m.nextID++
	return m.join(&b), nil
}

func (m *mockBookingRepo) GetByID(_ context.Context, id int64) (*domain.TourBooking, error) {
	if b, ok := m.bookings[id]; ok {
		return m.join(b), nil
	}
	return nil, nil
}

func (m *mockBookingRepo) List(_ context.Context, filter domain.BookingFilter) ([]domain.TourBooking, int, error) {
	out := []domain.TourBooking{}
	for _, b := range m.bookings {
		if filter.Status != nil && b.Status != *filter.Status {
			continue
		}
		out = append(out, *m.join(b))
	}
	return out, len(out), nil
}

func (m *mockBookingRepo) Update(_ context.Context, id int64, p domain.BookingPatch) (*domain.TourBooking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	if m.raceTo != "" {
		b.Status = m.raceTo
		m.raceTo = ""
	}
	if b.Status != p.FromStatus {
		return nil, nil
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.TourID != nil {
		b.TourID = *p.TourID
	}
	if p.NumberOfTravelers != nil {
		b.NumberOfTravelers = *p.NumberOfTravelers
	}
	if p.TotalPrice != nil {
		b.TotalPrice = *p.TotalPrice
	}
	if p.Currency != nil {
		b.Currency = *p.Currency
	}
	if p.TravelDate != nil {
		b.TravelDate = domain.NewDate(*p.TravelDate)
	}
	return m.join(b), nil
}

func (m *mockBookingRepo) UpdateStatus(_ context.Context, id int64, from, to domain.BookingStatus) (*domain.TourBooking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	if m.raceTo != "" {
		b.Status = m.raceTo
		m.raceTo = ""
	}
	if b.Status != from {
		return nil, nil
	}
	b.Status = to
	return m.join(b), nil
}

func (m *mockBookingRepo) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := m.bookings[id]; !ok {
		return false, nil
	}
	delete(m.bookings, id)
	return true, nil
}

type mockDepositRepo struct {
	nextID   int64
	deposits map[int64]*domain.Deposit
	users    *mockUserRepo
}

func newMockDepositRepo(users *mockUserRepo) *mockDepositRepo {
	return &mockDepositRepo{nextID: 1, deposits: map[int64]*domain.Deposit{}, users: users}
}

func (m *mockDepositRepo) Create(_ context.Context, in *domain.Deposit) (*domain.Deposit, error) {
	d := *in
	d.ID = m.nextID
	m.deposits[d.ID] = &d
	m.nextID++
	c := d
	return &c, nil
}

func (m *mockDepositRepo) GetByID(_ context.Context, id int64) (*domain.Deposit, error) {
	if d, ok := m.deposits[id]; ok {
		c := *d
		return &c, nil
	}
	return nil, nil
}

func (m *mockDepositRepo) List(_ context.Context, filter domain.DepositFilter) ([]domain.Deposit, int, error) {
	out := []domain.Deposit{}
	for _, d := range m.deposits {
		if filter.UserID != nil && d.UserID != *filter.UserID {
			continue
		}
		out = append(out, *d)
	}
	return out, len(out), nil
}

func (m *mockDepositRepo) SetProviderRef(_ context.Context, id int64, ref string) error {
	if d, ok := m.deposits[id]; ok {
		d.ProviderRef = &ref
	}
	return nil
}

func (m *mockDepositRepo) Settle(_ context.Context, id int64, to domain.DepositStatus, credit decimal.Decimal) (*domain.Deposit, error) {
	d, ok := m.deposits[id]
	if !ok || d.Status != domain.DepositPending {
		return nil, nil
	}
	d.Status = to
	if to == domain.DepositSuccess {
		u := m.users.users[d.UserID]
		u.WalletBalance = u.WalletBalance.Add(credit)
	}
	c := *d
	return &c, nil
}

type mockImages struct {
	saved   map[string]bool
	deleted []string
	saveErr error
}

func newMockImages() *mockImages {
	return &mockImages{saved: map[string]bool{}}
}

func (m *mockImages) Save(_ context.Context, up storage.Upload) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	p := fmt.Sprintf("tours/%d_%s", len(m.saved)+1, up.Filename)
	m.saved[p] = true
	return p, nil
}

func (m *mockImages) Delete(_ context.Context, p string) error {
	delete(m.saved, p)
	m.deleted = append(m.deleted, p)
	return nil
}

func (m *mockImages) URL(p string) string {
	return "/storage/" + p
}

type mockGateway struct {
	enabled bool
	err     error
	calls   int
}

func (m *mockGateway) Enabled() bool { return m.enabled }

func (m *mockGateway) CreateIntent(_ context.Context, amount decimal.Decimal, currency, reference string) (*payments.Intent, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &payments.Intent{ID: "pi_" + reference, ClientSecret: "secret_" + reference, Status: "requires_payment_method"}, nil
}

type mockIssuer struct{}

func (mockIssuer) NewAccessToken(sub int64, email, role string) (string, error) {
	return fmt.Sprintf("token-%d-%s", sub, role), nil
}

func (mockIssuer) TTL() time.Duration { return time.Hour }

type recordingBus struct {
	mu       sync.Mutex
	subjects []string
}

func (b *recordingBus) Publish(_ context.Context, subject string, _ interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subjects = append(b.subjects, subject)
	return nil
}

func (b *recordingBus) Subscribe(string, func(*events.Message)) error              { return nil }
func (b *recordingBus) QueueSubscribe(string, string, func(*events.Message)) error { return nil }
func (b *recordingBus) Close() error                                               { return nil }
