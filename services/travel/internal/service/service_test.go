package service_test

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/jf-travel/pkg/auth"
	"github.com/diagnosis/jf-travel/pkg/events"
	"github.com/diagnosis/jf-travel/services/travel/internal/domain"
	"github.com/diagnosis/jf-travel/services/travel/internal/service"
	"github.com/diagnosis/jf-travel/services/travel/internal/storage"
)

var seedRates = map[string]string{"USD": "1", "NGN": "1540", "EUR": "0.92", "GBP": "0.79"}

type fixture struct {
	rateRepo    *mockRateRepo
	tourRepo    *mockTourRepo
	userRepo    *mockUserRepo
	bookingRepo *mockBookingRepo
	depositRepo *mockDepositRepo
	images      *mockImages
	gateway     *mockGateway
	bus         *recordingBus

	rates    service.RateService
	tours    service.TourService
	bookings service.BookingService
	auth     service.AuthService
	deposits service.DepositService
}

func newFixture() *fixture {
	f := &fixture{
		rateRepo: newMockRateRepo(seedRates),
		tourRepo: newMockTourRepo(),
		userRepo: newMockUserRepo(),
		images:   newMockImages(),
		gateway:  &mockGateway{},
		bus:      &recordingBus{},
	}
	f.bookingRepo = newMockBookingRepo(f.userRepo, f.tourRepo)
	f.depositRepo = newMockDepositRepo(f.userRepo)

	cfg := testConfig()
	f.rates = service.NewRateService(f.rateRepo, f.bus, cfg)
	f.tours = service.NewTourService(f.tourRepo, f.images, f.rates, f.bus)
	f.bookings = service.NewBookingService(f.bookingRepo, f.tourRepo, f.userRepo, f.rates, f.bus)
	f.auth = service.NewAuthService(f.userRepo, mockIssuer{}, f.bus)
	f.deposits = service.NewDepositService(f.depositRepo, f.userRepo, f.rates, f.gateway, f.bus, cfg)
	return f
}

func ptr[T any](v T) *T { return &v }

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func claimsFor(u *domain.User) *auth.Claims {
	return &auth.Claims{Sub: u.ID, Email: u.Email, Role: u.Role}
}

func fieldErrors(t *testing.T, err error) domain.ValidationErrors {
	t.Helper()
	var verrs domain.ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected validation error, got %v", err)
	return verrs
}

// ---------- Rates ----------

func TestRateService_CreateRejectsDuplicateCode(t *testing.T) {
	f := newFixture()
	_, err := f.rates.Create(context.Background(), &domain.RateInput{
		Code: ptr("eur"), Name: ptr("Euro"), Rate: dec("0.9"), BuyRate: dec("0.9"), SellRate: dec("0.9"),
	})
	assert.Contains(t, fieldErrors(t, err), "code")
}

func TestRateService_CreatePublishes(t *testing.T) {
	f := newFixture()
	rate, err := f.rates.Create(context.Background(), &domain.RateInput{
		Code: ptr(" cad "), Name: ptr("Canadian Dollar"), Rate: dec("1.36"), BuyRate: dec("1.35"), SellRate: dec("1.37"),
	})
	require.NoError(t, err)
	assert.Equal(t, "CAD", rate.Code)
	assert.Contains(t, f.bus.subjects, events.RateChanged)
}

func TestRateService_GetByIDOrCode(t *testing.T) {
	f := newFixture()
	byCode, err := f.rates.Get(context.Background(), "ngn")
	require.NoError(t, err)
	byID, err := f.rates.Get(context.Background(), strconv.FormatInt(byCode.ID, 10))
	require.NoError(t, err)
	assert.Equal(t, byCode.Code, byID.Code)

	_, err = f.rates.Get(context.Background(), "XYZ")
	assert.ErrorIs(t, err, domain.ErrRateNotFound)
}

func TestRateService_UpdateUniquenessExcludesSelf(t *testing.T) {
	f := newFixture()
	_, err := f.rates.Update(context.Background(), "EUR", &domain.RateInput{Code: ptr("EUR"), Rate: dec("0.95")})
	require.NoError(t, err)

	_, err = f.rates.Update(context.Background(), "EUR", &domain.RateInput{Code: ptr("GBP")})
	assert.Contains(t, fieldErrors(t, err), "code")
}

func TestRateService_RenameBlockedWhileInUse(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.rateRepo.inUse["NGN"] = true

	_, err := f.rates.Update(ctx, "NGN", &domain.RateInput{Code: ptr("NGX")})
	assert.ErrorIs(t, err, domain.ErrRateInUse)
	_, err = f.rates.Get(ctx, "NGN")
	require.NoError(t, err)

	// rate changes keep the code and stay allowed
	got, err := f.rates.Update(ctx, "NGN", &domain.RateInput{Code: ptr("ngn"), Rate: dec("1600")})
	require.NoError(t, err)
	assert.Equal(t, "1600", got.Rate.String())

	got, err = f.rates.Update(ctx, "GBP", &domain.RateInput{Code: ptr("GBX")})
	require.NoError(t, err)
	assert.Equal(t, "GBX", got.Code)
}

func TestRateService_ReferenceIsProtected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.rates.Update(ctx, "USD", &domain.RateInput{Rate: dec("2")})
	assert.Contains(t, fieldErrors(t, err), "rate")

	_, err = f.rates.Update(ctx, "USD", &domain.RateInput{Code: ptr("USX")})
	assert.Contains(t, fieldErrors(t, err), "code")

	assert.ErrorIs(t, f.rates.Delete(ctx, "USD"), domain.ErrRateInUse)
}

func TestRateService_DeleteBlockedWhileInUse(t *testing.T) {
	f := newFixture()
	f.rateRepo.inUse["NGN"] = true
	assert.ErrorIs(t, f.rates.Delete(context.Background(), "NGN"), domain.ErrRateInUse)

	require.NoError(t, f.rates.Delete(context.Background(), "gbp"))
	_, err := f.rates.Get(context.Background(), "GBP")
	assert.ErrorIs(t, err, domain.ErrRateNotFound)
}

func TestRateService_Convert(t *testing.T) {
	f := newFixture()
	conv, err := f.rates.Convert(context.Background(), decimal.NewFromInt(100), "usd", "ngn")
	require.NoError(t, err)
	assert.Equal(t, "154000", conv.Converted.String())
	assert.Equal(t, "154,000.00 NGN", conv.Display.Text)
	assert.Equal(t, "1540", conv.Rate.String())

	conv, err = f.rates.Convert(context.Background(), decimal.NewFromInt(5), "XYZ", "XYZ")
	require.NoError(t, err)
	assert.Equal(t, "5", conv.Converted.String())

	_, err = f.rates.Convert(context.Background(), decimal.NewFromInt(5), "USD", "XYZ")
	assert.Contains(t, fieldErrors(t, err), "to")
}

// ---------- Tours ----------

func validTour() *domain.TourInput {
	return &domain.TourInput{
		Name: ptr("Zanzibar Escape"), Destination: ptr("Zanzibar"), Country: ptr("Tanzania"),
		Price: dec("1299.00"), Duration: ptr("7 days"), Category: ptr("beach"),
	}
}

func TestTourService_CreateWithImage(t *testing.T) {
	f := newFixture()
	tour, err := f.tours.Create(context.Background(), validTour(), &storage.Upload{Filename: "beach.jpg"})
	require.NoError(t, err)
	require.NotNil(t, tour.ImageURL)
	assert.Equal(t, "/storage/"+*tour.Image, *tour.ImageURL)
	assert.Contains(t, f.bus.subjects, events.TourCreated)
}

func TestTourService_InvalidImageIsFieldError(t *testing.T) {
	f := newFixture()
	f.images.saveErr = &storage.InvalidImageError{Reason: "The image must be a file of type: jpeg, png, jpg, gif."}
	_, err := f.tours.Create(context.Background(), validTour(), &storage.Upload{Filename: "x.pdf"})
	assert.Contains(t, fieldErrors(t, err), "image")
	assert.Empty(t, f.tourRepo.tours)
}

func TestTourService_UpdateReplacesImage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tour, err := f.tours.Create(ctx, validTour(), &storage.Upload{Filename: "a.jpg"})
	require.NoError(t, err)
	old := *tour.Image

	updated, err := f.tours.Update(ctx, tour.ID, &domain.TourInput{Name: ptr("Zanzibar Deluxe")}, &storage.Upload{Filename: "b.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "Zanzibar Deluxe", updated.Name)
	assert.NotEqual(t, old, *updated.Image)
	assert.Equal(t, []string{old}, f.images.deleted)
}

func TestTourService_DeleteBlockedByBookings(t *testing.T) {
	f := newFixture()
	tour := f.tourRepo.add("Serengeti", "2000")
	f.tourRepo.bookings[tour.ID] = true

	assert.ErrorIs(t, f.tours.Delete(context.Background(), tour.ID), domain.ErrTourHasBookings)

	f.tourRepo.bookings[tour.ID] = false
	require.NoError(t, f.tours.Delete(context.Background(), tour.ID))
	assert.ErrorIs(t, f.tours.Delete(context.Background(), tour.ID), domain.ErrTourNotFound)
}

func TestTourService_Quote(t *testing.T) {
	f := newFixture()
	tour := f.tourRepo.add("Lagos Lights", "100")

	q, err := f.tours.Quote(context.Background(), tour.ID, 2, "ngn")
	require.NoError(t, err)
	assert.Equal(t, "200", q.Total.String())
	assert.Equal(t, "154,000.00 NGN", q.DisplayPerson.Text)
	assert.Equal(t, "308,000.00 NGN", q.DisplayTotal.Text)

	_, err = f.tours.Quote(context.Background(), tour.ID, 0, "")
	assert.Contains(t, fieldErrors(t, err), "travelers")
	_, err = f.tours.Quote(context.Background(), tour.ID, 1, "XYZ")
	assert.Contains(t, fieldErrors(t, err), "currency")
}

// ---------- Bookings ----------

func bookingInput(userID, tourID int64, travelers int) *domain.BookingInput {
	travel, _ := domain.ParseDate("2099-06-01")
	return &domain.BookingInput{
		UserID: &userID, TourID: &tourID, TravelDate: &travel, NumberOfTravelers: &travelers,
	}
}

func TestBookingService_CreateRecomputesTotal(t *testing.T) {
	f := newFixture()
	user := f.userRepo.add("ada@example.com", auth.RoleUser)
	tour := f.tourRepo.add("Zanzibar", "1299.00")

	in := bookingInput(user.ID, tour.ID, 2)
	in.TotalPrice = dec("1.00")
	in.Currency = ptr("ngn")

	b, err := f.bookings.Create(context.Background(), claimsFor(user), in)
	require.NoError(t, err)
	assert.Equal(t, "2598.00", b.TotalPrice.StringFixed(2))
	assert.Equal(t, domain.BookingPending, b.Status)
	assert.Equal(t, "NGN", b.Currency)
	require.NotNil(t, b.DisplayTotal)
	assert.Equal(t, "4,000,920.00 NGN", b.DisplayTotal.Text)
	assert.Equal(t, "Zanzibar", b.TourName)
	assert.Contains(t, f.bus.subjects, events.BookingCreated)
}

func TestBookingService_CreateChecksReferences(t *testing.T) {
	f := newFixture()
	admin := f.userRepo.add("admin@example.com", auth.RoleAdmin)

	_, err := f.bookings.Create(context.Background(), claimsFor(admin), bookingInput(99, 42, 1))
	verrs := fieldErrors(t, err)
	assert.Contains(t, verrs, "user_id")
	assert.Contains(t, verrs, "tour_id")
}

func TestBookingService_CreateForSomeoneElseIsForbidden(t *testing.T) {
	f := newFixture()
	ada := f.userRepo.add("ada@example.com", auth.RoleUser)
	bob := f.userRepo.add("bob@example.com", auth.RoleUser)
	tour := f.tourRepo.add("Zanzibar", "100")

	_, err := f.bookings.Create(context.Background(), claimsFor(bob), bookingInput(ada.ID, tour.ID, 1))
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestBookingService_StatusLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user := f.userRepo.add("ada@example.com", auth.RoleUser)
	admin := f.userRepo.add("admin@example.com", auth.RoleAdmin)
	tour := f.tourRepo.add("Zanzibar", "100")
	b, err := f.bookings.Create(ctx, claimsFor(user), bookingInput(user.ID, tour.ID, 1))
	require.NoError(t, err)

	// owners may only cancel
	_, err = f.bookings.UpdateStatus(ctx, claimsFor(user), b.ID, "confirmed")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// pending cannot jump to completed
	_, err = f.bookings.UpdateStatus(ctx, claimsFor(admin), b.ID, "completed")
	var te *domain.TransitionError
	require.True(t, errors.As(err, &te))

	_, err = f.bookings.UpdateStatus(ctx, claimsFor(admin), b.ID, "archived")
	assert.Contains(t, fieldErrors(t, err), "status")

	got, err := f.bookings.UpdateStatus(ctx, claimsFor(admin), b.ID, "confirmed")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, got.Status)

	// same status is a no-op
	got, err = f.bookings.UpdateStatus(ctx, claimsFor(admin), b.ID, "confirmed")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, got.Status)

	got, err = f.bookings.UpdateStatus(ctx, claimsFor(user), b.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, got.Status)
	assert.Contains(t, f.bus.subjects, events.BookingStatusChanged)

	_, err = f.bookings.Update(ctx, claimsFor(admin), b.ID, &domain.BookingInput{NumberOfTravelers: ptr(3)})
	assert.ErrorIs(t, err, domain.ErrBookingLocked)
}

func TestBookingService_ConcurrentTransitionConflicts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	admin := f.userRepo.add("admin@example.com", auth.RoleAdmin)
	tour := f.tourRepo.add("Zanzibar", "100")
	b, err := f.bookings.Create(ctx, claimsFor(admin), bookingInput(admin.ID, tour.ID, 1))
	require.NoError(t, err)

	f.bookingRepo.raceTo = domain.BookingCancelled
	_, err = f.bookings.UpdateStatus(ctx, claimsFor(admin), b.ID, "confirmed")
	var te *domain.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "cancelled", te.From)
}

func TestBookingService_RejectedUpdateWritesNothing(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user := f.userRepo.add("ada@example.com", auth.RoleUser)
	admin := f.userRepo.add("admin@example.com", auth.RoleAdmin)
	tour := f.tourRepo.add("Zanzibar", "100")
	b, err := f.bookings.Create(ctx, claimsFor(user), bookingInput(user.ID, tour.ID, 1))
	require.NoError(t, err)

	assertUnchanged := func() {
		t.Helper()
		got, err := f.bookings.Get(ctx, claimsFor(admin), b.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.NumberOfTravelers)
		assert.Equal(t, "100.00", got.TotalPrice.StringFixed(2))
		assert.Equal(t, domain.BookingPending, got.Status)
	}

	// pending cannot jump to completed, so the traveler change is dropped too
	_, err = f.bookings.Update(ctx, claimsFor(admin), b.ID, &domain.BookingInput{NumberOfTravelers: ptr(5), Status: ptr("completed")})
	var te *domain.TransitionError
	require.True(t, errors.As(err, &te))
	assertUnchanged()

	_, err = f.bookings.Update(ctx, claimsFor(user), b.ID, &domain.BookingInput{NumberOfTravelers: ptr(5), Status: ptr("confirmed")})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assertUnchanged()

	_, err = f.bookings.Update(ctx, claimsFor(admin), b.ID, &domain.BookingInput{NumberOfTravelers: ptr(5), Status: ptr("archived")})
	assert.Contains(t, fieldErrors(t, err), "status")
	assertUnchanged()

	// a status moved underneath the request rejects the field change
	f.bookingRepo.raceTo = domain.BookingCancelled
	_, err = f.bookings.Update(ctx, claimsFor(admin), b.ID, &domain.BookingInput{NumberOfTravelers: ptr(5)})
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "cancelled", te.From)
}

func TestBookingService_UpdateWritesFieldsAndStatusTogether(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	admin := f.userRepo.add("admin@example.com", auth.RoleAdmin)
	tour := f.tourRepo.add("Zanzibar", "100")
	b, err := f.bookings.Create(ctx, claimsFor(admin), bookingInput(admin.ID, tour.ID, 1))
	require.NoError(t, err)

	got, err := f.bookings.Update(ctx, claimsFor(admin), b.ID, &domain.BookingInput{NumberOfTravelers: ptr(2), Status: ptr("confirmed")})
	require.NoError(t, err)
	assert.Equal(t, 2, got.NumberOfTravelers)
	assert.Equal(t, "200.00", got.TotalPrice.StringFixed(2))
	assert.Equal(t, domain.BookingConfirmed, got.Status)
	assert.Contains(t, f.bus.subjects, events.BookingStatusChanged)
}

func TestBookingService_UpdateRecomputesTotal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	admin := f.userRepo.add("admin@example.com", auth.RoleAdmin)
	tour := f.tourRepo.add("Zanzibar", "250.50")
	other := f.tourRepo.add("Serengeti", "1000")
	b, err := f.bookings.Create(ctx, claimsFor(admin), bookingInput(admin.ID, tour.ID, 1))
	require.NoError(t, err)

	got, err := f.bookings.Update(ctx, claimsFor(admin), b.ID, &domain.BookingInput{NumberOfTravelers: ptr(4)})
	require.NoError(t, err)
	assert.Equal(t, "1002.00", got.TotalPrice.StringFixed(2))

	got, err = f.bookings.Update(ctx, claimsFor(admin), b.ID, &domain.BookingInput{TourID: &other.ID})
	require.NoError(t, err)
	assert.Equal(t, "4000.00", got.TotalPrice.StringFixed(2))

	early, _ := domain.ParseDate("2000-01-01")
	_, err = f.bookings.Update(ctx, claimsFor(admin), b.ID, &domain.BookingInput{TravelDate: &early})
	assert.Contains(t, fieldErrors(t, err), "travel_date")
}

func TestBookingService_GetChecksOwnership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ada := f.userRepo.add("ada@example.com", auth.RoleUser)
	bob := f.userRepo.add("bob@example.com", auth.RoleUser)
	tour := f.tourRepo.add("Zanzibar", "100")
	b, err := f.bookings.Create(ctx, claimsFor(ada), bookingInput(ada.ID, tour.ID, 1))
	require.NoError(t, err)

	_, err = f.bookings.Get(ctx, claimsFor(bob), b.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.bookings.Get(ctx, claimsFor(ada), b.ID)
	assert.NoError(t, err)

	require.NoError(t, f.bookings.Delete(ctx, b.ID))
	_, err = f.bookings.Get(ctx, claimsFor(ada), b.ID)
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

// ---------- Auth ----------

func TestAuthService_SignupIsIdempotentPerIdentity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req := func(uid string) *domain.SignupRequest {
		return &domain.SignupRequest{Email: " Ada@Example.com ", Name: "Ada", FirebaseUID: uid}
	}

	first, err := f.auth.Signup(ctx, req("uid-1"))
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "ada@example.com", first.User.Email)
	assert.Equal(t, auth.RoleUser, first.User.Role)
	assert.Equal(t, int64(3600), first.ExpiresIn)

	again, err := f.auth.Signup(ctx, req("uid-1"))
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, first.User.ID, again.User.ID)

	_, err = f.auth.Signup(ctx, req("uid-2"))
	assert.ErrorIs(t, err, domain.ErrIdentityMismatch)
}

func TestAuthService_SignupBindsLegacyUser(t *testing.T) {
	f := newFixture()
	u := f.userRepo.add("legacy@example.com", auth.RoleAdmin)

	res, err := f.auth.Signup(context.Background(), &domain.SignupRequest{Email: u.Email, Name: "Legacy", FirebaseUID: "uid-9"})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, res.User.Role)
	assert.NotNil(t, f.userRepo.users[u.ID].FirebaseUIDHash)
}

func TestAuthService_CheckAdmin(t *testing.T) {
	f := newFixture()
	f.userRepo.add("admin@example.com", auth.RoleAdmin)
	f.userRepo.add("ada@example.com", auth.RoleUser)

	assert.True(t, f.auth.CheckAdmin(context.Background(), "ADMIN@example.com"))
	assert.False(t, f.auth.CheckAdmin(context.Background(), "ada@example.com"))
	assert.False(t, f.auth.CheckAdmin(context.Background(), "nobody@example.com"))
	assert.False(t, f.auth.CheckAdmin(context.Background(), ""))
}

// ---------- Deposits ----------

func TestDepositService_MinimumAppliesAfterConversion(t *testing.T) {
	f := newFixture()
	user := f.userRepo.add("ada@example.com", auth.RoleUser)

	// 10,000 NGN is about 6.49 USD
	_, err := f.deposits.Create(context.Background(), claimsFor(user), &domain.DepositInput{
		Amount: dec("10000"), Currency: "ngn", PaymentMethod: "bank_transfer",
	})
	assert.Contains(t, fieldErrors(t, err), "amount")

	d, err := f.deposits.Create(context.Background(), claimsFor(user), &domain.DepositInput{
		Amount: dec("20000"), Currency: "ngn", PaymentMethod: "bank_transfer",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DepositPending, d.Status)
	assert.NotEmpty(t, d.ReferenceID)
	assert.Equal(t, 0, f.gateway.calls)
}

func TestDepositService_StripeIntent(t *testing.T) {
	f := newFixture()
	f.gateway.enabled = true
	user := f.userRepo.add("ada@example.com", auth.RoleUser)

	d, err := f.deposits.Create(context.Background(), claimsFor(user), &domain.DepositInput{
		Amount: dec("50"), PaymentMethod: "stripe",
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", d.Currency)
	assert.Equal(t, "secret_"+d.ReferenceID, d.ClientSecret)
	require.NotNil(t, f.depositRepo.deposits[d.ID].ProviderRef)
}

func TestDepositService_SettleCreditsReferenceAmount(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user := f.userRepo.add("ada@example.com", auth.RoleUser)
	d, err := f.deposits.Create(ctx, claimsFor(user), &domain.DepositInput{
		Amount: dec("92"), Currency: "EUR", PaymentMethod: "credit_card",
	})
	require.NoError(t, err)

	settled, err := f.deposits.Settle(ctx, d.ID, "success")
	require.NoError(t, err)
	assert.Equal(t, domain.DepositSuccess, settled.Status)
	assert.Equal(t, "100.00", f.userRepo.users[user.ID].WalletBalance.StringFixed(2))
	assert.Contains(t, f.bus.subjects, events.DepositSettled)

	_, err = f.deposits.Settle(ctx, d.ID, "failed")
	var te *domain.TransitionError
	assert.True(t, errors.As(err, &te))

	_, err = f.deposits.Settle(ctx, 999, "success")
	assert.ErrorIs(t, err, domain.ErrDepositNotFound)
}

func TestDepositService_ListScopesToCaller(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ada := f.userRepo.add("ada@example.com", auth.RoleUser)
	admin := f.userRepo.add("admin@example.com", auth.RoleAdmin)
	for _, u := range []*domain.User{ada, admin} {
		_, err := f.deposits.Create(ctx, claimsFor(u), &domain.DepositInput{Amount: dec("25"), PaymentMethod: "paypal"})
		require.NoError(t, err)
	}

	mine, total, err := f.deposits.List(ctx, claimsFor(ada), domain.DepositFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, ada.ID, mine[0].UserID)

	_, total, err = f.deposits.List(ctx, claimsFor(admin), domain.DepositFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}
