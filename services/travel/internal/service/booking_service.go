package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/jf-travel/pkg/auth"
	"github.com/diagnosis/jf-travel/pkg/events"
	"github.com/diagnosis/jf-travel/pkg/logger"
	"github.com/diagnosis/jf-travel/pkg/money"
	"github.com/diagnosis/jf-travel/services/travel/internal/domain"
	"github.com/diagnosis/jf-travel/services/travel/internal/repository"
)

type BookingService interface {
	Create(ctx context.Context, actor *auth.Claims, in *domain.BookingInput) (*domain.TourBooking, error)
	Get(ctx context.Context, actor *auth.Claims, id int64) (*domain.TourBooking, error)
	List(ctx context.Context, filter domain.BookingFilter) ([]domain.TourBooking, int, error)
	Update(ctx context.Context, actor *auth.Claims, id int64, in *domain.BookingInput) (*domain.TourBooking, error)
	UpdateStatus(ctx context.Context, actor *auth.Claims, id int64, status string) (*domain.TourBooking, error)
	Delete(ctx context.Context, id int64) error
}

type bookingService struct {
	bookingRepo repository.BookingRepository
	tourRepo    repository.TourRepository
	userRepo    repository.UserRepository
	rates       RateSource
	eventBus    events.EventBus
	now         func() time.Time
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	tourRepo repository.TourRepository,
	userRepo repository.UserRepository,
	rates RateSource,
	eventBus events.EventBus,
) BookingService {
	return &bookingService{
		bookingRepo: bookingRepo,
		tourRepo:    tourRepo,
		userRepo:    userRepo,
		rates:       rates,
		eventBus:    eventBus,
		now:         time.Now,
	}
}

func (s *bookingService) Create(ctx context.Context, actor *auth.Claims, in *domain.BookingInput) (*domain.TourBooking, error) {
	if in.BookingDate == nil {
		today := domain.NewDate(s.now().UTC())
		in.BookingDate = &today
	}
	if err := in.Validate(true).Err(); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && *in.UserID != actor.Sub {
		return nil, domain.ErrForbidden
	}

	// user and tour are independent reads
	var (
		user *domain.User
		tour *domain.Tour
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.userRepo.FindByID(gctx, *in.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		tour, err = s.tourRepo.GetByID(gctx, *in.TourID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load booking references: %w", err)
	}

	errs := domain.ValidationErrors{}
	if user == nil {
		errs.Add("user_id", "The selected user id is invalid.")
	}
	if tour == nil {
		errs.Add("tour_id", "The selected tour id is invalid.")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	rates, err := s.rates.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	currency := rates.Reference
	if in.Currency != nil && *in.Currency != "" {
		currency = money.NormalizeCode(*in.Currency)
	}
	if currency != rates.Reference && !rates.Table.Has(currency) {
		return nil, domain.ValidationErrors{"currency": "The selected currency is not supported."}
	}

	status := domain.BookingPending
	if in.Status != nil && actor.IsAdmin() {
		status, _ = domain.ParseBookingStatus(*in.Status)
	}

	total := domain.CalculateTotal(tour.Price, *in.NumberOfTravelers)
	if in.TotalPrice != nil && !in.TotalPrice.Equal(total) {
		logger.WarnContext(ctx, "Client total ignored",
			"client_total", in.TotalPrice.String(), "computed_total", total.String(), "tour_id", tour.ID)
	}

	booking, err := s.bookingRepo.Create(ctx, &domain.TourBooking{
		UserID:            user.ID,
		TourID:            tour.ID,
		BookingDate:       *in.BookingDate,
		TravelDate:        *in.TravelDate,
		NumberOfTravelers: *in.NumberOfTravelers,
		TotalPrice:        total,
		Currency:          currency,
		Status:            status,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	s.withDisplayTotal(booking, rates)

	logger.InfoContext(ctx, "Booking created", "booking_id", booking.ID, "tour_id", booking.TourID, "total", booking.TotalPrice.String())

	event := events.BookingCreatedEvent{
		BookingID:  booking.ID,
		UserID:     booking.UserID,
		UserEmail:  booking.UserEmail,
		UserName:   booking.UserName,
		TourID:     booking.TourID,
		TourName:   booking.TourName,
		TravelDate: booking.TravelDate.Time,
		Travelers:  booking.NumberOfTravelers,
		TotalPrice: booking.TotalPrice,
		Currency:   booking.Currency,
		CreatedAt:  booking.CreatedAt,
	}
	if booking.DisplayTotal != nil {
		event.DisplayTotal = booking.DisplayTotal.Text
	} else {
		event.DisplayTotal = rates.Display(booking.TotalPrice, rates.Reference).Text
	}
	if err := s.eventBus.Publish(ctx, events.BookingCreated, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking created event", "error", err, "booking_id", booking.ID)
	}

	return booking, nil
}

func (s *bookingService) Get(ctx context.Context, actor *auth.Claims, id int64) (*domain.TourBooking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !booking.IsOwner(actor.Sub) {
		return nil, domain.ErrForbidden
	}
	s.decorate(ctx, booking)
	return booking, nil
}

func (s *bookingService) List(ctx context.Context, filter domain.BookingFilter) ([]domain.TourBooking, int, error) {
	bookings, total, err := s.bookingRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	if rates, err := s.rates.Snapshot(ctx); err == nil {
		for i := range bookings {
			s.withDisplayTotal(&bookings[i], rates)
		}
	} else {
		logger.WarnContext(ctx, "Rates unavailable for display totals", "error", err)
	}
	return bookings, total, nil
}

// Update changes tour, dates, travelers or currency and recomputes the total.
// A status in the payload goes through the same checks as UpdateStatus, and
// fields and status are written together or not at all.
func (s *bookingService) Update(ctx context.Context, actor *auth.Claims, id int64, in *domain.BookingInput) (*domain.TourBooking, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(false).Err(); err != nil {
		return nil, err
	}

	to := current.Status
	if in.Status != nil {
		var ok bool
		if to, ok = domain.ParseBookingStatus(*in.Status); !ok {
			return nil, domain.ValidationErrors{"status": "The selected status is invalid."}
		}
		if err := s.authorizeStatus(actor, current, to); err != nil {
			return nil, err
		}
	}
	if current.Status.IsTerminal() && in.HasChanges() {
		return nil, domain.ErrBookingLocked
	}

	bookingDate, travelDate := current.BookingDate, current.TravelDate
	if in.BookingDate != nil {
		bookingDate = *in.BookingDate
	}
	if in.TravelDate != nil {
		travelDate = *in.TravelDate
	}
	if travelDate.Before(bookingDate.Time) {
		return nil, domain.ValidationErrors{"travel_date": "The travel date must be a date after or equal to booking date."}
	}

	patch := domain.BookingPatch{NumberOfTravelers: in.NumberOfTravelers, FromStatus: current.Status}
	if in.BookingDate != nil {
		patch.BookingDate = &in.BookingDate.Time
	}
	if in.TravelDate != nil {
		patch.TravelDate = &in.TravelDate.Time
	}

	price := current.TotalPrice
	travelers := current.NumberOfTravelers
	repriced := false
	if in.TourID != nil && *in.TourID != current.TourID {
		tour, err := s.tourRepo.GetByID(ctx, *in.TourID)
		if err != nil {
			return nil, fmt.Errorf("failed to load tour: %w", err)
		}
		if tour == nil {
			return nil, domain.ValidationErrors{"tour_id": "The selected tour id is invalid."}
		}
		patch.TourID = &tour.ID
		price = tour.Price
		repriced = true
	}
	if in.NumberOfTravelers != nil && *in.NumberOfTravelers != travelers {
		travelers = *in.NumberOfTravelers
		if !repriced {
			tour, err := s.tourRepo.GetByID(ctx, current.TourID)
			if err != nil {
				return nil, fmt.Errorf("failed to load tour: %w", err)
			}
			if tour == nil {
				return nil, domain.ErrTourNotFound
			}
			price = tour.Price
		}
		repriced = true
	}
	if repriced {
		total := domain.CalculateTotal(price, travelers)
		patch.TotalPrice = &total
	}

	rates, err := s.rates.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if in.Currency != nil && *in.Currency != "" {
		code := money.NormalizeCode(*in.Currency)
		if code != rates.Reference && !rates.Table.Has(code) {
			return nil, domain.ValidationErrors{"currency": "The selected currency is not supported."}
		}
		patch.Currency = &code
	}

	statusChanged := to != current.Status
	if statusChanged {
		patch.Status = &to
	}
	if !in.HasChanges() && !statusChanged {
		s.withDisplayTotal(current, rates)
		return current, nil
	}

	booking, err := s.bookingRepo.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}
	if booking == nil {
		// deleted or moved by someone else since it was loaded
		latest, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &domain.TransitionError{From: string(latest.Status), To: string(to)}
	}
	logger.InfoContext(ctx, "Booking updated", "booking_id", id, "total", booking.TotalPrice.String(), "status", booking.Status)

	if statusChanged {
		s.publishStatusChange(ctx, actor, booking, current.Status)
	}
	s.withDisplayTotal(booking, rates)
	return booking, nil
}

// UpdateStatus applies one lifecycle move.
func (s *bookingService) UpdateStatus(ctx context.Context, actor *auth.Claims, id int64, status string) (*domain.TourBooking, error) {
	to, ok := domain.ParseBookingStatus(status)
	if !ok {
		return nil, domain.ValidationErrors{"status": "The selected status is invalid."}
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeStatus(actor, current, to); err != nil {
		return nil, err
	}
	if current.Status == to {
		s.decorate(ctx, current)
		return current, nil
	}

	updated, err := s.bookingRepo.UpdateStatus(ctx, id, current.Status, to)
	if err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}
	if updated == nil {
		// someone else moved it first
		latest, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &domain.TransitionError{From: string(latest.Status), To: string(to)}
	}

	s.publishStatusChange(ctx, actor, updated, current.Status)
	s.decorate(ctx, updated)
	return updated, nil
}

// authorizeStatus checks that actor may move b to status to. Owners may only
// cancel their own bookings.
func (s *bookingService) authorizeStatus(actor *auth.Claims, b *domain.TourBooking, to domain.BookingStatus) error {
	if !actor.IsAdmin() {
		if !b.IsOwner(actor.Sub) || to != domain.BookingCancelled {
			return domain.ErrForbidden
		}
	}
	return domain.CheckTransition(b.Status, to)
}

func (s *bookingService) publishStatusChange(ctx context.Context, actor *auth.Claims, b *domain.TourBooking, from domain.BookingStatus) {
	logger.InfoContext(ctx, "Booking status changed", "booking_id", b.ID, "from", from, "to", b.Status)

	event := events.BookingStatusChangedEvent{
		BookingID: b.ID,
		UserID:    b.UserID,
		UserEmail: b.UserEmail,
		UserName:  b.UserName,
		TourName:  b.TourName,
		From:      string(from),
		To:        string(b.Status),
		ChangedBy: actor.Sub,
		ChangedAt: b.UpdatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.BookingStatusChanged, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking status event", "error", err, "booking_id", b.ID)
	}
}

func (s *bookingService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.bookingRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if !deleted {
		return domain.ErrBookingNotFound
	}

	logger.InfoContext(ctx, "Booking deleted", "booking_id", id)
	event := events.BookingDeletedEvent{BookingID: id, DeletedAt: s.now().UTC()}
	if err := s.eventBus.Publish(ctx, events.BookingDeleted, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking deleted event", "error", err, "booking_id", id)
	}
	return nil
}

func (s *bookingService) load(ctx context.Context, id int64) (*domain.TourBooking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, domain.ErrBookingNotFound
	}
	return booking, nil
}

// decorate adds the display total when rates can be loaded. Missing rates
// never fail a read.
func (s *bookingService) decorate(ctx context.Context, b *domain.TourBooking) {
	rates, err := s.rates.Snapshot(ctx)
	if err != nil {
		logger.WarnContext(ctx, "Rates unavailable for display total", "error", err, "booking_id", b.ID)
		return
	}
	s.withDisplayTotal(b, rates)
}

func (s *bookingService) withDisplayTotal(b *domain.TourBooking, rates *Rates) {
	if b.Currency == "" || b.Currency == rates.Reference {
		return
	}
	converted, err := rates.FromReference(b.TotalPrice, b.Currency)
	if err != nil {
		return
	}
	d := rates.Display(converted, b.Currency)
	b.DisplayTotal = &d
}
