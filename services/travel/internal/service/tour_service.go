package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/diagnosis/jf-travel/pkg/events"
	"github.com/diagnosis/jf-travel/pkg/logger"
	"github.com/diagnosis/jf-travel/pkg/money"
	"github.com/diagnosis/jf-travel/services/travel/internal/domain"
	"github.com/diagnosis/jf-travel/services/travel/internal/repository"
	"github.com/diagnosis/jf-travel/services/travel/internal/storage"
)

// ImageStore persists tour images and maps them to public URLs.
type ImageStore interface {
	Save(ctx context.Context, up storage.Upload) (string, error)
	Delete(ctx context.Context, path string) error
	URL(path string) string
}

type TourService interface {
	List(ctx context.Context, filter domain.TourFilter) ([]domain.Tour, error)
	Get(ctx context.Context, id int64) (*domain.Tour, error)
	Create(ctx context.Context, in *domain.TourInput, image *storage.Upload) (*domain.Tour, error)
	Update(ctx context.Context, id int64, in *domain.TourInput, image *storage.Upload) (*domain.Tour, error)
	Delete(ctx context.Context, id int64) error
	Quote(ctx context.Context, id int64, travelers int, currency string) (*domain.Quote, error)
}

type tourService struct {
	tourRepo repository.TourRepository
	images   ImageStore
	rates    RateSource
	eventBus events.EventBus
}

func NewTourService(
	tourRepo repository.TourRepository,
	images ImageStore,
	rates RateSource,
	eventBus events.EventBus,
) TourService {
	return &tourService{
		tourRepo: tourRepo,
		images:   images,
		rates:    rates,
		eventBus: eventBus,
	}
}

func (s *tourService) List(ctx context.Context, filter domain.TourFilter) ([]domain.Tour, error) {
	tours, err := s.tourRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tours: %w", err)
	}
	for i := range tours {
		s.withImageURL(&tours[i])
	}
	return tours, nil
}

func (s *tourService) Get(ctx context.Context, id int64) (*domain.Tour, error) {
	tour, err := s.tourRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get tour: %w", err)
	}
	if tour == nil {
		return nil, domain.ErrTourNotFound
	}
	s.withImageURL(tour)
	return tour, nil
}

func (s *tourService) Create(ctx context.Context, in *domain.TourInput, image *storage.Upload) (*domain.Tour, error) {
	in.Normalize()
	if err := in.Validate(true).Err(); err != nil {
		return nil, err
	}

	path, err := s.saveImage(ctx, image)
	if err != nil {
		return nil, err
	}

	tour, err := s.tourRepo.Create(ctx, in, path)
	if err != nil {
		s.discardImage(ctx, path)
		return nil, fmt.Errorf("failed to create tour: %w", err)
	}

	logger.InfoContext(ctx, "Tour created", "tour_id", tour.ID, "name", tour.Name)
	s.publish(ctx, events.TourCreated, tour)
	s.withImageURL(tour)
	return tour, nil
}

func (s *tourService) Update(ctx context.Context, id int64, in *domain.TourInput, image *storage.Upload) (*domain.Tour, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	in.Normalize()
	if err := in.Validate(false).Err(); err != nil {
		return nil, err
	}

	path, err := s.saveImage(ctx, image)
	if err != nil {
		return nil, err
	}

	tour, err := s.tourRepo.Update(ctx, id, in, path)
	if err != nil {
		s.discardImage(ctx, path)
		return nil, fmt.Errorf("failed to update tour: %w", err)
	}
	if tour == nil {
		s.discardImage(ctx, path)
		return nil, domain.ErrTourNotFound
	}

	// the old file goes only once the row points at the new one
	if path != nil && current.Image != nil && *current.Image != *path {
		s.discardImage(ctx, current.Image)
	}

	logger.InfoContext(ctx, "Tour updated", "tour_id", tour.ID)
	s.publish(ctx, events.TourUpdated, tour)
	s.withImageURL(tour)
	return tour, nil
}

func (s *tourService) Delete(ctx context.Context, id int64) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	booked, err := s.tourRepo.HasBookings(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check tour bookings: %w", err)
	}
	if booked {
		return domain.ErrTourHasBookings
	}

	deleted, err := s.tourRepo.Delete(ctx, id)
	if errors.Is(err, repository.ErrReferenced) {
		return domain.ErrTourHasBookings
	}
	if err != nil {
		return fmt.Errorf("failed to delete tour: %w", err)
	}
	if !deleted {
		return domain.ErrTourNotFound
	}

	s.discardImage(ctx, current.Image)
	logger.InfoContext(ctx, "Tour deleted", "tour_id", id)
	s.publish(ctx, events.TourDeleted, current)
	return nil
}

func (s *tourService) Quote(ctx context.Context, id int64, travelers int, currency string) (*domain.Quote, error) {
	if travelers < 1 {
		return nil, domain.ValidationErrors{"travelers": "The travelers must be at least 1."}
	}

	tour, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rates, err := s.rates.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if currency == "" {
		currency = rates.Reference
	}
	currency = money.NormalizeCode(currency)

	total := domain.CalculateTotal(tour.Price, travelers)
	perPerson, err := rates.FromReference(tour.Price, currency)
	if errors.Is(err, money.ErrUnknownCurrency) {
		return nil, domain.ValidationErrors{"currency": "The selected currency is not supported."}
	}
	if err != nil {
		return nil, err
	}
	displayTotal := perPerson.Mul(decimal.NewFromInt(int64(travelers)))

	return &domain.Quote{
		TourID:         tour.ID,
		Travelers:      travelers,
		Currency:       currency,
		PricePerPerson: tour.Price,
		Total:          total,
		Reference:      rates.Reference,
		DisplayPerson:  rates.Display(perPerson, currency),
		DisplayTotal:   rates.Display(displayTotal, currency),
	}, nil
}

func (s *tourService) saveImage(ctx context.Context, image *storage.Upload) (*string, error) {
	if image == nil {
		return nil, nil
	}
	path, err := s.images.Save(ctx, *image)
	var invalid *storage.InvalidImageError
	if errors.As(err, &invalid) {
		return nil, domain.ValidationErrors{"image": invalid.Reason}
	}
	if err != nil {
		logger.ErrorContext(ctx, "Failed to store tour image", "error", err, "filename", image.Filename)
		return nil, fmt.Errorf("failed to store image: %w", err)
	}
	return &path, nil
}

func (s *tourService) discardImage(ctx context.Context, path *string) {
	if path == nil || *path == "" {
		return
	}
	if err := s.images.Delete(ctx, *path); err != nil {
		logger.ErrorContext(ctx, "Failed to delete tour image", "error", err, "path", *path)
	}
}

func (s *tourService) withImageURL(t *domain.Tour) {
	if t.Image == nil || *t.Image == "" {
		t.ImageURL = nil
		return
	}
	url := s.images.URL(*t.Image)
	t.ImageURL = &url
}

func (s *tourService) publish(ctx context.Context, subject string, t *domain.Tour) {
	if err := s.eventBus.Publish(ctx, subject, events.TourEvent{TourID: t.ID, Name: t.Name}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish tour event", "error", err, "subject", subject, "tour_id", t.ID)
	}
}
