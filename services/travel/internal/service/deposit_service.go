package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/diagnosis/jf-travel/pkg/auth"
	"github.com/diagnosis/jf-travel/pkg/config"
	"github.com/diagnosis/jf-travel/pkg/events"
	"github.com/diagnosis/jf-travel/pkg/logger"
	"github.com/diagnosis/jf-travel/pkg/money"
	"github.com/diagnosis/jf-travel/pkg/payments"
	"github.com/diagnosis/jf-travel/services/travel/internal/domain"
	"github.com/diagnosis/jf-travel/services/travel/internal/repository"
)

type DepositService interface {
	Create(ctx context.Context, actor *auth.Claims, in *domain.DepositInput) (*domain.Deposit, error)
	List(ctx context.Context, actor *auth.Claims, filter domain.DepositFilter) ([]domain.Deposit, int, error)
	Settle(ctx context.Context, id int64, status string) (*domain.Deposit, error)
}

type depositService struct {
	depositRepo repository.DepositRepository
	userRepo    repository.UserRepository
	rates       RateSource
	gateway     payments.Gateway
	eventBus    events.EventBus
	minimum     decimal.Decimal
}

func NewDepositService(
	depositRepo repository.DepositRepository,
	userRepo repository.UserRepository,
	rates RateSource,
	gateway payments.Gateway,
	eventBus events.EventBus,
	cfg *config.Config,
) DepositService {
	minimum, err := money.ParseAmount(cfg.Currency.MinDepositAmount)
	if err != nil {
		logger.Warn("Invalid minimum deposit, using 10", "value", cfg.Currency.MinDepositAmount)
		minimum = decimal.NewFromInt(10)
	}
	return &depositService{
		depositRepo: depositRepo,
		userRepo:    userRepo,
		rates:       rates,
		gateway:     gateway,
		eventBus:    eventBus,
		minimum:     minimum,
	}
}

func (s *depositService) Create(ctx context.Context, actor *auth.Claims, in *domain.DepositInput) (*domain.Deposit, error) {
	in.Normalize()
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}

	rates, err := s.rates.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if in.Currency == "" {
		in.Currency = rates.Reference
	}
	inReference, err := rates.ToReference(*in.Amount, in.Currency)
	if errors.Is(err, money.ErrUnknownCurrency) {
		return nil, domain.ValidationErrors{"currency": "The selected currency is not supported."}
	}
	if err != nil {
		return nil, err
	}
	if inReference.LessThan(s.minimum) {
		floor := rates.Display(s.minimum, rates.Reference)
		return nil, domain.ValidationErrors{"amount": "The amount must be at least " + floor.Text + "."}
	}

	method, _ := domain.ParsePaymentMethod(in.PaymentMethod)
	deposit, err := s.depositRepo.Create(ctx, &domain.Deposit{
		UserID:        actor.Sub,
		Amount:        money.Round2(*in.Amount),
		Currency:      in.Currency,
		PaymentMethod: method,
		ReferenceID:   uuid.NewString(),
		Status:        domain.DepositPending,
		Notes:         in.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create deposit: %w", err)
	}
	logger.InfoContext(ctx, "Deposit created", "deposit_id", deposit.ID, "method", deposit.PaymentMethod)

	if method == domain.PayStripe && s.gateway.Enabled() {
		intent, err := s.gateway.CreateIntent(ctx, deposit.Amount, deposit.Currency, deposit.ReferenceID)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to create payment intent", "error", err, "deposit_id", deposit.ID)
			return nil, fmt.Errorf("failed to create payment intent: %w", err)
		}
		if err := s.depositRepo.SetProviderRef(ctx, deposit.ID, intent.ID); err != nil {
			return nil, fmt.Errorf("failed to store payment reference: %w", err)
		}
		deposit.ProviderRef = &intent.ID
		deposit.ClientSecret = intent.ClientSecret
	}

	s.publish(ctx, events.DepositCreated, deposit, decimal.Zero)
	return deposit, nil
}

// List shows admins everything and other callers only their own deposits.
func (s *depositService) List(ctx context.Context, actor *auth.Claims, filter domain.DepositFilter) ([]domain.Deposit, int, error) {
	if !actor.IsAdmin() {
		filter.UserID = &actor.Sub
	}
	deposits, total, err := s.depositRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list deposits: %w", err)
	}
	return deposits, total, nil
}

func (s *depositService) Settle(ctx context.Context, id int64, status string) (*domain.Deposit, error) {
	to, ok := domain.ParseDepositStatus(status)
	if !ok {
		return nil, domain.ValidationErrors{"status": "The selected status is invalid."}
	}

	current, err := s.depositRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}
	if current == nil {
		return nil, domain.ErrDepositNotFound
	}
	if err := domain.CheckDepositTransition(current.Status, to); err != nil {
		return nil, err
	}

	credit := decimal.Zero
	if to == domain.DepositSuccess {
		rates, err := s.rates.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		converted, err := rates.ToReference(current.Amount, current.Currency)
		if err != nil {
			return nil, fmt.Errorf("failed to convert deposit: %w", err)
		}
		credit = money.Round2(converted)
	}

	settled, err := s.depositRepo.Settle(ctx, id, to, credit)
	if err != nil {
		return nil, fmt.Errorf("failed to settle deposit: %w", err)
	}
	if settled == nil {
		return nil, &domain.TransitionError{From: string(current.Status), To: string(to)}
	}

	logger.InfoContext(ctx, "Deposit settled", "deposit_id", id, "status", to, "credited", credit.String())
	s.publish(ctx, events.DepositSettled, settled, credit)
	return settled, nil
}

func (s *depositService) publish(ctx context.Context, subject string, d *domain.Deposit, credited decimal.Decimal) {
	event := events.DepositEvent{
		DepositID:   d.ID,
		ReferenceID: d.ReferenceID,
		UserID:      d.UserID,
		Amount:      d.Amount,
		Currency:    d.Currency,
		Status:      string(d.Status),
		Credited:    credited,
		At:          time.Now().UTC(),
	}
	if user, err := s.userRepo.FindByID(ctx, d.UserID); err == nil && user != nil {
		event.UserEmail = user.Email
		event.UserName = user.Name
	}
	if err := s.eventBus.Publish(ctx, subject, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish deposit event", "error", err, "deposit_id", d.ID)
	}
}
