package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/diagnosis/jf-travel/pkg/config"
	"github.com/diagnosis/jf-travel/pkg/events"
	"github.com/diagnosis/jf-travel/pkg/logger"
	"github.com/diagnosis/jf-travel/pkg/money"
	"github.com/diagnosis/jf-travel/services/travel/internal/domain"
	"github.com/diagnosis/jf-travel/services/travel/internal/repository"
)

// Rates is a point-in-time copy of the exchange-rate table plus what is needed
// to render prices from it.
type Rates struct {
	Table     money.Table
	Reference string
	flags     map[string]string
	formatter *money.Formatter
}

// FromReference converts an amount held in the reference currency.
func (r *Rates) FromReference(amount decimal.Decimal, to string) (decimal.Decimal, error) {
	return money.Convert(amount, r.Reference, to, r.Table)
}

// ToReference converts an amount into the reference currency.
func (r *Rates) ToReference(amount decimal.Decimal, from string) (decimal.Decimal, error) {
	return money.Convert(amount, from, r.Reference, r.Table)
}

func (r *Rates) Display(amount decimal.Decimal, code string) money.Display {
	code = money.NormalizeCode(code)
	return r.formatter.Display(amount, code, r.flags[code])
}

// RateSource hands out rate snapshots to the pricing code.
type RateSource interface {
	Snapshot(ctx context.Context) (*Rates, error)
}

type RateService interface {
	RateSource
	List(ctx context.Context) ([]domain.CurrencyRate, error)
	Get(ctx context.Context, idOrCode string) (*domain.CurrencyRate, error)
	Create(ctx context.Context, in *domain.RateInput) (*domain.CurrencyRate, error)
	Update(ctx context.Context, idOrCode string, in *domain.RateInput) (*domain.CurrencyRate, error)
	Delete(ctx context.Context, idOrCode string) error
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (*domain.Conversion, error)
}

type rateService struct {
	rateRepo  repository.RateRepository
	eventBus  events.EventBus
	formatter *money.Formatter
	reference string
}

func NewRateService(rateRepo repository.RateRepository, eventBus events.EventBus, cfg *config.Config) RateService {
	return &rateService{
		rateRepo:  rateRepo,
		eventBus:  eventBus,
		formatter: money.NewFormatter(cfg.Currency.Locale),
		reference: money.NormalizeCode(cfg.Currency.Reference),
	}
}

func (s *rateService) List(ctx context.Context) ([]domain.CurrencyRate, error) {
	rates, err := s.rateRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rates: %w", err)
	}
	return rates, nil
}

// Get accepts either a numeric id or a currency code.
func (s *rateService) Get(ctx context.Context, idOrCode string) (*domain.CurrencyRate, error) {
	var (
		rate *domain.CurrencyRate
		err  error
	)
	if id, perr := strconv.ParseInt(idOrCode, 10, 64); perr == nil {
		rate, err = s.rateRepo.GetByID(ctx, id)
	} else {
		rate, err = s.rateRepo.GetByCode(ctx, money.NormalizeCode(idOrCode))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rate: %w", err)
	}
	if rate == nil {
		return nil, domain.ErrRateNotFound
	}
	return rate, nil
}

func (s *rateService) Create(ctx context.Context, in *domain.RateInput) (*domain.CurrencyRate, error) {
	in.Normalize()
	errs := in.Validate(true)
	if len(errs) == 0 && *in.Code == s.reference && !in.Rate.Equal(decimal.NewFromInt(1)) {
		errs.Add("rate", "The reference currency rate must be 1.")
	}
	if len(errs) == 0 {
		existing, err := s.rateRepo.GetByCode(ctx, *in.Code)
		if err != nil {
			return nil, fmt.Errorf("failed to check code: %w", err)
		}
		if existing != nil {
			errs.Add("code", "The code has already been taken.")
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	rate, err := s.rateRepo.Create(ctx, in)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, domain.ValidationErrors{"code": "The code has already been taken."}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create rate: %w", err)
	}

	logger.InfoContext(ctx, "Exchange rate created", "code", rate.Code, "rate", rate.Rate.String())
	s.publish(ctx, rate, false)
	return rate, nil
}

func (s *rateService) Update(ctx context.Context, idOrCode string, in *domain.RateInput) (*domain.CurrencyRate, error) {
	current, err := s.Get(ctx, idOrCode)
	if err != nil {
		return nil, err
	}

	in.Normalize()
	errs := in.Validate(false)
	isRef := current.Code == s.reference
	if in.Code != nil && *in.Code != current.Code {
		if isRef {
			errs.Add("code", "The reference currency code cannot be changed.")
		} else if _, bad := errs["code"]; !bad {
			other, err := s.rateRepo.GetByCode(ctx, *in.Code)
			if err != nil {
				return nil, fmt.Errorf("failed to check code: %w", err)
			}
			if other != nil && other.ID != current.ID {
				errs.Add("code", "The code has already been taken.")
			}
		}
	}
	if isRef && in.Rate != nil && !in.Rate.Equal(decimal.NewFromInt(1)) {
		errs.Add("rate", "The reference currency rate must be 1.")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	// users, deposits and bookings reference the code itself
	if in.Code != nil && *in.Code != current.Code {
		inUse, err := s.rateRepo.CodeInUse(ctx, current.Code)
		if err != nil {
			return nil, fmt.Errorf("failed to check rate usage: %w", err)
		}
		if inUse {
			return nil, domain.ErrRateInUse
		}
	}

	rate, err := s.rateRepo.Update(ctx, current.ID, in)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, domain.ValidationErrors{"code": "The code has already been taken."}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update rate: %w", err)
	}
	if rate == nil {
		return nil, domain.ErrRateNotFound
	}

	logger.InfoContext(ctx, "Exchange rate updated", "rate_id", rate.ID, "code", rate.Code)
	s.publish(ctx, rate, false)
	return rate, nil
}

func (s *rateService) Delete(ctx context.Context, idOrCode string) error {
	current, err := s.Get(ctx, idOrCode)
	if err != nil {
		return err
	}
	if current.Code == s.reference {
		return domain.ErrRateInUse
	}
	inUse, err := s.rateRepo.CodeInUse(ctx, current.Code)
	if err != nil {
		return fmt.Errorf("failed to check rate usage: %w", err)
	}
	if inUse {
		return domain.ErrRateInUse
	}

	deleted, err := s.rateRepo.Delete(ctx, current.ID)
	if err != nil {
		return fmt.Errorf("failed to delete rate: %w", err)
	}
	if !deleted {
		return domain.ErrRateNotFound
	}

	logger.InfoContext(ctx, "Exchange rate deleted", "rate_id", current.ID, "code", current.Code)
	s.publish(ctx, current, true)
	return nil
}

func (s *rateService) Snapshot(ctx context.Context) (*Rates, error) {
	rows, err := s.rateRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rates: %w", err)
	}
	raw := make(map[string]decimal.Decimal, len(rows))
	flags := make(map[string]string, len(rows))
	for _, r := range rows {
		raw[r.Code] = r.Rate
		if r.Flag != nil {
			flags[r.Code] = *r.Flag
		}
	}
	return &Rates{
		Table:     money.NewTable(raw),
		Reference: s.reference,
		flags:     flags,
		formatter: s.formatter,
	}, nil
}

func (s *rateService) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (*domain.Conversion, error) {
	from, to = money.NormalizeCode(from), money.NormalizeCode(to)
	rates, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	errs := domain.ValidationErrors{}
	if from != to && !rates.Table.Has(from) {
		errs.Add("from", "The selected currency is not supported.")
	}
	if from != to && !rates.Table.Has(to) {
		errs.Add("to", "The selected currency is not supported.")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	converted, err := money.Convert(amount, from, to, rates.Table)
	if err != nil {
		return nil, err
	}
	cross, err := money.CrossRate(from, to, rates.Table)
	if err != nil {
		return nil, err
	}

	return &domain.Conversion{
		Amount:    amount,
		From:      from,
		To:        to,
		Rate:      cross,
		Converted: converted,
		Display:   rates.Display(converted, to),
	}, nil
}

func (s *rateService) publish(ctx context.Context, rate *domain.CurrencyRate, deleted bool) {
	event := events.RateChangedEvent{Code: rate.Code, Rate: rate.Rate, Deleted: deleted}
	if err := s.eventBus.Publish(ctx, events.RateChanged, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish rate changed event", "error", err, "code", rate.Code)
	}
}
