// Package validation проверяет цены и условия размещения заказа перед сохранением.
package validation

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
	"github.com/vladislavdragonenkov/orderguard/internal/pricing"
)

// Step: шаг конвейера для метрик и логов.
type Step string

const (
	StepBranch     Step = "branch"
	StepFields     Step = "fields"
	StepOrderItems Step = "order_items"
	StepPlacement  Step = "placement"
)

// Recorder собирает метрики конвейера. Реализует metrics.ValidationMetrics.
type Recorder interface {
	RecordValidation(kind string, duration time.Duration)
	RecordStepDuration(step string, duration time.Duration)
	RecordOrderItem(itemType string)
}

// Validator является единственной точкой входа для внешних вызывающих.
type Validator interface {
	Validate(ctx context.Context, order domain.Order) error
}

// Config задаёт политику цен конвейера.
type Config struct {
	// Rounding применяется к ожидаемым ценам позиций.
	Rounding pricing.Rounding
	// LineRounding применяется к налогу строки.
	LineRounding pricing.Rounding
	// MaxLineageDepth ограничивает цепочку movedFromOrder.
	MaxLineageDepth int
}

// DefaultConfig: цены округляются вниз до 10, налог до целых.
func DefaultConfig() Config {
	return Config{
		Rounding:        pricing.RoundingDown,
		LineRounding:    pricing.RoundingExact,
		MaxLineageDepth: DefaultMaxLineageDepth,
	}
}

// Pipeline: Branch → поля → позиции → гейт размещения. Первая ошибка прерывает проверку.
type Pipeline struct {
	branches   domain.BranchRepository
	fields     FieldValidator
	orderItems *OrderItemValidator
	placement  *PlacementValidator
	logger     *log.Entry
	recorder   Recorder
}

// NewPipeline собирает конвейер из хранилищ. recorder может быть nil.
func NewPipeline(stores domain.Stores, cfg Config, logger *log.Entry, recorder Recorder) (*Pipeline, error) {
	if stores.Branches == nil || stores.Items == nil || stores.CustomerItems == nil ||
		stores.Orders == nil || stores.Deliveries == nil || stores.Payments == nil {
		return nil, fmt.Errorf("validation pipeline requires all stores")
	}
	if logger == nil {
		logger = log.WithField("component", "validation")
	}

	sanitizer := pricing.NewSanitizer(cfg.Rounding)
	lineage := NewLineageValidator(stores.Orders, stores.Payments, sanitizer, cfg.MaxLineageDepth)

	orderItems, err := NewOrderItemValidator(
		stores.Items,
		TypeValidators{
			Buy:           NewBuyValidator(sanitizer, lineage),
			Rent:          NewRentValidator(sanitizer, RentPeriodResolver{}, lineage),
			Extend:        NewExtendValidator(stores.CustomerItems),
			PartlyPayment: NewPartlyPaymentValidator(),
			Buyout:        NewBuyoutValidator(sanitizer),
			Sell:          NewSellValidator(sanitizer),
		},
		pricing.NewSanitizer(cfg.LineRounding),
		recorder,
	)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		branches:   stores.Branches,
		fields:     NewFieldValidator(),
		orderItems: orderItems,
		placement:  NewPlacementValidator(stores.Deliveries, stores.Payments),
		logger:     logger,
		recorder:   recorder,
	}, nil
}

// Validate проверяет заказ и возвращает первую найденную ошибку без изменений.
func (p *Pipeline) Validate(ctx context.Context, order domain.Order) (err error) {
	start := time.Now()
	defer func() {
		kind := domain.ErrorKind(err)
		if p.recorder != nil {
			p.recorder.RecordValidation(kind, time.Since(start))
		}
		if err == nil {
			return
		}
		entry := p.logger.WithFields(log.Fields{
			"order_id":   order.ID,
			"branch_id":  order.Branch,
			"error_kind": kind,
		})
		if domain.IsValidationFailure(err) {
			entry.WithError(err).Warn("order rejected")
		} else {
			entry.WithError(err).Error("order validation failed")
		}
	}()

	var branch domain.Branch
	steps := []struct {
		step Step
		run  func() error
	}{
		{StepBranch, func() (stepErr error) {
			branch, stepErr = p.branches.Get(ctx, order.Branch)
			return stepErr
		}},
		{StepFields, func() error { return p.fields.Validate(order) }},
		{StepOrderItems, func() error { return p.orderItems.Validate(ctx, branch, order) }},
		{StepPlacement, func() error { return p.placement.Validate(ctx, branch, order) }},
	}

	for _, s := range steps {
		stepStart := time.Now()
		err = s.run()
		if p.recorder != nil {
			p.recorder.RecordStepDuration(string(s.step), time.Since(stepStart))
		}
		if err != nil {
			return err
		}
	}

	return nil
}

var _ Validator = (*Pipeline)(nil)
