package grpcsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/orderguard/internal/domain"
	"github.com/vladislavdragonenkov/orderguard/internal/validation"
)

// ErrorDomain: домен ErrorInfo в деталях статуса.
const ErrorDomain = "orderguard"

// InFlightRecorder учитывает проверки, выполняющиеся прямо сейчас.
type InFlightRecorder interface {
	RecordInFlightStarted()
	RecordInFlightFinished()
}

// OrderValidationService реализует gRPC API поверх конвейера проверки заказа.
type OrderValidationService struct {
	validator validation.Validator
	logger    *log.Entry
	inFlight  InFlightRecorder
}

// NewOrderValidationService конструирует сервис. inFlight может быть nil.
func NewOrderValidationService(validator validation.Validator, logger *log.Entry, inFlight InFlightRecorder) *OrderValidationService {
	if logger == nil {
		logger = log.WithField("component", "order-validation-service")
	}
	return &OrderValidationService{
		validator: validator,
		logger:    logger,
		inFlight:  inFlight,
	}
}

// ValidateOrder принимает {"order": {...}} и возвращает {"valid": true, "orderId": ...}.
// Отказ валидации возвращается статусом с ErrorInfo, Reason которого равен виду ошибки.
func (s *OrderValidationService) ValidateOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	order, err := decodeOrder(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if s.inFlight != nil {
		s.inFlight.RecordInFlightStarted()
		defer s.inFlight.RecordInFlightFinished()
	}

	if err := s.validator.Validate(ctx, order); err != nil {
		return nil, s.toStatus(ctx, order, err)
	}

	return structpb.NewStruct(map[string]any{
		"valid":   true,
		"orderId": order.ID,
	})
}

func (s *OrderValidationService) toStatus(ctx context.Context, order domain.Order, err error) error {
	if domain.IsValidationFailure(err) {
		kind := domain.ErrorKind(err)
		return withErrorInfo(status.New(codeForKind(kind), err.Error()), kind, order.ID)
	}

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return status.FromContextError(ctxErr).Err()
	}

	s.logger.WithError(err).WithField("order_id", order.ID).Error("validate order failed")
	return withErrorInfo(status.New(codes.Internal, "failed to validate order"), domain.KindInternal, order.ID)
}

func withErrorInfo(st *status.Status, kind, orderID string) error {
	detailed, err := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   kind,
		Domain:   ErrorDomain,
		Metadata: map[string]string{"order_id": orderID},
	})
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}

func codeForKind(kind string) codes.Code {
	switch kind {
	case domain.KindMissingField:
		return codes.InvalidArgument
	case domain.KindNotFound:
		return codes.NotFound
	case domain.KindPriceMismatch, domain.KindRuleViolation, domain.KindPlacementViolation:
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

// ErrorKindFromStatus достаёт вид ошибки из деталей статуса. Пустая строка, если деталей нет.
func ErrorKindFromStatus(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			return info.GetReason()
		}
	}
	return ""
}

func decodeOrder(req *structpb.Struct) (domain.Order, error) {
	if req == nil {
		return domain.Order{}, errors.New("request is required")
	}
	field, ok := req.GetFields()["order"]
	if !ok || field.GetStructValue() == nil {
		return domain.Order{}, errors.New("order is required")
	}

	raw, err := protojson.Marshal(field.GetStructValue())
	if err != nil {
		return domain.Order{}, fmt.Errorf("encode order: %w", err)
	}

	var order domain.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return domain.Order{}, fmt.Errorf("decode order: %w", err)
	}
	return order, nil
}

// NewValidateOrderRequest собирает запрос ValidateOrder из заказа.
func NewValidateOrderRequest(order domain.Order) (*structpb.Struct, error) {
	raw, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("encode order: %w", err)
	}
	orderStruct := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, orderStruct); err != nil {
		return nil, fmt.Errorf("convert order: %w", err)
	}
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"order": structpb.NewStructValue(orderStruct),
		},
	}, nil
}

var _ OrderValidationServer = (*OrderValidationService)(nil)
