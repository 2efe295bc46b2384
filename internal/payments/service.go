package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hatbazar/marketplace-backend/internal/orders"
	"github.com/hatbazar/marketplace-backend/pkg/db/models"
	"github.com/hatbazar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/hatbazar/marketplace-backend/pkg/errors"
	"github.com/hatbazar/marketplace-backend/pkg/metrics"
	"github.com/hatbazar/marketplace-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CommissionBooker records platform commissions once a payment settles.
type CommissionBooker interface {
	BookOrderItems(ctx context.Context, tx *gorm.DB, order *models.Order, rate decimal.Decimal) error
}

type commissionRater interface {
	CommissionRate() decimal.Decimal
}

// PaymentCompletedEvent is emitted when a gateway payment settles.
type PaymentCompletedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	Gateway       enums.PaymentMethod `json:"gateway"`
	TransactionID string              `json:"transaction_id"`
	Amount        decimal.Decimal     `json:"amount"`
}

// PaymentFailedEvent is emitted when the provider rejects a verification.
type PaymentFailedEvent struct {
	OrderID uuid.UUID           `json:"order_id"`
	Gateway enums.PaymentMethod `json:"gateway"`
	Reason  string              `json:"reason"`
}

// Result reports the payment state of an order after a gateway call.
type Result struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	OrderStatus   enums.OrderStatus   `json:"order_status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	TransactionID *string             `json:"transaction_id,omitempty"`
	Total         decimal.Decimal     `json:"total"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
}

// Service reconciles order payments against the configured gateways.
type Service interface {
	Initiate(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (*InitiateResult, error)
	Verify(ctx context.Context, orderID uuid.UUID, input VerifyInput, actor orders.Actor) (*Result, error)
}

type service struct {
	repo        orders.Repository
	gateways    map[enums.PaymentMethod]Gateway
	commissions CommissionBooker
	rater       commissionRater
	tx          txRunner
	outbox      outboxPublisher
	metrics     *metrics.SettlementMetrics
}

// NewService builds a payments service from the available gateways.
func NewService(
	repo orders.Repository,
	gateways []Gateway,
	commissionBooker CommissionBooker,
	rater commissionRater,
	tx txRunner,
	outboxSvc outboxPublisher,
	settlementMetrics *metrics.SettlementMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if len(gateways) == 0 {
		return nil, fmt.Errorf("at least one gateway required")
	}
	if commissionBooker == nil {
		return nil, fmt.Errorf("commission booker required")
	}
	if rater == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}

	byMethod := make(map[enums.PaymentMethod]Gateway, len(gateways))
	for _, gw := range gateways {
		if _, dup := byMethod[gw.Method()]; dup {
			return nil, fmt.Errorf("duplicate gateway for method %s", gw.Method())
		}
		byMethod[gw.Method()] = gw
	}

	return &service{
		repo:        repo,
		gateways:    byMethod,
		commissions: commissionBooker,
		rater:       rater,
		tx:          tx,
		outbox:      outboxSvc,
		metrics:     settlementMetrics,
	}, nil
}

// Initiate returns the redirect payload for a pending order.
func (s *service) Initiate(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (*InitiateResult, error) {
	order, err := s.loadOrder(ctx, s.repo, orderID, actor)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == enums.PaymentStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order is already paid")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
	}

	gw, err := s.gatewayFor(order.PaymentMethod)
	if err != nil {
		return nil, err
	}
	return gw.Initiate(ctx, order)
}

// Verify reconciles a redirect callback against the provider and, on
// success, captures the payment and moves the order to processing.
// Replays of an already-captured order are a no-op success.
func (s *service) Verify(ctx context.Context, orderID uuid.UUID, input VerifyInput, actor orders.Actor) (*Result, error) {
	order, err := s.loadOrder(ctx, s.repo, orderID, actor)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == enums.PaymentStatusCompleted {
		return toResult(order), nil
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
	}

	gw, err := s.gatewayFor(order.PaymentMethod)
	if err != nil {
		return nil, err
	}

	// The provider call stays outside the transaction so a slow gateway
	// never holds a row lock.
	start := time.Now()
	receipt, err := gw.Verify(ctx, order, input)
	s.metrics.ObserveGatewayDuration(order.PaymentMethod.String(), time.Since(start))
	if err != nil {
		s.metrics.IncPaymentVerified(order.PaymentMethod.String(), "error")
		return nil, err
	}

	if !receipt.Succeeded {
		if err := s.recordFailure(ctx, order, receipt.Reason); err != nil {
			return nil, err
		}
		s.metrics.IncPaymentVerified(order.PaymentMethod.String(), "failed")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment verification failed").
			WithDetails(map[string]string{"reason": receipt.Reason})
	}

	var result *Result
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		fresh, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if fresh.PaymentStatus == enums.PaymentStatusCompleted {
			result = toResult(fresh)
			return nil
		}
		if err := orders.ValidateTransition(fresh.Status, enums.OrderStatusProcessing); err != nil {
			return err
		}

		now := time.Now().UTC()
		applied, err := repo.UpdateStatusIf(ctx, orderID, fresh.Status, enums.OrderStatusProcessing, map[string]any{
			"payment_status": enums.PaymentStatusCompleted,
			"transaction_id": receipt.TransactionID,
			"paid_at":        now,
		})
		if err != nil {
			return err
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		if err := s.commissions.BookOrderItems(ctx, tx, fresh, s.rater.CommissionRate()); err != nil {
			return err
		}

		// Deduplicated so a re-verified order never queues a second
		// payment_completed for downstream consumers.
		if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentCompleted,
			AggregateType: enums.AggregatePayment,
			AggregateID:   fresh.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
			Data: PaymentCompletedEvent{
				OrderID:       fresh.ID,
				Gateway:       fresh.PaymentMethod,
				TransactionID: receipt.TransactionID,
				Amount:        fresh.Total,
			},
			Version: 1,
		}); err != nil {
			return err
		}

		fresh.Status = enums.OrderStatusProcessing
		fresh.PaymentStatus = enums.PaymentStatusCompleted
		fresh.TransactionID = &receipt.TransactionID
		fresh.PaidAt = &now
		result = toResult(fresh)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPaymentVerified(order.PaymentMethod.String(), "completed")
	s.metrics.IncOrderTransition(enums.OrderStatusProcessing.String())
	return result, nil
}

// recordFailure logs the rejected attempt through the outbox. The order
// keeps payment_status pending so the customer can retry with a fresh
// token; an order is paid only once a gateway confirms it.
func (s *service) recordFailure(ctx context.Context, order *models.Order, reason string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   order.ID,
			Data: PaymentFailedEvent{
				OrderID: order.ID,
				Gateway: order.PaymentMethod,
				Reason:  reason,
			},
			Version: 1,
		})
	})
}

func (s *service) loadOrder(ctx context.Context, repo orders.Repository, orderID uuid.UUID, actor orders.Actor) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	if actor.Role != enums.MemberRoleAdmin && order.CustomerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to access this order")
	}
	return order, nil
}

func (s *service) gatewayFor(method enums.PaymentMethod) (Gateway, error) {
	gw, ok := s.gateways[method]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("no gateway configured for %s", method))
	}
	return gw, nil
}

func toResult(order *models.Order) *Result {
	return &Result{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		OrderStatus:   order.Status,
		PaymentStatus: order.PaymentStatus,
		TransactionID: order.TransactionID,
		Total:         order.Total,
		PaidAt:        order.PaidAt,
	}
}
