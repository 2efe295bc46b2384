package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hatbazar/marketplace-backend/internal/catalog"
	"github.com/hatbazar/marketplace-backend/internal/pricing"
	"github.com/hatbazar/marketplace-backend/pkg/db/models"
	"github.com/hatbazar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/hatbazar/marketplace-backend/pkg/errors"
	"github.com/hatbazar/marketplace-backend/pkg/metrics"
	"github.com/hatbazar/marketplace-backend/pkg/outbox"
	"github.com/hatbazar/marketplace-backend/pkg/pagination"
	"github.com/hatbazar/marketplace-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// InventoryLedger reserves and releases product stock inside a transaction.
type InventoryLedger interface {
	Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

// Pricer turns order lines into a monetary breakdown.
type Pricer interface {
	Quote(ctx context.Context, items []pricing.QuoteItem, couponCode string, now time.Time) (*pricing.Quote, error)
	CommissionRate() decimal.Decimal
}

// CommissionBooker writes the vendor's earnings ledger rows for an
// order's items.
type CommissionBooker interface {
	BookOrderItems(ctx context.Context, tx *gorm.DB, order *models.Order, rate decimal.Decimal) error
}

// Actor identifies who is performing an order operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.MemberRole
}

// OrderCreatedEvent is emitted when a new order settles.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Total         decimal.Decimal     `json:"total"`
}

// OrderStatusChangedEvent is emitted on every lifecycle transition.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
}

// CashCollectedEvent is emitted when a cash-on-delivery order is paid at
// the door.
type CashCollectedEvent struct {
	OrderID uuid.UUID       `json:"order_id"`
	Amount  decimal.Decimal `json:"amount"`
}

// Service defines the order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*OrderDetail, error)
	Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*OrderDetail, error)
	ListCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters CustomerOrderFilters) (*OrderList, error)
	ListVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*OrderList, error)
	Cancel(ctx context.Context, orderID uuid.UUID, actor Actor) (*OrderDetail, error)
	Return(ctx context.Context, orderID uuid.UUID, actor Actor) (*OrderDetail, error)
	Advance(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus, actor Actor) (*OrderDetail, error)
}

type service struct {
	repo        Repository
	catalog     catalog.Repository
	inventory   InventoryLedger
	pricer      Pricer
	commissions CommissionBooker
	tx          txRunner
	outbox      outboxPublisher
	metrics     *metrics.SettlementMetrics
}

// NewService builds an orders service with the required dependencies.
func NewService(
	repo Repository,
	catalogRepo catalog.Repository,
	inventory InventoryLedger,
	pricer Pricer,
	commissionBooker CommissionBooker,
	tx txRunner,
	outboxSvc outboxPublisher,
	settlementMetrics *metrics.SettlementMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if pricer == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if commissionBooker == nil {
		return nil, fmt.Errorf("commission booker required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:        repo,
		catalog:     catalogRepo,
		inventory:   inventory,
		pricer:      pricer,
		commissions: commissionBooker,
		tx:          tx,
		outbox:      outboxSvc,
		metrics:     settlementMetrics,
	}, nil
}

// Create settles a new order in one transaction. Stock reservation,
// pricing, persistence, commission booking and the outbox event all
// commit or roll back together.
func (s *service) Create(ctx context.Context, input CreateOrderInput) (*OrderDetail, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unknown payment method %q", input.PaymentMethod))
	}

	var detail *OrderDetail
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		productIDs := make([]uuid.UUID, 0, len(input.Items))
		for _, item := range input.Items {
			if item.Quantity <= 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
			}
			productIDs = append(productIDs, item.ProductID)
		}

		products, err := s.catalog.WithTx(tx).FindByIDs(ctx, productIDs)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		quoteItems := make([]pricing.QuoteItem, 0, len(input.Items))
		for _, item := range input.Items {
			product, ok := byID[item.ProductID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound,
					fmt.Sprintf("product %s not found", item.ProductID))
			}
			if err := s.inventory.Reserve(ctx, tx, product.ID, item.Quantity); err != nil {
				return err
			}
			quoteItems = append(quoteItems, pricing.QuoteItem{
				UnitPrice: product.EffectivePrice(),
				Quantity:  item.Quantity,
				WeightKg:  product.WeightKg,
			})
		}

		quote, err := s.pricer.Quote(ctx, quoteItems, input.CouponCode, time.Now().UTC())
		if err != nil {
			return err
		}

		order := models.Order{
			ID:              uuid.New(),
			OrderNumber:     generateOrderNumber(),
			CustomerID:      input.CustomerID,
			Status:          enums.OrderStatusPending,
			PaymentMethod:   input.PaymentMethod,
			PaymentStatus:   enums.PaymentStatusPending,
			Subtotal:        quote.Subtotal,
			Discount:        quote.Discount,
			Tax:             quote.Tax,
			ShippingFee:     quote.ShippingFee,
			Total:           quote.Total,
			ShippingAddress: input.ShippingAddress,
		}
		if quote.CouponCode != "" {
			code := quote.CouponCode
			order.CouponCode = &code
		}

		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, &order); err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(input.Items))
		for _, item := range input.Items {
			product := byID[item.ProductID]
			unitPrice := product.EffectivePrice()
			items = append(items, models.OrderItem{
				ID:        uuid.New(),
				OrderID:   order.ID,
				ProductID: product.ID,
				VendorID:  product.VendorID,
				Quantity:  item.Quantity,
				UnitPrice: unitPrice,
				LineTotal: unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2),
				ProductSnapshot: types.ProductSnapshot{
					Name:      product.Name,
					SKU:       product.SKU,
					Price:     product.Price,
					SalePrice: product.SalePrice,
					WeightKg:  product.WeightKg,
					ImageURL:  product.ImageURL,
				},
			})
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return err
		}
		order.Items = items

		if err := s.commissions.BookOrderItems(ctx, tx, &order, s.pricer.CommissionRate()); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.CustomerID, Role: enums.MemberRoleCustomer.String()},
			Data: OrderCreatedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				CustomerID:    order.CustomerID,
				PaymentMethod: order.PaymentMethod,
				Total:         order.Total,
			},
			Version: 1,
		}); err != nil {
			return err
		}

		detail = toDetail(&order)
		detail.Warnings = quote.Warnings
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOrderCreated()
	return detail, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*OrderDetail, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	if err := authorizeRead(order, actor); err != nil {
		return nil, err
	}
	return toDetail(order), nil
}

func (s *service) ListCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters CustomerOrderFilters) (*OrderList, error) {
	return s.repo.ListByCustomer(ctx, customerID, params, filters)
}

func (s *service) ListVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return s.repo.ListByVendor(ctx, vendorID, params)
}

// Cancel moves a not-yet-shipped order to cancelled. Stock goes back to
// the shelf in the same transaction unless the payment was already
// captured.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, actor Actor) (*OrderDetail, error) {
	return s.terminate(ctx, orderID, actor, enums.OrderStatusCancelled)
}

// Return moves a delivered order to returned and restocks its items.
func (s *service) Return(ctx context.Context, orderID uuid.UUID, actor Actor) (*OrderDetail, error) {
	return s.terminate(ctx, orderID, actor, enums.OrderStatusReturned)
}

func (s *service) terminate(ctx context.Context, orderID uuid.UUID, actor Actor, target enums.OrderStatus) (*OrderDetail, error) {
	var detail *OrderDetail
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}
		if err := authorizeWrite(order, actor); err != nil {
			return err
		}
		if err := ValidateTransition(order.Status, target); err != nil {
			return err
		}

		now := time.Now().UTC()
		extra := map[string]any{}
		eventType := enums.EventOrderCancelled
		if target == enums.OrderStatusCancelled {
			extra["cancelled_at"] = now
		} else {
			extra["returned_at"] = now
			eventType = enums.EventOrderReturned
		}

		applied, err := repo.UpdateStatusIf(ctx, orderID, order.Status, target, extra)
		if err != nil {
			return err
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		// A cancelled order restocks only while money has not changed
		// hands; after capture the goods stay reserved for the refund
		// flow. Returns restock unconditionally: the goods came back.
		restock := target == enums.OrderStatusReturned ||
			order.PaymentStatus != enums.PaymentStatusCompleted
		if restock {
			for _, item := range order.Items {
				if err := s.inventory.Release(ctx, tx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
			Data: OrderStatusChangedEvent{
				OrderID:    order.ID,
				FromStatus: order.Status,
				ToStatus:   target,
			},
			Version: 1,
		}); err != nil {
			return err
		}

		order.Status = target
		detail = toDetail(order)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOrderTransition(target.String())
	return detail, nil
}

// Advance moves the order one step forward in its lifecycle. Delivering a
// cash-on-delivery order also captures the payment; the commission
// booking there is a no-op for rows already written at creation.
func (s *service) Advance(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus, actor Actor) (*OrderDetail, error) {
	switch target {
	case enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.OrderStatusDelivered:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("cannot advance order to %s", target))
	}

	var detail *OrderDetail
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}
		if err := authorizeAdvance(order, actor); err != nil {
			return err
		}
		if err := ValidateTransition(order.Status, target); err != nil {
			return err
		}

		extra := map[string]any{}
		capturesCash := target == enums.OrderStatusDelivered &&
			order.PaymentMethod == enums.PaymentMethodCOD &&
			order.PaymentStatus == enums.PaymentStatusPending
		if capturesCash {
			extra["payment_status"] = enums.PaymentStatusCompleted
			extra["paid_at"] = time.Now().UTC()
		}

		applied, err := repo.UpdateStatusIf(ctx, orderID, order.Status, target, extra)
		if err != nil {
			return err
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		if capturesCash {
			if err := s.commissions.BookOrderItems(ctx, tx, order, s.pricer.CommissionRate()); err != nil {
				return err
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventCashCollected,
				AggregateType: enums.AggregatePayment,
				AggregateID:   order.ID,
				Data:          CashCollectedEvent{OrderID: order.ID, Amount: order.Total},
				Version:       1,
			}); err != nil {
				return err
			}
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
			Data: OrderStatusChangedEvent{
				OrderID:    order.ID,
				FromStatus: order.Status,
				ToStatus:   target,
			},
			Version: 1,
		}); err != nil {
			return err
		}

		order.Status = target
		if capturesCash {
			order.PaymentStatus = enums.PaymentStatusCompleted
		}
		detail = toDetail(order)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOrderTransition(target.String())
	return detail, nil
}

func authorizeRead(order *models.Order, actor Actor) error {
	switch actor.Role {
	case enums.MemberRoleAdmin:
		return nil
	case enums.MemberRoleCustomer:
		if order.CustomerID == actor.UserID {
			return nil
		}
	case enums.MemberRoleVendor:
		for _, item := range order.Items {
			if item.VendorID == actor.UserID {
				return nil
			}
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to access this order")
}

func authorizeWrite(order *models.Order, actor Actor) error {
	switch actor.Role {
	case enums.MemberRoleAdmin:
		return nil
	case enums.MemberRoleCustomer:
		if order.CustomerID == actor.UserID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to modify this order")
}

func authorizeAdvance(order *models.Order, actor Actor) error {
	switch actor.Role {
	case enums.MemberRoleAdmin:
		return nil
	case enums.MemberRoleVendor:
		for _, item := range order.Items {
			if item.VendorID == actor.UserID {
				return nil
			}
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to advance this order")
}

func toDetail(order *models.Order) *OrderDetail {
	detail := &OrderDetail{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		CustomerID:      order.CustomerID,
		Status:          order.Status,
		PaymentMethod:   order.PaymentMethod,
		PaymentStatus:   order.PaymentStatus,
		Subtotal:        order.Subtotal,
		Discount:        order.Discount,
		Tax:             order.Tax,
		ShippingFee:     order.ShippingFee,
		Total:           order.Total,
		CouponCode:      order.CouponCode,
		ShippingAddress: order.ShippingAddress,
		TransactionID:   order.TransactionID,
		PaidAt:          order.PaidAt,
		CreatedAt:       order.CreatedAt,
	}
	for _, item := range order.Items {
		detail.Items = append(detail.Items, OrderItemDetail{
			ID:        item.ID,
			ProductID: item.ProductID,
			VendorID:  item.VendorID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
			Product:   item.ProductSnapshot,
		})
	}
	return detail
}

func generateOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:10]
	return fmt.Sprintf("HB-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}
