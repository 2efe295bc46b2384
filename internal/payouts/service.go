package payouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hatbazar/marketplace-backend/internal/commissions"
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
}

// Balance is the withdrawable breakdown the vendor sees.
type Balance struct {
	Earned    decimal.Decimal `json:"earned"`
	Pending   decimal.Decimal `json:"pending_payouts"`
	Completed decimal.Decimal `json:"completed_payouts"`
	Available decimal.Decimal `json:"available"`
}

// RequestInput carries the fields needed to open a payout request.
type RequestInput struct {
	VendorID uuid.UUID
	Amount   decimal.Decimal
	Note     *string
}

// ResolveInput carries an admin's decision on a pending request.
type ResolveInput struct {
	RequestID uuid.UUID
	AdminID   uuid.UUID
	Approve   bool
}

// PayoutRequestedEvent is emitted when a vendor opens a payout request.
type PayoutRequestedEvent struct {
	RequestID uuid.UUID       `json:"request_id"`
	VendorID  uuid.UUID       `json:"vendor_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// PayoutResolvedEvent is emitted when an admin resolves a request.
type PayoutResolvedEvent struct {
	RequestID uuid.UUID          `json:"request_id"`
	VendorID  uuid.UUID          `json:"vendor_id"`
	Amount    decimal.Decimal    `json:"amount"`
	Status    enums.PayoutStatus `json:"status"`
}

// Service authorizes and resolves vendor payout requests.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*models.PayoutRequest, error)
	Resolve(ctx context.Context, input ResolveInput) (*models.PayoutRequest, error)
	VendorBalance(ctx context.Context, vendorID uuid.UUID) (*Balance, error)
	ListVendorRequests(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.PayoutRequest, error)
	ListPending(ctx context.Context, limit int) ([]models.PayoutRequest, error)
}

type service struct {
	repo        Repository
	commissions commissions.Service
	tx          txRunner
	outbox      outboxPublisher
	metrics     *metrics.SettlementMetrics
}

// NewService builds a payouts service with the required dependencies.
func NewService(repo Repository, commissionSvc commissions.Service, tx txRunner, outboxSvc outboxPublisher, settlementMetrics *metrics.SettlementMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if commissionSvc == nil {
		return nil, fmt.Errorf("commissions service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:        repo,
		commissions: commissionSvc,
		tx:          tx,
		outbox:      outboxSvc,
		metrics:     settlementMetrics,
	}, nil
}

// Request opens a payout request when the vendor's available balance
// covers the amount. The balance guard runs inside the insert itself, so
// concurrent requests cannot overdraw.
func (s *service) Request(ctx context.Context, input RequestInput) (*models.PayoutRequest, error) {
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout amount must be positive")
	}

	request := &models.PayoutRequest{
		VendorID: input.VendorID,
		Amount:   input.Amount.Round(2),
		Note:     input.Note,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		inserted, err := s.repo.WithTx(tx).GuardedInsert(ctx, request)
		if err != nil {
			return err
		}
		if !inserted {
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "requested amount exceeds available balance")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutRequested,
			AggregateType: enums.AggregatePayoutRequest,
			AggregateID:   request.ID,
			Data: PayoutRequestedEvent{
				RequestID: request.ID,
				VendorID:  request.VendorID,
				Amount:    request.Amount,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPayoutRequested()
	return request, nil
}

// Resolve finalizes a pending request. Rejection frees the reserved
// balance simply by flipping the status; approval keeps it counted
// against future requests.
func (s *service) Resolve(ctx context.Context, input ResolveInput) (*models.PayoutRequest, error) {
	status := enums.PayoutStatusRejected
	if input.Approve {
		status = enums.PayoutStatusCompleted
	}

	var resolved *models.PayoutRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		request, err := repo.FindByID(ctx, input.RequestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payout request not found")
			}
			return err
		}

		won, err := repo.ResolveIfPending(ctx, input.RequestID, status, input.AdminID, time.Now().UTC())
		if err != nil {
			return err
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("payout request already %s", request.Status))
		}

		resolved, err = repo.FindByID(ctx, input.RequestID)
		if err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutResolved,
			AggregateType: enums.AggregatePayoutRequest,
			AggregateID:   resolved.ID,
			Data: PayoutResolvedEvent{
				RequestID: resolved.ID,
				VendorID:  resolved.VendorID,
				Amount:    resolved.Amount,
				Status:    resolved.Status,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// VendorBalance reports earnings, reserved payouts and what remains
// withdrawable.
func (s *service) VendorBalance(ctx context.Context, vendorID uuid.UUID) (*Balance, error) {
	earned, err := s.commissions.VendorEarnings(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	pending, err := s.repo.SumAmountByVendor(ctx, vendorID, enums.PayoutStatusPending)
	if err != nil {
		return nil, err
	}
	completed, err := s.repo.SumAmountByVendor(ctx, vendorID, enums.PayoutStatusCompleted)
	if err != nil {
		return nil, err
	}
	return &Balance{
		Earned:    earned,
		Pending:   pending,
		Completed: completed,
		Available: earned.Sub(pending).Sub(completed),
	}, nil
}

func (s *service) ListVendorRequests(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.PayoutRequest, error) {
	return s.repo.ListByVendor(ctx, vendorID, limit)
}

func (s *service) ListPending(ctx context.Context, limit int) ([]models.PayoutRequest, error) {
	return s.repo.ListByStatus(ctx, enums.PayoutStatusPending, limit)
}
