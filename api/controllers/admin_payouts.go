package controllers

import (
	"net/http"

	"github.com/hatbazar/marketplace-backend/api/middleware"
	"github.com/hatbazar/marketplace-backend/api/responses"
	"github.com/hatbazar/marketplace-backend/api/validators"
	"github.com/hatbazar/marketplace-backend/internal/payouts"
	pkgerrors "github.com/hatbazar/marketplace-backend/pkg/errors"
	"github.com/hatbazar/marketplace-backend/pkg/logger"
	"github.com/hatbazar/marketplace-backend/pkg/pagination"
)

type resolvePayoutRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
}

// AdminPendingPayouts lists payout requests awaiting a decision.
func AdminPendingPayouts(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requests, err := svc.ListPending(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending payouts"))
			return
		}

		responses.WriteSuccess(w, requests)
	}
}

// AdminResolvePayout approves or rejects a pending payout request.
func AdminResolvePayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		payoutID, err := validators.ParseUUIDParam(r, "payoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req resolvePayoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Resolve(r.Context(), payouts.ResolveInput{
			RequestID: payoutID,
			AdminID:   actor.UserID,
			Approve:   req.Decision == "approve",
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, request)
	}
}
