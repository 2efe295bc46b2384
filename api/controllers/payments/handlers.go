package payments

import (
	"net/http"
	"strings"

	"github.com/hatbazar/marketplace-backend/api/middleware"
	"github.com/hatbazar/marketplace-backend/api/responses"
	"github.com/hatbazar/marketplace-backend/api/validators"
	internalpayments "github.com/hatbazar/marketplace-backend/internal/payments"
	pkgerrors "github.com/hatbazar/marketplace-backend/pkg/errors"
	"github.com/hatbazar/marketplace-backend/pkg/logger"
)

type verifyRequest struct {
	Token       string `json:"token"`
	ReferenceID string `json:"reference_id"`
}

// Initiate returns the gateway redirect payload for a pending order.
func Initiate(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Initiate(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// Verify reconciles a redirect callback with the payment provider.
func Verify(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req verifyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Verify(r.Context(), orderID, internalpayments.VerifyInput{
			Token:       strings.TrimSpace(req.Token),
			ReferenceID: strings.TrimSpace(req.ReferenceID),
		}, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
