package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/obinna-okoro1/convozo/api/middleware"
	"github.com/obinna-okoro1/convozo/api/responses"
	"github.com/obinna-okoro1/convozo/api/validators"
	"github.com/obinna-okoro1/convozo/internal/connect"
	pkgerrors "github.com/obinna-okoro1/convozo/pkg/errors"
	"github.com/obinna-okoro1/convozo/pkg/logger"
)

type ConnectService interface {
	Provision(ctx context.Context, input connect.ProvisionInput) (*connect.OnboardingLink, error)
	Verify(ctx context.Context, accountID string, actorUserID uuid.UUID) (*connect.AccountStatus, error)
}

type createConnectAccountRequest struct {
	CreatorID   string `json:"creator_id" validate:"required,uuid"`
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"required"`
}

type verifyConnectAccountRequest struct {
	AccountID string `json:"account_id" validate:"required"`
}

// CreateConnectAccount returns an onboarding link for the caller's creator,
// provisioning the payout account on first use.
func CreateConnectAccount(svc ConnectService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "connect service unavailable"))
			return
		}

		var payload createConnectAccountRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		creatorID, err := uuid.Parse(payload.CreatorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid creator_id"))
			return
		}

		link, err := svc.Provision(r.Context(), connect.ProvisionInput{
			CreatorID:   creatorID,
			Email:       strings.TrimSpace(payload.Email),
			DisplayName: strings.TrimSpace(payload.DisplayName),
			ActorUserID: middleware.UserIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, link)
	}
}

// VerifyConnectAccount refreshes and returns the payout account's flags.
func VerifyConnectAccount(svc ConnectService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "connect service unavailable"))
			return
		}

		var payload verifyConnectAccountRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.Verify(r.Context(), strings.TrimSpace(payload.AccountID), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
