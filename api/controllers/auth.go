package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gamevault/gamevault-backend/api/responses"
	"github.com/gamevault/gamevault-backend/api/validators"
	authsvc "github.com/gamevault/gamevault-backend/internal/auth"
	"github.com/gamevault/gamevault-backend/internal/users"
	pkgerrors "github.com/gamevault/gamevault-backend/pkg/errors"
	"github.com/gamevault/gamevault-backend/pkg/logger"
)

type loginService interface {
	Login(ctx context.Context, email, password string) (*authsvc.LoginResult, error)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken string         `json:"access_token"`
	ExpiresAt   time.Time      `json:"expires_at"`
	User        *users.UserDTO `json:"user"`
}

// AuthLogin exchanges credentials for a bearer token.
func AuthLogin(svc loginService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body loginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body.Email, body.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, loginResponse{
			AccessToken: result.AccessToken,
			ExpiresAt:   result.ExpiresAt,
			User:        result.User,
		})
	}
}
