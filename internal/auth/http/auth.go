package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/pkg/authsdk"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// AuthHandler serves the unauthenticated /v1/auth endpoints.
type AuthHandler struct {
	Users    *service.UserService
	Auth     *service.AuthService
	Sessions *service.SessionService
}

// HandleRegister handles POST /v1/auth/register
//
//	@Summary		Register
//	@Description	Creates an account with the default role.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"New account"
//	@Success		201		{object}	authsdk.UserResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		409		{object}	authsdk.ErrorResponse	"already_exists"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Router			/v1/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, "register: bad body", err)
		return
	}

	u, err := h.Users.CreateUser(r.Context(), service.CreateUserInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(w, r, "register failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(u))
}

// HandleLogin handles POST /v1/auth/login
//
//	@Summary		Password login
//	@Description	Exchanges email and password for an access and refresh token.
//	@Description	Accounts with two-factor enabled must also send otp_code.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"authentication_failed, two_factor_required"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, "login: bad body", err)
		return
	}
	if req.Email == "" || req.Password == "" {
		badRequest(w, "email and password are required")
		return
	}

	pair, err := h.Sessions.Login(r.Context(), req.Email, req.Password, req.OtpCode)
	if err != nil {
		writeError(w, r, "login failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toTokenResponse(pair))
}

// HandleRefresh handles POST /v1/auth/refresh
//
//	@Summary		Refresh tokens
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		401		{object}	authsdk.ErrorResponse	"authentication_failed"
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, "refresh: bad body", err)
		return
	}

	pair, err := h.Sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, "refresh failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toTokenResponse(pair))
}

// HandleLogout handles POST /v1/auth/logout
//
//	@Summary	Revoke a refresh token
//	@Tags		Auth
//	@Accept		json
//	@Param		request	body	authsdk.LogoutRequest	true	"Refresh token"
//	@Success	204
//	@Failure	401	{object}	authsdk.ErrorResponse	"authentication_failed"
//	@Router		/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LogoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, "logout: bad body", err)
		return
	}

	if err := h.Sessions.Logout(r.Context(), req.RefreshToken); err != nil {
		writeError(w, r, "logout failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSendVerificationCode handles POST /v1/auth/email/send-code
//
//	@Summary	Send an email verification code
//	@Tags		Auth
//	@Accept		json
//	@Param		request	body	authsdk.EmailRequest	true	"Address"
//	@Success	202
//	@Failure	400	{object}	authsdk.ErrorResponse	"invalid_request"
//	@Router		/v1/auth/email/send-code [post].
func (h *AuthHandler) HandleSendVerificationCode(w http.ResponseWriter, r *http.Request) {
	var req authsdk.EmailRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, "send code: bad body", err)
		return
	}

	if _, err := h.Auth.SendEmailVerification(r.Context(), req.Email); err != nil {
		writeError(w, r, "send verification code failed", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleVerifyEmail handles POST /v1/auth/email/verify
//
//	@Summary	Verify an email address
//	@Tags		Auth
//	@Accept		json
//	@Param		request	body	authsdk.VerifyEmailRequest	true	"Address and code"
//	@Success	204
//	@Failure	400	{object}	authsdk.ErrorResponse	"invalid_request, otp_invalid, otp_expired"
//	@Router		/v1/auth/email/verify [post].
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req authsdk.VerifyEmailRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, "verify email: bad body", err)
		return
	}

	if err := h.Auth.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		writeError(w, r, "verify email failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleForgotPassword handles POST /v1/auth/password/forgot
//
//	@Summary		Request a password reset link
//	@Description	Always answers 202 for a well-formed address so registered emails cannot be probed.
//	@Tags			Auth
//	@Accept			json
//	@Param			request	body	authsdk.EmailRequest	true	"Address"
//	@Success		202
//	@Failure		400	{object}	authsdk.ErrorResponse	"invalid_request"
//	@Router			/v1/auth/password/forgot [post].
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.EmailRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, "forgot password: bad body", err)
		return
	}

	_, _, err := h.Auth.RequestPasswordReset(r.Context(), req.Email)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidValue):
		writeError(w, r, "forgot password failed", err)
		return
	case errors.Is(err, domain.ErrEntityNotFound), errors.Is(err, domain.ErrInactiveUser):
		slogx.FromContext(r.Context()).Info("password reset for unknown or inactive account")
	default:
		slogx.FromContext(r.Context()).Error("password reset failed", "error", err)
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleResetPassword handles POST /v1/auth/password/reset
//
//	@Summary	Reset a password with an emailed token
//	@Tags		Auth
//	@Accept		json
//	@Param		request	body	authsdk.ResetPasswordRequest	true	"Token and new password"
//	@Success	204
//	@Failure	400	{object}	authsdk.ErrorResponse	"invalid_request, otp_invalid, otp_expired"
//	@Router		/v1/auth/password/reset [post].
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ResetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, "reset password: bad body", err)
		return
	}

	if err := h.Auth.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, r, "reset password failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGenerateOTP handles POST /v1/auth/otp/generate
//
//	@Summary		Mail a one-time login code
//	@Description	Always answers 202 for a well-formed address.
//	@Tags			Auth
//	@Accept			json
//	@Param			request	body	authsdk.EmailRequest	true	"Address"
//	@Success		202
//	@Failure		400	{object}	authsdk.ErrorResponse	"invalid_request"
//	@Router			/v1/auth/otp/generate [post].
func (h *AuthHandler) HandleGenerateOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.EmailRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, "generate otp: bad body", err)
		return
	}
	if _, err := domain.NewEmail(req.Email); err != nil {
		writeError(w, r, "generate otp: bad email", err)
		return
	}

	u, err := h.Users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, domain.ErrEntityNotFound) {
			log.Error("otp lookup failed", "error", err)
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if _, err := h.Auth.GenerateOTP(ctx, u.ID()); err != nil && !errors.Is(err, domain.ErrInactiveUser) {
		log.Error("generate otp failed", "error", err)
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleVerifyOTP handles POST /v1/auth/otp/verify
//
//	@Summary	Log in with a one-time code
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		authsdk.OTPLoginRequest	true	"Address and code"
//	@Success	200		{object}	authsdk.TokenResponse
//	@Failure	401		{object}	authsdk.ErrorResponse	"authentication_failed, two_factor_required"
//	@Router		/v1/auth/otp/verify [post].
func (h *AuthHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.OTPLoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, "verify otp: bad body", err)
		return
	}

	pair, err := h.Sessions.LoginWithOTP(r.Context(), req.Email, req.Code, req.OtpCode)
	if err != nil {
		writeError(w, r, "otp login failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toTokenResponse(pair))
}
