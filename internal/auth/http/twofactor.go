package http

import (
	"net/http"

	"github.com/aussiebroadwan/gatekeeper/pkg/authsdk"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// HandleSetupTwoFactor handles POST /v1/me/2fa/setup
//
//	@Summary		Start two-factor enrolment
//	@Description	Issues a TOTP secret. Two-factor is only enabled after /v1/me/2fa/confirm.
//	@Tags			Two-factor
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.TwoFactorSetupResponse
//	@Failure		403	{object}	authsdk.ErrorResponse	"forbidden (already enabled), inactive_user"
//	@Router			/v1/me/2fa/setup [post].
func (h *MeHandler) HandleSetupTwoFactor(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	setup, err := h.Auth.SetupTwoFactor(r.Context(), u.ID())
	if err != nil {
		writeError(w, r, "two-factor setup failed", err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.TwoFactorSetupResponse{
		Secret:     setup.Secret,
		OtpauthURL: setup.URL,
	})
}

// HandleConfirmTwoFactor handles POST /v1/me/2fa/confirm
//
//	@Summary	Enable two-factor
//	@Tags		Two-factor
//	@Security	BearerAuth
//	@Accept		json
//	@Param		request	body	authsdk.TwoFactorCodeRequest	true	"Code from the new secret"
//	@Success	204
//	@Failure	400	{object}	authsdk.ErrorResponse	"otp_invalid"
//	@Router		/v1/me/2fa/confirm [post].
func (h *MeHandler) HandleConfirmTwoFactor(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req authsdk.TwoFactorCodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, "confirm two-factor: bad body", err)
		return
	}

	if err := h.Auth.ConfirmTwoFactor(r.Context(), u.ID(), req.Code); err != nil {
		writeError(w, r, "confirm two-factor failed", err)
		return
	}

	slogx.FromContext(r.Context()).Info("two-factor enabled", "user_id", u.ID())
	w.WriteHeader(http.StatusNoContent)
}

// HandleDisableTwoFactor handles DELETE /v1/me/2fa
//
//	@Summary	Disable two-factor
//	@Tags		Two-factor
//	@Security	BearerAuth
//	@Accept		json
//	@Param		request	body	authsdk.TwoFactorCodeRequest	true	"Current authenticator code"
//	@Success	204
//	@Failure	400	{object}	authsdk.ErrorResponse	"otp_invalid"
//	@Router		/v1/me/2fa [delete].
func (h *MeHandler) HandleDisableTwoFactor(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req authsdk.TwoFactorCodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, "disable two-factor: bad body", err)
		return
	}

	if err := h.Auth.DisableTwoFactor(r.Context(), u.ID(), req.Code); err != nil {
		writeError(w, r, "disable two-factor failed", err)
		return
	}

	slogx.FromContext(r.Context()).Info("two-factor disabled", "user_id", u.ID())
	w.WriteHeader(http.StatusNoContent)
}
