package authsdk

import (
	"context"
	"net/http"
)

// SetupTwoFactor starts enrolment and returns the secret to load into an
// authenticator app. Two-factor is not active until ConfirmTwoFactor.
func (s *Session) SetupTwoFactor(ctx context.Context) (*TwoFactorSetupResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/me/2fa/setup", nil, nil)
	if err != nil {
		return nil, err
	}

	var setup TwoFactorSetupResponse
	if err := decodeJSON(resp, &setup, http.StatusOK); err != nil {
		return nil, err
	}
	return &setup, nil
}

// ConfirmTwoFactor enables two-factor with a code from the new secret.
func (s *Session) ConfirmTwoFactor(ctx context.Context, code string) error {
	resp, err := s.doAuthJSON(ctx, http.MethodPost, "/v1/me/2fa/confirm", TwoFactorCodeRequest{Code: code})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// DisableTwoFactor needs a current authenticator code.
func (s *Session) DisableTwoFactor(ctx context.Context, code string) error {
	resp, err := s.doAuthJSON(ctx, http.MethodDelete, "/v1/me/2fa", TwoFactorCodeRequest{Code: code})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
