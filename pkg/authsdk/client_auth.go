package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// postJSON sends body as JSON to an unauthenticated endpoint.
func (c *SDKClient) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return c.doRequest(ctx, http.MethodPost, path, bytes.NewReader(buf), jsonHeaders)
}

// Register creates an account. The new user gets the default role.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	resp, err := c.postJSON(ctx, "/v1/auth/register", req)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusCreated); err != nil {
		return nil, err
	}
	return &user, nil
}

// LoginTokens performs a password login and returns the raw token pair.
func (c *SDKClient) LoginTokens(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	resp, err := c.postJSON(ctx, "/v1/auth/login", req)
	if err != nil {
		return nil, err
	}

	var tokens TokenResponse
	if err := decodeJSON(resp, &tokens, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Refresh exchanges a refresh token for a new pair. The old refresh token
// stays valid until it expires or is revoked.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	resp, err := c.postJSON(ctx, "/v1/auth/refresh", RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}

	var tokens TokenResponse
	if err := decodeJSON(resp, &tokens, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Logout revokes a refresh token.
func (c *SDKClient) Logout(ctx context.Context, refreshToken string) error {
	resp, err := c.postJSON(ctx, "/v1/auth/logout", LogoutRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// SendVerificationCode mails a six digit code to the address.
func (c *SDKClient) SendVerificationCode(ctx context.Context, email string) error {
	resp, err := c.postJSON(ctx, "/v1/auth/email/send-code", EmailRequest{Email: email})
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusAccepted)
}

func (c *SDKClient) VerifyEmail(ctx context.Context, email, code string) error {
	resp, err := c.postJSON(ctx, "/v1/auth/email/verify", VerifyEmailRequest{Email: email, Code: code})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// ForgotPassword requests a reset link. The server answers the same way
// whether or not the address is registered.
func (c *SDKClient) ForgotPassword(ctx context.Context, email string) error {
	resp, err := c.postJSON(ctx, "/v1/auth/password/forgot", EmailRequest{Email: email})
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusAccepted)
}

func (c *SDKClient) ResetPassword(ctx context.Context, token, newPassword string) error {
	resp, err := c.postJSON(ctx, "/v1/auth/password/reset", ResetPasswordRequest{Token: token, NewPassword: newPassword})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// RequestOTP mails a one-time login code.
func (c *SDKClient) RequestOTP(ctx context.Context, email string) error {
	resp, err := c.postJSON(ctx, "/v1/auth/otp/generate", EmailRequest{Email: email})
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusAccepted)
}

// VerifyOTP exchanges a one-time login code for a token pair.
func (c *SDKClient) VerifyOTP(ctx context.Context, req OTPLoginRequest) (*TokenResponse, error) {
	resp, err := c.postJSON(ctx, "/v1/auth/otp/verify", req)
	if err != nil {
		return nil, err
	}

	var tokens TokenResponse
	if err := decodeJSON(resp, &tokens, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokens, nil
}
