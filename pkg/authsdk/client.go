package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the gatekeeper service.
// It provides access to unauthenticated operations and can create authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// CheckPermissions determines whether a Session checks the permissions
	// carried in its access token before making a request. A missing
	// permission then fails locally with ErrForbidden instead of a round trip.
	// Set to false in tests that exercise the server-side checks.
	// Default: true
	CheckPermissions bool
}

// NewSDKClient creates a new client with permission checking enabled.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		CheckPermissions: true,
	}
}

// Login authenticates with email and password. For accounts with two-factor
// enabled, pass the authenticator code as otpCode; without it the call
// fails with ErrTwoFactorRequired.
func (c *SDKClient) Login(ctx context.Context, email, password, otpCode string) (*Session, error) {
	tokenResp, err := c.LoginTokens(ctx, LoginRequest{Email: email, Password: password, OtpCode: otpCode})
	if err != nil {
		return nil, err
	}
	return newSession(c, tokenResp)
}

// LoginWithOTP completes a passwordless login with a code sent by RequestOTP.
func (c *SDKClient) LoginWithOTP(ctx context.Context, email, code, otpCode string) (*Session, error) {
	tokenResp, err := c.VerifyOTP(ctx, OTPLoginRequest{Email: email, Code: code, OtpCode: otpCode})
	if err != nil {
		return nil, err
	}
	return newSession(c, tokenResp)
}

// AuthenticateWithRefreshToken creates a session from an existing refresh token.
func (c *SDKClient) AuthenticateWithRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	tokenResp, err := c.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokenResp)
}

// NewSessionFromTokens creates a session from tokens obtained elsewhere.
// The session still refreshes the access token when it expires.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string, expiresIn int) (*Session, error) {
	return newSession(c, &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
	})
}
