/*
Package authsdk provides a client SDK for the gatekeeper authentication and
authorization service.

# SDKClient vs Session

The package is organized around two main types:

  - SDKClient: unauthenticated operations (registration, login, email
    verification, password reset) and the creation of Sessions

  - Session: authenticated operations with automatic token refresh

    client := authsdk.NewSDKClient("https://auth.example.com")

    health, err := client.GetReadiness(ctx)

    _, err = client.Register(ctx, authsdk.RegisterRequest{
    Email:     "pat@example.com",
    Password:  "Password123!",
    FirstName: "Pat",
    LastName:  "Doe",
    })

    session, err := client.Login(ctx, "pat@example.com", "Password123!", "")

# Two-factor and one-time codes

Accounts with two-factor enabled must pass the authenticator code to Login:

	session, err := client.Login(ctx, email, password, "")
	if errors.Is(err, authsdk.ErrTwoFactorRequired) {
		session, err = client.Login(ctx, email, password, code)
	}

Passwordless login mails a six digit code first:

	err := client.RequestOTP(ctx, email)
	session, err := client.LoginWithOTP(ctx, email, mailedCode, "")

# Permissions

Access tokens carry the user's roles and "resource:action" permissions. A
Session reads them from the token and, while SDKClient.CheckPermissions is
true, refuses calls it knows the server will reject:

	if session.HasPermission("user:read") {
		users, err := session.ListUsers(ctx, 50, 0)
	}

# Errors

Failed requests return *APIError. Compare with errors.Is against the
predefined values:

	err := session.DeleteRole(ctx, id)
	switch {
	case errors.Is(err, authsdk.ErrCannotDeleteDefaultRole):
	case errors.Is(err, authsdk.ErrRoleHasAssignedUsers):
	}

# Thread Safety

Session is safe for concurrent use. Token refresh is serialised so
concurrent callers share one refresh.
*/
package authsdk
