/*
Package authsdk provides a client SDK for the haulage authentication service.

# Overview

The package holds the wire types shared by the server and its clients, the
APIError type every non-2xx response decodes into, and an HTTP client.

# SDKClient vs Session

  - SDKClient: unauthenticated operations (register, login, password reset, health)
  - Session: authenticated operations with automatic token refresh

A Session comes from logging in through an SDKClient:

	client := authsdk.NewSDKClient("https://auth.example.com")

	session, err := client.AuthenticateWithPassword(ctx, "ana@example.com", password)
	if err != nil {
		return err
	}

	me, err := session.Me(ctx)

# Automatic Token Refresh

Every Session method calls getValidToken() internally, which refreshes the
access token 30 seconds before it expires. Refresh tokens rotate: each one is
good for exactly one refresh, so a Session must not be copied between
processes that both refresh it.

# Permissions

Each account carries the permissions of its role. Operator endpoints check
them server-side, and a Session also checks them client-side unless
CheckPermissions is false:

	client.CheckPermissions = false

# Error Handling

Errors from the server are *APIError values and match the predefined errors
with errors.Is:

	_, err := client.Login(ctx, email, password)
	switch {
	case errors.Is(err, authsdk.ErrAccountLocked):
		// back off
	case errors.Is(err, authsdk.ErrInvalidCredentials):
		// wrong email or password, the server does not say which
	}

# Thread Safety

Sessions are safe for concurrent use.
*/
package authsdk
