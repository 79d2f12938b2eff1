/*
Package authsdk provides a client SDK for the realestate authentication service.

# Overview

The service authenticates users by password or by a one-time code mailed to
them, and issues bearer session tokens valid for one hour. There is no
refresh token: when a session lapses the user logs in again.

The package is organized around two types:

  - SDKClient: the unauthenticated flows, plus token verification
  - Session: a token with its identity, for calls that need a bearer token

# Password Login

	client := authsdk.NewSDKClient("https://api.example.com")

	_, err := client.Register(ctx, authsdk.RegisterRequest{
		Email:    "ana@example.com",
		Password: "secret1",
		Nombre:   "Ana",
	})

	session, err := client.AuthenticateWithPassword(ctx, "ana@example.com", "secret1")

# One-Time Code Login

	// Mails a five digit code; any earlier code for the address stops working.
	_, err := client.RequestCode(ctx, "ana@example.com")

	session, err := client.AuthenticateWithCode(ctx, "ana@example.com", code)

# Protecting Endpoints

Services that own protected resources verify the caller's token:

	verified, err := client.VerifyToken(ctx, bearer)
	if authsdk.IsCode(err, authsdk.ErrorCodeUnauthenticated) {
		// reject with 401
	}

The returned identity is read from the store at verification time, so a
renamed or deactivated account is visible immediately.

# Error Handling

Every non-2xx response becomes an *APIError carrying the HTTP status and the
stable error code. The predefined errors match with errors.Is:

	_, err := client.Login(ctx, email, password)
	if errors.Is(err, authsdk.ErrInvalidCredentials) {
		// unknown email and wrong password share this error
	}

A delivery_failed error carries the mail provider's diagnostic in Detail.

# Thread Safety

SDKClient and Session are safe for concurrent use.
*/
package authsdk
