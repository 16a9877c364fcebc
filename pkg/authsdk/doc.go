/*
Package authsdk provides the wire types, error vocabulary, and a client SDK
for the TrackCrate session authority.

# Overview

The session authority mints short-lived JWT access tokens and long-lived
opaque refresh tokens, rotates refresh tokens on use, and keeps a revocation
ledger so tokens can be cut off before their natural expiry. This package is
shared between the service's HTTP handlers and its clients: handlers use the
APIError values and response types to shape responses, clients use SDKClient
to consume them. Keeping both sides on one set of types is what stops the
wire format drifting.

# Usage

Create a client and log in:

	client := authsdk.NewSDKClient("https://auth.trackcrate.example")
	session, err := client.Login(ctx, "alice", "s3cret")
	if err != nil {
	    var apiErr *authsdk.APIError
	    if errors.As(err, &apiErr) && apiErr.Code == authsdk.ErrorCodeInvalidCredentials {
	        // wrong username or password
	    }
	}

A Session holds the token pair and refreshes lazily: any authenticated call
made after the access token's expiry first exchanges the refresh token for a
new pair.

	info, err := session.Me(ctx)

Revocation:

	err = session.Logout(ctx)      // this device
	n, err := session.RevokeAll(ctx) // every device, returns count

Gateways that terminate authentication themselves can pre-validate a token
without holding a session:

	res, err := client.ValidateToken(ctx, rawToken)
	if res.Valid { ... }

# Error Handling

Every non-2xx response parses into an *APIError carrying the HTTP status,
the machine-readable code (e.g. INVALID_CREDENTIALS, TOKEN_NOT_FOUND), and
the human-readable message. Transport failures are returned as plain wrapped
errors, not APIErrors.
*/
package authsdk
