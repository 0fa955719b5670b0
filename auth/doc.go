// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth verifies access tokens issued by the identity provider.

Sign-up, login, and sessions live in the provider. This package only checks
the HS256 tokens it hands out and carries the resulting Identity through the
request context.

# Token Validation

	id, err := auth.ValidateToken(token, cfg.JWTSecret, cfg.JWTAudience)

The user id is the token's "sub" claim. Expired tokens, tokens signed with
another algorithm, and tokens without a subject fail with ErrInvalidToken.

# Token Sources

  - BearerToken: Authorization: Bearer <token>
  - CookieToken: the access_token cookie

The cookie is ambient, so the authentication middleware only trusts it on
safe methods or when the request's Origin is the frontend or the API itself.

# Request Context

	ctx = auth.WithIdentity(ctx, id)
	id, ok := auth.FromContext(ctx)

# Local Tokens

IssueToken signs tokens with the same claims, for development and tests:

	token, _ := auth.IssueToken(auth.Identity{UserID: "u1"}, secret, "", time.Hour)
*/
package auth
