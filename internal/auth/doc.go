// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

/*
Package auth provides Waymark's stateless login and editor authorization.

Components:

  - TokenCodec: HMAC-SHA256 signed session tokens (payload.signature, both
    segments unpadded base64url). Tokens are readable by their holder but
    cannot be forged without the server secret.
  - DiscordClient: OAuth2 authorization-code exchange plus profile and guild
    membership lookups against the identity provider.
  - Policy: the editor decision. An empty allow-list denies everyone; an
    optional guild role gate must also pass.
  - SessionManager: issues the session cookie (HttpOnly, Secure, SameSite=Lax,
    Path=/, 7 days), reads it back on every request and clears it on logout.

Edit rights are decided once at login and carried in the token. Revoking an
editor takes effect when their token expires or the signing secret rotates.

Usage:

	sessions, err := auth.NewSessionManager(cfg.Session)
	policy := auth.NewPolicy(cfg.Access)
	discord := auth.NewDiscordClient(cfg.Discord)

	token, err := discord.ExchangeCode(ctx, code)
	profile, err := discord.FetchProfile(ctx, token.AccessToken)
	decision := policy.Decide(profile, nil)
	claims, err := sessions.Issue(w, decision, profile, token.AccessToken)
*/
package auth
