// Package main provides authentication for the KivDB servers.
package main

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nickyhof/KivDB/config"
	"github.com/nickyhof/KivDB/core"
)

var (
	errAuthRequired  = errors.New("authentication required: send AUTH JWT <token>")
	errNotAuthCmd    = errors.New("not an AUTH command")
	errAuthNotConfig = errors.New("authentication not configured")
)

// Authenticator validates HS256/384/512 JWTs and extracts the caller
// identity. A nil Authenticator means authentication is disabled.
type Authenticator struct {
	secret     []byte
	issuer     string
	audience   string
	nameClaim  string
	emailClaim string
}

// NewAuthenticator returns nil when cfg does not enable authentication.
func NewAuthenticator(cfg config.AuthConfig) *Authenticator {
	if !cfg.Enabled {
		return nil
	}

	auth := &Authenticator{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		nameClaim:  cfg.NameClaim,
		emailClaim: cfg.EmailClaim,
	}
	if auth.nameClaim == "" {
		auth.nameClaim = "name"
	}
	if auth.emailClaim == "" {
		auth.emailClaim = "email"
	}
	return auth
}

// ConnectionState tracks per-connection authentication state.
type ConnectionState struct {
	identity    *core.Identity
	tokenExpiry time.Time
}

// IsAuthenticated reports whether the connection holds an unexpired token.
func (cs *ConnectionState) IsAuthenticated() bool {
	if cs.identity == nil {
		return false
	}
	return cs.tokenExpiry.IsZero() || time.Now().Before(cs.tokenExpiry)
}

// Identity returns the connection's identity, or nil if not authenticated.
func (cs *ConnectionState) Identity() *core.Identity {
	return cs.identity
}

// Validate checks a token and returns the identity it carries.
func (a *Authenticator) Validate(tokenString string) (core.Identity, time.Time, error) {
	if a == nil {
		return core.Identity{}, time.Time{}, errAuthNotConfig
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return core.Identity{}, time.Time{}, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return core.Identity{}, time.Time{}, errors.New("invalid token claims")
	}

	if a.audience != "" {
		audiences, _ := claims.GetAudience()
		if !slices.Contains(audiences, a.audience) {
			return core.Identity{}, time.Time{}, fmt.Errorf("invalid audience: expected %s", a.audience)
		}
	}

	name, _ := claims[a.nameClaim].(string)
	email, _ := claims[a.emailClaim].(string)
	if name == "" && email == "" {
		return core.Identity{}, time.Time{}, fmt.Errorf("token missing identity claims (%s or %s)", a.nameClaim, a.emailClaim)
	}

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	return core.Identity{Name: name, Email: email}, expiresAt, nil
}

// parseAuthCommand parses an AUTH command and returns the auth type and token.
// Supported formats:
//   - AUTH JWT <token>
func parseAuthCommand(line string) (authType, token string, err error) {
	line = strings.TrimSpace(line)

	if !isAuthCommand(line) {
		return "", "", errNotAuthCmd
	}

	parts := strings.Fields(line)
	if len(parts) != 3 {
		return "", "", errors.New("invalid AUTH command: expected AUTH <type> <credentials>")
	}

	authType = strings.ToUpper(parts[1])
	if authType != "JWT" {
		return "", "", fmt.Errorf("unsupported auth type: %s", authType)
	}
	return authType, parts[2], nil
}

func isAuthCommand(line string) bool {
	return strings.HasPrefix(strings.ToUpper(line), "AUTH ")
}

// handleAuth processes an AUTH command and returns the response.
func (s *Server) handleAuth(line string, state *ConnectionState) Response {
	_, token, err := parseAuthCommand(line)
	if err != nil {
		return authError("invalidCommand", err)
	}

	identity, expiresAt, err := s.auth.Validate(token)
	if err != nil {
		return authError("invalidToken", err)
	}

	state.identity = &identity
	state.tokenExpiry = expiresAt

	ar := AuthResponse{
		Authenticated: true,
		Identity:      identity.String(),
	}
	if !expiresAt.IsZero() {
		ar.ExpiresIn = int(time.Until(expiresAt).Seconds())
	}

	return success(TypeAuth, ar)
}

// bearerIdentity authenticates an HTTP request from its Authorization
// header.
func (a *Authenticator) bearerIdentity(r *http.Request) (core.Identity, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return core.Identity{}, errors.New("missing bearer token")
	}

	identity, _, err := a.Validate(strings.TrimSpace(token))
	return identity, err
}
