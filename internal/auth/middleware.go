package auth

import (
	"context"
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"
)

// ContextKey is the type for request context keys set by the middleware.
type ContextKey string

const (
	// SubjectKey holds the authenticated subject name.
	SubjectKey ContextKey = "auth_subject"
	// TokenIDKey holds the jti of the authenticated session, empty for
	// API key authentication.
	TokenIDKey ContextKey = "auth_token_id"
)

// Middleware guards HTTP handlers. A request is authenticated either by a
// Bearer JWT whose jti is still live in the token store, or by a static
// API key in the X-API-Key header.
type Middleware struct {
	jwtService *JWTService
	tokens     *TokenStore
	apiKey     string
	log        *zap.Logger
}

// NewMiddleware creates an auth middleware. An empty apiKey disables API
// key authentication.
func NewMiddleware(jwtService *JWTService, tokens *TokenStore, apiKey string, log *zap.Logger) *Middleware {
	return &Middleware{
		jwtService: jwtService,
		tokens:     tokens,
		apiKey:     apiKey,
		log:        log,
	}
}

// RequireAuth rejects requests that carry neither a valid Bearer token nor
// a matching API key.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("X-API-Key"); key != "" && m.apiKey != "" {
			if subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) == 1 {
				ctx := context.WithValue(r.Context(), SubjectKey, "api-key")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			m.log.Debug("invalid api key")
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.log.Debug("missing authorization header")
			http.Error(w, "Authorization required", http.StatusUnauthorized)
			return
		}

		tokenString := ExtractTokenFromBearer(authHeader)
		if tokenString == "" {
			m.log.Debug("invalid authorization header format")
			http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
			return
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			m.log.Debug("invalid token", zap.Error(err))
			if err == ErrExpiredToken {
				http.Error(w, "Token expired", http.StatusUnauthorized)
			} else {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
			}
			return
		}

		if !m.tokens.IsLive(claims.ID) {
			m.log.Debug("revoked token", zap.String("jti", claims.ID))
			http.Error(w, "Token revoked", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), SubjectKey, claims.Subject)
		ctx = context.WithValue(ctx, TokenIDKey, claims.ID)

		m.log.Debug("authenticated request",
			zap.String("subject", claims.Subject),
			zap.String("jti", claims.ID))

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetSubjectFromContext extracts the authenticated subject from the context.
func GetSubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(SubjectKey).(string)
	return subject, ok
}

// GetTokenIDFromContext extracts the session jti from the context.
func GetTokenIDFromContext(ctx context.Context) (string, bool) {
	jti, ok := ctx.Value(TokenIDKey).(string)
	return jti, ok
}

// CORS handles cross-origin requests, including OPTIONS preflight.
func (m *Middleware) CORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowedOrigins := []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:8080",
			"http://127.0.0.1:8080",
		}

		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				break
			}
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-API-Key, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	}
}
