package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"shorturl-backend/internal/config"
)

// Handlers serves the admin login and logout endpoints. Credentials come
// from configuration, there is no user database.
type Handlers struct {
	cfg             *config.Auth
	jwtService      *JWTService
	passwordService *PasswordService
	tokens          *TokenStore
	adminHash       string
	log             *zap.Logger
}

// NewHandlers creates the auth handlers. The configured admin password is
// hashed once at startup so login checks go through bcrypt.
func NewHandlers(cfg *config.Auth, jwtService *JWTService, tokens *TokenStore, log *zap.Logger) (*Handlers, error) {
	passwordService := NewPasswordService()
	adminHash, err := passwordService.HashPassword(cfg.AdminPassword)
	if err != nil {
		return nil, err
	}

	return &Handlers{
		cfg:             cfg,
		jwtService:      jwtService,
		passwordService: passwordService,
		tokens:          tokens,
		adminHash:       adminHash,
		log:             log,
	}, nil
}

// LoginRequest is the login request body.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the successful login response body.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Login authenticates the admin user and issues an access token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid login request", zap.Error(err))
		h.writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	usernameOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.cfg.AdminUsername)) == 1
	passwordErr := h.passwordService.VerifyPassword(h.adminHash, req.Password)
	if !usernameOK || passwordErr != nil {
		h.log.Debug("invalid credentials", zap.String("username", req.Username))
		h.writeError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	token, jti, expiresAt, err := h.jwtService.GenerateToken(req.Username)
	if err != nil {
		h.log.Error("failed to generate token", zap.Error(err))
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.tokens.Add(jti, expiresAt)

	h.log.Info("admin logged in", zap.String("username", req.Username), zap.String("jti", jti))
	h.writeJSON(w, LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}, http.StatusOK)
}

// Logout revokes the session of the presented token.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	jti, ok := GetTokenIDFromContext(r.Context())
	if !ok || jti == "" {
		h.writeError(w, "No active session", http.StatusBadRequest)
		return
	}

	h.tokens.Revoke(jti)

	h.log.Info("session revoked", zap.String("jti", jti))
	h.writeJSON(w, map[string]string{"message": "logged out"}, http.StatusOK)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
