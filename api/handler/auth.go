package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/brainbow/syncd/api/transport"
	"github.com/brainbow/syncd/domain"
	"github.com/brainbow/syncd/pkg/httpcontext"
	authUC "github.com/brainbow/syncd/usecase/auth"
)

type AuthHandler struct {
	baseHandler
	auth       *authUC.UseCase
	jwtSecret  string
	jwtIssuer  string
	defaultTTL time.Duration
}

func NewAuthHandler(auth *authUC.UseCase, jwtSecret, jwtIssuer string, defaultTTL time.Duration, adapter *httpcontext.Adapter, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		auth:        auth,
		jwtSecret:   jwtSecret,
		jwtIssuer:   jwtIssuer,
		defaultTTL:  defaultTTL,
	}
}

type sessionResponse struct {
	Session *domain.Session `json:"session"`
	Token   string          `json:"token,omitempty"`
}

// @Summary Open a session and mint an access token
// @Tags auth
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(ctx *fasthttp.RequestCtx) {
	var req transport.AuthLoginRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, domain.NewError(domain.ErrCodeInvalid, "invalid request body"))
		return
	}
	if req.UserID == "" || req.Email == "" {
		h.respondError(ctx, domain.NewError(domain.ErrCodeInvalid, "user_id and email are required"))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ttl := h.defaultTTL
	if req.TTL > 0 {
		ttl = time.Duration(req.TTL) * time.Second
	}

	session, err := h.auth.CreateSession(stdCtx, req.UserID, req.Email, ttl)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	token, err := h.mintToken(session)
	if err != nil {
		h.logger.Error("token signing failed", zap.Error(err))
		h.respondError(ctx, domain.WrapError(domain.ErrCodeInternal, "failed to mint token", err))
		return
	}

	h.respondSuccess(ctx, http.StatusCreated, sessionResponse{Session: session, Token: token})
}

// @Summary Extend an existing session
// @Tags auth
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(ctx *fasthttp.RequestCtx) {
	var req transport.RefreshRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.SessionID == "" {
		h.respondError(ctx, domain.NewError(domain.ErrCodeInvalid, "session_id is required"))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ttl := h.defaultTTL
	if req.TTL > 0 {
		ttl = time.Duration(req.TTL) * time.Second
	}

	session, err := h.auth.RefreshSession(stdCtx, req.SessionID, ttl)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	token, err := h.mintToken(session)
	if err != nil {
		h.logger.Error("token signing failed", zap.Error(err))
		h.respondError(ctx, domain.WrapError(domain.ErrCodeInternal, "failed to mint token", err))
		return
	}

	h.respondSuccess(ctx, http.StatusOK, sessionResponse{Session: session, Token: token})
}

// @Summary Revoke a session
// @Tags auth
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(ctx *fasthttp.RequestCtx) {
	var req transport.LogoutRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.SessionID == "" {
		h.respondError(ctx, domain.NewError(domain.ErrCodeInvalid, "session_id is required"))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.auth.RevokeSession(stdCtx, req.SessionID); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *AuthHandler) mintToken(session *domain.Session) (string, error) {
	claims := jwt.MapClaims{
		"user_id": session.UserID,
		"sid":     session.ID,
		"iss":     h.jwtIssuer,
		"iat":     session.CreatedAt.Unix(),
		"exp":     session.ExpiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}
