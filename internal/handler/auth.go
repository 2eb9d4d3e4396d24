package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/film-festival/internal/middleware"
	"github.com/iliyamo/film-festival/internal/model"
	"github.com/iliyamo/film-festival/internal/service"
)

// AuthHandler serves registration, login and token rotation.
type AuthHandler struct {
	base
	Accounts *service.Accounts
}

func NewAuthHandler(accounts *service.Accounts, timeout time.Duration, log *slog.Logger) *AuthHandler {
	return &AuthHandler{base: newBase(timeout, log), Accounts: accounts}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Login    string `json:"login"` // username or email
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func toUserPart(u *model.User) userPart {
	return userPart{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

func toAuthResp(s *service.Session) authResp {
	return authResp{
		User:    toUserPart(s.User),
		Access:  tokenPart{Token: s.Access.Token, Expires: s.Access.Exp},
		Refresh: tokenPart{Token: s.Refresh.Raw, Expires: s.Refresh.Exp}, // raw back to client
	}
}

// Register: create user and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, service.KindInvalidField, "invalid body")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	s, err := h.Accounts.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, toAuthResp(s))
}

// Login: verify and return new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, service.KindInvalidField, "invalid body")
	}
	login := req.Login
	if login == "" {
		login = req.Email
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	s, err := h.Accounts.Login(ctx, login, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toAuthResp(s))
}

// Refresh: validate by hash, revoke old, issue new.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, service.KindInvalidField, "invalid body")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	s, err := h.Accounts.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toAuthResp(s))
}

// Logout: revoke the given refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, service.KindInvalidField, "invalid body")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.Accounts.Logout(ctx, req.RefreshToken); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me: the signed-in account.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	u, err := h.Accounts.Me(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}
