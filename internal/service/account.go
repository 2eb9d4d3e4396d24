package service

import (
	"context"
	"errors"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/iliyamo/film-festival/internal/model"
	"github.com/iliyamo/film-festival/internal/repository"
	"github.com/iliyamo/film-festival/internal/utils"
)

// AccountConfig holds the token and password settings of Accounts.
type AccountConfig struct {
	JWTSecret   string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	BcryptCost  int
	AdminEmails []string // registering with one of these grants ADMIN
}

// Session is what register, login and refresh hand back: the user with
// a fresh access token and refresh token.
type Session struct {
	User    *model.User
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// Accounts registers users and issues and rotates their tokens.
type Accounts struct {
	deps
	cfg AccountConfig
}

// NewAccounts returns the account component over store.
func NewAccounts(store repository.Store, cfg AccountConfig, opts Options) *Accounts {
	admins := make([]string, 0, len(cfg.AdminEmails))
	for _, e := range cfg.AdminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			admins = append(admins, e)
		}
	}
	cfg.AdminEmails = admins
	return &Accounts{deps: newDeps(store, opts, "accounts"), cfg: cfg}
}

// Register creates a USER account, or an ADMIN one for configured
// addresses, and signs it in.
func (a *Accounts) Register(ctx context.Context, username, email, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	switch {
	case username == "":
		return nil, a.fail(ctx, "Register", newError(KindMissingField, "username is required"))
	case email == "":
		return nil, a.fail(ctx, "Register", newError(KindMissingField, "email is required"))
	case password == "":
		return nil, a.fail(ctx, "Register", newError(KindMissingField, "password is required"))
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, a.fail(ctx, "Register", newError(KindInvalidField, "email is not a valid address"))
	}

	hash, err := utils.HashPassword(password, a.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, utils.ErrWeakPassword) {
			return nil, a.fail(ctx, "Register", newError(KindInvalidField, "password must be at least 8 characters"))
		}
		return nil, a.fail(ctx, "Register", err)
	}

	u := &model.User{Username: username, Email: email, PasswordHash: hash, Role: model.RoleUser}
	if slices.Contains(a.cfg.AdminEmails, email) {
		u.Role = model.RoleAdmin
	}
	var s *Session
	err = a.store.RunInTx(ctx, func(tx repository.Tx) error {
		if err := tx.CreateUser(ctx, u); err != nil {
			return onDuplicate(err, KindAccountExists, "")
		}
		var err error
		s, err = a.issue(ctx, tx, u)
		return err
	})
	if err != nil {
		return nil, a.fail(ctx, "Register", err)
	}
	a.log.InfoContext(ctx, "user registered", "user_id", u.ID, "role", u.Role)
	return s, nil
}

// Login verifies login (username or email) and password.
func (a *Accounts) Login(ctx context.Context, login, password string) (*Session, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, a.fail(ctx, "Login", newError(KindMissingField, "login and password are required"))
	}
	var u *model.User
	err := a.store.View(ctx, func(tx repository.Tx) error {
		var err error
		u, err = tx.GetUserByLogin(ctx, login)
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, a.fail(ctx, "Login", newError(KindUnauthorized, ""))
	}
	if err != nil {
		return nil, a.fail(ctx, "Login", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, a.fail(ctx, "Login", newError(KindUnauthorized, ""))
	}

	var s *Session
	err = a.store.RunInTx(ctx, func(tx repository.Tx) error {
		var err error
		s, err = a.issue(ctx, tx, u)
		return err
	})
	if err != nil {
		return nil, a.fail(ctx, "Login", err)
	}
	return s, nil
}

// Refresh exchanges a live refresh token for a new session. The old
// token is revoked in the same transaction; when a concurrent refresh
// revoked it first the exchange fails as unauthorized.
func (a *Accounts) Refresh(ctx context.Context, raw string) (*Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, a.fail(ctx, "Refresh", newError(KindMissingField, "refresh_token is required"))
	}
	hash := utils.HashRefreshRaw(raw)
	var s *Session
	err := a.store.RunInTx(ctx, func(tx repository.Tx) error {
		userID, err := tx.ValidateRefresh(ctx, hash, a.now())
		if err != nil {
			return invalidRefresh(err)
		}
		if err := tx.RevokeRefresh(ctx, hash); err != nil {
			return invalidRefresh(err)
		}
		u, err := tx.GetUserByID(ctx, userID)
		if err != nil {
			return invalidRefresh(err)
		}
		s, err = a.issue(ctx, tx, u)
		return err
	})
	if err != nil {
		return nil, a.fail(ctx, "Refresh", err)
	}
	return s, nil
}

// Logout revokes a live refresh token.
func (a *Accounts) Logout(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return a.fail(ctx, "Logout", newError(KindMissingField, "refresh_token is required"))
	}
	hash := utils.HashRefreshRaw(raw)
	err := a.store.RunInTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.ValidateRefresh(ctx, hash, a.now()); err != nil {
			return invalidRefresh(err)
		}
		return invalidRefresh(tx.RevokeRefresh(ctx, hash))
	})
	if err != nil {
		return a.fail(ctx, "Logout", err)
	}
	return nil
}

// Me returns the account behind userID.
func (a *Accounts) Me(ctx context.Context, userID uint64) (*model.User, error) {
	var u *model.User
	err := a.store.View(ctx, func(tx repository.Tx) error {
		var err error
		u, err = tx.GetUserByID(ctx, userID)
		return notFound(err, "user")
	})
	if err != nil {
		return nil, a.fail(ctx, "Me", err)
	}
	return u, nil
}

// issue signs an access token and stores the hash of a new refresh token.
func (a *Accounts) issue(ctx context.Context, tx repository.Tx, u *model.User) (*Session, error) {
	now := a.now()
	access, err := utils.NewAccessToken(a.cfg.JWTSecret, u.ID, u.Role, a.cfg.AccessTTL, now)
	if err != nil {
		return nil, err
	}
	refresh, err := utils.NewRefreshToken(a.cfg.RefreshTTL, now)
	if err != nil {
		return nil, err
	}
	if err := tx.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return nil, err
	}
	return &Session{User: u, Access: access, Refresh: refresh}, nil
}

func invalidRefresh(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &Error{Kind: KindUnauthorized, Detail: "invalid refresh token", Cause: err}
	}
	return err
}
