package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Almirante-Ming/Rose/client"
	"github.com/Almirante-Ming/Rose/role"
	"github.com/Almirante-Ming/Rose/session"
	"github.com/Almirante-Ming/Rose/validate"
	"go.uber.org/zap"
)

type API interface {
	Get(ctx context.Context, path string, out any) error
	PostForm(ctx context.Context, path string, form url.Values, out any) error
}

// ConfigLoader pushes the saved base URL into the client before a session
// is restored.
type ConfigLoader interface {
	Load(ctx context.Context) (string, error)
}

type Credentials struct {
	Login        string `json:"username" validate:"required"`
	Password     string `json:"password" validate:"required"`
	PersistLogin *bool  `json:"-"`
}

// LoginResponse is the only accepted shape of a successful /login. An absent
// token_type means bearer.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type Status struct {
	Authenticated bool
	User          *session.User
	Role          role.Role
	Route         role.Route
}

type APIStatus struct {
	Online  bool
	Message string
}

type Service struct {
	api      API
	sessions *session.Store
	config   ConfigLoader
	logger   *zap.Logger
}

func NewService(api API, sessions *session.Store, config ConfigLoader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		api:      api,
		sessions: sessions,
		config:   config,
		logger:   logger.With(zap.String("component", "auth")),
	}
}

// Login exchanges credentials for a token and stores the session. The
// persist-login flag is only written when the caller sets it.
func (s *Service) Login(ctx context.Context, creds Credentials) (session.User, error) {
	creds.Login = strings.TrimSpace(creds.Login)

	if err := validate.Struct(creds); err != nil {
		return session.User{}, err
	}

	form := url.Values{
		"username": {creds.Login},
		"password": {creds.Password},
	}

	var raw json.RawMessage

	err := s.api.PostForm(ctx, "/login", form, &raw)

	var httpErr *client.HTTPError

	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized {
		s.logger.Info("login rejected", zap.String("login", creds.Login))
		return session.User{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}

	if err != nil {
		return session.User{}, err
	}

	token, err := parseLoginResponse(raw)

	if err != nil {
		s.logger.Error("unexpected login response", zap.Error(err))
		return session.User{}, err
	}

	user, err := s.sessions.UserFromToken(token)

	if err != nil {
		return session.User{}, fmt.Errorf("%w: %w", ErrMalformedLoginResponse, err)
	}

	if err := s.sessions.SaveToken(ctx, token); err != nil {
		return session.User{}, err
	}

	if err := s.sessions.SaveUser(ctx, user); err != nil {
		return session.User{}, err
	}

	if creds.PersistLogin != nil {
		if err := s.sessions.SetPersistLogin(ctx, *creds.PersistLogin); err != nil {
			return session.User{}, err
		}
	}

	s.logger.Info("logged in", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role.Name)))

	return user, nil
}

// AutoLogin reports whether a remembered, unexpired session exists.
func (s *Service) AutoLogin(ctx context.Context) (bool, error) {
	persist, err := s.sessions.PersistLogin(ctx)

	if err != nil {
		return false, err
	}

	if !persist {
		return false, nil
	}

	return s.sessions.IsAuthenticated(ctx)
}

// Restore runs at start-up: it loads the saved configuration and picks the
// route for a remembered session, or the login route.
func (s *Service) Restore(ctx context.Context) (Status, error) {
	if s.config != nil {
		if _, err := s.config.Load(ctx); err != nil {
			s.logger.Warn("failed to load saved configuration", zap.Error(err))
		}
	}

	ok, err := s.AutoLogin(ctx)

	if err != nil {
		return Status{Route: role.RouteLogin}, err
	}

	if !ok {
		return Status{Route: role.RouteLogin}, nil
	}

	return s.status(ctx)
}

// Current describes the stored session whether or not it is remembered.
func (s *Service) Current(ctx context.Context) (Status, error) {
	ok, err := s.sessions.IsAuthenticated(ctx)

	if err != nil {
		return Status{Route: role.RouteLogin}, err
	}

	if !ok {
		return Status{Route: role.RouteLogin}, nil
	}

	return s.status(ctx)
}

func (s *Service) Logout(ctx context.Context) error {
	if err := s.sessions.Logout(ctx); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}

	s.logger.Info("logged out")

	return nil
}

func (s *Service) HasPermission(ctx context.Context, permission role.Permission) bool {
	current, err := s.sessions.CurrentRole(ctx)

	return err == nil && current.Has(permission)
}

func (s *Service) IsAdmin(ctx context.Context) bool {
	current, err := s.sessions.CurrentRole(ctx)

	return err == nil && current.IsAdmin()
}

func (s *Service) IsTrainer(ctx context.Context) bool {
	current, err := s.sessions.CurrentRole(ctx)

	return err == nil && current.IsTrainer()
}

// CheckAPIStatus probes GET /. The server spells the flag "sucess".
func (s *Service) CheckAPIStatus(ctx context.Context) APIStatus {
	var res struct {
		Success bool   `json:"sucess"`
		Message string `json:"message"`
	}

	if err := s.api.Get(ctx, "/", &res); err != nil {
		s.logger.Warn("status check failed", zap.Error(err))
		return APIStatus{Online: false, Message: "Could not reach the server, contact support."}
	}

	if !res.Success {
		return APIStatus{Online: false, Message: "Servers under maintenance, try again later."}
	}

	return APIStatus{Online: true, Message: "Servers are up."}
}

func (s *Service) status(ctx context.Context) (Status, error) {
	user, err := s.sessions.User(ctx)

	if err != nil {
		return Status{Route: role.RouteLogin}, err
	}

	if user == nil {
		raw, err := s.sessions.Token(ctx)

		if err != nil {
			return Status{Route: role.RouteLogin}, err
		}

		rebuilt, err := s.sessions.UserFromToken(raw)

		if err != nil {
			return Status{Route: role.RouteLogin}, session.ErrNotAuthenticated
		}

		if err := s.sessions.SaveUser(ctx, rebuilt); err != nil {
			return Status{Route: role.RouteLogin}, err
		}

		user = &rebuilt
	}

	current, err := s.sessions.CurrentRole(ctx)

	if err != nil {
		return Status{Route: role.RouteLogin}, err
	}

	return Status{
		Authenticated: true,
		User:          user,
		Role:          current,
		Route:         role.RouteFor(current),
	}, nil
}

func parseLoginResponse(raw json.RawMessage) (string, error) {
	var res LoginResponse

	if err := json.Unmarshal(raw, &res); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedLoginResponse, err)
	}

	if len(strings.TrimSpace(res.AccessToken)) == 0 {
		return "", fmt.Errorf("%w: missing access_token", ErrMalformedLoginResponse)
	}

	if len(res.TokenType) > 0 && !strings.EqualFold(res.TokenType, "bearer") {
		return "", fmt.Errorf("%w: unsupported token_type '%v'", ErrMalformedLoginResponse, res.TokenType)
	}

	return res.AccessToken, nil
}
