package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Almirante-Ming/Rose/kv"
	"github.com/Almirante-Ming/Rose/role"
	"github.com/Almirante-Ming/Rose/token"
	"go.uber.org/zap"
)

const (
	tokenKey        = "jwt_token"
	userKey         = "user_data"
	persistLoginKey = "persist_login"
)

var ErrNotAuthenticated = errors.New("not authenticated")

type User struct {
	ID    int64     `json:"id"`
	Email string    `json:"email"`
	Role  role.Role `json:"role"`
}

// Store keeps the signed token and the user projection derived from it.
type Store struct {
	kv     kv.Store
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewStore(store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:     store,
		now:    time.Now,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With(zap.String("component", "session"))

	return s
}

func (s *Store) SaveToken(ctx context.Context, raw string) error {
	if len(raw) == 0 {
		return errors.New("token cannot be empty")
	}

	if err := s.kv.Set(ctx, tokenKey, raw); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	return nil
}

// Token returns the stored token, or an empty string when there is none.
func (s *Store) Token(ctx context.Context) (string, error) {
	raw, _, err := s.kv.Get(ctx, tokenKey)

	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}

	return raw, nil
}

func (s *Store) SaveUser(ctx context.Context, user User) error {
	body, err := json.Marshal(user)

	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	if err := s.kv.Set(ctx, userKey, string(body)); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

// User returns the stored user, or nil when there is none.
func (s *Store) User(ctx context.Context) (*User, error) {
	body, found, err := s.kv.Get(ctx, userKey)

	if err != nil {
		return nil, fmt.Errorf("failed to read user: %w", err)
	}

	if !found {
		return nil, nil
	}

	var user User

	if err := json.Unmarshal([]byte(body), &user); err != nil {
		s.logger.Warn("discarding unreadable user data", zap.Error(err))
		return nil, nil
	}

	return &user, nil
}

func (s *Store) SetPersistLogin(ctx context.Context, persist bool) error {
	if err := s.kv.Set(ctx, persistLoginKey, strconv.FormatBool(persist)); err != nil {
		return fmt.Errorf("failed to save persist login preference: %w", err)
	}

	return nil
}

func (s *Store) PersistLogin(ctx context.Context) (bool, error) {
	value, _, err := s.kv.Get(ctx, persistLoginKey)

	if err != nil {
		return false, fmt.Errorf("failed to read persist login preference: %w", err)
	}

	return value == "true", nil
}

// IsExpired reports whether raw is past its expiry. Undecodable tokens are
// expired.
func (s *Store) IsExpired(raw string) bool {
	payload, err := token.Decode(raw)

	if err != nil {
		return true
	}

	return payload.Expired(s.now())
}

// IsAuthenticated reports whether an unexpired token is stored. An expired
// token is cleared through Logout.
func (s *Store) IsAuthenticated(ctx context.Context) (bool, error) {
	raw, err := s.Token(ctx)

	if err != nil {
		return false, err
	}

	if len(raw) == 0 {
		return false, nil
	}

	if s.IsExpired(raw) {
		s.logger.Info("stored token expired, clearing session")

		if err := s.Logout(ctx); err != nil {
			return false, err
		}

		return false, nil
	}

	return true, nil
}

// Logout removes the token and the user. The persist-login flag is only
// removed when it was off; a remembered login keeps its flag.
func (s *Store) Logout(ctx context.Context) error {
	persist, err := s.PersistLogin(ctx)

	if err != nil {
		return err
	}

	if err := s.kv.Delete(ctx, tokenKey); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	if err := s.kv.Delete(ctx, userKey); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if !persist {
		if err := s.kv.Delete(ctx, persistLoginKey); err != nil {
			return fmt.Errorf("failed to delete persist login preference: %w", err)
		}
	}

	return nil
}

// UserID returns the user id carried by the stored token.
func (s *Store) UserID(ctx context.Context) (int64, error) {
	payload, err := s.payload(ctx)

	if err != nil {
		return 0, err
	}

	if !payload.HasUserID {
		return 0, ErrNotAuthenticated
	}

	return payload.UserID, nil
}

// CurrentRole derives the role from the access level in the stored token.
func (s *Store) CurrentRole(ctx context.Context) (role.Role, error) {
	payload, err := s.payload(ctx)

	if err != nil {
		return role.Role{}, err
	}

	return role.FromLevel(payload.AccessLevel), nil
}

func (s *Store) UserFromToken(raw string) (User, error) {
	payload, err := token.Decode(raw)

	if err != nil {
		return User{}, err
	}

	if !payload.HasUserID {
		return User{}, fmt.Errorf("%w: token has no user id", token.ErrDecode)
	}

	return User{
		ID:    payload.UserID,
		Email: payload.Subject,
		Role:  role.FromLevel(payload.AccessLevel),
	}, nil
}

func (s *Store) payload(ctx context.Context) (token.Payload, error) {
	raw, err := s.Token(ctx)

	if err != nil {
		return token.Payload{}, err
	}

	if len(raw) == 0 {
		return token.Payload{}, ErrNotAuthenticated
	}

	payload, err := token.Decode(raw)

	if err != nil {
		s.logger.Warn("stored token is unreadable", zap.Error(err))
		return token.Payload{}, ErrNotAuthenticated
	}

	return payload, nil
}
