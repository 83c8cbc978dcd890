package caretaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/sentinel"
)

// Service manages caretaker accounts and resolves the alert recipient set.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Register creates a new account, enabled by default.
func (s *Service) Register(ctx context.Context, username string, role Role) (*Caretaker, error) {
	if username == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "username must not be empty")
	}
	if !role.Valid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown role: "+string(role))
	}
	c := &Caretaker{
		Username:  username,
		Role:      role,
		Enabled:   true,
		CreatedAt: time.Now(),
	}
	if err := s.store.Save(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "username already taken: "+username)
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "save caretaker", err)
	}
	s.logger.InfoContext(ctx, "caretaker registered", "username", username, "role", string(role))
	return c, nil
}

func (s *Service) List(ctx context.Context) ([]*Caretaker, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, username string) (*Caretaker, error) {
	c, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "caretaker "+username+" not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "load caretaker", err)
	}
	return c, nil
}

// Update changes role and/or enablement. Nil fields are left untouched.
func (s *Service) Update(ctx context.Context, username string, role *Role, enabled *bool) (*Caretaker, error) {
	c, err := s.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	if role != nil {
		if !role.Valid() {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown role: "+string(*role))
		}
		c.Role = *role
	}
	if enabled != nil {
		c.Enabled = *enabled
	}
	if err := s.store.Update(ctx, c); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "update caretaker", err)
	}
	s.logger.InfoContext(ctx, "caretaker updated",
		"username", username,
		"role", string(c.Role),
		"enabled", c.Enabled,
	)
	return c, nil
}

func (s *Service) Delete(ctx context.Context, username string) error {
	if err := s.store.Delete(ctx, username); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "caretaker "+username+" not found")
		}
		return dErrors.Wrap(dErrors.CodeInternal, "delete caretaker", err)
	}
	s.logger.InfoContext(ctx, "caretaker deleted", "username", username)
	return nil
}

// EnabledCaretakers resolves the alert recipient set: every enabled
// caretaker-role account.
func (s *Service) EnabledCaretakers(ctx context.Context) ([]string, error) {
	accounts, err := s.store.ListEnabledByRole(ctx, RoleCaretaker)
	if err != nil {
		return nil, err
	}
	usernames := make([]string, 0, len(accounts))
	for _, c := range accounts {
		usernames = append(usernames, c.Username)
	}
	return usernames, nil
}
