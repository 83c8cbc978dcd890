package caretaker

import "context"

// Store persists caretaker accounts.
type Store interface {
	Save(ctx context.Context, c *Caretaker) error
	FindByUsername(ctx context.Context, username string) (*Caretaker, error)
	List(ctx context.Context) ([]*Caretaker, error)
	// ListEnabledByRole returns enabled accounts with the given role.
	ListEnabledByRole(ctx context.Context, role Role) ([]*Caretaker, error)
	Update(ctx context.Context, c *Caretaker) error
	Delete(ctx context.Context, username string) error
}
