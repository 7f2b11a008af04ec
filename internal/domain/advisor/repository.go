package advisor

import (
	"context"
)

// Repository defines the operations for persisting and retrieving Advisor entities.
type Repository interface {
	Create(ctx context.Context, a *Advisor) error
	GetByID(ctx context.Context, id string) (*Advisor, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*Advisor, error) // missing ids are simply absent
	Update(ctx context.Context, a *Advisor) error                            // Name, Email, TelegramID, IsActive
	ListActive(ctx context.Context) ([]*Advisor, error)
	ListAll(ctx context.Context) ([]*Advisor, error)
}
