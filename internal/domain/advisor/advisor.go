package advisor

import (
	"database/sql"
	"errors"
	"time"
)

var (
	ErrAdvisorNotFound = errors.New("advisor not found")
	ErrDuplicateEmail  = errors.New("advisor with this email already exists")
)

// Advisor is a digest recipient registered in the directory.
type Advisor struct {
	ID         string // external advisor id, as found on notifications
	Name       string
	Email      string
	TelegramID sql.NullInt64 // optional chat for urgent notices, set by /link_advisor
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
