package caretaker

import "time"

// Role classifies an account. Only caretaker accounts receive alerts.
type Role string

const (
	RoleCaretaker Role = "CARETAKER"
	RoleViewer    Role = "VIEWER"
)

func (r Role) Valid() bool {
	return r == RoleCaretaker || r == RoleViewer
}

// Caretaker is a staff account. Credentials live with the external identity
// provider; this service only tracks role and enablement for alert routing.
type Caretaker struct {
	Username  string
	Role      Role
	Enabled   bool
	CreatedAt time.Time
}
