package entity

// Role doubles as the wire sender_type: customers are "user", staff are "admin".
type Role string

const (
	UserRole  Role = "user"
	AdminRole Role = "admin"
)

func (r Role) Valid() bool {
	return r == UserRole || r == AdminRole
}

// Counterpart returns the role on the other side of a room.
func (r Role) Counterpart() Role {
	if r == AdminRole {
		return UserRole
	}
	return AdminRole
}

// Identity is the local participant of a chat session.
type Identity struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Email    string `json:"email" yaml:"email"`
	Token    string `json:"-" yaml:"token"`
	TenantID string `json:"tenant_id" yaml:"tenant_id"`
	Role     Role   `json:"role" yaml:"role"`
}
