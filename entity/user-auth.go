package entity

import (
	"LiveDesk/internal/lib/validate"
	"net/http"
)

// UserAuth is the principal resolved from a bearer token by the reference directory.
type UserAuth struct {
	ID       string `json:"id" bson:"id" validate:"required"`
	Name     string `json:"name" bson:"name" validate:"required"`
	Email    string `json:"email" bson:"email" validate:"omitempty,email"`
	TenantID string `json:"tenant_id" bson:"tenant_id" validate:"required"`
	Role     Role   `json:"role" bson:"role" validate:"required,oneof=user admin"`
	Token    string `json:"-" bson:"token" validate:"required,min=1"`
}

func (u *UserAuth) Bind(_ *http.Request) error {
	return validate.Struct(u)
}

func (u *UserAuth) IsAdmin() bool {
	return u.Role == AdminRole
}

// Identity is the sender the directory stamps on frames and events of this principal.
func (u *UserAuth) Identity() Identity {
	return Identity{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		TenantID: u.TenantID,
		Role:     u.Role,
	}
}
