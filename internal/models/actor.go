package models

import "time"

// Role identifies which account partition an actor lives in. The set is
// closed; it is carried inside the signed token and trusted for lookups.
type Role string

const (
	RoleTenant Role = "tenant"
	RoleOwner  Role = "owner"
	RoleBroker Role = "broker"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r names one of the four account partitions.
func (r Role) Valid() bool {
	switch r {
	case RoleTenant, RoleOwner, RoleBroker, RoleAdmin:
		return true
	}
	return false
}

// Lister reports whether accounts of this role can post properties.
func (r Role) Lister() bool {
	return r == RoleOwner || r == RoleBroker || r == RoleAdmin
}

// Actor is the application-facing view of an account from any of the four
// partitions. Role is the discriminant: Verified is meaningful only for
// owners and brokers, HiredBroker only for tenants.
type Actor struct {
	ID           int64     `json:"id"`
	Role         Role      `json:"role"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Location     string    `json:"location,omitempty"`
	Verified     bool      `json:"isVerified,omitempty"`
	HiredBroker  *int64    `json:"hiredBroker,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
