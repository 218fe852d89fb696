package types

import "time"

// Role labels granted to users. Roles live in the identity provider's
// metadata and are mirrored onto the users row.
const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
	RoleResident = "resident"
)

// DefaultRoles is granted to a newly created resident when the caller
// supplies no role hints.
var DefaultRoles = []string{RoleResident}

// User represents an account holder.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the internal surrogate identifier, generated once and never reused.
	ID string `json:"id" db:"id"`

	// ExternalID is the subject issued by the external identity provider.
	// It is unique, immutable, and maps 1:1 to ID.
	ExternalID string `json:"external_id" db:"external_id"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Birthdate is a civil date in YYYY-MM-DD form.
	Birthdate string `json:"birthdate" db:"birthdate"`

	// Email is the user's email address. Globally unique.
	Email string `json:"email" db:"email"`

	// PhoneNumber is the user's phone number. Globally unique.
	PhoneNumber string `json:"phone_number" db:"phone_number"`

	// Roles holds the user's role labels (e.g., "resident", "employee",
	// "admin").
	Roles []string `json:"roles" db:"roles"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
