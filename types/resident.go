package types

import "time"

// Resident is the program-specific extension of a User, one-to-one.
// Its key is the owning User's internal id; within the registration
// workflow a Resident never outlives its User.
type Resident struct {
	// UserID is the internal id of the owning User.
	UserID string `json:"user_id" db:"user_id"`

	// SobrietyDate is a civil date in YYYY-MM-DD form.
	SobrietyDate string `json:"sobriety_date" db:"sobriety_date"`

	// Sponsor is the resident's sponsor name, if any.
	Sponsor string `json:"sponsor,omitempty" db:"sponsor"`

	// Step is the resident's current step, "1" through "12".
	Step string `json:"step" db:"step"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RosterRow is the projection served by the roster list: users joined to
// residents on the internal user id.
type RosterRow struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phone_number"`
	SobrietyDate string `json:"sobriety_date"`
	Sponsor      string `json:"sponsor,omitempty"`
	Step         string `json:"step"`
}

// RosterDetail is the single-resident projection used by the detail and
// edit surfaces. It carries both tables' mutable fields.
type RosterDetail struct {
	ID           string `json:"id"`
	ExternalID   string `json:"external_id"`
	Name         string `json:"name"`
	Birthdate    string `json:"birthdate"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phone_number"`
	SobrietyDate string `json:"sobriety_date"`
	Sponsor      string `json:"sponsor,omitempty"`
	Step         string `json:"step"`
}

// ResidentPatch carries the mutable fields written by the roster edit
// operation. Both tables are updated in one transaction.
type ResidentPatch struct {
	Name         string `json:"name"`
	Birthdate    string `json:"birthdate"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phone_number"`
	SobrietyDate string `json:"sobriety_date"`
	Sponsor      string `json:"sponsor"`
	Step         string `json:"step"`
}
