package types

import "strings"

// Registration is the transient step-1 intake aggregate. It exists only
// for the duration of one workflow invocation and is never persisted as
// its own entity.
type Registration struct {
	ExternalID   string `json:"external_id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	FullName     string `json:"full_name,omitempty"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phone"`
	Birthdate    string `json:"birthdate,omitempty"`
	SobrietyDate string `json:"sobriety_date"`
	Sponsor      string `json:"sponsor"`
	Step         string `json:"step"`
}

// DisplayName resolves the stored name: the explicit full name when
// provided, otherwise first and last name joined.
func (r Registration) DisplayName() string {
	if name := strings.TrimSpace(r.FullName); name != "" {
		return name
	}
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// Questionnaire is the transient step-2 agreement submission. The client
// echoes back the user id it remembers so the workflow can detect a
// session mismatch.
type Questionnaire struct {
	UserID        string `json:"user_id"`
	Danger        bool   `json:"danger"`
	DangerDetails string `json:"danger_details,omitempty"`

	AdmitAlcoholic      bool `json:"admit_alcoholic"`
	CommittedToRecovery bool `json:"committed_to_recovery"`
	Sober72Hours        bool `json:"sober_72_hours"`
	Commit30Days        bool `json:"commit_30_days"`
	FollowHouseRules    bool `json:"follow_house_rules"`
	BecomeMember        bool `json:"become_member"`
	NoSexCrimes         bool `json:"no_sex_crimes"`
}

// AcceptAll reports whether every individual agreement was checked.
func (q Questionnaire) AcceptAll() bool {
	return q.AdmitAlcoholic &&
		q.CommittedToRecovery &&
		q.Sober72Hours &&
		q.Commit30Days &&
		q.FollowHouseRules &&
		q.BecomeMember &&
		q.NoSexCrimes
}
