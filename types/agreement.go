package types

import "time"

// Agreement is the persisted record of a resident's step-2 questionnaire:
// the danger disclosure plus the seven individual agreements. One row per
// resident, keyed by the owning User's internal id.
type Agreement struct {
	UserID        string `json:"user_id" db:"user_id"`
	Danger        bool   `json:"danger" db:"danger"`
	DangerDetails string `json:"danger_details,omitempty" db:"danger_details"`

	AdmitAlcoholic      bool `json:"admit_alcoholic" db:"admit_alcoholic"`
	CommittedToRecovery bool `json:"committed_to_recovery" db:"committed_to_recovery"`
	Sober72Hours        bool `json:"sober_72_hours" db:"sober_72_hours"`
	Commit30Days        bool `json:"commit_30_days" db:"commit_30_days"`
	FollowHouseRules    bool `json:"follow_house_rules" db:"follow_house_rules"`
	BecomeMember        bool `json:"become_member" db:"become_member"`
	NoSexCrimes         bool `json:"no_sex_crimes" db:"no_sex_crimes"`

	// AcceptAll is derived from the seven agreements at submission time.
	AcceptAll bool `json:"accept_all" db:"accept_all"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
