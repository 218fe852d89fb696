package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/harbor-house/apiserver/types"
)

// AgreementRepository persists step-2 questionnaire answers, one row per
// resident.
type AgreementRepository struct {
	db *sql.DB
}

func NewAgreementRepository(db *sql.DB) *AgreementRepository {
	return &AgreementRepository{db: db}
}

// SaveForExternalID upserts the agreement row for the user owning the
// given external id. Returns ErrNotFound when no such user exists.
func (r *AgreementRepository) SaveForExternalID(ctx context.Context, externalID string, agreement types.Agreement) error {
	now := time.Now()

	const query = `
		INSERT INTO agreements (
			user_id, danger, danger_details,
			admit_alcoholic, committed_to_recovery, sober_72_hours, commit_30_days,
			follow_house_rules, become_member, no_sex_crimes, accept_all,
			created_at, updated_at
		)
		SELECT u.id, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12
		FROM users u
		WHERE u.external_id = $1
		ON CONFLICT (user_id) DO UPDATE
		SET danger = EXCLUDED.danger,
			danger_details = EXCLUDED.danger_details,
			admit_alcoholic = EXCLUDED.admit_alcoholic,
			committed_to_recovery = EXCLUDED.committed_to_recovery,
			sober_72_hours = EXCLUDED.sober_72_hours,
			commit_30_days = EXCLUDED.commit_30_days,
			follow_house_rules = EXCLUDED.follow_house_rules,
			become_member = EXCLUDED.become_member,
			no_sex_crimes = EXCLUDED.no_sex_crimes,
			accept_all = EXCLUDED.accept_all,
			updated_at = EXCLUDED.updated_at`
	result, err := r.db.ExecContext(
		ctx,
		query,
		externalID,
		agreement.Danger,
		agreement.DangerDetails,
		agreement.AdmitAlcoholic,
		agreement.CommittedToRecovery,
		agreement.Sober72Hours,
		agreement.Commit30Days,
		agreement.FollowHouseRules,
		agreement.BecomeMember,
		agreement.NoSexCrimes,
		agreement.AcceptAll,
		now,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByUserID loads the agreement row for a resident.
func (r *AgreementRepository) GetByUserID(ctx context.Context, userID string) (types.Agreement, error) {
	const query = `
		SELECT user_id, danger, danger_details,
			admit_alcoholic, committed_to_recovery, sober_72_hours, commit_30_days,
			follow_house_rules, become_member, no_sex_crimes, accept_all,
			created_at, updated_at
		FROM agreements
		WHERE user_id = $1`
	var agreement types.Agreement
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&agreement.UserID,
		&agreement.Danger,
		&agreement.DangerDetails,
		&agreement.AdmitAlcoholic,
		&agreement.CommittedToRecovery,
		&agreement.Sober72Hours,
		&agreement.Commit30Days,
		&agreement.FollowHouseRules,
		&agreement.BecomeMember,
		&agreement.NoSexCrimes,
		&agreement.AcceptAll,
		&agreement.CreatedAt,
		&agreement.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Agreement{}, ErrNotFound
		}
		return types.Agreement{}, err
	}
	return agreement, nil
}
