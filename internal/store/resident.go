package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harbor-house/apiserver/types"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// ResidentRepository handles persistence for the User+Resident pair.
type ResidentRepository struct {
	db *sql.DB
}

func NewResidentRepository(db *sql.DB) *ResidentRepository {
	return &ResidentRepository{db: db}
}

// CreateResident durably creates the User and Resident rows in one
// transaction. The new user's role set is fixed to the default resident
// role at this stage. Expected failures (duplicate email, phone, or
// external id) come back as typed SaveErrors inside the result; the method
// itself never returns an error.
func (r *ResidentRepository) CreateResident(ctx context.Context, sub types.Registration) RegisterResult {
	now := time.Now()

	birthdate := types.NormalizeDate(sub.Birthdate)
	if birthdate == "" {
		// Placeholder: intake does not collect a birthdate yet.
		birthdate = types.CivilDate(now)
	}
	sobrietyDate := types.NormalizeDate(sub.SobrietyDate)
	step := normalizeStep(sub.Step)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error().Err(err).Str("component", "CreateResident").Msg("begin transaction")
		return saveFailed(err)
	}

	userID := uuid.NewString()

	const insertUser = `
		INSERT INTO users (id, external_id, name, birthdate, email, phone_number, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := tx.ExecContext(
		ctx,
		insertUser,
		userID,
		sub.ExternalID,
		sub.DisplayName(),
		birthdate,
		sub.Email,
		sub.PhoneNumber,
		pq.Array(types.DefaultRoles),
		now,
		now,
	); err != nil {
		_ = tx.Rollback()
		return saveFailed(err)
	}

	const insertResident = `
		INSERT INTO residents (user_id, sobriety_date, sponsor, step, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(
		ctx,
		insertResident,
		userID,
		sobrietyDate,
		nullable(sub.Sponsor),
		step,
		now,
		now,
	); err != nil {
		_ = tx.Rollback()
		return saveFailed(err)
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return saveFailed(err)
	}

	return RegisterResult{OK: true, UserID: userID}
}

// ListResidents joins users and residents and projects the roster columns.
// Rows come back in storage order.
func (r *ResidentRepository) ListResidents(ctx context.Context) ([]types.RosterRow, error) {
	const query = `
		SELECT u.id, u.name, u.email, u.phone_number, r.sobriety_date, r.sponsor, r.step
		FROM residents r
		INNER JOIN users u ON u.id = r.user_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roster := make([]types.RosterRow, 0)
	for rows.Next() {
		var row types.RosterRow
		var sobriety time.Time
		var sponsor sql.NullString
		if err := rows.Scan(
			&row.ID,
			&row.Name,
			&row.Email,
			&row.PhoneNumber,
			&sobriety,
			&sponsor,
			&row.Step,
		); err != nil {
			return nil, err
		}
		row.SobrietyDate = types.CivilDate(sobriety)
		row.Sponsor = sponsor.String
		roster = append(roster, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roster, nil
}

// GetResident loads the joined detail for a single user id.
func (r *ResidentRepository) GetResident(ctx context.Context, id string) (types.RosterDetail, error) {
	const query = `
		SELECT u.id, u.external_id, u.name, u.birthdate, u.email, u.phone_number, r.sobriety_date, r.sponsor, r.step
		FROM residents r
		INNER JOIN users u ON u.id = r.user_id
		WHERE u.id = $1`
	var detail types.RosterDetail
	var birthdate, sobriety time.Time
	var sponsor sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&detail.ID,
		&detail.ExternalID,
		&detail.Name,
		&birthdate,
		&detail.Email,
		&detail.PhoneNumber,
		&sobriety,
		&sponsor,
		&detail.Step,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.RosterDetail{}, ErrNotFound
		}
		return types.RosterDetail{}, err
	}
	detail.Birthdate = types.CivilDate(birthdate)
	detail.SobrietyDate = types.CivilDate(sobriety)
	detail.Sponsor = sponsor.String
	return detail, nil
}

// UpdateResident writes both tables' mutable fields inside one transaction.
func (r *ResidentRepository) UpdateResident(ctx context.Context, id string, patch types.ResidentPatch) error {
	now := time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	const updateUser = `
		UPDATE users
		SET name = $1,
			birthdate = $2,
			email = $3,
			phone_number = $4,
			updated_at = $5
		WHERE id = $6`
	result, err := tx.ExecContext(
		ctx,
		updateUser,
		patch.Name,
		types.NormalizeDate(patch.Birthdate),
		patch.Email,
		patch.PhoneNumber,
		now,
		id,
	)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if affected == 0 {
		_ = tx.Rollback()
		return ErrNotFound
	}

	const updateResident = `
		UPDATE residents
		SET sobriety_date = $1,
			sponsor = $2,
			step = $3,
			updated_at = $4
		WHERE user_id = $5`
	result, err = tx.ExecContext(
		ctx,
		updateResident,
		types.NormalizeDate(patch.SobrietyDate),
		nullable(patch.Sponsor),
		normalizeStep(patch.Step),
		now,
		id,
	)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	affected, err = result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if affected == 0 {
		_ = tx.Rollback()
		return ErrNotFound
	}

	return tx.Commit()
}

// normalizeStep clamps the step input to "1".."12", defaulting to "1" when
// absent or unparsable.
func normalizeStep(raw string) string {
	step, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || step < 1 || step > 12 {
		return "1"
	}
	return strconv.Itoa(step)
}

func nullable(value string) sql.NullString {
	value = strings.TrimSpace(value)
	return sql.NullString{String: value, Valid: value != ""}
}
