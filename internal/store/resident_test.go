package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/harbor-house/apiserver/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *ResidentRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewResidentRepository(db)
	return db, mock, repo
}

func sampleRegistration() types.Registration {
	return types.Registration{
		ExternalID:   "user_2x",
		FirstName:    "A",
		LastName:     "B",
		Email:        "x@y.com",
		PhoneNumber:  "P",
		SobrietyDate: "2020-01-01",
		Sponsor:      "S",
		Step:         "1",
	}
}

func TestCreateResident_Success(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(
			sqlmock.AnyArg(), // generated user id
			"user_2x",
			"A B",
			sqlmock.AnyArg(), // birthdate placeholder
			"x@y.com",
			"P",
			sqlmock.AnyArg(), // roles array
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO residents`).
		WithArgs(
			sqlmock.AnyArg(), // same user id
			"2020-01-01",
			sql.NullString{String: "S", Valid: true},
			"1",
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result := repo.CreateResident(context.Background(), sampleRegistration())

	assert.True(t, result.OK)
	assert.Empty(t, result.Errors)
	assert.NotEmpty(t, result.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateResident_DuplicateEmail(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pq.Error{
			Code:       "23505",
			Constraint: "users_email_key",
			Detail:     "Key (email)=(x@y.com) already exists.",
		})
	mock.ExpectRollback()

	result := repo.CreateResident(context.Background(), sampleRegistration())

	require.False(t, result.OK)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, CodeDuplicate, result.Errors[0].Code)
	assert.Equal(t, "primaryEmailAddress", result.Errors[0].Field)
	assert.Equal(t, "A user with this email already exists.", result.Errors[0].Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateResident_DuplicatePhone(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_phone_number_key"})
	mock.ExpectRollback()

	result := repo.CreateResident(context.Background(), sampleRegistration())

	require.False(t, result.OK)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, CodeDuplicate, result.Errors[0].Code)
	assert.Equal(t, "phone", result.Errors[0].Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateResident_DuplicateExternalID(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_external_id_key"})
	mock.ExpectRollback()

	result := repo.CreateResident(context.Background(), sampleRegistration())

	require.False(t, result.OK)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "externalId", result.Errors[0].Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateResident_UnknownConstraintFallsBackToDetail(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pq.Error{
			Code:       "23505",
			Constraint: "users_mystery_idx",
			Detail:     "Key (mystery)=(42) already exists.",
		})
	mock.ExpectRollback()

	result := repo.CreateResident(context.Background(), sampleRegistration())

	require.False(t, result.OK)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, CodeDuplicate, result.Errors[0].Code)
	assert.Empty(t, result.Errors[0].Field)
	assert.Equal(t, "Key (mystery)=(42) already exists.", result.Errors[0].Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A mid-transaction failure rolls the whole pair back; the user insert is
// never committed on its own.
func TestCreateResident_ResidentInsertFailureRollsBack(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO residents`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	result := repo.CreateResident(context.Background(), sampleRegistration())

	require.False(t, result.OK)
	require.Len(t, result.Errors, 1)
	assert.Empty(t, result.Errors[0].Code)
	assert.Equal(t, "connection reset", result.Errors[0].Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListResidents(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	sobriety := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "name", "email", "phone_number", "sobriety_date", "sponsor", "step"}).
		AddRow("id-1", "A B", "x@y.com", "P", sobriety, "S", "1").
		AddRow("id-2", "C D", "c@d.com", "Q", sobriety, nil, "3")

	mock.ExpectQuery(`SELECT u.id, u.name`).WillReturnRows(rows)

	roster, err := repo.ListResidents(context.Background())

	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "A B", roster[0].Name)
	assert.Equal(t, "2020-01-01", roster[0].SobrietyDate)
	assert.Equal(t, "S", roster[0].Sponsor)
	assert.Empty(t, roster[1].Sponsor)
	assert.Equal(t, "3", roster[1].Step)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetResident_NotFound(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT u.id, u.external_id`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetResident(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateResident_NotFoundRollsBack(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.UpdateResident(context.Background(), "missing", types.ResidentPatch{
		Name:         "A B",
		Email:        "x@y.com",
		PhoneNumber:  "P",
		Birthdate:    "1990-06-15",
		SobrietyDate: "2020-01-01",
		Step:         "2",
	})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateResident_Success(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users`).
		WithArgs("A B", "1990-06-15", "x@y.com", "P", sqlmock.AnyArg(), "id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE residents`).
		WithArgs("2020-01-01", sql.NullString{}, "2", sqlmock.AnyArg(), "id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateResident(context.Background(), "id-1", types.ResidentPatch{
		Name:         "A B",
		Email:        "x@y.com",
		PhoneNumber:  "P",
		Birthdate:    "1990-06-15",
		SobrietyDate: "2020-01-01",
		Step:         "2",
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizeStep(t *testing.T) {
	assert.Equal(t, "1", normalizeStep(""))
	assert.Equal(t, "1", normalizeStep("abc"))
	assert.Equal(t, "1", normalizeStep("0"))
	assert.Equal(t, "1", normalizeStep("13"))
	assert.Equal(t, "7", normalizeStep(" 7 "))
	assert.Equal(t, "12", normalizeStep("12"))
}
