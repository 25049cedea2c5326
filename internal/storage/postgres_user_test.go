package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gitlab.com/voxlane/api/voicedash/internal/apperrors"
	"gitlab.com/voxlane/api/voicedash/internal/model"
)

// --- User Repository Tests ---

// TestPostgresRepo_UpsertUser_Insert tests provisioning a previously unseen email.
func TestPostgresRepo_UpsertUser_Insert(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	number := "+6281111111111"
	name := "Main Line"
	user := model.User{
		Name:           "Alice",
		Email:          "alice@example.com",
		PasswordHash:   "$2a$10$fakehashfakehashfakehash",
		ReceiverNumber: &number,
		ReceiverName:   &name,
	}

	mock.ExpectBegin()

	selectQuery := `SELECT * FROM "users" WHERE email = $1 ORDER BY "users"."id" LIMIT $2 FOR UPDATE`
	mock.ExpectQuery(selectQuery).
		WithArgs(user.Email, 1).
		WillReturnError(gorm.ErrRecordNotFound)

	insertQuery := `INSERT INTO "users" ("name","email","password_hash","receiver_number","receiver_name","created_at","updated_at") VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING "id"`
	mock.ExpectQuery(insertQuery).
		WithArgs(
			user.Name, user.Email, user.PasswordHash, user.ReceiverNumber, user.ReceiverName,
			AnyTime{}, AnyTime{},
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	mock.ExpectCommit()

	stored, err := repo.Upsert(ctx, user)

	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.ID)
	assert.Equal(t, user.Email, stored.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresRepo_UpsertUser_Update tests re-provisioning an existing email.
// The row keeps its primary key and created_at; the supplied receiver number
// is rewritten while the omitted receiver name stays untouched.
func TestPostgresRepo_UpsertUser_Update(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()
	existingCreatedAt := now.Add(-time.Hour)
	existingID := int64(7)

	newNumber := "+6282222222222"
	user := model.User{
		Name:           "Alice Renamed",
		Email:          "alice@example.com",
		PasswordHash:   "$2a$10$newhashnewhashnewhash",
		ReceiverNumber: &newNumber,
		ReceiverName:   nil,
	}

	existingCols := []string{"id", "name", "email", "password_hash", "receiver_number", "receiver_name", "created_at", "updated_at"}
	existingRows := sqlmock.NewRows(existingCols).
		AddRow(existingID, "Alice", user.Email, "$2a$10$oldhash", "+6281111111111", "Old Line", existingCreatedAt, now.Add(-time.Minute))

	mock.ExpectBegin()

	selectQuery := `SELECT * FROM "users" WHERE email = $1 ORDER BY "users"."id" LIMIT $2 FOR UPDATE`
	mock.ExpectQuery(selectQuery).
		WithArgs(user.Email, 1).
		WillReturnRows(existingRows)

	// Map-based Updates: columns in alphabetical order. receiver_name is
	// absent because it was not supplied.
	updateQuery := `UPDATE "users" SET "name"=$1,"password_hash"=$2,"receiver_number"=$3,"updated_at"=$4 WHERE "id" = $5`
	mock.ExpectExec(updateQuery).
		WithArgs(
			user.Name,
			user.PasswordHash,
			user.ReceiverNumber,
			AnyTime{},
			existingID,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	stored, err := repo.Upsert(ctx, user)

	require.NoError(t, err)
	assert.Equal(t, existingID, stored.ID)
	assert.Equal(t, existingCreatedAt, stored.CreatedAt)
	require.NotNil(t, stored.ReceiverNumber)
	assert.Equal(t, newNumber, *stored.ReceiverNumber)
	require.NotNil(t, stored.ReceiverName)
	assert.Equal(t, "Old Line", *stored.ReceiverName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresRepo_UpsertUser_Update_PreservesOmittedMapping tests that
// re-provisioning without receiver fields (a password rotation, say) never
// widens the user's visibility: both mapping columns stay out of the UPDATE.
func TestPostgresRepo_UpsertUser_Update_PreservesOmittedMapping(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()
	existingID := int64(7)

	user := model.User{
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$rotatedhashrotatedhash",
	}

	existingCols := []string{"id", "name", "email", "password_hash", "receiver_number", "receiver_name", "created_at", "updated_at"}
	existingRows := sqlmock.NewRows(existingCols).
		AddRow(existingID, "Alice", user.Email, "$2a$10$oldhash", "+6281111111111", "Main Line", time.Now().Add(-time.Hour), time.Now())

	mock.ExpectBegin()

	selectQuery := `SELECT * FROM "users" WHERE email = $1 ORDER BY "users"."id" LIMIT $2 FOR UPDATE`
	mock.ExpectQuery(selectQuery).
		WithArgs(user.Email, 1).
		WillReturnRows(existingRows)

	updateQuery := `UPDATE "users" SET "name"=$1,"password_hash"=$2,"updated_at"=$3 WHERE "id" = $4`
	mock.ExpectExec(updateQuery).
		WithArgs(user.Name, user.PasswordHash, AnyTime{}, existingID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	stored, err := repo.Upsert(ctx, user)

	require.NoError(t, err)
	require.NotNil(t, stored.ReceiverNumber)
	assert.Equal(t, "+6281111111111", *stored.ReceiverNumber)
	require.NotNil(t, stored.ReceiverName)
	assert.Equal(t, "Main Line", *stored.ReceiverName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresRepo_UpsertUser_Update_EmptyStringClears tests the explicit
// clear: an empty-string receiver number NULLs the column and the returned
// user is unrestricted.
func TestPostgresRepo_UpsertUser_Update_EmptyStringClears(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()
	existingID := int64(7)

	empty := ""
	user := model.User{
		Name:           "Alice",
		Email:          "alice@example.com",
		PasswordHash:   "$2a$10$samehashsamehash",
		ReceiverNumber: &empty,
	}

	existingCols := []string{"id", "name", "email", "password_hash", "receiver_number", "receiver_name", "created_at", "updated_at"}
	existingRows := sqlmock.NewRows(existingCols).
		AddRow(existingID, "Alice", user.Email, "$2a$10$samehashsamehash", "+6281111111111", "Main Line", time.Now().Add(-time.Hour), time.Now())

	mock.ExpectBegin()

	selectQuery := `SELECT * FROM "users" WHERE email = $1 ORDER BY "users"."id" LIMIT $2 FOR UPDATE`
	mock.ExpectQuery(selectQuery).
		WithArgs(user.Email, 1).
		WillReturnRows(existingRows)

	updateQuery := `UPDATE "users" SET "name"=$1,"password_hash"=$2,"receiver_number"=$3,"updated_at"=$4 WHERE "id" = $5`
	mock.ExpectExec(updateQuery).
		WithArgs(user.Name, user.PasswordHash, nil, AnyTime{}, existingID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	stored, err := repo.Upsert(ctx, user)

	require.NoError(t, err)
	assert.Nil(t, stored.ReceiverNumber)
	require.NotNil(t, stored.ReceiverName)
	assert.Equal(t, "Main Line", *stored.ReceiverName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresRepo_FindUserByEmail_Success tests the login lookup.
func TestPostgresRepo_FindUserByEmail_Success(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	selectQuery := `SELECT * FROM "users" WHERE email = $1 ORDER BY "users"."id" LIMIT $2`
	rows := sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "receiver_number", "receiver_name"}).
		AddRow(3, "Bob", "bob@example.com", "$2a$10$hash", nil, nil)
	mock.ExpectQuery(selectQuery).WithArgs("bob@example.com", 1).WillReturnRows(rows)

	user, err := repo.FindByEmail(ctx, "bob@example.com")

	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)
	assert.Nil(t, user.ReceiverNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresRepo_FindUserByEmail_NotFound tests the missing-user path.
func TestPostgresRepo_FindUserByEmail_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	selectQuery := `SELECT * FROM "users" WHERE email = $1 ORDER BY "users"."id" LIMIT $2`
	mock.ExpectQuery(selectQuery).WithArgs("ghost@example.com", 1).WillReturnError(gorm.ErrRecordNotFound)

	user, err := repo.FindByEmail(ctx, "ghost@example.com")

	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresRepo_FindUserByID_NotFound tests lookup of a nonexistent id.
func TestPostgresRepo_FindUserByID_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	selectQuery := `SELECT * FROM "users" WHERE id = $1 ORDER BY "users"."id" LIMIT $2`
	mock.ExpectQuery(selectQuery).WithArgs(int64(999), 1).WillReturnError(gorm.ErrRecordNotFound)

	user, err := repo.FindByID(ctx, 999)

	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
