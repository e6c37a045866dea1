package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/21draw/ugc-finder/internal/models"
)

func mockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 conn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return New(db), mock
}

func TestProfileExists(t *testing.T) {
	st, mock := mockStore(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "profiles" WHERE username = \$1`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := st.ProfileExists(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileExistsFalse(t *testing.T) {
	st, mock := mockStore(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "profiles" WHERE username = \$1`).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	exists, err := st.ProfileExists(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpdateProfileMissingRow(t *testing.T) {
	st, mock := mockStore(t)
	mock.ExpectExec(`UPDATE "profiles" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := st.UpdateProfile(context.Background(), "nobody", map[string]interface{}{"status": models.StatusHumanReviewed})
	assert.True(t, IsNotFound(err))
}

func TestUpdateOutreachMissingRow(t *testing.T) {
	st, mock := mockStore(t)
	mock.ExpectExec(`UPDATE "outreach" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := st.UpdateOutreach(context.Background(), "nobody", map[string]interface{}{"status": models.OutreachContacted})
	assert.True(t, IsNotFound(err))
}

func TestGetProfileNotFound(t *testing.T) {
	st, mock := mockStore(t)
	mock.ExpectQuery(`SELECT \* FROM "profiles" WHERE username = \$1`).
		WithArgs("nobody", 1).
		WillReturnRows(sqlmock.NewRows([]string{"username"}))

	_, err := st.GetProfile(context.Background(), "nobody")
	assert.True(t, IsNotFound(err))
}

func TestIsDuplicate(t *testing.T) {
	assert.True(t, IsDuplicate(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicate(fmt.Errorf("inserting profile: %w", gorm.ErrDuplicatedKey)))
	assert.False(t, IsDuplicate(gorm.ErrRecordNotFound))
	assert.False(t, IsDuplicate(nil))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(gorm.ErrRecordNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("loading profile: %w", gorm.ErrRecordNotFound)))
	assert.False(t, IsNotFound(gorm.ErrDuplicatedKey))
	assert.False(t, IsNotFound(nil))
}
