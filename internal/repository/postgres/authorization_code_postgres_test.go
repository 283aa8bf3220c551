package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/EmotiveImpact/appfounders-oauth/internal/domain"
	"github.com/EmotiveImpact/appfounders-oauth/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestCreateAuthorizationCode(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuthorizationCodeRepository(db)

	code := &domain.AuthorizationCode{
		ID:          uuid.New(),
		CodeHash:    "hash",
		ClientID:    uuid.New(),
		UserID:      uuid.New(),
		RedirectURI: "https://app.example.com/callback",
		Scope:       "read write",
		ExpiresAt:   time.Now().Add(10 * time.Minute),
	}

	mock.ExpectExec(`INSERT INTO authorization_codes`).
		WithArgs(code.ID, code.CodeHash, code.ClientID, code.UserID,
			code.RedirectURI, code.Scope, false, code.ExpiresAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), code)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The consume must be one conditional UPDATE carrying the used = FALSE
// predicate. A read followed by a write would reopen the replay race.
func TestConsumeIsSingleConditionalUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuthorizationCodeRepository(db)

	id := uuid.New()
	clientID := uuid.New()
	userID := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "code_hash", "client_id", "user_id", "redirect_uri",
		"scope", "used", "expires_at", "created_at",
	}).AddRow(id.String(), "hash", clientID.String(), userID.String(),
		"https://app.example.com/callback", "read", true,
		now.Add(10*time.Minute), now)

	mock.ExpectQuery(`UPDATE authorization_codes\s+SET used = TRUE\s+WHERE code_hash = \$1 AND client_id = \$2 AND redirect_uri = \$3 AND used = FALSE\s+RETURNING`).
		WithArgs("hash", clientID, "https://app.example.com/callback").
		WillReturnRows(rows)

	code, err := repo.Consume(context.Background(), "hash", clientID, "https://app.example.com/callback")
	require.NoError(t, err)
	assert.Equal(t, id, code.ID)
	assert.Equal(t, userID, code.UserID)
	assert.True(t, code.Used)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeMissesMapToNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuthorizationCodeRepository(db)

	clientID := uuid.New()
	mock.ExpectQuery(`UPDATE authorization_codes`).
		WithArgs("hash", clientID, "https://app.example.com/callback").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Consume(context.Background(), "hash", clientID, "https://app.example.com/callback")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteExpiredCodes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuthorizationCodeRepository(db)

	mock.ExpectExec(`DELETE FROM authorization_codes\s+WHERE expires_at < NOW\(\)`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := repo.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
