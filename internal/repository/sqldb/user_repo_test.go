package sqldb

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"apao/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{"id", "email", "password", "name", "profileImage", "bio", "fechaRegistro", "estado"}

func TestUserRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	registered := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		user    *domain.User
		mock    func(mock sqlmock.Sqlmock)
		wantErr bool
		errIs   error
	}{
		{
			name: "success",
			user: domain.NewUser("user-1", "alice@x.com", "pw1", "Alice", registered),
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO usuarios`).
					WithArgs("user-1", "alice@x.com", "pw1", "Alice", sql.NullString{}, sql.NullString{}, registered.UnixMilli(), domain.StatusActive).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "postgres unique violation returns ErrDuplicateEmail",
			user: domain.NewUser("user-2", "alice@x.com", "pw", "Other", registered),
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO usuarios`).
					WillReturnError(&pq.Error{Code: "23505"})
			},
			wantErr: true,
			errIs:   domain.ErrDuplicateEmail,
		},
		{
			name: "sqlite unique violation returns ErrDuplicateEmail",
			user: domain.NewUser("user-2", "alice@x.com", "pw", "Other", registered),
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO usuarios`).
					WillReturnError(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique})
			},
			wantErr: true,
			errIs:   domain.ErrDuplicateEmail,
		},
		{
			name: "db error",
			user: domain.NewUser("user-3", "b@x.com", "pw", "B", registered),
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO usuarios`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewUserRepository(db)
			err = repo.Upsert(ctx, tt.user)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errIs != nil {
					require.ErrorIs(t, err, tt.errIs)
				}
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByCredentials(t *testing.T) {
	ctx := context.Background()
	registered := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

	t.Run("match", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, email, password, name`).
			WithArgs("alice@x.com", "pw1").
			WillReturnRows(sqlmock.NewRows(userRowColumns).
				AddRow("user-1", "alice@x.com", "pw1", "Alice", nil, "runner", registered.UnixMilli(), "ACTIVO"))

		u, err := NewUserRepository(db).GetByCredentials(ctx, "alice@x.com", "pw1")
		require.NoError(t, err)
		require.Equal(t, "user-1", u.ID)
		require.Nil(t, u.ProfileImage)
		require.NotNil(t, u.Bio)
		require.Equal(t, "runner", *u.Bio)
		require.True(t, registered.Equal(u.RegisteredAt))
		require.Empty(t, u.Sports)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no match is ErrNotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, email, password, name`).
			WithArgs("alice@x.com", "wrong").
			WillReturnRows(sqlmock.NewRows(userRowColumns))

		_, err = NewUserRepository(db).GetByCredentials(ctx, "alice@x.com", "wrong")
		require.ErrorIs(t, err, domain.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_Update(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		mock  func(mock sqlmock.Sqlmock)
		errIs error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE usuarios`).
					WithArgs("alice@x.com", "pw1", "Alice", sql.NullString{}, sql.NullString{}, "ACTIVO", "user-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "not found zero rows affected",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE usuarios`).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			errIs: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			u := domain.NewUser("user-1", "alice@x.com", "pw1", "Alice", time.Now())
			err = NewUserRepository(db).Update(ctx, u)
			if tt.errIs != nil {
				require.ErrorIs(t, err, tt.errIs)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_Count(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM usuarios`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := NewUserRepository(db).Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
