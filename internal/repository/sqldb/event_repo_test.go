package sqldb

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"apao/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eventRowColumns = []string{
	"id", "titulo", "descripcion", "deporte", "ubicacion", "fechaEvento", "hora", "maxParticipantes",
	"participantesActuales", "organizadorId", "organizadorNombre", "imagenUrl", "fechaCreacion", "estado",
}

func TestEventRepository_List(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		filter  domain.EventFilter
		mock    func(mock sqlmock.Sqlmock)
		wantIDs []string
		wantErr bool
	}{
		{
			name:   "no filter orders by creation",
			filter: domain.EventFilter{},
			mock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(eventRowColumns).
					AddRow("ev-2", "Partido", "", "Fútbol", "Parque", date.UnixMilli(), "10:00", 10, 0, "user-1", "Alice", nil, created.UnixMilli(), domain.StatusActive).
					AddRow("ev-1", "Ruta", "", "Ciclismo", "Sierra", date.UnixMilli(), "08:00", 5, 0, "user-1", "Alice", "http://img", created.UnixMilli(), domain.StatusActive)
				mock.ExpectQuery(regexp.QuoteMeta(`FROM eventos ORDER BY fechaCreacion DESC`)).
					WillReturnRows(rows)
			},
			wantIDs: []string{"ev-2", "ev-1"},
		},
		{
			name:   "organizer and sport bind in order",
			filter: domain.EventFilter{OrganizerID: "user-1", Sport: "Fútbol", Order: domain.OrderByDateAsc},
			mock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(eventRowColumns).
					AddRow("ev-2", "Partido", "", "Fútbol", "Parque", date.UnixMilli(), "10:00", 10, 0, "user-1", "Alice", nil, created.UnixMilli(), domain.StatusActive)
				mock.ExpectQuery(regexp.QuoteMeta(`WHERE organizadorId = $1 AND deporte = $2 ORDER BY fechaEvento ASC`)).
					WithArgs("user-1", "Fútbol").
					WillReturnRows(rows)
			},
			wantIDs: []string{"ev-2"},
		},
		{
			name:   "query error",
			filter: domain.EventFilter{Sport: "Tenis"},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM eventos`).WillReturnError(sql.ErrConnDone)
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
			events, err := NewEventRepository(db).List(ctx, tt.filter)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantIDs, eventIDs(events))
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		rows := sqlmock.NewRows(eventRowColumns).
			AddRow("ev-1", "Ruta", "Suave", "Ciclismo", "Sierra", date.UnixMilli(), "08:00", 5, 0, "user-1", "Alice", "http://img", created.UnixMilli(), domain.StatusActive)
		mock.ExpectQuery(`FROM eventos WHERE id = \$1`).WithArgs("ev-1").WillReturnRows(rows)

		e, err := NewEventRepository(db).GetByID(ctx, "ev-1")
		require.NoError(t, err)
		assert.Equal(t, "Ruta", e.Title)
		assert.True(t, e.Date.Equal(date))
		assert.True(t, e.CreatedAt.Equal(created))
		require.NotNil(t, e.ImageURL)
		assert.Equal(t, "http://img", *e.ImageURL)
		assert.Empty(t, e.Likes)
		assert.Empty(t, e.Comments)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing returns ErrNotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`FROM eventos WHERE id = \$1`).WithArgs("nope").WillReturnRows(sqlmock.NewRows(eventRowColumns))

		_, err = NewEventRepository(db).GetByID(ctx, "nope")
		require.ErrorIs(t, err, domain.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEventRepository_UpdateAndDelete_NotFound(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE eventos`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM eventos WHERE id = \$1`).WithArgs("ev-x").WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewEventRepository(db)
	err = repo.Update(ctx, &domain.Event{ID: "ev-x", Status: domain.StatusActive})
	require.ErrorIs(t, err, domain.ErrNotFound)
	err = repo.Delete(ctx, "ev-x")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepository_CountUnreadAndMarkRead(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM mensajes`).
		WithArgs("user-2", false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec(`UPDATE mensajes SET leido`).
		WithArgs(true, "msg-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE mensajes SET leido`).
		WithArgs(true, "msg-x").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewMessageRepository(db)
	n, err := repo.CountUnread(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, repo.MarkRead(ctx, "msg-1"))
	require.ErrorIs(t, repo.MarkRead(ctx, "msg-x"), domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
