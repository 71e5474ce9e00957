package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"apao/internal/domain"
)

const eventColumns = `id, titulo, descripcion, deporte, ubicacion, fechaEvento, hora, maxParticipantes,
	participantesActuales, organizadorId, organizadorNombre, imagenUrl, fechaCreacion, estado`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func scanEvent(row interface{ Scan(...any) error }) (*domain.Event, error) {
	e := &domain.Event{Likes: []string{}, Comments: []domain.Comment{}}
	var date, created int64
	var image sql.NullString
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Sport, &e.Location, &date, &e.Time, &e.MaxParticipants,
		&e.CurrentParticipants, &e.OrganizerID, &e.OrganizerName, &image, &created, &e.Status,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	e.Date = fromMillis(date)
	e.CreatedAt = fromMillis(created)
	e.ImageURL = stringPtr(image)
	return e, nil
}

// List returns events matching filter. Likes and comments are not loaded.
func (r *eventRepository) List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	var where []string
	var args []any
	if filter.OrganizerID != "" {
		args = append(args, filter.OrganizerID)
		where = append(where, fmt.Sprintf("organizadorId = $%d", len(args)))
	}
	if filter.Sport != "" {
		args = append(args, filter.Sport)
		where = append(where, fmt.Sprintf("deporte = $%d", len(args)))
	}
	query := `SELECT ` + eventColumns + ` FROM eventos`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	switch filter.Order {
	case domain.OrderByDateAsc:
		query += ` ORDER BY fechaEvento ASC`
	default:
		query += ` ORDER BY fechaCreacion DESC`
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := []*domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM eventos WHERE id = $1`
	return scanEvent(r.DB.QueryRowContext(ctx, query, id))
}

func (r *eventRepository) Upsert(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO eventos (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE
		SET titulo = EXCLUDED.titulo, descripcion = EXCLUDED.descripcion, deporte = EXCLUDED.deporte,
			ubicacion = EXCLUDED.ubicacion, fechaEvento = EXCLUDED.fechaEvento, hora = EXCLUDED.hora,
			maxParticipantes = EXCLUDED.maxParticipantes, participantesActuales = EXCLUDED.participantesActuales,
			organizadorNombre = EXCLUDED.organizadorNombre, imagenUrl = EXCLUDED.imagenUrl, estado = EXCLUDED.estado
	`
	_, err := r.DB.ExecContext(ctx, query,
		e.ID, e.Title, e.Description, e.Sport, e.Location, toMillis(e.Date), e.Time, e.MaxParticipants,
		e.CurrentParticipants, e.OrganizerID, e.OrganizerName, nullString(e.ImageURL), toMillis(e.CreatedAt), e.Status,
	)
	return err
}

func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	query := `
		UPDATE eventos
		SET titulo = $1, descripcion = $2, deporte = $3, ubicacion = $4, fechaEvento = $5, hora = $6,
			maxParticipantes = $7, participantesActuales = $8, organizadorNombre = $9, imagenUrl = $10, estado = $11
		WHERE id = $12
	`
	result, err := r.DB.ExecContext(ctx, query,
		e.Title, e.Description, e.Sport, e.Location, toMillis(e.Date), e.Time,
		e.MaxParticipants, e.CurrentParticipants, e.OrganizerName, nullString(e.ImageURL), e.Status, e.ID,
	)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the event; likes, comments and messages that reference it cascade.
func (r *eventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM eventos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
