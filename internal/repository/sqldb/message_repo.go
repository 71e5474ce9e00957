package sqldb

import (
	"context"
	"database/sql"

	"apao/internal/domain"
)

const messageColumns = `id, remitenteId, destinatarioId, eventoId, texto, timestamp, leido`

type messageRepository struct {
	DB *sql.DB
}

func NewMessageRepository(db *sql.DB) domain.MessageRepository {
	return &messageRepository{DB: db}
}

func (r *messageRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Message, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	messages := []*domain.Message{}
	for rows.Next() {
		m := &domain.Message{}
		var eventID sql.NullString
		var ts int64
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &eventID, &m.Text, &ts, &m.Read); err != nil {
			return nil, err
		}
		m.EventID = stringPtr(eventID)
		m.Timestamp = fromMillis(ts)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// ListByUser returns every message the user sent or received, newest first.
func (r *messageRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM mensajes
		WHERE destinatarioId = $1 OR remitenteId = $1
		ORDER BY timestamp DESC`
	return r.list(ctx, query, userID)
}

// ListBetween returns the conversation between two users in either direction, oldest first.
func (r *messageRepository) ListBetween(ctx context.Context, userA, userB string) ([]*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM mensajes
		WHERE (remitenteId = $1 AND destinatarioId = $2) OR (remitenteId = $2 AND destinatarioId = $1)
		ORDER BY timestamp ASC`
	return r.list(ctx, query, userA, userB)
}

func (r *messageRepository) ListAll(ctx context.Context) ([]*domain.Message, error) {
	return r.list(ctx, `SELECT `+messageColumns+` FROM mensajes ORDER BY timestamp ASC`)
}

func (r *messageRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM mensajes WHERE destinatarioId = $1 AND leido = $2`, userID, false).Scan(&n)
	return n, err
}

func (r *messageRepository) Upsert(ctx context.Context, m *domain.Message) error {
	query := `
		INSERT INTO mensajes (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET texto = EXCLUDED.texto, leido = EXCLUDED.leido
	`
	_, err := r.DB.ExecContext(ctx, query, m.ID, m.SenderID, m.ReceiverID, nullString(m.EventID), m.Text, toMillis(m.Timestamp), m.Read)
	return err
}

func (r *messageRepository) Update(ctx context.Context, m *domain.Message) error {
	query := `
		UPDATE mensajes
		SET remitenteId = $1, destinatarioId = $2, eventoId = $3, texto = $4, timestamp = $5, leido = $6
		WHERE id = $7
	`
	result, err := r.DB.ExecContext(ctx, query, m.SenderID, m.ReceiverID, nullString(m.EventID), m.Text, toMillis(m.Timestamp), m.Read, m.ID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *messageRepository) MarkRead(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `UPDATE mensajes SET leido = $1 WHERE id = $2`, true, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
