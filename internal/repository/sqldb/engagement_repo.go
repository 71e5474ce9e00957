package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"apao/internal/domain"
)

type likeRepository struct {
	DB *sql.DB
}

func NewLikeRepository(db *sql.DB) domain.LikeRepository {
	return &likeRepository{DB: db}
}

func (r *likeRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.Like, error) {
	query := `
		SELECT id, eventoId, usuarioId, fechaLike
		FROM likes
		WHERE eventoId = $1
		ORDER BY fechaLike
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	likes := []*domain.Like{}
	for rows.Next() {
		l := &domain.Like{}
		var likedAt int64
		if err := rows.Scan(&l.ID, &l.EventID, &l.UserID, &likedAt); err != nil {
			return nil, err
		}
		l.LikedAt = fromMillis(likedAt)
		likes = append(likes, l)
	}
	return likes, rows.Err()
}

func (r *likeRepository) CountByEvent(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM likes WHERE eventoId = $1`, eventID).Scan(&n)
	return n, err
}

func (r *likeRepository) Get(ctx context.Context, eventID, userID string) (*domain.Like, error) {
	query := `
		SELECT id, eventoId, usuarioId, fechaLike
		FROM likes
		WHERE eventoId = $1 AND usuarioId = $2
	`
	l := &domain.Like{}
	var likedAt int64
	err := r.DB.QueryRowContext(ctx, query, eventID, userID).Scan(&l.ID, &l.EventID, &l.UserID, &likedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	l.LikedAt = fromMillis(likedAt)
	return l, nil
}

// Upsert stores the like. A second like for the same (event, user) pair is ignored.
func (r *likeRepository) Upsert(ctx context.Context, l *domain.Like) error {
	query := `
		INSERT INTO likes (id, eventoId, usuarioId, fechaLike)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (eventoId, usuarioId) DO NOTHING
	`
	_, err := r.DB.ExecContext(ctx, query, l.ID, l.EventID, l.UserID, toMillis(l.LikedAt))
	return err
}

func (r *likeRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM likes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *likeRepository) DeleteByEventAndUser(ctx context.Context, eventID, userID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM likes WHERE eventoId = $1 AND usuarioId = $2`, eventID, userID)
	return err
}

type commentRepository struct {
	DB *sql.DB
}

func NewCommentRepository(db *sql.DB) domain.CommentRepository {
	return &commentRepository{DB: db}
}

// ListByEvent returns the event's comments, newest first.
func (r *commentRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.Comment, error) {
	return r.list(ctx, `
		SELECT id, usuarioId, usuarioNombre, texto, timestamp
		FROM comentarios
		WHERE eventoId = $1
		ORDER BY timestamp DESC, orden DESC
	`, eventID)
}

// ListByEventChronological returns the event's comments in posting order.
// Comments sharing a timestamp keep the order they were inserted in.
func (r *commentRepository) ListByEventChronological(ctx context.Context, eventID string) ([]*domain.Comment, error) {
	return r.list(ctx, `
		SELECT id, usuarioId, usuarioNombre, texto, timestamp
		FROM comentarios
		WHERE eventoId = $1
		ORDER BY orden ASC, timestamp ASC
	`, eventID)
}

func (r *commentRepository) list(ctx context.Context, query, eventID string) ([]*domain.Comment, error) {
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	comments := []*domain.Comment{}
	for rows.Next() {
		c := &domain.Comment{}
		var ts int64
		if err := rows.Scan(&c.ID, &c.UserID, &c.UserName, &c.Text, &ts); err != nil {
			return nil, err
		}
		c.Timestamp = fromMillis(ts)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *commentRepository) CountByEvent(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM comentarios WHERE eventoId = $1`, eventID).Scan(&n)
	return n, err
}

func (r *commentRepository) Upsert(ctx context.Context, eventID string, c *domain.Comment) error {
	query := `
		INSERT INTO comentarios (id, eventoId, usuarioId, usuarioNombre, texto, timestamp, orden)
		VALUES ($1, $2, $3, $4, $5, $6, (SELECT COALESCE(MAX(orden), 0) + 1 FROM comentarios WHERE eventoId = $2))
		ON CONFLICT (id) DO UPDATE
		SET usuarioNombre = EXCLUDED.usuarioNombre, texto = EXCLUDED.texto
	`
	_, err := r.DB.ExecContext(ctx, query, c.ID, eventID, c.UserID, c.UserName, c.Text, toMillis(c.Timestamp))
	return err
}

func (r *commentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM comentarios WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
