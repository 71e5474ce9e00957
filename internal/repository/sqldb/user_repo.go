package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"apao/internal/domain"
)

const userColumns = `id, email, password, name, profileImage, bio, fechaRegistro, estado`

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{DB: db}
}

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	u := &domain.User{Sports: []string{}}
	var image, bio sql.NullString
	var registered int64
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Name, &image, &bio, &registered, &u.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	u.ProfileImage = stringPtr(image)
	u.Bio = stringPtr(bio)
	u.RegisteredAt = fromMillis(registered)
	return u, nil
}

func (r *userRepository) GetByCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM usuarios WHERE email = $1 AND password = $2`
	return scanUser(r.DB.QueryRowContext(ctx, query, email, password))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM usuarios WHERE email = $1`
	return scanUser(r.DB.QueryRowContext(ctx, query, email))
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM usuarios WHERE id = $1`
	return scanUser(r.DB.QueryRowContext(ctx, query, id))
}

// Upsert inserts the user or overwrites the row with the same id.
// Unlike REPLACE it never deletes the old row, so dependent rows survive.
func (r *userRepository) Upsert(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO usuarios (id, email, password, name, profileImage, bio, fechaRegistro, estado)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email, password = EXCLUDED.password, name = EXCLUDED.name,
			profileImage = EXCLUDED.profileImage, bio = EXCLUDED.bio, estado = EXCLUDED.estado
	`
	_, err := r.DB.ExecContext(ctx, query, u.ID, u.Email, u.Password, u.Name,
		nullString(u.ProfileImage), nullString(u.Bio), toMillis(u.RegisteredAt), u.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	query := `
		UPDATE usuarios
		SET email = $1, password = $2, name = $3, profileImage = $4, bio = $5, estado = $6
		WHERE id = $7
	`
	result, err := r.DB.ExecContext(ctx, query, u.Email, u.Password, u.Name,
		nullString(u.ProfileImage), nullString(u.Bio), u.Status, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM usuarios WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM usuarios`).Scan(&n)
	return n, err
}

type favoriteSportRepository struct {
	DB *sql.DB
}

func NewFavoriteSportRepository(db *sql.DB) domain.FavoriteSportRepository {
	return &favoriteSportRepository{DB: db}
}

func (r *favoriteSportRepository) ListByUser(ctx context.Context, userID string) ([]*domain.FavoriteSport, error) {
	query := `
		SELECT id, usuarioId, deporte, fechaAgregado
		FROM deportes_favoritos
		WHERE usuarioId = $1
		ORDER BY fechaAgregado
	`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sports []*domain.FavoriteSport
	for rows.Next() {
		s := &domain.FavoriteSport{}
		var added int64
		if err := rows.Scan(&s.ID, &s.UserID, &s.Sport, &added); err != nil {
			return nil, err
		}
		s.AddedAt = fromMillis(added)
		sports = append(sports, s)
	}
	return sports, rows.Err()
}

func (r *favoriteSportRepository) Upsert(ctx context.Context, s *domain.FavoriteSport) error {
	query := `
		INSERT INTO deportes_favoritos (id, usuarioId, deporte, fechaAgregado)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET usuarioId = EXCLUDED.usuarioId, deporte = EXCLUDED.deporte, fechaAgregado = EXCLUDED.fechaAgregado
	`
	_, err := r.DB.ExecContext(ctx, query, s.ID, s.UserID, s.Sport, toMillis(s.AddedAt))
	return err
}

func (r *favoriteSportRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM deportes_favoritos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
