package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// schema is portable between SQLite and PostgreSQL. Timestamps are Unix milliseconds.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS usuarios (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		name TEXT NOT NULL,
		profileImage TEXT,
		bio TEXT,
		fechaRegistro BIGINT NOT NULL,
		estado TEXT NOT NULL DEFAULT 'ACTIVO'
	)`,
	`CREATE TABLE IF NOT EXISTS deportes_favoritos (
		id TEXT PRIMARY KEY,
		usuarioId TEXT NOT NULL REFERENCES usuarios(id) ON DELETE CASCADE,
		deporte TEXT NOT NULL,
		fechaAgregado BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_deportes_favoritos_usuario ON deportes_favoritos (usuarioId)`,
	`CREATE TABLE IF NOT EXISTS eventos (
		id TEXT PRIMARY KEY,
		titulo TEXT NOT NULL,
		descripcion TEXT NOT NULL,
		deporte TEXT NOT NULL,
		ubicacion TEXT NOT NULL,
		fechaEvento BIGINT NOT NULL,
		hora TEXT NOT NULL,
		maxParticipantes INTEGER NOT NULL,
		participantesActuales INTEGER NOT NULL DEFAULT 0,
		organizadorId TEXT NOT NULL REFERENCES usuarios(id),
		organizadorNombre TEXT NOT NULL,
		imagenUrl TEXT,
		fechaCreacion BIGINT NOT NULL,
		estado TEXT NOT NULL DEFAULT 'ACTIVO'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_eventos_organizador ON eventos (organizadorId)`,
	`CREATE INDEX IF NOT EXISTS idx_eventos_fecha ON eventos (fechaEvento)`,
	`CREATE TABLE IF NOT EXISTS likes (
		id TEXT PRIMARY KEY,
		eventoId TEXT NOT NULL REFERENCES eventos(id) ON DELETE CASCADE,
		usuarioId TEXT NOT NULL REFERENCES usuarios(id) ON DELETE CASCADE,
		fechaLike BIGINT NOT NULL,
		UNIQUE (eventoId, usuarioId)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_likes_evento ON likes (eventoId)`,
	`CREATE INDEX IF NOT EXISTS idx_likes_usuario ON likes (usuarioId)`,
	`CREATE TABLE IF NOT EXISTS comentarios (
		id TEXT PRIMARY KEY,
		eventoId TEXT NOT NULL REFERENCES eventos(id) ON DELETE CASCADE,
		usuarioId TEXT NOT NULL REFERENCES usuarios(id) ON DELETE CASCADE,
		usuarioNombre TEXT NOT NULL,
		texto TEXT NOT NULL,
		timestamp BIGINT NOT NULL,
		orden BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_comentarios_evento ON comentarios (eventoId)`,
	`CREATE INDEX IF NOT EXISTS idx_comentarios_usuario ON comentarios (usuarioId)`,
	`CREATE TABLE IF NOT EXISTS mensajes (
		id TEXT PRIMARY KEY,
		remitenteId TEXT NOT NULL REFERENCES usuarios(id) ON DELETE CASCADE,
		destinatarioId TEXT NOT NULL REFERENCES usuarios(id) ON DELETE CASCADE,
		eventoId TEXT REFERENCES eventos(id) ON DELETE CASCADE,
		texto TEXT NOT NULL,
		timestamp BIGINT NOT NULL,
		leido BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_mensajes_remitente ON mensajes (remitenteId)`,
	`CREATE INDEX IF NOT EXISTS idx_mensajes_destinatario ON mensajes (destinatarioId)`,
	`CREATE INDEX IF NOT EXISTS idx_mensajes_evento ON mensajes (eventoId)`,
}

// Open connects to the given driver and verifies the connection.
// SQLite is limited to one connection so ":memory:" databases stay shared
// and foreign keys are enforced on it.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
		if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// Migrate creates every table and index that does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a unique constraint failure on either driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
