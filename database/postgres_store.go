package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/princinho/sahoauth/database/migrations"
	"github.com/princinho/sahoauth/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const userColumns = `id, username, email, full_name, avatar, cover_image, password_hash,
	COALESCE(refresh_token, ''), created_at, updated_at`

type PostgresUserStore struct {
	pool *pgxpool.Pool
}

// NewPostgresUserStore connects to dsn and applies pending migrations.
func NewPostgresUserStore(ctx context.Context, dsn string) (*PostgresUserStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	s := &PostgresUserStore{pool: pool}
	if err := s.RunMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresUserStore) RunMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *PostgresUserStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	if username == "" && email == "" {
		return nil, ErrNotFound
	}
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users
		WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
		LIMIT 1`, username, email)
	return scanUser(row)
}

func (s *PostgresUserStore) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = bson.NewObjectID().Hex()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `INSERT INTO users
		(id, username, email, full_name, avatar, cover_image, password_hash, refresh_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10)`,
		user.ID, user.Username, user.Email, user.FullName, user.Avatar, user.CoverImage,
		user.PasswordHash, user.RefreshToken, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) UpdateFields(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	sets := []string{"updated_at = $1"}
	args := []any{time.Now().UTC()}
	add := func(col string, v *string) {
		if v == nil {
			return
		}
		args = append(args, *v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("full_name", upd.FullName)
	add("email", upd.Email)
	add("avatar", upd.Avatar)
	add("cover_image", upd.CoverImage)
	add("password_hash", upd.PasswordHash)

	args = append(args, id)
	q := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING `+userColumns,
		strings.Join(sets, ", "), len(args))

	user, err := scanUser(s.pool.QueryRow(ctx, q, args...))
	if err != nil && isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	return user, err
}

func (s *PostgresUserStore) SetRefreshToken(ctx context.Context, id, token string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET refresh_token = NULLIF($2, '') WHERE id = $1`, id, token)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresUserStore) SwapRefreshToken(ctx context.Context, id, expected, next string) error {
	if expected == "" {
		return ErrStaleToken
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET refresh_token = $3 WHERE id = $1 AND refresh_token = $2`,
		id, expected, next)
	if err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleToken
	}
	return nil
}

func (s *PostgresUserStore) Close(context.Context) error {
	s.pool.Close()
	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.Avatar, &u.CoverImage,
		&u.PasswordHash, &u.RefreshToken, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" // unique_violation
}
