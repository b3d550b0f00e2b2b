package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/meal-scheduler/internal/domain/user"
	"github.com/example/meal-scheduler/internal/internaltypes"
)

type UserRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *UserRepo { return &UserRepo{pool: pool} }

var (
	_ user.Repository         = (*UserRepo)(nil)
	_ user.OperatorRepository = (*UserRepo)(nil)
)

func (r *UserRepo) Create(ctx context.Context, u user.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_enc, address_id, active, created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Email, u.PasswordEnc, u.AddressID, u.Active, u.CreatedAt,
	)
	return err
}

const userColumns = `id, email, password_enc, address_id, active, created_at, last_run_at`

func (r *UserRepo) Get(ctx context.Context, id string) (user.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email))
}

func (r *UserRepo) List(ctx context.Context, activeOnly bool) ([]user.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE ($1 = false OR active)
		ORDER BY created_at, email`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepo) SetActive(ctx context.Context, id string, active bool) error {
	return r.execOne(ctx, `UPDATE users SET active=$2 WHERE id=$1`, id, active)
}

func (r *UserRepo) TouchLastRun(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx, `UPDATE users SET last_run_at=$2 WHERE id=$1`, id, at)
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM users WHERE id=$1`, id)
}

func (r *UserRepo) CreateOperator(ctx context.Context, o user.Operator) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO operators (id, username, password_hash, created_at) VALUES ($1,$2,$3,$4)`,
		o.ID, o.Username, o.PasswordHash, o.CreatedAt,
	)
	return err
}

func (r *UserRepo) GetOperatorByUsername(ctx context.Context, username string) (user.Operator, error) {
	var o user.Operator
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM operators WHERE username=$1`, username,
	).Scan(&o.ID, &o.Username, &o.PasswordHash, &o.CreatedAt)
	if err != nil {
		return user.Operator{}, wrapNotFound(err)
	}
	return o, nil
}

func (r *UserRepo) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return internaltypes.ErrNotFound
	}
	return nil
}

type row interface {
	Scan(dest ...any) error
}

func scanUser(rw row) (user.User, error) {
	var u user.User
	if err := rw.Scan(&u.ID, &u.Email, &u.PasswordEnc, &u.AddressID, &u.Active, &u.CreatedAt, &u.LastRunAt); err != nil {
		return user.User{}, wrapNotFound(err)
	}
	return u, nil
}
