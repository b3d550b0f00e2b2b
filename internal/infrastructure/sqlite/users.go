package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/meal-scheduler/internal/domain/user"
	"github.com/example/meal-scheduler/internal/internaltypes"
)

func (s *Store) Create(ctx context.Context, u user.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_enc, address_id, active, created_at) VALUES (?,?,?,?,?,?)`,
		u.ID, u.Email, u.PasswordEnc, u.AddressID, u.Active, fmtTS(u.CreatedAt),
	)
	return err
}

const userColumns = `id, email, password_enc, address_id, active, created_at, last_run_at`

func (s *Store) Get(ctx context.Context, id string) (user.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
}

func (s *Store) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=?`, email))
}

func (s *Store) List(ctx context.Context, activeOnly bool) ([]user.User, error) {
	q := `SELECT ` + userColumns + ` FROM users`
	if activeOnly {
		q += ` WHERE active=1`
	}
	q += ` ORDER BY created_at, email`
	rows, err := s.db.QueryContext(ctx, q)
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

func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	return s.execOne(ctx, `UPDATE users SET active=? WHERE id=?`, active, id)
}

func (s *Store) TouchLastRun(ctx context.Context, id string, at time.Time) error {
	return s.execOne(ctx, `UPDATE users SET last_run_at=? WHERE id=?`, fmtTS(at), id)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM users WHERE id=?`, id)
}

func (s *Store) CreateOperator(ctx context.Context, o user.Operator) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO operators (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		o.ID, o.Username, o.PasswordHash, fmtTS(o.CreatedAt),
	)
	return err
}

func (s *Store) GetOperatorByUsername(ctx context.Context, username string) (user.Operator, error) {
	var o user.Operator
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM operators WHERE username=?`, username,
	).Scan(&o.ID, &o.Username, &o.PasswordHash, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.Operator{}, internaltypes.ErrNotFound
		}
		return user.Operator{}, err
	}
	o.CreatedAt, err = parseTS(created)
	return o, err
}

func (s *Store) execOne(ctx context.Context, q string, args ...any) error {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return internaltypes.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (user.User, error) {
	var u user.User
	var created string
	var lastRun sql.NullString
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordEnc, &u.AddressID, &u.Active, &created, &lastRun); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, internaltypes.ErrNotFound
		}
		return user.User{}, err
	}
	var err error
	if u.CreatedAt, err = parseTS(created); err != nil {
		return user.User{}, err
	}
	if lastRun.Valid {
		t, err := parseTS(lastRun.String)
		if err != nil {
			return user.User{}, err
		}
		u.LastRunAt = &t
	}
	return u, nil
}
