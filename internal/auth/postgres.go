package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"gatehouse.org/internal/ids"
)

const pgErrUniqueViolation = "23505"

var _ Directory = (*PGDirectory)(nil)

// PGDirectory implements Directory on PostgreSQL. Uniqueness of the
// email column is enforced by the database, which makes Create an
// atomic insert-if-absent: a registration race loses cleanly with
// ErrDuplicateEmail instead of a double insert.
type PGDirectory struct {
	db *sql.DB
}

// NewPGDirectory wraps an open database handle.
func NewPGDirectory(db *sql.DB) *PGDirectory {
	return &PGDirectory{db: db}
}

const userColumns = `id, email, name, phone, age, address, role, active, password_hash, created_at, updated_at`

func (d *PGDirectory) FindByEmail(ctx context.Context, email string) (User, error) {
	row := d.db.QueryRowContext(ctx, `
		select `+userColumns+`
		from users
		where lower(email) = lower($1)
	`, email)
	return scanUser(row)
}

func (d *PGDirectory) FindByID(ctx context.Context, id string) (User, error) {
	row := d.db.QueryRowContext(ctx, `
		select `+userColumns+`
		from users
		where id = $1
	`, id)
	return scanUser(row)
}

func (d *PGDirectory) Create(ctx context.Context, nu NewUser) (User, error) {
	id := ids.New()
	row := d.db.QueryRowContext(ctx, `
		insert into users (id, email, name, role, active, password_hash)
		values ($1, $2, $3, $4, true, $5)
		returning `+userColumns+`
	`, id, nu.Email, nu.Name, string(RoleUser), nu.PasswordHash)
	user, err := scanUser(row)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return User{}, ErrDuplicateEmail
		}
		return User{}, err
	}
	return user, nil
}

func (d *PGDirectory) Update(ctx context.Context, id string, upd UserUpdate) (User, error) {
	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.Name != nil {
		add("name", strings.TrimSpace(*upd.Name))
	}
	if upd.Phone != nil {
		add("phone", strings.TrimSpace(*upd.Phone))
	}
	if upd.Age != nil {
		add("age", *upd.Age)
	}
	if upd.Address != nil {
		add("address", strings.TrimSpace(*upd.Address))
	}
	if upd.Active != nil {
		add("active", *upd.Active)
	}
	if len(sets) == 0 {
		return d.FindByID(ctx, id)
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)
	row := d.db.QueryRowContext(ctx, fmt.Sprintf(`
		update users
		set %s
		where id = $%d
		returning %s
	`, strings.Join(sets, ", "), len(args), userColumns), args...)
	return scanUser(row)
}

func (d *PGDirectory) SetActive(ctx context.Context, id string, active bool) error {
	res, err := d.db.ExecContext(ctx, `
		update users set active = $1, updated_at = now() where id = $2
	`, active, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (d *PGDirectory) Delete(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (d *PGDirectory) List(ctx context.Context, filter ListFilter) ([]User, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	rows, err := d.db.QueryContext(ctx, `
		select `+userColumns+`
		from users
		where ($1 = '' or name ilike '%' || $1 || '%')
		order by created_at desc
		limit $2 offset $3
	`, strings.TrimSpace(filter.Name), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var (
		u       User
		role    string
		phone   sql.NullString
		age     sql.NullInt64
		address sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &phone, &age, &address, &role, &u.Active, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.Phone = phone.String
	u.Age = int(age.Int64)
	u.Address = address.String
	parsed, ok := ParseRole(role)
	if !ok {
		return User{}, fmt.Errorf("user %s has unknown role %q", u.ID, role)
	}
	u.Role = parsed
	return u, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
