package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// mysqlDuplicateEntry is MySQL/MariaDB error ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// UserRepository defines the data access contract for user records.
// Missing users are reported with an apperror not-found error; Create must
// reject a taken email with ErrDuplicateEmail.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, name, email, passwordHash string) (*User, error)
}

// mariaDBUserRepository implements UserRepository with hand-written MariaDB queries.
type mariaDBUserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a user repository backed by the given DB pool.
func NewUserRepository(db *sql.DB) UserRepository {
	return &mariaDBUserRepository{db: db}
}

// FindByEmail retrieves a user by email address.
func (r *mariaDBUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by email: %w", err)
	}
	return user, nil
}

// FindByID retrieves a user by primary key.
func (r *mariaDBUserRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT id, name, email, password_hash, created_at FROM users WHERE id = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by id: %w", err)
	}
	return user, nil
}

// Create inserts a user row. The UNIQUE email index makes the insert itself
// the authoritative duplicate check, so two racing registrations cannot both
// succeed.
func (r *mariaDBUserRepository) Create(ctx context.Context, name, email, passwordHash string) (*User, error) {
	query := `INSERT INTO users (name, email, password_hash, created_at) VALUES (?, ?, ?, ?)`

	createdAt := time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, query, name, email, passwordHash, createdAt)
	if err != nil {
		if isDuplicateEntry(err) {
			return nil, ErrDuplicateEmail.WithInternal(err)
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading inserted user id: %w", err)
	}

	return &User{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    createdAt,
	}, nil
}

// scanUser reads one users row.
func scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
		return nil, err
	}
	return user, nil
}

// isDuplicateEntry reports whether err is a unique-key violation.
func isDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}
