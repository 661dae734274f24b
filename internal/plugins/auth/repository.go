package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/chimibusiness/crm/internal/apperror"
)

// mysqlDuplicateEntry is the MySQL/MariaDB error number for a unique key
// violation.
const mysqlDuplicateEntry = 1062

// ErrDuplicateEmail is returned by Create when the email is already taken.
var ErrDuplicateEmail = errors.New("duplicate email")

// UserRepository defines the data access contract for user operations.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)

	// UpdateAdminPassword replaces the admin credential only if the stored
	// value still equals expected. Reports whether this call did the write.
	UpdateAdminPassword(ctx context.Context, id int64, newHash, expected string) (bool, error)

	// Admin operations.
	ListUsers(ctx context.Context, offset, limit int) ([]User, int, error)
	UpdateRole(ctx context.Context, id int64, role Role) error
	UpdateActive(ctx context.Context, id int64, active bool) error
}

// userRepository implements UserRepository with hand-written MariaDB queries.
type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository backed by the given DB pool.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, hashed_password, full_name, role,
	                 admin_password_hash, is_active, created_at`

// Create inserts a new user row and sets user.ID from the generated key.
// Returns ErrDuplicateEmail if the unique index on email rejects the row.
func (r *userRepository) Create(ctx context.Context, user *User) error {
	query := `INSERT INTO users (email, hashed_password, full_name, role, admin_password_hash, is_active, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		user.Email,
		user.PasswordHash,
		nullString(user.FullName),
		string(user.Role),
		user.AdminPassword,
		user.IsActive,
		user.CreatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading user id: %w", err)
	}
	user.ID = id

	return nil
}

// FindByID retrieves a user by primary key.
// Returns apperror.NotFound if no user exists with this ID.
func (r *userRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by id: %w", err)
	}

	return user, nil
}

// FindByEmail retrieves a user by their (normalized) email address.
// Returns apperror.NotFound if no user exists with this email.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by email: %w", err)
	}

	return user, nil
}

// EmailExists returns true if a user with the given email already exists.
// Used during registration to check for duplicates before hashing the password.
func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking email existence: %w", err)
	}

	return exists, nil
}

// UpdateAdminPassword is a compare-and-swap on admin_password_hash. When two
// requests race to migrate the same plaintext, exactly one sees true.
func (r *userRepository) UpdateAdminPassword(ctx context.Context, id int64, newHash, expected string) (bool, error) {
	query := `UPDATE users SET admin_password_hash = ?
	          WHERE id = ? AND admin_password_hash = ?`

	result, err := r.db.ExecContext(ctx, query, newHash, id, expected)
	if err != nil {
		return false, fmt.Errorf("updating admin password: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}

	return n == 1, nil
}

// --- Admin Operations ---

// ListUsers returns a paginated list of all users ordered by creation date.
// Also returns the total count for pagination.
func (r *userRepository) ListUsers(ctx context.Context, offset, limit int) ([]User, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting users: %w", err)
	}

	// Credentials are deliberately left out; list views never need them.
	query := `SELECT id, email, full_name, role, is_active, created_at
	          FROM users ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var (
			u        User
			fullName sql.NullString
			role     string
		)
		if err := rows.Scan(&u.ID, &u.Email, &fullName, &role, &u.IsActive, &u.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning user row: %w", err)
		}
		u.FullName = fullName.String
		u.Role = Role(role)
		users = append(users, u)
	}

	return users, total, rows.Err()
}

// UpdateRole sets a user's role. MariaDB reports zero affected rows when the
// value is unchanged, so callers check existence first.
func (r *userRepository) UpdateRole(ctx context.Context, id int64, role Role) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, string(role), id); err != nil {
		return fmt.Errorf("updating role: %w", err)
	}
	return nil
}

// UpdateActive enables or disables a user account.
func (r *userRepository) UpdateActive(ctx context.Context, id int64, active bool) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET is_active = ? WHERE id = ?`, active, id); err != nil {
		return fmt.Errorf("updating is_active: %w", err)
	}
	return nil
}

// --- Helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		user     User
		fullName sql.NullString
		role     string
		adminPW  sql.NullString
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&fullName,
		&role,
		&adminPW,
		&user.IsActive,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.FullName = fullName.String
	user.Role = Role(role)
	if adminPW.Valid {
		user.AdminPassword = &adminPW.String
	}

	return &user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
