// internal/membership/implementation.go
package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"libtrack/internal/liberr"
	"libtrack/internal/store"
)

// service implements the Service interface.
type service struct {
	db *sql.DB

	mu            sync.Mutex
	loginLimiters map[string]*rate.Limiter
}

// NewService creates a new membership service instance.
func NewService(db *sql.DB) Service {
	return &service{
		db:            db,
		loginLimiters: make(map[string]*rate.Limiter),
	}
}

// loginLimiter returns the per-username limiter, creating it on first
// use. Only failed attempts consume tokens, so the limiter slows
// password guessing against one account without throttling valid
// credentials on the request path.
func (s *service) loginLimiter(username string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	lim, ok := s.loginLimiters[username]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Second), 10)
		s.loginLimiters[username] = lim
	}
	return lim
}

// Register creates a new non-admin account.
func (s *service) Register(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		ID:        uuid.New(),
		Username:  username,
		IsAdmin:   false,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.Username, hash, user.IsAdmin, user.CreatedAt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, liberr.Conflict("username already exists")
		}
		return nil, liberr.Storage(fmt.Errorf("insert user: %w", err))
	}

	return user, nil
}

// Authenticate verifies credentials and returns the caller identity.
func (s *service) Authenticate(ctx context.Context, username, password string) (*Identity, error) {
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, liberr.InvalidInput("password must not be empty")
	}

	lim := s.loginLimiter(username)
	if lim.Tokens() < 1 {
		return nil, liberr.Unauthorized("too many login attempts")
	}

	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, is_admin
		FROM users
		WHERE username = $1
	`, username).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.IsAdmin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			lim.Allow()
			return nil, liberr.Unauthorized("invalid username or password")
		}
		return nil, liberr.Storage(fmt.Errorf("query user by username: %w", err))
	}

	if !verifyPassword(password, user.PasswordHash) {
		lim.Allow()
		return nil, liberr.Unauthorized("invalid username or password")
	}

	return &Identity{UserID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin}, nil
}

// GetUser retrieves a user by ID.
func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, is_admin, created_at
		FROM users
		WHERE id = $1
	`, id).Scan(&user.ID, &user.Username, &user.IsAdmin, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, liberr.NotFound("user not found")
		}
		return nil, liberr.Storage(fmt.Errorf("query user: %w", err))
	}
	return &user, nil
}

// ListUsers returns all users with their active borrow counts.
func (s *service) ListUsers(ctx context.Context, actor Identity) ([]UserSummary, error) {
	if !actor.IsAdmin {
		return nil, liberr.Unauthorized("administrator access required")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.is_admin, COUNT(b.id) AS active_borrows
		FROM users u
		LEFT JOIN borrows b ON u.id = b.user_id AND NOT b.returned
		GROUP BY u.id, u.username, u.is_admin
		ORDER BY u.username
	`)
	if err != nil {
		return nil, liberr.Storage(fmt.Errorf("list users: %w", err))
	}
	defer rows.Close()

	var users []UserSummary
	for rows.Next() {
		var u UserSummary
		if err := rows.Scan(&u.ID, &u.Username, &u.IsAdmin, &u.ActiveBorrows); err != nil {
			return nil, liberr.Storage(fmt.Errorf("scan user summary: %w", err))
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, liberr.Storage(fmt.Errorf("iterate users: %w", err))
	}

	return users, nil
}

// UpdateUser lets an administrator change username, admin flag and
// optionally the password of an account.
func (s *service) UpdateUser(ctx context.Context, actor Identity, id uuid.UUID, username string, isAdmin bool, newPassword string) error {
	if !actor.IsAdmin {
		return liberr.Unauthorized("administrator access required")
	}

	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return err
	}

	var res sql.Result
	var err error
	if newPassword != "" {
		if err := ValidatePassword(newPassword); err != nil {
			return err
		}
		hash, err2 := hashPassword(newPassword)
		if err2 != nil {
			return fmt.Errorf("hash password: %w", err2)
		}
		res, err = s.db.ExecContext(ctx, `
			UPDATE users SET username = $1, is_admin = $2, password_hash = $3
			WHERE id = $4
		`, username, isAdmin, hash, id)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE users SET username = $1, is_admin = $2
			WHERE id = $3
		`, username, isAdmin, id)
	}
	if err != nil {
		if store.IsUniqueViolation(err) {
			return liberr.Conflict("username already exists")
		}
		return liberr.Storage(fmt.Errorf("update user: %w", err))
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return liberr.NotFound("user not found")
	}
	return nil
}

// ChangePassword updates the caller's own password.
func (s *service) ChangePassword(ctx context.Context, actor Identity, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $1 WHERE id = $2
	`, hash, actor.UserID)
	if err != nil {
		return liberr.Storage(fmt.Errorf("update password: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return liberr.NotFound("user not found")
	}
	return nil
}

// DeleteUser removes an account. Refused while the account holds open
// borrows, and always refused for the acting administrator's own account.
func (s *service) DeleteUser(ctx context.Context, actor Identity, id uuid.UUID) error {
	if !actor.IsAdmin {
		return liberr.Unauthorized("administrator access required")
	}
	if actor.UserID == id {
		return liberr.Conflict("cannot delete your own account")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return liberr.Storage(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	// The user row lock serializes against in-flight borrows, which lock
	// the same row; a borrow committing between the count and the delete
	// would otherwise be cascaded away.
	var lockedID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM users WHERE id = $1 FOR UPDATE
	`, id).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return liberr.NotFound("user not found")
		}
		return liberr.Storage(fmt.Errorf("lock user: %w", err))
	}

	var active int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM borrows WHERE user_id = $1 AND NOT returned
	`, id).Scan(&active)
	if err != nil {
		return liberr.Storage(fmt.Errorf("count active borrows: %w", err))
	}
	if active > 0 {
		return liberr.Conflict("user still holds borrowed books")
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return liberr.Storage(fmt.Errorf("delete user: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return liberr.NotFound("user not found")
	}

	if err := tx.Commit(); err != nil {
		return liberr.Storage(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}
