package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"ldtt.org/internal/ids"
)

var (
	_ AccountStore          = (*PGAccountStore)(nil)
	_ InvalidatedTokenStore = (*PGInvalidatedTokenStore)(nil)
)

// PGAccountStore implements AccountStore using PostgreSQL.
type PGAccountStore struct {
	db *sql.DB
}

func NewPGAccountStore(db *sql.DB) *PGAccountStore {
	return &PGAccountStore{db: db}
}

func (s *PGAccountStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, email, username, password_hash, created_at, updated_at from accounts where email=$1`,
		email,
	)
	return s.scanAccount(ctx, row)
}

// FindBySubject resolves the subject claim of a verified token. Subjects are
// account emails.
func (s *PGAccountStore) FindBySubject(ctx context.Context, subject string) (*Account, error) {
	return s.FindByEmail(ctx, subject)
}

func (s *PGAccountStore) Create(ctx context.Context, account *Account) error {
	if account.ID == "" {
		account.ID = ids.New()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`insert into accounts(id, email, username, password_hash) values($1,$2,$3,$4)`,
		account.ID, account.Email, account.Username, account.PasswordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}
	for _, role := range account.Roles {
		if _, err := tx.ExecContext(ctx,
			`insert into account_roles(account_id, role_id)
			 select $1, id from roles where name=$2
			 on conflict do nothing`,
			account.ID, role.Name,
		); err != nil {
			return fmt.Errorf("link role %s: %w", role.Name, err)
		}
	}
	return tx.Commit()
}

func (s *PGAccountStore) scanAccount(ctx context.Context, row *sql.Row) (*Account, error) {
	var a Account
	if err := row.Scan(&a.ID, &a.Email, &a.Username, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	roles, err := s.loadRoles(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	a.Roles = roles
	return &a, nil
}

func (s *PGAccountStore) loadRoles(ctx context.Context, accountID string) ([]Role, error) {
	rows, err := s.db.QueryContext(ctx,
		`select r.id, r.name, p.id, p.name
		 from account_roles ar
		 join roles r on r.id = ar.role_id
		 left join role_permissions rp on rp.role_id = r.id
		 left join permissions p on p.id = rp.permission_id
		 where ar.account_id=$1
		 order by r.name asc, p.name asc`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		res     []Role
		current *Role
	)
	for rows.Next() {
		var (
			roleID, roleName sql.NullString
			permID, permName sql.NullString
		)
		if err := rows.Scan(&roleID, &roleName, &permID, &permName); err != nil {
			return nil, err
		}
		if current == nil || current.ID != roleID.String {
			res = append(res, Role{ID: roleID.String, Name: roleName.String})
			current = &res[len(res)-1]
		}
		if permID.Valid {
			current.Permissions = append(current.Permissions, Permission{ID: permID.String, Name: permName.String})
		}
	}
	return res, rows.Err()
}

// PGInvalidatedTokenStore implements the revocation denylist using
// PostgreSQL. Rows past expiry_time are purged by operations, not here.
type PGInvalidatedTokenStore struct {
	db *sql.DB
}

func NewPGInvalidatedTokenStore(db *sql.DB) *PGInvalidatedTokenStore {
	return &PGInvalidatedTokenStore{db: db}
}

func (s *PGInvalidatedTokenStore) Contains(ctx context.Context, id string) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		`select exists(select 1 from invalidated_tokens where id=$1)`, id)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Insert is idempotent: reinserting the same jti is not an error, so a
// concurrent logout and refresh of one token both succeed.
func (s *PGInvalidatedTokenStore) Insert(ctx context.Context, token InvalidatedToken) error {
	_, err := s.db.ExecContext(ctx,
		`insert into invalidated_tokens(id, expiry_time) values($1,$2)
		 on conflict (id) do nothing`,
		token.ID, token.ExpiryTime,
	)
	return err
}

func isUniqueViolation(err error) bool {
	// SQLSTATE 23505 unique_violation
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
