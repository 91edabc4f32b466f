// Package direct implements the service contracts against the storage
// backend in the same process. Selected at wiring time for monolith mode;
// callers only ever see the contract interfaces.
package direct

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/andyeko/apisentinel/internal/contract"
)

const uniqueViolation = "23505"

// UserDirectory reads and writes users through the shared connection pool.
type UserDirectory struct {
	db *sql.DB
}

var _ contract.UserDirectory = (*UserDirectory)(nil)

func NewUserDirectory(db *sql.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

const userColumns = `id, organisation_id, email, name, password_hash, role, created_at, updated_at`

func (d *UserDirectory) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := d.db.QueryRowContext(ctx, `select count(*) from users`).Scan(&count); err != nil {
		return 0, contract.Internalf("count users: %v", err)
	}
	return count, nil
}

func (d *UserDirectory) FindByEmail(ctx context.Context, email string) (*contract.User, error) {
	row := d.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email = $1`, email)
	return scanUser(row)
}

func (d *UserDirectory) FindByID(ctx context.Context, id uuid.UUID) (*contract.User, error) {
	row := d.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id = $1`, id)
	return scanUser(row)
}

func (d *UserDirectory) Create(ctx context.Context, email, name, passwordHash string, orgID *uuid.UUID, role contract.Role) (*contract.User, error) {
	row := d.db.QueryRowContext(ctx, `
		insert into users (id, organisation_id, email, name, password_hash, role)
		values ($1, $2, $3, $4, $5, $6)
		returning `+userColumns,
		uuid.New(), nullUUID(orgID), email, name, nullString(passwordHash), role.String())
	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, contract.ErrAlreadyExists
		}
		if errors.Is(err, contract.ErrNotFound) {
			return nil, contract.Internalf("create user: no row returned")
		}
		return nil, err
	}
	return user, nil
}

func (d *UserDirectory) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	if _, err := d.db.ExecContext(ctx,
		`update users set password_hash = $1, updated_at = now() where id = $2`,
		passwordHash, id); err != nil {
		return contract.Internalf("update password: %v", err)
	}
	return nil
}

func scanUser(row *sql.Row) (*contract.User, error) {
	var (
		u    contract.User
		org  uuid.NullUUID
		hash sql.NullString
		role string
	)
	err := row.Scan(&u.ID, &org, &u.Email, &u.Name, &hash, &role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contract.ErrNotFound
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			// Preserve the driver error so Create can map constraint codes.
			return nil, err
		}
		return nil, contract.Internalf("scan user: %v", err)
	}
	if org.Valid {
		u.OrganisationID = &org.UUID
	}
	if hash.Valid {
		u.PasswordHash = hash.String
	}
	u.Role = contract.ParseRole(role)
	return &u, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
