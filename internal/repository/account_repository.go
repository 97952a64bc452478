package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

// AccountPatch lists the fields an account update may change. Nil fields are
// left untouched.
type AccountPatch struct {
	Username     *string
	Email        *string
	PasswordHash *string
	Active       *bool
	Role         *domain.Role
}

// Empty reports whether the patch changes nothing.
func (p AccountPatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.PasswordHash == nil && p.Active == nil && p.Role == nil
}

// AccountRepository defines persistence access for user and company accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	FindByID(ctx context.Context, kind domain.Kind, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, kind domain.Kind, email string) (*domain.Account, error)
	Update(ctx context.Context, kind domain.Kind, id string, patch AccountPatch) (*domain.Account, error)
	WithTransaction(ctx context.Context, fn func(tx AccountTx) error) error
}

// AccountTx is the set of ledger operations that run inside one transaction.
type AccountTx interface {
	// LockByID reads the account and holds a row lock until the transaction ends.
	LockByID(ctx context.Context, kind domain.Kind, id string) (*domain.Account, error)
	// AppendBan records entry in a single statement: arrays are appended and
	// the counter incremented by the database.
	AppendBan(ctx context.Context, kind domain.Kind, id string, entry domain.BanEntry) (*domain.Account, error)
	// ClearBan lifts the active ban, keeping the history.
	ClearBan(ctx context.Context, kind domain.Kind, id string) (*domain.Account, error)
	// SetOffersOwnerBanned mirrors the owner's ban flag onto all their offers.
	SetOffersOwnerBanned(ctx context.Context, kind domain.Kind, id string, banned bool) (int64, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type accountTable struct {
	name       string
	nameColumn string
}

func tableFor(kind domain.Kind) (accountTable, error) {
	switch kind {
	case domain.KindUser:
		return accountTable{name: "users", nameColumn: "username"}, nil
	case domain.KindCompany:
		return accountTable{name: "companies", nameColumn: "company_name"}, nil
	default:
		return accountTable{}, fmt.Errorf("unknown principal kind %q", kind)
	}
}

func (t accountTable) columns() string {
	return "id, " + t.nameColumn + `, email, password_hash, role, active,
        is_banned, bann_title, ban_reason, banned_by_username, banned_by, ban_end_date, ban_count,
        created_at, updated_at`
}

func scanAccount(row pgx.Row, kind domain.Kind) (*domain.Account, error) {
	account := domain.Account{Kind: kind}
	if err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.Active,
		&account.Ledger.IsBanned,
		&account.Ledger.BannTitle,
		&account.Ledger.BanReason,
		&account.Ledger.BannedByUsername,
		&account.Ledger.BannedBy,
		&account.Ledger.BanEndDate,
		&account.Ledger.BanCount,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	return &account, nil
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	t, err := tableFor(account.Kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
        INSERT INTO %s (%s, email, password_hash, role, active)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING %s`, t.name, t.nameColumn, t.columns())

	created, err := scanAccount(r.pool.QueryRow(ctx, query,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.Role,
		account.Active,
	), account.Kind)
	if err != nil {
		return err
	}
	*account = *created
	return nil
}

func (r *accountRepository) FindByID(ctx context.Context, kind domain.Kind, id string) (*domain.Account, error) {
	return findAccount(ctx, r.pool, kind, "id", id, false)
}

func (r *accountRepository) FindByEmail(ctx context.Context, kind domain.Kind, email string) (*domain.Account, error) {
	return findAccount(ctx, r.pool, kind, "email", email, false)
}

func (r *accountRepository) Update(ctx context.Context, kind domain.Kind, id string, patch AccountPatch) (*domain.Account, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return r.FindByID(ctx, kind, id)
	}

	args := []any{}
	sets := []string{}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if patch.Username != nil {
		set(t.nameColumn, *patch.Username)
	}
	if patch.Email != nil {
		set("email", *patch.Email)
	}
	if patch.PasswordHash != nil {
		set("password_hash", *patch.PasswordHash)
	}
	if patch.Active != nil {
		set("active", *patch.Active)
	}
	if patch.Role != nil {
		set("role", *patch.Role)
	}
	sets = append(sets, "updated_at=NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id=$%d RETURNING %s`,
		t.name, strings.Join(sets, ", "), len(args), t.columns())
	return scanAccount(r.pool.QueryRow(ctx, query, args...), kind)
}

func (r *accountRepository) WithTransaction(ctx context.Context, fn func(tx AccountTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(&accountTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func findAccount(ctx context.Context, q querier, kind domain.Kind, column, value string, lock bool) (*domain.Account, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s=$1`, t.columns(), t.name, column)
	if lock {
		query += " FOR UPDATE"
	}
	return scanAccount(q.QueryRow(ctx, query, value), kind)
}

type accountTx struct {
	q querier
}

func (tx *accountTx) LockByID(ctx context.Context, kind domain.Kind, id string) (*domain.Account, error) {
	return findAccount(ctx, tx.q, kind, "id", id, true)
}

func (tx *accountTx) AppendBan(ctx context.Context, kind domain.Kind, id string, entry domain.BanEntry) (*domain.Account, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
        UPDATE %s SET
            is_banned = TRUE,
            bann_title = bann_title || $2::text[],
            ban_reason = ban_reason || $3::text[],
            banned_by_username = array_append(banned_by_username, $4::text),
            banned_by = $5,
            ban_end_date = $6,
            ban_count = ban_count + 1,
            updated_at = NOW()
        WHERE id = $1
        RETURNING %s`, t.name, t.columns())

	return scanAccount(tx.q.QueryRow(ctx, query,
		id,
		entry.Titles,
		entry.Reasons,
		entry.ActorUsername,
		entry.ActorID,
		entry.EndDate,
	), kind)
}

func (tx *accountTx) ClearBan(ctx context.Context, kind domain.Kind, id string) (*domain.Account, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
        UPDATE %s SET is_banned = FALSE, ban_end_date = NULL, updated_at = NOW()
        WHERE id = $1
        RETURNING %s`, t.name, t.columns())
	return scanAccount(tx.q.QueryRow(ctx, query, id), kind)
}

func (tx *accountTx) SetOffersOwnerBanned(ctx context.Context, kind domain.Kind, id string, banned bool) (int64, error) {
	const query = `
        UPDATE offers SET user_is_banned = $1, updated_at = NOW()
        WHERE owner_kind = $2 AND owner_id = $3`
	cmd, err := tx.q.Exec(ctx, query, banned, kind, id)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
