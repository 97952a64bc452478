package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

// OfferFilter captures public listing parameters.
type OfferFilter struct {
	Category  *domain.OfferCategory
	OwnerKind *domain.Kind
	OwnerID   *string
	Limit     int
	Offset    int
}

// OfferRepository encapsulates offer persistence.
type OfferRepository interface {
	// Create inserts the offer. UserIsBanned is taken from the owner's current
	// row, not from the caller.
	Create(ctx context.Context, offer *domain.Offer) error
	GetByID(ctx context.Context, id string) (*domain.Offer, error)
	Update(ctx context.Context, offer *domain.Offer) error
	Delete(ctx context.Context, id string) error
	// ListPublic returns active offers whose owner is not banned.
	ListPublic(ctx context.Context, filter OfferFilter) ([]domain.Offer, error)
}

const offerColumns = `id, owner_kind, owner_id, category, title, description, price_cents,
        active, user_is_banned, created_at, updated_at`

type offerRepository struct {
	pool *pgxpool.Pool
}

// NewOfferRepository instantiates repository.
func NewOfferRepository(pool *pgxpool.Pool) OfferRepository {
	return &offerRepository{pool: pool}
}

// Create inherits the owner's ban only while it is in effect. The owner row is
// share-locked so a concurrent ban either commits first or waits for the insert
// and then re-flags it.
func (r *offerRepository) Create(ctx context.Context, offer *domain.Offer) error {
	owner, err := tableFor(offer.OwnerKind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
        INSERT INTO offers (owner_kind, owner_id, category, title, description, price_cents, active, user_is_banned)
        VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE((
            SELECT is_banned AND ban_end_date IS NOT NULL AND ban_end_date > NOW()
            FROM %s WHERE id = $2 FOR SHARE), FALSE))
        RETURNING id, user_is_banned, created_at, updated_at`, owner.name)

	err = r.pool.QueryRow(ctx, query,
		offer.OwnerKind,
		offer.OwnerID,
		offer.Category,
		offer.Title,
		offer.Description,
		offer.PriceCents,
		offer.Active,
	).Scan(&offer.ID, &offer.UserIsBanned, &offer.CreatedAt, &offer.UpdatedAt)
	return mapError(err)
}

func (r *offerRepository) GetByID(ctx context.Context, id string) (*domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id=$1`
	var offer domain.Offer
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&offer.ID,
		&offer.OwnerKind,
		&offer.OwnerID,
		&offer.Category,
		&offer.Title,
		&offer.Description,
		&offer.PriceCents,
		&offer.Active,
		&offer.UserIsBanned,
		&offer.CreatedAt,
		&offer.UpdatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	return &offer, nil
}

func (r *offerRepository) Update(ctx context.Context, offer *domain.Offer) error {
	const query = `
        UPDATE offers SET category=$1, title=$2, description=$3, price_cents=$4, active=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		offer.Category,
		offer.Title,
		offer.Description,
		offer.PriceCents,
		offer.Active,
		offer.ID,
	).Scan(&offer.UpdatedAt)
	return mapError(err)
}

func (r *offerRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM offers WHERE id=$1`, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *offerRepository) ListPublic(ctx context.Context, filter OfferFilter) ([]domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers`
	args := []any{}
	clauses := []string{"active = TRUE", "user_is_banned = FALSE"}

	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.OwnerKind != nil {
		args = append(args, *filter.OwnerKind)
		clauses = append(clauses, fmt.Sprintf("owner_kind=$%d", len(args)))
	}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	query += " WHERE " + strings.Join(clauses, " AND ")
	query += " ORDER BY created_at DESC"

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Offer
	for rows.Next() {
		var offer domain.Offer
		if err := rows.Scan(
			&offer.ID,
			&offer.OwnerKind,
			&offer.OwnerID,
			&offer.Category,
			&offer.Title,
			&offer.Description,
			&offer.PriceCents,
			&offer.Active,
			&offer.UserIsBanned,
			&offer.CreatedAt,
			&offer.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, offer)
	}
	return result, rows.Err()
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
