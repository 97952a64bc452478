package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

// MemoryStore keeps accounts and offers in process. It backs local runs
// without POSTGRES_DSN and the service tests. Transactions hold the store
// lock and roll back on error.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[domain.Kind]map[string]*domain.Account
	offers   map[string]*domain.Offer
	resets   map[string]*PasswordResetToken
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: map[domain.Kind]map[string]*domain.Account{
			domain.KindUser:    {},
			domain.KindCompany: {},
		},
		offers: map[string]*domain.Offer{},
		resets: map[string]*PasswordResetToken{},
	}
}

// Accounts returns the account repository view of the store.
func (s *MemoryStore) Accounts() AccountRepository {
	return &memoryAccounts{s: s}
}

// Offers returns the offer repository view of the store.
func (s *MemoryStore) Offers() OfferRepository {
	return &memoryOffers{s: s}
}

// Resets returns the password reset repository view of the store.
func (s *MemoryStore) Resets() PasswordResetRepository {
	return &memoryResets{s: s}
}

func (s *MemoryStore) table(kind domain.Kind) (map[string]*domain.Account, error) {
	if _, err := tableFor(kind); err != nil {
		return nil, err
	}
	return s.accounts[kind], nil
}

func (s *MemoryStore) snapshot() (map[domain.Kind]map[string]*domain.Account, map[string]*domain.Offer) {
	accounts := make(map[domain.Kind]map[string]*domain.Account, len(s.accounts))
	for kind, rows := range s.accounts {
		copied := make(map[string]*domain.Account, len(rows))
		for id, a := range rows {
			copied[id] = cloneAccount(a)
		}
		accounts[kind] = copied
	}
	offers := make(map[string]*domain.Offer, len(s.offers))
	for id, o := range s.offers {
		clone := *o
		offers[id] = &clone
	}
	return accounts, offers
}

func cloneAccount(a *domain.Account) *domain.Account {
	clone := *a
	clone.Ledger.BannTitle = domain.CloneStrings(a.Ledger.BannTitle)
	clone.Ledger.BanReason = domain.CloneStrings(a.Ledger.BanReason)
	clone.Ledger.BannedByUsername = domain.CloneStrings(a.Ledger.BannedByUsername)
	if a.Ledger.BannedBy != nil {
		by := *a.Ledger.BannedBy
		clone.Ledger.BannedBy = &by
	}
	if a.Ledger.BanEndDate != nil {
		end := *a.Ledger.BanEndDate
		clone.Ledger.BanEndDate = &end
	}
	return &clone
}

type memoryAccounts struct {
	s *MemoryStore
}

func (r *memoryAccounts) Create(_ context.Context, account *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows, err := r.s.table(account.Kind)
	if err != nil {
		return err
	}
	for _, existing := range rows {
		if strings.EqualFold(existing.Email, account.Email) {
			return ErrDuplicate
		}
	}
	now := time.Now().UTC()
	account.ID = uuid.NewString()
	account.Ledger = domain.BanLedger{}
	account.CreatedAt = now
	account.UpdatedAt = now
	rows[account.ID] = cloneAccount(account)
	return nil
}

func (r *memoryAccounts) FindByID(_ context.Context, kind domain.Kind, id string) (*domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.findByID(kind, id)
}

func (r *memoryAccounts) FindByEmail(_ context.Context, kind domain.Kind, email string) (*domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows, err := r.s.table(kind)
	if err != nil {
		return nil, err
	}
	for _, a := range rows {
		if strings.EqualFold(a.Email, email) {
			return cloneAccount(a), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryAccounts) Update(_ context.Context, kind domain.Kind, id string, patch AccountPatch) (*domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows, err := r.s.table(kind)
	if err != nil {
		return nil, err
	}
	a, ok := rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Email != nil {
		for otherID, other := range rows {
			if otherID != id && strings.EqualFold(other.Email, *patch.Email) {
				return nil, ErrDuplicate
			}
		}
		a.Email = *patch.Email
	}
	if patch.Username != nil {
		a.Username = *patch.Username
	}
	if patch.PasswordHash != nil {
		a.PasswordHash = *patch.PasswordHash
	}
	if patch.Active != nil {
		a.Active = *patch.Active
	}
	if patch.Role != nil {
		a.Role = *patch.Role
	}
	if !patch.Empty() {
		a.UpdatedAt = time.Now().UTC()
	}
	return cloneAccount(a), nil
}

func (r *memoryAccounts) WithTransaction(_ context.Context, fn func(tx AccountTx) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	accounts, offers := r.s.snapshot()
	if err := fn(&memoryTx{s: r.s}); err != nil {
		r.s.accounts, r.s.offers = accounts, offers
		return err
	}
	return nil
}

func (s *MemoryStore) findByID(kind domain.Kind, id string) (*domain.Account, error) {
	rows, err := s.table(kind)
	if err != nil {
		return nil, err
	}
	a, ok := rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAccount(a), nil
}

// memoryTx runs with the store lock already held.
type memoryTx struct {
	s *MemoryStore
}

func (tx *memoryTx) LockByID(_ context.Context, kind domain.Kind, id string) (*domain.Account, error) {
	return tx.s.findByID(kind, id)
}

func (tx *memoryTx) AppendBan(_ context.Context, kind domain.Kind, id string, entry domain.BanEntry) (*domain.Account, error) {
	rows, err := tx.s.table(kind)
	if err != nil {
		return nil, err
	}
	a, ok := rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	a.Ledger.Apply(entry)
	a.UpdatedAt = time.Now().UTC()
	return cloneAccount(a), nil
}

func (tx *memoryTx) ClearBan(_ context.Context, kind domain.Kind, id string) (*domain.Account, error) {
	rows, err := tx.s.table(kind)
	if err != nil {
		return nil, err
	}
	a, ok := rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	a.Ledger.Lift()
	a.UpdatedAt = time.Now().UTC()
	return cloneAccount(a), nil
}

func (tx *memoryTx) SetOffersOwnerBanned(_ context.Context, kind domain.Kind, id string, banned bool) (int64, error) {
	var n int64
	for _, o := range tx.s.offers {
		if o.OwnerKind == kind && o.OwnerID == id {
			o.UserIsBanned = banned
			o.UpdatedAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

type memoryOffers struct {
	s *MemoryStore
}

func (r *memoryOffers) Create(_ context.Context, offer *domain.Offer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows, err := r.s.table(offer.OwnerKind)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	offer.UserIsBanned = false
	if owner, ok := rows[offer.OwnerID]; ok {
		offer.UserIsBanned = owner.Principal().BanInEffect(now)
	}
	offer.ID = uuid.NewString()
	offer.CreatedAt = now
	offer.UpdatedAt = now
	stored := *offer
	r.s.offers[offer.ID] = &stored
	return nil
}

func (r *memoryOffers) GetByID(_ context.Context, id string) (*domain.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.offers[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *o
	return &clone, nil
}

func (r *memoryOffers) Update(_ context.Context, offer *domain.Offer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.offers[offer.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Category = offer.Category
	stored.Title = offer.Title
	stored.Description = offer.Description
	stored.PriceCents = offer.PriceCents
	stored.Active = offer.Active
	stored.UpdatedAt = time.Now().UTC()
	offer.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *memoryOffers) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.offers[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.offers, id)
	return nil
}

func (r *memoryOffers) ListPublic(_ context.Context, filter OfferFilter) ([]domain.Offer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []domain.Offer
	for _, o := range r.s.offers {
		if !o.Active || o.UserIsBanned {
			continue
		}
		if filter.Category != nil && o.Category != *filter.Category {
			continue
		}
		if filter.OwnerKind != nil && o.OwnerKind != *filter.OwnerKind {
			continue
		}
		if filter.OwnerID != nil && o.OwnerID != *filter.OwnerID {
			continue
		}
		result = append(result, *o)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

type memoryResets struct {
	s *MemoryStore
}

func (r *memoryResets) Create(_ context.Context, token *PasswordResetToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	token.ID = uuid.NewString()
	token.CreatedAt = time.Now().UTC()
	stored := *token
	r.s.resets[token.ID] = &stored
	return nil
}

func (r *memoryResets) GetByToken(_ context.Context, tokenStr string) (*PasswordResetToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range r.s.resets {
		if t.Token == tokenStr {
			clone := *t
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryResets) MarkUsed(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.resets[id]
	if !ok || t.UsedAt != nil {
		return ErrNotFound
	}
	now := time.Now().UTC()
	t.UsedAt = &now
	return nil
}

func (r *memoryResets) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, t := range r.s.resets {
		if t.ExpiresAt.Before(cutoff) || (t.UsedAt != nil && t.UsedAt.Before(cutoff)) {
			delete(r.s.resets, id)
			n++
		}
	}
	return n, nil
}
