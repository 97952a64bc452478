package domain

import "time"

// BanLedger is the append-only moderation history stored with an account.
type BanLedger struct {
	IsBanned         bool
	BannTitle        []string
	BanReason        []string
	BannedByUsername []string
	BannedBy         *string
	BanEndDate       *time.Time
	BanCount         int
}

// BanEntry is a single ban action appended to a ledger.
type BanEntry struct {
	Titles        []string
	Reasons       []string
	ActorID       string
	ActorUsername string
	EndDate       time.Time
}

// Account is the persisted row behind a principal. Username holds the
// company name for company accounts.
type Account struct {
	ID           string
	Kind         Kind
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	Ledger       BanLedger
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal projects the account onto the identity carried in tokens.
func (a *Account) Principal() Principal {
	p := Principal{
		ID:        a.ID,
		Kind:      a.Kind,
		Username:  a.Username,
		Email:     a.Email,
		Role:      a.Role,
		Active:    a.Active,
		IsBanned:  a.Ledger.IsBanned,
		BanReason: CloneStrings(a.Ledger.BanReason),
		BanCount:  a.Ledger.BanCount,
	}
	if a.Ledger.BanEndDate != nil {
		end := *a.Ledger.BanEndDate
		p.BanEndDate = &end
	}
	return p
}

// Apply appends entry to the ledger the same way the SQL store does.
func (l *BanLedger) Apply(entry BanEntry) {
	l.IsBanned = true
	l.BannTitle = append(l.BannTitle, entry.Titles...)
	l.BanReason = append(l.BanReason, entry.Reasons...)
	l.BannedByUsername = append(l.BannedByUsername, entry.ActorUsername)
	actor := entry.ActorID
	l.BannedBy = &actor
	end := entry.EndDate
	l.BanEndDate = &end
	l.BanCount++
}

// Lift clears the active ban. History and the counter are preserved.
func (l *BanLedger) Lift() {
	l.IsBanned = false
	l.BanEndDate = nil
}
