package domain

import (
	"fmt"
	"strings"
	"time"
)

// Kind differentiates the two disjoint principal tables.
type Kind string

const (
	KindUser    Kind = "USER"
	KindCompany Kind = "COMPANY"
)

// ParseKind accepts the kind in any letter case, as used in URLs and payloads.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToUpper(strings.TrimSpace(raw))) {
	case KindUser:
		return KindUser, nil
	case KindCompany:
		return KindCompany, nil
	default:
		return "", fmt.Errorf("unknown principal kind %q", raw)
	}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindUser, KindCompany:
		return true
	default:
		return false
	}
}

// Role enumerates account privilege levels.
type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

// Rank orders roles by privilege. Unknown roles rank below USER.
func (r Role) Rank() int {
	switch r {
	case RoleUser:
		return 1
	case RoleModerator:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether r carries at least the privilege of other.
func (r Role) AtLeast(other Role) bool {
	return r.Rank() >= other.Rank()
}

// Principal is the authenticated identity resolved for a single request.
// It is either a user or a company, selected by Kind.
type Principal struct {
	ID         string
	Kind       Kind
	Username   string
	Email      string
	Role       Role
	Active     bool
	IsBanned   bool
	BanReason  []string
	BanEndDate *time.Time
	BanCount   int
}

// BanInEffect reports whether the ban blocks writes at now. An expired ban
// keeps IsBanned set until it is lifted explicitly.
func (p Principal) BanInEffect(now time.Time) bool {
	return p.IsBanned && p.BanEndDate != nil && p.BanEndDate.After(now)
}

// CloneStrings copies a history slice, keeping nil for empty input.
func CloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return append([]string(nil), in...)
}
