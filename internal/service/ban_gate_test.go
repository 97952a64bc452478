package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/marketplace-service/internal/domain"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

func TestBanGate_CheckWriteAllowed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)
	past := now.Add(-time.Minute)

	tests := []struct {
		name      string
		principal domain.Principal
		wantCode  string
	}{
		{
			name:      "active and clear",
			principal: domain.Principal{Active: true},
		},
		{
			name:      "inactive",
			principal: domain.Principal{Active: false},
			wantCode:  apperrors.CodeInactive,
		},
		{
			name:      "inactive wins over ban",
			principal: domain.Principal{Active: false, IsBanned: true, BanEndDate: &future},
			wantCode:  apperrors.CodeInactive,
		},
		{
			name:      "ban in effect",
			principal: domain.Principal{Active: true, IsBanned: true, BanReason: []string{"spam", "fraud"}, BanEndDate: &future},
			wantCode:  apperrors.CodeBanned,
		},
		{
			name:      "ban expired",
			principal: domain.Principal{Active: true, IsBanned: true, BanEndDate: &past},
		},
		{
			name:      "ban ends exactly now",
			principal: domain.Principal{Active: true, IsBanned: true, BanEndDate: &now},
		},
		{
			name:      "flag without end date",
			principal: domain.Principal{Active: true, IsBanned: true},
		},
	}

	gate := NewBanGate(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.CheckWriteAllowed(tt.principal, now)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestBanGate_BannedCarriesHistory(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := now.Add(7 * 24 * time.Hour)
	p := domain.Principal{Active: true, IsBanned: true, BanReason: []string{"first", "second"}, BanEndDate: &end}

	err := NewBanGate(nil).CheckWriteAllowed(p, now)

	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, 403, domainErr.HTTPStatus)
	assert.Equal(t, []string{"first", "second"}, domainErr.Details["ban_reason"])
	assert.True(t, end.Equal(domainErr.Details["ban_end_date"].(time.Time)))
}

func TestBanGate_ExpiredBanIsNotCleared(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := now.Add(-time.Hour)
	p := domain.Principal{Active: true, IsBanned: true, BanEndDate: &end}

	require.NoError(t, NewBanGate(nil).CheckWriteAllowed(p, now))
	assert.True(t, p.IsBanned)
}
