package service

import (
	"time"

	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/observability"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// BanGate decides whether a principal may perform a write.
type BanGate struct {
	metrics *observability.Metrics
}

// NewBanGate builds the gate. metrics may be nil.
func NewBanGate(metrics *observability.Metrics) *BanGate {
	return &BanGate{metrics: metrics}
}

// CheckWriteAllowed returns nil when p may write at now. Inactive accounts
// are refused before bans are considered. An expired ban allows the write but
// is left flagged on the principal.
func (g *BanGate) CheckWriteAllowed(p domain.Principal, now time.Time) error {
	if !p.Active {
		g.metrics.RecordGateDenial(apperrors.CodeInactive)
		return apperrors.NewInactive()
	}
	if p.BanInEffect(now) {
		g.metrics.RecordGateDenial(apperrors.CodeBanned)
		return apperrors.NewBanned(p.BanReason, *p.BanEndDate)
	}
	return nil
}
