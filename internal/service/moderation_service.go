package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/events"
	"github.com/spec-kit/marketplace-service/internal/observability"
	"github.com/spec-kit/marketplace-service/internal/repository"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

const (
	banActionApply = "ban"
	banActionLift  = "unban"

	maxBanDurationDays = 36500
)

// Invalidator records that a principal's moderation state changed so cached
// token claims can be re-validated.
type Invalidator interface {
	Invalidate(ctx context.Context, kind domain.Kind, id string, at time.Time) error
}

// BanInput describes a ban request.
type BanInput struct {
	TargetID     string
	TargetKind   domain.Kind
	BannTitle    []string
	BanReason    []string
	DurationDays int
}

// BanResult reports the ledger after a transition and how many offers were
// re-flagged.
type BanResult struct {
	Account        *domain.Account
	OffersAffected int64
}

// ModerationService owns the ban ledger of users and companies.
type ModerationService struct {
	accounts    repository.AccountRepository
	invalidator Invalidator
	publisher   events.Publisher
	gate        *BanGate
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// ModerationDependencies bundles collaborators. Invalidator, Publisher and
// Metrics are optional.
type ModerationDependencies struct {
	Accounts    repository.AccountRepository
	Invalidator Invalidator
	Publisher   events.Publisher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	Now         func() time.Time
}

// NewModerationService builds the service.
func NewModerationService(deps ModerationDependencies) *ModerationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &ModerationService{
		accounts:    deps.Accounts,
		invalidator: deps.Invalidator,
		publisher:   deps.Publisher,
		gate:        NewBanGate(deps.Metrics),
		metrics:     deps.Metrics,
		logger:      logger,
		now:         now,
	}
}

// ApplyBan appends a ban to the target's ledger and flags all of the target's
// offers, atomically. An inactive or banned moderator is refused.
func (s *ModerationService) ApplyBan(ctx context.Context, actor domain.Principal, input BanInput) (*BanResult, error) {
	if err := requireModerator(actor); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.gate.CheckWriteAllowed(actor, now); err != nil {
		return nil, err
	}
	if err := validateBanInput(input); err != nil {
		return nil, err
	}
	if actor.Kind == input.TargetKind && actor.ID == input.TargetID {
		return nil, apperrors.NewInvalidArgument("cannot ban yourself", nil)
	}

	entry := domain.BanEntry{
		Titles:        trimAll(input.BannTitle),
		Reasons:       trimAll(input.BanReason),
		ActorID:       actor.ID,
		ActorUsername: actor.Username,
		EndDate:       now.Add(time.Duration(input.DurationDays) * 24 * time.Hour),
	}

	result := &BanResult{}
	err := s.accounts.WithTransaction(ctx, func(tx repository.AccountTx) error {
		target, err := tx.LockByID(ctx, input.TargetKind, input.TargetID)
		if err != nil {
			return mapAccountLookup(err, input.TargetKind, input.TargetID)
		}
		if err := checkEscalation(actor, target); err != nil {
			return err
		}
		updated, err := tx.AppendBan(ctx, input.TargetKind, input.TargetID, entry)
		if err != nil {
			return err
		}
		affected, err := tx.SetOffersOwnerBanned(ctx, input.TargetKind, input.TargetID, true)
		if err != nil {
			return err
		}
		result.Account = updated
		result.OffersAffected = affected
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	// The marker must not predate the commit or tokens signed in between
	// would pass as fresh.
	s.afterTransition(ctx, actor, result, banActionApply, s.now().UTC())
	s.publish(ctx, events.NewEvent(events.EventPrincipalBanned,
		events.Ref{Kind: input.TargetKind, ID: input.TargetID},
		events.Ref{Kind: actor.Kind, ID: actor.ID},
		now,
		events.PrincipalBannedPayload{
			BannTitle:      entry.Titles,
			BanReason:      entry.Reasons,
			BanEndDate:     entry.EndDate,
			BanCount:       result.Account.Ledger.BanCount,
			OffersAffected: result.OffersAffected,
		}))
	return result, nil
}

// LiftBan clears the active ban of the target. Ban history and the counter
// are kept; the target's offers are listed again.
func (s *ModerationService) LiftBan(ctx context.Context, actor domain.Principal, kind domain.Kind, id string) (*BanResult, error) {
	if err := requireModerator(actor); err != nil {
		return nil, err
	}
	if err := s.gate.CheckWriteAllowed(actor, s.now()); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, apperrors.NewInvalidArgument("invalid target kind", map[string]any{"target_kind": kind})
	}
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewInvalidArgument("target id is required", nil)
	}

	result := &BanResult{}
	err := s.accounts.WithTransaction(ctx, func(tx repository.AccountTx) error {
		target, err := tx.LockByID(ctx, kind, id)
		if err != nil {
			return mapAccountLookup(err, kind, id)
		}
		if err := checkEscalation(actor, target); err != nil {
			return err
		}
		updated, err := tx.ClearBan(ctx, kind, id)
		if err != nil {
			return err
		}
		affected, err := tx.SetOffersOwnerBanned(ctx, kind, id, false)
		if err != nil {
			return err
		}
		result.Account = updated
		result.OffersAffected = affected
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	now := s.now().UTC()
	s.afterTransition(ctx, actor, result, banActionLift, now)
	s.publish(ctx, events.NewEvent(events.EventPrincipalUnbanned,
		events.Ref{Kind: kind, ID: id},
		events.Ref{Kind: actor.Kind, ID: actor.ID},
		now,
		events.PrincipalUnbannedPayload{OffersAffected: result.OffersAffected}))
	return result, nil
}

// Inspect returns the account and ledger of a principal for moderators.
func (s *ModerationService) Inspect(ctx context.Context, actor domain.Principal, kind domain.Kind, id string) (*domain.Account, error) {
	if err := requireModerator(actor); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, apperrors.NewInvalidArgument("invalid target kind", map[string]any{"target_kind": kind})
	}
	account, err := s.accounts.FindByID(ctx, kind, id)
	if err != nil {
		return nil, mapAccountLookup(err, kind, id)
	}
	return account, nil
}

func (s *ModerationService) afterTransition(ctx context.Context, actor domain.Principal, result *BanResult, action string, at time.Time) {
	target := result.Account
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, target.Kind, target.ID, at); err != nil {
			s.logger.Warn("failed to write invalidation marker",
				zap.String("principal_id", target.ID),
				zap.String("kind", string(target.Kind)),
				zap.Error(err))
		}
	}
	s.metrics.RecordBanTransition(string(target.Kind), action)
	s.logger.Info("ban ledger updated",
		zap.String("action", action),
		zap.String("principal_id", target.ID),
		zap.String("kind", string(target.Kind)),
		zap.String("actor_id", actor.ID),
		zap.Int("ban_count", target.Ledger.BanCount),
		zap.Int64("offers_affected", result.OffersAffected))
}

func (s *ModerationService) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish moderation event",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}

func requireModerator(actor domain.Principal) error {
	if !actor.Role.AtLeast(domain.RoleModerator) {
		return apperrors.NewForbidden("moderator role required", string(domain.RoleModerator))
	}
	return nil
}

// checkEscalation allows an ADMIN to act on anyone and a MODERATOR only on
// principals ranked below them.
func checkEscalation(actor domain.Principal, target *domain.Account) error {
	if actor.Role == domain.RoleAdmin {
		return nil
	}
	if actor.Role.Rank() > target.Role.Rank() {
		return nil
	}
	return apperrors.NewForbidden("cannot moderate a principal of equal or higher role", string(domain.RoleAdmin))
}

func validateBanInput(input BanInput) error {
	details := map[string]any{}
	if !input.TargetKind.Valid() {
		details["target_kind"] = "must be USER or COMPANY"
	}
	if strings.TrimSpace(input.TargetID) == "" {
		details["target_id"] = "is required"
	}
	if len(trimAll(input.BannTitle)) == 0 {
		details["bann_title"] = "at least one title is required"
	}
	if len(trimAll(input.BanReason)) == 0 {
		details["ban_reason"] = "at least one reason is required"
	}
	if input.DurationDays < 1 || input.DurationDays > maxBanDurationDays {
		details["duration_days"] = "must be a positive number of days"
	}
	if len(details) > 0 {
		return apperrors.NewInvalidArgument("invalid ban request", details)
	}
	return nil
}

func mapAccountLookup(err error, kind domain.Kind, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("principal", map[string]any{"kind": kind, "id": id})
	}
	return err
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
