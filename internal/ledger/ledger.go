// Package ledger is the points ledger: append-only entries with a cached
// per-member balance kept in step inside the same transaction.
package ledger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dukerupert/marinda/internal/apperr"
	"github.com/dukerupert/marinda/internal/auth"
	"github.com/dukerupert/marinda/internal/model"
	"github.com/dukerupert/marinda/internal/store"
	"github.com/dukerupert/marinda/internal/telemetry"
)

// MaxHistory caps a single history page.
const MaxHistory = 500

type Service struct {
	entries *store.LedgerStore
	members *store.FamilyMemberStore
	logger  *slog.Logger
	Now     func() time.Time
}

func NewService(entries *store.LedgerStore, members *store.FamilyMemberStore, logger *slog.Logger) *Service {
	return &Service{
		entries: entries,
		members: members,
		logger:  logger.With("component", "ledger"),
		Now:     time.Now,
	}
}

// Credit writes one entry and moves the member's balance by delta.
func (s *Service) Credit(ctx context.Context, familyID, memberID, delta int64, reason string, kind model.LedgerKind, approverID *int64) (*model.LedgerEntry, error) {
	if delta == 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "delta must not be zero")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "reason is required")
	}
	switch kind {
	case model.LedgerChoreApproval, model.LedgerWishlistFulfillment, model.LedgerManualAdjust:
	default:
		return nil, apperr.New(apperr.KindInvalidInput, "unknown ledger kind %q", kind)
	}

	e := &model.LedgerEntry{
		FamilyID:           familyID,
		MemberID:           memberID,
		Delta:              delta,
		Reason:             reason,
		Kind:               kind,
		ApprovedByMemberID: approverID,
		CreatedAt:          s.Now().UTC(),
	}
	if err := s.entries.Append(ctx, e); err != nil {
		return nil, err
	}
	s.logger.Info("ledger entry written",
		"family_id", familyID, "member_id", memberID, "delta", delta, "kind", kind, "entry_id", e.ID)
	return e, nil
}

// Adjust writes a manual correction. Only parents may adjust, and a reason
// explaining the correction is required.
func (s *Service) Adjust(ctx context.Context, actor auth.Actor, memberID, delta int64, reason string) (_ *model.LedgerEntry, err error) {
	ctx, span := telemetry.Start(ctx, "ledger.adjust",
		attribute.Int64("member_id", memberID), attribute.Int64("delta", delta))
	defer func() { telemetry.End(span, err) }()

	if err := auth.Require(actor.Role, auth.OpLedgerAdjust); err != nil {
		return nil, err
	}
	m, err := s.members.GetInFamily(ctx, actor.FamilyID, memberID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.New(apperr.KindNotFound, "member %d not found", memberID)
	}
	approver := actor.MemberID
	return s.Credit(ctx, actor.FamilyID, memberID, delta, strings.TrimSpace(reason), model.LedgerManualAdjust, &approver)
}

// History returns a member's entries newest first.
func (s *Service) History(ctx context.Context, familyID, memberID int64, limit int, since *time.Time) ([]model.LedgerEntry, error) {
	m, err := s.members.GetInFamily(ctx, familyID, memberID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.New(apperr.KindNotFound, "member %d not found", memberID)
	}
	if limit <= 0 || limit > MaxHistory {
		limit = MaxHistory
	}
	entries, err := s.entries.History(ctx, familyID, memberID, limit, since)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}
	return entries, nil
}

// Balances returns the family's members ordered by balance.
func (s *Service) Balances(ctx context.Context, familyID int64) ([]model.FamilyMember, error) {
	members, err := s.members.List(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []model.FamilyMember{}
	}
	return members, nil
}

// Reconcile compares cached balances with ledger sums. Any mismatch is
// logged for an operator and returned as a Consistency error alongside the
// offending members; nothing is corrected.
func (s *Service) Reconcile(ctx context.Context, familyID int64) (_ []model.BalanceDrift, err error) {
	ctx, span := telemetry.Start(ctx, "ledger.reconcile", attribute.Int64("family_id", familyID))
	defer func() { telemetry.End(span, err) }()

	drift, err := s.entries.Drift(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if len(drift) == 0 {
		return []model.BalanceDrift{}, nil
	}
	for _, d := range drift {
		s.logger.Error("ledger balance mismatch",
			"family_id", familyID, "member_id", d.MemberID, "cached", d.Cached, "ledger_sum", d.LedgerSum)
	}
	return drift, apperr.New(apperr.KindConsistency, "%d member balance(s) disagree with the ledger", len(drift))
}
