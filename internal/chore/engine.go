// Package chore implements the chore lifecycle: OPEN → SUBMITTED →
// APPROVED, rejection back to OPEN, and OPEN → EXPIRED once the deadline
// passes. Approval credits the ledger in the same transaction as the status
// change.
package chore

import (
	"context"
	"fmt"
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

const (
	maxTitleLen       = 200
	maxDescriptionLen = 2000
	maxNotesLen       = 1000
)

type Engine struct {
	chores    *store.ChoreStore
	templates *store.ChoreTemplateStore
	members   *store.FamilyMemberStore
	settings  *store.SettingsStore
	logger    *slog.Logger
	Now       func() time.Time
}

func NewEngine(chores *store.ChoreStore, templates *store.ChoreTemplateStore, members *store.FamilyMemberStore, settings *store.SettingsStore, logger *slog.Logger) *Engine {
	return &Engine{
		chores:    chores,
		templates: templates,
		members:   members,
		settings:  settings,
		logger:    logger.With("component", "chore"),
		Now:       time.Now,
	}
}

// CreateInput describes a new chore. Title and Points fall back to the
// template's values when TemplateID is set.
type CreateInput struct {
	Title         string
	Description   string
	Points        *int64
	AssignedToIDs []int64
	ExpiresAt     *time.Time
	TemplateID    *int64
}

func (e *Engine) Create(ctx context.Context, actor auth.Actor, in CreateInput) (*model.Chore, error) {
	if err := auth.Require(actor.Role, auth.OpChoreCreate); err != nil {
		return nil, err
	}
	now := e.Now().UTC()

	if in.TemplateID != nil {
		tpl, err := e.templates.GetByID(ctx, actor.FamilyID, *in.TemplateID)
		if err != nil {
			return nil, err
		}
		if tpl == nil {
			return nil, apperr.New(apperr.KindNotFound, "template %d not found", *in.TemplateID)
		}
		if tpl.IsArchived {
			return nil, apperr.New(apperr.KindInvalidInput, "template %d is archived", tpl.ID)
		}
		if strings.TrimSpace(in.Title) == "" {
			in.Title = tpl.Title
		}
		if in.Points == nil {
			p := tpl.DefaultPoints
			in.Points = &p
		}
	}

	c := &model.Chore{
		FamilyID:          actor.FamilyID,
		Title:             strings.TrimSpace(in.Title),
		Description:       strings.TrimSpace(in.Description),
		ExpiresAt:         in.ExpiresAt,
		TemplateID:        in.TemplateID,
		CreatedByMemberID: &actor.MemberID,
		CreatedAt:         now,
	}
	if in.Points != nil {
		c.Points = *in.Points
	}
	if err := e.validateFields(ctx, actor.FamilyID, c, in.Points == nil, now); err != nil {
		return nil, err
	}
	assignees, err := e.familyMembers(ctx, actor.FamilyID, in.AssignedToIDs, "assignee")
	if err != nil {
		return nil, err
	}
	c.AssignedToIDs = assignees

	created, err := e.chores.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	e.logger.Info("chore created", "family_id", actor.FamilyID, "chore_id", created.ID, "points", created.Points)
	return created, nil
}

func (e *Engine) validateFields(ctx context.Context, familyID int64, c *model.Chore, pointsMissing bool, now time.Time) error {
	if c.Title == "" {
		return apperr.New(apperr.KindInvalidInput, "title is required")
	}
	if len(c.Title) > maxTitleLen {
		return apperr.New(apperr.KindInvalidInput, "title must be at most %d characters", maxTitleLen)
	}
	if len(c.Description) > maxDescriptionLen {
		return apperr.New(apperr.KindInvalidInput, "description must be at most %d characters", maxDescriptionLen)
	}
	if pointsMissing {
		return apperr.New(apperr.KindInvalidInput, "points is required")
	}
	if c.Points < 0 {
		return apperr.New(apperr.KindInvalidInput, "points must not be negative")
	}
	if c.Points == 0 {
		cs, err := e.settings.GetChoreSettings(ctx, familyID)
		if err != nil {
			return err
		}
		if !cs.AllowZeroPoints {
			return apperr.New(apperr.KindInvalidInput, "points must be positive")
		}
	}
	if c.ExpiresAt != nil {
		t := c.ExpiresAt.UTC()
		if !t.After(now) {
			return apperr.New(apperr.KindInvalidInput, "expires_at must be in the future")
		}
		c.ExpiresAt = &t
	}
	return nil
}

// familyMembers de-duplicates ids and checks each belongs to the family.
func (e *Engine) familyMembers(ctx context.Context, familyID int64, ids []int64, what string) ([]int64, error) {
	ids = uniqueSorted(ids)
	if len(ids) == 0 {
		return ids, nil
	}
	n, err := e.members.CountInFamily(ctx, familyID, ids)
	if err != nil {
		return nil, err
	}
	if n != len(ids) {
		return nil, apperr.New(apperr.KindInvalidInput, "every %s must be a member of the family", what)
	}
	return ids, nil
}

// Get returns a chore with its effective status.
func (e *Engine) Get(ctx context.Context, familyID, id int64) (*model.Chore, error) {
	c, err := e.load(ctx, familyID, id)
	if err != nil {
		return nil, err
	}
	surface(c, e.Now())
	return c, nil
}

func (e *Engine) load(ctx context.Context, familyID, id int64) (*model.Chore, error) {
	c, err := e.chores.GetByID(ctx, familyID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.New(apperr.KindNotFound, "chore %d not found", id)
	}
	return c, nil
}

func (e *Engine) List(ctx context.Context, familyID int64, f model.ChoreFilter) ([]model.Chore, error) {
	now := e.Now()
	chores, err := e.chores.List(ctx, familyID, f, now)
	if err != nil {
		return nil, err
	}
	for i := range chores {
		surface(&chores[i], now)
	}
	if chores == nil {
		chores = []model.Chore{}
	}
	return chores, nil
}

// UpdateInput replaces a chore's editable fields. Version must match the
// chore's current version.
type UpdateInput struct {
	Title         string
	Description   string
	Points        int64
	AssignedToIDs []int64
	ExpiresAt     *time.Time
	Version       int64
}

func (e *Engine) Update(ctx context.Context, actor auth.Actor, id int64, in UpdateInput) (*model.Chore, error) {
	if err := auth.Require(actor.Role, auth.OpChoreEdit); err != nil {
		return nil, err
	}
	now := e.Now().UTC()
	c, err := e.load(ctx, actor.FamilyID, id)
	if err != nil {
		return nil, err
	}
	if st := EffectiveStatus(*c, now); st != model.ChoreOpen {
		return nil, apperr.New(apperr.KindInvalidTransition, "chore %d is %s; only OPEN chores can be edited", id, st)
	}
	if in.Version != 0 && in.Version != c.Version {
		return nil, apperr.New(apperr.KindStaleState, "chore %d has changed", id)
	}

	c.Title = strings.TrimSpace(in.Title)
	c.Description = strings.TrimSpace(in.Description)
	c.Points = in.Points
	c.ExpiresAt = in.ExpiresAt
	if err := e.validateFields(ctx, actor.FamilyID, c, false, now); err != nil {
		return nil, err
	}
	if c.AssignedToIDs, err = e.familyMembers(ctx, actor.FamilyID, in.AssignedToIDs, "assignee"); err != nil {
		return nil, err
	}

	if err := e.chores.Update(ctx, c, c.Version, now); err != nil {
		return nil, err
	}
	return e.Get(ctx, actor.FamilyID, id)
}

// Delete removes an OPEN or EXPIRED chore.
func (e *Engine) Delete(ctx context.Context, actor auth.Actor, id int64) error {
	if err := auth.Require(actor.Role, auth.OpChoreDelete); err != nil {
		return err
	}
	c, err := e.load(ctx, actor.FamilyID, id)
	if err != nil {
		return err
	}
	switch st := EffectiveStatus(*c, e.Now()); st {
	case model.ChoreOpen, model.ChoreExpired:
	default:
		return apperr.New(apperr.KindInvalidTransition, "chore %d is %s and cannot be deleted", id, st)
	}
	if err := e.chores.Delete(ctx, actor.FamilyID, id, c.Version); err != nil {
		return err
	}
	e.logger.Info("chore deleted", "family_id", actor.FamilyID, "chore_id", id, "by", actor.MemberID)
	return nil
}

// Submit records completion of an OPEN chore. Without doers the actor is
// recorded as the doer; when the chore has assignees every doer must be one.
func (e *Engine) Submit(ctx context.Context, actor auth.Actor, id int64, doerIDs []int64, proofs []model.Proof) (_ *model.Chore, err error) {
	ctx, span := telemetry.Start(ctx, "chore.submit", attribute.Int64("chore_id", id))
	defer func() { telemetry.End(span, err) }()

	if err := auth.Require(actor.Role, auth.OpChoreSubmit); err != nil {
		return nil, err
	}
	now := e.Now().UTC()
	c, err := e.load(ctx, actor.FamilyID, id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.ChoreOpen {
		return nil, apperr.New(apperr.KindInvalidTransition, "chore %d is %s, not OPEN", id, c.Status)
	}
	if c.Overdue(now) {
		return nil, apperr.New(apperr.KindExpired, "chore %d expired at %s", id, c.ExpiresAt.Format(time.RFC3339))
	}
	proofs, err = validateProofs(proofs)
	if err != nil {
		return nil, err
	}

	if len(doerIDs) == 0 {
		doerIDs = []int64{actor.MemberID}
	}
	doers, err := e.familyMembers(ctx, actor.FamilyID, doerIDs, "doer")
	if err != nil {
		return nil, err
	}
	if len(c.AssignedToIDs) > 0 {
		assigned := make(map[int64]bool, len(c.AssignedToIDs))
		for _, a := range c.AssignedToIDs {
			assigned[a] = true
		}
		for _, d := range doers {
			if !assigned[d] {
				return nil, apperr.New(apperr.KindInvalidInput, "member %d is not assigned to chore %d", d, id)
			}
		}
	}

	if err := e.chores.Submit(ctx, actor.FamilyID, id, c.Version, doers, proofs, now); err != nil {
		return nil, err
	}
	e.logger.Info("chore submitted", "family_id", actor.FamilyID, "chore_id", id, "doers", doers)
	return e.Get(ctx, actor.FamilyID, id)
}

// Approve moves a SUBMITTED chore to APPROVED and credits its doers.
// expectedStatus is the status the caller last saw; a mismatch means
// another actor got there first and yields StaleState.
func (e *Engine) Approve(ctx context.Context, actor auth.Actor, id int64, expectedStatus model.ChoreStatus, notes *string) (_ *model.Chore, _ []model.LedgerEntry, err error) {
	ctx, span := telemetry.Start(ctx, "chore.approve",
		attribute.Int64("chore_id", id), attribute.Int64("approver_id", actor.MemberID))
	defer func() { telemetry.End(span, err) }()

	if err := auth.Require(actor.Role, auth.OpChoreApprove); err != nil {
		return nil, nil, err
	}
	if err := checkNotes(notes); err != nil {
		return nil, nil, err
	}
	now := e.Now().UTC()
	c, err := e.load(ctx, actor.FamilyID, id)
	if err != nil {
		return nil, nil, err
	}
	if err := checkExpected(c, expectedStatus, now); err != nil {
		return nil, nil, err
	}
	if len(c.DoneByIDs) == 0 {
		return nil, nil, apperr.New(apperr.KindInvalidTransition, "chore %d has no recorded doers", id)
	}

	reason := fmt.Sprintf("chore:%d", c.ID)
	approver := actor.MemberID
	var credits []*model.LedgerEntry
	for _, sh := range Split(c.Points, c.DoneByIDs) {
		if sh.Points == 0 {
			continue
		}
		credits = append(credits, &model.LedgerEntry{
			FamilyID:           actor.FamilyID,
			MemberID:           sh.MemberID,
			Delta:              sh.Points,
			Reason:             reason,
			Kind:               model.LedgerChoreApproval,
			ApprovedByMemberID: &approver,
			CreatedAt:          now,
		})
	}

	if err := e.chores.Approve(ctx, actor.FamilyID, id, c.Version, actor.MemberID, notes, now, credits); err != nil {
		return nil, nil, err
	}
	e.logger.Info("chore approved",
		"family_id", actor.FamilyID, "chore_id", id, "approver_id", actor.MemberID,
		"points", c.Points, "credits", len(credits))

	updated, err := e.Get(ctx, actor.FamilyID, id)
	if err != nil {
		return nil, nil, err
	}
	entries := make([]model.LedgerEntry, len(credits))
	for i, cr := range credits {
		entries[i] = *cr
	}
	return updated, entries, nil
}

// Reject returns a SUBMITTED chore to OPEN, discarding its doers and proof
// and keeping any notes. The discarded doers are returned alongside the
// cleared chore.
func (e *Engine) Reject(ctx context.Context, actor auth.Actor, id int64, expectedStatus model.ChoreStatus, notes *string) (_ *model.Chore, _ []int64, err error) {
	ctx, span := telemetry.Start(ctx, "chore.reject", attribute.Int64("chore_id", id))
	defer func() { telemetry.End(span, err) }()

	if err := auth.Require(actor.Role, auth.OpChoreReject); err != nil {
		return nil, nil, err
	}
	if err := checkNotes(notes); err != nil {
		return nil, nil, err
	}
	now := e.Now().UTC()
	c, err := e.load(ctx, actor.FamilyID, id)
	if err != nil {
		return nil, nil, err
	}
	if err := checkExpected(c, expectedStatus, now); err != nil {
		return nil, nil, err
	}
	doers := c.DoneByIDs

	if err := e.chores.Reject(ctx, actor.FamilyID, id, c.Version, notes, now); err != nil {
		return nil, nil, err
	}
	e.logger.Info("chore rejected", "family_id", actor.FamilyID, "chore_id", id, "by", actor.MemberID)

	updated, err := e.Get(ctx, actor.FamilyID, id)
	if err != nil {
		return nil, nil, err
	}
	return updated, doers, nil
}

func checkExpected(c *model.Chore, expected model.ChoreStatus, now time.Time) error {
	if st := EffectiveStatus(*c, now); st != expected {
		return apperr.New(apperr.KindStaleState, "chore %d is %s, expected %s", c.ID, st, expected)
	}
	if expected != model.ChoreSubmitted {
		return apperr.New(apperr.KindInvalidTransition, "chore %d is %s, not SUBMITTED", c.ID, expected)
	}
	return nil
}

func checkNotes(notes *string) error {
	if notes != nil && len(*notes) > maxNotesLen {
		return apperr.New(apperr.KindInvalidInput, "notes must be at most %d characters", maxNotesLen)
	}
	return nil
}

// Expire persists EXPIRED for one overdue chore. It is a no-op for chores
// that are terminal or not yet due.
func (e *Engine) Expire(ctx context.Context, familyID, id int64) (bool, error) {
	if _, err := e.load(ctx, familyID, id); err != nil {
		return false, err
	}
	return e.chores.Expire(ctx, familyID, id, e.Now().UTC())
}

// ExpireOverdue persists EXPIRED for every overdue chore in every family.
func (e *Engine) ExpireOverdue(ctx context.Context) (_ []store.ExpiredRef, err error) {
	ctx, span := telemetry.Start(ctx, "chore.sweep")
	defer func() { telemetry.End(span, err) }()

	refs, err := e.chores.ExpireOverdue(ctx, e.Now().UTC())
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("expired", len(refs)))
	return refs, nil
}

// Granularity buckets expired-chore reports.
type Granularity string

const (
	ByDay   Granularity = "day"
	ByMonth Granularity = "month"
)

// ExpiredCounts reports how many chores expired per day or month in
// [from, to), read from persisted state.
func (e *Engine) ExpiredCounts(ctx context.Context, familyID int64, from, to time.Time, g Granularity) ([]model.ExpiredCount, error) {
	if g != ByDay && g != ByMonth {
		return nil, apperr.New(apperr.KindInvalidInput, "granularity must be day or month")
	}
	if !from.Before(to) {
		return nil, apperr.New(apperr.KindInvalidInput, "from must be before to")
	}
	return e.chores.ExpiredCounts(ctx, familyID, from, to, g == ByMonth)
}
