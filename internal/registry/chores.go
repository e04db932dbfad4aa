package registry

import (
	"context"
	"time"

	"github.com/dukerupert/marinda/internal/apperr"
	"github.com/dukerupert/marinda/internal/auth"
	"github.com/dukerupert/marinda/internal/chore"
	"github.com/dukerupert/marinda/internal/model"
)

func (r *Registry) CreateChore(ctx context.Context, actor auth.Actor, in chore.CreateInput) (*model.Chore, error) {
	c, err := r.chores.Create(ctx, actor, in)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, c.FamilyID, "chore", "created", c.ID, nil)
	return c, nil
}

func (r *Registry) GetChore(ctx context.Context, familyID, id int64) (*model.Chore, error) {
	return r.chores.Get(ctx, familyID, id)
}

func (r *Registry) ListChores(ctx context.Context, familyID int64, f model.ChoreFilter) ([]model.Chore, error) {
	return r.chores.List(ctx, familyID, f)
}

func (r *Registry) UpdateChore(ctx context.Context, actor auth.Actor, id int64, in chore.UpdateInput) (*model.Chore, error) {
	c, err := r.chores.Update(ctx, actor, id, in)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, c.FamilyID, "chore", "updated", c.ID, nil)
	return c, nil
}

func (r *Registry) DeleteChore(ctx context.Context, actor auth.Actor, id int64) error {
	if err := r.chores.Delete(ctx, actor, id); err != nil {
		return err
	}
	r.publish(ctx, actor.FamilyID, "chore", "deleted", id, nil)
	return nil
}

func (r *Registry) SubmitChore(ctx context.Context, actor auth.Actor, id int64, doers []int64, proofs []model.Proof) (*model.Chore, error) {
	c, err := r.chores.Submit(ctx, actor, id, doers, proofs)
	if apperr.KindOf(err) == apperr.KindExpired {
		// The chore is overdue; persist EXPIRED now rather than at the next sweep.
		if ok, xerr := r.chores.Expire(ctx, actor.FamilyID, id); xerr != nil {
			r.logger.Warn("expire on submit", "chore_id", id, "error", xerr)
		} else if ok {
			r.publish(ctx, actor.FamilyID, "chore", "expired", id, nil)
		}
	}
	if err != nil {
		return nil, err
	}
	r.publish(ctx, c.FamilyID, "chore", "submitted", c.ID, map[string]any{"done_by_ids": c.DoneByIDs})
	if r.notifier != nil {
		r.notifier.ChoreSubmitted(ctx, c)
	}
	return c, nil
}

func (r *Registry) ApproveChore(ctx context.Context, actor auth.Actor, id int64, expected model.ChoreStatus, notes *string) (*model.Chore, []model.LedgerEntry, error) {
	c, credits, err := r.chores.Approve(ctx, actor, id, expected, notes)
	if err != nil {
		return nil, nil, err
	}
	r.publish(ctx, c.FamilyID, "chore", "approved", c.ID, map[string]any{"points": c.Points})
	for i := range credits {
		r.publishBalance(ctx, &credits[i])
	}
	if r.notifier != nil {
		r.notifier.ChoreApproved(c, credits)
	}
	return c, credits, nil
}

func (r *Registry) RejectChore(ctx context.Context, actor auth.Actor, id int64, expected model.ChoreStatus, notes *string) (*model.Chore, error) {
	c, doers, err := r.chores.Reject(ctx, actor, id, expected, notes)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, c.FamilyID, "chore", "rejected", c.ID, nil)
	if r.notifier != nil {
		r.notifier.ChoreRejected(c, doers)
	}
	return c, nil
}

// SweepChores is the on-demand sweep. It returns how many chores expired.
func (r *Registry) SweepChores(ctx context.Context, actor auth.Actor) (int, error) {
	if err := auth.Require(actor.Role, auth.OpChoreSweep); err != nil {
		return 0, err
	}
	return r.Sweep(ctx)
}

func (r *Registry) ExpiredReport(ctx context.Context, familyID int64, from, to time.Time, g chore.Granularity) ([]model.ExpiredCount, error) {
	return r.chores.ExpiredCounts(ctx, familyID, from, to, g)
}

func (r *Registry) ListTemplates(ctx context.Context, familyID int64, includeArchived bool) ([]model.ChoreTemplate, error) {
	return r.chores.ListTemplates(ctx, familyID, includeArchived)
}

func (r *Registry) CreateTemplate(ctx context.Context, actor auth.Actor, title string, points int64) (*model.ChoreTemplate, error) {
	t, err := r.chores.CreateTemplate(ctx, actor, title, points)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, t.FamilyID, "chore_template", "created", t.ID, nil)
	return t, nil
}

func (r *Registry) UpdateTemplate(ctx context.Context, actor auth.Actor, id int64, title string, points int64) (*model.ChoreTemplate, error) {
	t, err := r.chores.UpdateTemplate(ctx, actor, id, title, points)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, t.FamilyID, "chore_template", "updated", t.ID, nil)
	return t, nil
}

func (r *Registry) SetTemplateArchived(ctx context.Context, actor auth.Actor, id int64, archived bool) (*model.ChoreTemplate, error) {
	t, err := r.chores.SetTemplateArchived(ctx, actor, id, archived)
	if err != nil {
		return nil, err
	}
	action := "unarchived"
	if archived {
		action = "archived"
	}
	r.publish(ctx, t.FamilyID, "chore_template", action, t.ID, nil)
	return t, nil
}

func (r *Registry) ChoreSettings(ctx context.Context, familyID int64) (model.ChoreSettings, error) {
	return r.chores.Settings(ctx, familyID)
}

func (r *Registry) UpdateChoreSettings(ctx context.Context, actor auth.Actor, cs model.ChoreSettings) (model.ChoreSettings, error) {
	cs, err := r.chores.UpdateSettings(ctx, actor, cs)
	if err != nil {
		return cs, err
	}
	r.publish(ctx, actor.FamilyID, "settings", "updated", 0, map[string]any{"section": "chores"})
	return cs, nil
}
