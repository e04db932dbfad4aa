package chore

import (
	"context"

	"github.com/dukerupert/marinda/internal/auth"
	"github.com/dukerupert/marinda/internal/model"
)

func (e *Engine) Settings(ctx context.Context, familyID int64) (model.ChoreSettings, error) {
	return e.settings.GetChoreSettings(ctx, familyID)
}

func (e *Engine) UpdateSettings(ctx context.Context, actor auth.Actor, cs model.ChoreSettings) (model.ChoreSettings, error) {
	if err := auth.Require(actor.Role, auth.OpSettingsUpdate); err != nil {
		return model.ChoreSettings{}, err
	}
	if err := e.settings.SetChoreSettings(ctx, actor.FamilyID, cs); err != nil {
		return model.ChoreSettings{}, err
	}
	e.logger.Info("chore settings updated", "family_id", actor.FamilyID, "allow_zero_points", cs.AllowZeroPoints)
	return cs, nil
}
