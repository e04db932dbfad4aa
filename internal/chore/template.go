package chore

import (
	"context"
	"strings"

	"github.com/dukerupert/marinda/internal/apperr"
	"github.com/dukerupert/marinda/internal/auth"
	"github.com/dukerupert/marinda/internal/model"
)

func validateTemplate(title string, points int64) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperr.New(apperr.KindInvalidInput, "title is required")
	}
	if len(title) > maxTitleLen {
		return "", apperr.New(apperr.KindInvalidInput, "title must be at most %d characters", maxTitleLen)
	}
	if points < 0 {
		return "", apperr.New(apperr.KindInvalidInput, "default_points must not be negative")
	}
	return title, nil
}

func (e *Engine) CreateTemplate(ctx context.Context, actor auth.Actor, title string, defaultPoints int64) (*model.ChoreTemplate, error) {
	if err := auth.Require(actor.Role, auth.OpTemplateManage); err != nil {
		return nil, err
	}
	title, err := validateTemplate(title, defaultPoints)
	if err != nil {
		return nil, err
	}
	return e.templates.Create(ctx, actor.FamilyID, title, defaultPoints)
}

func (e *Engine) ListTemplates(ctx context.Context, familyID int64, includeArchived bool) ([]model.ChoreTemplate, error) {
	templates, err := e.templates.List(ctx, familyID, includeArchived)
	if err != nil {
		return nil, err
	}
	if templates == nil {
		templates = []model.ChoreTemplate{}
	}
	return templates, nil
}

func (e *Engine) UpdateTemplate(ctx context.Context, actor auth.Actor, id int64, title string, defaultPoints int64) (*model.ChoreTemplate, error) {
	if err := auth.Require(actor.Role, auth.OpTemplateManage); err != nil {
		return nil, err
	}
	title, err := validateTemplate(title, defaultPoints)
	if err != nil {
		return nil, err
	}
	if _, err := e.template(ctx, actor.FamilyID, id); err != nil {
		return nil, err
	}
	return e.templates.Update(ctx, actor.FamilyID, id, title, defaultPoints)
}

// SetTemplateArchived hides or restores a template. Chores already created
// from it are unaffected.
func (e *Engine) SetTemplateArchived(ctx context.Context, actor auth.Actor, id int64, archived bool) (*model.ChoreTemplate, error) {
	if err := auth.Require(actor.Role, auth.OpTemplateManage); err != nil {
		return nil, err
	}
	if _, err := e.template(ctx, actor.FamilyID, id); err != nil {
		return nil, err
	}
	return e.templates.SetArchived(ctx, actor.FamilyID, id, archived)
}

func (e *Engine) template(ctx context.Context, familyID, id int64) (*model.ChoreTemplate, error) {
	t, err := e.templates.GetByID(ctx, familyID, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.New(apperr.KindNotFound, "template %d not found", id)
	}
	return t, nil
}
