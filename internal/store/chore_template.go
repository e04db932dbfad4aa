package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/marinda/internal/database"
	"github.com/dukerupert/marinda/internal/model"
)

type ChoreTemplateStore struct {
	db *sql.DB
}

func NewChoreTemplateStore(db *sql.DB) *ChoreTemplateStore {
	return &ChoreTemplateStore{db: db}
}

const templateCols = `id, family_id, title, default_points, is_archived, created_at, updated_at`

func scanTemplate(scanner interface{ Scan(...any) error }) (*model.ChoreTemplate, error) {
	var t model.ChoreTemplate
	var created, updated int64
	err := scanner.Scan(&t.ID, &t.FamilyID, &t.Title, &t.DefaultPoints, &t.IsArchived, &created, &updated)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = database.FromMillis(created)
	t.UpdatedAt = database.FromMillis(updated)
	return &t, nil
}

func (s *ChoreTemplateStore) Create(ctx context.Context, familyID int64, title string, defaultPoints int64) (*model.ChoreTemplate, error) {
	now := database.ToMillis(time.Now())
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO chore_templates (family_id, title, default_points, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		familyID, title, defaultPoints, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore template: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, familyID, id)
}

func (s *ChoreTemplateStore) GetByID(ctx context.Context, familyID, id int64) (*model.ChoreTemplate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+templateCols+` FROM chore_templates WHERE id = ? AND family_id = ?`, id, familyID)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore template: %w", err)
	}
	return t, nil
}

func (s *ChoreTemplateStore) List(ctx context.Context, familyID int64, includeArchived bool) ([]model.ChoreTemplate, error) {
	q := `SELECT ` + templateCols + ` FROM chore_templates WHERE family_id = ?`
	if !includeArchived {
		q += ` AND is_archived = 0`
	}
	q += ` ORDER BY title ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, familyID)
	if err != nil {
		return nil, fmt.Errorf("list chore templates: %w", err)
	}
	defer rows.Close()

	var templates []model.ChoreTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

func (s *ChoreTemplateStore) Update(ctx context.Context, familyID, id int64, title string, defaultPoints int64) (*model.ChoreTemplate, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chore_templates SET title = ?, default_points = ?, updated_at = ? WHERE id = ? AND family_id = ?`,
		title, defaultPoints, database.ToMillis(time.Now()), id, familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore template: %w", err)
	}
	return s.GetByID(ctx, familyID, id)
}

func (s *ChoreTemplateStore) SetArchived(ctx context.Context, familyID, id int64, archived bool) (*model.ChoreTemplate, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chore_templates SET is_archived = ?, updated_at = ? WHERE id = ? AND family_id = ?`,
		archived, database.ToMillis(time.Now()), id, familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("archive chore template: %w", err)
	}
	return s.GetByID(ctx, familyID, id)
}
