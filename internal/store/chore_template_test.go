package store

import (
	"context"
	"testing"

	"github.com/dukerupert/marinda/internal/testutil"
)

func TestChoreTemplateLifecycle(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	ts := NewChoreTemplateStore(db)
	f := testutil.SeedFamily(t, db, "Test")
	ctx := context.Background()

	tpl, err := ts.Create(ctx, f.ID, "Take out trash", 3)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tpl.DefaultPoints != 3 || tpl.IsArchived {
		t.Errorf("template = %+v", tpl)
	}

	tpl, err = ts.Update(ctx, f.ID, tpl.ID, "Take out recycling", 4)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if tpl.Title != "Take out recycling" || tpl.DefaultPoints != 4 {
		t.Errorf("updated = %+v", tpl)
	}

	if _, err := ts.SetArchived(ctx, f.ID, tpl.ID, true); err != nil {
		t.Fatalf("archive: %v", err)
	}
	active, _ := ts.List(ctx, f.ID, false)
	if len(active) != 0 {
		t.Errorf("active = %d, want 0", len(active))
	}
	all, _ := ts.List(ctx, f.ID, true)
	if len(all) != 1 || !all[0].IsArchived {
		t.Errorf("all = %+v", all)
	}

	tpl, _ = ts.SetArchived(ctx, f.ID, tpl.ID, false)
	if tpl.IsArchived {
		t.Error("expected unarchived")
	}

	if got, _ := ts.GetByID(ctx, f.ID+1, tpl.ID); got != nil {
		t.Error("template should not be visible to another family")
	}
}
