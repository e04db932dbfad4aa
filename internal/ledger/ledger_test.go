package ledger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/marinda/internal/apperr"
	"github.com/dukerupert/marinda/internal/auth"
	"github.com/dukerupert/marinda/internal/logging"
	"github.com/dukerupert/marinda/internal/model"
	"github.com/dukerupert/marinda/internal/store"
	"github.com/dukerupert/marinda/internal/testutil"
)

func setup(t *testing.T) (*Service, testutil.Family) {
	t.Helper()
	db := testutil.NewTestDatabase(t)
	f := testutil.SeedFamily(t, db, "Test")
	svc := NewService(store.NewLedgerStore(db), store.NewFamilyMemberStore(db), logging.Discard())
	svc.Now = func() time.Time { return time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC) }
	return svc, f
}

func TestCredit(t *testing.T) {
	svc, f := setup(t)
	ctx := context.Background()

	e, err := svc.Credit(ctx, f.ID, f.Child, 12, "chore:3", model.LedgerChoreApproval, &f.Mom)
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if e.ID == "" {
		t.Error("expected an entry id")
	}
	members, _ := svc.Balances(ctx, f.ID)
	if members[0].ID != f.Child || members[0].Points != 12 {
		t.Errorf("top member = %+v, want child with 12", members[0])
	}
}

func TestCreditValidation(t *testing.T) {
	svc, f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		delta  int64
		reason string
		kind   model.LedgerKind
	}{
		{"zero delta", 0, "r", model.LedgerManualAdjust},
		{"blank reason", 1, "  ", model.LedgerManualAdjust},
		{"unknown kind", 1, "r", model.LedgerKind("bonus")},
	}
	for _, tt := range tests {
		_, err := svc.Credit(ctx, f.ID, f.Child, tt.delta, tt.reason, tt.kind, nil)
		if !errors.Is(err, apperr.InvalidInput) {
			t.Errorf("%s: err = %v, want InvalidInput", tt.name, err)
		}
	}
}

func TestAdjustRequiresParent(t *testing.T) {
	svc, f := setup(t)
	ctx := context.Background()

	_, err := svc.Adjust(ctx, auth.Actor{MemberID: f.Teen, FamilyID: f.ID, Role: model.RoleTeen}, f.Child, 5, "bonus")
	if !errors.Is(err, apperr.Unauthorized) {
		t.Errorf("err = %v, want Unauthorized", err)
	}

	e, err := svc.Adjust(ctx, auth.Actor{MemberID: f.Dad, FamilyID: f.ID, Role: model.RoleDad}, f.Child, -2, "correction for chore 4")
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if e.Kind != model.LedgerManualAdjust || e.ApprovedByMemberID == nil || *e.ApprovedByMemberID != f.Dad {
		t.Errorf("entry = %+v", e)
	}
}

func TestAdjustOtherFamilyMember(t *testing.T) {
	svc, f := setup(t)
	_, err := svc.Adjust(context.Background(), auth.Actor{MemberID: f.Mom, FamilyID: f.ID, Role: model.RoleMom}, 9999, 5, "bonus")
	if !errors.Is(err, apperr.NotFound) {
		t.Errorf("err = %v, want NotFound", err)
	}
}

func TestHistoryUnknownMember(t *testing.T) {
	svc, f := setup(t)
	_, err := svc.History(context.Background(), f.ID, 9999, 10, nil)
	if !errors.Is(err, apperr.NotFound) {
		t.Errorf("err = %v, want NotFound", err)
	}
	entries, err := svc.History(context.Background(), f.ID, f.Teen, 0, nil)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("entries = %v, want empty slice", entries)
	}
}

func TestReconcileClean(t *testing.T) {
	svc, f := setup(t)
	ctx := context.Background()
	if _, err := svc.Credit(ctx, f.ID, f.Teen, 4, "r", model.LedgerManualAdjust, nil); err != nil {
		t.Fatalf("credit: %v", err)
	}
	drift, err := svc.Reconcile(ctx, f.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(drift) != 0 {
		t.Errorf("drift = %+v, want none", drift)
	}
}

func TestReconcileReportsAndLogsMismatch(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	f := testutil.SeedFamily(t, db, "Test")
	var buf bytes.Buffer
	svc := NewService(store.NewLedgerStore(db), store.NewFamilyMemberStore(db), logging.New(&buf, "info", "json"))

	if _, err := db.Exec(`UPDATE family_members SET points = 3 WHERE id = ?`, f.Child); err != nil {
		t.Fatalf("corrupt: %v", err)
	}

	drift, err := svc.Reconcile(context.Background(), f.ID)
	if !errors.Is(err, apperr.Consistency) {
		t.Fatalf("err = %v, want Consistency", err)
	}
	if len(drift) != 1 || drift[0].MemberID != f.Child || drift[0].Cached != 3 || drift[0].LedgerSum != 0 {
		t.Errorf("drift = %+v", drift)
	}
	out := buf.String()
	if !strings.Contains(out, `"level":"ERROR"`) || !strings.Contains(out, `"ledger_sum":0`) {
		t.Errorf("log output = %s", out)
	}

	// Never corrected.
	if p := testutil.Points(t, db, f.Child); p != 3 {
		t.Errorf("points = %d, want 3 (unchanged)", p)
	}
}
