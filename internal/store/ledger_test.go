package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/marinda/internal/apperr"
	"github.com/dukerupert/marinda/internal/model"
	"github.com/dukerupert/marinda/internal/testutil"
)

func setupLedgerTestDB(t *testing.T) (*LedgerStore, testutil.Family) {
	t.Helper()
	db := testutil.NewTestDatabase(t)
	return NewLedgerStore(db), testutil.SeedFamily(t, db, "Test")
}

func TestLedgerAppendUpdatesBalance(t *testing.T) {
	ls, f := setupLedgerTestDB(t)
	ctx := context.Background()

	entries := []*model.LedgerEntry{
		{FamilyID: f.ID, MemberID: f.Child, Delta: 10, Reason: "chore:1", Kind: model.LedgerChoreApproval, CreatedAt: t0},
		{FamilyID: f.ID, MemberID: f.Child, Delta: -3, Reason: "wishlist:1", Kind: model.LedgerWishlistFulfillment, CreatedAt: t0.Add(time.Minute)},
	}
	if err := ls.Append(ctx, entries...); err != nil {
		t.Fatalf("append: %v", err)
	}

	if p := testutil.Points(t, ls.db, f.Child); p != 7 {
		t.Errorf("points = %d, want 7", p)
	}
	testutil.AssertBalancesMatchLedger(t, ls.db)
}

func TestLedgerAppendUnknownMember(t *testing.T) {
	ls, f := setupLedgerTestDB(t)
	err := ls.Append(context.Background(), &model.LedgerEntry{
		FamilyID: f.ID, MemberID: 4242, Delta: 1, Reason: "x", Kind: model.LedgerManualAdjust,
	})
	if !errors.Is(err, apperr.NotFound) {
		t.Errorf("err = %v, want NotFound", err)
	}
}

func TestLedgerHistoryOrderAndWindow(t *testing.T) {
	ls, f := setupLedgerTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := ls.Append(ctx, &model.LedgerEntry{
			FamilyID: f.ID, MemberID: f.Teen, Delta: int64(i + 1), Reason: "r",
			Kind: model.LedgerManualAdjust, CreatedAt: t0.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	all, err := ls.History(ctx, f.ID, f.Teen, 0, nil)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("len = %d, want 5", len(all))
	}
	if all[0].Delta != 5 || all[4].Delta != 1 {
		t.Errorf("order = %d..%d, want newest first", all[0].Delta, all[4].Delta)
	}

	limited, _ := ls.History(ctx, f.ID, f.Teen, 2, nil)
	if len(limited) != 2 || limited[0].Delta != 5 {
		t.Errorf("limited = %+v", limited)
	}

	since := t0.Add(3 * time.Hour)
	windowed, _ := ls.History(ctx, f.ID, f.Teen, 0, &since)
	if len(windowed) != 2 {
		t.Errorf("windowed len = %d, want 2", len(windowed))
	}

	other, _ := ls.History(ctx, f.ID, f.Child, 0, nil)
	if len(other) != 0 {
		t.Errorf("child history len = %d, want 0", len(other))
	}
}

func TestLedgerHistorySameTimestampUsesInsertOrder(t *testing.T) {
	ls, f := setupLedgerTestDB(t)
	ctx := context.Background()
	for _, d := range []int64{1, 2, 3} {
		if err := ls.Append(ctx, &model.LedgerEntry{FamilyID: f.ID, MemberID: f.Teen, Delta: d, Reason: "r", Kind: model.LedgerManualAdjust, CreatedAt: t0}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got, _ := ls.History(ctx, f.ID, f.Teen, 0, nil)
	if got[0].Delta != 3 || got[2].Delta != 1 {
		t.Errorf("deltas = %d,%d,%d want 3,2,1", got[0].Delta, got[1].Delta, got[2].Delta)
	}
}

func TestLedgerConcurrentCreditsBothApply(t *testing.T) {
	ls, f := setupLedgerTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- ls.Append(ctx, &model.LedgerEntry{
				FamilyID: f.ID, MemberID: f.Child, Delta: 3, Reason: "chore", Kind: model.LedgerChoreApproval,
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	if p := testutil.Points(t, ls.db, f.Child); p != 60 {
		t.Errorf("points = %d, want 60", p)
	}
	testutil.AssertBalancesMatchLedger(t, ls.db)
}

func TestLedgerDrift(t *testing.T) {
	ls, f := setupLedgerTestDB(t)
	ctx := context.Background()
	if err := ls.Append(ctx, &model.LedgerEntry{FamilyID: f.ID, MemberID: f.Teen, Delta: 8, Reason: "r", Kind: model.LedgerManualAdjust}); err != nil {
		t.Fatalf("append: %v", err)
	}

	drift, err := ls.Drift(ctx, f.ID)
	if err != nil {
		t.Fatalf("drift: %v", err)
	}
	if len(drift) != 0 {
		t.Fatalf("drift = %+v, want none", drift)
	}

	// Simulate corruption outside the ledger path.
	if _, err := ls.db.Exec(`UPDATE family_members SET points = 100 WHERE id = ?`, f.Teen); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	drift, err = ls.Drift(ctx, f.ID)
	if err != nil {
		t.Fatalf("drift: %v", err)
	}
	if len(drift) != 1 {
		t.Fatalf("drift = %+v, want one member", drift)
	}
	if drift[0].MemberID != f.Teen || drift[0].Cached != 100 || drift[0].LedgerSum != 8 {
		t.Errorf("drift = %+v", drift[0])
	}
}
