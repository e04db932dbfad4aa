package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/marinda/internal/model"
	"github.com/dukerupert/marinda/internal/testutil"
)

func setupSettingsTestDB(t *testing.T) (*SettingsStore, testutil.Family) {
	t.Helper()
	db := testutil.NewTestDatabase(t)
	return NewSettingsStore(db), testutil.SeedFamily(t, db, "Test")
}

func TestSettingsGetMissing(t *testing.T) {
	ss, f := setupSettingsTestDB(t)
	_, ok, err := ss.Get(context.Background(), f.ID, "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Error("expected ok = false for missing key")
	}
}

func TestSettingsSetOverwrites(t *testing.T) {
	ss, f := setupSettingsTestDB(t)
	ctx := context.Background()
	if err := ss.Set(ctx, f.ID, "k", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := ss.Set(ctx, f.ID, "k", "v2"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := ss.Get(ctx, f.ID, "k")
	if err != nil || !ok || v != "v2" {
		t.Errorf("get = %q, %v, %v; want v2", v, ok, err)
	}
}

func TestWishlistSettingsDefaults(t *testing.T) {
	ss, f := setupSettingsTestDB(t)
	ws, err := ss.GetWishlistSettings(context.Background(), f.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ws.Currency != "USD" {
		t.Errorf("currency = %q, want USD", ws.Currency)
	}
	if !ws.PointsPerCurrency.Equal(DefaultPointsPerCurrency) {
		t.Errorf("rate = %s, want %s", ws.PointsPerCurrency, DefaultPointsPerCurrency)
	}
	if ws.SelfFulfillMaxPrice != nil {
		t.Errorf("max = %v, want nil", ws.SelfFulfillMaxPrice)
	}
}

func TestWishlistSettingsRoundTrip(t *testing.T) {
	ss, f := setupSettingsTestDB(t)
	ctx := context.Background()
	limit := decimal.RequireFromString("50")
	in := model.WishlistSettings{Currency: "EUR", PointsPerCurrency: decimal.RequireFromString("12.5"), SelfFulfillMaxPrice: &limit}
	if err := ss.SetWishlistSettings(ctx, f.ID, in); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := ss.GetWishlistSettings(ctx, f.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Currency != "EUR" || !got.PointsPerCurrency.Equal(in.PointsPerCurrency) {
		t.Errorf("got %+v", got)
	}
	if got.SelfFulfillMaxPrice == nil || !got.SelfFulfillMaxPrice.Equal(limit) {
		t.Errorf("max = %v, want 50", got.SelfFulfillMaxPrice)
	}

	in.SelfFulfillMaxPrice = nil
	if err := ss.SetWishlistSettings(ctx, f.ID, in); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, _ = ss.GetWishlistSettings(ctx, f.ID)
	if got.SelfFulfillMaxPrice != nil {
		t.Errorf("max = %v, want nil after clearing", got.SelfFulfillMaxPrice)
	}
}

func TestWishlistSettingsPerFamily(t *testing.T) {
	ss, f := setupSettingsTestDB(t)
	other := testutil.SeedFamily(t, ss.db, "Other")
	ctx := context.Background()
	if err := ss.SetWishlistSettings(ctx, f.ID, model.WishlistSettings{Currency: "GBP", PointsPerCurrency: decimal.NewFromInt(3)}); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, _ := ss.GetWishlistSettings(ctx, other.ID)
	if got.Currency != "USD" {
		t.Errorf("other family currency = %q, want default", got.Currency)
	}
}

func TestChoreSettings(t *testing.T) {
	ss, f := setupSettingsTestDB(t)
	ctx := context.Background()
	cs, err := ss.GetChoreSettings(ctx, f.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cs.AllowZeroPoints {
		t.Error("zero points should be disallowed by default")
	}
	if err := ss.SetChoreSettings(ctx, f.ID, model.ChoreSettings{AllowZeroPoints: true}); err != nil {
		t.Fatalf("set: %v", err)
	}
	cs, _ = ss.GetChoreSettings(ctx, f.ID)
	if !cs.AllowZeroPoints {
		t.Error("expected AllowZeroPoints after set")
	}
}
