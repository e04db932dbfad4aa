package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/marinda/internal/currency"
	"github.com/dukerupert/marinda/internal/database"
	"github.com/dukerupert/marinda/internal/model"
)

const (
	keyWishlistCurrency     = "wishlist_currency"
	keyWishlistRate         = "wishlist_points_per_currency"
	keyWishlistSelfMaxPrice = "wishlist_self_fulfill_max_price"
	keyChoreAllowZero       = "chore_allow_zero_points"
)

// DefaultPointsPerCurrency applies until a parent configures a rate.
var DefaultPointsPerCurrency = decimal.NewFromInt(10)

// SettingsStore persists per-family key/value settings.
type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the value for key. ok is false when the key has never been set.
func (s *SettingsStore) Get(ctx context.Context, familyID int64, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE family_id = ? AND key = ?`, familyID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SettingsStore) GetAll(ctx context.Context, familyID int64) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings WHERE family_id = ? ORDER BY key`, familyID)
	if err != nil {
		return nil, fmt.Errorf("get all settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

func (s *SettingsStore) Set(ctx context.Context, familyID int64, key, value string) error {
	return setSetting(ctx, s.db, familyID, key, value)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setSetting(ctx context.Context, db execer, familyID int64, key, value string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO settings (family_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(family_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		familyID, key, value, database.ToMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// GetWishlistSettings reads the current conversion settings, filling in
// defaults for keys that were never set.
func (s *SettingsStore) GetWishlistSettings(ctx context.Context, familyID int64) (model.WishlistSettings, error) {
	all, err := s.GetAll(ctx, familyID)
	if err != nil {
		return model.WishlistSettings{}, err
	}

	ws := model.WishlistSettings{
		Currency:          currency.DefaultCode,
		PointsPerCurrency: DefaultPointsPerCurrency,
	}
	if v, ok := all[keyWishlistCurrency]; ok && v != "" {
		ws.Currency = v
	}
	if v, ok := all[keyWishlistRate]; ok {
		rate, err := decimal.NewFromString(v)
		if err != nil {
			return model.WishlistSettings{}, fmt.Errorf("parse %s: %w", keyWishlistRate, err)
		}
		ws.PointsPerCurrency = rate
	}
	if v, ok := all[keyWishlistSelfMaxPrice]; ok && v != "" {
		limit, err := decimal.NewFromString(v)
		if err != nil {
			return model.WishlistSettings{}, fmt.Errorf("parse %s: %w", keyWishlistSelfMaxPrice, err)
		}
		ws.SelfFulfillMaxPrice = &limit
	}
	return ws, nil
}

// SetWishlistSettings replaces all three wishlist settings atomically.
func (s *SettingsStore) SetWishlistSettings(ctx context.Context, familyID int64, ws model.WishlistSettings) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := setSetting(ctx, tx, familyID, keyWishlistCurrency, ws.Currency); err != nil {
			return err
		}
		if err := setSetting(ctx, tx, familyID, keyWishlistRate, ws.PointsPerCurrency.String()); err != nil {
			return err
		}
		if ws.SelfFulfillMaxPrice == nil {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM settings WHERE family_id = ? AND key = ?`, familyID, keyWishlistSelfMaxPrice); err != nil {
				return fmt.Errorf("clear %s: %w", keyWishlistSelfMaxPrice, err)
			}
			return nil
		}
		return setSetting(ctx, tx, familyID, keyWishlistSelfMaxPrice, ws.SelfFulfillMaxPrice.String())
	})
}

func (s *SettingsStore) GetChoreSettings(ctx context.Context, familyID int64) (model.ChoreSettings, error) {
	v, ok, err := s.Get(ctx, familyID, keyChoreAllowZero)
	if err != nil || !ok {
		return model.ChoreSettings{}, err
	}
	allow, err := strconv.ParseBool(v)
	if err != nil {
		return model.ChoreSettings{}, fmt.Errorf("parse %s: %w", keyChoreAllowZero, err)
	}
	return model.ChoreSettings{AllowZeroPoints: allow}, nil
}

func (s *SettingsStore) SetChoreSettings(ctx context.Context, familyID int64, cs model.ChoreSettings) error {
	return s.Set(ctx, familyID, keyChoreAllowZero, strconv.FormatBool(cs.AllowZeroPoints))
}
