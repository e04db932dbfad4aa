package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/marinda/internal/apperr"
	"github.com/dukerupert/marinda/internal/database"
	"github.com/dukerupert/marinda/internal/model"
)

type WishlistStore struct {
	db *sql.DB
}

func NewWishlistStore(db *sql.DB) *WishlistStore {
	return &WishlistStore{db: db}
}

const wishlistCols = `id, family_id, member_id, title, price, status, fulfillment_mode, payment_method,
	fulfilled_by, fulfilled_at, version, created_at, updated_at`

func scanWishlistItem(scanner interface{ Scan(...any) error }) (*model.WishlistItem, error) {
	var it model.WishlistItem
	var price sql.NullString
	var status, mode string
	var fulfilledBy, fulfilledAt sql.NullInt64
	var created, updated int64

	err := scanner.Scan(&it.ID, &it.FamilyID, &it.MemberID, &it.Title, &price, &status, &mode,
		&it.PaymentMethod, &fulfilledBy, &fulfilledAt, &it.Version, &created, &updated)
	if err != nil {
		return nil, err
	}
	if price.Valid {
		p, err := decimal.NewFromString(price.String)
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", price.String, err)
		}
		it.Price = &p
	}
	it.Status = model.WishlistStatus(status)
	it.FulfillmentMode = model.FulfillmentMode(mode)
	it.FulfilledBy = int64Ptr(fulfilledBy)
	it.FulfilledAt = timePtr(fulfilledAt)
	it.CreatedAt = database.FromMillis(created)
	it.UpdatedAt = database.FromMillis(updated)
	return &it, nil
}

func nullPrice(p *decimal.Decimal) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: p.String(), Valid: true}
}

func (s *WishlistStore) Create(ctx context.Context, it *model.WishlistItem) (*model.WishlistItem, error) {
	now := it.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO wishlist_items (family_id, member_id, title, price, status, fulfillment_mode, payment_method, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 'open', ?, ?, ?, ?)`,
		it.FamilyID, it.MemberID, it.Title, nullPrice(it.Price), string(it.FulfillmentMode), it.PaymentMethod,
		database.ToMillis(now), database.ToMillis(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert wishlist item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, it.FamilyID, id)
}

func (s *WishlistStore) GetByID(ctx context.Context, familyID, id int64) (*model.WishlistItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+wishlistCols+` FROM wishlist_items WHERE id = ? AND family_id = ?`, id, familyID)
	it, err := scanWishlistItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wishlist item: %w", err)
	}
	return it, nil
}

// List returns a family's items, optionally narrowed to one member and/or
// status. Open items come first.
func (s *WishlistStore) List(ctx context.Context, familyID, memberID int64, status model.WishlistStatus) ([]model.WishlistItem, error) {
	q := `SELECT ` + wishlistCols + ` FROM wishlist_items WHERE family_id = ?`
	args := []any{familyID}
	if memberID != 0 {
		q += ` AND member_id = ?`
		args = append(args, memberID)
	}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY status = 'fulfilled', created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list wishlist items: %w", err)
	}
	defer rows.Close()

	var items []model.WishlistItem
	for rows.Next() {
		it, err := scanWishlistItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wishlist item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

// Update edits an open item whose version still matches.
func (s *WishlistStore) Update(ctx context.Context, it *model.WishlistItem, version int64, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE wishlist_items SET title = ?, price = ?, fulfillment_mode = ?, payment_method = ?,
		 version = version + 1, updated_at = ?
		 WHERE id = ? AND family_id = ? AND status = 'open' AND version = ?`,
		it.Title, nullPrice(it.Price), string(it.FulfillmentMode), it.PaymentMethod,
		database.ToMillis(now), it.ID, it.FamilyID, version,
	)
	if err != nil {
		return fmt.Errorf("update wishlist item: %w", err)
	}
	return expectOne(res, it.ID)
}

func (s *WishlistStore) Delete(ctx context.Context, familyID, id, version int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM wishlist_items WHERE id = ? AND family_id = ? AND status = 'open' AND version = ?`,
		id, familyID, version,
	)
	if err != nil {
		return fmt.Errorf("delete wishlist item: %w", err)
	}
	return expectOne(res, id)
}

// MarkFulfilled flips an open item to fulfilled and, when debit is non-nil,
// writes the debit in the same transaction. Losing a race to another
// fulfillment yields AlreadyFulfilled; losing to an edit yields StaleState.
func (s *WishlistStore) MarkFulfilled(ctx context.Context, familyID, id, version, actorID int64, now time.Time, debit *model.LedgerEntry) error {
	nowMs := database.ToMillis(now)
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE wishlist_items SET status = 'fulfilled', fulfilled_by = ?, fulfilled_at = ?,
			 version = version + 1, updated_at = ?
			 WHERE id = ? AND family_id = ? AND status = 'open' AND version = ?`,
			actorID, nowMs, nowMs, id, familyID, version,
		)
		if err != nil {
			return fmt.Errorf("fulfill wishlist item: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			var status string
			err := tx.QueryRowContext(ctx,
				`SELECT status FROM wishlist_items WHERE id = ? AND family_id = ?`, id, familyID).Scan(&status)
			switch {
			case err == sql.ErrNoRows:
				return apperr.New(apperr.KindNotFound, "wishlist item %d not found", id)
			case err != nil:
				return fmt.Errorf("recheck wishlist item: %w", err)
			case model.WishlistStatus(status) == model.WishlistFulfilled:
				return apperr.New(apperr.KindAlreadyFulfilled, "wishlist item %d is already fulfilled", id)
			default:
				return apperr.New(apperr.KindStaleState, "wishlist item %d changed concurrently", id)
			}
		}
		if debit == nil {
			return nil
		}
		return appendLedger(ctx, tx, debit)
	})
}
