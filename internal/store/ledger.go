package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/marinda/internal/database"
	"github.com/dukerupert/marinda/internal/model"
)

// LedgerStore is append-only: there is no update or delete path, and the
// schema rejects both.
type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

const ledgerCols = `id, family_id, member_id, delta, reason, kind, approved_by_member_id, created_at`

func scanLedgerEntry(scanner interface{ Scan(...any) error }) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	var kind string
	var approver sql.NullInt64
	var created int64
	err := scanner.Scan(&e.ID, &e.FamilyID, &e.MemberID, &e.Delta, &e.Reason, &kind, &approver, &created)
	if err != nil {
		return nil, err
	}
	e.Kind = model.LedgerKind(kind)
	e.ApprovedByMemberID = int64Ptr(approver)
	e.CreatedAt = database.FromMillis(created)
	return &e, nil
}

// Append writes entries and their balance changes in one transaction.
// Missing ids are assigned.
func (s *LedgerStore) Append(ctx context.Context, entries ...*model.LedgerEntry) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, e := range entries {
			if err := appendLedger(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// History returns a member's entries newest first. A zero limit returns
// everything; since, when set, excludes entries older than it.
func (s *LedgerStore) History(ctx context.Context, familyID, memberID int64, limit int, since *time.Time) ([]model.LedgerEntry, error) {
	q := `SELECT ` + ledgerCols + ` FROM ledger_entries WHERE family_id = ? AND member_id = ?`
	args := []any{familyID, memberID}
	if since != nil {
		q += ` AND created_at >= ?`
		args = append(args, database.ToMillis(*since))
	}
	q += ` ORDER BY created_at DESC, seq DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Drift lists members of familyID whose cached points differ from their
// ledger sum.
func (s *LedgerStore) Drift(ctx context.Context, familyID int64) ([]model.BalanceDrift, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.points, COALESCE(SUM(l.delta), 0) AS ledger_sum
		 FROM family_members m
		 LEFT JOIN ledger_entries l ON l.member_id = m.id
		 WHERE m.family_id = ?
		 GROUP BY m.id, m.points
		 HAVING m.points != ledger_sum
		 ORDER BY m.id`,
		familyID)
	if err != nil {
		return nil, fmt.Errorf("compute drift: %w", err)
	}
	defer rows.Close()

	var drift []model.BalanceDrift
	for rows.Next() {
		var d model.BalanceDrift
		if err := rows.Scan(&d.MemberID, &d.Cached, &d.LedgerSum); err != nil {
			return nil, fmt.Errorf("scan drift: %w", err)
		}
		drift = append(drift, d)
	}
	return drift, rows.Err()
}
