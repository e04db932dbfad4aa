package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/marinda/internal/apperr"
	"github.com/dukerupert/marinda/internal/database"
	"github.com/dukerupert/marinda/internal/model"
)

// withTx runs fn inside a transaction, committing only if fn returns nil.
// With a single-connection pool fn must use tx exclusively.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// appendLedger writes one entry and moves the member's cached balance by
// the same delta. The increment happens in SQL so concurrent credits never
// overwrite each other.
func appendLedger(ctx context.Context, tx *sql.Tx, e *model.LedgerEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE family_members SET points = points + ?, updated_at = ? WHERE id = ? AND family_id = ?`,
		e.Delta, database.ToMillis(e.CreatedAt), e.MemberID, e.FamilyID,
	)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperr.New(apperr.KindNotFound, "member %d not found in family", e.MemberID)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (id, family_id, member_id, delta, reason, kind, approved_by_member_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.FamilyID, e.MemberID, e.Delta, e.Reason, string(e.Kind),
		nullInt64(e.ApprovedByMemberID), database.ToMillis(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: database.ToMillis(*t), Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := database.FromMillis(n.Int64)
	return &t
}

// inClause returns "?, ?, ?" for n placeholders.
func inClause(n int) string {
	if n == 0 {
		return ""
	}
	b := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, '?')
	}
	return string(b)
}
