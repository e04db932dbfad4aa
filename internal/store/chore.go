package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/marinda/internal/apperr"
	"github.com/dukerupert/marinda/internal/database"
	"github.com/dukerupert/marinda/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var status string
	var expiresAt, approvedBy, createdBy, templateID, submittedAt, approvedAt, expiredAt sql.NullInt64
	var created, updated int64

	err := scanner.Scan(
		&c.ID, &c.FamilyID, &c.Title, &c.Description, &c.Points, &status,
		&expiresAt, &approvedBy, &c.Notes, &createdBy, &templateID, &c.Version,
		&created, &updated, &submittedAt, &approvedAt, &expiredAt,
	)
	if err != nil {
		return nil, err
	}

	c.Status = model.ChoreStatus(status)
	c.ExpiresAt = timePtr(expiresAt)
	c.ApprovedByID = int64Ptr(approvedBy)
	c.CreatedByMemberID = int64Ptr(createdBy)
	c.TemplateID = int64Ptr(templateID)
	c.CreatedAt = database.FromMillis(created)
	c.UpdatedAt = database.FromMillis(updated)
	c.SubmittedAt = timePtr(submittedAt)
	c.ApprovedAt = timePtr(approvedAt)
	c.ExpiredAt = timePtr(expiredAt)
	c.AssignedToIDs = []int64{}
	c.DoneByIDs = []int64{}
	c.Proofs = []model.Proof{}
	return &c, nil
}

const choreCols = `id, family_id, title, description, points, status, expires_at, approved_by_id, notes,
	created_by_member_id, template_id, version, created_at, updated_at, submitted_at, approved_at, expired_at`

// Create inserts an OPEN chore with its assignees.
func (s *ChoreStore) Create(ctx context.Context, c *model.Chore) (*model.Chore, error) {
	now := c.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	var id int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO chores (family_id, title, description, points, status, expires_at, notes,
			 created_by_member_id, template_id, created_at, updated_at)
			 VALUES (?, ?, ?, ?, 'OPEN', ?, ?, ?, ?, ?, ?)`,
			c.FamilyID, c.Title, c.Description, c.Points, nullMillis(c.ExpiresAt), c.Notes,
			nullInt64(c.CreatedByMemberID), nullInt64(c.TemplateID),
			database.ToMillis(now), database.ToMillis(now),
		)
		if err != nil {
			return fmt.Errorf("insert chore: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		return insertMembers(ctx, tx, "chore_assignees", id, c.AssignedToIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, c.FamilyID, id)
}

func (s *ChoreStore) GetByID(ctx context.Context, familyID, id int64) (*model.Chore, error) {
	chores, err := s.query(ctx, `SELECT `+choreCols+` FROM chores WHERE id = ? AND family_id = ?`, id, familyID)
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	if len(chores) == 0 {
		return nil, nil
	}
	return &chores[0], nil
}

// List returns chores matching f, newest first. Status filtering uses the
// effective status at now, so overdue OPEN chores count as EXPIRED.
func (s *ChoreStore) List(ctx context.Context, familyID int64, f model.ChoreFilter, now time.Time) ([]model.Chore, error) {
	var where []string
	args := []any{familyID}
	where = append(where, "c.family_id = ?")

	nowMs := database.ToMillis(now)
	switch f.Status {
	case "":
	case model.ChoreOpen:
		where = append(where, "c.status = 'OPEN' AND (c.expires_at IS NULL OR c.expires_at >= ?)")
		args = append(args, nowMs)
	case model.ChoreExpired:
		where = append(where, "(c.status = 'EXPIRED' OR (c.status = 'OPEN' AND c.expires_at < ?))")
		args = append(args, nowMs)
	default:
		where = append(where, "c.status = ?")
		args = append(args, string(f.Status))
	}
	if f.AssignedTo != 0 {
		where = append(where, "EXISTS (SELECT 1 FROM chore_assignees a WHERE a.chore_id = c.id AND a.member_id = ?)")
		args = append(args, f.AssignedTo)
	}
	if f.DoneBy != 0 {
		where = append(where, "EXISTS (SELECT 1 FROM chore_doers d WHERE d.chore_id = c.id AND d.member_id = ?)")
		args = append(args, f.DoneBy)
	}
	if f.CreatedBy != 0 {
		where = append(where, "c.created_by_member_id = ?")
		args = append(args, f.CreatedBy)
	}
	if f.UpdatedSince != nil {
		where = append(where, "c.updated_at >= ?")
		args = append(args, database.ToMillis(*f.UpdatedSince))
	}

	q := `SELECT ` + prefixCols("c", choreCols) + ` FROM chores c WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY c.created_at DESC, c.id DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	chores, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	return chores, nil
}

// Update edits an OPEN chore if its version still matches.
func (s *ChoreStore) Update(ctx context.Context, c *model.Chore, version int64, now time.Time) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE chores SET title = ?, description = ?, points = ?, expires_at = ?,
			 version = version + 1, updated_at = ?
			 WHERE id = ? AND family_id = ? AND status = 'OPEN' AND version = ?`,
			c.Title, c.Description, c.Points, nullMillis(c.ExpiresAt),
			database.ToMillis(now), c.ID, c.FamilyID, version,
		)
		if err != nil {
			return fmt.Errorf("update chore: %w", err)
		}
		if err := expectOne(res, c.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chore_assignees WHERE chore_id = ?`, c.ID); err != nil {
			return fmt.Errorf("clear assignees: %w", err)
		}
		return insertMembers(ctx, tx, "chore_assignees", c.ID, c.AssignedToIDs)
	})
}

// Submit moves an OPEN, not yet overdue chore to SUBMITTED and records who
// did it and the proof.
func (s *ChoreStore) Submit(ctx context.Context, familyID, id, version int64, doers []int64, proofs []model.Proof, now time.Time) error {
	nowMs := database.ToMillis(now)
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE chores SET status = 'SUBMITTED', submitted_at = ?, version = version + 1, updated_at = ?
			 WHERE id = ? AND family_id = ? AND status = 'OPEN' AND version = ?
			 AND (expires_at IS NULL OR expires_at >= ?)`,
			nowMs, nowMs, id, familyID, version, nowMs,
		)
		if err != nil {
			return fmt.Errorf("submit chore: %w", err)
		}
		if err := expectOne(res, id); err != nil {
			return err
		}
		if err := insertMembers(ctx, tx, "chore_doers", id, doers); err != nil {
			return err
		}
		for i, p := range proofs {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO chore_proofs (chore_id, position, uri, kind, mime_type) VALUES (?, ?, ?, ?, ?)`,
				id, i, p.URI, string(p.Kind), p.Type,
			)
			if err != nil {
				return fmt.Errorf("insert proof: %w", err)
			}
		}
		return nil
	})
}

// Approve marks a SUBMITTED chore APPROVED and writes credits in the same
// transaction. Nothing is written unless the version still matches.
func (s *ChoreStore) Approve(ctx context.Context, familyID, id, version, approverID int64, notes *string, now time.Time, credits []*model.LedgerEntry) error {
	nowMs := database.ToMillis(now)
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE chores SET status = 'APPROVED', approved_by_id = ?, approved_at = ?,
			 notes = COALESCE(?, notes), version = version + 1, updated_at = ?
			 WHERE id = ? AND family_id = ? AND status = 'SUBMITTED' AND version = ?`,
			approverID, nowMs, nullString(notes), nowMs, id, familyID, version,
		)
		if err != nil {
			return fmt.Errorf("approve chore: %w", err)
		}
		if err := expectOne(res, id); err != nil {
			return err
		}
		for _, e := range credits {
			if err := appendLedger(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// Reject returns a SUBMITTED chore to OPEN, discarding doers and proof.
func (s *ChoreStore) Reject(ctx context.Context, familyID, id, version int64, notes *string, now time.Time) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE chores SET status = 'OPEN', submitted_at = NULL, notes = COALESCE(?, notes),
			 version = version + 1, updated_at = ?
			 WHERE id = ? AND family_id = ? AND status = 'SUBMITTED' AND version = ?`,
			nullString(notes), database.ToMillis(now), id, familyID, version,
		)
		if err != nil {
			return fmt.Errorf("reject chore: %w", err)
		}
		if err := expectOne(res, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chore_doers WHERE chore_id = ?`, id); err != nil {
			return fmt.Errorf("clear doers: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chore_proofs WHERE chore_id = ?`, id); err != nil {
			return fmt.Errorf("clear proofs: %w", err)
		}
		return nil
	})
}

// Expire persists EXPIRED for one overdue OPEN chore. It reports false when
// the chore was not OPEN or not yet overdue.
func (s *ChoreStore) Expire(ctx context.Context, familyID, id int64, now time.Time) (bool, error) {
	nowMs := database.ToMillis(now)
	res, err := s.db.ExecContext(ctx,
		`UPDATE chores SET status = 'EXPIRED', expired_at = expires_at, version = version + 1, updated_at = ?
		 WHERE id = ? AND family_id = ? AND status = 'OPEN' AND expires_at IS NOT NULL AND expires_at < ?`,
		nowMs, id, familyID, nowMs,
	)
	if err != nil {
		return false, fmt.Errorf("expire chore: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// ExpiredRef identifies a chore the sweep just expired.
type ExpiredRef struct {
	ID       int64
	FamilyID int64
}

// ExpireOverdue persists EXPIRED for every overdue OPEN chore across all
// families. The expiry time recorded is the deadline itself, so reports do
// not depend on when the sweep ran.
func (s *ChoreStore) ExpireOverdue(ctx context.Context, now time.Time) ([]ExpiredRef, error) {
	nowMs := database.ToMillis(now)
	rows, err := s.db.QueryContext(ctx,
		`UPDATE chores SET status = 'EXPIRED', expired_at = expires_at, version = version + 1, updated_at = ?
		 WHERE status = 'OPEN' AND expires_at IS NOT NULL AND expires_at < ?
		 RETURNING id, family_id`,
		nowMs, nowMs,
	)
	if err != nil {
		return nil, fmt.Errorf("expire overdue chores: %w", err)
	}
	defer rows.Close()

	var refs []ExpiredRef
	for rows.Next() {
		var r ExpiredRef
		if err := rows.Scan(&r.ID, &r.FamilyID); err != nil {
			return nil, fmt.Errorf("scan expired chore: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// Delete removes an OPEN or EXPIRED chore whose version still matches.
func (s *ChoreStore) Delete(ctx context.Context, familyID, id, version int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM chores WHERE id = ? AND family_id = ? AND version = ? AND status IN ('OPEN', 'EXPIRED')`,
		id, familyID, version,
	)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return expectOne(res, id)
}

// ExpiredCounts buckets persisted EXPIRED chores by the day or month of
// their deadline within [from, to).
func (s *ChoreStore) ExpiredCounts(ctx context.Context, familyID int64, from, to time.Time, monthly bool) ([]model.ExpiredCount, error) {
	format := "%Y-%m-%d"
	if monthly {
		format = "%Y-%m"
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT strftime(?, expired_at / 1000, 'unixepoch') AS bucket, COUNT(*)
		 FROM chores
		 WHERE family_id = ? AND status = 'EXPIRED' AND expired_at >= ? AND expired_at < ?
		 GROUP BY bucket ORDER BY bucket`,
		format, familyID, database.ToMillis(from), database.ToMillis(to),
	)
	if err != nil {
		return nil, fmt.Errorf("count expired chores: %w", err)
	}
	defer rows.Close()

	counts := []model.ExpiredCount{}
	for rows.Next() {
		var c model.ExpiredCount
		if err := rows.Scan(&c.Bucket, &c.Count); err != nil {
			return nil, fmt.Errorf("scan expired count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// query runs q and then loads assignees, doers and proofs. The chore rows
// are fully read before the follow-up queries run on the same connection.
func (s *ChoreStore) query(ctx context.Context, q string, args ...any) ([]model.Chore, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(chores) == 0 {
		return chores, nil
	}
	if err := loadRelations(ctx, s.db, chores); err != nil {
		return nil, err
	}
	return chores, nil
}

func loadRelations(ctx context.Context, q queryer, chores []model.Chore) error {
	index := make(map[int64]int, len(chores))
	ids := make([]any, len(chores))
	for i, c := range chores {
		index[c.ID] = i
		ids[i] = c.ID
	}
	in := inClause(len(ids))

	for _, rel := range []struct {
		table string
		add   func(c *model.Chore, memberID int64)
	}{
		{"chore_assignees", func(c *model.Chore, m int64) { c.AssignedToIDs = append(c.AssignedToIDs, m) }},
		{"chore_doers", func(c *model.Chore, m int64) { c.DoneByIDs = append(c.DoneByIDs, m) }},
	} {
		rows, err := q.QueryContext(ctx,
			`SELECT chore_id, member_id FROM `+rel.table+` WHERE chore_id IN (`+in+`) ORDER BY chore_id, member_id`, ids...)
		if err != nil {
			return fmt.Errorf("load %s: %w", rel.table, err)
		}
		for rows.Next() {
			var choreID, memberID int64
			if err := rows.Scan(&choreID, &memberID); err != nil {
				rows.Close()
				return fmt.Errorf("scan %s: %w", rel.table, err)
			}
			rel.add(&chores[index[choreID]], memberID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
	}

	rows, err := q.QueryContext(ctx,
		`SELECT chore_id, uri, kind, mime_type FROM chore_proofs WHERE chore_id IN (`+in+`) ORDER BY chore_id, position`, ids...)
	if err != nil {
		return fmt.Errorf("load proofs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var choreID int64
		var p model.Proof
		var kind string
		if err := rows.Scan(&choreID, &p.URI, &kind, &p.Type); err != nil {
			return fmt.Errorf("scan proof: %w", err)
		}
		p.Kind = model.ProofKind(kind)
		c := &chores[index[choreID]]
		c.Proofs = append(c.Proofs, p)
	}
	return rows.Err()
}

func insertMembers(ctx context.Context, tx *sql.Tx, table string, choreID int64, memberIDs []int64) error {
	for _, m := range memberIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO `+table+` (chore_id, member_id) VALUES (?, ?)`, choreID, m)
		if err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

// expectOne turns a compare-and-set that matched nothing into StaleState.
func expectOne(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperr.New(apperr.KindStaleState, "record %d changed concurrently", id)
	}
	return nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func prefixCols(alias, cols string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
