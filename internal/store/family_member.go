package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/marinda/internal/database"
	"github.com/dukerupert/marinda/internal/model"
)

// FamilyMemberStore reads the member directory. Balances are only ever
// changed through ledger writes.
type FamilyMemberStore struct {
	db *sql.DB
}

func NewFamilyMemberStore(db *sql.DB) *FamilyMemberStore {
	return &FamilyMemberStore{db: db}
}

const memberCols = `id, family_id, name, role, points, pin IS NOT NULL, created_at, updated_at`

func scanMember(scanner interface{ Scan(...any) error }) (*model.FamilyMember, error) {
	var m model.FamilyMember
	var role string
	var created, updated int64
	err := scanner.Scan(&m.ID, &m.FamilyID, &m.Name, &role, &m.Points, &m.HasPIN, &created, &updated)
	if err != nil {
		return nil, err
	}
	m.Role = model.Role(role)
	m.CreatedAt = database.FromMillis(created)
	m.UpdatedAt = database.FromMillis(updated)
	return &m, nil
}

func (s *FamilyMemberStore) Create(ctx context.Context, familyID int64, name string, role model.Role) (*model.FamilyMember, error) {
	now := database.ToMillis(time.Now())
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO family_members (family_id, name, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		familyID, name, string(role), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert family member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *FamilyMemberStore) GetByID(ctx context.Context, id int64) (*model.FamilyMember, error) {
	m, err := scanMember(s.db.QueryRowContext(ctx, `SELECT `+memberCols+` FROM family_members WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family member: %w", err)
	}
	return m, nil
}

// GetInFamily returns the member only if it belongs to familyID.
func (s *FamilyMemberStore) GetInFamily(ctx context.Context, familyID, id int64) (*model.FamilyMember, error) {
	m, err := scanMember(s.db.QueryRowContext(ctx,
		`SELECT `+memberCols+` FROM family_members WHERE id = ? AND family_id = ?`, id, familyID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family member: %w", err)
	}
	return m, nil
}

// List returns the family ordered by balance, highest first.
func (s *FamilyMemberStore) List(ctx context.Context, familyID int64) ([]model.FamilyMember, error) {
	return s.query(ctx,
		`SELECT `+memberCols+` FROM family_members WHERE family_id = ? ORDER BY points DESC, name ASC, id ASC`,
		familyID)
}

func (s *FamilyMemberStore) ListParents(ctx context.Context, familyID int64) ([]model.FamilyMember, error) {
	return s.query(ctx,
		`SELECT `+memberCols+` FROM family_members WHERE family_id = ? AND role IN ('MOM', 'DAD') ORDER BY id`,
		familyID)
}

// CountInFamily returns how many of ids belong to familyID. Duplicates in
// ids are counted once.
func (s *FamilyMemberStore) CountInFamily(ctx context.Context, familyID int64, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, familyID)
	for _, id := range ids {
		args = append(args, id)
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM family_members WHERE family_id = ? AND id IN (`+inClause(len(ids))+`)`,
		args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count family members: %w", err)
	}
	return n, nil
}

func (s *FamilyMemberStore) query(ctx context.Context, q string, args ...any) ([]model.FamilyMember, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query family members: %w", err)
	}
	defer rows.Close()

	var members []model.FamilyMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// SetPIN stores a bcrypt hash of pin.
func (s *FamilyMemberStore) SetPIN(ctx context.Context, id int64, pin string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	_, err = s.db.ExecContext(ctx, "UPDATE family_members SET pin = ?, updated_at = ? WHERE id = ?",
		string(hash), database.ToMillis(time.Now()), id)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

func (s *FamilyMemberStore) ClearPIN(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "UPDATE family_members SET pin = NULL, updated_at = ? WHERE id = ?",
		database.ToMillis(time.Now()), id)
	if err != nil {
		return fmt.Errorf("clear pin: %w", err)
	}
	return nil
}

func (s *FamilyMemberStore) GetPINHash(ctx context.Context, id int64) (string, error) {
	var pin sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT pin FROM family_members WHERE id = ?", id).Scan(&pin)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("family member not found")
	}
	if err != nil {
		return "", fmt.Errorf("query pin: %w", err)
	}
	if !pin.Valid {
		return "", nil
	}
	return pin.String, nil
}

// VerifyPIN reports whether pin matches the stored hash. A member without a
// PIN never verifies.
func (s *FamilyMemberStore) VerifyPIN(ctx context.Context, id int64, pin string) (bool, error) {
	hash, err := s.GetPINHash(ctx, id)
	if err != nil {
		return false, err
	}
	if hash == "" {
		return false, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)); err != nil {
		return false, nil
	}
	return true, nil
}
