package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/dukerupert/marinda/internal/database"
)

func NewTestDatabase(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// Family is a seeded family with one member per role.
type Family struct {
	ID    int64
	Mom   int64
	Dad   int64
	Adult int64
	Teen  int64
	Child int64
}

// SeedFamily inserts a family named name with one member of each role.
func SeedFamily(t *testing.T, db *sql.DB, name string) Family {
	t.Helper()

	now := database.ToMillis(time.Now())
	res, err := db.Exec(`INSERT INTO families (name, created_at) VALUES (?, ?)`, name, now)
	if err != nil {
		t.Fatalf("seeding family: %v", err)
	}
	f := Family{}
	f.ID, _ = res.LastInsertId()

	for _, m := range []struct {
		name string
		role string
		id   *int64
	}{
		{"Mom", "MOM", &f.Mom},
		{"Dad", "DAD", &f.Dad},
		{"Aunt", "ADULT", &f.Adult},
		{"Teen", "TEEN", &f.Teen},
		{"Kid", "CHILD", &f.Child},
	} {
		res, err := db.Exec(
			`INSERT INTO family_members (family_id, name, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			f.ID, m.name, m.role, now, now,
		)
		if err != nil {
			t.Fatalf("seeding member %s: %v", m.name, err)
		}
		*m.id, _ = res.LastInsertId()
	}
	return f
}

// Points returns a member's cached balance.
func Points(t *testing.T, db *sql.DB, memberID int64) int64 {
	t.Helper()
	var p int64
	if err := db.QueryRow(`SELECT points FROM family_members WHERE id = ?`, memberID).Scan(&p); err != nil {
		t.Fatalf("reading points for %d: %v", memberID, err)
	}
	return p
}

// AssertBalancesMatchLedger fails the test if any member's cached points
// differ from the sum of their ledger entries.
func AssertBalancesMatchLedger(t *testing.T, db *sql.DB) {
	t.Helper()
	rows, err := db.Query(
		`SELECT m.id, m.points, COALESCE(SUM(l.delta), 0)
		 FROM family_members m LEFT JOIN ledger_entries l ON l.member_id = m.id
		 GROUP BY m.id, m.points`)
	if err != nil {
		t.Fatalf("querying balances: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, cached, sum int64
		if err := rows.Scan(&id, &cached, &sum); err != nil {
			t.Fatalf("scanning balance: %v", err)
		}
		if cached != sum {
			t.Errorf("member %d: points = %d, ledger sum = %d", id, cached, sum)
		}
	}
}
