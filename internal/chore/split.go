package chore

import "sort"

// Share is one member's part of an approved chore's points.
type Share struct {
	MemberID int64
	Points   int64
}

// Split divides points evenly across doers. Doers are de-duplicated and
// ordered by ascending id; the first points%n of them receive one extra
// point, so the shares always sum to points.
func Split(points int64, doers []int64) []Share {
	ids := uniqueSorted(doers)
	if len(ids) == 0 {
		return nil
	}
	n := int64(len(ids))
	base, rem := points/n, points%n

	shares := make([]Share, len(ids))
	for i, id := range ids {
		p := base
		if int64(i) < rem {
			p++
		}
		shares[i] = Share{MemberID: id, Points: p}
	}
	return shares
}

func uniqueSorted(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
