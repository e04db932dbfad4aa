package chore

import "testing"

func TestSplitSumsExactly(t *testing.T) {
	tests := []struct {
		points int64
		doers  []int64
		want   []int64
	}{
		{10, []int64{1, 2}, []int64{5, 5}},
		{7, []int64{3, 1, 2}, []int64{3, 2, 2}},
		{1, []int64{4, 5, 6}, []int64{1, 0, 0}},
		{0, []int64{1}, []int64{0}},
		{9, []int64{2, 2, 1}, []int64{5, 4}},
	}
	for _, tt := range tests {
		shares := Split(tt.points, tt.doers)
		if len(shares) != len(tt.want) {
			t.Fatalf("Split(%d, %v) = %v", tt.points, tt.doers, shares)
		}
		var sum int64
		for i, sh := range shares {
			if sh.Points != tt.want[i] {
				t.Errorf("Split(%d, %v)[%d] = %d, want %d", tt.points, tt.doers, i, sh.Points, tt.want[i])
			}
			if i > 0 && shares[i-1].MemberID >= sh.MemberID {
				t.Errorf("shares not in ascending member order: %v", shares)
			}
			sum += sh.Points
		}
		if sum != tt.points {
			t.Errorf("Split(%d, %v) sums to %d", tt.points, tt.doers, sum)
		}
	}
}

func TestSplitNoDoers(t *testing.T) {
	if got := Split(10, nil); got != nil {
		t.Errorf("Split with no doers = %v, want nil", got)
	}
}
