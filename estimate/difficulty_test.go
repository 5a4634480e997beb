package estimate

import (
	"testing"
	"time"

	"github.com/mempooltools/mempoolctl/mempool"
	"github.com/mempooltools/mempoolctl/testutil"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestDifficultyAdjustment(t *testing.T) {
	millis := testNow.Add(72 * time.Hour).UnixMilli()
	snap := &mempool.DifficultyAdjustment{
		RemainingBlocks:       412,
		ExpectedBlocks:        1620.5,
		TimeAvg:               540000,
		EstimatedRetargetDate: &millis,
	}
	da := NewDifficultyAdjustment(840000, snap, testNow)

	if err := testutil.CheckEqual(da.LastRetargetHeight, int64(840000-2016+412)); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(da.FoundBlocks, int64(2016-412)); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(da.BlocksBehind, 1620.5-float64(2016-412)); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(da.MinutesBetweenBlocks, 9.0); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(da.RetargetCountdown, "3 days 0 hours 0 minutes"); err != nil {
		t.Error(err)
	}
}

// Zero and negative remainingBlocks values are reported by the service near
// a retarget boundary and must feed the same formulas unchanged.
func TestDifficultyAdjustmentBoundary(t *testing.T) {
	for _, remaining := range []int64{0, -3} {
		da := NewDifficultyAdjustment(840000, &mempool.DifficultyAdjustment{
			RemainingBlocks: remaining,
		}, testNow)
		if err := testutil.CheckEqual(da.LastRetargetHeight, 840000-2016+remaining); err != nil {
			t.Error(err)
		}
		if err := testutil.CheckEqual(da.FoundBlocks, 840000-da.LastRetargetHeight); err != nil {
			t.Error(err)
		}
	}
}

// Missing fields get the documented defaults, and a missing retarget date
// yields the Unknown sentinel rather than a fabricated date.
func TestDifficultyAdjustmentDefaults(t *testing.T) {
	for _, snap := range []*mempool.DifficultyAdjustment{nil, {}} {
		da := NewDifficultyAdjustment(840000, snap, testNow)
		if err := testutil.CheckEqual(da.LastRetargetHeight, int64(840000-2016)); err != nil {
			t.Error(err)
		}
		if err := testutil.CheckEqual(da.MinutesBetweenBlocks, 10.0); err != nil {
			t.Error(err)
		}
		if da.EstimatedRetargetDate != nil {
			t.Errorf("EstimatedRetargetDate = %v, want nil", da.EstimatedRetargetDate)
		}
		if err := testutil.CheckEqual(da.RetargetCountdown, Unknown); err != nil {
			t.Error(err)
		}
	}
}

func TestTimeUntil(t *testing.T) {
	tests := []struct {
		delta time.Duration
		short bool
		want  string
	}{
		{26*time.Hour + 30*time.Minute, false, "1 day 2 hours 30 minutes"},
		{26*time.Hour + 30*time.Minute, true, "1d 2h 30min"},
		{49 * time.Hour, false, "2 days 1 hour 0 minutes"},
		{-90 * time.Minute, false, "0 days 1 hour 30 minutes ago"},
		{-90 * time.Minute, true, "0d 1h 30min ago"},
		{59 * time.Second, false, "0 days 0 hours 0 minutes"},
	}
	for _, test := range tests {
		got := TimeUntil(testNow.Add(test.delta), testNow, test.short)
		if err := testutil.CheckEqual(got, test.want); err != nil {
			t.Error(err)
		}
	}
}
