package fees

import (
	"testing"

	"github.com/mempooltools/mempoolctl/mempool"
	"github.com/mempooltools/mempoolctl/testutil"
)

func f(v float64) *float64 { return &v }

// projection builds a full-sized projected block with the given median fee.
func projection(medianFee float64, feeRange ...float64) mempool.MempoolBlockFee {
	return mempool.MempoolBlockFee{
		BlockVSize: 1000000,
		NTx:        2500,
		MedianFee:  medianFee,
		FeeRange:   feeRange,
	}
}

func TestUpdateRecommendedPartial(t *testing.T) {
	rf := New(nil, nil)
	rf.UpdateRecommended(&mempool.FeeSnapshot{
		FastestFee:  f(30),
		HalfHourFee: f(20),
		HourFee:     f(10),
		EconomyFee:  f(5),
		MinimumFee:  f(2),
	})

	// A partial snapshot overwrites only the present fields.
	rf.UpdateRecommended(&mempool.FeeSnapshot{FastestFee: f(50)})
	if err := testutil.CheckEqual(*rf.FastestFee, 50.0); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(*rf.HalfHourFee, 20.0); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(*rf.HourFee, 10.0); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(rf.MinimumFee, 2.0); err != nil {
		t.Error(err)
	}

	// A nil snapshot is a no-op.
	rf.UpdateRecommended(nil)
	if err := testutil.CheckEqual(*rf.FastestFee, 50.0); err != nil {
		t.Error(err)
	}
}

func TestOptimizeMedianFee(t *testing.T) {
	rf := New(nil, nil)
	full := projection(8.0, 1, 8, 20)

	// A near-empty block collapses to the default fee no matter what.
	small := mempool.MempoolBlockFee{BlockVSize: 500000, MedianFee: 100}
	if err := testutil.CheckEqual(rf.optimizeMedianFee(small, nil, nil), DefaultFee); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(rf.optimizeMedianFee(small, &full, f(40)), DefaultFee); err != nil {
		t.Error(err)
	}

	// A partially-full block with no corroborating next block is scaled by
	// (vsize-500k)/500k.
	medium := mempool.MempoolBlockFee{BlockVSize: 800000, MedianFee: 8.0}
	if err := testutil.CheckEqual(rf.optimizeMedianFee(medium, nil, nil), 4.8); err != nil {
		t.Error(err)
	}

	// The same block with a next block present is used unscaled.
	if err := testutil.CheckEqual(rf.optimizeMedianFee(medium, &full, nil), 8.0); err != nil {
		t.Error(err)
	}

	// A previous-tier fee is blended in by simple average.
	if err := testutil.CheckEqual(rf.optimizeMedianFee(full, &full, f(4)), 6.0); err != nil {
		t.Error(err)
	}

	// The scaled fee is floored at the default.
	barely := mempool.MempoolBlockFee{BlockVSize: 500001, MedianFee: 2.0}
	if err := testutil.CheckEqual(rf.optimizeMedianFee(barely, nil, nil), DefaultFee); err != nil {
		t.Error(err)
	}
}

func checkMonotonic(t *testing.T, rf *RecommendedFees) {
	t.Helper()
	if rf.FastestFee == nil {
		t.Fatal("no fees published")
	}
	fastest, halfHour := *rf.FastestFee, *rf.HalfHourFee
	hour, economy := *rf.HourFee, *rf.EconomyFee
	if fastest < halfHour || halfHour < hour || hour < economy || economy < rf.MinimumFee {
		t.Errorf("ordering violated: %v %v %v %v %v",
			fastest, halfHour, hour, economy, rf.MinimumFee)
	}
	if economy > 2*rf.MinimumFee {
		t.Errorf("economy %v exceeds 2*minimum %v", economy, 2*rf.MinimumFee)
	}
}

func TestUpdateMempoolBlocks(t *testing.T) {
	rf := New(nil, nil)

	// An empty projection list changes nothing.
	if rf.UpdateMempoolBlocks(nil) {
		t.Error("empty update must report false")
	}
	if rf.FastestFee != nil {
		t.Error("empty update must not publish fees")
	}

	blocks := []mempool.MempoolBlockFee{
		projection(30, 20, 30, 80),
		projection(20, 10, 20, 25),
		projection(12, 6, 12, 14),
		projection(5, 2, 5, 8),
	}
	if !rf.UpdateMempoolBlocks(blocks) {
		t.Fatal("update failed")
	}
	checkMonotonic(t, rf)

	// All four projections stay under the 300 MB cap, so the minimum fee is
	// the last projection's lowest fee.
	if err := testutil.CheckEqual(rf.MinimumFee, 2.0); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(rf.MempoolVSize, 4000000.0); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(rf.MempoolTxCount, int64(10000)); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(rf.MempoolBlocks, 4); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckPctDiff(rf.MempoolSizeMB, 4000000.0/1048576*3.99, 1e-9); err != nil {
		t.Error(err)
	}

	// Tier math: first = (30+20)/2? No: first has no previous fee, so it is
	// block 0's median unscaled = 30; second = (20+30)/2 = 25; third =
	// (12+25)/2 = 18.5. Economy caps at 2*minimum = 4.
	if err := testutil.CheckEqual(*rf.FastestFee, 30.0); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(*rf.HalfHourFee, 25.0); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(*rf.HourFee, 18.5); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(*rf.EconomyFee, 4.0); err != nil {
		t.Error(err)
	}
}

func TestUpdateMempoolBlocksDegenerate(t *testing.T) {
	// A single near-empty projection: every tier collapses to the floor and
	// the ordering still holds.
	rf := New(nil, nil)
	if !rf.UpdateMempoolBlocks([]mempool.MempoolBlockFee{
		{BlockVSize: 120000, NTx: 10, MedianFee: 1.5, FeeRange: []float64{1, 1.5, 2}},
	}) {
		t.Fatal("update failed")
	}
	checkMonotonic(t, rf)
	if err := testutil.CheckEqual(*rf.FastestFee, DefaultFee); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(rf.MinimumFee, DefaultFee); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(rf.MempoolBlocks, 1); err != nil {
		t.Error(err)
	}
}

// When the cumulative size blows past the MB cap on the first projection,
// the minimum fee falls back to the floor instead of staying unset.
func TestMinimumFeeOverCap(t *testing.T) {
	huge := mempool.MempoolBlockFee{
		// ~305 MB after the 3.99 multiplier.
		BlockVSize: 80 * 1024 * 1024,
		NTx:        100000,
		MedianFee:  12,
		FeeRange:   []float64{5, 12, 30},
	}
	rf := New(nil, nil)
	if !rf.UpdateMempoolBlocks([]mempool.MempoolBlockFee{huge, projection(4, 3, 4, 6)}) {
		t.Fatal("update failed")
	}
	if err := testutil.CheckEqual(rf.MinimumFee, DefaultFee); err != nil {
		t.Error(err)
	}
	checkMonotonic(t, rf)
}

func TestBuildFeeArray(t *testing.T) {
	rf := New(nil, nil)
	rf.UpdateMempoolBlocks([]mempool.MempoolBlockFee{
		projection(8, 2, 8, 30),
		projection(5, 1.5, 5, 9),
		projection(3, 1, 2, 4, 7), // even-length range: median is (2+4)/2
	})

	minFees, medianFees, maxFees := rf.BuildFeeArray()
	if err := testutil.CheckEqual(minFees, []float64{2, 1.5, 1, 1, 1}); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(medianFees, []float64{8, 5, 3, 3, 3}); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(maxFees, []float64{30, 9, 7, 7, 7}); err != nil {
		t.Error(err)
	}

	// Slots 3 and 4 clamp to the last projection exactly.
	for i := 3; i < 5; i++ {
		if minFees[i] != minFees[2] || medianFees[i] != medianFees[2] || maxFees[i] != maxFees[2] {
			t.Errorf("slot %d not clamped to slot 2", i)
		}
	}

	// With no projections at all, every slot is the default fee.
	empty := New(nil, nil)
	minFees, medianFees, maxFees = empty.BuildFeeArray()
	for i := 0; i < 5; i++ {
		if minFees[i] != DefaultFee || medianFees[i] != DefaultFee || maxFees[i] != DefaultFee {
			t.Errorf("slot %d: want default fees", i)
		}
	}
}

func TestSnapshot(t *testing.T) {
	rf := New(nil, nil)
	if _, ok := rf.Snapshot(1700000000); ok {
		t.Error("snapshot before first update must report false")
	}

	rf.UpdateMempoolBlocks([]mempool.MempoolBlockFee{projection(10, 4, 10, 22)})
	rec, ok := rf.Snapshot(1700000000)
	if !ok {
		t.Fatal("snapshot failed")
	}
	if err := testutil.CheckEqual(rec.Time, int64(1700000000)); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(rec.FastestFee, *rf.FastestFee); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(rec.MinimumFee, rf.MinimumFee); err != nil {
		t.Error(err)
	}
}
