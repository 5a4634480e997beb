/*
Package fees derives tiered fee recommendations from the mempool service's
projected blocks.

The engine keeps the last published recommendation set and recomputes it
wholesale from each new projection list. The published fees always satisfy

	fastest >= halfhour >= hour >= economy >= minimum

which is enforced by construction (a cascading max), not assumed from the
input.
*/
package fees

import (
	"math"
	"sort"

	"github.com/mempooltools/mempoolctl/mempool"
)

const (
	// DefaultFee is the floor applied whenever no real fee signal exists,
	// in sat/vB.
	DefaultFee = 1.0

	// The minimum-fee walk stops counting projections once the cumulative
	// mempool size estimate passes this cap, mirroring the default
	// maxmempool of upstream nodes.
	maxMempoolMB = 300

	// A projected next block at or below smallBlockVSize is treated as
	// near-empty: fees are not actually competitive. Between small and
	// medium vsize, an uncorroborated block's fee is discounted linearly.
	smallBlockVSize  = 500000
	mediumBlockVSize = 950000

	// Weight-to-size approximation applied to vsize totals.
	mempoolSizeMultiplier = 3.99

	blockSizeDivisor = 1e6
	bytesPerMB       = 1024 * 1024
	bytesPerGB       = 1024 * 1024 * 1024

	// Number of slots in the per-block fee array.
	nFeeBlocks = 5
)

// RecommendedFees holds the published recommendation set plus mempool-wide
// aggregates. The tier fields are nil until the first successful update.
// Instances are not safe for concurrent mutation; callers serialize updates.
type RecommendedFees struct {
	FastestFee  *float64 `json:"fastestfee"`
	HalfHourFee *float64 `json:"halfhourfee"`
	HourFee     *float64 `json:"hourfee"`
	EconomyFee  *float64 `json:"economyfee"`
	MinimumFee  float64  `json:"minimumfee"`

	MempoolBlocksFee []mempool.MempoolBlockFee `json:"-"`

	MempoolVSize   float64 `json:"mempoolvsize"`
	MempoolSizeMB  float64 `json:"mempoolsizemb"`
	MempoolSizeGB  float64 `json:"mempoolsizegb"`
	MempoolTxCount int64   `json:"mempooltxcount"`
	MempoolBlocks  int     `json:"mempoolblocks"`
}

// New returns an engine primed with the given snapshot and projections;
// either may be nil.
func New(snap *mempool.FeeSnapshot, blocks []mempool.MempoolBlockFee) *RecommendedFees {
	rf := &RecommendedFees{MinimumFee: DefaultFee}
	rf.UpdateRecommended(snap)
	rf.UpdateMempoolBlocks(blocks)
	return rf
}

// UpdateRecommended overwrites only the fields present in the snapshot;
// previously held values survive absent keys. A nil snapshot is a no-op.
func (rf *RecommendedFees) UpdateRecommended(snap *mempool.FeeSnapshot) {
	if snap == nil {
		return
	}
	if snap.HourFee != nil {
		rf.HourFee = copyFee(snap.HourFee)
	}
	if snap.HalfHourFee != nil {
		rf.HalfHourFee = copyFee(snap.HalfHourFee)
	}
	if snap.FastestFee != nil {
		rf.FastestFee = copyFee(snap.FastestFee)
	}
	if snap.EconomyFee != nil {
		rf.EconomyFee = copyFee(snap.EconomyFee)
	}
	if snap.MinimumFee != nil {
		rf.MinimumFee = *snap.MinimumFee
	}
}

// UpdateMempoolBlocks recomputes the recommendation set from a projection
// list (index 0 is the next block). It reports false, changing nothing,
// when the list is empty.
func (rf *RecommendedFees) UpdateMempoolBlocks(blocks []mempool.MempoolBlockFee) bool {
	if len(blocks) == 0 {
		return false
	}
	rf.MempoolBlocksFee = blocks

	// Walk the projections, accumulating mempool-wide totals. minimumFee
	// tracks the lowest fee of the last projection still under the MB cap,
	// floored at DefaultFee so that an over-cap first projection cannot
	// leave it unset.
	var (
		vsize      float64
		count      int64
		minimumFee float64
	)
	for _, b := range blocks {
		vsize += b.BlockVSize
		count += b.NTx
		if vsize/bytesPerMB*mempoolSizeMultiplier < maxMempoolMB && len(b.FeeRange) > 0 {
			minimumFee = b.FeeRange[0]
		}
	}
	minimumFee = math.Max(minimumFee, DefaultFee)

	rf.MempoolVSize = vsize
	rf.MempoolSizeMB = vsize / bytesPerMB * mempoolSizeMultiplier
	rf.MempoolSizeGB = vsize / bytesPerGB * mempoolSizeMultiplier
	rf.MempoolTxCount = count
	rf.MempoolBlocks = int(math.Ceil(vsize / blockSizeDivisor))

	first, second, third := rf.tierFees(blocks)

	// Cascading max guarantees the monotonic ordering invariant for every
	// input, degenerate ones included. Economy is capped at twice the
	// floor.
	economy := math.Max(minimumFee, math.Min(2*minimumFee, third))
	hour := maxAll(minimumFee, third, economy)
	halfHour := maxAll(minimumFee, second, hour, economy)
	fastest := maxAll(minimumFee, first, halfHour, hour, economy)

	rf.MinimumFee = minimumFee
	rf.EconomyFee = &economy
	rf.HourFee = &hour
	rf.HalfHourFee = &halfHour
	rf.FastestFee = &fastest
	return true
}

// tierFees computes the optimized median fees for the next-block, ~3-block
// and ~6-block confirmation tiers. Each tier is seeded with the previous
// tier's fee, uses the next projection in line as a corroborator when one
// exists, and collapses to DefaultFee when its projection does not exist.
func (rf *RecommendedFees) tierFees(blocks []mempool.MempoolBlockFee) (first, second, third float64) {
	switch {
	case len(blocks) > 1:
		first = rf.optimizeMedianFee(blocks[0], &blocks[1], nil)
	case len(blocks) == 1:
		first = rf.optimizeMedianFee(blocks[0], nil, nil)
	default:
		first = DefaultFee
	}

	switch {
	case len(blocks) > 2:
		second = rf.optimizeMedianFee(blocks[1], &blocks[2], &first)
	case len(blocks) > 1:
		second = rf.optimizeMedianFee(blocks[1], nil, &first)
	default:
		second = DefaultFee
	}

	switch {
	case len(blocks) > 3:
		third = rf.optimizeMedianFee(blocks[2], &blocks[3], &second)
	case len(blocks) > 2:
		third = rf.optimizeMedianFee(blocks[2], nil, &second)
	default:
		third = DefaultFee
	}
	return first, second, third
}

// optimizeMedianFee blends the projection's median fee with the previous
// tier's fee, then discounts it by how empty the projection is: a
// near-empty block collapses to DefaultFee outright, and a partially-full
// block with no subsequent projection to corroborate demand is scaled by a
// linear ramp from 0 at smallBlockVSize to 1 at 2*smallBlockVSize.
func (rf *RecommendedFees) optimizeMedianFee(b mempool.MempoolBlockFee, next *mempool.MempoolBlockFee, previousFee *float64) float64 {
	useFee := b.MedianFee
	if previousFee != nil {
		useFee = (b.MedianFee + *previousFee) / 2
	}
	if b.BlockVSize <= smallBlockVSize {
		return DefaultFee
	}
	if b.BlockVSize <= mediumBlockVSize && next == nil {
		multiplier := (b.BlockVSize - smallBlockVSize) / smallBlockVSize
		return math.Max(useFee*multiplier, DefaultFee)
	}
	return useFee
}

// BuildFeeArray returns the (min, median, max) fee of each of the next
// nFeeBlocks projected blocks. Slots beyond the stored projections repeat
// the last projection; with no projections at all every slot is DefaultFee.
func (rf *RecommendedFees) BuildFeeArray() (minFees, medianFees, maxFees []float64) {
	minFees = make([]float64, 0, nFeeBlocks)
	medianFees = make([]float64, 0, nFeeBlocks)
	maxFees = make([]float64, 0, nFeeBlocks)
	for i := 0; i < nFeeBlocks; i++ {
		lo, med, hi := rf.feeDataForBlock(i)
		minFees = append(minFees, lo)
		medianFees = append(medianFees, med)
		maxFees = append(maxFees, hi)
	}
	return minFees, medianFees, maxFees
}

func (rf *RecommendedFees) feeDataForBlock(i int) (lo, med, hi float64) {
	var b mempool.MempoolBlockFee
	switch {
	case len(rf.MempoolBlocksFee) > i:
		b = rf.MempoolBlocksFee[i]
	case len(rf.MempoolBlocksFee) > 0:
		b = rf.MempoolBlocksFee[len(rf.MempoolBlocksFee)-1]
	default:
		return DefaultFee, DefaultFee, DefaultFee
	}
	if len(b.FeeRange) == 0 {
		return DefaultFee, DefaultFee, DefaultFee
	}
	return b.FeeRange[0], median(b.FeeRange), b.FeeRange[len(b.FeeRange)-1]
}

// median of an even-length sequence is the mean of the two central values
// after an ascending sort; odd-length takes the middle element.
func median(a []float64) float64 {
	s := append([]float64(nil), a...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 0 {
		return (s[n/2] + s[n/2-1]) / 2
	}
	return s[n/2]
}

func maxAll(vs ...float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		m = math.Max(m, v)
	}
	return m
}

func copyFee(f *float64) *float64 {
	v := *f
	return &v
}
