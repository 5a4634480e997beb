package estimate

import (
	"time"

	"github.com/mempooltools/mempoolctl/mempool"
)

const (
	// Difficulty retargets every 2016 blocks.
	retargetInterval = 2016

	// Target block interval, in milliseconds. Substituted when the
	// snapshot does not carry a timeAvg.
	defaultTimeAvg = 600000
)

// DifficultyAdjustment is the derived retarget state for a given chain
// height. Every field is recomputed wholesale by NewDifficultyAdjustment;
// nothing is carried over between updates.
type DifficultyAdjustment struct {
	Height                int64      `json:"height"`
	LastRetargetHeight    int64      `json:"lastretargetheight"`
	FoundBlocks           int64      `json:"foundblocks"`
	BlocksBehind          float64    `json:"blocksbehind"`
	MinutesBetweenBlocks  float64    `json:"minutesbetweenblocks"`
	EstimatedRetargetDate *time.Time `json:"estimatedretargetdate"`

	// RetargetCountdown is the human-readable time to the next retarget,
	// or Unknown when the snapshot carries no estimated date.
	RetargetCountdown string `json:"retargetcountdown"`
}

// NewDifficultyAdjustment derives the retarget state from the chain height
// and the raw upstream snapshot. A nil snapshot and missing fields are
// tolerated: remainingBlocks and expectedBlocks default to 0 and timeAvg to
// 600000 ms. Zero or negative remainingBlocks values reported near a
// retarget boundary feed the same linear formulas unchanged.
func NewDifficultyAdjustment(height int64, snap *mempool.DifficultyAdjustment, now time.Time) DifficultyAdjustment {
	var (
		remaining      int64
		expected       float64
		timeAvg        int64 = defaultTimeAvg
		retargetMillis *int64
	)
	if snap != nil {
		remaining = snap.RemainingBlocks
		expected = snap.ExpectedBlocks
		if snap.TimeAvg != 0 {
			timeAvg = snap.TimeAvg
		}
		retargetMillis = snap.EstimatedRetargetDate
	}

	da := DifficultyAdjustment{Height: height}
	da.LastRetargetHeight = height - retargetInterval + remaining
	da.FoundBlocks = height - da.LastRetargetHeight
	da.BlocksBehind = expected - float64(da.FoundBlocks)
	da.MinutesBetweenBlocks = float64(timeAvg) / 60000

	da.RetargetCountdown = Unknown
	if retargetMillis != nil {
		t := time.UnixMilli(*retargetMillis)
		da.EstimatedRetargetDate = &t
		da.RetargetCountdown = TimeUntil(t, now, false)
	}
	return da
}
