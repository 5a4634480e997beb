package estimate

import (
	"math"
	"time"

	"github.com/mempooltools/mempoolctl/mempool"
)

const (
	// Block subsidy of the first reward era, in BTC.
	initialReward = 50.0

	// The subsidy halves every 210000 blocks.
	halvingInterval = 210000
)

// Halving is the reward-schedule state for a given chain height. The
// schedule fields depend on the height alone; the wall-clock estimates also
// need retarget telemetry and stay unknown without it.
type Halving struct {
	Height            int64   `json:"height"`
	Era               int64   `json:"era"`
	NextHalvingHeight int64   `json:"nexthalvingheight"`
	BlocksRemaining   int64   `json:"blocksremaining"`
	CurrentReward     float64 `json:"currentreward"`
	NextReward        float64 `json:"nextreward"`

	EstimatedDays *float64   `json:"estimateddays"`
	EstimatedDate *time.Time `json:"estimateddate"`

	// TimeUntilHalving is the human-readable countdown, or Unknown when no
	// retarget telemetry is available or the average block time is
	// degenerate.
	TimeUntilHalving string `json:"timeuntilhalving"`
}

// NewHalving derives the halving state from the chain height. The snapshot
// may be nil; it only feeds the time estimates, through the same block-time
// averaging as NewDifficultyAdjustment.
func NewHalving(height int64, snap *mempool.DifficultyAdjustment, now time.Time) Halving {
	h := Halving{Height: height}
	h.Era = height / halvingInterval
	h.NextHalvingHeight = (h.Era + 1) * halvingInterval
	h.BlocksRemaining = h.NextHalvingHeight - height
	h.CurrentReward = initialReward / math.Pow(2, float64(h.Era))
	h.NextReward = h.CurrentReward / 2
	h.TimeUntilHalving = Unknown
	if snap == nil {
		return h
	}

	da := NewDifficultyAdjustment(height, snap, now)
	if da.MinutesBetweenBlocks <= 0 {
		return h
	}
	minsRemaining := float64(h.BlocksRemaining) * da.MinutesBetweenBlocks
	days := minsRemaining / (60 * 24)
	date := now.Add(time.Duration(minsRemaining * float64(time.Minute)))
	h.EstimatedDays = &days
	h.EstimatedDate = &date
	h.TimeUntilHalving = TimeUntil(date, now, false)
	return h
}
