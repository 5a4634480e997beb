package fees

// Record is one fee-history sample, as persisted by the watcher. All fields
// are fixed-width so records can be stored with encoding/binary.
type Record struct {
	Time           int64   `json:"time"`
	FastestFee     float64 `json:"fastestfee"`
	HalfHourFee    float64 `json:"halfhourfee"`
	HourFee        float64 `json:"hourfee"`
	EconomyFee     float64 `json:"economyfee"`
	MinimumFee     float64 `json:"minimumfee"`
	MempoolVSize   float64 `json:"mempoolvsize"`
	MempoolTxCount int64   `json:"mempooltxcount"`
	MempoolBlocks  int64   `json:"mempoolblocks"`
}

// Snapshot captures the current recommendation set as a Record. It reports
// false before the first successful update, when no tier fees exist yet.
func (rf *RecommendedFees) Snapshot(now int64) (Record, bool) {
	if rf.FastestFee == nil || rf.HalfHourFee == nil || rf.HourFee == nil || rf.EconomyFee == nil {
		return Record{}, false
	}
	return Record{
		Time:           now,
		FastestFee:     *rf.FastestFee,
		HalfHourFee:    *rf.HalfHourFee,
		HourFee:        *rf.HourFee,
		EconomyFee:     *rf.EconomyFee,
		MinimumFee:     rf.MinimumFee,
		MempoolVSize:   rf.MempoolVSize,
		MempoolTxCount: rf.MempoolTxCount,
		MempoolBlocks:  int64(rf.MempoolBlocks),
	}, true
}
