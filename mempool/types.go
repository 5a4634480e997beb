package mempool

// The types in this file mirror the JSON payloads served by the mempool.space
// REST API. They are decoded once, at the client boundary; the estimation
// packages never probe raw JSON maps.

// DifficultyAdjustment is the raw retarget telemetry from
// v1/difficulty-adjustment. Upstream may report RemainingBlocks as zero or
// negative near a retarget boundary; both are valid. A zero TimeAvg means the
// field was absent.
type DifficultyAdjustment struct {
	ProgressPercent       float64 `json:"progressPercent"`
	DifficultyChange      float64 `json:"difficultyChange"`
	EstimatedRetargetDate *int64  `json:"estimatedRetargetDate"` // epoch millis
	RemainingBlocks       int64   `json:"remainingBlocks"`
	RemainingTime         int64   `json:"remainingTime"`
	PreviousRetarget      float64 `json:"previousRetarget"`
	ExpectedBlocks        float64 `json:"expectedBlocks"`
	TimeAvg               int64   `json:"timeAvg"` // ms per block
	TimeOffset            int64   `json:"timeOffset"`
}

// FeeSnapshot is the recommended-fee payload from v1/fees/recommended.
// Fields are pointers so that absent keys are distinguishable from zero;
// the fee engine overwrites only the fields that are present.
type FeeSnapshot struct {
	FastestFee  *float64 `json:"fastestFee"`
	HalfHourFee *float64 `json:"halfHourFee"`
	HourFee     *float64 `json:"hourFee"`
	EconomyFee  *float64 `json:"economyFee"`
	MinimumFee  *float64 `json:"minimumFee"`
}

// MempoolBlockFee is one projected block from v1/fees/mempool-blocks.
// FeeRange is ordered from the lowest to the highest fee rate observed in the
// projected block, in sat/vB.
type MempoolBlockFee struct {
	BlockSize  int64     `json:"blockSize"`
	BlockVSize float64   `json:"blockVSize"`
	NTx        int64     `json:"nTx"`
	TotalFees  int64     `json:"totalFees"`
	MedianFee  float64   `json:"medianFee"`
	FeeRange   []float64 `json:"feeRange"`
}

// MempoolInfo is the backlog summary from the mempool endpoint.
type MempoolInfo struct {
	Count        int64       `json:"count"`
	VSize        int64       `json:"vsize"`
	TotalFee     int64       `json:"total_fee"`
	FeeHistogram [][]float64 `json:"fee_histogram"`
}

// RecentTx is one entry from mempool/recent.
type RecentTx struct {
	Txid  string  `json:"txid"`
	Fee   int64   `json:"fee"`
	VSize float64 `json:"vsize"`
	Value int64   `json:"value"`
}

// BlockInfo describes a confirmed block.
type BlockInfo struct {
	ID                string  `json:"id"`
	Height            int64   `json:"height"`
	Version           int64   `json:"version"`
	Timestamp         int64   `json:"timestamp"`
	TxCount           int64   `json:"tx_count"`
	Size              int64   `json:"size"`
	Weight            int64   `json:"weight"`
	MerkleRoot        string  `json:"merkle_root"`
	PreviousBlockHash string  `json:"previousblockhash"`
	MedianTime        int64   `json:"mediantime"`
	Nonce             int64   `json:"nonce"`
	Bits              int64   `json:"bits"`
	Difficulty        float64 `json:"difficulty"`
}

// BlockStatus is the confirmation status of a block.
type BlockStatus struct {
	InBestChain bool   `json:"in_best_chain"`
	Height      int64  `json:"height"`
	NextBest    string `json:"next_best"`
}

// AddressStats aggregates funded/spent totals for an address, either
// on-chain or in the mempool.
type AddressStats struct {
	FundedTxoCount int64 `json:"funded_txo_count"`
	FundedTxoSum   int64 `json:"funded_txo_sum"`
	SpentTxoCount  int64 `json:"spent_txo_count"`
	SpentTxoSum    int64 `json:"spent_txo_sum"`
	TxCount        int64 `json:"tx_count"`
}

// AddressInfo describes an address.
type AddressInfo struct {
	Address      string       `json:"address"`
	ChainStats   AddressStats `json:"chain_stats"`
	MempoolStats AddressStats `json:"mempool_stats"`
}

// TxStatus is the confirmation status of a transaction.
type TxStatus struct {
	Confirmed   bool   `json:"confirmed"`
	BlockHeight int64  `json:"block_height"`
	BlockHash   string `json:"block_hash"`
	BlockTime   int64  `json:"block_time"`
}

// UTXO is one unspent output of an address.
type UTXO struct {
	Txid   string   `json:"txid"`
	Vout   uint32   `json:"vout"`
	Value  int64    `json:"value"`
	Status TxStatus `json:"status"`
}

// TxVin is one transaction input.
type TxVin struct {
	Txid       string  `json:"txid"`
	Vout       uint32  `json:"vout"`
	Prevout    *TxVout `json:"prevout"`
	ScriptSig  string  `json:"scriptsig"`
	IsCoinbase bool    `json:"is_coinbase"`
	Sequence   int64   `json:"sequence"`
}

// TxVout is one transaction output.
type TxVout struct {
	ScriptPubKey        string `json:"scriptpubkey"`
	ScriptPubKeyType    string `json:"scriptpubkey_type"`
	ScriptPubKeyAddress string `json:"scriptpubkey_address"`
	Value               int64  `json:"value"`
}

// TxInfo describes a transaction.
type TxInfo struct {
	Txid     string   `json:"txid"`
	Version  int64    `json:"version"`
	Locktime int64    `json:"locktime"`
	Size     int64    `json:"size"`
	Weight   int64    `json:"weight"`
	Fee      int64    `json:"fee"`
	Vin      []TxVin  `json:"vin"`
	Vout     []TxVout `json:"vout"`
	Status   TxStatus `json:"status"`
}

// TxOutspend is the spending status of one transaction output.
type TxOutspend struct {
	Spent  bool     `json:"spent"`
	Txid   string   `json:"txid"`
	Vin    uint32   `json:"vin"`
	Status TxStatus `json:"status"`
}

// Prices is the latest bitcoin price in major currencies, from v1/prices.
type Prices struct {
	Time int64   `json:"time"`
	USD  float64 `json:"USD"`
	EUR  float64 `json:"EUR"`
	GBP  float64 `json:"GBP"`
	CAD  float64 `json:"CAD"`
	CHF  float64 `json:"CHF"`
	AUD  float64 `json:"AUD"`
	JPY  float64 `json:"JPY"`
}

// PoolStat is one mining pool entry from v1/mining/pools.
type PoolStat struct {
	PoolID      int64  `json:"poolId"`
	Name        string `json:"name"`
	Link        string `json:"link"`
	BlockCount  int64  `json:"blockCount"`
	Rank        int64  `json:"rank"`
	EmptyBlocks int64  `json:"emptyBlocks"`
	Slug        string `json:"slug"`
}

// MiningPools summarizes pool activity over a trailing period.
type MiningPools struct {
	Pools                 []PoolStat `json:"pools"`
	BlockCount            int64      `json:"blockCount"`
	LastEstimatedHashrate float64    `json:"lastEstimatedHashrate"`
}

// HashratePoint is one sample of network hashrate over time.
type HashratePoint struct {
	Timestamp   int64   `json:"timestamp"`
	AvgHashrate float64 `json:"avgHashrate"`
}

// DifficultyPoint is one difficulty sample over time.
type DifficultyPoint struct {
	Time       int64   `json:"time"`
	Height     int64   `json:"height"`
	Difficulty float64 `json:"difficulty"`
}

// HashrateSummary is the v1/mining/hashrate payload.
type HashrateSummary struct {
	Hashrates         []HashratePoint   `json:"hashrates"`
	Difficulty        []DifficultyPoint `json:"difficulty"`
	CurrentHashrate   float64           `json:"currentHashrate"`
	CurrentDifficulty float64           `json:"currentDifficulty"`
}

// RewardStats aggregates block rewards over the trailing N blocks.
// Satoshi totals are serialized as strings upstream.
type RewardStats struct {
	StartBlock  int64  `json:"startBlock"`
	EndBlock    int64  `json:"endBlock"`
	TotalReward string `json:"totalReward"`
	TotalFee    string `json:"totalFee"`
	TotalTx     string `json:"totalTx"`
}

// BlockFeeEntry is one sample from v1/mining/blocks/fees.
type BlockFeeEntry struct {
	AvgHeight int64   `json:"avgHeight"`
	Timestamp int64   `json:"timestamp"`
	AvgFees   float64 `json:"avgFees"`
}

// LightningStats is a network-wide Lightning statistics snapshot.
type LightningStats struct {
	ChannelCount      int64   `json:"channel_count"`
	NodeCount         int64   `json:"node_count"`
	TotalCapacity     int64   `json:"total_capacity"`
	TorNodes          int64   `json:"tor_nodes"`
	ClearnetNodes     int64   `json:"clearnet_nodes"`
	UnannouncedNodes  int64   `json:"unannounced_nodes"`
	AvgCapacity       float64 `json:"avg_capacity"`
	AvgFeeRate        float64 `json:"avg_fee_rate"`
	AvgBaseFeeMtokens float64 `json:"avg_base_fee_mtokens"`
	MedCapacity       float64 `json:"med_capacity"`
	MedFeeRate        float64 `json:"med_fee_rate"`
}

// LightningStatsReply wraps the latest Lightning statistics snapshot.
type LightningStatsReply struct {
	Latest LightningStats `json:"latest"`
}
