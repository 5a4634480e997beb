package mempool

import (
	"fmt"
	"strconv"
)

// Fee and mempool endpoints.

// DifficultyAdjustment returns the current retarget telemetry.
func (c *Client) DifficultyAdjustment() (*DifficultyAdjustment, error) {
	da := new(DifficultyAdjustment)
	if err := c.getJSON("v1/difficulty-adjustment", da); err != nil {
		return nil, err
	}
	return da, nil
}

// RecommendedFees returns the service's suggested fees for new transactions.
func (c *Client) RecommendedFees() (*FeeSnapshot, error) {
	snap := new(FeeSnapshot)
	if err := c.getJSON("v1/fees/recommended", snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// MempoolBlocksFee returns the current mempool as projected blocks, ordered
// by confirmation priority (index 0 is the next block).
func (c *Client) MempoolBlocksFee() ([]MempoolBlockFee, error) {
	var blocks []MempoolBlockFee
	if err := c.getJSON("v1/fees/mempool-blocks", &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// Mempool returns current mempool backlog statistics.
func (c *Client) Mempool() (*MempoolInfo, error) {
	info := new(MempoolInfo)
	if err := c.getJSON("mempool", info); err != nil {
		return nil, err
	}
	return info, nil
}

// MempoolTxids returns the full list of txids in the mempool.
func (c *Client) MempoolTxids() ([]string, error) {
	var txids []string
	if err := c.getJSON("mempool/txids", &txids); err != nil {
		return nil, err
	}
	return txids, nil
}

// MempoolRecent returns the last 10 transactions to enter the mempool.
func (c *Client) MempoolRecent() ([]RecentTx, error) {
	var txs []RecentTx
	if err := c.getJSON("mempool/recent", &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// Block endpoints.

// BlockTipHeight returns the height of the last block.
func (c *Client) BlockTipHeight() (int64, error) {
	s, err := c.getText("blocks/tip/height")
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, 64)
}

// BlockTipHash returns the hash of the last block.
func (c *Client) BlockTipHash() (string, error) {
	return c.getText("blocks/tip/hash")
}

// Block returns details about a block.
func (c *Client) Block(hash string) (*BlockInfo, error) {
	b := new(BlockInfo)
	if err := c.getJSON("block/"+hash, b); err != nil {
		return nil, err
	}
	return b, nil
}

// BlockHeader returns the hex-encoded block header.
func (c *Client) BlockHeader(hash string) (string, error) {
	return c.getText("block/" + hash + "/header")
}

// BlockStatus returns the confirmation status of a block.
func (c *Client) BlockStatus(hash string) (*BlockStatus, error) {
	s := new(BlockStatus)
	if err := c.getJSON("block/"+hash+"/status", s); err != nil {
		return nil, err
	}
	return s, nil
}

// BlockRaw returns the raw block in binary.
func (c *Client) BlockRaw(hash string) ([]byte, error) {
	return c.get("block/" + hash + "/raw")
}

// BlockTxids returns all txids in the block.
func (c *Client) BlockTxids(hash string) ([]string, error) {
	var txids []string
	if err := c.getJSON("block/"+hash+"/txids", &txids); err != nil {
		return nil, err
	}
	return txids, nil
}

// BlockAtHeight returns the hash of the block currently at height.
func (c *Client) BlockAtHeight(height int64) (string, error) {
	return c.getText(fmt.Sprintf("block-height/%d", height))
}

// Blocks returns the 10 newest blocks starting at the tip, or at
// startHeight if it is non-negative.
func (c *Client) Blocks(startHeight int64) ([]BlockInfo, error) {
	path := "v1/blocks"
	if startHeight >= 0 {
		path = fmt.Sprintf("v1/blocks/%d", startHeight)
	}
	var blocks []BlockInfo
	if err := c.getJSON(path, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// Address endpoints.

// Address returns details about an address.
func (c *Client) Address(address string) (*AddressInfo, error) {
	info := new(AddressInfo)
	if err := c.getJSON("address/"+address, info); err != nil {
		return nil, err
	}
	return info, nil
}

// AddressTxs returns transaction history for an address, newest first.
func (c *Client) AddressTxs(address string) ([]TxInfo, error) {
	var txs []TxInfo
	if err := c.getJSON("address/"+address+"/txs", &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// AddressUTXO returns the unspent outputs of an address.
func (c *Client) AddressUTXO(address string) ([]UTXO, error) {
	var utxos []UTXO
	if err := c.getJSON("address/"+address+"/utxo", &utxos); err != nil {
		return nil, err
	}
	return utxos, nil
}

// Transaction endpoints.

// Tx returns details about a transaction.
func (c *Client) Tx(txid string) (*TxInfo, error) {
	tx := new(TxInfo)
	if err := c.getJSON("tx/"+txid, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// TxHex returns a transaction serialized as hex.
func (c *Client) TxHex(txid string) (string, error) {
	return c.getText("tx/" + txid + "/hex")
}

// TxRaw returns a transaction as binary data.
func (c *Client) TxRaw(txid string) ([]byte, error) {
	return c.get("tx/" + txid + "/raw")
}

// TxStatus returns the confirmation status of a transaction.
func (c *Client) TxStatus(txid string) (*TxStatus, error) {
	s := new(TxStatus)
	if err := c.getJSON("tx/"+txid+"/status", s); err != nil {
		return nil, err
	}
	return s, nil
}

// TxOutspends returns the spending status of all outputs of a transaction.
func (c *Client) TxOutspends(txid string) ([]TxOutspend, error) {
	var spends []TxOutspend
	if err := c.getJSON("tx/"+txid+"/outspends", &spends); err != nil {
		return nil, err
	}
	return spends, nil
}

// BroadcastTx submits a hex-encoded raw transaction to the network and
// returns the txid assigned by the service.
func (c *Client) BroadcastTx(txHex string) (string, error) {
	return c.Send("tx", txHex)
}

// Market and mining endpoints.

// Prices returns the latest bitcoin price in major currencies.
func (c *Client) Prices() (*Prices, error) {
	p := new(Prices)
	if err := c.getJSON("v1/prices", p); err != nil {
		return nil, err
	}
	return p, nil
}

// MiningPools lists known mining pools ordered by blocks found over the
// trailing period ("24h", "3d", "1w", ...).
func (c *Client) MiningPools(period string) (*MiningPools, error) {
	pools := new(MiningPools)
	if err := c.getJSON("v1/mining/pools/"+period, pools); err != nil {
		return nil, err
	}
	return pools, nil
}

// Hashrate returns network-wide hashrate and difficulty figures. An empty
// period requests the default window.
func (c *Client) Hashrate(period string) (*HashrateSummary, error) {
	path := "v1/mining/hashrate"
	if period != "" {
		path += "/" + period
	}
	hs := new(HashrateSummary)
	if err := c.getJSON(path, hs); err != nil {
		return nil, err
	}
	return hs, nil
}

// RewardStats returns block reward totals for the past blockCount blocks.
func (c *Client) RewardStats(blockCount int64) (*RewardStats, error) {
	rs := new(RewardStats)
	if err := c.getJSON(fmt.Sprintf("v1/mining/reward-stats/%d", blockCount), rs); err != nil {
		return nil, err
	}
	return rs, nil
}

// BlockFees returns average total block fees over the period, oldest first.
func (c *Client) BlockFees(period string) ([]BlockFeeEntry, error) {
	var fees []BlockFeeEntry
	if err := c.getJSON("v1/mining/blocks/fees/"+period, &fees); err != nil {
		return nil, err
	}
	return fees, nil
}

// Lightning endpoints.

// LightningStats returns network-wide Lightning statistics for the interval
// ("latest", "24h", "3d", ...).
func (c *Client) LightningStats(interval string) (*LightningStatsReply, error) {
	ls := new(LightningStatsReply)
	if err := c.getJSON("v1/lightning/statistics/"+interval, ls); err != nil {
		return nil, err
	}
	return ls, nil
}
