package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/mempooltools/mempoolctl/api"
	"github.com/mempooltools/mempoolctl/estimate"
	"github.com/mempooltools/mempoolctl/mempool"
	"github.com/mempooltools/mempoolctl/ws"
)

func stop(args []string, c *api.Client) {
	const usage = `
mempoolctl stop

Stop the daemon.
`
	f := flag.NewFlagSet(args[0], flag.ExitOnError)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		f.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	if err := f.Parse(args[1:]); err != nil {
		log.Fatal(err)
	}
	if err := c.Stop(); err != nil {
		log.Fatal(err)
	}
}

func status(args []string, c *api.Client) {
	const usage = `
mempoolctl status

Show daemon status:

	fees  : Whether the last fee refresh succeeded.
	chain : Whether the last chain telemetry refresh succeeded.
	stream: The websocket connection state, or "disabled".

`
	f := flag.NewFlagSet(args[0], flag.ExitOnError)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		f.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	if err := f.Parse(args[1:]); err != nil {
		log.Fatal(err)
	}

	result, err := c.Status()
	if err != nil {
		log.Fatal(err)
	}

	for _, k := range []string{"fees", "chain", "stream"} {
		fmt.Printf("%-7s: %s\n", k, result[k])
	}
}

func showFees(args []string, c *api.Client) {
	const usage = `
mempoolctl fees

Show the recommended fee rates (sat/vB) held by the daemon, along with
mempool backlog aggregates.

`
	f := flag.NewFlagSet(args[0], flag.ExitOnError)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		f.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	if err := f.Parse(args[1:]); err != nil {
		log.Fatal(err)
	}

	result, err := c.Fees()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%-12s: %s\n", "fastest", feeStr(result.FastestFee))
	fmt.Printf("%-12s: %s\n", "halfhour", feeStr(result.HalfHourFee))
	fmt.Printf("%-12s: %s\n", "hour", feeStr(result.HourFee))
	fmt.Printf("%-12s: %s\n", "economy", feeStr(result.EconomyFee))
	fmt.Printf("%-12s: %.2f\n", "minimum", result.MinimumFee)
	fmt.Printf("%-12s: %.2f MB (%d txs, %d projected blocks)\n",
		"mempool", result.MempoolSizeMB, result.MempoolTxCount, result.MempoolBlocks)
}

func feeStr(fee *float64) string {
	if fee == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*fee, 'f', 2, 64)
}

func showFeeArray(args []string, c *api.Client) {
	const usage = `
mempoolctl feearray

Show the (min, median, max) fee rates (sat/vB) for each projected block.

`
	f := flag.NewFlagSet(args[0], flag.ExitOnError)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		f.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	if err := f.Parse(args[1:]); err != nil {
		log.Fatal(err)
	}

	result, err := c.FeeArray()
	if err != nil {
		log.Fatal(err)
	}

	for i := range result["median"] {
		fmt.Printf("%2d: %8.2f %8.2f %8.2f\n",
			i+1, result["min"][i], result["median"][i], result["max"][i])
	}
}

func showHistory(args []string, c *api.Client) {
	const usage = `
mempoolctl history [hours]

Show the stored fee history from the trailing number of hours (default 24).

`
	f := flag.NewFlagSet(args[0], flag.ExitOnError)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		f.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	if err := f.Parse(args[1:]); err != nil {
		log.Fatal(err)
	}

	hours := 24
	if hStr := f.Arg(0); hStr != "" {
		var err error
		hours, err = strconv.Atoi(hStr)
		if err != nil {
			log.Fatal(err)
		}
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour).Unix()

	records, err := c.History(since)
	if err != nil {
		log.Fatal(err)
	}

	for _, r := range records {
		t := time.Unix(r.Time, 0).Format(time.RFC3339)
		fmt.Printf("%s: %6.2f %6.2f %6.2f %6.2f %6.2f\n",
			t, r.FastestFee, r.HalfHourFee, r.HourFee, r.EconomyFee, r.MinimumFee)
	}
}

func showHalving(args []string, cfg config) {
	const usage = `
mempoolctl halving

Show the reward schedule at the current chain tip, and the estimated time of
the next halving.

`
	f := flag.NewFlagSet(args[0], flag.ExitOnError)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		f.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	if err := f.Parse(args[1:]); err != nil {
		log.Fatal(err)
	}

	client := mempool.NewClient(cfg.Mempool)
	height, err := client.BlockTipHeight()
	if err != nil {
		log.Fatal(err)
	}
	snap, err := client.DifficultyAdjustment()
	if err != nil {
		log.Fatal(err)
	}

	h := estimate.NewHalving(height, snap, time.Now())
	fmt.Printf("%-18s: %d\n", "height", h.Height)
	fmt.Printf("%-18s: %d\n", "era", h.Era)
	fmt.Printf("%-18s: %d\n", "next halving", h.NextHalvingHeight)
	fmt.Printf("%-18s: %d\n", "blocks remaining", h.BlocksRemaining)
	fmt.Printf("%-18s: %.8f BTC\n", "current reward", h.CurrentReward)
	fmt.Printf("%-18s: %.8f BTC\n", "next reward", h.NextReward)
	if h.EstimatedDate != nil {
		fmt.Printf("%-18s: %s\n", "estimated date", h.EstimatedDate.Format(time.RFC3339))
	}
	fmt.Printf("%-18s: %s\n", "time until", h.TimeUntilHalving)
}

func showDifficulty(args []string, cfg config) {
	const usage = `
mempoolctl difficulty

Show the difficulty retarget telemetry at the current chain tip.

`
	f := flag.NewFlagSet(args[0], flag.ExitOnError)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		f.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	if err := f.Parse(args[1:]); err != nil {
		log.Fatal(err)
	}

	client := mempool.NewClient(cfg.Mempool)
	height, err := client.BlockTipHeight()
	if err != nil {
		log.Fatal(err)
	}
	snap, err := client.DifficultyAdjustment()
	if err != nil {
		log.Fatal(err)
	}

	da := estimate.NewDifficultyAdjustment(height, snap, time.Now())
	fmt.Printf("%-18s: %d\n", "height", da.Height)
	fmt.Printf("%-18s: %d\n", "last retarget", da.LastRetargetHeight)
	fmt.Printf("%-18s: %d\n", "found blocks", da.FoundBlocks)
	fmt.Printf("%-18s: %.2f\n", "blocks behind", da.BlocksBehind)
	fmt.Printf("%-18s: %.2f min\n", "avg block time", da.MinutesBetweenBlocks)
	if da.EstimatedRetargetDate != nil {
		fmt.Printf("%-18s: %s\n", "retarget date", da.EstimatedRetargetDate.Format(time.RFC3339))
	}
	fmt.Printf("%-18s: %s\n", "time until", da.RetargetCountdown)
}

func showMempool(args []string, cfg config) {
	const usage = `
mempoolctl mempool

Show the current mempool backlog and the projected next blocks.

`
	f := flag.NewFlagSet(args[0], flag.ExitOnError)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		f.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	if err := f.Parse(args[1:]); err != nil {
		log.Fatal(err)
	}

	client := mempool.NewClient(cfg.Mempool)
	info, err := client.Mempool()
	if err != nil {
		log.Fatal(err)
	}
	blocks, err := client.MempoolBlocksFee()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%-10s: %d\n", "tx count", info.Count)
	fmt.Printf("%-10s: %d\n", "vsize", info.VSize)
	fmt.Printf("%-10s: %d\n", "total fee", info.TotalFee)
	for i, b := range blocks {
		fmt.Printf("block %2d: %6.0f vKB, %5d txs, median %6.2f sat/vB\n",
			i+1, b.BlockVSize/1000, b.NTx, b.MedianFee)
	}
}

func showBlock(args []string, cfg config) {
	const usage = `
mempoolctl block HASH|HEIGHT

Show a block, looked up by hash or by height.

`
	f := flag.NewFlagSet(args[0], flag.ExitOnError)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		f.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	if err := f.Parse(args[1:]); err != nil {
		log.Fatal(err)
	}
	arg := f.Arg(0)
	if arg == "" {
		f.Usage()
		os.Exit(1)
	}

	client := mempool.NewClient(cfg.Mempool)
	hash := arg
	if height, err := strconv.ParseInt(arg, 10, 64); err == nil {
		hash, err = client.BlockAtHeight(height)
		if err != nil {
			log.Fatal(err)
		}
	} else if _, err := chainhash.NewHashFromStr(arg); err != nil {
		log.Fatalf("'%s' is not a valid block hash or height: %v", arg, err)
	}

	block, err := client.Block(hash)
	if err != nil {
		log.Fatal(err)
	}

	b, err := json.MarshalIndent(block, "", "\t")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(b))
}

func showTx(args []string, cfg config) {
	const usage = `
mempoolctl tx TXID

Show a transaction.

`
	f := flag.NewFlagSet(args[0], flag.ExitOnError)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		f.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	if err := f.Parse(args[1:]); err != nil {
		log.Fatal(err)
	}
	txid := f.Arg(0)
	if _, err := chainhash.NewHashFromStr(txid); err != nil {
		log.Fatalf("'%s' is not a valid txid: %v", txid, err)
	}

	client := mempool.NewClient(cfg.Mempool)
	tx, err := client.Tx(txid)
	if err != nil {
		log.Fatal(err)
	}

	b, err := json.MarshalIndent(tx, "", "\t")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(b))
}

func showAddress(args []string, cfg config) {
	const usage = `
mempoolctl address ADDRESS

Show on-chain and mempool statistics for a mainnet address.

`
	f := flag.NewFlagSet(args[0], flag.ExitOnError)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		f.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	if err := f.Parse(args[1:]); err != nil {
		log.Fatal(err)
	}
	addr := f.Arg(0)
	if _, err := btcutil.DecodeAddress(addr, &chaincfg.MainNetParams); err != nil {
		log.Fatalf("'%s' is not a valid mainnet address: %v", addr, err)
	}

	client := mempool.NewClient(cfg.Mempool)
	info, err := client.Address(addr)
	if err != nil {
		log.Fatal(err)
	}

	balance := info.ChainStats.FundedTxoSum - info.ChainStats.SpentTxoSum
	fmt.Printf("%-16s: %s\n", "address", info.Address)
	fmt.Printf("%-16s: %d sat\n", "balance", balance)
	fmt.Printf("%-16s: %d\n", "tx count", info.ChainStats.TxCount)
	fmt.Printf("%-16s: %d\n", "mempool txs", info.MempoolStats.TxCount)
}

func streamEvents(args []string, cfg config) {
	const usage = `
mempoolctl stream [-address ADDR] [-mempool-block N]

Connect to the websocket API and print events as they arrive, one JSON
object per line. The subscribed categories come from the websocket config;
the flags add tracking subscriptions on top.

`
	f := flag.NewFlagSet(args[0], flag.ExitOnError)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		f.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	address := f.String("address", "", "Track a mainnet address.")
	mempoolBlock := f.Int("mempool-block", -1, "Track a projected mempool block by index.")
	if err := f.Parse(args[1:]); err != nil {
		log.Fatal(err)
	}

	wsCfg := cfg.WebSocket
	if *address != "" {
		if _, err := btcutil.DecodeAddress(*address, &chaincfg.MainNetParams); err != nil {
			log.Fatalf("'%s' is not a valid mainnet address: %v", *address, err)
		}
		wsCfg.TrackAddress = *address
	}
	if *mempoolBlock >= 0 {
		wsCfg.TrackMempoolBlock = mempoolBlock
	}

	client := ws.NewClient(wsCfg)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		client.Stop()
	}()

	err := client.Run(func(msg json.RawMessage) {
		fmt.Println(string(msg))
	})
	if err != nil {
		log.Fatal(err)
	}
}

func setDebug(args []string, c *api.Client) {
	const usage = `
mempoolctl setdebug BOOL

Turn on daemon debug-level logging with "true"; turn off with "false".

`
	f := flag.NewFlagSet(args[0], flag.ExitOnError)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		f.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	if err := f.Parse(args[1:]); err != nil {
		log.Fatal(err)
	}
	on, err := strconv.ParseBool(f.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	if err := c.SetDebug(on); err != nil {
		log.Fatal(err)
	}
}

func appConfig(args []string, c *api.Client) {
	const usage = `
mempoolctl config

Show daemon config settings.

`
	f := flag.NewFlagSet(args[0], flag.ExitOnError)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		f.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	if err := f.Parse(args[1:]); err != nil {
		log.Fatal(err)
	}

	result, err := c.Config()
	if err != nil {
		log.Fatal(err)
	}

	b, err := json.MarshalIndent(result, "", "\t")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(b))
}

func appMetrics(args []string, c *api.Client) {
	const usage = `
mempoolctl metrics

Show daemon metrics.

`
	f := flag.NewFlagSet(args[0], flag.ExitOnError)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		f.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	if err := f.Parse(args[1:]); err != nil {
		log.Fatal(err)
	}

	result, err := c.Metrics()
	if err != nil {
		log.Fatal(err)
	}

	b, err := json.MarshalIndent(result, "", "\t")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(b))
}
