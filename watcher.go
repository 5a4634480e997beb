package main

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"

	"github.com/mempooltools/mempoolctl/estimate"
	"github.com/mempooltools/mempoolctl/fees"
	"github.com/mempooltools/mempoolctl/mempool"
	"github.com/mempooltools/mempoolctl/ws"
)

// HistoryDB persists fee-history records. Implemented by db/bolt.
type HistoryDB interface {
	Get(start, end int64) ([]fees.Record, error)
	Put(r fees.Record) error
	Delete(start, end int64) error
	Close() error
}

// Watcher keeps the fee engine and chain estimators current, polling the
// REST API on a ticker and optionally folding in websocket push events. It
// is the single writer of all derived state; readers go through the
// RWMutex-guarded accessors.
type Watcher struct {
	feeEngine  *fees.RecommendedFees
	difficulty estimate.DifficultyAdjustment
	halving    estimate.Halving
	height     int64
	errFees    error
	errChain   error

	client *mempool.Client
	stream *ws.Client
	histdb HistoryDB
	cfg    WatcherConfig

	done chan struct{}
	wg   sync.WaitGroup
	mux  sync.RWMutex
}

type WatcherConfig struct {
	PollPeriod    int   `yaml:"pollperiod" json:"pollperiod"`       // seconds
	HistoryMaxAge int64 `yaml:"historymaxage" json:"historymaxage"` // seconds
	UseWebSocket  bool  `yaml:"usewebsocket" json:"usewebsocket"`

	logger *log.Logger `yaml:"-" json:"-"`
}

func NewWatcher(client *mempool.Client, stream *ws.Client, histdb HistoryDB, cfg WatcherConfig) *Watcher {
	if cfg.logger == nil {
		cfg.logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Watcher{
		feeEngine: fees.New(nil, nil),
		client:    client,
		stream:    stream,
		histdb:    histdb,
		cfg:       cfg,
		done:      make(chan struct{}),
	}
}

// Run blocks until Stop. The initial refresh must succeed so the daemon
// never serves empty state; after that, refresh errors are logged and
// retried on the next tick.
func (w *Watcher) Run() error {
	logger := w.cfg.logger
	defer logger.Println("Watcher all stopped.")
	defer w.wg.Wait()
	defer w.histdb.Close()

	logger.Printf("mempoolctl v%s starting up..", version)
	if err := w.refreshChain(); err != nil {
		return err
	}
	if err := w.refreshFees(); err != nil {
		return err
	}
	w.recordHistory()

	w.wg.Add(1)
	go w.pollLoop()

	if w.cfg.UseWebSocket && w.stream != nil {
		w.wg.Add(1)
		go w.streamLoop()
	}

	logger.Println("Watcher startup complete.")
	<-w.done
	return nil
}

func (w *Watcher) Stop() {
	w.closeDone()
	if w.stream != nil {
		w.stream.Stop()
	}
	w.wg.Wait()
}

// closeDone closes w.done in a concurrent-safe way.
func (w *Watcher) closeDone() {
	w.mux.Lock()
	defer w.mux.Unlock()
	select {
	case <-w.done: // Already closed
	default:
		close(w.done)
	}
}

func (w *Watcher) pollLoop() {
	logger := w.cfg.logger
	defer w.wg.Done()
	defer logger.Println("Poll loop stopped.")

	ticker := time.NewTicker(time.Duration(w.cfg.PollPeriod) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-w.done:
			return
		}

		if err := w.refreshFees(); err != nil {
			logger.Println("[ERROR] Fee refresh:", err)
		}
		if err := w.refreshChain(); err != nil {
			logger.Println("[ERROR] Chain refresh:", err)
		}
		w.recordHistory()
	}
}

// streamLoop feeds websocket push events into the same state as the poll
// loop. The stream is best-effort telemetry: when its retry budget runs
// out, the daemon keeps running on polling alone.
func (w *Watcher) streamLoop() {
	logger := w.cfg.logger
	defer w.wg.Done()
	defer logger.Println("Stream loop stopped.")

	if err := w.stream.Run(w.handleEvent); err != nil {
		logger.Println("[ERROR] Stream:", err)
	}
}

// handleEvent folds one push event into the derived state. Events carry the
// same payloads as the REST endpoints, keyed by category; unknown keys are
// ignored.
func (w *Watcher) handleEvent(msg json.RawMessage) {
	logger := w.cfg.logger

	var ev struct {
		Fees          *mempool.FeeSnapshot          `json:"fees"`
		MempoolBlocks []mempool.MempoolBlockFee     `json:"mempool-blocks"`
		DA            *mempool.DifficultyAdjustment `json:"da"`
		Block         *mempool.BlockInfo            `json:"block"`
	}
	if err := json.Unmarshal(msg, &ev); err != nil {
		logger.Println("[WARNING] Discarding stream event:", err)
		return
	}

	w.mux.Lock()
	defer w.mux.Unlock()
	if ev.Fees != nil {
		w.feeEngine.UpdateRecommended(ev.Fees)
		w.errFees = nil
	}
	if len(ev.MempoolBlocks) > 0 {
		w.feeEngine.UpdateMempoolBlocks(ev.MempoolBlocks)
		logger.Printf("[DEBUG] Stream: %d projected blocks.", len(ev.MempoolBlocks))
	}
	if ev.Block != nil && ev.Block.Height > w.height {
		w.height = ev.Block.Height
		logger.Printf("[DEBUG] Stream: block %d.", ev.Block.Height)
	}
	if ev.DA != nil {
		now := time.Now()
		w.difficulty = estimate.NewDifficultyAdjustment(w.height, ev.DA, now)
		w.halving = estimate.NewHalving(w.height, ev.DA, now)
		w.errChain = nil
	}
}

func (w *Watcher) refreshFees() error {
	snap, err := w.client.RecommendedFees()
	if err != nil {
		w.setErrFees(err)
		return err
	}
	blocks, err := w.client.MempoolBlocksFee()
	if err != nil {
		w.setErrFees(err)
		return err
	}

	w.mux.Lock()
	defer w.mux.Unlock()
	w.feeEngine.UpdateRecommended(snap)
	w.feeEngine.UpdateMempoolBlocks(blocks)
	w.errFees = nil
	w.cfg.logger.Printf("[DEBUG] Fees refreshed: %d projected blocks.", len(blocks))
	return nil
}

func (w *Watcher) refreshChain() error {
	height, err := w.client.BlockTipHeight()
	if err != nil {
		w.setErrChain(err)
		return err
	}
	da, err := w.client.DifficultyAdjustment()
	if err != nil {
		w.setErrChain(err)
		return err
	}

	now := time.Now()
	w.mux.Lock()
	defer w.mux.Unlock()
	w.height = height
	w.difficulty = estimate.NewDifficultyAdjustment(height, da, now)
	w.halving = estimate.NewHalving(height, da, now)
	w.errChain = nil
	w.cfg.logger.Printf("[DEBUG] Block %d: chain estimates refreshed.", height)
	return nil
}

// recordHistory appends the current fee snapshot and prunes records older
// than HistoryMaxAge.
func (w *Watcher) recordHistory() {
	logger := w.cfg.logger
	now := time.Now().Unix()

	w.mux.RLock()
	rec, ok := w.feeEngine.Snapshot(now)
	w.mux.RUnlock()
	if !ok {
		return
	}
	if err := w.histdb.Put(rec); err != nil {
		logger.Println("[ERROR] History put:", err)
	}
	if w.cfg.HistoryMaxAge <= 0 {
		return
	}
	if err := w.histdb.Delete(0, now-w.cfg.HistoryMaxAge); err != nil {
		logger.Println("[ERROR] History prune:", err)
	}
}

// Fees returns a copy of the current recommendation set. Updates replace
// the engine's pointer fields wholesale, so a shallow copy is safe to read.
func (w *Watcher) Fees() (fees.RecommendedFees, error) {
	w.mux.RLock()
	defer w.mux.RUnlock()
	return *w.feeEngine, w.errFees
}

// FeeArray returns the per-projected-block (min, median, max) fee arrays.
func (w *Watcher) FeeArray() (minFees, medianFees, maxFees []float64) {
	w.mux.RLock()
	defer w.mux.RUnlock()
	return w.feeEngine.BuildFeeArray()
}

func (w *Watcher) Difficulty() (estimate.DifficultyAdjustment, error) {
	w.mux.RLock()
	defer w.mux.RUnlock()
	return w.difficulty, w.errChain
}

func (w *Watcher) Halving() (estimate.Halving, error) {
	w.mux.RLock()
	defer w.mux.RUnlock()
	return w.halving, w.errChain
}

func (w *Watcher) Height() int64 {
	w.mux.RLock()
	defer w.mux.RUnlock()
	return w.height
}

// History returns the stored fee records from the trailing window.
func (w *Watcher) History(since int64) ([]fees.Record, error) {
	return w.histdb.Get(since, time.Now().Unix())
}

func (w *Watcher) Status() map[string]string {
	status := make(map[string]string)

	if _, err := w.Fees(); err != nil {
		status["fees"] = err.Error()
	} else {
		status["fees"] = "OK"
	}

	if _, err := w.Difficulty(); err != nil {
		status["chain"] = err.Error()
	} else {
		status["chain"] = "OK"
	}

	if w.cfg.UseWebSocket && w.stream != nil {
		status["stream"] = w.stream.State().String()
	} else {
		status["stream"] = "disabled"
	}

	return status
}

func (w *Watcher) setErrFees(err error) {
	w.mux.Lock()
	defer w.mux.Unlock()
	w.errFees = err
}

func (w *Watcher) setErrChain(err error) {
	w.mux.Lock()
	defer w.mux.Unlock()
	w.errChain = err
}
