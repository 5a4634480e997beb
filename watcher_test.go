package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/mempooltools/mempoolctl/fees"
	"github.com/mempooltools/mempoolctl/mempool"
	"github.com/mempooltools/mempoolctl/testutil"
)

type memHistoryDB struct {
	mux     sync.Mutex
	records []fees.Record
}

func (d *memHistoryDB) Get(start, end int64) ([]fees.Record, error) {
	d.mux.Lock()
	defer d.mux.Unlock()
	var result []fees.Record
	for _, r := range d.records {
		if r.Time >= start && r.Time <= end {
			result = append(result, r)
		}
	}
	return result, nil
}

func (d *memHistoryDB) Put(r fees.Record) error {
	d.mux.Lock()
	defer d.mux.Unlock()
	d.records = append(d.records, r)
	return nil
}

func (d *memHistoryDB) Delete(start, end int64) error {
	d.mux.Lock()
	defer d.mux.Unlock()
	var kept []fees.Record
	for _, r := range d.records {
		if r.Time < start || r.Time > end {
			kept = append(kept, r)
		}
	}
	d.records = kept
	return nil
}

func (d *memHistoryDB) Close() error { return nil }

func newTestWatcher(t *testing.T) (*Watcher, *memHistoryDB) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/fees/recommended", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"fastestFee": 30, "halfHourFee": 20, "hourFee": 10, "economyFee": 4, "minimumFee": 2}`))
	})
	mux.HandleFunc("/api/v1/fees/mempool-blocks", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"blockVSize": 1000000, "nTx": 2500, "medianFee": 30, "feeRange": [25, 30, 40]},
			{"blockVSize": 1000000, "nTx": 2500, "medianFee": 10, "feeRange": [5, 10, 20]}
		]`))
	})
	mux.HandleFunc("/api/blocks/tip/height", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("842130"))
	})
	mux.HandleFunc("/api/v1/difficulty-adjustment", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"remainingBlocks": 1000, "expectedBlocks": 1050.5, "timeAvg": 600000}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := mempool.NewClient(mempool.Config{Endpoints: []string{srv.URL + "/api/"}})
	histdb := &memHistoryDB{}
	w := NewWatcher(client, nil, histdb, WatcherConfig{
		PollPeriod:    60,
		HistoryMaxAge: 3600,
	})
	return w, histdb
}

func TestWatcherRefresh(t *testing.T) {
	w, histdb := newTestWatcher(t)

	if err := w.refreshChain(); err != nil {
		t.Fatal(err)
	}
	if err := w.refreshFees(); err != nil {
		t.Fatal(err)
	}
	w.recordHistory()

	if err := testutil.CheckEqual(w.Height(), int64(842130)); err != nil {
		t.Error(err)
	}

	da, err := w.Difficulty()
	if err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual(da.LastRetargetHeight, int64(841114)); err != nil {
		t.Error(err)
	}

	h, err := w.Halving()
	if err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual(h.BlocksRemaining, int64(207870)); err != nil {
		t.Error(err)
	}

	rf, err := w.Fees()
	if err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual(*rf.FastestFee, float64(30)); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(rf.MempoolBlocks, 2); err != nil {
		t.Error(err)
	}

	records, err := histdb.Get(0, 1<<62)
	if err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual(len(records), 1); err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual(records[0].FastestFee, float64(30)); err != nil {
		t.Error(err)
	}

	status := w.Status()
	if err := testutil.CheckEqual(status["fees"], "OK"); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(status["chain"], "OK"); err != nil {
		t.Error(err)
	}
	if err := testutil.CheckEqual(status["stream"], "disabled"); err != nil {
		t.Error(err)
	}
}

func TestWatcherHandleEvent(t *testing.T) {
	w, _ := newTestWatcher(t)
	if err := w.refreshChain(); err != nil {
		t.Fatal(err)
	}

	// A new block bumps the height; stale heights are ignored.
	w.handleEvent(json.RawMessage(`{"block": {"height": 842131}}`))
	if err := testutil.CheckEqual(w.Height(), int64(842131)); err != nil {
		t.Error(err)
	}
	w.handleEvent(json.RawMessage(`{"block": {"height": 842000}}`))
	if err := testutil.CheckEqual(w.Height(), int64(842131)); err != nil {
		t.Error(err)
	}

	// Pushed fees update the engine without touching absent tiers.
	w.handleEvent(json.RawMessage(`{"fees": {"fastestFee": 55}}`))
	rf, err := w.Fees()
	if err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual(*rf.FastestFee, float64(55)); err != nil {
		t.Error(err)
	}

	// Malformed events are discarded.
	w.handleEvent(json.RawMessage(`{"block": "nope"}`))
	if err := testutil.CheckEqual(w.Height(), int64(842131)); err != nil {
		t.Error(err)
	}
}

func TestWatcherHistoryPrune(t *testing.T) {
	w, histdb := newTestWatcher(t)
	if err := w.refreshFees(); err != nil {
		t.Fatal(err)
	}

	// A record past the retention window is pruned on the next write.
	histdb.Put(fees.Record{Time: 1, FastestFee: 99})
	w.recordHistory()

	records, err := histdb.Get(0, 1<<62)
	if err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual(len(records), 1); err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual(records[0].FastestFee, float64(30)); err != nil {
		t.Error(err)
	}
}
