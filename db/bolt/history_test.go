package bolt

import (
	"path/filepath"
	"testing"

	"github.com/mempooltools/mempoolctl/fees"
	"github.com/mempooltools/mempoolctl/testutil"
)

func TestFeeHistoryDB(t *testing.T) {
	dbfile := filepath.Join(t.TempDir(), "feehistory.db")
	d, err := LoadFeeHistoryDB(dbfile)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	records := []fees.Record{
		{Time: 100, FastestFee: 30, HalfHourFee: 25, HourFee: 18.5, EconomyFee: 4, MinimumFee: 2, MempoolVSize: 4e6, MempoolTxCount: 10000, MempoolBlocks: 4},
		{Time: 200, FastestFee: 28, HalfHourFee: 22, HourFee: 15, EconomyFee: 4, MinimumFee: 2, MempoolVSize: 3.5e6, MempoolTxCount: 9000, MempoolBlocks: 4},
		{Time: 300, FastestFee: 12, HalfHourFee: 10, HourFee: 8, EconomyFee: 2, MinimumFee: 1, MempoolVSize: 1e6, MempoolTxCount: 2500, MempoolBlocks: 1},
	}
	for _, r := range records {
		if err := d.Put(r); err != nil {
			t.Fatal(err)
		}
	}

	got, err := d.Get(0, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual(got, records); err != nil {
		t.Error(err)
	}

	// Range queries are inclusive on both ends.
	got, err = d.Get(150, 300)
	if err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual(got, records[1:]); err != nil {
		t.Error(err)
	}

	// Same-time Put overwrites.
	updated := records[1]
	updated.FastestFee = 99
	if err := d.Put(updated); err != nil {
		t.Fatal(err)
	}
	got, err = d.Get(200, 200)
	if err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual(got, []fees.Record{updated}); err != nil {
		t.Error(err)
	}

	if err := d.Delete(0, 250); err != nil {
		t.Fatal(err)
	}
	got, err = d.Get(0, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if err := testutil.CheckEqual(got, records[2:]); err != nil {
		t.Error(err)
	}
}
