// Package bolt contains the boltdb implementation of the fee-history store
// used by package main.
package bolt

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/boltdb/bolt"

	"github.com/mempooltools/mempoolctl/fees"
)

type feeHistoryDB struct {
	db         *bolt.DB
	byteOrder  binary.ByteOrder
	feesBucket []byte
}

func LoadFeeHistoryDB(dbfile string) (*feeHistoryDB, error) {
	db, err := bolt.Open(dbfile, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	d := &feeHistoryDB{
		db:         db,
		byteOrder:  binary.BigEndian,
		feesBucket: []byte("feehistory"),
	}
	err = d.db.Update(func(tr *bolt.Tx) error {
		_, err = tr.CreateBucketIfNotExists(d.feesBucket)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Get returns all records with sample time within [start, end], sorted by
// increasing time.
func (d *feeHistoryDB) Get(start, end int64) ([]fees.Record, error) {
	var records []fees.Record
	err := d.db.View(func(tr *bolt.Tx) error {
		c := tr.Bucket(d.feesBucket).Cursor()
		startkey, endkey := itob(start), itob(end)
		for k, v := c.Seek(startkey); k != nil && bytes.Compare(k, endkey) <= 0; k, v = c.Next() {
			var r fees.Record
			if err := binary.Read(bytes.NewBuffer(v), d.byteOrder, &r); err != nil {
				return err
			}
			records = append(records, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Put stores one record, keyed by its sample time. A record with the same
// time overwrites the previous one.
func (d *feeHistoryDB) Put(r fees.Record) error {
	return d.db.Update(func(tr *bolt.Tx) error {
		value := new(bytes.Buffer)
		if err := binary.Write(value, d.byteOrder, &r); err != nil {
			return err
		}
		return tr.Bucket(d.feesBucket).Put(itob(r.Time), value.Bytes())
	})
}

// Delete removes all records with sample time within [start, end].
func (d *feeHistoryDB) Delete(start, end int64) error {
	return d.db.Update(func(tr *bolt.Tx) error {
		b := tr.Bucket(d.feesBucket)
		c := b.Cursor()
		startkey, endkey := itob(start), itob(end)
		var del [][]byte
		for k, _ := c.Seek(startkey); k != nil && bytes.Compare(k, endkey) <= 0; k, _ = c.Next() {
			del = append(del, k)
		}
		for _, k := range del {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *feeHistoryDB) Close() error {
	return d.db.Close()
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}
