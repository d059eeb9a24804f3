// Package store is the durable height->blob and inscription index
// backing the indexer: a single embedded bbolt database file providing
// write-ahead-logged, single-writer durability.
package store

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/fxamacker/cbor/v2"
)

var (
	bucketBlocks                = []byte("blocks")
	bucketInscriptions           = []byte("inscriptions")
	bucketInscriptionsByOutpoint = []byte("inscriptions_by_outpoint")
	bucketInscriptionsByOrdinal  = []byte("inscriptions_by_ordinal")
	bucketInscriptionsByNumber   = []byte("inscriptions_by_number")
	bucketMeta                   = []byte("meta")

	keyLastInscriptionNumber = []byte("last_inscription_number")
)

var allBuckets = [][]byte{
	bucketBlocks,
	bucketInscriptions,
	bucketInscriptionsByOutpoint,
	bucketInscriptionsByOrdinal,
	bucketInscriptionsByNumber,
	bucketMeta,
}

// InscriptionRow is one row of the inscriptions table.
type InscriptionRow struct {
	InscriptionID     string `cbor:"1,keyasint"`
	BlockHeight       uint64 `cbor:"2,keyasint"`
	BlockHash         string `cbor:"3,keyasint"`
	OutpointToWatch   string `cbor:"4,keyasint"`
	OrdinalNumber     uint64 `cbor:"5,keyasint"`
	InscriptionNumber uint64 `cbor:"6,keyasint"`
	Offset            uint64 `cbor:"7,keyasint"`
}

// Store wraps a bbolt database providing the block and inscription
// tables described by the data model.
type Store struct {
	db     *bolt.DB
	logger *zap.Logger
}

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func createBuckets(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
}

// Open opens (creating if necessary) the database at path for
// read-write access. Transient open failures (file lock contention)
// are retried forever with a 1-second sleep, logged at Warn, matching
// the source's operator-ergonomics contract for a stuck open.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	attempt := 0
	for {
		attempt++
		db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
		if err == nil {
			if err := createBuckets(db); err != nil {
				_ = db.Close()
				return nil, err
			}
			return &Store{db: db, logger: logger}, nil
		}
		logger.Warn("store open failed, retrying",
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Error(err))
		time.Sleep(1 * time.Second)
	}
}

// OpenReadOnly opens the database for read-only access, failing fast
// with ErrStoreMissing when the file does not exist.
func OpenReadOnly(path string, logger *zap.Logger) (*Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, ErrStoreMissing
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{ReadOnly: true, Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func heightKey(height uint32) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, height)
	return key
}

func ordinalKey(n uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, n)
	return key
}

func numberKey(n uint64) []byte {
	return ordinalKey(n)
}

// PutBlock stores the hex-encoded compacted blob for height.
func (s *Store) PutBlock(height uint32, compactedBytesHex string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlocks).Put(heightKey(height), []byte(compactedBytesHex))
	})
}

// GetBlock returns the hex-encoded compacted blob at height, if present.
func (s *Store) GetBlock(height uint32) (string, bool, error) {
	var out string
	var ok bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBlocks).Get(heightKey(height))
		if v == nil {
			return nil
		}
		out = string(v)
		ok = true
		return nil
	})
	return out, ok, err
}

// DeleteBlock removes the row for height, if present.
func (s *Store) DeleteBlock(height uint32) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlocks).Delete(heightKey(height))
	})
}

// DeleteBlocksFrom removes every block row with height >= from, in one
// pass. This is a repeated single-block delete, not an atomic
// multi-block chain rewrite: callers drive the rollback CLI subcommand.
func (s *Store) DeleteBlocksFrom(from uint32) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlocks)
		c := b.Cursor()
		var toDelete [][]byte
		for k, _ := c.Seek(heightKey(from)); k != nil; k, _ = c.Next() {
			toDelete = append(toDelete, append([]byte(nil), k...))
		}
		for _, k := range toDelete {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// MaxHeight returns the highest stored block height, or 0 if the store
// is empty. 0 is therefore ambiguous with "only the genesis block is
// present"; callers disambiguate with an external bootstrap marker.
func (s *Store) MaxHeight() (uint32, error) {
	var max uint32
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketBlocks).Cursor()
		k, _ := c.Last()
		if k == nil {
			return nil
		}
		max = binary.BigEndian.Uint32(k)
		return nil
	})
	return max, err
}

func encodeRow(row InscriptionRow) ([]byte, error) {
	return cbor.Marshal(row)
}

func decodeRow(data []byte) (InscriptionRow, error) {
	var row InscriptionRow
	err := cbor.Unmarshal(data, &row)
	return row, err
}

func outpointBucket(tx *bolt.Tx, outpoint string, create bool) (*bolt.Bucket, error) {
	parent := tx.Bucket(bucketInscriptionsByOutpoint)
	if create {
		return parent.CreateBucketIfNotExists([]byte(outpoint))
	}
	return parent.Bucket([]byte(outpoint)), nil
}

// InsertInscription writes a new inscription row and its secondary
// index entries.
func (s *Store) InsertInscription(row InscriptionRow) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		encoded, err := encodeRow(row)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketInscriptions).Put([]byte(row.InscriptionID), encoded); err != nil {
			return err
		}
		if err := tx.Bucket(bucketInscriptionsByOrdinal).Put(ordinalKey(row.OrdinalNumber), []byte(row.InscriptionID)); err != nil {
			return err
		}
		if err := tx.Bucket(bucketInscriptionsByNumber).Put(numberKey(row.InscriptionNumber), []byte(row.InscriptionID)); err != nil {
			return err
		}
		ob, err := outpointBucket(tx, row.OutpointToWatch, true)
		if err != nil {
			return err
		}
		if err := ob.Put(ordinalKey(row.Offset), []byte(row.InscriptionID)); err != nil {
			return err
		}
		return bumpLastInscriptionNumber(tx, row.InscriptionNumber)
	})
}

func bumpLastInscriptionNumber(tx *bolt.Tx, n uint64) error {
	b := tx.Bucket(bucketMeta)
	cur := b.Get(keyLastInscriptionNumber)
	if cur != nil && binary.BigEndian.Uint64(cur) >= n {
		return nil
	}
	return b.Put(keyLastInscriptionNumber, numberKey(n))
}

func removeFromOutpointIndex(tx *bolt.Tx, outpoint string, offset uint64) error {
	ob, err := outpointBucket(tx, outpoint, false)
	if err != nil {
		return err
	}
	if ob == nil {
		return nil
	}
	return ob.Delete(ordinalKey(offset))
}

// UpdateTransferred moves an existing inscription's outpoint_to_watch
// and offset, updating the outpoint secondary index accordingly.
func (s *Store) UpdateTransferred(id, outpoint string, offset uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketInscriptions)
		raw := b.Get([]byte(id))
		if raw == nil {
			return ErrNotFound
		}
		row, err := decodeRow(raw)
		if err != nil {
			return err
		}

		if err := removeFromOutpointIndex(tx, row.OutpointToWatch, row.Offset); err != nil {
			return err
		}

		row.OutpointToWatch = outpoint
		row.Offset = offset

		encoded, err := encodeRow(row)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(id), encoded); err != nil {
			return err
		}

		ob, err := outpointBucket(tx, outpoint, true)
		if err != nil {
			return err
		}
		return ob.Put(ordinalKey(offset), []byte(id))
	})
}

// DeleteInscription removes the row and all secondary index entries
// for id.
func (s *Store) DeleteInscription(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketInscriptions)
		raw := b.Get([]byte(id))
		if raw == nil {
			return ErrNotFound
		}
		row, err := decodeRow(raw)
		if err != nil {
			return err
		}

		if err := b.Delete([]byte(id)); err != nil {
			return err
		}
		if err := tx.Bucket(bucketInscriptionsByOrdinal).Delete(ordinalKey(row.OrdinalNumber)); err != nil {
			return err
		}
		if err := tx.Bucket(bucketInscriptionsByNumber).Delete(numberKey(row.InscriptionNumber)); err != nil {
			return err
		}
		return removeFromOutpointIndex(tx, row.OutpointToWatch, row.Offset)
	})
}

// LastInscriptionNumber returns the highest inscription_number seen so
// far, or 0 if none have been inserted.
func (s *Store) LastInscriptionNumber() (uint64, error) {
	var n uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketMeta).Get(keyLastInscriptionNumber)
		if v == nil {
			return nil
		}
		n = binary.BigEndian.Uint64(v)
		return nil
	})
	return n, err
}

func (s *Store) getRow(tx *bolt.Tx, id string) (InscriptionRow, bool, error) {
	raw := tx.Bucket(bucketInscriptions).Get([]byte(id))
	if raw == nil {
		return InscriptionRow{}, false, nil
	}
	row, err := decodeRow(raw)
	if err != nil {
		return InscriptionRow{}, false, err
	}
	return row, true, nil
}

// FindByOrdinal returns the inscription carried by the given ordinal
// number, if any.
func (s *Store) FindByOrdinal(n uint64) (InscriptionRow, bool, error) {
	var row InscriptionRow
	var ok bool
	err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketInscriptionsByOrdinal).Get(ordinalKey(n))
		if id == nil {
			return nil
		}
		var err error
		row, ok, err = s.getRow(tx, string(id))
		return err
	})
	return row, ok, err
}

// FindAllInscriptions returns every inscription ordered by ascending
// inscription_number.
func (s *Store) FindAllInscriptions() ([]InscriptionRow, error) {
	var out []InscriptionRow
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketInscriptionsByNumber).Cursor()
		for _, id := c.First(); id != nil; _, id = c.Next() {
			row, ok, err := s.getRow(tx, string(id))
			if err != nil {
				return err
			}
			if ok {
				out = append(out, row)
			}
		}
		return nil
	})
	return out, err
}

// FindByOutpoint returns every inscription currently watched at
// outpoint, ordered by ascending offset.
func (s *Store) FindByOutpoint(outpoint string) ([]InscriptionRow, error) {
	var out []InscriptionRow
	err := s.db.View(func(tx *bolt.Tx) error {
		ob, err := outpointBucket(tx, outpoint, false)
		if err != nil {
			return err
		}
		if ob == nil {
			return nil
		}
		c := ob.Cursor()
		for _, id := c.First(); id != nil; _, id = c.Next() {
			row, ok, err := s.getRow(tx, string(id))
			if err != nil {
				return err
			}
			if ok {
				out = append(out, row)
			}
		}
		return nil
	})
	return out, err
}
