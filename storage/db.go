package storage

import (
	"errors"

	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	gethleveldb "github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/syndtr/goleveldb/leveldb"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("storage: key not found")

const (
	levelDBCacheMB   = 64
	levelDBHandles   = 128
	levelDBNamespace = "stakeledger/db/"
)

// Database is a generic interface for a key-value store.
// The ledger can run on any backend (in-memory or persistent); both expose the
// trie node database layered on the same store.
type Database interface {
	Put(key []byte, value []byte) error
	// PutBatch writes every pair or none of them.
	PutBatch(pairs ...KeyValue) error
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	TrieDB() *triedb.Database
	Close() // A way to gracefully shut down the database connection.
}

// KeyValue is one entry of a PutBatch write.
type KeyValue struct {
	Key   []byte
	Value []byte
}

type backend struct {
	kv     ethdb.Database
	trieDB *triedb.Database
}

func newBackend(kv ethdb.Database) backend {
	return backend{kv: kv, trieDB: triedb.NewDatabase(kv, nil)}
}

func (b backend) Put(key []byte, value []byte) error {
	return b.kv.Put(key, value)
}

func (b backend) PutBatch(pairs ...KeyValue) error {
	batch := b.kv.NewBatch()
	for _, pair := range pairs {
		if err := batch.Put(pair.Key, pair.Value); err != nil {
			return err
		}
	}
	return batch.Write()
}

func (b backend) Has(key []byte) (bool, error) {
	return b.kv.Has(key)
}

func (b backend) TrieDB() *triedb.Database {
	return b.trieDB
}

func (b backend) close() {
	_ = b.trieDB.Close()
	_ = b.kv.Close()
}

// --- In-Memory DB (for testing) ---

type MemDB struct {
	backend
}

func NewMemDB() *MemDB {
	return &MemDB{backend: newBackend(rawdb.NewMemoryDatabase())}
}

func (db *MemDB) Get(key []byte) ([]byte, error) {
	ok, err := db.kv.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return db.kv.Get(key)
}

// Close satisfies the Database interface for MemDB.
func (db *MemDB) Close() {
	db.close()
}

// --- Persistent DB ---

// LevelDB is a persistent key-value store using LevelDB.
type LevelDB struct {
	backend
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	ldb, err := gethleveldb.New(path, levelDBCacheMB, levelDBHandles, levelDBNamespace, false)
	if err != nil {
		return nil, err
	}
	return &LevelDB{backend: newBackend(rawdb.NewDatabase(ldb))}, nil
}

// Get retrieves a value for a given key.
func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := ldb.kv.Get(key)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

// Close closes the database connection.
func (ldb *LevelDB) Close() {
	ldb.close()
}
