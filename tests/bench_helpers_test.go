package tests

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/latticedb/latticedb"
	mdbxgo "github.com/erigontech/mdbx-go/mdbx"
	"github.com/tecbot/gorocksdb"
	bolt "go.etcd.io/bbolt"
)

// benchCacheDir holds the on-disk fixtures shared across a benchmark run,
// keyed by size so repeated -bench invocations reuse prior data instead of
// regenerating it.
var benchCacheDir = filepath.Join(os.TempDir(), "latticedb-bench-cache")

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

const plainValSize = 32

var (
	plainMu       sync.Mutex
	plainLdbEnvs  = make(map[int]*latticedb.Env)
	plainMdbxEnvs = make(map[int]*mdbxgo.Env)
	plainBoltDBs  = make(map[int]*bolt.DB)
)

// getCachedPlainDB returns latticedb/mdbx/bolt environments pre-populated
// with numKeys entries under an 8-byte big-endian key and a 32-byte value,
// building them once per process and reusing them across subsequent calls.
func getCachedPlainDB(b *testing.B, numKeys int) (*latticedb.Env, *mdbxgo.Env, *bolt.DB) {
	plainMu.Lock()
	defer plainMu.Unlock()

	if genv, ok := plainLdbEnvs[numKeys]; ok {
		return genv, plainMdbxEnvs[numKeys], plainBoltDBs[numKeys]
	}

	if err := os.MkdirAll(benchCacheDir, 0755); err != nil {
		b.Fatal(err)
	}

	ldbPath := filepath.Join(benchCacheDir, fmt.Sprintf("plain_%d_ldb.db", numKeys))
	mdbxPath := filepath.Join(benchCacheDir, fmt.Sprintf("plain_%d_mdbx.db", numKeys))
	boltPath := filepath.Join(benchCacheDir, fmt.Sprintf("plain_%d_bolt.db", numKeys))

	ldbExists := fileExists(ldbPath)
	mdbxExists := fileExists(mdbxPath)
	boltExists := fileExists(boltPath)

	mapSize := int64(numKeys) * plainValSize * 8
	if mapSize < 64*1024*1024 {
		mapSize = 64 * 1024 * 1024
	}

	genv, err := latticedb.NewEnv(latticedb.Default)
	if err != nil {
		b.Fatal(err)
	}
	genv.SetMaxDBs(10)
	genv.SetGeometry(-1, -1, mapSize*2, -1, -1, 4096)
	if err := genv.Open(ldbPath, latticedb.NoSubdir|latticedb.NoMetaSync|latticedb.WriteMap, 0644); err != nil {
		b.Fatal(err)
	}

	runtime.LockOSThread()
	menv, err := mdbxgo.NewEnv(mdbxgo.Label("bench-plain"))
	if err != nil {
		genv.Close()
		b.Fatal(err)
	}
	menv.SetOption(mdbxgo.OptMaxDB, 10)
	menv.SetGeometry(-1, -1, int(mapSize*2), -1, -1, 4096)
	if err := menv.Open(mdbxPath, mdbxgo.NoSubdir|mdbxgo.NoMetaSync|mdbxgo.WriteMap, 0644); err != nil {
		genv.Close()
		b.Fatal(err)
	}
	runtime.UnlockOSThread()

	boltDB, err := bolt.Open(boltPath, 0644, &bolt.Options{NoSync: true, NoFreelistSync: true})
	if err != nil {
		genv.Close()
		menv.Close()
		b.Fatal(err)
	}

	key := make([]byte, 8)
	val := make([]byte, plainValSize)

	if !ldbExists {
		txn, err := genv.BeginTxn(nil, 0)
		if err != nil {
			b.Fatal(err)
		}
		dbi, err := txn.OpenDBISimple("bench", latticedb.Create)
		if err != nil {
			txn.Abort()
			b.Fatal(err)
		}
		for i := 0; i < numKeys; i++ {
			binary.BigEndian.PutUint64(key, uint64(i))
			binary.BigEndian.PutUint64(val, uint64(i))
			if err := txn.Put(dbi, key, val, 0); err != nil {
				txn.Abort()
				b.Fatal(err)
			}
		}
		if _, err := txn.Commit(); err != nil {
			b.Fatal(err)
		}
	}

	if !mdbxExists {
		runtime.LockOSThread()
		txn, err := menv.BeginTxn(nil, 0)
		if err != nil {
			b.Fatal(err)
		}
		dbi, err := txn.OpenDBI("bench", mdbxgo.Create, nil, nil)
		if err != nil {
			txn.Abort()
			b.Fatal(err)
		}
		for i := 0; i < numKeys; i++ {
			binary.BigEndian.PutUint64(key, uint64(i))
			binary.BigEndian.PutUint64(val, uint64(i))
			if err := txn.Put(dbi, key, val, 0); err != nil {
				txn.Abort()
				b.Fatal(err)
			}
		}
		if _, err := txn.Commit(); err != nil {
			b.Fatal(err)
		}
		runtime.UnlockOSThread()
	}

	if !boltExists {
		err := boltDB.Update(func(tx *bolt.Tx) error {
			bucket, err := tx.CreateBucketIfNotExists([]byte("bench"))
			if err != nil {
				return err
			}
			for i := 0; i < numKeys; i++ {
				binary.BigEndian.PutUint64(key, uint64(i))
				binary.BigEndian.PutUint64(val, uint64(i))
				if err := bucket.Put(key, val); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			b.Fatal(err)
		}
	}

	plainLdbEnvs[numKeys] = genv
	plainMdbxEnvs[numKeys] = menv
	plainBoltDBs[numKeys] = boltDB

	return genv, menv, boltDB
}

var (
	rocksMu   sync.Mutex
	rocksDBs  = make(map[int]*gorocksdb.DB)
	boltOnly  = make(map[int]*bolt.DB)
	boltOnlyM sync.Mutex
)

// getCachedBoltDB returns a bolt database pre-populated with numKeys
// entries, independent of getCachedPlainDB's bolt instance so read
// benchmarks that only need bolt don't pay latticedb/mdbx setup cost.
func getCachedBoltDB(b *testing.B, numKeys int) *bolt.DB {
	boltOnlyM.Lock()
	defer boltOnlyM.Unlock()

	if db, ok := boltOnly[numKeys]; ok {
		return db
	}

	if err := os.MkdirAll(benchCacheDir, 0755); err != nil {
		b.Fatal(err)
	}
	path := filepath.Join(benchCacheDir, fmt.Sprintf("plain_%d_bolt_only.db", numKeys))
	exists := fileExists(path)

	db, err := bolt.Open(path, 0644, &bolt.Options{NoSync: true, NoFreelistSync: true})
	if err != nil {
		b.Fatal(err)
	}

	if !exists {
		key := make([]byte, 8)
		val := make([]byte, plainValSize)
		err := db.Update(func(tx *bolt.Tx) error {
			bucket, err := tx.CreateBucketIfNotExists([]byte("bench"))
			if err != nil {
				return err
			}
			for i := 0; i < numKeys; i++ {
				binary.BigEndian.PutUint64(key, uint64(i))
				binary.BigEndian.PutUint64(val, uint64(i))
				if err := bucket.Put(key, val); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			b.Fatal(err)
		}
	}

	boltOnly[numKeys] = db
	return db
}

// getCachedRocksDB returns a RocksDB instance pre-populated with numKeys
// entries under the same key/value layout as getCachedPlainDB.
func getCachedRocksDB(b *testing.B, numKeys int) *gorocksdb.DB {
	rocksMu.Lock()
	defer rocksMu.Unlock()

	if db, ok := rocksDBs[numKeys]; ok {
		return db
	}

	if err := os.MkdirAll(benchCacheDir, 0755); err != nil {
		b.Fatal(err)
	}
	path := filepath.Join(benchCacheDir, fmt.Sprintf("plain_%d_rocks.db", numKeys))
	exists := fileExists(path)

	opts := gorocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)
	db, err := gorocksdb.OpenDb(opts, path)
	if err != nil {
		b.Fatal(err)
	}

	if !exists {
		wo := gorocksdb.NewDefaultWriteOptions()
		defer wo.Destroy()

		key := make([]byte, 8)
		val := make([]byte, plainValSize)
		for i := 0; i < numKeys; i++ {
			binary.BigEndian.PutUint64(key, uint64(i))
			binary.BigEndian.PutUint64(val, uint64(i))
			if err := db.Put(wo, key, val); err != nil {
				b.Fatal(err)
			}
		}
	}

	rocksDBs[numKeys] = db
	return db
}
