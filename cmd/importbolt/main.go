// Command importbolt replays every key/value pair of a bbolt database
// into a latticedb environment, one named database per bbolt bucket.
// Nested buckets are flattened into "parent/child" database names.
package main

import (
	"flag"
	"fmt"
	"os"

	bolt "go.etcd.io/bbolt"

	"github.com/latticedb/latticedb"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <src.bolt> <dst.latticedb>\n", os.Args[0])
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), flag.Arg(1)); err != nil {
		fmt.Fprintln(os.Stderr, "importbolt:", err)
		os.Exit(1)
	}
}

func run(srcPath, dstPath string) error {
	src, err := bolt.Open(srcPath, 0444, &bolt.Options{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("open bbolt source: %w", err)
	}
	defer src.Close()

	dst, err := latticedb.NewEnv("importbolt")
	if err != nil {
		return err
	}
	defer dst.Close()
	if err := dst.SetMaxDBs(256); err != nil {
		return err
	}
	if err := dst.Open(dstPath, latticedb.NoSubdir|latticedb.Create, 0644); err != nil {
		return fmt.Errorf("open latticedb destination: %w", err)
	}

	txn, err := dst.BeginTxn(nil, 0)
	if err != nil {
		return err
	}

	var keys, buckets int
	err = src.View(func(btx *bolt.Tx) error {
		return btx.ForEach(func(name []byte, b *bolt.Bucket) error {
			buckets++
			return importBucket(txn, string(name), b, &keys)
		})
	})
	if err != nil {
		txn.Abort()
		return err
	}

	if _, err := txn.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	fmt.Printf("imported %d bucket(s), %d key(s)\n", buckets, keys)
	return nil
}

// importBucket recursively copies a bucket's entries into a latticedb
// named database, flattening nested buckets under "parent/child" names.
func importBucket(txn *latticedb.Txn, name string, b *bolt.Bucket, keys *int) error {
	dbi, err := txn.OpenDBI(name, latticedb.Create, nil, nil)
	if err != nil {
		return fmt.Errorf("open dbi %q: %w", name, err)
	}

	return b.ForEach(func(k, v []byte) error {
		if v == nil {
			// Nested bucket: v is nil, look it up by key and recurse.
			child := b.Bucket(k)
			if child == nil {
				return nil
			}
			return importBucket(txn, name+"/"+string(k), child, keys)
		}
		*keys++
		return txn.Put(dbi, append([]byte(nil), k...), append([]byte(nil), v...), 0)
	})
}
