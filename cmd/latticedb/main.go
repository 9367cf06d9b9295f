// Command latticedb opens an environment read-only and prints its
// stat/info summary, in the spirit of bbolt's "bolt stat" subcommand.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/latticedb/latticedb"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-nosubdir] <path>\n", os.Args[0])
	}
	noSubdir := flag.Bool("nosubdir", false, "path names the data file directly, not a directory")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *noSubdir); err != nil {
		fmt.Fprintln(os.Stderr, "latticedb:", err)
		os.Exit(1)
	}
}

func run(path string, noSubdir bool) error {
	env, err := latticedb.NewEnv("latticedb-cli")
	if err != nil {
		return err
	}
	defer env.Close()

	flags := latticedb.ReadOnly
	if noSubdir {
		flags |= latticedb.NoSubdir
	}
	if err := env.Open(path, flags, 0644); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	stat, err := env.Stat()
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	info, err := env.Info(nil)
	if err != nil {
		return fmt.Errorf("info: %w", err)
	}

	fmt.Printf("Page size:     %d\n", stat.PageSize)
	fmt.Printf("Tree depth:    %d\n", stat.Depth)
	fmt.Printf("Branch pages:  %d\n", stat.BranchPages)
	fmt.Printf("Leaf pages:    %d\n", stat.LeafPages)
	fmt.Printf("Overflow pgs:  %d\n", stat.OverflowPages)
	fmt.Printf("Entries:       %d\n", stat.Entries)
	fmt.Printf("Last txn id:   %d\n", info.RecentTxnID)
	fmt.Printf("Last pgno:     %d\n", info.LastPgNo)
	fmt.Printf("Map size:      %d\n", info.MapSize)
	fmt.Printf("Max readers:   %d\n", info.MaxReaders)

	readers := 0
	_ = env.ReaderList(func(latticedb.ReaderInfo) error {
		readers++
		return nil
	})
	fmt.Printf("Active readers: %d\n", readers)

	return nil
}
