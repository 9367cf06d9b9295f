package tests

import (
	"fmt"
	"testing"

	"github.com/latticedb/latticedb"
)

// TestCursorPutOverwriteAndNoOverwrite checks Cursor.Put both overwrites an
// existing key by default and is rejected under NoOverwrite.
func TestCursorPutOverwriteAndNoOverwrite(t *testing.T) {
	path := t.TempDir() + "/cursor_put.db"
	env, err := latticedb.NewEnv(latticedb.Default)
	if err != nil {
		t.Fatal(err)
	}
	defer env.Close()
	env.SetMaxDBs(10)
	if err := env.Open(path, latticedb.NoSubdir, 0644); err != nil {
		t.Fatal(err)
	}

	txn, _ := env.BeginTxn(nil, 0)
	dbi, err := txn.OpenDBISimple("cp", latticedb.Create)
	if err != nil {
		t.Fatal(err)
	}
	cursor, err := txn.OpenCursor(dbi)
	if err != nil {
		t.Fatal(err)
	}

	if err := cursor.Put([]byte("k"), []byte("v1"), 0); err != nil {
		t.Fatalf("initial Put failed: %v", err)
	}
	if err := cursor.Put([]byte("k"), []byte("v2"), latticedb.NoOverwrite); err == nil {
		t.Error("Put with NoOverwrite on existing key should fail")
	}
	if err := cursor.Put([]byte("k"), []byte("v2"), 0); err != nil {
		t.Fatalf("overwrite Put failed: %v", err)
	}

	_, v, err := cursor.Get([]byte("k"), nil, latticedb.Set)
	if err != nil || string(v) != "v2" {
		t.Errorf("Get after overwrite = %q, err=%v, want v2", v, err)
	}
	cursor.Close()
	txn.Abort()
}

// TestCursorDelCurrent checks Cursor.Del removes the entry at the cursor's
// current position and repositions correctly for a subsequent Get.
func TestCursorDelCurrent(t *testing.T) {
	path := t.TempDir() + "/cursor_del.db"
	env, err := latticedb.NewEnv(latticedb.Default)
	if err != nil {
		t.Fatal(err)
	}
	defer env.Close()
	env.SetMaxDBs(10)
	if err := env.Open(path, latticedb.NoSubdir, 0644); err != nil {
		t.Fatal(err)
	}

	txn, _ := env.BeginTxn(nil, 0)
	dbi, _ := txn.OpenDBISimple("cd", latticedb.Create)
	for _, k := range []string{"a", "b", "c", "d"} {
		if err := txn.Put(dbi, []byte(k), []byte("v"), 0); err != nil {
			t.Fatal(err)
		}
	}
	cursor, err := txn.OpenCursor(dbi)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := cursor.Get([]byte("b"), nil, latticedb.Set); err != nil {
		t.Fatal(err)
	}
	if err := cursor.Del(0); err != nil {
		t.Fatalf("Del failed: %v", err)
	}
	cursor.Close()
	if _, err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	txn, _ = env.BeginTxn(nil, latticedb.TxnReadOnly)
	defer txn.Abort()
	dbi, _ = txn.OpenDBISimple("cd", 0)
	if _, err := txn.Get(dbi, []byte("b")); !latticedb.IsNotFound(err) {
		t.Errorf("b should be deleted, got err=%v", err)
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, err := txn.Get(dbi, []byte(k)); err != nil {
			t.Errorf("%s should survive, got err=%v", k, err)
		}
	}
}

// TestCursorDelDupCurrent verifies Del with no flags on a DUPSORT cursor
// removes only the current duplicate, leaving siblings intact.
func TestCursorDelDupCurrent(t *testing.T) {
	env, cleanup := openDupSortDB(t)
	defer cleanup()

	txn, _ := env.BeginTxn(nil, 0)
	dbi, _ := txn.OpenDBISimple("dup", latticedb.Create|latticedb.DupSort)
	for i := 0; i < 5; i++ {
		if err := txn.Put(dbi, []byte("k"), []byte(fmt.Sprintf("v%d", i)), 0); err != nil {
			t.Fatal(err)
		}
	}
	cursor, err := txn.OpenCursor(dbi)
	if err != nil {
		t.Fatal(err)
	}
	if _, v, err := cursor.Get([]byte("k"), []byte("v2"), latticedb.GetBoth); err != nil || string(v) != "v2" {
		t.Fatalf("GetBoth(k,v2) failed: v=%q err=%v", v, err)
	}
	if err := cursor.Del(0); err != nil {
		t.Fatalf("Del of single dup failed: %v", err)
	}
	cursor.Close()
	if _, err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	txn, _ = env.BeginTxn(nil, latticedb.TxnReadOnly)
	defer txn.Abort()
	dbi, _ = txn.OpenDBISimple("dup", 0)
	cursor, _ = txn.OpenCursor(dbi)
	defer cursor.Close()

	if _, _, err := cursor.Get([]byte("k"), []byte("v2"), latticedb.GetBoth); !latticedb.IsNotFound(err) {
		t.Errorf("v2 should be gone, got err=%v", err)
	}
	count, err := func() (uint64, error) {
		if _, _, err := cursor.Get([]byte("k"), nil, latticedb.Set); err != nil {
			return 0, err
		}
		return cursor.Count()
	}()
	if err != nil {
		t.Fatal(err)
	}
	if count != 4 {
		t.Errorf("Count after deleting one dup = %d, want 4", count)
	}
}

// TestForEachDeleteWhileIterating deletes every entry it visits during a
// forward cursor walk (advancing before deleting), checking the table ends
// up empty and the walk terminates cleanly.
func TestForEachDeleteWhileIterating(t *testing.T) {
	path := t.TempDir() + "/foreach_delete.db"
	env, err := latticedb.NewEnv(latticedb.Default)
	if err != nil {
		t.Fatal(err)
	}
	defer env.Close()
	env.SetMaxDBs(10)
	if err := env.Open(path, latticedb.NoSubdir, 0644); err != nil {
		t.Fatal(err)
	}

	txn, _ := env.BeginTxn(nil, 0)
	dbi, _ := txn.OpenDBISimple("fed", latticedb.Create)
	const n = 200
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("k-%04d", i))
		if err := txn.Put(dbi, key, []byte("v"), 0); err != nil {
			t.Fatal(err)
		}
	}

	cursor, err := txn.OpenCursor(dbi)
	if err != nil {
		t.Fatal(err)
	}

	visited := 0
	var pendingKey []byte
	k, _, err := cursor.Get(nil, nil, latticedb.First)
	for err == nil {
		visited++
		pendingKey = append([]byte{}, k...)
		nextK, _, nextErr := cursor.Get(nil, nil, latticedb.Next)
		if delErr := txn.Del(dbi, pendingKey, nil); delErr != nil {
			t.Fatalf("Del(%s) mid-walk failed: %v", pendingKey, delErr)
		}
		if nextErr != nil {
			break
		}
		if _, _, err = cursor.Get(nextK, nil, latticedb.Set); err != nil {
			// entry may have shifted after the delete; reseek forward.
			_, _, err = cursor.Get(nextK, nil, latticedb.SetRange)
		}
		k = nextK
	}
	cursor.Close()

	if visited != n {
		t.Errorf("visited %d entries, want %d", visited, n)
	}
	if _, err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	txn, _ = env.BeginTxn(nil, latticedb.TxnReadOnly)
	defer txn.Abort()
	dbi, _ = txn.OpenDBISimple("fed", 0)
	stat, err := txn.Stat(dbi)
	if err != nil {
		t.Fatal(err)
	}
	if stat.Entries != 0 {
		t.Errorf("Entries after delete-all walk = %d, want 0", stat.Entries)
	}
}

// TestEmptyKeyRoundTrip verifies a zero-length key is a legal key.
func TestEmptyKeyRoundTrip(t *testing.T) {
	path := t.TempDir() + "/empty_key.db"
	env, err := latticedb.NewEnv(latticedb.Default)
	if err != nil {
		t.Fatal(err)
	}
	defer env.Close()
	env.SetMaxDBs(10)
	if err := env.Open(path, latticedb.NoSubdir, 0644); err != nil {
		t.Fatal(err)
	}

	txn, _ := env.BeginTxn(nil, 0)
	dbi, _ := txn.OpenDBISimple("ek", latticedb.Create)
	if err := txn.Put(dbi, []byte{}, []byte("empty-key-value"), 0); err != nil {
		t.Fatalf("Put with empty key failed: %v", err)
	}
	if err := txn.Put(dbi, []byte("normal"), []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	txn, _ = env.BeginTxn(nil, latticedb.TxnReadOnly)
	defer txn.Abort()
	dbi, _ = txn.OpenDBISimple("ek", 0)
	got, err := txn.Get(dbi, []byte{})
	if err != nil {
		t.Fatalf("Get with empty key failed: %v", err)
	}
	if string(got) != "empty-key-value" {
		t.Errorf("Get(empty key) = %q, want empty-key-value", got)
	}
}

// TestMultipleDBIsIndependent checks that two named databases in the same
// environment keep independent key spaces.
func TestMultipleDBIsIndependent(t *testing.T) {
	path := t.TempDir() + "/multi_dbi.db"
	env, err := latticedb.NewEnv(latticedb.Default)
	if err != nil {
		t.Fatal(err)
	}
	defer env.Close()
	env.SetMaxDBs(10)
	if err := env.Open(path, latticedb.NoSubdir, 0644); err != nil {
		t.Fatal(err)
	}

	txn, _ := env.BeginTxn(nil, 0)
	dbiA, err := txn.OpenDBISimple("tableA", latticedb.Create)
	if err != nil {
		t.Fatal(err)
	}
	dbiB, err := txn.OpenDBISimple("tableB", latticedb.Create)
	if err != nil {
		t.Fatal(err)
	}
	if err := txn.Put(dbiA, []byte("shared"), []byte("from-A"), 0); err != nil {
		t.Fatal(err)
	}
	if err := txn.Put(dbiB, []byte("shared"), []byte("from-B"), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	txn, _ = env.BeginTxn(nil, latticedb.TxnReadOnly)
	defer txn.Abort()
	dbiA, _ = txn.OpenDBISimple("tableA", 0)
	dbiB, _ = txn.OpenDBISimple("tableB", 0)

	va, err := txn.Get(dbiA, []byte("shared"))
	if err != nil || string(va) != "from-A" {
		t.Errorf("tableA[shared] = %q err=%v, want from-A", va, err)
	}
	vb, err := txn.Get(dbiB, []byte("shared"))
	if err != nil || string(vb) != "from-B" {
		t.Errorf("tableB[shared] = %q err=%v, want from-B", vb, err)
	}
}

// TestMixedTableTypesInOneEnv opens a plain table and a DUPSORT table side
// by side in the same environment and checks each behaves per its own
// flags.
func TestMixedTableTypesInOneEnv(t *testing.T) {
	path := t.TempDir() + "/mixed_tables.db"
	env, err := latticedb.NewEnv(latticedb.Default)
	if err != nil {
		t.Fatal(err)
	}
	defer env.Close()
	env.SetMaxDBs(10)
	if err := env.Open(path, latticedb.NoSubdir, 0644); err != nil {
		t.Fatal(err)
	}

	txn, _ := env.BeginTxn(nil, 0)
	plain, err := txn.OpenDBISimple("plain", latticedb.Create)
	if err != nil {
		t.Fatal(err)
	}
	dup, err := txn.OpenDBISimple("dup", latticedb.Create|latticedb.DupSort)
	if err != nil {
		t.Fatal(err)
	}

	if err := txn.Put(plain, []byte("k"), []byte("v1"), 0); err != nil {
		t.Fatal(err)
	}
	if err := txn.Put(plain, []byte("k"), []byte("v2"), 0); err != nil {
		t.Fatal(err)
	}
	if err := txn.Put(dup, []byte("k"), []byte("v1"), 0); err != nil {
		t.Fatal(err)
	}
	if err := txn.Put(dup, []byte("k"), []byte("v2"), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	txn, _ = env.BeginTxn(nil, latticedb.TxnReadOnly)
	defer txn.Abort()
	plain, _ = txn.OpenDBISimple("plain", 0)
	dup, _ = txn.OpenDBISimple("dup", 0)

	got, err := txn.Get(plain, []byte("k"))
	if err != nil || string(got) != "v2" {
		t.Errorf("plain[k] = %q err=%v, want v2 (second Put overwrites)", got, err)
	}

	statDup, err := txn.Stat(dup)
	if err != nil {
		t.Fatal(err)
	}
	if statDup.Entries != 2 {
		t.Errorf("dup Stat.Entries = %d, want 2 (both duplicates retained)", statDup.Entries)
	}
}
