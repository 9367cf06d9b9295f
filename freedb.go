package latticedb

import "encoding/binary"

// freeDBCursor holds a write txn's working state for free-DB
// reclamation: the in-memory reclaim set, kept in descending pgno
// order so the tail-run splice (idList.spliceRun) can find contiguous
// runs cheaply, and the txnid of the newest free-DB record already
// folded into reclaim.
type freeDBCursor struct {
	reclaim           idList
	lastConsumedTxnid txnid
	rescannedOnce     bool
}

// reset clears gc state at the start of a write txn; the reclaim set
// does not carry over between transactions.
func (gc *freeDBCursor) reset() {
	gc.reclaim = gc.reclaim[:0]
	gc.lastConsumedTxnid = 0
	gc.rescannedOnce = false
}

// maxAllocateIterationsPerPage bounds the allocate loop at 60*n, protecting
// against a pathological free-DB from spinning forever.
const maxAllocateIterationsPerPage = 60

// freeDBKey encodes a txnid as the 8-byte big-endian key used for
// free-DB records, so that ascending byte-order iteration (the order
// the default comparator walks MainDBI/FreeDBI in) matches ascending
// txnid order.
func freeDBKey(id txnid) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

func freeDBKeyDecode(b []byte) txnid {
	return txnid(binary.BigEndian.Uint64(b))
}

// allocatePages implements a five-step allocation algorithm for n
// contiguous pages, bounded by 60*n iterations of the free-DB
// scan/merge loop.
func (txn *Txn) allocatePages(n int) (pgno, error) {
	if n == 1 {
		// Step 1: loose pages are reused unconditionally - they were
		// allocated and freed within this same txn, so no reader can
		// possibly still reference them.
		if ln := len(txn.loosePages); ln > 0 {
			pg := txn.loosePages[ln-1]
			txn.loosePages = txn.loosePages[:ln-1]
			txn.markAllocated(pg)
			return pg, nil
		}
	}

	gc := &txn.gc
	limit := maxAllocateIterationsPerPage * n
	for iter := 0; iter < limit; iter++ {
		// Step 2: splice a run of n consecutive pages off the tail of
		// the descending-sorted reclaim set, if one exists.
		if first, ok := gc.reclaim.spliceRun(n); ok {
			for i := 0; i < n; i++ {
				txn.markAllocated(first + pgno(i))
			}
			return first, nil
		}

		// Step 3: read the next free-DB record keyed by a txnid larger
		// than the last one already folded into reclaim.
		rec, recTxnid, found, err := txn.nextFreeDBRecord(gc.lastConsumedTxnid)
		if err != nil {
			return 0, err
		}
		if !found {
			// No more free-DB records newer than lastConsumedTxnid. If
			// we have not yet rescanned from the oldest live snapshot,
			// do so once - a concurrent reader may have been holding
			// back records that are now safe, but only try this once
			// per allocation round to avoid spinning.
			if !gc.rescannedOnce && gc.lastConsumedTxnid != 0 {
				gc.rescannedOnce = true
				gc.lastConsumedTxnid = 0
				continue
			}
			break
		}

		// A record is only safe to reclaim once it is older than every
		// live reader's snapshot; otherwise stop consuming free-DB
		// records for this round (some reader may still see those
		// pages) and fall through to a fresh allocation.
		oldest := txnid(txn.env.lockFile.oldestReader())
		if oldest != 0 && recTxnid >= oldest {
			break
		}

		// Step 4: merge the record's id list into reclaim, descending.
		gc.reclaim = mergeDescendingUnique(gc.reclaim, rec)
		gc.lastConsumedTxnid = recTxnid
		gc.rescannedOnce = false
	}

	// Step 5: fresh allocation fallback - extend the map.
	first := txn.allocatedPg
	txn.allocatedPg += pgno(n)
	return first, nil
}

// nextFreeDBRecord reads the free-DB record with the smallest key
// strictly greater than after, returning its decoded id list and key.
func (txn *Txn) nextFreeDBRecord(after txnid) (idList, txnid, bool, error) {
	cursor, err := txn.OpenCursor(FreeDBI)
	if err != nil {
		return nil, 0, false, err
	}
	defer cursor.Close()

	key := freeDBKey(after + 1)
	k, v, err := cursor.Get(key, nil, SetRange)
	if IsNotFound(err) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}

	list, err := decodeIDList(v)
	if err != nil {
		return nil, 0, false, err
	}
	return list, freeDBKeyDecode(k), true, nil
}

// saveFreeList persists this write txn's freed pages and any
// still-unconsumed reclaim entries back to the free-DB. It iterates
// to a fixed point because writing the new
// record(s) and deleting consumed ones can itself dirty free-DB
// pages, which in turn can change which pages are free.
func (txn *Txn) saveFreeList() error {
	for {
		changed, err := txn.saveFreeListPass()
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
	}
}

// saveFreeListPass performs one iteration of the save algorithm,
// returning true if it mutated the free-DB (and so must be re-run to
// reach a fixed point).
func (txn *Txn) saveFreeListPass() (bool, error) {
	cursor, err := txn.OpenCursor(FreeDBI)
	if err != nil {
		return false, err
	}
	defer cursor.Close()

	changed := false

	// Delete free-DB records fully consumed into reclaim this txn
	// (key <= lastConsumedTxnid): their pages now live in txn.gc.reclaim
	// or have already been reallocated, so the on-disk record is stale.
	if txn.gc.lastConsumedTxnid != 0 {
		for {
			k, _, err := cursor.Get(nil, nil, First)
			if IsNotFound(err) {
				break
			}
			if err != nil {
				return false, err
			}
			if freeDBKeyDecode(k) > txn.gc.lastConsumedTxnid {
				break
			}
			if err := cursor.Del(0); err != nil {
				return false, err
			}
			changed = true
		}
	}

	// Write this txn's newly-freed pages (pages that existed before
	// this txn and are no longer reachable from any tree) under a
	// record keyed by this txn's own committing id - only readers with
	// a snapshot older than this txn could still see them, and the
	// allocate path already respects oldestReader().
	if len(txn.freePages) > 0 {
		list := make(idList, len(txn.freePages))
		copy(list, txn.freePages)
		list.sortAscending()
		if err := cursor.Put(freeDBKey(txn.txnID), encodeIDList(list), 0); err != nil {
			return false, err
		}
		txn.freePages = txn.freePages[:0]
		changed = true
	}

	// Re-home any reclaim entries that are still unconsumed so a crash
	// does not leak them: write them back under keys in
	// (0, lastConsumedTxnid], chunked to fit a reasonable number of
	// entries per record so a single free-DB value does not require an
	// unbounded overflow chain.
	if len(txn.gc.reclaim) > 0 && txn.gc.lastConsumedTxnid != 0 {
		const chunk = 4096
		remaining := txn.gc.reclaim
		key := txn.gc.lastConsumedTxnid
		for len(remaining) > 0 && key > 0 {
			n := len(remaining)
			if n > chunk {
				n = chunk
			}
			part := make(idList, n)
			copy(part, remaining[:n])
			part.sortAscending()
			if err := cursor.Put(freeDBKey(key), encodeIDList(part), 0); err != nil {
				return false, err
			}
			changed = true
			remaining = remaining[n:]
			key--
		}
		txn.gc.reclaim = txn.gc.reclaim[:0]
	}

	return changed, nil
}
