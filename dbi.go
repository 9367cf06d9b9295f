package latticedb

// DBI is a database handle (index into environment's database array).
type DBI uint32

// Drop deletes all data in a database, or deletes the database entirely.
// If del is true, the database is deleted; otherwise it is emptied.
func (txn *Txn) Drop(dbi DBI, del bool) error {
	if !txn.valid() {
		return NewError(ErrBadTxn)
	}

	if txn.IsReadOnly() {
		return NewError(ErrPermissionDenied)
	}

	if dbi < CoreDBs {
		return NewError(ErrInvalid) // Can't drop core DBs
	}

	if int(dbi) >= len(txn.trees) {
		return NewError(ErrBadDBI)
	}

	root := txn.trees[dbi].Root
	if root != invalidPgno {
		if err := txn.freeTree(root); err != nil {
			return err
		}
	}

	txn.trees[dbi].reset()

	// Mark the tree as dirty so it gets persisted
	if txn.dbiDirty == nil {
		txn.dbiDirty = make([]bool, len(txn.trees))
	}
	if int(dbi) < len(txn.dbiDirty) {
		txn.dbiDirty[dbi] = true
	}

	if del {
		if dbi != MainDBI {
			txn.env.dbisMu.RLock()
			var name string
			if info := txn.env.dbis[dbi]; info != nil {
				name = info.name
			}
			txn.env.dbisMu.RUnlock()

			if name != "" {
				cursor, err := txn.OpenCursor(MainDBI)
				if err != nil {
					return err
				}
				if _, _, err := cursor.Get([]byte(name), nil, Set); err == nil {
					if err := cursor.Del(0); err != nil {
						cursor.Close()
						return err
					}
				} else if !IsNotFound(err) {
					cursor.Close()
					return err
				}
				cursor.Close()
			}
		}

		// Remove from environment's DBI list
		txn.env.dbisMu.Lock()
		txn.env.dbis[dbi] = nil
		txn.env.dbisMu.Unlock()
	}

	return nil
}

// freeTree walks every page reachable from root and hands it to the
// transaction's free list, following branch children, leaf overflow
// chains (F_BIGDATA), and nested sub-databases (F_SUB_DATABASE) that
// a dropped tree may still reference.
func (txn *Txn) freeTree(root pgno) error {
	if root == invalidPgno {
		return nil
	}

	p, err := txn.getPage(root)
	if err != nil {
		return err
	}

	if p.isBranch() {
		for i := 0; i < p.numEntries(); i++ {
			n := nodeFromPage(p, i)
			if n == nil {
				continue
			}
			if err := txn.freeTree(n.childPgno()); err != nil {
				return err
			}
		}
	} else if p.isLeaf() {
		for i := 0; i < p.numEntries(); i++ {
			n := nodeFromPage(p, i)
			if n == nil {
				continue
			}
			switch {
			case n.isBig():
				ov := n.overflowPgno()
				if ov != invalidPgno {
					txn.freeOverflowChain(ov, n.dataSize())
				}
			case n.isTree():
				sub := parseTreeFromBytes(n.nodeData())
				if sub != nil {
					if err := txn.freeTree(sub.Root); err != nil {
						return err
					}
				}
			}
		}
	}

	txn.freePage(root)
	return nil
}

// freeOverflowChain frees every page in an overflow run of the given
// data size, mirroring Cursor.freeOverflow's page-count arithmetic.
func (txn *Txn) freeOverflowChain(first pgno, dataSize uint32) {
	pageSize := int(txn.env.pageSize)
	firstPageData := pageSize - pageHeaderSize

	remaining := int(dataSize) - firstPageData
	numPages := 1
	if remaining > 0 {
		numPages += (remaining + pageSize - 1) / pageSize
	}

	for i := 0; i < numPages; i++ {
		txn.freePage(first + pgno(i))
	}
}

// DBIFlags returns the flags for a database.
func (txn *Txn) DBIFlags(dbi DBI) (uint, error) {
	if !txn.valid() {
		return 0, NewError(ErrBadTxn)
	}

	if int(dbi) >= len(txn.trees) {
		return 0, NewError(ErrBadDBI)
	}

	return uint(txn.trees[dbi].Flags), nil
}

// Sequence gets or updates the sequence number for a database.
// If increment > 0, adds to the sequence and returns the value it held
// before the increment.
// If increment == 0, returns the current value without changing it.
func (txn *Txn) Sequence(dbi DBI, increment uint64) (uint64, error) {
	if !txn.valid() {
		return 0, NewError(ErrBadTxn)
	}

	if int(dbi) >= len(txn.trees) {
		return 0, NewError(ErrBadDBI)
	}

	if increment > 0 && txn.IsReadOnly() {
		return 0, NewError(ErrPermissionDenied)
	}

	t := &txn.trees[dbi]
	result := t.Sequence

	if increment > 0 {
		t.Sequence += increment
	}

	return result, nil
}

// SetCompare sets a custom key comparison function for a database.
// Must be called before any data operations on the database.
func (e *Env) SetCompare(dbi DBI, cmp func(a, b []byte) int) error {
	if !e.valid() {
		return NewError(ErrInvalid)
	}

	e.dbisMu.Lock()
	defer e.dbisMu.Unlock()

	if int(dbi) >= len(e.dbis) {
		return NewError(ErrBadDBI)
	}

	if e.dbis[dbi] == nil {
		e.dbis[dbi] = &dbiInfo{}
	}
	e.dbis[dbi].cmp = cmp

	return nil
}

// SetDupCompare sets a custom data comparison function for DUPSORT databases.
// Must be called before any data operations on the database.
func (e *Env) SetDupCompare(dbi DBI, cmp func(a, b []byte) int) error {
	if !e.valid() {
		return NewError(ErrInvalid)
	}

	e.dbisMu.Lock()
	defer e.dbisMu.Unlock()

	if int(dbi) >= len(e.dbis) {
		return NewError(ErrBadDBI)
	}

	if e.dbis[dbi] == nil {
		e.dbis[dbi] = &dbiInfo{}
	}
	e.dbis[dbi].dcmp = cmp

	return nil
}

// DBIStat is an alias for the Stat method for compatibility.
func (txn *Txn) DBIStat(dbi DBI) (*Stat, error) {
	return txn.Stat(dbi)
}
