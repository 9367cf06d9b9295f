package latticedb

import (
	"os"
	"time"
)

// TxnOp is the callback signature for View, Update, and RunTxn.
type TxnOp func(txn *Txn) error

// CmpFunc is a comparison function for keys or values, used by
// Env.SetCompare and Env.SetDupCompare to override the default
// lexicographic byte ordering.
type CmpFunc = func(a, b []byte) int

// View runs fn in a read-only transaction, aborting it once fn returns.
func (e *Env) View(fn TxnOp) error {
	return e.RunTxn(TxnReadOnly, fn)
}

// Update runs fn in a read-write transaction, committing on a nil return
// and aborting otherwise.
func (e *Env) Update(fn TxnOp) error {
	return e.RunTxn(TxnReadWrite, fn)
}

// RunTxn runs fn in a transaction opened with flags, committing on a nil
// return and aborting otherwise.
func (e *Env) RunTxn(flags uint, fn TxnOp) error {
	txn, err := e.BeginTxn(nil, flags)
	if err != nil {
		return err
	}
	if err := fn(txn); err != nil {
		txn.Abort()
		return err
	}
	_, err = txn.Commit()
	return err
}

// Bind attaches an unbound cursor (from CursorFromPool or CreateCursor) to
// txn and dbi so it can be reused across transactions instead of
// allocating a fresh Cursor each time.
func (c *Cursor) Bind(txn *Txn, dbi DBI) error {
	if !txn.valid() {
		return NewError(ErrBadTxn)
	}
	if dbi >= DBI(len(txn.trees)) {
		return NewError(ErrBadDBI)
	}

	c.signature = cursorSignature
	c.txn = txn
	c.dbi = dbi
	c.tree = &txn.trees[dbi]
	c.state = cursorUninitialized
	c.top = -1
	c.dirtyMask = 0

	txn.cursors = append(txn.cursors, c)

	return nil
}

// Renew rebinds a cursor to a new read-only transaction on the same DBI it
// was last bound to.
func (c *Cursor) Renew(txn *Txn) error {
	if !txn.valid() {
		return NewError(ErrBadTxn)
	}
	if txn.flags&uint32(TxnReadOnly) == 0 {
		return NewError(ErrIncompatible)
	}
	return c.Bind(txn, c.dbi)
}

// Unbind detaches the cursor from its transaction without deallocating it,
// so it can later be Bind'ed to another one.
func (c *Cursor) Unbind() error {
	if c == nil {
		return nil
	}
	if c.txn != nil {
		c.txn.removeCursor(c)
	}
	c.txn = nil
	c.tree = nil
	c.state = cursorUninitialized
	c.top = -1
	c.dirtyMask = 0
	return nil
}

// cursorBindPool recycles Cursor structs across the Bind/Unbind cycle so a
// hot read path doesn't allocate one per transaction.
var cursorBindPool = make(chan *Cursor, 128)

// CursorFromPool returns a cursor from the pool, or a fresh one if the
// pool is empty. The returned cursor must be Bind'ed before use.
func CursorFromPool() *Cursor {
	select {
	case c := <-cursorBindPool:
		return c
	default:
		return &Cursor{}
	}
}

// CursorToPool returns an unbound cursor to the pool for reuse.
func CursorToPool(c *Cursor) {
	if c == nil {
		return
	}
	c.txn = nil
	c.tree = nil
	c.state = cursorUninitialized
	c.top = -1
	c.dirtyMask = 0

	select {
	case cursorBindPool <- c:
	default:
	}
}

// CreateCursor allocates a new unbound cursor.
func CreateCursor() *Cursor {
	return &Cursor{}
}

// Multi views a DupFixed page's raw bytes as a slice of equal-width
// values without copying.
type Multi struct {
	page   []byte
	stride int
}

// WrapMulti wraps page, a run of fixed-stride values, for indexed access.
func WrapMulti(page []byte, stride int) *Multi {
	return &Multi{page: page, stride: stride}
}

func (m *Multi) Vals() [][]byte {
	if m.stride == 0 || len(m.page) == 0 {
		return nil
	}
	n := len(m.page) / m.stride
	vals := make([][]byte, n)
	for i := 0; i < n; i++ {
		vals[i] = m.page[i*m.stride : (i+1)*m.stride]
	}
	return vals
}

func (m *Multi) Val(i int) []byte {
	if m.stride == 0 || i < 0 || i*m.stride >= len(m.page) {
		return nil
	}
	return m.page[i*m.stride : (i+1)*m.stride]
}

func (m *Multi) Len() int {
	if m.stride == 0 {
		return 0
	}
	return len(m.page) / m.stride
}

func (m *Multi) Stride() int { return m.stride }
func (m *Multi) Size() int   { return len(m.page) }
func (m *Multi) Page() []byte { return m.page }

// IsNotExist reports whether err indicates a missing database file.
func IsNotExist(err error) bool {
	return os.IsNotExist(err)
}

// Duration16dot16 is a 16.16 fixed-point duration, the wire format used by
// EnvInfo's sync-timing fields.
type Duration16dot16 uint32

func NewDuration16dot16(d time.Duration) Duration16dot16 {
	return Duration16dot16(d.Seconds() * 65536)
}

func (d Duration16dot16) ToDuration() time.Duration {
	return time.Duration(float64(d) / 65536 * float64(time.Second))
}

// globalDebugFlags holds the process-wide debug flag set toggled by
// SetDebug; latticedb has no per-environment debug configuration.
var globalDebugFlags uint

// SetDebug sets the process-wide debug flag mask and returns the previous
// value. Pass DbgDoNotChange to read the current flags without changing
// them.
func SetDebug(flags uint) uint {
	prev := globalDebugFlags
	if flags != DbgDoNotChange {
		globalDebugFlags = flags
	}
	return prev
}

// PutMulti stores each stride-width slice of page as a separate duplicate
// value under key, for bulk-loading a DupSort/DupFixed database.
func (c *Cursor) PutMulti(key []byte, page []byte, stride int, flags uint) error {
	if !c.valid() {
		return ErrBadCursorError
	}
	if c.txn.flags&uint32(TxnReadOnly) != 0 {
		return NewError(ErrPermissionDenied)
	}

	for i := 0; i < len(page)/stride; i++ {
		val := page[i*stride : (i+1)*stride]
		if err := c.Put(key, val, flags); err != nil {
			return err
		}
	}
	return nil
}

// PutReserve stores n zero bytes under key and returns a zeroed slice of
// length n. The returned slice is a separate copy: writing into it does
// not change the stored value.
func (c *Cursor) PutReserve(key []byte, n int, flags uint) ([]byte, error) {
	if !c.valid() {
		return nil, ErrBadCursorError
	}
	if c.txn.flags&uint32(TxnReadOnly) != 0 {
		return nil, NewError(ErrPermissionDenied)
	}

	value := make([]byte, n)
	if err := c.Put(key, value, flags); err != nil {
		return nil, err
	}
	return value, nil
}
