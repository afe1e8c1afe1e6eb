package btree

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/cellkv/cellkv/common"
)

// ErrAlreadyExists is returned by Insert when the key is already present.
var ErrAlreadyExists = errors.New("key already exists")

// ErrKeyTooLong and ErrValueTooLong are returned by Insert/Update when an
// argument would not fit in its fixed-width cell slot: keys are capped at
// LeafNodeKeySize-1 bytes, values at LeafNodeValueSize-1.
var (
	ErrKeyTooLong   = errors.New("key exceeds maximum length")
	ErrValueTooLong = errors.New("value exceeds maximum length")
)

// Config holds the tunables for opening a BTree-backed database.
type Config struct {
	// Path is the database file. The WAL lives alongside it at Path+".wal".
	Path string
	// Latching enables the opt-in page-level latch manager for concurrent
	// readers. Writers always take the single global lock regardless of
	// this setting.
	Latching bool
}

// DefaultConfig returns sensible defaults for path.
func DefaultConfig(path string) Config {
	return Config{Path: path, Latching: false}
}

// BTree is the engine façade: a single-file, single-root B-tree store
// fronted by a bounded page cache (Pager) and protected by a write-ahead
// log (WAL). It implements common.StorageEngine.
type BTree struct {
	config Config
	pager  *Pager
	wal    *WAL

	mu           sync.RWMutex
	latchManager *LatchManager

	numKeys    atomic.Int64
	writeCount atomic.Int64
	readCount  atomic.Int64

	closed atomic.Bool

	log *logrus.Entry
}

// New opens (creating if necessary) the database described by config. On a
// fresh file, page 0 is initialized directly as the tree's root leaf —
// page 0 is always the root of the tree, for the lifetime of the database.
// If a WAL file from a prior, uncheckpointed session exists, its frames
// are replayed and the log is drained before New returns.
func New(config Config) (*BTree, error) {
	pager, err := Open(config.Path)
	if err != nil {
		return nil, err
	}

	wal, err := OpenWAL(config.Path)
	if err != nil {
		pager.Close()
		return nil, err
	}

	bt := &BTree{
		config: config,
		pager:  pager,
		wal:    wal,
		log:    logrus.WithField("component", "btree").WithField("path", config.Path),
	}
	if config.Latching {
		bt.latchManager = NewLatchManager()
	}

	if pager.NumPages() == 0 {
		root, err := pager.GetPage(0)
		if err != nil {
			pager.Close()
			wal.Close()
			return nil, err
		}
		root.InitLeaf()
		root.SetIsRoot(true)
		if err := pager.writeDirect(0, root); err != nil {
			pager.Close()
			wal.Close()
			return nil, err
		}
	}

	// Replay any frames left by a prior session that crashed before its
	// checkpoint, then drain the log so we start from a clean WAL.
	if err := wal.Checkpoint(pager); err != nil {
		pager.Close()
		wal.Close()
		return nil, fmt.Errorf("replay wal: %w", err)
	}

	pager.SetWAL(wal)

	bt.log.WithField("num_pages", pager.NumPages()).Debug("database opened")
	return bt, nil
}

func validateKeyValue(key, value []byte) error {
	if len(key) == 0 {
		return common.ErrKeyEmpty
	}
	if len(key) > LeafNodeKeySize-1 {
		return ErrKeyTooLong
	}
	if len(value) > LeafNodeValueSize-1 {
		return ErrValueTooLong
	}
	return nil
}

// Insert adds a new key/value pair. It returns ErrAlreadyExists if key is
// already present: Insert never overwrites.
func (b *BTree) Insert(key, value []byte) error {
	if err := validateKeyValue(key, value); err != nil {
		return err
	}
	if b.closed.Load() {
		return common.ErrClosed
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	cursor, err := FindCursor(b.pager, 0, key)
	if err != nil {
		return err
	}
	found, err := cursor.Found(key)
	if err != nil {
		return err
	}
	if found {
		return ErrAlreadyExists
	}

	if err := LeafInsert(cursor, key, value); err != nil {
		return err
	}

	b.numKeys.Add(1)
	b.writeCount.Add(1)
	return nil
}

// Get returns the value stored for key, or common.ErrKeyNotFound if it is
// absent.
func (b *BTree) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, common.ErrKeyEmpty
	}
	if b.closed.Load() {
		return nil, common.ErrClosed
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	b.readCount.Add(1)

	cursor, err := FindCursor(b.pager, 0, key)
	if err != nil {
		return nil, err
	}
	found, err := cursor.Found(key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, common.ErrKeyNotFound
	}
	value, err := cursor.Value()
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), value...), nil
}

// Update overwrites the value for an existing key in place. It returns
// common.ErrKeyNotFound if key is absent: Update never creates.
func (b *BTree) Update(key, value []byte) error {
	if err := validateKeyValue(key, value); err != nil {
		return err
	}
	if b.closed.Load() {
		return common.ErrClosed
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	cursor, err := FindCursor(b.pager, 0, key)
	if err != nil {
		return err
	}
	found, err := cursor.Found(key)
	if err != nil {
		return err
	}
	if !found {
		return common.ErrKeyNotFound
	}

	page, err := b.pager.GetPage(cursor.PageNum)
	if err != nil {
		return err
	}
	page.SetLeafCell(cursor.CellNum, key, value)
	if err := b.pager.FlushPage(cursor.PageNum); err != nil {
		return err
	}

	b.writeCount.Add(1)
	return nil
}

// Put is an upsert: it inserts key/value if key is absent, or overwrites
// the existing value otherwise. It exists so BTree satisfies
// common.StorageEngine, whose Put has upsert semantics.
func (b *BTree) Put(key, value []byte) error {
	err := b.Insert(key, value)
	if errors.Is(err, ErrAlreadyExists) {
		return b.Update(key, value)
	}
	return err
}

// Delete removes key's cell from its leaf, shifting subsequent cells left
// by one. It returns common.ErrKeyNotFound if key is absent. Leaves are
// never merged or rebalanced after a delete; this is a preserved,
// deliberate limitation, the counterpart of splitPoint having no inverse.
func (b *BTree) Delete(key []byte) error {
	if len(key) == 0 {
		return common.ErrKeyEmpty
	}
	if b.closed.Load() {
		return common.ErrClosed
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	cursor, err := FindCursor(b.pager, 0, key)
	if err != nil {
		return err
	}
	found, err := cursor.Found(key)
	if err != nil {
		return err
	}
	if !found {
		return common.ErrKeyNotFound
	}

	page, err := b.pager.GetPage(cursor.PageNum)
	if err != nil {
		return err
	}
	numCells := page.NumCells()
	for i := cursor.CellNum; i+1 < numCells; i++ {
		copyLeafCell(page, i, page, i+1)
	}
	page.setNumCells(numCells - 1)

	if err := b.pager.FlushPage(cursor.PageNum); err != nil {
		return err
	}

	b.numKeys.Add(-1)
	b.writeCount.Add(1)
	return nil
}

// SelectAll invokes callback with every key/value pair in ascending key
// order, stopping early if callback returns false. Iteration walks a
// single leaf only — the leftmost leaf reached from the root via cell 0
// — and does not hop between sibling leaves. This is a deliberate,
// preserved limitation: there are no sibling pointers between leaves.
func (b *BTree) SelectAll(callback func(key, value []byte) bool) error {
	if b.closed.Load() {
		return common.ErrClosed
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	leaf, err := leftmostLeaf(b.pager, 0)
	if err != nil {
		return err
	}

	cursor, err := StartCursor(b.pager, leaf)
	if err != nil {
		return err
	}

	for !cursor.EndOfTable {
		page, err := b.pager.GetPage(cursor.PageNum)
		if err != nil {
			return err
		}
		key := page.LeafKeyBytes(cursor.CellNum)
		value := page.LeafValueBytes(cursor.CellNum)
		if !callback(key, value) {
			return nil
		}
		if err := cursor.Advance(); err != nil {
			return err
		}
	}
	return nil
}

// NewIterator returns a common.Iterator over the leftmost leaf reached from
// the root, in ascending key order. Like SelectAll, it never crosses a leaf
// boundary: there are no sibling pointers between leaves.
func (b *BTree) NewIterator() (*Iterator, error) {
	if b.closed.Load() {
		return nil, common.ErrClosed
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	leaf, err := leftmostLeaf(b.pager, 0)
	if err != nil {
		return nil, err
	}
	return newLeafIterator(b.pager, leaf)
}

// leftmostLeaf descends from pageNum following child 0 until it reaches a
// leaf, for SelectAll's starting position.
func leftmostLeaf(pager *Pager, pageNum uint32) (uint32, error) {
	for {
		page, err := pager.GetPage(pageNum)
		if err != nil {
			return 0, err
		}
		if page.IsLeaf() {
			return pageNum, nil
		}
		pageNum, err = page.Child(0)
		if err != nil {
			return 0, err
		}
	}
}

// Close always checkpoints: it drains the WAL into the database file,
// then closes the WAL and the pager.
func (b *BTree) Close() error {
	if b.closed.Swap(true) {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.wal.Checkpoint(b.pager); err != nil {
		return fmt.Errorf("checkpoint on close: %w", err)
	}

	// Detach the WAL before closing it: the checkpoint above has already
	// drained every cached page to the database file, so the pager no
	// longer needs to log through it. Without this, pager.Close's final
	// flush of cached pages would route through a WAL whose file is
	// already nil.
	b.pager.SetWAL(nil)

	if err := b.wal.Close(); err != nil {
		return fmt.Errorf("close wal: %w", err)
	}
	return b.pager.Close()
}

// Sync checkpoints the WAL without closing the database, so it is safe to
// call repeatedly during a session.
func (b *BTree) Sync() error {
	if b.closed.Load() {
		return common.ErrClosed
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.wal.Checkpoint(b.pager); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// Stats reports basic counters about the database.
func (b *BTree) Stats() common.Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	numPages := int(b.pager.NumPages())
	totalDiskSize := int64(numPages) * PageSize

	return common.Stats{
		NumKeys:       b.numKeys.Load(),
		NumSegments:   numPages,
		TotalDiskSize: totalDiskSize,
		WriteCount:    b.writeCount.Load(),
		ReadCount:     b.readCount.Load(),
		WriteAmp:      1.0,
		SpaceAmp:      1.0,
	}
}

// Compact is a no-op: an in-place B-tree never accumulates the write-time
// garbage a log-structured engine does, so there is nothing to reclaim
// (contrast hashindex and lsm, which implement real compaction).
func (b *BTree) Compact() error {
	return nil
}

// PrintTree writes a human-readable dump of the tree's page structure to
// the process log, for diagnostics.
func (b *BTree) PrintTree() {
	b.mu.RLock()
	defer b.mu.RUnlock()
	b.printSubtree(0, 0)
}

func (b *BTree) printSubtree(pageNum uint32, depth int) {
	page, err := b.pager.GetPage(pageNum)
	if err != nil {
		b.log.WithError(err).Error("print_tree: failed to load page")
		return
	}

	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}

	if page.IsLeaf() {
		b.log.Infof("%sleaf (page %d, %d cells)", indent, pageNum, page.NumCells())
		return
	}

	numKeys := page.NumKeys()
	b.log.Infof("%sinternal (page %d, %d keys)", indent, pageNum, numKeys)
	for i := uint32(0); i < numKeys; i++ {
		child, _ := page.Child(i)
		b.printSubtree(child, depth+1)
	}
	rightChild, _ := page.Child(numKeys)
	b.printSubtree(rightChild, depth+1)
}
