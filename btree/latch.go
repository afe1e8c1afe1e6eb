package btree

import (
	"bytes"
	"sync"

	"github.com/cellkv/cellkv/common"
)

// Latch represents a page-level lock
// B-tree uses "latch coupling" (also called "lock coupling") to allow
// concurrent tree traversals:
// 1. Lock parent
// 2. Lock child
// 3. Unlock parent (if child won't split/merge)
// 4. Continue down the tree
//
// This allows multiple threads to traverse different paths concurrently

type LatchMode int

const (
	LatchRead  LatchMode = iota // Shared lock (multiple readers)
	LatchWrite                  // Exclusive lock (single writer)
)

// PageLatch represents a per-page read-write lock
type PageLatch struct {
	mu sync.RWMutex
}

// Lock acquires a latch in the specified mode
func (l *PageLatch) Lock(mode LatchMode) {
	if mode == LatchRead {
		l.mu.RLock()
	} else {
		l.mu.Lock()
	}
}

// Unlock releases the latch
func (l *PageLatch) Unlock(mode LatchMode) {
	if mode == LatchRead {
		l.mu.RUnlock()
	} else {
		l.mu.Unlock()
	}
}

// TryLock attempts to acquire the latch without blocking
func (l *PageLatch) TryLock(mode LatchMode) bool {
	if mode == LatchRead {
		return l.mu.TryRLock()
	}
	return l.mu.TryLock()
}

// LatchManager manages page-level latches
type LatchManager struct {
	latches map[uint32]*PageLatch
	mu      sync.Mutex // Protects the latches map
}

// NewLatchManager creates a new latch manager
func NewLatchManager() *LatchManager {
	return &LatchManager{
		latches: make(map[uint32]*PageLatch),
	}
}

// GetLatch returns the latch for a page, creating it if necessary
func (lm *LatchManager) GetLatch(pageID uint32) *PageLatch {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	latch, exists := lm.latches[pageID]
	if !exists {
		latch = &PageLatch{}
		lm.latches[pageID] = latch
	}

	return latch
}

// LatchCoupling implements the latch coupling protocol for tree traversal
type LatchCoupling struct {
	lm          *LatchManager
	heldLatches []uint32
	heldModes   []LatchMode
}

// NewLatchCoupling creates a new latch coupling context
func NewLatchCoupling(lm *LatchManager) *LatchCoupling {
	return &LatchCoupling{
		lm:          lm,
		heldLatches: make([]uint32, 0, 4), // Typical tree height
		heldModes:   make([]LatchMode, 0, 4),
	}
}

// AcquireLatch acquires a latch and tracks it
func (lc *LatchCoupling) AcquireLatch(pageID uint32, mode LatchMode) {
	latch := lc.lm.GetLatch(pageID)
	latch.Lock(mode)

	lc.heldLatches = append(lc.heldLatches, pageID)
	lc.heldModes = append(lc.heldModes, mode)
}

// ReleaseParent releases all latches except the most recent one
// This is the "coupling" part - we keep the child latched while releasing the parent
func (lc *LatchCoupling) ReleaseParent() {
	if len(lc.heldLatches) < 2 {
		return
	}

	// Release all but the last (current) latch
	for i := 0; i < len(lc.heldLatches)-1; i++ {
		pageID := lc.heldLatches[i]
		mode := lc.heldModes[i]

		latch := lc.lm.GetLatch(pageID)
		latch.Unlock(mode)
	}

	// Keep only the current latch
	if len(lc.heldLatches) > 0 {
		lastIdx := len(lc.heldLatches) - 1
		lc.heldLatches = []uint32{lc.heldLatches[lastIdx]}
		lc.heldModes = []LatchMode{lc.heldModes[lastIdx]}
	}
}

// ReleaseAll releases all held latches
func (lc *LatchCoupling) ReleaseAll() {
	for i := len(lc.heldLatches) - 1; i >= 0; i-- {
		pageID := lc.heldLatches[i]
		mode := lc.heldModes[i]

		latch := lc.lm.GetLatch(pageID)
		latch.Unlock(mode)
	}

	lc.heldLatches = lc.heldLatches[:0]
	lc.heldModes = lc.heldModes[:0]
}

// ConcurrentGet performs a Get using latch coupling down the tree instead
// of the global lock, letting multiple readers traverse disjoint paths in
// parallel. It is only meaningful when Config.Latching is true — otherwise
// b.latchManager is nil and the first latch acquisition panics. Concurrent readers
// are opt-in and writers are never latch-coupled: any write still takes
// the global mu, so a reader that loses a race with a concurrent split
// may observe a page mid-mutation and should be retried by the caller.
func (b *BTree) ConcurrentGet(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, common.ErrKeyEmpty
	}
	if b.closed.Load() {
		return nil, common.ErrClosed
	}

	lc := NewLatchCoupling(b.latchManager)
	defer lc.ReleaseAll()

	b.readCount.Add(1)

	pageNum := uint32(0)
	for {
		lc.AcquireLatch(pageNum, LatchRead)

		page, err := b.pager.GetPage(pageNum)
		if err != nil {
			return nil, err
		}

		if page.IsLeaf() {
			numCells := page.NumCells()
			lo, hi := uint32(0), numCells
			for lo != hi {
				mid := (lo + hi) / 2
				cmp := bytes.Compare(key, page.LeafKeyBytes(mid))
				if cmp == 0 {
					value := append([]byte(nil), page.LeafValueBytes(mid)...)
					return value, nil
				}
				if cmp < 0 {
					hi = mid
				} else {
					lo = mid + 1
				}
			}
			return nil, common.ErrKeyNotFound
		}

		childPageNum, err := internalDescend(page, key)
		if err != nil {
			return nil, err
		}

		// Drop the parent latch: readers never mutate, and writers take
		// no page latches, so releasing it only frees the page for other
		// latch holders; it does not order this read against writers.
		lc.ReleaseParent()
		pageNum = childPageNum
	}
}
