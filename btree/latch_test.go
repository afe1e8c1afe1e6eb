package btree

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cellkv/cellkv/common"
)

func newLatchedTestBTree(t *testing.T) *BTree {
	t.Helper()
	dir := t.TempDir()
	config := DefaultConfig(dir + "/btree.db")
	config.Latching = true
	bt, err := New(config)
	require.NoError(t, err)
	t.Cleanup(func() { bt.Close() })
	return bt
}

func TestConcurrentGetMatchesGet(t *testing.T) {
	bt := newLatchedTestBTree(t)

	const n = 100
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key%03d", i))
		value := []byte(fmt.Sprintf("value%03d", i))
		require.NoError(t, bt.Insert(key, value))
	}

	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key%03d", i))
		expected := []byte(fmt.Sprintf("value%03d", i))

		got, err := bt.ConcurrentGet(key)
		require.NoError(t, err)
		require.Equal(t, string(expected), string(got))

		got, err = bt.Get(key)
		require.NoError(t, err)
		require.Equal(t, string(expected), string(got))
	}
}

func TestConcurrentGetMissingKey(t *testing.T) {
	bt := newLatchedTestBTree(t)
	require.NoError(t, bt.Insert([]byte("a"), []byte("1")))

	_, err := bt.ConcurrentGet([]byte("nope"))
	require.ErrorIs(t, err, common.ErrKeyNotFound)
}

func TestConcurrentReaders(t *testing.T) {
	bt := newLatchedTestBTree(t)

	const n = 200
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key%04d", i))
		value := []byte(fmt.Sprintf("value%04d", i))
		require.NoError(t, bt.Insert(key, value))
	}

	const numReaders = 10
	var wg sync.WaitGroup
	errCh := make(chan error, numReaders)

	for r := 0; r < numReaders; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < n; i++ {
				key := []byte(fmt.Sprintf("key%04d", i))
				expected := fmt.Sprintf("value%04d", i)
				value, err := bt.ConcurrentGet(key)
				if err != nil {
					errCh <- err
					return
				}
				if string(value) != expected {
					errCh <- fmt.Errorf("mismatch for %s: got %q", key, value)
					return
				}
			}
		}()
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Error(err)
	}
}

func TestPageLatchExclusiveBlocksShared(t *testing.T) {
	latch := &PageLatch{}
	require.True(t, latch.TryLock(LatchWrite))
	require.False(t, latch.TryLock(LatchRead))
	latch.Unlock(LatchWrite)
	require.True(t, latch.TryLock(LatchRead))
	latch.Unlock(LatchRead)
}

func TestPageLatchSharedAllowsMultipleReaders(t *testing.T) {
	latch := &PageLatch{}
	require.True(t, latch.TryLock(LatchRead))
	require.True(t, latch.TryLock(LatchRead))
	latch.Unlock(LatchRead)
	latch.Unlock(LatchRead)
}

func TestLatchManagerReturnsSameLatchForSamePage(t *testing.T) {
	lm := NewLatchManager()
	a := lm.GetLatch(7)
	b := lm.GetLatch(7)
	require.Same(t, a, b)
}

func TestLatchCouplingReleaseParentKeepsOnlyLastLatch(t *testing.T) {
	lm := NewLatchManager()
	lc := NewLatchCoupling(lm)

	lc.AcquireLatch(0, LatchRead)
	lc.AcquireLatch(1, LatchRead)
	lc.AcquireLatch(2, LatchRead)
	lc.ReleaseParent()

	require.Len(t, lc.heldLatches, 1)
	require.Equal(t, uint32(2), lc.heldLatches[0])

	// Pages 0 and 1 should be free for an exclusive latch now.
	require.True(t, lm.GetLatch(0).TryLock(LatchWrite))
	require.True(t, lm.GetLatch(1).TryLock(LatchWrite))
	lm.GetLatch(0).Unlock(LatchWrite)
	lm.GetLatch(1).Unlock(LatchWrite)

	lc.ReleaseAll()
	require.Len(t, lc.heldLatches, 0)
}
