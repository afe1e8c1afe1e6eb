package btree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRootLeafSplitCreatesInternalRoot drives enough inserts to force the
// once-per-database root-leaf-to-internal-root transition, then checks that
// the root is internal, has exactly one key, and its two children are
// leaves whose cells are disjoint and in order.
func TestRootLeafSplitCreatesInternalRoot(t *testing.T) {
	bt := newTestBTree(t)

	n := LeafNodeMaxCells + 1
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%04d", i)
		require.NoError(t, bt.Insert([]byte(key), []byte("v")))
	}

	root, err := bt.pager.GetPage(0)
	require.NoError(t, err)
	require.False(t, root.IsLeaf())
	require.True(t, root.IsRoot())
	require.Equal(t, uint32(1), root.NumKeys())

	left, err := root.Child(0)
	require.NoError(t, err)
	right, err := root.Child(1)
	require.NoError(t, err)

	leftPage, err := bt.pager.GetPage(left)
	require.NoError(t, err)
	rightPage, err := bt.pager.GetPage(right)
	require.NoError(t, err)

	require.True(t, leftPage.IsLeaf())
	require.True(t, rightPage.IsLeaf())
	require.False(t, leftPage.IsRoot())
	require.False(t, rightPage.IsRoot())
	require.Equal(t, uint32(0), leftPage.Parent())
	require.Equal(t, uint32(0), rightPage.Parent())

	require.Equal(t, int(n), int(leftPage.NumCells()+rightPage.NumCells()))

	// Every key in the left leaf must sort before every key in the right
	// leaf, and the root's separator must sit exactly between them.
	lastLeft := leftPage.LeafKeyBytes(leftPage.NumCells() - 1)
	firstRight := rightPage.LeafKeyBytes(0)
	require.Less(t, string(lastLeft), string(firstRight))
	require.Equal(t, string(firstRight), string(root.InternalKeyAt(0)))
}

func TestNonRootLeafSplitPublishesToParent(t *testing.T) {
	bt := newTestBTree(t)

	// Enough inserts to force the root split once, then a second split of
	// one of the resulting leaves, exercising InternalInsert on an
	// already-internal root.
	n := LeafNodeMaxCells * 2
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%04d", i)
		require.NoError(t, bt.Insert([]byte(key), []byte("v")))
	}

	root, err := bt.pager.GetPage(0)
	require.NoError(t, err)
	require.False(t, root.IsLeaf())
	require.GreaterOrEqual(t, root.NumKeys(), uint32(1))

	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%04d", i)
		value, err := bt.Get([]byte(key))
		require.NoError(t, err)
		require.Equal(t, "v", string(value))
	}
}

// TestFailedNonRootSplitLeavesLeafIntact saturates a leaf's parent so that
// the next leaf split cannot publish its new sibling, then checks that the
// leaf was never split and every key inserted before the failure is still
// reachable: a Capacity error must not corrupt the database.
func TestFailedNonRootSplitLeavesLeafIntact(t *testing.T) {
	bt := newTestBTree(t)

	root, err := bt.pager.GetPage(0)
	require.NoError(t, err)
	root.InitInternal()
	root.SetIsRoot(true)
	root.setNumKeys(InternalNodeMaxCells)
	for i := uint32(0); i < InternalNodeMaxCells; i++ {
		root.setInternalChildAt(i, i+1)
		root.setInternalKeyAt(i, []byte(fmt.Sprintf("k%03d", i)))
	}

	leaf, err := bt.pager.AllocatePage()
	require.NoError(t, err)
	leaf.InitLeaf()
	leaf.SetParent(0)
	root.setRightChild(leaf.Num)
	require.NoError(t, bt.pager.FlushPage(0))
	require.NoError(t, bt.pager.FlushPage(leaf.Num))

	wantKeys := make([]string, 0, LeafNodeMaxCells)
	for i := 0; i < LeafNodeMaxCells; i++ {
		key := fmt.Sprintf("z%04d", i)
		cursor, err := FindCursor(bt.pager, leaf.Num, []byte(key))
		require.NoError(t, err)
		require.NoError(t, LeafInsert(cursor, []byte(key), []byte("v")))
		wantKeys = append(wantKeys, key)
	}

	overflowKey := []byte("z9999")
	cursor, err := FindCursor(bt.pager, leaf.Num, overflowKey)
	require.NoError(t, err)
	err = LeafInsert(cursor, overflowKey, []byte("v"))
	require.ErrorIs(t, err, ErrFull)

	leafAfter, err := bt.pager.GetPage(leaf.Num)
	require.NoError(t, err)
	require.True(t, leafAfter.IsLeaf())
	require.Equal(t, uint32(LeafNodeMaxCells), leafAfter.NumCells())

	for i, key := range wantKeys {
		require.Equal(t, key, string(leafAfter.LeafKeyBytes(uint32(i))))
	}
}

func TestInternalInsertReturnsErrFullWhenParentSaturated(t *testing.T) {
	bt := newTestBTree(t)

	root, err := bt.pager.GetPage(0)
	require.NoError(t, err)
	root.InitInternal()
	root.SetIsRoot(true)
	root.setNumKeys(InternalNodeMaxCells)
	for i := uint32(0); i < InternalNodeMaxCells; i++ {
		root.setInternalChildAt(i, i+1)
		root.setInternalKeyAt(i, []byte(fmt.Sprintf("k%03d", i)))
	}
	root.setRightChild(InternalNodeMaxCells + 1)
	require.NoError(t, bt.pager.FlushPage(0))

	err = InternalInsert(bt.pager, 0, 999, []byte("zzz"))
	require.ErrorIs(t, err, ErrFull)
}
