package btree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cellkv/cellkv/common"
)

func TestIteratorWalksLeafInOrder(t *testing.T) {
	bt := newTestBTree(t)

	for _, k := range []string{"b", "a", "c"} {
		require.NoError(t, bt.Insert([]byte(k), []byte(k+"v")))
	}

	it, err := newLeafIterator(bt.pager, 0)
	require.NoError(t, err)

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.Equal(t, []string{"a", "b", "c"}, keys)
	require.NoError(t, it.Error())
	require.NoError(t, it.Close())
}

func TestIteratorOnEmptyLeaf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	bt, err := New(DefaultConfig(path))
	require.NoError(t, err)
	defer bt.Close()

	it, err := newLeafIterator(bt.pager, 0)
	require.NoError(t, err)
	require.False(t, it.Next())
}

func TestIteratorRejectsInternalPage(t *testing.T) {
	bt := newTestBTree(t)

	internal, err := bt.pager.AllocatePage()
	require.NoError(t, err)
	internal.InitInternal()
	require.NoError(t, bt.pager.FlushPage(internal.Num))

	_, err = newLeafIterator(bt.pager, internal.Num)
	require.ErrorIs(t, err, ErrNotLeaf)
}

func TestNewIteratorWalksLeftmostLeaf(t *testing.T) {
	bt := newTestBTree(t)

	for _, k := range []string{"b", "a", "c"} {
		require.NoError(t, bt.Insert([]byte(k), []byte(k+"v")))
	}

	it, err := bt.NewIterator()
	require.NoError(t, err)

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.Equal(t, []string{"a", "b", "c"}, keys)
	require.NoError(t, it.Error())
	require.NoError(t, it.Close())
}

func TestNewIteratorFailsAfterClose(t *testing.T) {
	bt := newTestBTree(t)
	require.NoError(t, bt.Close())

	_, err := bt.NewIterator()
	require.ErrorIs(t, err, common.ErrClosed)
}
