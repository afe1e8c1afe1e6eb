package btree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLeafCellRoundTrip(t *testing.T) {
	p := newEmptyPage(0)
	p.InitLeaf()

	p.setNumCells(1)
	p.SetLeafCell(0, []byte("hello"), []byte("world"))

	require.Equal(t, []byte("hello"), p.LeafKeyBytes(0))
	require.Equal(t, []byte("world"), p.LeafValueBytes(0))
}

func TestLeafCellTruncatesOversizeInput(t *testing.T) {
	p := newEmptyPage(0)
	p.InitLeaf()
	p.setNumCells(1)

	longKey := make([]byte, LeafNodeKeySize+50)
	for i := range longKey {
		longKey[i] = 'x'
	}
	p.SetLeafCell(0, longKey, []byte("v"))

	require.Len(t, p.LeafKeyBytes(0), LeafNodeKeySize-1)
}

func TestInternalChildIncludesRightmostSlot(t *testing.T) {
	p := newEmptyPage(0)
	p.InitInternal()
	p.setNumKeys(2)
	p.setInternalChildAt(0, 10)
	p.setInternalKeyAt(0, []byte("m"))
	p.setInternalChildAt(1, 20)
	p.setInternalKeyAt(1, []byte("z"))
	p.setRightChild(30)

	child, err := p.Child(0)
	require.NoError(t, err)
	require.Equal(t, uint32(10), child)

	child, err = p.Child(2)
	require.NoError(t, err)
	require.Equal(t, uint32(30), child, "index == NumKeys must yield the rightmost child")

	_, err = p.Child(3)
	require.ErrorIs(t, err, ErrCellNotFound)
}

func TestIsRootFlag(t *testing.T) {
	p := newEmptyPage(0)
	p.InitLeaf()
	require.False(t, p.IsRoot())

	p.SetIsRoot(true)
	require.True(t, p.IsRoot())
}

func TestLoadPagePreservesBytes(t *testing.T) {
	p := newEmptyPage(3)
	p.InitLeaf()
	p.setNumCells(1)
	p.SetLeafCell(0, []byte("k"), []byte("v"))

	loaded := loadPage(3, p.Bytes())
	require.Equal(t, p.Bytes(), loaded.Bytes())
	require.Equal(t, uint32(1), loaded.NumCells())
}

func TestPutGetU32RoundTrip(t *testing.T) {
	buf := make([]byte, 4)
	putU32(buf, 0xDEADBEEF)
	require.Equal(t, uint32(0xDEADBEEF), getU32(buf))
}
