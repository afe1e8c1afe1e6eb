package btree

import (
	"bytes"
	"errors"
)

// ErrFull is returned when InternalInsert would need to split a full
// internal node. Internal-node splitting is explicitly not implemented:
// this is the observable, non-panicking boundary the original C's
// internal_node_split_and_insert enforced with abort().
var ErrFull = errors.New("database full: internal node has no room for another split")

// LeafInsert inserts key/value at cursor's leaf. If the leaf has room, cells
// at or after cursor.CellNum shift right by one to make space; otherwise
// the leaf is split.
func LeafInsert(cursor *Cursor, key, value []byte) error {
	page, err := cursor.page()
	if err != nil {
		return err
	}

	numCells := page.NumCells()
	if numCells >= LeafNodeMaxCells {
		return leafSplitAndInsert(cursor, key, value)
	}

	for i := numCells; i > cursor.CellNum; i-- {
		copyLeafCell(page, i, page, i-1)
	}
	page.setNumCells(numCells + 1)
	page.SetLeafCell(cursor.CellNum, key, value)

	return cursor.pager.FlushPage(cursor.PageNum)
}

// leafSplitAndInsert splits a full leaf (root or non-root) and inserts
// key/value into whichever half it now belongs to.
func leafSplitAndInsert(cursor *Cursor, key, value []byte) error {
	page, err := cursor.page()
	if err != nil {
		return err
	}

	if page.IsRoot() {
		return splitRootLeaf(cursor.pager, key, value)
	}
	return splitNonRootLeaf(cursor.pager, cursor.PageNum, key, value)
}

// splitPoint is the index at which a full leaf's cells divide: the left
// half keeps the lower half, the right half gets the remainder.
// split_index = (num_cells + 1) / 2.
func splitPoint(numCells uint32) uint32 {
	return (numCells + 1) / 2
}

// splitRootLeaf handles the once-per-database transition from a leaf root
// to an internal root with two leaf children.
func splitRootLeaf(pager *Pager, key, value []byte) error {
	root, err := pager.GetPage(0)
	if err != nil {
		return err
	}

	left, err := pager.AllocatePage()
	if err != nil {
		return err
	}
	right, err := pager.AllocatePage()
	if err != nil {
		return err
	}

	// Copy the (full) root into the new left child, then carve the
	// right child out of its upper half.
	copy(left.Bytes(), root.Bytes())
	left.SetIsRoot(false)
	left.SetParent(0)

	right.InitLeaf()
	right.SetParent(0)

	numCells := left.NumCells()
	split := splitPoint(numCells)
	for i := split; i < numCells; i++ {
		copyLeafCell(right, i-split, left, i)
	}
	left.setNumCells(split)
	right.setNumCells(numCells - split)

	root.InitInternal()
	root.SetIsRoot(true)
	root.setNumKeys(1)
	root.setInternalChildAt(0, left.Num)
	root.setRightChild(right.Num)
	root.setInternalKeyAt(0, right.LeafKeyBytes(0))

	if err := pager.FlushPage(left.Num); err != nil {
		return err
	}
	if err := pager.FlushPage(right.Num); err != nil {
		return err
	}
	if err := pager.FlushPage(root.Num); err != nil {
		return err
	}

	target := left.Num
	if bytes.Compare(key, right.LeafKeyBytes(0)) >= 0 {
		target = right.Num
	}
	targetCursor, err := FindCursor(pager, target, key)
	if err != nil {
		return err
	}
	return LeafInsert(targetCursor, key, value)
}

// splitNonRootLeaf splits a full, non-root leaf, publishing the new right
// sibling to the parent via InternalInsert.
func splitNonRootLeaf(pager *Pager, leftNum uint32, key, value []byte) error {
	left, err := pager.GetPage(leftNum)
	if err != nil {
		return err
	}

	// Check the parent has room for the new sibling before touching any
	// page: InternalInsert would refuse a full parent anyway, but only
	// after the leaf has already been split and flushed, leaving the new
	// right sibling's keys published nowhere. Failing here first leaves
	// the leaf untouched.
	parent, err := pager.GetPage(left.Parent())
	if err != nil {
		return err
	}
	if parent.NumKeys() >= InternalNodeMaxCells {
		return ErrFull
	}

	right, err := pager.AllocatePage()
	if err != nil {
		return err
	}
	right.InitLeaf()
	right.SetParent(left.Parent())

	numCells := left.NumCells()
	split := splitPoint(numCells)
	for i := split; i < numCells; i++ {
		copyLeafCell(right, i-split, left, i)
	}
	left.setNumCells(split)
	right.setNumCells(numCells - split)

	if err := pager.FlushPage(right.Num); err != nil {
		return err
	}
	if err := pager.FlushPage(left.Num); err != nil {
		return err
	}

	rightFirstKey := append([]byte(nil), right.LeafKeyBytes(0)...)
	if err := InternalInsert(pager, left.Parent(), right.Num, rightFirstKey); err != nil {
		return err
	}

	target := leftNum
	if bytes.Compare(key, rightFirstKey) >= 0 {
		target = right.Num
	}
	targetCursor, err := FindCursor(pager, target, key)
	if err != nil {
		return err
	}
	return LeafInsert(targetCursor, key, value)
}

// InternalInsert publishes a new child and its separator key into parent.
// If parent has room, the separator is inserted at the index of the first
// key it is strictly less than (or appended). If parent is already full,
// internal-node splitting would be required, which this design does not
// implement: ErrFull is returned instead.
func InternalInsert(pager *Pager, parentNum, newChild uint32, separator []byte) error {
	parent, err := pager.GetPage(parentNum)
	if err != nil {
		return err
	}

	numKeys := parent.NumKeys()
	if numKeys >= InternalNodeMaxCells {
		return ErrFull
	}

	index := uint32(0)
	for index < numKeys && bytes.Compare(separator, parent.InternalKeyAt(index)) >= 0 {
		index++
	}

	if index == numKeys {
		oldRightChild := parent.RightChild()
		parent.setInternalChildAt(numKeys, oldRightChild)
		parent.setInternalKeyAt(numKeys, separator)
		parent.setRightChild(newChild)
	} else {
		for i := numKeys; i > index; i-- {
			parent.setInternalChildAt(i, parent.InternalChildAt(i-1))
			parent.setInternalKeyAt(i, parent.InternalKeyAt(i-1))
		}
		parent.setInternalChildAt(index+1, newChild)
		parent.setInternalKeyAt(index, separator)
	}

	parent.setNumKeys(numKeys + 1)
	return pager.FlushPage(parentNum)
}
