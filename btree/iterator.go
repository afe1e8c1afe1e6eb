package btree

// Iterator walks the cells of a single leaf page in ascending key order. It
// implements common.Iterator. Leaves carry no sibling pointers, so an
// Iterator never crosses a leaf boundary.
type Iterator struct {
	pager   *Pager
	pageNum uint32
	index   uint32
	numCells uint32
	started bool
}

// newLeafIterator returns an iterator over pageNum, which must be a leaf.
func newLeafIterator(pager *Pager, pageNum uint32) (*Iterator, error) {
	page, err := pager.GetPage(pageNum)
	if err != nil {
		return nil, err
	}
	if !page.IsLeaf() {
		return nil, ErrNotLeaf
	}
	return &Iterator{
		pager:    pager,
		pageNum:  pageNum,
		numCells: page.NumCells(),
	}, nil
}

// Next advances to the next cell and reports whether one exists.
func (it *Iterator) Next() bool {
	if !it.started {
		it.started = true
	} else {
		it.index++
	}
	return it.index < it.numCells
}

// Key returns the current cell's key.
func (it *Iterator) Key() []byte {
	page, err := it.pager.GetPage(it.pageNum)
	if err != nil {
		return nil
	}
	return page.LeafKeyBytes(it.index)
}

// Value returns the current cell's value.
func (it *Iterator) Value() []byte {
	page, err := it.pager.GetPage(it.pageNum)
	if err != nil {
		return nil
	}
	return page.LeafValueBytes(it.index)
}

// Error always returns nil: this iterator has no error state of its own,
// since any Pager failure would already have surfaced in newLeafIterator.
func (it *Iterator) Error() error { return nil }

// Close is a no-op: the iterator borrows the Pager, it does not own any
// resource that needs releasing.
func (it *Iterator) Close() error { return nil }
