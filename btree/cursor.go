package btree

import "bytes"

// Cursor is a transient position (page, cell index) produced by StartCursor
// or FindCursor. Cursors are not persisted; they borrow from the Pager for
// the duration of a single engine operation and do not survive it.
type Cursor struct {
	pager      *Pager
	PageNum    uint32
	CellNum    uint32
	EndOfTable bool
}

// StartCursor returns a cursor positioned at cell 0 of root.
func StartCursor(pager *Pager, root uint32) (*Cursor, error) {
	page, err := pager.GetPage(root)
	if err != nil {
		return nil, err
	}
	return &Cursor{
		pager:      pager,
		PageNum:    root,
		CellNum:    0,
		EndOfTable: page.NumCells() == 0,
	}, nil
}

// FindCursor descends from root to the leaf that would contain key, and
// returns a cursor at the matching cell if key is present, or at key's
// insertion position otherwise. Descent uses "key >= separator ⇒ go right".
func FindCursor(pager *Pager, root uint32, key []byte) (*Cursor, error) {
	pageNum := root
	for {
		page, err := pager.GetPage(pageNum)
		if err != nil {
			return nil, err
		}
		if page.IsLeaf() {
			return leafFindCursor(pager, page, pageNum, key)
		}
		pageNum, err = internalDescend(page, key)
		if err != nil {
			return nil, err
		}
	}
}

// internalDescend binary-searches page's separator keys for the child to
// follow for key.
func internalDescend(page *Page, key []byte) (uint32, error) {
	numKeys := page.NumKeys()
	lo, hi := uint32(0), numKeys
	for lo != hi {
		mid := (lo + hi) / 2
		if bytes.Compare(key, page.InternalKeyAt(mid)) >= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return page.Child(lo)
}

// leafFindCursor binary-searches a leaf page for key.
func leafFindCursor(pager *Pager, page *Page, pageNum uint32, key []byte) (*Cursor, error) {
	numCells := page.NumCells()
	lo, hi := uint32(0), numCells
	for lo != hi {
		mid := (lo + hi) / 2
		cmp := bytes.Compare(key, page.LeafKeyBytes(mid))
		if cmp == 0 {
			return &Cursor{pager: pager, PageNum: pageNum, CellNum: mid}, nil
		}
		if cmp < 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return &Cursor{pager: pager, PageNum: pageNum, CellNum: lo}, nil
}

// page returns the cursor's current page.
func (c *Cursor) page() (*Page, error) {
	return c.pager.GetPage(c.PageNum)
}

// Found reports whether the cursor sits exactly on key, i.e. FindCursor
// landed on an equal key rather than an insertion point.
func (c *Cursor) Found(key []byte) (bool, error) {
	page, err := c.page()
	if err != nil {
		return false, err
	}
	if c.CellNum >= page.NumCells() {
		return false, nil
	}
	return bytes.Equal(page.LeafKeyBytes(c.CellNum), key), nil
}

// Value returns the value at the cursor's current cell.
func (c *Cursor) Value() ([]byte, error) {
	page, err := c.page()
	if err != nil {
		return nil, err
	}
	if c.CellNum >= page.NumCells() {
		return nil, ErrCellNotFound
	}
	return page.LeafValueBytes(c.CellNum), nil
}

// Advance moves the cursor to the next cell in the current leaf. It does
// not cross leaf boundaries: reaching the end of the leaf sets EndOfTable.
// This is a deliberate, documented limitation; sibling pointers between
// leaves are a possible future extension, not implemented here.
func (c *Cursor) Advance() error {
	page, err := c.page()
	if err != nil {
		return err
	}
	c.CellNum++
	if c.CellNum >= page.NumCells() {
		c.EndOfTable = true
	}
	return nil
}
