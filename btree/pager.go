package btree

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// ErrCorruptDatabase signals a structural invariant violation — a database
// file whose length is not a whole number of pages. This is an abort-class
// failure: Open refuses to proceed rather than guessing at a recovery.
var ErrCorruptDatabase = errors.New("database file is not a whole number of pages")

// ErrPagerClosed is returned by any Pager operation after Close.
var ErrPagerClosed = errors.New("pager is closed")

// Pager owns the database file, a bounded direct-mapped page cache, and an
// optional WAL delegate for durability. The cache has no eviction policy:
// it is a fixed TableMaxPages-entry array indexed by page number, an
// intentional simplification with a known ceiling on database size.
type Pager struct {
	file   *os.File
	length int64
	// numPages is the number of pages logically allocated, which can run
	// ahead of length/PageSize until the next flush.
	numPages uint32
	pages    [TableMaxPages]*Page
	wal      *WAL

	log *logrus.Entry
}

// Open opens or creates the database file at path. An existing file whose
// length is not a multiple of PageSize is rejected.
func Open(path string) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open database file: %w", err)
	}

	length, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("seek database file: %w", err)
	}

	if length%PageSize != 0 {
		f.Close()
		return nil, ErrCorruptDatabase
	}

	p := &Pager{
		file:     f,
		length:   length,
		numPages: uint32(length / PageSize),
		log:      logrus.WithField("component", "pager").WithField("path", path),
	}
	p.log.WithField("num_pages", p.numPages).Debug("pager opened")
	return p, nil
}

// GetPage returns the cached image for pageNum, loading it from disk on a
// cache miss. A page beyond the file's current extent is returned as a
// freshly zeroed page image.
func (p *Pager) GetPage(pageNum uint32) (*Page, error) {
	if p.file == nil {
		return nil, ErrPagerClosed
	}
	if pageNum >= TableMaxPages {
		p.log.WithField("page_num", pageNum).Error("page number exceeds TableMaxPages")
		panic(fmt.Sprintf("pager: page number %d out of bounds (max %d)", pageNum, TableMaxPages))
	}

	if p.pages[pageNum] == nil {
		page := newEmptyPage(pageNum)

		// A page is on disk if it falls within the file, including a
		// trailing partial page.
		coveredPages := uint32(p.length / PageSize)
		if p.length%PageSize != 0 {
			coveredPages++
		}

		if pageNum < coveredPages {
			buf := make([]byte, PageSize)
			n, err := p.file.ReadAt(buf, int64(pageNum)*PageSize)
			if err != nil && n == 0 {
				return nil, fmt.Errorf("read page %d: %w", pageNum, err)
			}
			page = loadPage(pageNum, buf[:n])
			p.log.WithField("page_num", pageNum).Trace("page loaded from disk")
		}

		p.pages[pageNum] = page
		if pageNum >= p.numPages {
			p.numPages = pageNum + 1
		}
	}

	return p.pages[pageNum], nil
}

// FlushPage durably persists the cached image for pageNum: through the WAL
// if one is attached, or directly to the database file otherwise. Flushing
// a page that was never fetched via GetPage is an error.
func (p *Pager) FlushPage(pageNum uint32) error {
	if p.file == nil {
		return ErrPagerClosed
	}
	if pageNum >= TableMaxPages || p.pages[pageNum] == nil {
		return fmt.Errorf("flush page %d: %w", pageNum, ErrCellNotFound)
	}

	page := p.pages[pageNum]

	if p.wal != nil {
		if err := p.wal.LogPage(pageNum, page); err != nil {
			return fmt.Errorf("log page %d to wal: %w", pageNum, err)
		}
		return nil
	}

	return p.writeDirect(pageNum, page)
}

func (p *Pager) writeDirect(pageNum uint32, page *Page) error {
	off := int64(pageNum) * PageSize
	if _, err := p.file.WriteAt(page.Bytes(), off); err != nil {
		return fmt.Errorf("write page %d: %w", pageNum, err)
	}
	if end := off + PageSize; end > p.length {
		p.length = end
	}
	return nil
}

// SetWAL installs or detaches the durability delegate.
func (p *Pager) SetWAL(wal *WAL) {
	p.wal = wal
}

// NumPages returns the number of pages currently allocated.
func (p *Pager) NumPages() uint32 {
	return p.numPages
}

// AllocatePage reserves the next page number and returns its (empty)
// cached image. Page numbers are never reused.
func (p *Pager) AllocatePage() (*Page, error) {
	return p.GetPage(p.numPages)
}

// Close flushes every cached page and releases the file handle.
func (p *Pager) Close() error {
	if p.file == nil {
		return nil
	}
	for i := uint32(0); i < TableMaxPages; i++ {
		if p.pages[i] != nil {
			if err := p.FlushPage(i); err != nil {
				return err
			}
		}
	}
	err := p.file.Close()
	p.file = nil
	return err
}
