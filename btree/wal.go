package btree

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// walFrameHeaderSize is the byte size of one frame's header: page_num(4) +
// checksum(4). The frame payload is exactly PageSize bytes, so each frame
// on disk is walFrameHeaderSize+PageSize bytes, with no file-level header
// or magic: just repeated [u32 page_num | u32 checksum | PageSize bytes]
// frames.
const walFrameHeaderSize = 8

// WAL is an append-only log of page images, named "<db path>.wal". It makes
// page-level writes crash-safe: LogPage is the durability point for a
// mutation, and Checkpoint drains the whole log into the database file.
// There is no separate commit record; a frame present in the log is a
// committed write.
type WAL struct {
	file *os.File
	path string
	log  *logrus.Entry
}

// OpenWAL opens (creating if necessary) the WAL file for dbPath.
func OpenWAL(dbPath string) (*WAL, error) {
	path := dbPath + ".wal"
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open wal: %w", err)
	}
	return &WAL{
		file: f,
		path: path,
		log:  logrus.WithField("component", "wal").WithField("path", path),
	}, nil
}

// checksum is an unweighted, wrapping 32-bit byte sum over data: not a
// cryptographic or CRC checksum, just enough to catch a torn write.
func checksum(data []byte) uint32 {
	var sum uint32
	for _, b := range data {
		sum += uint32(b)
	}
	return sum
}

// LogPage appends a frame for pageNum with image's current contents to the
// end of the WAL file. A successful return is the point at which the write
// is considered durable.
func (w *WAL) LogPage(pageNum uint32, image *Page) error {
	if _, err := w.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek wal: %w", err)
	}

	var header [walFrameHeaderSize]byte
	putU32(header[0:4], pageNum)
	putU32(header[4:8], checksum(image.Bytes()))

	if _, err := w.file.Write(header[:]); err != nil {
		return fmt.Errorf("write wal frame header: %w", err)
	}
	if _, err := w.file.Write(image.Bytes()); err != nil {
		return fmt.Errorf("write wal frame payload: %w", err)
	}
	return nil
}

// Checkpoint drains every frame currently in the WAL into pager's database
// file, in log order, then truncates the WAL to empty. A frame whose
// checksum does not match its payload is skipped (with a diagnostic) but
// does not abort the scan; a short payload read stops the scan at that
// frame.
func (w *WAL) Checkpoint(pager *Pager) error {
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek wal: %w", err)
	}

	header := make([]byte, walFrameHeaderSize)
	payload := make([]byte, PageSize)

	applied := 0
	for {
		if _, err := io.ReadFull(w.file, header); err != nil {
			// EOF, or a short/partial header: end the scan without
			// error. Everything applied so far remains durable.
			break
		}

		pageNum := getU32(header[0:4])
		wantChecksum := getU32(header[4:8])

		if _, err := io.ReadFull(w.file, payload); err != nil {
			w.log.WithField("page_num", pageNum).Warn("wal frame payload truncated, stopping checkpoint scan")
			break
		}

		if got := checksum(payload); got != wantChecksum {
			w.log.WithFields(logrus.Fields{
				"page_num": pageNum,
				"want":     wantChecksum,
				"got":      got,
			}).Warn("wal frame checksum mismatch, skipping frame")
			continue
		}

		if err := writePageAt(pager, pageNum, payload); err != nil {
			return fmt.Errorf("apply wal frame for page %d: %w", pageNum, err)
		}
		applied++
	}

	w.log.WithField("frames_applied", applied).Debug("checkpoint complete")

	return w.truncate()
}

// writePageAt writes payload directly to the database file at pageNum's
// offset, and refreshes pager's cached copy if that page is already
// resident, so readers observe the newest image.
func writePageAt(pager *Pager, pageNum uint32, payload []byte) error {
	off := int64(pageNum) * PageSize
	if _, err := pager.file.WriteAt(payload, off); err != nil {
		return err
	}
	if end := off + PageSize; end > pager.length {
		pager.length = end
	}

	if pageNum < TableMaxPages && pager.pages[pageNum] != nil {
		copy(pager.pages[pageNum].Bytes(), payload)
	}
	if pageNum >= pager.numPages {
		pager.numPages = pageNum + 1
	}
	return nil
}

// truncate empties the WAL by closing and reopening it with O_TRUNC.
func (w *WAL) truncate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close wal before truncate: %w", err)
	}
	f, err := os.OpenFile(w.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("truncate wal: %w", err)
	}
	w.file = f
	return nil
}

// Close closes the WAL file handle.
func (w *WAL) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
