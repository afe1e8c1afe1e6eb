package btree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWALLogAndCheckpointRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	pager, err := Open(dbPath)
	require.NoError(t, err)
	defer pager.Close()

	wal, err := OpenWAL(dbPath)
	require.NoError(t, err)
	defer wal.Close()
	pager.SetWAL(wal)

	page, err := pager.GetPage(0)
	require.NoError(t, err)
	page.InitLeaf()
	page.setNumCells(1)
	page.SetLeafCell(0, []byte("k"), []byte("v"))
	require.NoError(t, pager.FlushPage(0))

	// The write went to the WAL, not yet to the database file.
	info, err := os.Stat(dbPath)
	require.NoError(t, err)
	require.Zero(t, info.Size(), "FlushPage through a WAL must not touch the database file directly")

	require.NoError(t, wal.Checkpoint(pager))

	info, err = os.Stat(dbPath)
	require.NoError(t, err)
	require.Equal(t, int64(PageSize), info.Size())

	info, err = os.Stat(dbPath + ".wal")
	require.NoError(t, err)
	require.Zero(t, info.Size(), "checkpoint must truncate the wal")
}

func TestWALChecksumMismatchSkipsFrame(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	pager, err := Open(dbPath)
	require.NoError(t, err)
	defer pager.Close()

	wal, err := OpenWAL(dbPath)
	require.NoError(t, err)
	defer wal.Close()

	good, err := pager.GetPage(0)
	require.NoError(t, err)
	good.InitLeaf()
	require.NoError(t, wal.LogPage(0, good))

	// Corrupt the checksum field of the frame we just wrote (bytes 4-7).
	_, err = wal.file.WriteAt([]byte{0xff, 0xff, 0xff, 0xff}, 4)
	require.NoError(t, err)

	require.NoError(t, wal.Checkpoint(pager))

	info, err := os.Stat(dbPath)
	require.NoError(t, err)
	require.Zero(t, info.Size(), "a checksum mismatch must not be applied to the database file")
}

func TestWALTruncatedFrameStopsScan(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	pager, err := Open(dbPath)
	require.NoError(t, err)
	defer pager.Close()

	wal, err := OpenWAL(dbPath)
	require.NoError(t, err)
	defer wal.Close()

	page, err := pager.GetPage(0)
	require.NoError(t, err)
	page.InitLeaf()
	require.NoError(t, wal.LogPage(0, page))

	// Truncate the WAL file mid-payload, simulating a crash during the write.
	require.NoError(t, wal.file.Truncate(walFrameHeaderSize+10))

	require.NoError(t, wal.Checkpoint(pager))

	info, err := os.Stat(dbPath)
	require.NoError(t, err)
	require.Zero(t, info.Size())
}

func TestChecksumIsWrappingByteSum(t *testing.T) {
	data := make([]byte, 3)
	data[0], data[1], data[2] = 250, 250, 250
	require.Equal(t, uint32(750), checksum(data))
}
