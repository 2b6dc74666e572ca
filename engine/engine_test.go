package engine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dargueta/ufs/engine"
	fserrors "github.com/dargueta/ufs/errors"
	"github.com/dargueta/ufs/internal/testutil"
	"github.com/dargueta/ufs/layout"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	device := testutil.NewDevice(t, 64, 32)
	return engine.New(device)
}

func TestStat_RootIsDirectory(t *testing.T) {
	eng := newEngine(t)
	inode, err := eng.Stat(layout.RootInodeNumber)
	require.NoError(t, err)
	require.Equal(t, int32(layout.TypeDirectory), inode.Type)
}

func TestStat_OutOfRange(t *testing.T) {
	eng := newEngine(t)
	_, err := eng.Stat(1000)
	require.Equal(t, fserrors.EInvalidInode, err)
}

func TestLookup_RootHasDotAndDotDot(t *testing.T) {
	eng := newEngine(t)

	inum, err := eng.Lookup(layout.RootInodeNumber, ".")
	require.NoError(t, err)
	require.Equal(t, layout.RootInodeNumber, inum)

	inum, err = eng.Lookup(layout.RootInodeNumber, "..")
	require.NoError(t, err)
	require.Equal(t, layout.RootInodeNumber, inum)
}

func TestLookup_NotFound(t *testing.T) {
	eng := newEngine(t)
	_, err := eng.Lookup(layout.RootInodeNumber, "nope")
	require.Equal(t, fserrors.ENotFound, err)
}

// Scenario 1: touch creates a file, ls shows ".", "..", and the new file.
func TestCreate_AppearsInDirectoryListing(t *testing.T) {
	eng := newEngine(t)
	device := eng.Device

	var newInode int
	testutil.WithTransaction(t, device, func() error {
		var err error
		newInode, err = eng.Create(layout.RootInodeNumber, layout.TypeRegularFile, "a.txt")
		return err
	})
	require.Equal(t, 1, newInode)

	root, err := eng.Stat(layout.RootInodeNumber)
	require.NoError(t, err)

	payload := make([]byte, root.Size)
	n, err := eng.Read(layout.RootInodeNumber, payload)
	require.NoError(t, err)
	require.EqualValues(t, root.Size, n)

	names := map[string]int{}
	for off := 0; off < len(payload); off += layout.DirEntrySize {
		entry, err := layout.DecodeDirEntry(payload[off : off+layout.DirEntrySize])
		require.NoError(t, err)
		names[entry.NameString()] = int(entry.InodeNumber)
	}
	require.Equal(t, layout.RootInodeNumber, names["."])
	require.Equal(t, layout.RootInodeNumber, names[".."])
	require.Equal(t, newInode, names["a.txt"])
}

// Scenario 2: write then cat-equivalent read round-trips the payload and
// records the right direct block.
func TestWriteThenRead_RoundTrips(t *testing.T) {
	eng := newEngine(t)
	device := eng.Device

	var fileInode int
	testutil.WithTransaction(t, device, func() error {
		var err error
		fileInode, err = eng.Create(layout.RootInodeNumber, layout.TypeRegularFile, "hello.txt")
		return err
	})

	data := []byte("hello")
	testutil.WithTransaction(t, device, func() error {
		n, err := eng.Write(fileInode, data, len(data))
		require.Equal(t, len(data), n)
		return err
	})

	inode, err := eng.Stat(fileInode)
	require.NoError(t, err)
	require.Equal(t, int32(len(data)), inode.Size)
	require.NotZero(t, inode.Direct[0])
	require.Zero(t, inode.Direct[1])

	out := make([]byte, len(data))
	n, err := eng.Read(fileInode, out)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, data, out)
}

// Scenario 3: creating the same (parent, type, name) twice is idempotent
// and only consumes one inode bit.
func TestCreate_IdempotentOnSameNameAndType(t *testing.T) {
	eng := newEngine(t)
	device := eng.Device

	var first, second int
	testutil.WithTransaction(t, device, func() error {
		var err error
		first, err = eng.Create(layout.RootInodeNumber, layout.TypeRegularFile, "a.txt")
		return err
	})
	testutil.WithTransaction(t, device, func() error {
		var err error
		second, err = eng.Create(layout.RootInodeNumber, layout.TypeRegularFile, "a.txt")
		return err
	})

	require.Equal(t, first, second)

	inodeBitmap, _, err := eng.ReadRawBitmaps()
	require.NoError(t, err)
	allocated := 0
	for i := 0; i < 32; i++ {
		if layout.WrapBitmap(inodeBitmap).Get(i) {
			allocated++
		}
	}
	// Root plus exactly one new file.
	require.Equal(t, 2, allocated)
}

func TestCreate_ExistingEntryOfDifferentTypeIsInvalidType(t *testing.T) {
	eng := newEngine(t)
	device := eng.Device

	testutil.WithTransaction(t, device, func() error {
		_, err := eng.Create(layout.RootInodeNumber, layout.TypeRegularFile, "thing")
		return err
	})

	require.NoError(t, device.BeginTransaction())
	_, err := eng.Create(layout.RootInodeNumber, layout.TypeDirectory, "thing")
	require.Equal(t, fserrors.EInvalidType, err)
	require.NoError(t, device.Rollback())
}

// Scenario 4: growing then shrinking a file back to zero frees every data
// block and zeroes direct[].
func TestWrite_ShrinkToZeroFreesBlocks(t *testing.T) {
	eng := newEngine(t)
	device := eng.Device

	var fileInode int
	testutil.WithTransaction(t, device, func() error {
		var err error
		fileInode, err = eng.Create(layout.RootInodeNumber, layout.TypeRegularFile, "big.bin")
		return err
	})

	big := make([]byte, layout.BlockSize)
	for i := range big {
		big[i] = byte(i)
	}
	testutil.WithTransaction(t, device, func() error {
		_, err := eng.Write(fileInode, big, len(big))
		return err
	})

	_, dataBitmapBefore, err := eng.ReadRawBitmaps()
	require.NoError(t, err)
	allocatedBefore := countSetBits(dataBitmapBefore, 64)

	testutil.WithTransaction(t, device, func() error {
		_, err := eng.Write(fileInode, nil, 0)
		return err
	})

	inode, err := eng.Stat(fileInode)
	require.NoError(t, err)
	require.EqualValues(t, 0, inode.Size)
	for _, d := range inode.Direct {
		require.Zero(t, d)
	}

	_, dataBitmapAfter, err := eng.ReadRawBitmaps()
	require.NoError(t, err)
	allocatedAfter := countSetBits(dataBitmapAfter, 64)
	require.Equal(t, allocatedBefore-1, allocatedAfter)
}

func countSetBits(raw []byte, limit int) int {
	bm := layout.WrapBitmap(raw)
	n := 0
	for i := 0; i < limit; i++ {
		if bm.Get(i) {
			n++
		}
	}
	return n
}

// Scenario 5: a forbidden name leaves the image untouched after rollback.
func TestCreate_InvalidNameRollsBackCleanly(t *testing.T) {
	device := testutil.NewDevice(t, 64, 32)
	eng := engine.New(device)

	before := snapshotAllBlocks(t, device)

	require.NoError(t, device.BeginTransaction())
	_, err := eng.Create(layout.RootInodeNumber, layout.TypeRegularFile, "bad:name")
	require.Equal(t, fserrors.EInvalidName, err)
	require.NoError(t, device.Rollback())

	after := snapshotAllBlocks(t, device)
	require.Equal(t, before, after)
}

func snapshotAllBlocks(t *testing.T, device interface {
	TotalBlocks() uint
	ReadBlock(uint) ([]byte, error)
}) [][]byte {
	t.Helper()
	var out [][]byte
	for i := uint(0); i < device.TotalBlocks(); i++ {
		b, err := device.ReadBlock(i)
		require.NoError(t, err)
		out = append(out, b)
	}
	return out
}

func TestWrite_TooLargeIsInvalidSize(t *testing.T) {
	eng := newEngine(t)
	device := eng.Device

	var fileInode int
	testutil.WithTransaction(t, device, func() error {
		var err error
		fileInode, err = eng.Create(layout.RootInodeNumber, layout.TypeRegularFile, "f")
		return err
	})

	require.NoError(t, device.BeginTransaction())
	_, err := eng.Write(fileInode, nil, (layout.DirectPtrs+1)*layout.BlockSize)
	require.Equal(t, fserrors.EInvalidSize, err)
	require.NoError(t, device.Rollback())
}

func TestWrite_ToDirectoryIsWriteToDir(t *testing.T) {
	eng := newEngine(t)
	device := eng.Device

	require.NoError(t, device.BeginTransaction())
	_, err := eng.Write(layout.RootInodeNumber, []byte("x"), 1)
	require.Equal(t, fserrors.EWriteToDir, err)
	require.NoError(t, device.Rollback())
}

func TestWrite_NotAllocatedInode(t *testing.T) {
	eng := newEngine(t)
	device := eng.Device

	require.NoError(t, device.BeginTransaction())
	_, err := eng.Write(5, []byte("x"), 1)
	require.Equal(t, fserrors.ENotAllocated, err)
	require.NoError(t, device.Rollback())
}

func TestWrite_TailIsZeroPadded(t *testing.T) {
	eng := newEngine(t)
	device := eng.Device

	var fileInode int
	testutil.WithTransaction(t, device, func() error {
		var err error
		fileInode, err = eng.Create(layout.RootInodeNumber, layout.TypeRegularFile, "f")
		return err
	})

	payload := []byte("hi")
	testutil.WithTransaction(t, device, func() error {
		_, err := eng.Write(fileInode, payload, len(payload))
		return err
	})

	inode, err := eng.Stat(fileInode)
	require.NoError(t, err)

	block, err := device.ReadBlock(uint(inode.Direct[0]))
	require.NoError(t, err)
	require.Equal(t, payload, block[:len(payload)])
	for _, b := range block[len(payload):] {
		require.Zero(t, b)
	}
}

func TestUnlink_RemovesEntryAndFreesResources(t *testing.T) {
	eng := newEngine(t)
	device := eng.Device

	var fileInode int
	testutil.WithTransaction(t, device, func() error {
		var err error
		fileInode, err = eng.Create(layout.RootInodeNumber, layout.TypeRegularFile, "gone.txt")
		return err
	})
	data := []byte("bye")
	testutil.WithTransaction(t, device, func() error {
		_, err := eng.Write(fileInode, data, len(data))
		return err
	})

	testutil.WithTransaction(t, device, func() error {
		return eng.Unlink(layout.RootInodeNumber, "gone.txt")
	})

	_, err := eng.Lookup(layout.RootInodeNumber, "gone.txt")
	require.Equal(t, fserrors.ENotFound, err)

	inodeBitmap, dataBitmap, err := eng.ReadRawBitmaps()
	require.NoError(t, err)
	require.False(t, layout.WrapBitmap(inodeBitmap).Get(fileInode))
	// Data block 0 holds the root directory; the file's block was data block 1.
	require.True(t, layout.WrapBitmap(dataBitmap).Get(0))
	require.False(t, layout.WrapBitmap(dataBitmap).Get(1))
}

func TestUnlink_NonEmptyDirectoryRefused(t *testing.T) {
	eng := newEngine(t)
	device := eng.Device

	var dirInode int
	testutil.WithTransaction(t, device, func() error {
		var err error
		dirInode, err = eng.Create(layout.RootInodeNumber, layout.TypeDirectory, "sub")
		return err
	})
	testutil.WithTransaction(t, device, func() error {
		_, err := eng.Create(dirInode, layout.TypeRegularFile, "inner.txt")
		return err
	})

	require.NoError(t, device.BeginTransaction())
	err := eng.Unlink(layout.RootInodeNumber, "sub")
	require.Equal(t, fserrors.EDirNotEmpty, err)
	require.NoError(t, device.Rollback())
}

func TestUnlink_DotIsInvalidName(t *testing.T) {
	eng := newEngine(t)
	device := eng.Device

	require.NoError(t, device.BeginTransaction())
	err := eng.Unlink(layout.RootInodeNumber, ".")
	require.Equal(t, fserrors.EInvalidName, err)
	require.NoError(t, device.Rollback())
}

func TestValidate_FreshImageHasNoViolations(t *testing.T) {
	eng := newEngine(t)
	violations, summaries, err := eng.Validate()
	require.NoError(t, err)
	require.Nil(t, violations)
	require.Len(t, summaries, 1) // just the root directory
}
