package layout_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dargueta/ufs/layout"
)

func TestSuperBlockRoundTrip(t *testing.T) {
	sb := layout.SuperBlock{
		InodeBitmapAddr: 1,
		InodeBitmapLen:  2,
		DataBitmapAddr:  3,
		DataBitmapLen:   4,
		InodeRegionAddr: 7,
		InodeRegionLen:  8,
		DataRegionAddr:  15,
		DataRegionLen:   100,
		NumInodes:       256,
		NumData:         100,
	}

	encoded := layout.EncodeSuperBlock(sb)
	require.Len(t, encoded, layout.BlockSize)

	decoded, err := layout.DecodeSuperBlock(encoded)
	require.NoError(t, err)
	require.Equal(t, sb, decoded)
}

func TestInodeRoundTrip(t *testing.T) {
	inode := layout.Inode{
		Type:   layout.TypeRegularFile,
		Size:   1234,
		Direct: [layout.DirectPtrs]int32{10, 11, 0, 0, 0},
	}

	encoded := layout.EncodeInode(inode)
	require.Len(t, encoded, layout.InodeSize)

	decoded, err := layout.DecodeInode(encoded)
	require.NoError(t, err)
	require.Equal(t, inode, decoded)
}

func TestInodeBlockAndOffset(t *testing.T) {
	blockOffset, byteOffset := layout.InodeBlockAndOffset(0)
	require.EqualValues(t, 0, blockOffset)
	require.EqualValues(t, 0, byteOffset)

	blockOffset, byteOffset = layout.InodeBlockAndOffset(uint32(layout.InodesPerBlock))
	require.EqualValues(t, 1, blockOffset)
	require.EqualValues(t, 0, byteOffset)

	blockOffset, byteOffset = layout.InodeBlockAndOffset(uint32(layout.InodesPerBlock) + 2)
	require.EqualValues(t, 1, blockOffset)
	require.EqualValues(t, 2*layout.InodeSize, byteOffset)
}

func TestDirEntryNameTruncatesAtNUL(t *testing.T) {
	entry := layout.NewDirEntry("a.txt", 5)
	require.Equal(t, "a.txt", entry.NameString())
	require.False(t, entry.IsTombstone())

	encoded := layout.EncodeDirEntry(entry)
	require.Len(t, encoded, layout.DirEntrySize)

	decoded, err := layout.DecodeDirEntry(encoded)
	require.NoError(t, err)
	require.Equal(t, "a.txt", decoded.NameString())
	require.EqualValues(t, 5, decoded.InodeNumber)
}

func TestDirEntryTombstone(t *testing.T) {
	entry := layout.NewDirEntry("gone", layout.TombstoneInode)
	require.True(t, entry.IsTombstone())
}

func TestIsValidType(t *testing.T) {
	require.True(t, layout.IsValidType(layout.TypeDirectory))
	require.True(t, layout.IsValidType(layout.TypeRegularFile))
	require.False(t, layout.IsValidType(0))
	require.False(t, layout.IsValidType(99))
}

func TestBitmapFirstFit(t *testing.T) {
	raw := make([]byte, 2)
	bm := layout.WrapBitmap(raw)

	idx, ok := bm.FirstFit(16)
	require.True(t, ok)
	require.Equal(t, 0, idx)

	bm.Set(0, true)
	bm.Set(1, true)
	idx, ok = bm.FirstFit(16)
	require.True(t, ok)
	require.Equal(t, 2, idx)

	for i := 0; i < 16; i++ {
		bm.Set(i, true)
	}
	_, ok = bm.FirstFit(16)
	require.False(t, ok)
}

func TestBitmapLSBFirst(t *testing.T) {
	raw := make([]byte, 1)
	bm := layout.WrapBitmap(raw)
	bm.Set(0, true)
	require.Equal(t, byte(1), raw[0])

	bm.Set(1, true)
	require.Equal(t, byte(3), raw[0])
}
