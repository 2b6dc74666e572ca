package mkfs_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/dargueta/ufs/layout"
	"github.com/dargueta/ufs/mkfs"
)

func TestWriteImage_RootDirectoryIsAllocated(t *testing.T) {
	const totalBlocks = 64
	const numInodes = 32

	buf := make([]byte, totalBlocks*layout.BlockSize)
	stream := bytesextra.NewReadWriteSeeker(buf)

	require.NoError(t, mkfs.WriteImage(stream, mkfs.Options{
		TotalBlocks: totalBlocks,
		NumInodes:   numInodes,
	}))

	sbBlock := buf[:layout.BlockSize]
	sb, err := layout.DecodeSuperBlock(sbBlock)
	require.NoError(t, err)
	require.EqualValues(t, numInodes, sb.NumInodes)

	inodeBitmapStart := sb.InodeBitmapAddr * layout.BlockSize
	require.EqualValues(t, 1, buf[inodeBitmapStart]&1, "root inode bit must be set")

	dataBitmapStart := sb.DataBitmapAddr * layout.BlockSize
	require.EqualValues(t, 1, buf[dataBitmapStart]&1, "root directory's data block bit must be set")

	rootInodeBlock := buf[sb.InodeRegionAddr*layout.BlockSize : sb.InodeRegionAddr*layout.BlockSize+layout.InodeSize]
	rootInode, err := layout.DecodeInode(rootInodeBlock)
	require.NoError(t, err)
	require.Equal(t, int32(layout.TypeDirectory), rootInode.Type)
	require.Equal(t, int32(2*layout.DirEntrySize), rootInode.Size)
	require.EqualValues(t, sb.DataRegionAddr, rootInode.Direct[0])

	rootDirBlock := buf[sb.DataRegionAddr*layout.BlockSize : sb.DataRegionAddr*layout.BlockSize+layout.BlockSize]
	dot, err := layout.DecodeDirEntry(rootDirBlock[:layout.DirEntrySize])
	require.NoError(t, err)
	require.Equal(t, ".", dot.NameString())
	require.EqualValues(t, layout.RootInodeNumber, dot.InodeNumber)

	dotdot, err := layout.DecodeDirEntry(rootDirBlock[layout.DirEntrySize : 2*layout.DirEntrySize])
	require.NoError(t, err)
	require.Equal(t, "..", dotdot.NameString())
	require.EqualValues(t, layout.RootInodeNumber, dotdot.InodeNumber)
}

func TestBuild_RejectsZeroInodes(t *testing.T) {
	_, err := mkfs.Build(mkfs.Options{TotalBlocks: 64, NumInodes: 0})
	require.Error(t, err)
}

func TestBuild_RejectsTooSmallImage(t *testing.T) {
	_, err := mkfs.Build(mkfs.Options{TotalBlocks: 1, NumInodes: 1024})
	require.Error(t, err)
}
