// Package mkfs builds a fresh filesystem image offline: a superblock,
// zeroed bitmaps with the root inode and its data block marked allocated,
// an inode region with the root inode populated, and the root directory's
// first data block containing "." and "..".
//
// This mirrors the teacher's own Format method in
// file_systems/unixv1/format.go, adapted to the fixed superblock/bitmap/
// inode-region/data-region layout this filesystem uses instead of the
// teacher's packed free-block bitmap.
package mkfs

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/boljen/go-bitmap"
	"github.com/noxer/bytewriter"

	"github.com/dargueta/ufs/layout"
)

// Options configures a freshly built image.
type Options struct {
	// TotalBlocks is the total size of the image, in blocks.
	TotalBlocks uint32
	// NumInodes is the total number of addressable inodes.
	NumInodes uint32
}

func blocksFor(bits uint32) uint32 {
	bytesNeeded := (bits + 7) / 8
	return (bytesNeeded + layout.BlockSize - 1) / layout.BlockSize
}

// Build computes the on-disk layout for opts and returns the resulting
// superblock. It does not perform any I/O.
func Build(opts Options) (layout.SuperBlock, error) {
	if opts.NumInodes == 0 {
		return layout.SuperBlock{}, fmt.Errorf("num_inodes must be non-zero")
	}

	inodeBitmapLen := blocksFor(opts.NumInodes)
	// One data bit per block is a conservative but simple upper bound; the
	// data region never needs more blocks than the whole device.
	dataBitmapLen := blocksFor(opts.TotalBlocks)
	inodeRegionLen := (opts.NumInodes + layout.InodesPerBlock - 1) / layout.InodesPerBlock

	inodeBitmapAddr := uint32(1)
	dataBitmapAddr := inodeBitmapAddr + inodeBitmapLen
	inodeRegionAddr := dataBitmapAddr + dataBitmapLen
	dataRegionAddr := inodeRegionAddr + inodeRegionLen

	if dataRegionAddr >= opts.TotalBlocks {
		return layout.SuperBlock{}, fmt.Errorf(
			"image too small: metadata needs %d blocks, have %d", dataRegionAddr, opts.TotalBlocks)
	}
	numData := opts.TotalBlocks - dataRegionAddr

	return layout.SuperBlock{
		InodeBitmapAddr: inodeBitmapAddr,
		InodeBitmapLen:  inodeBitmapLen,
		DataBitmapAddr:  dataBitmapAddr,
		DataBitmapLen:   dataBitmapLen,
		InodeRegionAddr: inodeRegionAddr,
		InodeRegionLen:  inodeRegionLen,
		DataRegionAddr:  dataRegionAddr,
		DataRegionLen:   numData,
		NumInodes:       opts.NumInodes,
		NumData:         numData,
	}, nil
}

// WriteImage builds a fresh image per opts and writes it to out, which must
// be seekable and pre-sized (or growable) to opts.TotalBlocks*layout.BlockSize
// bytes.
func WriteImage(out io.WriteSeeker, opts Options) error {
	sb, err := Build(opts)
	if err != nil {
		return err
	}

	if err := writeBlock(out, 0, layout.EncodeSuperBlock(sb)); err != nil {
		return err
	}

	inodeBitmap := bitmap.New(int(sb.InodeBitmapLen) * layout.BlockSize * 8)
	inodeBitmap.Set(layout.RootInodeNumber, true)
	if err := writeRegion(out, sb.InodeBitmapAddr, sb.InodeBitmapLen, inodeBitmap.Data(false)); err != nil {
		return err
	}

	dataBitmap := bitmap.New(int(sb.DataBitmapLen) * layout.BlockSize * 8)
	dataBitmap.Set(0, true) // root directory's first data block
	if err := writeRegion(out, sb.DataBitmapAddr, sb.DataBitmapLen, dataBitmap.Data(false)); err != nil {
		return err
	}

	inodeRegion := make([]byte, uint(sb.InodeRegionLen)*layout.BlockSize)
	writer := bytewriter.New(inodeRegion)
	rootInode := layout.Inode{
		Type: layout.TypeDirectory,
		Size: 2 * layout.DirEntrySize,
	}
	rootInode.Direct[0] = int32(sb.DataRegionAddr)
	if err := binary.Write(writer, binary.LittleEndian, rootInode); err != nil {
		return err
	}
	empty := layout.Inode{}
	for i := uint32(1); i < sb.NumInodes; i++ {
		if err := binary.Write(writer, binary.LittleEndian, empty); err != nil {
			return err
		}
	}
	if err := writeRegion(out, sb.InodeRegionAddr, sb.InodeRegionLen, inodeRegion); err != nil {
		return err
	}

	rootDirBlock := make([]byte, layout.BlockSize)
	copy(rootDirBlock[0:layout.DirEntrySize], layout.EncodeDirEntry(layout.NewDirEntry(".", layout.RootInodeNumber)))
	copy(rootDirBlock[layout.DirEntrySize:2*layout.DirEntrySize], layout.EncodeDirEntry(layout.NewDirEntry("..", layout.RootInodeNumber)))
	if err := writeBlock(out, uint(sb.DataRegionAddr), rootDirBlock); err != nil {
		return err
	}

	// Zero the remaining data blocks so the image has a well-defined size.
	zero := make([]byte, layout.BlockSize)
	for i := uint32(1); i < sb.DataRegionLen; i++ {
		if err := writeBlock(out, uint(sb.DataRegionAddr+i), zero); err != nil {
			return err
		}
	}

	return nil
}

func writeBlock(out io.WriteSeeker, idx uint, data []byte) error {
	block := make([]byte, layout.BlockSize)
	copy(block, data)
	if _, err := out.Seek(int64(idx)*layout.BlockSize, io.SeekStart); err != nil {
		return err
	}
	_, err := out.Write(block)
	return err
}

func writeRegion(out io.WriteSeeker, addr, length uint32, data []byte) error {
	for i := uint32(0); i < length; i++ {
		start := uint(i) * layout.BlockSize
		end := start + layout.BlockSize
		var block []byte
		if int(end) <= len(data) {
			block = data[start:end]
		} else if int(start) < len(data) {
			block = make([]byte, layout.BlockSize)
			copy(block, data[start:])
		} else {
			block = make([]byte, layout.BlockSize)
		}
		if err := writeBlock(out, uint(addr+i), block); err != nil {
			return err
		}
	}
	return nil
}
