package engine

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/dargueta/ufs/layout"
)

// InodeSummary is one row of a Validate inventory, used by the fsck CLI to
// print a CSV report via gocarina/gocsv.
type InodeSummary struct {
	InodeNumber int    `csv:"inode_number"`
	Type        string `csv:"type"`
	Size        int32  `csv:"size_bytes"`
	DirectBlocks int   `csv:"direct_blocks"`
}

// Validate walks the mounted image and checks invariants I1-I6, collecting
// every violation instead of stopping at the first. It never mutates the
// image. The returned *multierror.Error is nil if no violation was found.
// For I4 only the directory size is checked; the "." and ".." entries and
// the inode numbers named by directory entries are not examined.
func (e *Engine) Validate() (*multierror.Error, []InodeSummary, error) {
	var result *multierror.Error
	var summaries []InodeSummary

	sb, err := e.readSuperBlock()
	if err != nil {
		return nil, nil, err
	}

	inodeBitmap, err := e.readInodeBitmap(sb)
	if err != nil {
		return nil, nil, err
	}
	dataBitmap, err := e.readDataBitmap(sb)
	if err != nil {
		return nil, nil, err
	}

	seenDataBlocks := make(map[int32]int)

	// I6: the root inode is always allocated and is a directory.
	if !inodeBitmap.Get(layout.RootInodeNumber) {
		result = multierror.Append(result, fmt.Errorf("I6: root inode %d is not allocated", layout.RootInodeNumber))
	}
	root, err := e.readRawInode(sb, layout.RootInodeNumber)
	if err == nil && root.Type != layout.TypeDirectory {
		result = multierror.Append(result, fmt.Errorf("I6: root inode %d is not a directory", layout.RootInodeNumber))
	}

	for i := uint32(0); i < sb.NumInodes; i++ {
		inode, err := e.readRawInode(sb, i)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("inode %d: %w", i, err))
			continue
		}

		allocated := inodeBitmap.Get(int(i))
		validType := layout.IsValidType(inode.Type)

		// I1: bit set iff type is valid.
		if allocated != validType {
			result = multierror.Append(result, fmt.Errorf("I1: inode %d bitmap bit is %v but type validity is %v", i, allocated, validType))
		}
		if !allocated {
			continue
		}

		directCount := 0
		for _, d := range inode.Direct {
			if d != 0 {
				directCount++
				seenDataBlocks[d]++
			}
		}

		typeName := "unknown"
		switch inode.Type {
		case layout.TypeDirectory:
			typeName = "directory"
			// I4: size is a positive multiple of the directory-entry size.
			if inode.Size <= 0 || inode.Size%layout.DirEntrySize != 0 {
				result = multierror.Append(result, fmt.Errorf("I4: directory inode %d has invalid size %d", i, inode.Size))
			}
		case layout.TypeRegularFile:
			typeName = "file"
			// I3: exactly ceil(size/B) direct entries are non-zero.
			want := (int(inode.Size) + layout.BlockSize - 1) / layout.BlockSize
			if directCount != want {
				result = multierror.Append(result, fmt.Errorf("I3: file inode %d has size %d but %d non-zero direct entries (want %d)", i, inode.Size, directCount, want))
			}
		}

		for _, d := range inode.Direct {
			if d == 0 {
				continue
			}
			dataIdx := d - int32(sb.DataRegionAddr)
			if dataIdx < 0 || uint32(dataIdx) >= sb.NumData {
				result = multierror.Append(result, fmt.Errorf("I3: inode %d direct pointer %d falls outside the data region", i, d))
				continue
			}
			if !dataBitmap.Get(int(dataIdx)) {
				result = multierror.Append(result, fmt.Errorf("I2: data block %d used by inode %d but bitmap bit is clear", dataIdx, i))
			}
		}

		summaries = append(summaries, InodeSummary{
			InodeNumber:  int(i),
			Type:         typeName,
			Size:         inode.Size,
			DirectBlocks: directCount,
		})
	}

	// I5: no data block index appears in the direct[] of two different inodes.
	for block, count := range seenDataBlocks {
		if count > 1 {
			result = multierror.Append(result, fmt.Errorf("I5: data block %d referenced by %d inodes", block, count))
		}
	}

	// I2 (converse direction): every allocated data block must be referenced.
	for d := uint32(0); d < sb.NumData; d++ {
		if dataBitmap.Get(int(d)) && seenDataBlocks[int32(sb.DataRegionAddr)+int32(d)] == 0 {
			result = multierror.Append(result, fmt.Errorf("I2: data block %d marked allocated but referenced by no inode", d))
		}
	}

	return result, summaries, nil
}
