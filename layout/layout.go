// Package layout defines the byte-exact on-disk records of the filesystem
// image: the superblock, inodes, and directory entries, and the fixed sizes
// and offsets tying them together. Structs here are read and written with
// encoding/binary in little-endian order, the same pattern the teacher uses
// for RawInode and RawDirent in drivers/unixv1/inode.go and
// drivers/unixv1/dirents.go.
package layout

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// BlockSize is the fixed compile-time block size B, in bytes.
const BlockSize = 4096

// DirectPtrs is the number of direct data-block pointers per inode (K).
const DirectPtrs = 5

// MaxFileSize is the largest file this filesystem can represent.
const MaxFileSize = DirectPtrs * BlockSize

// DirEntryNameSize is the fixed width of a directory entry's name field (N),
// including the NUL terminator.
const DirEntryNameSize = 28

// RootInodeNumber is the inode number of the filesystem root, which is
// always allocated and always a directory.
const RootInodeNumber = 0

// Inode types.
const (
	TypeDirectory = iota + 1
	TypeRegularFile
)

// TombstoneInode marks a free directory-entry slot.
const TombstoneInode int32 = -1

// SuperBlock is the fixed-layout record stored in block 0.
type SuperBlock struct {
	InodeBitmapAddr uint32
	InodeBitmapLen  uint32
	DataBitmapAddr  uint32
	DataBitmapLen   uint32
	InodeRegionAddr uint32
	InodeRegionLen  uint32
	DataRegionAddr  uint32
	DataRegionLen   uint32
	NumInodes       uint32
	NumData         uint32
}

// SuperBlockSize is the on-disk size of a SuperBlock record.
const SuperBlockSize = 4 * 10

// EncodeSuperBlock serializes sb into a full block-sized buffer, zero-padded
// after the struct's fields.
func EncodeSuperBlock(sb SuperBlock) []byte {
	buf := make([]byte, BlockSize)
	w := bytes.NewBuffer(buf[:0])
	_ = binary.Write(w, binary.LittleEndian, sb)
	return buf
}

// DecodeSuperBlock parses a SuperBlock from the first SuperBlockSize bytes
// of block.
func DecodeSuperBlock(block []byte) (SuperBlock, error) {
	if len(block) < SuperBlockSize {
		return SuperBlock{}, fmt.Errorf("superblock buffer too small: got %d bytes, need %d", len(block), SuperBlockSize)
	}
	var sb SuperBlock
	r := bytes.NewReader(block[:SuperBlockSize])
	if err := binary.Read(r, binary.LittleEndian, &sb); err != nil {
		return SuperBlock{}, err
	}
	return sb, nil
}

// Inode is the fixed-size on-disk metadata record for one file or
// directory.
type Inode struct {
	Type   int32
	Size   int32
	Direct [DirectPtrs]int32
}

// InodeSize is the on-disk size of one Inode record, in bytes.
const InodeSize = 4 + 4 + DirectPtrs*4

// InodesPerBlock is P, the number of inode records packed into one block.
const InodesPerBlock = BlockSize / InodeSize

// EncodeInode serializes inode into exactly InodeSize bytes.
func EncodeInode(inode Inode) []byte {
	buf := make([]byte, InodeSize)
	w := bytes.NewBuffer(buf[:0])
	_ = binary.Write(w, binary.LittleEndian, inode)
	return buf
}

// DecodeInode parses an Inode from exactly InodeSize bytes.
func DecodeInode(raw []byte) (Inode, error) {
	if len(raw) < InodeSize {
		return Inode{}, fmt.Errorf("inode buffer too small: got %d bytes, need %d", len(raw), InodeSize)
	}
	var inode Inode
	r := bytes.NewReader(raw[:InodeSize])
	if err := binary.Read(r, binary.LittleEndian, &inode); err != nil {
		return Inode{}, err
	}
	return inode, nil
}

// IsValidType reports whether t is a recognized inode type.
func IsValidType(t int32) bool {
	return t == TypeDirectory || t == TypeRegularFile
}

// InodeBlockAndOffset returns the block index (relative to the start of the
// inode region) and byte offset within that block where inode number
// inodeNo lives.
func InodeBlockAndOffset(inodeNo uint32) (blockOffset uint32, byteOffset uint32) {
	return inodeNo / InodesPerBlock, (inodeNo % InodesPerBlock) * InodeSize
}

// DirEntry is the fixed-size (name, inode number) directory entry record.
type DirEntry struct {
	Name        [DirEntryNameSize]byte
	InodeNumber int32
}

// DirEntrySize is the on-disk size of one DirEntry record, in bytes.
const DirEntrySize = DirEntryNameSize + 4

// EntriesPerBlock is the number of directory entries that fit in one block.
const EntriesPerBlock = BlockSize / DirEntrySize

// NewDirEntry builds a DirEntry for name and inodeNo. name must be shorter
// than DirEntryNameSize; callers validate this before calling NewDirEntry.
func NewDirEntry(name string, inodeNo int32) DirEntry {
	var entry DirEntry
	copy(entry.Name[:], name)
	entry.InodeNumber = inodeNo
	return entry
}

// NameString returns the entry's name, truncated at the first NUL byte.
func (e DirEntry) NameString() string {
	n := bytes.IndexByte(e.Name[:], 0)
	if n < 0 {
		n = len(e.Name)
	}
	return string(e.Name[:n])
}

// IsTombstone reports whether the entry is a free, skipped-but-counted
// slot.
func (e DirEntry) IsTombstone() bool {
	return e.InodeNumber == TombstoneInode
}

// EncodeDirEntry serializes entry into exactly DirEntrySize bytes.
func EncodeDirEntry(entry DirEntry) []byte {
	buf := make([]byte, DirEntrySize)
	w := bytes.NewBuffer(buf[:0])
	_ = binary.Write(w, binary.LittleEndian, entry)
	return buf
}

// DecodeDirEntry parses a DirEntry from exactly DirEntrySize bytes.
func DecodeDirEntry(raw []byte) (DirEntry, error) {
	if len(raw) < DirEntrySize {
		return DirEntry{}, fmt.Errorf("dirent buffer too small: got %d bytes, need %d", len(raw), DirEntrySize)
	}
	var entry DirEntry
	r := bytes.NewReader(raw[:DirEntrySize])
	if err := binary.Read(r, binary.LittleEndian, &entry); err != nil {
		return DirEntry{}, err
	}
	return entry, nil
}

// ForbiddenNameChars are the characters NewDirEntry's callers must reject in
// a name before creating an entry.
const ForbiddenNameChars = `:/*?"<>|`
