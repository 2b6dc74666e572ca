// Package engine implements the filesystem operations over the on-disk
// layout: lookup, stat, read, write, create, unlink. It consumes a
// block.Device and enforces the invariants tying the superblock, bitmaps,
// inode region, and data region together.
//
// The engine is single-threaded with respect to any one device and never
// opens a transaction itself; callers bracket mutating operations with
// device.BeginTransaction/Commit/Rollback, mirroring the CLI collaborators'
// contract described in the original ds3cp.cpp and ds3touch.cpp.
package engine

import (
	"bytes"

	"github.com/dargueta/ufs/block"
	fserrors "github.com/dargueta/ufs/errors"
	"github.com/dargueta/ufs/layout"
)

// Engine holds a reference to one block.Device and exposes the filesystem
// operations layered on top of it.
type Engine struct {
	Device *block.Device
}

// New returns an Engine backed by device.
func New(device *block.Device) *Engine {
	return &Engine{Device: device}
}

func (e *Engine) readSuperBlock() (layout.SuperBlock, error) {
	raw, err := e.Device.ReadBlock(0)
	if err != nil {
		return layout.SuperBlock{}, err
	}
	return layout.DecodeSuperBlock(raw)
}

func (e *Engine) readRegion(addr, length uint32) ([]byte, error) {
	out := make([]byte, 0, uint(length)*layout.BlockSize)
	for i := uint32(0); i < length; i++ {
		block, err := e.Device.ReadBlock(uint(addr + i))
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
	}
	return out, nil
}

func (e *Engine) writeRegion(addr, length uint32, data []byte) error {
	for i := uint32(0); i < length; i++ {
		start := uint(i) * layout.BlockSize
		end := start + layout.BlockSize
		if err := e.Device.WriteBlock(uint(addr+i), data[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) readInodeBitmap(sb layout.SuperBlock) (layout.Bitmap, error) {
	raw, err := e.readRegion(sb.InodeBitmapAddr, sb.InodeBitmapLen)
	if err != nil {
		return layout.Bitmap{}, err
	}
	return layout.WrapBitmap(raw), nil
}

func (e *Engine) writeInodeBitmap(sb layout.SuperBlock, bm layout.Bitmap) error {
	return e.writeRegion(sb.InodeBitmapAddr, sb.InodeBitmapLen, bm.Bytes())
}

func (e *Engine) readDataBitmap(sb layout.SuperBlock) (layout.Bitmap, error) {
	raw, err := e.readRegion(sb.DataBitmapAddr, sb.DataBitmapLen)
	if err != nil {
		return layout.Bitmap{}, err
	}
	return layout.WrapBitmap(raw), nil
}

func (e *Engine) writeDataBitmap(sb layout.SuperBlock, bm layout.Bitmap) error {
	return e.writeRegion(sb.DataBitmapAddr, sb.DataBitmapLen, bm.Bytes())
}

func (e *Engine) readRawInode(sb layout.SuperBlock, inodeNo uint32) (layout.Inode, error) {
	blockOffset, byteOffset := layout.InodeBlockAndOffset(inodeNo)
	raw, err := e.Device.ReadBlock(uint(sb.InodeRegionAddr + blockOffset))
	if err != nil {
		return layout.Inode{}, err
	}
	return layout.DecodeInode(raw[byteOffset : byteOffset+layout.InodeSize])
}

func (e *Engine) writeRawInode(sb layout.SuperBlock, inodeNo uint32, inode layout.Inode) error {
	blockOffset, byteOffset := layout.InodeBlockAndOffset(inodeNo)
	blockIdx := uint(sb.InodeRegionAddr + blockOffset)
	raw, err := e.Device.ReadBlock(blockIdx)
	if err != nil {
		return err
	}
	copy(raw[byteOffset:byteOffset+layout.InodeSize], layout.EncodeInode(inode))
	return e.Device.WriteBlock(blockIdx, raw)
}

// Stat validates inodeNo and, if it names an allocated-or-not inode of a
// recognized type, copies its record out. Stat does not consult the inode
// bitmap; callers that require allocation must check it themselves.
func (e *Engine) Stat(inodeNo int) (layout.Inode, error) {
	sb, err := e.readSuperBlock()
	if err != nil {
		return layout.Inode{}, err
	}
	if inodeNo < 0 || uint32(inodeNo) >= sb.NumInodes {
		return layout.Inode{}, fserrors.EInvalidInode
	}

	inode, err := e.readRawInode(sb, uint32(inodeNo))
	if err != nil {
		return layout.Inode{}, err
	}
	if !layout.IsValidType(inode.Type) {
		return layout.Inode{}, fserrors.EInvalidInode
	}
	return inode, nil
}

// Lookup scans parentInodeNo's directory payload for an entry named name
// and returns its inode number.
func (e *Engine) Lookup(parentInodeNo int, name string) (int, error) {
	parent, err := e.Stat(parentInodeNo)
	if err != nil {
		return 0, err
	}
	if parent.Type != layout.TypeDirectory {
		return 0, fserrors.EInvalidInode
	}

	payload := make([]byte, parent.Size)
	n, err := e.Read(parentInodeNo, payload)
	if err != nil {
		return 0, err
	}
	payload = payload[:n]

	for off := 0; off+layout.DirEntrySize <= len(payload); off += layout.DirEntrySize {
		entry, err := layout.DecodeDirEntry(payload[off : off+layout.DirEntrySize])
		if err != nil {
			return 0, err
		}
		if entry.IsTombstone() {
			continue
		}
		if entry.NameString() == name {
			return int(entry.InodeNumber), nil
		}
	}

	return 0, fserrors.ENotFound
}

// Read copies up to len(buf) bytes from inodeNo's data into buf and returns
// the number of bytes actually copied. A zero direct pointer stops the read
// early, which is reported as success with a short count rather than an
// error, tolerating sparse or truncated inodes.
func (e *Engine) Read(inodeNo int, buf []byte) (int, error) {
	if len(buf) < 0 {
		return 0, fserrors.EInvalidSize
	}

	inode, err := e.Stat(inodeNo)
	if err != nil {
		return 0, err
	}

	want := len(buf)
	if int(inode.Size) < want {
		want = int(inode.Size)
	}

	read := 0
	for i := 0; i < layout.DirectPtrs && read < want; i++ {
		if inode.Direct[i] == 0 {
			break
		}
		block, err := e.Device.ReadBlock(uint(inode.Direct[i]))
		if err != nil {
			return read, err
		}
		n := want - read
		if n > len(block) {
			n = len(block)
		}
		copy(buf[read:read+n], block[:n])
		read += n
	}

	return read, nil
}

// Write replaces inodeNo's contents with the first size bytes of buf,
// allocating or freeing direct blocks as needed. On any error, the engine
// has issued no writes the caller cannot undo by rolling back the
// enclosing transaction.
func (e *Engine) Write(inodeNo int, buf []byte, size int) (int, error) {
	if size < 0 {
		return 0, fserrors.EInvalidSize
	}

	sb, err := e.readSuperBlock()
	if err != nil {
		return 0, err
	}
	if inodeNo < 0 || uint32(inodeNo) >= sb.NumInodes {
		return 0, fserrors.EInvalidInode
	}

	inodeBitmap, err := e.readInodeBitmap(sb)
	if err != nil {
		return 0, err
	}
	if !inodeBitmap.Get(inodeNo) {
		return 0, fserrors.ENotAllocated
	}

	inode, err := e.readRawInode(sb, uint32(inodeNo))
	if err != nil {
		return 0, err
	}
	if inode.Type != layout.TypeRegularFile {
		return 0, fserrors.EWriteToDir
	}

	required := (size + layout.BlockSize - 1) / layout.BlockSize
	if required > layout.DirectPtrs {
		return 0, fserrors.EInvalidSize
	}

	current := (int(inode.Size) + layout.BlockSize - 1) / layout.BlockSize

	dataBitmap, err := e.readDataBitmap(sb)
	if err != nil {
		return 0, err
	}

	if required > current {
		allocated := make([]int, 0, required-current)
		for i := current; i < required; i++ {
			idx, ok := dataBitmap.FirstFit(int(sb.NumData))
			if !ok {
				return 0, fserrors.ENotEnoughSpace
			}
			dataBitmap.Set(idx, true)
			allocated = append(allocated, idx)
			inode.Direct[i] = int32(sb.DataRegionAddr) + int32(idx)
		}
	} else if required < current {
		for i := required; i < current; i++ {
			abs := inode.Direct[i]
			if abs != 0 {
				dataIdx := int(abs) - int(sb.DataRegionAddr)
				dataBitmap.Set(dataIdx, false)
			}
			inode.Direct[i] = 0
		}
	}

	if err := e.writeDataBitmap(sb, dataBitmap); err != nil {
		return 0, err
	}

	for i := 0; i < required; i++ {
		block := make([]byte, layout.BlockSize)
		start := i * layout.BlockSize
		n := size - start
		if n > layout.BlockSize {
			n = layout.BlockSize
		}
		copy(block[:n], buf[start:start+n])
		if err := e.Device.WriteBlock(uint(inode.Direct[i]), block); err != nil {
			return 0, err
		}
	}

	inode.Size = int32(size)
	if err := e.writeRawInode(sb, uint32(inodeNo), inode); err != nil {
		return 0, err
	}

	return size, nil
}

func isForbiddenName(name string) bool {
	if len(name) == 0 || len(name) >= layout.DirEntryNameSize {
		return true
	}
	return bytes.ContainsAny([]byte(name), layout.ForbiddenNameChars)
}

// Create makes a new inode of the given type named name inside
// parentInodeNo's directory, returning its inode number. If an entry of the
// same name and type already exists, Create is idempotent and returns the
// existing inode number without modifying the image.
func (e *Engine) Create(parentInodeNo int, inodeType int32, name string) (int, error) {
	parent, err := e.Stat(parentInodeNo)
	if err != nil {
		return 0, err
	}
	if parent.Type != layout.TypeDirectory {
		return 0, fserrors.EInvalidInode
	}
	if isForbiddenName(name) {
		return 0, fserrors.EInvalidName
	}

	existing, lookupErr := e.Lookup(parentInodeNo, name)
	if lookupErr == nil {
		existingInode, err := e.Stat(existing)
		if err != nil {
			return 0, err
		}
		if existingInode.Type == inodeType {
			return existing, nil
		}
		return 0, fserrors.EInvalidType
	}
	if code, ok := fserrors.AsCode(lookupErr); !ok || code != fserrors.ENotFound {
		return 0, lookupErr
	}

	sb, err := e.readSuperBlock()
	if err != nil {
		return 0, err
	}

	inodeBitmap, err := e.readInodeBitmap(sb)
	if err != nil {
		return 0, err
	}
	newInodeNo, ok := inodeBitmap.FirstFit(int(sb.NumInodes))
	if !ok {
		return 0, fserrors.ENotEnoughSpace
	}
	inodeBitmap.Set(newInodeNo, true)
	if err := e.writeInodeBitmap(sb, inodeBitmap); err != nil {
		return 0, err
	}

	newInode := layout.Inode{Type: inodeType}

	if inodeType == layout.TypeDirectory {
		newInode.Size = 2 * layout.DirEntrySize

		dataBitmap, err := e.readDataBitmap(sb)
		if err != nil {
			return 0, err
		}
		dataIdx, ok := dataBitmap.FirstFit(int(sb.NumData))
		if !ok {
			return 0, fserrors.ENotEnoughSpace
		}
		dataBitmap.Set(dataIdx, true)
		if err := e.writeDataBitmap(sb, dataBitmap); err != nil {
			return 0, err
		}

		block := make([]byte, layout.BlockSize)
		copy(block[0:layout.DirEntrySize], layout.EncodeDirEntry(layout.NewDirEntry(".", int32(newInodeNo))))
		copy(block[layout.DirEntrySize:2*layout.DirEntrySize], layout.EncodeDirEntry(layout.NewDirEntry("..", int32(parentInodeNo))))

		absBlock := int32(sb.DataRegionAddr) + int32(dataIdx)
		if err := e.Device.WriteBlock(uint(absBlock), block); err != nil {
			return 0, err
		}
		newInode.Direct[0] = absBlock
	}

	if err := e.writeRawInode(sb, uint32(newInodeNo), newInode); err != nil {
		return 0, err
	}

	if err := e.appendDirEntry(sb, parentInodeNo, parent, layout.NewDirEntry(name, int32(newInodeNo))); err != nil {
		return 0, err
	}

	return newInodeNo, nil
}

// appendDirEntry writes a new directory entry at byte offset parent.Size
// within the parent's current tail direct block and increments parent.Size.
// It does not consult block boundaries, matching the source: growing a
// directory past its first data block is out of scope.
func (e *Engine) appendDirEntry(sb layout.SuperBlock, parentInodeNo int, parent layout.Inode, entry layout.DirEntry) error {
	blockIdx := int(parent.Size) / layout.BlockSize
	offsetInBlock := int(parent.Size) % layout.BlockSize

	abs := parent.Direct[blockIdx]
	raw, err := e.Device.ReadBlock(uint(abs))
	if err != nil {
		return err
	}
	copy(raw[offsetInBlock:offsetInBlock+layout.DirEntrySize], layout.EncodeDirEntry(entry))
	if err := e.Device.WriteBlock(uint(abs), raw); err != nil {
		return err
	}

	parent.Size += layout.DirEntrySize
	return e.writeRawInode(sb, uint32(parentInodeNo), parent)
}

// Unlink removes name from parentInodeNo's directory. A directory target
// must be empty (containing only "." and ".."); "." and ".." themselves
// cannot be removed. The target's data blocks and inode are freed, and its
// entry in the parent is turned into a tombstone without shrinking the
// parent's size.
func (e *Engine) Unlink(parentInodeNo int, name string) error {
	if name == "." || name == ".." {
		return fserrors.EInvalidName
	}

	targetInodeNo, err := e.Lookup(parentInodeNo, name)
	if err != nil {
		return err
	}

	target, err := e.Stat(targetInodeNo)
	if err != nil {
		return err
	}

	if target.Type == layout.TypeDirectory {
		entries, err := e.readDirEntries(targetInodeNo, target)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if entry.IsTombstone() {
				continue
			}
			if entry.NameString() != "." && entry.NameString() != ".." {
				return fserrors.EDirNotEmpty
			}
		}
	}

	sb, err := e.readSuperBlock()
	if err != nil {
		return err
	}

	dataBitmap, err := e.readDataBitmap(sb)
	if err != nil {
		return err
	}
	for i := 0; i < layout.DirectPtrs; i++ {
		if target.Direct[i] == 0 {
			continue
		}
		dataIdx := int(target.Direct[i]) - int(sb.DataRegionAddr)
		dataBitmap.Set(dataIdx, false)
		target.Direct[i] = 0
	}
	if err := e.writeDataBitmap(sb, dataBitmap); err != nil {
		return err
	}
	// A freed inode must not keep a valid type (I1).
	target.Type = 0
	target.Size = 0
	if err := e.writeRawInode(sb, uint32(targetInodeNo), target); err != nil {
		return err
	}

	inodeBitmap, err := e.readInodeBitmap(sb)
	if err != nil {
		return err
	}
	inodeBitmap.Set(targetInodeNo, false)
	if err := e.writeInodeBitmap(sb, inodeBitmap); err != nil {
		return err
	}

	return e.tombstoneEntry(sb, parentInodeNo, name)
}

func (e *Engine) readDirEntries(inodeNo int, inode layout.Inode) ([]layout.DirEntry, error) {
	payload := make([]byte, inode.Size)
	n, err := e.Read(inodeNo, payload)
	if err != nil {
		return nil, err
	}
	payload = payload[:n]

	entries := make([]layout.DirEntry, 0, len(payload)/layout.DirEntrySize)
	for off := 0; off+layout.DirEntrySize <= len(payload); off += layout.DirEntrySize {
		entry, err := layout.DecodeDirEntry(payload[off : off+layout.DirEntrySize])
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (e *Engine) tombstoneEntry(sb layout.SuperBlock, parentInodeNo int, name string) error {
	parent, err := e.Stat(parentInodeNo)
	if err != nil {
		return err
	}

	for off := 0; off < int(parent.Size); off += layout.DirEntrySize {
		blockIdx := off / layout.BlockSize
		offsetInBlock := off % layout.BlockSize
		abs := parent.Direct[blockIdx]

		raw, err := e.Device.ReadBlock(uint(abs))
		if err != nil {
			return err
		}
		entry, err := layout.DecodeDirEntry(raw[offsetInBlock : offsetInBlock+layout.DirEntrySize])
		if err != nil {
			return err
		}
		if entry.IsTombstone() || entry.NameString() != name {
			continue
		}

		tombstoned := entry
		tombstoned.InodeNumber = layout.TombstoneInode
		copy(raw[offsetInBlock:offsetInBlock+layout.DirEntrySize], layout.EncodeDirEntry(tombstoned))
		return e.Device.WriteBlock(uint(abs), raw)
	}

	return fserrors.ENotFound
}
