// Package block implements the fixed-size block device abstraction the
// filesystem engine is built on: whole-block reads and writes against a
// backing stream, with a transactional buffer so a caller can stage a batch
// of writes and either publish them atomically or discard them.
//
// The buffering strategy is adapted from the teacher's block cache
// (drivers/common/blockcache): a flat byte buffer the size of the whole
// device, with a bitmap tracking which blocks in it are dirty relative to
// the backing stream. Here the buffer only ever holds one transaction's
// worth of state rather than a standing read cache, since the engine never
// needs to keep blocks warm between operations.
package block

import (
	"fmt"
	"io"

	"github.com/boljen/go-bitmap"
)

// Device presents a backing stream as an array of fixed-size blocks.
type Device struct {
	blockSize   uint
	totalBlocks uint
	stream      io.ReadWriteSeeker

	inTransaction bool
	dirty         bitmap.Bitmap
	buffer        []byte
}

// New wraps stream as a Device with the given block size and total block
// count. The stream must already be sized to blockSize*totalBlocks bytes;
// New does not resize it.
func New(stream io.ReadWriteSeeker, blockSize, totalBlocks uint) *Device {
	return &Device{
		blockSize:   blockSize,
		totalBlocks: totalBlocks,
		stream:      stream,
	}
}

// BlockSize returns the fixed size of a block, in bytes.
func (d *Device) BlockSize() uint {
	return d.blockSize
}

// TotalBlocks returns the number of blocks addressable on this device.
func (d *Device) TotalBlocks() uint {
	return d.totalBlocks
}

func (d *Device) checkRange(idx uint) error {
	if idx >= d.totalBlocks {
		return fmt.Errorf("block index %d not in range [0, %d)", idx, d.totalBlocks)
	}
	return nil
}

func (d *Device) readFromStream(idx uint) ([]byte, error) {
	offset := int64(idx) * int64(d.blockSize)
	if _, err := d.stream.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, d.blockSize)
	if _, err := io.ReadFull(d.stream, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadBlock returns the current logical contents of block idx: the buffered
// value if idx has been written since BeginTransaction, otherwise the value
// on the backing stream.
func (d *Device) ReadBlock(idx uint) ([]byte, error) {
	if err := d.checkRange(idx); err != nil {
		return nil, err
	}

	if d.inTransaction && d.dirty.Get(int(idx)) {
		out := make([]byte, d.blockSize)
		copy(out, d.buffer[idx*d.blockSize:(idx+1)*d.blockSize])
		return out, nil
	}

	return d.readFromStream(idx)
}

// WriteBlock buffers a write of exactly one block's worth of data to idx.
// The write is only visible to ReadBlock (within this transaction) and to
// the backing stream after Commit. WriteBlock must be called within an open
// transaction; see BeginTransaction.
func (d *Device) WriteBlock(idx uint, data []byte) error {
	if err := d.checkRange(idx); err != nil {
		return err
	}
	if uint(len(data)) != d.blockSize {
		return fmt.Errorf("write to block %d must be exactly %d bytes, got %d", idx, d.blockSize, len(data))
	}
	if !d.inTransaction {
		return fmt.Errorf("write_block called with no open transaction")
	}

	copy(d.buffer[idx*d.blockSize:(idx+1)*d.blockSize], data)
	d.dirty.Set(int(idx), true)
	return nil
}

// BeginTransaction opens a buffering scope. Nested begins are not permitted.
func (d *Device) BeginTransaction() error {
	if d.inTransaction {
		return fmt.Errorf("a transaction is already open")
	}
	d.inTransaction = true
	d.dirty = bitmap.New(int(d.totalBlocks))
	d.buffer = make([]byte, d.totalBlocks*d.blockSize)
	return nil
}

// InTransaction reports whether a transaction is currently open.
func (d *Device) InTransaction() bool {
	return d.inTransaction
}

// Commit flushes every buffered write to the backing stream, each block
// written exactly once, then clears the buffer. After Commit the backing
// stream reflects every write issued since BeginTransaction.
func (d *Device) Commit() error {
	if !d.inTransaction {
		return fmt.Errorf("commit called with no open transaction")
	}

	for idx := uint(0); idx < d.totalBlocks; idx++ {
		if !d.dirty.Get(int(idx)) {
			continue
		}
		offset := int64(idx) * int64(d.blockSize)
		if _, err := d.stream.Seek(offset, io.SeekStart); err != nil {
			return err
		}
		block := d.buffer[idx*d.blockSize : (idx+1)*d.blockSize]
		if _, err := d.stream.Write(block); err != nil {
			return err
		}
	}

	d.inTransaction = false
	d.dirty = nil
	d.buffer = nil
	return nil
}

// Rollback discards the buffer without touching the backing stream; the
// stream remains byte-identical to its state before BeginTransaction.
func (d *Device) Rollback() error {
	if !d.inTransaction {
		return fmt.Errorf("rollback called with no open transaction")
	}
	d.inTransaction = false
	d.dirty = nil
	d.buffer = nil
	return nil
}
