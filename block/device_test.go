package block_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/dargueta/ufs/block"
)

const testBlockSize = 16

func newTestDevice(t *testing.T, totalBlocks uint) (*block.Device, []byte) {
	t.Helper()
	buf := make([]byte, totalBlocks*testBlockSize)
	stream := bytesextra.NewReadWriteSeeker(buf)
	return block.New(stream, testBlockSize, totalBlocks), buf
}

func TestReadBlock_OutOfRange(t *testing.T) {
	device, _ := newTestDevice(t, 4)
	_, err := device.ReadBlock(4)
	require.Error(t, err)
}

func TestWriteBlock_RequiresTransaction(t *testing.T) {
	device, _ := newTestDevice(t, 4)
	err := device.WriteBlock(0, bytes.Repeat([]byte{1}, testBlockSize))
	require.Error(t, err)
}

func TestCommit_PersistsWrites(t *testing.T) {
	device, backing := newTestDevice(t, 4)

	require.NoError(t, device.BeginTransaction())
	data := bytes.Repeat([]byte{0xAB}, testBlockSize)
	require.NoError(t, device.WriteBlock(2, data))
	require.NoError(t, device.Commit())

	require.Equal(t, data, backing[2*testBlockSize:3*testBlockSize])

	got, err := device.ReadBlock(2)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestRollback_LeavesImageUnchanged(t *testing.T) {
	device, backing := newTestDevice(t, 4)
	original := append([]byte(nil), backing...)

	require.NoError(t, device.BeginTransaction())
	require.NoError(t, device.WriteBlock(1, bytes.Repeat([]byte{0xFF}, testBlockSize)))
	require.NoError(t, device.Rollback())

	require.Equal(t, original, backing)
	require.False(t, device.InTransaction())
}

func TestReadBlock_SeesBufferedValueDuringTransaction(t *testing.T) {
	device, backing := newTestDevice(t, 4)

	require.NoError(t, device.BeginTransaction())
	data := bytes.Repeat([]byte{0x42}, testBlockSize)
	require.NoError(t, device.WriteBlock(0, data))

	got, err := device.ReadBlock(0)
	require.NoError(t, err)
	require.Equal(t, data, got)

	// The backing stream must not have been touched yet.
	require.NotEqual(t, data, backing[:testBlockSize])

	require.NoError(t, device.Rollback())
}

func TestBeginTransaction_NoNesting(t *testing.T) {
	device, _ := newTestDevice(t, 4)
	require.NoError(t, device.BeginTransaction())
	require.Error(t, device.BeginTransaction())
	require.NoError(t, device.Rollback())
}

func TestCommit_WithoutTransaction(t *testing.T) {
	device, _ := newTestDevice(t, 4)
	require.Error(t, device.Commit())
}

func TestWriteBlock_WrongSize(t *testing.T) {
	device, _ := newTestDevice(t, 4)
	require.NoError(t, device.BeginTransaction())
	err := device.WriteBlock(0, []byte{1, 2, 3})
	require.Error(t, err)
	require.NoError(t, device.Rollback())
}
