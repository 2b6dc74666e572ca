// Package testutil builds in-memory ufs images for tests. It plays the
// same role as the teacher's testing/images.go: wrapping a plain []byte as
// an io.ReadWriteSeeker via bytesextra so tests never touch the real
// filesystem, just with a freshly built image instead of a decompressed
// fixture.
package testutil

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/dargueta/ufs/block"
	"github.com/dargueta/ufs/layout"
	"github.com/dargueta/ufs/mkfs"
)

// NewImage builds a fresh image with totalBlocks blocks and numInodes
// inodes, and returns it as a seekable in-memory stream.
func NewImage(t *testing.T, totalBlocks, numInodes uint32) io.ReadWriteSeeker {
	t.Helper()

	buf := make([]byte, uint(totalBlocks)*layout.BlockSize)
	stream := bytesextra.NewReadWriteSeeker(buf)

	err := mkfs.WriteImage(stream, mkfs.Options{TotalBlocks: totalBlocks, NumInodes: numInodes})
	require.NoError(t, err)

	_, err = stream.Seek(0, io.SeekStart)
	require.NoError(t, err)

	return stream
}

// NewDevice builds a fresh image and wraps it as a block.Device.
func NewDevice(t *testing.T, totalBlocks, numInodes uint32) *block.Device {
	t.Helper()
	stream := NewImage(t, totalBlocks, numInodes)
	return block.New(stream, layout.BlockSize, uint(totalBlocks))
}

// WithTransaction runs fn inside a transaction on device, committing on
// success and rolling back (then failing the test) on error.
func WithTransaction(t *testing.T, device *block.Device, fn func() error) {
	t.Helper()
	require.NoError(t, device.BeginTransaction())
	if err := fn(); err != nil {
		require.NoError(t, device.Rollback())
		t.Fatalf("transaction failed: %s", err)
		return
	}
	require.NoError(t, device.Commit())
}
