// Package imageio holds the handful of lines every ufs CLI collaborator
// needs to open an image file and wrap it as a block.Device, so each
// command in cmd/ stays focused on its own argument parsing and output
// formatting, matching the thin-main style of the original ds3*.cpp tools.
package imageio

import (
	"os"

	"github.com/dargueta/ufs/block"
	"github.com/dargueta/ufs/layout"
)

// OpenReadOnly opens path for reading and wraps it as a block.Device sized
// from the file's length.
func OpenReadOnly(path string) (*block.Device, *os.File, error) {
	return open(path, os.O_RDONLY)
}

// OpenReadWrite opens path for reading and writing, for CLI collaborators
// that bracket a mutating engine call in a transaction.
func OpenReadWrite(path string) (*block.Device, *os.File, error) {
	return open(path, os.O_RDWR)
}

func open(path string, flag int) (*block.Device, *os.File, error) {
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	totalBlocks := uint(info.Size()) / layout.BlockSize
	return block.New(f, layout.BlockSize, totalBlocks), f, nil
}
