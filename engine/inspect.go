package engine

import "github.com/dargueta/ufs/layout"

// SuperBlock returns the image's current superblock. It's exported for
// read-only CLI collaborators like `bits` that need to print it directly.
func (e *Engine) SuperBlock() (layout.SuperBlock, error) {
	return e.readSuperBlock()
}

// ReadRawBitmaps returns the raw bytes of the inode and data bitmaps, in
// that order. It's exported for the `bits` CLI collaborator.
func (e *Engine) ReadRawBitmaps() (inodeBitmap []byte, dataBitmap []byte, err error) {
	sb, err := e.readSuperBlock()
	if err != nil {
		return nil, nil, err
	}
	inodeBitmap, err = e.readRegion(sb.InodeBitmapAddr, sb.InodeBitmapLen)
	if err != nil {
		return nil, nil, err
	}
	dataBitmap, err = e.readRegion(sb.DataBitmapAddr, sb.DataBitmapLen)
	if err != nil {
		return nil, nil, err
	}
	return inodeBitmap, dataBitmap, nil
}
