package layout

import (
	"github.com/boljen/go-bitmap"
)

// Bitmap wraps a raw, disk-resident bitmap region (inode bitmap or data
// bitmap) with the bit-packed, LSB-first addressing described in the data
// model: bit i lives at byte i/8, mask 1<<(i%8). github.com/boljen/go-bitmap
// already implements exactly this convention, the same library the teacher
// uses for its own free-block and free-inode bitmaps (see
// file_systems/unixv1/format.go and drivers/common/allocatormap.go).
type Bitmap struct {
	raw bitmap.Bitmap
}

// WrapBitmap treats raw as a Bitmap in place; mutations through the
// returned Bitmap are visible in raw.
func WrapBitmap(raw []byte) Bitmap {
	return Bitmap{raw: bitmap.Bitmap(raw)}
}

// Get reports whether bit i is set.
func (b Bitmap) Get(i int) bool {
	return b.raw.Get(i)
}

// Set sets or clears bit i.
func (b Bitmap) Set(i int, value bool) {
	b.raw.Set(i, value)
}

// Bytes returns the underlying byte slice backing the bitmap.
func (b Bitmap) Bytes() []byte {
	return []byte(b.raw)
}

// FirstFit scans bits [0, limit) for the first clear bit and returns its
// index. It returns (0, false) if every bit in range is set.
func (b Bitmap) FirstFit(limit int) (int, bool) {
	for i := 0; i < limit; i++ {
		if !b.raw.Get(i) {
			return i, true
		}
	}
	return 0, false
}
