package mixing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func solidRGB(w, h int, r, g, b byte) []byte {
	buf := make([]byte, w*h*3)
	for i := 0; i < w*h; i++ {
		buf[i*3], buf[i*3+1], buf[i*3+2] = r, g, b
	}
	return buf
}

func pixelAt(c *canvas, x, y int) (byte, byte, byte) {
	off := (y*c.width + x) * 3
	return c.pix[off], c.pix[off+1], c.pix[off+2]
}

func TestResetCopiesBackground(t *testing.T) {
	c := newCanvas(4, 4)
	bg := solidRGB(4, 4, 10, 20, 30)
	c.reset(bg)

	r, g, b := pixelAt(c, 2, 2)
	require.Equal(t, byte(10), r)
	require.Equal(t, byte(20), g)
	require.Equal(t, byte(30), b)
}

func TestBlitDrawsAtOffset(t *testing.T) {
	c := newCanvas(10, 10)
	c.reset(solidRGB(10, 10, 0, 0, 0))

	overlay := solidRGB(2, 2, 255, 0, 0)
	c.blit(overlay, 2, 2, 3, 4)

	r, g, b := pixelAt(c, 3, 4)
	require.Equal(t, byte(255), r)
	require.Equal(t, byte(0), g)
	require.Equal(t, byte(0), b)

	// Outside the blit region, background is untouched.
	r, g, b = pixelAt(c, 0, 0)
	require.Equal(t, byte(0), r)
	require.Equal(t, byte(0), g)
	require.Equal(t, byte(0), b)
}

func TestBlitClipsOutOfBoundsRegion(t *testing.T) {
	c := newCanvas(4, 4)
	c.reset(solidRGB(4, 4, 1, 1, 1))

	overlay := solidRGB(4, 4, 9, 9, 9)
	// Placed so half the overlay falls off the right/bottom edge.
	c.blit(overlay, 4, 4, 2, 2)

	r, _, _ := pixelAt(c, 3, 3)
	require.Equal(t, byte(9), r)

	// In-bounds corner remains background since it's outside the overlay
	// after clipping took effect at the opposite edge.
	r, _, _ = pixelAt(c, 0, 0)
	require.Equal(t, byte(1), r)
}

func TestLaterBlitDrawsOverEarlier(t *testing.T) {
	c := newCanvas(4, 4)
	c.reset(solidRGB(4, 4, 0, 0, 0))

	c.blit(solidRGB(4, 4, 1, 0, 0), 4, 4, 0, 0)
	c.blit(solidRGB(4, 4, 2, 0, 0), 4, 4, 0, 0)

	r, _, _ := pixelAt(c, 1, 1)
	require.Equal(t, byte(2), r)
}
