package screenshot

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// WritePNG encodes an RGB24 frame buffer to a PNG file at path. PNG encoding
// is stdlib territory (image/png) deliberately: it is the output-file
// format, not the decode/scale work the codec-library boundary excludes.
func WritePNG(path string, width, height int, rgb24 []byte) error {
	if len(rgb24) != width*height*3 {
		return fmt.Errorf("screenshot: frame buffer size %d does not match %dx%d rgb24", len(rgb24), width, height)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			srcOff := (y*width + x) * 3
			dstOff := img.PixOffset(x, y)
			img.Pix[dstOff+0] = rgb24[srcOff+0]
			img.Pix[dstOff+1] = rgb24[srcOff+1]
			img.Pix[dstOff+2] = rgb24[srcOff+2]
			img.Pix[dstOff+3] = 0xFF
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("screenshot: create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("screenshot: create file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("screenshot: encode png: %w", err)
	}
	return nil
}
