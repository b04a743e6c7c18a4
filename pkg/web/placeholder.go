package web

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// placeholderScale is how much smaller placeholders are than their source.
const placeholderScale = 32

// GeneratePlaceholder writes a 1/32 downscale of the image at src to dst
// as a png and returns the size of the source. Images that are 32 pixels
// or less on a side are copied at full size.
func GeneratePlaceholder(src, dst string) (width, height int, err error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, 0, fmt.Errorf("placeholder: %w", err)
	}
	defer in.Close()
	img, _, err := image.Decode(in)
	if err != nil {
		return 0, 0, fmt.Errorf("placeholder %s: %w", src, err)
	}

	b := img.Bounds()
	width, height = b.Dx(), b.Dy()
	out := img
	if width > placeholderScale && height > placeholderScale {
		small := image.NewRGBA(image.Rect(0, 0, width/placeholderScale, height/placeholderScale))
		draw.ApproxBiLinear.Scale(small, small.Bounds(), img, b, draw.Src, nil)
		out = small
	}

	f, err := os.Create(dst)
	if err != nil {
		return 0, 0, fmt.Errorf("placeholder: %w", err)
	}
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(f, out); err != nil {
		f.Close()
		return 0, 0, fmt.Errorf("placeholder %s: %w", dst, err)
	}
	return width, height, f.Close()
}
