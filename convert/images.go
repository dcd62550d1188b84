package convert

import (
	"bytes"
	"image"
	"image/png"

	xdraw "golang.org/x/image/draw"
)

// maxEmbedWidth caps embedded page bitmaps at six inches on the page, which
// is 864 pixels at the default 144 DPI render scale. Wider renders are
// downscaled before encoding.
const maxEmbedWidth = 864

// encodePageImage prepares a rendered page for embedding: downscale to the
// width cap if needed, then encode as PNG. A nil return means the bitmap is
// empty or could not be encoded, and the embed is skipped.
func encodePageImage(img image.Image) []byte {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil
	}
	if b.Dx() > maxEmbedWidth {
		h := b.Dy() * maxEmbedWidth / b.Dx()
		if h < 1 {
			h = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, maxEmbedWidth, h))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
		img = dst
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}
