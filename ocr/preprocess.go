package ocr

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Preprocess selects the image preparation steps applied before recognition.
// Steps run in a fixed order — upscale, grayscale, contrast stretch,
// denoise/binarize — so output is reproducible for identical input. Contrast
// and Binarize imply Grayscale.
type Preprocess struct {
	// MinWidth upscales bitmaps narrower than this many pixels so glyph
	// x-height clears the recognizer's working range. Zero disables scaling.
	MinWidth int
	// Grayscale collapses color to luminance.
	Grayscale bool
	// Contrast stretches the luminance range to full scale.
	Contrast bool
	// Binarize blurs lightly and thresholds at the global mean, removing
	// scan noise and uneven background.
	Binarize bool
}

// DefaultPreprocess returns the preparation chain the pipeline ships with.
func DefaultPreprocess() Preprocess {
	return Preprocess{MinWidth: 1000, Grayscale: true, Contrast: true, Binarize: true}
}

// PrepareImage applies the configured preprocessing steps to img and returns
// the prepared bitmap. The input image is never modified.
func PrepareImage(img image.Image, p Preprocess) image.Image {
	if p.MinWidth > 0 && img.Bounds().Dx() > 0 && img.Bounds().Dx() < p.MinWidth {
		img = upscale(img, p.MinWidth)
	}
	if !p.Grayscale && !p.Contrast && !p.Binarize {
		return img
	}
	gray := toGray(img)
	if p.Contrast {
		stretchContrast(gray)
	}
	if p.Binarize {
		gray = binarize(gray)
	}
	return gray
}

func upscale(img image.Image, minWidth int) image.Image {
	b := img.Bounds()
	factor := float64(minWidth) / float64(b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, minWidth, int(float64(b.Dy())*factor)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		out := image.NewGray(g.Bounds())
		copy(out.Pix, g.Pix)
		return out
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

func stretchContrast(g *image.Gray) {
	min, max := uint8(255), uint8(0)
	for _, v := range g.Pix {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max <= min {
		return
	}
	scale := 255.0 / float64(max-min)
	for i, v := range g.Pix {
		g.Pix[i] = uint8(float64(v-min) * scale)
	}
}

// binarize applies a 3x3 box blur followed by a global mean threshold. The
// blur suppresses salt-and-pepper noise so isolated specks do not survive
// thresholding.
func binarize(g *image.Gray) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return g
	}
	blurred := image.NewGray(b)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum, n int
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					sum += int(g.Pix[ny*g.Stride+nx])
					n++
				}
			}
			blurred.Pix[y*blurred.Stride+x] = uint8(sum / n)
		}
	}

	var total uint64
	for _, v := range blurred.Pix {
		total += uint64(v)
	}
	mean := uint8(total / uint64(len(blurred.Pix)))
	for i, v := range blurred.Pix {
		if v > mean {
			blurred.Pix[i] = 255
		} else {
			blurred.Pix[i] = 0
		}
	}
	return blurred
}
