package assets

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image is tightly packed 8-bit RGBA.
type Image struct {
	Width  int
	Height int
	Pixels []byte
}

func LoadImage(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open texture: %w", err)
	}
	defer f.Close()
	img, err := DecodeImage(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func DecodeImage(r io.Reader) (*Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return toRGBA(src), nil
}

// Fit scales img down so neither side exceeds maxDim. Smaller images are
// returned unchanged.
func Fit(img *Image, maxDim int) *Image {
	if maxDim <= 0 || (img.Width <= maxDim && img.Height <= maxDim) {
		return img
	}
	w, h := maxDim, maxDim
	if img.Width > img.Height {
		h = max(1, img.Height*maxDim/img.Width)
	} else {
		w = max(1, img.Width*maxDim/img.Height)
	}
	src := &image.RGBA{Pix: img.Pixels, Stride: img.Width * 4, Rect: image.Rect(0, 0, img.Width, img.Height)}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return &Image{Width: w, Height: h, Pixels: dst.Pix}
}

func toRGBA(src image.Image) *Image {
	b := src.Bounds()
	if rgba, ok := src.(*image.RGBA); ok && rgba.Stride == b.Dx()*4 && b.Min == (image.Point{}) {
		return &Image{Width: b.Dx(), Height: b.Dy(), Pixels: rgba.Pix}
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(dst, image.Point{}, src, b, draw.Src, nil)
	return &Image{Width: b.Dx(), Height: b.Dy(), Pixels: dst.Pix}
}
