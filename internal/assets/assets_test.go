package assets

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
)

func checker(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
			} else {
				img.Set(x, y, color.NRGBA{R: 50, G: 60, B: 70, A: 255})
			}
		}
	}
	return img
}

func TestDecodeImageFormats(t *testing.T) {
	tests := []struct {
		name   string
		encode func(*bytes.Buffer, image.Image) error
	}{
		{"png", func(b *bytes.Buffer, m image.Image) error { return png.Encode(b, m) }},
		{"bmp", func(b *bytes.Buffer, m image.Image) error { return bmp.Encode(b, m) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.encode(&buf, checker(3, 2)); err != nil {
				t.Fatalf("encode: %v", err)
			}
			img, err := DecodeImage(&buf)
			if err != nil {
				t.Fatalf("DecodeImage: %v", err)
			}
			if img.Width != 3 || img.Height != 2 || len(img.Pixels) != 3*2*4 {
				t.Fatalf("got %dx%d with %d bytes", img.Width, img.Height, len(img.Pixels))
			}
			if got := img.Pixels[:4]; !bytes.Equal(got, []byte{255, 255, 255, 255}) {
				t.Errorf("pixel (0,0) = %v", got)
			}
			if got := img.Pixels[4:8]; !bytes.Equal(got, []byte{50, 60, 70, 255}) {
				t.Errorf("pixel (1,0) = %v", got)
			}
		})
	}
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	if _, err := DecodeImage(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestLoadImageMissingFile(t *testing.T) {
	if _, err := LoadImage(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Fatalf("expected an error for a missing texture")
	}
}

func TestFit(t *testing.T) {
	img := &Image{Width: 8, Height: 4, Pixels: make([]byte, 8*4*4)}
	if got := Fit(img, 16); got != img {
		t.Fatalf("image within bounds should be returned as is")
	}
	got := Fit(img, 4)
	if got.Width != 4 || got.Height != 2 || len(got.Pixels) != 4*2*4 {
		t.Fatalf("Fit(8x4, 4) = %dx%d (%d bytes)", got.Width, got.Height, len(got.Pixels))
	}
}

func TestInterleave(t *testing.T) {
	m := MeshData{
		Positions: []float32{1, 2, 3, 4, 5, 6},
		Normals:   []float32{0, 1, 0, 0, 0, 1},
		TexCoords: []float32{0.25, 0.75, 1, 0},
	}
	got := m.Interleave()
	if len(got) != 2*VertexFloats {
		t.Fatalf("len = %d, want %d", len(got), 2*VertexFloats)
	}
	second := got[VertexFloats:]
	want := []float32{4, 5, 6, 0, 0, 1, 0, 0, 0, 0, 0, 0, 1, 0}
	for i := range want {
		if second[i] != want[i] {
			t.Fatalf("second vertex = %v, want %v", second, want)
		}
	}
}

func TestCube(t *testing.T) {
	cube := Cube("cube")
	if len(cube.Meshes) != 1 || len(cube.Materials) != 0 {
		t.Fatalf("cube should have one mesh and no materials: %+v", cube)
	}
	mesh := cube.Meshes[0]
	if mesh.VertexCount() != 8 {
		t.Errorf("vertices = %d, want 8", mesh.VertexCount())
	}
	if len(mesh.Indices) != 36 {
		t.Errorf("indices = %d, want 36", len(mesh.Indices))
	}
	if mesh.MaterialIndex != NoMaterial {
		t.Errorf("material index = %d, want NoMaterial", mesh.MaterialIndex)
	}
	for _, idx := range mesh.Indices {
		if int(idx) >= mesh.VertexCount() {
			t.Fatalf("index %d out of range", idx)
		}
	}
}
