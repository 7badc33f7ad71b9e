package render

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"
)

var pbrWrite = regexp.MustCompile(`outPBR\s*=\s*vec4\(\s*([0-9.]+)\s*,`)

// The lighting pass scales ambient light by the occlusion the geometry pass
// stores in the red channel of the PBR attachment.
func TestGeometryShaderWritesOcclusion(t *testing.T) {
	src, err := os.ReadFile(filepath.Join("..", "..", "resources", "shaders", "geometry_fragment.glsl"))
	if err != nil {
		t.Fatal(err)
	}
	m := pbrWrite.FindSubmatch(src)
	if m == nil {
		t.Fatal("no outPBR write found")
	}
	ao, err := strconv.ParseFloat(string(m[1]), 32)
	if err != nil {
		t.Fatal(err)
	}
	if ao != 1 {
		t.Errorf("occlusion written as %v, want 1", ao)
	}
}
