package gpu

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vulkan-go/vulkan"
)

func TestAlignUp(t *testing.T) {
	tests := []struct{ size, align, want uint64 }{
		{48, 256, 256},
		{256, 256, 256},
		{257, 256, 512},
		{48, 16, 48},
		{48, 0, 48},
		{0, 64, 0},
	}
	for _, tt := range tests {
		if got := AlignUp(tt.size, tt.align); got != tt.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", tt.size, tt.align, got, tt.want)
		}
	}
}

func TestBytesToUint32(t *testing.T) {
	words, err := bytesToUint32([]byte{0x03, 0x02, 0x23, 0x07, 1, 0, 0, 0})
	if err != nil {
		t.Fatalf("bytesToUint32: %v", err)
	}
	if len(words) != 2 || words[0] != 0x07230203 || words[1] != 1 {
		t.Fatalf("words = %#x", words)
	}
	if _, err := bytesToUint32([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for unaligned code")
	}
	if _, err := bytesToUint32(nil); err == nil {
		t.Fatal("expected error for empty code")
	}
}

func TestFloat32Bytes(t *testing.T) {
	b := Float32Bytes([]float32{1, -2})
	if len(b) != 8 {
		t.Fatalf("len = %d", len(b))
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(b[4:])); got != -2 {
		t.Fatalf("second float = %v", got)
	}
	if Float32Bytes(nil) != nil {
		t.Fatal("nil slice should give nil bytes")
	}
}

func TestLayoutTransition(t *testing.T) {
	tests := []struct {
		name     string
		from, to vulkan.ImageLayout
		wantErr  bool
		dst      vulkan.AccessFlags
	}{
		{"upload", vulkan.ImageLayoutUndefined, vulkan.ImageLayoutTransferDstOptimal, false, vulkan.AccessFlags(vulkan.AccessTransferWriteBit)},
		{"sample", vulkan.ImageLayoutTransferDstOptimal, vulkan.ImageLayoutShaderReadOnlyOptimal, false, vulkan.AccessFlags(vulkan.AccessShaderReadBit)},
		{"reverse", vulkan.ImageLayoutShaderReadOnlyOptimal, vulkan.ImageLayoutTransferDstOptimal, true, 0},
		{"skip", vulkan.ImageLayoutUndefined, vulkan.ImageLayoutShaderReadOnlyOptimal, true, 0},
	}
	for _, tt := range tests {
		b, err := layoutTransition(tt.from, tt.to)
		if tt.wantErr {
			if !errors.Is(err, ErrUnsupportedLayoutTransition) {
				t.Errorf("%s: err = %v", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if b.dstAccess != tt.dst {
			t.Errorf("%s: dst access = %d, want %d", tt.name, b.dstAccess, tt.dst)
		}
	}
}

func TestShaderStage(t *testing.T) {
	tests := []struct {
		path    string
		want    vulkan.ShaderStageFlagBits
		wantErr bool
	}{
		{"resources/shaders/geometry_vertex.glsl", vulkan.ShaderStageVertexBit, false},
		{"resources/shaders/shadow_geometry.glsl", vulkan.ShaderStageGeometryBit, false},
		{"lighting_fragment.glsl.spv", vulkan.ShaderStageFragmentBit, false},
		{"overlay.glsl", 0, true},
	}
	for _, tt := range tests {
		got, err := ShaderStage(tt.path)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ShaderStage(%q) = %d, %v", tt.path, got, err)
		}
	}
}

func TestShaderStale(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "geometry_vertex.glsl")
	dst := SPIRVPath(src)
	if err := os.WriteFile(src, []byte("#version 450\nvoid main() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	stale, err := shaderStale(src, dst)
	if err != nil || !stale {
		t.Fatalf("missing spv: stale = %v, err = %v", stale, err)
	}

	if err := os.WriteFile(dst, []byte{3, 2, 35, 7}, 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(src, old, old); err != nil {
		t.Fatal(err)
	}
	if stale, err = shaderStale(src, dst); err != nil || stale {
		t.Fatalf("fresh spv: stale = %v, err = %v", stale, err)
	}

	newer := time.Now().Add(time.Hour)
	if err := os.Chtimes(src, newer, newer); err != nil {
		t.Fatal(err)
	}
	if stale, err = shaderStale(src, dst); err != nil || !stale {
		t.Fatalf("edited source: stale = %v, err = %v", stale, err)
	}

	if _, err := shaderStale(filepath.Join(dir, "missing.glsl"), dst); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestSpecialization(t *testing.T) {
	spec := new(Specialization).Int(0, 3).Bool(1, true).Float(2, 0.5).Bool(3, false)
	if len(spec.entries) != 4 || len(spec.data) != 16 {
		t.Fatalf("entries = %d, data = %d bytes", len(spec.entries), len(spec.data))
	}
	for i, e := range spec.entries {
		if e.ConstantID != uint32(i) || e.Offset != uint32(i*4) {
			t.Errorf("entry %d = %+v", i, e)
		}
	}
	if got := binary.LittleEndian.Uint32(spec.data[0:]); got != 3 {
		t.Errorf("int constant = %d", got)
	}
	if got := binary.LittleEndian.Uint32(spec.data[4:]); got != 1 {
		t.Errorf("bool constant = %d", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(spec.data[8:])); got != 0.5 {
		t.Errorf("float constant = %v", got)
	}

	var none *Specialization
	if none.info() != nil {
		t.Error("nil specialization should produce no info")
	}
}

func TestVertexLayout(t *testing.T) {
	l := MeshVertexLayout()
	if l.Bindings[0].Stride != 56 {
		t.Fatalf("stride = %d", l.Bindings[0].Stride)
	}
	last := l.Attributes[len(l.Attributes)-1]
	if last.Offset+8 != VertexStride {
		t.Fatalf("texcoord ends at %d", last.Offset+8)
	}
	if s := EmptyVertexLayout().state(); s.VertexBindingDescriptionCount != 0 || s.VertexAttributeDescriptionCount != 0 {
		t.Fatalf("empty layout has inputs: %+v", s)
	}
}

func TestLayoutBindings(t *testing.T) {
	array := SamplerLayout(3, vulkan.ShaderStageFragmentBit).vulkanBindings()
	if len(array) != 1 || array[0].Binding != 0 || array[0].DescriptorCount != 3 {
		t.Errorf("array layout = %+v", array)
	}
	split := AttachmentLayout(5, vulkan.ShaderStageFragmentBit).vulkanBindings()
	if len(split) != 5 {
		t.Fatalf("split layout has %d bindings, want 5", len(split))
	}
	for i, b := range split {
		if b.Binding != uint32(i) || b.DescriptorCount != 1 || b.DescriptorType != vulkan.DescriptorTypeCombinedImageSampler {
			t.Errorf("binding %d = %+v", i, b)
		}
	}
}

func TestDepthClampEnable(t *testing.T) {
	tests := []struct {
		requested, supported bool
		want                 vulkan.Bool32
	}{
		{false, false, vulkan.False},
		{true, false, vulkan.False},
		{false, true, vulkan.False},
		{true, true, vulkan.True},
	}
	for _, tt := range tests {
		if got := depthClampEnable(tt.requested, tt.supported); got != tt.want {
			t.Errorf("depthClampEnable(%v, %v) = %d, want %d", tt.requested, tt.supported, got, tt.want)
		}
	}
}
