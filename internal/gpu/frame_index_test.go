package gpu

import (
	"errors"
	"math"
	"testing"

	"github.com/vulkan-go/vulkan"
)

func TestFrameIndexCycles(t *testing.T) {
	f := NewFrameIndex(3)
	want := []int{1, 2, 0, 1, 2, 0}
	for i, w := range want {
		f.Advance()
		if f.Current() != w {
			t.Fatalf("advance %d: current = %d, want %d", i, f.Current(), w)
		}
	}
	f.Advance()
	f.Reset()
	if f.Current() != 0 {
		t.Fatalf("reset: current = %d", f.Current())
	}
}

func TestFrameIndexZeroCount(t *testing.T) {
	var f FrameIndex
	f.Advance()
	if f.Current() != 0 {
		t.Fatalf("zero count advanced to %d", f.Current())
	}
}

func TestAcquireStatus(t *testing.T) {
	tests := []struct {
		res       vulkan.Result
		outOfDate bool
		wantErr   bool
	}{
		{vulkan.Success, false, false},
		{vulkan.Suboptimal, false, false},
		{vulkan.ErrorOutOfDate, true, false},
		{vulkan.ErrorDeviceLost, false, true},
	}
	for _, tt := range tests {
		outOfDate, err := acquireStatus(tt.res)
		if outOfDate != tt.outOfDate || (err != nil) != tt.wantErr {
			t.Errorf("acquireStatus(%d) = %v, %v", tt.res, outOfDate, err)
		}
	}
}

func TestPresentStatus(t *testing.T) {
	tests := []struct {
		res         vulkan.Result
		needsResize bool
		wantErr     bool
	}{
		{vulkan.Success, false, false},
		{vulkan.Suboptimal, false, false},
		{vulkan.ErrorOutOfDate, true, false},
		{vulkan.ErrorSurfaceLost, false, true},
	}
	for _, tt := range tests {
		needsResize, err := presentStatus(tt.res)
		if needsResize != tt.needsResize || (err != nil) != tt.wantErr {
			t.Errorf("presentStatus(%d) = %v, %v", tt.res, needsResize, err)
		}
	}
}

func TestChooseSwapPresentMode(t *testing.T) {
	all := []vulkan.PresentMode{vulkan.PresentModeFifo, vulkan.PresentModeImmediate, vulkan.PresentModeMailbox}
	tests := []struct {
		name      string
		available []vulkan.PresentMode
		vsync     bool
		want      vulkan.PresentMode
	}{
		{"vsync", all, true, vulkan.PresentModeFifo},
		{"mailbox preferred", all, false, vulkan.PresentModeMailbox},
		{"immediate fallback", []vulkan.PresentMode{vulkan.PresentModeFifo, vulkan.PresentModeImmediate}, false, vulkan.PresentModeImmediate},
		{"fifo only", []vulkan.PresentMode{vulkan.PresentModeFifo}, false, vulkan.PresentModeFifo},
	}
	for _, tt := range tests {
		if got := chooseSwapPresentMode(tt.available, tt.vsync); got != tt.want {
			t.Errorf("%s: got %d want %d", tt.name, got, tt.want)
		}
	}
}

func TestChooseImageCount(t *testing.T) {
	tests := []struct {
		min, max  uint32
		requested int
		want      uint32
	}{
		{2, 8, 3, 3},
		{2, 8, 1, 2},
		{2, 3, 5, 3},
		{2, 0, 5, 5},
	}
	for _, tt := range tests {
		if got := chooseImageCount(tt.min, tt.max, tt.requested); got != tt.want {
			t.Errorf("chooseImageCount(%d, %d, %d) = %d, want %d", tt.min, tt.max, tt.requested, got, tt.want)
		}
	}
}

type fixedSize struct{ w, h int }

func (f fixedSize) Width() int  { return f.w }
func (f fixedSize) Height() int { return f.h }

func TestChooseSwapExtent(t *testing.T) {
	caps := vulkan.SurfaceCapabilities{
		CurrentExtent:  vulkan.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
		MinImageExtent: vulkan.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vulkan.Extent2D{Width: 1920, Height: 1080},
	}
	got := chooseSwapExtent(caps, fixedSize{4000, 600})
	if got.Width != 1920 || got.Height != 600 {
		t.Fatalf("clamped extent = %dx%d", got.Width, got.Height)
	}

	caps.CurrentExtent = vulkan.Extent2D{Width: 800, Height: 600}
	got = chooseSwapExtent(caps, fixedSize{1, 1})
	if got.Width != 800 || got.Height != 600 {
		t.Fatalf("current extent not used: %dx%d", got.Width, got.Height)
	}
}

func TestPickDevice(t *testing.T) {
	candidates := []deviceCandidate{
		{name: "llvmpipe", deviceType: vulkan.PhysicalDeviceTypeCpu, usable: true, geometryShader: true},
		{name: "Intel", deviceType: vulkan.PhysicalDeviceTypeIntegratedGpu, usable: true, geometryShader: true},
		{name: "NVIDIA", deviceType: vulkan.PhysicalDeviceTypeDiscreteGpu, usable: true, geometryShader: true},
		{name: "NoGeom", deviceType: vulkan.PhysicalDeviceTypeDiscreteGpu, usable: true, geometryShader: false},
		{name: "NoPresent", deviceType: vulkan.PhysicalDeviceTypeDiscreteGpu, usable: false, geometryShader: true},
	}
	tests := []struct {
		preferred string
		want      int
	}{
		{"", 2},
		{"Intel", 1},
		{"missing", 2},
		{"NoGeom", 2},
		{"NoPresent", 2},
	}
	for _, tt := range tests {
		got, err := pickDevice(candidates, tt.preferred)
		if err != nil || got != tt.want {
			t.Errorf("pickDevice(%q) = %d, %v, want %d", tt.preferred, got, err, tt.want)
		}
	}

	_, err := pickDevice(candidates[3:], "")
	if !errors.Is(err, ErrNoSuitableDevice) {
		t.Fatalf("no usable device: err = %v", err)
	}
}

func TestMemoryTypeIndex(t *testing.T) {
	host := vulkan.MemoryPropertyFlags(hostMemory)
	local := vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyDeviceLocalBit)
	types := []vulkan.MemoryPropertyFlags{local, host, local | host}

	idx, err := memoryTypeIndex(types, 0b111, host)
	if err != nil || idx != 1 {
		t.Fatalf("host: %d, %v", idx, err)
	}
	idx, err = memoryTypeIndex(types, 0b100, host)
	if err != nil || idx != 2 {
		t.Fatalf("filtered host: %d, %v", idx, err)
	}
	if _, err := memoryTypeIndex(types, 0b001, host); !errors.Is(err, ErrNoMemoryType) {
		t.Fatalf("expected ErrNoMemoryType, got %v", err)
	}
}
