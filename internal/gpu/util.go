package gpu

import (
	"fmt"
	"strings"
	"unsafe"
)

// safeStrings null-terminates names handed to the C API.
func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		if !strings.HasSuffix(s, "\x00") {
			s += "\x00"
		}
		out[i] = s
	}
	return out
}

func clamp(val, min, max uint64) uint64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// AlignUp rounds size up to a multiple of alignment. A zero alignment leaves
// size unchanged.
func AlignUp(size, alignment uint64) uint64 {
	if alignment == 0 {
		return size
	}
	return (size + alignment - 1) / alignment * alignment
}

// Float32Bytes views a float32 slice as bytes without copying.
func Float32Bytes(data []float32) []byte {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)
}

// Uint32Bytes views a uint32 slice as bytes without copying.
func Uint32Bytes(data []uint32) []byte {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)
}

func bytesToUint32(data []byte) ([]uint32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("shader code length %d is not a multiple of 4", len(data))
	}
	out := make([]uint32, len(data)/4)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), len(data)), data)
	return out, nil
}

// copyToMemory copies src into mapped device memory.
func copyToMemory(dst unsafe.Pointer, src []byte) {
	if len(src) == 0 {
		return
	}
	copy(unsafe.Slice((*byte)(dst), len(src)), src)
}
