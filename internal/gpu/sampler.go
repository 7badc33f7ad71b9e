package gpu

/*
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/vulkan-go/vulkan"
)

type SamplerInfo struct {
	AddressMode vulkan.SamplerAddressMode
	BorderColor vulkan.BorderColor
	Anisotropy  bool
}

// AttachmentSampler reads render targets without wrapping.
var AttachmentSampler = SamplerInfo{
	AddressMode: vulkan.SamplerAddressModeClampToBorder,
	BorderColor: vulkan.BorderColorFloatOpaqueWhite,
}

// TextureSampler repeats material textures.
var TextureSampler = SamplerInfo{
	AddressMode: vulkan.SamplerAddressModeRepeat,
	BorderColor: vulkan.BorderColorIntOpaqueBlack,
	Anisotropy:  true,
}

const maxAnisotropy = 16

type Sampler struct {
	device *Device
	Handle vulkan.Sampler
}

// NewSampler creates a linear sampler. Anisotropy is only enabled when the
// device supports it.
func NewSampler(device *Device, info SamplerInfo) (*Sampler, error) {
	anisotropy := info.Anisotropy && device.Physical.Features.SamplerAnisotropy == vulkan.True
	samplerInfo := vulkan.SamplerCreateInfo{
		SType:                   vulkan.StructureTypeSamplerCreateInfo,
		MagFilter:               vulkan.FilterLinear,
		MinFilter:               vulkan.FilterLinear,
		AddressModeU:            info.AddressMode,
		AddressModeV:            info.AddressMode,
		AddressModeW:            info.AddressMode,
		AnisotropyEnable:        vulkan.False,
		MaxAnisotropy:           1.0,
		BorderColor:             info.BorderColor,
		UnnormalizedCoordinates: vulkan.False,
		CompareEnable:           vulkan.False,
		CompareOp:               vulkan.CompareOpAlways,
		MipmapMode:              vulkan.SamplerMipmapModeLinear,
	}
	if anisotropy {
		samplerInfo.AnisotropyEnable = vulkan.True
		samplerInfo.MaxAnisotropy = maxAnisotropy
	}

	// The handle is written from C, so it lives in C memory.
	var zero vulkan.Sampler
	samplerOut := (*vulkan.Sampler)(C.malloc(C.size_t(unsafe.Sizeof(zero))))
	if samplerOut == nil {
		return nil, fmt.Errorf("allocate sampler handle")
	}
	defer C.free(unsafe.Pointer(samplerOut))

	if res := vulkan.CreateSampler(device.Handle, &samplerInfo, nil, samplerOut); res != vulkan.Success {
		return nil, fmt.Errorf("create sampler: %w", vulkan.Error(res))
	}
	return &Sampler{device: device, Handle: *samplerOut}, nil
}

func (s *Sampler) Destroy() {
	if s.Handle != vulkan.Sampler(vulkan.NullHandle) {
		vulkan.DestroySampler(s.device.Handle, s.Handle, nil)
		s.Handle = vulkan.Sampler(vulkan.NullHandle)
	}
}
