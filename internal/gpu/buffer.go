package gpu

import (
	"fmt"
	"unsafe"

	"github.com/vulkan-go/vulkan"
)

const hostMemory = vulkan.MemoryPropertyHostVisibleBit | vulkan.MemoryPropertyHostCoherentBit

type Buffer struct {
	device *Device
	Handle vulkan.Buffer
	Memory vulkan.DeviceMemory
	// Size is the requested size; the allocation may be larger.
	Size   uint64
	mapped unsafe.Pointer
}

func NewBuffer(device *Device, size uint64, usage vulkan.BufferUsageFlagBits, properties vulkan.MemoryPropertyFlagBits) (*Buffer, error) {
	bufferInfo := vulkan.BufferCreateInfo{
		SType:       vulkan.StructureTypeBufferCreateInfo,
		Size:        vulkan.DeviceSize(size),
		Usage:       vulkan.BufferUsageFlags(usage),
		SharingMode: vulkan.SharingModeExclusive,
	}
	b := &Buffer{device: device, Size: size}
	if res := vulkan.CreateBuffer(device.Handle, &bufferInfo, nil, &b.Handle); res != vulkan.Success {
		return nil, fmt.Errorf("create buffer: %w", vulkan.Error(res))
	}

	var memReq vulkan.MemoryRequirements
	vulkan.GetBufferMemoryRequirements(device.Handle, b.Handle, &memReq)
	memReq.Deref()
	memType, err := device.Physical.FindMemoryType(memReq.MemoryTypeBits, properties)
	if err != nil {
		vulkan.DestroyBuffer(device.Handle, b.Handle, nil)
		return nil, fmt.Errorf("buffer memory: %w", err)
	}
	allocInfo := vulkan.MemoryAllocateInfo{
		SType:           vulkan.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: memType,
	}
	if res := vulkan.AllocateMemory(device.Handle, &allocInfo, nil, &b.Memory); res != vulkan.Success {
		vulkan.DestroyBuffer(device.Handle, b.Handle, nil)
		return nil, fmt.Errorf("allocate buffer memory: %w", vulkan.Error(res))
	}
	if res := vulkan.BindBufferMemory(device.Handle, b.Handle, b.Memory, 0); res != vulkan.Success {
		b.Destroy()
		return nil, fmt.Errorf("bind buffer memory: %w", vulkan.Error(res))
	}
	return b, nil
}

// NewHostBuffer creates a host visible, coherent buffer.
func NewHostBuffer(device *Device, size uint64, usage vulkan.BufferUsageFlagBits) (*Buffer, error) {
	return NewBuffer(device, size, usage, hostMemory)
}

// NewDeviceBuffer uploads data into device local memory through a staging
// buffer.
func NewDeviceBuffer(device *Device, pool *CommandPool, queue Queue, usage vulkan.BufferUsageFlagBits, data []byte) (*Buffer, error) {
	size := uint64(len(data))
	staging, err := NewHostBuffer(device, size, vulkan.BufferUsageTransferSrcBit)
	if err != nil {
		return nil, fmt.Errorf("staging buffer: %w", err)
	}
	defer staging.Destroy()
	if err := staging.Write(0, data); err != nil {
		return nil, err
	}

	dst, err := NewBuffer(device, size, usage|vulkan.BufferUsageTransferDstBit, vulkan.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return nil, err
	}
	err = RunOneTime(pool, queue, func(cmd *CommandBuffer) error {
		region := vulkan.BufferCopy{Size: vulkan.DeviceSize(size)}
		vulkan.CmdCopyBuffer(cmd.Handle, staging.Handle, dst.Handle, 1, []vulkan.BufferCopy{region})
		return nil
	})
	if err != nil {
		dst.Destroy()
		return nil, fmt.Errorf("copy staging buffer: %w", err)
	}
	return dst, nil
}

// Map maps the whole buffer. Mapping an already mapped buffer returns the
// existing pointer.
func (b *Buffer) Map() (unsafe.Pointer, error) {
	if b.mapped != nil {
		return b.mapped, nil
	}
	var data unsafe.Pointer
	if res := vulkan.MapMemory(b.device.Handle, b.Memory, 0, vulkan.DeviceSize(b.Size), 0, &data); res != vulkan.Success {
		return nil, fmt.Errorf("map buffer: %w", vulkan.Error(res))
	}
	b.mapped = data
	return data, nil
}

func (b *Buffer) Unmap() {
	if b.mapped == nil {
		return
	}
	vulkan.UnmapMemory(b.device.Handle, b.Memory)
	b.mapped = nil
}

// Write copies data into the buffer at offset. The buffer must be host
// visible.
func (b *Buffer) Write(offset uint64, data []byte) error {
	if offset+uint64(len(data)) > b.Size {
		return fmt.Errorf("write %d bytes at %d overflows buffer of %d", len(data), offset, b.Size)
	}
	wasMapped := b.mapped != nil
	ptr, err := b.Map()
	if err != nil {
		return err
	}
	copyToMemory(unsafe.Add(ptr, offset), data)
	if !wasMapped {
		b.Unmap()
	}
	return nil
}

func (b *Buffer) Destroy() {
	b.Unmap()
	if b.Handle != vulkan.Buffer(vulkan.NullHandle) {
		vulkan.DestroyBuffer(b.device.Handle, b.Handle, nil)
		b.Handle = vulkan.Buffer(vulkan.NullHandle)
	}
	if b.Memory != vulkan.DeviceMemory(vulkan.NullHandle) {
		vulkan.FreeMemory(b.device.Handle, b.Memory, nil)
		b.Memory = vulkan.DeviceMemory(vulkan.NullHandle)
	}
}
