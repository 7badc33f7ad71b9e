package gpu

import (
	"fmt"

	"github.com/vulkan-go/vulkan"
)

type Fence struct {
	device *Device
	Handle vulkan.Fence
}

func NewFence(device *Device, signaled bool) (*Fence, error) {
	fenceInfo := vulkan.FenceCreateInfo{
		SType: vulkan.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceInfo.Flags = vulkan.FenceCreateFlags(vulkan.FenceCreateSignaledBit)
	}
	f := &Fence{device: device}
	if res := vulkan.CreateFence(device.Handle, &fenceInfo, nil, &f.Handle); res != vulkan.Success {
		return nil, fmt.Errorf("create fence: %w", vulkan.Error(res))
	}
	return f, nil
}

// Wait blocks until the fence is signaled. A GPU hang is not recoverable so
// there is no timeout.
func (f *Fence) Wait() error {
	if res := vulkan.WaitForFences(f.device.Handle, 1, []vulkan.Fence{f.Handle}, vulkan.True, vulkan.MaxUint64); res != vulkan.Success {
		return fmt.Errorf("wait for fence: %w", vulkan.Error(res))
	}
	return nil
}

func (f *Fence) Reset() error {
	if res := vulkan.ResetFences(f.device.Handle, 1, []vulkan.Fence{f.Handle}); res != vulkan.Success {
		return fmt.Errorf("reset fence: %w", vulkan.Error(res))
	}
	return nil
}

func (f *Fence) Destroy() {
	if f.Handle != vulkan.Fence(vulkan.NullHandle) {
		vulkan.DestroyFence(f.device.Handle, f.Handle, nil)
		f.Handle = vulkan.Fence(vulkan.NullHandle)
	}
}

type Semaphore struct {
	device *Device
	Handle vulkan.Semaphore
}

func NewSemaphore(device *Device) (*Semaphore, error) {
	semInfo := vulkan.SemaphoreCreateInfo{
		SType: vulkan.StructureTypeSemaphoreCreateInfo,
	}
	s := &Semaphore{device: device}
	if res := vulkan.CreateSemaphore(device.Handle, &semInfo, nil, &s.Handle); res != vulkan.Success {
		return nil, fmt.Errorf("create semaphore: %w", vulkan.Error(res))
	}
	return s, nil
}

func (s *Semaphore) Destroy() {
	if s.Handle != vulkan.Semaphore(vulkan.NullHandle) {
		vulkan.DestroySemaphore(s.device.Handle, s.Handle, nil)
		s.Handle = vulkan.Semaphore(vulkan.NullHandle)
	}
}

func semaphoreHandles(list []*Semaphore) []vulkan.Semaphore {
	if len(list) == 0 {
		return nil
	}
	out := make([]vulkan.Semaphore, len(list))
	for i, s := range list {
		out[i] = s.Handle
	}
	return out
}

// SyncSemaphores orders the GPU work of one frame slot.
type SyncSemaphores struct {
	ImageAcquired    *Semaphore
	GeometryComplete *Semaphore
	RenderComplete   *Semaphore
}

func newSyncSemaphores(device *Device) (SyncSemaphores, error) {
	var s SyncSemaphores
	var err error
	if s.ImageAcquired, err = NewSemaphore(device); err != nil {
		return s, fmt.Errorf("image acquired: %w", err)
	}
	if s.GeometryComplete, err = NewSemaphore(device); err != nil {
		s.Destroy()
		return s, fmt.Errorf("geometry complete: %w", err)
	}
	if s.RenderComplete, err = NewSemaphore(device); err != nil {
		s.Destroy()
		return s, fmt.Errorf("render complete: %w", err)
	}
	return s, nil
}

func (s SyncSemaphores) Destroy() {
	for _, sem := range []*Semaphore{s.ImageAcquired, s.GeometryComplete, s.RenderComplete} {
		if sem != nil {
			sem.Destroy()
		}
	}
}
