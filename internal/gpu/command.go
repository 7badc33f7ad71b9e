package gpu

import (
	"fmt"

	"github.com/vulkan-go/vulkan"
)

type CommandPool struct {
	device *Device
	Handle vulkan.CommandPool
}

// NewCommandPool creates a pool whose buffers can be reset individually.
func NewCommandPool(device *Device, queueFamily uint32) (*CommandPool, error) {
	poolInfo := vulkan.CommandPoolCreateInfo{
		SType:            vulkan.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: queueFamily,
		Flags:            vulkan.CommandPoolCreateFlags(vulkan.CommandPoolCreateResetCommandBufferBit),
	}
	p := &CommandPool{device: device}
	if res := vulkan.CreateCommandPool(device.Handle, &poolInfo, nil, &p.Handle); res != vulkan.Success {
		return nil, fmt.Errorf("create command pool: %w", vulkan.Error(res))
	}
	return p, nil
}

func (p *CommandPool) Destroy() {
	if p.Handle != vulkan.CommandPool(vulkan.NullHandle) {
		vulkan.DestroyCommandPool(p.device.Handle, p.Handle, nil)
		p.Handle = vulkan.CommandPool(vulkan.NullHandle)
	}
}

type CommandBuffer struct {
	pool   *CommandPool
	Handle vulkan.CommandBuffer
}

func NewCommandBuffer(pool *CommandPool) (*CommandBuffer, error) {
	allocInfo := vulkan.CommandBufferAllocateInfo{
		SType:              vulkan.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool.Handle,
		Level:              vulkan.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	handles := make([]vulkan.CommandBuffer, 1)
	if res := vulkan.AllocateCommandBuffers(pool.device.Handle, &allocInfo, handles); res != vulkan.Success {
		return nil, fmt.Errorf("allocate command buffer: %w", vulkan.Error(res))
	}
	return &CommandBuffer{pool: pool, Handle: handles[0]}, nil
}

// Begin starts a recording that may be submitted many times.
func (c *CommandBuffer) Begin() error {
	return c.begin(0)
}

// BeginOneTime starts a recording that is submitted once.
func (c *CommandBuffer) BeginOneTime() error {
	return c.begin(vulkan.CommandBufferUsageFlags(vulkan.CommandBufferUsageOneTimeSubmitBit))
}

func (c *CommandBuffer) begin(flags vulkan.CommandBufferUsageFlags) error {
	beginInfo := vulkan.CommandBufferBeginInfo{
		SType: vulkan.StructureTypeCommandBufferBeginInfo,
		Flags: flags,
	}
	if res := vulkan.BeginCommandBuffer(c.Handle, &beginInfo); res != vulkan.Success {
		return fmt.Errorf("begin command buffer: %w", vulkan.Error(res))
	}
	return nil
}

func (c *CommandBuffer) End() error {
	if res := vulkan.EndCommandBuffer(c.Handle); res != vulkan.Success {
		return fmt.Errorf("end command buffer: %w", vulkan.Error(res))
	}
	return nil
}

func (c *CommandBuffer) Reset() error {
	if res := vulkan.ResetCommandBuffer(c.Handle, 0); res != vulkan.Success {
		return fmt.Errorf("reset command buffer: %w", vulkan.Error(res))
	}
	return nil
}

// SubmitAndWait submits the buffer and blocks on a temporary fence.
func (c *CommandBuffer) SubmitAndWait(queue Queue) error {
	fence, err := NewFence(c.pool.device, false)
	if err != nil {
		return err
	}
	defer fence.Destroy()
	if err := queue.Submit(c, nil, nil, nil, fence); err != nil {
		return err
	}
	return fence.Wait()
}

func (c *CommandBuffer) Free() {
	if c.Handle == nil {
		return
	}
	vulkan.FreeCommandBuffers(c.pool.device.Handle, c.pool.Handle, 1, []vulkan.CommandBuffer{c.Handle})
	c.Handle = nil
}

// RunOneTime records fn into a fresh one-time buffer, submits it and waits
// for completion.
func RunOneTime(pool *CommandPool, queue Queue, fn func(cmd *CommandBuffer) error) error {
	cmd, err := NewCommandBuffer(pool)
	if err != nil {
		return err
	}
	defer cmd.Free()
	if err := cmd.BeginOneTime(); err != nil {
		return err
	}
	if err := fn(cmd); err != nil {
		return err
	}
	if err := cmd.End(); err != nil {
		return err
	}
	return cmd.SubmitAndWait(queue)
}

// BindMesh binds an interleaved vertex buffer and a uint32 index buffer.
func BindMesh(cmd *CommandBuffer, vertices, indices *Buffer) {
	vulkan.CmdBindVertexBuffers(cmd.Handle, 0, 1, []vulkan.Buffer{vertices.Handle}, []vulkan.DeviceSize{0})
	vulkan.CmdBindIndexBuffer(cmd.Handle, indices.Handle, 0, vulkan.IndexTypeUint32)
}

func DrawIndexed(cmd *CommandBuffer, indexCount uint32) {
	vulkan.CmdDrawIndexed(cmd.Handle, indexCount, 1, 0, 0, 0)
}

// DrawFullScreen draws the single triangle a full-screen pass generates in
// its vertex shader.
func DrawFullScreen(cmd *CommandBuffer) {
	vulkan.CmdDraw(cmd.Handle, 3, 1, 0, 0)
}
