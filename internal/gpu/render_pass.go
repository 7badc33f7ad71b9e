package gpu

import (
	"fmt"

	"github.com/vulkan-go/vulkan"
)

type RenderPass struct {
	device *Device
	Handle vulkan.RenderPass
}

// RenderPassInfo describes a single-subpass render pass. Attachments are
// color first; the last one is the depth attachment when HasDepth is set.
type RenderPassInfo struct {
	Attachments  []vulkan.AttachmentDescription
	HasDepth     bool
	Dependencies []vulkan.SubpassDependency
}

func NewRenderPass(device *Device, info RenderPassInfo) (*RenderPass, error) {
	colorCount := len(info.Attachments)
	if info.HasDepth {
		colorCount--
	}
	colorRefs := make([]vulkan.AttachmentReference, colorCount)
	for i := range colorRefs {
		colorRefs[i] = vulkan.AttachmentReference{
			Attachment: uint32(i),
			Layout:     vulkan.ImageLayoutColorAttachmentOptimal,
		}
	}
	subpass := vulkan.SubpassDescription{
		PipelineBindPoint:    vulkan.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(colorCount),
		PColorAttachments:    colorRefs,
	}
	if info.HasDepth {
		subpass.PDepthStencilAttachment = &vulkan.AttachmentReference{
			Attachment: uint32(colorCount),
			Layout:     vulkan.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}

	createInfo := vulkan.RenderPassCreateInfo{
		SType:           vulkan.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(info.Attachments)),
		PAttachments:    info.Attachments,
		SubpassCount:    1,
		PSubpasses:      []vulkan.SubpassDescription{subpass},
		DependencyCount: uint32(len(info.Dependencies)),
		PDependencies:   info.Dependencies,
	}
	rp := &RenderPass{device: device}
	if res := vulkan.CreateRenderPass(device.Handle, &createInfo, nil, &rp.Handle); res != vulkan.Success {
		return nil, fmt.Errorf("create render pass: %w", vulkan.Error(res))
	}
	return rp, nil
}

// Begin starts the render pass with inline contents.
func (rp *RenderPass) Begin(cmd *CommandBuffer, fb *Framebuffer, clear []vulkan.ClearValue) {
	beginInfo := vulkan.RenderPassBeginInfo{
		SType:       vulkan.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp.Handle,
		Framebuffer: fb.Handle,
		RenderArea: vulkan.Rect2D{
			Extent: vulkan.Extent2D{Width: fb.Width, Height: fb.Height},
		},
		ClearValueCount: uint32(len(clear)),
		PClearValues:    clear,
	}
	vulkan.CmdBeginRenderPass(cmd.Handle, &beginInfo, vulkan.SubpassContentsInline)
}

func (rp *RenderPass) End(cmd *CommandBuffer) {
	vulkan.CmdEndRenderPass(cmd.Handle)
}

func (rp *RenderPass) Destroy() {
	if rp.Handle != vulkan.RenderPass(vulkan.NullHandle) {
		vulkan.DestroyRenderPass(rp.device.Handle, rp.Handle, nil)
		rp.Handle = vulkan.RenderPass(vulkan.NullHandle)
	}
}

type Framebuffer struct {
	device        *Device
	Handle        vulkan.Framebuffer
	Width, Height uint32
}

func NewFramebuffer(device *Device, rp *RenderPass, views []*ImageView, width, height, layers uint32) (*Framebuffer, error) {
	attachments := make([]vulkan.ImageView, len(views))
	for i, v := range views {
		attachments[i] = v.Handle
	}
	if layers == 0 {
		layers = 1
	}
	createInfo := vulkan.FramebufferCreateInfo{
		SType:           vulkan.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp.Handle,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           width,
		Height:          height,
		Layers:          layers,
	}
	fb := &Framebuffer{device: device, Width: width, Height: height}
	if res := vulkan.CreateFramebuffer(device.Handle, &createInfo, nil, &fb.Handle); res != vulkan.Success {
		return nil, fmt.Errorf("create framebuffer: %w", vulkan.Error(res))
	}
	return fb, nil
}

func (fb *Framebuffer) Destroy() {
	if fb.Handle != vulkan.Framebuffer(vulkan.NullHandle) {
		vulkan.DestroyFramebuffer(fb.device.Handle, fb.Handle, nil)
		fb.Handle = vulkan.Framebuffer(vulkan.NullHandle)
	}
}
