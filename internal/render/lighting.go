package render

import (
	"fmt"

	"github.com/vulkan-go/vulkan"

	"github.com/hellhand/kube/internal/config"
	"github.com/hellhand/kube/internal/gpu"
	"github.com/hellhand/kube/internal/scene"
	"github.com/hellhand/kube/internal/shadow"
)

// lightingBindings are the descriptor set layouts of the lighting pipeline in
// set order.
type lightingBindings struct {
	Attachments *gpu.DescriptorSetLayout
	Lights      *gpu.DescriptorSetLayout
	InvMatrices *gpu.DescriptorSetLayout
	Cascades    *gpu.DescriptorSetLayout
}

func (b lightingBindings) layouts() []*gpu.DescriptorSetLayout {
	return []*gpu.DescriptorSetLayout{b.Attachments, b.Lights, b.InvMatrices, b.Cascades}
}

// perImage holds the buffers and sets the lighting pass reads for one
// swapchain image.
type perImage struct {
	lights      *gpu.Buffer
	invMatrices *gpu.Buffer
	cascades    *gpu.Buffer

	lightsSet      *gpu.DescriptorSet
	invMatricesSet *gpu.DescriptorSet
	cascadesSet    *gpu.DescriptorSet

	cmd         *gpu.CommandBuffer
	fence       *gpu.Fence
	framebuffer *gpu.Framebuffer
}

func (p *perImage) destroy() {
	for _, b := range []*gpu.Buffer{p.lights, p.invMatrices, p.cascades} {
		if b != nil {
			b.Destroy()
		}
	}
	if p.fence != nil {
		p.fence.Destroy()
	}
	if p.cmd != nil {
		p.cmd.Free()
	}
	if p.framebuffer != nil {
		p.framebuffer.Destroy()
	}
}

// LightingPass resolves the G-buffer into the swapchain image with a single
// full screen triangle. Its command buffers are recorded once per image and
// only re-recorded on resize.
type LightingPass struct {
	cfg       config.Config
	device    *gpu.Device
	swapchain *gpu.Swapchain
	queue     gpu.Queue

	renderPass *gpu.RenderPass
	program    *gpu.ShaderProgram
	pipeline   *gpu.Pipeline

	pool            *gpu.DescriptorPool
	bindings        lightingBindings
	sampler         *gpu.Sampler
	attachmentsSet  *gpu.DescriptorSet
	attachmentCount int

	images []*perImage
}

// NewLightingPass samples attachments, which are the G-buffer followed by the
// shadow depth array.
func NewLightingPass(cfg config.Config, swapchain *gpu.Swapchain, device *gpu.Device, cmdPool *gpu.CommandPool, cache *gpu.PipelineCache, attachments []*gpu.Attachment) (*LightingPass, error) {
	l := &LightingPass{
		cfg:             cfg,
		device:          device,
		swapchain:       swapchain,
		queue:           device.Graphics,
		attachmentCount: len(attachments),
	}
	if err := l.init(cmdPool, cache, attachments); err != nil {
		l.Cleanup()
		return nil, err
	}
	return l, nil
}

// lightingSpecialization feeds the shadow settings to the fragment shader.
func lightingSpecialization(cfg config.Config) *gpu.Specialization {
	return new(gpu.Specialization).
		Int(0, shadow.CascadeCount).
		Bool(1, cfg.ShadowPCF).
		Float(2, cfg.ShadowBias).
		Bool(3, cfg.ShadowDebug)
}

func (l *LightingPass) init(cmdPool *gpu.CommandPool, cache *gpu.PipelineCache, attachments []*gpu.Attachment) error {
	var err error
	if l.renderPass, err = gpu.NewRenderPass(l.device, gpu.RenderPassInfo{
		Attachments: []vulkan.AttachmentDescription{
			attachmentDescription(l.swapchain.Format(), vulkan.ImageLayoutPresentSrc),
		},
		Dependencies: []vulkan.SubpassDependency{{
			SrcSubpass:    vulkan.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit),
			DstStageMask:  vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit),
			DstAccessMask: vulkan.AccessFlags(vulkan.AccessColorAttachmentWriteBit),
		}},
	}); err != nil {
		return fmt.Errorf("lighting render pass: %w", err)
	}

	n := l.swapchain.NumImages()
	if l.pool, err = gpu.NewDescriptorPool(l.device, []gpu.PoolSize{
		{Type: vulkan.DescriptorTypeCombinedImageSampler, Count: uint32(l.attachmentCount)},
		{Type: vulkan.DescriptorTypeStorageBuffer, Count: uint32(n)},
		{Type: vulkan.DescriptorTypeUniformBuffer, Count: uint32(2 * n)},
	}); err != nil {
		return fmt.Errorf("lighting descriptor pool: %w", err)
	}
	if l.bindings, err = l.createLayouts(); err != nil {
		return err
	}
	if l.sampler, err = gpu.NewSampler(l.device, gpu.AttachmentSampler); err != nil {
		return err
	}
	if l.attachmentsSet, err = gpu.NewDescriptorSet(l.pool, l.bindings.Attachments); err != nil {
		return err
	}
	l.writeAttachments(attachments)

	spec := map[vulkan.ShaderStageFlagBits]*gpu.Specialization{
		vulkan.ShaderStageFragmentBit: lightingSpecialization(l.cfg),
	}
	if l.program, err = newProgram(l.device, l.cfg.ShaderRecompilation,
		[]string{"lighting_vertex", "lighting_fragment"}, spec); err != nil {
		return fmt.Errorf("lighting shaders: %w", err)
	}
	if l.pipeline, err = gpu.NewPipeline(cache, gpu.PipelineInfo{
		RenderPass:       l.renderPass,
		Program:          l.program,
		VertexLayout:     gpu.EmptyVertexLayout(),
		ColorAttachments: 1,
		SetLayouts:       l.bindings.layouts(),
	}); err != nil {
		return fmt.Errorf("lighting pipeline: %w", err)
	}

	for i := 0; i < n; i++ {
		img, err := l.createImage(cmdPool)
		if err != nil {
			return err
		}
		l.images = append(l.images, img)
	}
	if err := l.createFramebuffers(); err != nil {
		return err
	}
	return l.recordAll()
}

func (l *LightingPass) createLayouts() (lightingBindings, error) {
	var b lightingBindings
	var err error
	if b.Attachments, err = gpu.NewDescriptorSetLayout(l.device,
		gpu.AttachmentLayout(uint32(l.attachmentCount), vulkan.ShaderStageFragmentBit)); err != nil {
		return b, err
	}
	if b.Lights, err = gpu.NewDescriptorSetLayout(l.device, gpu.StorageLayout(vulkan.ShaderStageFragmentBit)); err != nil {
		return b, err
	}
	if b.InvMatrices, err = gpu.NewDescriptorSetLayout(l.device, gpu.UniformLayout(vulkan.ShaderStageFragmentBit)); err != nil {
		return b, err
	}
	if b.Cascades, err = gpu.NewDescriptorSetLayout(l.device, gpu.UniformLayout(vulkan.ShaderStageFragmentBit)); err != nil {
		return b, err
	}
	return b, nil
}

func (l *LightingPass) createImage(cmdPool *gpu.CommandPool) (*perImage, error) {
	p := &perImage{}
	var err error
	fail := func(err error) (*perImage, error) {
		p.destroy()
		return nil, err
	}
	if p.lights, err = gpu.NewHostBuffer(l.device, lightBufferSize, vulkan.BufferUsageStorageBufferBit); err != nil {
		return fail(err)
	}
	if p.invMatrices, err = gpu.NewHostBuffer(l.device, invMatricesSize, vulkan.BufferUsageUniformBufferBit); err != nil {
		return fail(err)
	}
	if p.cascades, err = gpu.NewHostBuffer(l.device, cascadesBufferSize, vulkan.BufferUsageUniformBufferBit); err != nil {
		return fail(err)
	}
	if p.lightsSet, err = gpu.NewDescriptorSet(l.pool, l.bindings.Lights); err != nil {
		return fail(err)
	}
	p.lightsSet.WriteBuffer(p.lights, lightBufferSize)
	if p.invMatricesSet, err = gpu.NewDescriptorSet(l.pool, l.bindings.InvMatrices); err != nil {
		return fail(err)
	}
	p.invMatricesSet.WriteBuffer(p.invMatrices, invMatricesSize)
	if p.cascadesSet, err = gpu.NewDescriptorSet(l.pool, l.bindings.Cascades); err != nil {
		return fail(err)
	}
	p.cascadesSet.WriteBuffer(p.cascades, cascadesBufferSize)
	if p.cmd, err = gpu.NewCommandBuffer(cmdPool); err != nil {
		return fail(err)
	}
	if p.fence, err = gpu.NewFence(l.device, true); err != nil {
		return fail(err)
	}
	return p, nil
}

func (l *LightingPass) writeAttachments(attachments []*gpu.Attachment) {
	layouts := make([]vulkan.ImageLayout, len(attachments))
	for i, a := range attachments {
		layouts[i] = sampledLayout(a.Depth)
	}
	l.attachmentsSet.WriteImages(attachmentViews(attachments), layouts, l.sampler)
}

func (l *LightingPass) createFramebuffers() error {
	extent := l.swapchain.Extent()
	views := l.swapchain.ImageViews()
	for i, img := range l.images {
		if img.framebuffer != nil {
			img.framebuffer.Destroy()
		}
		fb, err := gpu.NewFramebuffer(l.device, l.renderPass, []*gpu.ImageView{views[i]}, extent.Width, extent.Height, 1)
		if err != nil {
			return fmt.Errorf("lighting framebuffer %d: %w", i, err)
		}
		img.framebuffer = fb
	}
	return nil
}

func (l *LightingPass) recordAll() error {
	for i, img := range l.images {
		if err := l.record(img); err != nil {
			return fmt.Errorf("record lighting %d: %w", i, err)
		}
	}
	return nil
}

func (l *LightingPass) record(img *perImage) error {
	cmd := img.cmd
	if err := cmd.Reset(); err != nil {
		return err
	}
	if err := cmd.Begin(); err != nil {
		return err
	}
	l.renderPass.Begin(cmd, img.framebuffer, []vulkan.ClearValue{vulkan.NewClearValue([]float32{0, 0, 0, 1})})
	l.pipeline.Bind(cmd)
	gpu.FlippedViewport(cmd, img.framebuffer.Width, img.framebuffer.Height)
	gpu.BindDescriptorSets(cmd, l.pipeline, []*gpu.DescriptorSet{
		l.attachmentsSet, img.lightsSet, img.invMatricesSet, img.cascadesSet,
	}, nil)
	gpu.DrawFullScreen(cmd)
	l.renderPass.End(cmd)
	return cmd.End()
}

// Prepare waits for the previous submission that rendered to imageIndex and
// writes this frame's lights, matrices and cascades into its buffers.
func (l *LightingPass) Prepare(imageIndex uint32, frame scene.FrameView, cascades []shadow.Cascade) error {
	img := l.images[imageIndex]
	if err := img.fence.Wait(); err != nil {
		return err
	}
	if err := img.fence.Reset(); err != nil {
		return err
	}
	if err := img.lights.Write(0, packLights(frame.AmbientLight, frame.Lights, frame.View)); err != nil {
		return err
	}
	if err := img.invMatrices.Write(0, packInvMatrices(frame.Projection, frame.View)); err != nil {
		return err
	}
	return img.cascades.Write(0, packCascades(cascades))
}

// lightingWaitStage holds back the G-buffer and shadow map reads of the
// fragment shader as well as the color writes.
var lightingWaitStage = vulkan.PipelineStageFlags(vulkan.PipelineStageFragmentShaderBit | vulkan.PipelineStageColorAttachmentOutputBit)

// Submit runs the pre-recorded buffer for imageIndex after the geometry work
// of the current frame slot.
func (l *LightingPass) Submit(imageIndex uint32) error {
	img := l.images[imageIndex]
	sync := l.swapchain.SyncSemaphores(l.swapchain.CurrentFrame())
	return l.queue.Submit(img.cmd,
		[]*gpu.Semaphore{sync.GeometryComplete},
		[]vulkan.PipelineStageFlags{lightingWaitStage},
		[]*gpu.Semaphore{sync.RenderComplete},
		img.fence)
}

// Resize points the attachment set at the rebuilt G-buffer, recreates the
// framebuffers and records every command buffer again.
func (l *LightingPass) Resize(attachments []*gpu.Attachment) error {
	if len(attachments) != l.attachmentCount {
		return fmt.Errorf("lighting resize: got %d attachments, want %d", len(attachments), l.attachmentCount)
	}
	l.writeAttachments(attachments)
	if err := l.createFramebuffers(); err != nil {
		return err
	}
	return l.recordAll()
}

func (l *LightingPass) Cleanup() {
	for _, img := range l.images {
		img.destroy()
	}
	l.images = nil
	if l.pipeline != nil {
		l.pipeline.Destroy()
	}
	if l.program != nil {
		l.program.Destroy()
	}
	if l.sampler != nil {
		l.sampler.Destroy()
	}
	for _, layout := range l.bindings.layouts() {
		if layout != nil {
			layout.Destroy()
		}
	}
	if l.pool != nil {
		l.pool.Destroy()
	}
	if l.renderPass != nil {
		l.renderPass.Destroy()
	}
}
