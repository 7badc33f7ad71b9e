package render

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vulkan-go/vulkan"

	"github.com/hellhand/kube/internal/config"
	"github.com/hellhand/kube/internal/gpu"
	"github.com/hellhand/kube/internal/scene"
)

var (
	albedoFormat = vulkan.FormatR16g16b16a16Sfloat
	normalFormat = vulkan.FormatA2b10g10r10UnormPack32
	pbrFormat    = vulkan.FormatR16g16b16a16Sfloat
	depthFormat  = vulkan.FormatD32Sfloat
)

// geometryBindings are the descriptor set layouts of the geometry pipeline in
// set order.
type geometryBindings struct {
	Projection     *gpu.DescriptorSetLayout
	View           *gpu.DescriptorSetLayout
	Diffuse        *gpu.DescriptorSetLayout
	Normal         *gpu.DescriptorSetLayout
	MetalRoughness *gpu.DescriptorSetLayout
	Material       *gpu.DescriptorSetLayout
}

func (b geometryBindings) layouts() []*gpu.DescriptorSetLayout {
	return []*gpu.DescriptorSetLayout{b.Projection, b.View, b.Diffuse, b.Normal, b.MetalRoughness, b.Material}
}

// GeometryPass fills the G-buffer. Its command buffer is shared with the
// shadow pass and submitted once per frame.
type GeometryPass struct {
	cfg       config.Config
	device    *gpu.Device
	swapchain *gpu.Swapchain
	queue     gpu.Queue

	attachments []*gpu.Attachment
	renderPass  *gpu.RenderPass
	framebuffer *gpu.Framebuffer
	program     *gpu.ShaderProgram
	pipeline    *gpu.Pipeline

	uniformLayout  *gpu.DescriptorSetLayout
	textureLayout  *gpu.DescriptorSetLayout
	materialLayout *gpu.DescriptorSetLayout
	bindings       geometryBindings
	pool           *gpu.DescriptorPool
	sampler        *gpu.Sampler

	projectionBuffer *gpu.Buffer
	projectionSet    *gpu.DescriptorSet
	viewBuffers      []*gpu.Buffer
	viewSets         []*gpu.DescriptorSet
	materialBuffer   *gpu.Buffer
	materialSet      *gpu.DescriptorSet
	materialStride   uint64
	textures         *textureSets

	commandBuffers []*gpu.CommandBuffer
	fences         []*gpu.Fence
}

func NewGeometryPass(cfg config.Config, swapchain *gpu.Swapchain, device *gpu.Device, cmdPool *gpu.CommandPool, cache *gpu.PipelineCache, projection mgl32.Mat4) (*GeometryPass, error) {
	g := &GeometryPass{
		cfg:            cfg,
		device:         device,
		swapchain:      swapchain,
		queue:          device.Graphics,
		materialStride: materialStride(device.Physical.MinUniformBufferOffsetAlignment()),
	}
	if err := g.init(cmdPool, cache, projection); err != nil {
		g.Cleanup()
		return nil, err
	}
	return g, nil
}

func (g *GeometryPass) init(cmdPool *gpu.CommandPool, cache *gpu.PipelineCache, projection mgl32.Mat4) error {
	var err error
	if err = g.createAttachments(); err != nil {
		return err
	}
	if g.renderPass, err = gpu.NewRenderPass(g.device, gpu.RenderPassInfo{
		Attachments:  attachmentDescriptions(g.attachments),
		HasDepth:     true,
		Dependencies: offscreenDependencies(),
	}); err != nil {
		return fmt.Errorf("geometry render pass: %w", err)
	}
	if err = g.createFramebuffer(); err != nil {
		return err
	}
	if err = g.createDescriptors(); err != nil {
		return err
	}
	if g.program, err = newProgram(g.device, g.cfg.ShaderRecompilation,
		[]string{"geometry_vertex", "geometry_fragment"}, nil); err != nil {
		return fmt.Errorf("geometry shaders: %w", err)
	}
	if g.pipeline, err = gpu.NewPipeline(cache, gpu.PipelineInfo{
		RenderPass:       g.renderPass,
		Program:          g.program,
		VertexLayout:     gpu.MeshVertexLayout(),
		ColorAttachments: len(g.attachments) - 1,
		DepthTest:        true,
		PushConstantSize: mat4Size,
		SetLayouts:       g.bindings.layouts(),
	}); err != nil {
		return fmt.Errorf("geometry pipeline: %w", err)
	}
	if err = g.projectionBuffer.Write(0, packMat4(projection)); err != nil {
		return err
	}

	n := g.swapchain.NumImages()
	for i := 0; i < n; i++ {
		cmd, err := gpu.NewCommandBuffer(cmdPool)
		if err != nil {
			return err
		}
		g.commandBuffers = append(g.commandBuffers, cmd)
		fence, err := gpu.NewFence(g.device, true)
		if err != nil {
			return err
		}
		g.fences = append(g.fences, fence)
	}
	return nil
}

func (g *GeometryPass) createAttachments() error {
	extent := g.swapchain.Extent()
	specs := []struct {
		format vulkan.Format
		usage  vulkan.ImageUsageFlagBits
	}{
		{albedoFormat, vulkan.ImageUsageColorAttachmentBit},
		{normalFormat, vulkan.ImageUsageColorAttachmentBit},
		{pbrFormat, vulkan.ImageUsageColorAttachmentBit},
		{depthFormat, vulkan.ImageUsageDepthStencilAttachmentBit},
	}
	g.attachments = make([]*gpu.Attachment, 0, len(specs))
	for _, s := range specs {
		a, err := gpu.NewAttachment(g.device, extent.Width, extent.Height, s.format, s.usage, 1)
		if err != nil {
			return fmt.Errorf("geometry attachment: %w", err)
		}
		g.attachments = append(g.attachments, a)
	}
	return nil
}

func (g *GeometryPass) createFramebuffer() error {
	extent := g.swapchain.Extent()
	fb, err := gpu.NewFramebuffer(g.device, g.renderPass, attachmentViews(g.attachments), extent.Width, extent.Height, 1)
	if err != nil {
		return fmt.Errorf("geometry framebuffer: %w", err)
	}
	g.framebuffer = fb
	return nil
}

func (g *GeometryPass) createDescriptors() error {
	n := g.swapchain.NumImages()
	var err error
	if g.pool, err = gpu.NewDescriptorPool(g.device, []gpu.PoolSize{
		{Type: vulkan.DescriptorTypeUniformBuffer, Count: uint32(n + 1)},
		{Type: vulkan.DescriptorTypeCombinedImageSampler, Count: uint32(g.cfg.MaxMaterials * 3)},
		{Type: vulkan.DescriptorTypeUniformBufferDynamic, Count: 1},
	}); err != nil {
		return fmt.Errorf("geometry descriptor pool: %w", err)
	}
	if g.uniformLayout, err = gpu.NewDescriptorSetLayout(g.device, gpu.UniformLayout(vulkan.ShaderStageVertexBit)); err != nil {
		return err
	}
	if g.textureLayout, err = gpu.NewDescriptorSetLayout(g.device, gpu.SamplerLayout(1, vulkan.ShaderStageFragmentBit)); err != nil {
		return err
	}
	if g.materialLayout, err = gpu.NewDescriptorSetLayout(g.device, gpu.DynamicUniformLayout(vulkan.ShaderStageFragmentBit)); err != nil {
		return err
	}
	g.bindings = geometryBindings{
		Projection:     g.uniformLayout,
		View:           g.uniformLayout,
		Diffuse:        g.textureLayout,
		Normal:         g.textureLayout,
		MetalRoughness: g.textureLayout,
		Material:       g.materialLayout,
	}
	if g.sampler, err = gpu.NewSampler(g.device, gpu.TextureSampler); err != nil {
		return err
	}
	g.textures = newTextureSets(g.pool, g.textureLayout, g.sampler)

	if g.projectionBuffer, err = gpu.NewHostBuffer(g.device, mat4Size, vulkan.BufferUsageUniformBufferBit); err != nil {
		return err
	}
	if g.projectionSet, err = gpu.NewDescriptorSet(g.pool, g.bindings.Projection); err != nil {
		return err
	}
	g.projectionSet.WriteBuffer(g.projectionBuffer, mat4Size)

	for i := 0; i < n; i++ {
		buf, err := gpu.NewHostBuffer(g.device, mat4Size, vulkan.BufferUsageUniformBufferBit)
		if err != nil {
			return err
		}
		g.viewBuffers = append(g.viewBuffers, buf)
		set, err := gpu.NewDescriptorSet(g.pool, g.bindings.View)
		if err != nil {
			return err
		}
		set.WriteBuffer(buf, mat4Size)
		g.viewSets = append(g.viewSets, set)
	}

	size := g.materialStride * uint64(g.cfg.MaxMaterials)
	if g.materialBuffer, err = gpu.NewHostBuffer(g.device, size, vulkan.BufferUsageUniformBufferBit); err != nil {
		return err
	}
	if g.materialSet, err = gpu.NewDescriptorSet(g.pool, g.bindings.Material); err != nil {
		return err
	}
	g.materialSet.WriteBuffer(g.materialBuffer, materialSize)
	return nil
}

// MaterialStride is the distance between material slots in the dynamic
// uniform buffer.
func (g *GeometryPass) MaterialStride() uint64 { return g.materialStride }

// Attachments returns albedo, normals, PBR and depth, in that order.
func (g *GeometryPass) Attachments() []*gpu.Attachment { return g.attachments }

// RegisterModels writes every material slot and allocates the texture sets
// of materials that have meshes.
func (g *GeometryPass) RegisterModels(models []*Model, textures *TextureCache[*gpu.Texture]) error {
	if err := checkMaterialCapacity(models, g.cfg.MaxMaterials); err != nil {
		return err
	}
	if _, err := g.materialBuffer.Map(); err != nil {
		return err
	}
	defer g.materialBuffer.Unmap()
	for _, model := range models {
		for _, mat := range model.Materials {
			offset := uint64(materialOffset(mat.ID, g.materialStride))
			if err := g.materialBuffer.Write(offset, packMaterial(mat)); err != nil {
				return fmt.Errorf("material %d: %w", mat.ID, err)
			}
			if len(mat.Meshes) == 0 {
				continue
			}
			for _, path := range []string{mat.TexturePath, mat.NormalMapPath, mat.MetalRoughMapPath} {
				if _, err := g.textures.get(textures, path); err != nil {
					return fmt.Errorf("material %d: %w", mat.ID, err)
				}
			}
		}
	}
	return nil
}

// WaitForFence blocks until the previous use of the current frame slot has
// finished on the GPU.
func (g *GeometryPass) WaitForFence() error {
	return g.fences[g.swapchain.CurrentFrame()].Wait()
}

// Record begins the frame's command buffer and records the geometry pass into
// it. The buffer is left open for the shadow pass; Submit ends it.
func (g *GeometryPass) Record(frame scene.FrameView, plan DrawPlan) (*gpu.CommandBuffer, error) {
	idx := g.swapchain.CurrentFrame()
	cmd := g.commandBuffers[idx]
	if err := cmd.Reset(); err != nil {
		return nil, err
	}
	if err := cmd.Begin(); err != nil {
		return nil, err
	}
	if err := g.viewBuffers[idx].Write(0, packMat4(frame.View)); err != nil {
		return nil, err
	}

	g.renderPass.Begin(cmd, g.framebuffer, clearValues(g.attachments))
	g.pipeline.Bind(cmd)
	gpu.FlippedViewport(cmd, g.framebuffer.Width, g.framebuffer.Height)
	for _, dc := range plan {
		sets := []*gpu.DescriptorSet{
			g.projectionSet,
			g.viewSets[idx],
			g.textures.lookup(dc.Material.TexturePath),
			g.textures.lookup(dc.Material.NormalMapPath),
			g.textures.lookup(dc.Material.MetalRoughMapPath),
			g.materialSet,
		}
		gpu.BindDescriptorSets(cmd, g.pipeline, sets, []uint32{dc.MaterialOffset})
		gpu.BindMesh(cmd, dc.Mesh.Vertices, dc.Mesh.Indices)
		for _, m := range dc.Matrices {
			g.pipeline.PushMatrix(cmd, m)
			gpu.DrawIndexed(cmd, dc.Mesh.IndexCount)
		}
	}
	g.renderPass.End(cmd)
	return cmd, nil
}

// Submit ends cmd and submits it once the swapchain image is acquired. The
// fence is reset here so a failed recording never leaves it unsignaled.
func (g *GeometryPass) Submit(cmd *gpu.CommandBuffer) error {
	if err := cmd.End(); err != nil {
		return err
	}
	idx := g.swapchain.CurrentFrame()
	fence := g.fences[idx]
	if err := fence.Reset(); err != nil {
		return err
	}
	sync := g.swapchain.SyncSemaphores(idx)
	return g.queue.Submit(cmd,
		[]*gpu.Semaphore{sync.ImageAcquired},
		[]vulkan.PipelineStageFlags{vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit)},
		[]*gpu.Semaphore{sync.GeometryComplete},
		fence)
}

// Resize rebuilds the G-buffer at the new swapchain extent.
func (g *GeometryPass) Resize(projection mgl32.Mat4) error {
	g.framebuffer.Destroy()
	destroyAttachments(g.attachments)
	g.attachments = nil
	if err := g.createAttachments(); err != nil {
		return err
	}
	if err := g.createFramebuffer(); err != nil {
		return err
	}
	return g.projectionBuffer.Write(0, packMat4(projection))
}

func (g *GeometryPass) Cleanup() {
	for _, f := range g.fences {
		f.Destroy()
	}
	for _, cmd := range g.commandBuffers {
		cmd.Free()
	}
	if g.pipeline != nil {
		g.pipeline.Destroy()
	}
	if g.program != nil {
		g.program.Destroy()
	}
	for _, b := range g.viewBuffers {
		b.Destroy()
	}
	if g.projectionBuffer != nil {
		g.projectionBuffer.Destroy()
	}
	if g.materialBuffer != nil {
		g.materialBuffer.Destroy()
	}
	if g.sampler != nil {
		g.sampler.Destroy()
	}
	for _, l := range []*gpu.DescriptorSetLayout{g.uniformLayout, g.textureLayout, g.materialLayout} {
		if l != nil {
			l.Destroy()
		}
	}
	if g.pool != nil {
		g.pool.Destroy()
	}
	if g.framebuffer != nil {
		g.framebuffer.Destroy()
	}
	if g.renderPass != nil {
		g.renderPass.Destroy()
	}
	destroyAttachments(g.attachments)
}
