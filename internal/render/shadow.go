package render

import (
	"fmt"

	"github.com/vulkan-go/vulkan"

	"github.com/hellhand/kube/internal/config"
	"github.com/hellhand/kube/internal/gpu"
	"github.com/hellhand/kube/internal/scene"
	"github.com/hellhand/kube/internal/shadow"
)

// cascadeTracker recomputes cascades only when the result could change.
type cascadeTracker struct {
	dirty    bool
	cascades []shadow.Cascade
}

func newCascadeTracker() *cascadeTracker {
	return &cascadeTracker{dirty: true}
}

// update reports whether the cascades were recomputed for frame.
func (t *cascadeTracker) update(frame scene.FrameView) (bool, error) {
	if !t.dirty && !frame.LightChanged && !frame.CameraMoved {
		return false, nil
	}
	cascades, err := shadow.ComputeCascades(shadow.Params{
		View:          frame.View,
		Projection:    frame.Projection,
		Near:          frame.Near,
		Far:           frame.Far,
		LightPosition: frame.DirectionalLight,
		Count:         shadow.CascadeCount,
		Lambda:        shadow.DefaultSplitLambda,
	})
	if err != nil {
		return false, err
	}
	t.cascades = cascades
	t.dirty = false
	return true, nil
}

func (t *cascadeTracker) invalidate() { t.dirty = true }

// ShadowPass renders scene depth from the directional light into one layer per
// cascade. It records into the geometry pass command buffer.
type ShadowPass struct {
	cfg       config.Config
	device    *gpu.Device
	swapchain *gpu.Swapchain

	depth       *gpu.Attachment
	renderPass  *gpu.RenderPass
	framebuffer *gpu.Framebuffer
	program     *gpu.ShaderProgram
	pipeline    *gpu.Pipeline

	pool          *gpu.DescriptorPool
	cascadeLayout *gpu.DescriptorSetLayout
	textureLayout *gpu.DescriptorSetLayout
	sampler       *gpu.Sampler
	textures      *textureSets

	cascadeBuffers []*gpu.Buffer
	cascadeSets    []*gpu.DescriptorSet

	tracker *cascadeTracker
}

func NewShadowPass(cfg config.Config, swapchain *gpu.Swapchain, device *gpu.Device, cache *gpu.PipelineCache) (*ShadowPass, error) {
	s := &ShadowPass{
		cfg:       cfg,
		device:    device,
		swapchain: swapchain,
		tracker:   newCascadeTracker(),
	}
	if err := s.init(cache); err != nil {
		s.Cleanup()
		return nil, err
	}
	return s, nil
}

func (s *ShadowPass) init(cache *gpu.PipelineCache) error {
	size := uint32(s.cfg.ShadowMapSize)
	var err error
	if s.depth, err = gpu.NewAttachment(s.device, size, size, depthFormat,
		vulkan.ImageUsageDepthStencilAttachmentBit, shadow.CascadeCount); err != nil {
		return fmt.Errorf("shadow depth: %w", err)
	}
	if s.renderPass, err = gpu.NewRenderPass(s.device, gpu.RenderPassInfo{
		Attachments:  attachmentDescriptions([]*gpu.Attachment{s.depth}),
		HasDepth:     true,
		Dependencies: offscreenDependencies(),
	}); err != nil {
		return fmt.Errorf("shadow render pass: %w", err)
	}
	if s.framebuffer, err = gpu.NewFramebuffer(s.device, s.renderPass,
		[]*gpu.ImageView{s.depth.View}, size, size, shadow.CascadeCount); err != nil {
		return fmt.Errorf("shadow framebuffer: %w", err)
	}

	n := s.swapchain.NumImages()
	if s.pool, err = gpu.NewDescriptorPool(s.device, []gpu.PoolSize{
		{Type: vulkan.DescriptorTypeUniformBuffer, Count: uint32(n)},
		{Type: vulkan.DescriptorTypeCombinedImageSampler, Count: uint32(s.cfg.MaxMaterials)},
	}); err != nil {
		return fmt.Errorf("shadow descriptor pool: %w", err)
	}
	if s.cascadeLayout, err = gpu.NewDescriptorSetLayout(s.device, gpu.UniformLayout(vulkan.ShaderStageGeometryBit)); err != nil {
		return err
	}
	if s.textureLayout, err = gpu.NewDescriptorSetLayout(s.device, gpu.SamplerLayout(1, vulkan.ShaderStageFragmentBit)); err != nil {
		return err
	}
	if s.sampler, err = gpu.NewSampler(s.device, gpu.SamplerInfo{
		AddressMode: gpu.TextureSampler.AddressMode,
		BorderColor: gpu.TextureSampler.BorderColor,
	}); err != nil {
		return err
	}
	s.textures = newTextureSets(s.pool, s.textureLayout, s.sampler)

	bufSize := uint64(shadow.CascadeCount * mat4Size)
	for i := 0; i < n; i++ {
		buf, err := gpu.NewHostBuffer(s.device, bufSize, vulkan.BufferUsageUniformBufferBit)
		if err != nil {
			return err
		}
		s.cascadeBuffers = append(s.cascadeBuffers, buf)
		set, err := gpu.NewDescriptorSet(s.pool, s.cascadeLayout)
		if err != nil {
			return err
		}
		set.WriteBuffer(buf, bufSize)
		s.cascadeSets = append(s.cascadeSets, set)
	}

	if s.program, err = newProgram(s.device, s.cfg.ShaderRecompilation,
		[]string{"shadow_vertex", "shadow_geometry", "shadow_fragment"}, nil); err != nil {
		return fmt.Errorf("shadow shaders: %w", err)
	}
	if s.pipeline, err = gpu.NewPipeline(cache, gpu.PipelineInfo{
		RenderPass:       s.renderPass,
		Program:          s.program,
		VertexLayout:     gpu.MeshVertexLayout(),
		ColorAttachments: 0,
		DepthTest:        true,
		DepthClamp:       true,
		PushConstantSize: mat4Size,
		SetLayouts:       []*gpu.DescriptorSetLayout{s.cascadeLayout, s.textureLayout},
	}); err != nil {
		return fmt.Errorf("shadow pipeline: %w", err)
	}
	return nil
}

// RegisterModels allocates the diffuse texture set used for alpha testing.
func (s *ShadowPass) RegisterModels(models []*Model, textures *TextureCache[*gpu.Texture]) error {
	for _, model := range models {
		for _, mat := range model.Materials {
			if len(mat.Meshes) == 0 {
				continue
			}
			if _, err := s.textures.get(textures, mat.TexturePath); err != nil {
				return fmt.Errorf("shadow material %d: %w", mat.ID, err)
			}
		}
	}
	return nil
}

// Record refreshes the cascades when needed and records the depth pass into
// cmd.
func (s *ShadowPass) Record(cmd *gpu.CommandBuffer, frame scene.FrameView, plan DrawPlan) error {
	if _, err := s.tracker.update(frame); err != nil {
		return fmt.Errorf("shadow cascades: %w", err)
	}
	idx := s.swapchain.CurrentFrame()
	if err := s.cascadeBuffers[idx].Write(0, packCascadeMatrices(s.tracker.cascades)); err != nil {
		return err
	}

	s.renderPass.Begin(cmd, s.framebuffer, clearValues([]*gpu.Attachment{s.depth}))
	s.pipeline.Bind(cmd)
	gpu.FlippedViewport(cmd, s.framebuffer.Width, s.framebuffer.Height)
	for _, dc := range plan {
		gpu.BindDescriptorSets(cmd, s.pipeline, []*gpu.DescriptorSet{
			s.cascadeSets[idx],
			s.textures.lookup(dc.Material.TexturePath),
		}, nil)
		gpu.BindMesh(cmd, dc.Mesh.Vertices, dc.Mesh.Indices)
		for _, m := range dc.Matrices {
			s.pipeline.PushMatrix(cmd, m)
			gpu.DrawIndexed(cmd, dc.Mesh.IndexCount)
		}
	}
	s.renderPass.End(cmd)
	return nil
}

// Cascades returns the cascades of the last recorded frame.
func (s *ShadowPass) Cascades() []shadow.Cascade { return s.tracker.cascades }

func (s *ShadowPass) DepthAttachment() *gpu.Attachment { return s.depth }

// Resize forces a cascade refit on the next frame. The shadow map itself does
// not depend on the window size.
func (s *ShadowPass) Resize() { s.tracker.invalidate() }

func (s *ShadowPass) Cleanup() {
	if s.pipeline != nil {
		s.pipeline.Destroy()
	}
	if s.program != nil {
		s.program.Destroy()
	}
	for _, b := range s.cascadeBuffers {
		b.Destroy()
	}
	if s.sampler != nil {
		s.sampler.Destroy()
	}
	for _, l := range []*gpu.DescriptorSetLayout{s.cascadeLayout, s.textureLayout} {
		if l != nil {
			l.Destroy()
		}
	}
	if s.pool != nil {
		s.pool.Destroy()
	}
	if s.framebuffer != nil {
		s.framebuffer.Destroy()
	}
	if s.renderPass != nil {
		s.renderPass.Destroy()
	}
	if s.depth != nil {
		s.depth.Destroy()
	}
}
