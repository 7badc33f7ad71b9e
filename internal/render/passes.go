package render

import (
	"path/filepath"

	"github.com/vulkan-go/vulkan"

	"github.com/hellhand/kube/internal/gpu"
)

const shaderDir = "resources/shaders"

func shaderPath(name string) string {
	return filepath.Join(shaderDir, name+".glsl")
}

// sampledLayout is the layout an attachment is left in for later passes.
func sampledLayout(depth bool) vulkan.ImageLayout {
	if depth {
		return vulkan.ImageLayoutDepthStencilReadOnlyOptimal
	}
	return vulkan.ImageLayoutShaderReadOnlyOptimal
}

func attachmentDescription(format vulkan.Format, finalLayout vulkan.ImageLayout) vulkan.AttachmentDescription {
	return vulkan.AttachmentDescription{
		Format:         format,
		Samples:        vulkan.SampleCount1Bit,
		LoadOp:         vulkan.AttachmentLoadOpClear,
		StoreOp:        vulkan.AttachmentStoreOpStore,
		StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
		StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
		InitialLayout:  vulkan.ImageLayoutUndefined,
		FinalLayout:    finalLayout,
	}
}

func attachmentDescriptions(attachments []*gpu.Attachment) []vulkan.AttachmentDescription {
	out := make([]vulkan.AttachmentDescription, len(attachments))
	for i, a := range attachments {
		out[i] = attachmentDescription(a.Format(), sampledLayout(a.Depth))
	}
	return out
}

// offscreenDependencies order an offscreen pass against whatever read its
// attachments before and whatever samples them after.
func offscreenDependencies() []vulkan.SubpassDependency {
	return []vulkan.SubpassDependency{
		{
			SrcSubpass:    vulkan.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vulkan.PipelineStageFlags(vulkan.PipelineStageBottomOfPipeBit),
			DstStageMask:  vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit | vulkan.PipelineStageEarlyFragmentTestsBit),
			SrcAccessMask: vulkan.AccessFlags(vulkan.AccessMemoryReadBit),
			DstAccessMask: vulkan.AccessFlags(vulkan.AccessColorAttachmentReadBit | vulkan.AccessColorAttachmentWriteBit |
				vulkan.AccessDepthStencilAttachmentReadBit | vulkan.AccessDepthStencilAttachmentWriteBit),
			DependencyFlags: vulkan.DependencyFlags(vulkan.DependencyByRegionBit),
		},
		{
			SrcSubpass:   0,
			DstSubpass:   vulkan.SubpassExternal,
			SrcStageMask: vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit | vulkan.PipelineStageLateFragmentTestsBit),
			DstStageMask: vulkan.PipelineStageFlags(vulkan.PipelineStageBottomOfPipeBit),
			SrcAccessMask: vulkan.AccessFlags(vulkan.AccessColorAttachmentReadBit | vulkan.AccessColorAttachmentWriteBit |
				vulkan.AccessDepthStencilAttachmentReadBit | vulkan.AccessDepthStencilAttachmentWriteBit),
			DstAccessMask:   vulkan.AccessFlags(vulkan.AccessMemoryReadBit),
			DependencyFlags: vulkan.DependencyFlags(vulkan.DependencyByRegionBit),
		},
	}
}

func clearValues(attachments []*gpu.Attachment) []vulkan.ClearValue {
	out := make([]vulkan.ClearValue, len(attachments))
	for i, a := range attachments {
		if a.Depth {
			out[i] = vulkan.NewClearDepthStencil(1, 0)
		} else {
			out[i] = vulkan.NewClearValue([]float32{0, 0, 0, 1})
		}
	}
	return out
}

func attachmentViews(attachments []*gpu.Attachment) []*gpu.ImageView {
	out := make([]*gpu.ImageView, len(attachments))
	for i, a := range attachments {
		out[i] = a.View
	}
	return out
}

func destroyAttachments(attachments []*gpu.Attachment) {
	for _, a := range attachments {
		a.Destroy()
	}
}

// newProgram loads the named shaders and builds a program from them.
func newProgram(device *gpu.Device, recompile bool, names []string, spec map[vulkan.ShaderStageFlagBits]*gpu.Specialization) (*gpu.ShaderProgram, error) {
	sources := make([]string, len(names))
	for i, n := range names {
		sources[i] = shaderPath(n)
	}
	infos, err := gpu.LoadShaderModules(sources, recompile, spec)
	if err != nil {
		return nil, err
	}
	return gpu.NewShaderProgram(device, infos)
}

// textureSets allocates one combined sampler set per texture path and reuses
// it for every material sampling the same texture.
type textureSets struct {
	pool    *gpu.DescriptorPool
	layout  *gpu.DescriptorSetLayout
	sampler *gpu.Sampler
	sets    map[string]*gpu.DescriptorSet
}

func newTextureSets(pool *gpu.DescriptorPool, layout *gpu.DescriptorSetLayout, sampler *gpu.Sampler) *textureSets {
	return &textureSets{pool: pool, layout: layout, sampler: sampler, sets: make(map[string]*gpu.DescriptorSet)}
}

func (t *textureSets) get(textures *TextureCache[*gpu.Texture], path string) (*gpu.DescriptorSet, error) {
	if set, ok := t.sets[path]; ok {
		return set, nil
	}
	tex, err := textures.Get(path)
	if err != nil {
		return nil, err
	}
	set, err := gpu.NewDescriptorSet(t.pool, t.layout)
	if err != nil {
		return nil, err
	}
	set.WriteImage(tex.View, t.sampler, vulkan.ImageLayoutShaderReadOnlyOptimal)
	t.sets[path] = set
	return set, nil
}

// lookup returns the set registered for path. Drawing a material that was
// never registered is a programming error.
func (t *textureSets) lookup(path string) *gpu.DescriptorSet {
	return t.sets[path]
}
