package gpu

import (
	"fmt"

	"github.com/vulkan-go/vulkan"
)

type PoolSize struct {
	Type  vulkan.DescriptorType
	Count uint32
}

type DescriptorPool struct {
	device *Device
	Handle vulkan.DescriptorPool
}

// NewDescriptorPool creates a pool whose sets can be freed individually.
// maxSets is the sum of the pool size counts.
func NewDescriptorPool(device *Device, sizes []PoolSize) (*DescriptorPool, error) {
	poolSizes := make([]vulkan.DescriptorPoolSize, 0, len(sizes))
	var maxSets uint32
	for _, s := range sizes {
		if s.Count == 0 {
			continue
		}
		poolSizes = append(poolSizes, vulkan.DescriptorPoolSize{Type: s.Type, DescriptorCount: s.Count})
		maxSets += s.Count
	}
	poolInfo := vulkan.DescriptorPoolCreateInfo{
		SType:         vulkan.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vulkan.DescriptorPoolCreateFlags(vulkan.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	p := &DescriptorPool{device: device}
	if res := vulkan.CreateDescriptorPool(device.Handle, &poolInfo, nil, &p.Handle); res != vulkan.Success {
		return nil, fmt.Errorf("create descriptor pool: %w", vulkan.Error(res))
	}
	return p, nil
}

func (p *DescriptorPool) Destroy() {
	if p.Handle != vulkan.DescriptorPool(vulkan.NullHandle) {
		vulkan.DestroyDescriptorPool(p.device.Handle, p.Handle, nil)
		p.Handle = vulkan.DescriptorPool(vulkan.NullHandle)
	}
}

// LayoutBinding describes the descriptors of a set layout. They form one
// array at binding 0, or Count bindings of one descriptor each when Split is
// set.
type LayoutBinding struct {
	Type   vulkan.DescriptorType
	Count  uint32
	Stages vulkan.ShaderStageFlagBits
	Split  bool
}

func (b LayoutBinding) vulkanBindings() []vulkan.DescriptorSetLayoutBinding {
	if !b.Split {
		return []vulkan.DescriptorSetLayoutBinding{{
			Binding:         0,
			DescriptorType:  b.Type,
			DescriptorCount: b.Count,
			StageFlags:      vulkan.ShaderStageFlags(b.Stages),
		}}
	}
	out := make([]vulkan.DescriptorSetLayoutBinding, b.Count)
	for i := range out {
		out[i] = vulkan.DescriptorSetLayoutBinding{
			Binding:         uint32(i),
			DescriptorType:  b.Type,
			DescriptorCount: 1,
			StageFlags:      vulkan.ShaderStageFlags(b.Stages),
		}
	}
	return out
}

type DescriptorSetLayout struct {
	device  *Device
	Handle  vulkan.DescriptorSetLayout
	Binding LayoutBinding
}

func NewDescriptorSetLayout(device *Device, binding LayoutBinding) (*DescriptorSetLayout, error) {
	if binding.Count == 0 {
		binding.Count = 1
	}
	bindings := binding.vulkanBindings()
	layoutInfo := vulkan.DescriptorSetLayoutCreateInfo{
		SType:        vulkan.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	l := &DescriptorSetLayout{device: device, Binding: binding}
	if res := vulkan.CreateDescriptorSetLayout(device.Handle, &layoutInfo, nil, &l.Handle); res != vulkan.Success {
		return nil, fmt.Errorf("create descriptor set layout: %w", vulkan.Error(res))
	}
	return l, nil
}

func UniformLayout(stages vulkan.ShaderStageFlagBits) LayoutBinding {
	return LayoutBinding{Type: vulkan.DescriptorTypeUniformBuffer, Count: 1, Stages: stages}
}

func DynamicUniformLayout(stages vulkan.ShaderStageFlagBits) LayoutBinding {
	return LayoutBinding{Type: vulkan.DescriptorTypeUniformBufferDynamic, Count: 1, Stages: stages}
}

func StorageLayout(stages vulkan.ShaderStageFlagBits) LayoutBinding {
	return LayoutBinding{Type: vulkan.DescriptorTypeStorageBuffer, Count: 1, Stages: stages}
}

func SamplerLayout(count uint32, stages vulkan.ShaderStageFlagBits) LayoutBinding {
	return LayoutBinding{Type: vulkan.DescriptorTypeCombinedImageSampler, Count: count, Stages: stages}
}

// AttachmentLayout gives each of count sampled attachments its own binding so
// that the shader may declare them with different sampler types.
func AttachmentLayout(count uint32, stages vulkan.ShaderStageFlagBits) LayoutBinding {
	return LayoutBinding{Type: vulkan.DescriptorTypeCombinedImageSampler, Count: count, Stages: stages, Split: true}
}

func (l *DescriptorSetLayout) Destroy() {
	if l.Handle != vulkan.DescriptorSetLayout(vulkan.NullHandle) {
		vulkan.DestroyDescriptorSetLayout(l.device.Handle, l.Handle, nil)
		l.Handle = vulkan.DescriptorSetLayout(vulkan.NullHandle)
	}
}

type DescriptorSet struct {
	pool   *DescriptorPool
	layout *DescriptorSetLayout
	Handle vulkan.DescriptorSet
}

func NewDescriptorSet(pool *DescriptorPool, layout *DescriptorSetLayout) (*DescriptorSet, error) {
	allocInfo := vulkan.DescriptorSetAllocateInfo{
		SType:              vulkan.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool.Handle,
		DescriptorSetCount: 1,
		PSetLayouts:        []vulkan.DescriptorSetLayout{layout.Handle},
	}
	s := &DescriptorSet{pool: pool, layout: layout}
	if res := vulkan.AllocateDescriptorSets(pool.device.Handle, &allocInfo, &s.Handle); res != vulkan.Success {
		return nil, fmt.Errorf("allocate descriptor set: %w", vulkan.Error(res))
	}
	return s, nil
}

// WriteBuffer points the set at size bytes of buf. For dynamic uniform sets
// size is the range visible at each dynamic offset.
func (s *DescriptorSet) WriteBuffer(buf *Buffer, size uint64) {
	bufferInfo := vulkan.DescriptorBufferInfo{
		Buffer: buf.Handle,
		Offset: 0,
		Range:  vulkan.DeviceSize(size),
	}
	write := vulkan.WriteDescriptorSet{
		SType:           vulkan.StructureTypeWriteDescriptorSet,
		DstSet:          s.Handle,
		DstBinding:      0,
		DescriptorType:  s.layout.Binding.Type,
		DescriptorCount: 1,
		PBufferInfo:     []vulkan.DescriptorBufferInfo{bufferInfo},
	}
	vulkan.UpdateDescriptorSets(s.pool.device.Handle, 1, []vulkan.WriteDescriptorSet{write}, 0, nil)
}

// WriteImage binds a single combined image sampler.
func (s *DescriptorSet) WriteImage(view *ImageView, sampler *Sampler, layout vulkan.ImageLayout) {
	s.WriteImages([]*ImageView{view}, []vulkan.ImageLayout{layout}, sampler)
}

// WriteImages fills the set's combined image samplers, one layout per view.
func (s *DescriptorSet) WriteImages(views []*ImageView, layouts []vulkan.ImageLayout, sampler *Sampler) {
	infos := make([]vulkan.DescriptorImageInfo, len(views))
	for i, v := range views {
		infos[i] = vulkan.DescriptorImageInfo{
			Sampler:     sampler.Handle,
			ImageView:   v.Handle,
			ImageLayout: layouts[i],
		}
	}
	var writes []vulkan.WriteDescriptorSet
	if s.layout.Binding.Split {
		writes = make([]vulkan.WriteDescriptorSet, len(infos))
		for i := range infos {
			writes[i] = imageWrite(s.Handle, uint32(i), infos[i:i+1])
		}
	} else {
		writes = []vulkan.WriteDescriptorSet{imageWrite(s.Handle, 0, infos)}
	}
	vulkan.UpdateDescriptorSets(s.pool.device.Handle, uint32(len(writes)), writes, 0, nil)
}

func imageWrite(set vulkan.DescriptorSet, binding uint32, infos []vulkan.DescriptorImageInfo) vulkan.WriteDescriptorSet {
	return vulkan.WriteDescriptorSet{
		SType:           vulkan.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DescriptorType:  vulkan.DescriptorTypeCombinedImageSampler,
		DescriptorCount: uint32(len(infos)),
		PImageInfo:      infos,
	}
}

func (s *DescriptorSet) Free() {
	if s.Handle == vulkan.DescriptorSet(vulkan.NullHandle) {
		return
	}
	vulkan.FreeDescriptorSets(s.pool.device.Handle, s.pool.Handle, 1, &s.Handle)
	s.Handle = vulkan.DescriptorSet(vulkan.NullHandle)
}

// descriptorHandles is the argument CmdBindDescriptorSets wants.
func descriptorHandles(sets []*DescriptorSet) []vulkan.DescriptorSet {
	out := make([]vulkan.DescriptorSet, len(sets))
	for i, s := range sets {
		out[i] = s.Handle
	}
	return out
}

// BindDescriptorSets binds sets starting at set 0.
func BindDescriptorSets(cmd *CommandBuffer, pipeline *Pipeline, sets []*DescriptorSet, dynamicOffsets []uint32) {
	vulkan.CmdBindDescriptorSets(cmd.Handle, vulkan.PipelineBindPointGraphics, pipeline.Layout, 0,
		uint32(len(sets)), descriptorHandles(sets), uint32(len(dynamicOffsets)), dynamicOffsets)
}
