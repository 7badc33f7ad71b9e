package gpu

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vulkan-go/vulkan"
)

type PipelineCache struct {
	device *Device
	Handle vulkan.PipelineCache
}

func NewPipelineCache(device *Device) (*PipelineCache, error) {
	info := vulkan.PipelineCacheCreateInfo{
		SType: vulkan.StructureTypePipelineCacheCreateInfo,
	}
	c := &PipelineCache{device: device}
	if res := vulkan.CreatePipelineCache(device.Handle, &info, nil, &c.Handle); res != vulkan.Success {
		return nil, fmt.Errorf("create pipeline cache: %w", vulkan.Error(res))
	}
	return c, nil
}

func (c *PipelineCache) Destroy() {
	if c.Handle != vulkan.PipelineCache(vulkan.NullHandle) {
		vulkan.DestroyPipelineCache(c.device.Handle, c.Handle, nil)
		c.Handle = vulkan.PipelineCache(vulkan.NullHandle)
	}
}

type PipelineInfo struct {
	RenderPass       *RenderPass
	Program          *ShaderProgram
	VertexLayout     VertexLayout
	ColorAttachments int
	DepthTest        bool
	Blend            bool
	DepthClamp       bool
	// PushConstantSize is visible to the vertex stage.
	PushConstantSize uint32
	SetLayouts       []*DescriptorSetLayout
}

type Pipeline struct {
	device *Device
	Handle vulkan.Pipeline
	Layout vulkan.PipelineLayout
}

// NewPipeline builds a triangle list pipeline with dynamic viewport and
// scissor. Depth writes follow DepthTest with LESS_OR_EQUAL.
func NewPipeline(cache *PipelineCache, info PipelineInfo) (*Pipeline, error) {
	device := cache.device
	vertexInput := info.VertexLayout.state()

	inputAssembly := vulkan.PipelineInputAssemblyStateCreateInfo{
		SType:                  vulkan.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vulkan.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vulkan.False,
	}

	viewportState := vulkan.PipelineViewportStateCreateInfo{
		SType:         vulkan.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizer := vulkan.PipelineRasterizationStateCreateInfo{
		SType:                   vulkan.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        depthClampEnable(info.DepthClamp, device.Physical.SupportsDepthClamp()),
		RasterizerDiscardEnable: vulkan.False,
		PolygonMode:             vulkan.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vulkan.CullModeFlags(vulkan.CullModeNone),
		FrontFace:               vulkan.FrontFaceCounterClockwise,
		DepthBiasEnable:         vulkan.False,
	}

	multisampling := vulkan.PipelineMultisampleStateCreateInfo{
		SType:                vulkan.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vulkan.SampleCount1Bit,
	}

	var depthStencil *vulkan.PipelineDepthStencilStateCreateInfo
	if info.DepthTest {
		depthStencil = &vulkan.PipelineDepthStencilStateCreateInfo{
			SType:                 vulkan.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthTestEnable:       vulkan.True,
			DepthWriteEnable:      vulkan.True,
			DepthCompareOp:        vulkan.CompareOpLessOrEqual,
			DepthBoundsTestEnable: vulkan.False,
			StencilTestEnable:     vulkan.False,
		}
	}

	blendAttachments := make([]vulkan.PipelineColorBlendAttachmentState, info.ColorAttachments)
	for i := range blendAttachments {
		blendAttachments[i] = vulkan.PipelineColorBlendAttachmentState{
			ColorWriteMask: vulkan.ColorComponentFlags(vulkan.ColorComponentRBit | vulkan.ColorComponentGBit | vulkan.ColorComponentBBit | vulkan.ColorComponentABit),
			BlendEnable:    vulkan.False,
		}
		if info.Blend {
			blendAttachments[i].BlendEnable = vulkan.True
			blendAttachments[i].SrcColorBlendFactor = vulkan.BlendFactorSrcAlpha
			blendAttachments[i].DstColorBlendFactor = vulkan.BlendFactorOneMinusSrcAlpha
			blendAttachments[i].ColorBlendOp = vulkan.BlendOpAdd
			blendAttachments[i].SrcAlphaBlendFactor = vulkan.BlendFactorOne
			blendAttachments[i].DstAlphaBlendFactor = vulkan.BlendFactorZero
			blendAttachments[i].AlphaBlendOp = vulkan.BlendOpAdd
		}
	}
	colorBlending := vulkan.PipelineColorBlendStateCreateInfo{
		SType:           vulkan.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	dynamicStates := []vulkan.DynamicState{vulkan.DynamicStateViewport, vulkan.DynamicStateScissor}
	dynamicState := vulkan.PipelineDynamicStateCreateInfo{
		SType:             vulkan.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	setLayouts := make([]vulkan.DescriptorSetLayout, len(info.SetLayouts))
	for i, l := range info.SetLayouts {
		setLayouts[i] = l.Handle
	}
	pipelineLayoutInfo := vulkan.PipelineLayoutCreateInfo{
		SType:          vulkan.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}
	if info.PushConstantSize > 0 {
		pipelineLayoutInfo.PushConstantRangeCount = 1
		pipelineLayoutInfo.PPushConstantRanges = []vulkan.PushConstantRange{{
			StageFlags: vulkan.ShaderStageFlags(vulkan.ShaderStageVertexBit),
			Offset:     0,
			Size:       info.PushConstantSize,
		}}
	}

	p := &Pipeline{device: device}
	if res := vulkan.CreatePipelineLayout(device.Handle, &pipelineLayoutInfo, nil, &p.Layout); res != vulkan.Success {
		return nil, fmt.Errorf("create pipeline layout: %w", vulkan.Error(res))
	}

	shaderStages := info.Program.stages()
	pipelineInfo := vulkan.GraphicsPipelineCreateInfo{
		SType:               vulkan.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(shaderStages)),
		PStages:             shaderStages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PDepthStencilState:  depthStencil,
		PColorBlendState:    &colorBlending,
		PDynamicState:       &dynamicState,
		Layout:              p.Layout,
		RenderPass:          info.RenderPass.Handle,
		Subpass:             0,
	}

	pipelines := make([]vulkan.Pipeline, 1)
	if res := vulkan.CreateGraphicsPipelines(device.Handle, cache.Handle, 1, []vulkan.GraphicsPipelineCreateInfo{pipelineInfo}, nil, pipelines); res != vulkan.Success {
		vulkan.DestroyPipelineLayout(device.Handle, p.Layout, nil)
		return nil, fmt.Errorf("create graphics pipeline: %w", vulkan.Error(res))
	}
	p.Handle = pipelines[0]
	return p, nil
}

func (p *Pipeline) Bind(cmd *CommandBuffer) {
	vulkan.CmdBindPipeline(cmd.Handle, vulkan.PipelineBindPointGraphics, p.Handle)
}

// PushMatrix pushes a mat4 at offset 0 of the vertex stage push constants.
func (p *Pipeline) PushMatrix(cmd *CommandBuffer, m mgl32.Mat4) {
	vulkan.CmdPushConstants(cmd.Handle, p.Layout, vulkan.ShaderStageFlags(vulkan.ShaderStageVertexBit), 0, uint32(len(m)*4), unsafe.Pointer(&m[0]))
}

func (p *Pipeline) Destroy() {
	if p.Handle != vulkan.Pipeline(vulkan.NullHandle) {
		vulkan.DestroyPipeline(p.device.Handle, p.Handle, nil)
		p.Handle = vulkan.Pipeline(vulkan.NullHandle)
	}
	if p.Layout != vulkan.PipelineLayout(vulkan.NullHandle) {
		vulkan.DestroyPipelineLayout(p.device.Handle, p.Layout, nil)
		p.Layout = vulkan.PipelineLayout(vulkan.NullHandle)
	}
}

// FlippedViewport sets a viewport with y pointing up and a matching scissor.
func FlippedViewport(cmd *CommandBuffer, width, height uint32) {
	vulkan.CmdSetViewport(cmd.Handle, 0, 1, []vulkan.Viewport{{
		X:        0,
		Y:        float32(height),
		Width:    float32(width),
		Height:   -float32(height),
		MinDepth: 0,
		MaxDepth: 1,
	}})
	SetScissor(cmd, width, height)
}

// SetViewport sets a regular viewport and a matching scissor.
func SetViewport(cmd *CommandBuffer, width, height uint32) {
	vulkan.CmdSetViewport(cmd.Handle, 0, 1, []vulkan.Viewport{{
		Width:    float32(width),
		Height:   float32(height),
		MinDepth: 0,
		MaxDepth: 1,
	}})
	SetScissor(cmd, width, height)
}

func SetScissor(cmd *CommandBuffer, width, height uint32) {
	vulkan.CmdSetScissor(cmd.Handle, 0, 1, []vulkan.Rect2D{{
		Extent: vulkan.Extent2D{Width: width, Height: height},
	}})
}

// depthClampEnable turns depth clamping on only when it was asked for and the
// device supports it.
func depthClampEnable(requested, supported bool) vulkan.Bool32 {
	if requested && supported {
		return vulkan.True
	}
	return vulkan.False
}
