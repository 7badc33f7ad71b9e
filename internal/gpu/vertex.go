package gpu

import "github.com/vulkan-go/vulkan"

// VertexStride is position, normal, tangent, bitangent (vec3 each) plus a vec2
// texture coordinate.
const VertexStride = 14 * 4

// VertexLayout describes how vertex buffers feed a pipeline.
type VertexLayout struct {
	Bindings   []vulkan.VertexInputBindingDescription
	Attributes []vulkan.VertexInputAttributeDescription
}

// MeshVertexLayout is the interleaved layout of uploaded meshes.
func MeshVertexLayout() VertexLayout {
	attrs := []vulkan.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vulkan.FormatR32g32b32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vulkan.FormatR32g32b32Sfloat, Offset: 12},
		{Location: 2, Binding: 0, Format: vulkan.FormatR32g32b32Sfloat, Offset: 24},
		{Location: 3, Binding: 0, Format: vulkan.FormatR32g32b32Sfloat, Offset: 36},
		{Location: 4, Binding: 0, Format: vulkan.FormatR32g32Sfloat, Offset: 48},
	}
	return VertexLayout{
		Bindings: []vulkan.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    VertexStride,
			InputRate: vulkan.VertexInputRateVertex,
		}},
		Attributes: attrs,
	}
}

// EmptyVertexLayout is used by full-screen passes that generate vertices in
// the shader.
func EmptyVertexLayout() VertexLayout {
	return VertexLayout{}
}

func (l VertexLayout) state() vulkan.PipelineVertexInputStateCreateInfo {
	return vulkan.PipelineVertexInputStateCreateInfo{
		SType:                           vulkan.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(l.Bindings)),
		PVertexBindingDescriptions:      l.Bindings,
		VertexAttributeDescriptionCount: uint32(len(l.Attributes)),
		PVertexAttributeDescriptions:    l.Attributes,
	}
}
