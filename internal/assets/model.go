// Package assets holds CPU-side model data and decodes texture images.
package assets

import "github.com/go-gl/mathgl/mgl32"

// NoMaterial marks a mesh without a material in its model.
const NoMaterial = -1

// VertexFloats is the number of float32 per interleaved vertex:
// position, normal, tangent, bitangent, texture coordinates.
const VertexFloats = 3 + 3 + 3 + 3 + 2

var DefaultDiffuseColor = mgl32.Vec4{1, 1, 1, 1}

type ModelData struct {
	ID        string
	Meshes    []MeshData
	Materials []MaterialData
}

type MeshData struct {
	Positions  []float32
	Normals    []float32
	Tangents   []float32
	Bitangents []float32
	TexCoords  []float32
	Indices    []uint32
	// MaterialIndex indexes ModelData.Materials, or is NoMaterial.
	MaterialIndex int
}

type MaterialData struct {
	TexturePath       string
	NormalMapPath     string
	MetalRoughMapPath string
	DiffuseColor      mgl32.Vec4
	Roughness         float32
	Metallic          float32
}

func DefaultMaterial() MaterialData {
	return MaterialData{DiffuseColor: DefaultDiffuseColor}
}

func (m MeshData) VertexCount() int { return len(m.Positions) / 3 }

// Interleave packs the vertex attributes in the layout the pipelines expect.
// Missing attributes are zero.
func (m MeshData) Interleave() []float32 {
	n := m.VertexCount()
	out := make([]float32, 0, n*VertexFloats)
	for i := 0; i < n; i++ {
		out = appendAttr(out, m.Positions, i, 3)
		out = appendAttr(out, m.Normals, i, 3)
		out = appendAttr(out, m.Tangents, i, 3)
		out = appendAttr(out, m.Bitangents, i, 3)
		out = appendAttr(out, m.TexCoords, i, 2)
	}
	return out
}

func appendAttr(dst, src []float32, vertex, size int) []float32 {
	start := vertex * size
	if start+size > len(src) {
		for i := 0; i < size; i++ {
			dst = append(dst, 0)
		}
		return dst
	}
	return append(dst, src[start:start+size]...)
}

// Cube is a two unit cube centred on the origin without materials.
func Cube(id string) ModelData {
	positions := []float32{
		-1, -1, -1,
		1, -1, -1,
		1, 1, -1,
		-1, 1, -1,
		-1, -1, 1,
		1, -1, 1,
		1, 1, 1,
		-1, 1, 1,
	}
	normals := make([]float32, len(positions))
	for i := 0; i < len(positions); i += 3 {
		n := mgl32.Vec3{positions[i], positions[i+1], positions[i+2]}.Normalize()
		copy(normals[i:], n[:])
	}
	texCoords := []float32{
		0, 0, 1, 0, 1, 1, 0, 1,
		1, 0, 0, 0, 0, 1, 1, 1,
	}
	return ModelData{
		ID: id,
		Meshes: []MeshData{{
			Positions: positions,
			Normals:   normals,
			TexCoords: texCoords,
			Indices: []uint32{
				0, 2, 1, 2, 0, 3, // back
				4, 5, 6, 6, 7, 4, // front
				4, 1, 5, 1, 4, 0, // bottom
				7, 6, 2, 2, 3, 7, // top
				4, 3, 0, 3, 4, 7, // left
				5, 1, 2, 2, 6, 5, // right
			},
			MaterialIndex: NoMaterial,
		}},
	}
}
