// Package render turns a scene into presented frames with a geometry, a
// shadow and a lighting pass.
package render

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/hellhand/kube/internal/assets"
	"github.com/hellhand/kube/internal/gpu"
)

type Mesh struct {
	Vertices   *gpu.Buffer
	Indices    *gpu.Buffer
	IndexCount uint32
}

func (m *Mesh) Destroy() {
	if m.Vertices != nil {
		m.Vertices.Destroy()
	}
	if m.Indices != nil {
		m.Indices.Destroy()
	}
}

// Material is a GPU resident material. ID is its slot in the material
// uniform buffer and never changes after loading.
type Material struct {
	ID           int
	DiffuseColor mgl32.Vec4
	Roughness    float32
	Metallic     float32

	// Texture paths are resolved; a missing map points at the default
	// texture and clears the matching Has flag.
	TexturePath       string
	NormalMapPath     string
	MetalRoughMapPath string
	HasTexture        bool
	HasNormalMap      bool
	HasMetalRoughMap  bool

	Meshes []*Mesh
}

type Model struct {
	ID        string
	Materials []*Material
}

func (m *Model) Destroy() {
	for _, mat := range m.Materials {
		for _, mesh := range mat.Meshes {
			mesh.Destroy()
		}
	}
}

// MaterialIDs hands out material slots across every loaded model.
type MaterialIDs struct{ next int }

func (ids *MaterialIDs) Next() int {
	id := ids.next
	ids.next++
	return id
}

// Count is the number of IDs handed out so far.
func (ids *MaterialIDs) Count() int { return ids.next }

// modelBuilder turns asset data into GPU models. uploadMesh is the only part
// that touches the device.
type modelBuilder struct {
	ids         *MaterialIDs
	defaultPath string
	uploadMesh  func(assets.MeshData) (*Mesh, error)
}

func (b modelBuilder) material(data assets.MaterialData) *Material {
	m := &Material{
		ID:           b.ids.Next(),
		DiffuseColor: data.DiffuseColor,
		Roughness:    data.Roughness,
		Metallic:     data.Metallic,
	}
	m.TexturePath, m.HasTexture = b.resolve(data.TexturePath)
	m.NormalMapPath, m.HasNormalMap = b.resolve(data.NormalMapPath)
	m.MetalRoughMapPath, m.HasMetalRoughMap = b.resolve(data.MetalRoughMapPath)
	return m
}

func (b modelBuilder) resolve(path string) (string, bool) {
	if path == "" {
		return b.defaultPath, false
	}
	return path, true
}

// build converts one model. Meshes with an out of range material index share
// a default material that is only created when needed.
func (b modelBuilder) build(data assets.ModelData) (*Model, error) {
	model := &Model{ID: data.ID}
	for _, mat := range data.Materials {
		model.Materials = append(model.Materials, b.material(mat))
	}
	declared := len(model.Materials)

	var fallback *Material
	for _, meshData := range data.Meshes {
		mesh, err := b.uploadMesh(meshData)
		if err != nil {
			model.Destroy()
			return nil, err
		}
		if meshData.MaterialIndex >= 0 && meshData.MaterialIndex < declared {
			mat := model.Materials[meshData.MaterialIndex]
			mat.Meshes = append(mat.Meshes, mesh)
			continue
		}
		if fallback == nil {
			fallback = b.material(assets.DefaultMaterial())
			model.Materials = append(model.Materials, fallback)
		}
		fallback.Meshes = append(fallback.Meshes, mesh)
	}
	return model, nil
}

// buildModels converts data with IDs continuing from ids and returns the
// advanced counter. The caller commits it only once the models are in use, so
// a rejected load does not consume material slots. On error every uploaded
// mesh is destroyed.
func buildModels(ids MaterialIDs, data []assets.ModelData, maxMaterials int, defaultPath string, upload func(assets.MeshData) (*Mesh, error)) ([]*Model, MaterialIDs, error) {
	b := modelBuilder{ids: &ids, defaultPath: defaultPath, uploadMesh: upload}
	models := make([]*Model, 0, len(data))
	for _, d := range data {
		m, err := b.build(d)
		if err != nil {
			destroyModels(models)
			return nil, ids, fmt.Errorf("model %s: %w", d.ID, err)
		}
		models = append(models, m)
	}
	if err := checkMaterialCapacity(models, maxMaterials); err != nil {
		destroyModels(models)
		return nil, ids, err
	}
	return models, ids, nil
}

func destroyModels(models []*Model) {
	for _, m := range models {
		m.Destroy()
	}
}

// texturePaths lists every texture the materials of models sample, in first
// use order, without duplicates.
func texturePaths(models []*Model) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, model := range models {
		for _, mat := range model.Materials {
			for _, p := range []string{mat.TexturePath, mat.NormalMapPath, mat.MetalRoughMapPath} {
				if !seen[p] {
					seen[p] = true
					paths = append(paths, p)
				}
			}
		}
	}
	return paths
}
