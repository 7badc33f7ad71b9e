package render

import (
	"errors"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/hellhand/kube/internal/assets"
)

const testDefaultTexture = "default.png"

func fakeUpload(data assets.MeshData) (*Mesh, error) {
	return &Mesh{IndexCount: uint32(len(data.Indices))}, nil
}

func newTestBuilder(ids *MaterialIDs) modelBuilder {
	return modelBuilder{ids: ids, defaultPath: testDefaultTexture, uploadMesh: fakeUpload}
}

func TestBuildCubeUsesDefaultMaterial(t *testing.T) {
	var ids MaterialIDs
	model, err := newTestBuilder(&ids).build(assets.Cube("cube"))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(model.Materials) != 1 {
		t.Fatalf("materials = %d, want 1", len(model.Materials))
	}
	mat := model.Materials[0]
	if mat.ID != 0 || len(mat.Meshes) != 1 || mat.Meshes[0].IndexCount != 36 {
		t.Fatalf("unexpected default material %+v", mat)
	}
	if mat.TexturePath != testDefaultTexture || mat.HasTexture || mat.HasNormalMap || mat.HasMetalRoughMap {
		t.Errorf("default material should sample the default texture without flags: %+v", mat)
	}
	if mat.DiffuseColor != assets.DefaultDiffuseColor {
		t.Errorf("diffuse = %v", mat.DiffuseColor)
	}
}

func TestBuildAssignsIDsAcrossModels(t *testing.T) {
	var ids MaterialIDs
	b := newTestBuilder(&ids)
	withMaterials := assets.ModelData{
		ID: "house",
		Materials: []assets.MaterialData{
			{TexturePath: "wall.png", NormalMapPath: "wall_n.png", DiffuseColor: mgl32.Vec4{1, 0, 0, 1}},
			{TexturePath: "roof.png"},
			{}, // no meshes reference this one
		},
		Meshes: []assets.MeshData{
			{Indices: []uint32{0, 1, 2}, MaterialIndex: 0},
			{Indices: []uint32{0, 1, 2}, MaterialIndex: 1},
			{Indices: []uint32{0, 1, 2}, MaterialIndex: 7},
		},
	}
	house, err := b.build(withMaterials)
	if err != nil {
		t.Fatalf("build house: %v", err)
	}
	cube, err := b.build(assets.Cube("cube"))
	if err != nil {
		t.Fatalf("build cube: %v", err)
	}

	var got []int
	for _, m := range append(house.Materials, cube.Materials...) {
		got = append(got, m.ID)
	}
	if want := []int{0, 1, 2, 3, 4}; !slices.Equal(got, want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
	if ids.Count() != 5 {
		t.Errorf("Count = %d", ids.Count())
	}
	if len(house.Materials[2].Meshes) != 0 {
		t.Errorf("unused material should have no meshes")
	}
	if fallback := house.Materials[3]; len(fallback.Meshes) != 1 || fallback.TexturePath != testDefaultTexture {
		t.Errorf("out of range material index should use the default material: %+v", fallback)
	}
	wall := house.Materials[0]
	if !wall.HasTexture || !wall.HasNormalMap || wall.HasMetalRoughMap || wall.MetalRoughMapPath != testDefaultTexture {
		t.Errorf("wall flags wrong: %+v", wall)
	}
}

func TestBuildUploadFailure(t *testing.T) {
	var ids MaterialIDs
	boom := errors.New("boom")
	calls := 0
	b := modelBuilder{ids: &ids, defaultPath: testDefaultTexture, uploadMesh: func(d assets.MeshData) (*Mesh, error) {
		calls++
		if calls == 2 {
			return nil, boom
		}
		return &Mesh{}, nil
	}}
	data := assets.Cube("cube")
	data.Meshes = append(data.Meshes, data.Meshes[0])
	if _, err := b.build(data); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestTexturePathsDedupeInOrder(t *testing.T) {
	models := []*Model{
		{ID: "a", Materials: []*Material{
			{TexturePath: "x.png", NormalMapPath: testDefaultTexture, MetalRoughMapPath: testDefaultTexture},
			{TexturePath: "y.png", NormalMapPath: "x.png", MetalRoughMapPath: testDefaultTexture},
		}},
		{ID: "b", Materials: []*Material{
			{TexturePath: "z.png", NormalMapPath: "y.png", MetalRoughMapPath: "z.png"},
		}},
	}
	want := []string{"x.png", testDefaultTexture, "y.png", "z.png"}
	if got := texturePaths(models); !slices.Equal(got, want) {
		t.Fatalf("texturePaths = %v, want %v", got, want)
	}
}

func TestBuildModelsKeepsIDsOnRejectedLoad(t *testing.T) {
	var ids MaterialIDs
	three := []assets.ModelData{assets.Cube("a"), assets.Cube("b"), assets.Cube("c")}
	if _, _, err := buildModels(ids, three, 2, testDefaultTexture, fakeUpload); !errors.Is(err, ErrTooManyMaterials) {
		t.Fatalf("err = %v, want ErrTooManyMaterials", err)
	}

	models, next, err := buildModels(ids, three[:1], 2, testDefaultTexture, fakeUpload)
	if err != nil {
		t.Fatalf("buildModels: %v", err)
	}
	if got := models[0].Materials[0].ID; got != 0 {
		t.Errorf("first material after a rejected load has ID %d, want 0", got)
	}
	if next.Count() != 1 {
		t.Errorf("next.Count = %d, want 1", next.Count())
	}
}

func TestBuildModelsUploadErrorNamesModel(t *testing.T) {
	boom := errors.New("boom")
	_, _, err := buildModels(MaterialIDs{}, []assets.ModelData{assets.Cube("cube")}, 10, testDefaultTexture,
		func(assets.MeshData) (*Mesh, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
