package render

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/hellhand/kube/internal/gpu"
	"github.com/hellhand/kube/internal/scene"
	"github.com/hellhand/kube/internal/shadow"
)

const (
	mat4Size = 16 * 4
	vec4Size = 4 * 4

	// materialSize is vec4 diffuse, three texture flags, roughness, metallic
	// and three floats of padding.
	materialSize = vec4Size + 8*4

	// lightSize is a vec4 position and a vec4 color.
	lightSize = 2 * vec4Size
	// lightBufferSize holds the ambient color, the light count padded to a
	// vec4 and scene.MaxLights lights.
	lightBufferSize = vec4Size + vec4Size + scene.MaxLights*lightSize

	invMatricesSize = 2 * mat4Size
	// cascadeSize is the light projection-view and the split distance in x
	// of a vec4.
	cascadeSize        = mat4Size + vec4Size
	cascadesBufferSize = shadow.CascadeCount * cascadeSize
)

var ErrTooManyMaterials = errors.New("too many materials")

// materialStride is the distance between material slots, honouring the
// dynamic uniform offset alignment.
func materialStride(minAlignment uint64) uint64 {
	return gpu.AlignUp(materialSize, minAlignment)
}

func materialOffset(id int, stride uint64) uint32 {
	return uint32(uint64(id) * stride)
}

// checkMaterialCapacity fails when any material ID does not fit the buffer.
func checkMaterialCapacity(models []*Model, maxMaterials int) error {
	for _, model := range models {
		for _, mat := range model.Materials {
			if mat.ID >= maxMaterials {
				return fmt.Errorf("material %d of model %q exceeds limit %d: %w", mat.ID, model.ID, maxMaterials, ErrTooManyMaterials)
			}
		}
	}
	return nil
}

func flag(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

func putFloats(dst []byte, values ...float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

func putMat4(dst []byte, m mgl32.Mat4) {
	putFloats(dst, m[:]...)
}

func putVec4(dst []byte, v mgl32.Vec4) {
	putFloats(dst, v[:]...)
}

func packMaterial(m *Material) []byte {
	out := make([]byte, materialSize)
	putVec4(out, m.DiffuseColor)
	putFloats(out[vec4Size:],
		flag(m.HasTexture), flag(m.HasNormalMap), flag(m.HasMetalRoughMap),
		m.Roughness, m.Metallic)
	return out
}

func packMat4(m mgl32.Mat4) []byte {
	out := make([]byte, mat4Size)
	putMat4(out, m)
	return out
}

// packLights writes the light storage buffer. Positions move into view
// space; a w of 0 makes directional lights transform as directions.
func packLights(ambient mgl32.Vec4, lights []scene.Light, view mgl32.Mat4) []byte {
	out := make([]byte, lightBufferSize)
	putVec4(out, ambient)
	n := min(len(lights), scene.MaxLights)
	binary.LittleEndian.PutUint32(out[vec4Size:], uint32(n))
	base := 2 * vec4Size
	for i := 0; i < n; i++ {
		off := base + i*lightSize
		putVec4(out[off:], view.Mul4x1(lights[i].Position))
		putVec4(out[off+vec4Size:], lights[i].Color)
	}
	return out
}

// packInvMatrices writes the inverse projection followed by the inverse view.
func packInvMatrices(projection, view mgl32.Mat4) []byte {
	out := make([]byte, invMatricesSize)
	putMat4(out, projection.Inv())
	putMat4(out[mat4Size:], view.Inv())
	return out
}

func packCascades(cascades []shadow.Cascade) []byte {
	out := make([]byte, cascadesBufferSize)
	for i, c := range cascades {
		if i >= shadow.CascadeCount {
			break
		}
		off := i * cascadeSize
		putMat4(out[off:], c.ProjView)
		putVec4(out[off+mat4Size:], mgl32.Vec4{c.SplitDistance, 0, 0, 0})
	}
	return out
}

// packCascadeMatrices is the shadow pass view of the cascades: the light
// matrices only.
func packCascadeMatrices(cascades []shadow.Cascade) []byte {
	out := make([]byte, shadow.CascadeCount*mat4Size)
	for i, c := range cascades {
		if i >= shadow.CascadeCount {
			break
		}
		putMat4(out[i*mat4Size:], c.ProjView)
	}
	return out
}
