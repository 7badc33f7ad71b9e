package scene

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxLights is the capacity of the lighting pass light buffer.
const MaxLights = 10

var ErrTooManyLights = errors.New("too many lights")

var DefaultAmbientLight = mgl32.Vec4{0.2, 0.2, 0.2, 1.0}

// Light is a point light when Position.W() is 1 and a directional light when
// it is 0, in which case Position holds the direction the light comes from.
// Color carries RGB and intensity in W.
type Light struct {
	Position mgl32.Vec4
	Color    mgl32.Vec4
}

func NewPointLight(position mgl32.Vec3, color mgl32.Vec3, intensity float32) Light {
	return Light{Position: position.Vec4(1), Color: color.Vec4(intensity)}
}

func NewDirectionalLight(position mgl32.Vec3, color mgl32.Vec3, intensity float32) Light {
	return Light{Position: position.Vec4(0), Color: color.Vec4(intensity)}
}

func (l Light) Directional() bool { return l.Position.W() == 0 }
