package scene

import "github.com/go-gl/mathgl/mgl32"

// Camera is a first-person camera: pitch around X, then yaw around Y.
type Camera struct {
	position mgl32.Vec3
	rotation mgl32.Vec2
	view     mgl32.Mat4
	moved    bool
}

func NewCamera() *Camera {
	c := &Camera{}
	c.recalculate()
	return c
}

func (c *Camera) Position() mgl32.Vec3 { return c.position }

// Rotation returns pitch and yaw in radians.
func (c *Camera) Rotation() mgl32.Vec2 { return c.rotation }

func (c *Camera) View() mgl32.Mat4 { return c.view }

// HasMoved reports whether the view changed since the last ResetMoved.
func (c *Camera) HasMoved() bool { return c.moved }

func (c *Camera) ResetMoved() { c.moved = false }

func (c *Camera) SetPosition(p mgl32.Vec3) {
	c.position = p
	c.recalculate()
}

func (c *Camera) SetRotation(pitch, yaw float32) {
	c.rotation = mgl32.Vec2{pitch, yaw}
	c.recalculate()
}

func (c *Camera) AddRotation(pitch, yaw float32) {
	c.rotation = c.rotation.Add(mgl32.Vec2{pitch, yaw})
	c.recalculate()
}

func (c *Camera) MoveForward(inc float32)   { c.move(c.axis(mgl32.Vec3{0, 0, -1}), inc) }
func (c *Camera) MoveBackwards(inc float32) { c.move(c.axis(mgl32.Vec3{0, 0, -1}), -inc) }
func (c *Camera) MoveRight(inc float32)     { c.move(c.axis(mgl32.Vec3{1, 0, 0}), inc) }
func (c *Camera) MoveLeft(inc float32)      { c.move(c.axis(mgl32.Vec3{1, 0, 0}), -inc) }
func (c *Camera) MoveUp(inc float32)        { c.move(mgl32.Vec3{0, 1, 0}, inc) }
func (c *Camera) MoveDown(inc float32)      { c.move(mgl32.Vec3{0, 1, 0}, -inc) }

func (c *Camera) move(dir mgl32.Vec3, inc float32) {
	c.position = c.position.Add(dir.Mul(inc))
	c.recalculate()
}

// axis maps a view-space direction into world space.
func (c *Camera) axis(v mgl32.Vec3) mgl32.Vec3 {
	return c.rotationMatrix().Transpose().Mul4x1(v.Vec4(0)).Vec3()
}

func (c *Camera) rotationMatrix() mgl32.Mat4 {
	return mgl32.HomogRotate3DX(c.rotation.X()).Mul4(mgl32.HomogRotate3DY(c.rotation.Y()))
}

func (c *Camera) recalculate() {
	c.view = c.rotationMatrix().Mul4(mgl32.Translate3D(-c.position.X(), -c.position.Y(), -c.position.Z()))
	c.moved = true
}
