package window

import "github.com/go-gl/mathgl/mgl32"

// MouseInput tracks the cursor between polls. Displacement is (dy, dx) so it
// can be added straight to a camera's (pitch, yaw).
type MouseInput struct {
	previous     mgl32.Vec2
	current      mgl32.Vec2
	displacement mgl32.Vec2
	inWindow     bool
	leftPressed  bool
	rightPressed bool
}

func newMouseInput() *MouseInput {
	return &MouseInput{previous: mgl32.Vec2{-1, -1}}
}

func (m *MouseInput) Displacement() mgl32.Vec2 { return m.displacement }
func (m *MouseInput) Position() mgl32.Vec2     { return m.current }
func (m *MouseInput) InWindow() bool           { return m.inWindow }
func (m *MouseInput) LeftButtonPressed() bool  { return m.leftPressed }
func (m *MouseInput) RightButtonPressed() bool { return m.rightPressed }

func (m *MouseInput) moveTo(x, y float32) { m.current = mgl32.Vec2{x, y} }

func (m *MouseInput) setInWindow(in bool) { m.inWindow = in }

func (m *MouseInput) setButtons(left, right bool) {
	m.leftPressed = left
	m.rightPressed = right
}

// input computes the displacement since the previous poll. The first poll
// after the cursor appears yields none.
func (m *MouseInput) input() {
	m.displacement = mgl32.Vec2{}
	if m.previous.X() >= 0 && m.previous.Y() >= 0 && m.inWindow {
		m.displacement = mgl32.Vec2{
			m.current.Y() - m.previous.Y(),
			m.current.X() - m.previous.X(),
		}
	}
	m.previous = m.current
}
