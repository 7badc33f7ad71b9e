// Package window owns the glfw window the renderer presents to.
package window

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/vulkan-go/glfw/v3.3/glfw"
	"github.com/vulkan-go/vulkan"
)

var ErrVulkanUnsupported = errors.New("no Vulkan capable driver found")

// Window wraps a glfw window without a client API. All methods must be called
// from the thread that created it.
type Window struct {
	handle  *glfw.Window
	mouse   *MouseInput
	width   int
	height  int
	resized bool
}

// New initializes glfw and opens a window. A zero width or height uses the
// primary monitor's video mode.
func New(title string, width, height int) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("init glfw: %w", err)
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return nil, ErrVulkanUnsupported
	}
	if width <= 0 || height <= 0 {
		mode := glfw.GetPrimaryMonitor().GetVideoMode()
		width, height = mode.Width, mode.Height
	}

	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Maximized, glfw.False)
	handle, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}

	w := &Window{handle: handle, mouse: newMouseInput()}
	w.width, w.height = handle.GetFramebufferSize()

	handle.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.resize(width, height)
	})
	handle.SetKeyCallback(func(win *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Release {
			win.SetShouldClose(true)
		}
	})
	handle.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		w.mouse.moveTo(float32(x), float32(y))
	})
	handle.SetCursorEnterCallback(func(_ *glfw.Window, entered bool) {
		w.mouse.setInWindow(entered)
	})
	handle.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		w.mouse.setButtons(
			button == glfw.MouseButtonLeft && action == glfw.Press,
			button == glfw.MouseButtonRight && action == glfw.Press,
		)
	})
	return w, nil
}

func (w *Window) Width() int  { return w.width }
func (w *Window) Height() int { return w.height }

func (w *Window) Resized() bool { return w.resized }
func (w *Window) ResetResized() { w.resized = false }

// SetResized asks for a swapchain rebuild on the next frame.
func (w *Window) SetResized() { w.resized = true }

func (w *Window) resize(width, height int) {
	w.resized = true
	w.width = width
	w.height = height
}

func (w *Window) MouseInput() *MouseInput { return w.mouse }

func (w *Window) IsKeyPressed(key glfw.Key) bool {
	return w.handle.GetKey(key) == glfw.Press
}

func (w *Window) PollEvents() {
	glfw.PollEvents()
	w.mouse.input()
}

// WaitForSize blocks while the framebuffer has no area.
func (w *Window) WaitForSize() {
	for w.width <= 0 || w.height <= 0 {
		glfw.WaitEventsTimeout(0.01)
		w.width, w.height = w.handle.GetFramebufferSize()
	}
}

func (w *Window) ShouldClose() bool { return w.handle.ShouldClose() }
func (w *Window) SetShouldClose()   { w.handle.SetShouldClose(true) }

func (w *Window) SetTitle(title string) { w.handle.SetTitle(title) }

func (w *Window) InstanceProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func (w *Window) RequiredInstanceExtensions() []string {
	return w.handle.GetRequiredInstanceExtensions()
}

func (w *Window) CreateSurface(instance vulkan.Instance) (vulkan.Surface, error) {
	ptr, err := w.handle.CreateWindowSurface(instance, nil)
	if err != nil {
		return vulkan.Surface(vulkan.NullHandle), fmt.Errorf("create window surface: %w", err)
	}
	return vulkan.SurfaceFromPointer(ptr), nil
}

func (w *Window) Destroy() {
	w.handle.Destroy()
	glfw.Terminate()
}
