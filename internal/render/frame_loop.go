package render

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/hellhand/kube/internal/gpu"
	"github.com/hellhand/kube/internal/scene"
	"github.com/hellhand/kube/internal/shadow"
)

// Window is what the frame loop needs from the window system.
type Window interface {
	Width() int
	Height() int
	Resized() bool
	ResetResized()
	SetResized()
}

type presenter interface {
	AcquireNextImage() (imageIndex uint32, outOfDate bool, err error)
	PresentImage(imageIndex uint32) (needsResize bool, err error)
	Recreate() error
}

// swapchainPresenter presents on a fixed queue.
type swapchainPresenter struct {
	swapchain *gpu.Swapchain
	queue     gpu.Queue
}

func (p swapchainPresenter) AcquireNextImage() (uint32, bool, error) {
	return p.swapchain.AcquireNextImage()
}

func (p swapchainPresenter) PresentImage(imageIndex uint32) (bool, error) {
	return p.swapchain.PresentImage(p.queue, imageIndex)
}

func (p swapchainPresenter) Recreate() error { return p.swapchain.Recreate() }

type geometryStage interface {
	WaitForFence() error
	Record(frame scene.FrameView, plan DrawPlan) (*gpu.CommandBuffer, error)
	Submit(cmd *gpu.CommandBuffer) error
	Resize(projection mgl32.Mat4) error
	Attachments() []*gpu.Attachment
}

type shadowStage interface {
	Record(cmd *gpu.CommandBuffer, frame scene.FrameView, plan DrawPlan) error
	Cascades() []shadow.Cascade
	Resize()
	DepthAttachment() *gpu.Attachment
}

type lightingStage interface {
	Prepare(imageIndex uint32, frame scene.FrameView, cascades []shadow.Cascade) error
	Submit(imageIndex uint32) error
	Resize(attachments []*gpu.Attachment) error
}

// frameLoop sequences one frame across the passes. It holds no GPU objects
// itself.
type frameLoop struct {
	window    Window
	scene     *scene.Scene
	presenter presenter
	geometry  geometryStage
	shadow    shadowStage
	lighting  lightingStage
	waitIdle  func()

	models         []*Model
	materialStride uint64
}

func (f *frameLoop) render() error {
	if f.window.Width() <= 0 || f.window.Height() <= 0 {
		return nil
	}
	if err := f.geometry.WaitForFence(); err != nil {
		return err
	}
	if f.window.Resized() {
		f.window.ResetResized()
		if err := f.resize(); err != nil {
			return err
		}
	}

	imageIndex, outOfDate, err := f.presenter.AcquireNextImage()
	if err != nil {
		return err
	}
	if outOfDate {
		f.window.ResetResized()
		if err := f.resize(); err != nil {
			return err
		}
		imageIndex, outOfDate, err = f.presenter.AcquireNextImage()
		if err != nil {
			return err
		}
		if outOfDate {
			return nil
		}
	}

	frame := f.scene.NextFrame()
	plan := BuildDrawPlan(f.models, frame, f.materialStride)

	cmd, err := f.geometry.Record(frame, plan)
	if err != nil {
		return err
	}
	if err := f.shadow.Record(cmd, frame, plan); err != nil {
		return err
	}
	if err := f.geometry.Submit(cmd); err != nil {
		return err
	}

	if err := f.lighting.Prepare(imageIndex, frame, f.shadow.Cascades()); err != nil {
		return err
	}
	if err := f.lighting.Submit(imageIndex); err != nil {
		return err
	}

	needsResize, err := f.presenter.PresentImage(imageIndex)
	if err != nil {
		return err
	}
	if needsResize {
		f.window.SetResized()
	}
	return nil
}

// resize rebuilds the swapchain and everything sized after it, once each.
func (f *frameLoop) resize() error {
	f.waitIdle()
	if err := f.presenter.Recreate(); err != nil {
		return err
	}
	f.scene.Resize(f.window.Width(), f.window.Height())
	if err := f.geometry.Resize(f.scene.Projection().Matrix()); err != nil {
		return err
	}
	f.shadow.Resize()
	return f.lighting.Resize(lightingInputs(f.geometry, f.shadow))
}

// lightingInputs is the G-buffer followed by the shadow depth array.
func lightingInputs(g geometryStage, s shadowStage) []*gpu.Attachment {
	return append(slices.Clone(g.Attachments()), s.DepthAttachment())
}
