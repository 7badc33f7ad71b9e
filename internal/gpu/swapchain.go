package gpu

import (
	"fmt"
	"log"
	"math"

	"github.com/vulkan-go/vulkan"
)

// SurfaceSizer reports the framebuffer size of the window behind a surface.
type SurfaceSizer interface {
	Width() int
	Height() int
}

type swapchainSupport struct {
	capabilities vulkan.SurfaceCapabilities
	formats      []vulkan.SurfaceFormat
	presentModes []vulkan.PresentMode
}

func querySwapchainSupport(device vulkan.PhysicalDevice, surface vulkan.Surface) swapchainSupport {
	var details swapchainSupport
	vulkan.GetPhysicalDeviceSurfaceCapabilities(device, surface, &details.capabilities)
	details.capabilities.Deref()
	details.capabilities.CurrentExtent.Deref()
	details.capabilities.MinImageExtent.Deref()
	details.capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	vulkan.GetPhysicalDeviceSurfaceFormats(device, surface, &formatCount, nil)
	if formatCount > 0 {
		details.formats = make([]vulkan.SurfaceFormat, formatCount)
		vulkan.GetPhysicalDeviceSurfaceFormats(device, surface, &formatCount, details.formats)
		for i := range details.formats {
			details.formats[i].Deref()
		}
	}

	var presentCount uint32
	vulkan.GetPhysicalDeviceSurfacePresentModes(device, surface, &presentCount, nil)
	if presentCount > 0 {
		details.presentModes = make([]vulkan.PresentMode, presentCount)
		vulkan.GetPhysicalDeviceSurfacePresentModes(device, surface, &presentCount, details.presentModes)
	}
	return details
}

func chooseSwapSurfaceFormat(available []vulkan.SurfaceFormat) vulkan.SurfaceFormat {
	for _, f := range available {
		if f.Format == vulkan.FormatB8g8r8a8Srgb && f.ColorSpace == vulkan.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return available[0]
}

// chooseSwapPresentMode uses FIFO for vsync, otherwise the lowest latency
// mode available.
func chooseSwapPresentMode(available []vulkan.PresentMode, vsync bool) vulkan.PresentMode {
	if vsync {
		return vulkan.PresentModeFifo
	}
	for _, want := range []vulkan.PresentMode{vulkan.PresentModeMailbox, vulkan.PresentModeImmediate} {
		for _, m := range available {
			if m == want {
				return m
			}
		}
	}
	return vulkan.PresentModeFifo
}

func chooseSwapExtent(caps vulkan.SurfaceCapabilities, sizer SurfaceSizer) vulkan.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}
	minExt := caps.MinImageExtent
	maxExt := caps.MaxImageExtent
	return vulkan.Extent2D{
		Width:  uint32(clamp(uint64(max(sizer.Width(), 0)), uint64(minExt.Width), uint64(maxExt.Width))),
		Height: uint32(clamp(uint64(max(sizer.Height(), 0)), uint64(minExt.Height), uint64(maxExt.Height))),
	}
}

// chooseImageCount honours the requested count within the surface limits. A
// maxImages of 0 means no upper limit.
func chooseImageCount(minImages, maxImages uint32, requested int) uint32 {
	count := uint32(max(requested, int(minImages)))
	if maxImages > 0 && count > maxImages {
		count = maxImages
	}
	return count
}

// acquireStatus maps an acquire result: success and suboptimal give a usable
// image, out-of-date asks for a rebuild.
func acquireStatus(res vulkan.Result) (outOfDate bool, err error) {
	switch res {
	case vulkan.Success, vulkan.Suboptimal:
		return false, nil
	case vulkan.ErrorOutOfDate:
		return true, nil
	default:
		return false, fmt.Errorf("acquire next image: %w", vulkan.Error(res))
	}
}

// presentStatus maps a present result: out-of-date asks for a rebuild,
// suboptimal is tolerated.
func presentStatus(res vulkan.Result) (needsResize bool, err error) {
	switch res {
	case vulkan.Success, vulkan.Suboptimal:
		return false, nil
	case vulkan.ErrorOutOfDate:
		return true, nil
	default:
		return false, fmt.Errorf("queue present: %w", vulkan.Error(res))
	}
}

// Swapchain owns the presentable images, their views and one set of
// semaphores per image.
type Swapchain struct {
	device          *Device
	surface         *Surface
	sizer           SurfaceSizer
	requestedImages int
	vsync           bool

	Handle vulkan.Swapchain
	images []vulkan.Image
	views  []*ImageView
	format vulkan.SurfaceFormat
	extent vulkan.Extent2D
	sync   []SyncSemaphores
	frame  FrameIndex
}

func NewSwapchain(device *Device, surface *Surface, sizer SurfaceSizer, requestedImages int, vsync bool) (*Swapchain, error) {
	s := &Swapchain{
		device:          device,
		surface:         surface,
		sizer:           sizer,
		requestedImages: requestedImages,
		vsync:           vsync,
	}
	if err := s.create(vulkan.Swapchain(vulkan.NullHandle)); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Swapchain) create(old vulkan.Swapchain) error {
	support := querySwapchainSupport(s.device.Physical.Handle, s.surface.Handle)
	if len(support.formats) == 0 {
		return fmt.Errorf("create swapchain: surface reports no formats")
	}
	surfaceFormat := chooseSwapSurfaceFormat(support.formats)
	presentMode := chooseSwapPresentMode(support.presentModes, s.vsync)
	extent := chooseSwapExtent(support.capabilities, s.sizer)
	imageCount := chooseImageCount(support.capabilities.MinImageCount, support.capabilities.MaxImageCount, s.requestedImages)

	createInfo := vulkan.SwapchainCreateInfo{
		SType:            vulkan.StructureTypeSwapchainCreateInfo,
		Surface:          s.surface.Handle,
		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vulkan.ImageUsageFlags(vulkan.ImageUsageColorAttachmentBit),
		PreTransform:     support.capabilities.CurrentTransform,
		CompositeAlpha:   vulkan.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vulkan.True,
		OldSwapchain:     old,
	}
	graphics, present := s.device.Graphics.Family, s.device.Present.Family
	if graphics != present {
		createInfo.ImageSharingMode = vulkan.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{graphics, present}
	} else {
		createInfo.ImageSharingMode = vulkan.SharingModeExclusive
	}

	var handle vulkan.Swapchain
	if res := vulkan.CreateSwapchain(s.device.Handle, &createInfo, nil, &handle); res != vulkan.Success {
		return fmt.Errorf("create swapchain: %w", vulkan.Error(res))
	}

	var count uint32
	vulkan.GetSwapchainImages(s.device.Handle, handle, &count, nil)
	images := make([]vulkan.Image, count)
	vulkan.GetSwapchainImages(s.device.Handle, handle, &count, images)

	if s.images != nil && len(images) != len(s.images) {
		vulkan.DestroySwapchain(s.device.Handle, handle, nil)
		return fmt.Errorf("swapchain image count changed from %d to %d", len(s.images), len(images))
	}

	s.Handle = handle
	s.images = images
	s.format = surfaceFormat
	s.extent = extent
	s.frame = NewFrameIndex(len(images))

	s.views = make([]*ImageView, len(images))
	for i, img := range images {
		view, err := NewImageView(s.device, img, ImageViewInfo{
			Format: surfaceFormat.Format,
			Aspect: vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
		})
		if err != nil {
			return fmt.Errorf("create swapchain image view %d: %w", i, err)
		}
		s.views[i] = view
	}

	s.sync = make([]SyncSemaphores, len(images))
	for i := range s.sync {
		sync, err := newSyncSemaphores(s.device)
		if err != nil {
			return fmt.Errorf("swapchain semaphores %d: %w", i, err)
		}
		s.sync[i] = sync
	}
	log.Printf("swapchain %dx%d, %d images, present mode %d", extent.Width, extent.Height, len(images), presentMode)
	return nil
}

// Recreate rebuilds the swapchain for the current surface size. The frame
// index restarts at 0. The caller must make sure the device is idle.
func (s *Swapchain) Recreate() error {
	old := s.Handle
	s.destroyDependents()
	if err := s.create(old); err != nil {
		vulkan.DestroySwapchain(s.device.Handle, old, nil)
		return err
	}
	vulkan.DestroySwapchain(s.device.Handle, old, nil)
	return nil
}

func (s *Swapchain) NumImages() int             { return len(s.images) }
func (s *Swapchain) CurrentFrame() int          { return s.frame.Current() }
func (s *Swapchain) Extent() vulkan.Extent2D    { return s.extent }
func (s *Swapchain) Format() vulkan.Format      { return s.format.Format }
func (s *Swapchain) ImageViews() []*ImageView   { return s.views }
func (s *Swapchain) SyncSemaphores(i int) SyncSemaphores { return s.sync[i] }

// AcquireNextImage signals the image-acquired semaphore of the current frame.
// outOfDate means the swapchain must be rebuilt before retrying.
func (s *Swapchain) AcquireNextImage() (imageIndex uint32, outOfDate bool, err error) {
	sem := s.sync[s.frame.Current()].ImageAcquired
	res := vulkan.AcquireNextImage(s.device.Handle, s.Handle, vulkan.MaxUint64, sem.Handle, vulkan.Fence(vulkan.NullHandle), &imageIndex)
	outOfDate, err = acquireStatus(res)
	return imageIndex, outOfDate, err
}

// PresentImage waits on the current frame's render-complete semaphore. The
// frame index advances unless presenting failed.
func (s *Swapchain) PresentImage(queue Queue, imageIndex uint32) (needsResize bool, err error) {
	presentInfo := vulkan.PresentInfo{
		SType:              vulkan.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vulkan.Semaphore{s.sync[s.frame.Current()].RenderComplete.Handle},
		SwapchainCount:     1,
		PSwapchains:        []vulkan.Swapchain{s.Handle},
		PImageIndices:      []uint32{imageIndex},
	}
	needsResize, err = presentStatus(vulkan.QueuePresent(queue.Handle, &presentInfo))
	if err != nil {
		return false, err
	}
	s.frame.Advance()
	return needsResize, nil
}

func (s *Swapchain) destroyDependents() {
	for _, v := range s.views {
		v.Destroy()
	}
	s.views = nil
	for _, sync := range s.sync {
		sync.Destroy()
	}
	s.sync = nil
}

func (s *Swapchain) Destroy() {
	s.destroyDependents()
	if s.Handle != vulkan.Swapchain(vulkan.NullHandle) {
		vulkan.DestroySwapchain(s.device.Handle, s.Handle, nil)
		s.Handle = vulkan.Swapchain(vulkan.NullHandle)
	}
}
