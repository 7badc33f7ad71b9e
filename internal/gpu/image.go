package gpu

import (
	"errors"
	"fmt"

	"github.com/vulkan-go/vulkan"
)

var ErrUnsupportedLayoutTransition = errors.New("unsupported layout transition")

type ImageInfo struct {
	Width, Height uint32
	Format        vulkan.Format
	Usage         vulkan.ImageUsageFlagBits
	// Layers defaults to 1.
	Layers uint32
}

type Image struct {
	device *Device
	Handle vulkan.Image
	Memory vulkan.DeviceMemory
	Info   ImageInfo
}

// NewImage creates an optimally tiled, device local 2D image or 2D array.
func NewImage(device *Device, info ImageInfo) (*Image, error) {
	if info.Layers == 0 {
		info.Layers = 1
	}
	createInfo := vulkan.ImageCreateInfo{
		SType:     vulkan.StructureTypeImageCreateInfo,
		ImageType: vulkan.ImageType2d,
		Extent: vulkan.Extent3D{
			Width:  info.Width,
			Height: info.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   info.Layers,
		Format:        info.Format,
		Tiling:        vulkan.ImageTilingOptimal,
		InitialLayout: vulkan.ImageLayoutUndefined,
		Usage:         vulkan.ImageUsageFlags(info.Usage),
		Samples:       vulkan.SampleCount1Bit,
		SharingMode:   vulkan.SharingModeExclusive,
	}

	img := &Image{device: device, Info: info}
	if res := vulkan.CreateImage(device.Handle, &createInfo, nil, &img.Handle); res != vulkan.Success {
		return nil, fmt.Errorf("create image: %w", vulkan.Error(res))
	}

	var memRequirements vulkan.MemoryRequirements
	vulkan.GetImageMemoryRequirements(device.Handle, img.Handle, &memRequirements)
	memRequirements.Deref()
	memType, err := device.Physical.FindMemoryType(memRequirements.MemoryTypeBits, vulkan.MemoryPropertyDeviceLocalBit)
	if err != nil {
		img.Destroy()
		return nil, fmt.Errorf("image memory: %w", err)
	}
	allocInfo := vulkan.MemoryAllocateInfo{
		SType:           vulkan.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memType,
	}
	if res := vulkan.AllocateMemory(device.Handle, &allocInfo, nil, &img.Memory); res != vulkan.Success {
		img.Destroy()
		return nil, fmt.Errorf("allocate image memory: %w", vulkan.Error(res))
	}
	if res := vulkan.BindImageMemory(device.Handle, img.Handle, img.Memory, 0); res != vulkan.Success {
		img.Destroy()
		return nil, fmt.Errorf("bind image memory: %w", vulkan.Error(res))
	}
	return img, nil
}

func (i *Image) Destroy() {
	if i.Handle != vulkan.Image(vulkan.NullHandle) {
		vulkan.DestroyImage(i.device.Handle, i.Handle, nil)
		i.Handle = vulkan.Image(vulkan.NullHandle)
	}
	if i.Memory != vulkan.DeviceMemory(vulkan.NullHandle) {
		vulkan.FreeMemory(i.device.Handle, i.Memory, nil)
		i.Memory = vulkan.DeviceMemory(vulkan.NullHandle)
	}
}

type layoutBarrier struct {
	srcAccess vulkan.AccessFlags
	dstAccess vulkan.AccessFlags
	srcStage  vulkan.PipelineStageFlags
	dstStage  vulkan.PipelineStageFlags
}

// layoutTransition returns the access masks and stages for the two
// transitions a texture upload needs.
func layoutTransition(oldLayout, newLayout vulkan.ImageLayout) (layoutBarrier, error) {
	switch {
	case oldLayout == vulkan.ImageLayoutUndefined && newLayout == vulkan.ImageLayoutTransferDstOptimal:
		return layoutBarrier{
			dstAccess: vulkan.AccessFlags(vulkan.AccessTransferWriteBit),
			srcStage:  vulkan.PipelineStageFlags(vulkan.PipelineStageTopOfPipeBit),
			dstStage:  vulkan.PipelineStageFlags(vulkan.PipelineStageTransferBit),
		}, nil
	case oldLayout == vulkan.ImageLayoutTransferDstOptimal && newLayout == vulkan.ImageLayoutShaderReadOnlyOptimal:
		return layoutBarrier{
			srcAccess: vulkan.AccessFlags(vulkan.AccessTransferWriteBit),
			dstAccess: vulkan.AccessFlags(vulkan.AccessShaderReadBit),
			srcStage:  vulkan.PipelineStageFlags(vulkan.PipelineStageTransferBit),
			dstStage:  vulkan.PipelineStageFlags(vulkan.PipelineStageFragmentShaderBit),
		}, nil
	default:
		return layoutBarrier{}, fmt.Errorf("%d to %d: %w", oldLayout, newLayout, ErrUnsupportedLayoutTransition)
	}
}

// TransitionLayout records a barrier moving every layer of a color image
// between layouts.
func (i *Image) TransitionLayout(cmd *CommandBuffer, oldLayout, newLayout vulkan.ImageLayout) error {
	b, err := layoutTransition(oldLayout, newLayout)
	if err != nil {
		return err
	}
	barrier := vulkan.ImageMemoryBarrier{
		SType:               vulkan.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vulkan.QueueFamilyIgnored,
		DstQueueFamilyIndex: vulkan.QueueFamilyIgnored,
		Image:               i.Handle,
		SrcAccessMask:       b.srcAccess,
		DstAccessMask:       b.dstAccess,
		SubresourceRange: vulkan.ImageSubresourceRange{
			AspectMask: vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: i.Info.Layers,
		},
	}
	vulkan.CmdPipelineBarrier(cmd.Handle, b.srcStage, b.dstStage, 0, 0, nil, 0, nil, 1, []vulkan.ImageMemoryBarrier{barrier})
	return nil
}

// CopyFromBuffer records a copy of tightly packed pixels into layer 0. The
// image must be in TRANSFER_DST_OPTIMAL.
func (i *Image) CopyFromBuffer(cmd *CommandBuffer, src *Buffer) {
	region := vulkan.BufferImageCopy{
		ImageSubresource: vulkan.ImageSubresourceLayers{
			AspectMask: vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vulkan.Extent3D{
			Width:  i.Info.Width,
			Height: i.Info.Height,
			Depth:  1,
		},
	}
	vulkan.CmdCopyBufferToImage(cmd.Handle, src.Handle, i.Handle, vulkan.ImageLayoutTransferDstOptimal, 1, []vulkan.BufferImageCopy{region})
}

type ImageViewInfo struct {
	Format vulkan.Format
	Aspect vulkan.ImageAspectFlags
	// Array selects a 2D array view over LayerCount layers.
	Array      bool
	LayerCount uint32
}

type ImageView struct {
	device *Device
	Handle vulkan.ImageView
}

func NewImageView(device *Device, image vulkan.Image, info ImageViewInfo) (*ImageView, error) {
	viewType := vulkan.ImageViewType2d
	if info.Array {
		viewType = vulkan.ImageViewType2dArray
	}
	layers := info.LayerCount
	if layers == 0 {
		layers = 1
	}
	viewInfo := vulkan.ImageViewCreateInfo{
		SType:    vulkan.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: viewType,
		Format:   info.Format,
		Components: vulkan.ComponentMapping{
			R: vulkan.ComponentSwizzleIdentity,
			G: vulkan.ComponentSwizzleIdentity,
			B: vulkan.ComponentSwizzleIdentity,
			A: vulkan.ComponentSwizzleIdentity,
		},
		SubresourceRange: vulkan.ImageSubresourceRange{
			AspectMask: info.Aspect,
			LevelCount: 1,
			LayerCount: layers,
		},
	}
	v := &ImageView{device: device}
	if res := vulkan.CreateImageView(device.Handle, &viewInfo, nil, &v.Handle); res != vulkan.Success {
		return nil, fmt.Errorf("create image view: %w", vulkan.Error(res))
	}
	return v, nil
}

func (v *ImageView) Destroy() {
	if v.Handle != vulkan.ImageView(vulkan.NullHandle) {
		vulkan.DestroyImageView(v.device.Handle, v.Handle, nil)
		v.Handle = vulkan.ImageView(vulkan.NullHandle)
	}
}

// Attachment is a render target that later passes sample.
type Attachment struct {
	Image *Image
	View  *ImageView
	Depth bool
}

// NewAttachment creates an image usable as a color or depth attachment and as
// a sampled image. Layers above 1 produce a 2D array view.
func NewAttachment(device *Device, width, height uint32, format vulkan.Format, usage vulkan.ImageUsageFlagBits, layers uint32) (*Attachment, error) {
	depth := usage&vulkan.ImageUsageDepthStencilAttachmentBit != 0
	aspect := vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit)
	if depth {
		aspect = vulkan.ImageAspectFlags(vulkan.ImageAspectDepthBit)
	}
	if layers == 0 {
		layers = 1
	}
	img, err := NewImage(device, ImageInfo{
		Width:  width,
		Height: height,
		Format: format,
		Usage:  usage | vulkan.ImageUsageSampledBit,
		Layers: layers,
	})
	if err != nil {
		return nil, fmt.Errorf("attachment image: %w", err)
	}
	view, err := NewImageView(device, img.Handle, ImageViewInfo{
		Format:     format,
		Aspect:     aspect,
		Array:      layers > 1,
		LayerCount: layers,
	})
	if err != nil {
		img.Destroy()
		return nil, fmt.Errorf("attachment view: %w", err)
	}
	return &Attachment{Image: img, View: view, Depth: depth}, nil
}

func (a *Attachment) Format() vulkan.Format { return a.Image.Info.Format }

func (a *Attachment) Destroy() {
	a.View.Destroy()
	a.Image.Destroy()
}
