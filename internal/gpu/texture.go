package gpu

import (
	"fmt"

	"github.com/vulkan-go/vulkan"

	"github.com/hellhand/kube/internal/assets"
)

// Texture is a sampled RGBA image in SHADER_READ_ONLY_OPTIMAL.
type Texture struct {
	Path  string
	Image *Image
	View  *ImageView
}

// NewTexture uploads img through a staging buffer. Images larger than the
// device limit are scaled down first.
func NewTexture(device *Device, pool *CommandPool, queue Queue, path string, img *assets.Image) (*Texture, error) {
	img = assets.Fit(img, device.Physical.MaxImageDimension2D())
	format := vulkan.FormatR8g8b8a8Srgb

	staging, err := NewHostBuffer(device, uint64(len(img.Pixels)), vulkan.BufferUsageTransferSrcBit)
	if err != nil {
		return nil, fmt.Errorf("texture %s staging buffer: %w", path, err)
	}
	defer staging.Destroy()
	if err := staging.Write(0, img.Pixels); err != nil {
		return nil, fmt.Errorf("texture %s: %w", path, err)
	}

	image, err := NewImage(device, ImageInfo{
		Width:  uint32(img.Width),
		Height: uint32(img.Height),
		Format: format,
		Usage:  vulkan.ImageUsageTransferDstBit | vulkan.ImageUsageSampledBit,
	})
	if err != nil {
		return nil, fmt.Errorf("texture %s image: %w", path, err)
	}

	err = RunOneTime(pool, queue, func(cmd *CommandBuffer) error {
		if err := image.TransitionLayout(cmd, vulkan.ImageLayoutUndefined, vulkan.ImageLayoutTransferDstOptimal); err != nil {
			return err
		}
		image.CopyFromBuffer(cmd, staging)
		return image.TransitionLayout(cmd, vulkan.ImageLayoutTransferDstOptimal, vulkan.ImageLayoutShaderReadOnlyOptimal)
	})
	if err != nil {
		image.Destroy()
		return nil, fmt.Errorf("texture %s upload: %w", path, err)
	}

	view, err := NewImageView(device, image.Handle, ImageViewInfo{
		Format: format,
		Aspect: vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
	})
	if err != nil {
		image.Destroy()
		return nil, fmt.Errorf("texture %s view: %w", path, err)
	}
	return &Texture{Path: path, Image: image, View: view}, nil
}

func (t *Texture) Destroy() {
	t.View.Destroy()
	t.Image.Destroy()
}
