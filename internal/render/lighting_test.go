package render

import (
	"testing"

	"github.com/vulkan-go/vulkan"
)

func TestLightingWaitStageCoversSampling(t *testing.T) {
	for _, bit := range []vulkan.PipelineStageFlagBits{
		vulkan.PipelineStageFragmentShaderBit,
		vulkan.PipelineStageColorAttachmentOutputBit,
	} {
		if lightingWaitStage&vulkan.PipelineStageFlags(bit) == 0 {
			t.Errorf("wait stage %#x misses %#x", lightingWaitStage, bit)
		}
	}
}
