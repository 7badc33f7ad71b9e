package gpu

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/vulkan-go/vulkan"
)

// SPIRVPath is where the compiled form of a GLSL source lives.
func SPIRVPath(glslPath string) string {
	return glslPath + ".spv"
}

// ShaderStage derives the pipeline stage from a name such as
// "geometry_vertex.glsl".
func ShaderStage(path string) (vulkan.ShaderStageFlagBits, error) {
	name := strings.TrimSuffix(filepath.Base(path), ".spv")
	name = strings.TrimSuffix(name, filepath.Ext(name))
	switch {
	case strings.HasSuffix(name, "_vertex"):
		return vulkan.ShaderStageVertexBit, nil
	case strings.HasSuffix(name, "_fragment"):
		return vulkan.ShaderStageFragmentBit, nil
	case strings.HasSuffix(name, "_geometry"):
		return vulkan.ShaderStageGeometryBit, nil
	default:
		return 0, fmt.Errorf("unknown shader stage for %s", path)
	}
}

// shaderStale reports whether the SPIR-V file is missing or older than its
// source.
func shaderStale(glslPath, spvPath string) (bool, error) {
	src, err := os.Stat(glslPath)
	if err != nil {
		return false, fmt.Errorf("stat shader source: %w", err)
	}
	dst, err := os.Stat(spvPath)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat compiled shader: %w", err)
	}
	return src.ModTime().After(dst.ModTime()), nil
}

func glslcStage(stage vulkan.ShaderStageFlagBits) string {
	switch stage {
	case vulkan.ShaderStageVertexBit:
		return "vert"
	case vulkan.ShaderStageGeometryBit:
		return "geom"
	default:
		return "frag"
	}
}

// CompileShaderIfChanged runs glslc when the SPIR-V sibling of glslPath is
// missing or stale, and returns the SPIR-V path.
func CompileShaderIfChanged(glslPath string) (string, error) {
	spvPath := SPIRVPath(glslPath)
	stale, err := shaderStale(glslPath, spvPath)
	if err != nil {
		return "", err
	}
	if !stale {
		return spvPath, nil
	}
	stage, err := ShaderStage(glslPath)
	if err != nil {
		return "", err
	}
	cmd := exec.Command("glslc", "-fshader-stage="+glslcStage(stage), glslPath, "-o", spvPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("glslc %s: %w: %s", glslPath, err, strings.TrimSpace(string(out)))
	}
	log.Printf("compiled shader %s", glslPath)
	return spvPath, nil
}

// LoadShaderModules resolves GLSL sources to SPIR-V, compiling first when
// recompile is set. Specialization may be nil.
func LoadShaderModules(sources []string, recompile bool, spec map[vulkan.ShaderStageFlagBits]*Specialization) ([]ShaderModuleInfo, error) {
	infos := make([]ShaderModuleInfo, 0, len(sources))
	for _, src := range sources {
		stage, err := ShaderStage(src)
		if err != nil {
			return nil, err
		}
		path := SPIRVPath(src)
		if recompile {
			if path, err = CompileShaderIfChanged(src); err != nil {
				return nil, err
			}
		}
		infos = append(infos, ShaderModuleInfo{Path: path, Stage: stage, Specialization: spec[stage]})
	}
	return infos, nil
}
