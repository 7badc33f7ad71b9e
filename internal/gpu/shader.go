package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"unsafe"

	"github.com/vulkan-go/vulkan"
)

// Specialization collects 4-byte specialization constants.
type Specialization struct {
	entries []vulkan.SpecializationMapEntry
	data    []byte
}

func (s *Specialization) add(id uint32, bits uint32) *Specialization {
	s.entries = append(s.entries, vulkan.SpecializationMapEntry{
		ConstantID: id,
		Offset:     uint32(len(s.data)),
		Size:       4,
	})
	s.data = binary.LittleEndian.AppendUint32(s.data, bits)
	return s
}

func (s *Specialization) Int(id uint32, v int32) *Specialization {
	return s.add(id, uint32(v))
}

func (s *Specialization) Float(id uint32, v float32) *Specialization {
	return s.add(id, math.Float32bits(v))
}

// Bool stores a VkBool32.
func (s *Specialization) Bool(id uint32, v bool) *Specialization {
	if v {
		return s.add(id, 1)
	}
	return s.add(id, 0)
}

func (s *Specialization) info() []vulkan.SpecializationInfo {
	if s == nil || len(s.entries) == 0 {
		return nil
	}
	return []vulkan.SpecializationInfo{{
		MapEntryCount: uint32(len(s.entries)),
		PMapEntries:   s.entries,
		DataSize:      uint(len(s.data)),
		PData:         unsafe.Pointer(&s.data[0]),
	}}
}

type ShaderModuleInfo struct {
	Path           string
	Stage          vulkan.ShaderStageFlagBits
	Specialization *Specialization
}

type shaderModule struct {
	info   ShaderModuleInfo
	handle vulkan.ShaderModule
}

// ShaderProgram is the set of stages one pipeline is built from.
type ShaderProgram struct {
	device  *Device
	modules []shaderModule
}

// NewShaderProgram loads compiled SPIR-V for every stage.
func NewShaderProgram(device *Device, infos []ShaderModuleInfo) (*ShaderProgram, error) {
	p := &ShaderProgram{device: device}
	for _, info := range infos {
		code, err := os.ReadFile(info.Path)
		if err != nil {
			p.Destroy()
			return nil, fmt.Errorf("read shader %s: %w", info.Path, err)
		}
		module, err := createShaderModule(device, code)
		if err != nil {
			p.Destroy()
			return nil, fmt.Errorf("shader %s: %w", info.Path, err)
		}
		p.modules = append(p.modules, shaderModule{info: info, handle: module})
	}
	return p, nil
}

func createShaderModule(device *Device, code []byte) (vulkan.ShaderModule, error) {
	codeAligned, err := bytesToUint32(code)
	if err != nil {
		return vulkan.ShaderModule(vulkan.NullHandle), err
	}
	createInfo := vulkan.ShaderModuleCreateInfo{
		SType:    vulkan.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    codeAligned,
	}
	var module vulkan.ShaderModule
	if res := vulkan.CreateShaderModule(device.Handle, &createInfo, nil, &module); res != vulkan.Success {
		return vulkan.ShaderModule(vulkan.NullHandle), fmt.Errorf("create shader module: %w", vulkan.Error(res))
	}
	return module, nil
}

func (p *ShaderProgram) stages() []vulkan.PipelineShaderStageCreateInfo {
	stages := make([]vulkan.PipelineShaderStageCreateInfo, len(p.modules))
	for i, m := range p.modules {
		stages[i] = vulkan.PipelineShaderStageCreateInfo{
			SType:               vulkan.StructureTypePipelineShaderStageCreateInfo,
			Stage:               m.info.Stage,
			Module:              m.handle,
			PName:               "main\x00",
			PSpecializationInfo: m.info.Specialization.info(),
		}
	}
	return stages
}

func (p *ShaderProgram) Destroy() {
	for _, m := range p.modules {
		vulkan.DestroyShaderModule(p.device.Handle, m.handle, nil)
	}
	p.modules = nil
}
