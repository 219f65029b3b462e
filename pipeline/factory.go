package pipeline

import (
	"errors"
	"fmt"

	"github.com/gogpu/lib2d/gpucore"
)

// Default shader entry points.
const (
	DefaultVertexEntry   = "vs_main"
	DefaultFragmentEntry = "fs_main"
)

// ErrNoShader is returned when a description names no shader file.
var ErrNoShader = errors.New("pipeline: no shader path")

// Desc describes a pipeline state object.
type Desc struct {
	Label string

	// VertexShader and FragmentShader are WGSL file paths. They may name the
	// same file.
	VertexShader   string
	FragmentShader string
	VertexEntry    string
	FragmentEntry  string

	Blend        BlendMode
	Cull         CullMode
	DepthStencil DepthStencilMode

	VertexLayout []gpucore.VertexAttribute
	// VertexStride defaults to the end of the last attribute.
	VertexStride uint32

	// ColorFormat defaults to RGBA8Unorm.
	ColorFormat gpucore.Format
}

// PSO is a created pipeline together with its shader modules.
type PSO struct {
	Desc     Desc
	Pipeline gpucore.Pipeline

	vertex   gpucore.ShaderModule
	fragment gpucore.ShaderModule
}

// Destroy releases the pipeline and its modules.
func (p *PSO) Destroy() {
	if p.Pipeline != nil {
		p.Pipeline.Destroy()
		p.Pipeline = nil
	}
	if p.vertex != nil {
		p.vertex.Destroy()
	}
	if p.fragment != nil && p.fragment != p.vertex {
		p.fragment.Destroy()
	}
	p.vertex, p.fragment = nil, nil
}

// Factory creates pipelines on one device through a shared shader cache.
type Factory struct {
	dev   gpucore.Device
	cache *ShaderCache
}

// NewFactory returns a factory. A nil cache gets a private one.
func NewFactory(dev gpucore.Device, cache *ShaderCache) *Factory {
	if cache == nil {
		cache = NewShaderCache()
	}
	return &Factory{dev: dev, cache: cache}
}

// Cache returns the shader cache.
func (f *Factory) Cache() *ShaderCache { return f.cache }

// Create compiles the shaders of desc (through the cache) and creates the
// pipeline.
func (f *Factory) Create(desc Desc) (*PSO, error) {
	if desc.VertexShader == "" || desc.FragmentShader == "" {
		return nil, fmt.Errorf("%w: %q", ErrNoShader, desc.Label)
	}
	if desc.VertexEntry == "" {
		desc.VertexEntry = DefaultVertexEntry
	}
	if desc.FragmentEntry == "" {
		desc.FragmentEntry = DefaultFragmentEntry
	}
	if desc.ColorFormat == gpucore.FormatUnknown {
		desc.ColorFormat = gpucore.FormatRGBA8Unorm
	}
	if desc.VertexStride == 0 {
		for _, a := range desc.VertexLayout {
			desc.VertexStride = max(desc.VertexStride, a.Offset+a.Format.Size())
		}
	}

	pso := &PSO{Desc: desc}
	var err error
	if pso.vertex, err = f.module(desc.VertexShader); err != nil {
		return nil, err
	}
	pso.fragment = pso.vertex
	if cacheKey(desc.FragmentShader) != cacheKey(desc.VertexShader) {
		if pso.fragment, err = f.module(desc.FragmentShader); err != nil {
			pso.Destroy()
			return nil, err
		}
	}

	pd := &gpucore.PipelineDesc{
		Label:          desc.Label,
		VertexModule:   pso.vertex,
		VertexEntry:    desc.VertexEntry,
		FragmentModule: pso.fragment,
		FragmentEntry:  desc.FragmentEntry,
		VertexStride:   desc.VertexStride,
		VertexLayout:   desc.VertexLayout,
		Blend:          desc.Blend.State(),
		Cull:           desc.Cull.Face(),
		DepthStencil:   desc.DepthStencil.State(),
		ColorFormat:    desc.ColorFormat,
		Debug:          f.dev.Info().Type == gpucore.DeviceTypeSoftware,
	}
	if desc.DepthStencil.UsesDepth() {
		pd.DepthFormat = gpucore.FormatD32Float
	}
	pso.Pipeline, err = f.dev.CreatePipeline(pd)
	if err != nil {
		pso.Destroy()
		return nil, fmt.Errorf("pipeline: create %q: %w", desc.Label, err)
	}
	return pso, nil
}

func (f *Factory) module(path string) (gpucore.ShaderModule, error) {
	words, err := f.cache.Load(path)
	if err != nil {
		return nil, err
	}
	m, err := f.dev.CreateShaderModule(path, words)
	if err != nil {
		return nil, fmt.Errorf("pipeline: shader module %s: %w", path, err)
	}
	return m, nil
}
