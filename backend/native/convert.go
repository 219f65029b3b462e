package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/lib2d/gpucore"
)

func textureFormat(f gpucore.Format) (gputypes.TextureFormat, error) {
	switch f {
	case gpucore.FormatRGBA8Unorm:
		return gputypes.TextureFormatRGBA8Unorm, nil
	case gpucore.FormatBGRA8Unorm, gpucore.FormatBGRX8Unorm:
		return gputypes.TextureFormatBGRA8Unorm, nil
	case gpucore.FormatR8Unorm, gpucore.FormatA8Unorm:
		return gputypes.TextureFormatR8Unorm, nil
	case gpucore.FormatRGBA16Float:
		return gputypes.TextureFormatRGBA16Float, nil
	case gpucore.FormatRGBA32Float:
		return gputypes.TextureFormatRGBA32Float, nil
	case gpucore.FormatR32Float:
		return gputypes.TextureFormatR32Float, nil
	case gpucore.FormatD32Float:
		return gputypes.TextureFormatDepth32Float, nil
	}
	return gputypes.TextureFormatUndefined, fmt.Errorf("native: %s: %w", f, gpucore.ErrUnsupportedFormat)
}

func textureUsage(u gpucore.TextureUsage) gputypes.TextureUsage {
	var out gputypes.TextureUsage
	if u&gpucore.TextureUsageCopySrc != 0 {
		out |= gputypes.TextureUsageCopySrc
	}
	if u&gpucore.TextureUsageCopyDst != 0 {
		out |= gputypes.TextureUsageCopyDst
	}
	if u&gpucore.TextureUsageSampled != 0 {
		out |= gputypes.TextureUsageTextureBinding
	}
	if u&(gpucore.TextureUsageRenderTarget|gpucore.TextureUsageDepthStencil) != 0 {
		out |= gputypes.TextureUsageRenderAttachment
	}
	return out
}

func bufferUsage(desc *gpucore.BufferDesc) gputypes.BufferUsage {
	var out gputypes.BufferUsage
	if desc.Usage&gpucore.BufferUsageCopySrc != 0 {
		out |= gputypes.BufferUsageCopySrc
	}
	if desc.Usage&gpucore.BufferUsageCopyDst != 0 || desc.Upload {
		out |= gputypes.BufferUsageCopyDst
	}
	if desc.Usage&gpucore.BufferUsageVertex != 0 {
		out |= gputypes.BufferUsageVertex
	}
	if desc.Usage&gpucore.BufferUsageIndex != 0 {
		out |= gputypes.BufferUsageIndex
	}
	if desc.Usage&gpucore.BufferUsageUniform != 0 {
		out |= gputypes.BufferUsageUniform
	}
	return out
}

// stateUsage maps a resource state to the texture usage a HAL barrier
// expects. States without a WebGPU counterpart map to zero.
func stateUsage(s gpucore.ResourceState) gputypes.TextureUsage {
	switch s {
	case gpucore.StateCopyDest:
		return gputypes.TextureUsageCopyDst
	case gpucore.StateCopySource:
		return gputypes.TextureUsageCopySrc
	case gpucore.StatePixelShaderResource:
		return gputypes.TextureUsageTextureBinding
	case gpucore.StateRenderTarget, gpucore.StateDepthWrite, gpucore.StatePresent:
		return gputypes.TextureUsageRenderAttachment
	default:
		return 0
	}
}

func blendFactor(f gpucore.BlendFactor) gputypes.BlendFactor {
	switch f {
	case gpucore.BlendOne:
		return gputypes.BlendFactorOne
	case gpucore.BlendSrcAlpha:
		return gputypes.BlendFactorSrcAlpha
	case gpucore.BlendInvSrcAlpha:
		return gputypes.BlendFactorOneMinusSrcAlpha
	default:
		return gputypes.BlendFactorZero
	}
}

func blendOp(op gpucore.BlendOp) gputypes.BlendOperation {
	switch op {
	case gpucore.BlendOpSubtract:
		return gputypes.BlendOperationSubtract
	case gpucore.BlendOpReverseSubtract:
		return gputypes.BlendOperationReverseSubtract
	default:
		return gputypes.BlendOperationAdd
	}
}

// blendState returns nil when blending is disabled.
func blendState(b gpucore.BlendState) *gputypes.BlendState {
	if !b.Enabled {
		return nil
	}
	return &gputypes.BlendState{
		Color: gputypes.BlendComponent{
			SrcFactor: blendFactor(b.SrcColor),
			DstFactor: blendFactor(b.DstColor),
			Operation: blendOp(b.ColorOp),
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: blendFactor(b.SrcAlpha),
			DstFactor: blendFactor(b.DstAlpha),
			Operation: blendOp(b.AlphaOp),
		},
	}
}

func cullMode(c gpucore.CullFace) gputypes.CullMode {
	switch c {
	case gpucore.CullFaceFront:
		return gputypes.CullModeFront
	case gpucore.CullFaceBack:
		return gputypes.CullModeBack
	default:
		return gputypes.CullModeNone
	}
}

func vertexFormat(f gpucore.VertexFormat) gputypes.VertexFormat {
	switch f {
	case gpucore.VertexFloat32:
		return gputypes.VertexFormatFloat32
	case gpucore.VertexFloat32x3:
		return gputypes.VertexFormatFloat32x3
	case gpucore.VertexFloat32x4:
		return gputypes.VertexFormatFloat32x4
	case gpucore.VertexUnorm8x4:
		return gputypes.VertexFormatUnorm8x4
	default:
		return gputypes.VertexFormatFloat32x2
	}
}

func vertexLayout(stride uint32, attrs []gpucore.VertexAttribute) []gputypes.VertexBufferLayout {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]gputypes.VertexAttribute, len(attrs))
	for i, a := range attrs {
		out[i] = gputypes.VertexAttribute{
			Format:         vertexFormat(a.Format),
			Offset:         uint64(a.Offset),
			ShaderLocation: a.Location,
		}
	}
	return []gputypes.VertexBufferLayout{{
		ArrayStride: uint64(stride),
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  out,
	}}
}
