package pipeline

import (
	"fmt"

	"github.com/gogpu/lib2d/gpucore"
)

// BlendMode selects how fragments combine with the render target.
type BlendMode uint8

// Blend modes.
const (
	// BlendOpaque writes the source unchanged.
	BlendOpaque BlendMode = iota

	// BlendMultiply is straight alpha blending:
	// src*srcAlpha + dst*(1-srcAlpha).
	BlendMultiply

	// BlendAddition adds src*srcAlpha to the target.
	BlendAddition

	// BlendSubtraction subtracts src*srcAlpha from the target.
	BlendSubtraction

	// BlendAlpha is premultiplied alpha blending: src + dst*(1-srcAlpha).
	BlendAlpha
)

// String returns the mode name.
func (m BlendMode) String() string {
	switch m {
	case BlendOpaque:
		return "Opaque"
	case BlendMultiply:
		return "Multiply"
	case BlendAddition:
		return "Addition"
	case BlendSubtraction:
		return "Subtraction"
	case BlendAlpha:
		return "Alpha"
	default:
		return fmt.Sprintf("BlendMode(%d)", uint8(m))
	}
}

// State returns the blend state of m. Alpha uses the color factors.
func (m BlendMode) State() gpucore.BlendState {
	var s gpucore.BlendState
	switch m {
	case BlendMultiply:
		s = gpucore.BlendState{Enabled: true, SrcColor: gpucore.BlendSrcAlpha, DstColor: gpucore.BlendInvSrcAlpha, ColorOp: gpucore.BlendOpAdd}
	case BlendAddition:
		s = gpucore.BlendState{Enabled: true, SrcColor: gpucore.BlendSrcAlpha, DstColor: gpucore.BlendOne, ColorOp: gpucore.BlendOpAdd}
	case BlendSubtraction:
		s = gpucore.BlendState{Enabled: true, SrcColor: gpucore.BlendSrcAlpha, DstColor: gpucore.BlendOne, ColorOp: gpucore.BlendOpSubtract}
	case BlendAlpha:
		s = gpucore.BlendState{Enabled: true, SrcColor: gpucore.BlendOne, DstColor: gpucore.BlendInvSrcAlpha, ColorOp: gpucore.BlendOpAdd}
	default:
		return gpucore.BlendState{SrcColor: gpucore.BlendOne, DstColor: gpucore.BlendZero, SrcAlpha: gpucore.BlendOne, DstAlpha: gpucore.BlendZero}
	}
	s.SrcAlpha, s.DstAlpha, s.AlphaOp = s.SrcColor, s.DstColor, s.ColorOp
	return s
}

// CullMode selects which triangles are discarded.
type CullMode uint8

// Cull modes.
const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

// Face returns the culled face.
func (m CullMode) Face() gpucore.CullFace {
	switch m {
	case CullFront:
		return gpucore.CullFaceFront
	case CullBack:
		return gpucore.CullFaceBack
	default:
		return gpucore.CullFaceNone
	}
}

// DepthStencilMode selects depth and stencil testing.
type DepthStencilMode uint8

// Depth stencil modes.
const (
	DepthStencilNone DepthStencilMode = iota
	DepthOnly
	StencilOnly
	DepthStencil
)

// State returns the depth stencil state of m.
func (m DepthStencilMode) State() gpucore.DepthStencilState {
	var s gpucore.DepthStencilState
	if m == DepthOnly || m == DepthStencil {
		s.DepthTest = true
		s.DepthWrite = true
	}
	if m == StencilOnly || m == DepthStencil {
		s.StencilTest = true
		s.StencilRead = 0xff
		s.StencilWrite = 0xff
	}
	return s
}

// UsesDepth reports whether m needs a depth attachment.
func (m DepthStencilMode) UsesDepth() bool { return m != DepthStencilNone }
