package gpucore

// BlendFactor is a blend equation operand.
type BlendFactor uint8

// Blend factors.
const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcAlpha
	BlendInvSrcAlpha
)

// BlendOp combines the source and destination terms.
type BlendOp uint8

// Blend operations.
const (
	BlendOpAdd BlendOp = iota
	BlendOpSubtract
	BlendOpReverseSubtract
)

// BlendState is the blend configuration of the single render target.
type BlendState struct {
	Enabled  bool
	SrcColor BlendFactor
	DstColor BlendFactor
	ColorOp  BlendOp
	SrcAlpha BlendFactor
	DstAlpha BlendFactor
	AlphaOp  BlendOp
}

// CullFace selects which triangles are discarded.
type CullFace uint8

// Cull faces.
const (
	CullFaceNone CullFace = iota
	CullFaceFront
	CullFaceBack
)

// DepthStencilState controls depth and stencil testing.
type DepthStencilState struct {
	DepthTest    bool
	DepthWrite   bool
	StencilTest  bool
	StencilRead  uint8
	StencilWrite uint8
}

// VertexFormat is the type of one vertex attribute.
type VertexFormat uint8

// Vertex formats.
const (
	VertexFloat32 VertexFormat = iota
	VertexFloat32x2
	VertexFloat32x3
	VertexFloat32x4
	VertexUnorm8x4
)

// Size returns the attribute size in bytes.
func (f VertexFormat) Size() uint32 {
	switch f {
	case VertexFloat32, VertexUnorm8x4:
		return 4
	case VertexFloat32x2:
		return 8
	case VertexFloat32x3:
		return 12
	case VertexFloat32x4:
		return 16
	default:
		return 0
	}
}

// VertexAttribute is one element of a vertex layout.
type VertexAttribute struct {
	// Name is the semantic name, for diagnostics only.
	Name     string
	Location uint32
	Format   VertexFormat
	Offset   uint32
}

// PipelineDesc describes a graphics pipeline with one color target and an
// optional depth target.
type PipelineDesc struct {
	Label string

	VertexModule   ShaderModule
	VertexEntry    string
	FragmentModule ShaderModule
	FragmentEntry  string

	VertexStride uint32
	VertexLayout []VertexAttribute

	Blend        BlendState
	Cull         CullFace
	DepthStencil DepthStencilState

	ColorFormat Format
	DepthFormat Format

	// Debug requests driver validation for the pipeline. Set on software
	// adapters.
	Debug bool
}
