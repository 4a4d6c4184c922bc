package msl

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
)

// ParamType is the semantic type of a shader parameter, as the host's
// effect system classifies it.
type ParamType uint8

const (
	ParamUnknown ParamType = iota
	ParamBool
	ParamFloat
	ParamInt
	ParamVec2
	ParamVec3
	ParamVec4
	ParamInt2
	ParamInt3
	ParamInt4
	ParamMat4
	ParamTexture
)

var paramTypeNames = map[string]ParamType{
	"bool":     ParamBool,
	"float":    ParamFloat,
	"int":      ParamInt,
	"float2":   ParamVec2,
	"float3":   ParamVec3,
	"float4":   ParamVec4,
	"int2":     ParamInt2,
	"int3":     ParamInt3,
	"int4":     ParamInt4,
	"float4x4": ParamMat4,
	"matrix":   ParamMat4,
}

// paramTypeFor classifies a source type name. Texture types of any shape
// classify as ParamTexture; unrecognized names as ParamUnknown.
func paramTypeFor(typeName string) ParamType {
	if strings.HasPrefix(typeName, "texture") {
		return ParamTexture
	}
	if t, ok := paramTypeNames[typeName]; ok {
		return t
	}
	return ParamUnknown
}

// Size returns the byte size of one element in uniform-block layout.
func (t ParamType) Size() int {
	switch t {
	case ParamBool:
		return 1
	case ParamFloat, ParamInt:
		return 4
	case ParamVec2, ParamInt2:
		return 8
	case ParamVec3, ParamInt3:
		return 12
	case ParamVec4, ParamInt4:
		return 16
	case ParamMat4:
		return 64
	default:
		return 0
	}
}

// unsupportedTypes cannot be expressed in the emitted MSL.
var unsupportedTypes = map[string]struct{}{
	"double":       {},
	"min10float":   {},
	"min13int":     {},
	"texture_rect": {},
}

// convertTypeName maps a source type name to its MSL spelling. The host's
// "half" is single precision semantically, so halfN becomes floatN and
// the min16 reduced-precision family takes MSL's native half/short/ushort.
func convertTypeName(name string) (string, error) {
	if _, bad := unsupportedTypes[name]; bad {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, name)
	}
	switch {
	case name == "texture2d":
		return "texture2d<float>", nil
	case name == "texture3d":
		return "texture3d<float>", nil
	case name == "texture_cube":
		return "texturecube<float>", nil
	case strings.HasPrefix(name, "min16float"):
		return "half" + name[len("min16float"):], nil
	case strings.HasPrefix(name, "min16int"):
		return "short" + name[len("min16int"):], nil
	case strings.HasPrefix(name, "min16uint"):
		return "ushort" + name[len("min16uint"):], nil
	case strings.HasPrefix(name, "half"):
		return "float" + name[len("half"):], nil
	default:
		return name, nil
	}
}

// typeRemaps reports whether convertTypeName would change name, so the
// body rewriter knows name is a type keyword rather than an identifier.
func typeRemaps(name string) bool {
	if _, bad := unsupportedTypes[name]; bad {
		return true
	}
	switch {
	case name == "texture2d", name == "texture3d", name == "texture_cube":
		return true
	case strings.HasPrefix(name, "min16float"),
		strings.HasPrefix(name, "min16int"),
		strings.HasPrefix(name, "min16uint"),
		strings.HasPrefix(name, "half"):
		return true
	}
	return false
}

// attributeForMapping converts a semantic annotation into the MSL
// attribute spelled between [[ ]]. Builtins translate directly; any other
// semantic becomes a user varying so vertex outputs and fragment inputs
// pair up by name.
func attributeForMapping(mapping string) string {
	switch mapping {
	case "":
		return ""
	case "POSITION":
		return "position"
	case "VERTEXID":
		return "vertex_id"
	default:
		return "user(" + mapping + ")"
	}
}

// Stream identifies one of the parallel vertex attribute arrays.
type Stream uint8

const (
	StreamPosition Stream = iota
	StreamNormal
	StreamTangent
	StreamColor
	StreamTexcoord
)

// String returns the stream's lowercase name.
func (s Stream) String() string {
	switch s {
	case StreamPosition:
		return "position"
	case StreamNormal:
		return "normal"
	case StreamTangent:
		return "tangent"
	case StreamColor:
		return "color"
	case StreamTexcoord:
		return "texcoord"
	default:
		return "unknown"
	}
}

// StreamUse records one stream a vertex shader consumes. Count is
// meaningful for texcoords, where it gives the number of units.
type StreamUse struct {
	Stream Stream
	Count  int
}

// streamForMapping resolves a vertex-input field semantic to its stream
// and GPU vertex format. Position, normal, tangent and color streams are
// uploaded as 4-float elements regardless of the declared component
// count; texcoord width follows the declared type. ok is false for
// semantics that do not name a stream.
func streamForMapping(mapping, typeName string) (stream Stream, format gputypes.VertexFormat, ok bool) {
	switch {
	case mapping == "POSITION":
		return StreamPosition, gputypes.VertexFormatFloat32x4, true
	case mapping == "NORMAL":
		return StreamNormal, gputypes.VertexFormatFloat32x4, true
	case mapping == "TANGENT":
		return StreamTangent, gputypes.VertexFormatFloat32x4, true
	case mapping == "COLOR":
		return StreamColor, gputypes.VertexFormatFloat32x4, true
	case strings.HasPrefix(mapping, "TEXCOORD"):
		switch typeName {
		case "float":
			return StreamTexcoord, gputypes.VertexFormatFloat32, true
		case "float2":
			return StreamTexcoord, gputypes.VertexFormatFloat32x2, true
		case "float3":
			return StreamTexcoord, gputypes.VertexFormatFloat32x3, true
		default:
			return StreamTexcoord, gputypes.VertexFormatFloat32x4, true
		}
	default:
		return 0, 0, false
	}
}

// vertexFormatSize returns the byte stride of a stream element.
func vertexFormatSize(f gputypes.VertexFormat) int {
	switch f {
	case gputypes.VertexFormatFloat32:
		return 4
	case gputypes.VertexFormatFloat32x2:
		return 8
	case gputypes.VertexFormatFloat32x3:
		return 12
	default:
		return 16
	}
}
