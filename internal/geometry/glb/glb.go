// Package glb encodes a mesh.VMesh as a binary glTF 2.0 container.
package glb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/goccy/go-json"
	"github.com/nahlund/backend/tileserver/internal/geometry/mesh"
)

const (
	magic   = "glTF"
	version = 2

	headerSize      = 12
	chunkHeaderSize = 8

	chunkJSON = 0x4E4F534A
	chunkBIN  = 0x004E4942

	generator = "nahlund-tileserver"
)

var ErrTooLarge = errors.New("encoded scene exceeds the binary glTF size limit")

// Encode builds a single-scene GLB for m. Points are converted from the
// z-up model frame to glTF's y-up frame with (x, y, z) -> (x, z, -y). Face
// groups become one primitive and one material each, in mesh.Colors order.
func Encode(m *mesh.VMesh) ([]byte, error) {
	doc, bin := build(m)

	js, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal glTF json: %w", err)
	}

	jsonLen := padTo4(len(js))
	total := uint64(headerSize + chunkHeaderSize + jsonLen)
	if len(bin) > 0 {
		total += uint64(chunkHeaderSize + len(bin))
	}
	if total > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, total)
	}

	out := make([]byte, 0, total)
	out = append(out, magic...)
	out = binary.LittleEndian.AppendUint32(out, version)
	out = binary.LittleEndian.AppendUint32(out, uint32(total))

	out = binary.LittleEndian.AppendUint32(out, uint32(jsonLen))
	out = binary.LittleEndian.AppendUint32(out, chunkJSON)
	out = append(out, js...)
	for i := len(js); i < jsonLen; i++ {
		out = append(out, ' ')
	}

	if len(bin) > 0 {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(bin)))
		out = binary.LittleEndian.AppendUint32(out, chunkBIN)
		out = append(out, bin...)
	}

	return out, nil
}

// build lays out the binary buffer as the vertex region followed by each
// color group's indices, every region padded to 4 bytes.
func build(m *mesh.VMesh) (*document, []byte) {
	doc := &document{
		Asset:  asset{Version: "2.0", Generator: generator},
		Scenes: []scene{{Nodes: []int{0}}},
	}

	var colors []mesh.Color
	for _, c := range m.Colors() {
		if len(m.Faces[c]) > 0 {
			colors = append(colors, c)
		}
	}
	if len(m.Points) == 0 || len(colors) == 0 {
		doc.Nodes = []node{{}}
		return doc, nil
	}

	var bin []byte
	for _, p := range m.Points {
		bin = appendVec3(bin, toGLTF(p))
	}
	bin = pad(bin)
	vertexLen := len(bin)

	for _, c := range colors {
		for _, i := range m.Faces[c] {
			bin = binary.LittleEndian.AppendUint32(bin, i)
		}
		bin = pad(bin)
	}

	stride := vertexStride
	doc.Buffers = []buffer{{ByteLength: len(bin)}}
	doc.BufferViews = []bufferView{
		{Buffer: 0, ByteOffset: 0, ByteLength: vertexLen, ByteStride: &stride, Target: targetArrayBuffer},
		{Buffer: 0, ByteOffset: vertexLen, ByteLength: len(bin) - vertexLen, Target: targetElementArrayBuffer},
	}

	lo, hi := convertBounds(m.Min, m.Max)
	doc.Accessors = []accessor{{
		BufferView:    0,
		ComponentType: componentFloat32,
		Count:         len(m.Points),
		Type:          "VEC3",
		Min:           lo[:],
		Max:           hi[:],
	}}

	prims := make([]primitive, 0, len(colors))
	offset := 0
	for i, c := range colors {
		n := len(m.Faces[c])
		doc.Accessors = append(doc.Accessors, accessor{
			BufferView:    1,
			ByteOffset:    offset,
			ComponentType: componentUint32,
			Count:         n,
			Type:          "SCALAR",
		})
		offset += padTo4(n * 4)

		doc.Materials = append(doc.Materials, material{
			PBR: pbrMetallicRoughness{
				BaseColorFactor: baseColor(c),
			},
		})

		prims = append(prims, primitive{
			Attributes: map[string]int{"POSITION": 0},
			Indices:    len(doc.Accessors) - 1,
			Material:   i,
			Mode:       modeTriangles,
		})
	}
	doc.Meshes = []meshDef{{Primitives: prims}}

	meshIdx := 0
	o := toGLTF(m.Offset)
	translation := [3]float32{neg(o[0]), neg(o[1]), neg(o[2])}
	doc.Nodes = []node{{Mesh: &meshIdx, Translation: &translation}}

	return doc, bin
}

func toGLTF(p mesh.Point3D) [3]float32 {
	return [3]float32{p[0], p[2], neg(p[1])}
}

// convertBounds remaps an AABB; negating y swaps which corner is the minimum.
func convertBounds(lo, hi mesh.Point3D) (gmin, gmax [3]float32) {
	gmin = [3]float32{lo[0], lo[2], neg(hi[1])}
	gmax = [3]float32{hi[0], hi[2], neg(lo[1])}
	return gmin, gmax
}

// neg negates v without producing negative zero.
func neg(v float32) float32 {
	if v == 0 {
		return 0
	}
	return -v
}

func baseColor(c mesh.Color) [4]float32 {
	return [4]float32{
		float32(c[0]) / math.MaxUint8,
		float32(c[1]) / math.MaxUint8,
		float32(c[2]) / math.MaxUint8,
		1,
	}
}

func appendVec3(b []byte, v [3]float32) []byte {
	for _, f := range v {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
	}
	return b
}

func pad(b []byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

func padTo4(n int) int {
	return (n + 3) &^ 3
}
