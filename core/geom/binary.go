// Package geom encodes and decodes GeoPackage geometry blobs.
//
// A GeoPackage geometry blob is a small header (magic "GP", version, flags,
// srs id and an optional envelope) followed by a Well-Known Binary body.
// The WKB body is handled by github.com/paulmach/orb; this package only
// deals with the header and with envelope extraction, which is all the
// spatial index needs.
package geom

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
)

// Header flag layout.
const (
	flagLittleEndian = 0x01
	flagEnvelopeMask = 0x0E
	flagEmpty        = 0x10
	flagExtended     = 0x20

	headerPrefixSize = 8
)

var magic = [2]byte{'G', 'P'}

// EnvelopeType is the envelope contents indicator of the header flags.
type EnvelopeType uint8

const (
	EnvelopeNone EnvelopeType = iota
	EnvelopeXY
	EnvelopeXYZ
	EnvelopeXYM
	EnvelopeXYZM
)

// Size returns the number of envelope bytes following the srs id.
func (t EnvelopeType) Size() int {
	switch t {
	case EnvelopeXY:
		return 32
	case EnvelopeXYZ, EnvelopeXYM:
		return 48
	case EnvelopeXYZM:
		return 64
	default:
		return 0
	}
}

// Header is the decoded GeoPackage binary header.
type Header struct {
	Version      uint8
	LittleEndian bool
	Empty        bool
	Extended     bool
	EnvelopeType EnvelopeType
	SRSID        int32
	Envelope     *Envelope // nil when EnvelopeType is EnvelopeNone
}

// Size returns the header length in bytes.
func (h *Header) Size() int {
	return headerPrefixSize + h.EnvelopeType.Size()
}

// Binary is a decoded geometry blob.
type Binary struct {
	Header
	Geometry orb.Geometry // nil when the geometry is empty
}

// DecodeHeader parses the header of a geometry blob.
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) < headerPrefixSize {
		return nil, gerrors.NewValidation("geometry", fmt.Sprintf("blob too short: %d bytes", len(data)))
	}
	if data[0] != magic[0] || data[1] != magic[1] {
		return nil, gerrors.NewValidation("geometry", "missing GP magic")
	}

	flags := data[3]
	h := &Header{
		Version:      data[2],
		LittleEndian: flags&flagLittleEndian != 0,
		Empty:        flags&flagEmpty != 0,
		Extended:     flags&flagExtended != 0,
		EnvelopeType: EnvelopeType((flags & flagEnvelopeMask) >> 1),
	}
	if h.EnvelopeType > EnvelopeXYZM {
		return nil, gerrors.NewValidation("geometry", fmt.Sprintf("invalid envelope indicator %d", h.EnvelopeType))
	}

	var order binary.ByteOrder = binary.BigEndian
	if h.LittleEndian {
		order = binary.LittleEndian
	}
	h.SRSID = int32(order.Uint32(data[4:8]))

	if h.EnvelopeType != EnvelopeNone {
		if len(data) < h.Size() {
			return nil, gerrors.NewValidation("geometry", "truncated envelope")
		}
		read := func(i int) float64 {
			off := headerPrefixSize + i*8
			return math.Float64frombits(order.Uint64(data[off : off+8]))
		}
		// Envelope order is minx, maxx, miny, maxy.
		h.Envelope = &Envelope{MinX: read(0), MaxX: read(1), MinY: read(2), MaxY: read(3)}
	}
	return h, nil
}

// Decode parses a full geometry blob.
func Decode(data []byte) (*Binary, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}

	b := &Binary{Header: *h}
	if h.Empty {
		return b, nil
	}

	g, err := wkb.Unmarshal(data[h.Size():])
	if err != nil {
		return nil, fmt.Errorf("decode wkb: %w", err)
	}
	if IsEmpty(g) {
		b.Empty = true
		return b, nil
	}
	b.Geometry = g
	return b, nil
}

// EnvelopeOf returns the envelope of a geometry blob. The header envelope is
// used when present; otherwise the WKB body is decoded. The boolean is false
// for null or empty geometries.
func EnvelopeOf(data []byte) (Envelope, bool, error) {
	if len(data) == 0 {
		return Envelope{}, false, nil
	}

	h, err := DecodeHeader(data)
	if err != nil {
		return Envelope{}, false, err
	}
	if h.Empty {
		return Envelope{}, false, nil
	}
	if h.Envelope != nil {
		return *h.Envelope, true, nil
	}

	b, err := Decode(data)
	if err != nil {
		return Envelope{}, false, err
	}
	if b.Geometry == nil {
		return Envelope{}, false, nil
	}
	return FromBound(b.Geometry.Bound()), true, nil
}

// Encode writes a geometry blob with an XY envelope in little-endian order.
// A nil or empty geometry produces an empty-flagged blob.
func Encode(srsID int32, g orb.Geometry) ([]byte, error) {
	if g == nil || IsEmpty(g) {
		return EncodeEmpty(srsID), nil
	}

	body, err := wkb.Marshal(g, binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("encode wkb: %w", err)
	}

	env := FromBound(g.Bound())
	buf := make([]byte, headerPrefixSize+EnvelopeXY.Size(), headerPrefixSize+EnvelopeXY.Size()+len(body))
	buf[0], buf[1] = magic[0], magic[1]
	buf[2] = 0
	buf[3] = flagLittleEndian | byte(EnvelopeXY)<<1
	binary.LittleEndian.PutUint32(buf[4:8], uint32(srsID))
	for i, v := range []float64{env.MinX, env.MaxX, env.MinY, env.MaxY} {
		off := headerPrefixSize + i*8
		binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(v))
	}
	return append(buf, body...), nil
}

// EncodeEmpty writes an empty geometry blob with no envelope.
func EncodeEmpty(srsID int32) []byte {
	buf := make([]byte, headerPrefixSize)
	buf[0], buf[1] = magic[0], magic[1]
	buf[3] = flagLittleEndian | flagEmpty
	binary.LittleEndian.PutUint32(buf[4:8], uint32(srsID))
	return buf
}

// IsEmpty reports whether g has no coordinates.
func IsEmpty(g orb.Geometry) bool {
	switch v := g.(type) {
	case nil:
		return true
	case orb.Point:
		return math.IsNaN(v.X()) || math.IsNaN(v.Y())
	case orb.MultiPoint:
		return len(v) == 0
	case orb.LineString:
		return len(v) == 0
	case orb.Ring:
		return len(v) == 0
	case orb.Polygon:
		return len(v) == 0
	case orb.MultiLineString:
		return len(v) == 0
	case orb.MultiPolygon:
		return len(v) == 0
	case orb.Collection:
		for _, c := range v {
			if !IsEmpty(c) {
				return false
			}
		}
		return true
	case orb.Bound:
		return v.IsEmpty()
	}
	return false
}
