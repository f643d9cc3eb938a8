package geom

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
)

func TestEncodeDecodePolygon(t *testing.T) {
	poly := orb.Polygon{{{0, 0}, {2, 0}, {2, 3}, {0, 3}, {0, 0}}}

	data, err := Encode(4326, poly)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	b, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if b.SRSID != 4326 {
		t.Errorf("SRSID = %d, want 4326", b.SRSID)
	}
	if b.EnvelopeType != EnvelopeXY {
		t.Errorf("EnvelopeType = %d, want XY", b.EnvelopeType)
	}
	if b.Empty {
		t.Error("polygon should not be empty")
	}
	if _, ok := b.Geometry.(orb.Polygon); !ok {
		t.Fatalf("Geometry = %T, want orb.Polygon", b.Geometry)
	}

	want := Envelope{MinX: 0, MinY: 0, MaxX: 2, MaxY: 3}
	if *b.Envelope != want {
		t.Errorf("Envelope = %v, want %v", *b.Envelope, want)
	}
}

func TestEnvelopeOf(t *testing.T) {
	tests := []struct {
		name   string
		data   func() []byte
		want   Envelope
		wantOK bool
	}{
		{
			name: "header envelope",
			data: func() []byte {
				b, _ := Encode(0, orb.LineString{{1, 2}, {3, 4}})
				return b
			},
			want:   Envelope{MinX: 1, MinY: 2, MaxX: 3, MaxY: 4},
			wantOK: true,
		},
		{
			name: "no header envelope",
			data: func() []byte {
				body, _ := wkb.Marshal(orb.Point{5, 6}, binary.LittleEndian)
				header := []byte{'G', 'P', 0, flagLittleEndian, 0, 0, 0, 0}
				return append(header, body...)
			},
			want:   Envelope{MinX: 5, MinY: 6, MaxX: 5, MaxY: 6},
			wantOK: true,
		},
		{
			name:   "empty flag",
			data:   func() []byte { return EncodeEmpty(4326) },
			wantOK: false,
		},
		{
			name:   "null",
			data:   func() []byte { return nil },
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := EnvelopeOf(tt.data())
			if err != nil {
				t.Fatalf("EnvelopeOf failed: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("envelope = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeHeaderBigEndian(t *testing.T) {
	data := make([]byte, 8+32)
	data[0], data[1] = 'G', 'P'
	data[3] = byte(EnvelopeXY) << 1
	binary.BigEndian.PutUint32(data[4:8], 3857)
	for i, v := range []float64{-1, 1, -2, 2} {
		binary.BigEndian.PutUint64(data[8+i*8:], math.Float64bits(v))
	}

	h, err := DecodeHeader(data)
	if err != nil {
		t.Fatalf("DecodeHeader failed: %v", err)
	}
	if h.LittleEndian {
		t.Error("expected big-endian header")
	}
	if h.SRSID != 3857 {
		t.Errorf("SRSID = %d, want 3857", h.SRSID)
	}
	want := Envelope{MinX: -1, MinY: -2, MaxX: 1, MaxY: 2}
	if *h.Envelope != want {
		t.Errorf("Envelope = %v, want %v", *h.Envelope, want)
	}
	if h.Size() != 40 {
		t.Errorf("Size = %d, want 40", h.Size())
	}
}

func TestDecodeHeaderErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte{'G', 'P', 0}},
		{"bad magic", []byte{'X', 'P', 0, 1, 0, 0, 0, 0}},
		{"bad envelope indicator", []byte{'G', 'P', 0, 0x0E, 0, 0, 0, 0}},
		{"truncated envelope", []byte{'G', 'P', 0, 0x03, 0, 0, 0, 0, 1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeHeader(tt.data)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, gerrors.ErrInvalidInput) {
				t.Errorf("error %v should wrap ErrInvalidInput", err)
			}
		})
	}
}

func TestEncodeEmpty(t *testing.T) {
	data, err := Encode(4326, orb.LineString{})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	b, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !b.Empty || b.Geometry != nil {
		t.Errorf("expected empty geometry, got empty=%v geometry=%v", b.Empty, b.Geometry)
	}
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		g    orb.Geometry
		want bool
	}{
		{"nil", nil, true},
		{"nan point", orb.Point{math.NaN(), math.NaN()}, true},
		{"point", orb.Point{1, 1}, false},
		{"empty collection", orb.Collection{orb.LineString{}}, true},
		{"collection", orb.Collection{orb.Point{0, 0}}, false},
		{"empty multipolygon", orb.MultiPolygon{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsEmpty(tt.g); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnvelopeOperations(t *testing.T) {
	a := NewEnvelope(1, 1, 0, 0)
	if a != (Envelope{0, 0, 1, 1}) {
		t.Errorf("NewEnvelope did not normalize: %v", a)
	}

	b := Envelope{MinX: 1, MinY: 1, MaxX: 2, MaxY: 2}
	if !a.Intersects(b) {
		t.Error("touching envelopes should intersect")
	}
	c := Envelope{MinX: 1.5, MinY: 1.5, MaxX: 2, MaxY: 2}
	if a.Intersects(c) {
		t.Error("disjoint envelopes should not intersect")
	}
	if !a.Expand(0.5).Intersects(c) {
		t.Error("expanded envelope should intersect")
	}
	if u := a.Union(c); u != (Envelope{0, 0, 2, 2}) {
		t.Errorf("Union = %v", u)
	}
	if !a.Union(c).Contains(b) {
		t.Error("union should contain b")
	}
	if FromBound(a.Bound()) != a {
		t.Error("bound round trip changed envelope")
	}
}
