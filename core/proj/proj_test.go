package proj

import (
	"errors"
	"math"
	"testing"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
	"github.com/FocuswithJustin/geopackage/core/geom"
)

func TestTransformEnvelopeIdentity(t *testing.T) {
	e := geom.Envelope{MinX: 1, MinY: 2, MaxX: 3, MaxY: 4}
	got, err := TransformEnvelope(e, New("epsg", 4326), WGS84)
	if err != nil {
		t.Fatalf("TransformEnvelope failed: %v", err)
	}
	if got != e {
		t.Errorf("identity transform changed envelope: %v", got)
	}
}

func TestTransformEnvelopeRoundTrip(t *testing.T) {
	e := geom.Envelope{MinX: -10, MinY: -5, MaxX: 10, MaxY: 5}

	merc, err := TransformEnvelope(e, WGS84, WebMercator)
	if err != nil {
		t.Fatalf("to mercator failed: %v", err)
	}
	if merc.MaxX < 1_000_000 || merc.MinX > -1_000_000 {
		t.Errorf("mercator envelope looks wrong: %v", merc)
	}

	back, err := TransformEnvelope(merc, WebMercator, WGS84)
	if err != nil {
		t.Fatalf("to wgs84 failed: %v", err)
	}
	for _, pair := range [][2]float64{
		{back.MinX, e.MinX}, {back.MinY, e.MinY}, {back.MaxX, e.MaxX}, {back.MaxY, e.MaxY},
	} {
		if math.Abs(pair[0]-pair[1]) > 1e-6 {
			t.Errorf("round trip drifted: got %v want %v", back, e)
			break
		}
	}
}

func TestTransformUnsupported(t *testing.T) {
	_, err := NewTransform(New("EPSG", 27700), WGS84)
	if !errors.Is(err, gerrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestProjectionString(t *testing.T) {
	if got := WebMercator.String(); got != "EPSG:3857" {
		t.Errorf("String() = %q", got)
	}
}
