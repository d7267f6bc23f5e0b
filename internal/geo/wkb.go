package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// SRID is the spatial reference (WGS 84) for stored clinic locations.
const SRID = 4326

// EncodeEWKB encodes p as a little-endian EWKB point with SRID 4326.
// PostGIS stores points in (lon, lat) order.
func EncodeEWKB(p Point) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	g := geom.NewPointFlat(geom.XY, []float64{p.Lon, p.Lat}).SetSRID(SRID)
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode EWKB")
	}
	return data, nil
}

// DecodeEWKB decodes an EWKB point.
func DecodeEWKB(data []byte) (Point, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return Point{}, eris.Wrap(err, "geo: decode EWKB")
	}
	pt, ok := g.(*geom.Point)
	if !ok {
		return Point{}, eris.Errorf("geo: decode EWKB: expected point, got %T", g)
	}
	return Point{Lat: pt.Y(), Lon: pt.X()}, nil
}
