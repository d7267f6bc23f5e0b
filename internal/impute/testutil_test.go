package impute

import (
	"github.com/sells-group/clinic-pipeline/internal/geo"
	"github.com/sells-group/clinic-pipeline/internal/model"
)

// metersNorth returns a point d meters due north of p.
func metersNorth(p geo.Point, d float64) geo.Point {
	return geo.Point{Lat: p.Lat + d/111194.93, Lon: p.Lon}
}

func clinicAtPoint(id int64, p geo.Point) *model.Clinic {
	return &model.Clinic{
		ID:        id,
		Latitude:  model.Float(p.Lat),
		Longitude: model.Float(p.Lon),
		IsActive:  true,
	}
}

var origin = geo.Point{Lat: 41.8900, Lon: -87.6300}
