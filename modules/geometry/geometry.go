package geometry

import (
	"fmt"

	"github.com/vk/cookgrid/internal/connection"
	"github.com/zclconf/go-cty/cty"
)

// Geometry is a point cloud, the Go side of connection.GeometryType.
type Geometry struct {
	Points [][3]float64
}

// FromValue decodes a geometry value. A null value is an empty geometry.
func FromValue(v cty.Value) (Geometry, error) {
	var g Geometry
	if v.IsNull() {
		return g, nil
	}
	if err := connection.Conforms(v, connection.TypeGeometry); err != nil {
		return g, err
	}
	points := v.GetAttr("points")
	if points.IsNull() {
		return g, nil
	}
	for it := points.ElementIterator(); it.Next(); {
		_, pv := it.Element()
		comps, err := connection.Floats(pv, connection.TypeVec3)
		if err != nil {
			return g, fmt.Errorf("point %d: %w", len(g.Points), err)
		}
		g.Points = append(g.Points, [3]float64{comps[0], comps[1], comps[2]})
	}
	return g, nil
}

// Value encodes the geometry.
func (g Geometry) Value() cty.Value {
	if len(g.Points) == 0 {
		return cty.ObjectVal(map[string]cty.Value{
			"points": cty.ListValEmpty(connection.Point3Type),
		})
	}
	points := make([]cty.Value, len(g.Points))
	for i, p := range g.Points {
		points[i] = connection.FloatsVal(p[0], p[1], p[2])
	}
	return cty.ObjectVal(map[string]cty.Value{
		"points": cty.ListVal(points),
	})
}

// Transform scales every point about the origin, then translates it.
func (g Geometry) Transform(scale float64, translate [3]float64) Geometry {
	out := Geometry{Points: make([][3]float64, len(g.Points))}
	for i, p := range g.Points {
		for c := range 3 {
			out.Points[i][c] = p[c]*scale + translate[c]
		}
	}
	return out
}

// Box returns the eight corners of an axis-aligned box.
func Box(size, center [3]float64) Geometry {
	var g Geometry
	for _, x := range []float64{-0.5, 0.5} {
		for _, y := range []float64{-0.5, 0.5} {
			for _, z := range []float64{-0.5, 0.5} {
				g.Points = append(g.Points, [3]float64{
					center[0] + x*size[0],
					center[1] + y*size[1],
					center[2] + z*size[2],
				})
			}
		}
	}
	return g
}
