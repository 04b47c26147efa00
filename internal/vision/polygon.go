package vision

import "gocv.io/x/gocv"

// minContourArea drops tiny contours as mask noise, matching the annotation
// pipeline's 10px floor.
const minContourArea = 10.0

// simplifyEpsilonFactor scales the polygon simplification tolerance by the
// contour perimeter.
const simplifyEpsilonFactor = 0.001

// MaskToPolygon projects a binary mask to one flattened polygon
// [x1, y1, x2, y2, ...] with coordinates normalized to [0,1]. External
// contours are simplified and concatenated in order, so a mask with several
// components still yields a single polygon. Contours under the noise floor
// are skipped; an empty result means the mask carried no usable shape.
func MaskToPolygon(m Mask) []float64 {
	if m.W == 0 || m.H == 0 {
		return nil
	}

	img, err := gocv.NewMatFromBytes(m.H, m.W, gocv.MatTypeCV8UC1, m.Bits)
	if err != nil {
		return nil
	}
	defer img.Close()

	contours := gocv.FindContours(img, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var polygon []float64
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		if gocv.ContourArea(contour) < minContourArea {
			continue
		}

		epsilon := simplifyEpsilonFactor * gocv.ArcLength(contour, true)
		approx := gocv.ApproxPolyDP(contour, epsilon, true)
		points := approx.ToPoints()
		approx.Close()

		for _, p := range points {
			polygon = append(polygon, float64(p.X)/float64(m.W), float64(p.Y)/float64(m.H))
		}
	}
	return polygon
}
