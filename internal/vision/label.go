package vision

import (
	"fmt"
	"strings"
)

// FormatLabel renders one polygon as a YOLO segmentation label line:
// "<class_id> <x1> <y1> <x2> <y2> ..." with fixed 6-decimal precision.
func FormatLabel(classID int, polygon []float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", classID)
	for _, v := range polygon {
		fmt.Fprintf(&b, " %.6f", v)
	}
	return b.String()
}

// LabelFilter holds the acceptance policy applied to raw detections.
type LabelFilter struct {
	// MinConfidence drops detections scoring below it.
	MinConfidence float64

	// TargetClasses, when non-empty, is an allowlist of class names.
	TargetClasses map[string]bool

	// ClassName resolves a class id to a name for allowlist matching.
	// Nil means ids match by their decimal string.
	ClassName func(classID int) string
}

// Accepts reports whether a detection passes the score and class filters.
func (f LabelFilter) Accepts(classID int, score float64) bool {
	if score < f.MinConfidence {
		return false
	}
	if len(f.TargetClasses) == 0 {
		return true
	}
	name := fmt.Sprintf("%d", classID)
	if f.ClassName != nil {
		name = f.ClassName(classID)
	}
	return f.TargetClasses[name]
}

// BuildLabels filters a detection result and projects the surviving masks
// to label lines, exactly one line per accepted detection. Detections whose
// masks yield no usable polygon are dropped. An empty slice means the frame
// is not worth keeping.
func BuildLabels(res DetectionResult, f LabelFilter) []string {
	var lines []string
	for i := 0; i < res.Len(); i++ {
		if !f.Accepts(res.ClassIDs[i], res.Scores[i]) {
			continue
		}
		poly := MaskToPolygon(res.Masks[i])
		if len(poly) == 0 {
			continue
		}
		lines = append(lines, FormatLabel(res.ClassIDs[i], poly))
	}
	return lines
}

// TargetClassSet builds the allowlist set from the configured slice. A nil
// or empty slice disables class filtering.
func TargetClassSet(classes []string) map[string]bool {
	if len(classes) == 0 {
		return nil
	}
	set := make(map[string]bool, len(classes))
	for _, c := range classes {
		set[c] = true
	}
	return set
}
