package vision

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLabel(t *testing.T) {
	line := FormatLabel(3, []float64{0.125, 0.25, 0.5, 0.75})
	assert.Equal(t, "3 0.125000 0.250000 0.500000 0.750000", line)
}

func TestFormatLabelPrecision(t *testing.T) {
	line := FormatLabel(0, []float64{1.0 / 3.0})
	assert.Equal(t, "0 0.333333", line)
}

func TestLabelFilterScoreThreshold(t *testing.T) {
	f := LabelFilter{MinConfidence: 0.5}

	assert.True(t, f.Accepts(0, 0.95))
	assert.True(t, f.Accepts(0, 0.5))
	assert.False(t, f.Accepts(0, 0.3))
}

func TestLabelFilterAllowlist(t *testing.T) {
	names := []string{"person", "helmet", "vest"}
	f := LabelFilter{
		MinConfidence: 0.5,
		TargetClasses: TargetClassSet([]string{"helmet"}),
		ClassName:     func(id int) string { return names[id] },
	}

	assert.True(t, f.Accepts(1, 0.9), "helmet should pass")
	assert.False(t, f.Accepts(0, 0.9), "person not in allowlist")
	assert.False(t, f.Accepts(1, 0.2), "low score fails even when allowlisted")
}

func TestLabelFilterAllowlistNumericFallback(t *testing.T) {
	f := LabelFilter{TargetClasses: TargetClassSet([]string{"7"})}

	assert.True(t, f.Accepts(7, 1.0))
	assert.False(t, f.Accepts(8, 1.0))
}

func TestTargetClassSetEmptyDisablesFiltering(t *testing.T) {
	assert.Nil(t, TargetClassSet(nil))
	assert.Nil(t, TargetClassSet([]string{}))
}

func TestBuildLabelsFiltersAndProjects(t *testing.T) {
	res := DetectionResult{
		Masks: []Mask{
			RectMask(64, 64, 8, 8, 20, 20),  // kept
			RectMask(64, 64, 30, 30, 20, 20), // filtered by score
			NewMask(64, 64),                  // degenerate mask, dropped
		},
		ClassIDs: []int{2, 1, 0},
		Scores:   []float64{0.95, 0.3, 0.99},
	}
	require.NoError(t, res.Validate())

	lines := BuildLabels(res, LabelFilter{MinConfidence: 0.5})
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "2 "), "line should start with class id 2: %q", lines[0])

	fields := strings.Fields(lines[0])
	assert.True(t, len(fields) >= 7, "label line needs class + >=3 points, got %d fields", len(fields))
	assert.Equal(t, 1, len(fields)%2, "class id plus coordinate pairs")
}

func TestBuildLabelsOneLinePerDetection(t *testing.T) {
	// One detection whose mask splits into two components: still one line,
	// carrying both components' vertices.
	m := NewMask(64, 64)
	for y := 4; y < 12; y++ {
		for x := 4; x < 12; x++ {
			m.Set(x, y)
		}
	}
	for y := 40; y < 52; y++ {
		for x := 40; x < 52; x++ {
			m.Set(x, y)
		}
	}

	res := DetectionResult{
		Masks:    []Mask{m},
		ClassIDs: []int{1},
		Scores:   []float64{0.9},
	}

	lines := BuildLabels(res, LabelFilter{MinConfidence: 0.5})
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "1 "), "line: %q", lines[0])

	fields := strings.Fields(lines[0])
	assert.GreaterOrEqual(t, len(fields), 13, "one line should carry both components' vertices")
}

func TestBuildLabelsEmptyResult(t *testing.T) {
	lines := BuildLabels(DetectionResult{}, LabelFilter{MinConfidence: 0.5})
	assert.Empty(t, lines)
}

func TestDetectionResultValidate(t *testing.T) {
	bad := DetectionResult{
		Masks:    []Mask{NewMask(4, 4)},
		ClassIDs: []int{1, 2},
		Scores:   []float64{0.5},
	}
	assert.Error(t, bad.Validate())
	assert.NoError(t, DetectionResult{}.Validate())
}
