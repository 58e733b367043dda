package motion

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const preamble = `Coordinates
version=1
nRows=4
nColumns=4
inDegrees=no

Units are S.I. units (second, meters, Newtons, ...)
Angles are in radians.

endheader
`

func recording(rows ...string) []byte {
	return []byte(preamble + "time\thip_flexion_r\tknee_angle_r\tankle_angle_r\n" + strings.Join(rows, "\n") + "\n")
}

func deg(rad float64) float64 {
	return rad * 180 / math.Pi
}

func TestExtractRanges(t *testing.T) {
	data := recording(
		"0.00\t0.10\t-0.50\t0",
		"0.01\t0.30\t-0.20\t0",
		"0.02\t-0.05\t0\t0",
		"0.03\t0.20\t-0.70\t0",
	)

	got, err := NewExtractor(DefaultHeaderLine).Extract(data)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "hip_flexion_r", got[0].Name)
	assert.InDelta(t, deg(-0.05), got[0].Min, 1e-9)
	assert.InDelta(t, deg(0.30), got[0].Max, 1e-9)

	assert.Equal(t, "knee_angle_r", got[1].Name)
	assert.InDelta(t, deg(-0.70), got[1].Min, 1e-9)
	assert.InDelta(t, deg(-0.20), got[1].Max, 1e-9)
}

func TestExtractMinNeverExceedsMax(t *testing.T) {
	rows := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		x := float64(i) / 10
		rows = append(rows, fmt.Sprintf("%.2f\t%.6f\t%.6f\t%.6f", x, math.Sin(x), math.Cos(x), -x))
	}

	got, err := NewExtractor(DefaultHeaderLine).Extract(recording(rows...))
	require.NoError(t, err)
	require.NotEmpty(t, got)
	for _, r := range got {
		assert.LessOrEqual(t, r.Min, r.Max, r.Name)
		assert.NotEqual(t, "time", r.Name)
	}
}

func TestExtractSkipsAllZeroChannel(t *testing.T) {
	data := recording(
		"0.00\t0.1\t0\t0",
		"0.01\t0.2\t0\t0.0",
	)

	got, err := NewExtractor(DefaultHeaderLine).Extract(data)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hip_flexion_r", got[0].Name)
}

func TestExtractIgnoresBlankLines(t *testing.T) {
	data := recording("0.00\t0.1\t0.2\t0.3", "", "0.01\t0.2\t0.1\t0.4", "")

	got, err := NewExtractor(DefaultHeaderLine).Extract(data)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestExtractRejectsMalformedNumber(t *testing.T) {
	data := recording("0.00\t0.1\t0.2\t0.3", "0.01\tabc\t0.2\t0.3")

	got, err := NewExtractor(DefaultHeaderLine).Extract(data)
	assert.Nil(t, got)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 13, perr.Line)
	assert.Equal(t, "hip_flexion_r", perr.Column)
}

func TestExtractRejectsShortRow(t *testing.T) {
	data := recording("0.00\t0.1\t0.2")

	_, err := NewExtractor(DefaultHeaderLine).Extract(data)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Error(), "expected 4 fields, got 3")
}

func TestExtractRejectsNaN(t *testing.T) {
	_, err := NewExtractor(DefaultHeaderLine).Extract(recording("0.00\tNaN\t0.2\t0.3"))
	assert.Error(t, err)
}

func TestExtractMissingHeader(t *testing.T) {
	_, err := NewExtractor(DefaultHeaderLine).Extract([]byte("time\ta\n0\t1\n"))
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestExtractCustomHeaderLine(t *testing.T) {
	got, err := NewExtractor(0).Extract([]byte("time a b\n0 0.5 0\n1 1.0 0\n"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, deg(0.5), got[0].Min, 1e-9)
	assert.InDelta(t, deg(1.0), got[0].Max, 1e-9)
}
