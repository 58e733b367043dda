// Package motion derives joint-range statistics from motion-capture
// recordings in the tab separated layout produced by OpenSim inverse
// kinematics (.mot): a free-form preamble, a header row of channel labels
// starting with "time", then one row of samples per frame in radians.
package motion

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultHeaderLine is the 0-based line of the channel labels in a .mot file.
const DefaultHeaderLine = 10

const radToDeg = 180 / math.Pi

var ErrNoHeader = errors.New("motion: header row not found")

// ChannelRange is the observed range of one channel, in degrees.
type ChannelRange struct {
	Name string
	Min  float64
	Max  float64
}

// ParseError reports the first malformed row of a recording.
type ParseError struct {
	Line   int // 1-based
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("motion: line %d column %q: %v", e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("motion: line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type Extractor struct {
	HeaderLine int
}

func NewExtractor(headerLine int) *Extractor {
	return &Extractor{HeaderLine: headerLine}
}

// Extract returns one range per channel that has at least one non-zero
// sample, in header order. The time column is never reported. Zero samples
// are treated as missing data. Any malformed row fails the whole call.
func (x *Extractor) Extract(data []byte) ([]ChannelRange, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		header []string
		ranges []ChannelRange
		seen   []bool
		line   int
	)

	for sc.Scan() {
		line++
		if line-1 < x.HeaderLine {
			continue
		}

		fields := strings.Fields(sc.Text())
		if header == nil {
			if len(fields) < 1 {
				return nil, ErrNoHeader
			}
			header = fields
			ranges = make([]ChannelRange, len(header)-1)
			seen = make([]bool, len(header)-1)
			for i, name := range header[1:] {
				ranges[i].Name = name
			}
			continue
		}

		if len(fields) == 0 {
			continue
		}
		if len(fields) != len(header) {
			return nil, &ParseError{
				Line: line,
				Err:  fmt.Errorf("expected %d fields, got %d", len(header), len(fields)),
			}
		}

		for col, raw := range fields {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, &ParseError{Line: line, Column: header[col], Err: err}
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &ParseError{Line: line, Column: header[col], Err: errors.New("not a finite number")}
			}
			if col == 0 || v == 0 {
				continue
			}

			deg := v * radToDeg
			r := &ranges[col-1]
			if !seen[col-1] {
				r.Min, r.Max = deg, deg
				seen[col-1] = true
				continue
			}
			r.Min = math.Min(r.Min, deg)
			r.Max = math.Max(r.Max, deg)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("motion: read recording: %w", err)
	}
	if header == nil {
		return nil, ErrNoHeader
	}

	out := make([]ChannelRange, 0, len(ranges))
	for i, r := range ranges {
		if seen[i] {
			out = append(out, r)
		}
	}
	return out, nil
}
