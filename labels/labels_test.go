package labels

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLinePolygon(t *testing.T) {
	box, ok := ParseLine("0 0.1 0.1 0.3 0.1 0.3 0.4 0.1 0.4")
	require.True(t, ok)

	assert.Equal(t, 0, box.Class)
	assert.InDelta(t, 0.2, box.X, 1e-12)
	assert.InDelta(t, 0.25, box.Y, 1e-12)
	assert.InDelta(t, 0.2, box.Width, 1e-12)
	assert.InDelta(t, 0.3, box.Height, 1e-12)
}

func TestParseLineCorners(t *testing.T) {
	// Two points in reverse order still yield the same rectangle.
	box, ok := ParseLine("2 0.6 0.8 0.2 0.4")
	require.True(t, ok)

	assert.Equal(t, 2, box.Class)
	assert.InDelta(t, 0.4, box.X, 1e-12)
	assert.InDelta(t, 0.6, box.Y, 1e-12)
	assert.InDelta(t, 0.4, box.Width, 1e-12)
	assert.InDelta(t, 0.4, box.Height, 1e-12)
}

func TestParseLineOddCoordinates(t *testing.T) {
	// The trailing x has no partner and only widens the x range.
	box, ok := ParseLine("0 0.2 0.2 0.4 0.5 0.9")
	require.True(t, ok)

	assert.InDelta(t, 0.55, box.X, 1e-12)
	assert.InDelta(t, 0.7, box.Width, 1e-12)
	assert.InDelta(t, 0.35, box.Y, 1e-12)
	assert.InDelta(t, 0.3, box.Height, 1e-12)
}

func TestParseLineMalformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "empty", line: ""},
		{name: "whitespace", line: "   \t "},
		{name: "too_few_tokens", line: "0 0.1 0.2 0.3"},
		{name: "bad_class", line: "tomato 0.1 0.2 0.3 0.4"},
		{name: "bad_coordinate", line: "0 0.1 x 0.3 0.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseLine(tt.line)
			assert.False(t, ok)
		})
	}
}

func TestParseSkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		"0 0.1 0.1 0.3 0.3",
		"0 0.5",
		"",
		"0 0.5 0.5 0.7 0.5 0.7 0.9",
	}, "\n")

	boxes, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, boxes, 2)
	assert.InDelta(t, 0.2, boxes[0].X, 1e-12)
	assert.InDelta(t, 0.6, boxes[1].X, 1e-12)
	assert.InDelta(t, 0.7, boxes[1].Y, 1e-12)
}

func TestLoadMissingFile(t *testing.T) {
	boxes, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	require.NoError(t, err)
	assert.Empty(t, boxes)
}

func TestLoadFor(t *testing.T) {
	split := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(split, "images"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(split, Dir), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(split, Dir, "img_001.txt"),
		[]byte("0 0.4 0.4 0.6 0.6\n0 0.1 0.1 0.2 0.2\n"),
		0o644,
	))

	imagePath := filepath.Join(split, "images", "img_001.jpg")
	assert.Equal(t, filepath.Join(split, Dir, "img_001.txt"), PathFor(imagePath))

	boxes, err := LoadFor(imagePath)
	require.NoError(t, err)
	assert.Len(t, boxes, 2)
}

func TestPathForKeepsInnerDots(t *testing.T) {
	got := PathFor(filepath.Join("data", "test", "images", "frame.0001.rf.abc.jpg"))
	assert.Equal(t, filepath.Join("data", "test", Dir, "frame.0001.rf.abc.txt"), got)
}

func TestDetectFormat(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	format, err := DetectFormat(write("box.txt", "0 0.1 0.1 0.2 0.2\n"))
	require.NoError(t, err)
	assert.Equal(t, FormatBoundingBox, format)

	format, err = DetectFormat(write("poly.txt", "\n0 0.1 0.1 0.2 0.1 0.2 0.2\n"))
	require.NoError(t, err)
	assert.Equal(t, FormatPolygon, format)

	format, err = DetectFormat(write("empty.txt", ""))
	require.NoError(t, err)
	assert.Equal(t, FormatUnknown, format)

	_, err = DetectFormat(filepath.Join(dir, "nope.txt"))
	assert.Error(t, err)
}
