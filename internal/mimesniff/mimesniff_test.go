package mimesniff

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestDetect_PNG(t *testing.T) {
	content := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{1}, 8192)...)

	ct, replay, err := NewDetector().Detect(bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)

	got, err := io.ReadAll(replay)
	require.NoError(t, err)
	assert.Equal(t, content, got, "replayed stream must contain every byte")
}

func TestDetect_Text(t *testing.T) {
	ct, replay, err := NewDetector().Detect(strings.NewReader("plain text content"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ct, "text/plain"), ct)

	got, err := io.ReadAll(replay)
	require.NoError(t, err)
	assert.Equal(t, "plain text content", string(got))
}

func TestDetect_Empty(t *testing.T) {
	ct, replay, err := NewDetector().Detect(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, ct)

	got, err := io.ReadAll(replay)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetect_ReadError(t *testing.T) {
	boom := errors.New("boom")
	_, _, err := NewDetector().Detect(iotest.ErrReader(boom))
	assert.ErrorIs(t, err, boom)
}
