package digest

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_Empty(t *testing.T) {
	sum, err := Compute(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262", sum)
}

func TestCompute_IndependentOfReadSize(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789abcdef"), 10*1024)

	whole, err := Compute(bytes.NewReader(data))
	require.NoError(t, err)

	oneByte, err := Compute(iotest.OneByteReader(bytes.NewReader(data)))
	require.NoError(t, err)

	half, err := Compute(iotest.HalfReader(bytes.NewReader(data)))
	require.NoError(t, err)

	assert.Equal(t, whole, oneByte)
	assert.Equal(t, whole, half)
	assert.Len(t, whole, 64)
}

func TestCompute_DifferentContent(t *testing.T) {
	a, err := Compute(strings.NewReader("hello"))
	require.NoError(t, err)
	b, err := Compute(strings.NewReader("hello!"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestCompute_ReadError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Compute(iotest.ErrReader(boom))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
