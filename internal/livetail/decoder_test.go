package livetail

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterIDs() DecoderOption {
	n := 0
	return WithIDFunc(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
}

func TestDecoder_SplitsAcrossChunks(t *testing.T) {
	dec := NewDecoder(counterIDs())

	recs, err := dec.Feed([]byte(`{"_msg":"one"}` + "\n" + `{"_msg":"tw`))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "one", recs[0].Msg())
	assert.Equal(t, "id-1", recs[0].ID())
	assert.Equal(t, len(`{"_msg":"tw`), dec.Buffered())

	recs, err = dec.Feed([]byte(`o"}`))
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs, err = dec.Feed([]byte("\r\n\n" + `{"_msg":"three"}` + "\n"))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "two", recs[0].Msg())
	assert.Equal(t, "three", recs[1].Msg())
	assert.Equal(t, "id-3", recs[1].ID())
	assert.Zero(t, dec.Buffered())
}

func TestDecoder_DoesNotAliasChunk(t *testing.T) {
	dec := NewDecoder()
	chunk := []byte(`{"_msg":"ab`)
	_, err := dec.Feed(chunk)
	require.NoError(t, err)

	copy(chunk, strings.Repeat("x", len(chunk)))
	recs, err := dec.Feed([]byte("c\"}\n"))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "abc", recs[0].Msg())
}

func TestDecoder_MalformedLinesAreSoftErrors(t *testing.T) {
	dec := NewDecoder()
	input := strings.Join([]string{
		`{"_msg":"ok1"}`,
		`not json`,
		`{"_msg":"ok2"}`,
		`[1,2,3]`,
		`{"_msg":"ok3"}`,
	}, "\n") + "\n"

	recs, err := dec.Feed([]byte(input))
	require.Error(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"ok1", "ok2", "ok3"}, []string{recs[0].Msg(), recs[1].Msg(), recs[2].Msg()})

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 2, de.Line)

	joined := unwrapJoined(err)
	require.Len(t, joined, 2)
	require.True(t, errors.As(joined[1], &de))
	assert.Equal(t, 4, de.Line)
}

func TestDecoder_FlushDiscardsPartialLine(t *testing.T) {
	dec := NewDecoder()
	recs, err := dec.Feed([]byte(`{"_msg":"done"}` + "\n" + `{"_msg":"partial`))
	require.NoError(t, err)
	require.Len(t, recs, 1)

	assert.Equal(t, len(`{"_msg":"partial`), dec.Flush())
	assert.Zero(t, dec.Buffered())
	assert.Zero(t, dec.Flush())
}

func TestDecoder_OversizedLineDropped(t *testing.T) {
	dec := NewDecoder(WithMaxLineSize(16))
	_, err := dec.Feed([]byte(strings.Repeat("a", 32)))
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Zero(t, dec.Buffered())

	recs, err := dec.Feed([]byte("\n" + `{"_msg":"x"}` + "\n"))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "x", recs[0].Msg())
}
