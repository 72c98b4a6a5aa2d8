package livetail_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/tracetail/internal/livetail"
	"github.com/five82/tracetail/internal/vtselect"
)

// tailServer streams whatever the test pushes into lines and flushes after
// each write.
func tailServer(t *testing.T, lines <-chan string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/select/tracesql/tail" {
			http.NotFound(w, r)
			return
		}
		if r.FormValue("query") == "bad" {
			http.Error(w, "cannot parse query", http.StatusBadRequest)
			return
		}
		flusher := w.(http.Flusher)
		w.WriteHeader(http.StatusOK)
		flusher.Flush()
		for {
			select {
			case <-r.Context().Done():
				return
			case line, ok := <-lines:
				if !ok {
					return
				}
				_, _ = fmt.Fprint(w, line)
				flusher.Flush()
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSessionOverHTTP(t *testing.T) {
	lines := make(chan string, 16)
	server := tailServer(t, lines)
	client, err := vtselect.NewClient(server.URL)
	require.NoError(t, err)

	s := livetail.NewSession(client, livetail.SessionOptions{Query: "*", Capacity: 10})
	t.Cleanup(func() { s.Stop(); s.Wait() })

	require.True(t, s.Start(context.Background()))

	// one record split across two writes
	lines <- `{"_msg":"hel`
	lines <- "lo\",\"_stream\":\"{app=\\\"api\\\"}\"}\n"
	require.Eventually(t, func() bool {
		return len(s.Snapshot().Records) == 1
	}, 2*time.Second, 5*time.Millisecond)

	rec := s.Snapshot().Records[0]
	assert.Equal(t, "hello", rec.Msg())
	assert.Equal(t, `{app="api"}`, rec.Stream())

	close(lines)
	s.Wait()
	snap := s.Snapshot()
	assert.Equal(t, livetail.StateStopped, snap.State)
	assert.Len(t, snap.Records, 1)
}

func TestSessionOverHTTP_BadQuery(t *testing.T) {
	server := tailServer(t, make(chan string))
	client, err := vtselect.NewClient(server.URL)
	require.NoError(t, err)

	s := livetail.NewSession(client, livetail.SessionOptions{Query: "bad", Capacity: 10})
	assert.False(t, s.Start(context.Background()))

	snap := s.Snapshot()
	assert.Equal(t, livetail.StateErrored, snap.State)
	assert.Contains(t, snap.Error, "returned status 400")
	assert.Contains(t, snap.Error, "cannot parse query")

	s.SetQuery("*")
	require.True(t, s.Start(context.Background()))
	assert.Empty(t, s.Snapshot().Error)
	s.Stop()
	s.Wait()
	assert.Equal(t, livetail.StateStopped, s.Snapshot().State)
}
