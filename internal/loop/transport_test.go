package loop

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ikigai-cli/ikigai/internal/errs"
	"github.com/stretchr/testify/require"
)

func TestStartStreamDeliversChunksThenDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte("data: hi\n\n"))
		flusher.Flush()
	}))
	defer srv.Close()

	tr := NewTransport(srv.Client())
	events := make(chan StreamEvent, 16)
	require.NoError(t, tr.StartStream(context.Background(), "agent-1", srv.URL, nil, "{}", events))

	var sawDone bool
	var gotChunk bool
	for i := 0; i < 10; i++ {
		select {
		case evt := <-events:
			if len(evt.Chunk) > 0 {
				gotChunk = true
			}
			if evt.Done {
				sawDone = true
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for stream events")
		}
		if sawDone {
			break
		}
	}
	require.True(t, gotChunk)
	require.True(t, sawDone)
}

func TestStartStreamRejectsSecondConcurrentStreamForSameAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	tr := NewTransport(srv.Client())
	events := make(chan StreamEvent, 16)
	require.NoError(t, tr.StartStream(context.Background(), "agent-1", srv.URL, nil, "{}", events))

	err := tr.StartStream(context.Background(), "agent-1", srv.URL, nil, "{}", events)
	require.Error(t, err)
}

func TestCancelTearsDownStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	tr := NewTransport(srv.Client())
	events := make(chan StreamEvent, 16)
	require.NoError(t, tr.StartStream(context.Background(), "agent-1", srv.URL, nil, "{}", events))

	time.Sleep(10 * time.Millisecond)
	require.True(t, tr.Cancel("agent-1"))
	require.False(t, tr.Cancel("agent-1"))
}

func TestClassifyStatusMapsCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "Rate limit exceeded", "type": "rate_limit", "code": "rate_limit_exceeded"}}`))
	}))
	defer srv.Close()

	tr := NewTransport(srv.Client())
	events := make(chan StreamEvent, 16)
	require.NoError(t, tr.StartStream(context.Background(), "agent-1", srv.URL, nil, "{}", events))

	select {
	case evt := <-events:
		require.Error(t, evt.Err)
		var e *errs.Error
		require.ErrorAs(t, evt.Err, &e)
		require.Equal(t, errs.RateLimit, e.Code)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for error event")
	}
}

func TestClassifyStatusMapsBadRequestToInvalidArg(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "Bad request", "type": "invalid_request", "code": "bad_request"}}`))
	}))
	defer srv.Close()

	tr := NewTransport(srv.Client())
	events := make(chan StreamEvent, 16)
	require.NoError(t, tr.StartStream(context.Background(), "agent-1", srv.URL, nil, "{}", events))

	select {
	case evt := <-events:
		require.Error(t, evt.Err)
		var e *errs.Error
		require.ErrorAs(t, evt.Err, &e)
		require.Equal(t, errs.InvalidArg, e.Code)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for error event")
	}
}

func TestClassifyStatusDetectsContentFilterFromEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "Content filtered", "type": "invalid_request", "code": "content_filter"}}`))
	}))
	defer srv.Close()

	tr := NewTransport(srv.Client())
	events := make(chan StreamEvent, 16)
	require.NoError(t, tr.StartStream(context.Background(), "agent-1", srv.URL, nil, "{}", events))

	select {
	case evt := <-events:
		require.Error(t, evt.Err)
		var e *errs.Error
		require.ErrorAs(t, evt.Err, &e)
		require.Equal(t, errs.ContentFilter, e.Code)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for error event")
	}
}
