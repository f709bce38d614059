package sse

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func drain(f *Framer) []string {
	var events []string
	for {
		ev, ok := f.TakeEvent()
		if !ok {
			break
		}
		events = append(events, ev)
	}
	return events
}

func TestFramerWholeBlob(t *testing.T) {
	f := NewFramer()
	f.Feed([]byte("data: one\n\ndata: two\n\n"))
	require.Equal(t, []string{"data: one", "data: two"}, drain(f))
}

func TestFramerEmptyFeedNoop(t *testing.T) {
	f := NewFramer()
	f.Feed(nil)
	_, ok := f.TakeEvent()
	require.False(t, ok)
}

func TestFramerSplitAcrossArbitraryByteBoundaries(t *testing.T) {
	whole := "data: {\"a\":1}\n\ndata: {\"b\":2}\n\ndata: [DONE]\n\n"

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		f := NewFramer()
		pos := 0
		for pos < len(whole) {
			chunk := 1 + rng.Intn(5)
			end := pos + chunk
			if end > len(whole) {
				end = len(whole)
			}
			f.Feed([]byte(whole[pos:end]))
			pos = end
		}
		got := drain(f)
		require.Equal(t, []string{
			`data: {"a":1}`,
			`data: {"b":2}`,
			"data: [DONE]",
		}, got)
	}
}

func TestFramerRetainsTailAcrossFeeds(t *testing.T) {
	f := NewFramer()
	f.Feed([]byte("data: partial"))
	_, ok := f.TakeEvent()
	require.False(t, ok)
	f.Feed([]byte("-event\n\n"))
	ev, ok := f.TakeEvent()
	require.True(t, ok)
	require.Equal(t, "data: partial-event", ev)
}
