package toolexecutor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestTranscript_AppendAssignsSequence(t *testing.T) {
	tr := NewTranscript()
	assert.NotEmpty(t, tr.SessionID)

	tr.Append(TranscriptEntry{Content: "a"})
	tr.Append(TranscriptEntry{Content: "b"})

	entries := tr.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(1), entries[0].Seq)
	assert.Equal(t, uint64(2), entries[1].Seq)
	assert.False(t, entries[0].Timestamp.IsZero())
	assert.Equal(t, 2, tr.Len())
}

func TestTranscript_AppendAfterCloseDropped(t *testing.T) {
	tr := NewTranscript()
	tr.Append(TranscriptEntry{Content: "a"})
	tr.Close()
	tr.Close()
	tr.Append(TranscriptEntry{Content: "b"})

	assert.Equal(t, 1, tr.Len())
}

func TestTranscript_ConsumeDeliversInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	tr := NewTranscript()
	tr.Append(TranscriptEntry{Content: "before"})

	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan error, 1)
	go func() {
		done <- tr.Consume(context.Background(), func(e TranscriptEntry) {
			mu.Lock()
			got = append(got, e.Content)
			mu.Unlock()
		})
	}()

	for _, s := range []string{"one", "two", "three"} {
		tr.Append(TranscriptEntry{Content: s})
	}
	tr.Close()

	require.NoError(t, <-done)
	mu.Lock()
	assert.Equal(t, []string{"before", "one", "two", "three"}, got)
	mu.Unlock()
}

func TestTranscript_MultipleConsumers(t *testing.T) {
	defer goleak.VerifyNone(t)

	tr := NewTranscript()
	counts := make([]int, 2)
	var wg sync.WaitGroup
	for i := range counts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = tr.Consume(context.Background(), func(TranscriptEntry) { counts[i]++ })
		}(i)
	}

	for i := 0; i < 50; i++ {
		tr.Append(TranscriptEntry{Content: "x"})
	}
	tr.Close()
	wg.Wait()

	assert.Equal(t, []int{50, 50}, counts)
}

func TestTranscript_ConsumeStopsOnContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	tr := NewTranscript()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := tr.Consume(ctx, func(TranscriptEntry) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
