package batcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shugein/ceg/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sendRecords(n int) <-chan models.Record {
	ch := make(chan models.Record)
	go func() {
		defer close(ch)
		for i := 0; i < n; i++ {
			ch <- models.Record{ExternalID: string(rune('a' + i))}
		}
	}()
	return ch
}

func TestChunks_GroupsBySize(t *testing.T) {
	chunks, err := Chunks(context.Background(), sendRecords(7), 3)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0].Records, 3)
	assert.Len(t, chunks[1].Records, 3)
	assert.Len(t, chunks[2].Records, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 2, chunks[2].Index)
}

func TestChunks_EmptyInput(t *testing.T) {
	chunks, err := Chunks(context.Background(), sendRecords(0), 5)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestDispatch_PreservesOrderRegardlessOfCompletion(t *testing.T) {
	chunks := []Chunk{{Index: 0}, {Index: 1}, {Index: 2}}

	results := Dispatch(context.Background(), chunks, 3, func(_ context.Context, c Chunk) (any, error) {
		if c.Index == 0 {
			time.Sleep(20 * time.Millisecond)
		}
		return c.Index * 10, nil
	})

	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, i*10, r.Value)
		assert.NoError(t, r.Err)
	}
}

func TestDispatch_PerChunkErrorDoesNotCancelSiblings(t *testing.T) {
	chunks := []Chunk{{Index: 0}, {Index: 1}, {Index: 2}}
	var completed int32

	results := Dispatch(context.Background(), chunks, 3, func(_ context.Context, c Chunk) (any, error) {
		atomic.AddInt32(&completed, 1)
		if c.Index == 1 {
			return nil, errors.New("boom")
		}
		return c.Index, nil
	})

	assert.Equal(t, int32(3), atomic.LoadInt32(&completed))
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
}

func TestDispatch_RespectsConcurrencyLimit(t *testing.T) {
	chunks := make([]Chunk, 10)
	for i := range chunks {
		chunks[i] = Chunk{Index: i}
	}

	var inFlight, maxInFlight int32
	Dispatch(context.Background(), chunks, 2, func(_ context.Context, _ Chunk) (any, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			max := atomic.LoadInt32(&maxInFlight)
			if cur <= max || atomic.CompareAndSwapInt32(&maxInFlight, max, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil, nil
	})

	assert.LessOrEqual(t, int(atomic.LoadInt32(&maxInFlight)), 2)
}
