package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRevisions_StartAtZero(t *testing.T) {
	r := NewRevisions()
	assert.Equal(t, int64(0), r.Current())
}

func TestRevisions_StartAt(t *testing.T) {
	r := NewRevisionsAt(41)
	assert.Equal(t, int64(41), r.Current())
	assert.Equal(t, int64(42), r.Next())
}

func TestRevisions_NextIncrements(t *testing.T) {
	r := NewRevisions()
	assert.Equal(t, int64(1), r.Next())
	assert.Equal(t, int64(2), r.Next())
	assert.Equal(t, int64(2), r.Current())
}

func TestRevisions_ConcurrentReaders(t *testing.T) {
	r := NewRevisions()
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = r.Current()
			}
		}()
	}
	for range 100 {
		r.Next()
	}
	wg.Wait()
	assert.Equal(t, int64(100), r.Current())
}
