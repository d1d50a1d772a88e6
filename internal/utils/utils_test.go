package utils

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetSortedKeys(t *testing.T) {
	m := map[string]int{"plot": 1, "area": 2, "name": 3}
	assert.Equal(t, []string{"area", "name", "plot"}, GetSortedKeys(m, true))
	assert.Equal(t, []string{"plot", "name", "area"}, GetSortedKeys(m, false))
	assert.Empty(t, GetSortedKeys(map[int]bool{}, true))
}

func TestExecuteWithMutex(t *testing.T) {
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ExecuteWithMutex(func() { counter++ })
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)

	boom := errors.New("boom")
	assert.ErrorIs(t, ExecuteWithMutexErr(func() error { return boom }), boom)
	assert.NoError(t, ExecuteWithMutexErr(func() error { return nil }))
}
