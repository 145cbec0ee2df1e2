package traverse

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotArray_GetAllocatesLazily(t *testing.T) {
	a := NewSlotArray(2, 4)
	s := a.Get(1)
	require.NotNil(t, s)
	assert.Same(t, s, a.Get(1), "a second Get must return the same slot")
}

func TestSlotArray_GrowsPastInitialCapacity(t *testing.T) {
	a := NewSlotArray(2, 2)
	s := a.Get(17)
	require.NotNil(t, s)
	_, err := s.Write([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(a.Get(17).Bytes()))
}

func TestSlotArray_ConcurrentWritersGrowSafely(t *testing.T) {
	a := NewSlotArray(4, 1)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := w; i < 200; i += 4 {
				s := a.Get(i)
				_, _ = s.Write([]byte(fmt.Sprintf("%d\n", i)))
			}
		}()
	}
	wg.Wait()

	for i := 0; i < 200; i++ {
		assert.Equal(t, fmt.Sprintf("%d\n", i), string(a.Get(i).Bytes()))
	}
}

func TestSlotArray_ReleaseFreesSlot(t *testing.T) {
	a := NewSlotArray(2, 2)
	s := a.Get(0)
	_, _ = s.Write([]byte("gone"))
	a.Release(0)
	assert.Empty(t, a.Get(0).Bytes(), "a released slot starts fresh")
}
