package safety

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVelocityTrackerZeroBeforeFirstSample(t *testing.T) {
	var v VelocityTracker
	assert.Zero(t, v.Current())
}

func TestVelocityTrackerLastWriterWins(t *testing.T) {
	var v VelocityTracker
	for _, s := range []float64{1.0, -0.5, 3.0} {
		v.Update(s)
		assert.Equal(t, s, v.Current(), "no blending, no filtering")
	}
}

func TestVelocityTrackerConcurrentAccess(t *testing.T) {
	var v VelocityTracker
	var wg sync.WaitGroup

	const writers = 8
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				v.Update(float64(w))
			}
		}(w)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			got := v.Current()
			// A stale read is fine; a torn one is not.
			if got != float64(int(got)) || got < 0 || got >= writers {
				t.Errorf("torn read: %f", got)
				return
			}
		}
	}()

	wg.Wait()
}
