package transcript

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregator_OutputDeltas(t *testing.T) {
	a := New()

	first := a.OnOutputDelta("AI ")
	assert.Equal(t, Delta{IsFirst: true, Accumulated: "AI "}, first)

	second := a.OnOutputDelta("Response")
	assert.Equal(t, Delta{IsFirst: false, Accumulated: "AI Response"}, second)
}

func TestAggregator_ResetStartsNewMessage(t *testing.T) {
	a := New()
	a.OnInputDelta("what is ")
	a.OnInputDelta("a mutex?")
	a.OnOutputDelta("A lock.")

	assert.Equal(t, Turn{Input: "what is a mutex?", Output: "A lock."}, a.Snapshot())

	a.ResetTurn()
	assert.Equal(t, Turn{}, a.Snapshot())

	d := a.OnOutputDelta("Next")
	assert.True(t, d.IsFirst)
	assert.Equal(t, "Next", d.Accumulated)
}

func TestAggregator_InputDoesNotAffectIsFirst(t *testing.T) {
	a := New()
	a.OnInputDelta("hello")
	assert.True(t, a.OnOutputDelta("hi").IsFirst)
}

func TestAggregator_EmptyFirstFragmentCounts(t *testing.T) {
	a := New()
	assert.True(t, a.OnOutputDelta("").IsFirst)
	assert.False(t, a.OnOutputDelta("x").IsFirst)
}

func TestAggregator_NoDeduplication(t *testing.T) {
	a := New()
	a.OnOutputDelta("ok ")
	d := a.OnOutputDelta("ok ")
	assert.Equal(t, "ok ok ", d.Accumulated)
}

func TestAggregator_ConcurrentUse(t *testing.T) {
	a := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			a.OnInputDelta("i")
		}()
		go func() {
			defer wg.Done()
			a.OnOutputDelta("o")
		}()
	}
	wg.Wait()

	turn := a.Snapshot()
	assert.Len(t, turn.Input, 50)
	assert.Len(t, turn.Output, 50)
}
