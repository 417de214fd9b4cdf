package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(ms int64) time.Time {
	return time.UnixMilli(ms)
}

func TestAdmit_Window(t *testing.T) {
	d := New(DefaultWindow)

	assert.True(t, d.Admit(1, "X", at(0)))
	assert.False(t, d.Admit(1, "X", at(5000)))
	assert.True(t, d.Admit(1, "X", at(10000)), "window end is exclusive")
}

func TestAdmit_RejectionDoesNotRefreshEntry(t *testing.T) {
	d := New(DefaultWindow)

	assert.True(t, d.Admit(1, "X", at(0)))
	assert.False(t, d.Admit(1, "X", at(9999)))
	// Measured from the admitted event at 0, not the rejected one.
	assert.True(t, d.Admit(1, "X", at(10000)))
}

func TestAdmit_DifferentKeyAlwaysAdmitted(t *testing.T) {
	d := New(DefaultWindow)

	assert.True(t, d.Admit(1, "X", at(0)))
	assert.True(t, d.Admit(1, "Y", at(5000)))
	// Y overwrote X, so going back to X is a new visit.
	assert.True(t, d.Admit(1, "X", at(6000)))
}

func TestAdmit_TabsAreIndependent(t *testing.T) {
	d := New(DefaultWindow)

	assert.True(t, d.Admit(1, "X", at(0)))
	assert.True(t, d.Admit(2, "X", at(100)))
	assert.False(t, d.Admit(2, "X", at(200)))
	assert.Equal(t, 2, d.Len())
}

func TestRemove(t *testing.T) {
	d := New(DefaultWindow)

	assert.True(t, d.Admit(1, "X", at(0)))
	d.Remove(1)
	assert.Equal(t, 0, d.Len())
	assert.True(t, d.Admit(1, "X", at(1000)))

	d.Remove(42) // unknown tab is a no-op
	assert.Equal(t, 1, d.Len())
}

func TestNew_DefaultsNonPositiveWindow(t *testing.T) {
	d := New(0)
	assert.Equal(t, DefaultWindow, d.window)
}

func TestAdmit_ConcurrentSameTab(t *testing.T) {
	d := New(DefaultWindow)
	now := at(0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.Admit(7, "X", now) {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
}
