package debounce

import (
	"sync"
	"time"
)

// DefaultWindow absorbs the history-state and load-complete events a single
// page visit produces.
const DefaultWindow = 10 * time.Second

type entry struct {
	key      string
	lastSeen time.Time
}

// Debouncer remembers the last admitted key per tab.
type Debouncer struct {
	window time.Duration

	mu   sync.Mutex
	tabs map[int]entry
}

// New returns a Debouncer. A non-positive window falls back to DefaultWindow.
func New(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{window: window, tabs: make(map[int]entry)}
}

// Admit reports whether an event for key on tabID should be processed. It
// rejects only a repeat of the tab's last key seen less than one window ago;
// every admitted event replaces the tab's entry.
func (d *Debouncer) Admit(tabID int, key string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.tabs[tabID]; ok && last.key == key && now.Sub(last.lastSeen) < d.window {
		return false
	}
	d.tabs[tabID] = entry{key: key, lastSeen: now}
	return true
}

// Remove forgets tabID. Called when the tab closes.
func (d *Debouncer) Remove(tabID int) {
	d.mu.Lock()
	delete(d.tabs, tabID)
	d.mu.Unlock()
}

// Len returns the number of tabs currently tracked.
func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tabs)
}
