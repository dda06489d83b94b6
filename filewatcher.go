package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

// debounceDelay is how long a file must stay quiet before onChange runs
const debounceDelay = 500 * time.Millisecond

// debouncer coalesces bursts of change events per path
type debouncer struct {
	mu       sync.Mutex
	timers   map[string]*time.Timer
	delay    time.Duration
	onChange func(string)
}

func newDebouncer(onChange func(string)) *debouncer {
	return &debouncer{
		timers:   make(map[string]*time.Timer),
		delay:    debounceDelay,
		onChange: onChange,
	}
}

func (d *debouncer) trigger(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, exists := d.timers[path]; exists {
		timer.Stop()
	}
	d.timers[path] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		delete(d.timers, path)
		d.mu.Unlock()
		d.onChange(path)
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for path, timer := range d.timers {
		timer.Stop()
		delete(d.timers, path)
	}
}

// watchTable maps kernel watch handles to the job files behind them. On Linux
// a handle is an inotify watch on a directory and events carry the file name;
// on Darwin a handle is an open file descriptor and events carry no name.
type watchTable struct {
	mu       sync.Mutex
	handles  map[int]string
	files    map[string]bool
	debounce *debouncer
}

func newWatchTable(onChange func(string)) *watchTable {
	return &watchTable{
		handles:  make(map[int]string),
		files:    make(map[string]bool),
		debounce: newDebouncer(onChange),
	}
}

func (t *watchTable) add(handle int, target, file string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handles[handle] = target
	t.files[file] = true
}

// drop forgets a handle and returns what it watched
func (t *watchTable) drop(handle int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	target := t.handles[handle]
	delete(t.handles, handle)
	return target
}

func (t *watchTable) each(fn func(handle int)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for h := range t.handles {
		fn(h)
	}
}

// changed triggers the debouncer when the event names a watched file
func (t *watchTable) changed(handle int, name string, flags uint32) (string, bool) {
	t.mu.Lock()
	path := t.handles[handle]
	if name != "" && path != "" {
		path = filepath.Join(path, name)
	}
	watched := t.files[path]
	t.mu.Unlock()

	if watched {
		slog.Debug("file event", "path", path, "flags", fmt.Sprintf("%#x", flags))
		t.debounce.trigger(path)
	}
	return path, watched
}
