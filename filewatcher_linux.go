// Completion: 100% - Platform-specific module complete
//go:build linux
// +build linux

package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

const inotifyMask = unix.IN_MODIFY | unix.IN_CLOSE_WRITE | unix.IN_MOVED_TO | unix.IN_CREATE

// FileWatcher watches the directories of the added files, so a file that an
// editor replaces by renaming is still seen.
type FileWatcher struct {
	fd int
	*watchTable
}

func NewFileWatcher(onChange func(string)) (*FileWatcher, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify_init failed: %w", err)
	}
	return &FileWatcher{fd: fd, watchTable: newWatchTable(onChange)}, nil
}

func (fw *FileWatcher) AddFile(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(absPath)

	wd, err := unix.InotifyAddWatch(fw.fd, dir, inotifyMask)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	fw.add(wd, dir, absPath)
	return nil
}

// Watch delivers change events until ctx is done
func (fw *FileWatcher) Watch(ctx context.Context) error {
	buf := make([]byte, (unix.SizeofInotifyEvent+256)*8)

	for ctx.Err() == nil {
		n, err := unix.Read(fw.fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return fmt.Errorf("reading inotify events: %w", err)
		}

		for offset := 0; offset+unix.SizeofInotifyEvent <= n; {
			event := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
			nameStart := offset + unix.SizeofInotifyEvent
			offset = nameStart + int(event.Len)
			if event.Mask&inotifyMask == 0 || event.Len == 0 || offset > n {
				continue
			}
			name := string(bytes.TrimRight(buf[nameStart:offset], "\x00"))
			fw.changed(int(event.Wd), name, event.Mask)
		}
	}
	return nil
}

func (fw *FileWatcher) Close() error {
	fw.debounce.stop()
	return unix.Close(fw.fd)
}
