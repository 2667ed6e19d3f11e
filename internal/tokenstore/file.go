package tokenstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileOption configures a File store.
type FileOption func(*File)

// WithLogger sets the logger. Default is a nop logger.
func WithLogger(log *zap.Logger) FileOption {
	return func(f *File) { f.log = log }
}

// File persists the token at a fixed path so every process of the client
// shares one slot. An fsnotify watcher on the parent directory turns writes
// by other processes into subscriber Events. The store's own writes also
// surface as Events; consumers revalidate idempotently, so the duplicate
// trigger is harmless.
type File struct {
	path string
	log  *zap.Logger

	mu   sync.Mutex
	subs map[chan<- Event]struct{}

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFile opens (creating the parent directory if needed) the store at
// path and starts watching it. Close releases the watcher.
func NewFile(path string, opts ...FileOption) (*File, error) {
	f := &File{
		path: path,
		log:  zap.NewNop(),
		subs: make(map[chan<- Event]struct{}),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("token dir: %w", err)
	}

	// Watch the directory, not the file: watching the file itself breaks
	// as soon as another process replaces it via rename.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("token watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	f.watcher = watcher

	go f.loop()
	return f, nil
}

func (f *File) Get() string {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			f.log.Warn("read token file", zap.Error(err))
		}
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (f *File) Set(token string) error {
	if err := os.WriteFile(f.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

func (f *File) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

func (f *File) Subscribe(ch chan<- Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[ch] = struct{}{}
}

func (f *File) Unsubscribe(ch chan<- Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, ch)
}

// Close stops the watcher. Get/Set/Clear still work afterwards, only
// change notifications stop.
func (f *File) Close() error {
	err := f.watcher.Close()
	<-f.done
	return err
}

func (f *File) loop() {
	defer close(f.done)
	for {
		select {
		case ev, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != filepath.Base(f.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			f.mu.Lock()
			subs := f.snapshotSubs()
			f.mu.Unlock()
			notify(subs)
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.log.Warn("token watcher error", zap.Error(err))
		}
	}
}

func (f *File) snapshotSubs() []chan<- Event {
	out := make([]chan<- Event, 0, len(f.subs))
	for ch := range f.subs {
		out = append(out, ch)
	}
	return out
}
