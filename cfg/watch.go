package cfg

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// Watcher 监听配置文件变化，文件被写入后重新加载并回调
type Watcher struct {
	filePath string
	watcher  *fsnotify.Watcher
	mu       sync.RWMutex
	onChange []func(data []byte)
	once     sync.Once
}

func NewWatcher(path string) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("file path is required")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.WithMessage(err, "filepath.Abs failed")
	}
	return &Watcher{filePath: absPath}, nil
}

// OnChange 注册变更回调，需在 Watch 之前或之后调用皆可
func (w *Watcher) OnChange(fn func(data []byte)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// Watch 开始监听，重复调用只生效一次
func (w *Watcher) Watch() error {
	var initErr error
	w.once.Do(func() {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			initErr = errors.WithMessage(err, "fsnotify.NewWatcher failed")
			return
		}
		w.watcher = watcher

		go w.loop()

		// 监听目录而非文件，兼容编辑器原子替换写入
		if err := watcher.Add(filepath.Dir(w.filePath)); err != nil {
			initErr = errors.WithMessage(err, "watcher.Add failed")
			return
		}
	})
	return initErr
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.filePath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			data, err := os.ReadFile(w.filePath)
			if err != nil {
				continue
			}

			w.mu.RLock()
			handlers := make([]func(data []byte), len(w.onChange))
			copy(handlers, w.onChange)
			w.mu.RUnlock()

			for _, handler := range handlers {
				handler(data)
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) Close() error {
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
