package watchlist

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"stockpilot/internal/logger"
)

// fileConfig 映射监控列表文件。
type fileConfig struct {
	Symbols []string `yaml:"symbols"`
}

// ChangeListener 在监控列表重载时触发。
type ChangeListener func(symbols []string)

// Registry 管理监控的股票列表,支持文件热更新。
type Registry struct {
	path string

	mu        sync.RWMutex
	symbols   []string
	listeners []ChangeListener

	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
}

// NewStatic builds a registry over a fixed list, no file behind it.
func NewStatic(symbols []string) *Registry {
	return &Registry{symbols: normalize(symbols)}
}

// NewRegistry reads the watch-list file and watches it for updates.
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("watchlist registry requires path")
	}
	r := &Registry{path: path, done: make(chan struct{})}
	if err := r.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watchlist watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	r.watcher = watcher
	go r.watchLoop()
	return r, nil
}

// Symbols returns the current list, sorted and deduplicated.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.symbols))
	copy(out, r.symbols)
	return out
}

// OnChange 注册重载回调。
func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) Close() {
	r.once.Do(func() {
		if r.done != nil {
			close(r.done)
		}
		if r.watcher != nil {
			r.watcher.Close()
		}
	})
}

func (r *Registry) watchLoop() {
	for {
		select {
		case <-r.done:
			return
		case evt, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
				continue
			}
			if err := r.reload(); err != nil {
				logger.Errorf("watchlist reload failed: %v", err)
				continue
			}
			logger.Infof("watchlist reloaded: %s", strings.Join(r.Symbols(), ", "))
			r.notifyListeners()
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("watchlist watcher error: %v", err)
		}
	}
}

func (r *Registry) reload() error {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return err
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("parse %s: %w", r.path, err)
	}
	symbols := normalize(cfg.Symbols)
	if len(symbols) == 0 {
		return fmt.Errorf("watchlist %s contains no symbols", r.path)
	}
	r.mu.Lock()
	r.symbols = symbols
	r.mu.Unlock()
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	listeners := make([]ChangeListener, len(r.listeners))
	copy(listeners, r.listeners)
	symbols := make([]string, len(r.symbols))
	copy(symbols, r.symbols)
	r.mu.RUnlock()
	for _, fn := range listeners {
		fn(symbols)
	}
}

func normalize(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		sym := strings.ToUpper(strings.TrimSpace(s))
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
