package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "barstatus/pkg/logx"
)

// Manager loads the settings file and optionally watches it for changes.
type Manager struct {
	path string

	mu  sync.RWMutex
	cfg *Settings

	subsMu sync.Mutex
	subs   []chan *Settings

	log logx.Logger

	// lastHash is the hash of the last committed settings, used to skip
	// reloads where the editor touched the file without changing it.
	lastHash uint64
}

// NewManager returns a manager for path. An empty path means "search the
// default locations" (see SearchPaths).
func NewManager(path string) *Manager {
	return &Manager{path: strings.TrimSpace(path)}
}

func (m *Manager) SetLogger(log logx.Logger) { m.log = log }

// Path is the settings file in use, or "" when running on defaults.
func (m *Manager) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

// SearchPaths lists the locations tried when no explicit path is given.
func SearchPaths() []string {
	var out []string
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		out = append(out, filepath.Join(xdg, "barstatus", "settings.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		p := filepath.Join(home, ".config", "barstatus", "settings.yaml")
		if len(out) == 0 || out[0] != p {
			out = append(out, p)
		}
	}
	return out
}

// Load resolves the settings file, parses it over Defaults, validates and
// commits the result. An explicit path must exist; when searching, a missing
// file yields the defaults.
func (m *Manager) Load() (*Settings, error) {
	if m.path == "" {
		for _, p := range SearchPaths() {
			if _, err := os.Stat(p); err == nil {
				m.mu.Lock()
				m.path = p
				m.mu.Unlock()
				break
			}
		}
	}
	if m.Path() == "" {
		cfg := Defaults()
		m.Commit(cfg)
		return cfg, nil
	}

	cfg, err := m.Parse()
	if err != nil {
		return nil, err
	}
	m.Commit(cfg)
	return cfg, nil
}

// Parse reads and validates the settings file without committing it.
func (m *Manager) Parse() (*Settings, error) {
	path := m.Path()
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("settings file %s not found", path)
		}
		return nil, err
	}
	cfg, err := Decode(path, b)
	if err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses settings bytes over Defaults. The format is picked from the
// file extension (.yaml/.yml, otherwise JSON). Unknown keys and trailing data
// are rejected.
func Decode(path string, data []byte) (*Settings, error) {
	cfg := Defaults()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	jb, _, err := coerceToJSONBytes(path, data)
	if err != nil {
		return nil, err
	}
	// an empty YAML document decodes to null
	if bytes.Equal(bytes.TrimSpace(jb), []byte("null")) {
		return cfg, nil
	}

	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid settings: trailing data")
		}
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (m *Manager) Commit(cfg *Settings) {
	m.mu.Lock()
	m.cfg = cfg
	m.lastHash = hashSettings(cfg)
	m.mu.Unlock()
}

func (m *Manager) Get() *Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func hashSettings(cfg *Settings) uint64 {
	if cfg == nil {
		return 0
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}

// Subscribe returns a channel receiving each newly committed settings value
// found by Watch. Slow subscribers only ever see the latest value.
func (m *Manager) Subscribe(buffer int) chan *Settings {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan *Settings, buffer)
	m.subsMu.Lock()
	m.subs = append(m.subs, ch)
	m.subsMu.Unlock()
	return ch
}

func (m *Manager) Unsubscribe(ch chan *Settings) {
	if ch == nil {
		return
	}
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for i, s := range m.subs {
		if s == ch {
			last := len(m.subs) - 1
			m.subs[i] = m.subs[last]
			m.subs[last] = nil
			m.subs = m.subs[:last]
			close(ch)
			return
		}
	}
}

func (m *Manager) publish(cfg *Settings) {
	// Held while sending so Unsubscribe can't close a channel under us.
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- cfg:
			continue
		default:
		}
		// drop the oldest, then deliver the newest
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- cfg:
		default:
			if !m.log.IsZero() {
				m.log.Debug("settings update dropped (subscriber slow)", logx.Int("queue_cap", cap(ch)))
			}
		}
	}
}

// reload parses the file and publishes it when the content changed.
func (m *Manager) reload() {
	cfg, err := m.Parse()
	if err != nil {
		if !m.log.IsZero() {
			m.log.Warn("settings reload rejected", logx.String("path", m.Path()), logx.Err(err))
		}
		return
	}
	h := hashSettings(cfg)
	m.mu.RLock()
	unchanged := h != 0 && h == m.lastHash
	m.mu.RUnlock()
	if unchanged {
		if !m.log.IsZero() {
			m.log.Debug("settings unchanged; skipping publish", logx.String("path", m.Path()))
		}
		return
	}
	m.Commit(cfg)
	m.publish(cfg)
	if !m.log.IsZero() {
		m.log.Debug("settings published", logx.String("path", m.Path()), logx.String("hash", fmt.Sprintf("%x", h)))
	}
}

// Watch reloads the settings file on change until ctx is done. It watches
// the parent directory so editors that replace the file are picked up, and
// recreates the watcher with backoff if it breaks. A manager running on
// defaults has nothing to watch and returns immediately.
func (m *Manager) Watch(ctx context.Context) error {
	path := m.Path()
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	file := filepath.Base(path)

	const (
		restartBackoffBase = 250 * time.Millisecond
		restartBackoffMax  = 5 * time.Second
		debounceDelay      = 250 * time.Millisecond
	)
	backoff := restartBackoffBase
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	nextWait := func() time.Duration {
		wait := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		if backoff < restartBackoffMax {
			backoff *= 2
			if backoff > restartBackoffMax {
				backoff = restartBackoffMax
			}
		}
		return wait
	}

	// debounce partial writes
	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounceDelay, func() {
			if ctx.Err() == nil {
				m.reload()
			}
		})
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		w, err := fsnotify.NewWatcher()
		if err == nil {
			if err = w.Add(dir); err != nil {
				_ = w.Close()
			}
		}
		if err != nil {
			if !m.log.IsZero() {
				m.log.Warn("settings watch init failed", logx.Err(err), logx.String("dir", dir))
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(nextWait()):
				continue
			}
		}

		backoff = restartBackoffBase
		if !m.log.IsZero() {
			m.log.Debug("settings watcher started", logx.String("dir", dir), logx.String("file", file))
		}

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = w.Close()
				return nil
			case ev, ok := <-w.Events:
				if !ok {
					broken = true
					break
				}
				if filepath.Base(ev.Name) == file && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					debounce()
				}
			case err, ok := <-w.Errors:
				if !ok {
					broken = true
					break
				}
				if errors.Is(err, fsnotify.ErrEventOverflow) {
					debounce()
					continue
				}
				if !m.log.IsZero() {
					m.log.Warn("settings watch error", logx.Err(err), logx.String("dir", dir))
				}
			}
		}

		_ = w.Close()
		wait := nextWait()
		if !m.log.IsZero() {
			m.log.Warn("settings watcher stopped; restarting", logx.String("dir", dir), logx.Duration("backoff", wait))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}
