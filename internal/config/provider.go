package config

import (
	"log/slog"
	"sync/atomic"
)

// Provider supplies the current configuration snapshot.
// Implementations must be safe for concurrent use.
type Provider interface {
	Current() Config
}

// Live is a Provider whose snapshot can be swapped atomically.
type Live struct {
	cur atomic.Pointer[Config]
}

// NewLive returns a provider serving cfg.
func NewLive(cfg Config) *Live {
	l := &Live{}
	l.Replace(cfg)
	return l
}

// Current returns the active snapshot.
func (l *Live) Current() Config {
	return *l.cur.Load()
}

// Replace publishes a new snapshot.
func (l *Live) Replace(cfg Config) {
	c := normalize(cfg)
	l.cur.Store(&c)
}

// FileProvider serves the configuration loaded from a YAML file and can
// reload it in place.
type FileProvider struct {
	*Live
	path string
}

// NewFileProvider loads path and returns a provider for it.
func NewFileProvider(path string) (*FileProvider, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &FileProvider{Live: NewLive(cfg), path: path}, nil
}

// Path returns the backing file path.
func (p *FileProvider) Path() string {
	return p.path
}

// Reload re-reads the file. On a read error the previous snapshot stays active.
func (p *FileProvider) Reload() error {
	cfg, err := Load(p.path)
	if err != nil {
		slog.Error("config reload failed, keeping previous configuration", "path", p.path, "error", err)
		return err
	}
	p.Replace(cfg)
	slog.Info("config reloaded", "path", p.path)
	return nil
}
