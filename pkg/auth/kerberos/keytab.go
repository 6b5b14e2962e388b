package kerberos

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jcmturner/gokrb5/v8/keytab"

	"github.com/marmos91/httpgate/internal/logger"
)

// keytabPollInterval is how often the keytab's mtime is checked.
const keytabPollInterval = 60 * time.Second

// KeytabManager polls a keytab file and calls reload when its modification
// time changes. Polling is used because key management tools usually
// replace keytabs by rename.
type KeytabManager struct {
	path     string
	interval time.Duration
	reload   func() error

	mu      sync.Mutex
	lastMod time.Time
	stopCh  chan struct{}
	stopped sync.Once
}

// NewKeytabManager returns a manager that is not yet started.
func NewKeytabManager(path string, reload func() error) *KeytabManager {
	return &KeytabManager{
		path:     path,
		interval: keytabPollInterval,
		reload:   reload,
		stopCh:   make(chan struct{}),
	}
}

// Start records the current mtime and begins polling.
func (km *KeytabManager) Start() error {
	km.mu.Lock()
	defer km.mu.Unlock()

	info, err := os.Stat(km.path)
	if err != nil {
		return fmt.Errorf("keytab file not accessible: %w", err)
	}
	km.lastMod = info.ModTime()

	go km.pollLoop()

	logger.Info("Keytab hot-reload started", logger.File(km.path), "poll_interval", km.interval.String())
	return nil
}

// Stop ends polling. Safe to call more than once or before Start.
func (km *KeytabManager) Stop() {
	km.stopped.Do(func() { close(km.stopCh) })
}

func (km *KeytabManager) pollLoop() {
	ticker := time.NewTicker(km.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			km.checkAndReload()
		case <-km.stopCh:
			return
		}
	}
}

// checkAndReload reloads when the mtime moved. A failed reload leaves
// lastMod untouched so the next tick retries.
func (km *KeytabManager) checkAndReload() bool {
	km.mu.Lock()
	defer km.mu.Unlock()

	info, err := os.Stat(km.path)
	if err != nil {
		logger.Error("Keytab file stat failed", logger.File(km.path), logger.Err(err))
		return false
	}

	if info.ModTime().Equal(km.lastMod) {
		return false
	}

	if err := km.reload(); err != nil {
		logger.Error("Keytab reload failed", logger.File(km.path), logger.Err(err))
		return false
	}

	km.lastMod = info.ModTime()
	logger.Info("Keytab reloaded", logger.File(km.path))
	return true
}

func loadKeytab(path string) (*keytab.Keytab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keytab file: %w", err)
	}

	kt := keytab.New()
	if err := kt.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("parse keytab: %w", err)
	}
	return kt, nil
}
