// Package secrets resolves credentials from the environment or from
// files named by *_FILE variables, and reloads them when those files
// change.
package secrets

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"os"
	"strings"
	"sync"

	"dcollector/logmanager"
	"dcollector/watcher"
)

const (
	envDatabaseURL  = "DATABASE_URL"
	envNUTPassword  = "NUT_PASSWORD"
	envHandshakeKey = "DCOLLECTOR_HANDSHAKE_KEY"
)

type Manager struct {
	mu           sync.RWMutex
	databaseURL  string
	nutPassword  string
	handshakeKey string
	files        []string

	logger *logmanager.Logger

	watchMu sync.Mutex
	watched map[string]bool
}

func NewManager(logger *logmanager.Logger) *Manager {
	return &Manager{logger: logger, watched: make(map[string]bool)}
}

// Reload re-reads every secret. On error the previous values are kept.
func (m *Manager) Reload() error {
	var files []string

	databaseURL, file, err := readSecret(envDatabaseURL)
	if err != nil {
		return fmt.Errorf("reload database url: %w", err)
	}
	files = append(files, file)

	nutPassword, file, err := readSecret(envNUTPassword)
	if err != nil {
		return fmt.Errorf("reload nut password: %w", err)
	}
	files = append(files, file)

	handshake, file, err := readSecret(envHandshakeKey)
	if err != nil {
		return fmt.Errorf("reload handshake key: %w", err)
	}
	files = append(files, file)

	m.mu.Lock()
	m.databaseURL = databaseURL
	m.nutPassword = nutPassword
	m.handshakeKey = handshake
	m.files = files
	m.mu.Unlock()

	return nil
}

// DatabaseURL returns the configured connection string, or fallback
// when none is set in the environment.
func (m *Manager) DatabaseURL(fallback string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.databaseURL == "" {
		return fallback
	}
	return m.databaseURL
}

func (m *Manager) NUTPassword() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nutPassword
}

func (m *Manager) HandshakeKey() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handshakeKey
}

// ValidateHandshake compares candidate with the handshake key in
// constant time. It is false when no key is configured.
func (m *Manager) ValidateHandshake(candidate string) bool {
	key := m.HandshakeKey()
	if key == "" {
		return false
	}
	want := sha256.Sum256([]byte(key))
	got := sha256.Sum256([]byte(candidate))
	return subtle.ConstantTimeCompare(want[:], got[:]) == 1
}

// WatchFiles reloads all secrets whenever one of the secret files
// changes, until ctx is done. Files already watched are skipped.
func (m *Manager) WatchFiles(ctx context.Context) {
	for _, file := range m.secretFiles() {
		if file == "" {
			continue
		}

		m.watchMu.Lock()
		if m.watched[file] {
			m.watchMu.Unlock()
			continue
		}
		m.watched[file] = true
		m.watchMu.Unlock()

		path := file
		err := watcher.Watch(ctx, path, func() {
			if err := m.Reload(); err != nil {
				m.logger.Errorf("failed to reload secrets after %s change: %v", path, err)
				return
			}
			m.logger.Infof("reloaded secrets after %s change", path)
		}, m.logger)
		if err != nil {
			m.logger.Warnf("%v", err)
			m.watchMu.Lock()
			delete(m.watched, path)
			m.watchMu.Unlock()
		}
	}
}

func (m *Manager) secretFiles() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.files...)
}

// readSecret prefers the file named by envKey_FILE over envKey itself.
func readSecret(envKey string) (value, file string, err error) {
	if file := strings.TrimSpace(os.Getenv(envKey + "_FILE")); file != "" {
		value, err := readFileSecret(file)
		return value, file, err
	}
	return strings.TrimSpace(os.Getenv(envKey)), "", nil
}

func readFileSecret(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
