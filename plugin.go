package fins

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNilPlugin       = errors.New("plugin is nil")
	ErrUnnamedPlugin   = errors.New("plugin name cannot be empty")
	ErrDuplicatePlugin = errors.New("plugin already registered")
)

// Plugin bundles handlers and interceptors for a client. The built-in
// LivenessWatchdog is one.
type Plugin interface {
	// Name must be unique per client.
	Name() string
	// Initialize runs once, from Use. It usually calls On and
	// SetInterceptor.
	Initialize(*Client) error
}

// pluginManager keeps plugins in registration order.
type pluginManager struct {
	mu      sync.Mutex
	order   []string
	plugins map[string]Plugin
}

func (pm *pluginManager) use(c *Client, plugins ...Plugin) error {
	for _, p := range plugins {
		if p == nil {
			return ErrNilPlugin
		}
		name := p.Name()
		if name == "" {
			return ErrUnnamedPlugin
		}

		// a nil entry reserves the name while Initialize runs
		pm.mu.Lock()
		if pm.plugins == nil {
			pm.plugins = make(map[string]Plugin)
		}
		if _, exists := pm.plugins[name]; exists {
			pm.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrDuplicatePlugin, name)
		}
		pm.plugins[name] = nil
		pm.mu.Unlock()

		if err := p.Initialize(c); err != nil {
			pm.mu.Lock()
			delete(pm.plugins, name)
			pm.mu.Unlock()
			return fmt.Errorf("initialize plugin %s: %w", name, err)
		}

		pm.mu.Lock()
		pm.plugins[name] = p
		pm.order = append(pm.order, name)
		pm.mu.Unlock()
	}
	return nil
}

func (pm *pluginManager) get(name string) (Plugin, bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	p := pm.plugins[name]
	return p, p != nil
}

func (pm *pluginManager) names() []string {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return append([]string(nil), pm.order...)
}
