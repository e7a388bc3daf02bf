package cache

// DisplayNameCache caches resolved record primary names for one session.
// It is deliberately not persisted: primary names go stale as records are
// renamed, and unbounded cross-session growth is undesirable.
type DisplayNameCache struct {
	names map[string]string
}

// NewDisplayNameCache creates an empty session-scoped cache.
func NewDisplayNameCache() *DisplayNameCache {
	return &DisplayNameCache{names: make(map[string]string)}
}

// GetDisplayName returns the cached primary name for a record id.
func (c *DisplayNameCache) GetDisplayName(id string) (string, bool) {
	name, ok := c.names[id]
	return name, ok
}

// SetDisplayName caches the resolved primary name for a record id.
func (c *DisplayNameCache) SetDisplayName(id, name string) {
	c.names[id] = name
}
