package satchel

import (
	"fmt"
	"maps"
	"slices"
)

// ExpirationKey is the reserved entry of a snapshot that carries the flash
// expiration index.
const ExpirationKey = "__EXPIRATION__"

const namespaceSeparator = "."

// Container is the namespaced value store of a single session. Keys are
// flattened as "<namespace>.<key>". Flash values expire in two places only:
// Replace promotes or evicts on load and All prunes on persist. Between those
// calls a value stays readable no matter how often it is read.
//
// A Container is owned by one request and is not safe for concurrent use.
type Container struct {
	namespace   string
	data        map[string]any
	expirations map[string]Expiration
}

func NewContainer(namespace string) (*Container, error) {
	c := &Container{}
	if err := c.SetNamespace(namespace); err != nil {
		return nil, err
	}
	c.Clear()
	return c, nil
}

func (c *Container) SetNamespace(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty namespace", ErrInvalidConfig)
	}
	c.namespace = name
	return nil
}

func (c *Container) Namespace() string {
	return c.namespace
}

func (c *Container) key(key string) string {
	return c.namespace + namespaceSeparator + key
}

// Has reports whether key is present. Values flagged as expired but not yet
// pruned still count.
func (c *Container) Has(key string) bool {
	_, ok := c.data[c.key(key)]
	return ok
}

// Get returns the value stored under key, or def if there is none. Reading an
// ExpireOnGet value flags it expired; it stays readable until the next All.
func (c *Container) Get(key string, def any) any {
	k := c.key(key)
	value, ok := c.data[k]
	if !ok {
		return def
	}

	if exp, ok := c.expirations[k]; ok && exp.Policy == ExpireOnGet && exp.State != StateExpired {
		exp.State = StateExpired
		c.expirations[k] = exp
	}
	return value
}

func (c *Container) GetString(key string) (string, bool) {
	s, ok := c.Get(key, nil).(string)
	return s, ok
}

// GetInt also accepts the float64 and int64 forms a decoded payload yields.
func (c *Container) GetInt(key string) (int, bool) {
	switch v := c.Get(key, nil).(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func (c *Container) GetBool(key string) (bool, bool) {
	b, ok := c.Get(key, nil).(bool)
	return b, ok
}

// Set stores value under key. With an expiry policy the value becomes a fresh
// flash value; without one any earlier flash record for key is dropped.
func (c *Container) Set(key string, value any, expiry ...Policy) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidArgument)
	}
	if len(expiry) > 1 {
		return fmt.Errorf("%w: more than one expiration policy", ErrInvalidArgument)
	}
	if len(expiry) == 1 && !expiry[0].Valid() {
		return fmt.Errorf("%w: unknown expiration policy %q", ErrInvalidArgument, expiry[0])
	}

	k := c.key(key)
	c.data[k] = value
	if len(expiry) == 1 {
		c.expirations[k] = Expiration{Policy: expiry[0], State: StateNew}
	} else {
		delete(c.expirations, k)
	}
	return nil
}

// Delete removes key and its flash record. Deleting a missing key is a no-op.
func (c *Container) Delete(key string) {
	k := c.key(key)
	delete(c.data, k)
	delete(c.expirations, k)
}

// Keep gives a flash value one more cycle by resetting it to new. It returns
// false when key has no flash record.
func (c *Container) Keep(key string) bool {
	k := c.key(key)
	exp, ok := c.expirations[k]
	if !ok {
		return false
	}
	exp.State = StateNew
	c.expirations[k] = exp
	return true
}

// All prunes every expired value from the store and returns a snapshot that
// includes the expiration index under ExpirationKey.
func (c *Container) All() map[string]any {
	for k, exp := range c.expirations {
		if exp.State == StateExpired {
			delete(c.data, k)
			delete(c.expirations, k)
		}
	}

	snapshot := make(map[string]any, len(c.data)+1)
	maps.Copy(snapshot, c.data)
	snapshot[ExpirationKey] = maps.Clone(c.expirations)
	return snapshot
}

// Replace loads a stored snapshot. New flash values are promoted to loaded;
// ExpireOnRequest values that were already loaded are evicted. Values without
// a flash record are kept as is.
func (c *Container) Replace(payload map[string]any) {
	c.data = make(map[string]any, len(payload))
	c.expirations = decodeExpirations(payload[ExpirationKey])

	for k, v := range payload {
		if k == ExpirationKey {
			continue
		}
		c.data[k] = v
	}

	for k, exp := range c.expirations {
		if _, ok := c.data[k]; !ok {
			delete(c.expirations, k)
			continue
		}

		switch {
		case exp.State == StateNew:
			exp.State = StateLoaded
			c.expirations[k] = exp
		case exp.Policy == ExpireOnRequest && exp.State == StateLoaded:
			delete(c.data, k)
			delete(c.expirations, k)
		}
	}
}

// Expiration returns the flash record of key, if any.
func (c *Container) Expiration(key string) (Expiration, bool) {
	exp, ok := c.expirations[c.key(key)]
	return exp, ok
}

// Count returns the number of stored values across all namespaces.
func (c *Container) Count() int {
	return len(c.data)
}

// Keys returns the flattened keys across all namespaces, sorted.
func (c *Container) Keys() []string {
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (c *Container) Clear() {
	c.data = make(map[string]any)
	c.expirations = make(map[string]Expiration)
}
