package onion

// Key identifies a cached layer payload: the layer plus the focus id the
// payload was fetched for. The zero FocusID means the unfocused,
// project-wide view of the layer.
type Key struct {
	Layer   Layer
	FocusID string
}

func (k Key) String() string {
	if k.FocusID == "" {
		return k.Layer.String()
	}
	return k.Layer.String() + ":" + k.FocusID
}

// Entry is one cached slot. Data, Loading and Err are tracked
// independently: a failed refresh sets Err without discarding the
// previously fetched Data, and Loading never hides existing Data.
type Entry struct {
	Data    Payload
	Loading bool
	Err     string
}

// LayerCache memoizes layer payloads by Key. It is a plain map owned by
// the Navigator; it is not safe for concurrent use.
type LayerCache struct {
	entries map[Key]Entry
}

// NewLayerCache creates an empty cache.
func NewLayerCache() *LayerCache {
	return &LayerCache{entries: make(map[Key]Entry)}
}

// Get returns the entry for key and whether one exists.
func (c *LayerCache) Get(key Key) (Entry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

// Set stores an entry wholesale.
func (c *LayerCache) Set(key Key, e Entry) {
	c.entries[key] = e
}

// Invalidate removes the entry for key.
func (c *LayerCache) Invalidate(key Key) {
	delete(c.entries, key)
}

// Len returns the number of cached entries.
func (c *LayerCache) Len() int { return len(c.entries) }

// markLoading flags key as loading, keeping any previous data visible.
func (c *LayerCache) markLoading(key Key) {
	e := c.entries[key]
	e.Loading = true
	e.Err = ""
	c.entries[key] = e
}

// resolve stores a successful payload for key.
func (c *LayerCache) resolve(key Key, data Payload) {
	c.entries[key] = Entry{Data: data}
}

// fail records a fetch failure for key. Previously cached data survives;
// only the error flag is set.
func (c *LayerCache) fail(key Key, msg string) {
	e := c.entries[key]
	e.Loading = false
	e.Err = msg
	c.entries[key] = e
}

// clearError drops the error flag for key, leaving data untouched.
func (c *LayerCache) clearError(key Key) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	e.Err = ""
	c.entries[key] = e
}
