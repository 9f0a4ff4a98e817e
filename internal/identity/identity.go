// Package identity bridges locally-minted entity ids and the ids the
// remote service confirms them under.
package identity

// Map is a one-directional local→remote id mapping. The persisted copy
// read from the event log is a point-in-time read: within one flush the
// engine must consult its Overlay first, because mappings created
// earlier in the same batch are not visible in the persisted copy.
type Map struct {
	entries map[string]string
}

// NewMap wraps the given entries. The map is taken over, not copied.
func NewMap(entries map[string]string) *Map {
	if entries == nil {
		entries = make(map[string]string)
	}
	return &Map{entries: entries}
}

// Has reports whether a mapping exists for localID.
func (m *Map) Has(localID string) bool {
	_, ok := m.entries[localID]
	return ok
}

// Get returns the remote id for localID, or "" if none is known.
func (m *Map) Get(localID string) string {
	return m.entries[localID]
}

// Set records a mapping. Once set, a mapping never changes target in
// practice; re-setting to the same value is harmless.
func (m *Map) Set(localID, remoteID string) {
	m.entries[localID] = remoteID
}

// Resolve returns the remote id for localID, consulting overlay layers
// in order before m itself, falling back to localID when no layer knows
// it. The fallback covers entities that are already remote-keyed, such
// as date-identified daily logs and hydrated todos.
func (m *Map) Resolve(localID string, overlays ...*Map) string {
	for _, o := range overlays {
		if o != nil && o.Has(localID) {
			return o.Get(localID)
		}
	}
	if m.Has(localID) {
		return m.Get(localID)
	}
	return localID
}
