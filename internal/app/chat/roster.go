/*
Package chat contains the realtime core: the connection registry, the online
roster, and the broadcast fan-out loop.

This file defines the roster of online display names. Two implementations
exist: Roster reproduces the historical behavior where any disconnect of a
name removes it, even while other connections for the same name remain live;
CountedRoster reference-counts connections per name and only removes a name
when its last connection goes away. Snapshot order is unspecified in both.
*/
package chat

import "sync"

// Presence tracks which display names are currently online.
type Presence interface {
	// Add records a connection for name and reports whether the name was
	// offline before this call. Only that transition should produce a
	// "user joined" notification.
	Add(name string) (wasOffline bool)

	// Remove records a disconnect for name.
	Remove(name string)

	// Snapshot returns every currently-online name. Callers must treat the
	// result as an unordered set.
	Snapshot() []string
}

// Roster is a plain set of online names.
//
// Remove deletes the name unconditionally: when two connections share a name,
// either one disconnecting takes the name offline while the other is still
// connected. That gap is kept on purpose for compatibility with existing
// clients; CountedRoster is the strict alternative.
type Roster struct {
	mu    sync.Mutex
	names map[string]struct{}
}

// NewRoster returns an empty Roster.
func NewRoster() *Roster {
	return &Roster{names: make(map[string]struct{})}
}

// Add records name as online and reports whether it was offline before.
func (r *Roster) Add(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, online := r.names[name]
	r.names[name] = struct{}{}
	return !online
}

// Remove deletes name from the set, regardless of how many connections
// claimed it.
func (r *Roster) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.names, name)
}

// Snapshot returns all online names in unspecified order.
func (r *Roster) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}
	return names
}

// CountedRoster tracks a connection count per name, so a name stays online
// until its last connection disconnects.
type CountedRoster struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewCountedRoster returns an empty CountedRoster.
func NewCountedRoster() *CountedRoster {
	return &CountedRoster{counts: make(map[string]int)}
}

// Add increments the connection count for name and reports whether it was
// offline before.
func (r *CountedRoster) Add(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counts[name]++
	return r.counts[name] == 1
}

// Remove decrements the connection count for name, deleting it at zero.
// A Remove without a matching Add is a no-op.
func (r *CountedRoster) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count, ok := r.counts[name]
	if !ok {
		return
	}

	if count <= 1 {
		delete(r.counts, name)
		return
	}
	r.counts[name] = count - 1
}

// Snapshot returns all online names in unspecified order.
func (r *CountedRoster) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.counts))
	for name := range r.counts {
		names = append(names, name)
	}
	return names
}
