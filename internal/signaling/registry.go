package signaling

import (
	"strings"
	"time"

	"github.com/campusdesk/reception-service/internal/domain"
)

// Identity is the in-memory record of one staff member. Identities are created
// by directory sync or login and are never removed while the process runs.
type Identity struct {
	ID         string
	Name       string
	Department string
	Aliases    []string
	Status     domain.PresenceStatus
	LastSeen   time.Time

	conn    *Conn
	inClass bool
}

// Online reports whether the identity currently has a live connection.
func (i *Identity) Online() bool {
	return i.conn != nil
}

func (i *Identity) snapshot() domain.PresenceSnapshot {
	return domain.PresenceSnapshot{
		StaffID:    i.ID,
		Name:       i.Name,
		Department: i.Department,
		Status:     i.Status,
		LastSeen:   i.LastSeen,
	}
}

// PresenceRegistry keeps identities in a primary store keyed by canonical id
// plus a secondary alias index. It is not safe for concurrent use; the
// switchboard serializes access.
type PresenceRegistry struct {
	identities map[string]*Identity
	aliases    map[string]string
	byConn     map[string]string

	now      func() time.Time
	busy     func(staffID string) bool
	onChange func(*Identity)
}

func newPresenceRegistry(now func() time.Time) *PresenceRegistry {
	return &PresenceRegistry{
		identities: make(map[string]*Identity),
		aliases:    make(map[string]string),
		byConn:     make(map[string]string),
		now:        now,
		busy:       func(string) bool { return false },
		onChange:   func(*Identity) {},
	}
}

// Upsert adds or refreshes an identity from the directory, rebuilding its alias
// entries so stale aliases never linger. An existing binding is preserved.
func (r *PresenceRegistry) Upsert(member domain.StaffMember) *Identity {
	ident, ok := r.identities[member.ID]
	if !ok {
		ident = &Identity{ID: member.ID, Status: domain.PresenceOffline}
		r.identities[member.ID] = ident
	}
	var released []string
	for _, alias := range ident.Aliases {
		key := strings.ToLower(alias)
		if r.aliases[key] == ident.ID {
			delete(r.aliases, key)
			released = append(released, key)
		}
	}
	ident.Name = member.Name
	ident.Department = member.Department
	ident.Aliases = member.Aliases()
	for _, alias := range ident.Aliases {
		r.claimAlias(strings.ToLower(alias), ident.ID)
	}
	for _, key := range released {
		if _, ok := r.aliases[key]; !ok {
			r.reclaimAlias(key)
		}
	}
	return ident
}

// claimAlias points key at id unless a lower id already holds it.
func (r *PresenceRegistry) claimAlias(key, id string) {
	if cur, ok := r.aliases[key]; ok && cur < id {
		return
	}
	r.aliases[key] = id
}

// reclaimAlias hands a released alias to the lowest id still carrying it.
func (r *PresenceRegistry) reclaimAlias(key string) {
	for _, ident := range r.identities {
		for _, alias := range ident.Aliases {
			if strings.ToLower(alias) == key {
				r.claimAlias(key, ident.ID)
			}
		}
	}
}

// Register binds the identity to conn, replacing any prior binding, and returns
// the connection that was displaced.
func (r *PresenceRegistry) Register(staffID string, conn *Conn) *Conn {
	ident, ok := r.identities[staffID]
	if !ok {
		return nil
	}
	prev := ident.conn
	if prev != nil && prev != conn {
		delete(r.byConn, prev.ID)
		prev.StaffID = ""
	}
	ident.conn = conn
	conn.StaffID = staffID
	r.byConn[conn.ID] = staffID
	ident.LastSeen = r.now()
	r.refresh(ident, true)
	if prev == conn {
		return nil
	}
	return prev
}

// Unregister drops the binding owned by conn, if any, records lastSeen and
// marks the identity offline.
func (r *PresenceRegistry) Unregister(conn *Conn) *Identity {
	staffID, ok := r.byConn[conn.ID]
	if !ok {
		return nil
	}
	delete(r.byConn, conn.ID)
	ident := r.identities[staffID]
	if ident == nil || ident.conn != conn {
		return nil
	}
	ident.conn = nil
	ident.LastSeen = r.now()
	r.refresh(ident, true)
	return ident
}

// Lookup resolves an identifier through the ranked resolver ladder.
func (r *PresenceRegistry) Lookup(identifier string) *Identity {
	id, ok := Resolve(identifier, r)
	if !ok {
		return nil
	}
	return r.identities[id]
}

// LookupExact resolves without the display name substring rung.
func (r *PresenceRegistry) LookupExact(identifier string) *Identity {
	id, ok := ResolveExact(identifier, r)
	if !ok {
		return nil
	}
	return r.identities[id]
}

// LookupFuzzy resolves by display name substring only.
func (r *PresenceRegistry) LookupFuzzy(identifier string) *Identity {
	id, ok := ResolveFuzzy(identifier, r)
	if !ok {
		return nil
	}
	return r.identities[id]
}

// Get returns the identity with the canonical id.
func (r *PresenceRegistry) Get(staffID string) *Identity {
	return r.identities[staffID]
}

// Owner returns the identity bound to conn.
func (r *PresenceRegistry) Owner(conn *Conn) *Identity {
	if conn == nil {
		return nil
	}
	staffID, ok := r.byConn[conn.ID]
	if !ok {
		return nil
	}
	return r.identities[staffID]
}

// Connection returns the live connection for the identity.
func (r *PresenceRegistry) Connection(staffID string) *Conn {
	if ident := r.identities[staffID]; ident != nil {
		return ident.conn
	}
	return nil
}

// Status derives presence: offline when disconnected, then busy, then in_class,
// otherwise online.
func (r *PresenceRegistry) Status(staffID string) domain.PresenceStatus {
	ident := r.identities[staffID]
	if ident == nil || ident.conn == nil {
		return domain.PresenceOffline
	}
	if r.busy(staffID) {
		return domain.PresenceBusy
	}
	if ident.inClass {
		return domain.PresenceInClass
	}
	return domain.PresenceOnline
}

// Refresh recomputes the stored status and notifies when it changed.
func (r *PresenceRegistry) Refresh(staffID string) {
	if ident := r.identities[staffID]; ident != nil {
		r.refresh(ident, false)
	}
}

// SetInClass records the latest timetable read for the identity.
func (r *PresenceRegistry) SetInClass(staffID string, inClass bool) {
	ident := r.identities[staffID]
	if ident == nil || ident.inClass == inClass {
		return
	}
	ident.inClass = inClass
	r.refresh(ident, false)
}

// OnlineIDs lists identities with a live connection.
func (r *PresenceRegistry) OnlineIDs() []string {
	ids := make([]string, 0, len(r.byConn))
	for _, id := range r.byConn {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot returns the presence of every known identity.
func (r *PresenceRegistry) Snapshot() []domain.PresenceSnapshot {
	out := make([]domain.PresenceSnapshot, 0, len(r.identities))
	for _, ident := range r.identities {
		out = append(out, ident.snapshot())
	}
	return out
}

func (r *PresenceRegistry) refresh(ident *Identity, force bool) {
	status := r.Status(ident.ID)
	if status == ident.Status && !force {
		return
	}
	ident.Status = status
	r.onChange(ident)
}

// HasID implements ResolveIndex.
func (r *PresenceRegistry) HasID(id string) bool {
	_, ok := r.identities[id]
	return ok
}

// IDForAlias implements ResolveIndex.
func (r *PresenceRegistry) IDForAlias(alias string) (string, bool) {
	id, ok := r.aliases[alias]
	return id, ok
}

// Names implements ResolveIndex.
func (r *PresenceRegistry) Names() []NameEntry {
	names := make([]NameEntry, 0, len(r.identities))
	for _, ident := range r.identities {
		names = append(names, NameEntry{ID: ident.ID, Name: ident.Name})
	}
	return names
}
