package signaling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdesk/reception-service/internal/domain"
)

func newTestRegistry(clock *fakeClock) (*PresenceRegistry, *[]domain.PresenceStatus) {
	reg := newPresenceRegistry(clock.Now)
	var changes []domain.PresenceStatus
	reg.onChange = func(ident *Identity) { changes = append(changes, ident.Status) }
	return reg, &changes
}

func TestRegistryRegisterAndUnregister(t *testing.T) {
	clock := newFakeClock()
	reg, changes := newTestRegistry(clock)
	reg.Upsert(staffACS)

	conn := NewConn("c1", "", 4)
	assert.Nil(t, reg.Register(staffACS.ID, conn))
	assert.Equal(t, staffACS.ID, conn.StaffID)
	assert.Equal(t, domain.PresenceOnline, reg.Status(staffACS.ID))
	assert.Same(t, conn, reg.Connection(staffACS.ID))
	assert.Equal(t, []string{staffACS.ID}, reg.OnlineIDs())

	clock.Advance(time.Minute)
	ident := reg.Unregister(conn)
	require.NotNil(t, ident)
	assert.Equal(t, domain.PresenceOffline, ident.Status)
	assert.Equal(t, clock.Now(), ident.LastSeen)
	assert.Nil(t, reg.Connection(staffACS.ID))
	assert.Nil(t, reg.Owner(conn))
	assert.Equal(t, []domain.PresenceStatus{domain.PresenceOnline, domain.PresenceOffline}, *changes)

	assert.Nil(t, reg.Unregister(conn), "second unregister is a no-op")
}

func TestRegistryLastLoginWins(t *testing.T) {
	reg, _ := newTestRegistry(newFakeClock())
	reg.Upsert(staffACS)

	first := NewConn("c1", "", 4)
	second := NewConn("c2", "", 4)
	reg.Register(staffACS.ID, first)

	prev := reg.Register(staffACS.ID, second)
	assert.Same(t, first, prev)
	assert.Empty(t, first.StaffID)
	assert.Same(t, second, reg.Connection(staffACS.ID))

	assert.Nil(t, reg.Unregister(first), "stale connection must not clear the new binding")
	assert.Equal(t, domain.PresenceOnline, reg.Status(staffACS.ID))
}

func TestRegistryLookupThroughAliases(t *testing.T) {
	reg, _ := newTestRegistry(newFakeClock())
	reg.Upsert(staffACS)
	reg.Upsert(staffBJ)

	for _, identifier := range []string{"staff-acs", "acs", "ALICE.SMITH@uni.example", "alice c smith", "smith"} {
		ident := reg.Lookup(identifier)
		require.NotNil(t, ident, identifier)
		assert.Equal(t, staffACS.ID, ident.ID, identifier)
	}
	assert.Nil(t, reg.Lookup("nobody"))
}

func TestRegistryUpsertDropsStaleAliases(t *testing.T) {
	reg, _ := newTestRegistry(newFakeClock())
	reg.Upsert(staffACS)

	renamed := staffACS
	renamed.ShortCode = "ASM"
	renamed.Email = "asmith@uni.example"
	reg.Upsert(renamed)

	_, ok := reg.IDForAlias("acs")
	assert.False(t, ok)
	id, ok := reg.IDForAlias("asm")
	assert.True(t, ok)
	assert.Equal(t, staffACS.ID, id)
}

func TestRegistrySharedAliasGoesToLowestID(t *testing.T) {
	reg, _ := newTestRegistry(newFakeClock())
	second := domain.StaffMember{ID: "staff-b", Name: "Chris Lee", Active: true}
	first := domain.StaffMember{ID: "staff-a", Name: "Chris Lee", Active: true}
	reg.Upsert(second)
	reg.Upsert(first)

	id, ok := reg.IDForAlias("chris lee")
	require.True(t, ok)
	assert.Equal(t, "staff-a", id)

	renamed := first
	renamed.Name = "Christine Lee"
	reg.Upsert(renamed)

	id, ok = reg.IDForAlias("chris lee")
	require.True(t, ok)
	assert.Equal(t, "staff-b", id)
}

func TestRegistryStatusPrecedence(t *testing.T) {
	reg, changes := newTestRegistry(newFakeClock())
	busy := false
	reg.busy = func(string) bool { return busy }
	reg.Upsert(staffACS)

	reg.SetInClass(staffACS.ID, true)
	assert.Equal(t, domain.PresenceOffline, reg.Status(staffACS.ID), "offline beats in_class")
	assert.Empty(t, *changes)

	conn := NewConn("c1", "", 4)
	reg.Register(staffACS.ID, conn)
	assert.Equal(t, domain.PresenceInClass, reg.Status(staffACS.ID))

	busy = true
	reg.Refresh(staffACS.ID)
	assert.Equal(t, domain.PresenceBusy, reg.Get(staffACS.ID).Status, "busy beats in_class")

	busy = false
	reg.SetInClass(staffACS.ID, false)
	reg.Refresh(staffACS.ID)
	assert.Equal(t, domain.PresenceOnline, reg.Get(staffACS.ID).Status)

	reg.Refresh(staffACS.ID)
	assert.Equal(t, []domain.PresenceStatus{
		domain.PresenceInClass,
		domain.PresenceBusy,
		domain.PresenceOnline,
	}, *changes, "unchanged status is not rebroadcast")
}

func TestRegistryRegisterUnknownIdentity(t *testing.T) {
	reg, _ := newTestRegistry(newFakeClock())
	conn := NewConn("c1", "", 4)
	assert.Nil(t, reg.Register("ghost", conn))
	assert.Empty(t, conn.StaffID)
	assert.Equal(t, domain.PresenceOffline, reg.Status("ghost"))
}
