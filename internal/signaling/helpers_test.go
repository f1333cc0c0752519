package signaling

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/campusdesk/reception-service/internal/domain"
	"github.com/campusdesk/reception-service/internal/events"
	apperrors "github.com/campusdesk/reception-service/pkg/util/errorutil"
)

var (
	staffACS = domain.StaffMember{
		ID:         "staff-acs",
		Name:       "Dr. Alice C. Smith",
		Email:      "alice.smith@uni.example",
		ShortCode:  "ACS",
		Department: "Computer Science",
		Active:     true,
	}
	staffBJ = domain.StaffMember{
		ID:         "staff-bj",
		Name:       "Prof. Bob Jones",
		Email:      "bob.jones@uni.example",
		ShortCode:  "BJ",
		Department: "Mathematics",
		Active:     true,
	}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeDirectory struct {
	members []domain.StaffMember
	err     error
	calls   int
}

func (d *fakeDirectory) ResolveIdentity(_ context.Context, identifier string) (*domain.StaffMember, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	for _, m := range d.members {
		if m.ID == identifier || strings.EqualFold(m.Email, identifier) || strings.EqualFold(m.ShortCode, identifier) {
			member := m
			return &member, nil
		}
	}
	return nil, nil
}

type fakeVerifier struct {
	members   []domain.StaffMember
	passwords map[string]string
}

func (v *fakeVerifier) VerifyCredentials(_ context.Context, identifier, password string) (*domain.StaffMember, error) {
	for _, m := range v.members {
		if strings.EqualFold(m.Email, identifier) || strings.EqualFold(m.ShortCode, identifier) {
			if v.passwords[m.ID] != password {
				return nil, apperrors.NewUnauthorized("invalid credentials")
			}
			member := m
			return &member, nil
		}
	}
	return nil, apperrors.NewUnauthorized("invalid credentials")
}

type fakeClasses struct {
	inClass map[string]bool
	err     error
}

func (c *fakeClasses) ReadCurrentClassStatus(_ context.Context, staffID string) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	return c.inClass[staffID], nil
}

type recordingSink struct {
	mu      sync.Mutex
	entries []domain.CallLogEntry
}

func (s *recordingSink) Enqueue(entry domain.CallLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *recordingSink) Entries() []domain.CallLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CallLogEntry(nil), s.entries...)
}

type testEnv struct {
	sb        *Switchboard
	clock     *fakeClock
	directory *fakeDirectory
	verifier  *fakeVerifier
	classes   *fakeClasses
	sink      *recordingSink
	events    events.Dispatcher

	mu        sync.Mutex
	published []events.Event
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)
	env := &testEnv{
		clock:     newFakeClock(),
		directory: &fakeDirectory{members: []domain.StaffMember{staffACS, staffBJ}},
		verifier: &fakeVerifier{
			members:   []domain.StaffMember{staffACS, staffBJ},
			passwords: map[string]string{staffACS.ID: "alice-pass", staffBJ.ID: "bob-pass"},
		},
		classes: &fakeClasses{inClass: map[string]bool{}},
		sink:    &recordingSink{},
		events:  events.NewInMemoryDispatcher(logger),
	}
	for _, et := range []events.EventType{events.EventPresenceChanged, events.EventCallStarted, events.EventCallEnded, events.EventRequestExpired} {
		env.events.Subscribe(et, func(_ context.Context, e events.Event) error {
			env.mu.Lock()
			defer env.mu.Unlock()
			env.published = append(env.published, e)
			return nil
		})
	}
	env.sb = NewSwitchboard(Dependencies{
		Logger:    logger,
		Directory: env.directory,
		Verifier:  env.verifier,
		Classes:   env.classes,
		CallLogs:  env.sink,
		Events:    env.events,
		Clock:     env.clock.Now,
	})
	return env
}

func (e *testEnv) publishedOfType(et events.EventType) []events.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []events.Event
	for _, evt := range e.published {
		if evt.Type == et {
			out = append(out, evt)
		}
	}
	return out
}

// startCall logs member in, has a fresh client request a call and accepts it.
func (e *testEnv) startCall(t *testing.T, member domain.StaffMember, clientName string) (client, staff *Conn, callID string) {
	t.Helper()
	ctx := context.Background()
	staff = e.loginStaff(t, member)
	client = e.connectClient(clientName)

	require.NoError(t, e.sb.SubmitCallRequest(ctx, client, member.ShortCode, "office hours", ""))
	incoming := nextOfType[IncomingRequestData](t, staff, MsgIncomingRequest)
	drainFrames(client)

	require.NoError(t, e.sb.RespondToRequest(ctx, staff, incoming.RequestID, true, ""))
	started := nextOfType[SessionStartedData](t, client, MsgSessionStarted)
	drainFrames(staff)
	return client, staff, started.CallID
}

// loginStaff connects a staff member over a fresh connection and discards the
// frames produced by the login itself.
func (e *testEnv) loginStaff(t *testing.T, member domain.StaffMember) *Conn {
	t.Helper()
	conn := e.sb.Connect("")
	require.NoError(t, e.sb.LoginMember(context.Background(), conn, member))
	drainFrames(conn)
	return conn
}

func (e *testEnv) connectClient(name string) *Conn {
	conn := e.sb.Connect(name)
	drainFrames(conn)
	return conn
}

// drainFrames returns every frame currently buffered on conn.
func drainFrames(conn *Conn) []Envelope {
	var frames []Envelope
	for {
		select {
		case raw, ok := <-conn.Outbound():
			if !ok {
				return frames
			}
			var env Envelope
			if err := json.Unmarshal(raw, &env); err == nil {
				frames = append(frames, env)
			}
		default:
			return frames
		}
	}
}

func framesOfType(frames []Envelope, msgType string) []Envelope {
	var out []Envelope
	for _, f := range frames {
		if f.Type == msgType {
			out = append(out, f)
		}
	}
	return out
}

// nextOfType drains conn and requires exactly one frame of msgType.
func nextOfType[T any](t *testing.T, conn *Conn, msgType string) T {
	t.Helper()
	matched := framesOfType(drainFrames(conn), msgType)
	require.Len(t, matched, 1, "expected exactly one %q frame", msgType)
	return decodeData[T](t, matched[0])
}

func decodeData[T any](t *testing.T, env Envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func frame(t *testing.T, msgType string, data any) []byte {
	t.Helper()
	raw, err := encodeFrame(msgType, data)
	require.NoError(t, err)
	return raw
}
