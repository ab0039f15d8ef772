package moderation

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// recorder implements Actions and remembers every capability call
type recorder struct {
	mu     sync.Mutex
	kicks  []int
	bans   []string // "kind ident"
	unbans []string
	moves  []string // "id channel"
	privs  []string // "id text"
	msgs   []string
	casts  []string
}

func (r *recorder) Kick(sessionID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kicks = append(r.kicks, sessionID)
	return nil
}

func (r *recorder) Ban(identifier string, kind IdentKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bans = append(r.bans, kind.String()+" "+identifier)
	return nil
}

func (r *recorder) Unban(identifier string, kind IdentKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unbans = append(r.unbans, identifier)
	return nil
}

func (r *recorder) MoveTo(sessionID int, channel string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moves = append(r.moves, fmt.Sprintf("%d %s", sessionID, channel))
	return nil
}

func (r *recorder) PrivateMessage(sessionID int, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.privs = append(r.privs, fmt.Sprintf("%d %s", sessionID, text))
}

func (r *recorder) ChannelMessage(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, text)
}

func (r *recorder) Broadcast(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.casts = append(r.casts, text)
}

func (r *recorder) kickCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.kicks)
}

func (r *recorder) banCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bans)
}

func (r *recorder) privCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.privs)
}

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

// fakeClock is an injectable clock for expiry tests
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeTimers captures scheduled expiry tasks so tests fire them manually
type fakeTimers struct {
	mu  sync.Mutex
	fns []func()
}

func (ft *fakeTimers) after(d time.Duration, fn func()) *time.Timer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.fns = append(ft.fns, fn)
	return nil
}

func (ft *fakeTimers) fire() {
	ft.mu.Lock()
	fns := ft.fns
	ft.fns = nil
	ft.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// stubLists is an in-memory Lists implementation
type stubLists struct {
	mu        sync.Mutex
	blacklist []string
	jailUsers []string
	jailNames []string
}

func (l *stubLists) Blacklist() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.blacklist...)
}

func (l *stubLists) JailUsers() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.jailUsers...)
}

func (l *stubLists) JailNames() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.jailNames...)
}

func (l *stubLists) AddJailUser(username string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.jailUsers = append(l.jailUsers, username)
	return nil
}

func (l *stubLists) RemoveJailUser(username string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, u := range l.jailUsers {
		if u == username {
			l.jailUsers = append(l.jailUsers[:i], l.jailUsers[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// stubDir is a fixed Directory of online sessions
type stubDir struct {
	sessions []Session
}

func (d *stubDir) SessionByNickname(nickname string) (Session, bool) {
	for _, s := range d.sessions {
		if s.Nickname == nickname {
			return s, true
		}
	}
	return Session{}, false
}

func (d *stubDir) SessionByUsername(username string) (Session, bool) {
	for _, s := range d.sessions {
		if s.Username == username {
			return s, true
		}
	}
	return Session{}, false
}

func (d *stubDir) Sessions() []Session {
	return append([]Session(nil), d.sessions...)
}

// syncRunner executes submitted tasks inline
type syncRunner struct{}

func (syncRunner) Submit(name string, fn func()) {
	fn()
}
