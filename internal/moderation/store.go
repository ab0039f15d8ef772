package moderation

import (
	"log"
	"strings"
	"sync"
	"time"
)

// PendingKind says what name a pending punishment was keyed on.
type PendingKind int

const (
	ByNickname PendingKind = iota
	ByUsername
)

// PendingAction is the consumed form of a pending punishment. The caller is
// responsible for issuing the kick (and ban, when Ban is set) and for
// recording the result as an active punishment.
type PendingAction struct {
	Kind    PendingKind
	Ban     bool // ban+kick instead of a plain kick
	BanKind IdentKind
	Seconds int
}

type pendingPunishment struct {
	kind    PendingKind
	ban     bool
	banKind IdentKind
	seconds int
	expires time.Time
}

// kickKey is the fingerprint triple an active duration kick is keyed by.
type kickKey struct {
	nickname string
	ip       string
	username string // empty for guests
}

type durationRecord struct {
	seconds int
	expires time.Time
}

// Store holds all active and pending punishment records. All methods are safe
// to call concurrently from event callbacks, command handlers, and background
// tasks. Capability calls are never made while the lock is held.
//
// Records past their expiry are inert: they are purged lazily by the next
// lookup that encounters them, never actively swept. The one exception is the
// per-ban expiry timer, which removes the server-level ban when the duration
// elapses regardless of lookups.
type Store struct {
	acts Actions
	now  func() time.Time
	// after schedules the duration-ban expiry task; swapped out in tests
	after func(d time.Duration, fn func()) *time.Timer

	guestUsername string // usernames treated as guest-like for ban fallback

	mu      sync.Mutex
	pending map[string]pendingPunishment // case-normalized name -> punishment
	kicks   map[kickKey]durationRecord
	bans    map[string]durationRecord // identifier -> record
	banned  map[string]IdentKind      // bans with no automatic expiry
}

// NewStore creates an empty store issuing capability calls through acts.
// guestUsername names an additional account treated like "guest" when
// deciding between IP and username bans; it may be empty.
func NewStore(acts Actions, guestUsername string) *Store {
	return &Store{
		acts:          acts,
		now:           time.Now,
		after:         time.AfterFunc,
		guestUsername: guestUsername,
		pending:       make(map[string]pendingPunishment),
		kicks:         make(map[kickKey]durationRecord),
		bans:          make(map[string]durationRecord),
		banned:        make(map[string]IdentKind),
	}
}

// AddPendingKick schedules a kick for a name that is currently offline.
// A later punishment for the same name overwrites the earlier one.
func (s *Store) AddPendingKick(name string, kind PendingKind, seconds int) {
	s.addPending(name, pendingPunishment{
		kind:    kind,
		seconds: seconds,
		expires: s.now().Add(time.Duration(seconds) * time.Second),
	})
}

// AddPendingBan schedules a ban+kick for a name that is currently offline.
func (s *Store) AddPendingBan(name string, kind PendingKind, banKind IdentKind, seconds int) {
	s.addPending(name, pendingPunishment{
		kind:    kind,
		ban:     true,
		banKind: banKind,
		seconds: seconds,
		expires: s.now().Add(time.Duration(seconds) * time.Second),
	})
}

func (s *Store) addPending(name string, p pendingPunishment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[strings.ToLower(name)] = p
}

// ConsumePending looks up a pending punishment by nickname first, then by
// username. The entry is removed whether or not it has expired; an action is
// returned only when the entry was still live. Consumption is exactly-once:
// a second matching login finds nothing.
func (s *Store) ConsumePending(nickname, username string) (PendingAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range []string{strings.ToLower(nickname), strings.ToLower(username)} {
		if key == "" {
			continue
		}
		p, ok := s.pending[key]
		if !ok {
			continue
		}
		delete(s.pending, key)
		if s.now().Before(p.expires) {
			return PendingAction{Kind: p.kind, Ban: p.ban, BanKind: p.banKind, Seconds: p.seconds}, true
		}
		return PendingAction{}, false
	}
	return PendingAction{}, false
}

// RecordKick remembers an active duration kick for a session that has just
// been kicked, keyed by its (nickname, IP, username) fingerprint.
func (s *Store) RecordKick(sess Session, seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := kickKey{nickname: sess.Nickname, ip: sess.IP, username: sess.Username}
	s.kicks[key] = durationRecord{
		seconds: seconds,
		expires: s.now().Add(time.Duration(seconds) * time.Second),
	}
}

// CheckActiveKick reports whether any unexpired duration kick matches the
// nickname, the IP, or the (non-empty) username. Expired entries encountered
// during the scan are purged.
func (s *Store) CheckActiveKick(nickname, ip, username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, rec := range s.kicks {
		if !now.Before(rec.expires) {
			delete(s.kicks, key)
			continue
		}
		if key.nickname == nickname || key.ip == ip || (key.username != "" && key.username == username) {
			return true
		}
	}
	return false
}

// AddDurationBan records an active duration ban for the identifier and
// schedules its removal. The caller has already issued the ban itself.
// The expiry task runs independently of lookups: when the duration elapses it
// removes the server-level ban and announces the removal. There is no
// cancellation path; if the record was cleared earlier the task issues a
// harmless redundant unban.
func (s *Store) AddDurationBan(identifier string, kind IdentKind, seconds int, nickname string) {
	d := time.Duration(seconds) * time.Second

	s.mu.Lock()
	s.bans[identifier] = durationRecord{seconds: seconds, expires: s.now().Add(d)}
	s.mu.Unlock()

	s.after(d, func() {
		defer logPanic("ban expiry")

		s.mu.Lock()
		delete(s.bans, identifier)
		delete(s.banned, identifier)
		s.mu.Unlock()

		if err := s.acts.Unban(identifier, kind); err != nil {
			log.Printf("Error unbanning %s after duration: %v", identifier, err)
		}
		unbansTotal.Inc()
		s.acts.ChannelMessage(nickname + " (" + kind.String() + " ban) has been unbanned.")
	})
}

// CheckActiveBan reports whether an unexpired duration ban matches the IP or
// the username. A match means the server is assumed to already enforce the
// ban, so callers only re-kick; they do not re-issue the ban. Expired
// entries are purged on sight.
func (s *Store) CheckActiveBan(ip, username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, key := range []string{ip, username} {
		if key == "" {
			continue
		}
		rec, ok := s.bans[key]
		if !ok {
			continue
		}
		if now.Before(rec.expires) {
			return true
		}
		delete(s.bans, key)
	}
	return false
}

// BanSession issues a server-level ban for the session and records it as a
// banned-user record with no automatic expiry. Username bans fall back to IP
// bans for guest-like accounts. Returns the identifier and kind actually used.
func (s *Store) BanSession(sess Session, kind IdentKind) (string, IdentKind) {
	identifier := sess.IP
	if kind == IdentUsername && !s.guestLike(sess.Username) {
		identifier = sess.Username
	} else {
		kind = IdentIP
	}
	if identifier == "" {
		log.Printf("No usable identifier to ban %s", sess.Nickname)
		return "", kind
	}

	s.mu.Lock()
	s.banned[identifier] = kind
	s.mu.Unlock()

	if err := s.acts.Ban(identifier, kind); err != nil {
		log.Printf("Error banning %s (%s): %v", identifier, kind, err)
	}
	bansTotal.WithLabelValues(kind.String()).Inc()
	return identifier, kind
}

func (s *Store) guestLike(username string) bool {
	return username == "" || username == "guest" ||
		(s.guestUsername != "" && username == s.guestUsername)
}

// Unban reverses a banned-user record and forgets it.
// Returns false if no record exists for the identifier.
func (s *Store) Unban(identifier string) bool {
	s.mu.Lock()
	kind, ok := s.banned[identifier]
	delete(s.banned, identifier)
	s.mu.Unlock()

	if !ok {
		return false
	}
	if err := s.acts.Unban(identifier, kind); err != nil {
		log.Printf("Error unbanning %s: %v", identifier, err)
	}
	unbansTotal.Inc()
	return true
}

// Clear removes every pending punishment, active duration kick, active
// duration ban, and banned-user record whose key matches target by exact
// nickname, IP, or username. Returns whether anything was removed.
func (s *Store) Clear(target string) bool {
	s.mu.Lock()

	found := false
	if _, ok := s.pending[strings.ToLower(target)]; ok {
		delete(s.pending, strings.ToLower(target))
		found = true
	}
	for key := range s.kicks {
		if key.nickname == target || key.ip == target || key.username == target {
			delete(s.kicks, key)
			found = true
		}
	}
	if _, ok := s.bans[target]; ok {
		delete(s.bans, target)
		found = true
	}
	kind, wasBanned := s.banned[target]
	delete(s.banned, target)
	s.mu.Unlock()

	if wasBanned {
		if err := s.acts.Unban(target, kind); err != nil {
			log.Printf("Error unbanning %s: %v", target, err)
		}
		unbansTotal.Inc()
		found = true
	}
	return found
}

// ClearAll empties every collection and issues one unban per banned-user
// record. Returns whether there was anything to clear.
func (s *Store) ClearAll() bool {
	s.mu.Lock()
	found := len(s.pending) > 0 || len(s.kicks) > 0 || len(s.bans) > 0 || len(s.banned) > 0
	banned := make(map[string]IdentKind, len(s.banned))
	for identifier, kind := range s.banned {
		banned[identifier] = kind
	}
	s.pending = make(map[string]pendingPunishment)
	s.kicks = make(map[kickKey]durationRecord)
	s.bans = make(map[string]durationRecord)
	s.banned = make(map[string]IdentKind)
	s.mu.Unlock()

	for identifier, kind := range banned {
		if err := s.acts.Unban(identifier, kind); err != nil {
			log.Printf("Error unbanning %s: %v", identifier, err)
		}
		unbansTotal.Inc()
	}
	return found
}

// logPanic is the boundary recover for background tasks: log and swallow so
// one failing task never takes down the event loop or its siblings.
func logPanic(task string) {
	if r := recover(); r != nil {
		log.Printf("Recovered panic in %s task: %v", task, r)
	}
}
