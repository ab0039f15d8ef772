package moderation

import (
	"log"
	"sync"
	"time"
)

// warnAfterJoins is the join count at which the one-time warning is sent.
const warnAfterJoins = 3

// JailConfig controls the flood monitor
type JailConfig struct {
	Channel string
	// Window is how long a session is monitored after its first jail re-entry
	Window time.Duration
	// FloodCount is the number of re-entries inside Window that triggers a ban
	FloodCount int
	// PollInterval is how often a monitor re-reads the live counter.
	// Zero means one second.
	PollInterval time.Duration
}

type jailTracker struct {
	sess   Session // refreshed on every re-entry
	count  int
	start  time.Time
	warned bool
	cancel chan struct{}
}

// JailMonitor confines listed users to the jail channel and escalates to a
// ban when one of them floods back in. At most one monitoring task runs per
// session id; further re-entries increment the live counter that the task
// polls. Trackers are destroyed on timeout, on escalation, and on disconnect.
type JailMonitor struct {
	acts  Actions
	store *Store
	lists Lists
	cfg   JailConfig
	now   func() time.Time

	trackers syncTrackers
}

type syncTrackers struct {
	mu sync.Mutex
	m  map[int]*jailTracker
}

// NewJailMonitor creates a monitor issuing bans through store and moves
// through acts
func NewJailMonitor(acts Actions, store *Store, lists Lists, cfg JailConfig) *JailMonitor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &JailMonitor{
		acts:  acts,
		store: store,
		lists: lists,
		cfg:   cfg,
		now:   time.Now,
		trackers: syncTrackers{
			m: make(map[int]*jailTracker),
		},
	}
}

// Jailed reports whether the session is on the jail list, by username or
// nickname. The lists are re-read on every call.
func (j *JailMonitor) Jailed(sess Session) bool {
	for _, u := range j.lists.JailUsers() {
		if u == sess.Username && sess.Username != "" {
			return true
		}
	}
	for _, n := range j.lists.JailNames() {
		if n == sess.Nickname {
			return true
		}
	}
	return false
}

// HandleJoin is the channel-join event entry point. A jailed session joining
// anywhere outside the jail channel is moved back and its re-entry counted.
func (j *JailMonitor) HandleJoin(sess Session, channel string) {
	if !j.Jailed(sess) || channel == j.cfg.Channel {
		return
	}
	if err := j.acts.MoveTo(sess.ID, j.cfg.Channel); err != nil {
		log.Printf("Error moving %s to jail: %v", sess.Nickname, err)
	}
	jailMovesTotal.Inc()
	j.trackJoin(sess)
}

// trackJoin counts a jail re-entry. The first re-entry starts the monitoring
// task; later ones only increment the live counter.
func (j *JailMonitor) trackJoin(sess Session) {
	j.trackers.mu.Lock()
	defer j.trackers.mu.Unlock()

	if t, ok := j.trackers.m[sess.ID]; ok {
		t.count++
		t.sess = sess
		return
	}

	t := &jailTracker{
		sess:   sess,
		count:  1,
		start:  j.now(),
		cancel: make(chan struct{}),
	}
	j.trackers.m[sess.ID] = t
	go j.monitor(sess.ID, t.cancel)
}

// monitor polls the live counter until the window elapses, the threshold is
// reached, or the session disconnects. It polls rather than sleeping once for
// the whole window because the counter changes while it is alive.
func (j *JailMonitor) monitor(sessionID int, cancel <-chan struct{}) {
	defer logPanic("jail monitor")

	ticker := time.NewTicker(j.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
		}

		j.trackers.mu.Lock()
		t, ok := j.trackers.m[sessionID]
		if !ok {
			j.trackers.mu.Unlock()
			return
		}
		if j.now().Sub(t.start) >= j.cfg.Window {
			// Window elapsed without a flood; stand down silently.
			delete(j.trackers.m, sessionID)
			j.trackers.mu.Unlock()
			return
		}
		count := t.count
		sess := t.sess
		warn := count >= warnAfterJoins && !t.warned
		if warn {
			t.warned = true
		}
		escalate := count >= j.cfg.FloodCount
		if escalate {
			delete(j.trackers.m, sessionID)
		}
		j.trackers.mu.Unlock()

		if warn {
			j.acts.PrivateMessage(sessionID, "Warning: You are trying to get out of jail. If you continue to spam, you will be banned.")
		}
		if escalate {
			j.escalate(sess)
			return
		}
	}
}

// escalate bans and kicks a flooding session, exactly once per tracker.
// Guest-like accounts are banned by IP, everyone else by username.
func (j *JailMonitor) escalate(sess Session) {
	kind := IdentUsername
	if sess.Username == "" || sess.Username == "guest" {
		kind = IdentIP
	}
	j.store.BanSession(sess, kind)
	if err := j.acts.Kick(sess.ID); err != nil {
		log.Printf("Error kicking %s after jail flood: %v", sess.Nickname, err)
	}
	kicksTotal.Inc()
	floodEscalations.Inc()
	j.acts.Broadcast(sess.Nickname + " has been banned due to jail flood protection.")
}

// HandleDisconnect cancels the session's monitoring task, if any. The
// tracker is removed here rather than waiting for the task's next poll.
func (j *JailMonitor) HandleDisconnect(sessionID int) {
	j.trackers.mu.Lock()
	t, ok := j.trackers.m[sessionID]
	delete(j.trackers.m, sessionID)
	j.trackers.mu.Unlock()

	if ok {
		close(t.cancel)
	}
}

// Tracking reports whether a monitoring task is alive for the session
func (j *JailMonitor) Tracking(sessionID int) bool {
	j.trackers.mu.Lock()
	defer j.trackers.mu.Unlock()
	_, ok := j.trackers.m[sessionID]
	return ok
}
