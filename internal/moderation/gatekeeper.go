package moderation

import (
	"fmt"
	"log"
	"regexp"
)

// noNameRe matches the client's default placeholder nickname
var noNameRe = regexp.MustCompile(`^NoName\s*(?:-\s*#\d+)?$`)

// Mode values for the blacklist and nickname-length policies
const (
	ModeKick    = 1
	ModeBanKick = 2
)

// GateConfig holds the login policy settings
type GateConfig struct {
	BlacklistMode int
	CharLimit     int
	CharLimitMode int
	PreventNoName bool
	NoNameNote    string
}

// Gatekeeper runs the ordered policy pipeline on every login event. Jail
// placement happens first and never short-circuits; the punishment checks
// after it stop at the first action taken. A record found past its expiry is
// treated as no match and purged by the store it lives in.
type Gatekeeper struct {
	acts  Actions
	store *Store
	jail  *JailMonitor
	black *Blacklist
	cfg   GateConfig
}

// NewGatekeeper wires the pipeline over its collaborators
func NewGatekeeper(acts Actions, store *Store, jail *JailMonitor, black *Blacklist, cfg GateConfig) *Gatekeeper {
	return &Gatekeeper{acts: acts, store: store, jail: jail, black: black, cfg: cfg}
}

// HandleLogin reports whether a punitive action consumed the event. When it
// returns false the caller proceeds with its own welcome handling.
func (g *Gatekeeper) HandleLogin(sess Session) bool {
	// 1. Jail placement is independent of the punishment checks below.
	if g.jail.Jailed(sess) {
		if err := g.acts.MoveTo(sess.ID, g.jail.cfg.Channel); err != nil {
			log.Printf("Error moving %s to jail on login: %v", sess.Nickname, err)
		}
		jailMovesTotal.Inc()
	}

	// 2. Pending punishment by nickname, then username.
	if action, ok := g.store.ConsumePending(sess.Nickname, sess.Username); ok {
		if action.Ban {
			identifier, kind := g.store.BanSession(sess, action.BanKind)
			if identifier != "" {
				g.store.AddDurationBan(identifier, kind, action.Seconds, sess.Nickname)
			}
		} else {
			g.store.RecordKick(sess, action.Seconds)
		}
		g.kick(sess)
		return true
	}

	// 3. Active duration kick.
	if g.store.CheckActiveKick(sess.Nickname, sess.IP, sess.Username) {
		g.kick(sess)
		return true
	}

	// 4. Active duration ban. The server still holds the ban itself, so the
	// session is only re-kicked, never re-banned.
	if g.store.CheckActiveBan(sess.IP, sess.Username) {
		g.kick(sess)
		return true
	}

	// 5. Blacklisted nickname.
	if _, ok := g.black.Match(sess.Nickname); ok {
		if g.cfg.BlacklistMode == ModeBanKick {
			g.store.BanSession(sess, IdentIP)
		}
		g.kick(sess)
		return true
	}

	// 6. Missing or placeholder nickname.
	if g.cfg.PreventNoName && (sess.Nickname == "" || noNameRe.MatchString(sess.Nickname)) {
		g.acts.PrivateMessage(sess.ID, g.cfg.NoNameNote)
		g.kick(sess)
		return true
	}

	// 7. Nickname over the length limit.
	if g.cfg.CharLimit > 0 && len(sess.Nickname) > g.cfg.CharLimit {
		if g.cfg.CharLimitMode == ModeBanKick {
			g.store.BanSession(sess, IdentIP)
		} else {
			g.acts.PrivateMessage(sess.ID, fmt.Sprintf("You have been kicked due to your nickname exceeding %d characters.", g.cfg.CharLimit))
		}
		g.kick(sess)
		return true
	}

	return false
}

func (g *Gatekeeper) kick(sess Session) {
	if err := g.acts.Kick(sess.ID); err != nil {
		log.Printf("Error kicking %s: %v", sess.Nickname, err)
	}
	kicksTotal.Inc()
}
