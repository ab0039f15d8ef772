package moderation

import (
	"time"

	"github.com/wardenbot/warden/internal/config"
)

// commandWorkers bounds how many command handlers may run at once
const commandWorkers = 5

// Engine is the moderation core: it owns the enforcement store, the jail
// monitor, the gatekeeper, and the command dispatcher, and exposes the event
// entry points the chat client feeds.
type Engine struct {
	cfg   *config.Config
	acts  Actions
	dir   Directory
	lists Lists

	store *Store
	jail  *JailMonitor
	gate  *Gatekeeper
	black *Blacklist
	disp  *Dispatcher
	pool  *TaskPool

	// Set by the hosting client before events flow.
	OnShutdown   func()
	OnRestart    func()
	OnNickChange func(nick string)
}

// New builds and wires the engine. acts and dir are the session collaborator;
// lists supplies the blacklist and jail sets.
func New(cfg *config.Config, acts Actions, dir Directory, lists Lists) *Engine {
	m := cfg.Moderation

	e := &Engine{
		cfg:   cfg,
		acts:  acts,
		dir:   dir,
		lists: lists,
		pool:  NewTaskPool(commandWorkers),
	}

	e.store = NewStore(acts, "")
	e.black = NewBlacklist(lists.Blacklist)
	e.jail = NewJailMonitor(acts, e.store, lists, JailConfig{
		Channel:    m.JailChannel,
		Window:     time.Duration(m.JailWindowSeconds) * time.Second,
		FloodCount: m.JailFloodCount,
	})
	e.gate = NewGatekeeper(acts, e.store, e.jail, e.black, GateConfig{
		BlacklistMode: m.BlacklistMode,
		CharLimit:     m.CharLimit,
		CharLimitMode: m.CharLimitMode,
		PreventNoName: m.PreventNoName,
		NoNameNote:    m.NoNameNote,
	})
	e.disp = NewDispatcher(acts, e.pool, m.CommandPrefix,
		func() []string { return m.AuthorizedUsers }, m.DetectAdmins)

	e.registerCommands()
	return e
}

// Store exposes the enforcement store to the hosting client
func (e *Engine) Store() *Store {
	return e.store
}

// HandleLogin runs the login pipeline. Returns true when a punitive action
// consumed the event; the caller only runs its welcome logic otherwise.
func (e *Engine) HandleLogin(sess Session) bool {
	return e.gate.HandleLogin(sess)
}

// HandleJoin feeds a channel-join event to the jail monitor
func (e *Engine) HandleJoin(sess Session, channel string) {
	e.jail.HandleJoin(sess, channel)
}

// HandleDisconnect releases per-session state
func (e *Engine) HandleDisconnect(sessionID int) {
	e.jail.HandleDisconnect(sessionID)
}

// HandleMessage checks a chat message against the blacklist and then the
// command dispatcher. Returns false when the message is neither, so the
// caller can apply its own handling.
func (e *Engine) HandleMessage(sender Session, text string) bool {
	if _, ok := e.black.Match(text); ok {
		if e.cfg.Moderation.BlacklistMode == ModeBanKick {
			e.store.BanSession(sender, IdentUsername)
		}
		e.kick(sender)
		return true
	}
	return e.disp.HandleMessage(sender, text)
}

// Wait blocks until in-flight command handlers have finished
func (e *Engine) Wait() {
	e.pool.Wait()
}
