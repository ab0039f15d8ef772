package moderation

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// HandlerFunc executes a command with its positional arguments
type HandlerFunc func(sender Session, args []string)

// Command is an immutable registration: a lower-cased name, its handler, the
// admin-only flag, and help text.
type Command struct {
	Name      string
	AdminOnly bool
	Help      string
	Handler   HandlerFunc
}

// Dispatcher parses prefixed chat commands, applies the authorization policy,
// and runs the resolved handler on the worker pool. The registry is built at
// startup and not mutated afterwards; the only runtime state is the global
// command lock.
type Dispatcher struct {
	prefix       string
	acts         Actions
	runner       Runner
	authorized   func() []string
	detectAdmins bool

	mu       sync.RWMutex
	commands map[string]*Command

	locked atomic.Bool
}

// NewDispatcher creates a dispatcher. authorized supplies the configured
// authorized-user list; detectAdmins additionally authorizes administrator
// accounts.
func NewDispatcher(acts Actions, runner Runner, prefix string, authorized func() []string, detectAdmins bool) *Dispatcher {
	if prefix == "" {
		prefix = "/"
	}
	return &Dispatcher{
		prefix:       prefix,
		acts:         acts,
		runner:       runner,
		authorized:   authorized,
		detectAdmins: detectAdmins,
		commands:     make(map[string]*Command),
	}
}

// Register adds a command to the registry. Called during startup only.
func (d *Dispatcher) Register(name string, handler HandlerFunc, adminOnly bool, help string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	name = strings.ToLower(name)
	d.commands[name] = &Command{Name: name, AdminOnly: adminOnly, Help: help, Handler: handler}
}

// Commands returns the registrations sorted by name, for help output
func (d *Dispatcher) Commands() []*Command {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Command, 0, len(d.commands))
	for _, c := range d.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ToggleLock flips the global command lock and returns the new state
func (d *Dispatcher) ToggleLock() bool {
	for {
		old := d.locked.Load()
		if d.locked.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Locked reports whether commands are restricted to authorized senders
func (d *Dispatcher) Locked() bool {
	return d.locked.Load()
}

// Authorized applies the authorization policy: the configured user list
// first (case-insensitive), then administrator auto-detection when enabled.
func (d *Dispatcher) Authorized(sender Session) bool {
	for _, u := range d.authorized() {
		if strings.EqualFold(strings.TrimSpace(u), sender.Username) && sender.Username != "" {
			return true
		}
	}
	if d.detectAdmins && sender.Kind == AccountAdmin {
		return true
	}
	return false
}

// HandleMessage dispatches text as a command. Returns false when the message
// carries no command prefix, so the caller can hand it to other handling.
// Unrecognized command names are consumed silently.
func (d *Dispatcher) HandleMessage(sender Session, text string) bool {
	if !strings.HasPrefix(text, d.prefix) {
		return false
	}

	tokens, err := splitQuoted(text)
	if err != nil {
		// Malformed quoting is never an error for the sender.
		tokens = strings.Fields(text)
	}
	if len(tokens) == 0 {
		return true
	}
	name := strings.ToLower(strings.TrimPrefix(tokens[0], d.prefix))
	args := tokens[1:]

	d.mu.RLock()
	cmd, ok := d.commands[name]
	d.mu.RUnlock()
	if !ok {
		return true
	}

	isAuthorized := d.Authorized(sender)
	if d.Locked() && !isAuthorized {
		d.acts.PrivateMessage(sender.ID, "Commands are locked. Admins only.")
		commandsDenied.Inc()
		return true
	}
	if cmd.AdminOnly && !isAuthorized {
		d.acts.PrivateMessage(sender.ID, "This command is for authorized users only.")
		commandsDenied.Inc()
		return true
	}

	commandsTotal.WithLabelValues(cmd.Name).Inc()
	d.runner.Submit("command "+cmd.Name, func() {
		cmd.Handler(sender, args)
	})
	return true
}

var errUnbalancedQuote = errors.New("unbalanced quote")

// splitQuoted tokenizes respecting single- and double-quoted substrings.
// Quotes group words into one token and are stripped from it.
func splitQuoted(s string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inToken := false
	var quote byte

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				cur.WriteByte(c)
			}
		case c == '"' || c == '\'':
			quote = c
			inToken = true
		case c == ' ' || c == '\t':
			if inToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteByte(c)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, errUnbalancedQuote
	}
	if inToken {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}
