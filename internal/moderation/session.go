package moderation

// AccountKind classifies how a session authenticated to the chat server.
type AccountKind int

const (
	AccountGuest AccountKind = iota
	AccountStandard
	AccountAdmin
)

// Session is a connected user's live identity. Sessions are referenced, not
// owned, by the engine: they exist only while the user is connected.
type Session struct {
	ID       int
	Nickname string
	Username string // empty for guests
	IP       string
	Kind     AccountKind
}

// IdentKind says whether a ban identifier is an IP address or a username.
// Every ban operation branches on exactly these two cases.
type IdentKind int

const (
	IdentIP IdentKind = iota
	IdentUsername
)

func (k IdentKind) String() string {
	if k == IdentIP {
		return "IP"
	}
	return "Username"
}

// Actions is the capability contract required of the chat session collaborator.
// All calls are best effort: a failure is logged at the call site and never
// blocks the decision logic. None may be invoked while the caller holds a lock.
type Actions interface {
	// Kick removes the session from the server. Idempotent if already gone.
	Kick(sessionID int) error
	// Ban applies a server-level ban for the identifier. Idempotent.
	Ban(identifier string, kind IdentKind) error
	// Unban reverses a ban. Idempotent.
	Unban(identifier string, kind IdentKind) error
	// MoveTo relocates a session into the named channel.
	MoveTo(sessionID int, channel string) error
	// PrivateMessage sends a notice visible only to the session.
	PrivateMessage(sessionID int, text string)
	// ChannelMessage sends a notice to the bot's home channel.
	ChannelMessage(text string)
	// Broadcast sends a notice to everyone on the server.
	Broadcast(text string)
}

// Directory resolves possibly-offline command targets by name.
type Directory interface {
	SessionByNickname(nickname string) (Session, bool)
	SessionByUsername(username string) (Session, bool)
	Sessions() []Session
}

// Lists supplies the blacklist and jail membership sets. Implementations
// re-read their backing store on every call so edits apply without restart.
type Lists interface {
	Blacklist() []string
	JailUsers() []string
	JailNames() []string
	AddJailUser(username string) error
	RemoveJailUser(username string) (bool, error)
}
