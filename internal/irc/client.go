package irc

import (
	"crypto/tls"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ergochat/irc-go/ircevent"
	"github.com/ergochat/irc-go/ircmsg"
	"github.com/wardenbot/warden/internal/config"
	"github.com/wardenbot/warden/internal/moderation"
	"github.com/wardenbot/warden/internal/storage"
)

// Version information (set at build time or here)
var (
	Version   = "1.0.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// maxMessageChunk is the largest private-message chunk sent at once
const maxMessageChunk = 400

// Client connects the moderation engine to an IRC network. It implements the
// engine's Actions and Directory contracts and feeds it session events.
type Client struct {
	conn   *ircevent.Connection
	cfg    *config.Config
	engine *moderation.Engine

	mu     sync.RWMutex
	ready  bool
	closed bool

	// Session table: the engine references sessions by numeric id.
	sessions map[string]*moderation.Session // lowercased nick -> session
	byID     map[int]*moderation.Session
	nextID   int

	// Oper tracking for admin auto-detection: lowercased nick -> is oper
	opers     map[string]bool
	operKnown map[string]bool

	// Messages parked while a WHOIS oper check is in flight
	pendingWhois map[string]*pendingCheck

	// Shutdown/restart callbacks
	OnShutdown func()
	OnRestart  func()
}

type pendingCheck struct {
	message string
}

// NewClient creates the IRC client and its embedded moderation engine
func NewClient(cfg *config.Config) (*Client, error) {
	c := &Client{
		cfg:          cfg,
		sessions:     make(map[string]*moderation.Session),
		byID:         make(map[int]*moderation.Session),
		opers:        make(map[string]bool),
		operKnown:    make(map[string]bool),
		pendingWhois: make(map[string]*pendingCheck),
	}

	c.engine = moderation.New(cfg, c, c, storage.New(cfg.DataDir))
	c.engine.OnNickChange = func(nick string) { c.conn.SetNick(nick) }
	c.engine.OnShutdown = func() {
		if c.OnShutdown != nil {
			c.OnShutdown()
		}
	}
	c.engine.OnRestart = func() {
		if c.OnRestart != nil {
			c.OnRestart()
		}
	}

	conn := &ircevent.Connection{
		Server:      fmt.Sprintf("%s:%d", cfg.Server, cfg.Port),
		Nick:        cfg.Nick,
		User:        cfg.Username,
		RealName:    cfg.IRCName,
		Password:    cfg.ServerPass,
		QuitMessage: "Shutting down",
		Debug:       false,
		UseTLS:      false,
		TLSConfig:   &tls.Config{InsecureSkipVerify: true},
	}
	c.conn = conn

	c.registerHandlers()

	return c, nil
}

func (c *Client) registerHandlers() {
	// Connected (end of MOTD)
	c.conn.AddCallback("376", c.onConnect)
	c.conn.AddCallback("422", c.onConnect) // MOTD missing is also "connected"

	// Session events
	c.conn.AddCallback("JOIN", c.onJoin)
	c.conn.AddCallback("QUIT", c.onQuit)
	c.conn.AddCallback("NICK", c.onNickChange)

	// Messages
	c.conn.AddCallback("PRIVMSG", c.onPrivMsg)

	// WHOIS responses for admin auto-detection
	c.conn.AddCallback("313", c.onWhoisOper) // RPL_WHOISOPERATOR
	c.conn.AddCallback("318", c.onWhoisEnd)  // RPL_ENDOFWHOIS

	// Nick issues
	c.conn.AddCallback("432", c.onNickHeld)  // ERR_ERRONEUSNICKNAME
	c.conn.AddCallback("433", c.onNickInUse) // ERR_NICKNAMEINUSE

	// CTCP VERSION
	c.conn.AddCallback("CTCP_VERSION", c.onCtcpVersion)
}

// Connect initiates the IRC connection
func (c *Client) Connect() error {
	return c.conn.Connect()
}

// Loop runs the IRC event loop (blocking)
func (c *Client) Loop() {
	c.conn.Loop()
}

// Quit disconnects from IRC
func (c *Client) Quit(message string) {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.conn.Quit()
}

func (c *Client) onConnect(e ircmsg.Message) {
	log.Println("Connected to IRC server")

	// Identify to NickServ
	if c.cfg.NickPass != "" {
		c.conn.Privmsg("NickServ", fmt.Sprintf("IDENTIFY %s %s", c.cfg.Nick, c.cfg.NickPass))
	}

	// OPER up: SAJOIN, KILL and server bans need oper privileges
	if c.cfg.OperNick != "" && c.cfg.OperPass != "" {
		c.conn.SendRaw(fmt.Sprintf("OPER %s %s", c.cfg.OperNick, c.cfg.OperPass))
	}

	c.conn.Join(c.cfg.HomeChannel)

	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()

	log.Println("Bot initialization complete")
}

// ensureSession returns the session for nick, creating one from the message
// source on first sight. The second return is true for a newly seen session.
func (c *Client) ensureSession(e ircmsg.Message) (moderation.Session, bool) {
	nick := e.Nick()
	nuh, err := e.NUH()
	if err != nil {
		return moderation.Session{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if sess, ok := c.sessions[strings.ToLower(nick)]; ok {
		return *sess, false
	}

	kind := moderation.AccountStandard
	username := nuh.User
	if strings.HasPrefix(username, "~") {
		// No identd response: treat like a guest account.
		username = strings.TrimPrefix(username, "~")
		kind = moderation.AccountGuest
	}
	if c.opers[strings.ToLower(nick)] {
		kind = moderation.AccountAdmin
	}

	c.nextID++
	sess := &moderation.Session{
		ID:       c.nextID,
		Nickname: nick,
		Username: username,
		IP:       nuh.Host,
		Kind:     kind,
	}
	c.sessions[strings.ToLower(nick)] = sess
	c.byID[sess.ID] = sess
	return *sess, true
}

func (c *Client) onJoin(e ircmsg.Message) {
	nick := e.Nick()
	if strings.EqualFold(nick, c.conn.CurrentNick()) {
		return
	}
	if len(e.Params) < 1 {
		return
	}
	channel := e.Params[0]

	sess, created := c.ensureSession(e)
	if sess.ID == 0 {
		return
	}

	if created {
		// First sight of this session is its login event.
		if c.engine.HandleLogin(sess) {
			return
		}
	}
	c.engine.HandleJoin(sess, channel)
}

func (c *Client) onQuit(e ircmsg.Message) {
	nick := strings.ToLower(e.Nick())

	c.mu.Lock()
	sess, ok := c.sessions[nick]
	if ok {
		delete(c.sessions, nick)
		delete(c.byID, sess.ID)
	}
	c.mu.Unlock()

	if ok {
		c.engine.HandleDisconnect(sess.ID)
	}
}

func (c *Client) onNickChange(e ircmsg.Message) {
	if len(e.Params) < 1 {
		return
	}
	oldNick := strings.ToLower(e.Nick())
	newNick := e.Params[0]

	c.mu.Lock()
	if sess, ok := c.sessions[oldNick]; ok {
		delete(c.sessions, oldNick)
		sess.Nickname = newNick
		c.sessions[strings.ToLower(newNick)] = sess
	}
	c.mu.Unlock()
}

func (c *Client) onPrivMsg(e ircmsg.Message) {
	if len(e.Params) < 2 {
		return
	}
	nick := e.Nick()
	if strings.EqualFold(nick, c.conn.CurrentNick()) {
		return
	}
	message := e.Params[1]

	sess, _ := c.ensureSession(e)
	if sess.ID == 0 {
		return
	}

	// With admin auto-detection on, park the first message from an unchecked
	// sender until WHOIS tells us whether they are an oper.
	if c.cfg.Moderation.DetectAdmins {
		c.mu.Lock()
		known := c.operKnown[strings.ToLower(nick)]
		if !known {
			c.pendingWhois[strings.ToLower(nick)] = &pendingCheck{message: message}
		}
		c.mu.Unlock()
		if !known {
			c.conn.Send("WHOIS", nick)
			return
		}
	}

	c.engine.HandleMessage(sess, message)
}

func (c *Client) onWhoisOper(e ircmsg.Message) {
	// 313 <me> <nick> :is an IRC operator
	if len(e.Params) < 2 {
		return
	}
	nick := strings.ToLower(e.Params[1])

	c.mu.Lock()
	c.opers[nick] = true
	if sess, ok := c.sessions[nick]; ok {
		sess.Kind = moderation.AccountAdmin
	}
	c.mu.Unlock()
}

func (c *Client) onWhoisEnd(e ircmsg.Message) {
	// 318 <me> <nick> :End of /WHOIS list
	if len(e.Params) < 2 {
		return
	}
	nick := strings.ToLower(e.Params[1])

	c.mu.Lock()
	c.operKnown[nick] = true
	pending := c.pendingWhois[nick]
	delete(c.pendingWhois, nick)
	var sess moderation.Session
	ok := false
	if s, found := c.sessions[nick]; found {
		sess = *s
		ok = true
	}
	c.mu.Unlock()

	if pending != nil && ok {
		c.engine.HandleMessage(sess, pending.message)
	}
}

func (c *Client) onNickHeld(e ircmsg.Message) {
	if c.conn.CurrentNick() == c.cfg.Alternate {
		return
	}
	log.Printf("Nick is held, switching to alternate: %s", c.cfg.Alternate)
	c.conn.SetNick(c.cfg.Alternate)

	// Schedule nick recovery
	go func() {
		time.Sleep(15 * time.Second)
		c.conn.Privmsg("NickServ", fmt.Sprintf("RELEASE %s %s", c.cfg.Nick, c.cfg.NickPass))
		time.Sleep(2 * time.Second)
		c.conn.SetNick(c.cfg.Nick)
	}()
}

func (c *Client) onNickInUse(e ircmsg.Message) {
	if c.conn.CurrentNick() == c.cfg.Alternate {
		return
	}
	log.Printf("Nick in use, switching to alternate: %s", c.cfg.Alternate)
	c.conn.SetNick(c.cfg.Alternate)

	// Schedule nick recovery
	go func() {
		time.Sleep(15 * time.Second)
		c.conn.Privmsg("NickServ", fmt.Sprintf("GHOST %s %s", c.cfg.Nick, c.cfg.NickPass))
		time.Sleep(2 * time.Second)
		c.conn.SetNick(c.cfg.Nick)
	}()
}

func (c *Client) onCtcpVersion(e ircmsg.Message) {
	nick := e.Nick()
	reply := fmt.Sprintf("warden %s (built %s, commit %s)", Version, BuildDate, GitCommit)
	c.conn.SendRaw(fmt.Sprintf("NOTICE %s :\x01VERSION %s\x01", nick, reply))
}
