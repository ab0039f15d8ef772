package irc

import (
	"fmt"
	"strings"

	"github.com/wardenbot/warden/internal/moderation"
)

// This file implements the moderation engine's Actions and Directory
// contracts on the IRC connection. Every call is best effort: errors are
// returned for the engine to log but never block it.

// Kick removes the session from the server
func (c *Client) Kick(sessionID int) error {
	sess, ok := c.sessionByID(sessionID)
	if !ok {
		return nil // already gone
	}
	return c.conn.Send("KILL", sess.Nickname, "Removed by "+c.conn.CurrentNick())
}

// Ban applies a server-visible ban mask on the home channel
func (c *Client) Ban(identifier string, kind moderation.IdentKind) error {
	return c.conn.Send("MODE", c.cfg.HomeChannel, "+b", banMask(identifier, kind))
}

// Unban removes the ban mask for the identifier
func (c *Client) Unban(identifier string, kind moderation.IdentKind) error {
	return c.conn.Send("MODE", c.cfg.HomeChannel, "-b", banMask(identifier, kind))
}

func banMask(identifier string, kind moderation.IdentKind) string {
	if kind == moderation.IdentIP {
		return "*!*@" + identifier
	}
	return "*!" + identifier + "@*"
}

// MoveTo forces the session into the named channel
func (c *Client) MoveTo(sessionID int, channel string) error {
	sess, ok := c.sessionByID(sessionID)
	if !ok {
		return nil
	}
	return c.conn.SendRaw(fmt.Sprintf("SAJOIN %s %s", sess.Nickname, channel))
}

// PrivateMessage sends a notice to the session, chunked for long texts
func (c *Client) PrivateMessage(sessionID int, text string) {
	sess, ok := c.sessionByID(sessionID)
	if !ok {
		return
	}
	for _, chunk := range splitLongMessage(text, maxMessageChunk) {
		c.conn.Privmsg(sess.Nickname, chunk)
	}
}

// ChannelMessage sends a message to the home channel
func (c *Client) ChannelMessage(text string) {
	c.conn.Privmsg(c.cfg.HomeChannel, text)
}

// Broadcast sends a notice to the home channel, the closest IRC analogue of
// a server broadcast
func (c *Client) Broadcast(text string) {
	c.conn.Send("NOTICE", c.cfg.HomeChannel, text)
}

// SessionByNickname resolves an online session by exact nickname
func (c *Client) SessionByNickname(nickname string) (moderation.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if sess, ok := c.sessions[strings.ToLower(nickname)]; ok && sess.Nickname == strings.TrimSpace(nickname) {
		return *sess, true
	}
	return moderation.Session{}, false
}

// SessionByUsername resolves an online session by username
func (c *Client) SessionByUsername(username string) (moderation.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, sess := range c.sessions {
		if sess.Username != "" && sess.Username == username {
			return *sess, true
		}
	}
	return moderation.Session{}, false
}

// Sessions returns a snapshot of every connected session
func (c *Client) Sessions() []moderation.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]moderation.Session, 0, len(c.sessions))
	for _, sess := range c.sessions {
		out = append(out, *sess)
	}
	return out
}

func (c *Client) sessionByID(sessionID int) (moderation.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sess, ok := c.byID[sessionID]
	if !ok {
		return moderation.Session{}, false
	}
	return *sess, true
}

// splitLongMessage breaks text into chunks, preferring space boundaries
func splitLongMessage(text string, size int) []string {
	var chunks []string
	for len(text) > size {
		cut := strings.LastIndex(text[:size], " ")
		if cut <= 0 {
			cut = size
		}
		chunks = append(chunks, text[:cut])
		text = strings.TrimPrefix(text[cut:], " ")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
