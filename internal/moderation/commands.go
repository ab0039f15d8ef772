package moderation

import (
	"fmt"
	"log"
	"strings"
)

func (e *Engine) registerCommands() {
	d := e.disp
	d.Register("help", e.cmdHelp, false, "Lists available commands.")
	d.Register("db", e.cmdDurationBanIP, true, "Bans a user by IP for a duration. Usage: /db <nickname> <duration> (e.g., 1h:30m:10s)")
	d.Register("udb", e.cmdDurationBanUser, true, "Bans a username for a duration. Usage: /udb <username> <duration>")
	d.Register("dk", e.cmdDurationKick, true, "Kicks a user by nickname for a duration. Usage: /dk <nickname> <duration>")
	d.Register("udk", e.cmdDurationKickUser, true, "Kicks a user by username for a duration. Usage: /udk <username> <duration>")
	d.Register("clear", e.cmdClear, true, "Clears a temporary ban/kick. Usage: /clear <name/ip/username>, or /clear without arguments to clear everything.")
	d.Register("jail", e.cmdJail, true, "Jails a user. Usage: /jail <nickname>")
	d.Register("unjail", e.cmdUnjail, true, "Unjails a user. Usage: /unjail <nickname>")
	d.Register("jails", e.cmdJails, true, "Lists all jailed users.")
	d.Register("l", e.cmdLock, true, "Locks or unlocks bot commands (admins only). Usage: /l")
	d.Register("bm", e.cmdBroadcast, true, "Sends a broadcast message to all users. Usage: /bm <message>")
	d.Register("cn", e.cmdChangeNick, true, "Changes the bot's nickname. Usage: /cn <new_name>")
	d.Register("shutdown", e.cmdShutdown, true, "Shuts down the bot.")
	d.Register("sd", e.cmdShutdown, true, "Alias for /shutdown.")
	d.Register("restart", e.cmdRestart, true, "Restarts the bot.")
	d.Register("rs", e.cmdRestart, true, "Alias for /restart.")
}

func (e *Engine) kick(sess Session) {
	if err := e.acts.Kick(sess.ID); err != nil {
		log.Printf("Error kicking %s: %v", sess.Nickname, err)
	}
	kicksTotal.Inc()
}

// splitTarget separates "<name with spaces> <duration>" into its two parts
func splitTarget(args []string) (name, duration string, ok bool) {
	if len(args) < 2 {
		return "", "", false
	}
	return strings.Join(args[:len(args)-1], " "), args[len(args)-1], true
}

func (e *Engine) cmdDurationBanIP(sender Session, args []string) {
	e.durationBan(sender, args, IdentIP, "Usage: /db <nickname> <duration> (e.g., 1h:30m:10s)")
}

func (e *Engine) cmdDurationBanUser(sender Session, args []string) {
	e.durationBan(sender, args, IdentUsername, "Usage: /udb <username> <duration>")
}

func (e *Engine) durationBan(sender Session, args []string, kind IdentKind, usage string) {
	name, durStr, ok := splitTarget(args)
	if !ok {
		e.acts.PrivateMessage(sender.ID, usage)
		return
	}
	seconds, err := ParseDuration(durStr)
	if err != nil {
		e.acts.PrivateMessage(sender.ID, usage)
		return
	}

	target, online := e.lookup(name, kind)
	if !online {
		pk := ByNickname
		if kind == IdentUsername {
			pk = ByUsername
		}
		e.store.AddPendingBan(name, pk, kind, seconds)
		e.acts.ChannelMessage(fmt.Sprintf("User '%s' not found. They will be banned when they log in for %s.", name, durStr))
		return
	}

	identifier, effective := e.store.BanSession(target, kind)
	if identifier != "" {
		e.store.AddDurationBan(identifier, effective, seconds, target.Nickname)
	}
	e.acts.ChannelMessage(fmt.Sprintf("%s has been banned for %s.", target.Nickname, durStr))
	e.kick(target)
}

func (e *Engine) cmdDurationKick(sender Session, args []string) {
	e.durationKick(sender, args, IdentIP, "Usage: /dk <nickname> <duration>")
}

func (e *Engine) cmdDurationKickUser(sender Session, args []string) {
	e.durationKick(sender, args, IdentUsername, "Usage: /udk <username> <duration>")
}

func (e *Engine) durationKick(sender Session, args []string, kind IdentKind, usage string) {
	name, durStr, ok := splitTarget(args)
	if !ok {
		e.acts.PrivateMessage(sender.ID, usage)
		return
	}
	seconds, err := ParseDuration(durStr)
	if err != nil {
		e.acts.PrivateMessage(sender.ID, usage)
		return
	}

	target, online := e.lookup(name, kind)
	if !online {
		pk := ByNickname
		if kind == IdentUsername {
			pk = ByUsername
		}
		e.store.AddPendingKick(name, pk, seconds)
		e.acts.ChannelMessage(fmt.Sprintf("User '%s' not found. They will be kicked when they log in for %s.", name, durStr))
		return
	}

	e.kick(target)
	e.acts.ChannelMessage(fmt.Sprintf("%s has been kicked for %s.", target.Nickname, durStr))
	e.store.RecordKick(target, seconds)
}

// lookup resolves a command target: by nickname for IP-flavored commands,
// by username otherwise.
func (e *Engine) lookup(name string, kind IdentKind) (Session, bool) {
	if kind == IdentUsername {
		return e.dir.SessionByUsername(name)
	}
	return e.dir.SessionByNickname(name)
}

func (e *Engine) cmdClear(sender Session, args []string) {
	target := strings.Join(args, " ")
	if target == "" {
		if e.store.ClearAll() {
			e.acts.ChannelMessage("Cleared all bans and duration kicks.")
		} else {
			e.acts.ChannelMessage("There are no active bans or kicks to clear.")
		}
		return
	}
	if e.store.Clear(target) {
		e.acts.ChannelMessage(fmt.Sprintf("Cleared records for %s.", target))
	} else {
		e.acts.ChannelMessage(fmt.Sprintf("Target '%s' not found in active bans or kicks.", target))
	}
}

func (e *Engine) cmdJail(sender Session, args []string) {
	if len(args) == 0 {
		e.acts.PrivateMessage(sender.ID, "Usage: /jail <nickname>")
		return
	}
	nickname := strings.Join(args, " ")
	target, ok := e.dir.SessionByNickname(nickname)
	if !ok {
		e.acts.PrivateMessage(sender.ID, fmt.Sprintf("User '%s' not found.", nickname))
		return
	}
	if target.Username == "" {
		e.acts.PrivateMessage(sender.ID, fmt.Sprintf("'%s' has no username to jail by.", nickname))
		return
	}
	if err := e.lists.AddJailUser(target.Username); err != nil {
		log.Printf("Error saving jail list: %v", err)
	}
	if err := e.acts.MoveTo(target.ID, e.cfg.Moderation.JailChannel); err != nil {
		log.Printf("Error moving %s to jail: %v", nickname, err)
	}
	jailMovesTotal.Inc()
	e.acts.ChannelMessage(fmt.Sprintf("%s has been jailed.", nickname))
}

func (e *Engine) cmdUnjail(sender Session, args []string) {
	if len(args) == 0 {
		e.acts.PrivateMessage(sender.ID, "Usage: /unjail <nickname>")
		return
	}
	nickname := strings.Join(args, " ")
	target, ok := e.dir.SessionByNickname(nickname)
	if !ok {
		e.acts.PrivateMessage(sender.ID, fmt.Sprintf("User '%s' not found.", nickname))
		return
	}
	if _, err := e.lists.RemoveJailUser(target.Username); err != nil {
		log.Printf("Error saving jail list: %v", err)
	}
	if err := e.acts.MoveTo(target.ID, e.cfg.HomeChannel); err != nil {
		log.Printf("Error moving %s out of jail: %v", nickname, err)
	}
	e.acts.ChannelMessage(fmt.Sprintf("%s has been unjailed.", nickname))
}

func (e *Engine) cmdJails(sender Session, args []string) {
	jailed := e.lists.JailUsers()
	if len(jailed) == 0 {
		e.acts.PrivateMessage(sender.ID, "No users are currently jailed.")
		return
	}
	e.acts.PrivateMessage(sender.ID, "Jailed users: "+strings.Join(jailed, ", "))
}

func (e *Engine) cmdLock(sender Session, args []string) {
	if e.disp.ToggleLock() {
		e.acts.PrivateMessage(sender.ID, "Commands locked. Only admins can use commands.")
	} else {
		e.acts.PrivateMessage(sender.ID, "Commands unlocked. Commands available to everyone.")
	}
}

func (e *Engine) cmdBroadcast(sender Session, args []string) {
	if len(args) == 0 {
		e.acts.PrivateMessage(sender.ID, "Usage: /bm <message>")
		return
	}
	e.acts.Broadcast("Message from administrators: " + strings.Join(args, " "))
}

func (e *Engine) cmdChangeNick(sender Session, args []string) {
	if len(args) == 0 {
		e.acts.PrivateMessage(sender.ID, "Usage: /cn <new_name>")
		return
	}
	newNick := strings.Join(args, " ")
	if e.OnNickChange != nil {
		e.OnNickChange(newNick)
	}
	e.acts.PrivateMessage(sender.ID, fmt.Sprintf("Bot name changed to '%s'.", newNick))
}

func (e *Engine) cmdHelp(sender Session, args []string) {
	e.acts.PrivateMessage(sender.ID, "Available commands:")
	isAuthorized := e.disp.Authorized(sender)
	for _, cmd := range e.disp.Commands() {
		if cmd.AdminOnly {
			continue
		}
		e.acts.PrivateMessage(sender.ID, fmt.Sprintf("%s%s - %s", e.cfg.Moderation.CommandPrefix, cmd.Name, cmd.Help))
	}
	if !isAuthorized {
		return
	}
	e.acts.PrivateMessage(sender.ID, "Admin commands:")
	for _, cmd := range e.disp.Commands() {
		if !cmd.AdminOnly {
			continue
		}
		e.acts.PrivateMessage(sender.ID, fmt.Sprintf("%s%s - %s", e.cfg.Moderation.CommandPrefix, cmd.Name, cmd.Help))
	}
}

func (e *Engine) cmdShutdown(sender Session, args []string) {
	e.acts.PrivateMessage(sender.ID, "Shutting down...")
	log.Println("Shutdown requested by admin command")
	if e.OnShutdown != nil {
		e.OnShutdown()
	}
}

func (e *Engine) cmdRestart(sender Session, args []string) {
	e.acts.PrivateMessage(sender.ID, "Restarting...")
	log.Println("Restart requested by admin command")
	if e.OnRestart != nil {
		e.OnRestart()
	}
}
