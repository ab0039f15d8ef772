package irc

// This file contains documentation for the IRC event handlers.
// The actual handler implementations are split across:
// - client.go: Connection lifecycle, session table, WHOIS, message routing
// - actions.go: The capability calls the moderation engine issues

/*
Handler Summary:

Connection Events:
- 376/422 (onConnect): End of MOTD / MOTD missing - bot is connected
  - Identifies to NickServ
  - OPERs up (SAJOIN, KILL and ban masks need oper privileges)
  - Joins the home channel

Session Events:
- JOIN (onJoin): A user appeared in a channel
  - First sight of a nick is treated as its login: the gatekeeper pipeline
    runs and may kick/ban/move before anything else happens
  - Every join is fed to the jail monitor for flood tracking
- QUIT (onQuit): Session removed; the jail monitor's task is cancelled
- NICK (onNickChange): Session table re-keyed to the new nickname

Messages:
- PRIVMSG (onPrivMsg): Channel or private message
  - Blacklist check first, then the command dispatcher
  - With admin auto-detection on, the first message from an unchecked
    sender is parked while WHOIS determines oper status

WHOIS Responses:
- 313 (onWhoisOper): RPL_WHOISOPERATOR - sender is an IRC operator
  - Marks the session as an administrator account
- 318 (onWhoisEnd): RPL_ENDOFWHOIS
  - Releases the parked message to the engine

Nick Issues:
- 432 (onNickHeld): ERR_ERRONEUSNICKNAME - switches to alternate nick,
  schedules RELEASE and recovery
- 433 (onNickInUse): ERR_NICKNAMEINUSE - switches to alternate nick,
  schedules GHOST and recovery

CTCP:
- CTCP_VERSION: Responds with bot version information
*/
