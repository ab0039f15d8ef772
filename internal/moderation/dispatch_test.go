package moderation

import (
	"reflect"
	"testing"
)

func newTestDispatcher(authorized []string, detectAdmins bool) (*Dispatcher, *recorder) {
	rec := &recorder{}
	d := NewDispatcher(rec, syncRunner{}, "/", func() []string { return authorized }, detectAdmins)
	return d, rec
}

func TestDispatchRunsHandler(t *testing.T) {
	d, _ := newTestDispatcher([]string{"admin"}, false)
	var got []string
	d.Register("dk", func(sender Session, args []string) { got = args }, true, "")

	sender := Session{ID: 1, Nickname: "Admin", Username: "admin"}
	if !d.HandleMessage(sender, "/dk troll 10s") {
		t.Fatal("Prefixed command should be consumed")
	}
	if !reflect.DeepEqual(got, []string{"troll", "10s"}) {
		t.Errorf("Handler args = %v", got)
	}
}

func TestDispatchQuotedArguments(t *testing.T) {
	d, _ := newTestDispatcher([]string{"admin"}, false)
	var got []string
	d.Register("dk", func(sender Session, args []string) { got = args }, true, "")

	sender := Session{ID: 1, Username: "admin"}
	d.HandleMessage(sender, `/dk "Bad Guy" 10s`)
	if !reflect.DeepEqual(got, []string{"Bad Guy", "10s"}) {
		t.Errorf("Quoted argument should stay one token, got %v", got)
	}

	got = nil
	d.HandleMessage(sender, "/dk 'Bad Guy' 10s")
	if !reflect.DeepEqual(got, []string{"Bad Guy", "10s"}) {
		t.Errorf("Single quotes should work too, got %v", got)
	}
}

func TestDispatchUnbalancedQuoteFallsBack(t *testing.T) {
	d, _ := newTestDispatcher([]string{"admin"}, false)
	var got []string
	d.Register("dk", func(sender Session, args []string) { got = args }, true, "")

	d.HandleMessage(Session{ID: 1, Username: "admin"}, `/dk "Bad Guy 10s`)
	if !reflect.DeepEqual(got, []string{`"Bad`, "Guy", "10s"}) {
		t.Errorf("Unbalanced quotes fall back to whitespace split, got %v", got)
	}
}

func TestDispatchNonCommand(t *testing.T) {
	d, _ := newTestDispatcher(nil, false)
	if d.HandleMessage(Session{ID: 1}, "just chatting") {
		t.Error("Plain text is not a command")
	}
}

func TestDispatchUnknownCommandSilent(t *testing.T) {
	d, rec := newTestDispatcher(nil, false)
	if !d.HandleMessage(Session{ID: 1}, "/nosuch") {
		t.Error("Unknown command names are still consumed")
	}
	if rec.privCount() != 0 {
		t.Error("Unknown commands produce no reply")
	}
}

func TestDispatchAdminOnlyDenied(t *testing.T) {
	d, rec := newTestDispatcher([]string{"admin"}, false)
	called := false
	d.Register("dk", func(sender Session, args []string) { called = true }, true, "")

	d.HandleMessage(Session{ID: 2, Username: "peon"}, "/dk troll 10s")
	if called {
		t.Error("Unauthorized sender must not reach the handler")
	}
	if rec.privCount() != 1 {
		t.Errorf("Denial should be messaged to the sender, got %d messages", rec.privCount())
	}
}

func TestDispatchAuthorizedCaseInsensitive(t *testing.T) {
	d, _ := newTestDispatcher([]string{"Admin "}, false)
	if !d.Authorized(Session{Username: "admin"}) {
		t.Error("Authorized list match is case-insensitive and trimmed")
	}
	if d.Authorized(Session{Username: ""}) {
		t.Error("Empty username never authorizes")
	}
}

func TestDispatchDetectAdmins(t *testing.T) {
	d, _ := newTestDispatcher(nil, true)
	if !d.Authorized(Session{Username: "whoever", Kind: AccountAdmin}) {
		t.Error("Administrator accounts authorize when detection is on")
	}
	if d.Authorized(Session{Username: "whoever", Kind: AccountStandard}) {
		t.Error("Standard accounts do not")
	}

	d2, _ := newTestDispatcher(nil, false)
	if d2.Authorized(Session{Username: "whoever", Kind: AccountAdmin}) {
		t.Error("With detection off, admin kind alone does not authorize")
	}
}

func TestDispatchLock(t *testing.T) {
	d, rec := newTestDispatcher([]string{"admin"}, false)
	called := 0
	d.Register("l", func(sender Session, args []string) { called++ }, false, "")

	if !d.ToggleLock() {
		t.Fatal("First toggle should lock")
	}

	// Locked: non-authorized sender is refused even for a non-admin command
	d.HandleMessage(Session{ID: 2, Username: "peon"}, "/l")
	if called != 0 {
		t.Error("Locked dispatcher must not run handlers for unauthorized senders")
	}
	if rec.privCount() != 1 {
		t.Error("Lock refusal should be messaged")
	}

	// Authorized senders pass through the lock
	d.HandleMessage(Session{ID: 1, Username: "admin"}, "/l")
	if called != 1 {
		t.Error("Authorized sender should pass the lock")
	}

	if d.ToggleLock() {
		t.Error("Second toggle should unlock")
	}
	d.HandleMessage(Session{ID: 2, Username: "peon"}, "/l")
	if called != 2 {
		t.Error("Unlocked dispatcher runs the handler")
	}
}

func TestSplitQuoted(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"/dk troll 10s", []string{"/dk", "troll", "10s"}},
		{`/db "Bad Guy" 1h`, []string{"/db", "Bad Guy", "1h"}},
		{"a  b\t c", []string{"a", "b", "c"}},
		{`""`, []string{""}},
		{"", nil},
		{"   ", nil},
	}
	for _, tc := range cases {
		got, err := splitQuoted(tc.in)
		if err != nil {
			t.Errorf("splitQuoted(%q) returned error: %v", tc.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitQuoted(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := splitQuoted(`/dk "unclosed`); err == nil {
		t.Error("Unbalanced quote should be an error")
	}
}
