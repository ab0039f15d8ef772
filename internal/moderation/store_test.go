package moderation

import (
	"testing"
	"time"
)

func newTestStore() (*Store, *recorder, *fakeClock, *fakeTimers) {
	rec := &recorder{}
	clock := newFakeClock()
	timers := &fakeTimers{}
	s := NewStore(rec, "")
	s.now = clock.Now
	s.after = timers.after
	return s, rec, clock, timers
}

func TestConsumePendingExactlyOnce(t *testing.T) {
	s, _, _, _ := newTestStore()
	s.AddPendingKick("Troll", ByNickname, 60)

	action, ok := s.ConsumePending("troll", "")
	if !ok {
		t.Fatal("First login should consume the pending kick")
	}
	if action.Ban || action.Seconds != 60 {
		t.Errorf("Unexpected action %+v", action)
	}

	if _, ok := s.ConsumePending("troll", ""); ok {
		t.Error("Second login must not find the consumed entry")
	}
}

func TestConsumePendingByUsername(t *testing.T) {
	s, _, _, _ := newTestStore()
	s.AddPendingBan("Account1", ByUsername, IdentUsername, 120)

	action, ok := s.ConsumePending("SomeNick", "account1")
	if !ok {
		t.Fatal("Pending ban keyed by username should match")
	}
	if !action.Ban || action.BanKind != IdentUsername || action.Seconds != 120 {
		t.Errorf("Unexpected action %+v", action)
	}
}

func TestConsumePendingOverwrite(t *testing.T) {
	s, _, _, _ := newTestStore()
	s.AddPendingKick("troll", ByNickname, 60)
	s.AddPendingBan("troll", ByNickname, IdentIP, 300)

	action, ok := s.ConsumePending("troll", "")
	if !ok || !action.Ban || action.Seconds != 300 {
		t.Errorf("Later punishment should overwrite the earlier: got %+v, %v", action, ok)
	}
}

func TestConsumePendingExpired(t *testing.T) {
	s, _, clock, _ := newTestStore()
	s.AddPendingKick("troll", ByNickname, 60)
	clock.Advance(61 * time.Second)

	if _, ok := s.ConsumePending("troll", ""); ok {
		t.Error("Expired pending entry must not produce an action")
	}
	// Expired entries are still removed on consumption
	clock.Advance(-61 * time.Second)
	if _, ok := s.ConsumePending("troll", ""); ok {
		t.Error("Expired entry should have been removed by the first lookup")
	}
}

func TestCheckActiveKick(t *testing.T) {
	s, _, clock, _ := newTestStore()
	sess := Session{ID: 1, Nickname: "Troll", IP: "1.2.3.4", Username: "troll1"}
	s.RecordKick(sess, 60)

	// Matches on any field of the fingerprint
	if !s.CheckActiveKick("Troll", "", "") {
		t.Error("Should match by nickname")
	}
	if !s.CheckActiveKick("Other", "1.2.3.4", "") {
		t.Error("Should match by IP")
	}
	if !s.CheckActiveKick("Other", "", "troll1") {
		t.Error("Should match by username")
	}
	if s.CheckActiveKick("Other", "5.6.7.8", "other") {
		t.Error("Should not match an unrelated session")
	}

	clock.Advance(61 * time.Second)
	if s.CheckActiveKick("Troll", "1.2.3.4", "troll1") {
		t.Error("Expired kick must not match")
	}
	// The expired record was purged by the scan
	clock.Advance(-61 * time.Second)
	if s.CheckActiveKick("Troll", "1.2.3.4", "troll1") {
		t.Error("Expired kick should have been purged")
	}
}

func TestCheckActiveKickEmptyUsername(t *testing.T) {
	s, _, _, _ := newTestStore()
	s.RecordKick(Session{ID: 1, Nickname: "Guest1", IP: "1.2.3.4"}, 60)

	// An empty recorded username never matches other guests
	if s.CheckActiveKick("Guest2", "9.9.9.9", "") {
		t.Error("Empty username must not match another session with empty username")
	}
}

func TestDurationBanExpiry(t *testing.T) {
	s, rec, _, timers := newTestStore()
	s.AddDurationBan("1.2.3.4", IdentIP, 300, "Troll")

	if !s.CheckActiveBan("1.2.3.4", "") {
		t.Fatal("Ban should be active")
	}

	timers.fire()
	if s.CheckActiveBan("1.2.3.4", "") {
		t.Error("Ban should be gone after the expiry task ran")
	}
	rec.mu.Lock()
	unbans, msgs := len(rec.unbans), len(rec.msgs)
	rec.mu.Unlock()
	if unbans != 1 {
		t.Errorf("Expiry task should unban once, got %d", unbans)
	}
	if msgs != 1 {
		t.Errorf("Expiry task should announce once, got %d", msgs)
	}
}

func TestCheckActiveBanLazyPurge(t *testing.T) {
	s, _, clock, _ := newTestStore()
	s.AddDurationBan("1.2.3.4", IdentIP, 60, "Troll")

	clock.Advance(61 * time.Second)
	if s.CheckActiveBan("1.2.3.4", "") {
		t.Error("Expired ban must not match")
	}
	clock.Advance(-61 * time.Second)
	if s.CheckActiveBan("1.2.3.4", "") {
		t.Error("Expired ban should have been purged by the lookup")
	}
}

func TestBanSessionGuestFallback(t *testing.T) {
	s, rec, _, _ := newTestStore()

	// Standard account: username ban stays a username ban
	id, kind := s.BanSession(Session{ID: 1, Nickname: "A", IP: "1.1.1.1", Username: "alice"}, IdentUsername)
	if id != "alice" || kind != IdentUsername {
		t.Errorf("Got (%q, %v), want (alice, username)", id, kind)
	}

	// Guest account: username ban falls back to the IP
	id, kind = s.BanSession(Session{ID: 2, Nickname: "G", IP: "2.2.2.2", Username: "guest"}, IdentUsername)
	if id != "2.2.2.2" || kind != IdentIP {
		t.Errorf("Got (%q, %v), want (2.2.2.2, ip)", id, kind)
	}

	if rec.banCount() != 2 {
		t.Errorf("Expected 2 ban calls, got %d", rec.banCount())
	}
}

func TestBanSessionConfiguredGuestName(t *testing.T) {
	rec := &recorder{}
	s := NewStore(rec, "anonymous")

	id, kind := s.BanSession(Session{ID: 1, Nickname: "A", IP: "3.3.3.3", Username: "anonymous"}, IdentUsername)
	if id != "3.3.3.3" || kind != IdentIP {
		t.Errorf("Configured guest username should fall back to IP, got (%q, %v)", id, kind)
	}
}

func TestUnban(t *testing.T) {
	s, rec, _, _ := newTestStore()
	s.BanSession(Session{ID: 1, Nickname: "A", IP: "1.1.1.1", Username: "alice"}, IdentUsername)

	if !s.Unban("alice") {
		t.Error("Unban should report the record removed")
	}
	if s.Unban("alice") {
		t.Error("Second unban should find nothing")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.unbans) != 1 || rec.unbans[0] != "alice" {
		t.Errorf("Expected one unban call for alice, got %v", rec.unbans)
	}
}

func TestClearTarget(t *testing.T) {
	s, rec, _, _ := newTestStore()
	s.AddPendingKick("Troll", ByNickname, 60)
	s.RecordKick(Session{ID: 1, Nickname: "Other", IP: "1.2.3.4", Username: "x"}, 60)
	s.AddDurationBan("1.2.3.4", IdentIP, 300, "Other")
	s.banned["1.2.3.4"] = IdentIP
	s.RecordKick(Session{ID: 2, Nickname: "Keep", IP: "9.9.9.9", Username: "keep"}, 60)

	if !s.Clear("troll") {
		t.Error("Clearing the pending entry should report success")
	}
	if !s.Clear("1.2.3.4") {
		t.Error("Clearing by IP should report success")
	}
	if s.CheckActiveKick("Other", "1.2.3.4", "x") {
		t.Error("Kick keyed by the IP should be gone")
	}
	if s.CheckActiveBan("1.2.3.4", "") {
		t.Error("Duration ban for the IP should be gone")
	}
	if !s.CheckActiveKick("Keep", "9.9.9.9", "keep") {
		t.Error("Unrelated kick must survive")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.unbans) != 1 {
		t.Errorf("Clearing a banned record should unban once, got %d", len(rec.unbans))
	}
}

func TestClearMiss(t *testing.T) {
	s, _, _, _ := newTestStore()
	if s.Clear("nobody") {
		t.Error("Clearing an unknown target should report nothing removed")
	}
}

func TestClearAll(t *testing.T) {
	s, rec, _, _ := newTestStore()
	s.AddPendingKick("a", ByNickname, 60)
	s.RecordKick(Session{ID: 1, Nickname: "b", IP: "1.1.1.1"}, 60)
	s.BanSession(Session{ID: 2, Nickname: "c", IP: "2.2.2.2", Username: "carol"}, IdentUsername)
	s.BanSession(Session{ID: 3, Nickname: "d", IP: "3.3.3.3", Username: "guest"}, IdentUsername)

	if !s.ClearAll() {
		t.Error("ClearAll should report records removed")
	}
	if s.ClearAll() {
		t.Error("Second ClearAll should find nothing")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.unbans) != 2 {
		t.Errorf("ClearAll should unban each banned record, got %d", len(rec.unbans))
	}
}
