package connection

import "testing"

func TestSessionsInRoomDeduplicatesByUser(t *testing.T) {
	r := New()
	r.Set(&Session{SessionID: "s1", UserID: 1, RoomID: "room-a"})
	r.Set(&Session{SessionID: "s2", UserID: 1, RoomID: "room-a"}) // reconnect, same user
	r.Set(&Session{SessionID: "s3", UserID: 2, RoomID: "room-a"})
	r.Set(&Session{SessionID: "s4", UserID: 3, RoomID: "room-b"})

	got := r.SessionsInRoom("room-a")
	if len(got) != 2 {
		t.Fatalf("got %d sessions, want 2 deduplicated users", len(got))
	}
}

func TestDeleteRemovesSession(t *testing.T) {
	r := New()
	r.Set(&Session{SessionID: "s1", UserID: 1, RoomID: "room-a"})
	r.Delete("s1")
	if r.Get("s1") != nil {
		t.Error("expected session to be gone after Delete")
	}
	if len(r.SessionsInRoom("room-a")) != 0 {
		t.Error("expected room to be empty after Delete")
	}
}

func TestSessionIDsForUserReturnsAllTransports(t *testing.T) {
	r := New()
	r.Set(&Session{SessionID: "s1", UserID: 1, RoomID: "room-a"})
	r.Set(&Session{SessionID: "s2", UserID: 1, RoomID: "room-a"})
	ids := r.SessionIDsForUser("room-a", 1)
	if len(ids) != 2 {
		t.Fatalf("got %d session ids, want 2", len(ids))
	}
}
