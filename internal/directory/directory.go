// Package directory models the external, out-of-scope room directory
// (the HTTP/DB layer that owns room identity and host assignment) as a
// narrow Go interface, per spec.md's declared external collaborators.
package directory

import "context"

// RoomDirectory is the one write the core needs from the authoritative
// room record: updating the host when Membership elects a successor.
type RoomDirectory interface {
	UpdateHostID(ctx context.Context, roomID string, newHostUserID int64) error
}

// InMemoryRoomDirectory is a fake RoomDirectory for tests and local
// development without a Postgres instance.
type InMemoryRoomDirectory struct {
	hosts map[string]int64
}

// NewInMemoryRoomDirectory returns an empty fake directory.
func NewInMemoryRoomDirectory() *InMemoryRoomDirectory {
	return &InMemoryRoomDirectory{hosts: make(map[string]int64)}
}

func (d *InMemoryRoomDirectory) UpdateHostID(_ context.Context, roomID string, newHostUserID int64) error {
	d.hosts[roomID] = newHostUserID
	return nil
}

// HostOf returns the last host recorded for roomID, for test assertions.
func (d *InMemoryRoomDirectory) HostOf(roomID string) (int64, bool) {
	v, ok := d.hosts[roomID]
	return v, ok
}
