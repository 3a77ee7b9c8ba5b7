package rtc

import "context"

// RoomProvider abstracts the external real-time media service. The core never
// talks to the provider directly, so the state machine is testable with a
// fake implementation.
//
// CreateRoom must be safe to call on a room that already exists, and
// DeleteRoom on one that was already deleted or never created; both are
// treated as success. IssueCredential mints a short-lived signed grant scoping
// a participant to a room; nothing is persisted on either side.
type RoomProvider interface {
	CreateRoom(ctx context.Context, roomID string) error
	DeleteRoom(ctx context.Context, roomID string) error
	IssueCredential(roomID, participantName string, participantID uint, isHost bool) (string, error)
}
