package websocket

import "github.com/rivergate/avalon-core/internal/fanout"

// OutgoingMessage is what the hub sends to a client connection.
type OutgoingMessage struct {
	Envelope fanout.Envelope
}

// ClientInMessage is the envelope for messages arriving from a client.
type ClientInMessage struct {
	Type          string                 `json:"type"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
}

// Client message types (§6.1 inbound events).
const (
	ClientMessageTypeJoinRoom     = "join_room"
	ClientMessageTypeLeaveRoom    = "leave_room"
	ClientMessageTypeReadyToggle  = "ready_toggle"
	ClientMessageTypeChat         = "chat_message"
	ClientMessageTypeStartGame    = "start_game"
	ClientMessageTypeProposeTeam  = "propose_team"
	ClientMessageTypeVoteTeam     = "vote_team"
	ClientMessageTypeVoteMission  = "vote_mission"
	ClientMessageTypeAssassinate  = "assassinate"
	ClientMessageTypeGetGameState = "get_game_state"
	ClientMessageTypeGameAction   = "game_action"
)

// ValidClientMessageTypes are the only accepted inbound event types;
// unknown types are rejected at the dispatcher boundary (spec §9).
var ValidClientMessageTypes = map[string]bool{
	ClientMessageTypeJoinRoom:     true,
	ClientMessageTypeLeaveRoom:    true,
	ClientMessageTypeReadyToggle:  true,
	ClientMessageTypeChat:         true,
	ClientMessageTypeStartGame:    true,
	ClientMessageTypeProposeTeam:  true,
	ClientMessageTypeVoteTeam:     true,
	ClientMessageTypeVoteMission:  true,
	ClientMessageTypeAssassinate:  true,
	ClientMessageTypeGetGameState: true,
	ClientMessageTypeGameAction:   true,
}

// MaxChatMessageLength bounds a chat_message payload.
const MaxChatMessageLength = 2000

// MaxClientMessageTypeLength limits the "type" field to prevent abuse.
const MaxClientMessageTypeLength = 64
