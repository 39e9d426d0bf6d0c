package entity

// SessionRecord is what the local client currently knows about its room, as published to the mirror.
type SessionRecord struct {
	RoomID     string     `json:"room_id"`
	State      *RoomState `json:"state"`
	Assignment Mark       `json:"assigned"`
	Ended      Status     `json:"ended,omitempty"`
	Label      string     `json:"label"`
	Connected  bool       `json:"connected"`
}
