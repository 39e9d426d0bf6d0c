package entity

const UnknownPlayerName = "?"

// Player is a seat of a room as shown to the local user.
type Player struct {
	Name string
	Mark Mark
}

// Players - the two seats of the room; unoccupied seats carry UnknownPlayerName.
func (that *RoomState) Players() [2]Player {
	return [2]Player{
		{Name: nameOrUnknown(that.Player1Name), Mark: PlayerX},
		{Name: nameOrUnknown(that.Player2Name), Mark: PlayerO},
	}
}

func nameOrUnknown(name *string) string {
	if name == nil || *name == "" {
		return UnknownPlayerName
	}

	return *name
}
