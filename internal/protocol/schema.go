package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var ErrSchemaViolation = errors.New("payload violates schema")

const roomStateDef = `{
	"type": "object",
	"required": ["room_id", "board", "turn", "status"],
	"properties": {
		"room_id": {"type": "string", "minLength": 1},
		"player1_name": {"type": ["string", "null"]},
		"player2_name": {"type": ["string", "null"]},
		"board": {
			"type": "array",
			"minItems": 9,
			"maxItems": 9,
			"items": {"enum": ["", "X", "O"]}
		},
		"turn": {"enum": ["X", "O"]},
		"status": {"enum": ["waiting", "active", "x_won", "o_won", "draw"]},
		"createdAt": {"type": "string"},
		"updatedAt": {"type": "string"}
	}
}`

const assignedDef = `{"enum": ["X", "O"]}`

var schemaSources = map[string]string{
	EventRoomCreated: `{
		"type": "object",
		"required": ["roomId", "assigned"],
		"properties": {
			"roomId": {"type": "string", "minLength": 1},
			"assigned": ` + assignedDef + `,
			"state": {"oneOf": [{"type": "null"}, ` + roomStateDef + `]}
		}
	}`,
	EventRoomJoined: `{
		"type": "object",
		"required": ["roomId", "assigned"],
		"properties": {
			"roomId": {"type": "string", "minLength": 1},
			"assigned": ` + assignedDef + `
		}
	}`,
	EventGameOver: `{
		"type": "object",
		"required": ["status"],
		"properties": {
			"status": {"enum": ["x_won", "o_won", "draw"]}
		}
	}`,
	EventWsError: `{
		"type": "object",
		"required": ["code"],
		"properties": {
			"code": {"type": "string"},
			"message": {"type": "string"},
			"detail": {"type": "string"}
		}
	}`,
	EventIllegalMove: `{
		"type": "object",
		"required": ["code"],
		"properties": {
			"code": {"type": "string"}
		}
	}`,
	EventRoomState: roomStateDef,
}

// schemas holds one compiled schema per inbound event carrying a payload.
var schemas = compileSchemas()

func compileSchemas() map[string]*jsonschema.Schema {
	compiled := make(map[string]*jsonschema.Schema, len(schemaSources))

	for event, source := range schemaSources {
		compiled[event] = jsonschema.MustCompileString(event+".schema.json", source)
	}

	return compiled
}

// validatePayload - checks a raw event payload against the schema of its event, if one exists.
func validatePayload(event string, payload json.RawMessage) error {
	schema, ok := schemas[event]
	if !ok {
		return nil
	}

	var doc interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSchemaViolation, event, err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSchemaViolation, event, err)
	}

	return nil
}
