package websocket

import "encoding/json"

// ClientEnvelope is the wire format for messages from clients. Action names
// the client intent; the bridge republishes allowed actions on the bus
// under the "client." prefix.
type ClientEnvelope struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerEnvelope is the wire format for messages to clients.
type ServerEnvelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// EncodeServerEnvelope marshals an outbound event for delivery.
func EncodeServerEnvelope(event string, payload any) ([]byte, error) {
	return json.Marshal(ServerEnvelope{Event: event, Payload: payload})
}

// clientTopicPrefix namespaces bus topics fed by client messages so modules
// can tell client input from server-originated events.
const clientTopicPrefix = "client."
