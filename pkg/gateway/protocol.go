package gateway

import "encoding/json"

// Gateway opcodes used by this client.
const (
	OpDispatch       = 0
	OpHeartbeat      = 1
	OpIdentify       = 2
	OpReconnect      = 7
	OpInvalidSession = 9
	OpHello          = 10
	OpHeartbeatAck   = 11
)

// EventInteractionCreate is the dispatch event carrying an interaction.
const EventInteractionCreate = "INTERACTION_CREATE"

// Frame is the gateway payload envelope.
type Frame struct {
	Op   int             `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
	Seq  *int64          `json:"s,omitempty"`
	Type string          `json:"t,omitempty"`
}

// helloData carries the server's heartbeat interval.
type helloData struct {
	HeartbeatIntervalMs int `json:"heartbeat_interval"`
}

// identifyData authenticates the connection.
type identifyData struct {
	Token      string             `json:"token"`
	Intents    int                `json:"intents"`
	Properties identifyProperties `json:"properties"`
}

type identifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

// newIdentify builds an identify frame for the given bot token.
func newIdentify(token string, intents int) (Frame, error) {
	raw, err := json.Marshal(identifyData{
		Token:   token,
		Intents: intents,
		Properties: identifyProperties{
			OS:      "linux",
			Browser: "wren",
			Device:  "wren",
		},
	})
	if err != nil {
		return Frame{}, err
	}
	return Frame{Op: OpIdentify, Data: raw}, nil
}

// newHeartbeat builds a heartbeat frame echoing the last seen sequence.
func newHeartbeat(seq int64) (Frame, error) {
	var raw json.RawMessage
	if seq > 0 {
		b, err := json.Marshal(seq)
		if err != nil {
			return Frame{}, err
		}
		raw = b
	} else {
		raw = json.RawMessage("null")
	}
	return Frame{Op: OpHeartbeat, Data: raw}, nil
}
