// Package interaction defines the canonical inbound event value and the
// platform's wire-level type codes. Payload fields that the engine never
// inspects (options, embeds, resolved entities) are carried as raw JSON.
package interaction

import "encoding/json"

// Wire interaction types as sent by the platform.
const (
	WireTypePing         = 1
	WireTypeCommand      = 2
	WireTypeComponent    = 3
	WireTypeAutocomplete = 4
	WireTypeModalSubmit  = 5
)

// Application command types carried inside command data.
const (
	CommandTypeChatInput   = 1
	CommandTypeUserMenu    = 2
	CommandTypeMessageMenu = 3
)

// Option types relevant to command path extraction.
const (
	OptionTypeSubCommand      = 1
	OptionTypeSubCommandGroup = 2
)

// Acknowledgement type codes for the callback response.
const (
	AckPong                   = 1
	AckChannelMessage         = 4
	AckDeferredChannelMessage = 5
	AckDeferredUpdateMessage  = 6
	AckUpdateMessage          = 7
	AckAutocompleteResult     = 8
	AckModal                  = 9
)

// Kind classifies a canonical interaction.
type Kind int

const (
	KindUnknown Kind = iota
	KindPing
	KindCommand
	KindUserMenu
	KindMessageMenu
	KindComponent
	KindModalSubmit
	KindAutocomplete
)

// String returns the kind name for logs.
func (k Kind) String() string {
	switch k {
	case KindPing:
		return "ping"
	case KindCommand:
		return "command"
	case KindUserMenu:
		return "user-menu"
	case KindMessageMenu:
		return "message-menu"
	case KindComponent:
		return "component"
	case KindModalSubmit:
		return "modal-submit"
	case KindAutocomplete:
		return "autocomplete"
	default:
		return "unknown"
	}
}

// Transport identifies how an interaction arrived.
type Transport string

const (
	TransportPush Transport = "push" // persistent gateway connection
	TransportPull Transport = "pull" // signed HTTP webhook
)

// Interaction is one inbound event, normalized from either transport.
// Values are immutable after decode.
type Interaction struct {
	ID            string
	ApplicationID string
	Token         string
	Kind          Kind
	Transport     Transport

	// CommandPath is the space-joined command identity, e.g. "ban" or
	// "config set". Empty for non-command kinds.
	CommandPath string

	// CustomID is the component or modal identifier. Empty otherwise.
	CustomID string

	GuildID   string
	ChannelID string

	// Opaque pass-through payloads.
	Data   json.RawMessage
	Member json.RawMessage
	User   json.RawMessage
}

// Identity returns the value the registry matches on for this kind.
func (i Interaction) Identity() string {
	switch i.Kind {
	case KindComponent, KindModalSubmit:
		return i.CustomID
	default:
		return i.CommandPath
	}
}

// Response is an acknowledgement or callback body sent to the platform.
type Response struct {
	Type int             `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Pong is the fixed acknowledgement for platform pings.
func Pong() Response {
	return Response{Type: AckPong}
}
