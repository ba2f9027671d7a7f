package interaction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned when the inbound body is not a usable interaction.
var ErrMalformed = errors.New("malformed interaction payload")

// wireEnvelope mirrors the platform's interaction JSON. Fields the engine
// never interprets stay as json.RawMessage.
type wireEnvelope struct {
	ID            string          `json:"id"`
	ApplicationID string          `json:"application_id"`
	Type          int             `json:"type"`
	Data          json.RawMessage `json:"data,omitempty"`
	GuildID       string          `json:"guild_id,omitempty"`
	ChannelID     string          `json:"channel_id,omitempty"`
	Member        json.RawMessage `json:"member,omitempty"`
	User          json.RawMessage `json:"user,omitempty"`
	Token         string          `json:"token"`
}

// wireData is the subset of the data object needed to resolve a handler.
type wireData struct {
	Name     string       `json:"name"`
	Type     int          `json:"type"`
	CustomID string       `json:"custom_id"`
	Options  []wireOption `json:"options,omitempty"`
}

type wireOption struct {
	Name    string       `json:"name"`
	Type    int          `json:"type"`
	Options []wireOption `json:"options,omitempty"`
}

// Decode normalizes a raw platform payload into a canonical Interaction.
func Decode(raw []byte, transport Transport) (Interaction, error) {
	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Interaction{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == 0 {
		return Interaction{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	inter := Interaction{
		ID:            env.ID,
		ApplicationID: env.ApplicationID,
		Token:         env.Token,
		Transport:     transport,
		GuildID:       env.GuildID,
		ChannelID:     env.ChannelID,
		Data:          env.Data,
		Member:        env.Member,
		User:          env.User,
	}

	if env.Type == WireTypePing {
		inter.Kind = KindPing
		return inter, nil
	}

	var data wireData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return Interaction{}, fmt.Errorf("%w: data: %v", ErrMalformed, err)
		}
	}

	switch env.Type {
	case WireTypeCommand, WireTypeAutocomplete:
		if data.Name == "" {
			return Interaction{}, fmt.Errorf("%w: command without name", ErrMalformed)
		}
		switch data.Type {
		case CommandTypeUserMenu:
			inter.Kind = KindUserMenu
			inter.CommandPath = data.Name
		case CommandTypeMessageMenu:
			inter.Kind = KindMessageMenu
			inter.CommandPath = data.Name
		default:
			inter.Kind = KindCommand
			inter.CommandPath = commandPath(data.Name, data.Options)
		}
		if env.Type == WireTypeAutocomplete {
			inter.Kind = KindAutocomplete
		}
	case WireTypeComponent:
		if data.CustomID == "" {
			return Interaction{}, fmt.Errorf("%w: component without custom_id", ErrMalformed)
		}
		inter.Kind = KindComponent
		inter.CustomID = data.CustomID
	case WireTypeModalSubmit:
		if data.CustomID == "" {
			return Interaction{}, fmt.Errorf("%w: modal without custom_id", ErrMalformed)
		}
		inter.Kind = KindModalSubmit
		inter.CustomID = data.CustomID
	default:
		return Interaction{}, fmt.Errorf("%w: unsupported type %d", ErrMalformed, env.Type)
	}

	return inter, nil
}

// commandPath builds the full command identity from nested options. The
// platform sends at most one subcommand-group level and one subcommand level,
// always as the sole first option of its parent.
func commandPath(name string, options []wireOption) string {
	parts := []string{name}
	if len(options) > 0 && options[0].Type == OptionTypeSubCommandGroup {
		parts = append(parts, options[0].Name)
		options = options[0].Options
	}
	if len(options) > 0 && options[0].Type == OptionTypeSubCommand {
		parts = append(parts, options[0].Name)
	}
	return strings.Join(parts, " ")
}
