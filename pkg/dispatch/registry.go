package dispatch

import (
	"encoding/json"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/wrenbot/wren/pkg/interaction"
)

// Handler is an application callback bound to one interaction identity.
// Handlers produce no return value; outcomes flow through Context.
type Handler func(ctx *Context)

// CommandEntry pairs a declared command with its handler. Schema is the
// opaque registration metadata forwarded to the platform during sync.
type CommandEntry struct {
	Path    string
	Schema  json.RawMessage
	Handler Handler
}

// componentEntry keeps registration order for prefix matching.
type componentEntry struct {
	id      string
	handler Handler
}

// Registry maps declared command, menu, and component identities to
// handlers. It is populated at startup and frozen before any transport is
// activated; lookups are lock-free because nothing mutates after Freeze.
type Registry struct {
	frozen atomic.Bool

	commands      map[string]CommandEntry
	userMenus     map[string]CommandEntry
	messageMenus  map[string]CommandEntry
	autocompletes map[string]Handler

	componentByID  map[string]Handler
	componentOrder []componentEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands:      make(map[string]CommandEntry),
		userMenus:     make(map[string]CommandEntry),
		messageMenus:  make(map[string]CommandEntry),
		autocompletes: make(map[string]Handler),
		componentByID: make(map[string]Handler),
	}
}

// RegisterCommand binds a handler to a full command path ("name",
// "name sub", or "name group sub"). Schema is opaque to the engine.
func (r *Registry) RegisterCommand(path string, schema json.RawMessage, h Handler) error {
	path = strings.Join(strings.Fields(path), " ")
	if err := r.checkOpen(); err != nil {
		return err
	}
	if _, ok := r.commands[path]; ok {
		return &DuplicateHandlerError{Kind: interaction.KindCommand, Identity: path}
	}
	r.commands[path] = CommandEntry{Path: path, Schema: schema, Handler: h}
	return nil
}

// RegisterAutocomplete binds a handler to option autocomplete requests for
// a command path. The handler answers with
// RespondWith(interaction.AckAutocompleteResult, choices).
func (r *Registry) RegisterAutocomplete(path string, h Handler) error {
	path = strings.Join(strings.Fields(path), " ")
	if err := r.checkOpen(); err != nil {
		return err
	}
	if _, ok := r.autocompletes[path]; ok {
		return &DuplicateHandlerError{Kind: interaction.KindAutocomplete, Identity: path}
	}
	r.autocompletes[path] = h
	return nil
}

// RegisterContextMenu binds a handler to a user or message context menu name.
func (r *Registry) RegisterContextMenu(name string, kind interaction.Kind, schema json.RawMessage, h Handler) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	var menus map[string]CommandEntry
	switch kind {
	case interaction.KindUserMenu:
		menus = r.userMenus
	case interaction.KindMessageMenu:
		menus = r.messageMenus
	default:
		return &DuplicateHandlerError{Kind: kind, Identity: name}
	}
	if _, ok := menus[name]; ok {
		return &DuplicateHandlerError{Kind: kind, Identity: name}
	}
	menus[name] = CommandEntry{Path: name, Schema: schema, Handler: h}
	return nil
}

// RegisterComponent binds a handler to a component (or modal) custom
// identifier. The same identifier doubles as a prefix pattern at lookup
// time: an inbound custom ID with no exact match resolves to the first
// registered identifier it starts with.
func (r *Registry) RegisterComponent(customID string, h Handler) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	if _, ok := r.componentByID[customID]; ok {
		return &DuplicateHandlerError{Kind: interaction.KindComponent, Identity: customID}
	}
	r.componentByID[customID] = h
	r.componentOrder = append(r.componentOrder, componentEntry{id: customID, handler: h})
	return nil
}

// Freeze marks the registry read-only. Transports must only be started
// against a frozen registry.
func (r *Registry) Freeze() {
	r.frozen.Store(true)
}

// Frozen reports whether registration is closed.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

func (r *Registry) checkOpen() error {
	if r.frozen.Load() {
		return ErrRegistryFrozen
	}
	return nil
}

// Lookup resolves an identity of the given kind to its handler. Commands,
// menus, and autocompletes match exactly on the full path; components and
// modal submits match exactly first, then by registered prefix in
// registration order.
func (r *Registry) Lookup(kind interaction.Kind, identity string) (Handler, bool) {
	switch kind {
	case interaction.KindCommand:
		if e, ok := r.commands[identity]; ok {
			return e.Handler, true
		}
	case interaction.KindUserMenu:
		if e, ok := r.userMenus[identity]; ok {
			return e.Handler, true
		}
	case interaction.KindMessageMenu:
		if e, ok := r.messageMenus[identity]; ok {
			return e.Handler, true
		}
	case interaction.KindAutocomplete:
		if h, ok := r.autocompletes[identity]; ok {
			return h, true
		}
	case interaction.KindComponent, interaction.KindModalSubmit:
		if h, ok := r.componentByID[identity]; ok {
			return h, true
		}
		for _, e := range r.componentOrder {
			if strings.HasPrefix(identity, e.id) {
				return e.handler, true
			}
		}
	}
	return nil, false
}

// CommandSchemas returns the declared schemas of all commands and menus
// that carry one, for bulk registration with the platform. Order is
// deterministic (sorted by identity) so the sync cache digest is stable
// across restarts.
func (r *Registry) CommandSchemas() []json.RawMessage {
	var entries []CommandEntry
	for _, set := range []map[string]CommandEntry{r.commands, r.userMenus, r.messageMenus} {
		for _, e := range set {
			if len(e.Schema) > 0 {
				entries = append(entries, e)
			}
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	schemas := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		schemas = append(schemas, e.Schema)
	}
	return schemas
}
