package interaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Ping(t *testing.T) {
	inter, err := Decode([]byte(`{"id":"1","type":1,"token":"t"}`), TransportPull)
	require.NoError(t, err)
	assert.Equal(t, KindPing, inter.Kind)
	assert.Equal(t, TransportPull, inter.Transport)
}

func TestDecode_BareCommand(t *testing.T) {
	body := `{
		"id": "2", "application_id": "app", "type": 2, "token": "t",
		"guild_id": "g", "channel_id": "c",
		"data": {"name": "ban", "type": 1, "options": [{"name": "user", "type": 6}]}
	}`
	inter, err := Decode([]byte(body), TransportPush)
	require.NoError(t, err)
	assert.Equal(t, KindCommand, inter.Kind)
	assert.Equal(t, "ban", inter.CommandPath)
	assert.Equal(t, "ban", inter.Identity())
	assert.Equal(t, "app", inter.ApplicationID)
	assert.Equal(t, "g", inter.GuildID)
}

func TestDecode_SubcommandPath(t *testing.T) {
	body := `{
		"id": "3", "type": 2, "token": "t",
		"data": {"name": "config", "type": 1, "options": [
			{"name": "set", "type": 1, "options": [{"name": "key", "type": 3}]}
		]}
	}`
	inter, err := Decode([]byte(body), TransportPull)
	require.NoError(t, err)
	assert.Equal(t, "config set", inter.CommandPath)
}

func TestDecode_SubcommandGroupPath(t *testing.T) {
	body := `{
		"id": "4", "type": 2, "token": "t",
		"data": {"name": "perms", "type": 1, "options": [
			{"name": "role", "type": 2, "options": [
				{"name": "grant", "type": 1, "options": []}
			]}
		]}
	}`
	inter, err := Decode([]byte(body), TransportPull)
	require.NoError(t, err)
	assert.Equal(t, "perms role grant", inter.CommandPath)
}

func TestDecode_PlainOptionsDoNotExtendPath(t *testing.T) {
	body := `{
		"id": "5", "type": 2, "token": "t",
		"data": {"name": "say", "type": 1, "options": [{"name": "text", "type": 3}]}
	}`
	inter, err := Decode([]byte(body), TransportPull)
	require.NoError(t, err)
	assert.Equal(t, "say", inter.CommandPath)
}

func TestDecode_UserMenu(t *testing.T) {
	body := `{"id":"6","type":2,"token":"t","data":{"name":"Inspect","type":2,"target_id":"u1"}}`
	inter, err := Decode([]byte(body), TransportPush)
	require.NoError(t, err)
	assert.Equal(t, KindUserMenu, inter.Kind)
	assert.Equal(t, "Inspect", inter.CommandPath)
}

func TestDecode_MessageMenu(t *testing.T) {
	body := `{"id":"7","type":2,"token":"t","data":{"name":"Report","type":3}}`
	inter, err := Decode([]byte(body), TransportPush)
	require.NoError(t, err)
	assert.Equal(t, KindMessageMenu, inter.Kind)
}

func TestDecode_Component(t *testing.T) {
	body := `{"id":"8","type":3,"token":"t","data":{"custom_id":"confirm:yes","component_type":2}}`
	inter, err := Decode([]byte(body), TransportPull)
	require.NoError(t, err)
	assert.Equal(t, KindComponent, inter.Kind)
	assert.Equal(t, "confirm:yes", inter.CustomID)
	assert.Equal(t, "confirm:yes", inter.Identity())
}

func TestDecode_ModalSubmit(t *testing.T) {
	body := `{"id":"9","type":5,"token":"t","data":{"custom_id":"feedback:form"}}`
	inter, err := Decode([]byte(body), TransportPull)
	require.NoError(t, err)
	assert.Equal(t, KindModalSubmit, inter.Kind)
	assert.Equal(t, "feedback:form", inter.CustomID)
}

func TestDecode_DataIsOpaquePassThrough(t *testing.T) {
	body := `{"id":"10","type":2,"token":"t","data":{"name":"x","type":1,"resolved":{"users":{}}}}`
	inter, err := Decode([]byte(body), TransportPull)
	require.NoError(t, err)
	assert.Contains(t, string(inter.Data), "resolved")
}

func TestDecode_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":             `{{{`,
		"missing type":         `{"id":"1"}`,
		"command without name": `{"id":"1","type":2,"data":{}}`,
		"component without id": `{"id":"1","type":3,"data":{}}`,
		"modal without id":     `{"id":"1","type":5,"data":{}}`,
		"unsupported type":     `{"id":"1","type":99}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(body), TransportPull)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}
