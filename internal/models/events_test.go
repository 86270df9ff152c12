package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewEventEnvelopeShape(t *testing.T) {
	event, err := NewEvent(EventNewMessage, Message{ID: 3, Texto: "hola"})
	require.NoError(t, err)

	body, err := json.Marshal(event)
	require.NoError(t, err)
	require.Contains(t, string(body), `"event":"newMessage"`)
	require.Contains(t, string(body), `"texto":"hola"`)
}

func TestDecodeServerEventNewMessage(t *testing.T) {
	raw := []byte(`{"event":"newMessage","data":{"id":3,"texto":"hola","usuario":{"id":1,"nombre":"ana"},"grupo":{"id":9,"nombre":"Padel Thursdays"}}}`)

	ev, err := DecodeServerEvent(raw)
	require.NoError(t, err)
	require.Equal(t, EventNewMessage, ev.Name)
	require.NotNil(t, ev.Message)
	require.Equal(t, "hola", ev.Message.Texto)
	require.Equal(t, "ana", ev.Message.Usuario.Nombre)
	require.Equal(t, 9, ev.Message.Grupo.ID)
}

func TestDecodeServerEventGroupVariants(t *testing.T) {
	raw := []byte(`{"event":"updatedGroup","data":{"id":5,"nombre":"Padel Thursdays","usuariogrupo":[{"id":1,"usuario":{"id":1,"nombre":"ana"}}]}}`)

	ev, err := DecodeServerEvent(raw)
	require.NoError(t, err)
	require.Equal(t, EventUpdatedGroup, ev.Name)
	require.NotNil(t, ev.Group)
	require.True(t, ev.Group.HasMember(1))
	require.False(t, ev.Group.HasMember(2))
}

func TestDecodeServerEventDeletedGroup(t *testing.T) {
	ev, err := DecodeServerEvent([]byte(`{"event":"deletedGroup","data":{"id":4}}`))
	require.NoError(t, err)
	require.Equal(t, 4, ev.DeletedGroup.ID)
}

func TestDecodeServerEventUnknownName(t *testing.T) {
	_, err := DecodeServerEvent([]byte(`{"event":"mystery","data":{}}`))
	require.Error(t, err)
}

func TestDecodeServerEventBadEnvelope(t *testing.T) {
	_, err := DecodeServerEvent([]byte(`not json`))
	require.Error(t, err)
}
