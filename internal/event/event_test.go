package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	cases := []struct {
		ev   Event
		want Type
	}{
		{Starting(), TypeStarting},
		{Started(), TypeStarted},
		{Stopping(), TypeStopping},
		{Stopped(0), TypeStopped},
		{Crashed(137), TypeCrashed},
		{StatusChanged("starting", "running"), TypeStatusChanged},
		{PlayerJoined("Alice"), TypePlayerJoined},
		{PlayerLeft("Alice"), TypePlayerLeft},
		{OutputProduced("a line"), TypeOutputProduced},
		{CommandAccepted("say hi"), TypeCommandAccepted},
		{ErrorDetected("ERROR: boom"), TypeErrorDetected},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.ev.Type)
		assert.False(t, c.ev.OccurredAt.IsZero(), "occurred_at unset for %s", c.want)
	}

	assert.Equal(t, 137, Crashed(137).ExitCode)
	assert.Equal(t, "Alice", PlayerJoined("Alice").Player)
	sc := StatusChanged("starting", "running")
	assert.Equal(t, "starting", sc.OldStatus)
	assert.Equal(t, "running", sc.NewStatus)
}

func TestJSON_OmitsUnusedFields(t *testing.T) {
	ev := Started()
	ev.ServerID = "lobby"
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "started", m["type"])
	assert.Equal(t, "lobby", m["server_id"])
	assert.NotContains(t, m, "player")
	assert.NotContains(t, m, "exit_code")
	assert.NotContains(t, m, "line")
}
