package lobby_test

import (
	"testing"

	"github.com/goliatone/go-lobby"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]lobby.AttemptState{
		{lobby.AttemptIdle, lobby.AttemptValidating},
		{lobby.AttemptValidating, lobby.AttemptAwaitingProvider},
		{lobby.AttemptValidating, lobby.AttemptFailed},
		{lobby.AttemptAwaitingProvider, lobby.AttemptAwaitingBackendRecord},
		{lobby.AttemptAwaitingProvider, lobby.AttemptFailed},
		{lobby.AttemptAwaitingBackendRecord, lobby.AttemptSucceeded},
		{lobby.AttemptAwaitingBackendRecord, lobby.AttemptFailed},
	}
	for _, tr := range allowed {
		assert.True(t, lobby.CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	rejected := [][2]lobby.AttemptState{
		{lobby.AttemptIdle, lobby.AttemptAwaitingProvider},
		{lobby.AttemptValidating, lobby.AttemptSucceeded},
		{lobby.AttemptAwaitingProvider, lobby.AttemptSucceeded},
		{lobby.AttemptFailed, lobby.AttemptValidating},
		{lobby.AttemptSucceeded, lobby.AttemptValidating},
		{lobby.AttemptIdle, lobby.AttemptFailed},
	}
	for _, tr := range rejected {
		assert.False(t, lobby.CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
}
