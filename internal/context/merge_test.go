package context

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgentContext_Merge(t *testing.T) {
	stored := AgentContext{
		Task:          &Task{ID: "T-stored"},
		Ticket:        &Ticket{Number: 7},
		History:       []HistoryEntry{{Role: "user", Content: "stored"}},
		Supplementary: map[string]any{"sync_state": "clean", "notes": "stored"},
	}

	got := AgentContext{
		Task:          &Task{ID: "T-req"},
		Supplementary: map[string]any{"notes": "request"},
	}.Merge(stored)

	assert.Equal(t, "T-req", got.Task.ID)
	assert.Equal(t, 7, got.Ticket.Number)
	assert.Nil(t, got.Plan)
	assert.Equal(t, "stored", got.History[0].Content)
	assert.Equal(t, map[string]any{"sync_state": "clean", "notes": "request"}, got.Supplementary)

	empty := AgentContext{}.Merge(AgentContext{})
	assert.Nil(t, empty.Supplementary)
}
