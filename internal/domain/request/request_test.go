package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestJoinRequest_Actions tests which controls each status exposes
func TestJoinRequest_Actions(t *testing.T) {
	tests := []struct {
		name       string
		status     Status
		actions    []Action
		canRespond bool
	}{
		{name: "Pending", status: StatusPending, actions: []Action{ActionAccept, ActionReject}, canRespond: true},
		{name: "Accepted", status: StatusAccepted, actions: []Action{ActionChat, ActionCall}, canRespond: false},
		{name: "Rejected", status: StatusRejected, actions: nil, canRespond: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := JoinRequest{ID: 7, Status: tt.status}
			assert.Equal(t, tt.actions, r.Actions())
			assert.Equal(t, tt.canRespond, r.CanRespond())
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.True(t, StatusAccepted.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.False(t, Status("CANCELLED").IsValid())
}
