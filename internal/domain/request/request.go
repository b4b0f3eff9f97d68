package request

// Status is the backend status of a passenger join request
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
)

// Action is something the UI may offer for a request
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
	ActionChat   Action = "chat"
	ActionCall   Action = "call"
)

// JoinRequest represents one passenger's request to join a trip
type JoinRequest struct {
	ID            int64  `json:"requestId"`
	TripID        int64  `json:"tripId"`
	PassengerID   int64  `json:"passengerId"`
	PassengerName string `json:"passengerName"`
	Status        Status `json:"status"`
}

// IsValid validates the status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// IsTerminal returns true once no client transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// CanRespond checks if the driver may still accept or reject the request
func (r *JoinRequest) CanRespond() bool {
	return r.Status == StatusPending
}

// Actions returns the controls rendered for the request
func (r *JoinRequest) Actions() []Action {
	switch r.Status {
	case StatusPending:
		return []Action{ActionAccept, ActionReject}
	case StatusAccepted:
		return []Action{ActionChat, ActionCall}
	}
	return nil
}
