package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/karpool/karpool-client/internal/domain/request"
)

type joinBody struct {
	TripID      int64 `json:"tripId"`
	PassengerID int64 `json:"passengerId"`
}

type respondBody struct {
	TripID    int64 `json:"tripId"`
	RequestID int64 `json:"requestId"`
}

// SubmitJoinRequest asks the driver of tripID to take passengerID along
func (c *Client) SubmitJoinRequest(ctx context.Context, tripID, passengerID int64) error {
	return c.doJSON(ctx, call{
		method:   http.MethodPost,
		path:     "/passenger/tripJoinReq",
		endpoint: "/passenger/tripJoinReq",
		auth:     true,
		body:     joinBody{TripID: tripID, PassengerID: passengerID},
	}, nil)
}

// TripRequests lists the join requests for a trip the driver owns
func (c *Client) TripRequests(ctx context.Context, tripID int64) ([]request.JoinRequest, error) {
	body, err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     fmt.Sprintf("/driver/trips/%d/requests", tripID),
		endpoint: "/driver/trips/:id/requests",
		auth:     true,
	})
	if err != nil {
		return nil, err
	}
	return decodeList[request.JoinRequest](body, "tripRequests", "requests")
}

// AcceptRequest accepts a pending join request
func (c *Client) AcceptRequest(ctx context.Context, tripID, requestID int64) error {
	return c.doJSON(ctx, call{
		method:   http.MethodPost,
		path:     "/driver/acceptPassengerReq",
		endpoint: "/driver/acceptPassengerReq",
		auth:     true,
		body:     respondBody{TripID: tripID, RequestID: requestID},
	}, nil)
}

// RejectRequest rejects a pending join request
func (c *Client) RejectRequest(ctx context.Context, tripID, requestID int64) error {
	return c.doJSON(ctx, call{
		method:   http.MethodPost,
		path:     "/driver/rejectPassengerReq",
		endpoint: "/driver/rejectPassengerReq",
		auth:     true,
		body:     respondBody{TripID: tripID, RequestID: requestID},
	}, nil)
}
