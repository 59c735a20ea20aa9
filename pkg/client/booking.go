package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/nonsir1/Roomly/pkg/errors"
	"github.com/nonsir1/Roomly/pkg/model"
)

// BookingClient talks to the bookings service. It implements the collaborator
// contract the scheduling core submits through.
type BookingClient struct {
	httpClient *HttpClient
	userID     string
	userRole   string
}

func NewBookingClient(baseURL string) *BookingClient {
	return &BookingClient{
		httpClient: NewHttpClient(baseURL),
	}
}

// As sets the identity headers sent with mutating requests.
func (c *BookingClient) As(userID, role string) *BookingClient {
	c.userID = userID
	c.userRole = role
	return c
}

func (c *BookingClient) FetchForRoom(ctx context.Context, roomID string, day model.TimeRange) ([]*model.Booking, error) {
	q := url.Values{}
	q.Set("start_date", day.Start.Format(time.RFC3339))
	q.Set("end_date", day.End.Format(time.RFC3339))

	path := "/api/v1/bookings/room/" + url.PathEscape(roomID) + "?" + q.Encode()
	resp, err := c.httpClient.requestWithHeaders(ctx, http.MethodGet, path, nil, c.identityHeaders())
	if err != nil {
		return nil, apperrors.Internal("bookings service unreachable", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var wrapper struct {
		Data []*model.Booking `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return nil, fmt.Errorf("could not decode booking list:\n%s\n%w", resp.ToString(), err)
	}
	return wrapper.Data, nil
}

func (c *BookingClient) Create(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	resp, err := c.httpClient.requestWithHeaders(ctx, http.MethodPost, "/api/v1/bookings", booking, c.identityHeaders())
	if err != nil {
		return nil, apperrors.Internal("bookings service unreachable", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, decodeError(resp)
	}
	return decodeBooking(resp)
}

func (c *BookingClient) Update(ctx context.Context, id string, booking *model.Booking) (*model.Booking, error) {
	path := "/api/v1/bookings/id/" + url.PathEscape(id)
	resp, err := c.httpClient.requestWithHeaders(ctx, http.MethodPut, path, booking, c.identityHeaders())
	if err != nil {
		return nil, apperrors.Internal("bookings service unreachable", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	return decodeBooking(resp)
}

func (c *BookingClient) Delete(ctx context.Context, id string) error {
	path := "/api/v1/bookings/id/" + url.PathEscape(id)
	resp, err := c.httpClient.requestWithHeaders(ctx, http.MethodDelete, path, nil, c.identityHeaders())
	if err != nil {
		return apperrors.Internal("bookings service unreachable", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		return decodeError(resp)
	}
	return nil
}

func (c *BookingClient) identityHeaders() map[string]string {
	headers := map[string]string{}
	if c.userID != "" {
		headers["X-User-ID"] = c.userID
	}
	if c.userRole != "" {
		headers["X-User-Role"] = c.userRole
	}
	return headers
}

func decodeBooking(resp *Response) (*model.Booking, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return nil, fmt.Errorf("could not decode booking wrapper:\n%s\n%w", resp.ToString(), err)
	}

	var booking model.Booking
	if err := json.Unmarshal(wrapper.Data, &booking); err != nil {
		return nil, fmt.Errorf("could not decode booking json:\n%s\n%w", resp.ToString(), err)
	}
	return &booking, nil
}

// decodeError maps a non-2xx response to the shared error taxonomy so callers
// can distinguish commit-time conflicts from vanished bookings and transport
// failures.
func decodeError(resp *Response) error {
	msg := GetErrorMessage(resp)

	switch resp.StatusCode {
	case http.StatusConflict:
		return apperrors.Conflict(msg)
	case http.StatusNotFound:
		return apperrors.NotFound("Booking")
	case http.StatusForbidden:
		return apperrors.Forbidden(msg)
	case http.StatusBadRequest:
		return apperrors.InvalidInput(msg)
	case http.StatusUnprocessableEntity:
		return apperrors.Validation(msg, nil)
	default:
		return apperrors.Internal(msg, nil)
	}
}
