// Package track provides the Loopmetrics tracking API client.
package track

import (
	"context"
	"fmt"

	"github.com/loopmetrics/loopmetrics-go/pkg/config"
	"github.com/loopmetrics/loopmetrics-go/pkg/http"
	"github.com/loopmetrics/loopmetrics-go/pkg/session"
)

// Properties are caller-supplied key/value attributes.
type Properties map[string]any

// WithProperties returns the value to place in a request body's properties
// field: nil when the caller supplied no map, so the key is omitted, and the
// map itself otherwise, so an empty map is sent as {}.
func WithProperties(p map[string]any) *Properties {
	if p == nil {
		return nil
	}
	props := Properties(p)
	return &props
}

// TenantBody is the request body for a tenant upsert.
type TenantBody struct {
	ID          string      `json:"id"`
	CompanyName string      `json:"companyName"`
	Properties  *Properties `json:"properties,omitempty"`
}

// TenantResponse is the response to a tenant upsert.
type TenantResponse struct {
	InternalTenantID string `json:"internalTenantId,omitempty"`
}

// UserBody is the request body for a user upsert. Session is only sent by
// the upsert performed at initialization.
type UserBody struct {
	InternalTenantID string           `json:"internalTenantId,omitempty"`
	ID               string           `json:"id"`
	TenantID         string           `json:"tenantId,omitempty"`
	FirstName        string           `json:"firstName,omitempty"`
	LastName         string           `json:"lastName,omitempty"`
	Email            string           `json:"email,omitempty"`
	Session          *session.Session `json:"session,omitempty"`
	Properties       *Properties      `json:"properties,omitempty"`
}

// UserResponse is the response to a user upsert.
type UserResponse struct {
	InternalUserID   string `json:"internalUserId"`
	SessionID        string `json:"sessionId"`
	SessionUpdatedAt string `json:"sessionUpdatedAt"`
}

// EventBody is the request body for a tracked event.
type EventBody struct {
	InternalTenantID string          `json:"internalTenantId,omitempty"`
	InternalUserID   string          `json:"internalUserId"`
	TenantID         string          `json:"tenantId,omitempty"`
	UserID           string          `json:"userId"`
	Name             string          `json:"name"`
	Session          session.Session `json:"session"`
	Properties       *Properties     `json:"properties,omitempty"`
}

// EventResponse is the response to a tracked event.
type EventResponse struct {
	Session struct {
		ID        string `json:"id"`
		UpdatedAt string `json:"updatedAt"`
	} `json:"session"`
}

// Client handles tracking API operations.
type Client struct {
	http http.Doer
}

// New creates a new tracking client with the given HTTP doer.
func New(doer http.Doer) *Client {
	return &Client{http: doer}
}

// UpsertTenant creates or updates a tenant.
func (c *Client) UpsertTenant(ctx context.Context, body TenantBody) (*TenantResponse, error) {
	var res TenantResponse
	if err := c.http.Post(ctx, config.TenantsPath, body, &res); err != nil {
		return nil, fmt.Errorf("upsert tenant %q: %w", body.ID, err)
	}
	return &res, nil
}

// UpsertUser creates or updates a user.
func (c *Client) UpsertUser(ctx context.Context, body UserBody) (*UserResponse, error) {
	var res UserResponse
	if err := c.http.Post(ctx, config.UsersPath, body, &res); err != nil {
		return nil, fmt.Errorf("upsert user %q: %w", body.ID, err)
	}
	return &res, nil
}

// TrackEvent records an event.
func (c *Client) TrackEvent(ctx context.Context, body EventBody) (*EventResponse, error) {
	var res EventResponse
	if err := c.http.Post(ctx, config.EventsPath, body, &res); err != nil {
		return nil, fmt.Errorf("track event %q: %w", body.Name, err)
	}
	return &res, nil
}
