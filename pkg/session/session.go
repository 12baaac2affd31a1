// Package session builds the session descriptor sent with user upserts and
// tracked events.
package session

import (
	"github.com/loopmetrics/loopmetrics-go/pkg/geo"
)

// Session describes the client session. SessionID and UpdatedAt are always
// copied from the most recent backend response; the other fields come from
// the runtime environment and geolocation.
type Session struct {
	SessionID      string `json:"sessionId,omitempty"`
	UpdatedAt      string `json:"updatedAt,omitempty"`
	OS             string `json:"os,omitempty"`
	OSVersion      string `json:"osVersion,omitempty"`
	Browser        string `json:"browser,omitempty"`
	BrowserVersion string `json:"browserVersion,omitempty"`
	Country        string `json:"country,omitempty"`
	Region         string `json:"region,omitempty"`
}

// Build combines environment details and an optional location into a new
// session without a server-assigned ID.
func Build(env Environment, loc *geo.Location) Session {
	var s Session
	if env != nil {
		s.Browser, s.BrowserVersion = env.Browser()
		s.OS, s.OSVersion = env.OS()
	}
	if loc != nil {
		s.Country = loc.Country
		s.Region = loc.Region
	}
	return s
}

// WithServerState returns a copy of s carrying the given session ID and
// update time.
func (s Session) WithServerState(id, updatedAt string) Session {
	s.SessionID = id
	s.UpdatedAt = updatedAt
	return s
}
