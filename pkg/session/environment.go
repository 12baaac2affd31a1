package session

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/mileusna/useragent"
	"github.com/shirou/gopsutil/v4/host"
)

// Environment reports the browser and operating system of the client.
// Empty strings mean the value is unknown.
type Environment interface {
	Browser() (name, major string)
	OS() (name, version string)
}

// hostLookupTimeout bounds the one-time host information lookup.
const hostLookupTimeout = 2 * time.Second

// HostEnvironment describes the machine running the process. A Go process
// has no browser, so Browser always reports empty values. The OS lookup runs
// once and is cached.
type HostEnvironment struct {
	once      sync.Once
	osName    string
	osVersion string
}

// NewHostEnvironment returns an Environment for the current host.
func NewHostEnvironment() *HostEnvironment {
	return &HostEnvironment{}
}

// Browser implements Environment.
func (e *HostEnvironment) Browser() (string, string) {
	return "", ""
}

// OS implements Environment. The platform reported by the host is used when
// available, otherwise the GOOS the binary was built for.
func (e *HostEnvironment) OS() (string, string) {
	e.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), hostLookupTimeout)
		defer cancel()

		info, err := host.InfoWithContext(ctx)
		if err != nil || info.Platform == "" {
			e.osName = runtime.GOOS
			return
		}
		e.osName = info.Platform
		e.osVersion = info.PlatformVersion
	})
	return e.osName, e.osVersion
}

// UserAgentEnvironment describes a browser identified by its User-Agent
// header, for servers reporting on behalf of a browser client.
type UserAgentEnvironment struct {
	ua useragent.UserAgent
}

// NewUserAgentEnvironment parses the given User-Agent string.
func NewUserAgentEnvironment(userAgent string) *UserAgentEnvironment {
	return &UserAgentEnvironment{ua: useragent.Parse(userAgent)}
}

// Browser implements Environment. Only the major version is reported.
func (e *UserAgentEnvironment) Browser() (string, string) {
	major, _, _ := strings.Cut(e.ua.Version, ".")
	return e.ua.Name, major
}

// OS implements Environment.
func (e *UserAgentEnvironment) OS() (string, string) {
	return e.ua.OS, e.ua.OSVersion
}

// StaticEnvironment reports fixed values.
type StaticEnvironment struct {
	BrowserName    string
	BrowserVersion string
	OSName         string
	OSVersion      string
}

// Browser implements Environment.
func (e StaticEnvironment) Browser() (string, string) {
	return e.BrowserName, e.BrowserVersion
}

// OS implements Environment.
func (e StaticEnvironment) OS() (string, string) {
	return e.OSName, e.OSVersion
}

var (
	_ Environment = (*HostEnvironment)(nil)
	_ Environment = (*UserAgentEnvironment)(nil)
	_ Environment = StaticEnvironment{}
)
