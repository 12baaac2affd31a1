package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// IdentityBackend selects where the distinct user ID is persisted.
type IdentityBackend string

const (
	IdentityBackendFile   IdentityBackend = "file"
	IdentityBackendBadger IdentityBackend = "badger"
	IdentityBackendMemory IdentityBackend = "memory"
)

// File is the on-disk configuration read from .loopmetrics.yaml.
type File struct {
	APIKey      string            `yaml:"api_key"`
	BaseURL     string            `yaml:"base_url"`
	Debug       bool              `yaml:"debug"`
	Tenant      *TenantFile       `yaml:"tenant"`
	User        *UserFile         `yaml:"user"`
	Identity    IdentityFile      `yaml:"identity"`
	Geolocation GeolocationFile   `yaml:"geolocation"`
	Headers     map[string]string `yaml:"headers"`
}

// TenantFile describes the tenant reported at init.
type TenantFile struct {
	DistinctID  string         `yaml:"distinct_id"`
	CompanyName string         `yaml:"company_name"`
	Properties  map[string]any `yaml:"properties"`
}

// UserFile describes the user reported at init.
type UserFile struct {
	DistinctID string         `yaml:"distinct_id"`
	FirstName  string         `yaml:"first_name"`
	LastName   string         `yaml:"last_name"`
	Email      string         `yaml:"email"`
	Properties map[string]any `yaml:"properties"`
}

// IdentityFile configures identity persistence.
type IdentityFile struct {
	Backend IdentityBackend `yaml:"backend"`
	Path    string          `yaml:"path"`
}

// GeolocationFile configures the geolocation lookup.
type GeolocationFile struct {
	URL      string `yaml:"url"`
	Disabled bool   `yaml:"disabled"`
}

// DefaultFile returns the configuration used when no file is present.
func DefaultFile() *File {
	return &File{
		BaseURL: DefaultBaseURL,
		Identity: IdentityFile{
			Backend: IdentityBackendFile,
		},
		Geolocation: GeolocationFile{
			URL: DefaultGeolocationURL,
		},
	}
}

// FileNames are the configuration file names searched for, in order.
var FileNames = []string{
	".loopmetrics.yaml",
	".loopmetrics.yml",
}

// LoadFile reads configuration from path on top of DefaultFile. An empty
// path searches the working directory and its parents for FileNames; when
// nothing is found the defaults are returned.
func LoadFile(path string) (*File, error) {
	cfg := DefaultFile()

	if path == "" {
		path = FindFile()
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loopmetrics: failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("loopmetrics: failed to parse config file %s: %w", path, err)
	}

	cfg.APIKey = ExpandEnv(cfg.APIKey)
	for k, v := range cfg.Headers {
		cfg.Headers[k] = ExpandEnv(v)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be defaulted.
func (f *File) Validate() error {
	switch f.Identity.Backend {
	case "", IdentityBackendFile, IdentityBackendBadger, IdentityBackendMemory:
	default:
		return fmt.Errorf("loopmetrics: unknown identity backend %q", f.Identity.Backend)
	}
	if f.Tenant != nil && (f.Tenant.DistinctID == "" || f.Tenant.CompanyName == "") {
		return fmt.Errorf("loopmetrics: tenant requires distinct_id and company_name")
	}
	return nil
}

// FindFile searches the working directory and its parents for a
// configuration file and returns its path, or "" when none exists.
func FindFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

var envRef = regexp.MustCompile(`\$\{?([A-Za-z_][A-Za-z0-9_]*)\}?`)

// ExpandEnv expands ${VAR} and $VAR references.
func ExpandEnv(s string) string {
	if s == "" {
		return s
	}
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimPrefix(match, "${")
		name = strings.TrimPrefix(name, "$")
		name = strings.TrimSuffix(name, "}")
		return os.Getenv(name)
	})
}

// DefaultIdentityDir returns the directory holding the identity file when
// none is configured.
func DefaultIdentityDir() (string, error) {
	if dir := os.Getenv(EnvIdentityDir); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("loopmetrics: no identity directory configured: %w", err)
	}
	return filepath.Join(base, IdentityDirName), nil
}
