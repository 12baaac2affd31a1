package loopmetrics

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/loopmetrics/loopmetrics-go/pkg/config"
	"github.com/loopmetrics/loopmetrics-go/pkg/identity"
	"github.com/loopmetrics/loopmetrics-go/pkg/session"
)

func TestSettingsApplyDefaults(t *testing.T) {
	s := &Settings{}
	s.ApplyDefaults()

	if s.BaseURL != config.DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", s.BaseURL, config.DefaultBaseURL)
	}
	if s.GeolocationURL != config.DefaultGeolocationURL {
		t.Errorf("GeolocationURL = %q, want %q", s.GeolocationURL, config.DefaultGeolocationURL)
	}
	if s.HTTPClient == nil || !s.ownsHTTPClient {
		t.Error("expected a default HTTP client owned by the settings")
	}
	if s.MaxInFlight != config.DefaultMaxInFlight {
		t.Errorf("MaxInFlight = %d, want %d", s.MaxInFlight, config.DefaultMaxInFlight)
	}
	if s.ShutdownTimeout != config.DefaultShutdownTimeout {
		t.Errorf("ShutdownTimeout = %v, want %v", s.ShutdownTimeout, config.DefaultShutdownTimeout)
	}
	if s.Logger == nil || s.Clock == nil || s.Environment == nil {
		t.Error("expected logger, clock and environment defaults")
	}
}

func TestSettingsApplyDefaults_KeepsExplicitValues(t *testing.T) {
	hc := &http.Client{}
	s := &Settings{}
	for _, opt := range []Option{
		WithBaseURL("https://example.test"),
		WithHTTPClient(hc),
		WithMaxInFlight(4),
		WithShutdownTimeout(5 * time.Second),
		WithEnvironment(session.StaticEnvironment{OSName: "Linux"}),
	} {
		opt(s)
	}
	s.ApplyDefaults()

	if s.BaseURL != "https://example.test" {
		t.Errorf("BaseURL = %q", s.BaseURL)
	}
	if s.HTTPClient != hc || s.ownsHTTPClient {
		t.Error("explicit HTTP client should be kept and not owned")
	}
	if s.MaxInFlight != 4 {
		t.Errorf("MaxInFlight = %d, want 4", s.MaxInFlight)
	}
	if name, _ := s.Environment.OS(); name != "Linux" {
		t.Errorf("Environment OS = %q, want Linux", name)
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{name: "defaults", wantErr: false},
		{name: "bad base url", opts: []Option{WithBaseURL("::")}, wantErr: true},
		{name: "relative base url", opts: []Option{WithBaseURL("/v1")}, wantErr: true},
		{name: "negative in-flight", opts: []Option{WithMaxInFlight(-1)}, wantErr: true},
		{name: "too many in-flight", opts: []Option{WithMaxInFlight(config.MaxMaxInFlight + 1)}, wantErr: true},
		{name: "short shutdown", opts: []Option{WithShutdownTimeout(time.Millisecond)}, wantErr: true},
		{name: "negative timeout", opts: []Option{WithTimeout(-time.Second)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Settings{}
			for _, opt := range tt.opts {
				opt(s)
			}
			s.ApplyDefaults()
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSettingsIdentityStorage(t *testing.T) {
	mem := identity.NewMemoryStorage()
	s := &Settings{Storage: mem}
	got, err := s.identityStorage()
	if err != nil || got != mem {
		t.Errorf("identityStorage() = %v, %v; want configured storage", got, err)
	}

	s = &Settings{IdentityDir: t.TempDir()}
	got, err = s.identityStorage()
	if err != nil {
		t.Fatalf("identityStorage() error = %v", err)
	}
	if _, ok := got.(*identity.FileStorage); !ok {
		t.Errorf("identityStorage() = %T, want *identity.FileStorage", got)
	}
}

func TestSettingsRequestHooks(t *testing.T) {
	s := &Settings{}
	s.ApplyDefaults()
	if hooks := s.requestHooks(); len(hooks) != 0 {
		t.Errorf("requestHooks() = %d hooks, want 0", len(hooks))
	}

	user := HTTPHookFunc{}
	s = &Settings{
		Debug:   true,
		Headers: map[string]string{"X-App": "web"},
	}
	WithHTTPHooks(user)(s)
	s.ApplyDefaults()
	if hooks := s.requestHooks(); len(hooks) != 3 {
		t.Errorf("requestHooks() = %d hooks, want 3", len(hooks))
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		config    *Config
		wantErr   error
		wantField string
	}{
		{name: "nil", config: nil, wantErr: ErrNilConfig},
		{name: "missing api key", config: &Config{}, wantErr: ErrMissingAPIKey},
		{name: "api key only", config: &Config{APIKey: "k"}},
		{
			name:      "tenant without id",
			config:    &Config{APIKey: "k", Tenant: &TenantConfig{CompanyName: "Acme"}},
			wantField: "tenant.distinctId",
		},
		{
			name:      "tenant without company",
			config:    &Config{APIKey: "k", Tenant: &TenantConfig{DistinctID: "acme"}},
			wantField: "tenant.companyName",
		},
		{
			name:      "bad email",
			config:    &Config{APIKey: "k", User: &UserConfig{Email: "not-an-email"}},
			wantField: "user.email",
		},
		{
			name:   "user without distinct id",
			config: &Config{APIKey: "k", User: &UserConfig{FirstName: "Jane"}},
		},
		{
			name: "nested user property",
			config: &Config{APIKey: "k", User: &UserConfig{
				Properties: Properties{"tags": []string{"a"}},
			}},
			wantField: "user.properties.tags",
		},
		{
			name: "scalar properties",
			config: &Config{APIKey: "k",
				Tenant: &TenantConfig{DistinctID: "acme", CompanyName: "Acme", Properties: Properties{"seats": 10, "trial": true}},
				User:   &UserConfig{DistinctID: "u1", Properties: Properties{"score": 1.5, "plan": "pro"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
				}
			case tt.wantField != "":
				verr, ok := AsValidationError(err)
				if !ok {
					t.Fatalf("Validate() error = %v, want *ValidationError", err)
				}
				if verr.Field != tt.wantField {
					t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
				}
			default:
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
			}
		})
	}
}

func TestPropertiesValidate(t *testing.T) {
	valid := Properties{"s": "x", "b": true, "i": 1, "u": uint8(2), "f": 3.5}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	var nilProps Properties
	if err := nilProps.Validate(); err != nil {
		t.Errorf("nil Validate() error = %v", err)
	}

	for _, bad := range []any{nil, []int{1}, map[string]any{}, struct{}{}} {
		if err := (Properties{"k": bad}).Validate(); err == nil {
			t.Errorf("Validate(%T) error = nil, want error", bad)
		}
	}
}

func TestConfigClone(t *testing.T) {
	orig := &Config{
		APIKey: "k",
		Tenant: &TenantConfig{DistinctID: "acme", CompanyName: "Acme", Properties: Properties{"a": 1}},
		User:   &UserConfig{DistinctID: "u1"},
	}
	c := orig.clone()
	c.Tenant.CompanyName = "Other"
	c.Tenant.Properties["a"] = 2
	c.User.DistinctID = "u2"

	if orig.Tenant.CompanyName != "Acme" || orig.Tenant.Properties["a"] != 1 || orig.User.DistinctID != "u1" {
		t.Error("clone shares state with the original")
	}
}

func TestUserConfigMerge(t *testing.T) {
	held := &UserConfig{
		DistinctID: "u1",
		FirstName:  "Jane",
		Email:      "jane@acme.test",
		Properties: Properties{"plan": "free"},
	}

	got := held.merge(UserConfig{LastName: "Doe"})
	if got.DistinctID != "u1" || got.FirstName != "Jane" || got.LastName != "Doe" {
		t.Errorf("merge() = %+v", got)
	}
	if got.Properties["plan"] != "free" {
		t.Error("nil patch properties should keep the held map")
	}

	got = held.merge(UserConfig{Properties: Properties{}})
	if got.Properties == nil || len(got.Properties) != 0 {
		t.Errorf("empty patch properties should replace the held map, got %v", got.Properties)
	}

	var none *UserConfig
	if got := none.merge(UserConfig{DistinctID: "u2"}); got.DistinctID != "u2" {
		t.Errorf("merge on nil = %+v", got)
	}
}

func TestTenantConfigMerge(t *testing.T) {
	held := &TenantConfig{DistinctID: "acme", CompanyName: "Acme"}
	got := held.merge(TenantConfig{CompanyName: "Acme Corp.", Properties: Properties{"seats": 5}})

	if got.DistinctID != "acme" || got.CompanyName != "Acme Corp." || got.Properties["seats"] != 5 {
		t.Errorf("merge() = %+v", got)
	}
	if held.CompanyName != "Acme" {
		t.Error("merge must not modify the held config")
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := map[string]string{
		"":                         "",
		"short":                    "****",
		"lm_live_1234567890abcdef": "********************cdef",
	}
	for in, want := range tests {
		if got := MaskAPIKey(in); got != want {
			t.Errorf("MaskAPIKey(%q) = %q, want %q", in, got, want)
		}
	}
}
