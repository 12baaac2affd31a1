package loopmetrics

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/loopmetrics/loopmetrics-go/pkg/errors"
)

// Config is passed to Client.Init. It identifies the API key, and
// optionally the tenant and user this process reports for.
type Config struct {
	// APIKey authenticates every backend request.
	APIKey string `validate:"required"`

	// Tenant, when set, is upserted during Init.
	Tenant *TenantConfig

	// User, when set, is upserted during Init and enables event tracking.
	// An empty DistinctID is replaced by the persisted anonymous ID.
	User *UserConfig
}

// TenantConfig describes a tenant (a customer organisation).
type TenantConfig struct {
	DistinctID  string `validate:"required"`
	CompanyName string `validate:"required"`
	Properties  Properties
}

// UserConfig describes a user.
type UserConfig struct {
	DistinctID string
	FirstName  string
	LastName   string
	Email      string `validate:"omitempty,email"`
	Properties Properties
}

// Properties are custom attributes attached to tenants, users and events.
// Values must be strings, booleans or numbers. A nil map is omitted from
// requests; an empty non-nil map is sent as {}.
type Properties map[string]any

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func configValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the config. Missing required fields and non-scalar
// property values are reported as *ValidationError.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if err := validateStruct(c); err != nil {
		return err
	}
	if c.Tenant != nil {
		if err := c.Tenant.Properties.validate("tenant.properties"); err != nil {
			return err
		}
	}
	if c.User != nil {
		if err := c.User.Properties.validate("user.properties"); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the tenant's required fields and properties.
func (t *TenantConfig) Validate() error {
	if err := validateStruct(t); err != nil {
		return err
	}
	return t.Properties.validate("tenant.properties")
}

// Validate checks the user's fields and properties.
func (u *UserConfig) Validate() error {
	if err := validateStruct(u); err != nil {
		return err
	}
	return u.Properties.validate("user.properties")
}

// Validate reports the first property whose value is not a scalar.
func (p Properties) Validate() error {
	return p.validate("properties")
}

func (p Properties) validate(field string) error {
	for k, v := range p {
		if !isScalar(v) {
			return pkgerrors.NewValidationError(field+"."+k,
				fmt.Sprintf("must be a string, boolean or number, got %T", v))
		}
	}
	return nil
}

func isScalar(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// validateStruct runs the struct tags and converts the first failure to a
// ValidationError.
func validateStruct(s any) error {
	err := configValidator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return pkgerrors.NewValidationErrorWithCause("config", err.Error(), err)
	}
	fe := verrs[0]
	return pkgerrors.NewValidationErrorWithCause(fieldPath(fe.Namespace()), describeTag(fe), err)
}

// fieldPath turns "Config.Tenant.DistinctID" into "tenant.distinctId".
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		switch p {
		case "APIKey":
			parts[i] = "apiKey"
		case "DistinctID":
			parts[i] = "distinctId"
		default:
			if p != "" {
				parts[i] = strings.ToLower(p[:1]) + p[1:]
			}
		}
	}
	return strings.Join(parts, ".")
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// clone returns a deep copy of c. Property maps are copied shallowly.
func (c *Config) clone() *Config {
	out := &Config{APIKey: c.APIKey}
	if c.Tenant != nil {
		t := *c.Tenant
		t.Properties = t.Properties.clone()
		out.Tenant = &t
	}
	if c.User != nil {
		u := *c.User
		u.Properties = u.Properties.clone()
		out.User = &u
	}
	return out
}

func (p Properties) clone() Properties {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// merge overlays the non-empty fields of patch on t. A non-nil patch
// property map replaces the held one.
func (t *TenantConfig) merge(patch TenantConfig) TenantConfig {
	var out TenantConfig
	if t != nil {
		out = *t
	}
	if patch.DistinctID != "" {
		out.DistinctID = patch.DistinctID
	}
	if patch.CompanyName != "" {
		out.CompanyName = patch.CompanyName
	}
	if patch.Properties != nil {
		out.Properties = patch.Properties.clone()
	}
	return out
}

// merge overlays the non-empty fields of patch on u. A non-nil patch
// property map replaces the held one.
func (u *UserConfig) merge(patch UserConfig) UserConfig {
	var out UserConfig
	if u != nil {
		out = *u
	}
	if patch.DistinctID != "" {
		out.DistinctID = patch.DistinctID
	}
	if patch.FirstName != "" {
		out.FirstName = patch.FirstName
	}
	if patch.LastName != "" {
		out.LastName = patch.LastName
	}
	if patch.Email != "" {
		out.Email = patch.Email
	}
	if patch.Properties != nil {
		out.Properties = patch.Properties.clone()
	}
	return out
}
