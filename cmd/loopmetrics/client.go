package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	loopmetrics "github.com/loopmetrics/loopmetrics-go"
	"github.com/loopmetrics/loopmetrics-go/pkg/config"
	"github.com/loopmetrics/loopmetrics-go/pkg/identity"
	"github.com/loopmetrics/loopmetrics-go/pkg/metrics"
)

// storage opens the configured identity backend.
func (a *app) storage() (identity.Storage, error) {
	backend := config.IdentityBackend(a.v.GetString("identity-backend"))
	dir := a.v.GetString("identity-dir")

	if dir == "" && backend != config.IdentityBackendMemory {
		var err error
		if dir, err = config.DefaultIdentityDir(); err != nil {
			return nil, err
		}
		if backend == config.IdentityBackendBadger {
			dir = filepath.Join(dir, "badger")
		}
	}

	switch backend {
	case config.IdentityBackendMemory:
		return identity.NewMemoryStorage(), nil
	case config.IdentityBackendBadger:
		return identity.OpenBadgerStorage(dir)
	case "", config.IdentityBackendFile:
		return identity.NewFileStorage(dir), nil
	default:
		return nil, fmt.Errorf("unknown identity backend %q", backend)
	}
}

// newClient builds a client from the merged settings. When --metrics is
// set the returned registry collects the client's metrics.
func (a *app) newClient(logOutput io.Writer, opts ...loopmetrics.Option) (*loopmetrics.Client, *prometheus.Registry, error) {
	storage, err := a.storage()
	if err != nil {
		return nil, nil, err
	}

	base := []loopmetrics.Option{
		loopmetrics.WithBaseURL(a.v.GetString("base-url")),
		loopmetrics.WithStorage(storage),
		loopmetrics.WithDebug(a.v.GetBool("debug")),
		loopmetrics.WithLogOutput(logOutput),
	}
	if u := a.v.GetString("geolocation-url"); u != "" {
		base = append(base, loopmetrics.WithGeolocationURL(u))
	}
	if a.v.GetBool("disable-geolocation") {
		base = append(base, loopmetrics.WithoutGeolocation())
	}
	if a.file != nil && len(a.file.Headers) > 0 {
		base = append(base, loopmetrics.WithHeaders(a.file.Headers))
	}

	var reg *prometheus.Registry
	if a.v.GetBool("metrics") {
		reg = prometheus.NewRegistry()
		m, err := metrics.NewPrometheus(reg, "loopmetrics")
		if err != nil {
			storage.Close()
			return nil, nil, err
		}
		base = append(base, loopmetrics.WithMetrics(m))
	}

	client, err := loopmetrics.New(append(base, opts...)...)
	if err != nil {
		storage.Close()
		return nil, nil, err
	}
	return client, reg, nil
}

// initConfig builds the Init config from the file, overlaid with the
// command's flags. A user is always configured so events are delivered;
// without a distinct ID the persisted anonymous ID is used.
func (a *app) initConfig(tenant loopmetrics.TenantConfig, user loopmetrics.UserConfig) loopmetrics.Config {
	cfg := loopmetrics.Config{APIKey: a.v.GetString("api-key")}

	var heldTenant *loopmetrics.TenantConfig
	var heldUser loopmetrics.UserConfig
	if a.file != nil {
		if t := a.file.Tenant; t != nil {
			heldTenant = &loopmetrics.TenantConfig{
				DistinctID:  t.DistinctID,
				CompanyName: t.CompanyName,
				Properties:  t.Properties,
			}
		}
		if u := a.file.User; u != nil {
			heldUser = loopmetrics.UserConfig{
				DistinctID: u.DistinctID,
				FirstName:  u.FirstName,
				LastName:   u.LastName,
				Email:      u.Email,
				Properties: u.Properties,
			}
		}
	}

	if heldTenant != nil || tenant.DistinctID != "" {
		t := mergeTenant(heldTenant, tenant)
		cfg.Tenant = &t
	}
	u := mergeUser(heldUser, user)
	cfg.User = &u
	return cfg
}

func mergeTenant(held *loopmetrics.TenantConfig, patch loopmetrics.TenantConfig) loopmetrics.TenantConfig {
	var out loopmetrics.TenantConfig
	if held != nil {
		out = *held
	}
	if patch.DistinctID != "" {
		out.DistinctID = patch.DistinctID
	}
	if patch.CompanyName != "" {
		out.CompanyName = patch.CompanyName
	}
	return out
}

func mergeUser(out loopmetrics.UserConfig, patch loopmetrics.UserConfig) loopmetrics.UserConfig {
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
	return out
}

// printMetrics writes one line per series: counters and gauges with their
// value, histograms with their sample count.
func printMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			sort.Strings(labels)

			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				value = float64(m.GetHistogram().GetSampleCount())
			}
			fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), value)
		}
	}
	return nil
}
