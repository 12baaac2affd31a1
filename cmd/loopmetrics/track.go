package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	loopmetrics "github.com/loopmetrics/loopmetrics-go"
)

func newTrackCmd(a *app) *cobra.Command {
	var (
		props  []string
		tenant loopmetrics.TenantConfig
		user   loopmetrics.UserConfig
	)

	cmd := &cobra.Command{
		Use:   "track <event>",
		Short: "Register the tenant and user, then send one event",
		Example: `  loopmetrics track deploy --user ci-bot -p env=prod -p replicas=3
  loopmetrics track signup --tenant acme --company "Acme Inc." --email jane@acme.test`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			properties, err := parseProperties(props)
			if err != nil {
				return err
			}
			return a.runTrack(cmd, args[0], properties, tenant, user)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&props, "prop", "p", nil, "event property as key=value (repeatable)")
	flags.StringVar(&tenant.DistinctID, "tenant", "", "tenant distinct ID")
	flags.StringVar(&tenant.CompanyName, "company", "", "tenant company name")
	flags.StringVar(&user.DistinctID, "user", "", "user distinct ID (default: the persisted anonymous ID)")
	flags.StringVar(&user.FirstName, "first-name", "", "user first name")
	flags.StringVar(&user.LastName, "last-name", "", "user last name")
	flags.StringVar(&user.Email, "email", "", "user email")
	return cmd
}

func (a *app) runTrack(cmd *cobra.Command, event string, properties loopmetrics.Properties, tenant loopmetrics.TenantConfig, user loopmetrics.UserConfig) error {
	var (
		mu       sync.Mutex
		asyncErr error
	)
	client, reg, err := a.newClient(cmd.ErrOrStderr(), loopmetrics.WithErrorHandler(func(err error) {
		mu.Lock()
		asyncErr = err
		mu.Unlock()
	}))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), a.v.GetDuration("timeout"))
	defer cancel()

	if err := client.Init(ctx, a.initConfig(tenant, user)); err != nil {
		_ = client.Shutdown(ctx)
		return err
	}

	sent := make(chan struct{})
	client.Track(event, properties, func() { close(sent) })

	if err := client.Shutdown(ctx); err != nil {
		return err
	}
	if reg != nil {
		if err := printMetrics(cmd.OutOrStdout(), reg); err != nil {
			return err
		}
	}

	select {
	case <-sent:
		fmt.Fprintf(cmd.OutOrStdout(), "sent %q for user %s\n", event, client.DistinctUserID())
		return nil
	default:
		mu.Lock()
		defer mu.Unlock()
		if asyncErr != nil {
			return fmt.Errorf("event %q was not sent: %w", event, asyncErr)
		}
		return fmt.Errorf("event %q was not sent", event)
	}
}

// parseProperties turns key=value pairs into event properties. Values that
// parse as booleans, integers or floats keep that type.
func parseProperties(pairs []string) (loopmetrics.Properties, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	props := make(loopmetrics.Properties, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid property %q: want key=value", pair)
		}
		props[key] = parseValue(value)
	}
	return props, nil
}

func parseValue(s string) any {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
