package loopmetrics_test

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	loopmetrics "github.com/loopmetrics/loopmetrics-go"
	"github.com/loopmetrics/loopmetrics-go/loopmetricstest"
	"github.com/loopmetrics/loopmetrics-go/pkg/identity"
)

func Example() {
	client, err := loopmetrics.New()
	if err != nil {
		log.Fatal(err)
	}
	defer client.Shutdown(context.Background())

	ctx := context.Background()
	err = client.Init(ctx, loopmetrics.Config{
		APIKey: os.Getenv("LOOPMETRICS_API_KEY"),
		Tenant: &loopmetrics.TenantConfig{DistinctID: "acme", CompanyName: "Acme Inc."},
		User:   &loopmetrics.UserConfig{DistinctID: "user-123", Email: "jane@acme.test"},
	})
	if err != nil {
		log.Fatal(err)
	}

	client.Track("signup", loopmetrics.Properties{"plan": "pro"}, func() {
		log.Println("signup recorded")
	})
}

func ExampleClient_TrackOnInit() {
	server := loopmetricstest.NewMockServer()
	defer server.Close()

	client, err := loopmetrics.New(
		loopmetrics.WithBaseURL(server.URL),
		loopmetrics.WithoutGeolocation(),
		loopmetrics.WithStorage(identity.NewMemoryStorage()),
		loopmetrics.WithEnvironment(loopmetricstest.TestEnvironment),
		loopmetrics.WithMaxInFlight(1),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Shutdown(context.Background())

	// Events raised during startup are held until Init succeeds.
	client.TrackOnInit("app_started", nil, nil)
	client.TrackOnInit("config_loaded", loopmetrics.Properties{"source": "file"}, nil)

	ctx := context.Background()
	if err := client.Init(ctx, loopmetricstest.TestConfig("user-123")); err != nil {
		log.Fatal(err)
	}
	if err := client.Wait(ctx); err != nil {
		log.Fatal(err)
	}

	for _, req := range server.Events() {
		fmt.Println(req.JSON()["name"])
	}
	// Output:
	// app_started
	// config_loaded
}

func ExampleClient_UpdateUser() {
	server := loopmetricstest.NewMockServer()
	defer server.Close()

	client, err := loopmetrics.New(
		loopmetrics.WithBaseURL(server.URL),
		loopmetrics.WithoutGeolocation(),
		loopmetrics.WithStorage(identity.NewMemoryStorage()),
		loopmetrics.WithEnvironment(loopmetricstest.TestEnvironment),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Shutdown(context.Background())

	ctx := context.Background()
	if err := client.Init(ctx, loopmetricstest.TestConfig("user-123")); err != nil {
		log.Fatal(err)
	}

	client.UpdateUser(loopmetrics.UserConfig{
		FirstName:  "Jane",
		Properties: loopmetrics.Properties{"plan": "pro"},
	})
	if err := client.Wait(ctx); err != nil {
		log.Fatal(err)
	}

	users := server.Users()
	last := users[len(users)-1].JSON()
	fmt.Println(last["id"], last["firstName"], last["properties"])
	// Output:
	// user-123 Jane map[plan:pro]
}

func ExampleWithOnAsyncError() {
	client, err := loopmetrics.New(
		loopmetrics.WithOnAsyncError(func(err *loopmetrics.AsyncError) {
			log.Printf("loopmetrics %s failed: %v", err.Operation, err.Err)
		}),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Shutdown(context.Background())
}

func ExampleNewSlogAdapter() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	client, err := loopmetrics.New(
		loopmetrics.WithLogger(loopmetrics.NewSlogAdapter(logger)),
		loopmetrics.WithShutdownTimeout(10*time.Second),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Shutdown(context.Background())
}
