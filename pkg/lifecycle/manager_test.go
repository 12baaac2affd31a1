package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/loopmetrics/loopmetrics-go/pkg/errors"
)

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprint(msg))
}

func (l *recordingLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

func TestManager_InitTransitions(t *testing.T) {
	var changes []string
	m := NewManager(&Config{
		OnStateChange: func(old, new ClientState) {
			changes = append(changes, old.String()+"->"+new.String())
		},
	})

	if m.State() != StateUninitialized {
		t.Fatalf("initial state = %v", m.State())
	}
	if err := m.BeginInit(); err != nil {
		t.Fatalf("BeginInit() error = %v", err)
	}
	if err := m.BeginInit(); !errors.Is(err, pkgerrors.ErrInitInProgress) {
		t.Errorf("second BeginInit() = %v, want ErrInitInProgress", err)
	}

	m.FailInit()
	if m.State() != StateUninitialized {
		t.Fatalf("state after FailInit = %v", m.State())
	}

	if err := m.BeginInit(); err != nil {
		t.Fatalf("retry BeginInit() error = %v", err)
	}
	m.CompleteInit(true)
	if !m.IsReady() || !m.IsInitDone() {
		t.Errorf("state = %v, want ready", m.State())
	}
	if err := m.BeginInit(); !errors.Is(err, pkgerrors.ErrAlreadyInitialized) {
		t.Errorf("BeginInit() after ready = %v, want ErrAlreadyInitialized", err)
	}

	want := []string{
		"uninitialized->initializing",
		"initializing->uninitialized",
		"uninitialized->initializing",
		"initializing->ready",
	}
	if fmt.Sprint(changes) != fmt.Sprint(want) {
		t.Errorf("changes = %v, want %v", changes, want)
	}
}

func TestManager_InitWithoutUser(t *testing.T) {
	m := NewManager(&Config{})
	_ = m.BeginInit()
	m.CompleteInit(false)

	if m.State() != StateInitialized {
		t.Errorf("state = %v, want initialized", m.State())
	}
	if m.IsReady() {
		t.Error("initialized without user must not be ready")
	}
}

func TestManager_Shutdown(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *Manager)
	}{
		{name: "from uninitialized", setup: func(m *Manager) {}},
		{name: "from initializing", setup: func(m *Manager) { _ = m.BeginInit() }},
		{name: "from ready", setup: func(m *Manager) { _ = m.BeginInit(); m.CompleteInit(true) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(&Config{})
			tt.setup(m)

			if err := m.BeginShutdown(); err != nil {
				t.Fatalf("BeginShutdown() error = %v", err)
			}
			if m.Context().Err() == nil {
				t.Error("context should be cancelled after BeginShutdown")
			}
			if err := m.BeginShutdown(); !errors.Is(err, ErrAlreadyClosed) {
				t.Errorf("second BeginShutdown() = %v", err)
			}
			if err := m.BeginInit(); !errors.Is(err, pkgerrors.ErrClientClosed) {
				t.Errorf("BeginInit() while closing = %v", err)
			}

			m.CompleteShutdown()
			if m.State() != StateClosed {
				t.Errorf("state = %v, want closed", m.State())
			}
		})
	}
}

func TestManager_IdleWarning(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mClock := quartz.NewMock(t)
	trap := mClock.Trap().NewTicker("lifecycle", "idle")
	defer trap.Close()

	logger := &recordingLogger{}
	m := NewManager(&Config{
		IdleWarningDuration: 10 * time.Second,
		Clock:               mClock,
		Logger:              logger,
	})

	call := trap.MustWait(ctx)
	if call.Duration != 5*time.Second {
		t.Errorf("ticker interval = %v, want 5s", call.Duration)
	}
	call.MustRelease(ctx)

	// Two ticks reach the idle threshold; the third passes it.
	for i := 0; i < 3; i++ {
		mClock.Advance(5 * time.Second).MustWait(ctx)
	}

	require.Eventually(t, func() bool { return logger.count() == 1 }, 5*time.Second, 10*time.Millisecond)

	_ = m.BeginShutdown()
	m.CompleteShutdown()

	if got := logger.count(); got != 1 {
		t.Errorf("idle warnings = %d, want 1", got)
	}
}

func TestClientState_String(t *testing.T) {
	if got := ClientState(42).String(); got != "unknown" {
		t.Errorf("String() = %q", got)
	}
	if got := StateShuttingDown.String(); got != "shutting_down" {
		t.Errorf("String() = %q", got)
	}
}
