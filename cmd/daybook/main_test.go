package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"daybook/internal/bridge"
	"daybook/internal/bus"
	"daybook/internal/companion"
	"daybook/internal/core/session"
	"daybook/internal/core/timer"
	"daybook/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (buffer *syncBuffer) Write(data []byte) (int, error) {
	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	return buffer.buf.Write(data)
}

func (buffer *syncBuffer) String() string {
	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	return buffer.buf.String()
}

func TestCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"run", "companion", "history"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("log-level"))
}

func TestPrintHistory(t *testing.T) {
	var out bytes.Buffer
	printHistory(&out, nil, false)
	assert.Equal(t, "no completed sessions\n", out.String())

	out.Reset()
	printHistory(&out, []session.Session{{
		NoteID:       "n1",
		StartTime:    time.Date(2026, 5, 4, 9, 30, 0, 0, time.Local),
		Goals:        []session.Goal{{Text: "ship", Finished: true}, {Text: "docs"}},
		Distractions: []session.Distraction{{Text: "chat"}},
		DaySummary:   "good\nday",
	}}, true)
	assert.Equal(t, "2026-05-04 09:30  goals 1/2  distractions 1  note n1  \"good day\"\n    [x] ship\n    [ ] docs\n", out.String())
}

func TestViewPrinterSkipsRepeats(t *testing.T) {
	var out bytes.Buffer
	printer := &viewPrinter{out: &out}
	view := companion.View{Clock: "24:59", Phase: "Work"}

	printer.print(view)
	printer.print(view)
	view.Clock = "24:58"
	printer.print(view)

	assert.Equal(t, 2, strings.Count(out.String(), "\n"))
}

func TestRunCompanionPrintsBridgeState(t *testing.T) {
	b := bus.New(logging.Discard())
	server := bridge.NewServer(b, logging.Discard())
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()
	b.Publish(bus.TopicTimerState, timer.Update{Version: 1, Minutes: 12, Seconds: 5, Phase: timer.PhaseWork, Running: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- runCompanion(ctx, out, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", false) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "12:05 Work")
	}, 3*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("companion did not stop")
	}
}

func TestRunCompanionWithoutServer(t *testing.T) {
	err := runCompanion(context.Background(), &bytes.Buffer{}, bridge.URL("127.0.0.1:1"), false)
	assert.Error(t, err)
}

func TestOpacityToAlpha(t *testing.T) {
	assert.Equal(t, uint8(255), opacityToAlpha(1.5))
	assert.Equal(t, uint8(0), opacityToAlpha(-1))
	assert.Equal(t, uint8(127), opacityToAlpha(0.5))
}
