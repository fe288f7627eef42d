package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/loykin/wpe/internal/server"
	"github.com/loykin/wpe/internal/supervisor"
)

type fakeController struct {
	status server.StatusResponse
	apply  server.ApplyResponse
	stop   server.StopResponse
	err    error

	applyCalls int
	stopCalls  int
}

func (c *fakeController) Status() (server.StatusResponse, error) { return c.status, c.err }

func (c *fakeController) Apply() (server.ApplyResponse, error) {
	c.applyCalls++
	return c.apply, c.err
}

func (c *fakeController) StopAll() (server.StopResponse, error) {
	c.stopCalls++
	return c.stop, c.err
}

func TestStatusMessagePopulatesSortedList(t *testing.T) {
	ctrl := &fakeController{}
	m := New(ctrl)

	_, _ = m.Update(statusMsg{resp: server.StatusResponse{Monitors: map[string]supervisor.RunState{
		"HDMI-A-1": {},
		"DP-1":     {Running: true, PID: 77, SpawnedAt: time.Now()},
	}}})

	items := m.list.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	first := items[0].(monitorItem)
	if first.monitor != "DP-1" {
		t.Fatalf("items not sorted: first is %q", first.monitor)
	}
	if !strings.Contains(first.Description(), "pid 77") {
		t.Fatalf("running description: %q", first.Description())
	}
	second := items[1].(monitorItem)
	if second.Description() != "stopped" {
		t.Fatalf("stopped description: %q", second.Description())
	}
}

func TestApplyKeyTriggersController(t *testing.T) {
	ctrl := &fakeController{apply: server.ApplyResponse{Results: []supervisor.Result{
		{Monitor: "DP-1", Outcome: supervisor.OutcomeStarted},
		{Monitor: "DP-2", Outcome: supervisor.OutcomeUnchanged},
	}}}
	m := New(ctrl)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	if cmd == nil {
		t.Fatal("apply key produced no command")
	}
	msg := cmd()
	if ctrl.applyCalls != 1 {
		t.Fatalf("apply calls: %d", ctrl.applyCalls)
	}
	applied, ok := msg.(applyMsg)
	if !ok {
		t.Fatalf("unexpected message %T", msg)
	}

	_, _ = m.Update(applied)
	if !strings.Contains(m.statusMsg, "1 started") || !strings.Contains(m.statusMsg, "1 unchanged") {
		t.Fatalf("apply summary: %q", m.statusMsg)
	}
}

func TestStopKeyReportsFailures(t *testing.T) {
	ctrl := &fakeController{stop: server.StopResponse{Failures: []supervisor.StopFailure{
		{Monitor: "DP-1", Reason: "did not confirm exit"},
	}}}
	m := New(ctrl)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	msg := cmd()
	if ctrl.stopCalls != 1 {
		t.Fatalf("stop calls: %d", ctrl.stopCalls)
	}
	_, _ = m.Update(msg)
	if !strings.Contains(m.statusMsg, "1 failure") {
		t.Fatalf("stop summary: %q", m.statusMsg)
	}
}

func TestControllerErrorShownInView(t *testing.T) {
	ctrl := &fakeController{err: errors.New("daemon unreachable")}
	m := New(ctrl)

	msg := statusCmd(ctrl)()
	_, _ = m.Update(msg)
	if !strings.Contains(m.View(), "daemon unreachable") {
		t.Fatalf("view does not surface the error:\n%s", m.View())
	}
}

func TestSummarizeApplyCountsOutcomes(t *testing.T) {
	s := summarizeApply(server.ApplyResponse{
		Results: []supervisor.Result{
			{Outcome: supervisor.OutcomeStarted},
			{Outcome: supervisor.OutcomeStarted},
			{Outcome: supervisor.OutcomeRestarted},
			{Outcome: supervisor.OutcomeFailed},
		},
		ConfigErrors: []string{"entry 1: bad scale"},
	})
	for _, want := range []string{"2 started", "1 restarted", "1 failed", "1 config error"} {
		if !strings.Contains(s, want) {
			t.Fatalf("summary %q missing %q", s, want)
		}
	}
}
