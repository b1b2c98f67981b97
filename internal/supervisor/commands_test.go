//go:build !windows

package supervisor

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func waitConsoleContains(t *testing.T, s *Supervisor, want string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		for _, l := range s.RecentOutput(100) {
			if strings.Contains(l.Text, want) {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("%q never reached console", want)
}

func TestCommandBuilders_Formatting(t *testing.T) {
	s := New(fixture(t, serverScript), discardLogger())
	defer s.Destroy()

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStatus(t, s, StatusRunning)

	steps := []struct {
		run  func() error
		want string
	}{
		{func() error { return s.Say("server restarting soon") }, "executed: say server restarting soon"},
		{func() error { return s.Kick("Griefer99", "stop that") }, "executed: kick Griefer99 stop that"},
		{func() error { return s.Kick("Griefer99", "") }, "executed: kick Griefer99"},
		{func() error { return s.Ban("Griefer99", "repeated griefing") }, "executed: ban Griefer99 repeated griefing"},
		{func() error { return s.SetGameMode("Alice", "creative") }, "executed: gamemode creative Alice"},
		{func() error { return s.Teleport("Alice", 100, 64, -200) }, "executed: tp Alice 100 64 -200"},
		{func() error { return s.Give("Alice", "minecraft:diamond", 5) }, "executed: give Alice minecraft:diamond 5"},
		{func() error { return s.Give("Alice", "minecraft:bread", 0) }, "executed: give Alice minecraft:bread 1"},
		{func() error { return s.SetTime("day") }, "executed: time set day"},
		{func() error { return s.SetWeather("thunder") }, "executed: weather thunder"},
		{func() error { return s.SaveAll() }, "executed: save-all"},
	}
	for _, st := range steps {
		if err := st.run(); err != nil {
			t.Fatalf("%q: %v", st.want, err)
		}
		waitConsoleContains(t, s, st.want)
	}
}

func TestCommandBuilders_GatedLikeCommand(t *testing.T) {
	s := New(fixture(t, serverScript), discardLogger())
	defer s.Destroy()

	if err := s.Say("hi"); !errors.Is(err, ErrCommandRejected) {
		t.Fatalf("Say while stopped = %v", err)
	}
	if err := s.SaveAll(); !errors.Is(err, ErrCommandRejected) {
		t.Fatalf("SaveAll while stopped = %v", err)
	}
}
