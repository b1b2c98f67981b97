package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestBuildRoot_Subcommands(t *testing.T) {
	root := buildRoot()
	want := []string{"serve", "list", "status", "start", "stop", "restart", "cmd", "console"}
	have := map[string]bool{}
	for _, c := range root.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Fatalf("subcommand %q missing", name)
		}
	}
}

func TestBuildRoot_Help(t *testing.T) {
	root := buildRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--help"})
	if err := root.Execute(); err != nil {
		t.Fatalf("help: %v", err)
	}
	if !strings.Contains(out.String(), "craftd serve") {
		t.Fatalf("help output: %s", out.String())
	}
}

func TestServe_RequiresConfig(t *testing.T) {
	root := buildRoot()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"serve"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "config file required") {
		t.Fatalf("err = %v", err)
	}
}

func TestStatus_RequiresArg(t *testing.T) {
	root := buildRoot()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"status"})
	if err := root.Execute(); err == nil {
		t.Fatalf("missing arg accepted")
	}
}
