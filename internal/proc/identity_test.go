package proc

import (
	"path/filepath"
	"testing"
	"time"
)

func TestExecutablePath(t *testing.T) {
	id := Identity{Dir: "/srv/mc", Executable: "server.jar"}
	if got := id.ExecutablePath(); got != filepath.Join("/srv/mc", "server.jar") {
		t.Fatalf("relative path = %s", got)
	}
	id.Executable = "/opt/paper/paper.jar"
	if got := id.ExecutablePath(); got != "/opt/paper/paper.jar" {
		t.Fatalf("absolute path = %s", got)
	}
}

func TestPolicyDefaults(t *testing.T) {
	var id Identity
	if id.MaxRestartsOrDefault() != DefaultMaxRestarts {
		t.Fatalf("max restarts = %d", id.MaxRestartsOrDefault())
	}
	if id.RestartDelayOrDefault() != DefaultRestartDelay {
		t.Fatalf("restart delay = %v", id.RestartDelayOrDefault())
	}
	if id.StopTimeoutOrDefault() != DefaultStopTimeout {
		t.Fatalf("stop timeout = %v", id.StopTimeoutOrDefault())
	}

	id = Identity{MaxRestarts: 7, RestartDelay: time.Second, StopTimeout: 2 * time.Second}
	if id.MaxRestartsOrDefault() != 7 || id.RestartDelayOrDefault() != time.Second || id.StopTimeoutOrDefault() != 2*time.Second {
		t.Fatalf("configured values not honored")
	}
}

func TestBuildCommand_Jar(t *testing.T) {
	id := Identity{
		Dir:        "/srv/mc",
		Executable: "server.jar",
		MinMemory:  "1G",
		MaxMemory:  "2G",
		ExtraArgs:  []string{"-XX:+UseG1GC"},
	}
	cmd := buildCommand(id)
	want := []string{"-Xms1G", "-Xmx2G", "-XX:+UseG1GC", "-jar", filepath.Join("/srv/mc", "server.jar"), "nogui"}
	if len(cmd.Args) != len(want)+1 {
		t.Fatalf("args = %v", cmd.Args)
	}
	for i, a := range want {
		if cmd.Args[i+1] != a {
			t.Fatalf("arg[%d] = %s, want %s", i+1, cmd.Args[i+1], a)
		}
	}
}

func TestBuildCommand_Script(t *testing.T) {
	id := Identity{Dir: "/srv/mc", Executable: "run.sh", ExtraArgs: []string{"--port", "25566"}}
	cmd := buildCommand(id)
	if cmd.Args[0] != filepath.Join("/srv/mc", "run.sh") {
		t.Fatalf("args = %v", cmd.Args)
	}
	if len(cmd.Args) != 3 || cmd.Args[1] != "--port" {
		t.Fatalf("extra args not passed: %v", cmd.Args)
	}
}
