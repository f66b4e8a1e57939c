package daemon

import (
	"os"
	"strconv"
	"testing"

	"hlcli/internal/paths"
)

func tempHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	return home
}

func TestPidAlive_CurrentProcessIsAlive(t *testing.T) {
	if !pidAlive(os.Getpid()) {
		t.Error("expected the current process to report as alive")
	}
}

func TestPidAlive_ZeroAndNegativeAreNotAlive(t *testing.T) {
	if pidAlive(0) {
		t.Error("pid 0 must not be treated as alive")
	}
	if pidAlive(-1) {
		t.Error("a negative pid must not be treated as alive")
	}
}

func TestCheckStalePID_NoFile(t *testing.T) {
	tempHome(t)
	if _, err := paths.EnsureDir(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := checkStalePID(); err != nil {
		t.Errorf("unexpected error with no pid file: %v", err)
	}
}

func TestCheckStalePID_DeadPidIsRemoved(t *testing.T) {
	tempHome(t)
	if _, err := paths.EnsureDir(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pidPath, err := paths.PidPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A PID that is extremely unlikely to be alive.
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(1<<30)), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := checkStalePID(); err != nil {
		t.Errorf("unexpected error for stale pid: %v", err)
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("expected stale pid file to be removed")
	}
}

func TestCheckStalePID_LivePidReportsAlreadyRunning(t *testing.T) {
	tempHome(t)
	if _, err := paths.EnsureDir(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pidPath, err := paths.PidPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := checkStalePID(); err == nil {
		t.Error("expected already-running error for a live pid")
	}
}
