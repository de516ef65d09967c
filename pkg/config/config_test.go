package config

import (
	"os"
	"testing"

	"synnergy-aaa/internal/testutil"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.StateEngine.MaxSessions == 0 {
		t.Fatalf("expected a non-zero default MaxSessions")
	}
	if c.StateEngine.StateAttribute != "State" {
		t.Fatalf("StateAttribute = %q, want State", c.StateEngine.StateAttribute)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	for _, kv := range [][2]string{
		{"AAA_MAX_SESSIONS", "128"},
		{"AAA_SERVER_ID", "7"},
		{"AAA_TIMEOUT_SECONDS", "45"},
	} {
		os.Setenv(kv[0], kv[1])
		defer os.Unsetenv(kv[0])
	}

	c := LoadFromEnv()
	if c.StateEngine.MaxSessions != 128 {
		t.Fatalf("MaxSessions = %d, want 128", c.StateEngine.MaxSessions)
	}
	if c.StateEngine.ServerID != 7 {
		t.Fatalf("ServerID = %d, want 7", c.StateEngine.ServerID)
	}
	if c.StateEngine.Timeout.Seconds() != 45 {
		t.Fatalf("Timeout = %v, want 45s", c.StateEngine.Timeout)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	defer sb.Cleanup()

	contents := "state_engine:\n  max_sessions: 64\n  server_id: 3\nhttp:\n  admin_addr: \":9090\"\n"
	if err := sb.WriteFile("aaa.yaml", []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c, err := LoadYAMLFile(sb.Path("aaa.yaml"))
	if err != nil {
		t.Fatalf("LoadYAMLFile: %v", err)
	}
	if c.StateEngine.MaxSessions != 64 {
		t.Fatalf("MaxSessions = %d, want 64", c.StateEngine.MaxSessions)
	}
	if c.StateEngine.ServerID != 3 {
		t.Fatalf("ServerID = %d, want 3", c.StateEngine.ServerID)
	}
	if c.HTTP.AdminAddr != ":9090" {
		t.Fatalf("AdminAddr = %q, want :9090", c.HTTP.AdminAddr)
	}
	// Fields absent from the file keep their Default() value.
	if c.StateEngine.StateAttribute != "State" {
		t.Fatalf("StateAttribute = %q, want State (default)", c.StateEngine.StateAttribute)
	}
}
