package configuration

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnv_LoadsExistingFilesOnly(t *testing.T) {
	tmp := t.TempDir()

	envFile := filepath.Join(tmp, ".env.local")
	if err := os.WriteFile(envFile, []byte("CABFLOW_TEST_ENV_LOAD=ok\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", envFile, err)
	}

	_ = os.Unsetenv("CABFLOW_TEST_ENV_LOAD")

	n, err := LoadEnv([]string{filepath.Join(tmp, ".env"), envFile})
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 env file loaded, got %d", n)
	}
	if got := os.Getenv("CABFLOW_TEST_ENV_LOAD"); got != "ok" {
		t.Fatalf("expected env var loaded, got %q", got)
	}
	t.Cleanup(func() { _ = os.Unsetenv("CABFLOW_TEST_ENV_LOAD") })
}

func TestLifecycleOptions_Validate(t *testing.T) {
	cases := []struct {
		name    string
		retries int
		wantErr bool
	}{
		{"Zero_Is_Allowed", 0, false},
		{"Default_Is_Allowed", 3, false},
		{"Negative_Rejected", -1, true},
		{"Excessive_Rejected", 101, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := LifecycleOptions{MutationRetries: tc.retries}
			err := opts.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error for retries=%d", tc.retries)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
