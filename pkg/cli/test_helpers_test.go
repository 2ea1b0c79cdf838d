package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

// testCLI is a root command wired to in-memory stdout and stderr.
type testCLI struct {
	root   *cobra.Command
	app    *app
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

// newTestCLI creates a fresh root command. It isolates HOME and clears the
// environment variables the CLI reads, so no real config is loaded.
func newTestCLI(t *testing.T) *testCLI {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		"WATERSHED_HOST", "WATERSHED_OUTPUT", "WATERSHED_PROFILE", "LOG_LEVEL",
		"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_SESSION_TOKEN", "AWS_REGION", "S3_ENDPOINT",
		"AWS_PROFILE", "AWS_DEFAULT_REGION", "AWS_CONFIG_FILE", "AWS_SHARED_CREDENTIALS_FILE",
	} {
		t.Setenv(key, "")
	}

	a := newApp()
	a.client.PollInterval = 10 * time.Millisecond

	c := &testCLI{
		root:   newRootCmdWith(a),
		app:    a,
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	c.root.SetOut(c.stdout)
	c.root.SetErr(c.stderr)
	return c
}

// run executes the command line args. A nil args slice would make cobra
// fall back to os.Args.
func (c *testCLI) run(args ...string) error {
	c.root.SetArgs(append([]string{}, args...))
	return c.root.ExecuteContext(context.Background())
}

// exec runs args through execute and returns the exit code.
func (c *testCLI) exec(args ...string) int {
	c.root.SetArgs(append([]string{}, args...))
	return execute(context.Background(), c.root, c.stdout, c.stderr)
}
