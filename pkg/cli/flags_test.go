package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
)

func walkCommands(cmd *cobra.Command, fn func(*cobra.Command)) {
	fn(cmd)
	for _, sub := range cmd.Commands() {
		walkCommands(sub, fn)
	}
}

func TestFlagsAreDocumented(t *testing.T) {
	walkCommands(newRootCmd(), func(cmd *cobra.Command) {
		cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
			assert.NotEmpty(t, f.Usage, "%s --%s has no usage text", cmd.CommandPath(), f.Name)
		})
	})
}

func TestShorthandsDoNotCollide(t *testing.T) {
	walkCommands(newRootCmd(), func(cmd *cobra.Command) {
		seen := map[string]string{}
		_ = cmd.InheritedFlags() // merges persistent flags into cmd.Flags()
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Shorthand == "" {
				return
			}
			if prev, ok := seen[f.Shorthand]; ok {
				t.Errorf("%s: -%s used by --%s and --%s", cmd.CommandPath(), f.Shorthand, prev, f.Name)
			}
			seen[f.Shorthand] = f.Name
		})
	})
}

func TestJobCommandFlags(t *testing.T) {
	root := newRootCmd()
	tests := []struct {
		command string
		flags   map[string]string // name -> shorthand
	}{
		{"create-job", map[string]string{"query": "q", "stream": "s", "show-progress": "p", "replay": "r", "overwrite": "o"}},
		{"preview-job", map[string]string{"query": "q", "num-records": "n"}},
		{"get-job", map[string]string{"job-id": "i", "show-progress": "p", "summary-only": "t"}},
		{"get-all-jobs", map[string]string{"summary-only": "t"}},
		{"upload-resources", map[string]string{"config-file": "c", "force-upload": "F", "concurrency": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			cmd, _, err := root.Find([]string{tt.command})
			if !assert.NoError(t, err) {
				return
			}
			for name, short := range tt.flags {
				f := cmd.Flags().Lookup(name)
				if assert.NotNil(t, f, "--%s", name) {
					assert.Equal(t, short, f.Shorthand, "--%s", name)
				}
			}
		})
	}
}
