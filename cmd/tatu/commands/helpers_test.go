package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag to its default between rootCmd runs;
// cobra keeps both values and Changed marks across Execute calls.
func resetFlags() {
	flagSeverity = ""
	flagFormat = "terminal"
	flagOutput = ""
	flagRules = ""
	flagNoColor = false
	flagDisableRules = nil
	flagDebug = false
	flagFailOn = ""
	flagCI = false
	flagVerbose = false
	flagChanged = false
	flagBaseline = ""
	flagUpdateBaseline = false
	flagScanners = nil
	flagListScanner = ""
	flagDryRun = false
	flagHook = false
	flagCIOnly = false

	names := []string{
		"severity", "format", "output", "rules", "no-color", "disable-rule", "debug",
		"fail-on", "ci", "verbose", "changed", "baseline", "update-baseline", "scanners",
		"scanner", "dry-run", "hook",
	}
	for _, c := range append([]*cobra.Command{rootCmd}, rootCmd.Commands()...) {
		for _, name := range names {
			if f := c.Flags().Lookup(name); f != nil {
				f.Changed = false
			}
			if f := c.PersistentFlags().Lookup(name); f != nil {
				f.Changed = false
			}
		}
	}
}

// execute runs the CLI with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()
	t.Setenv("NO_COLOR", "1")

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	defer rootCmd.SetOut(nil)
	defer rootCmd.SetErr(nil)

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

const dockerfile = "FROM node\nRUN npm ci\nCMD [\"node\", \"server.js\"]\n"

const packageJSON = `{
  "name": "shop",
  "dependencies": {
    "lodash": "^4.17.15"
  }
}
`
