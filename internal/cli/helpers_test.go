package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const twoInstancesDoc = `<div><span id="a">new</span><span id="b">old</span></div>` +
	`<div typeof="ext:Variable"><div property="ext:intentionUri" content="X"></div><div property="ext:idInSnippet" content="a"></div></div>` +
	`<div typeof="ext:Variable"><div property="ext:intentionUri" content="X"></div><div property="ext:idInSnippet" content="b"></div></div>`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs cmd with args and returns stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
