package cli

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEchoCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "echo",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 && args[0] == "fail" {
				fmt.Fprintln(cmd.ErrOrStderr(), "failing")
				return errors.New("failed")
			}
			for _, a := range args {
				fmt.Fprintln(cmd.OutOrStdout(), a)
			}
			return nil
		},
	}
}

func TestRun_CapturesOutput(t *testing.T) {
	t.Parallel()

	result := Run(newEchoCmd(), "hello", "", "world")
	result.AssertSuccess(t)
	result.AssertPrefix(t, "hello")
	result.AssertContains(t, "world")
	result.AssertNotContains(t, "failing")
	assert.Equal(t, []string{"hello", "world"}, result.Lines())
}

func TestRun_CapturesError(t *testing.T) {
	t.Parallel()

	result := Run(newEchoCmd(), "fail")
	result.AssertError(t)
	assert.Contains(t, result.Stderr, "failing")
}

func TestWriteConfig(t *testing.T) {
	t.Parallel()

	path := WriteConfig(t, "listen_addr: :9000\n")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "listen_addr: :9000\n", string(data))
}
