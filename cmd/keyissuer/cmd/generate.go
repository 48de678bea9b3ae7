package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gobeyondidentity/keyissuer/pkg/clierror"
	"github.com/gobeyondidentity/keyissuer/pkg/credential"
)

func newGenerateCmd(opts *globalOptions) *cobra.Command {
	var (
		count  int
		prefix string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print freshly generated credentials without issuing them",
		Long: `Print credentials in the same format the service issues.

Generated credentials are not registered or logged; use this for fixtures
and manual testing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return clierror.InvalidArgument("-n must be at least 1")
			}
			if prefix == "" {
				return clierror.InvalidArgument("--prefix must not be empty")
			}

			gen := credential.New(credential.WithPrefix(prefix))
			creds := make([]string, 0, count)
			for i := 0; i < count; i++ {
				c, err := gen.Generate()
				if err != nil {
					return clierror.InternalError(err)
				}
				creds = append(creds, c)
			}

			out := cmd.OutOrStdout()
			if handled, err := formatOutput(out, opts.outputFormat, map[string][]string{"credentials": creds}); handled {
				return err
			}
			for _, c := range creds {
				fmt.Fprintln(out, c)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of credentials to generate")
	cmd.Flags().StringVar(&prefix, "prefix", credential.DefaultPrefix, "Credential prefix")
	return cmd
}
