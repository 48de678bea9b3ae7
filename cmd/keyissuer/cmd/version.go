package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gobeyondidentity/keyissuer/internal/version"
	"github.com/gobeyondidentity/keyissuer/internal/versioncheck"
)

type versionOutput struct {
	version.Info `yaml:",inline"`
	Check        *versioncheck.Result `json:"check,omitempty" yaml:"check,omitempty"`
}

func newVersionCmd(opts *globalOptions) *cobra.Command {
	var (
		check      bool
		releaseAPI string
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Show version information.

With --check, the latest published release is looked up (cached for 24h)
and an upgrade notice is printed when a newer version exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := versionOutput{Info: version.Get()}
			if check {
				checker := versioncheck.NewChecker()
				checker.Releases = versioncheck.NewReleaseClient(releaseAPI, versioncheck.DefaultTimeout)
				out.Check = checker.Check(cmd.Context(), out.Version)
			}

			w := cmd.OutOrStdout()
			if handled, err := formatOutput(w, opts.outputFormat, out); handled {
				return err
			}

			fmt.Fprintf(w, "keyissuer %s (commit %s, %s, %s)\n", out.Version, out.Commit, out.GoVersion, out.Platform)
			if out.Check == nil {
				return nil
			}
			switch {
			case out.Check.UpdateAvailable:
				fmt.Fprintf(w, "\nA newer version is available: v%s\n%s\n", out.Check.LatestVersion, out.Check.ReleaseURL)
			case out.Check.LatestVersion == "":
				fmt.Fprintf(cmd.ErrOrStderr(), "Could not check for updates: %v\n", out.Check.Error)
			default:
				fmt.Fprintln(w, "You are running the latest version.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Check for a newer release")
	cmd.Flags().StringVar(&releaseAPI, "release-api", versioncheck.DefaultAPIBase, "Release feed base URL")
	cmd.Flags().MarkHidden("release-api")
	return cmd
}
