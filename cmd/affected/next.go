package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNextCmd(a *app) *cobra.Command {
	var ecosystem, pkg, version string

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Print the version that follows a given version",
		Long: `Print the smallest version that sorts after --version. Registry-backed
ecosystems answer with the next released version, or nothing when --version
is the latest; semver ecosystems answer with a synthetic pre-release such as
"1.0.1-0".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, eco, err := a.ecosystem(ecosystem)
			if err != nil {
				return err
			}
			next, err := eco.NextVersion(cmd.Context(), pkg, version)
			if err != nil {
				return err
			}
			if next != "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), next)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&ecosystem, "ecosystem", "e", "", "Ecosystem name")
	cmd.Flags().StringVarP(&pkg, "package", "p", "", "Package name")
	cmd.Flags().StringVar(&version, "version", "", "Version to start from")
	_ = cmd.MarkFlagRequired("ecosystem")
	_ = cmd.MarkFlagRequired("version")

	return cmd
}
