package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/git-pkgs/affected"
)

type versionsResult struct {
	Ecosystem  string   `json:"ecosystem"`
	Package    string   `json:"package"`
	Introduced string   `json:"introduced,omitempty"`
	Fixed      string   `json:"fixed,omitempty"`
	Limits     []string `json:"limits,omitempty"`
	Versions   []string `json:"versions"`
}

func newVersionsCmd(a *app) *cobra.Command {
	var (
		ecosystem  string
		pkg        string
		introduced string
		fixed      string
		limits     []string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "versions [known-version...]",
		Short: "List the versions covered by a vulnerable range",
		Long: `List the released versions in [introduced, fixed) that also sort before
every limit. Versions are fetched from the ecosystem's registry; semver
ecosystems (crates.io, Go, npm) have no registry lookup and slice the
versions given as arguments instead.`,
		Example: `  affected versions --ecosystem PyPI --package requests --introduced 2.0.0 --fixed 2.31.0
  affected versions --ecosystem Debian:12 --package openssl --introduced 0 --fixed 3.0.11-1~deb12u1
  affected versions --ecosystem npm --package left-pad --fixed 1.3.0 1.0.0 1.2.0 1.3.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, eco, err := a.ecosystem(ecosystem)
			if err != nil {
				return err
			}

			var versions []string
			if len(args) > 0 {
				versions = affected.AffectedVersions(eco, args, introduced, fixed, limits)
			} else {
				if eco.IsSemver() {
					a.logger.Warn("semver ecosystems are not enumerated; pass known versions as arguments",
						zap.String("ecosystem", ecosystem))
				}
				versions, err = eco.EnumerateVersions(cmd.Context(), pkg, introduced, fixed, limits)
				if err != nil {
					return err
				}
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), versionsResult{
					Ecosystem:  ecosystem,
					Package:    pkg,
					Introduced: introduced,
					Fixed:      fixed,
					Limits:     limits,
					Versions:   nonNil(versions),
				})
			}
			return writeLines(cmd.OutOrStdout(), versions)
		},
	}

	cmd.Flags().StringVarP(&ecosystem, "ecosystem", "e", "", "Ecosystem name, e.g. PyPI or Debian:12")
	cmd.Flags().StringVarP(&pkg, "package", "p", "", "Package name (Maven: groupId:artifactId)")
	cmd.Flags().StringVar(&introduced, "introduced", "", `First affected version ("0" for all)`)
	cmd.Flags().StringVar(&fixed, "fixed", "", "First fixed version")
	cmd.Flags().StringSliceVar(&limits, "limit", nil, `Upper limit, repeatable ("*" disables limits)`)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("ecosystem")
	_ = cmd.MarkFlagRequired("package")

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeLines(w io.Writer, lines []string) error {
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
