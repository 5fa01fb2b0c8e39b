package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/affected"
)

type ecosystemInfo struct {
	Name      string `json:"name"`
	PURLType  string `json:"purl_type"`
	Registry  string `json:"registry,omitempty"`
	DepsDev   string `json:"deps_dev,omitempty"`
	Semver    bool   `json:"semver"`
	Qualified bool   `json:"qualified,omitempty"`
}

func newEcosystemsCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ecosystems",
		Short: "List the supported ecosystems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.registry()
			if err != nil {
				return err
			}

			var infos []ecosystemInfo
			for _, name := range r.Names() {
				infos = append(infos, describe(name, r.Get(name).IsSemver(), false))
			}
			infos = append(infos, describe(affected.EcosystemDebian+":<release>", false, true))

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), infos)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tPURL\tSEMVER\tREGISTRY\tDEPS.DEV")
			for _, info := range infos {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n",
					info.Name, info.PURLType, info.Semver, dash(info.Registry), dash(info.DepsDev))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func describe(name string, semver, qualified bool) ecosystemInfo {
	info := ecosystemInfo{
		Name:      name,
		PURLType:  affected.PURLType(name),
		Registry:  affected.RegistryURL(name),
		Semver:    semver,
		Qualified: qualified,
	}
	if affected.IsSupportedInDepsDev(name) {
		info.DepsDev = affected.DepsDevSystem(name)
	}
	return info
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
