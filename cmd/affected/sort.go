package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
)

func newSortCmd(a *app) *cobra.Command {
	var (
		ecosystem string
		group     bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "sort version...",
		Short: "Sort versions in an ecosystem's order",
		Long: `Sort versions in the ecosystem's order. Ecosystems without a native order
fall back to a generic version comparison. With --group, versions are
grouped by major component ("1.*"), versions without a dot under "Other".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.registry()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !group {
				sorted := r.SortVersions(ecosystem, args)
				if asJSON {
					return writeJSON(out, sorted)
				}
				return writeLines(out, sorted)
			}

			groups := r.GroupVersions(ecosystem, args)
			if asJSON {
				return writeJSON(out, groups)
			}
			for _, label := range slices.Sorted(maps.Keys(groups)) {
				if _, err := fmt.Fprintln(out, label); err != nil {
					return err
				}
				for _, v := range groups[label] {
					if _, err := fmt.Fprintln(out, "  "+v); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&ecosystem, "ecosystem", "e", "", "Ecosystem name")
	cmd.Flags().BoolVar(&group, "group", false, "Group by major version")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("ecosystem")

	return cmd
}
