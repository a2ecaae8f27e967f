package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/assetregistry/internal/domain/registry"
)

func newDumpCommand(a *app) *cobra.Command {
	var sections []string
	var output string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write a text dump of a snapshot",
		Long: `Write a sorted text rendering of a registry snapshot.

Sections: All, ObjectPath, PackageName, Path, Class, Tag, Dependencies,
DependencyDetails, PackageData.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := registry.ParseDumpSections(sections)
			if err != nil {
				return err
			}
			r, err := a.loadSnapshot()
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return r.Dump(out, opts)
		},
	}
	cmd.Flags().StringSliceVar(&sections, "sections", []string{"All"}, "sections to write")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}
