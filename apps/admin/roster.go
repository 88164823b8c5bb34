package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (cli *commandLine) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import ROSTER_FILE",
		Short: "Create or update a course from a YAML roster (\"-\" reads stdin)",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return errors.Wrap(err, "opening roster")
				}
				defer func() { _ = f.Close() }()
				r = f
			}

			report, err := cli.svc.ImportRoster(cmd.Context(), r)
			if err != nil {
				return err
			}
			cli.printf("Imported course %s: %d people, %d projects, %d teams\n",
				report.CourseID, report.People, report.Projects, report.Teams)
			return nil
		},
	}
}
