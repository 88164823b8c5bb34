package main

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/trezcool/gradebook/core/course"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

func (cli *commandLine) assignGradersCmd() *cobra.Command {
	var req course.AssignGradersRequest

	cmd := &cobra.Command{
		Use:   "assign-graders PROJECT_ID",
		Short: "Distribute the teams of a project among the graders",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cli.getCourse(cmd)
			if err != nil {
				return err
			}
			req.ProjectID = args[0]

			report, err := cli.svc.AssignGraders(cmd.Context(), c.ID, req)
			if err != nil {
				return err
			}
			cli.printAssignGradersReport(report)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&req.FromProject, "fromproject", "", "copy the grader assignments of this project")
	flags.StringVar(&req.AvoidProject, "avoidproject", "", "avoid giving graders the teams they graded in this project")
	flags.BoolVar(&req.Reset, "reset", false, "discard the current assignments first")
	flags.BoolVar(&req.DryRun, "dry-run", false, "show the assignments without saving them")
	flags.BoolVar(&req.Notify, "notify", false, "email each grader the teams they grade")
	flags.Int64Var(&req.Seed, "seed", 0, "random seed (defaults to the configured seed)")
	return cmd
}

// printAssignGradersReport prints the quotas, then the partial failures as warnings.
func (cli *commandLine) printAssignGradersReport(report course.AssignGradersReport) {
	graders := make([]string, 0, len(report.Quotas))
	for g := range report.Quotas {
		graders = append(graders, g)
	}
	sort.Strings(graders)

	loads := make(map[string]int, len(graders))
	for _, g := range report.Assignments {
		loads[g]++
	}
	for _, g := range graders {
		cli.printf("%s: %d/%d teams\n", g, loads[g], report.Quotas[g])
	}

	underFilled := make([]string, 0, len(report.UnderFilled))
	for g := range report.UnderFilled {
		underFilled = append(underFilled, g)
	}
	sort.Strings(underFilled)
	for _, g := range underFilled {
		cli.printf("Warning: unable to assign enough teams to grader %s (%d missing)\n", g, report.UnderFilled[g])
	}
	for _, t := range report.Unassigned {
		cli.printf("Warning: team %s has no grader\n", t)
	}

	if report.DryRun {
		cli.printf("Dry run: %d assignments would change\n", report.Changed)
		return
	}
	cli.printf("%d assignments changed\n", report.Changed)
	if len(report.Notified) > 0 {
		cli.printf("Notified %s\n", strings.Join(report.Notified, ", "))
	}
}

func (cli *commandLine) assignProjectCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "assign-project PROJECT_ID",
		Short: "Register every active team for a project",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cli.getCourse(cmd)
			if err != nil {
				return err
			}
			report, err := cli.svc.AssignProject(cmd.Context(), c.ID, args[0], force)
			if err != nil {
				return err
			}

			projectID := args[0]
			for _, t := range report.Inactive {
				cli.printf("Skipping %s (not active)\n", t)
			}
			for _, t := range report.Skipped {
				cli.printf("Team %s has already been assigned project %s. Use --force to override\n", t, projectID)
			}
			for _, t := range report.Assigned {
				cli.printf("Assigned project %s to team %s\n", projectID, t)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "reset the registration of teams already assigned the project")
	return cmd
}

func (cli *commandLine) listGraderAssignmentsCmd() *cobra.Command {
	var graderID string

	cmd := &cobra.Command{
		Use:   "list-grader-assignments PROJECT_ID",
		Short: "List the grader of every team registered for a project",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cli.getCourse(cmd)
			if err != nil {
				return err
			}
			rows, err := cli.svc.ListGraderAssignments(cmd.Context(), c.ID, args[0], graderID)
			if err != nil {
				return err
			}

			if cli.isTerminal() {
				cli.printf("%s\n", graderAssignmentsTable(rows))
				return nil
			}
			for _, row := range rows {
				if graderID != "" {
					cli.printf("%s\n", row.TeamID)
				} else {
					cli.printf("%s %s\n", row.TeamID, course.FormatGraderID(row.GraderID))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&graderID, "grader-id", "", "only list the teams of this grader")
	return cmd
}

func graderAssignmentsTable(rows []course.GraderAssignment) *table.Table {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Team", "Grader", "Students").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, r := range rows {
		grader := course.FormatGraderID(r.GraderID)
		if r.GraderName != "" {
			grader += " (" + r.GraderName + ")"
		}
		names := make([]string, 0, len(r.Students))
		for _, s := range r.Students {
			names = append(names, s.FullName())
		}
		t.Row(r.TeamID, grader, strings.Join(names, ", "))
	}
	return t
}
