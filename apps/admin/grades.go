package main

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/course"
)

const deadlineLayout = "2006-01-02 15:04 MST"

func formatPoints(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (cli *commandLine) listGradesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-grades",
		Short: "Print the grades of every enrolled student as CSV",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cli.getCourse(cmd)
			if err != nil {
				return err
			}
			report, err := cli.svc.GradeReport(cmd.Context(), c.ID)
			if err != nil {
				return err
			}
			for _, w := range report.Warnings {
				cli.errorf("Warning: %s\n", w)
			}
			return writeGradesCSV(cli, report)
		},
	}
}

// writeGradesCSV writes one line per student: names, then for each project its components, penalties and total.
func writeGradesCSV(cli *commandLine, report course.GradeReport) error {
	w := csv.NewWriter(cli.out)

	header := []string{"Last Name", "First Name"}
	for _, p := range report.Projects {
		for _, gc := range p.Components {
			header = append(header, fmt.Sprintf("%s - %s", p.ID, gc.Name))
		}
		header = append(header, p.ID+" - Penalties", p.ID+" - Total")
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, line := range report.Students {
		record := []string{line.Student.LastName, line.Student.FirstName}
		for i, p := range report.Projects {
			pg := line.Projects[i]
			for _, gc := range p.Components {
				pts, ok := pg.Components[gc.Name]
				if pg.TeamID == "" || !ok {
					record = append(record, "")
					continue
				}
				record = append(record, formatPoints(pts))
			}
			if pg.TeamID == "" {
				record = append(record, "", "")
				continue
			}
			record = append(record, formatPoints(pg.Penalties), formatPoints(pg.Total))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (cli *commandLine) listProjectsCmd() *cobra.Command {
	var idsOnly, utc bool

	cmd := &cobra.Command{
		Use:   "list-projects",
		Short: "List the projects of the course by deadline",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cli.getCourse(cmd)
			if err != nil {
				return err
			}
			projects, err := cli.svc.ListProjects(cmd.Context(), c.ID)
			if err != nil {
				return err
			}

			deadline := func(p course.Project) string {
				if utc {
					return p.Deadline.UTC().Format(deadlineLayout)
				}
				return p.Deadline.In(time.Local).Format(deadlineLayout)
			}

			if idsOnly {
				for _, p := range projects {
					cli.printf("%s\n", p.ID)
				}
				return nil
			}
			if cli.isTerminal() {
				t := table.New().
					Border(lipgloss.NormalBorder()).
					Headers("ID", "Name", "Deadline", "Points").
					StyleFunc(func(row, col int) lipgloss.Style {
						if row == table.HeaderRow {
							return headerStyle
						}
						return lipgloss.NewStyle().Padding(0, 1)
					})
				for _, p := range projects {
					t.Row(p.ID, p.Name, deadline(p), formatPoints(p.MaxPoints()))
				}
				cli.printf("%s\n", t)
				return nil
			}
			for _, p := range projects {
				cli.printf("%s\t%s\t%s\n", p.ID, p.Name, deadline(p))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&idsOnly, "ids", false, "only print the project IDs")
	cmd.Flags().BoolVar(&utc, "utc", false, "print deadlines in UTC instead of local time")
	return cmd
}

func parsePoints(s string) (float64, error) {
	pts, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, core.NewValidationError(nil, core.FieldError{
			Field: "points",
			Error: fmt.Sprintf("points must be a number (got '%s')", s),
		})
	}
	return pts, nil
}

func (cli *commandLine) setGradeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-grade TEAM_ID PROJECT_ID COMPONENT POINTS",
		Short: "Set the points of a team for a grade component",
		Args:  exactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cli.getCourse(cmd)
			if err != nil {
				return err
			}
			pts, err := parsePoints(args[3])
			if err != nil {
				return err
			}
			req := course.SetGradeRequest{TeamID: args[0], ProjectID: args[1], Component: args[2], Points: pts}
			if err = cli.svc.SetGrade(cmd.Context(), c.ID, req); err != nil {
				return err
			}
			cli.printf("Team %s: %s %s = %s\n", req.TeamID, req.ProjectID, req.Component, formatPoints(pts))
			return nil
		},
	}
}

func (cli *commandLine) addPenaltyCmd() *cobra.Command {
	var (
		description string
		points      float64
	)

	cmd := &cobra.Command{
		Use:   "add-penalty TEAM_ID PROJECT_ID --points POINTS --description TEXT",
		Short: "Add a penalty (negative points) or a bonus to a team's project",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cli.getCourse(cmd)
			if err != nil {
				return err
			}
			req := course.AddPenaltyRequest{TeamID: args[0], ProjectID: args[1], Description: description, Points: points}
			penalty, err := cli.svc.AddPenalty(cmd.Context(), c.ID, req)
			if err != nil {
				return err
			}
			cli.printf("Added %s points to team %s for project %s (%s)\n",
				formatPoints(penalty.Points), penalty.TeamID, penalty.ProjectID, penalty.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "reason of the penalty")
	cmd.Flags().Float64Var(&points, "points", 0, "points to add, negative for a penalty")
	return cmd
}
