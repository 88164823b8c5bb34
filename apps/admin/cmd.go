package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/course"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf   *core.Config
	db     *sqlx.DB
	svc    *course.Service
	logger core.Logger
	out    io.Writer
	errOut io.Writer

	courseID string // --course
}

func newCommandLine(conf *core.Config, db *sqlx.DB, svc *course.Service, logger core.Logger) *commandLine {
	return &commandLine{
		conf:   conf,
		db:     db,
		svc:    svc,
		logger: logger,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Course administration: projects, teams, graders and grades",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.errOut)
	root.PersistentFlags().StringVar(&cli.courseID, "course", "", "course ID (defaults to the configured default course)")

	root.AddCommand(
		cli.assignGradersCmd(),
		cli.assignProjectCmd(),
		cli.listGraderAssignmentsCmd(),
		cli.listGradesCmd(),
		cli.listProjectsCmd(),
		cli.setGradeCmd(),
		cli.addPenaltyCmd(),
		cli.importCmd(),
		cli.migrateCmd(),
	)
	return root
}

// run executes the command line `args`, program name included.
func (cli *commandLine) run(args []string) error {
	cli.courseID = ""
	root := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

// getCourse resolves the course from --course or the configured default course.
func (cli *commandLine) getCourse(cmd *cobra.Command) (course.Course, error) {
	id := core.CleanString(cli.courseID)
	if id == "" {
		id = cli.conf.Grading.DefaultCourse
	}
	if id == "" {
		cli.errorf("No course specified: use --course or set a default course\n")
		_ = cmd.Usage()
		return course.Course{}, errHelp
	}
	return cli.svc.GetCourse(cmd.Context(), id)
}

func (cli *commandLine) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cli.out, format, args...)
}

func (cli *commandLine) errorf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cli.errOut, format, args...)
}

func (cli *commandLine) isTerminal() bool {
	return isTerminalFunc(int(os.Stdout.Fd()))
}

// exactArgs prints the usage of the command when it is not given `n` arguments.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			_ = cmd.Usage()
			return errHelp
		}
		return nil
	}
}

// describeError renders validation errors field by field.
func describeError(err error) string {
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) || len(vErr.Fields) == 0 {
		return err.Error()
	}
	msgs := make([]string, 0, len(vErr.Fields))
	for _, f := range vErr.Fields {
		if strings.Contains(f.Error, f.Field) {
			msgs = append(msgs, f.Error)
		} else {
			msgs = append(msgs, f.Field+": "+f.Error)
		}
	}
	return strings.Join(msgs, "\n")
}
