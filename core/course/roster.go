package course

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/gradebook/core"
)

type ImportReport struct {
	CourseID string
	People   int
	Projects int
	Teams    int
}

// ParseRoster decodes a YAML roster. Unknown fields are rejected.
func ParseRoster(r io.Reader) (Roster, error) {
	var roster Roster
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&roster); err != nil {
		if err == io.EOF {
			return Roster{}, core.NewValidationError(err, core.FieldError{Field: "roster", Error: "the roster is empty"})
		}
		return Roster{}, errors.Wrap(err, "parsing roster")
	}
	return roster, nil
}

// ImportRoster creates or updates a course and everything in it from a YAML roster.
// The whole roster is saved in one transaction.
func (svc *Service) ImportRoster(ctx context.Context, r io.Reader) (ImportReport, error) {
	roster, err := ParseRoster(r)
	if err != nil {
		return ImportReport{}, err
	}
	if err = roster.Validate(svc.validate, svc.translator); err != nil {
		return ImportReport{}, err
	}

	courseID := roster.Course.ID
	err = core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if err := svc.repos.Courses.UpdateOrCreateCourse(ctx, roster.Course, tx); err != nil {
			return err
		}
		for _, np := range roster.People {
			if err := svc.repos.People.UpdateOrCreatePerson(ctx, np.person(), tx); err != nil {
				return err
			}
		}
		for _, id := range roster.Instructors {
			if err := svc.repos.People.AddInstructor(ctx, courseID, id, tx); err != nil {
				return err
			}
		}
		for _, id := range roster.Graders {
			if err := svc.repos.People.AddGrader(ctx, courseID, id, tx); err != nil {
				return err
			}
		}
		for _, s := range roster.Students {
			if err := svc.repos.People.AddStudent(ctx, courseID, s.ID, s.Dropped, tx); err != nil {
				return err
			}
		}
		for _, np := range roster.Projects {
			if err := svc.repos.Projects.UpdateOrCreateProject(ctx, courseID, np.project(), tx); err != nil {
				return err
			}
		}
		for _, nt := range roster.Teams {
			team := nt.team()
			if err := svc.repos.Teams.UpdateOrCreateTeam(ctx, courseID, team, tx); err != nil {
				return err
			}
			if err := svc.registerTeam(ctx, courseID, team.ID, nt.Projects, tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ImportReport{}, errors.Wrap(err, "importing roster")
	}

	svc.logger.Info("roster imported", map[string]interface{}{"course": courseID, "teams": len(roster.Teams)})
	return ImportReport{
		CourseID: courseID,
		People:   len(roster.People),
		Projects: len(roster.Projects),
		Teams:    len(roster.Teams),
	}, nil
}

// registerTeam registers a team for the projects it is not registered for yet.
func (svc *Service) registerTeam(ctx context.Context, courseID, teamID string, projectIDs []string, tx core.DBExecutor) error {
	if len(projectIDs) == 0 {
		return nil
	}
	registered := make(map[string]bool)
	for _, pid := range projectIDs {
		tps, err := svc.repos.Teams.QueryTeamProjects(ctx, courseID, pid, tx)
		if err != nil {
			return err
		}
		for _, tp := range tps {
			if tp.TeamID == teamID {
				registered[pid] = true
			}
		}
		if registered[pid] {
			continue
		}
		if err = svc.repos.Teams.AddTeamProject(ctx, courseID, TeamProject{TeamID: teamID, ProjectID: pid}, tx); err != nil {
			return err
		}
		registered[pid] = true
	}
	return nil
}
