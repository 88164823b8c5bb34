package course

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grading"
)

var (
	// errors
	ErrNotFound      = errors.New("not found")
	ErrNotRegistered = errors.New("team is not registered for this project")
	ErrPointsRange   = errors.New("points out of range")
)

const graderAssignmentsTemplate = "grader_assignments"

type (
	Repositories struct {
		Courses  CourseRepository
		People   PersonRepository
		Graders  GraderRepository
		Projects ProjectRepository
		Teams    TeamRepository
	}

	Service struct {
		db         core.DB
		repos      Repositories
		mailSvc    core.EmailService
		logger     core.Logger
		conf       *core.Config
		validate   *validator.Validate
		translator ut.Translator
	}

	AssignProjectReport struct {
		Assigned []string // teams registered by this run
		Skipped  []string // teams already registered
		Inactive []string
	}
)

func NewService(
	db core.DB,
	repos Repositories,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
	validate *validator.Validate,
	translator ut.Translator,
) *Service {
	InitValidators(validate, translator)
	return &Service{
		db:         db,
		repos:      repos,
		mailSvc:    mailSvc,
		logger:     logger,
		conf:       conf,
		validate:   validate,
		translator: translator,
	}
}

// GetCourse returns the course `id`, or a *core.NotFoundError suggesting a similar course.
func (svc *Service) GetCourse(ctx context.Context, id string) (Course, error) {
	c, err := svc.repos.Courses.GetCourse(ctx, core.CleanString(id))
	if errors.Cause(err) == ErrNotFound {
		courses, qErr := svc.repos.Courses.QueryCourses(ctx)
		if qErr != nil {
			return Course{}, qErr
		}
		known := make([]string, 0, len(courses))
		for _, c := range courses {
			known = append(known, c.ID)
		}
		return Course{}, core.NewNotFoundError("Course", id, known...)
	}
	return c, err
}

func (svc *Service) getProject(ctx context.Context, courseID, id string) (Project, error) {
	p, err := svc.repos.Projects.GetProject(ctx, courseID, id)
	if errors.Cause(err) == ErrNotFound {
		projects, qErr := svc.repos.Projects.QueryProjects(ctx, courseID)
		if qErr != nil {
			return Project{}, qErr
		}
		known := make([]string, 0, len(projects))
		for _, p := range projects {
			known = append(known, p.ID)
		}
		return Project{}, core.NewNotFoundError("Project", id, known...)
	}
	return p, err
}

func (svc *Service) getGrader(ctx context.Context, courseID, id string) (Grader, error) {
	g, err := svc.repos.Graders.GetGrader(ctx, courseID, id)
	if errors.Cause(err) == ErrNotFound {
		graders, qErr := svc.repos.Graders.QueryGraders(ctx, courseID)
		if qErr != nil {
			return Grader{}, qErr
		}
		known := make([]string, 0, len(graders))
		for _, g := range graders {
			known = append(known, g.ID)
		}
		return Grader{}, core.NewNotFoundError("Grader", id, known...)
	}
	return g, err
}

func (svc *Service) getTeam(ctx context.Context, courseID, id string) (Team, error) {
	t, err := svc.repos.Teams.GetTeam(ctx, courseID, id)
	if errors.Cause(err) == ErrNotFound {
		teams, qErr := svc.repos.Teams.QueryTeams(ctx, courseID)
		if qErr != nil {
			return Team{}, qErr
		}
		known := make([]string, 0, len(teams))
		for _, t := range teams {
			known = append(known, t.ID)
		}
		return Team{}, core.NewNotFoundError("Team", id, known...)
	}
	return t, err
}

// registration returns the registration of team `teamID` for project `projectID`.
func (svc *Service) registration(ctx context.Context, courseID, teamID, projectID string) (TeamProject, error) {
	tps, err := svc.repos.Teams.QueryTeamProjects(ctx, courseID, projectID)
	if err != nil {
		return TeamProject{}, err
	}
	for _, tp := range tps {
		if tp.TeamID == teamID {
			return tp, nil
		}
	}
	return TeamProject{}, errors.Wrapf(ErrNotRegistered, "team %s, project %s", teamID, projectID)
}

// AssignGraders distributes the teams registered for a project among the course graders
// and saves the assignments that changed. Nothing is saved on a dry run.
func (svc *Service) AssignGraders(ctx context.Context, courseID string, req AssignGradersRequest) (AssignGradersReport, error) {
	if err := req.Validate(svc.validate, svc.translator); err != nil {
		return AssignGradersReport{}, err
	}

	project, err := svc.getProject(ctx, courseID, req.ProjectID)
	if err != nil {
		return AssignGradersReport{}, err
	}

	in := grading.Input{Reset: req.Reset}
	if req.FromProject != "" {
		if in.From, err = svc.projectGraders(ctx, courseID, req.FromProject); err != nil {
			return AssignGradersReport{}, err
		}
	}
	if req.AvoidProject != "" {
		if in.Avoid, err = svc.projectGraders(ctx, courseID, req.AvoidProject); err != nil {
			return AssignGradersReport{}, err
		}
	}

	graders, err := svc.repos.Graders.QueryGraders(ctx, courseID)
	if err != nil {
		return AssignGradersReport{}, err
	}
	if len(graders) == 0 {
		return AssignGradersReport{}, grading.ErrNoGraders
	}
	for _, g := range graders {
		in.Graders = append(in.Graders, g.ID)
	}

	tps, err := svc.repos.Teams.QueryTeamProjects(ctx, courseID, project.ID)
	if err != nil {
		return AssignGradersReport{}, err
	}
	in.Current = make(map[string]string, len(tps))
	for _, tp := range tps {
		in.Teams = append(in.Teams, tp.TeamID)
		in.Current[tp.TeamID] = tp.GraderID
	}

	eligible, err := svc.notTeamMember(ctx, courseID)
	if err != nil {
		return AssignGradersReport{}, err
	}
	seed := req.Seed
	if seed == 0 {
		seed = svc.conf.Grading.Seed
	}
	balancer := grading.NewBalancer(grading.WithSeed(seed), grading.WithEligibility(eligible))

	res, err := balancer.Assign(in)
	if err != nil {
		return AssignGradersReport{}, err
	}

	report := AssignGradersReport{
		ProjectID:   project.ID,
		DryRun:      req.DryRun,
		Quotas:      res.Quotas,
		Assignments: res.Assignments,
		Changed:     len(res.Changed),
		Unassigned:  res.Unassigned,
	}
	if len(res.UnderFilled) > 0 {
		report.UnderFilled = make(map[string]int, len(res.UnderFilled))
		for _, s := range res.UnderFilled {
			report.UnderFilled[s.GraderID] = s.Missing
		}
	}
	if req.DryRun {
		return report, nil
	}

	if len(res.Changed) > 0 {
		changed := make(map[string]string, len(res.Changed))
		for _, t := range res.Changed {
			changed[t] = res.Assignments[t]
		}
		err = core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
			return svc.repos.Teams.UpdateTeamProjectGraders(ctx, courseID, project.ID, changed, tx)
		})
		if err != nil {
			return AssignGradersReport{}, errors.Wrap(err, "saving grader assignments")
		}
	}

	if req.Notify {
		report.Notified = svc.notifyGraders(project, graders, res.Assignments)
	}
	return report, nil
}

// projectGraders returns the {team: grader} registrations of a project.
func (svc *Service) projectGraders(ctx context.Context, courseID, projectID string) (map[string]string, error) {
	if _, err := svc.getProject(ctx, courseID, projectID); err != nil {
		return nil, err
	}
	tps, err := svc.repos.Teams.QueryTeamProjects(ctx, courseID, projectID)
	if err != nil {
		return nil, err
	}
	graders := make(map[string]string, len(tps))
	for _, tp := range tps {
		graders[tp.TeamID] = tp.GraderID
	}
	return graders, nil
}

// notTeamMember returns an eligibility predicate preventing graders from grading their own team.
func (svc *Service) notTeamMember(ctx context.Context, courseID string) (grading.EligibilityFunc, error) {
	teams, err := svc.repos.Teams.QueryTeams(ctx, courseID)
	if err != nil {
		return nil, err
	}
	members := make(map[string]map[string]bool, len(teams))
	for _, t := range teams {
		members[t.ID] = make(map[string]bool, len(t.StudentIDs))
		for _, id := range t.StudentIDs {
			members[t.ID][id] = true
		}
	}
	return func(teamID, graderID string) bool {
		return !members[teamID][graderID]
	}, nil
}

func (svc *Service) notifyGraders(project Project, graders []Grader, assignments map[string]string) []string {
	teamsByGrader := make(map[string][]string)
	for team, grader := range assignments {
		if grader != "" {
			teamsByGrader[grader] = append(teamsByGrader[grader], team)
		}
	}

	var (
		notified []string
		messages []*core.EmailMessage
	)
	for _, g := range graders {
		teams := teamsByGrader[g.ID]
		if len(teams) == 0 || g.Email == "" {
			continue
		}
		sort.Strings(teams)
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Name: g.FullName(), Address: g.Email}},
			Subject:      fmt.Sprintf("Grading assignments for project %s", project.ID),
			TemplateName: graderAssignmentsTemplate,
			TemplateData: map[string]interface{}{
				"GraderName":  g.FirstName,
				"ProjectID":   project.ID,
				"ProjectName": project.Name,
				"Teams":       teams,
			},
		})
		notified = append(notified, g.ID)
	}
	if len(messages) > 0 {
		svc.mailSvc.SendMessages(messages...)
	}
	return notified
}

// AssignProject registers every active team for a project.
// Teams already registered are skipped unless `force` is set, in which case their registration is reset.
func (svc *Service) AssignProject(ctx context.Context, courseID, projectID string, force bool) (AssignProjectReport, error) {
	project, err := svc.getProject(ctx, courseID, core.CleanString(projectID))
	if err != nil {
		return AssignProjectReport{}, err
	}
	teams, err := svc.repos.Teams.QueryTeams(ctx, courseID)
	if err != nil {
		return AssignProjectReport{}, err
	}
	tps, err := svc.repos.Teams.QueryTeamProjects(ctx, courseID, project.ID)
	if err != nil {
		return AssignProjectReport{}, err
	}
	registered := make(map[string]bool, len(tps))
	for _, tp := range tps {
		registered[tp.TeamID] = true
	}

	var report AssignProjectReport
	err = core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		for _, t := range teams {
			if !t.Active {
				report.Inactive = append(report.Inactive, t.ID)
				continue
			}
			if registered[t.ID] && !force {
				report.Skipped = append(report.Skipped, t.ID)
				continue
			}
			if err := svc.repos.Teams.AddTeamProject(ctx, courseID, TeamProject{TeamID: t.ID, ProjectID: project.ID}, tx); err != nil {
				return err
			}
			report.Assigned = append(report.Assigned, t.ID)
		}
		return nil
	})
	if err != nil {
		return AssignProjectReport{}, errors.Wrap(err, "assigning project")
	}
	return report, nil
}

// ListGraderAssignments returns the registrations of a project ordered by team.
// When graderID is set, only the teams of that grader are returned.
func (svc *Service) ListGraderAssignments(ctx context.Context, courseID, projectID, graderID string) ([]GraderAssignment, error) {
	project, err := svc.getProject(ctx, courseID, core.CleanString(projectID))
	if err != nil {
		return nil, err
	}
	graderID = core.CleanString(graderID)
	if graderID != "" {
		if _, err = svc.getGrader(ctx, courseID, graderID); err != nil {
			return nil, err
		}
	}

	graders, err := svc.repos.Graders.QueryGraders(ctx, courseID)
	if err != nil {
		return nil, err
	}
	graderNames := make(map[string]string, len(graders))
	for _, g := range graders {
		graderNames[g.ID] = g.FullName()
	}
	students, err := svc.studentsByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	teams, err := svc.repos.Teams.QueryTeams(ctx, courseID)
	if err != nil {
		return nil, err
	}
	members := make(map[string][]string, len(teams))
	for _, t := range teams {
		members[t.ID] = t.StudentIDs
	}

	tps, err := svc.repos.Teams.QueryTeamProjects(ctx, courseID, project.ID)
	if err != nil {
		return nil, err
	}
	rows := make([]GraderAssignment, 0, len(tps))
	for _, tp := range tps {
		if graderID != "" && tp.GraderID != graderID {
			continue
		}
		row := GraderAssignment{TeamID: tp.TeamID, GraderID: tp.GraderID, GraderName: graderNames[tp.GraderID]}
		for _, id := range members[tp.TeamID] {
			if s, ok := students[id]; ok {
				row.Students = append(row.Students, s.Person)
			}
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].TeamID < rows[j].TeamID })
	return rows, nil
}

func (svc *Service) studentsByID(ctx context.Context, courseID string) (map[string]Student, error) {
	students, err := svc.repos.People.QueryStudents(ctx, courseID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Student, len(students))
	for _, s := range students {
		byID[s.ID] = s
	}
	return byID, nil
}

func (svc *Service) ListProjects(ctx context.Context, courseID string) ([]Project, error) {
	projects, err := svc.repos.Projects.QueryProjects(ctx, courseID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(projects, func(i, j int) bool { return projects[i].Deadline.Before(projects[j].Deadline) })
	return projects, nil
}

// GradeReport computes the grades of every student still enrolled, ordered by last name,
// for every project, ordered by deadline.
func (svc *Service) GradeReport(ctx context.Context, courseID string) (GradeReport, error) {
	var report GradeReport

	projects, err := svc.ListProjects(ctx, courseID)
	if err != nil {
		return report, err
	}
	report.Projects = projects

	students, err := svc.repos.People.QueryStudents(ctx, courseID)
	if err != nil {
		return report, err
	}
	enrolled := make([]Student, 0, len(students))
	for _, s := range students {
		if !s.Dropped {
			enrolled = append(enrolled, s)
		}
	}
	sort.SliceStable(enrolled, func(i, j int) bool {
		if enrolled[i].LastName != enrolled[j].LastName {
			return enrolled[i].LastName < enrolled[j].LastName
		}
		return enrolled[i].FirstName < enrolled[j].FirstName
	})

	teams, err := svc.repos.Teams.QueryTeams(ctx, courseID)
	if err != nil {
		return report, err
	}
	tps, err := svc.repos.Teams.QueryTeamProjects(ctx, courseID, "")
	if err != nil {
		return report, err
	}
	grades, err := svc.repos.Teams.QueryGrades(ctx, courseID)
	if err != nil {
		return report, err
	}
	penalties, err := svc.repos.Teams.QueryPenalties(ctx, courseID)
	if err != nil {
		return report, err
	}

	type key struct{ team, project string }
	components := make(map[key]map[string]float64)
	for _, g := range grades {
		k := key{g.TeamID, g.ProjectID}
		if components[k] == nil {
			components[k] = make(map[string]float64)
		}
		components[k][g.Component] = g.Points
	}
	penaltyTotals := make(map[key]float64)
	for _, p := range penalties {
		penaltyTotals[key{p.TeamID, p.ProjectID}] += p.Points
	}
	members := make(map[string][]string, len(teams))
	for _, t := range teams {
		members[t.ID] = t.StudentIDs
	}

	// student -> project -> team graded for it
	gradedBy := make(map[string]map[string]string, len(enrolled))
	for _, s := range enrolled {
		gradedBy[s.ID] = make(map[string]string)
	}
	for _, tp := range tps {
		for _, sid := range members[tp.TeamID] {
			byProject, ok := gradedBy[sid]
			if !ok {
				continue
			}
			if prev, ok := byProject[tp.ProjectID]; ok {
				report.Warnings = append(report.Warnings, fmt.Sprintf(
					"student %s already has a grade for project %s (team %s), ignoring team %s", sid, tp.ProjectID, prev, tp.TeamID))
				continue
			}
			byProject[tp.ProjectID] = tp.TeamID
		}
	}

	for _, s := range enrolled {
		line := StudentGrades{Student: s, Projects: make([]ProjectGrade, 0, len(projects))}
		for _, p := range projects {
			pg := ProjectGrade{ProjectID: p.ID}
			if teamID, ok := gradedBy[s.ID][p.ID]; ok {
				k := key{teamID, p.ID}
				pg.TeamID = teamID
				pg.Components = components[k]
				pg.Penalties = penaltyTotals[k]
				pg.Total = pg.Penalties
				for _, pts := range pg.Components {
					pg.Total += pts
				}
			}
			line.Projects = append(line.Projects, pg)
		}
		report.Students = append(report.Students, line)
	}
	return report, nil
}

// SetGrade sets the points of a team for one grade component of a project.
func (svc *Service) SetGrade(ctx context.Context, courseID string, req SetGradeRequest) error {
	if err := req.Validate(svc.validate, svc.translator); err != nil {
		return err
	}
	project, err := svc.getProject(ctx, courseID, req.ProjectID)
	if err != nil {
		return err
	}
	if _, err = svc.getTeam(ctx, courseID, req.TeamID); err != nil {
		return err
	}
	if _, err = svc.registration(ctx, courseID, req.TeamID, project.ID); err != nil {
		return err
	}
	gc, ok := project.Component(req.Component)
	if !ok {
		known := make([]string, 0, len(project.Components))
		for _, c := range project.Components {
			known = append(known, c.Name)
		}
		return core.NewNotFoundError("Grade component", req.Component, known...)
	}
	if req.Points > gc.Points {
		return core.NewValidationError(ErrPointsRange, core.FieldError{
			Field: "points",
			Error: fmt.Sprintf("%s is worth at most %g points", gc.Name, gc.Points),
		})
	}

	grade := Grade{TeamID: req.TeamID, ProjectID: project.ID, Component: gc.Name, Points: req.Points}
	return svc.repos.Teams.SetGrade(ctx, courseID, grade)
}

// AddPenalty records a penalty (or bonus, when positive) on a team's project.
func (svc *Service) AddPenalty(ctx context.Context, courseID string, req AddPenaltyRequest) (Penalty, error) {
	if err := req.Validate(svc.validate, svc.translator); err != nil {
		return Penalty{}, err
	}
	project, err := svc.getProject(ctx, courseID, req.ProjectID)
	if err != nil {
		return Penalty{}, err
	}
	if _, err = svc.getTeam(ctx, courseID, req.TeamID); err != nil {
		return Penalty{}, err
	}
	if _, err = svc.registration(ctx, courseID, req.TeamID, project.ID); err != nil {
		return Penalty{}, err
	}

	penalty := Penalty{
		ID:          uuid.New().String(),
		TeamID:      req.TeamID,
		ProjectID:   project.ID,
		Description: req.Description,
		Points:      req.Points,
		CreatedAt:   time.Now().UTC(),
	}
	return svc.repos.Teams.AddPenalty(ctx, courseID, penalty)
}

// FormatGraderID renders an empty grader the way the listings do.
func FormatGraderID(id string) string {
	if strings.TrimSpace(id) == "" {
		return "<no-grader-assigned>"
	}
	return id
}
