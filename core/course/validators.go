package course

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grading"
)

var (
	// custom validation tags & texts
	unknownPersonTag  = "unknown_person"
	unknownPersonText = "{0} references a person missing from the roster"

	unknownProjectTag  = "unknown_project"
	unknownProjectText = "{0} references a project missing from the roster"

	duplicateIDTag  = "duplicate_id"
	duplicateIDText = "{0} is defined more than once"
)

// InitValidators registers the course validations on `validate`.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(rosterStructValidation, Roster{})

	core.RegisterCustomTranslation(validate, translator, unknownPersonTag, unknownPersonText)
	core.RegisterCustomTranslation(validate, translator, unknownProjectTag, unknownProjectText)
	core.RegisterCustomTranslation(validate, translator, duplicateIDTag, duplicateIDText)
}

// Requests

// AssignGradersRequest contains the options of an AssignGraders run.
type AssignGradersRequest struct {
	ProjectID    string `flag:"project_id" validate:"required,identifier"`
	FromProject  string `flag:"fromproject" validate:"omitempty,identifier"`
	AvoidProject string `flag:"avoidproject" validate:"omitempty,identifier"`
	Reset        bool   `flag:"reset"`
	DryRun       bool   `flag:"dry-run"`
	Notify       bool   `flag:"notify"`
	Seed         int64  `flag:"seed"` // 0: use the configured seed
}

func (r *AssignGradersRequest) Validate(validate *validator.Validate, translator ut.Translator) error {
	r.ProjectID = core.CleanString(r.ProjectID)
	r.FromProject = core.CleanString(r.FromProject)
	r.AvoidProject = core.CleanString(r.AvoidProject)

	if err := validate.Struct(r); err != nil {
		return core.TranslateValidationErrors(err, translator)
	}
	if r.FromProject != "" && r.Reset {
		return core.NewValidationError(grading.ErrResetWithFrom,
			core.FieldError{Field: "reset", Error: "--reset and --fromproject are mutually exclusive"})
	}
	if r.FromProject != "" && r.AvoidProject != "" {
		return core.NewValidationError(grading.ErrAvoidWithFrom,
			core.FieldError{Field: "avoidproject", Error: "--avoidproject and --fromproject are mutually exclusive"})
	}
	return nil
}

type SetGradeRequest struct {
	TeamID    string  `flag:"team_id" validate:"required"`
	ProjectID string  `flag:"project_id" validate:"required"`
	Component string  `flag:"component" validate:"required"`
	Points    float64 `flag:"points" validate:"finite,gte=0"`
}

func (r *SetGradeRequest) Validate(validate *validator.Validate, translator ut.Translator) error {
	r.TeamID = core.CleanString(r.TeamID)
	r.ProjectID = core.CleanString(r.ProjectID)
	r.Component = core.CleanString(r.Component)
	return core.TranslateValidationErrors(validate.Struct(r), translator)
}

type AddPenaltyRequest struct {
	TeamID      string  `flag:"team_id" validate:"required"`
	ProjectID   string  `flag:"project_id" validate:"required"`
	Description string  `flag:"description" validate:"required,max=256"`
	Points      float64 `flag:"points" validate:"finite,ne=0"`
}

func (r *AddPenaltyRequest) Validate(validate *validator.Validate, translator ut.Translator) error {
	r.TeamID = core.CleanString(r.TeamID)
	r.ProjectID = core.CleanString(r.ProjectID)
	r.Description = core.CleanString(r.Description)
	return core.TranslateValidationErrors(validate.Struct(r), translator)
}

// Roster

// Roster is the YAML document describing a whole course.
type Roster struct {
	Course      Course          `yaml:"course"`
	People      []NewPerson     `yaml:"people" validate:"dive"`
	Instructors []string        `yaml:"instructors" validate:"dive,required,max=36,identifier"`
	Graders     []string        `yaml:"graders" validate:"dive,required,max=36,identifier"`
	Students    []RosterStudent `yaml:"students" validate:"dive"`
	Projects    []NewProject    `yaml:"projects" validate:"dive"`
	Teams       []NewTeam       `yaml:"teams" validate:"dive"`
}

// NewPerson contains the information needed to create a Person.
type NewPerson struct {
	ID                 string `yaml:"id" validate:"required,max=36,identifier"`
	FirstName          string `yaml:"first_name" validate:"required,max=36"`
	LastName           string `yaml:"last_name" validate:"required,min=5,max=36"`
	Email              string `yaml:"email" validate:"required,min=10,max=128,email"`
	GitServerID        string `yaml:"git_server_id" validate:"omitempty,min=5,max=36"`
	GitStagingServerID string `yaml:"git_staging_server_id" validate:"omitempty,min=5,max=36"`
}

func (np *NewPerson) clean() {
	np.ID = core.CleanString(np.ID)
	np.FirstName = core.CleanString(np.FirstName)
	np.LastName = core.CleanString(np.LastName)
	np.Email = core.CleanString(np.Email, true /* lower */)
	np.GitServerID = core.CleanString(np.GitServerID)
	np.GitStagingServerID = core.CleanString(np.GitStagingServerID)
}

func (np NewPerson) person() Person {
	return Person{
		ID:                 np.ID,
		FirstName:          np.FirstName,
		LastName:           np.LastName,
		Email:              np.Email,
		GitServerID:        np.GitServerID,
		GitStagingServerID: np.GitStagingServerID,
	}
}

type RosterStudent struct {
	ID      string `yaml:"id" validate:"required,max=36,identifier"`
	Dropped bool   `yaml:"dropped"`
}

// UnmarshalYAML accepts either a bare person ID or a {id, dropped} mapping.
func (rs *RosterStudent) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var id string
	if err := unmarshal(&id); err == nil {
		rs.ID = id
		return nil
	}
	type plain RosterStudent
	return unmarshal((*plain)(rs))
}

type NewGradeComponent struct {
	Name   string  `yaml:"name" validate:"required,max=64"`
	Points float64 `yaml:"points" validate:"gt=0"`
}

type NewProject struct {
	ID              string              `yaml:"id" validate:"required,max=36,identifier"`
	Name            string              `yaml:"name" validate:"required,max=128"`
	Deadline        time.Time           `yaml:"deadline" validate:"required"`
	GradeComponents []NewGradeComponent `yaml:"grade_components" validate:"dive"`
}

func (np NewProject) project() Project {
	p := Project{
		ID:         core.CleanString(np.ID),
		Name:       core.CleanString(np.Name),
		Deadline:   np.Deadline.UTC(),
		Components: make([]GradeComponent, 0, len(np.GradeComponents)),
	}
	for _, gc := range np.GradeComponents {
		p.Components = append(p.Components, GradeComponent{Name: core.CleanString(gc.Name), Points: gc.Points})
	}
	return p
}

type NewTeam struct {
	ID       string   `yaml:"id" validate:"required,max=64,identifier"`
	Active   *bool    `yaml:"active"` // defaults to true
	Students []string `yaml:"students" validate:"dive,required,max=36,identifier"`
	Projects []string `yaml:"projects" validate:"dive,required,max=36,identifier"`
}

func (nt NewTeam) team() Team {
	active := true
	if nt.Active != nil {
		active = *nt.Active
	}
	return Team{ID: core.CleanString(nt.ID), Active: active, StudentIDs: nt.Students}
}

func (r *Roster) Validate(validate *validator.Validate, translator ut.Translator) error {
	r.Course.ID = core.CleanString(r.Course.ID)
	r.Course.Name = core.CleanString(r.Course.Name)
	for i := range r.People {
		r.People[i].clean()
	}
	cleanIDs(r.Instructors)
	cleanIDs(r.Graders)
	for i := range r.Students {
		r.Students[i].ID = core.CleanString(r.Students[i].ID)
	}
	for i := range r.Projects {
		r.Projects[i].ID = core.CleanString(r.Projects[i].ID)
	}
	for i := range r.Teams {
		r.Teams[i].ID = core.CleanString(r.Teams[i].ID)
		cleanIDs(r.Teams[i].Students)
		cleanIDs(r.Teams[i].Projects)
	}
	if r.Course.Name == "" {
		r.Course.Name = r.Course.ID
	}
	if r.Course.ID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "course", Error: "course id is required"})
	}
	return core.TranslateValidationErrors(validate.Struct(r), translator)
}

func cleanIDs(ids []string) {
	for i := range ids {
		ids[i] = core.CleanString(ids[i])
	}
}

// rosterStructValidation checks the references between the sections of a roster.
func rosterStructValidation(sl validator.StructLevel) {
	r := sl.Current().Interface().(Roster)

	people := make(map[string]bool, len(r.People))
	for _, p := range r.People {
		if people[p.ID] {
			sl.ReportError(p.ID, "people", "People", duplicateIDTag, "")
		}
		people[p.ID] = true
	}
	projects := make(map[string]bool, len(r.Projects))
	for _, p := range r.Projects {
		if projects[p.ID] {
			sl.ReportError(p.ID, "projects", "Projects", duplicateIDTag, "")
		}
		projects[p.ID] = true
	}

	checkPeople := func(field string, ids []string) {
		for _, id := range ids {
			if !people[id] {
				sl.ReportError(id, field, field, unknownPersonTag, "")
				return
			}
		}
	}
	checkPeople("instructors", r.Instructors)
	checkPeople("graders", r.Graders)
	for _, s := range r.Students {
		checkPeople("students", []string{s.ID})
	}

	teams := make(map[string]bool, len(r.Teams))
	for _, t := range r.Teams {
		if teams[t.ID] {
			sl.ReportError(t.ID, "teams", "Teams", duplicateIDTag, "")
		}
		teams[t.ID] = true
		checkPeople("teams", t.Students)
		for _, pid := range t.Projects {
			if !projects[pid] {
				sl.ReportError(pid, "teams", "Teams", unknownProjectTag, "")
				break
			}
		}
	}
}
