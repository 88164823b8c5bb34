package course

import (
	"strings"
	"time"
)

type Course struct {
	ID   string `yaml:"id" validate:"required,max=36,identifier"`
	Name string `yaml:"name" validate:"max=128"`
}

type Person struct {
	ID                 string `yaml:"id"`
	FirstName          string `yaml:"first_name"`
	LastName           string `yaml:"last_name"`
	Email              string `yaml:"email"`
	GitServerID        string `yaml:"git_server_id"`
	GitStagingServerID string `yaml:"git_staging_server_id"`
}

func (p Person) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type Student struct {
	Person
	Dropped bool
}

type Grader struct {
	Person
}

type Instructor struct {
	Person
}

type GradeComponent struct {
	Name   string
	Points float64
}

type Project struct {
	ID         string
	Name       string
	Deadline   time.Time // UTC
	Components []GradeComponent
}

// Component returns the grade component called `name`.
func (p Project) Component(name string) (GradeComponent, bool) {
	for _, c := range p.Components {
		if c.Name == name {
			return c, true
		}
	}
	return GradeComponent{}, false
}

func (p Project) MaxPoints() float64 {
	var total float64
	for _, c := range p.Components {
		total += c.Points
	}
	return total
}

type Team struct {
	ID         string
	Active     bool
	StudentIDs []string
}

// TeamProject is the registration of a team for a project. GraderID is empty while no grader is assigned.
type TeamProject struct {
	TeamID    string
	ProjectID string
	GraderID  string
}

type Grade struct {
	TeamID    string
	ProjectID string
	Component string
	Points    float64
}

type Penalty struct {
	ID          string
	TeamID      string
	ProjectID   string
	Description string
	Points      float64 // negative for a deduction
	CreatedAt   time.Time
}

// GraderAssignment is one row of a project's grader assignments.
type GraderAssignment struct {
	TeamID     string
	GraderID   string
	GraderName string
	Students   []Person
}

// AssignGradersReport is the outcome of an AssignGraders run.
type AssignGradersReport struct {
	ProjectID   string
	DryRun      bool
	Quotas      map[string]int    // grader -> quota
	Assignments map[string]string // team -> grader ("" when unassigned)
	Changed     int
	UnderFilled map[string]int // grader -> missing teams
	Unassigned  []string
	Notified    []string // graders who were emailed
}

// HasWarnings reports partial failures: graders below quota or teams without a grader.
func (r AssignGradersReport) HasWarnings() bool {
	return len(r.UnderFilled) > 0 || len(r.Unassigned) > 0
}

// ProjectGrade is the grade of one student for one project.
type ProjectGrade struct {
	ProjectID  string
	TeamID     string // "" when the student was not in a team registered for the project
	Components map[string]float64
	Penalties  float64
	Total      float64
}

// StudentGrades is one line of the grade report.
type StudentGrades struct {
	Student  Student
	Projects []ProjectGrade // same order as GradeReport.Projects
}

type GradeReport struct {
	Projects []Project
	Students []StudentGrades
	Warnings []string
}
