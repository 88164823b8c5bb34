package course_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/course"
	testutil "github.com/trezcool/gradebook/tests"
)

const rosterYAML = `
course:
  id: cmsc23300
  name: Networks and Distributed Systems
people:
  - id: borja
    first_name: Borja
    last_name: Sotomayor
    email: Borja@Example.com
  - id: tagrader
    first_name: Teaching
    last_name: Assistant
    email: tagrader@example.com
    git_server_id: ta-git-1
  - id: amartin
    first_name: Amy
    last_name: Martin
    email: amartin@example.com
  - id: bgarcia
    first_name: Bob
    last_name: Garcia
    email: bgarcia@example.com
instructors: [borja]
graders: [tagrader]
students:
  - amartin
  - id: bgarcia
    dropped: true
projects:
  - id: p1
    name: Chirc
    deadline: 2014-01-20T17:00:00Z
    grade_components:
      - name: Tests
        points: 50
      - name: Design
        points: 50
  - id: p2
    name: Chitcp
    deadline: 2014-02-03T17:00:00Z
teams:
  - id: team-ab
    students: [amartin, bgarcia]
    projects: [p1, p2]
  - id: team-old
    active: false
    students: [bgarcia]
`

func TestService_ImportRoster(t *testing.T) {
	db := testutil.PrepareDB(t)
	repos := testutil.NewRepositories(db)
	svc, _ := testutil.NewService(db)
	ctx := context.Background()

	report, err := svc.ImportRoster(ctx, strings.NewReader(rosterYAML))
	require.NoError(t, err)
	assert.Equal(t, course.ImportReport{CourseID: courseID, People: 4, Projects: 2, Teams: 2}, report)

	c, err := svc.GetCourse(ctx, courseID)
	require.NoError(t, err)
	assert.Equal(t, "Networks and Distributed Systems", c.Name)

	borja, err := repos.People.GetPerson(ctx, "borja")
	require.NoError(t, err)
	assert.Equal(t, "borja@example.com", borja.Email)

	graders, err := repos.Graders.QueryGraders(ctx, courseID)
	require.NoError(t, err)
	require.Len(t, graders, 1)
	assert.Equal(t, "ta-git-1", graders[0].GitServerID)

	students, err := repos.People.QueryStudents(ctx, courseID)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.False(t, students[0].Dropped)
	assert.True(t, students[1].Dropped)

	projects, err := svc.ListProjects(ctx, courseID)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, 100.0, projects[0].MaxPoints())

	teams, err := repos.Teams.QueryTeams(ctx, courseID)
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.True(t, teams[0].Active)
	assert.Equal(t, []string{"amartin", "bgarcia"}, teams[0].StudentIDs)
	assert.False(t, teams[1].Active)

	assert.Equal(t, map[string]string{"team-ab": ""}, testutil.GraderAssignments(t, repos, courseID, "p1"))

	// importing again keeps existing registrations
	testutil.SetGrader(t, repos, courseID, "p1", "team-ab", "tagrader")
	_, err = svc.ImportRoster(ctx, strings.NewReader(rosterYAML))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"team-ab": "tagrader"}, testutil.GraderAssignments(t, repos, courseID, "p1"))
}

func TestService_ImportRoster_errors(t *testing.T) {
	const people = `
course: {id: cmsc23300}
people:
  - {id: amartin, first_name: Amy, last_name: Martin, email: amartin@example.com}
`
	tests := []struct {
		name   string
		roster string
		field  string
		errMsg string
	}{
		{name: "empty", roster: "", field: "roster", errMsg: "the roster is empty"},
		{name: "no course", roster: "graders: []", field: "course", errMsg: "course id is required"},
		{
			name:   "short last name",
			roster: "course: {id: c1}\npeople:\n  - {id: amy, first_name: Amy, last_name: Li, email: amy@example.com}",
			field:  "last_name",
		},
		{
			name:   "bad email",
			roster: "course: {id: c1}\npeople:\n  - {id: amy, first_name: Amy, last_name: Martin, email: not-an-email}",
			field:  "email",
		},
		{
			name:   "bad id",
			roster: "course: {id: c1}\npeople:\n  - {id: a my, first_name: Amy, last_name: Martin, email: amy@example.com}",
			field:  "id",
			errMsg: "only alphanumeric characters, dashes and underscores are allowed",
		},
		{
			name:   "duplicate person",
			roster: people + "  - {id: amartin, first_name: Amy, last_name: Martinez, email: amartin@example.com}",
			field:  "people",
			errMsg: "people is defined more than once",
		},
		{name: "unknown grader", roster: people + "graders: [nobody]", field: "graders", errMsg: "graders references a person missing from the roster"},
		{name: "unknown student", roster: people + "students: [amartin, nobody]", field: "students"},
		{name: "unknown team member", roster: people + "teams:\n  - {id: t1, students: [nobody]}", field: "teams"},
		{
			name:   "long course id",
			roster: "course: {id: " + strings.Repeat("c", 37) + "}",
			field:  "id",
			errMsg: "id must be a maximum of 36 characters in length",
		},
		{
			name:   "bad course id",
			roster: "course: {id: cmsc 23300}",
			field:  "id",
			errMsg: "only alphanumeric characters, dashes and underscores are allowed",
		},
		{name: "bad grader id", roster: people + "graders: [\"a/b\"]", field: "graders[0]"},
		{
			name:   "unknown team project",
			roster: people + "teams:\n  - {id: t1, students: [amartin], projects: [p1]}",
			field:  "teams",
			errMsg: "teams references a project missing from the roster",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db := testutil.PrepareDB(t)
			svc, _ := testutil.NewService(db)

			_, err := svc.ImportRoster(context.Background(), strings.NewReader(tc.roster))
			require.Error(t, err)
			require.True(t, core.IsValidationError(err), "got %v", err)

			var vErr *core.ValidationError
			require.True(t, errors.As(err, &vErr))
			require.NotEmpty(t, vErr.Fields)
			assert.Equal(t, tc.field, vErr.Fields[0].Field)
			if tc.errMsg != "" {
				assert.Equal(t, tc.errMsg, vErr.Fields[0].Error)
			}

			// nothing is saved
			courses, err := testutil.NewRepositories(db).Courses.QueryCourses(context.Background())
			require.NoError(t, err)
			assert.Empty(t, courses)
		})
	}
}

func TestService_ImportRoster_cleansReferences(t *testing.T) {
	const roster = `
course: {id: " cmsc23300 "}
people:
  - {id: " amartin", first_name: Amy, last_name: Martin, email: amartin@example.com}
  - {id: tagrader, first_name: Teaching, last_name: Assistant, email: tagrader@example.com}
instructors: [" tagrader"]
graders: ["tagrader "]
students: [" amartin"]
projects:
  - {id: " p1", name: Chirc, deadline: 2014-01-20T17:00:00Z}
teams:
  - {id: " team-a", students: [" amartin "], projects: ["p1 "]}
`
	db := testutil.PrepareDB(t)
	repos := testutil.NewRepositories(db)
	svc, _ := testutil.NewService(db)
	ctx := context.Background()

	report, err := svc.ImportRoster(ctx, strings.NewReader(roster))
	require.NoError(t, err)
	assert.Equal(t, course.ImportReport{CourseID: courseID, People: 2, Projects: 1, Teams: 1}, report)

	teams, err := repos.Teams.QueryTeams(ctx, courseID)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "team-a", teams[0].ID)
	assert.Equal(t, []string{"amartin"}, teams[0].StudentIDs)
	assert.Equal(t, map[string]string{"team-a": ""}, testutil.GraderAssignments(t, repos, courseID, "p1"))
}

func TestParseRoster_unknownField(t *testing.T) {
	_, err := course.ParseRoster(strings.NewReader("course: {id: c1}\nassistants: [x]\n"))
	require.Error(t, err)
	assert.False(t, core.IsValidationError(err))
	assert.Contains(t, err.Error(), "assistants")
}
