// Package grading distributes the teams registered for a project among the course graders.
package grading

import (
	"errors"
	"math/rand"
	"time"
)

var (
	// errors
	ErrNoGraders     = errors.New("there are no graders to assign")
	ErrResetWithFrom = errors.New("reset and from-project are mutually exclusive")
	ErrAvoidWithFrom = errors.New("avoid-project and from-project are mutually exclusive")
)

// EligibilityFunc reports whether a grader may grade a team.
type EligibilityFunc func(teamID, graderID string) bool

// AlwaysEligible is the default EligibilityFunc.
func AlwaysEligible(string, string) bool { return true }

// Input is the in-memory state of a project's grader assignments.
// A nil From means no from-project was given; a nil Avoid means no avoid-project.
type Input struct {
	Teams   []string          // teams registered for the target project, in order
	Graders []string          // graders of the course
	Current map[string]string // team -> current grader on the target project
	From    map[string]string // team -> grader on the from-project
	Avoid   map[string]string // team -> grader on the avoid-project
	Reset   bool
}

func (in Input) validate() error {
	if in.From != nil && in.Reset {
		return ErrResetWithFrom
	}
	if in.From != nil && in.Avoid != nil {
		return ErrAvoidWithFrom
	}
	if len(in.Graders) == 0 {
		return ErrNoGraders
	}
	return nil
}

// Shortfall is the number of teams a grader did not receive.
type Shortfall struct {
	GraderID string
	Missing  int
}

type Result struct {
	Quotas      map[string]int    // grader -> computed quota
	Order       []string          // graders, in the order they were served
	Assignments map[string]string // team -> grader ("" when unassigned)
	Changed     []string          // teams whose grader differs from Input.Current
	UnderFilled []Shortfall
	Unassigned  []string
}

// Balancer assigns graders so that every grader receives a near-equal share of the teams.
type Balancer struct {
	rnd      *rand.Rand
	eligible EligibilityFunc
}

type Option func(*Balancer)

// WithRand sets the random source used to shuffle graders.
func WithRand(rnd *rand.Rand) Option {
	return func(b *Balancer) { b.rnd = rnd }
}

// WithSeed seeds the random source used to shuffle graders. A zero seed uses the clock.
func WithSeed(seed int64) Option {
	return func(b *Balancer) {
		if seed != 0 {
			b.rnd = rand.New(rand.NewSource(seed))
		}
	}
}

// WithEligibility sets the predicate deciding whether a grader may grade a team.
func WithEligibility(fn EligibilityFunc) Option {
	return func(b *Balancer) {
		if fn != nil {
			b.eligible = fn
		}
	}
}

func NewBalancer(opts ...Option) *Balancer {
	b := &Balancer{eligible: AlwaysEligible}
	for _, opt := range opts {
		opt(b)
	}
	if b.rnd == nil {
		b.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return b
}

// Quotas shuffles the graders and splits numTeams among them.
// The first numTeams%len(graders) graders of the returned order absorb one extra team.
func (b *Balancer) Quotas(numTeams int, graders []string) (map[string]int, []string, error) {
	order := dedupe(graders)
	if len(order) == 0 {
		return nil, nil, ErrNoGraders
	}
	if numTeams < 0 {
		numTeams = 0
	}
	b.rnd.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	base, extra := numTeams/len(order), numTeams%len(order)
	quotas := make(map[string]int, len(order))
	for i, g := range order {
		quotas[g] = base
		if i < extra {
			quotas[g]++
		}
	}
	return quotas, order, nil
}

// Assign computes the grader of every team. It never mutates `in`.
//
// Teams keep the grader they already have unless Reset is set; kept assignments count against
// the grader's quota before from-project graders are copied, and a copy only happens while the
// grader has quota left. Leftover quotas and teams without a grader are reported in the Result,
// not as errors.
func (b *Balancer) Assign(in Input) (Result, error) {
	if err := in.validate(); err != nil {
		return Result{}, err
	}
	teams := dedupe(in.Teams)

	quotas, order, err := b.Quotas(len(teams), in.Graders)
	if err != nil {
		return Result{}, err
	}
	remaining := make(map[string]int, len(quotas))
	for g, q := range quotas {
		remaining[g] = q
	}

	// kept assignments consume quota first; counted marks those that did
	assigned := make(map[string]string, len(teams))
	counted := make(map[string]bool, len(teams))
	if !in.Reset {
		for _, t := range teams {
			g := in.Current[t]
			if g == "" {
				continue
			}
			assigned[t] = g
			if remaining[g] > 0 {
				remaining[g]--
				counted[t] = true
			}
		}
	}

	// release gives back the slot of a replaced assignment, unless g holds more kept teams than its quota
	release := func(g string) {
		for _, u := range teams {
			if !counted[u] && assigned[u] == g {
				counted[u] = true
				return
			}
		}
		remaining[g]++
	}

	// from-project affinity: same grader as the team's other project, while quota allows
	if in.From != nil {
		for _, t := range teams {
			g := in.From[t]
			if g == "" || g == assigned[t] || remaining[g] <= 0 {
				continue
			}
			if counted[t] {
				release(assigned[t])
			}
			assigned[t] = g
			remaining[g]--
			counted[t] = true
		}
	}

	for _, g := range order {
		if remaining[g] <= 0 {
			continue
		}
		for _, t := range teams {
			if assigned[t] != "" {
				continue
			}
			if in.Avoid[t] == g {
				continue
			}
			if !b.eligible(t, g) {
				continue
			}
			assigned[t] = g
			remaining[g]--
			if remaining[g] == 0 {
				break
			}
		}
	}

	res := Result{
		Quotas:      quotas,
		Order:       order,
		Assignments: make(map[string]string, len(teams)),
	}
	for _, t := range teams {
		g := assigned[t]
		res.Assignments[t] = g
		if g != in.Current[t] {
			res.Changed = append(res.Changed, t)
		}
		if g == "" {
			res.Unassigned = append(res.Unassigned, t)
		}
	}
	for _, g := range order {
		if remaining[g] > 0 {
			res.UnderFilled = append(res.UnderFilled, Shortfall{GraderID: g, Missing: remaining[g]})
		}
	}
	return res, nil
}

// dedupe returns a copy of ids without duplicates nor blanks, keeping the first occurrence.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
