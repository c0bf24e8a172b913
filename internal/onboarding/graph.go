package onboarding

import (
	"fmt"
	"slices"
)

// StageInfo is the applicant-facing description of a status.
type StageInfo struct {
	Stage       int    `json:"stage"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GraphDef declares a workflow's stage graph.
type GraphDef[S ~string] struct {
	Workflow string
	Initial  S
	// Order lists every status; it fixes the output of Statuses.
	Order []S
	Edges map[S][]S
	// Auto statuses are left immediately by a system-attributed transition.
	Auto map[S]S
	// Terminal statuses allow no forward progress. Their explicit edges
	// (activated -> suspended) still apply.
	Terminal []S
	// Reject is added as a successor of every non-terminal status.
	Reject   S
	Stages   map[S]StageInfo
	Required []string
}

// Graph is an immutable, validated stage graph for one workflow.
type Graph[S ~string] struct {
	workflow string
	initial  S
	order    []S
	known    map[S]bool
	edges    map[S][]S
	auto     map[S]S
	terminal map[S]bool
	stages   map[S]StageInfo
	required []string
}

// NewGraph builds a Graph and panics on an inconsistent definition.
func NewGraph[S ~string](def GraphDef[S]) *Graph[S] {
	g := &Graph[S]{
		workflow: def.Workflow,
		initial:  def.Initial,
		order:    slices.Clone(def.Order),
		known:    make(map[S]bool, len(def.Order)),
		edges:    make(map[S][]S, len(def.Order)),
		auto:     make(map[S]S, len(def.Auto)),
		terminal: make(map[S]bool, len(def.Terminal)),
		stages:   def.Stages,
		required: slices.Clone(def.Required),
	}
	for _, s := range def.Order {
		g.known[s] = true
	}
	for _, s := range def.Terminal {
		g.mustKnow(s)
		g.terminal[s] = true
	}
	g.mustKnow(def.Initial)
	g.mustKnow(def.Reject)
	for from, tos := range def.Edges {
		g.mustKnow(from)
		for _, to := range tos {
			g.mustKnow(to)
		}
		g.edges[from] = slices.Clone(tos)
	}
	for from, to := range def.Auto {
		g.mustKnow(from)
		if !slices.Contains(g.edges[from], to) {
			panic(fmt.Sprintf("onboarding: %s auto transition %s -> %s is not an edge", def.Workflow, from, to))
		}
		g.auto[from] = to
	}
	for _, s := range def.Order {
		if !g.terminal[s] && s != def.Reject && !slices.Contains(g.edges[s], def.Reject) {
			g.edges[s] = append(g.edges[s], def.Reject)
		}
	}
	return g
}

func (g *Graph[S]) mustKnow(s S) {
	if !g.known[s] {
		panic(fmt.Sprintf("onboarding: %s graph references unknown status %q", g.workflow, s))
	}
}

func (g *Graph[S]) Workflow() string { return g.workflow }
func (g *Graph[S]) Initial() S       { return g.initial }

// Parse converts raw into a known status.
func (g *Graph[S]) Parse(raw string) (S, error) {
	s := S(raw)
	if !g.known[s] {
		var zero S
		return zero, invalidField("status", fmt.Sprintf("unknown %s status %q", g.workflow, raw))
	}
	return s, nil
}

// Allows reports whether to is a direct successor of from.
func (g *Graph[S]) Allows(from, to S) bool {
	return slices.Contains(g.edges[from], to)
}

// Check returns a *TransitionError when op may not move from -> to.
func (g *Graph[S]) Check(op string, from, to S) error {
	if g.Allows(from, to) {
		return nil
	}
	return g.refuse(op, from, to)
}

func (g *Graph[S]) refuse(op string, from, to S) error {
	return &TransitionError{Workflow: g.workflow, Operation: op, From: string(from), To: string(to)}
}

// Next returns the automatic successor of s, if any.
func (g *Graph[S]) Next(s S) (S, bool) {
	to, ok := g.auto[s]
	return to, ok
}

func (g *Graph[S]) Terminal(s S) bool { return g.terminal[s] }

// Describe returns stage info, or an "Unknown" stage for unmapped statuses.
func (g *Graph[S]) Describe(s S) StageInfo {
	if info, ok := g.stages[s]; ok {
		return info
	}
	return StageInfo{Stage: 0, Name: "Unknown", Description: "Unknown status"}
}

func (g *Graph[S]) Statuses() []S { return slices.Clone(g.order) }

// TerminalStatuses returns the terminal statuses as strings in graph order.
func (g *Graph[S]) TerminalStatuses() []string {
	var out []string
	for _, s := range g.order {
		if g.terminal[s] {
			out = append(out, string(s))
		}
	}
	return out
}

func (g *Graph[S]) Required() []string { return slices.Clone(g.required) }

// ValidatePath checks that path is a walk through the graph from the initial status.
func (g *Graph[S]) ValidatePath(path []S) error {
	if len(path) == 0 {
		return nil
	}
	if path[0] != g.initial {
		return g.refuse("path", g.initial, path[0])
	}
	for i := 1; i < len(path); i++ {
		if err := g.Check("path", path[i-1], path[i]); err != nil {
			return err
		}
	}
	return nil
}
