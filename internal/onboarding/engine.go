package onboarding

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/meesalavenugopal/novacare247/internal/activitylog"
	"github.com/meesalavenugopal/novacare247/internal/db"
	"github.com/meesalavenugopal/novacare247/internal/observability/metrics"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

var tracer = otel.Tracer("novacare.internal.onboarding")

// Actor is who performed an operation. ID is nil for system and AI actors.
type Actor struct {
	ID   *int64
	Type activitylog.ActorType
}

// Admin returns a human actor.
func Admin(id int64) Actor { return Actor{ID: &id, Type: activitylog.ActorHuman} }

var (
	SystemActor = Actor{Type: activitylog.ActorSystem}
	AIActor     = Actor{Type: activitylog.ActorAI}
)

// Contact is the applicant identity passed to observers.
type Contact struct {
	Name  string
	Email string
}

// Transition is a committed status change.
type Transition struct {
	Workflow      string
	ApplicationID int64
	From          string
	To            string
	Actor         Actor
	Notes         string
	Contact       Contact
	Stage         StageInfo
}

// Observer is told about transitions after they commit.
type Observer interface {
	Observe(ctx context.Context, t Transition)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, t Transition)

func (f ObserverFunc) Observe(ctx context.Context, t Transition) { f(ctx, t) }

// Step is a named operation. Apply writes the stage fields on app and returns
// the target status plus an optional note for the activity log.
type Step[A any, S ~string] struct {
	Name string
	// From lists accepted predecessors; empty means any status the graph allows.
	From []S
	// Target is the nominal target, used in errors raised before Apply runs.
	Target S
	// InPlace steps write fields without a status change and log Action.
	InPlace bool
	Action  string
	Apply   func(ctx context.Context, q db.Querier, app *A, now time.Time) (S, string, error)
}

// Workflow binds a graph to an application type.
type Workflow[A any, S ~string] struct {
	Graph     *Graph[S]
	Status    func(*A) S
	SetStatus func(*A, S)
	ID        func(*A) int64
	Contact   func(*A) Contact
}

// Engine runs steps against stored applications. Each Run locks the row,
// applies the step, writes the application and its activity entries in one
// transaction, then notifies observers.
type Engine[A any, S ~string] struct {
	wf        Workflow[A, S]
	store     Store[A]
	observers []Observer
	metrics   *metrics.OnboardingMetrics
	logger    *logging.Logger
	now       func() time.Time
}

// EngineOption customizes an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	observers []Observer
	metrics   *metrics.OnboardingMetrics
	logger    *logging.Logger
	now       func() time.Time
}

func WithObservers(obs ...Observer) EngineOption {
	return func(o *engineOptions) { o.observers = append(o.observers, obs...) }
}

func WithEngineMetrics(m *metrics.OnboardingMetrics) EngineOption {
	return func(o *engineOptions) { o.metrics = m }
}

func WithEngineLogger(l *logging.Logger) EngineOption {
	return func(o *engineOptions) { o.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) EngineOption {
	return func(o *engineOptions) { o.now = now }
}

func NewEngine[A any, S ~string](wf Workflow[A, S], store Store[A], opts ...EngineOption) *Engine[A, S] {
	o := engineOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.Default()
	}
	return &Engine[A, S]{
		wf:        wf,
		store:     store,
		observers: o.observers,
		metrics:   o.metrics,
		logger:    o.logger.Component("onboarding-engine"),
		now:       o.now,
	}
}

func (e *Engine[A, S]) Graph() *Graph[S] { return e.wf.Graph }

// Now returns the engine clock in UTC.
func (e *Engine[A, S]) Now() time.Time { return e.now().UTC() }

// Run executes step on application id.
func (e *Engine[A, S]) Run(ctx context.Context, id int64, step Step[A, S], actor Actor, notes string) (*A, error) {
	graph := e.wf.Graph
	ctx, span := tracer.Start(ctx, "onboarding.transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("workflow", graph.Workflow()),
		attribute.String("operation", step.Name),
		attribute.Int64("application_id", id),
	)

	var committed []Transition
	app, err := e.store.Mutate(ctx, id, func(q db.Querier, app *A) ([]activitylog.Entry, error) {
		committed = committed[:0]
		from := e.wf.Status(app)
		if len(step.From) > 0 && !slices.Contains(step.From, from) {
			return nil, graph.refuse(step.Name, from, step.Target)
		}

		now := e.now().UTC()
		target, stepNotes, err := step.Apply(ctx, q, app, now)
		if err != nil {
			return nil, err
		}
		note := joinNotes(notes, stepNotes)

		if step.InPlace {
			e.wf.SetStatus(app, from)
			action := step.Action
			if action == "" {
				action = step.Name
			}
			return []activitylog.Entry{{
				Workflow:        graph.Workflow(),
				ApplicationID:   id,
				Action:          action,
				PerformedBy:     actor.ID,
				PerformedByType: actor.Type,
				Notes:           note,
			}}, nil
		}

		if err := graph.Check(step.Name, from, target); err != nil {
			return nil, err
		}

		var entries []activitylog.Entry
		if target == from {
			old, next := string(from), string(target)
			entries = append(entries, activitylog.Entry{
				Workflow:        graph.Workflow(),
				ApplicationID:   id,
				Action:          step.Name,
				OldValue:        &old,
				NewValue:        &next,
				PerformedBy:     actor.ID,
				PerformedByType: actor.Type,
				Notes:           note,
			})
			return entries, nil
		}

		entries = append(entries, activitylog.StatusChange(graph.Workflow(), id, string(from), string(target), actor.ID, actor.Type, note))
		committed = append(committed, e.transition(app, id, from, target, actor, note))
		cur := target
		for {
			next, ok := graph.Next(cur)
			if !ok {
				break
			}
			autoNote := "Automatically advanced to " + string(next)
			entries = append(entries, activitylog.StatusChange(graph.Workflow(), id, string(cur), string(next), nil, activitylog.ActorSystem, autoNote))
			committed = append(committed, e.transition(app, id, cur, next, SystemActor, autoNote))
			cur = next
		}
		e.wf.SetStatus(app, cur)
		return entries, nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			e.metrics.ObserveInvalidTransition(graph.Workflow(), step.Name)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	for _, t := range committed {
		e.metrics.ObserveTransition(t.Workflow, t.From, t.To)
		e.logger.Info("application status changed",
			"workflow", t.Workflow,
			"application_id", t.ApplicationID,
			"from", t.From,
			"to", t.To,
			"actor_type", string(t.Actor.Type),
		)
		for _, obs := range e.observers {
			obs.Observe(ctx, t)
		}
	}
	return app, nil
}

func (e *Engine[A, S]) transition(app *A, id int64, from, to S, actor Actor, notes string) Transition {
	t := Transition{
		Workflow:      e.wf.Graph.Workflow(),
		ApplicationID: id,
		From:          string(from),
		To:            string(to),
		Actor:         actor,
		Notes:         notes,
		Stage:         e.wf.Graph.Describe(to),
	}
	if e.wf.Contact != nil {
		t.Contact = e.wf.Contact(app)
	}
	return t
}

func joinNotes(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "; ")
}
