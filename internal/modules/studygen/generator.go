package studygen

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Generator is the generation backend: it returns the raw structured text the model
// produced for schema. Output is untrusted until decoded by this package.
type Generator interface {
	GenerateStructured(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (string, error)
}

// Metrics receives pipeline counters. Implementations must be safe for concurrent use.
type Metrics interface {
	ObserveRun(outcome string, d time.Duration)
	ObserveStage(stage string, d time.Duration)
	IncGenerationCall(stage string, outcome string)
	IncUnitOutcome(outcome string)
	IncPersistenceError(entity string)
	AddInflight(delta int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveRun(string, time.Duration)   {}
func (nopMetrics) ObserveStage(string, time.Duration) {}
func (nopMetrics) IncGenerationCall(string, string)   {}
func (nopMetrics) IncUnitOutcome(string)              {}
func (nopMetrics) IncPersistenceError(string)         {}
func (nopMetrics) AddInflight(int)                    {}

// gatedGenerator routes every call through a run's Gate and records per-stage call
// outcomes.
type gatedGenerator struct {
	next    Generator
	gate    *Gate
	metrics Metrics
	stage   string
}

func newGatedGenerator(next Generator, gate *Gate, metrics Metrics) *gatedGenerator {
	return &gatedGenerator{next: next, gate: gate, metrics: metrics}
}

func (g *gatedGenerator) forStage(stage string) Generator {
	cp := *g
	cp.stage = stage
	return &cp
}

func (g *gatedGenerator) GenerateStructured(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (string, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "studygen.generate")
	span.SetAttributes(attribute.String("stage", g.stage), attribute.String("schema", schemaName))
	defer span.End()

	var out string
	err := g.gate.Do(ctx, func(ctx context.Context) error {
		g.metrics.AddInflight(1)
		defer g.metrics.AddInflight(-1)
		var err error
		out, err = g.next.GenerateStructured(ctx, system, user, schemaName, schema)
		return err
	})
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
	}
	g.metrics.IncGenerationCall(g.stage, outcome)
	return out, err
}
