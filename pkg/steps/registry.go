package steps

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"

	"github.com/outriq/outriq/pkg/models"
)

// ErrExecutorNotRegistered indicates no executor is bound to a step name.
var ErrExecutorNotRegistered = errors.New("step executor not registered")

// Registry binds step names to executors and validates artifact payloads
// against their schemas before anything is persisted.
type Registry struct {
	logger    *slog.Logger
	executors map[models.StepName]Executor
	schemas   map[models.ArtifactName]*gojsonschema.Schema
}

// NewRegistry creates a registry with the built-in artifact schemas compiled.
func NewRegistry(logger *slog.Logger) (*Registry, error) {
	schemas := make(map[models.ArtifactName]*gojsonschema.Schema, len(artifactSchemas))

	for name, raw := range artifactSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema for artifact %s: %w", name, err)
		}

		schemas[name] = schema
	}

	return &Registry{
		logger:    logger,
		executors: make(map[models.StepName]Executor),
		schemas:   schemas,
	}, nil
}

// Register binds an executor to its step, replacing any previous binding.
func (r *Registry) Register(executor Executor) {
	r.executors[executor.Step()] = executor

	r.logger.Info("Registered step executor", "step", executor.Step())
}

// ExecutorFor returns the executor bound to the step.
func (r *Registry) ExecutorFor(step models.StepName) (Executor, error) {
	executor, ok := r.executors[step]
	if !ok {
		return nil, fmt.Errorf("step %s: %w", step, ErrExecutorNotRegistered)
	}

	return executor, nil
}

// ValidateArtifact checks a raw payload against the schema of the named
// artifact. Payloads with no registered schema pass.
func (r *Registry) ValidateArtifact(name models.ArtifactName, payload json.RawMessage) error {
	schema, ok := r.schemas[name]
	if !ok {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("failed to validate %s artifact: %w", name, err)
	}

	if !result.Valid() {
		return fmt.Errorf("%s artifact rejected by schema: %v", name, result.Errors())
	}

	return nil
}

// HealthCheck reports the registered executors.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.executors) == 0 {
		return "No step executors registered", false
	}

	return fmt.Sprintf("%d step executors registered", len(r.executors)), true
}
