package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spinje/pflow/pkg/coerce"
	"github.com/spinje/pflow/pkg/config"
	"github.com/spinje/pflow/pkg/graph"
	"github.com/spinje/pflow/pkg/ir"
	"github.com/spinje/pflow/pkg/logging"
	"github.com/spinje/pflow/pkg/observer"
	"github.com/spinje/pflow/pkg/runtime"
	"github.com/spinje/pflow/pkg/telemetry"
	"github.com/spinje/pflow/pkg/template"
)

// EnvParamNamesKey is the hidden shared-store key listing parameters whose
// values came from the environment-expansion helper. Sanitization redacts
// them regardless of name.
const EnvParamNamesKey = "__env_param_names__"

// Executor runs validated workflow IR.
type Executor struct {
	registry  *runtime.Registry
	cfg       *config.Config
	log       *logging.Logger
	telemetry *telemetry.Provider
	observers *observer.Manager
}

// Option customises an Executor.
type Option func(*Executor)

// WithConfig replaces the default configuration.
func WithConfig(cfg *config.Config) Option {
	return func(e *Executor) {
		if cfg != nil {
			e.cfg = cfg
		}
	}
}

// WithLogger replaces the default logger.
func WithLogger(log *logging.Logger) Option {
	return func(e *Executor) {
		if log != nil {
			e.log = log
		}
	}
}

// WithTelemetry attaches a telemetry provider for metrics.
func WithTelemetry(p *telemetry.Provider) Option {
	return func(e *Executor) { e.telemetry = p }
}

// WithObserver registers an execution observer. May be given several times.
func WithObserver(obs observer.Observer) Option {
	return func(e *Executor) {
		if e.observers == nil {
			e.observers = observer.NewManager()
		}
		e.observers.Register(obs)
	}
}

// New creates an Executor over the given node registry.
func New(registry *runtime.Registry, opts ...Option) *Executor {
	e := &Executor{
		registry: registry,
		cfg:      config.Default(),
		log:      logging.New(logging.DefaultConfig()),
	}
	for _, opt := range opts {
		opt(e)
	}
	ignoreSIGPIPE()
	return e
}

// Execute runs the workflow with the supplied input values and returns a
// structured result. The workflow must already be normalized and validated;
// Execute still enforces required inputs and plans its own execution order.
//
// Cancellation is cooperative: ctx is checked between nodes, never mid-node.
func (e *Executor) Execute(ctx context.Context, wf *ir.Workflow, inputs map[string]any) (*Result, error) {
	started := time.Now()
	executionID := uuid.NewString()
	log := e.log.WithExecutionID(executionID)

	result := &Result{
		ExecutionID: executionID,
		Outputs:     map[string]any{},
		Metrics:     Metrics{NodesTotal: len(wf.Nodes)},
	}

	if e.cfg.MaxExecutionTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.MaxExecutionTime)
		defer cancel()
	}

	// Plan: stable topological order, ties broken by document order.
	order, err := graph.New(wf.Nodes, wf.Edges).TopologicalSort()
	if err != nil {
		result.Errors = append(result.Errors, ErrorDetail{Type: runtime.KindDataflow, Message: err.Error()})
		return result, err
	}
	log.Debug("execution plan computed", "order", order)

	// Seed: shared store starts from workflow inputs.
	shared, err := e.seed(wf, inputs)
	if err != nil {
		result.Errors = append(result.Errors, ErrorDetail{Type: runtime.KindInput, Message: err.Error()})
		result.SharedAfter = shared
		return result, err
	}
	e.telemetry.WorkflowStarted(ctx)
	e.observers.Notify(ctx, observer.Event{Type: observer.EventWorkflowStart, ExecutionID: executionID})

	// Step: run each node in plan order.
	var runErr error
	for _, nodeID := range order {
		if err := ctx.Err(); err != nil {
			runErr = e.cancellationError(err)
			result.Errors = append(result.Errors, ErrorDetail{
				Type: runtime.KindCancellation, Message: runErr.Error(),
			})
			break
		}

		node := wf.NodeByID(nodeID)
		step, err := e.runNode(ctx, wf, node, shared, log)
		result.Steps = append(result.Steps, step)
		if err != nil {
			result.Metrics.NodesFailed++
			runErr = err
			kind := runtime.KindNodeFatal
			var execErr *runtime.ExecutionError
			if errors.As(err, &execErr) {
				kind = execErr.Kind
			}
			result.Errors = append(result.Errors, ErrorDetail{
				Type: kind, NodeID: nodeID, Message: err.Error(),
			})
			break
		}
		result.Metrics.NodesExecuted++

		if step.Action == runtime.ActionError && !e.hasErrorEdge(wf, nodeID) {
			runErr = fmt.Errorf("%w: node %s returned error action", ErrNodeFailed, nodeID)
			message := fmt.Sprintf("node %s returned error action", nodeID)
			if s, ok := shared["stderr"].(string); ok && s != "" {
				message += ": " + strings.TrimSpace(s)
			}
			result.Errors = append(result.Errors, ErrorDetail{
				Type: runtime.KindNodeExec, NodeID: nodeID, Message: message,
			})
			break
		}
	}

	// Materialise: resolve each declared output against the final shared
	// store. This happens even after a failure so partial results survive.
	e.materializeOutputs(wf, shared, result)

	result.SharedAfter = shared
	result.Success = runErr == nil
	result.Metrics.DurationMS = time.Since(started).Milliseconds()
	e.telemetry.WorkflowFinished(ctx, result.Success, time.Since(started))
	e.observers.Notify(ctx, observer.Event{
		Type:        observer.EventWorkflowEnd,
		ExecutionID: executionID,
		Elapsed:     time.Since(started),
		Success:     result.Success,
		Err:         runErr,
	})

	if e.cfg.TraceEnabled && e.cfg.TraceDir != "" {
		if path, err := writeTrace(e.cfg.TraceDir, wf, result); err != nil {
			log.Warn("failed to write trace file", "error", err)
		} else {
			result.TracePath = path
		}
	}

	if runErr != nil {
		log.WithError(runErr).Error("workflow execution failed")
		return result, runErr
	}
	log.WithField("duration_ms", result.Metrics.DurationMS).Info("workflow execution completed")
	return result, nil
}

// runNode instantiates, wraps and runs one node, then merges its outputs
// into the shared store under the node's id.
func (e *Executor) runNode(ctx context.Context, wf *ir.Workflow, node *ir.Node, shared map[string]any, log *logging.Logger) (Step, error) {
	nodeLog := log.WithNodeID(node.ID).WithNodeType(node.Type)
	nodeStart := time.Now()
	step := Step{NodeID: node.ID, Status: StatusFailed}

	inner, err := e.registry.Instantiate(node.Type)
	if err != nil {
		step.Error = err.Error()
		step.DurationMS = time.Since(nodeStart).Milliseconds()
		return step, &runtime.ExecutionError{
			Kind: runtime.KindNodeType, NodeID: node.ID, Message: err.Error(), Err: err,
		}
	}

	entry, _ := e.registry.Entry(node.Type)
	wrapper := runtime.Wrap(inner, node.ID, node.Params,
		runtime.WithInterface(entry),
		runtime.WithResolutionMode(runtime.ResolutionMode(e.cfg.ResolutionMode)),
		runtime.WithLogger(nodeLog.Slog()),
	)

	before := snapshotKeys(shared)
	nodeLog.Debug("node execution started")
	e.observers.Notify(ctx, observer.Event{
		Type: observer.EventNodeStart, NodeID: node.ID, NodeType: node.Type,
	})
	action, err := wrapper.Run(shared)
	step.DurationMS = time.Since(nodeStart).Milliseconds()
	e.telemetry.NodeExecuted(ctx, node.Type, err == nil, time.Since(nodeStart))
	if err != nil {
		step.Error = err.Error()
		nodeLog.WithError(err).Error("node execution failed")
		e.observers.Notify(ctx, observer.Event{
			Type: observer.EventNodeFailure, NodeID: node.ID, NodeType: node.Type,
			Elapsed: time.Since(nodeStart), Err: err,
		})
		return step, err
	}
	e.observers.Notify(ctx, observer.Event{
		Type: observer.EventNodeSuccess, NodeID: node.ID, NodeType: node.Type,
		Action: action, Elapsed: time.Since(nodeStart), Success: true,
	})

	step.Status = StatusCompleted
	step.Action = action
	outputs := namespaceOutputs(node.ID, entry, shared, before)

	// Surface stderr from nodes that succeeded but still complained.
	if s, ok := outputs["stderr"].(string); ok && s != "" {
		step.HasStderr = true
		step.Stderr = s
	}

	nodeLog.WithField("duration_ms", step.DurationMS).Info("node execution completed")
	return step, nil
}

// seed builds the initial shared store from declared inputs: defaults first,
// then supplied values coerced to their declared types. Required inputs
// without defaults must be supplied.
func (e *Executor) seed(wf *ir.Workflow, inputs map[string]any) (map[string]any, error) {
	shared := map[string]any{}
	for name, decl := range wf.Inputs {
		if decl.Default != nil {
			shared[name] = decl.Default
		}
	}
	for name, value := range inputs {
		decl, declared := wf.Inputs[name]
		if declared {
			shared[name] = coerceInput(value, decl.Type)
		} else {
			shared[name] = value
		}
	}
	for name, decl := range wf.Inputs {
		if decl.Required && decl.Default == nil {
			if _, ok := shared[name]; !ok {
				return shared, fmt.Errorf("%w: %q", ErrMissingInput, name)
			}
		}
	}
	return shared, nil
}

// coerceInput converts CLI-supplied values (usually strings) toward the
// declared input type. Unparseable values pass through unchanged; the node
// deals with them.
func coerceInput(value any, declared string) any {
	s, isString := value.(string)
	if !isString {
		return coerce.ToDeclaredType(value, declared)
	}
	switch declared {
	case coerce.TypeInt:
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n
		}
	case coerce.TypeFloat:
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	case coerce.TypeBool:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	case coerce.TypeDict, coerce.TypeObject, coerce.TypeList, coerce.TypeArray:
		if parsed, ok := coerce.TryParseJSON(s); ok {
			return parsed
		}
	}
	return value
}

// namespaceOutputs exposes what the node wrote as shared[nodeID][key] while
// keeping the flat keys for downstream nodes that read the legacy layout.
// Declared output keys are always captured, even when an earlier node wrote
// the same flat key; undeclared keys are captured when they are new.
func namespaceOutputs(nodeID string, entry runtime.Entry, shared map[string]any, before map[string]struct{}) map[string]any {
	outputs := map[string]any{}
	for _, key := range entry.OutputKeys() {
		if value, ok := shared[key]; ok {
			outputs[key] = value
		}
	}
	for key, value := range shared {
		if strings.HasPrefix(key, "__") || key == nodeID {
			continue
		}
		if _, existed := before[key]; !existed {
			outputs[key] = value
		}
	}
	if len(outputs) > 0 {
		shared[nodeID] = outputs
	}
	return outputs
}

// materializeOutputs resolves declared output sources against the final
// shared store. Sources that cannot be resolved are skipped; everything that
// resolves is included even when the run failed.
func (e *Executor) materializeOutputs(wf *ir.Workflow, shared map[string]any, result *Result) {
	for name, output := range wf.Outputs {
		if varName := template.SimpleTemplateVar(output.Source); varName != "" {
			if template.VariableExists(varName, shared) {
				result.Outputs[name] = template.ResolveValue(varName, shared)
			}
			continue
		}
		resolved := template.ResolveString(output.Source, shared)
		// Skip outputs whose references did not resolve at all.
		if resolved == output.Source && template.HasTemplates(output.Source) {
			continue
		}
		result.Outputs[name] = resolved
	}
}

// hasErrorEdge reports whether nodeID has an outgoing edge that handles the
// error action. IR edges carry no labels yet, so today a node's error action
// always terminates the run; the hook stays so labelled edges slot in.
func (e *Executor) hasErrorEdge(wf *ir.Workflow, nodeID string) bool {
	return false
}

func (e *Executor) cancellationError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: exceeded %v", ErrExecutionTimeout, e.cfg.MaxExecutionTime)
	}
	return ErrCancelled
}

func snapshotKeys(shared map[string]any) map[string]struct{} {
	keys := make(map[string]struct{}, len(shared))
	for key := range shared {
		keys[key] = struct{}{}
	}
	return keys
}
