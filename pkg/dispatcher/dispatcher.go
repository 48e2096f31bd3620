// Package dispatcher executes a single action node against the service bound
// to the user's connection and reports a uniform ActionResult.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowzen/flowzen/pkg/catalog"
	"github.com/flowzen/flowzen/pkg/eventbus"
	"github.com/flowzen/flowzen/pkg/events"
	"github.com/flowzen/flowzen/pkg/metrics"
	"github.com/flowzen/flowzen/pkg/models"
	"github.com/flowzen/flowzen/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrNoEmailConnection  = fmt.Errorf("%w: no email connection", ErrPreconditionFailed)
	ErrExternalAction     = errors.New("external action failed")
	ErrUnsupportedNode    = errors.New("unsupported node type")
)

// Request is one node execution.
type Request struct {
	UserID     string
	WorkflowID string
	Node       *models.Node
	Config     map[string]any
	// Connection is the user's binding for the node's required connection
	// type, or nil.
	Connection *models.Connection
}

// Call is what a Handler receives once preconditions and schema checks passed.
type Call struct {
	Node       *models.Node
	Connection *models.Connection

	config  map[string]any
	catalog *catalog.Catalog
}

// Decode fills out from the node configuration and validates it.
func (c *Call) Decode(out any) error {
	return c.catalog.Decode(c.config, out)
}

// Outcome is a successful handler result.
type Outcome struct {
	Message string
	Data    any
}

// Failure lets a handler choose the kind and message of a failed result.
type Failure struct {
	Kind    models.FailureKind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Message, f.Err)
	}

	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

type Handler interface {
	NodeType() models.NodeType
	Execute(ctx context.Context, call *Call) (*Outcome, error)
}

type Dispatcher struct {
	catalog   *catalog.Catalog
	handlers  map[models.NodeType]Handler
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *metrics.Metrics
	publisher eventbus.EventPublisher
}

type Option func(*Dispatcher)

func WithHandlers(handlers ...Handler) Option {
	return func(d *Dispatcher) {
		for _, handler := range handlers {
			d.handlers[handler.NodeType()] = handler
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(d *Dispatcher) {
		d.tracer = tracer
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithPublisher emits an action.executed event for every execution.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(d *Dispatcher) {
		d.publisher = publisher
	}
}

func New(c *catalog.Catalog, logger *slog.Logger, options ...Option) *Dispatcher {
	d := &Dispatcher{
		catalog:  c,
		handlers: make(map[models.NodeType]Handler),
		logger:   logger,
		tracer:   otelhelper.NewNoopTracer(),
	}

	for _, option := range options {
		option(d)
	}

	return d
}

// HasHandler reports whether nodeType performs an external action.
func (d *Dispatcher) HasHandler(nodeType models.NodeType) bool {
	_, ok := d.handlers[nodeType]

	return ok
}

// Execute never returns an error and never panics; every failure is reported
// in the result.
func (d *Dispatcher) Execute(ctx context.Context, req Request) (result models.ActionResult) {
	started := time.Now()

	nodeType := models.NodeType("")
	nodeID := ""

	if req.Node != nil {
		nodeType = req.Node.Type
		nodeID = req.Node.ID
	}

	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "dispatcher.execute",
		attribute.String(otelhelper.UserIDKey, req.UserID),
		attribute.String(otelhelper.WorkflowIDKey, req.WorkflowID),
		attribute.String(otelhelper.NodeIDKey, nodeID),
		attribute.String(otelhelper.NodeTypeKey, string(nodeType)),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			result = failure(req.Node, models.FailureExternalAction, "action panicked",
				fmt.Errorf("%w: %v", ErrExternalAction, r))
		}

		d.finish(ctx, span, req, result, time.Since(started))
	}()

	return d.execute(ctx, req)
}

func (d *Dispatcher) execute(ctx context.Context, req Request) models.ActionResult {
	if req.Node == nil {
		return failure(nil, models.FailureValidation, "node is required", catalog.ErrUnknownNodeType)
	}

	entry, ok := d.catalog.Lookup(req.Node.Type)
	if !ok {
		return failure(req.Node, models.FailureUnsupported, fmt.Sprintf("%s is not a known node type", req.Node.Type),
			fmt.Errorf("%w: %q", ErrUnsupportedNode, req.Node.Type))
	}

	if entry.RequiresConnection() {
		if req.Connection == nil || req.Connection.Type != entry.RequiredConnection {
			err := fmt.Errorf("%w: %s is not connected", ErrPreconditionFailed, entry.RequiredConnection)
			if entry.RequiredConnection == models.ConnectionTypeEmail {
				err = ErrNoEmailConnection
			}

			return failure(req.Node, models.FailurePrecondition, fmt.Sprintf("%s is not connected", entry.RequiredConnection), err)
		}
	}

	handler, ok := d.handlers[req.Node.Type]
	if !ok {
		return models.ActionResult{
			NodeID:   req.Node.ID,
			NodeType: req.Node.Type,
			Success:  true,
			Skipped:  true,
			Message:  fmt.Sprintf("%s performs no external action", req.Node.Type),
		}
	}

	if err := d.catalog.ValidateConfig(req.Node.Type, req.Config); err != nil {
		return failure(req.Node, models.FailureValidation, "invalid configuration", err)
	}

	outcome, err := handler.Execute(ctx, &Call{
		Node:       req.Node,
		Connection: req.Connection,
		config:     req.Config,
		catalog:    d.catalog,
	})
	if err != nil {
		return classify(req.Node, err)
	}

	return models.ActionResult{
		NodeID:   req.Node.ID,
		NodeType: req.Node.Type,
		Success:  true,
		Message:  outcome.Message,
		Data:     outcome.Data,
	}
}

func (d *Dispatcher) finish(ctx context.Context, span trace.Span, req Request, result models.ActionResult, elapsed time.Duration) {
	outcome := metrics.OutcomeSuccess

	switch {
	case !result.Success:
		outcome = metrics.OutcomeFailure
		otelhelper.SetError(span, result.Err, attribute.String("flowzen.action.kind", string(result.Kind)))

		d.logger.WarnContext(ctx, "action failed",
			"node_id", result.NodeID,
			"node_type", result.NodeType,
			"kind", result.Kind,
			"error", result.Error,
		)
	case result.Skipped:
		outcome = metrics.OutcomeSkipped
	default:
		d.logger.InfoContext(ctx, "action executed", "node_id", result.NodeID, "node_type", result.NodeType)
	}

	span.SetAttributes(attribute.String(otelhelper.OutcomeKey, outcome))

	if d.metrics != nil {
		d.metrics.ObserveAction(string(result.NodeType), outcome)
	}

	if d.publisher != nil {
		event := events.ActionExecuted{
			BaseEvent: events.NewBaseEvent(events.ActionExecutedEvent, req.UserID, req.WorkflowID),
			NodeID:    result.NodeID,
			NodeType:  string(result.NodeType),
			Success:   result.Success,
			Skipped:   result.Skipped,
			Kind:      string(result.Kind),
			Message:   result.Message,
			Duration:  elapsed,
		}

		if err := d.publisher.Publish(ctx, req.WorkflowID, event); err != nil {
			d.logger.ErrorContext(ctx, "failed to publish action event", "error", err)
		}
	}
}

func classify(node *models.Node, err error) models.ActionResult {
	var f *Failure
	if errors.As(err, &f) {
		return failure(node, f.Kind, f.Message, err)
	}

	if errors.Is(err, catalog.ErrInvalidConfig) {
		return failure(node, models.FailureValidation, "invalid configuration", err)
	}

	return failure(node, models.FailureExternalAction, fmt.Sprintf("%s action failed", node.Type),
		fmt.Errorf("%w: %w", ErrExternalAction, err))
}

func failure(node *models.Node, kind models.FailureKind, message string, err error) models.ActionResult {
	result := models.ActionResult{
		Success: false,
		Message: message,
		Kind:    kind,
		Err:     err,
	}

	if err != nil {
		result.Error = err.Error()
	}

	if node != nil {
		result.NodeID = node.ID
		result.NodeType = node.Type
	}

	return result
}
