package schema

import (
	"context"
	"fmt"
	"time"

	"github.com/hanpama/typegraph/internal/eventbus"
	"github.com/hanpama/typegraph/internal/events"
	"github.com/hanpama/typegraph/internal/executor"
	language "github.com/hanpama/typegraph/internal/language"
	"github.com/hanpama/typegraph/internal/value"
)

// Execute runs one operation of a parsed, validated document against root.
// It returns the data and the field errors in traversal order, or a
// request-level error without data.
func Execute(
	ctx context.Context,
	root *RootNode,
	doc *language.QueryDocument,
	operationName string,
	variables map[string]value.Value,
	shared any,
) (value.Value, []*executor.ExecutionError, error) {
	return root.exec.ExecuteRequest(ctx, doc, operationName, variables, shared)
}

// Request is one operation as it arrives from a transport.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

// ExecuteRequest parses, validates and executes req. Syntax, validation and
// request-level failures come back as result errors with null data.
func (r *RootNode) ExecuteRequest(ctx context.Context, req Request) *executor.ExecutionResult {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		return documentErrors(err)
	}
	if err := r.Validate(doc); err != nil {
		return documentErrors(err)
	}

	vars := make(map[string]value.Value, len(req.Variables))
	for k, raw := range req.Variables {
		v, err := value.FromGo(raw)
		if err != nil {
			return requestError(fmt.Errorf("variable %q: %w", k, err))
		}
		vars[k] = v
	}

	opType := ""
	if op := doc.Operations.ForName(req.OperationName); op != nil {
		opType = string(op.Operation)
	} else if len(doc.Operations) == 1 {
		opType = string(doc.Operations[0].Operation)
	}

	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{Query: req.Query, OperationName: req.OperationName, OperationType: opType})
	data, fieldErrs, err := Execute(ctx, r, doc, req.OperationName, vars, r.NewShared(ctx))
	finish := events.GraphQLFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opType,
		Err:           err,
		Duration:      time.Since(start),
	}
	for _, e := range fieldErrs {
		finish.Errors = append(finish.Errors, e)
	}
	eventbus.Publish(ctx, finish)

	if err != nil {
		return requestError(err)
	}
	return &executor.ExecutionResult{Data: data, Errors: fieldErrs}
}

func requestError(err error) *executor.ExecutionResult {
	return &executor.ExecutionResult{
		Data:   value.Null(),
		Errors: []*executor.ExecutionError{{Message: err.Error(), Err: err}},
	}
}

func documentErrors(err error) *executor.ExecutionResult {
	list := language.Errors(err)
	out := make([]*executor.ExecutionError, 0, len(list))
	for _, e := range list {
		ee := &executor.ExecutionError{Message: e.Message, Extensions: e.Extensions, Err: e}
		for _, loc := range e.Locations {
			ee.Locations = append(ee.Locations, executor.Location{Line: loc.Line, Column: loc.Column})
		}
		out = append(out, ee)
	}
	return &executor.ExecutionResult{Data: value.Null(), Errors: out}
}
