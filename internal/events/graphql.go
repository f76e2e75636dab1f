package events

import "time"

// GraphQLStart is emitted before executing a GraphQL operation.
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
}

// GraphQLFinish is emitted after executing a GraphQL operation. Errors
// holds field errors; a request-level failure is in Err.
type GraphQLFinish struct {
	Query         string
	OperationName string
	OperationType string
	Errors        []error
	Err           error
	Duration      time.Duration
}

// SchemaReload is emitted after the served schema was rebuilt.
type SchemaReload struct {
	Source string
	Types  int
	Err    error
}
