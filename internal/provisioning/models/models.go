package models

import (
	"time"

	id "idsync/pkg/domain"
)

// OperationType is the kind of change pushed to a target system.
type OperationType string

const (
	OperationCreate OperationType = "CREATE"
	OperationUpdate OperationType = "UPDATE"
	OperationDelete OperationType = "DELETE"
)

// ResultState is the execution state of a provisioning operation.
type ResultState string

const (
	// ResultCreated: persisted, not yet offered to the pipeline.
	ResultCreated ResultState = "CREATED"
	// ResultNotExecuted: policy kept the operation from the target system
	// (readonly system). Terminal; never transitions to EXECUTED.
	ResultNotExecuted ResultState = "NOT_EXECUTED"
	ResultExecuted    ResultState = "EXECUTED"
	ResultException   ResultState = "EXCEPTION"
	ResultCancelled   ResultState = "CANCELLED"
)

// Operation is one pending or executed change against a target system.
type Operation struct {
	ID         id.OperationID
	Type       OperationType
	SystemID   id.SystemID
	EntityID   *id.EntityID
	EntityType id.EntityType

	// UID of the record on the target system ("system entity").
	UID string

	Attributes map[string]string

	Result        ResultState
	ResultCode    string
	ResultMessage string

	CreatedAt  time.Time
	ExecutedAt *time.Time
}
