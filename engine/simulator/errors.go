package simulator

import "fmt"

// ScriptError provides structured error information for worker script
// failures.
type ScriptError struct {
	Worker    string
	Operation string
	Err       error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("worker %s script %s failed: %v", e.Worker, e.Operation, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

// WorkerNotFoundError is returned when a dispatch targets a worker name that
// is not part of the configuration.
type WorkerNotFoundError struct {
	Worker string
}

func (e *WorkerNotFoundError) Error() string {
	return fmt.Sprintf("no worker named %s in simulator", e.Worker)
}
