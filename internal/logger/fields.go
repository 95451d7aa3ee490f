package logger

// Standard field names so log lines stay greppable across packages.
const (
	FieldRunID      = "run_id"
	FieldRequestID  = "request_id"
	FieldComponent  = "component"
	FieldStatus     = "status"
	FieldPID        = "pid"
	FieldExitCode   = "exit_code"
	FieldDurationMS = "duration_ms"
	FieldError      = "error"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldAddress    = "address"
	FieldFile       = "file"
)
