package log

// Canonical field names for structured logging.
const (
	FieldComponent = "component"
	FieldSessionID = "session_id"
	FieldSerial    = "serial"
	FieldChannel   = "channel"
	FieldAttr      = "attr"
	FieldValue     = "value"
	FieldStatus    = "status"
	FieldBlockID   = "block_id"
	FieldFormat    = "pixel_format"
	FieldOldState  = "old_state"
	FieldNewState  = "new_state"
	FieldLink      = "link"
)
