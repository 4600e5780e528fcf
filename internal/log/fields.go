package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldStage     = "stage"
	FieldTopic     = "topic"

	// Path / URL fields
	FieldPath     = "path"
	FieldBaseURL  = "base_url"
	FieldVideoURL = "video_url"

	// Media fields
	FieldVoice    = "voice"
	FieldFilter   = "filter"
	FieldDuration = "duration"
)
