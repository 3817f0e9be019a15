package constants

// DocStatus is the canonical per-document processing status.
type DocStatus string

// Stable values (these exact strings appear in reports and the results index).
const (
	DocStatusProcessing DocStatus = "processing" // analysis in flight
	DocStatusCompleted  DocStatus = "completed"  // extraction finished
	DocStatusFailed     DocStatus = "failed"     // terminal failure, batch continues
)
