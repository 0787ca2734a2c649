package types

import "time"

// Decision is the outcome of classifying a scanned credential.
type Decision string

const (
	DecisionGranted Decision = "GRANTED"
	DecisionDenied  Decision = "DENIED"
)

// UnknownPrincipal is recorded for credentials with no registered tag.
const UnknownPrincipal = "Unknown"

func (d Decision) Granted() bool { return d == DecisionGranted }

type ScanRequest struct {
	UID string `json:"uid"`
}

type ScanResponse struct {
	Status       string   `json:"status"`
	Message      string   `json:"message,omitempty"`
	AccessStatus Decision `json:"access_status"`
}

// LogView is one row of the recent-activity feed shown to operators.
// Timestamp is rendered in the server's local zone.
type LogView struct {
	Username  string   `json:"username"`
	TagUID    string   `json:"tag_uid"`
	Timestamp string   `json:"timestamp"`
	Status    Decision `json:"status"`
}

// LogTimestampLayout renders timestamps as DD/MM/YYYY HH:MM:SS.
const LogTimestampLayout = "02/01/2006 15:04:05"

// ScanNotice is what the notifier is told about a stored scan decision.
type ScanNotice struct {
	Credential    string
	PrincipalName string
	Decision      Decision
	At            time.Time
}
