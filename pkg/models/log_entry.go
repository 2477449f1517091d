package models

import "time"

// LogType classifies execution log entries.
type LogType string

const (
	LogTypeSystem LogType = "SYSTEM" // lifecycle transitions
	LogTypeNode   LogType = "NODE"   // node-level events
)

// LogEntry is one entry of an instance's append-only execution log.
type LogEntry struct {
	Type      LogType   `json:"type"`
	NodeID    string    `json:"node_id,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSystemLog builds a SYSTEM entry stamped with the current UTC time.
func NewSystemLog(message string) LogEntry {
	return LogEntry{
		Type:      LogTypeSystem,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// NewNodeLog builds a NODE entry for the given node.
func NewNodeLog(nodeID, message string) LogEntry {
	return LogEntry{
		Type:      LogTypeNode,
		NodeID:    nodeID,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// FilterLogsByNode returns the entries whose NodeID matches, preserving
// append order.
func FilterLogsByNode(logs []LogEntry, nodeID string) []LogEntry {
	filtered := make([]LogEntry, 0)

	for _, entry := range logs {
		if entry.NodeID == nodeID {
			filtered = append(filtered, entry)
		}
	}

	return filtered
}
