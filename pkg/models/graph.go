package models

// GraphNode is a node of a template graph (and of the instance snapshot).
// Legacy records are inconsistently tagged: some carry a type at the top
// level, some only inside Data ("type", "category" or just "label"), so
// consumers must not assume Type is set.
type GraphNode struct {
	ID        string         `json:"id"   validate:"required"`
	Type      string         `json:"type,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	PositionX int            `json:"position_x"`
	PositionY int            `json:"position_y"`
}

// DataString returns the string value of a Data key, if present.
func (n *GraphNode) DataString(key string) string {
	if n.Data == nil {
		return ""
	}

	if v, ok := n.Data[key].(string); ok {
		return v
	}

	return ""
}

// GraphEdge is a directed connection between two nodes.
type GraphEdge struct {
	ID     string `json:"id"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}
