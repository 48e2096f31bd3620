package models

// NodeType is the closed set of node kinds the editor can place on a canvas.
type NodeType string

const (
	NodeTypeEmail          NodeType = "Email"
	NodeTypeCondition      NodeType = "Condition"
	NodeTypeAI             NodeType = "AI"
	NodeTypeSlack          NodeType = "Slack"
	NodeTypeDiscord        NodeType = "Discord"
	NodeTypeGoogleDrive    NodeType = "Google Drive"
	NodeTypeNotion         NodeType = "Notion"
	NodeTypeGitHub         NodeType = "GitHub"
	NodeTypeCustomWebhook  NodeType = "Custom Webhook"
	NodeTypeGoogleCalendar NodeType = "Google Calendar"
	NodeTypeTrigger        NodeType = "Trigger"
	NodeTypeAction         NodeType = "Action"
	NodeTypeWait           NodeType = "Wait"
)

// AllNodeTypes lists every node type in canvas order.
func AllNodeTypes() []NodeType {
	return []NodeType{
		NodeTypeEmail,
		NodeTypeCondition,
		NodeTypeAI,
		NodeTypeSlack,
		NodeTypeDiscord,
		NodeTypeGoogleDrive,
		NodeTypeNotion,
		NodeTypeGitHub,
		NodeTypeCustomWebhook,
		NodeTypeGoogleCalendar,
		NodeTypeTrigger,
		NodeTypeAction,
		NodeTypeWait,
	}
}

// IsValid reports whether t is one of the known node types.
func (t NodeType) IsValid() bool {
	for _, known := range AllNodeTypes() {
		if t == known {
			return true
		}
	}

	return false
}

// Position is the canvas coordinate of a node.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the editor payload carried by every node.
type NodeData struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Completed   bool           `json:"completed"`
	Current     bool           `json:"current"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Type        NodeType       `json:"type,omitempty"`
}

// Node is a vertex of a workflow graph.
type Node struct {
	ID       string   `json:"id"       validate:"required"`
	Type     NodeType `json:"type"     validate:"required"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// Edge links two nodes by id. Edges carry no condition or port.
type Edge struct {
	ID     string `json:"id"     validate:"required"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}
