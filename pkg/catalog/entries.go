package catalog

import "github.com/flowzen/flowzen/pkg/models"

func intPtr(v int) *int { return &v }

func builtinEntries() []Entry {
	return []Entry{
		{
			Type:        models.NodeTypeTrigger,
			Category:    CategoryTrigger,
			Name:        "Trigger",
			Description: "An event that starts the workflow.",
			Schema: &models.JSONSchema{
				Type: "object",
				Properties: map[string]*models.Property{
					"schedule": {Type: "string", Description: "Optional cron expression"},
				},
			},
		},
		{
			Type:        models.NodeTypeAction,
			Category:    CategoryAction,
			Name:        "Action",
			Description: "An event that happens after the workflow begins.",
			Schema:      &models.JSONSchema{Type: "object"},
		},
		{
			Type:               models.NodeTypeEmail,
			Category:           CategoryAction,
			Name:               "Email",
			Description:        "Send an email through the connected SMTP account.",
			RequiredConnection: models.ConnectionTypeEmail,
			Schema: &models.JSONSchema{
				Type:     "object",
				Required: []string{"to", "subject", "body"},
				Properties: map[string]*models.Property{
					"to":      {Type: "string", Format: "email"},
					"subject": {Type: "string", MinLength: intPtr(1)},
					"body":    {Type: "string", MinLength: intPtr(1)},
				},
			},
		},
		{
			Type:        models.NodeTypeCondition,
			Category:    CategoryLogic,
			Name:        "Condition",
			Description: "Boolean operator that creates different conditions lanes.",
			Schema: &models.JSONSchema{
				Type: "object",
				Properties: map[string]*models.Property{
					"expression": {Type: "string"},
				},
			},
		},
		{
			Type:        models.NodeTypeAI,
			Category:    CategoryAction,
			Name:        "AI",
			Description: "Use the power of AI to summarize, respond, create and much more.",
			Schema: &models.JSONSchema{
				Type: "object",
				Properties: map[string]*models.Property{
					"prompt": {Type: "string"},
				},
			},
		},
		{
			Type:               models.NodeTypeSlack,
			Category:           CategoryAction,
			Name:               "Slack",
			Description:        "Send a notification to slack.",
			RequiredConnection: models.ConnectionTypeSlack,
			Schema: &models.JSONSchema{
				Type:     "object",
				Required: []string{"channels", "content"},
				Properties: map[string]*models.Property{
					"channels": {Type: "array", MinItems: intPtr(1), Items: &models.Property{Type: "string", MinLength: intPtr(1)}},
					"content":  {Type: "string", MinLength: intPtr(1)},
				},
			},
		},
		{
			Type:               models.NodeTypeDiscord,
			Category:           CategoryAction,
			Name:               "Discord",
			Description:        "Post messages to your discord server.",
			RequiredConnection: models.ConnectionTypeDiscord,
			Schema: &models.JSONSchema{
				Type: "object",
				Properties: map[string]*models.Property{
					"content": {Type: "string"},
					"attachments": {
						Type: "array",
						Items: &models.Property{
							Type:     "object",
							Required: []string{"name", "link"},
							Properties: map[string]*models.Property{
								"name": {Type: "string"},
								"link": {Type: "string"},
							},
						},
					},
				},
			},
		},
		{
			Type:               models.NodeTypeGoogleDrive,
			Category:           CategoryTrigger,
			Name:               "Google Drive",
			Description:        "Connect with Google drive to trigger actions or to create files and folders.",
			RequiredConnection: models.ConnectionTypeGoogleDrive,
			Schema: &models.JSONSchema{
				Type: "object",
				Properties: map[string]*models.Property{
					"folder_id": {Type: "string"},
				},
			},
		},
		{
			Type:               models.NodeTypeNotion,
			Category:           CategoryAction,
			Name:               "Notion",
			Description:        "Create entries in your notion dashboard.",
			RequiredConnection: models.ConnectionTypeNotion,
			Schema: &models.JSONSchema{
				Type:     "object",
				Required: []string{"database_id", "content"},
				Properties: map[string]*models.Property{
					"database_id": {Type: "string", MinLength: intPtr(1)},
					"content":     {Type: "string", MinLength: intPtr(1)},
				},
			},
		},
		{
			Type:               models.NodeTypeGitHub,
			Category:           CategoryAction,
			Name:               "GitHub",
			Description:        "Create issues or commit files in a GitHub repository.",
			RequiredConnection: models.ConnectionTypeGitHub,
			Schema: &models.JSONSchema{
				Type:     "object",
				Required: []string{"action", "repository"},
				Properties: map[string]*models.Property{
					"action":     {Type: "string", Enum: []any{models.GitHubActionCreateIssue, models.GitHubActionCommitFile}},
					"repository": {Type: "string", Pattern: "^[^/]+/[^/]+$"},
					"title":      {Type: "string"},
					"body":       {Type: "string"},
					"path":       {Type: "string"},
					"content":    {Type: "string"},
					"message":    {Type: "string"},
				},
			},
		},
		{
			Type:        models.NodeTypeCustomWebhook,
			Category:    CategoryAction,
			Name:        "Custom Webhook",
			Description: "Connect any app that has an API key and send data to your application.",
			Schema: &models.JSONSchema{
				Type: "object",
				Properties: map[string]*models.Property{
					"url": {Type: "string", Format: "uri"},
				},
			},
		},
		{
			Type:        models.NodeTypeGoogleCalendar,
			Category:    CategoryAction,
			Name:        "Google Calendar",
			Description: "Create a calendar invite.",
			Schema: &models.JSONSchema{
				Type: "object",
				Properties: map[string]*models.Property{
					"calendar_id": {Type: "string"},
				},
			},
		},
		{
			Type:        models.NodeTypeWait,
			Category:    CategoryLogic,
			Name:        "Wait",
			Description: "Delay the next action step.",
			Schema: &models.JSONSchema{
				Type: "object",
				Properties: map[string]*models.Property{
					"delay_seconds": {Type: "integer"},
				},
			},
		},
	}
}
