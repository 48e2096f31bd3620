package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ConnectionType names a third-party service a user can bind.
type ConnectionType string

const (
	ConnectionTypeDiscord     ConnectionType = "Discord"
	ConnectionTypeSlack       ConnectionType = "Slack"
	ConnectionTypeNotion      ConnectionType = "Notion"
	ConnectionTypeEmail       ConnectionType = "Email"
	ConnectionTypeGitHub      ConnectionType = "GitHub"
	ConnectionTypeGoogleDrive ConnectionType = "Google Drive"
)

var ErrUnknownConnectionType = errors.New("unknown connection type")

// AllConnectionTypes lists the supported connection types.
func AllConnectionTypes() []ConnectionType {
	return []ConnectionType{
		ConnectionTypeDiscord,
		ConnectionTypeSlack,
		ConnectionTypeNotion,
		ConnectionTypeEmail,
		ConnectionTypeGitHub,
		ConnectionTypeGoogleDrive,
	}
}

// ParseConnectionType accepts the display name or its lowercase slug
// ("discord", "google-drive").
func ParseConnectionType(value string) (ConnectionType, error) {
	for _, t := range AllConnectionTypes() {
		if value == string(t) || value == t.Slug() {
			return t, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownConnectionType, value)
}

// Slug is the URL-friendly form of the type.
func (t ConnectionType) Slug() string {
	switch t {
	case ConnectionTypeDiscord:
		return "discord"
	case ConnectionTypeSlack:
		return "slack"
	case ConnectionTypeNotion:
		return "notion"
	case ConnectionTypeEmail:
		return "email"
	case ConnectionTypeGitHub:
		return "github"
	case ConnectionTypeGoogleDrive:
		return "google-drive"
	default:
		return ""
	}
}

// Credentials is the provider-specific payload of a Connection. The set of
// implementations is closed; consumers switch on the concrete type.
type Credentials interface {
	ConnectionType() ConnectionType
	// ExternalID identifies the bound resource on the provider side when a
	// user may bind more than one, and is empty otherwise.
	ExternalID() string
	Validate() error
	sealed()
}

// Connection binds a user to a third-party service.
type Connection struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Type        ConnectionType `json:"type"`
	Credentials Credentials    `json:"credentials"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NewConnection builds a connection whose type follows its credentials.
func NewConnection(id, userID string, credentials Credentials, createdAt time.Time) *Connection {
	return &Connection{
		ID:          id,
		UserID:      userID,
		Type:        credentials.ConnectionType(),
		Credentials: credentials,
		CreatedAt:   createdAt,
	}
}

type connectionJSON struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Type        ConnectionType  `json:"type"`
	Credentials json.RawMessage `json:"credentials"`
	CreatedAt   time.Time       `json:"created_at"`
}

// UnmarshalJSON decodes the credentials into the concrete type named by "type".
func (c *Connection) UnmarshalJSON(data []byte) error {
	var raw connectionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	credentials, err := DecodeCredentials(raw.Type, raw.Credentials)
	if err != nil {
		return err
	}

	c.ID = raw.ID
	c.UserID = raw.UserID
	c.Type = raw.Type
	c.Credentials = credentials
	c.CreatedAt = raw.CreatedAt

	return nil
}

// DecodeCredentials decodes a JSON credentials payload for the given type.
func DecodeCredentials(t ConnectionType, data json.RawMessage) (Credentials, error) {
	var credentials Credentials

	switch t {
	case ConnectionTypeDiscord:
		credentials = &DiscordCredentials{}
	case ConnectionTypeSlack:
		credentials = &SlackCredentials{}
	case ConnectionTypeNotion:
		credentials = &NotionCredentials{}
	case ConnectionTypeEmail:
		credentials = &EmailCredentials{}
	case ConnectionTypeGitHub:
		credentials = &GitHubCredentials{}
	case ConnectionTypeGoogleDrive:
		credentials = &GoogleDriveCredentials{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownConnectionType, t)
	}

	if len(data) == 0 {
		return credentials, nil
	}

	if err := json.Unmarshal(data, credentials); err != nil {
		return nil, fmt.Errorf("failed to decode %s credentials: %w", t, err)
	}

	return credentials, nil
}

var errMissingField = errors.New("missing required field")

type field struct{ name, value string }

func requireFields(fields ...field) error {
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%w: %s", errMissingField, f.name)
		}
	}

	return nil
}

type DiscordCredentials struct {
	WebhookID   string `json:"webhook_id"`
	WebhookName string `json:"webhook_name"`
	WebhookURL  string `json:"webhook_url"`
	ChannelID   string `json:"channel_id"`
	GuildID     string `json:"guild_id"`
	GuildName   string `json:"guild_name"`
}

func (*DiscordCredentials) ConnectionType() ConnectionType { return ConnectionTypeDiscord }
func (d *DiscordCredentials) ExternalID() string          { return d.ChannelID }
func (*DiscordCredentials) sealed()                       {}

func (d *DiscordCredentials) Validate() error {
	return requireFields(field{"webhook_url", d.WebhookURL}, field{"channel_id", d.ChannelID})
}

type SlackCredentials struct {
	AccessToken     string `json:"access_token"`
	AppID           string `json:"app_id"`
	AuthedUserID    string `json:"authed_user_id"`
	AuthedUserToken string `json:"authed_user_token"`
	BotUserID       string `json:"bot_user_id"`
	TeamID          string `json:"team_id"`
	TeamName        string `json:"team_name"`
}

func (*SlackCredentials) ConnectionType() ConnectionType { return ConnectionTypeSlack }
func (*SlackCredentials) ExternalID() string             { return "" }
func (*SlackCredentials) sealed()                        {}

func (s *SlackCredentials) Validate() error {
	return requireFields(field{"access_token", s.AccessToken})
}

type NotionCredentials struct {
	AccessToken   string `json:"access_token"`
	WorkspaceID   string `json:"workspace_id"`
	WorkspaceName string `json:"workspace_name"`
	WorkspaceIcon string `json:"workspace_icon"`
	DatabaseID    string `json:"database_id"`
}

func (*NotionCredentials) ConnectionType() ConnectionType { return ConnectionTypeNotion }
func (*NotionCredentials) ExternalID() string             { return "" }
func (*NotionCredentials) sealed()                        {}

func (n *NotionCredentials) Validate() error {
	return requireFields(field{"access_token", n.AccessToken})
}

// EmailCredentials is an SMTP account. Port 465 means implicit TLS.
type EmailCredentials struct {
	EmailAddress string `json:"email_address"`
	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUser     string `json:"smtp_user"`
	SMTPPass     string `json:"smtp_pass"`
}

func (*EmailCredentials) ConnectionType() ConnectionType { return ConnectionTypeEmail }
func (*EmailCredentials) ExternalID() string             { return "" }
func (*EmailCredentials) sealed()                        {}

func (e *EmailCredentials) Validate() error {
	if e.SMTPPort < 0 || e.SMTPPort > 65535 {
		return fmt.Errorf("invalid smtp_port %d", e.SMTPPort)
	}

	return requireFields(
		field{"email_address", e.EmailAddress},
		field{"smtp_host", e.SMTPHost},
		field{"smtp_user", e.SMTPUser},
		field{"smtp_pass", e.SMTPPass},
	)
}

type GitHubCredentials struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
}

func (*GitHubCredentials) ConnectionType() ConnectionType { return ConnectionTypeGitHub }
func (*GitHubCredentials) ExternalID() string             { return "" }
func (*GitHubCredentials) sealed()                        {}

func (g *GitHubCredentials) Validate() error {
	return requireFields(field{"access_token", g.AccessToken})
}

type GoogleDriveCredentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ResourceID   string `json:"resource_id"`
}

func (*GoogleDriveCredentials) ConnectionType() ConnectionType { return ConnectionTypeGoogleDrive }
func (*GoogleDriveCredentials) ExternalID() string             { return "" }
func (*GoogleDriveCredentials) sealed()                        {}

func (g *GoogleDriveCredentials) Validate() error {
	return requireFields(field{"access_token", g.AccessToken})
}
