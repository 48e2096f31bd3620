// Package notion is the Notion integration: database lookup and page creation.
package notion

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
)

type Page struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Database struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

type Client interface {
	// CreatePage adds a row to databaseID whose title property is title.
	CreatePage(ctx context.Context, databaseID, title string) (*Page, error)
	GetDatabase(ctx context.Context, databaseID string) (*Database, error)
}

// Factory builds a Client for an integration token.
type Factory func(token string) Client

type APIClient struct {
	api *notionapi.Client
}

func NewClient(token string) Client {
	return &APIClient{api: notionapi.NewClient(notionapi.Token(token))}
}

func (c *APIClient) CreatePage(ctx context.Context, databaseID, title string) (*Page, error) {
	page, err := c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: notionapi.Properties{
			"title": notionapi.TitleProperty{
				Title: []notionapi.RichText{
					{Text: &notionapi.Text{Content: title}},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create page in database %s: %w", databaseID, err)
	}

	return &Page{ID: page.ID.String(), URL: page.URL}, nil
}

func (c *APIClient) GetDatabase(ctx context.Context, databaseID string) (*Database, error) {
	db, err := c.api.Database.Get(ctx, notionapi.DatabaseID(databaseID))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve database %s: %w", databaseID, err)
	}

	return &Database{ID: db.ID.String(), Title: plainText(db.Title), URL: db.URL}, nil
}

func plainText(parts []notionapi.RichText) string {
	var b strings.Builder

	for _, part := range parts {
		b.WriteString(part.PlainText)
	}

	return b.String()
}
