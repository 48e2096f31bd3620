// Package github is the GitHub integration: issues, file commits and the
// account lookups used when binding a connection.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v68/github"
)

// Issue is the part of a created issue reported back to the caller.
type Issue struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
}

// Commit is the result of a create-or-update file write.
type Commit struct {
	SHA     string `json:"sha"`
	Path    string `json:"path"`
	Created bool   `json:"created"`
}

type Repository struct {
	FullName string `json:"full_name"`
	Private  bool   `json:"private"`
	HTMLURL  string `json:"html_url"`
}

// Client is the narrow set of GitHub calls flowzen makes.
type Client interface {
	CreateIssue(ctx context.Context, owner, repo, title, body string) (*Issue, error)
	// FileSHA returns the blob SHA at path; found is false on 404.
	FileSHA(ctx context.Context, owner, repo, path string) (sha string, found bool, err error)
	// PutFile creates the file when sha is empty and updates it otherwise.
	PutFile(ctx context.Context, owner, repo, path, message string, content []byte, sha string) (string, error)
	CurrentUser(ctx context.Context) (string, error)
	ListRepositories(ctx context.Context) ([]Repository, error)
}

// Factory builds a Client for an access token.
type Factory func(token string) Client

// APIClient implements Client on go-github.
type APIClient struct {
	client *gh.Client
}

func NewClient(token string) Client {
	return &APIClient{client: gh.NewClient(nil).WithAuthToken(token)}
}

// NewClientWith wraps an existing go-github client.
func NewClientWith(client *gh.Client) *APIClient {
	return &APIClient{client: client}
}

func (c *APIClient) CreateIssue(ctx context.Context, owner, repo, title, body string) (*Issue, error) {
	issue, _, err := c.client.Issues.Create(ctx, owner, repo, &gh.IssueRequest{
		Title: gh.Ptr(title),
		Body:  gh.Ptr(body),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create issue in %s/%s: %w", owner, repo, err)
	}

	return &Issue{Number: issue.GetNumber(), HTMLURL: issue.GetHTMLURL()}, nil
}

func (c *APIClient) FileSHA(ctx context.Context, owner, repo, path string) (string, bool, error) {
	file, _, resp, err := c.client.Repositories.GetContents(ctx, owner, repo, path, nil)
	if err != nil {
		if isNotFound(resp, err) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("failed to read %s in %s/%s: %w", path, owner, repo, err)
	}

	if file == nil {
		return "", false, fmt.Errorf("%s in %s/%s is a directory", path, owner, repo)
	}

	return file.GetSHA(), true, nil
}

func (c *APIClient) PutFile(ctx context.Context, owner, repo, path, message string, content []byte, sha string) (string, error) {
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(message),
		Content: content,
	}

	var (
		result *gh.RepositoryContentResponse
		err    error
	)

	if sha == "" {
		result, _, err = c.client.Repositories.CreateFile(ctx, owner, repo, path, opts)
	} else {
		opts.SHA = gh.Ptr(sha)
		result, _, err = c.client.Repositories.UpdateFile(ctx, owner, repo, path, opts)
	}

	if err != nil {
		return "", fmt.Errorf("failed to write %s in %s/%s: %w", path, owner, repo, err)
	}

	return result.Commit.GetSHA(), nil
}

func (c *APIClient) CurrentUser(ctx context.Context) (string, error) {
	user, _, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("failed to fetch authenticated user: %w", err)
	}

	return user.GetLogin(), nil
}

func (c *APIClient) ListRepositories(ctx context.Context) ([]Repository, error) {
	repos, _, err := c.client.Repositories.ListByAuthenticatedUser(ctx, &gh.RepositoryListByAuthenticatedUserOptions{
		Sort:        "updated",
		ListOptions: gh.ListOptions{PerPage: 100},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}

	result := make([]Repository, 0, len(repos))
	for _, r := range repos {
		result = append(result, Repository{
			FullName: r.GetFullName(),
			Private:  r.GetPrivate(),
			HTMLURL:  r.GetHTMLURL(),
		})
	}

	return result, nil
}

func isNotFound(resp *gh.Response, err error) bool {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return true
	}

	var errResp *gh.ErrorResponse

	return errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound
}
