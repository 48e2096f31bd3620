package github

import (
	"context"
	"errors"
)

// CommitFile writes content to path, updating the file when it exists and
// creating it on a 404 probe. Any other probe failure aborts before a write.
func CommitFile(ctx context.Context, client Client, owner, repo, path, message, content string) (*Commit, error) {
	sha, found, err := client.FileSHA(ctx, owner, repo, path)
	if err != nil {
		return nil, err
	}

	commitSHA, err := client.PutFile(ctx, owner, repo, path, message, []byte(content), sha)
	if err != nil {
		return nil, err
	}

	return &Commit{SHA: commitSHA, Path: path, Created: !found}, nil
}

// Verify resolves the username behind token.
func Verify(ctx context.Context, client Client) (string, error) {
	login, err := client.CurrentUser(ctx)
	if err != nil {
		return "", err
	}

	if login == "" {
		return "", errors.New("token is not bound to a user")
	}

	return login, nil
}
