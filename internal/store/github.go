// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v73/github"

	"github.com/tomtom215/waymark/internal/config"
	"github.com/tomtom215/waymark/internal/metrics"
	"github.com/tomtom215/waymark/internal/models"
)

// GitHubBackend stores documents as files on one branch of a GitHub
// repository through the contents API. Versions are git blob SHAs and every
// write is a commit.
type GitHubBackend struct {
	client *github.Client
	owner  string
	repo   string
	branch string
}

// NewGitHubBackend creates a backend authenticated with cfg.Token.
func NewGitHubBackend(cfg config.GitHubConfig) (*GitHubBackend, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("github backend requires owner and repo")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := github.NewClient(&http.Client{Timeout: timeout}).WithAuthToken(cfg.Token)
	if cfg.UserAgent != "" {
		client.UserAgent = cfg.UserAgent
	}
	if cfg.APIBaseURL != "" {
		base := cfg.APIBaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid github api base url: %w", err)
		}
		client.BaseURL = u
	}

	branch := cfg.Branch
	if branch == "" {
		branch = "main"
	}

	return &GitHubBackend{
		client: client,
		owner:  cfg.Owner,
		repo:   cfg.Repo,
		branch: branch,
	}, nil
}

// Name implements Backend.
func (b *GitHubBackend) Name() string {
	return "github"
}

// Get implements Backend.
func (b *GitHubBackend) Get(ctx context.Context, path string) (*Object, error) {
	start := time.Now()
	file, _, resp, err := b.client.Repositories.GetContents(ctx, b.owner, b.repo, path,
		&github.RepositoryContentGetOptions{Ref: b.branch})
	b.observe("get_contents", start, resp, err)
	if err != nil {
		if responseStatus(resp, err) == http.StatusNotFound {
			return nil, ErrObjectNotFound
		}
		return nil, upstreamError("get_contents", resp, err)
	}
	if file == nil {
		return nil, &models.UpstreamError{
			Service:   models.ServiceStore,
			Operation: "get_contents",
			Message:   "path is a directory",
		}
	}

	content, err := b.fileContent(ctx, file)
	if err != nil {
		return nil, err
	}
	return &Object{Content: content, Version: file.GetSHA()}, nil
}

// fileContent decodes the file body. Files over 1 MB come back from the
// contents API without content and are fetched as a raw blob.
func (b *GitHubBackend) fileContent(ctx context.Context, file *github.RepositoryContent) ([]byte, error) {
	if file.GetEncoding() != "none" {
		content, err := file.GetContent()
		if err != nil {
			return nil, &models.UpstreamError{
				Service:   models.ServiceStore,
				Operation: "get_contents",
				Message:   "undecodable file content",
				Cause:     err,
			}
		}
		return []byte(content), nil
	}

	start := time.Now()
	blob, resp, err := b.client.Git.GetBlobRaw(ctx, b.owner, b.repo, file.GetSHA())
	b.observe("get_blob", start, resp, err)
	if err != nil {
		return nil, upstreamError("get_blob", resp, err)
	}
	return blob, nil
}

// Put implements Backend.
func (b *GitHubBackend) Put(ctx context.Context, path string, content []byte, baseVersion, message string) (*PutResult, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: content,
		Branch:  github.Ptr(b.branch),
	}

	var (
		result    *github.RepositoryContentResponse
		resp      *github.Response
		err       error
		operation string
	)

	start := time.Now()
	if baseVersion == "" {
		operation = "create_file"
		result, resp, err = b.client.Repositories.CreateFile(ctx, b.owner, b.repo, path, opts)
	} else {
		operation = "update_file"
		opts.SHA = github.Ptr(baseVersion)
		result, resp, err = b.client.Repositories.UpdateFile(ctx, b.owner, b.repo, path, opts)
	}
	b.observe(operation, start, resp, err)

	if err != nil {
		switch status := responseStatus(resp, err); {
		case status == http.StatusConflict:
			return nil, ErrVersionMismatch
		case status == http.StatusUnprocessableEntity && baseVersion == "" && missingSHA(err):
			// Creating over an existing file: "sha" wasn't supplied.
			return nil, ErrVersionMismatch
		}
		return nil, upstreamError(operation, resp, err)
	}

	return &PutResult{
		Version: result.GetContent().GetSHA(),
		Commit:  result.Commit.GetSHA(),
	}, nil
}

func (b *GitHubBackend) observe(operation string, start time.Time, resp *github.Response, err error) {
	metrics.RecordUpstreamCall(models.ServiceStore, operation, responseStatus(resp, err), time.Since(start))
}

// responseStatus returns the HTTP status of a GitHub call, 0 when no
// response was received.
func responseStatus(resp *github.Response, err error) int {
	if resp != nil && resp.Response != nil {
		return resp.StatusCode
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode
	}
	return 0
}

// missingSHA reports whether a validation failure is about the blob sha
// rather than some other field such as the path.
func missingSHA(err error) bool {
	var ghErr *github.ErrorResponse
	if !errors.As(err, &ghErr) {
		return false
	}
	if strings.Contains(ghErr.Message, `"sha"`) {
		return true
	}
	for _, e := range ghErr.Errors {
		if strings.EqualFold(e.Field, "sha") || strings.Contains(e.Message, `"sha"`) {
			return true
		}
	}
	return false
}

// upstreamError converts a go-github error into *models.UpstreamError.
// The token is never part of the message.
func upstreamError(operation string, resp *github.Response, err error) error {
	message := "document store request failed"

	var ghErr *github.ErrorResponse
	var rateErr *github.RateLimitError
	switch {
	case errors.As(err, &rateErr):
		message = "document store rate limit exceeded"
	case errors.As(err, &ghErr) && ghErr.Message != "":
		message = ghErr.Message
	}

	return &models.UpstreamError{
		Service:   models.ServiceStore,
		Operation: operation,
		Status:    responseStatus(resp, err),
		Message:   message,
		Cause:     err,
	}
}
