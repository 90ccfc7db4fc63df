// Package githubstore keeps all attendance data as files in a separate
// GitHub data repository, through the REST contents API. The blob SHA that
// GitHub returns on every read doubles as the version token: a write that
// carries a stale SHA is rejected by GitHub, which is the compare-and-swap
// this app's consistency discipline runs on.
package githubstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/epe202/ulas/core"
)

const apiBase = "https://api.github.com"

type Store struct {
	client *http.Client
	token  string
	repo   string
	branch string
	base   string // overrides apiBase in tests
}

var _ core.Store = (*Store)(nil) // interface compliance check

func New(conf core.GithubConfig) *Store {
	return &Store{
		client: &http.Client{Timeout: conf.Timeout},
		token:  conf.Token,
		repo:   conf.Repo,
		branch: conf.Branch,
	}
}

// NewWithBaseURL is used by tests to point the store at a fake API server.
func NewWithBaseURL(conf core.GithubConfig, baseURL string) *Store {
	s := New(conf)
	s.base = strings.TrimRight(baseURL, "/")
	return s
}

func (s *Store) baseURL() string {
	if s.base != "" {
		return s.base
	}
	return apiBase
}

func (s *Store) contentsURL(key string) string {
	return fmt.Sprintf("%s/repos/%s/contents/%s", s.baseURL(), s.repo, key)
}

func (s *Store) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "token "+s.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(core.ErrStoreUnavailable, "github: %v", err)
	}
	return resp, nil
}

type contentsResponse struct {
	Content string `json:"content"`
	SHA     string `json:"sha"`
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.contentsURL(key)+"?ref="+url.QueryEscape(s.branch), nil)
	if err != nil {
		return nil, "", errors.Wrap(err, "building request")
	}

	resp, err := s.do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, "", core.ErrKeyNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, "", errors.Wrapf(core.ErrStoreUnavailable, "github read %s: HTTP %d", key, resp.StatusCode)
	}

	var body contentsResponse
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, "", errors.Wrap(err, "decoding contents response")
	}
	// GitHub wraps base64 content at 60 columns
	value, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(body.Content, "\n", ""))
	if err != nil {
		return nil, "", errors.Wrap(err, "decoding blob content")
	}
	return value, body.SHA, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, message, version string) error {
	payload := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(value),
		"branch":  s.branch,
	}
	if version != "" {
		payload["sha"] = version
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encoding contents payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.contentsURL(key), bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusConflict, http.StatusUnprocessableEntity:
		// stale SHA, or a create raced an existing file
		return core.ErrVersionConflict
	case http.StatusNotFound:
		return core.ErrKeyNotFound
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 400))
		return errors.Wrapf(core.ErrStoreUnavailable, "github write %s: HTTP %d: %s", key, resp.StatusCode, snippet)
	}
}

type treeResponse struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
	} `json:"tree"`
}

func (s *Store) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	u := fmt.Sprintf("%s/repos/%s/git/trees/%s?recursive=1", s.baseURL(), s.repo, url.PathEscape(s.branch))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}

	resp, err := s.do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil // empty branch: nothing stored yet
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(core.ErrStoreUnavailable, "github tree: HTTP %d", resp.StatusCode)
	}

	var body treeResponse
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "decoding tree response")
	}

	var keys []string
	for _, item := range body.Tree {
		if item.Type == "blob" && strings.HasPrefix(item.Path, prefix) {
			keys = append(keys, item.Path)
		}
	}
	return keys, nil
}
