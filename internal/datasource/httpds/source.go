package httpds

import (
	"context"
	"io"
	"strings"
)

// Source is a datasource.Source for a URL.
type Source struct {
	client *Client
	url    string
}

// NewSource binds url to client. A nil client gets NewClient(Config{}).
func NewSource(client *Client, url string) *Source {
	if client == nil {
		client = NewClient(Config{})
	}
	return &Source{client: client, url: url}
}

// IsURL reports whether path should be fetched over HTTP.
func IsURL(path string) bool {
	p := strings.ToLower(path)
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// Name returns the URL.
func (s *Source) Name() string { return s.url }

// Open performs the GET and returns the response body.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
