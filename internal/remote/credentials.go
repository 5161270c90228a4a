package remote

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"musicetl/internal/logging"
)

// DriveScope is the default OAuth scope (full Drive access).
const DriveScope = "https://www.googleapis.com/auth/drive"

// CredentialProvider yields the token source an Uploader authenticates with.
type CredentialProvider interface {
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
}

// StaticCredentials is a CredentialProvider around a fixed token source.
type StaticCredentials struct{ Source oauth2.TokenSource }

func (s StaticCredentials) TokenSource(context.Context) (oauth2.TokenSource, error) {
	if s.Source == nil {
		return nil, errors.New("static credentials: nil token source")
	}
	return s.Source, nil
}

// FileCredentialProvider authorizes with an OAuth client secrets file and
// caches the resulting token in TokenFile.
//
// With a cached token the source refreshes it on expiry and rewrites the
// cache. Without one it prints the consent URL to Prompt, reads the
// authorization code from Input and caches the exchanged token.
type FileCredentialProvider struct {
	SecretsFile string
	TokenFile   string
	Scopes      []string

	Prompt io.Writer
	Input  io.Reader
	Log    *zap.Logger
}

// TokenSource implements CredentialProvider. The returned source has already
// produced a valid token once.
func (p *FileCredentialProvider) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	log := logging.OrNop(p.Log)

	secrets, err := os.ReadFile(p.SecretsFile)
	if err != nil {
		return nil, fmt.Errorf("read client secrets: %w", err)
	}
	scopes := p.Scopes
	if len(scopes) == 0 {
		scopes = []string{DriveScope}
	}
	cfg, err := google.ConfigFromJSON(secrets, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secrets: %w", err)
	}

	tok, err := readToken(p.TokenFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Info("remote: no cached credentials, starting interactive authorization",
			zap.String("token_file", p.TokenFile))
		if tok, err = p.authorize(ctx, cfg); err != nil {
			return nil, err
		}
		if err := writeToken(p.TokenFile, tok); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	ts := &cachingSource{
		src:  cfg.TokenSource(ctx, tok),
		path: p.TokenFile,
		last: tok.AccessToken,
		log:  log,
	}
	if _, err := ts.Token(); err != nil {
		return nil, fmt.Errorf("refresh credentials: %w", err)
	}
	return ts, nil
}

func (p *FileCredentialProvider) authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	if p.Input == nil || p.Prompt == nil {
		return nil, errors.New("interactive authorization needs a prompt and an input")
	}
	url := cfg.AuthCodeURL("musicetl", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintf(p.Prompt, "Open the following URL, authorize access and paste the code:\n%s\n", url)

	code, err := bufio.NewReader(p.Input).ReadString('\n')
	code = strings.TrimSpace(code)
	if code == "" {
		if err == nil {
			err = errors.New("empty authorization code")
		}
		return nil, fmt.Errorf("read authorization code: %w", err)
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

// cachingSource writes every new access token back to path.
type cachingSource struct {
	mu   sync.Mutex
	src  oauth2.TokenSource
	path string
	last string
	log  *zap.Logger
}

func (c *cachingSource) Token() (*oauth2.Token, error) {
	tok, err := c.src.Token()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if tok.AccessToken != c.last {
		if err := writeToken(c.path, tok); err != nil {
			c.log.Warn("remote: could not cache refreshed token", zap.Error(err))
		} else {
			c.log.Debug("remote: refreshed token cached", zap.String("token_file", c.path))
		}
		c.last = tok.AccessToken
	}
	return tok, nil
}

func readToken(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("decode token file %s: %w", path, err)
	}
	return &tok, nil
}

func writeToken(path string, tok *oauth2.Token) error {
	b, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create token dir: %w", err)
		}
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}
