// Package dropbox implements the remote file store on the Dropbox HTTP API, authenticating
// with a long-lived refresh token.
package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf16"

	"golang.org/x/oauth2"

	"grantalign/internal/domain"
)

const (
	defaultAPIURL     = "https://api.dropboxapi.com/2"
	defaultContentURL = "https://content.dropboxapi.com/2"
	defaultTokenURL   = "https://api.dropbox.com/oauth2/token"
)

// Config configures the Dropbox client. The URL fields exist for tests.
type Config struct {
	AppKey       string
	AppSecret    string
	RefreshToken string
	Timeout      time.Duration

	APIURL     string
	ContentURL string
	TokenURL   string
}

// ConfigFromEnv reads the app credentials from the named environment variables.
func ConfigFromEnv(appKeyEnv, appSecretEnv, refreshTokenEnv string, timeout time.Duration) (Config, error) {
	cfg := Config{
		AppKey:       os.Getenv(appKeyEnv),
		AppSecret:    os.Getenv(appSecretEnv),
		RefreshToken: os.Getenv(refreshTokenEnv),
		Timeout:      timeout,
	}
	for env, v := range map[string]string{appKeyEnv: cfg.AppKey, appSecretEnv: cfg.AppSecret, refreshTokenEnv: cfg.RefreshToken} {
		if v == "" {
			return Config{}, fmt.Errorf("missing Dropbox credential in env %s", env)
		}
	}
	return cfg, nil
}

// Client talks to Dropbox. Access tokens are refreshed transparently.
type Client struct {
	http       *http.Client
	apiURL     string
	contentURL string
}

// New creates a Dropbox client.
func New(ctx context.Context, cfg Config) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	if cfg.ContentURL == "" {
		cfg.ContentURL = defaultContentURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	oc := &oauth2.Config{
		ClientID:     cfg.AppKey,
		ClientSecret: cfg.AppSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}
	base := &http.Client{Timeout: t}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	ts := oc.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	hc := oauth2.NewClient(ctx, ts)
	hc.Timeout = t
	return &Client{
		http:       hc,
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		contentURL: strings.TrimRight(cfg.ContentURL, "/"),
	}
}

// Name returns the identifier of this store.
func (c *Client) Name() string { return "dropbox" }

type listEntry struct {
	Tag         string `json:".tag"`
	Name        string `json:"name"`
	PathDisplay string `json:"path_display"`
}

type listResult struct {
	Entries []listEntry `json:"entries"`
	Cursor  string      `json:"cursor"`
	HasMore bool        `json:"has_more"`
}

// List returns the files directly inside folder, following pagination. When a page fails,
// the files gathered so far are returned together with the error.
func (c *Client) List(ctx context.Context, folder string) ([]domain.RemoteFile, error) {
	var out []domain.RemoteFile
	var page listResult
	if err := c.rpc(ctx, "/files/list_folder", map[string]any{"path": dropboxPath(folder)}, &page); err != nil {
		return nil, fmt.Errorf("list %s: %w", folder, err)
	}
	for {
		for _, e := range page.Entries {
			if e.Tag != "file" {
				continue
			}
			p := e.PathDisplay
			if p == "" {
				p = path.Join(folder, e.Name)
			}
			out = append(out, domain.RemoteFile{Name: e.Name, Path: p})
		}
		if !page.HasMore {
			return out, nil
		}
		cursor := page.Cursor
		page = listResult{}
		if err := c.rpc(ctx, "/files/list_folder/continue", map[string]any{"cursor": cursor}, &page); err != nil {
			return out, fmt.Errorf("list %s: %w", folder, err)
		}
	}
}

// Fetch downloads the file at p.
func (c *Client) Fetch(ctx context.Context, p string) ([]byte, error) {
	arg, err := apiArg(map[string]any{"path": dropboxPath(p)})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.contentURL+"/files/download", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Dropbox-API-Arg", arg)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("download "+p, resp)
	}
	return io.ReadAll(resp.Body)
}

// Put uploads localPath into folder, overwriting a file of the same name.
func (c *Client) Put(ctx context.Context, localPath, folder string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	target := path.Join(dropboxPath(folder), filepath.Base(localPath))
	arg, err := apiArg(map[string]any{"path": target, "mode": "overwrite", "mute": true})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.contentURL+"/files/upload", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Dropbox-API-Arg", arg)
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError("upload "+target, resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) rpc(ctx context.Context, endpoint string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(endpoint, resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(op string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("dropbox %s: %s: %s", op, resp.Status, strings.TrimSpace(string(msg)))
}

// dropboxPath normalizes p; Dropbox names the root folder "".
func dropboxPath(p string) string {
	p = path.Clean("/" + p)
	if p == "/" {
		return ""
	}
	return p
}

// apiArg encodes v for the Dropbox-API-Arg header, which must be ASCII.
func apiArg(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, r := range string(data) {
		if r < 0x80 {
			b.WriteRune(r)
			continue
		}
		if r > 0xFFFF {
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(&b, `\u%04x\u%04x`, r1, r2)
			continue
		}
		fmt.Fprintf(&b, `\u%04x`, r)
	}
	return b.String(), nil
}
