package kv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const (
	gistAPIURL   = "https://api.github.com/gists"
	gistFilename = "devent.json"
	gistTimeout  = 15 * time.Second
)

// GistStore keeps the namespace as a JSON file inside a private GitHub Gist.
// Each write is a single PATCH of the whole file.
type GistStore struct {
	mu          sync.Mutex
	gistID      string
	githubToken string
	baseURL     string
	quota       int
	httpClient  *http.Client
}

// NewGistStore creates a Gist-backed store.
func NewGistStore(gistID, githubToken string, quota int) (*GistStore, error) {
	if gistID == "" {
		return nil, fmt.Errorf("gist ID is required")
	}
	if githubToken == "" {
		return nil, fmt.Errorf("GitHub token is required")
	}

	return &GistStore{
		gistID:      gistID,
		githubToken: githubToken,
		baseURL:     gistAPIURL,
		quota:       quota,
		httpClient: &http.Client{
			Timeout: gistTimeout,
		},
	}, nil
}

func (g *GistStore) url() string {
	return fmt.Sprintf("%s/%s", g.baseURL, g.gistID)
}

func (g *GistStore) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("token %s", g.githubToken))
	req.Header.Set("Accept", "application/vnd.github.v3+json")
}

// load fetches the namespace file. A gist without the file is an empty namespace.
func (g *GistStore) load() (map[string]string, error) {
	req, err := http.NewRequest("GET", g.url(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	g.setHeaders(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching gist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Don't include response body in error to prevent information leakage
		return nil, fmt.Errorf("GitHub API error (status %d)", resp.StatusCode)
	}

	var gistResp struct {
		Files map[string]struct {
			Content string `json:"content"`
		} `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&gistResp); err != nil {
		return nil, fmt.Errorf("decoding gist response: %w", err)
	}

	values := make(map[string]string)
	file, exists := gistResp.Files[gistFilename]
	if !exists || file.Content == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(file.Content), &values); err != nil {
		return nil, fmt.Errorf("parsing namespace: %w", err)
	}
	return values, nil
}

// save replaces the namespace file with values.
func (g *GistStore) save(values map[string]string) error {
	content, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding namespace: %w", err)
	}

	payload := map[string]interface{}{
		"files": map[string]interface{}{
			gistFilename: map[string]string{
				"content": string(content),
			},
		},
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequest("PATCH", g.url(), bytes.NewBuffer(payloadBytes))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	g.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("updating gist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GitHub API error (status %d)", resp.StatusCode)
	}
	return nil
}

// Get returns the value stored under key.
func (g *GistStore) Get(key string) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	values, err := g.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Set stores value under key.
func (g *GistStore) Set(key, value string) error {
	return g.SetMany(map[string]string{key: value})
}

// SetMany applies all updates in one PATCH.
func (g *GistStore) SetMany(updates map[string]string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	values, err := g.load()
	if err != nil {
		return err
	}
	if err := checkQuota(values, updates, g.quota); err != nil {
		return err
	}
	for k, v := range updates {
		values[k] = v
	}
	return g.save(values)
}

// Remove deletes key.
func (g *GistStore) Remove(key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	values, err := g.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return g.save(values)
}
