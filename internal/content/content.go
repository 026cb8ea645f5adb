package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/openboard/moderation-server/internal/config"
	"github.com/openboard/moderation-server/internal/moderr"
	"github.com/openboard/moderation-server/internal/model"
)

// Content is what the content collaborator knows about a single item.
type Content struct {
	AuthorID    model.MemberID `json:"author_id"`
	Body        string         `json:"body"`
	CommunityID int64          `json:"community_id"`
	Deleted     bool           `json:"deleted"`
}

// Resolver resolves a content reference to its author and current body.
// The moderation engine treats content authoring as a black box behind this
// interface; tests substitute a stub.
type Resolver interface {
	Resolve(ctx context.Context, ref model.ContentRef) (*Content, error)
}

// Client is the HTTP implementation of Resolver with a short-lived cache.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *ristretto.Cache
	ttl     time.Duration
}

var _ Resolver = (*Client)(nil)

const cacheCounterFactor = 10

func New(cfg *config.ContentConfig) (*Client, error) {
	httpClient, err := newHTTPClient(&cfg.Proxy, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.CacheSize * cacheCounterFactor / 64,
		MaxCost:     cfg.CacheSize,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("content cache init: %w", err)
	}

	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpClient,
		cache:   cache,
		ttl:     cfg.CacheTTL,
	}, nil
}

// Resolve - look up the content item, serving recent lookups from cache.
func (c *Client) Resolve(ctx context.Context, ref model.ContentRef) (*Content, error) {
	if !ref.IsValid() {
		return nil, moderr.Validation("content", "target", "reference must name exactly one topic or reply")
	}

	key := fmt.Sprintf("%s:%d", ref.Kind, ref.ID)
	if cached, ok := c.cache.Get(key); ok {
		if content, ok := cached.(*Content); ok {
			return content, nil
		}
	}

	url := fmt.Sprintf("%s/internal/content/%s/%d", c.baseURL, ref.Kind, ref.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("content request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, moderr.Transient("content", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusNotFound:
		return nil, moderr.NotFound("content", ref.ID.ToInt64())
	default:
		return nil, moderr.Transient("content", fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	var content Content
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return nil, moderr.Transient("content", err)
	}

	c.cache.SetWithTTL(key, &content, int64(len(content.Body))+1, c.ttl)

	return &content, nil
}

// Status - report whether the content service answers.
func (c *Client) Status() (bool, string) {
	resp, err := c.http.Get(c.baseURL + "/ping")
	if err != nil {
		return false, err.Error()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Sprintf("status code %d", resp.StatusCode)
	}
	return true, "ok"
}
