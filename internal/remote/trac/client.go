// Package trac implements remote.Store on top of the Trac XML-RPC plugin.
package trac

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/imroc/req/v3"

	"github.com/klauern/docsync/internal/remote"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultCacheSize = 256
	userAgent        = "docsync"
)

// Options configures a Client.
type Options struct {
	// URL is the Trac project URL, or the RPC endpoint itself.
	URL      string
	Username string
	Password string
	// Insecure disables TLS certificate verification.
	Insecure bool
	Timeout  time.Duration
	// CacheSize bounds the number of cached page revisions.
	CacheSize int
}

// Client talks to a Trac wiki over XML-RPC.
type Client struct {
	http   *req.Client
	rpcURL string

	// Historic revisions never change, so their content is cached.
	revisions *lru.Cache[string, string]
}

var _ remote.Store = (*Client)(nil)

// New creates a client for the given Trac instance.
func New(opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("trac: url is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}

	cache, err := lru.New[string, string](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("trac: failed to create cache: %w", err)
	}

	client := req.C().
		SetTimeout(opts.Timeout).
		SetUserAgent(userAgent).
		SetCommonHeader("Content-Type", "text/xml")
	if opts.Username != "" {
		client.SetCommonBasicAuth(opts.Username, opts.Password)
	}
	if opts.Insecure {
		client.EnableInsecureSkipVerify()
	}

	return &Client{
		http:      client,
		rpcURL:    RPCURL(opts.URL),
		revisions: cache,
	}, nil
}

// RPCURL derives the XML-RPC endpoint from a project URL.
func RPCURL(base string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, "/rpc") {
		return base
	}
	return base + "/login/rpc"
}

// ListNames returns every wiki page name.
func (c *Client) ListNames(ctx context.Context) ([]string, error) {
	v, err := c.call(ctx, "wiki.getAllPages")
	if err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("trac: wiki.getAllPages returned %T", v)
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			names = append(names, s)
		}
	}
	return names, nil
}

// GetContent returns raw TracWiki text.
func (c *Client) GetContent(ctx context.Context, name string, rev *int) (string, error) {
	if rev != nil {
		key := cacheKey(name, *rev)
		if text, ok := c.revisions.Get(key); ok {
			return text, nil
		}
		v, err := c.call(ctx, "wiki.getPageVersion", name, *rev)
		if err != nil {
			return "", c.wrapNotFound(name, err)
		}
		text, err := asString(v, "wiki.getPageVersion")
		if err != nil {
			return "", err
		}
		c.revisions.Add(key, text)
		return text, nil
	}

	v, err := c.call(ctx, "wiki.getPage", name)
	if err != nil {
		return "", c.wrapNotFound(name, err)
	}
	return asString(v, "wiki.getPage")
}

// GetInfo returns page metadata.
func (c *Client) GetInfo(ctx context.Context, name string, rev *int) (remote.PageInfo, error) {
	var (
		v   any
		err error
	)
	if rev != nil {
		v, err = c.call(ctx, "wiki.getPageInfoVersion", name, *rev)
	} else {
		v, err = c.call(ctx, "wiki.getPageInfo", name)
	}
	if err != nil {
		return remote.PageInfo{}, c.wrapNotFound(name, err)
	}

	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		// Trac answers an empty struct for pages it does not know.
		return remote.PageInfo{}, fmt.Errorf("page %q: %w", name, remote.ErrNotFound)
	}
	return pageInfo(name, m), nil
}

// PutContent writes a page. rev is passed as the "version" attribute so
// Trac rejects the write when the page moved on.
func (c *Client) PutContent(ctx context.Context, name, text, comment string, rev *int) (remote.PageInfo, error) {
	attrs := map[string]any{"comment": comment}
	if rev != nil {
		attrs["version"] = *rev
	}

	v, err := c.call(ctx, "wiki.putPage", name, text, attrs)
	if err != nil {
		return remote.PageInfo{}, err
	}
	if ok, _ := v.(bool); !ok {
		return remote.PageInfo{}, fmt.Errorf("trac: failed to update page %q", name)
	}

	info, err := c.GetInfo(ctx, name, nil)
	if err != nil {
		return remote.PageInfo{}, fmt.Errorf("trac: page %q written but info unavailable: %w", name, err)
	}
	c.revisions.Add(cacheKey(name, info.Version), text)
	return info, nil
}

func (c *Client) call(ctx context.Context, method string, args ...any) (any, error) {
	body, err := encodeCall(method, args...)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBodyBytes(body).
		Post(c.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("trac: %s request failed: %w", method, err)
	}
	if resp.IsErrorState() {
		return nil, fmt.Errorf("trac: %s returned HTTP %d", method, resp.StatusCode)
	}

	data, err := resp.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("trac: %s read failed: %w", method, err)
	}
	return decodeResponse(data)
}

func (c *Client) wrapNotFound(name string, err error) error {
	if remote.IsNotFound(err) {
		return fmt.Errorf("page %q: %w: %w", name, remote.ErrNotFound, err)
	}
	return err
}

func pageInfo(name string, m map[string]any) remote.PageInfo {
	info := remote.PageInfo{Name: name}
	if n, ok := m["name"].(string); ok && n != "" {
		info.Name = n
	}
	if v, ok := m["version"].(int); ok {
		info.Version = v
	}
	if a, ok := m["author"].(string); ok {
		info.Author = a
	}
	if t, ok := m["lastModified"].(time.Time); ok {
		info.LastModified = t
	}
	return info
}

func asString(v any, method string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("trac: %s returned %T", method, v)
	}
	return s, nil
}

func cacheKey(name string, rev int) string {
	return fmt.Sprintf("%s@%d", name, rev)
}
