package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

const (
	// MaxItemsPerFetch bounds per-cycle processing for oversized feeds; only
	// the first entries, in upstream order, are kept.
	MaxItemsPerFetch = 100

	// MaxTitleLength is the stored item title bound, in runes.
	MaxTitleLength = 160

	defaultTimeout = 30 * time.Second

	userAgent = "feedhub/1.0 (+https://github.com/feedhub)"
)

// Channel holds the normalized channel-level fields of a fetched feed. Any of
// them may be empty; absence never fails a fetch.
type Channel struct {
	Title       string
	Description string
	Link        string
	FeedURL     string
	ImageURL    string
}

// Item is one normalized feed entry, ready for storage. GUID is always
// populated. Content is nil when the entry carried none.
type Item struct {
	GUID        string
	Title       string
	Link        string
	Content     *string
	TextContent string
	Author      string
	PublishedAt *time.Time
}

// Result is a successful fetch: the channel metadata plus at most
// MaxItemsPerFetch normalized items in upstream order.
type Result struct {
	Channel Channel
	Items   []Item
}

// Fetcher turns a feed URL into a Result. It never panics; every failure
// comes back as an error the caller logs and retries on the next tick.
type Fetcher struct {
	parser   *gofeed.Parser
	client   *http.Client
	content  *bluemonday.Policy
	stripper *bluemonday.Policy
	maxItems int
}

func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	// The client timeout is the hard bound: a hung upstream must not be able
	// to hold a channel's in-flight flag forever.
	client := &http.Client{Timeout: timeout}

	p := gofeed.NewParser()
	p.Client = client
	p.UserAgent = userAgent

	content := bluemonday.UGCPolicy()
	content.RequireNoFollowOnLinks(true)
	content.AddTargetBlankToFullyQualifiedLinks(true)

	return &Fetcher{
		parser:   p,
		client:   client,
		content:  content,
		stripper: bluemonday.StrictPolicy(),
		maxItems: MaxItemsPerFetch,
	}
}

// Fetch fetches and normalizes the feed at feedURL. When the URL does not
// parse as a feed it is treated as an HTML page once: the page is scanned for
// an advertised RSS/Atom link and the discovered URL is fetched instead.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (*Result, error) {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		discovered, derr := f.discoverFeedURL(ctx, feedURL)
		if derr != nil {
			return nil, fmt.Errorf("fetching %s: %w", feedURL, err)
		}
		feed, err = f.parser.ParseURLWithContext(discovered, ctx)
		if err != nil {
			return nil, fmt.Errorf("fetching discovered feed %s: %w", discovered, err)
		}
		feedURL = discovered
	}

	return f.normalize(feed, feedURL), nil
}

func (f *Fetcher) normalize(feed *gofeed.Feed, feedURL string) *Result {
	res := &Result{
		Channel: Channel{
			Title:       strings.TrimSpace(feed.Title),
			Description: strings.TrimSpace(feed.Description),
			Link:        strings.TrimSpace(feed.Link),
			FeedURL:     feedURL,
		},
	}
	if feed.FeedLink != "" {
		res.Channel.FeedURL = feed.FeedLink
	}
	if feed.Image != nil {
		res.Channel.ImageURL = feed.Image.URL
	}

	entries := feed.Items
	if len(entries) > f.maxItems {
		entries = entries[:f.maxItems]
	}
	for _, entry := range entries {
		res.Items = append(res.Items, f.normalizeItem(entry))
	}
	return res
}

func (f *Fetcher) normalizeItem(entry *gofeed.Item) Item {
	item := Item{
		Link:        entry.Link,
		PublishedAt: entry.PublishedParsed,
	}
	if item.PublishedAt == nil {
		item.PublishedAt = entry.UpdatedParsed
	}

	raw := entry.Content
	if raw == "" {
		raw = entry.Description
	}
	if raw != "" {
		sanitized := strings.TrimSpace(f.content.Sanitize(raw))
		item.Content = &sanitized
		item.TextContent = strings.TrimSpace(f.stripper.Sanitize(raw))
	}

	item.GUID = f.itemKey(entry)
	item.Title = f.itemTitle(entry, item.TextContent)

	if entry.Author != nil {
		item.Author = entry.Author.Name
	} else if len(entry.Authors) > 0 && entry.Authors[0] != nil {
		item.Author = entry.Authors[0].Name
	}
	return item
}

// itemKey derives the dedup key: explicit GUID, then the entry link, then a
// deterministic digest of link+title. An empty key is never produced.
func (f *Fetcher) itemKey(entry *gofeed.Item) string {
	if entry.GUID != "" {
		return entry.GUID
	}
	if entry.Link != "" {
		return entry.Link
	}
	sum := sha256.Sum256([]byte(entry.Link + entry.Title))
	return hex.EncodeToString(sum[:])
}

// itemTitle falls back from the explicit title to a snippet of the entry's
// text to the literal "Untitled", truncated to MaxTitleLength runes.
func (f *Fetcher) itemTitle(entry *gofeed.Item, snippet string) string {
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		title = snippet
	}
	if title == "" {
		title = "Untitled"
	}
	runes := []rune(title)
	if len(runes) > MaxTitleLength {
		title = string(runes[:MaxTitleLength])
	}
	return title
}

// discoverFeedURL fetches pageURL as HTML and returns the first advertised
// RSS or Atom feed URL, with relative hrefs resolved against the page.
func (f *Fetcher) discoverFeedURL(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	sel := doc.Find(`link[type='application/rss+xml'], link[type='application/atom+xml']`).First()
	href, ok := sel.Attr("href")
	if !ok || href == "" {
		return "", fmt.Errorf("no feed link advertised on %s", pageURL)
	}

	if !strings.HasPrefix(href, "http") {
		base, err := url.Parse(pageURL)
		if err != nil {
			return "", err
		}
		ref, err := url.Parse(href)
		if err != nil {
			return "", err
		}
		href = base.ResolveReference(ref).String()
	}
	return href, nil
}
