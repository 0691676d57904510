package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/devent/internal/event"
)

const (
	UserAgent = "devent-cli/1.0 (github.com/pfrederiksen/devent)"
	Timeout   = 30 * time.Second
)

// Scraper handles fetching and parsing D-Event listing pages
type Scraper struct {
	client *http.Client
}

// New creates a new Scraper instance
func New() *Scraper {
	return &Scraper{
		client: &http.Client{
			Timeout: Timeout,
		},
	}
}

// FetchEvents fetches url and parses the event cards on it.
func (s *Scraper) FetchEvents(ctx context.Context, url string) ([]event.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return ParseEvents(resp.Body)
}

// ParseEvents extracts one event per .event-card element. Cards without a
// title are skipped, and a title repeated on the page is kept once.
func ParseEvents(r io.Reader) ([]event.Event, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	events := make([]event.Event, 0)
	seen := make(map[string]bool)

	doc.Find(".event-card").Each(func(_ int, card *goquery.Selection) {
		evt := parseCard(card)
		if evt.Title == "" {
			return
		}
		key := event.StableKey(evt.Title)
		if seen[key] {
			return
		}
		seen[key] = true
		events = append(events, evt)
	})

	return events, nil
}

func parseCard(card *goquery.Selection) event.Event {
	evt := event.Event{
		Title:       text(card.Find(".event-title")),
		Category:    text(card.Find(".event-category")),
		Description: text(card.Find(".event-description")),
		Price:       ParsePrice(text(card.Find(".event-price"))),
	}

	if src, ok := card.Find("img").First().Attr("src"); ok && strings.TrimSpace(src) != event.DefaultImage {
		evt.Image = strings.TrimSpace(src)
	}

	// The meta row lists the date first and the location second, each as
	// an icon span followed by a value span.
	card.Find(".event-meta-item").Each(func(i int, item *goquery.Selection) {
		value := text(item.Find("span").Last())
		switch i {
		case 0:
			evt.Date = NormalizeDate(value)
		case 1:
			evt.Location = value
		}
	})

	return evt
}

func text(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.First().Text()), " ")
}

// ParsePrice converts a displayed price to an amount. "FREE" and text
// without digits are 0; "Rp 1.500.000" is 1500000.
func ParsePrice(s string) event.Amount {
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return event.Amount(event.ParseLeadingInt(digits.String()))
}

// NormalizeDate converts a displayed date such as "Feb 15, 2025" to the
// stored YYYY-MM-DD form. Unrecognised text is returned unchanged.
func NormalizeDate(s string) string {
	parsed := event.ParseDate(strings.TrimSpace(s))
	if parsed.IsZero() {
		return strings.TrimSpace(s)
	}
	return parsed.Format(event.DateLayout)
}
