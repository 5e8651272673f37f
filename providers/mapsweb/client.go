package mapsweb

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"place-discovery/models"
	"place-discovery/providers"
)

const (
	name          = "maps_web"
	searchBaseURL = "https://www.google.com/maps/search/"
)

var (
	// coordRegexp captures the !3d<lat>!4d<lng> pair embedded in place URLs
	coordRegexp = regexp.MustCompile(`!3d(-?\d+(?:\.\d+)?)!4d(-?\d+(?:\.\d+)?)`)
	// placeIDRegexp captures a ChIJ place id from the !19s segment
	placeIDRegexp = regexp.MustCompile(`!19s(ChIJ[^!?&]+)`)
	// ratingRegexp captures "4,6" or "4.6" at the start of a star label
	ratingRegexp = regexp.MustCompile(`^\s*([0-5](?:[.,]\d)?)`)
	// reviewsRegexp captures a parenthesised review count such as "(1.234)"
	reviewsRegexp = regexp.MustCompile(`\(([\d.,]+)\)`)
)

// FeedFetcher returns the HTML of the results feed for a maps search URL.
type FeedFetcher interface {
	FetchFeed(ctx context.Context, pageURL string) (string, error)
}

// Client scrapes the public maps search page. It needs no API key and is
// meant as a last-resort keyword provider.
type Client struct {
	fetcher FeedFetcher
	limit   int
}

var (
	_ providers.NearbySearcher = (*Client)(nil)
	_ providers.TextSearcher   = (*Client)(nil)
)

// New returns a Client backed by fetcher.
func New(fetcher FeedFetcher, limit int) *Client {
	if limit <= 0 {
		limit = 5
	}
	return &Client{fetcher: fetcher, limit: limit}
}

func (c *Client) Name() string { return name }

// SearchNearby searches hint around a coordinate.
func (c *Client) SearchNearby(ctx context.Context, lat, lng float64, hint string) ([]models.Suggestion, error) {
	pageURL := fmt.Sprintf("%s%s/@%s,%s,15z?hl=es", searchBaseURL, url.PathEscape(hint),
		strconv.FormatFloat(lat, 'f', -1, 64), strconv.FormatFloat(lng, 'f', -1, 64))
	return c.search(ctx, pageURL)
}

// SearchText searches hint within a free-text location.
func (c *Client) SearchText(ctx context.Context, query, hint string) ([]models.Suggestion, error) {
	pageURL := searchBaseURL + url.PathEscape(hint+" en "+query) + "?hl=es"
	return c.search(ctx, pageURL)
}

func (c *Client) search(ctx context.Context, pageURL string) ([]models.Suggestion, error) {
	html, err := c.fetcher.FetchFeed(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	results, err := ParseFeed(html)
	if err != nil {
		return nil, err
	}
	if len(results) > c.limit {
		results = results[:c.limit]
	}
	return results, nil
}

// ParseFeed extracts suggestions from a rendered results feed.
func ParseFeed(html string) ([]models.Suggestion, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("maps_web: parse feed: %w", err)
	}

	seen := make(map[string]struct{})
	var out []models.Suggestion

	doc.Find(`div[role="article"]`).Each(func(_ int, card *goquery.Selection) {
		title := strings.TrimSpace(card.AttrOr("aria-label", ""))
		link, _ := card.Find(`a[href*="/maps/place/"]`).First().Attr("href")
		if title == "" || link == "" {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}

		s := models.Suggestion{
			Title:            title,
			Description:      "Recomendado en Google Maps",
			FormattedAddress: "Address not available",
			MapsLink:         link,
			ExternalSource:   models.SourceGoogle,
		}

		if m := coordRegexp.FindStringSubmatch(link); len(m) == 3 {
			s.Latitude, _ = strconv.ParseFloat(m[1], 64)
			s.Longitude, _ = strconv.ParseFloat(m[2], 64)
			s.MapsLink = providers.MapsPointLink(s.Latitude, s.Longitude)
		}
		if m := placeIDRegexp.FindStringSubmatch(link); len(m) == 2 {
			s.ExternalID = m[1]
		}

		stars := card.Find(`span[role="img"]`).First().AttrOr("aria-label", "")
		if m := ratingRegexp.FindStringSubmatch(stars); len(m) == 2 {
			if r, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64); err == nil {
				s.Rating = &r
			}
		}
		if m := reviewsRegexp.FindStringSubmatch(card.Find(`span[role="img"]`).First().Text()); len(m) == 2 {
			n, _ := strconv.Atoi(strings.NewReplacer(".", "", ",", "").Replace(m[1]))
			s.UserRatingsTotal = n
		}

		lines := card.Find("div.W4Efsd")
		if lines.Length() > 0 {
			kind, address := splitInfoLine(lines.Last().Text())
			if kind != "" {
				s.Description = kind
			}
			if address != "" {
				s.FormattedAddress = address
			}
		}

		if site, ok := card.Find(`a[data-value="Sitio web"], a[aria-label^="Visitar"]`).First().Attr("href"); ok {
			s.Website = site
		}

		out = append(out, s)
	})
	return out, nil
}

// splitInfoLine turns "Restaurante · $$ · Mitre 123" into its kind and
// trailing address segment.
func splitInfoLine(line string) (kind, address string) {
	var parts []string
	for _, p := range strings.Split(line, "·") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "", ""
	}
	kind = parts[0]
	if len(parts) > 1 {
		address = parts[len(parts)-1]
	}
	return kind, address
}
