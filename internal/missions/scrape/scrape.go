// Package scrape provides a mission that fetches an HTML page and reports a
// point for every element matching a CSS selector.
package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"missionflow/internal/config"
	"missionflow/internal/mission"
	"missionflow/internal/utils"
)

const (
	Kind           = "scrape"
	defaultTimeout = 30 * time.Second
	maxPointLength = 200
)

type Options struct {
	URL        string
	Selector   string
	Attr       string // report this attribute instead of the element text
	MinMatches int
	Timeout    time.Duration
	Client     *http.Client
}

func New(desc config.MissionDescriptor) (mission.Mission, error) {
	var opts Options
	var err error
	if opts.URL, err = utils.GetStringParam(desc.Params, "url"); err != nil {
		return nil, fmt.Errorf("scrape mission %q: %w", desc.Name, err)
	}
	if opts.Selector, err = utils.GetStringParam(desc.Params, "selector"); err != nil {
		return nil, fmt.Errorf("scrape mission %q: %w", desc.Name, err)
	}
	if opts.Attr, err = utils.OptionalString(desc.Params, "attr", ""); err != nil {
		return nil, fmt.Errorf("scrape mission %q: %w", desc.Name, err)
	}
	if opts.MinMatches, err = utils.OptionalInt(desc.Params, "min_matches", 0); err != nil {
		return nil, fmt.Errorf("scrape mission %q: %w", desc.Name, err)
	}
	if opts.Timeout, err = utils.OptionalDuration(desc.Params, "timeout", defaultTimeout); err != nil {
		return nil, fmt.Errorf("scrape mission %q: %w", desc.Name, err)
	}
	return mission.New(desc.Name, Work(opts)), nil
}

func Work(opts Options) mission.Work {
	return func(ctx context.Context, p mission.Progress) error {
		client := opts.Client
		if client == nil {
			client = http.DefaultClient
		}
		if opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
			defer cancel()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", opts.URL, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("fetch %s: unexpected status %s", opts.URL, resp.Status)
		}

		doc, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return fmt.Errorf("parse html: %w", err)
		}

		base := baseURL(doc, resp.Request.URL)
		matches := 0
		doc.Find(opts.Selector).Each(func(_ int, sel *goquery.Selection) {
			var value string
			if opts.Attr != "" {
				v, ok := sel.Attr(opts.Attr)
				if !ok {
					return
				}
				if opts.Attr == "href" || opts.Attr == "src" {
					v = resolve(base, v)
				}
				value = v
			} else {
				value = strings.Join(strings.Fields(sel.Text()), " ")
			}
			matches++
			p.Point(truncate(value))
		})

		if matches < opts.MinMatches {
			return fmt.Errorf("selector %q matched %d elements, want at least %d", opts.Selector, matches, opts.MinMatches)
		}
		return nil
	}
}

// baseURL is the page URL after redirects, overridden by a <base href>.
func baseURL(doc *goquery.Document, page *url.URL) *url.URL {
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if u, err := page.Parse(strings.TrimSpace(href)); err == nil {
			return u
		}
	}
	return page
}

func resolve(base *url.URL, ref string) string {
	u, err := base.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return u.String()
}

func truncate(s string) string {
	if len(s) > maxPointLength {
		return s[:maxPointLength] + "..."
	}
	return s
}
