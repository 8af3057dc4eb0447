package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"addonwatch/internal/cache"
	"addonwatch/internal/classify"
	"addonwatch/internal/config"
	"addonwatch/internal/model"
	"addonwatch/internal/normalize"
	"addonwatch/internal/scrape"
	"addonwatch/internal/storage"
)

// Pipeline pulls candidate articles from the configured RSS feed and
// news index page, classifies them for addon relevance, folds regional
// duplicates and upserts the survivors as articles.
type Pipeline struct {
	cfg        *config.Manager
	store      storage.Store
	classifier *classify.Classifier
	scraper    *scrape.Client
	tags       *cache.Tags
	logger     *slog.Logger
}

type Options struct {
	Limit       int    `json:"limit"`
	Strictness  string `json:"strictness"`
	DryRun      bool   `json:"dry_run"`
	Concurrency int    `json:"concurrency"`
}

type Candidate struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Summary  string `json:"summary,omitempty"`
	Severity int    `json:"severity"`
	Reason   string `json:"reason,omitempty"`
}

type Report struct {
	Inserted []model.Article `json:"articles"`
	Preview  []Candidate     `json:"preview,omitempty"`
	Rejected []Candidate     `json:"rejected"`
	Errors   []string        `json:"errors"`
	Took     time.Duration   `json:"-"`
}

func NewPipeline(cfg *config.Manager, store storage.Store, classifier *classify.Classifier, scraper *scrape.Client, tags *cache.Tags, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		store:      store,
		classifier: classifier,
		scraper:    scraper,
		tags:       tags,
		logger:     logger,
	}
}

func (p *Pipeline) Run(ctx context.Context, opts Options) (Report, error) {
	started := time.Now()
	news := p.cfg.Get().Ingest.News
	applyOptionDefaults(&opts, news)

	items, errs := p.collect(ctx, news)
	if len(items) == 0 && len(errs) > 0 {
		return Report{Errors: errs}, fmt.Errorf("no ingest sources reachable: %s", errs[0])
	}
	if len(items) > opts.Limit {
		items = items[:opts.Limit]
	}

	candidates, rejected := p.classifyAll(ctx, items, opts)
	candidates = foldRegionalDuplicates(candidates)

	report := Report{
		Rejected: rejected,
		Errors:   errs,
		Inserted: []model.Article{},
	}
	if opts.DryRun {
		report.Preview = candidates
		report.Took = time.Since(started)
		return report, nil
	}

	for _, c := range candidates {
		sev := c.Severity
		article, err := p.store.UpsertArticleByURL(ctx, model.Article{
			URL:      c.URL,
			Title:    c.Title,
			Summary:  c.Summary,
			Favicon:  scrape.FallbackFavicon(c.URL),
			Severity: &sev,
		})
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", c.URL, err))
			continue
		}
		report.Inserted = append(report.Inserted, article)
	}
	if p.tags != nil && len(report.Inserted) > 0 {
		p.tags.Invalidate(cache.TagOverallImpacts)
	}
	if p.logger != nil {
		p.logger.Info("news ingest finished",
			"inserted", len(report.Inserted),
			"rejected", len(report.Rejected),
			"errors", len(report.Errors),
			"took", time.Since(started))
	}
	report.Took = time.Since(started)
	return report, nil
}

func applyOptionDefaults(opts *Options, news config.NewsConfig) {
	if opts.Limit <= 0 {
		opts.Limit = news.Limit
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = news.Concurrency
	}
	if opts.Concurrency > 10 {
		opts.Concurrency = 10
	}
	switch opts.Strictness {
	case "low", "medium", "high":
	default:
		opts.Strictness = news.Strictness
	}
}

func (p *Pipeline) collect(ctx context.Context, news config.NewsConfig) ([]scrape.RSSItem, []string) {
	var items []scrape.RSSItem
	var errs []string
	if news.FeedURL != "" {
		feedItems, err := p.scraper.FetchRSS(ctx, news.FeedURL)
		if err != nil {
			errs = append(errs, fmt.Sprintf("rss: %v", err))
		} else {
			items = append(items, feedItems...)
		}
	}
	if news.IndexURL != "" {
		links, err := p.scraper.FetchNewsLinks(ctx, news.IndexURL, news.LinkPrefix)
		if err != nil {
			errs = append(errs, fmt.Sprintf("index: %v", err))
		}
		for _, link := range links {
			items = append(items, scrape.RSSItem{Link: link})
		}
	}
	return items, errs
}

func minSeverityFor(strictness string) int {
	switch strictness {
	case "high":
		return 4
	case "low":
		return 1
	default:
		return 3
	}
}

// classifyAll fetches article text and runs the classifier over a
// bounded worker pool, keeping result order independent of worker
// scheduling.
func (p *Pipeline) classifyAll(ctx context.Context, items []scrape.RSSItem, opts Options) (candidates, rejected []Candidate) {
	minSev := minSeverityFor(opts.Strictness)
	results := make([]*Candidate, len(items))
	excluded := make([]bool, len(items))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], excluded[i] = p.classifyOne(ctx, items[i], minSev)
			}
		}()
	}
	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, c := range results {
		if c == nil {
			continue
		}
		if excluded[i] {
			rejected = append(rejected, *c)
		} else {
			candidates = append(candidates, *c)
		}
	}
	return candidates, rejected
}

func (p *Pipeline) classifyOne(ctx context.Context, item scrape.RSSItem, minSev int) (*Candidate, bool) {
	if item.Link == "" {
		return nil, false
	}
	title := item.Title
	if title == "" {
		title = item.Link
	}
	text := p.scraper.FetchArticleText(ctx, item.Link, item.Description)
	cls, err := p.classifier.Classify(ctx, title+"\n\n"+text)
	if err != nil {
		return &Candidate{URL: item.Link, Title: title, Severity: 1, Reason: err.Error()}, true
	}
	if !cls.Related || cls.Severity < minSev {
		reason := cls.Reason
		if cls.Related && reason == "" {
			reason = "below-threshold"
		}
		return &Candidate{URL: item.Link, Title: title, Severity: cls.Severity, Reason: reason}, true
	}
	summary := item.Description
	if s, err := p.classifier.Summarize(ctx, text); err == nil && s != "" {
		summary = s
	}
	return &Candidate{URL: item.Link, Title: title, Summary: summary, Severity: cls.Severity, Reason: cls.Reason}, false
}

// foldRegionalDuplicates merges NA/EU copies of the same story: items
// are keyed by a slug of their title (falling back to the URL path)
// and the variant whose URL carries the /us/ region segment wins.
func foldRegionalDuplicates(candidates []Candidate) []Candidate {
	byTitle := make(map[string]Candidate)
	order := make([]string, 0, len(candidates))
	for _, c := range candidates {
		key := titleKey(c)
		prev, ok := byTitle[key]
		if !ok {
			byTitle[key] = c
			order = append(order, key)
			continue
		}
		if strings.Contains(c.URL, "/us/") && !strings.Contains(prev.URL, "/us/") {
			byTitle[key] = c
		}
	}
	out := make([]Candidate, 0, len(order))
	for _, key := range order {
		out = append(out, byTitle[key])
	}
	return out
}

func titleKey(c Candidate) string {
	if key := normalize.Slug(c.Title); key != "" {
		return key
	}
	return normalize.Slug(c.URL)
}
