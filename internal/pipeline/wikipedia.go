package pipeline

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/ppiankov/tempora/internal/extract"
	"github.com/ppiankov/tempora/internal/extract/adapters"
	"github.com/ppiankov/tempora/internal/kb"
	"github.com/ppiankov/tempora/internal/model"
	"github.com/ppiankov/tempora/internal/worker"
)

// PageFetcher fetches one page
type PageFetcher interface {
	FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error)
}

// TitleResolver maps KB items to Wikipedia titles and back
type TitleResolver interface {
	Titles(ctx context.Context, ids []string) (map[string]string, error)
	Items(ctx context.Context, titles []string) (map[string]model.KBItem, error)
}

// EntityFilter decides whether an entity is worth expanding
type EntityFilter interface {
	Valid(ctx context.Context, itemID string) (bool, error)
}

// BatchAnnotator annotates many texts in input order
type BatchAnnotator interface {
	AnnotateBatch(ctx context.Context, reqs []model.TagRequest) ([]model.Annotations, error)
}

// WikipediaRetriever turns the Wikipedia pages of question entities into
// text, table and info evidences
type WikipediaRetriever struct {
	baseURL   string
	fetcher   PageFetcher
	titles    TitleResolver
	filter    EntityFilter // nil expands every entity
	annotator BatchAnnotator
	registry  *adapters.Registry
	workers   int
	log       *zap.Logger
}

// NewWikipediaRetriever creates a retriever for pages under baseURL
func NewWikipediaRetriever(baseURL string, fetcher PageFetcher, titles TitleResolver, filter EntityFilter, annotator BatchAnnotator, workers int) *WikipediaRetriever {
	if workers <= 0 {
		workers = worker.DefaultWorkers
	}
	return &WikipediaRetriever{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		fetcher:   fetcher,
		titles:    titles,
		filter:    filter,
		annotator: annotator,
		registry:  adapters.NewRegistry(),
		workers:   workers,
		log:       zap.L().With(zap.String("component", "wikipedia")),
	}
}

// Evidences retrieves the evidences of the entities' pages from allowed
// sources. Pages that cannot be fetched are skipped.
func (r *WikipediaRetriever) Evidences(ctx context.Context, entities []model.KBItem, referenceTime string, sources model.SourceSet) ([]model.Evidence, error) {
	if !sources.Has(model.SourceText) && !sources.Has(model.SourceTable) && !sources.Has(model.SourceInfo) {
		return nil, nil
	}

	items, err := r.expandable(ctx, entities)
	if err != nil || len(items) == 0 {
		return nil, err
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	titles, err := r.titles.Titles(ctx, ids)
	if err != nil {
		return nil, err
	}

	pages := make([]adapters.Page, 0, len(items))
	for _, item := range items {
		if title, ok := titles[item.ID]; ok {
			pages = append(pages, adapters.Page{
				Title:  title,
				URL:    r.baseURL + "/wiki/" + adapters.PathFromTitle(title),
				Entity: item,
			})
		}
	}
	r.log.Debug("fetching pages", zap.Int("entities", len(items)), zap.Int("pages", len(pages)))

	perPage, err := worker.Map(ctx, r.workers, pages, func(ctx context.Context, i int, page adapters.Page) ([]adapters.PageEvidence, error) {
		return r.page(ctx, page)
	})
	if err != nil {
		return nil, err
	}

	var found []adapters.PageEvidence
	for _, evs := range perPage {
		for _, ev := range evs {
			if sources.Has(ev.Source) {
				found = append(found, ev)
			}
		}
	}
	if len(found) == 0 {
		return nil, nil
	}

	r.linkAnchors(ctx, found)

	evidences := make([]model.Evidence, len(found))
	reqs := make([]model.TagRequest, len(found))
	for i, ev := range found {
		evidences[i] = ev.Evidence
		reqs[i] = model.TagRequest{Text: ev.Text, ReferenceTime: referenceTime}
	}

	annotations, err := r.annotator.AnnotateBatch(ctx, reqs)
	if err != nil {
		return nil, err
	}
	for i := range evidences {
		addTempInfo(&evidences[i], annotations[i])
	}

	return extract.Dedupe(evidences), nil
}

// expandable keeps the entities worth a page lookup. Entities whose check
// fails are skipped.
func (r *WikipediaRetriever) expandable(ctx context.Context, entities []model.KBItem) ([]model.KBItem, error) {
	var out []model.KBItem
	seen := map[string]bool{}
	for _, item := range entities {
		if !kb.IsEntity(item.ID) || seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		if r.filter != nil {
			valid, err := r.filter.Valid(ctx, item.ID)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				r.log.Warn("entity check failed, skipping", zap.String("item", item.ID), zap.Error(err))
				continue
			}
			if !valid {
				continue
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// page fetches and extracts one page
func (r *WikipediaRetriever) page(ctx context.Context, page adapters.Page) ([]adapters.PageEvidence, error) {
	result, err := r.fetcher.FetchWithRetry(ctx, page.URL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, ErrDisallowed) {
			r.log.Info("page disallowed by robots.txt", zap.String("url", page.URL))
		} else {
			r.log.Warn("page fetch failed, skipping", zap.String("url", page.URL), zap.Error(err))
		}
		return nil, nil
	}

	doc, err := html.Parse(strings.NewReader(result.HTML))
	if err != nil {
		r.log.Debug("unparsable page", zap.String("url", page.URL), zap.Error(err))
		return nil, nil
	}
	return r.registry.FindAdapter(page.URL).Extract(doc, page), nil
}

// linkAnchors adds the KB items behind the page links found in each
// evidence to its entities and disambiguations
func (r *WikipediaRetriever) linkAnchors(ctx context.Context, found []adapters.PageEvidence) {
	unique := map[string]struct{}{}
	for _, ev := range found {
		for _, a := range ev.Anchors {
			unique[normalizeTitle(a.Title)] = struct{}{}
		}
	}
	if len(unique) == 0 {
		return
	}
	titles := make([]string, 0, len(unique))
	for t := range unique {
		titles = append(titles, t)
	}
	sort.Strings(titles)

	items, err := r.titles.Items(ctx, titles)
	if err != nil {
		r.log.Warn("link resolution failed, keeping page entities only", zap.Error(err))
		return
	}

	for i := range found {
		ev := &found[i]
		for _, a := range ev.Anchors {
			item, ok := items[normalizeTitle(a.Title)]
			if !ok {
				continue
			}
			ev.Entities = appendItem(ev.Entities, item)
			ev.Disambiguations = append(ev.Disambiguations, model.Disambiguation{Mention: a.Text, ID: item.ID})
		}
	}
}

// addTempInfo sets the evidence tempinfo and adds the mentioned dates,
// with their years, as entities
func addTempInfo(ev *model.Evidence, ann model.Annotations) {
	ev.TempInfo = ann.TempInfo()
	if ev.TempInfo == nil {
		return
	}
	for _, d := range ev.TempInfo.Disambiguations {
		ts, ok := model.ParseTimestamp(d.ID)
		if !ok {
			continue
		}
		ev.Entities = appendItem(ev.Entities, model.KBItem{ID: ts.KB(), Label: extract.TimestampLabel(ts)})
		ev.Entities = appendItem(ev.Entities, extract.YearItem(ts))
	}
}

func appendItem(items []model.KBItem, item model.KBItem) []model.KBItem {
	for _, existing := range items {
		if existing.ID == item.ID {
			return items
		}
	}
	return append(items, item)
}
