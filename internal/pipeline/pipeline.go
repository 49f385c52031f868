// Package pipeline answers temporal questions: it builds the structured
// temporal form, retrieves KB and Wikipedia evidences, prunes them against
// the temporal constraint and ranks answers. Implicit constraints are
// resolved by asking sub-questions through the same pipeline one level deeper.
package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/tempora/internal/annotate"
	"github.com/ppiankov/tempora/internal/cache"
	"github.com/ppiankov/tempora/internal/datetag"
	"github.com/ppiankov/tempora/internal/extract"
	"github.com/ppiankov/tempora/internal/kb"
	"github.com/ppiankov/tempora/internal/llm"
	"github.com/ppiankov/tempora/internal/model"
	"github.com/ppiankov/tempora/internal/prune"
	"github.com/ppiankov/tempora/internal/resilience"
	"github.com/ppiankov/tempora/internal/resolve"
	"github.com/ppiankov/tempora/internal/score"
	"github.com/ppiankov/tempora/internal/util"
	"github.com/ppiankov/tempora/internal/worker"
)

// answerLimit is how many ranked answers are kept per question
const answerLimit = 10

// QuestionAnnotator finds the temporal values of a question
type QuestionAnnotator interface {
	Annotate(ctx context.Context, sentence, referenceTime string) (model.Annotations, error)
}

// SearchSpaceRetriever returns the KB search space of a query
type SearchSpaceRetriever interface {
	SearchSpace(ctx context.Context, query string) (*kb.SearchSpace, error)
}

// EvidenceRetriever returns textual evidences for question entities
type EvidenceRetriever interface {
	Evidences(ctx context.Context, entities []model.KBItem, referenceTime string, sources model.SourceSet) ([]model.Evidence, error)
}

// Components are the collaborators of a Pipeline. Annotator and KB are
// required; nil generators fall back to the rule-based ones and a nil
// Wikipedia retriever limits retrieval to KB facts.
type Components struct {
	Annotator    QuestionAnnotator
	Forms        llm.FormGenerator
	Subquestions resolve.Generator
	KB           SearchSpaceRetriever
	Wikipedia    EvidenceRetriever
	Cache        *cache.SearchSpaceCache // Closed with the pipeline; may be nil
}

// Pipeline orchestrates the complete question answering process
type Pipeline struct {
	cfg         model.PipelineConfig
	maxEntities int
	sources     model.SourceSet
	annotator   QuestionAnnotator
	forms       llm.FormGenerator
	kb          SearchSpaceRetriever
	wikipedia   EvidenceRetriever
	cache       *cache.SearchSpaceCache
	resolver    *resolve.Resolver
	pruner      *prune.Pruner
	scorer      *score.Scorer
	log         *zap.Logger
}

// New creates a pipeline from configuration and components
func New(cfg *model.Config, c Components) (*Pipeline, error) {
	if c.Annotator == nil {
		return nil, eris.New("pipeline: annotator is required")
	}
	if c.KB == nil {
		return nil, eris.New("pipeline: KB retriever is required")
	}
	sources, err := model.NewSourceSet(cfg.Pipeline.Sources...)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline sources")
	}

	forms := c.Forms
	if forms == nil {
		forms = llm.RuleFormGenerator{}
	}
	subquestions := c.Subquestions
	if subquestions == nil {
		subquestions = llm.RuleSubquestionGenerator{}
	}

	p := &Pipeline{
		cfg:         cfg.Pipeline,
		maxEntities: cfg.KB.MaxEntities,
		sources:     sources,
		annotator:   c.Annotator,
		forms:       forms,
		kb:          c.KB,
		wikipedia:   c.Wikipedia,
		cache:       c.Cache,
		pruner:      prune.New(),
		scorer:      score.NewScorer(),
		log:         zap.L().With(zap.String("component", "pipeline")),
	}
	p.resolver = resolve.New(subquestions, p, cfg.Pipeline.MaxDepth)
	return p, nil
}

// NewFromConfig wires the HTTP-backed collaborators described by cfg
func NewFromConfig(ctx context.Context, cfg *model.Config) (*Pipeline, error) {
	annotator, err := NewAnnotator(cfg)
	if err != nil {
		return nil, err
	}

	c := Components{Annotator: annotator}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, eris.Wrap(err, "llm provider")
	}
	if provider != nil {
		c.Forms = llm.NewFormGenerator(provider)
		c.Subquestions = llm.NewSubquestionGenerator(provider)
	}

	if cfg.Cache.Enabled {
		c.Cache, err = cache.Open(ctx, cfg.Cache)
		if err != nil {
			return nil, err
		}
	}

	kbClient := kb.NewHTTPClient(cfg.KB)
	c.KB = kb.NewRetriever(kbClient, c.Cache, cfg.KB)
	if cfg.Wikipedia.Enabled {
		c.Wikipedia = NewWikipediaFromConfig(cfg, kbClient, annotator)
	}

	return New(cfg, c)
}

// NewAnnotator builds the configured annotator. The date-tagging service
// client is only created for methods that call it.
func NewAnnotator(cfg *model.Config) (*annotate.Annotator, error) {
	var tagger annotate.DateTagger
	if cfg.Annotate.Method != model.MethodRegex {
		tagger = datetag.NewClient(cfg.DateTag)
	}
	return annotate.New(cfg.Annotate, tagger)
}

// NewWikipediaFromConfig builds the Wikipedia retriever with its fetcher,
// Wikidata client and entity filter. Wikipedia pages and Wikidata calls
// share one limiter.
func NewWikipediaFromConfig(cfg *model.Config, kbClient kb.Client, annotator BatchAnnotator) *WikipediaRetriever {
	w := cfg.Wikipedia
	limiter := worker.NewLimiter(w.RatePerSecond, 1)
	httpClient := util.NewHTTPClient(w.Timeout, os.Getenv("HTTP_PROXY"), os.Getenv("HTTPS_PROXY"), os.Getenv("NO_PROXY"))

	opts := []FetcherOption{
		WithFetchHTTPClient(httpClient),
		WithFetchLimiter(limiter),
		WithPageCache(cache.NewMemoryCache(time.Hour, 10*time.Minute)),
		WithRetry(resilience.Fixed(wikipediaService, "fetch", 3, time.Second)),
	}
	if w.RespectRobots {
		opts = append(opts, WithRobots(util.NewRobotsChecker(w.UserAgent, w.Timeout, httpClient)))
	}
	fetcher := NewFetcher(w.Timeout, w.UserAgent, w.MaxBytes, opts...)

	wikidata := NewWikidataClient(w.WikidataURL, w.UserAgent, w.Timeout, limiter,
		resilience.Fixed(wikidataService, "wbgetentities", 3, time.Second))

	var filter EntityFilter
	if w.SkipFrequentEntities {
		filter = kb.NewItemFilter(kbClient, cfg.KB)
	}
	return NewWikipediaRetriever(w.BaseURL, fetcher, wikidata, filter, annotator, cfg.Pipeline.Workers)
}

// Sources returns the evidence sources used by Answer
func (p *Pipeline) Sources() model.SourceSet {
	return p.sources
}

// Answer runs the pipeline at the top level with the configured sources
func (p *Pipeline) Answer(ctx context.Context, in *model.Instance) (*model.Instance, error) {
	return p.AnswerAt(ctx, in, p.sources, 0)
}

// AnswerAt answers in at the given nesting depth and returns an annotated
// copy. Unavailable services degrade to fewer evidences; only cancellation
// is returned as an error.
func (p *Pipeline) AnswerAt(ctx context.Context, in *model.Instance, sources model.SourceSet, depth int) (*model.Instance, error) {
	out := *in
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	log := p.log.With(zap.String("id", out.ID), zap.Int("depth", depth))

	form, err := p.understand(ctx, &out, sources, depth)
	if err != nil {
		return nil, err
	}
	out.Form = &form
	log.Info("structured temporal form", zap.String("tsf", form.String()))

	evidences, err := p.retrieve(ctx, &out, sources, log)
	if err != nil {
		return nil, err
	}
	out.Evidences = evidences

	out.Faithful = p.pruner.PruneInstance(&out, sources)
	out.RankedAnswers = p.scorer.Rank(&out, answerLimit)

	log.Info("answered question",
		zap.String("question", out.Question),
		zap.Int("evidences", len(out.Evidences)),
		zap.Int("faithful", len(out.Faithful)),
		zap.Int("answers", len(out.RankedAnswers)))
	return &out, nil
}

// understand annotates the question and builds its structured temporal
// form. Implicit constraints are resolved into timespans when allowed.
func (p *Pipeline) understand(ctx context.Context, in *model.Instance, sources model.SourceSet, depth int) (model.StructuredTemporalForm, error) {
	ann, err := p.annotator.Annotate(ctx, in.Question, in.Reference())
	if err != nil {
		return model.StructuredTemporalForm{}, err
	}
	in.Annotations = &ann

	form, err := p.forms.GenerateForm(ctx, in.Question)
	if err != nil {
		if ctx.Err() != nil {
			return model.StructuredTemporalForm{}, ctx.Err()
		}
		p.log.Warn("form generation failed, using rules", zap.Error(err))
		form, _ = llm.RuleFormGenerator{}.GenerateForm(ctx, in.Question)
	}
	form.Values = ann.Values()

	if form.IsImplicit() && p.cfg.ResolveImplicit {
		spans, traces := p.resolver.Resolve(ctx, in, p.cfg.TopKAnswers, sources, depth)
		if err := ctx.Err(); err != nil {
			return model.StructuredTemporalForm{}, err
		}
		for _, s := range spans {
			form.Values = append(form.Values, s)
		}
		in.Subquestions = traces
	}
	return form, nil
}

// retrieve collects KB fact and Wikipedia evidences for the question
func (p *Pipeline) retrieve(ctx context.Context, in *model.Instance, sources model.SourceSet, log *zap.Logger) ([]model.Evidence, error) {
	ss, err := p.kb.SearchSpace(ctx, in.Form.Query())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("search space unavailable, continuing without evidence", zap.Error(err))
		return nil, nil
	}
	in.Entities = ss.QuestionEntities()

	var facts, pages []model.Evidence
	g, gctx := errgroup.WithContext(ctx)
	if sources.Has(model.SourceKB) {
		g.Go(func() error {
			facts = extract.FactEvidences(ss.Facts, ss.MatchedIDs())
			return nil
		})
	}
	if p.wikipedia != nil {
		g.Go(func() error {
			evs, err := p.wikipedia.Evidences(gctx, in.Entities, in.Reference(), sources)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn("wikipedia evidence unavailable", zap.Error(err))
				return nil
			}
			pages = evs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	evidences := extract.Dedupe(append(facts, pages...))
	evidences = extract.Filter(evidences, sources, p.maxEntities)
	if limit := p.cfg.MaxEvidences; limit > 0 && len(evidences) > limit {
		evidences = evidences[:limit]
	}
	log.Debug("retrieved evidences",
		zap.Int("kb", len(facts)),
		zap.Int("wikipedia", len(pages)),
		zap.Int("kept", len(evidences)))
	return evidences, nil
}

// Cache returns the search-space cache, nil when caching is off
func (p *Pipeline) Cache() *cache.SearchSpaceCache {
	return p.cache
}

// Close flushes and closes the search-space cache
func (p *Pipeline) Close(ctx context.Context) error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Close(ctx)
}
