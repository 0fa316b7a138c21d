// Package analysis runs the full insight pipeline for one symbol: fetch
// prices and news concurrently, score sentiment, classify the trend and
// optionally let the LLM crew annotate the result.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tradelens/tradelens/internal/agents"
	"github.com/tradelens/tradelens/internal/cache"
	"github.com/tradelens/tradelens/internal/classifier"
	"github.com/tradelens/tradelens/internal/config"
	"github.com/tradelens/tradelens/internal/dataflows"
	"github.com/tradelens/tradelens/internal/models"
	"github.com/tradelens/tradelens/internal/sentiment"
	"github.com/tradelens/tradelens/internal/storage"
)

// ArticleEnricher fills in full article text after a news search.
type ArticleEnricher interface {
	EnrichArticles(ctx context.Context, articles []*models.Article)
}

// InsightRunner is the optional LLM crew.
type InsightRunner interface {
	Enabled() bool
	Run(ctx context.Context, result *models.AnalysisResult) (*agents.CrewReport, error)
}

// Recorder persists finished analyses.
type Recorder interface {
	SaveAnalysis(ctx context.Context, result *models.AnalysisResult) (int64, error)
}

// ProgressFunc receives pipeline stage updates for streaming to a client.
type ProgressFunc func(stage, detail string)

// Deps are the pipeline's collaborators. Market is required, everything else
// degrades gracefully when nil.
type Deps struct {
	Market   dataflows.MarketDataProvider
	News     dataflows.NewsProvider
	Enricher ArticleEnricher
	Crew     InsightRunner
	Store    Recorder
}

type Service struct {
	cfg    *config.Config
	deps   Deps
	scorer *sentiment.Scorer
	cache  *cache.ResultCache
}

func NewService(cfg *config.Config, deps Deps) (*Service, error) {
	if deps.Market == nil {
		return nil, errors.New("market data provider is required")
	}
	return &Service{
		cfg:    cfg,
		deps:   deps,
		scorer: sentiment.NewScorer(),
		cache:  cache.NewResultCache(time.Duration(cfg.CacheTTLMinutes) * time.Minute),
	}, nil
}

// NewServiceFromConfig wires the default providers named in the config.
func NewServiceFromConfig(cfg *config.Config, store *storage.Store) (*Service, error) {
	market, err := dataflows.NewMarketProvider(cfg)
	if err != nil {
		return nil, err
	}

	deps := Deps{
		Market:   market,
		News:     dataflows.NewNewsProvider(cfg),
		Enricher: dataflows.NewNewsScraperClient(cfg),
		Crew:     agents.NewCrew(cfg),
	}
	if store != nil {
		deps.Store = store
	}
	return NewService(cfg, deps)
}

type priceResult struct {
	series *models.PriceSeries
	err    error
}

type newsResult struct {
	articles []*models.Article
	err      error
}

// Analyze runs the pipeline for one symbol. An unavailable upstream is a
// user-visible error; a series that is present but too short degrades to a
// low-confidence Hold; news and crew failures never fail the request.
func (s *Service) Analyze(ctx context.Context, symbol string, progress ProgressFunc) (*models.AnalysisResult, error) {
	if err := dataflows.ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = dataflows.NormalizeSymbol(symbol)
	if progress == nil {
		progress = func(string, string) {}
	}

	if cached, ok := s.cache.Get(symbol); ok {
		progress("cache", "serving cached analysis")
		return cached, nil
	}

	progress("fetch", "fetching prices and news")

	priceCh := make(chan priceResult, 1)
	newsCh := make(chan newsResult, 1)

	go func() {
		series, err := s.deps.Market.GetIntraday(ctx, symbol)
		priceCh <- priceResult{series: series, err: err}
	}()
	go func() {
		if s.deps.News == nil {
			newsCh <- newsResult{}
			return
		}
		articles, err := s.deps.News.GetNews(ctx, symbol, s.cfg.MaxArticles)
		newsCh <- newsResult{articles: articles, err: err}
	}()

	price := <-priceCh
	news := <-newsCh

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if price.err != nil {
		if errors.Is(price.err, dataflows.ErrDataUnavailable) {
			return nil, fmt.Errorf("data temporarily unavailable for %s: %w", symbol, price.err)
		}
		return nil, fmt.Errorf("fetch prices for %s: %w", symbol, price.err)
	}
	if news.err != nil {
		log.Printf("news fetch failed for %s: %v", symbol, news.err)
		news.articles = nil
	}

	if len(news.articles) > 0 && s.deps.Enricher != nil {
		progress("scrape", fmt.Sprintf("scraping %d articles", len(news.articles)))
		s.deps.Enricher.EnrichArticles(ctx, news.articles)
	}

	progress("score", "scoring sentiment")
	scores := s.scorer.ScoreArticles(news.articles)

	progress("classify", "classifying trend")
	advice, err := classifier.Classify(price.series, scores)
	if err != nil {
		if !errors.Is(err, classifier.ErrDataInsufficient) {
			return nil, err
		}
		advice = classifier.DegradedHold(symbol, scores)
	}

	result := &models.AnalysisResult{
		Symbol:      symbol,
		Series:      price.series,
		Articles:    news.articles,
		Scores:      scores,
		Advice:      advice,
		GeneratedAt: time.Now(),
	}
	if price.series != nil {
		if latest, ok := price.series.Latest(); ok {
			result.LatestPrice = latest.Price
		}
		result.ChangePercent = price.series.ChangePercent()
	}

	if s.deps.Crew != nil && s.deps.Crew.Enabled() {
		progress("agents", "running insight crew")
		report, err := s.deps.Crew.Run(ctx, result)
		if err != nil {
			log.Printf("insight crew failed for %s: %v", symbol, err)
		} else if report != nil {
			result.AgentInsights = report.Insights()
			s.reconcileSignal(result, report)
		}
	}

	if s.deps.Store != nil {
		if _, err := s.deps.Store.SaveAnalysis(ctx, result); err != nil {
			log.Printf("persist analysis for %s: %v", symbol, err)
		}
	}

	s.cache.Set(symbol, result)
	progress("done", string(advice.Recommendation))
	return result, nil
}

// reconcileSignal notes disagreement between the crew and the rule-based
// classifier. The deterministic advice always stands; a degraded Hold is
// never upgraded by the crew.
func (s *Service) reconcileSignal(result *models.AnalysisResult, report *agents.CrewReport) {
	if report.Signal == "" || result.Advice == nil {
		return
	}
	if result.Advice.LowConfidence {
		return
	}
	if report.Signal != result.Advice.Recommendation {
		result.Advice.Reasoning += fmt.Sprintf("; agent crew leans %s", report.Signal)
	}
}

// Invalidate drops the cached result for a symbol.
func (s *Service) Invalidate(symbol string) {
	s.cache.Invalidate(dataflows.NormalizeSymbol(symbol))
}
