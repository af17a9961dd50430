// Package analysis coordinates one request end to end: it parses the uploaded tables, gathers
// evidence, calls the generation orchestrator and shapes the result for the front end.
package analysis

import (
	"context"
	"time"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/evidence"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/generation"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/monitoring"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/suppliers"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/tabular"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/types"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Generator is the generation orchestrator seen from this package.
type Generator interface {
	Call(ctx context.Context, call generation.Call) generation.Completion
}

// HeadlineSource returns recent headlines, an empty list on failure.
type HeadlineSource interface {
	FetchHeadlines(ctx context.Context, query string) []types.Headline
}

// IndicatorSource returns market indicators, an empty value on failure.
type IndicatorSource interface {
	FetchIndicators(ctx context.Context) types.MarketIndicators
}

// SupplierEvaluator ranks suppliers for a part.
type SupplierEvaluator interface {
	Evaluate(ctx context.Context, req types.SupplierEvaluationRequest) (suppliers.Evaluation, error)
}

// maxEvidenceQueries bounds the targeted headline searches made for one scenario explanation.
const maxEvidenceQueries = 3

// Options holds the collaborators of a Service. Only Generator and Aggregator are required.
type Options struct {
	Generator  Generator
	Aggregator *evidence.Aggregator
	News       HeadlineSource
	Market     IndicatorSource
	Evaluator  SupplierEvaluator
	Images     *ImageCatalog
	Logger     *monitoring.Logger
	Metrics    *monitoring.Metrics
	Tracer     *monitoring.Tracer
}

// Service implements every analysis endpoint. It keeps no per-request state.
type Service struct {
	gen        Generator
	aggregator *evidence.Aggregator
	news       HeadlineSource
	market     IndicatorSource
	evaluator  SupplierEvaluator
	images     *ImageCatalog
	logger     *monitoring.Logger
	metrics    *monitoring.Metrics
	tracer     *monitoring.Tracer
}

// NewService builds a Service, filling defaults for the optional collaborators
func NewService(opts Options) *Service {
	if opts.Aggregator == nil {
		opts.Aggregator = evidence.NewAggregator(evidence.DefaultTables(), nil, nil)
	}
	if opts.Images == nil {
		opts.Images = DefaultImageCatalog()
	}
	if opts.Logger == nil {
		opts.Logger = monitoring.NewLogger("info")
	}
	if opts.Metrics == nil {
		opts.Metrics = monitoring.NewMetrics()
	}
	if opts.Tracer == nil {
		opts.Tracer = monitoring.NewTracer("analysis")
	}
	return &Service{
		gen:        opts.Generator,
		aggregator: opts.Aggregator,
		news:       opts.News,
		market:     opts.Market,
		evaluator:  opts.Evaluator,
		images:     opts.Images,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		tracer:     opts.Tracer,
	}
}

// gatherEvidence fetches headlines and market indicators in parallel. Both sources degrade to
// empty values, so neither can fail the group.
func (s *Service) gatherEvidence(ctx context.Context, query string) ([]types.Headline, types.MarketIndicators) {
	var (
		news   []types.Headline
		market types.MarketIndicators
	)

	g, gctx := errgroup.WithContext(ctx)
	if s.news != nil {
		g.Go(func() error {
			news = s.news.FetchHeadlines(gctx, query)
			return nil
		})
	}
	if s.market != nil {
		g.Go(func() error {
			market = s.market.FetchIndicators(gctx)
			return nil
		})
	}
	_ = g.Wait()

	if news == nil {
		news = []types.Headline{}
	}
	return news, market
}

// searchHeadlines runs the first few scenario queries plus the default feeds concurrently and
// concatenates the results in query order.
func (s *Service) searchHeadlines(ctx context.Context, queries []string) []types.Headline {
	if s.news == nil {
		return []types.Headline{}
	}
	if len(queries) > maxEvidenceQueries {
		queries = queries[:maxEvidenceQueries]
	}
	queries = append(queries, "")

	results := make([][]types.Headline, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxEvidenceQueries + 1)
	for i, q := range queries {
		g.Go(func() error {
			results[i] = s.news.FetchHeadlines(gctx, q)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]types.Headline, 0)
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

// bundle parses the raw tables and builds the evidence bundle
func (s *Service) bundle(in evidence.Input, bom, kpi string) evidence.Bundle {
	in.BOM = tabular.Parse(bom)
	in.KPI = tabular.Parse(kpi)
	in.KPIText = kpi
	return s.aggregator.Build(in)
}

// generate runs one traced generation call and converts a failed completion into its error
func (s *Service) generate(ctx context.Context, call generation.Call) (string, error) {
	ctx, span := s.tracer.StartSpan(ctx, "analysis."+templateName(call),
		attribute.String("generation.mode", call.Mode))
	completion := s.gen.Call(ctx, call)
	monitoring.EndSpan(span, completion.Err)

	if !completion.OK() {
		return "", completion.Err
	}
	return completion.Text, nil
}

func templateName(call generation.Call) string {
	if call.Template != "" {
		return call.Template
	}
	return "prompt"
}

func (s *Service) logAnalysis(kind string, b evidence.Bundle, start time.Time) {
	s.logger.AnalysisLogger(kind, b.BOM.ComponentCount, b.Risk.Overall, time.Since(start))
}

func flexMap(in map[string]types.FlexText) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v.String()
	}
	return out
}
