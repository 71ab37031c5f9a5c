package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Em-Deesha/profverify/internal/domain"
	"github.com/Em-Deesha/profverify/internal/logging"
	"github.com/Em-Deesha/profverify/internal/ports"
)

const (
	// DefaultCacheTTL is how long a finished result stays cached.
	DefaultCacheTTL = 24 * time.Hour

	searchQuerySuffix   = "research publications papers"
	searchQueryPubTitle = 2
)

// Dependencies are the collaborators of a Service. Any field may be nil; a
// nil fetcher contributes no evidence.
type Dependencies struct {
	Wikipedia       ports.WikipediaFetcher
	SemanticScholar ports.ScholarFetcher
	DuckDuckGo      ports.WebSearcher

	// Store is the profile database. Nil skips profile lookup.
	Store ports.DocumentStore
	// LLM is only set when an API key is configured. Nil means heuristic only.
	LLM     ports.LLMClient
	Cache   ports.ResultCache
	History ports.HistoryStore
	Metrics ports.MetricsCollector
	Logger  logging.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithAppID selects the application whose collections are searched first.
func WithAppID(appID string) Option {
	return func(s *Service) { s.appID = appID }
}

// WithCacheTTL sets the result cache expiration. Zero keeps entries until
// evicted.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) { s.cacheTTL = ttl }
}

// WithParallelFetch toggles concurrent evidence fetching.
func WithParallelFetch(parallel bool) Option {
	return func(s *Service) { s.parallel = parallel }
}

// WithTracer replaces the global tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

// WithClock replaces time.Now for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service runs verifications. It holds no per-request state and is safe for
// concurrent use.
type Service struct {
	deps     Dependencies
	logger   logging.Logger
	tracer   trace.Tracer
	appID    string
	cacheTTL time.Duration
	parallel bool
	now      func() time.Time
	newID    func() string
}

// NewService creates a Service with parallel fetching, the default app ID
// and a 24h cache TTL.
func NewService(deps Dependencies, opts ...Option) *Service {
	s := &Service{
		deps:     deps,
		logger:   logging.OrNop(deps.Logger),
		tracer:   otel.Tracer("profverify/verification"),
		appID:    DefaultAppID,
		cacheTTL: DefaultCacheTTL,
		parallel: true,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// evidence is the output of the fetch stage.
type evidence struct {
	wiki     domain.EvidenceBundle
	scholar  domain.EvidenceBundle
	webLinks []string
}

// Verify decides whether req names an active professor. It only fails for
// an invalid request or a context that is already done; every downstream
// failure degrades the result instead.
func (s *Service) Verify(ctx context.Context, req domain.VerificationRequest) (domain.VerificationResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.VerificationResult{}, err
	}
	req = req.Normalize()
	if err := validateRequest(req); err != nil {
		return domain.VerificationResult{}, err
	}

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "Service.Verify", trace.WithAttributes(
		attribute.String("verify.name", req.Name),
		attribute.String("verify.university", req.University),
	))
	defer span.End()

	key := req.CacheKey()
	if result, ok := s.cached(ctx, key); ok {
		s.finish(ctx, span, req, result, domain.VerdictFromCache, start)
		return result, nil
	}

	profile := s.lookupProfile(ctx, req)

	var (
		researchArea string
		pubs         []domain.Publication
	)
	if profile != nil {
		researchArea = profile.ResearchArea
		pubs = profile.Publications
	}

	university := ""
	if domain.IsValidUniversity(req.University) {
		university = req.University
	}

	ev := s.gather(ctx, req.Name, researchArea, university, searchQuery(req.Name, researchArea, university, pubs))
	compiled := CompileContext(req, profile, ev.wiki, ev.scholar, ev.webLinks)

	verdict := s.askModel(ctx, compiled.Text)
	if verdict == nil {
		v := ScoreHeuristic(HeuristicInput{
			PublicationCount: len(pubs),
			ResearchArea:     researchArea,
			ScholarText:      ev.scholar.Text,
			WikipediaText:    ev.wiki.Text,
			Links:            compiled.Links,
		})
		verdict = &v
	}

	result := domain.NewVerificationResult(*verdict, compiled.Links)
	s.store(ctx, key, result)
	s.finish(ctx, span, req, result, verdict.Source, start)
	return result, nil
}

func validateRequest(req domain.VerificationRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	verr := domain.NewValidationError("VerificationRequest")
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			verr.AddError(fmt.Sprintf("%s is required", strings.ToLower(fe.Field())))
		}
	} else {
		verr.AddError(err.Error())
	}
	return verr
}

// searchQuery builds the web search query: name, research area, valid
// university and up to two publication titles, then the research suffix.
func searchQuery(name, researchArea, university string, pubs []domain.Publication) string {
	parts := []string{name}
	if researchArea != "" {
		parts = append(parts, researchArea)
	}
	if university != "" {
		parts = append(parts, university)
	}
	for _, p := range pubs[:min(len(pubs), searchQueryPubTitle)] {
		if label := p.Label(); label != "" {
			parts = append(parts, label)
		}
	}
	parts = append(parts, searchQuerySuffix)
	return strings.Join(parts, " ")
}

func (s *Service) cached(ctx context.Context, key string) (domain.VerificationResult, bool) {
	if s.deps.Cache == nil {
		return domain.VerificationResult{}, false
	}
	result, ok, err := s.deps.Cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("result cache read failed: %v", err)
		return domain.VerificationResult{}, false
	}
	return result, ok
}

func (s *Service) store(ctx context.Context, key string, result domain.VerificationResult) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.Set(ctx, key, result, s.cacheTTL); err != nil {
		s.logger.Warn("result cache write failed: %v", err)
	}
}

func (s *Service) lookupProfile(ctx context.Context, req domain.VerificationRequest) *domain.ProfileRecord {
	if s.deps.Store == nil {
		s.logger.Debug("no document store configured, skipping profile lookup")
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "ProfileLookup")
	defer span.End()

	profile, err := LookupProfile(ctx, s.deps.Store, s.appID, req.Name, req.University)
	status := "miss"
	switch {
	case profile != nil:
		status = "found"
		span.SetAttributes(attribute.String("profile.id", profile.ID))
	case err != nil:
		status = "unavailable"
		span.RecordError(err)
		s.logger.Warn("profile lookup for %q failed: %v", req.Name, err)
	}
	span.SetAttributes(attribute.String("profile.status", status))
	s.count("profile_lookup_total", map[string]string{"status": status})
	return profile
}

// gather runs the three fetchers, concurrently unless disabled. Failed
// fetches contribute empty evidence.
func (s *Service) gather(ctx context.Context, name, researchArea, university, query string) evidence {
	var ev evidence
	ev.wiki = domain.EmptyEvidence()
	ev.scholar = domain.EmptyEvidence()
	ev.webLinks = []string{}

	tasks := []func(context.Context){
		func(ctx context.Context) {
			if f := s.deps.Wikipedia; f != nil {
				ev.wiki = s.fetch(ctx, f.Source(), func(ctx context.Context) (domain.EvidenceBundle, error) {
					return f.FetchSummary(ctx, name, university)
				})
			}
		},
		func(ctx context.Context) {
			if f := s.deps.SemanticScholar; f != nil {
				ev.scholar = s.fetch(ctx, f.Source(), func(ctx context.Context) (domain.EvidenceBundle, error) {
					return f.SearchAuthors(ctx, name, researchArea, university)
				})
			}
		},
		func(ctx context.Context) {
			if f := s.deps.DuckDuckGo; f != nil {
				b := s.fetch(ctx, f.Source(), func(ctx context.Context) (domain.EvidenceBundle, error) {
					links, err := f.Search(ctx, query, true)
					return domain.EvidenceBundle{Links: links}, err
				})
				ev.webLinks = b.Links
			}
		},
	}

	if !s.parallel {
		for _, task := range tasks {
			task(ctx)
		}
		return ev
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error {
			task(gctx)
			return nil
		})
	}
	_ = g.Wait()
	return ev
}

// fetch runs one fetcher call inside an "Evidence.<source>" span and
// converts any failure to empty evidence.
func (s *Service) fetch(
	ctx context.Context,
	source domain.EvidenceSource,
	fetch func(context.Context) (domain.EvidenceBundle, error),
) domain.EvidenceBundle {
	ctx, span := s.tracer.Start(ctx, "Evidence."+string(source),
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	start := time.Now()
	bundle, err := fetch(ctx)
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordLatency("evidence_fetch", time.Since(start), map[string]string{"source": string(source)})
	}

	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("%s fetch failed: %v", source, err)
		bundle = domain.EmptyEvidence()
	}
	if bundle.Links == nil {
		bundle.Links = []string{}
	}
	span.SetAttributes(
		attribute.Int("evidence.links", len(bundle.Links)),
		attribute.Bool("evidence.text", bundle.HasText()),
	)
	s.count("evidence_fetch_total", map[string]string{"source": string(source), "status": status})
	return bundle
}

// askModel returns nil when no model is configured, the call fails or the
// reply carries no JSON object.
func (s *Service) askModel(ctx context.Context, contextText string) *domain.Verdict {
	if s.deps.LLM == nil {
		s.logger.Debug("no LLM configured, using heuristic")
		return nil
	}

	raw, err := s.deps.LLM.Complete(ctx, BuildPrompt(contextText), map[string]any{"json_mode": true})
	if err != nil {
		s.logger.Warn("LLM verification failed, using heuristic: %v", err)
		return nil
	}
	verdict, ok := ParseVerdict(raw)
	if !ok {
		s.logger.Warn("LLM reply had no usable JSON (len: %d), using heuristic", len(raw))
		return nil
	}
	return verdict
}

func (s *Service) finish(
	ctx context.Context,
	span trace.Span,
	req domain.VerificationRequest,
	result domain.VerificationResult,
	path domain.VerdictSource,
	start time.Time,
) {
	span.SetAttributes(
		attribute.String("verify.path", string(path)),
		attribute.Bool("verify.verified", result.Verified),
		attribute.Int("verify.confidence_score", result.ConfidenceScore),
	)

	if m := s.deps.Metrics; m != nil {
		m.RecordCounter("verifications_total", 1, map[string]string{"path": string(path)})
		m.RecordHistogram("verification_confidence_score", float64(result.ConfidenceScore), nil)
		m.RecordLatency("verification", time.Since(start), nil)
	}

	s.logger.Info("verified %q at %q: verified=%t score=%d path=%s",
		req.Name, req.University, result.Verified, result.ConfidenceScore, path)

	if s.deps.History == nil {
		return
	}
	entry := domain.HistoryEntry{
		ID:         s.newID(),
		Name:       req.Name,
		University: req.University,
		Verified:   result.Verified,
		Score:      result.ConfidenceScore,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.deps.History.Record(ctx, entry); err != nil {
		s.logger.Warn("history record failed: %v", err)
	}
}

func (s *Service) count(metric string, labels map[string]string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordCounter(metric, 1, labels)
	}
}
