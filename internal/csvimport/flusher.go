package csvimport

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/helixir/research-catalog/internal/domain"
	"github.com/helixir/research-catalog/internal/observability"
	"github.com/helixir/research-catalog/internal/repository"
)

// Creator is the idempotent create half of repository.Resource.
type Creator[T any] interface {
	Create(ctx context.Context, v *T) (row *T, created bool, err error)
}

// Repositories are the write targets of an import.
type Repositories struct {
	Journals    Creator[domain.Journal]
	Disciplines Creator[domain.Discipline]
	Authors     Creator[domain.Author]
	Articles    Creator[domain.Article]
	Designs     Creator[domain.ArticleDesign]
	Metrics     Creator[domain.ArticleMetrics]
	Statistics  Creator[domain.Statistic]
	Links       Creator[domain.ArticleAuthor]
}

// NewRepositories returns the import targets backed by store.
func NewRepositories(store *repository.Store) Repositories {
	return Repositories{
		Journals:    store.Journals,
		Disciplines: store.Disciplines,
		Authors:     store.Authors,
		Articles:    store.Articles,
		Designs:     store.Designs,
		Metrics:     store.Metrics,
		Statistics:  store.Statistics,
		Links:       store.ArticleAuthors,
	}
}

// FlusherConfig bounds the concurrency of a flush.
type FlusherConfig struct {
	// ChunkSize is the number of article writes issued together (default 10).
	ChunkSize int
	// Workers bounds concurrent dependent writes (default 16).
	Workers int
	// WritesPerSecond throttles dependent writes; zero disables throttling.
	WritesPerSecond float64
}

// Flusher writes a Plan to the store.
type Flusher struct {
	repos   Repositories
	cfg     FlusherConfig
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewFlusher creates a Flusher.
func NewFlusher(repos Repositories, cfg FlusherConfig, logger zerolog.Logger) *Flusher {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 10
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 16
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.WritesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.WritesPerSecond), cfg.Workers)
	}

	return &Flusher{
		repos:   repos,
		cfg:     cfg,
		limiter: limiter,
		logger:  logger.With().Str("component", "import_flusher").Logger(),
	}
}

// flushState is the mutable bookkeeping of one flush.
type flushState struct {
	mu       sync.Mutex
	result   *Result
	log      *importLog
	journals map[string]bool
	authors  map[string]bool
	articles map[string]bool
	logger   zerolog.Logger
}

// Flush executes plan. Individual write failures are logged and counted but
// never abort the flush, and nothing is rolled back. The returned error is
// non-nil only when ctx ends before every write was attempted; the partial
// result is returned alongside it.
func (f *Flusher) Flush(ctx context.Context, plan *Plan) (*Result, error) {
	start := time.Now()
	st := &flushState{
		result: &Result{
			ImportID:    uuid.New(),
			Rows:        plan.Rows,
			SkippedRows: plan.Skipped,
		},
		log:      &importLog{entries: append([]LogEntry(nil), plan.Log...)},
		journals: make(map[string]bool, len(plan.KnownJournals)+len(plan.Journals)),
		authors:  map[string]bool{},
		articles: map[string]bool{},
	}
	for id, ok := range plan.KnownJournals {
		st.journals[id] = ok
	}

	logger := observability.WithImportContext(observability.FromContext(ctx, f.logger), st.result.ImportID.String(), plan.Rows)
	st.logger = logger
	st.log.add(LevelInfo, "Starting batch import...")

	f.flushJournals(ctx, plan, st)
	f.flushDisciplines(ctx, plan, st)
	f.flushAuthors(ctx, plan, st)
	f.flushArticles(ctx, plan, st)
	f.flushDependents(ctx, plan, st)

	res := st.result
	res.Outcome = ClassifyOutcome(res.NewArticles, res.FailedArticles)
	res.Summary = res.Summarize()
	st.log.add(LevelInfo, "%s", res.Summary)
	res.Log = st.log.newestFirst()
	res.Duration = time.Since(start)
	res.DurationMS = res.Duration.Milliseconds()

	logger.Info().
		Str("outcome", string(res.Outcome)).
		Int("new", res.NewArticles).
		Int("existing", res.ExistingArticles).
		Int("failed", res.FailedArticles).
		Dur("duration", res.Duration).
		Msg("import flushed")

	return res, ctx.Err()
}

func (f *Flusher) flushJournals(ctx context.Context, plan *Plan, st *flushState) {
	if len(plan.Journals) == 0 {
		return
	}
	st.log.add(LevelInfo, "Processing %d journals...", len(plan.Journals))
	for _, j := range plan.Journals {
		if ctx.Err() != nil {
			return
		}
		_, created, err := f.repos.Journals.Create(ctx, j)
		if err != nil {
			st.log.add(LevelError, "Failed journal: %s", truncateError(err))
			continue
		}
		st.journals[j.ID] = true
		if created {
			st.result.JournalsCreated++
		}
	}
}

func (f *Flusher) flushDisciplines(ctx context.Context, plan *Plan, st *flushState) {
	if len(plan.Disciplines) == 0 {
		return
	}
	st.log.add(LevelInfo, "Processing %d disciplines...", len(plan.Disciplines))
	for _, d := range plan.Disciplines {
		if ctx.Err() != nil {
			return
		}
		_, created, err := f.repos.Disciplines.Create(ctx, d)
		if err != nil {
			st.log.add(LevelError, "Failed discipline: %s", truncateError(err))
			continue
		}
		if created {
			st.result.DisciplinesCreated++
			st.log.add(LevelInfo, "Auto-created discipline: %s", d.ID)
		}
	}
}

func (f *Flusher) flushAuthors(ctx context.Context, plan *Plan, st *flushState) {
	if len(plan.Authors) == 0 {
		return
	}
	st.log.add(LevelInfo, "Processing %d authors...", len(plan.Authors))
	for _, a := range plan.Authors {
		if ctx.Err() != nil {
			return
		}
		_, created, err := f.repos.Authors.Create(ctx, a)
		if err != nil {
			st.authors[a.ID] = false
			st.log.add(LevelError, "Failed author: %s", truncateError(err))
			continue
		}
		if created {
			st.result.AuthorsCreated++
		}
	}
}

// flushArticles writes articles chunk by chunk, each chunk in parallel.
func (f *Flusher) flushArticles(ctx context.Context, plan *Plan, st *flushState) {
	if len(plan.Articles) == 0 {
		return
	}
	st.log.add(LevelInfo, "Processing %d articles...", len(plan.Articles))

	for start := 0; start < len(plan.Articles); start += f.cfg.ChunkSize {
		if ctx.Err() != nil {
			return
		}
		end := min(start+f.cfg.ChunkSize, len(plan.Articles))
		st.log.add(LevelInfo, "Progress: %d/%d articles processed...", end, len(plan.Articles))

		var wg sync.WaitGroup
		for _, article := range plan.Articles[start:end] {
			wg.Add(1)
			go func() {
				defer wg.Done()
				f.writeArticle(ctx, article, st)
			}()
		}
		wg.Wait()
	}
}

func (f *Flusher) writeArticle(ctx context.Context, article *domain.Article, st *flushState) {
	journalID := domain.Deref(article.JournalID)
	if !st.journals[journalID] {
		st.mu.Lock()
		st.result.FailedArticles++
		st.mu.Unlock()
		st.log.add(LevelWarning, "Skipped article %s: journal %s not found", article.ID, journalID)
		return
	}

	_, created, err := f.repos.Articles.Create(ctx, article)

	st.mu.Lock()
	defer st.mu.Unlock()
	switch {
	case err != nil:
		st.result.FailedArticles++
		st.log.add(LevelError, "Failed article: %s", truncateError(err))
		logger := observability.WithArticleContext(st.logger, article.ID, journalID)
		logger.Warn().Err(err).Msg("article write failed")
	case created:
		st.result.NewArticles++
		st.articles[article.ID] = true
	default:
		st.result.ExistingArticles++
		st.articles[article.ID] = true
	}
}

// flushDependents writes the per-article rows of every successful article
// through a bounded, rate limited worker group.
func (f *Flusher) flushDependents(ctx context.Context, plan *Plan, st *flushState) {
	var jobs []func(context.Context) error

	designs := 0
	for _, d := range plan.Designs {
		if st.articles[d.ArticleID] {
			jobs = append(jobs, createJob(f.repos.Designs, d))
			designs++
		}
	}
	metrics := 0
	for _, m := range plan.Metrics {
		if st.articles[m.ArticleID] {
			jobs = append(jobs, createJob(f.repos.Metrics, m))
			metrics++
		}
	}
	links := 0
	for _, l := range plan.Links {
		if !st.articles[l.ArticleID] {
			continue
		}
		if ok, tried := st.authors[l.AuthorID]; tried && !ok {
			continue
		}
		jobs = append(jobs, createJob(f.repos.Links, l))
		links++
	}
	stats := 0
	for _, s := range plan.Statistics {
		if st.articles[s.ArticleID] {
			jobs = append(jobs, createJob(f.repos.Statistics, s))
			stats++
		}
	}

	if len(jobs) == 0 {
		return
	}
	st.log.add(LevelInfo, "Processing %d article designs...", designs)
	st.log.add(LevelInfo, "Processing %d article metrics...", metrics)
	st.log.add(LevelInfo, "Processing %d article-author links...", links)
	st.log.add(LevelInfo, "Processing %d statistics records...", stats)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Workers)
	for _, job := range jobs {
		g.Go(func() error {
			if err := f.limiter.Wait(gctx); err != nil {
				return err
			}
			err := job(gctx)

			st.mu.Lock()
			defer st.mu.Unlock()
			if err != nil {
				st.result.DependentsFailed++
				st.log.add(LevelError, "Failed dependent record: %s", truncateError(err))
				return nil
			}
			st.result.DependentsWritten++
			return nil
		})
	}
	// Only a cancelled limiter wait surfaces here; Flush reports ctx.Err().
	_ = g.Wait()
}

func createJob[T any](repo Creator[T], v *T) func(context.Context) error {
	return func(ctx context.Context) error {
		_, _, err := repo.Create(ctx, v)
		return err
	}
}
