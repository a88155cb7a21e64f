// Package indexer builds index generations from crawl output: per-domain
// link graphs and authority scores are computed in parallel, then every
// document is written to a fresh generation that is published atomically.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/crawl"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/index/bleveindex"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/authority"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/buildlog"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/document"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/generation"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/graph"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/notify"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/metrics"
)

type Options struct {
	CrawlDir        string
	IndexRoot       string
	Rules           crawl.Rules
	Authority       authority.Config
	BatchSize       int
	Workers         int
	KeepGenerations int
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		CrawlDir:  cfg.Crawl.Dir,
		IndexRoot: cfg.Index.Root,
		Rules: crawl.Rules{
			MinBodyLength: cfg.Crawl.MinBodyLength,
			MaxBodyBytes:  cfg.Crawl.MaxBodyBytes,
		},
		Authority: authority.Config{
			Damping:       cfg.Authority.Damping,
			Tolerance:     cfg.Authority.Tolerance,
			MaxIterations: cfg.Authority.MaxIterations,
		},
		BatchSize:       cfg.Index.BatchSize,
		Workers:         cfg.Index.Workers,
		KeepGenerations: cfg.Index.KeepGenerations,
	}
}

// WriterFactory opens the index writer of a new generation.
type WriterFactory func(path string, batchSize int) (index.Writer, error)

func bleveWriter(path string, batchSize int) (index.Writer, error) {
	return bleveindex.Create(path, batchSize)
}

// IndexNotifier announces a published generation.
type IndexNotifier interface {
	Notify(ctx context.Context, ev notify.IndexComplete) error
}

type Option func(*Builder)

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

func WithNotifier(n IndexNotifier) Option {
	return func(b *Builder) { b.notifier = n }
}

func WithHistory(r buildlog.Recorder) Option {
	return func(b *Builder) { b.history = r }
}

func WithWriterFactory(f WriterFactory) Option {
	return func(b *Builder) { b.newWriter = f }
}

// Builder runs index builds. Each Build is independent; a Builder may be
// reused.
type Builder struct {
	opts      Options
	loader    *crawl.Loader
	newWriter WriterFactory
	metrics   *metrics.Metrics
	notifier  IndexNotifier
	history   buildlog.Recorder
	logger    *slog.Logger
}

func NewBuilder(opts Options, options ...Option) *Builder {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	b := &Builder{
		opts:      opts,
		loader:    crawl.NewLoader(opts.CrawlDir, opts.Rules),
		newWriter: bleveWriter,
		logger:    slog.Default().With("component", "index-builder"),
	}
	for _, o := range options {
		o(b)
	}
	return b
}

// Report describes a published generation.
type Report struct {
	Generation string
	Dir        string
	Manifest   *generation.Manifest
	Pruned     []string
}

type domainBuild struct {
	docs []document.Document
	stat generation.DomainStat
}

// Build indexes the whole crawl directory into a new generation and
// publishes it. Either the new generation becomes current or the index root
// is left as it was.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	started := time.Now()
	report, err := b.build(ctx, started)

	rec := buildlog.Build{StartedAt: started, FinishedAt: time.Now(), Status: buildlog.StatusPublished}
	if report != nil {
		rec.Generation = report.Generation
		rec.Pages = report.Manifest.Pages
		rec.Skipped = report.Manifest.Skipped
		rec.Domains = len(report.Manifest.Domains)
		rec.SizeBytes = report.Manifest.SizeBytes
	}
	if err != nil {
		rec.Status = buildlog.StatusFailed
		rec.Error = err.Error()
	}
	if b.history != nil {
		if herr := b.history.Record(ctx, rec); herr != nil {
			b.logger.Warn("failed to record build history", "error", herr)
		}
	}
	if err != nil {
		return nil, err
	}

	if b.notifier != nil {
		ev := notify.IndexComplete{
			Generation: report.Generation,
			Root:       b.opts.IndexRoot,
			Pages:      report.Manifest.Pages,
			Domains:    len(report.Manifest.Domains),
			CreatedAt:  report.Manifest.CreatedAt,
		}
		// the generation is already live; a lost event only delays reloads
		_ = b.notifier.Notify(ctx, ev)
	}
	return report, nil
}

func (b *Builder) build(ctx context.Context, started time.Time) (*Report, error) {
	domains, err := b.loader.Domains()
	if err != nil {
		return nil, err
	}
	b.logger.Info("index build starting", "domains", len(domains), "workers", b.opts.Workers)

	stage := time.Now()
	built := make([]domainBuild, len(domains))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for i, name := range domains {
		g.Go(func() error {
			d, err := b.prepareDomain(gctx, name)
			if err != nil {
				return fmt.Errorf("domain %s: %w", name, err)
			}
			built[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	b.metrics.ObserveStage("prepare", time.Since(stage))

	gen, err := generation.New(b.opts.IndexRoot)
	if err != nil {
		return nil, err
	}
	manifest, err := b.write(ctx, gen, domains, built)
	if err != nil {
		b.discard(gen)
		return nil, err
	}
	manifest.BuildDuration = time.Since(started)

	if err := gen.WriteManifest(manifest); err != nil {
		b.discard(gen)
		return nil, fmt.Errorf("writing manifest for generation %s: %w", gen.ID, err)
	}
	if err := gen.Publish(); err != nil {
		b.discard(gen)
		return nil, fmt.Errorf("publishing generation %s: %w", gen.ID, err)
	}

	pruned, err := generation.Prune(b.opts.IndexRoot, b.opts.KeepGenerations)
	if err != nil {
		b.logger.Warn("pruning old generations failed", "error", err)
	}

	b.logger.Info("index build published",
		"generation", gen.ID,
		"pages", manifest.Pages,
		"skipped", manifest.Skipped,
		"size_bytes", manifest.SizeBytes,
		"pruned", len(pruned),
		"duration", manifest.BuildDuration,
	)
	return &Report{Generation: gen.ID, Dir: gen.Dir, Manifest: manifest, Pruned: pruned}, nil
}

func (b *Builder) discard(gen *generation.Generation) {
	if err := gen.Discard(); err != nil {
		b.logger.Error("failed to remove unpublished generation", "generation", gen.ID, "error", err)
	}
}

// prepareDomain loads one domain and computes its documents. It touches no
// shared state.
func (b *Builder) prepareDomain(ctx context.Context, name string) (domainBuild, error) {
	d, err := b.loader.LoadDomain(ctx, name)
	if err != nil {
		return domainBuild{}, err
	}
	for _, s := range d.Skipped {
		b.metrics.PageSkipped(s.Reason)
	}

	sg := graph.Build(name, d.Pages)
	res := authority.Score(sg, b.opts.Authority)
	b.metrics.ObserveAuthority(res.Iterations)
	if !res.Converged {
		b.logger.Warn("authority did not converge",
			"domain", name,
			"iterations", res.Iterations,
			"delta", res.Delta,
		)
	}

	return domainBuild{
		docs: document.BuildDomain(d.Pages, res),
		stat: generation.DomainStat{
			Domain:       name,
			Pages:        len(d.Pages),
			Links:        sg.Edges(),
			Skipped:      len(d.Skipped),
			Iterations:   res.Iterations,
			Converged:    res.Converged,
			MaxAuthority: res.Max(),
		},
	}, nil
}

// write stores every document, domain by domain in URL order, and commits.
func (b *Builder) write(ctx context.Context, gen *generation.Generation, domains []string, built []domainBuild) (*generation.Manifest, error) {
	stage := time.Now()
	w, err := b.newWriter(gen.IndexPath(), b.opts.BatchSize)
	if err != nil {
		return nil, err
	}

	manifest := &generation.Manifest{CreatedAt: time.Now().UTC()}
	for _, d := range built {
		for _, doc := range d.docs {
			if err := ctx.Err(); err != nil {
				return nil, errors.Join(err, w.Abort())
			}
			if err := w.Add(doc); err != nil {
				return nil, errors.Join(fmt.Errorf("adding %s: %w", doc.URL, err), w.Abort())
			}
		}
		manifest.Pages += d.stat.Pages
		manifest.Skipped += d.stat.Skipped
		manifest.Domains = append(manifest.Domains, d.stat)
		b.metrics.PagesIndexed(d.stat.Domain, d.stat.Pages)
	}
	if err := w.Commit(); err != nil {
		return nil, fmt.Errorf("committing index: %w", err)
	}
	if err := gen.WriteDomains(domains); err != nil {
		return nil, err
	}
	b.metrics.ObserveStage("write", time.Since(stage))

	size, err := generation.DirSize(gen.IndexPath())
	if err != nil {
		b.logger.Warn("measuring index size failed", "error", err)
	}
	manifest.SizeBytes = size
	return manifest, nil
}
