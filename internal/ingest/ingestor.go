package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rzagreb/cricstats/internal/config"
	"github.com/rzagreb/cricstats/internal/database"
	"github.com/rzagreb/cricstats/internal/metrics"
)

// Modes maps an ingest mode name to the cricsheet archive it loads.
var Modes = map[string]string{
	"odi_all": "https://cricsheet.org/downloads/odis_json.zip",
}

// Inserter is the slice of the insertion engine the ingestor needs.
// *database.DB satisfies it; tests substitute a fake.
type Inserter interface {
	InsertRows(ctx context.Context, req database.InsertRequest) (int64, error)
}

// Ingestor drives one full ingestion run: download, extract, parse, insert.
type Ingestor struct {
	db      Inserter
	fetcher *Fetcher

	rawDir      string
	unzippedDir string

	// parseWorkers is the number of concurrent match-file parsers. Inserts
	// always run on a single goroutine: the engine's existence check is not
	// serializable against concurrent writers, so one insertion is in
	// flight at a time.
	parseWorkers int
}

// NewIngestor wires an Ingestor from the application config.
func NewIngestor(db Inserter, cfg config.Config, parseWorkers int) *Ingestor {
	if parseWorkers <= 0 {
		parseWorkers = 4
	}
	return &Ingestor{
		db:           db,
		fetcher:      NewFetcher(FetchConfig{}),
		rawDir:       cfg.RawDir(),
		unzippedDir:  cfg.UnzippedDir(),
		parseWorkers: parseWorkers,
	}
}

// Run executes the full pipeline for the given mode.
func (ing *Ingestor) Run(ctx context.Context, mode string) error {
	url, ok := Modes[mode]
	if !ok {
		return fmt.Errorf("invalid ingest mode %q; available modes: %v", mode, modeNames())
	}

	start := time.Now()
	zipPath, err := ing.fetcher.Download(ctx, url, ing.rawDir)
	metrics.RecordStep("download", err, time.Since(start))
	if err != nil {
		return err
	}
	log.Printf("downloaded %q in %s", zipPath, time.Since(start).Truncate(time.Millisecond))

	start = time.Now()
	dir, err := Extract(zipPath, ing.unzippedDir)
	metrics.RecordStep("extract", err, time.Since(start))
	if err != nil {
		return err
	}

	start = time.Now()
	err = ing.IngestDir(ctx, dir)
	metrics.RecordStep("ingest", err, time.Since(start))
	return err
}

// IngestDir parses every match file in dir and inserts the resulting
// batches. Parsing fans out over parseWorkers goroutines; insertion stays
// sequential. A file that fails to parse is logged, counted, and skipped
// (fail-soft); an insertion failure aborts the run, since it indicates a
// schema or storage problem that every following file would hit too.
func (ing *Ingestor) IngestDir(ctx context.Context, dir string) error {
	files, err := listMatchFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Printf("no match files in %q, nothing to do", dir)
		return nil
	}

	var (
		parseErrors atomic.Int64
		ingested    atomic.Int64
	)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	paths := make(chan string)
	parsed := make(chan *Match, ing.parseWorkers)

	g.Go(func() error {
		defer close(paths)
		for _, f := range files {
			select {
			case paths <- f:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var parseWG sync.WaitGroup
	for i := 0; i < ing.parseWorkers; i++ {
		parseWG.Add(1)
		g.Go(func() error {
			defer parseWG.Done()
			for path := range paths {
				m, err := ParseMatchFile(path)
				if err != nil {
					log.Printf("skipping %s: %v", path, err)
					metrics.RecordFile("failed")
					parseErrors.Add(1)
					continue
				}
				select {
				case parsed <- m:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		parseWG.Wait()
		close(parsed)
		return nil
	})

	g.Go(func() error {
		for m := range parsed {
			if err := ing.ingestMatch(gctx, m); err != nil {
				metrics.RecordFile("failed")
				return fmt.Errorf("ingest match %q: %w", m.Name(), err)
			}
			metrics.RecordFile("ok")
			n := ingested.Add(1)
			if n%100 == 0 {
				elapsed := time.Since(start)
				log.Printf("ingested %d/%d files elapsed=%s rate=%.1f files/s",
					n, len(files), elapsed.Truncate(time.Millisecond),
					float64(n)/elapsed.Seconds())
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Printf("ingestion complete: files=%d ingested=%d parse_errors=%d elapsed=%s",
		len(files), ingested.Load(), parseErrors.Load(),
		time.Since(start).Truncate(time.Millisecond))
	return nil
}

// ingestMatch inserts one match's batches in dependency order.
func (ing *Ingestor) ingestMatch(ctx context.Context, m *Match) error {
	for _, req := range insertRequests(m) {
		n, err := ing.db.InsertRows(ctx, req)
		if err != nil {
			return err
		}
		metrics.RecordRows(req.Table, "batched", int64(len(req.Rows)))
		metrics.RecordRows(req.Table, "inserted", n)
	}
	return nil
}

func modeNames() []string {
	names := make([]string, 0, len(Modes))
	for name := range Modes {
		names = append(names, name)
	}
	return names
}
