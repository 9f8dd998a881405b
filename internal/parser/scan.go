package parser

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/anomredux/claude-relay/internal/domain"
	"github.com/anomredux/claude-relay/internal/pricing"
)

// Stats counts what one ingestion pass saw and dropped.
type Stats struct {
	Files           int // files opened
	FilesOld        int // skipped by the mtime pre-filter
	FilesUnreadable int
	Lines           int
	Kept            int
	Skipped         map[SkipReason]int
}

func newStats() Stats {
	return Stats{Skipped: make(map[SkipReason]int, len(SkipReasons))}
}

// SkippedTotal sums skipped lines over all reasons.
func (s Stats) SkippedTotal() int {
	n := 0
	for _, c := range s.Skipped {
		n += c
	}
	return n
}

// Result is the output of one ingestion pass.
type Result struct {
	Records []domain.UsageRecord // ascending by timestamp
	Stats   Stats
}

// Ingester scans Claude Code's JSONL log trees for usage records.
type Ingester struct {
	dirs []string
	calc *pricing.Calculator
	log  zerolog.Logger
}

func NewIngester(dirs []string, calc *pricing.Calculator, log zerolog.Logger) *Ingester {
	return &Ingester{dirs: dirs, calc: calc, log: log}
}

// Ingest parses every record at or after cutoff. Files last modified before
// cutoff are not opened. Unreadable files are skipped and counted; a missing
// tree yields an empty result. Cancellation stops the scan between files.
func (in *Ingester) Ingest(ctx context.Context, cutoff time.Time) Result {
	p := newPass(cutoff, in.calc)

	for _, path := range in.collect(ctx, cutoff, &p.stats) {
		if ctx.Err() != nil {
			break
		}
		in.readFile(p, path)
	}

	sort.SliceStable(p.records, func(i, j int) bool {
		return p.records[i].Timestamp.Before(p.records[j].Timestamp)
	})
	p.stats.Kept = len(p.records)

	return Result{Records: p.records, Stats: p.stats}
}

// collect walks the log trees for .jsonl files modified at or after cutoff.
func (in *Ingester) collect(ctx context.Context, cutoff time.Time, stats *Stats) []string {
	var paths []string
	for _, dir := range in.dirs {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil || d.IsDir() || filepath.Ext(path) != ".jsonl" {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				stats.FilesUnreadable++
				return nil
			}
			if info.ModTime().Before(cutoff) {
				stats.FilesOld++
				return nil
			}
			paths = append(paths, path)
			return nil
		})
	}
	return paths
}

func (in *Ingester) readFile(p *pass, path string) {
	f, err := os.Open(path)
	if err != nil {
		p.stats.FilesUnreadable++
		in.log.Warn().Err(err).Str("path", path).Msg("skip unreadable log file")
		return
	}
	defer f.Close()

	p.stats.Files++
	if err := p.readFrom(f); err != nil {
		p.stats.FilesUnreadable++
		in.log.Warn().Err(err).Str("path", path).Msg("log file read aborted")
	}
}
