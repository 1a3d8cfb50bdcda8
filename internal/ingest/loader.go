package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Loader reads fixture files and writes their records through a RecordQueue.
type Loader struct {
	ingredients IngredientStore
	tags        TagStore
	logger      *zap.Logger
	opts        []Option
}

func NewLoader(ingredients IngredientStore, tags TagStore, logger *zap.Logger, opts ...Option) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{ingredients: ingredients, tags: tags, logger: logger, opts: opts}
}

// KindOf maps a fixture filename to its catalog: ingredients*.json|csv or tags*.json|csv.
func KindOf(path string) (Kind, bool) {
	base := strings.ToLower(filepath.Base(path))
	ext := filepath.Ext(base)
	if ext != ".json" && ext != ".csv" {
		return "", false
	}
	switch {
	case strings.HasPrefix(base, string(KindIngredients)):
		return KindIngredients, true
	case strings.HasPrefix(base, string(KindTags)):
		return KindTags, true
	}
	return "", false
}

// ReadFile parses one fixture file.
func ReadFile(path string, kind Kind) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ParseCSV(kind, bytes.NewReader(data))
	}
	return ParseJSON(kind, data)
}

// LoadFile parses path and writes every record. Records already present are
// counted as Existing and left untouched.
func (l *Loader) LoadFile(ctx context.Context, path string) (FileResult, error) {
	res := FileResult{Path: path}
	kind, ok := KindOf(path)
	if !ok {
		res.Err = "unrecognised fixture file"
		return res, fmt.Errorf("%s: unrecognised fixture file", path)
	}
	res.Kind = kind

	records, err := ReadFile(path, kind)
	if err != nil {
		res.Err = err.Error()
		return res, fmt.Errorf("%s: %w", path, err)
	}
	res.Records = uint32(len(records))

	q := NewRecordQueue(l.ingredients, l.tags, l.logger, l.opts...)
	for _, rec := range records {
		if !q.Enqueue(ctx, Job{Kind: kind, Record: rec}) {
			break
		}
	}
	tally := q.Shutdown(context.WithoutCancel(ctx))
	res.Created, res.Existing, res.Failed = tally.Created, tally.Existing, tally.Failed

	if err := ctx.Err(); err != nil {
		res.Err = err.Error()
		return res, err
	}
	if res.Failed > 0 {
		res.Err = fmt.Sprintf("%d records failed", res.Failed)
	}
	l.logger.Info("ingest.file.ok",
		zap.String("path", path),
		zap.String("kind", string(kind)),
		zap.Uint32("records", res.Records),
		zap.Uint32("created", res.Created),
		zap.Uint32("existing", res.Existing),
		zap.Uint32("failed", res.Failed))
	return res, nil
}

// LoadDirectory walks root and loads every fixture file it finds. Tags are
// loaded before ingredients so a run is deterministic regardless of walk order.
func (l *Loader) LoadDirectory(ctx context.Context, root string, skipHidden bool) ([]FileResult, DirStats, error) {
	var stats DirStats
	var tagFiles, ingredientFiles []string

	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := d.Name()
		if skipHidden && p != root && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		kind, ok := KindOf(p)
		if !ok {
			return nil
		}
		stats.Matched++
		if kind == KindTags {
			tagFiles = append(tagFiles, p)
		} else {
			ingredientFiles = append(ingredientFiles, p)
		}
		return nil
	})
	if walkErr != nil {
		return nil, stats, walkErr
	}

	results := make([]FileResult, 0, stats.Matched)
	for _, p := range append(tagFiles, ingredientFiles...) {
		res, err := l.LoadFile(ctx, p)
		results = append(results, res)
		stats.Created += res.Created
		stats.Existing += res.Existing
		if err != nil || res.Failed > 0 {
			stats.Failed++
			if ctx.Err() != nil {
				return results, stats, ctx.Err()
			}
			continue
		}
		stats.Succeeded++
	}
	return results, stats, nil
}
