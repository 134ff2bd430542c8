// Package archive periodically exports SaveRecords whose presets have
// gone untouched for a configurable age to local gzipped NDJSON files,
// then prunes them from the live store. Adapted from the teacher's
// trade archiver (same cursor-driven cycle, same gzip-NDJSON-by-day
// file layout, same size-based rotation), repurposed from MongoDB
// trade documents onto save_codes documents — the closest analogue in
// this domain of "append-mostly, rarely-read historical records".
package archive

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Archiver exports stale save-code documents to local disk and prunes
// them from MongoDB.
type Archiver struct {
	db       *mongo.Database
	dir      string
	maxBytes int64
	interval time.Duration
	maxAge   time.Duration
}

// New creates an Archiver over db, writing to dir, rotating out files
// once the archive directory exceeds maxGB, running every interval
// and exporting save codes whose updated_at is older than afterDays
// days.
func New(db *mongo.Database, dir string, maxGB int, interval time.Duration, afterDays int) *Archiver {
	return &Archiver{
		db:       db,
		dir:      dir,
		maxBytes: int64(maxGB) * 1 << 30,
		interval: interval,
		maxAge:   time.Duration(afterDays) * 24 * time.Hour,
	}
}

// Run starts the periodic export loop. Blocks until ctx is cancelled.
func (a *Archiver) Run(ctx context.Context) {
	log.Printf("save-code archiver: dir=%s max=%dGB interval=%v age=%v",
		a.dir, a.maxBytes>>30, a.interval, a.maxAge)

	a.cycle(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.cycle(ctx)
		}
	}
}

func (a *Archiver) cycle(ctx context.Context) {
	cutoff := time.Now().Add(-a.maxAge)

	cur, err := a.db.Collection("save_codes").Find(ctx, bson.M{"updated_at": bson.M{"$lt": cutoff}})
	if err != nil {
		log.Printf("save-code archiver: find: %v", err)
		return
	}
	defer cur.Close(ctx)

	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		log.Printf("save-code archiver: decode: %v", err)
		return
	}
	if len(docs) == 0 {
		return
	}

	batches := groupByDay(docs)
	var exportedCodes []string

	for day, batch := range batches {
		if err := a.writeBatch(day, batch); err != nil {
			log.Printf("save-code archiver: write %s: %v", day, err)
			continue
		}
		for _, d := range batch {
			if code, ok := d["code"].(string); ok {
				exportedCodes = append(exportedCodes, code)
			}
		}
		log.Printf("save-code archiver: exported %d save code(s) for %s", len(batch), day)
	}

	if len(exportedCodes) > 0 {
		if _, err := a.db.Collection("save_codes").DeleteMany(ctx, bson.M{"code": bson.M{"$in": exportedCodes}}); err != nil {
			log.Printf("save-code archiver: prune: %v", err)
		}
	}

	a.rotate()
}

func groupByDay(docs []bson.M) map[string][]bson.M {
	batches := make(map[string][]bson.M)
	for _, d := range docs {
		day := time.Now().UTC().Format("2006/01/02")
		if t, ok := d["updated_at"].(bson.DateTime); ok {
			day = t.Time().UTC().Format("2006/01/02")
		}
		batches[day] = append(batches[day], d)
	}
	return batches
}

// writeBatch writes docs as gzipped NDJSON to dir/save_codes/YYYY/MM/DD.jsonl.gz.
func (a *Archiver) writeBatch(day string, docs []bson.M) error {
	path := filepath.Join(a.dir, "save_codes", day+".jsonl.gz")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := json.NewEncoder(gz)
	for _, d := range docs {
		if err := enc.Encode(d); err != nil {
			gz.Close()
			return fmt.Errorf("encode: %w", err)
		}
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("gzip close: %w", err)
	}

	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// rotate deletes the oldest archive files until total size is under maxBytes.
func (a *Archiver) rotate() {
	root := filepath.Join(a.dir, "save_codes")

	type entry struct {
		path string
		size int64
	}

	var files []entry
	var total int64

	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		files = append(files, entry{path: path, size: info.Size()})
		total += info.Size()
		return nil
	})

	if total <= a.maxBytes {
		return
	}

	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })

	for _, f := range files {
		if total <= a.maxBytes {
			break
		}
		if err := os.Remove(f.path); err != nil {
			log.Printf("save-code archiver: remove %s: %v", f.path, err)
			continue
		}
		total -= f.size
		log.Printf("save-code archiver: rotated out %s (%d bytes)", f.path, f.size)
	}
}
