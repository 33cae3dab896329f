package collect

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kotae/internal/docid"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

// DirectoryCollector loads documents from files under a directory.
type DirectoryCollector struct {
	extractor  *extract.Extractor
	extensions []string
	recursive  bool
	logger     *zap.Logger
}

// DirectoryOption configures a DirectoryCollector.
type DirectoryOption func(*DirectoryCollector)

// WithDirectoryLogger sets a logger for per-file progress.
func WithDirectoryLogger(l *zap.Logger) DirectoryOption {
	return func(d *DirectoryCollector) { d.logger = l }
}

// NewDirectoryCollector creates a collector for files whose extension is in
// extensions (case-insensitive; empty means all files).
func NewDirectoryCollector(extractor *extract.Extractor, extensions []string, recursive bool, opts ...DirectoryOption) *DirectoryCollector {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	d := &DirectoryCollector{
		extractor:  extractor,
		extensions: extensions,
		recursive:  recursive,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = utils.OrNop(d.logger)
	return d
}

// Collect walks root in lexical order and returns one Document per non-empty
// page of every matching file. Files that cannot be read or parsed produce a
// *CollectionError and the walk continues. A missing root is itself a
// *CollectionError.
func (d *DirectoryCollector) Collect(ctx context.Context, root string) ([]*models.Document, []error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, []error{&CollectionError{Source: root, Err: fmt.Errorf("absolute path: %w", err)}}
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, []error{&CollectionError{Source: absRoot, Err: fmt.Errorf("stat directory: %w", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&CollectionError{Source: absRoot, Err: fmt.Errorf("not a directory")}}
	}

	var (
		docs []*models.Document
		errs []error
	)
	walkErr := filepath.WalkDir(absRoot, func(path string, entry fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			errs = append(errs, &CollectionError{Source: path, Err: err})
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			if path != absRoot && !d.recursive {
				return fs.SkipDir
			}
			return nil
		}
		if !extensionAllowed(filepath.Ext(path), d.extensions) {
			return nil
		}
		// Resolve symlinks so only regular files are read
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		fileDocs, fileErr := d.collectFile(path)
		if fileErr != nil {
			d.logger.Warn("collect file failed", zap.String("path", path), zap.Error(fileErr))
			errs = append(errs, fileErr)
			return nil
		}
		d.logger.Debug("collected file", zap.String("path", path), zap.Int("pages", len(fileDocs)))
		docs = append(docs, fileDocs...)
		return nil
	})
	if walkErr != nil {
		errs = append(errs, &CollectionError{Source: absRoot, Err: walkErr})
	}
	return docs, errs
}

func (d *DirectoryCollector) collectFile(path string) ([]*models.Document, error) {
	pages, err := d.extractor.Extract(path)
	if err != nil {
		return nil, &CollectionError{Source: path, Err: err}
	}
	docs := make([]*models.Document, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		meta := map[string]interface{}{
			models.MetaKind:   "file",
			models.MetaSource: path,
			models.MetaPage:   p.Number,
		}
		if p.Label != "" {
			meta["sheet"] = p.Label
		}
		docs = append(docs, &models.Document{
			ID:       docid.ForFile(path, p.Number),
			Source:   path,
			Content:  p.Text,
			Metadata: meta,
		})
	}
	return docs, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
