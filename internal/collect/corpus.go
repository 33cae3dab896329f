package collect

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// Corpus gathers documents from every configured web page and directory.
type Corpus struct {
	Web         *WebCollector
	Directory   *DirectoryCollector
	URLs        []string
	Directories []string
}

// Collect returns documents from all URLs followed by all directories, and the
// errors of every source that failed. It stops early only when ctx is done.
func (c *Corpus) Collect(ctx context.Context) ([]*models.Document, []error) {
	var (
		docs []*models.Document
		errs []error
	)
	if c.Web != nil && len(c.URLs) > 0 {
		d, e := c.Web.Collect(ctx, c.URLs)
		docs = append(docs, d...)
		errs = append(errs, e...)
	}
	if c.Directory != nil {
		for _, dir := range c.Directories {
			if ctx.Err() != nil {
				break
			}
			d, e := c.Directory.Collect(ctx, dir)
			docs = append(docs, d...)
			errs = append(errs, e...)
		}
	}
	return docs, errs
}
