package crawler

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/BenjaminSRussell/scopecrawl/internal/types"
)

// safeProcess wraps processURL with panic recovery. A panicking page is
// recorded as an error and the crawl goes on.
func (c *Crawler) safeProcess(ctx context.Context, item types.URLItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.panics.Add(1)
			c.errors.Add(1)

			c.cfg.Logger.WithFields(logrus.Fields{
				"url":   item.URL,
				"depth": item.Depth,
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("recovered panic while processing page")

			c.save(types.PageResult{
				URL:       item.URL,
				Depth:     item.Depth,
				State:     StatePanic,
				CrawledAt: c.cfg.Clock.Now(),
				Error:     fmt.Sprintf("panic during processing: %v", r),
			})
			err = nil
		}
	}()

	return c.processURL(ctx, item)
}

// PanicCount returns total number of panics recovered
func (c *Crawler) PanicCount() int64 {
	return c.panics.Load()
}
