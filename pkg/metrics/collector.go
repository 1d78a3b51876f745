package metrics

import (
	"context"
	"time"
)

// CollectionCounter reports, for each known collection, an approximate
// document count. The local database satisfies this interface so the
// collector never needs to know about tags, ACLs or routing.
type CollectionCounter interface {
	Collections(ctx context.Context) ([]string, error)
	Count(ctx context.Context, collection string) (int, error)
}

// Collector periodically polls a CollectionCounter and updates DocumentsTotal.
type Collector struct {
	source CollectionCounter
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(source CollectionCounter) *Collector {
	return &Collector{
		source: source,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics every 15 seconds.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collections, err := c.source.Collections(ctx)
	if err != nil {
		return
	}

	for _, name := range collections {
		count, err := c.source.Count(ctx, name)
		if err != nil {
			continue
		}
		DocumentsTotal.WithLabelValues(name).Set(float64(count))
	}
}
