package metrics

import (
	"context"
	"time"

	"mytube/internal/logging"
)

// StatsProvider supplies catalog counts for the gauges.
type StatsProvider interface {
	CatalogCounts(ctx context.Context) (Stats, error)
}

// Stats holds the current catalog statistics
type Stats struct {
	Channels int
	Videos   int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	doneChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection and waits for the loop to exit.
func (c *Collector) Stop() {
	close(c.stopChan)
	<-c.doneChan
}

func (c *Collector) collectLoop() {
	defer close(c.doneChan)

	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats, err := c.statsProvider.CatalogCounts(ctx)
	if err != nil {
		logging.Warn("Metrics collection failed: %v", err)
		return
	}

	CatalogChannels.Set(float64(stats.Channels))
	CatalogVideos.Set(float64(stats.Videos))

	logging.Debug("Metrics collected: channels=%d, videos=%d", stats.Channels, stats.Videos)
}
