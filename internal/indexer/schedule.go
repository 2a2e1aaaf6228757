package indexer

import (
	"time"

	"mytube/internal/logging"
)

// Start runs the startup scan, if enabled, and the periodic scan loop in
// the background.
func (s *Scanner) Start() {
	if s.cfg.ScanOnStartup {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			logging.Info("Starting initial scan in background...")
			stats := s.ScanAndIndex(s.ctx)
			s.mu.Lock()
			s.initialScanDone = true
			s.initialScanErrors = len(stats.Errors)
			s.mu.Unlock()
		}()
	} else {
		s.mu.Lock()
		s.initialScanDone = true
		s.mu.Unlock()
	}

	if s.cfg.Interval > 0 {
		s.wg.Add(1)
		go s.periodicScan()
	}
}

// Stop cancels running work and waits for background goroutines.
func (s *Scanner) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scanner) periodicScan() {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			logging.Debug("Periodic scan triggered")
			s.ScanAndIndex(s.ctx)
		case <-s.ctx.Done():
			return
		}
	}
}

// HealthStatus contains health check information.
type HealthStatus struct {
	Ready             bool            `json:"ready"`
	Scanning          bool            `json:"scanning"`
	StartTime         time.Time       `json:"startTime"`
	Uptime            string          `json:"uptime"`
	MediaDir          string          `json:"mediaDir"`
	InitialScanErrors int             `json:"initialScanErrors,omitempty"`
	LastScan          *ScanStatistics `json:"lastScan,omitempty"`
}

// GetHealthStatus returns detailed health information. The scanner is
// ready once the startup scan has finished, or at once when it is disabled.
func (s *Scanner) GetHealthStatus() HealthStatus {
	s.mu.Lock()
	status := HealthStatus{
		Ready:             s.initialScanDone,
		Scanning:          s.scanning,
		StartTime:         s.startTime,
		Uptime:            s.clock.Since(s.startTime).Round(time.Second).String(),
		MediaDir:          s.cfg.MediaDir,
		InitialScanErrors: s.initialScanErrors,
	}
	s.mu.Unlock()

	status.LastScan = s.LastStats()
	return status
}
