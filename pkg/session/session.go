// Package session provides a shared compute session that materializes
// lazy tables with a bounded worker pool and caches computed results
// under a byte budget.
package session

import (
	"context"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/velum-io/tabular/pkg/errors"
	"github.com/velum-io/tabular/pkg/logger"
	"github.com/velum-io/tabular/pkg/metrics"
	"github.com/velum-io/tabular/pkg/table"
)

const (
	// EnvPrefix namespaces the environment variables the session reads.
	EnvPrefix = "TABULAR"

	defaultCacheSize  = "1GB"
	defaultMemorySize = "2GB"

	closeTimeout = 10 * time.Second
)

// Config carries the tunables of a compute session.
type Config struct {
	// Workers bounds how many partitions are computed concurrently.
	// Zero means one worker per CPU.
	Workers int
	// WorkerMemory is a per-worker budget such as "2GB". It is
	// currently informational and logged at startup.
	WorkerMemory string
	// CacheSize bounds the result cache, for example "512MB". Empty
	// disables caching.
	CacheSize string
	// SchedulerAddr points at an external scheduler. When set the
	// session logs it and still computes locally; remote execution is
	// negotiated by the caller.
	SchedulerAddr string
}

// Session materializes tables. It is safe for concurrent use.
type Session struct {
	workers      int
	workerMemory int64
	scheduler    string
	cache        *resultCache

	closeOnce sync.Once
	closed    chan struct{}
}

// New builds a session from cfg, filling unset fields from the
// TABULAR_* environment.
func New(cfg Config) (*Session, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault("cache_size", defaultCacheSize)
	v.SetDefault("worker_memory", defaultMemorySize)

	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.WorkerMemory == "" {
		cfg.WorkerMemory = v.GetString("worker_memory")
	}
	if cfg.CacheSize == "" {
		cfg.CacheSize = v.GetString("cache_size")
	}
	if cfg.SchedulerAddr == "" {
		cfg.SchedulerAddr = v.GetString("scheduler_addr")
	}

	memory, err := ParseByteSize(cfg.WorkerMemory)
	if err != nil {
		return nil, err
	}
	cacheBytes, err := ParseByteSize(cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	s := &Session{
		workers:      cfg.Workers,
		workerMemory: memory,
		scheduler:    cfg.SchedulerAddr,
		closed:       make(chan struct{}),
	}
	if cacheBytes > 0 {
		s.cache = newResultCache(cacheBytes)
	}

	log := logger.Get()
	log.Info("compute session started",
		zap.Int("workers", s.workers),
		zap.Int64("worker_memory_bytes", s.workerMemory),
		zap.Int64("cache_bytes", cacheBytes))
	if s.scheduler != "" {
		log.Info("external scheduler configured, computing locally until attached",
			zap.String("scheduler", s.scheduler))
	}
	return s, nil
}

// Workers returns the concurrency bound of the session.
func (s *Session) Workers() int { return s.workers }

// Compute materializes every partition of t concurrently and
// concatenates the results in partition order.
func (s *Session) Compute(ctx context.Context, t *table.Table) (*table.Frame, error) {
	select {
	case <-s.closed:
		return nil, errors.New(errors.ErrorTypeInternal, "compute session is closed")
	default:
	}

	if s.cache != nil {
		if f, ok := s.cache.get(t); ok {
			return f, nil
		}
	}

	start := time.Now()
	n := t.NumPartitions()
	frames := make([]*table.Frame, n)

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs *multierror.Error

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			f, err := t.Partition(i)(ctx)
			if err != nil {
				metrics.PartitionsComputed.WithLabelValues("failure").Inc()
				mu.Lock()
				errs = multierror.Append(errs, errors.Wrapf(err,
					errors.ErrorTypeData, "partition %d failed", i))
				mu.Unlock()
				return
			}
			metrics.PartitionsComputed.WithLabelValues("success").Inc()
			frames[i] = f
		}(i)
	}
	wg.Wait()

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	out := table.ConcatRows(frames...)
	metrics.ComputeLatency.WithLabelValues("session_compute").Observe(time.Since(start).Seconds())

	if s.cache != nil {
		s.cache.put(t, out)
		metrics.CacheBytes.Set(float64(s.cache.bytes()))
	}
	return out, nil
}

// Close tears the session down. It never returns an error; teardown
// failures are logged because shutdown must not mask the caller's own
// error path.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		done := make(chan struct{})
		go func() {
			if s.cache != nil {
				s.cache.clear()
				metrics.CacheBytes.Set(0)
			}
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(closeTimeout):
			logger.Get().Warn("compute session teardown timed out",
				zap.Duration("timeout", closeTimeout))
		}
		close(s.closed)
		logger.Get().Info("compute session closed")
	})
}

var (
	defaultMu      sync.Mutex
	defaultSession *Session
)

// Default returns the shared session, creating it on first use from the
// environment.
func Default() (*Session, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultSession != nil {
		select {
		case <-defaultSession.closed:
			defaultSession = nil
		default:
			return defaultSession, nil
		}
	}
	if defaultSession == nil {
		s, err := New(Config{})
		if err != nil {
			return nil, err
		}
		defaultSession = s
	}
	return defaultSession, nil
}

// CloseDefault closes the shared session if one was created.
func CloseDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultSession != nil {
		defaultSession.Close()
		defaultSession = nil
	}
}

// ParseByteSize parses sizes like "512MB", "1.5GB" or plain byte counts.
func ParseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 0, nil
	}

	multipliers := []struct {
		suffix string
		factor float64
	}{
		{"TB", 1 << 40}, {"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10}, {"B", 1},
	}
	factor := 1.0
	for _, m := range multipliers {
		if strings.HasSuffix(s, m.suffix) {
			factor = m.factor
			s = strings.TrimSpace(strings.TrimSuffix(s, m.suffix))
			break
		}
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Newf(errors.ErrorTypeValidation, "invalid byte size %q", s)
	}
	if value < 0 {
		return 0, errors.Newf(errors.ErrorTypeValidation, "byte size must not be negative, got %q", s)
	}
	return int64(value * factor), nil
}
