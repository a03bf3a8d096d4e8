package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"

	"github.com/on-the-ground/cellpool/cache"
	"github.com/on-the-ground/cellpool/config"
	"github.com/on-the-ground/cellpool/executor"
	"github.com/on-the-ground/cellpool/metrics"
	"github.com/on-the-ground/cellpool/pool"
	"github.com/on-the-ground/cellpool/resource"
)

const (
	heightsPool = "heights"
	cellsPool   = "cells"
)

type simulation struct {
	tiles   int
	size    int
	passes  int
	metrics bool
}

type tilePos struct {
	X, Z int
}

func (p tilePos) String() string {
	return fmt.Sprintf("%d:%d", p.X, p.Z)
}

// tileStats is the memoized outcome of generating one tile.
type tileStats struct {
	Min, Max, Mean float32
}

// scratch is per-tile working state borrowed from the object pool.
type scratch struct {
	erosion []float32
}

// Release clears the scratch state before it goes back to the pool.
func (s *scratch) Release() {
	clear(s.erosion)
	s.erosion = s.erosion[:0]
}

type summary struct {
	Tiles     int
	Requests  int
	Heights   uint64
	Cells     uint64
	Executor  executor.Stats
	Swept     int
	Remaining int
}

func simulate(ctx context.Context, cfg config.Config, sim simulation, logger *zap.Logger, out io.Writer) error {
	if sim.tiles <= 0 || sim.size <= 0 || sim.passes <= 0 {
		return errors.New("tiles, size and passes must be positive")
	}
	sum, reg, err := run(ctx, cfg, sim, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "tiles:            %d\n", sum.Tiles)
	fmt.Fprintf(out, "requests:         %d\n", sum.Requests)
	fmt.Fprintf(out, "heights misses:   %d\n", sum.Heights)
	fmt.Fprintf(out, "cells misses:     %d\n", sum.Cells)
	fmt.Fprintf(out, "tasks submitted:  %d\n", sum.Executor.Submitted)
	fmt.Fprintf(out, "tasks completed:  %d\n", sum.Executor.Completed)
	fmt.Fprintf(out, "tasks panicked:   %d\n", sum.Executor.Panicked)
	fmt.Fprintf(out, "entries swept:    %d\n", sum.Swept)
	fmt.Fprintf(out, "entries retained: %d\n", sum.Remaining)

	if reg != nil {
		families, err := reg.Gather()
		if err != nil {
			return fmt.Errorf("couldn't gather metrics: %w", err)
		}
		for _, mf := range families {
			if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
				return fmt.Errorf("couldn't write metrics: %w", err)
			}
		}
	}
	return nil
}

// run generates every tile sim.passes times. Only the first request for a
// tile computes it; the rest are served from the store.
func run(ctx context.Context, cfg config.Config, sim simulation, logger *zap.Logger) (summary, *prometheus.Registry, error) {
	exec := executor.New(
		executor.Config{Workers: cfg.Executor.Workers, BufferSize: cfg.Executor.BufferSize},
		executor.WithLogger(logger.Named("executor")),
	)
	defer exec.Close()

	var (
		reg  *prometheus.Registry
		sink pool.Sink = metrics.NewLogSink(logger.Named("misses"))
	)
	if sim.metrics {
		reg = prometheus.NewRegistry()
		sink = metrics.Tee{sink, metrics.NewPromSink(reg)}
		reg.MustRegister(metrics.NewExecutorCollectors(exec)...)
	}

	workers := exec.NumWorkers()
	poolOpts := func(name string) []pool.Option {
		return []pool.Option{
			pool.WithName(name),
			pool.WithLogger(logger.Named(name)),
			pool.WithSink(sink),
			pool.WithReportInterval(cfg.Report.Interval.Duration),
		}
	}
	heights := pool.NewArrayPool(
		cfg.PoolCapacity(heightsPool, workers),
		func(n int) []float32 { return make([]float32, n) },
		poolOpts(heightsPool)...,
	)
	cells := pool.NewObjectPool(
		cfg.PoolCapacity(cellsPool, workers),
		func() *scratch { return &scratch{} },
		poolOpts(cellsPool)...,
	)

	reporter := pool.NewReporter(cfg.Report.Interval.Duration, heights, cells)
	reportCtx, stopReports := context.WithCancel(ctx)
	var reporting sync.WaitGroup
	reporting.Add(1)
	go func() {
		defer reporting.Done()
		reporter.Run(reportCtx)
	}()

	store := cache.NewStore[tilePos, tileStats](
		cfg.Cache.TTL.Duration,
		cache.WithStoreLogger(logger.Named("store")),
	)

	requests := 0
	var err error
	for pass := 0; pass < sim.passes && err == nil; pass++ {
		entries := make([]*cache.Entry[tileStats], 0, sim.tiles*sim.tiles)
		for x := 0; x < sim.tiles; x++ {
			for z := 0; z < sim.tiles; z++ {
				pos := tilePos{X: x, Z: z}
				entries = append(entries, store.GetOrSubmit(pos, func() (tileStats, error) {
					return generate(pos, sim.size, heights, cells), nil
				}, cache.ExecutorFunc(func(task func()) error {
					return exec.SubmitKeyed(pos.String(), task)
				})))
				requests++
			}
		}
		for _, e := range entries {
			if _, err = e.Wait(ctx); err != nil {
				break
			}
		}
		logger.Debug("pass finished", zap.Int("pass", pass), zap.Int("entries", store.Len()))
	}

	stopReports()
	reporting.Wait()
	if err != nil {
		return summary{}, nil, err
	}

	sum := summary{
		Tiles:    sim.tiles * sim.tiles,
		Requests: requests,
		Heights:  heights.MissCount(),
		Cells:    cells.MissCount(),
		Executor: exec.Stats(),
	}
	// final report; gated pools that reported recently stay quiet
	reporter.Report()
	sum.Swept = store.Sweep(time.Now().Add(cfg.Cache.TTL.Duration + time.Nanosecond))
	sum.Remaining = store.Len()
	return sum, reg, nil
}

// generate fills a synthetic heightmap for pos and returns its statistics.
func generate(pos tilePos, size int, heights *pool.ArrayPool[float32], cells *pool.ObjectPool[*scratch]) tileStats {
	scope := resource.NewScope()
	defer scope.Close()

	n := size * size
	buf := resource.Track(scope, heights.Get(n)).Get()[:n]
	work := resource.Track(scope, cells.Get()).Get()
	if cap(work.erosion) < size {
		work.erosion = make([]float32, size)
	}
	work.erosion = work.erosion[:size]

	for i := range buf {
		x := float64(pos.X*size + i%size)
		z := float64(pos.Z*size + i/size)
		buf[i] = float32(math.Sin(x*0.05)*math.Cos(z*0.05)) * 64
		work.erosion[i%size] += buf[i] / float32(size)
	}

	stats := tileStats{Min: buf[0], Max: buf[0]}
	var total float64
	for i, h := range buf {
		h -= work.erosion[i%size] * 0.1
		stats.Min = min(stats.Min, h)
		stats.Max = max(stats.Max, h)
		total += float64(h)
	}
	stats.Mean = float32(total / float64(n))
	return stats
}
