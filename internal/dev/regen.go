// Package dev regenerates code whenever a schema file changes
package dev

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/okra-platform/xtask/internal/config"
	"github.com/okra-platform/xtask/internal/runner"
)

// Pipeline runs a full generation over a set of targets
type Pipeline interface {
	RunAll(ctx context.Context, targets []config.Target) error
}

// Regenerator reruns the pipeline after schema changes settle
type Regenerator struct {
	config   *config.Config
	pipeline Pipeline
	targets  []config.Target
	debounce time.Duration
	logger   zerolog.Logger

	changes chan string
}

// NewRegenerator creates a regenerator for the given targets
func NewRegenerator(cfg *config.Config, pipeline Pipeline, targets []config.Target, logger zerolog.Logger) *Regenerator {
	return &Regenerator{
		config:   cfg,
		pipeline: pipeline,
		targets:  targets,
		debounce: time.Duration(cfg.Watch.DebounceMillis) * time.Millisecond,
		logger:   logger.With().Str("component", "watch").Logger(),
		changes:  make(chan string, 1),
	}
}

// Start runs the pipeline once and then again after every change to a
// watched schema file, until ctx is cancelled. A failing initial run is
// returned; later failures are logged and watching continues.
func (r *Regenerator) Start(ctx context.Context) error {
	if err := r.pipeline.RunAll(ctx, r.targets); err != nil {
		return err
	}

	watcher, err := NewFileWatcher(
		[]string{"*" + r.config.Layout.SchemaExt},
		r.config.Watch.Exclude,
		r.handleFileChange,
		r.logger,
	)
	if err != nil {
		return runner.Fail("watch", err)
	}
	defer watcher.Close()

	for _, dir := range r.dirs() {
		if err := watcher.AddDirectory(dir); err != nil {
			return runner.Fail("watch", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- watcher.Start(ctx)
	}()

	r.logger.Info().Int("targets", len(r.targets)).Msg("watching for schema changes")

	timer := time.NewTimer(r.debounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-watchErr:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return runner.Fail("watch", err)
		case path := <-r.changes:
			r.logger.Debug().Str("path", path).Msg("schema changed")
			timer.Reset(r.debounce)
		case <-timer.C:
			if err := r.pipeline.RunAll(ctx, r.targets); err != nil {
				r.logger.Error().Err(err).Int("status", runner.ExitStatus(err)).Msg("regeneration failed")
			} else {
				r.logger.Info().Msg("regenerated")
			}
		}
	}
}

func (r *Regenerator) handleFileChange(path string, op fsnotify.Op) {
	if op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	select {
	case r.changes <- path:
	default:
		// a change is already queued
	}
}

// dirs lists every package directory of the targets, once each
func (r *Regenerator) dirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, t := range r.targets {
		for _, pkg := range t.Packages {
			dir := r.config.Path(filepath.Join(t.IncludeRoot, pkg))
			if !seen[dir] {
				seen[dir] = true
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs
}
