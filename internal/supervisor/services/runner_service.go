// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package services

import "context"

// ContextRunner is anything with a blocking, context-scoped run loop, such
// as *realtime.Hub and *realtime.Monitor.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// RunnerService supervises a ContextRunner under a fixed name.
type RunnerService struct {
	runner ContextRunner
	name   string
}

// NewRunnerService wraps runner.
func NewRunnerService(name string, runner ContextRunner) *RunnerService {
	return &RunnerService{runner: runner, name: name}
}

// NewHubService names the realtime hub service.
func NewHubService(hub ContextRunner) *RunnerService {
	return NewRunnerService("realtime-hub", hub)
}

// NewMonitorService names the liveness monitor service.
func NewMonitorService(monitor ContextRunner) *RunnerService {
	return NewRunnerService("liveness-monitor", monitor)
}

// Serve delegates to the runner.
func (s *RunnerService) Serve(ctx context.Context) error {
	return s.runner.RunWithContext(ctx)
}

func (s *RunnerService) String() string {
	return s.name
}
