// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package services

import (
	"context"
	"fmt"

	"github.com/thejerf/suture/v4"
)

// RelayRunner matches *relay.Relay.
type RelayRunner interface {
	Run(ctx context.Context) error
	Close() error
}

// RelayService supervises the relay consumer. A watermill router cannot be
// restarted once closed, so an unexpected stop is reported with
// suture.ErrDoNotRestart instead of looping.
type RelayService struct {
	relay RelayRunner
}

// NewRelayService wraps r.
func NewRelayService(r RelayRunner) *RelayService {
	return &RelayService{relay: r}
}

// Serve runs the consumer until ctx ends, then closes the transports.
func (s *RelayService) Serve(ctx context.Context) error {
	err := s.relay.Run(ctx)
	closeErr := s.relay.Close()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = closeErr
	}
	return fmt.Errorf("%w: relay stopped: %v", suture.ErrDoNotRestart, err)
}

func (s *RelayService) String() string {
	return "relay"
}
