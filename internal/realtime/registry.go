// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package realtime

import (
	"sort"

	"github.com/tomtom215/transitwatch/internal/events"
)

// emptyMembers is returned for absent topics. Never written to.
var emptyMembers = map[*Session]struct{}{}

// Registry maps topics to their subscribed sessions. It is not safe for
// concurrent use; the Hub serializes access under its mutex. Topics with no
// members are removed immediately.
type Registry struct {
	topics map[events.Topic]map[*Session]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{topics: make(map[events.Topic]map[*Session]struct{})}
}

// Subscribe adds s to t. It reports whether s was newly added.
func (r *Registry) Subscribe(s *Session, t events.Topic) bool {
	members, ok := r.topics[t]
	if !ok {
		members = make(map[*Session]struct{})
		r.topics[t] = members
	}
	if _, exists := members[s]; exists {
		return false
	}
	members[s] = struct{}{}
	return true
}

// Unsubscribe removes s from t and prunes t when it empties. It reports
// whether s was a member.
func (r *Registry) Unsubscribe(s *Session, t events.Topic) bool {
	members, ok := r.topics[t]
	if !ok {
		return false
	}
	if _, exists := members[s]; !exists {
		return false
	}
	delete(members, s)
	if len(members) == 0 {
		delete(r.topics, t)
	}
	return true
}

// MembersOf returns the live member set of t. Callers must not modify it.
func (r *Registry) MembersOf(t events.Topic) map[*Session]struct{} {
	if members, ok := r.topics[t]; ok {
		return members
	}
	return emptyMembers
}

// RemoveAll drops s from every topic in topics.
func (r *Registry) RemoveAll(s *Session, topics map[events.Topic]struct{}) {
	for t := range topics {
		r.Unsubscribe(s, t)
	}
}

// Topics returns the topics that currently have members, sorted.
func (r *Registry) Topics() []events.Topic {
	out := make([]events.Topic, 0, len(r.topics))
	for t := range r.topics {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of topics with at least one member.
func (r *Registry) Len() int {
	return len(r.topics)
}
