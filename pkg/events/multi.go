package events

import (
	"context"
	"errors"

	"github.com/urbanquest/quest-progression/pkg/domain"
)

// MultiPublisher fans an event out to every publisher.
// All publishers are attempted; their errors are joined.
type MultiPublisher struct {
	publishers []Publisher
}

// NewMultiPublisher creates a MultiPublisher. Nil entries are skipped.
func NewMultiPublisher(publishers ...Publisher) *MultiPublisher {
	m := &MultiPublisher{}
	for _, p := range publishers {
		if p != nil {
			m.publishers = append(m.publishers, p)
		}
	}
	return m
}

// Publish sends event to each publisher in order.
func (m *MultiPublisher) Publish(ctx context.Context, event domain.ProgressEvent) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
