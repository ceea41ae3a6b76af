// Package sink holds the destinations a notification is delivered to.
package sink

import (
	"context"

	"github.com/smallbiznis/planbilling/internal/notification/domain"
)

// Store persists every notification to the notifications table.
type Store struct {
	svc domain.Service
}

func NewStore(svc domain.Service) *Store {
	return &Store{svc: svc}
}

func (s *Store) Name() string { return "store" }

func (s *Store) Accepts(domain.Type) bool { return true }

func (s *Store) Deliver(ctx context.Context, msg domain.Message) error {
	_, err := s.svc.Save(ctx, msg)
	return err
}
