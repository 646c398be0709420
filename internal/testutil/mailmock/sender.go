package mailmock

import (
	"context"
	"sync"

	"ciddt-registration-backend/internal/mailer"
)

var _ mailer.Sender = (*Sender)(nil)

// Sender records every message and fails when SendFn says so.
type Sender struct {
	mu     sync.Mutex
	Sent   []mailer.Message
	SendFn func(ctx context.Context, m mailer.Message) error
}

func (s *Sender) Send(ctx context.Context, m mailer.Message) error {
	if s.SendFn != nil {
		if err := s.SendFn(ctx, m); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.Sent = append(s.Sent, m)
	s.mu.Unlock()
	return nil
}

func (s *Sender) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Sent)
}

func (s *Sender) Last() mailer.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Sent) == 0 {
		return mailer.Message{}
	}
	return s.Sent[len(s.Sent)-1]
}
