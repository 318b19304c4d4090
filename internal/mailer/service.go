package mailer

import (
	"context"
	"errors"

	"github.com/medok/medok-backend/pkg/logger"
)

// Service renders and sends the two shift exchange emails.
type Service interface {
	SendExchangeEmail(ctx context.Context, in ExchangeEmail) error
	SendResponseEmail(ctx context.Context, in ResponseEmail) error
}

type service struct {
	sender Sender
	logg   *logger.Logger
}

func NewService(sender Sender, logg *logger.Logger) (Service, error) {
	if sender == nil {
		return nil, errors.New("mail sender required")
	}
	return &service{sender: sender, logg: logg}, nil
}

func (s *service) SendExchangeEmail(ctx context.Context, in ExchangeEmail) error {
	msg, err := RenderExchange(in)
	if err != nil {
		return err
	}
	return s.deliver(ctx, msg, "exchange request email sent")
}

func (s *service) SendResponseEmail(ctx context.Context, in ResponseEmail) error {
	msg, err := RenderResponse(in)
	if err != nil {
		return err
	}
	return s.deliver(ctx, msg, "exchange response email sent")
}

func (s *service) deliver(ctx context.Context, msg Message, logMsg string) error {
	if err := s.sender.Send(ctx, msg); err != nil {
		return err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "subject", msg.Subject), logMsg)
	}
	return nil
}
