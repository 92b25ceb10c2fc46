package contact

import (
	"context"
	"strings"

	"gatortrader_backend/internal/common"

	"go.uber.org/zap"
)

type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*Submission, error)
}

type ServiceImplementation struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{repo: repo, logger: logger}
}

func (s *ServiceImplementation) Submit(ctx context.Context, req SubmitRequest) (*Submission, error) {
	sub := &Submission{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		Message: strings.TrimSpace(req.Message),
	}
	if sub.Name == "" || sub.Message == "" {
		return nil, common.NewValidationAPIError(map[string]string{"Message": "Name and message must not be blank."})
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		s.logger.Error("Contact submission not saved", zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Could not save your message.")
	}
	s.logger.Info("Contact submission received", zap.String("id", sub.ID.String()))
	return sub, nil
}
