package service

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/plotwise/seedtrace/internal/config"
)

var tracer = otel.Tracer("auth")

// AuthService resolves bearer tokens to operator identities. Every discard
// is stamped with the resolved operator.
type AuthService struct {
	config config.Config
}

func NewAuthService(config config.Config) *AuthService {
	return &AuthService{
		config: config,
	}
}

type AuthResult struct {
	ActorID string
}

func (s *AuthService) AuthToken(ctx context.Context, token string) (*AuthResult, error) {
	_, span := tracer.Start(ctx, "Auth.Service.AuthToken")
	defer span.End()

	if token == "" {
		err := fmt.Errorf("empty token")
		span.RecordError(err)
		return nil, err
	}

	actor, ok := s.config.OperatorByToken(token)
	if !ok {
		err := errors.New("unknown operator token")
		span.RecordError(err)
		return nil, err
	}

	return &AuthResult{ActorID: actor}, nil
}
