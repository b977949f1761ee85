//go:generate go run go.uber.org/mock/mockgen -source=session_service.go -destination=../mocks/mock_session_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"log/slog"

	"entangleme/domain"
	"entangleme/errors"
	"entangleme/runtime"

	"github.com/go-playground/validator/v10"
)

type ISessionService interface {
	Join(ctx context.Context, username string) (runtime.JoinResult, error)
	Leave(ctx context.Context)
	SendBit(ctx context.Context, bit int) (domain.Message, error)
	Simulate(ctx context.Context, bit int) (domain.TeleportationResult, error)
	Status() (domain.RoomStatus, string)
}

var validate = validator.New()

type joinRequest struct {
	Username string `validate:"required,min=1,max=50"`
}

// SessionService fronts the scheduler for UI code: it validates input
// before anything touches the room, then delegates.
type SessionService struct {
	scheduler *runtime.Scheduler
	log       *slog.Logger
}

func NewSessionService(scheduler *runtime.Scheduler, log *slog.Logger) *SessionService {
	return &SessionService{scheduler: scheduler, log: log}
}

func (s *SessionService) Join(ctx context.Context, username string) (runtime.JoinResult, error) {
	if err := validate.Struct(joinRequest{Username: username}); err != nil {
		return runtime.JoinResult{}, fmt.Errorf("%w: %v", errors.ErrInvalidUsername, err)
	}
	return s.scheduler.Join(ctx, username)
}

func (s *SessionService) Leave(ctx context.Context) {
	s.scheduler.Leave(ctx)
}

func (s *SessionService) SendBit(ctx context.Context, bit int) (domain.Message, error) {
	return s.scheduler.SendBit(ctx, bit)
}

func (s *SessionService) Simulate(ctx context.Context, bit int) (domain.TeleportationResult, error) {
	return s.scheduler.Simulate(ctx, bit)
}

func (s *SessionService) Status() (domain.RoomStatus, string) {
	return s.scheduler.Status()
}
