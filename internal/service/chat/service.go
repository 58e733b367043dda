// Package chat stores patient/physician conversations and resolves the
// realtime room of each one.
package chat

import (
	"context"
	goerrors "errors"
	"fmt"
	"strings"

	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/repository"
	"github.com/jwalitptl/carelink-api/pkg/errors"
)

// Participants identifies a chat by its two members.
type Participants struct {
	PatientID   int64 `json:"patient_id" binding:"required,gt=0"`
	PhysicianID int64 `json:"physician_id" binding:"required,gt=0"`
}

type SendRequest struct {
	Participants
	Sender  int64  `json:"sender" binding:"required,gt=0"`
	Content string `json:"content" binding:"required,notblank,max=4000"`
}

type ChatServicer interface {
	Find(ctx context.Context, p Participants) (*model.Chat, error)
	Messages(ctx context.Context, p Participants) ([]*model.ChatMessage, error)
	Send(ctx context.Context, req SendRequest) (*model.Chat, *model.ChatMessage, error)
}

type Service struct {
	chats repository.ChatRepository
}

func NewService(chats repository.ChatRepository) *Service {
	return &Service{chats: chats}
}

func (s *Service) Find(ctx context.Context, p Participants) (*model.Chat, error) {
	chat, err := s.chats.GetByParticipants(ctx, p.PatientID, p.PhysicianID)
	if err != nil {
		if goerrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("Chat")
		}
		return nil, fmt.Errorf("failed to find chat: %w", err)
	}
	return chat, nil
}

// Messages returns the history of a chat, oldest first.
func (s *Service) Messages(ctx context.Context, p Participants) ([]*model.ChatMessage, error) {
	chat, err := s.Find(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.chats.ListMessages(ctx, chat.ID)
}

// Send persists a message written by one of the two participants.
func (s *Service) Send(ctx context.Context, req SendRequest) (*model.Chat, *model.ChatMessage, error) {
	chat, err := s.Find(ctx, req.Participants)
	if err != nil {
		return nil, nil, err
	}
	if req.Sender != chat.PatientID && req.Sender != chat.PhysicianID {
		return nil, nil, errors.Validation("Sender is not a participant of this chat")
	}

	msg := &model.ChatMessage{
		ChatID:  chat.ID,
		Sender:  req.Sender,
		Content: strings.TrimSpace(req.Content),
	}
	if err := s.chats.AddMessage(ctx, msg); err != nil {
		return nil, nil, fmt.Errorf("failed to store chat message: %w", err)
	}
	return chat, msg, nil
}
