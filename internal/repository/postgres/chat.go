package postgres

import (
	"context"
	"fmt"

	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/repository"
)

type chatRepository struct {
	BaseRepository
}

func NewChatRepository(base BaseRepository) repository.ChatRepository {
	return &chatRepository{base}
}

func (r *chatRepository) Create(ctx context.Context, chat *model.Chat) error {
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO chats (patient_id, physician_id) VALUES ($1, $2) RETURNING id`,
		chat.PatientID, chat.PhysicianID,
	).Scan(&chat.ID)
	return mapError(err)
}

func (r *chatRepository) Get(ctx context.Context, id int64) (*model.Chat, error) {
	var chat model.Chat
	if err := r.db.GetContext(ctx, &chat, `SELECT id, patient_id, physician_id FROM chats WHERE id = $1`, id); err != nil {
		return nil, mapError(err)
	}
	return &chat, nil
}

func (r *chatRepository) GetByPatient(ctx context.Context, patientID int64) (*model.Chat, error) {
	var chat model.Chat
	query := `SELECT id, patient_id, physician_id FROM chats WHERE patient_id = $1 ORDER BY id LIMIT 1`
	if err := r.db.GetContext(ctx, &chat, query, patientID); err != nil {
		return nil, mapError(err)
	}
	return &chat, nil
}

func (r *chatRepository) GetByParticipants(ctx context.Context, patientID, physicianID int64) (*model.Chat, error) {
	var chat model.Chat
	query := `SELECT id, patient_id, physician_id FROM chats WHERE patient_id = $1 AND physician_id = $2`
	if err := r.db.GetContext(ctx, &chat, query, patientID, physicianID); err != nil {
		return nil, mapError(err)
	}
	return &chat, nil
}

func (r *chatRepository) AddMessage(ctx context.Context, msg *model.ChatMessage) error {
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO chat_messages (chat_id, sender, content) VALUES ($1, $2, $3) RETURNING id, timestamp`,
		msg.ChatID, msg.Sender, msg.Content,
	).Scan(&msg.ID, &msg.Timestamp)
	return mapError(err)
}

func (r *chatRepository) ListMessages(ctx context.Context, chatID int64) ([]*model.ChatMessage, error) {
	msgs := []*model.ChatMessage{}
	query := `
		SELECT id, chat_id, sender, content, timestamp
		FROM chat_messages
		WHERE chat_id = $1
		ORDER BY timestamp, id
	`
	if err := r.db.SelectContext(ctx, &msgs, query, chatID); err != nil {
		return nil, fmt.Errorf("failed to list messages of chat %d: %w", chatID, err)
	}
	return msgs, nil
}
