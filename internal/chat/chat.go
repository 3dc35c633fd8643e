// Package chat runs the music assistant conversation.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/justestif/go-spotify-playlist-curator/internal/db"
	"github.com/justestif/go-spotify-playlist-curator/internal/llm"
)

const (
	// historyLimit is the number of messages returned by History.
	historyLimit = 50

	// contextWindow is the number of recent messages sent to the model.
	contextWindow = 10

	fallbackReply = "I'm having trouble responding right now. Please try again."
)

// ErrEmptyMessage is returned when a user sends a blank message.
var ErrEmptyMessage = errors.New("message is required")

// Completer sends a completion request to a language model.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// MessageStore persists chat messages.
type MessageStore interface {
	Create(ctx context.Context, m *db.ChatMessage) error
	ListRecent(ctx context.Context, userID string, limit int) ([]db.ChatMessage, error)
	DeleteForUser(ctx context.Context, userID string) error
}

// Context is what the user is looking at while chatting.
type Context struct {
	GenerationID      *uuid.UUID
	SelectedPlaylists []string
}

// Service handles chat messages.
type Service struct {
	model  Completer
	store  MessageStore
	logger *log.Logger
}

// New creates a new chat service.
func New(model Completer, store MessageStore, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{model: model, store: store, logger: logger}
}

// History returns the user's latest messages, oldest first.
func (s *Service) History(ctx context.Context, userID string) ([]db.ChatMessage, error) {
	messages, err := s.store.ListRecent(ctx, userID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("loading chat history: %w", err)
	}
	if messages == nil {
		messages = []db.ChatMessage{}
	}
	return messages, nil
}

// Send stores the user's message, asks the model for a reply using the
// recent conversation, and stores and returns the reply.
func (s *Service) Send(ctx context.Context, userID, message string, cc Context) (*db.ChatMessage, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	userMsg := &db.ChatMessage{
		UserID:       userID,
		Role:         db.RoleUser,
		Content:      message,
		GenerationID: cc.GenerationID,
	}
	if err := s.store.Create(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("saving message: %w", err)
	}

	recent, err := s.store.ListRecent(ctx, userID, contextWindow)
	if err != nil {
		return nil, fmt.Errorf("loading recent messages: %w", err)
	}

	conversation := make([]llm.Message, 0, len(recent))
	for _, m := range recent {
		role := llm.RoleUser
		if m.Role == db.RoleAssistant {
			role = llm.RoleAssistant
		}
		conversation = append(conversation, llm.Message{Role: role, Content: m.Content})
	}

	reply, err := s.model.Complete(ctx, llm.Request{
		System:   systemPrompt(cc.SelectedPlaylists),
		Messages: conversation,
	})
	if err != nil {
		return nil, fmt.Errorf("generating chat response: %w", err)
	}
	if strings.TrimSpace(reply) == "" {
		s.logger.Warn("model returned an empty chat reply", "user", userID)
		reply = fallbackReply
	}

	assistantMsg := &db.ChatMessage{
		UserID:       userID,
		Role:         db.RoleAssistant,
		Content:      reply,
		GenerationID: cc.GenerationID,
	}
	if err := s.store.Create(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("saving reply: %w", err)
	}
	return assistantMsg, nil
}

// Reset deletes the user's conversation.
func (s *Service) Reset(ctx context.Context, userID string) error {
	if err := s.store.DeleteForUser(ctx, userID); err != nil {
		return fmt.Errorf("resetting chat: %w", err)
	}
	return nil
}

func systemPrompt(selected []string) string {
	var b strings.Builder
	b.WriteString(`You are an AI music assistant helping users create perfect playlists from their Spotify library.

You can help with:
- Analyzing their musical taste
- Suggesting playlist themes and moods
- Recommending track combinations
- Refining playlist generation parameters

Be conversational, helpful, and music-focused. If they have selected playlists, reference them naturally.
`)
	if len(selected) > 0 {
		b.WriteString("\nSelected playlists: ")
		b.WriteString(strings.Join(selected, ", "))
		b.WriteString("\n")
	}
	return b.String()
}
