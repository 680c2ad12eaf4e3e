// Package chat persists conversation threads and messages. It is the
// persistence collaborator consumed by the gateway for placeholder
// bookkeeping, and also stores model configurations and encrypted
// credential blobs.
package chat

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/parleyhq/parley/internal/event"
	"github.com/parleyhq/parley/internal/storage"
	"github.com/parleyhq/parley/pkg/types"
)

// Service manages thread, message, model, and credential records.
type Service struct {
	storage *storage.Store
}

// NewService creates a chat service over the given store.
func NewService(store *storage.Store) *Service {
	return &Service{storage: store}
}

// messageRef is the reverse index from message id to its thread, so
// message operations keyed only by id can find the record.
type messageRef struct {
	ThreadID string `json:"threadID"`
}

// CreateThread creates a new thread for ownerID.
func (s *Service) CreateThread(ctx context.Context, ownerID, title string) (*types.Thread, error) {
	if title == "" {
		title = "New Thread"
	}

	now := time.Now().UnixMilli()
	thread := &types.Thread{
		ID:      generateID(),
		OwnerID: ownerID,
		Title:   title,
		Time: types.ThreadTime{
			Created: now,
			Updated: now,
		},
	}

	if err := s.storage.Put(ctx, []string{"thread", ownerID, thread.ID}, thread); err != nil {
		return nil, fmt.Errorf("save thread: %w", err)
	}

	event.PublishSync(event.Event{
		Type: event.ThreadCreated,
		Data: event.ThreadCreatedData{Info: thread},
	})
	return thread, nil
}

// GetThread retrieves a thread owned by ownerID.
func (s *Service) GetThread(ctx context.Context, ownerID, threadID string) (*types.Thread, error) {
	var thread types.Thread
	if err := s.storage.Get(ctx, []string{"thread", ownerID, threadID}, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

// ListThreads returns all threads owned by ownerID, most recently
// updated first.
func (s *Service) ListThreads(ctx context.Context, ownerID string) ([]*types.Thread, error) {
	ids, err := s.storage.List(ctx, []string{"thread", ownerID})
	if err != nil {
		return nil, err
	}

	threads := make([]*types.Thread, 0, len(ids))
	for _, id := range ids {
		var thread types.Thread
		if err := s.storage.Get(ctx, []string{"thread", ownerID, id}, &thread); err != nil {
			continue
		}
		threads = append(threads, &thread)
	}

	sort.Slice(threads, func(i, j int) bool {
		return threads[i].Time.Updated > threads[j].Time.Updated
	})
	return threads, nil
}

// DeleteThread removes a thread and all its messages.
func (s *Service) DeleteThread(ctx context.Context, ownerID, threadID string) error {
	thread, err := s.GetThread(ctx, ownerID, threadID)
	if err != nil {
		return err
	}

	messageIDs, err := s.storage.List(ctx, []string{"message", threadID})
	if err == nil {
		for _, id := range messageIDs {
			_ = s.storage.Delete(ctx, []string{"message", threadID, id})
			_ = s.storage.Delete(ctx, []string{"messageref", id})
		}
	}

	if err := s.storage.Delete(ctx, []string{"thread", ownerID, threadID}); err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}

	event.PublishSync(event.Event{
		Type: event.ThreadDeleted,
		Data: event.ThreadDeletedData{Info: thread},
	})
	return nil
}

// VerifyThreadOwnership reports whether threadID exists and is owned by
// ownerID.
func (s *Service) VerifyThreadOwnership(ctx context.Context, threadID, ownerID string) (bool, error) {
	return s.storage.Exists(ctx, []string{"thread", ownerID, threadID}), nil
}

// TouchThread bumps the thread's last-activity timestamp.
func (s *Service) TouchThread(ctx context.Context, threadID string) error {
	thread, err := s.findThread(ctx, threadID)
	if err != nil {
		return err
	}

	thread.Time.Updated = time.Now().UnixMilli()
	if err := s.storage.Put(ctx, []string{"thread", thread.OwnerID, thread.ID}, thread); err != nil {
		return fmt.Errorf("save thread: %w", err)
	}

	event.PublishSync(event.Event{
		Type: event.ThreadUpdated,
		Data: event.ThreadUpdatedData{Info: thread},
	})
	return nil
}

// findThread locates a thread by id across all owners.
func (s *Service) findThread(ctx context.Context, threadID string) (*types.Thread, error) {
	owners, err := s.storage.List(ctx, []string{"thread"})
	if err != nil {
		return nil, err
	}

	for _, ownerID := range owners {
		var thread types.Thread
		if err := s.storage.Get(ctx, []string{"thread", ownerID, threadID}, &thread); err == nil {
			return &thread, nil
		}
	}
	return nil, storage.ErrNotFound
}

// AppendMessage appends a message to a thread and returns its id.
func (s *Service) AppendMessage(ctx context.Context, threadID string, role types.Role, content string, meta *types.MessageMeta) (string, error) {
	now := time.Now().UnixMilli()
	msg := &types.Message{
		ID:       generateID(),
		ThreadID: threadID,
		Role:     role,
		Content:  content,
		Meta:     meta,
		Time:     types.MessageTime{Created: now},
	}

	if err := s.storage.Put(ctx, []string{"message", threadID, msg.ID}, msg); err != nil {
		return "", fmt.Errorf("save message: %w", err)
	}
	if err := s.storage.Put(ctx, []string{"messageref", msg.ID}, messageRef{ThreadID: threadID}); err != nil {
		return "", fmt.Errorf("save message ref: %w", err)
	}

	event.PublishSync(event.Event{
		Type: event.MessageCreated,
		Data: event.MessageCreatedData{Info: msg},
	})
	return msg.ID, nil
}

// UpdateMessage overwrites a message's content and metadata.
func (s *Service) UpdateMessage(ctx context.Context, messageID, content string, meta *types.MessageMeta) error {
	msg, err := s.getMessageByID(ctx, messageID)
	if err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	msg.Content = content
	msg.Meta = meta
	msg.Time.Updated = &now

	if err := s.storage.Put(ctx, []string{"message", msg.ThreadID, msg.ID}, msg); err != nil {
		return fmt.Errorf("save message: %w", err)
	}

	event.PublishSync(event.Event{
		Type: event.MessageUpdated,
		Data: event.MessageUpdatedData{Info: msg},
	})
	return nil
}

// DeleteMessage removes a message by id.
func (s *Service) DeleteMessage(ctx context.Context, messageID string) error {
	msg, err := s.getMessageByID(ctx, messageID)
	if err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, []string{"message", msg.ThreadID, msg.ID}); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	_ = s.storage.Delete(ctx, []string{"messageref", msg.ID})

	event.PublishSync(event.Event{
		Type: event.MessageRemoved,
		Data: event.MessageRemovedData{ThreadID: msg.ThreadID, MessageID: msg.ID},
	})
	return nil
}

// GetMessages returns all messages in a thread in creation order. ULID
// keys sort lexically in creation order, so the store's listing order is
// already chronological.
func (s *Service) GetMessages(ctx context.Context, threadID string) ([]*types.Message, error) {
	ids, err := s.storage.List(ctx, []string{"message", threadID})
	if err != nil {
		return nil, err
	}

	messages := make([]*types.Message, 0, len(ids))
	for _, id := range ids {
		var msg types.Message
		if err := s.storage.Get(ctx, []string{"message", threadID, id}, &msg); err != nil {
			continue
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}

// LastMessage returns the most recent message with the given role, or
// storage.ErrNotFound when the thread has none.
func (s *Service) LastMessage(ctx context.Context, threadID string, role types.Role) (*types.Message, error) {
	ids, err := s.storage.List(ctx, []string{"message", threadID})
	if err != nil {
		return nil, err
	}

	for i := len(ids) - 1; i >= 0; i-- {
		var msg types.Message
		if err := s.storage.Get(ctx, []string{"message", threadID, ids[i]}, &msg); err != nil {
			continue
		}
		if msg.Role == role {
			return &msg, nil
		}
	}
	return nil, storage.ErrNotFound
}

// getMessageByID resolves a message through the reverse index.
func (s *Service) getMessageByID(ctx context.Context, messageID string) (*types.Message, error) {
	var ref messageRef
	if err := s.storage.Get(ctx, []string{"messageref", messageID}, &ref); err != nil {
		return nil, err
	}

	var msg types.Message
	if err := s.storage.Get(ctx, []string{"message", ref.ThreadID, messageID}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// generateID generates a new ULID.
func generateID() string {
	return ulid.Make().String()
}
