// Package gate implements the force-join gate: users must be members of every
// registered chat before the bot serves them.
package gate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rg/neetbot/internal/messaging"
	"github.com/rg/neetbot/internal/metrics"
	"github.com/rg/neetbot/internal/storage"
)

type Decision int

const (
	Admit Decision = iota
	Block
)

func (d Decision) String() string {
	if d == Block {
		return "block"
	}
	return "admit"
}

// Interaction describes the incoming message being gated.
type Interaction struct {
	User      messaging.User
	ChatID    int64
	MessageID int // origin message the prompt replies to; 0 for none
	Language  string
}

// Store is the registry and pending-prompt persistence the gate needs.
type Store interface {
	ListForceJoinChats(ctx context.Context) ([]*storage.ForceJoinChat, error)
	SavePendingPrompt(ctx context.Context, p *storage.PendingPrompt) error
	GetPendingPrompt(ctx context.Context, uid int64) (*storage.PendingPrompt, error)
	DeletePendingPrompt(ctx context.Context, uid int64) error
}

// Transport is the subset of messaging.Platform used by the gate.
type Transport interface {
	GetMembership(ctx context.Context, chatID, userID int64) (messaging.MemberStatus, error)
	SendMessage(ctx context.Context, msg *messaging.OutgoingMessage) (int, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

type Evaluator struct {
	store     Store
	transport Transport
	prompts   *PromptBuilder
	ownerID   int64
	locks     *userLocks
}

func NewEvaluator(store Store, transport Transport, prompts *PromptBuilder, ownerID int64) *Evaluator {
	return &Evaluator{
		store:     store,
		transport: transport,
		prompts:   prompts,
		ownerID:   ownerID,
		locks:     newUserLocks(),
	}
}

// Evaluate decides whether in may proceed. A blocked user has been sent a join
// prompt. Errors are persistence or prompt delivery failures; the caller must
// neither serve nor silently drop the interaction.
func (e *Evaluator) Evaluate(ctx context.Context, in Interaction) (Decision, error) {
	chats, err := e.store.ListForceJoinChats(ctx)
	if err != nil {
		return Block, fmt.Errorf("failed to load force-join registry: %w", err)
	}
	if len(chats) == 0 {
		return Admit, nil
	}
	if e.ownerID != 0 && in.User.ID == e.ownerID {
		return Admit, nil
	}

	unlock := e.locks.lock(in.User.ID)
	defer unlock()

	for _, chat := range chats {
		status, err := e.transport.GetMembership(ctx, chat.ChatID, in.User.ID)
		if err != nil {
			// An unreachable check must not lock users out.
			metrics.OracleErrors.Inc()
			slog.Warn("Membership check failed, treating as joined",
				"chat_id", chat.ChatID,
				"user_id", in.User.ID,
				"error", err)
			continue
		}
		if status.IsMember() {
			continue
		}

		if err := e.block(ctx, in, chat); err != nil {
			return Block, err
		}
		metrics.GateDecisions.WithLabelValues(Block.String()).Inc()
		slog.Info("User blocked by force-join gate",
			"user_id", in.User.ID,
			"chat_id", chat.ChatID,
			"status", status)
		return Block, nil
	}

	if err := e.reconcile(ctx, in.User.ID); err != nil {
		return Block, err
	}
	metrics.GateDecisions.WithLabelValues(Admit.String()).Inc()
	return Admit, nil
}

func (e *Evaluator) block(ctx context.Context, in Interaction, chat *storage.ForceJoinChat) error {
	previous, err := e.store.GetPendingPrompt(ctx, in.User.ID)
	if err != nil {
		return fmt.Errorf("failed to load pending prompt: %w", err)
	}
	if previous != nil {
		if err := e.transport.DeleteMessage(ctx, previous.ChatID, previous.MessageID); err != nil {
			slog.Debug("Failed to delete previous join prompt",
				"user_id", in.User.ID,
				"message_id", previous.MessageID,
				"error", err)
		}
	}

	msg := e.prompts.Build(in, chat)
	messageID, err := e.transport.SendMessage(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to send join prompt: %w", err)
	}

	err = e.store.SavePendingPrompt(ctx, &storage.PendingPrompt{
		UserID:    in.User.ID,
		ChatID:    in.ChatID,
		MessageID: messageID,
	})
	if err != nil {
		return fmt.Errorf("failed to save pending prompt: %w", err)
	}
	return nil
}

// reconcile removes the user's outstanding prompt once they pass the gate.
func (e *Evaluator) reconcile(ctx context.Context, uid int64) error {
	pending, err := e.store.GetPendingPrompt(ctx, uid)
	if err != nil {
		return fmt.Errorf("failed to load pending prompt: %w", err)
	}
	if pending == nil {
		return nil
	}

	if err := e.transport.DeleteMessage(ctx, pending.ChatID, pending.MessageID); err != nil {
		slog.Debug("Failed to delete join prompt",
			"user_id", uid,
			"message_id", pending.MessageID,
			"error", err)
	}

	if err := e.store.DeletePendingPrompt(ctx, uid); err != nil {
		return fmt.Errorf("failed to delete pending prompt: %w", err)
	}
	return nil
}
