// Package assistant answers shopper questions with a chat-completion model
// primed with the live catalog and tournament schedule.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/arena/internal/domain"
)

const (
	// MaxMessageLength bounds one user question, in characters.
	MaxMessageLength = 1000

	// maxContextProducts caps how many products are listed in the prompt.
	maxContextProducts = 40
)

const systemPrompt = `You are the assistant of Arena, a Moroccan gaming store.
Prices are in Moroccan dirham (DH). Purchases are paid from the in-store wallet and earn 10 loyalty points per DH.
Answer briefly and only about the store, its products and its tournaments. If you do not know, say so.`

// Completer produces a reply for a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Reply is the assistant's answer to one question.
type Reply struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

// Service builds the prompt context, calls the model and stores both turns.
type Service struct {
	completer   Completer
	products    domain.ProductStore
	tournaments domain.TournamentStore
	logs        domain.ChatLogStore
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates an assistant service. A nil completer disables it.
func NewService(completer Completer, products domain.ProductStore, tournaments domain.TournamentStore, logs domain.ChatLogStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		completer:   completer,
		products:    products,
		tournaments: tournaments,
		logs:        logs,
		logger:      logger.With("service", "assistant"),
		now:         time.Now,
	}
}

// Enabled reports whether a model is configured.
func (s *Service) Enabled() bool {
	return s.completer != nil
}

// Reply answers message within conversationID, starting a new conversation
// when conversationID is empty. user may be nil for anonymous visitors.
func (s *Service) Reply(ctx context.Context, user *domain.User, conversationID, message string) (*Reply, error) {
	const op = "assistant.reply"

	if s.completer == nil {
		return nil, domain.Errorf(domain.ENOTIMPL, op, "The assistant is not available")
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, domain.NewValidationError(op, "message", "is required")
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return nil, domain.NewValidationError(op, "message", fmt.Sprintf("must be at most %d characters", MaxMessageLength))
	}
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	var userID uuid.UUID
	if user != nil {
		userID = user.ID
	}

	storeContext, err := s.buildContext(ctx)
	if err != nil {
		s.logger.Warn("answering without store context", "error", err)
	}

	s.record(ctx, domain.ChatLog{ConversationID: conversationID, UserID: userID, Role: domain.ChatRoleUser, Content: message})

	content, err := s.completer.Complete(ctx, []Message{
		{Role: RoleSystem, Content: systemPrompt + "\n\n" + storeContext},
		{Role: RoleUser, Content: message},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.Aborted(op, ctx.Err())
		}
		s.logger.Error("completion failed", "conversation_id", conversationID, "error", err)
		return nil, domain.Internal(err, op, "The assistant is unavailable right now. Please try again later.")
	}

	s.record(ctx, domain.ChatLog{ConversationID: conversationID, UserID: userID, Role: domain.ChatRoleAssistant, Content: content})

	return &Reply{ConversationID: conversationID, Content: content}, nil
}

func (s *Service) record(ctx context.Context, entry domain.ChatLog) {
	entry.CreatedAt = s.now()
	if err := s.logs.AppendChatLog(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Error("failed to store chat log", "conversation_id", entry.ConversationID, "role", entry.Role, "error", err)
	}
}

// buildContext lists in-stock products and upcoming tournaments.
func (s *Service) buildContext(ctx context.Context) (string, error) {
	var (
		products    []domain.Product
		tournaments []domain.Tournament
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.products.ListProducts(gctx, domain.ProductFilter{InStockOnly: true, Sort: domain.SortNewest})
		return err
	})
	g.Go(func() error {
		var err error
		tournaments, err = s.tournaments.ListUpcomingTournaments(gctx, s.now())
		return err
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	return formatContext(products, tournaments), nil
}

func formatContext(products []domain.Product, tournaments []domain.Tournament) string {
	var b strings.Builder

	b.WriteString("Products in stock:\n")
	if len(products) == 0 {
		b.WriteString("- none\n")
	}
	for i, p := range products {
		if i == maxContextProducts {
			fmt.Fprintf(&b, "- and %d more\n", len(products)-maxContextProducts)
			break
		}
		fmt.Fprintf(&b, "- %s (%s, %s): %s DH, %d left\n", p.Name, p.Category, p.Type, domain.RoundDisplay(p.PriceDH), p.Stock)
	}

	b.WriteString("\nUpcoming tournaments:\n")
	if len(tournaments) == 0 {
		b.WriteString("- none\n")
	}
	for _, t := range tournaments {
		slots := "unlimited slots"
		if t.MaxTeams > 0 {
			slots = fmt.Sprintf("%d/%d teams", t.Registrations, t.MaxTeams)
		}
		fmt.Fprintf(&b, "- %s (%s) on %s, teams of %d, %s", t.Name, t.Game, t.StartsAt.Format("2006-01-02 15:04 MST"), t.TeamSize, slots)
		if t.Prize != "" {
			fmt.Fprintf(&b, ", prize: %s", t.Prize)
		}
		b.WriteString("\n")
	}

	return b.String()
}
