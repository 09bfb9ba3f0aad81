// Package rag answers free-text medical questions from passages retrieved out
// of the medical reference index.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/xhad/wellai/internal/models"
	"github.com/xhad/wellai/pkg/llm"
)

// ClarifyReply is returned for queries too short to answer.
const ClarifyReply = "Could you please ask a more specific medical question?"

const (
	DefaultK             = 3
	DefaultHistoryTurns  = 5
	DefaultMinQueryChars = 5
)

const instruction = "You are a highly knowledgeable medical assistant. Provide detailed, accurate, and " +
	"well-explained answers based ONLY on the provided medical context. Use paragraph format. Avoid guessing."

const contextPreamble = "Use the following medical book context to help answer:\n\n"

var cannedReplies = map[string]string{
	"hi":             "Hello! How can I assist you with a medical question today?",
	"hello":          "Hello! How can I assist you?",
	"hey":            "Hey there! Ready when you are.",
	"good morning":   "Good morning! What would you like to know?",
	"good evening":   "Good evening! Ask me any medical question.",
	"good afternoon": "Good afternoon! How can I help?",
	"yo":             "Hello! Medical questions welcome.",
	"what's up":      "Not much! Ready to help with medical queries.",
	"thanks":         "You're welcome! Let me know if you have more questions.",
	"thank you":      "Happy to help!",
	"bye":            "Take care! Stay healthy.",
	"goodbye":        "Goodbye! Let me know if you have more questions.",
}

// Retriever returns the text of the k passages closest to query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
}

// Completer generates a reply for an ordered list of messages.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// Config tunes retrieval and prompt assembly.
type Config struct {
	K             int
	HistoryTurns  int
	MinQueryChars int
}

// Chat is the retrieval augmented chatbot.
type Chat struct {
	retriever Retriever
	completer Completer
	config    Config
	logger    *zap.Logger
}

// New returns a Chat. Zero config values take the defaults.
func New(retriever Retriever, completer Completer, config Config, logger *zap.Logger) *Chat {
	if config.K <= 0 {
		config.K = DefaultK
	}
	if config.HistoryTurns <= 0 {
		config.HistoryTurns = DefaultHistoryTurns
	}
	if config.MinQueryChars <= 0 {
		config.MinQueryChars = DefaultMinQueryChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chat{
		retriever: retriever,
		completer: completer,
		config:    config,
		logger:    logger.Named("rag"),
	}
}

// CannedReply returns the fixed reply for a greeting or courtesy phrase.
func CannedReply(query string) (string, bool) {
	reply, ok := cannedReplies[strings.ToLower(strings.TrimSpace(query))]
	return reply, ok
}

// Respond answers query. Greetings get a canned reply and very short queries a
// request for clarification, neither touching the model. When every provider
// fails the reply is a message describing each failure and err is nil.
// Retrieval failures are returned as errors.
func (c *Chat) Respond(ctx context.Context, query string, history []models.ConversationTurn) (string, error) {
	if reply, ok := CannedReply(query); ok {
		return reply, nil
	}

	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < c.config.MinQueryChars {
		return ClarifyReply, nil
	}

	passages, err := c.retriever.Retrieve(ctx, query, c.config.K)
	if err != nil {
		c.logger.Error("retrieval failed", zap.Error(err))
		return "", fmt.Errorf("rag: retrieve: %w", err)
	}

	messages := BuildMessages(passages, lastTurns(history, c.config.HistoryTurns), query)
	c.logger.Debug("generating answer",
		zap.Int("passages", len(passages)),
		zap.Int("history_turns", len(history)),
		zap.Int("messages", len(messages)))

	answer, err := c.completer.Complete(ctx, messages)
	if err != nil {
		var pe *llm.ProvidersError
		if errors.As(err, &pe) {
			return llm.FormatFailure(pe), nil
		}
		return "", fmt.Errorf("rag: complete: %w", err)
	}
	return answer, nil
}

// BuildMessages assembles the instruction, the retrieved context, the prior
// turns as alternating user and assistant messages, and the new query.
func BuildMessages(passages []string, history []models.ConversationTurn, query string) []llm.Message {
	messages := make([]llm.Message, 0, 3+2*len(history))
	messages = append(messages,
		llm.Message{Role: llm.RoleSystem, Content: instruction},
		llm.Message{Role: llm.RoleSystem, Content: contextPreamble + strings.Join(passages, "\n\n")},
	)
	for _, turn := range history {
		messages = append(messages,
			llm.Message{Role: llm.RoleUser, Content: turn.Question},
			llm.Message{Role: llm.RoleAssistant, Content: turn.Answer},
		)
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: query})
}

func lastTurns(history []models.ConversationTurn, n int) []models.ConversationTurn {
	if len(history) > n {
		return history[len(history)-n:]
	}
	return history
}
