package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cybergraph/backend/internal/graph"
	"cybergraph/backend/pkg/logger"
)

// Completer is the LLM call the generator depends on.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMsg string) (string, error)
}

const systemPrompt = "You are a cybersecurity expert analyzing a knowledge graph. " +
	"Answer the user's question explicitly based on the provided context. " +
	"If the context does not contain enough information, state that you don't know based on the graph. " +
	"Do not hallucinate outside knowledge unless explicitly clarifying."

// Generator synthesises answers from retrieved graph context.
type Generator struct {
	llm    Completer
	model  string
	logger *zap.Logger
}

// NewGenerator creates a generator. model is only used in the failure message.
func NewGenerator(llm Completer, model string) *Generator {
	return &Generator{
		llm:    llm,
		model:  model,
		logger: logger.Named("generator"),
	}
}

// FailureMessage is returned in place of an answer when the LLM cannot be reached.
func (g *Generator) FailureMessage() string {
	return fmt.Sprintf("Error: Unable to generate response. Check if Local LLM (%s) is running.", g.model)
}

// Generate answers question using only the fragment texts as context.
// LLM failures produce FailureMessage rather than an error.
func (g *Generator) Generate(ctx context.Context, question string, fragments []graph.Fragment) string {
	texts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		texts = append(texts, f.Text)
	}

	prompt := fmt.Sprintf("Context from Knowledge Graph:\n%s\n\nUser Question:\n%s\n\nExpert Answer:",
		strings.Join(texts, "\n"), question)

	reply, err := g.llm.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		g.logger.Error("Answer generation failed",
			zap.Error(err),
			zap.String("model", g.model),
			zap.Int("fragments", len(fragments)),
		)
		return g.FailureMessage()
	}
	return strings.TrimSpace(reply)
}
