// Package translate converts questions between Tamil and English. The LLM
// path is best-effort; on any failure the original text passes through so
// the pipeline can still try extraction on it.
package translate

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tablechat-ai/tablechat/pkg/extract"
	"github.com/tablechat-ai/tablechat/pkg/llm"
)

// Translator converts question text between the two supported languages.
type Translator interface {
	ToEnglish(ctx context.Context, text string) (string, error)
	ToTamil(ctx context.Context, text string) (string, error)
}

const toEnglishSystem = `You translate Tamil business questions to English.
Preserve numbers, dates, table names, and product names exactly.
Respond with the translation only, no explanation.`

const toTamilSystem = `You translate English answers about business data to Tamil.
Preserve numbers, dates, table names, and product names exactly.
Respond with the translation only, no explanation.`

type llmTranslator struct {
	client  llm.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewTranslator returns an LLM-backed translator.
func NewTranslator(client llm.Client, timeout time.Duration, logger *zap.Logger) Translator {
	return &llmTranslator{
		client:  client,
		timeout: timeout,
		logger:  logger.Named("translate"),
	}
}

func (t *llmTranslator) ToEnglish(ctx context.Context, text string) (string, error) {
	if !extract.ContainsTamil(text) {
		return text, nil
	}
	return t.translate(ctx, text, toEnglishSystem)
}

func (t *llmTranslator) ToTamil(ctx context.Context, text string) (string, error) {
	return t.translate(ctx, text, toTamilSystem)
}

func (t *llmTranslator) translate(ctx context.Context, text, system string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	out, err := t.client.Complete(ctx, text, system, 0.0)
	if err != nil {
		t.logger.Warn("Translation failed, passing text through", zap.Error(err))
		return text, llm.ClassifyError(err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return text, nil
	}
	return out, nil
}

// Passthrough is the no-op translator used when no LLM is configured.
type Passthrough struct{}

func (Passthrough) ToEnglish(_ context.Context, text string) (string, error) { return text, nil }
func (Passthrough) ToTamil(_ context.Context, text string) (string, error)   { return text, nil }
