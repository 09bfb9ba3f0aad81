package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ProviderError records why one provider failed.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ProvidersError is returned when every provider in a Fallback failed.
type ProvidersError struct {
	err error
}

func (e *ProvidersError) Error() string {
	return "all providers failed: " + e.err.Error()
}

// Unwrap exposes the individual provider failures to errors.Is and errors.As.
func (e *ProvidersError) Unwrap() []error {
	return multierr.Errors(e.err)
}

// Failures returns one entry per attempted provider, in attempt order.
func (e *ProvidersError) Failures() []*ProviderError {
	var out []*ProviderError
	for _, err := range multierr.Errors(e.err) {
		var pe *ProviderError
		if errors.As(err, &pe) {
			out = append(out, pe)
		}
	}
	return out
}

// Fallback tries chat engines in order and returns the first success.
type Fallback struct {
	engines []*ChatEngine
	logger  *zap.Logger
}

// NewFallback builds a chain over at least one engine.
func NewFallback(logger *zap.Logger, engines ...*ChatEngine) (*Fallback, error) {
	if len(engines) == 0 {
		return nil, errors.New("no chat providers configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{engines: engines, logger: logger.Named("llm")}, nil
}

// Primary returns the first engine of the chain.
func (f *Fallback) Primary() *ChatEngine {
	return f.engines[0]
}

// Names returns provider names in attempt order.
func (f *Fallback) Names() []string {
	names := make([]string, len(f.engines))
	for i, e := range f.engines {
		names[i] = e.Name()
	}
	return names
}

// Complete asks each provider in turn. On total failure the returned error is
// a *ProvidersError. A cancelled context stops the chain early.
func (f *Fallback) Complete(ctx context.Context, messages []Message) (string, error) {
	var errs error
	for _, engine := range f.engines {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		log := f.logger.With(zap.String("provider", engine.Name()), zap.String("model", engine.Model()))
		log.Debug("requesting completion", zap.Int("messages", len(messages)))

		text, err := engine.Complete(ctx, messages)
		if err == nil {
			return text, nil
		}

		log.Warn("provider failed", zap.Error(err))
		errs = multierr.Append(errs, &ProviderError{Provider: engine.Name(), Err: err})
	}
	return "", &ProvidersError{err: errs}
}

// FormatFailure renders a ProvidersError as a user facing message listing every
// provider and its failure.
func FormatFailure(err *ProvidersError) string {
	var sb strings.Builder
	sb.WriteString("All model providers failed. Details:")
	for _, pe := range err.Failures() {
		fmt.Fprintf(&sb, "\n- %s: %v", pe.Provider, pe.Err)
	}
	return sb.String()
}
