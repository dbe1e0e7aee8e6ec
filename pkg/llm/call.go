package llm

import (
	"context"
	"errors"
	"time"

	"github.com/tablechat-ai/tablechat/pkg/retry"
)

// CallJSON runs one model call under a wall-clock deadline and parses the
// response into T. The result is either the value or a structured *Error
// whose Type tells the caller which fallback applies.
func CallJSON[T any](
	ctx context.Context,
	client Client,
	prompt, systemMessage string,
	temperature float64,
	timeout time.Duration,
) (T, error) {
	var zero T

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	content, err := retry.DoWithResult(callCtx, retry.DefaultConfig(), func() (string, error) {
		return client.Complete(callCtx, prompt, systemMessage, temperature)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return zero, NewError(ErrorTypeTimeout, "call deadline exceeded", true, err)
		}
		return zero, ClassifyError(err)
	}

	return ParseJSONResponse[T](content)
}
