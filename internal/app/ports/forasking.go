package ports

import "context"

type ForAsking interface {
	// Ask asks a yes/no question in a terminal, or answers on its own
	// when dry-run or force is set. Returns false for "no" and true for
	// "yes". Choosing "exit program" exits. ctx should/could hold a
	// slog.Logger set with logger.WithLogger.
	Ask(ctx context.Context, format string, a ...any) bool
	// Input prompts for a line of text. If secret is true the input is
	// not echoed. Returns an error when stdout is not a terminal.
	Input(ctx context.Context, message, help string, secret bool) (string, error)
}
