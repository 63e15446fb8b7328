package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ersonp/relman/internal/domain/services"
)

func newSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Start an interactive session on a project",
		Long: `Starts a shell on the project. Every command of relman is available
without the "relman" prefix and without --project. The session keeps a
history of the changes made in it:

  history           list the changes made in this session
  rollback [INDEX]  reverse the change at INDEX
  exit              leave the session (the history is discarded)`,
		Args: cobra.NoArgs,
		RunE: runSession,
	}
}

func runSession(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	d, err := openDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	activeSession = d
	defer func() { activeSession = nil }()

	d.logger.Info("session started")

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(out, "Project %s. Type 'help' for commands, 'exit' to leave.\n", d.Project)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 4096), MaxLineLength)

	for {
		if ctx.Err() != nil {
			return nil
		}

		fmt.Fprint(out, SessionPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}

		args, err := splitWords(scanner.Text())
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			break
		}

		sub := newRootCmd(true)
		sub.SetArgs(args)
		sub.SetIn(cmd.InOrStdin())
		sub.SetOut(out)
		sub.SetErr(errOut)
		if err := sub.ExecuteContext(ctx); err != nil {
			reportError(errOut, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	d.logger.Info("session ended", zap.Int("history_entries", len(d.HistoryHandler.HandleList())))
	return nil
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List the changes made in this session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				printHistory(cmd.OutOrStdout(), d.HistoryHandler.HandleList())
				return nil
			})
		},
	}
}

func newRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback [INDEX]",
		Short: "Reverse a change from the history",
		Long:  "Reverses the change at INDEX (see 'history'). The rollback itself is not recorded.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRollback,
	}
}

func runRollback(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	return withDeps(ctx, func(d *Deps) error {
		var index int
		switch {
		case len(args) > 0:
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid history index %q", args[0])
			}
			index = n
		case isInteractive():
			n, err := promptHistoryIndex(d.HistoryHandler.HandleList())
			if err != nil {
				return err
			}
			index = n
		default:
			return fmt.Errorf("specify a history index")
		}

		result, err := d.HistoryHandler.HandleRollback(ctx, index)
		if err != nil {
			return fmt.Errorf("rolling back: %w", err)
		}

		switch result.Effect {
		case services.EffectRemoved:
			fmt.Fprintln(out, success("Removed relation %s", result.RelationID))
		case services.EffectRestored:
			fmt.Fprintln(out, success("Restored relation %s", result.RelationID))
		case services.EffectReplaced:
			fmt.Fprintln(out, success("Reverted relation %s", result.RelationID))
		default:
			fmt.Fprintln(out, "Nothing to roll back; the project already matches.")
		}

		fmt.Fprintln(out, "Relations:")
		printRelationItems(out, result.Relations)
		return nil
	})
}

// reportError prints a command error, treating an aborted form as a
// cancellation.
func reportError(w io.Writer, err error) {
	if errors.Is(err, errCancelled) {
		fmt.Fprintln(w, "Cancelled.")
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}

// splitWords splits a session line into arguments. Words are separated by
// whitespace; single and double quotes group words and a backslash escapes
// the next character outside single quotes.
func splitWords(line string) ([]string, error) {
	var (
		words   []string
		current strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case unicode.IsSpace(r):
			if inWord {
				words = append(words, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}

	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inWord {
		words = append(words, current.String())
	}
	return words, nil
}
