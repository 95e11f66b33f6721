package cmd

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/tierloop/internal/config"
	"github.com/abhisek/tierloop/internal/store"
)

const timeLayout = "2006-01-02 15:04:05"

var eventsCmd = &cobra.Command{
	Use:   "events <session-id>",
	Short: "Show the recorded timeline of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		id := args[0]

		if snap, _ := cmd.Flags().GetBool("snapshot"); snap {
			latest, err := s.SnapshotRepo().Latest(ctx, id)
			if err != nil {
				return err
			}
			if latest == nil {
				return fmt.Errorf("no snapshot for session %s", id)
			}
			sess, err := latest.Session()
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(sess, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		transitions, err := s.EventRepo().Transitions(ctx, id, store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query transitions: %w", err)
		}
		answers, err := s.EventRepo().Answers(ctx, id, store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query answers: %w", err)
		}
		if len(transitions) == 0 && len(answers) == 0 {
			fmt.Printf("No events for session %s.\n", id)
			return nil
		}

		lines := make([]timelineLine, 0, len(transitions)+len(answers))
		for _, t := range transitions {
			lines = append(lines, timelineLine{
				seq:  t.Sequence,
				at:   t.At.Local().Format(timeLayout),
				text: fmt.Sprintf("%-16s %s → %s (v%d)", t.Op, t.From, t.To, t.Version),
			})
		}
		for _, a := range answers {
			mark := "✓"
			if !a.Correct {
				mark = "✗"
			}
			where := "bundle"
			if a.Round > 0 {
				where = fmt.Sprintf("round %d", a.Round)
			}
			lines = append(lines, timelineLine{
				seq: a.Sequence,
				at:  a.At.Local().Format(timeLayout),
				text: fmt.Sprintf("  answer %s %-14s %-8s %-20s choice %d in %s",
					mark, a.Tier, where, a.LessonID, a.Choice, a.Elapsed),
			})
		}
		slices.SortFunc(lines, func(a, b timelineLine) int { return cmp.Compare(a.seq, b.seq) })

		fmt.Printf("%-6s  %-19s  %s\n", "Seq", "Timestamp", "Event")
		fmt.Println(strings.Repeat("─", 100))
		for _, l := range lines {
			fmt.Printf("%-6d  %-19s  %s\n", l.seq, l.at, l.text)
		}
		return nil
	},
}

type timelineLine struct {
	seq  int64
	at   string
	text string
}

var eventsSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recorded sessions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		created, err := s.EventRepo().Sessions(ctx, store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query sessions: %w", err)
		}
		if len(created) == 0 {
			fmt.Println("No sessions recorded.")
			return nil
		}

		fmt.Printf("%-38s  %-19s  %-24s  %s\n", "Session", "Started", "State", "Version")
		fmt.Println(strings.Repeat("─", 100))
		for _, c := range created {
			state, version := c.To, c.Version
			if latest, err := s.SnapshotRepo().Latest(ctx, c.SessionID); err == nil && latest != nil {
				state, version = latest.State, latest.Version
			}
			fmt.Printf("%-38s  %-19s  %-24s  %d\n",
				c.SessionID, c.At.Local().Format(timeLayout), state, version)
		}
		return nil
	},
}

var eventsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "List recent LLM calls",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		calls, err := s.EventRepo().LLMCalls(cmd.Context(), store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query LLM calls: %w", err)
		}
		if len(calls) == 0 {
			fmt.Println("No LLM calls recorded.")
			return nil
		}

		fmt.Printf("%-6s  %-19s  %-16s  %-28s  %-6s  %-6s  %-7s  %s\n",
			"Seq", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")
		fmt.Println(strings.Repeat("─", 100))
		for _, c := range calls {
			if purpose != "" && c.Purpose != purpose {
				continue
			}
			ok := "✓"
			if !c.Success {
				ok = "✗ " + c.ErrorMessage
			}
			model := c.Model
			if len(model) > 28 {
				model = model[:28]
			}
			fmt.Printf("%-6d  %-19s  %-16s  %-28s  %-6d  %-6d  %-7d  %s\n",
				c.Sequence,
				c.At.Local().Format(timeLayout),
				c.Purpose,
				model,
				c.InputTokens,
				c.OutputTokens,
				c.LatencyMs,
				ok,
			)
		}
		return nil
	},
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd, config.Load().DBPath)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

func init() {
	eventsCmd.Flags().Bool("snapshot", false, "Print the latest stored snapshot instead of the timeline")
	eventsSessionsCmd.Flags().Int("limit", 20, "Maximum number of sessions")
	eventsLLMCmd.Flags().Int("limit", 20, "Maximum number of calls")
	eventsLLMCmd.Flags().String("purpose", "", "Only show calls with this purpose")

	eventsCmd.AddCommand(eventsSessionsCmd)
	eventsCmd.AddCommand(eventsLLMCmd)
}
