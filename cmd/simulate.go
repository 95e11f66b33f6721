package cmd

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/tierloop/internal/session"
	"github.com/abhisek/tierloop/internal/simulate"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Play a session with a scripted learner and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		accuracy, _ := cmd.Flags().GetFloat64("accuracy")
		if accuracy < 0 || accuracy > 1 {
			return fmt.Errorf("--accuracy must be within [0, 1], got %g", accuracy)
		}
		seed, _ := cmd.Flags().GetUint64("seed")
		name, _ := cmd.Flags().GetString("name")

		rt, err := setup(cmd, setupOptions{})
		if err != nil {
			return err
		}
		defer rt.Close()

		l := &simulate.Learner{Accuracy: accuracy, Log: rt.log}
		if seed != 0 {
			l.Rand = rand.New(rand.NewPCG(seed, seed))
		}
		res, err := l.Run(cmd.Context(), rt.service, session.Identity{Name: name})
		if err != nil {
			return err
		}

		fmt.Printf("Session %s\n\n", res.SessionID)
		for _, s := range res.Steps {
			fmt.Printf("  %-16s → %s\n", s.Op, s.State)
		}
		fmt.Println()
		printReport(res.Report)
		return nil
	},
}

func printReport(r session.Report) {
	sep := strings.Repeat("─", 60)
	fmt.Println("Report")
	fmt.Println(sep)
	for _, t := range r.Tiers {
		verdict := "passed"
		if !t.Passed {
			verdict = "failed"
		}
		fmt.Printf("%-14s bundle %d/%d %s", t.Tier.DisplayName(), t.BundleScore, t.BundleTotal, verdict)
		if t.RemediationPassed != nil {
			fmt.Printf(", %d rounds %d/%d (passed: %t)", t.Rounds, t.RemediationCorrect, t.RemediationTotal, *t.RemediationPassed)
		}
		fmt.Println()
	}
	fmt.Println(sep)
	for _, l := range r.Lessons {
		flag := ""
		switch {
		case l.Strong:
			flag = "strong"
		case l.Weak:
			flag = "weak"
		}
		fmt.Printf("%-28s %2d/%-2d %4.0f%%  %s\n", l.Name, l.Correct, l.Count, l.Accuracy*100, flag)
	}
	fmt.Println(sep)
	fmt.Printf("Overall: %d/%d (%.0f%%)\n", r.Overall.Correct, r.Overall.Count, r.Overall.Accuracy*100)
	for _, rec := range r.Recommendations {
		fmt.Println("  •", rec)
	}
}

func init() {
	simulateCmd.Flags().Float64("accuracy", 0.7, "Probability of answering each question correctly")
	simulateCmd.Flags().Uint64("seed", 0, "Random seed (0 picks one)")
	simulateCmd.Flags().String("name", "simulated learner", "Learner name")
}
