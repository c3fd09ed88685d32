package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/quizbd/quizbd-go/internal/attempt"
	"github.com/quizbd/quizbd-go/internal/domain"
	"github.com/quizbd/quizbd-go/internal/event"
)

// take runs one interactive quiz attempt in the terminal. It is the CLI
// counterpart of the web attempt screen: one question at a time, a live
// countdown, and a single submission at the end.
func (cli *commandLine) take(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("take", flag.ExitOnError)
	quizID := fs.String("quiz", "", "quiz ID")
	trial := fs.Bool("trial", false, "take the shortened trial version")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *quizID == "" {
		fs.Usage()
		return errHelp
	}

	if err := cli.app.student.Guard(domain.RoleStudent); err != nil {
		return err
	}

	eng := attempt.New(attempt.Config{
		QuizID:    *quizID,
		Trial:     *trial,
		Fetcher:   cli.app.api,
		Submitter: cli.app.api,
		EventBus:  cli.app.eb,
	})
	defer eng.Close()

	subscribeAttempt(cli.app.eb, eng.ID())

	fmt.Println("Loading quiz...")
	if err := eng.Start(ctx); err != nil {
		return err
	}

	snap := eng.Snapshot()
	if *trial {
		fmt.Printf("Trial attempt: %d questions, %s on the clock.\n", snap.Total, formatTime(snap.RemainingSeconds))
	} else {
		fmt.Printf("%d questions, %s on the clock.\n", snap.Total, formatTime(snap.RemainingSeconds))
	}
	fmt.Println("Commands: 1..N select, n next, p prev, s submit, q quit")

	sc := bufio.NewScanner(os.Stdin)

	for {
		snap = eng.Snapshot()

		switch snap.Phase {
		case attempt.PhaseSubmitted:
			fmt.Println("Submitted. Run `quizbd results` to see your score.")
			return nil
		case attempt.PhaseFailed:
			fmt.Println("The quiz could not be loaded.")
			return nil
		case attempt.PhaseSubmitting:
			// The forced path submits from the timer goroutine; wait for
			// the outcome before prompting again.
			fmt.Println("Submitting...")
		case attempt.PhaseActive:
			printQuestion(snap)
		}

		fmt.Print("> ")
		if !sc.Scan() {
			fmt.Println("\nAttempt abandoned.")
			return nil
		}

		switch line := strings.TrimSpace(strings.ToLower(sc.Text())); line {
		case "n", "next":
			eng.Next()
		case "p", "prev":
			eng.Prev()
		case "s", "submit":
			if err := eng.Submit(ctx); err != nil {
				fmt.Printf("Submit failed: %v\n", err)
			}
		case "q", "quit":
			fmt.Println("Attempt abandoned.")
			return nil
		case "":
		default:
			n, err := strconv.Atoi(line)
			if err != nil {
				fmt.Println("Unknown command.")
				continue
			}
			if err := eng.Select(n - 1); err != nil {
				fmt.Printf("Cannot select: %v\n", err)
			}
		}
	}
}

// subscribeAttempt prints countdown warnings and terminal phase changes
// for one attempt. Events of other attempts are ignored.
func subscribeAttempt(eb *event.Bus, attemptID string) {
	eb.Subscribe(domain.EventNameAttemptTick, func(_ context.Context, e event.Event) error {
		tick, ok := e.(domain.EventAttemptTick)
		if !ok || tick.AttemptID != attemptID {
			return nil
		}

		switch tick.RemainingSeconds {
		case 60, 30, 10:
			fmt.Printf("\n[%s left]\n> ", formatTime(tick.RemainingSeconds))
		case 0:
			fmt.Println("\nTime is up, submitting your answers...")
		}

		return nil
	})

	eb.Subscribe(domain.EventNameAttemptPhase, func(_ context.Context, e event.Event) error {
		ph, ok := e.(domain.EventAttemptPhase)
		if !ok || ph.AttemptID != attemptID {
			return nil
		}

		if ph.Phase == string(attempt.PhaseSubmitted) {
			fmt.Println("\nSubmitted. Press enter to continue.")
		}

		return nil
	})
}

func printQuestion(s attempt.Snapshot) {
	fmt.Printf("\n[%s] Question %d/%d (answered %d)\n",
		formatTime(s.RemainingSeconds), s.Position+1, s.Total, s.Answered)
	fmt.Println(s.Question.Text)

	for i, opt := range s.Question.Options {
		mark := " "
		if s.HasSelected && i == s.Selected {
			mark = "*"
		}
		fmt.Printf("  %d.%s %s\n", i+1, mark, opt)
	}
}

// formatTime renders seconds as m:ss, matching the web timer widget.
func formatTime(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
