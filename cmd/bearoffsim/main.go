// bearoffsim - Monte Carlo simulator for the backgammon bear-off
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/yourusername/bearoffsim/internal/config"
	"github.com/yourusername/bearoffsim/pkg/dice"
	"github.com/yourusername/bearoffsim/pkg/endgame"
)

var printer = message.NewPrinter(language.English)

func main() {
	// No command runs the standard comparison.
	if len(os.Args) < 2 {
		cmdRun(nil)
		return
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "run":
		cmdRun(args)
	case "play":
		cmdPlay(args)
	case "decide":
		cmdDecide(args)
	case "exact":
		cmdExact(args)
	case "policies":
		cmdPolicies()
	case "help", "-h", "--help":
		printUsage()
	default:
		if strings.HasPrefix(command, "-") {
			cmdRun(os.Args[1:])
			return
		}
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`bearoffsim - Bear-off Monte Carlo simulator

Usage: bearoffsim [command] [options]

Commands:
  run       Compare policies over many random games (default)
  play      Play one game and print its turn log
  decide    Show the moves a policy plays for a roll
  exact     Exact turn distribution of a deterministic policy
  policies  List the move policies

Use "bearoffsim <command> -h" for command-specific help.

Positions:
  A position is six comma-separated checker counts, point 1 (furthest
  from the exit) first, e.g. "3,2,1,4,0,5", or a bear-off position ID.`)
}

// newSource returns the dice source for seed. With lcg set the portable
// LCG is used and seed 0 is a valid seed; otherwise seed 0 draws a fresh
// seed.
func newSource(seed int64, lcg bool) (dice.Source, int64, error) {
	if lcg {
		return dice.NewLCG(seed), seed, nil
	}
	return dice.NewSource(seed)
}

func parseState(s string) (endgame.State, error) {
	parts := strings.Split(s, ",")
	if len(parts) != endgame.Points {
		return endgame.State{}, fmt.Errorf("position needs %d comma-separated counts", endgame.Points)
	}
	var st endgame.State
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return endgame.State{}, fmt.Errorf("bad count %q for point %d", p, i+1)
		}
		st[i] = n
	}
	return st, nil
}

// startBoard builds a board from -state, -position or -gnubg, or draws one
// from src.
func startBoard(state string, position int, gnubgID string, src dice.Source) (*endgame.Board, error) {
	switch {
	case state != "":
		s, err := parseState(state)
		if err != nil {
			return nil, err
		}
		return endgame.NewBoardFromState(s, src)
	case position >= 0:
		return endgame.NewBoardFromPosition(position, src)
	case gnubgID != "":
		return endgame.NewBoardFromGnubgID(gnubgID, src)
	}
	return endgame.NewBoard(src)
}

func parseDice(diceStr string) (dice.Roll, error) {
	parts := strings.Split(diceStr, ",")
	if len(parts) != 2 {
		parts = strings.Split(diceStr, "-")
	}
	if len(parts) != 2 {
		return dice.Roll{}, fmt.Errorf("dice should be in format '3,1' or '3-1'")
	}

	d1, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	d2, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	roll := dice.Roll{d1, d2}
	if err1 != nil || err2 != nil || !roll.Valid() {
		return dice.Roll{}, fmt.Errorf("dice values must be 1-6")
	}
	return roll, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	n := fs.Int("n", 100000, "Number of games per policy")
	policies := fs.String("policies", strings.Join(endgame.DefaultPolicies, ","), "Comma-separated policies to compare")
	seed := fs.Int64("seed", 0, "Random seed (0 = random)")
	lcg := fs.Bool("lcg", false, "Use the portable LCG dice source")
	maxTurns := fs.Int("max-turns", 0, "Abandon games longer than this (0 = no limit)")
	progress := fs.Bool("progress", false, "Report progress on stderr")
	details := fs.Bool("details", false, "Print quantiles and timing after each policy")
	fs.Parse(args)

	src, usedSeed, err := newSource(*seed, *lcg)
	if err != nil {
		config.Exitf("Error: %v", err)
	}
	if *details {
		printer.Printf("Seed %d, %d games per policy\n\n", usedSeed, *n)
	}

	for _, name := range splitList(*policies) {
		p, info, err := endgame.LookupPolicy(name, src)
		if err != nil {
			config.Exitf("Error: %v", err)
		}

		opts := endgame.DriverOptions{MaxTurns: *maxTurns, DiscardLogs: true}
		if *progress {
			opts.Progress = func(pr endgame.Progress) {
				printer.Fprintf(os.Stderr, "\r%s: %d/%d games, mean %.3f ± %.3f",
					info.Label, pr.Completed, pr.Total, pr.Mean, pr.CI95)
				if pr.Completed == pr.Total {
					fmt.Fprintln(os.Stderr)
				}
			}
		}
		drv, err := endgame.NewDriver(src, opts)
		if err != nil {
			config.Exitf("Error: %v", err)
		}

		start := time.Now()
		result, err := drv.Run(*n, p)
		if err != nil {
			config.Exitf("Error running %s: %v", info.Label, err)
		}
		elapsed := time.Since(start)

		s := result.Summary()
		fmt.Printf("%s:\nmean: %v\nstd: %v\n", info.Label, s.Mean, s.StdDev)
		if *details {
			printer.Printf("  games %d in %.1fs, 95%% CI ±%.4f\n", s.N, elapsed.Seconds(), s.CI95)
			printer.Printf("  min %d, median %.0f, p90 %.0f, max %d\n\n", s.Min, s.Median, s.P90, s.Max)
		}
	}
}

func cmdPlay(args []string) {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	policy := fs.String("policy", "pip-matching", "Move policy")
	state := fs.String("state", "", "Start position as six counts (default: random)")
	position := fs.Int("position", -1, "Start position ID (default: random)")
	gnubgID := fs.String("gnubg", "", "Start position as a GNU Backgammon position ID")
	seed := fs.Int64("seed", 0, "Random seed (0 = random)")
	lcg := fs.Bool("lcg", false, "Use the portable LCG dice source")
	fs.Parse(args)

	src, usedSeed, err := newSource(*seed, *lcg)
	if err != nil {
		config.Exitf("Error: %v", err)
	}
	p, info, err := endgame.LookupPolicy(*policy, src)
	if err != nil {
		config.Exitf("Error: %v", err)
	}
	b, err := startBoard(*state, *position, *gnubgID, src)
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	start := b.State()
	sim := endgame.Simulator{Dice: src}
	game, err := sim.Play(b, p)
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	fmt.Printf("%s, seed %d, start %s\n", info.Label, usedSeed, start.GnubgID())
	for i, entry := range game.Log {
		moves := make([]string, len(entry.Moves))
		for j, m := range entry.Moves {
			moves[j] = m.String()
		}
		fmt.Printf("%3d. %v  %s  %s\n", i+1, entry.State, entry.Dice, strings.Join(moves, " "))
	}
	fmt.Printf("All checkers off in %d turns\n", game.Turns)
}

func cmdDecide(args []string) {
	fs := flag.NewFlagSet("decide", flag.ExitOnError)
	policy := fs.String("policy", "pip-matching", "Move policy")
	state := fs.String("state", "", "Position as six counts")
	position := fs.Int("position", -1, "Position ID")
	gnubgID := fs.String("gnubg", "", "GNU Backgammon position ID")
	diceFlag := fs.String("dice", "", "Dice roll (e.g., '3,1' or '3-1')")
	seed := fs.Int64("seed", 0, "Random seed for the random policy (0 = random)")
	fs.Parse(args)

	if *state == "" && *position < 0 && *gnubgID == "" {
		fmt.Fprintln(os.Stderr, "Error: position required")
		fmt.Fprintln(os.Stderr, "Usage: bearoffsim decide -state <counts> -dice <d1,d2> [-policy name]")
		os.Exit(1)
	}
	if *diceFlag == "" {
		fmt.Fprintln(os.Stderr, "Error: dice required")
		fmt.Fprintln(os.Stderr, "Usage: bearoffsim decide -state <counts> -dice <d1,d2> [-policy name]")
		os.Exit(1)
	}

	roll, err := parseDice(*diceFlag)
	if err != nil {
		config.Exitf("Error: %v", err)
	}
	src, _, err := dice.NewSource(*seed)
	if err != nil {
		config.Exitf("Error: %v", err)
	}
	p, info, err := endgame.LookupPolicy(*policy, src)
	if err != nil {
		config.Exitf("Error: %v", err)
	}
	b, err := startBoard(*state, *position, *gnubgID, nil)
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	fmt.Printf("%s, position %v (ID %d, %s), roll %s\n", info.Label, b.State(), b.Position(), b.State().GnubgID(), roll)
	moves := p.Decide(b.State(), roll)
	if len(moves) == 0 {
		fmt.Println("  no move")
		return
	}
	for i, m := range moves {
		if err := b.Move(m.Start, m.Die); err != nil {
			config.Exitf("Error: move %d (%s): %v", i+1, m, err)
		}
		fmt.Printf("  %d. %-6s -> %v\n", i+1, m, b.State())
	}
	fmt.Printf("Borne off: %d\n", b.BorneOff())
}

func cmdExact(args []string) {
	fs := flag.NewFlagSet("exact", flag.ExitOnError)
	policies := fs.String("policies", "furthest-first,pip-matching", "Comma-separated deterministic policies")
	state := fs.String("state", "", "Position as six counts (default: random start)")
	position := fs.Int("position", -1, "Position ID (default: random start)")
	gnubgID := fs.String("gnubg", "", "GNU Backgammon position ID (default: random start)")
	fs.Parse(args)

	var start *endgame.State
	if *state != "" || *position >= 0 || *gnubgID != "" {
		b, err := startBoard(*state, *position, *gnubgID, nil)
		if err != nil {
			config.Exitf("Error: %v", err)
		}
		s := b.State()
		start = &s
	}

	for _, name := range splitList(*policies) {
		info, err := endgame.PolicyByName(name)
		if err != nil {
			config.Exitf("Error: %v", err)
		}
		if !info.Deterministic {
			config.Exitf("Error: policy %q makes random choices", name)
		}
		if info.Lenient {
			config.Exitf("Error: policy %q plays lenient moves", name)
		}
		p, _, err := endgame.LookupPolicy(name, nil)
		if err != nil {
			config.Exitf("Error: %v", err)
		}

		e := endgame.NewExact(p)
		var d endgame.Distribution
		if start != nil {
			d, err = e.Distribution(*start)
		} else {
			d, err = e.RandomStart()
		}
		if err != nil {
			config.Exitf("Error: %s: %v", info.Label, err)
		}

		mean, std := d.Moments()
		fmt.Printf("%s:\nmean: %v\nstd: %v\n", info.Label, mean, std)
		for turns, prob := range d {
			if prob >= 0.00005 {
				printer.Printf("  %2d turns  %7.4f%%\n", turns, 100*prob)
			}
		}
	}
}

func cmdPolicies() {
	for _, info := range endgame.Policies() {
		kind := "random"
		if info.Deterministic {
			kind = "deterministic"
		}
		if info.Lenient {
			kind += ", lenient"
		}
		fmt.Printf("%-20s %-30s %-22s %s\n", info.Name, info.Label, kind, info.Description)
	}
}
