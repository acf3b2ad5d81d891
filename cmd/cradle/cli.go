package main

import (
	"bufio"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/cradle/internal/config"
	"github.com/hpungsan/cradle/internal/errors"
	"github.com/hpungsan/cradle/internal/ops"
	"github.com/hpungsan/cradle/internal/session"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "cradle",
		Usage:   "Rank baby names by picking favorites",
		Version: Version,
		Commands: []*cli.Command{
			addCmd(db, cfg),
			getCmd(db, cfg),
			listCmd(db, cfg),
			favoritesCmd(db),
			leaderboardCmd(db),
			rankCmd(db, cfg),
			updateCmd(db, cfg),
			favoriteCmd(db, cfg),
			deleteCmd(db, cfg),
			seedCmd(db, cfg),
			resetCmd(db, cfg),
			statsCmd(db),
			exportCmd(db, cfg),
			importCmd(db, cfg),
			playCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// Flags are built per command; urfave/cli keeps parse state on the flag value.
func categoryFlag() cli.Flag {
	return &cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Name category: female|male"}
}

func requiredCategoryFlag() cli.Flag {
	return &cli.StringFlag{Name: "category", Aliases: []string{"c"}, Required: true, Usage: "Name category: female|male"}
}

// refFlags address a name by text when no id argument is given.
func refFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "text", Aliases: []string{"t"}, Usage: "Name text (with --category)"},
		categoryFlag(),
	}
}

func refFromArgs(c *cli.Context) ops.Ref {
	return ops.Ref{
		ID:       c.Args().First(),
		Text:     c.String("text"),
		Category: c.String("category"),
	}
}

// addCmd creates the add command.
func addCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add one or more names",
		ArgsUsage: "<name> [name...]",
		Flags: []cli.Flag{
			requiredCategoryFlag(),
			&cli.IntFlag{Name: "rating", Aliases: []string{"r"}, Usage: "Starting rating (default: initial rating)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("at least one name is required"))
			}

			var rating *int
			if c.IsSet("rating") {
				r := c.Int("rating")
				rating = &r
			}

			if c.NArg() == 1 {
				output, err := ops.Create(c.Context, db, cfg, ops.CreateInput{
					Text:     c.Args().First(),
					Category: c.String("category"),
					Rating:   rating,
				})
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c, output)
			}

			items := make([]ops.CreateInput, 0, c.NArg())
			for _, text := range c.Args().Slice() {
				items = append(items, ops.CreateInput{Text: text, Category: c.String("category"), Rating: rating})
			}
			output, err := ops.CreateMany(c.Context, db, cfg, ops.CreateManyInput{Items: items})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// getCmd creates the get command.
func getCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show a name by ID or text",
		ArgsUsage: "[id]",
		Flags:     refFlags(),
		Action: func(c *cli.Context) error {
			output, err := ops.Fetch(c.Context, db, cfg, refFromArgs(c))
			if err != nil {
				return outputError(err)
			}
			if !output.Found {
				return outputError(errors.NewNotFound(refLabel(c)))
			}
			return outputJSON(c, output.Name)
		},
	}
}

// listCmd creates the list command.
func listCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List names",
		Flags: []cli.Flag{
			categoryFlag(),
			&cli.BoolFlag{Name: "favorites", Aliases: []string{"f"}, Usage: "Only favorites"},
			&cli.StringFlag{Name: "evaluated", Usage: "yes: only rated names; no: only never-rated names"},
			&cli.StringFlag{Name: "prefix", Aliases: []string{"p"}, Usage: "Text prefix"},
			&cli.StringFlag{Name: "sort", Aliases: []string{"s"}, Value: ops.SortText, Usage: "Sort: text|rating|created"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ListInput{
				Category:  c.String("category"),
				Favorites: c.Bool("favorites"),
				Prefix:    c.String("prefix"),
				Sort:      c.String("sort"),
				Limit:     c.Int("limit"),
				Offset:    c.Int("offset"),
			}
			if c.IsSet("evaluated") {
				evaluated, err := parseYesNo(c.String("evaluated"))
				if err != nil {
					return outputError(errors.NewInvalidRequest("evaluated: " + err.Error()))
				}
				input.Evaluated = &evaluated
			}

			output, err := ops.List(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// favoritesCmd creates the favorites command.
func favoritesCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "favorites",
		Usage: "List favorite names in a category",
		Flags: []cli.Flag{requiredCategoryFlag()},
		Action: func(c *cli.Context) error {
			output, err := ops.Favorites(c.Context, db, c.String("category"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// leaderboardCmd creates the leaderboard command.
func leaderboardCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "leaderboard",
		Usage: "Names of a category ranked by rating",
		Flags: []cli.Flag{
			requiredCategoryFlag(),
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Show only the top N"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Leaderboard(c.Context, db, ops.LeaderboardInput{
				Category: c.String("category"),
				Limit:    c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// rankCmd creates the rank command.
func rankCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "rank",
		Usage:     "Show a name's rank within its category",
		ArgsUsage: "[id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "text", Aliases: []string{"t"}, Usage: "Name text"},
			requiredCategoryFlag(),
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Rank(c.Context, db, cfg, refFromArgs(c))
			if err != nil {
				return outputError(err)
			}
			if !output.Found {
				return outputError(errors.NewNotFound(refLabel(c)))
			}
			return outputJSON(c, output)
		},
	}
}

// updateCmd creates the update command.
func updateCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Change a name's rating, evaluation count or favorite flag",
		ArgsUsage: "[id]",
		Flags: append([]cli.Flag{
			&cli.IntFlag{Name: "rating", Aliases: []string{"r"}, Usage: "New rating"},
			&cli.IntFlag{Name: "times-evaluated", Usage: "New evaluation count"},
			&cli.BoolFlag{Name: "favorite", Usage: "Favorite flag (--favorite=false to clear)"},
		}, refFlags()...),
		Action: func(c *cli.Context) error {
			input := ops.UpdateInput{Ref: refFromArgs(c)}
			if c.IsSet("rating") {
				r := c.Int("rating")
				input.Rating = &r
			}
			if c.IsSet("times-evaluated") {
				n := c.Int("times-evaluated")
				input.TimesEvaluated = &n
			}
			if c.IsSet("favorite") {
				f := c.Bool("favorite")
				input.IsFavorite = &f
			}

			output, err := ops.Update(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// favoriteCmd creates the favorite command.
func favoriteCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "favorite",
		Usage:     "Mark a name as favorite",
		ArgsUsage: "[id]",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{Name: "off", Usage: "Clear the favorite flag instead"},
		}, refFlags()...),
		Action: func(c *cli.Context) error {
			favorite := !c.Bool("off")
			output, err := ops.Update(c.Context, db, cfg, ops.UpdateInput{
				Ref:        refFromArgs(c),
				IsFavorite: &favorite,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete names by ID, or one name by text",
		ArgsUsage: "[id...]",
		Flags:     refFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() > 1 {
				output, err := ops.BulkDelete(c.Context, db, ops.BulkDeleteInput{IDs: c.Args().Slice()})
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c, output)
			}

			output, err := ops.Delete(c.Context, db, cfg, refFromArgs(c))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// seedCmd creates the seed command.
func seedCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Load the bundled default names (existing names are skipped)",
		Flags: []cli.Flag{categoryFlag()},
		Action: func(c *cli.Context) error {
			output, err := ops.LoadDefaults(c.Context, db, cfg, c.String("category"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// resetCmd creates the reset command.
func resetCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Clear names, restore defaults, or reset ratings",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Required: true, Usage: "Reset mode: clear|defaults|ratings"},
			categoryFlag(),
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm the reset"},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("yes") {
				return outputError(errors.NewInvalidRequest("reset cannot be undone; pass --yes to confirm"))
			}
			output, err := ops.Reset(c.Context, db, cfg, ops.ResetInput{
				Mode:     ops.ResetMode(c.String("mode")),
				Category: c.String("category"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show per-category counts and rating range",
		Action: func(c *cli.Context) error {
			output, err := ops.Stats(c.Context, db)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export names to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.cradle/exports/<category>-<timestamp>.jsonl)"},
			categoryFlag(),
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, db, cfg, ops.ExportInput{
				Path:     c.String("path"),
				Category: c.String("category"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// importCmd creates the import command.
func importCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import names from a JSONL export",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, db, cfg, ops.ImportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// playCmd creates the interactive play command.
func playCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Rate names interactively: pick favorites from each round",
		Flags: []cli.Flag{
			requiredCategoryFlag(),
			&cli.IntFlag{Name: "rounds", Aliases: []string{"n"}, Usage: "Stop after N submitted rounds (default: until quit)"},
		},
		Action: func(c *cli.Context) error {
			ctx := c.Context
			s, err := ops.NewSession(db, cfg, c.String("category"), *zerolog.Ctx(ctx))
			if err != nil {
				return outputError(err)
			}
			round, err := s.Load(ctx)
			if err != nil {
				return outputError(err)
			}
			return play(c, s, round, c.Int("rounds"))
		},
	}
}

func play(c *cli.Context, s *session.Session, round *session.Round, rounds int) error {
	out := c.App.Writer
	in := bufio.NewScanner(c.App.Reader)

	for played := 0; rounds == 0 || played < rounds; {
		if len(round.Presented) == 0 {
			fmt.Fprintf(out, "No %s names to rate. Add some with 'cradle add' or 'cradle seed'.\n", round.Category)
			return nil
		}
		printRound(out, round)

		fmt.Fprint(out, "> ")
		if !in.Scan() {
			break
		}
		line := strings.ToLower(strings.TrimSpace(in.Text()))
		switch line {
		case "q", "quit":
			return nil
		case "n", "next":
			next, err := s.Load(c.Context)
			if err != nil {
				return outputError(err)
			}
			round = next
			continue
		}

		picks, err := parsePicks(line, len(round.Presented))
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		for _, i := range picks {
			if !s.Select(round.Presented[i-1].ID) {
				fmt.Fprintf(out, "skipped %s: at most %d picks per round\n", round.Presented[i-1].Text, round.MaxSelections)
			}
		}

		result, err := s.Submit(c.Context)
		if result != nil {
			printResult(out, result)
		}
		if err != nil {
			return outputError(err)
		}
		played++
		round = s.Round()
	}
	return in.Err()
}

func printRound(w io.Writer, round *session.Round) {
	fmt.Fprintf(w, "\nPick up to %d %s names (e.g. 1 3), 'n' for new names, 'q' to quit:\n", round.MaxSelections, round.Category)
	for i, n := range round.Presented {
		fmt.Fprintf(w, "%3d. %-20s %5d\n", i+1, n.Text, n.Rating)
	}
}

func printResult(w io.Writer, result *session.SubmitResult) {
	for _, o := range result.Outcomes {
		switch {
		case !o.Updated:
			fmt.Fprintf(w, "  ! %-20s %s\n", o.Text, o.Message)
		case o.Winner:
			fmt.Fprintf(w, "  + %-20s %5d -> %d\n", o.Text, o.Before, o.After)
		default:
			fmt.Fprintf(w, "  - %-20s %5d -> %d\n", o.Text, o.Before, o.After)
		}
	}
}

// Helper functions

// parsePicks parses 1-based positions separated by spaces or commas.
// Duplicates are dropped; order is kept.
func parsePicks(s string, n int) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' })
	picks := make([]int, 0, len(fields))
	seen := make(map[int]bool, len(fields))
	for _, f := range fields {
		i, err := strconv.Atoi(f)
		if err != nil || i < 1 || i > n {
			return nil, fmt.Errorf("invalid pick %q: enter numbers from 1 to %d", f, n)
		}
		if !seen[i] {
			seen[i] = true
			picks = append(picks, i)
		}
	}
	return picks, nil
}

// parseYesNo accepts yes/no and the usual boolean spellings.
func parseYesNo(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("want yes or no, got %q", s)
	}
	return b, nil
}

func refLabel(c *cli.Context) string {
	if id := c.Args().First(); id != "" {
		return id
	}
	return c.String("category") + "/" + c.String("text")
}

// outputJSON writes result to the app's writer as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var cErr *errors.CradleError
	if stderrors.As(err, &cErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", cErr.Code, cErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
