// Command ember is the interactive driver: it submits SQL statements to an
// in-process engine and renders the results.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/emberdb/ember/internal/config"
	"github.com/emberdb/ember/internal/engine"
	"github.com/emberdb/ember/internal/log"
	"github.com/emberdb/ember/internal/sql/executor"
	"github.com/emberdb/ember/internal/types"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	command := flag.String("c", "", "execute one statement and exit")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		cfg = loaded
	}
	log.Configure(cfg.Log)

	db := engine.New(cfg, log.Default())
	defer db.Shutdown()

	if *command != "" {
		result, err := db.Execute(*command)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(engine.ExitCode(err))
		}
		printResult(os.Stdout, result)
		return
	}

	repl(db)
}

func repl(db *engine.Engine) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "ember> ",
		HistoryFile:     historyPath(),
		InterruptPrompt: "^C",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer rl.Close()

	fmt.Println("ember shell — \\q quits, \\plan <sql> explains")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case line == `\q` || line == "quit" || line == "exit":
			return

		case strings.HasPrefix(line, `\plan `):
			plan, err := db.Plan(strings.TrimPrefix(line, `\plan `))
			if err != nil {
				printError(err)
				continue
			}
			color.Cyan("%s", plan)

		default:
			result, err := db.Execute(line)
			if err != nil {
				printError(err)
				continue
			}
			printResult(os.Stdout, result)
		}
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.ember_history"
}

func printError(err error) {
	color.New(color.FgRed).Fprintln(os.Stderr, err)
}

func printResult(w io.Writer, result *executor.Result) {
	if result == nil || result.Table == nil {
		return
	}
	schema := result.Table.Schema()
	if len(schema.Columns) == 0 {
		color.Green("ok")
		return
	}

	widths := make([]int, len(schema.Columns))
	for i, col := range schema.Columns {
		widths[i] = len(col.Name)
	}

	var rows [][]string
	for chunkID := 0; chunkID < result.Table.ChunkCount(); chunkID++ {
		chunk := result.Table.Chunk(types.ChunkID(chunkID))
		for offset := 0; offset < chunk.Size(); offset++ {
			row := make([]string, len(schema.Columns))
			for col := range schema.Columns {
				s := chunk.Value(types.ColumnID(col), types.ChunkOffset(offset)).String()
				row[col] = s
				if len(s) > widths[col] {
					widths[col] = len(s)
				}
			}
			rows = append(rows, row)
		}
	}

	header := color.New(color.FgYellow, color.Bold)
	for i, col := range schema.Columns {
		if i > 0 {
			fmt.Fprint(w, " | ")
		}
		header.Fprintf(w, "%-*s", widths[i], col.Name)
	}
	fmt.Fprintln(w)

	for i := range schema.Columns {
		if i > 0 {
			fmt.Fprint(w, "-+-")
		}
		fmt.Fprint(w, strings.Repeat("-", widths[i]))
	}
	fmt.Fprintln(w)

	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(w, " | ")
			}
			fmt.Fprintf(w, "%-*s", widths[i], cell)
		}
		fmt.Fprintln(w)
	}
	color.New(color.Faint).Fprintf(w, "(%d rows)\n", len(rows))
}
