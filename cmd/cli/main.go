package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nickyhof/KivDB"
	"github.com/nickyhof/KivDB/config"
	"github.com/nickyhof/KivDB/core"
	"github.com/nickyhof/KivDB/db"
	"github.com/nickyhof/KivDB/ps"
	"golang.org/x/term"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

const maxHistory = 1000

// CLI holds the CLI state
type CLI struct {
	engine      *db.Engine
	out         io.Writer
	color       bool
	history     []string
	historyFile string
}

func main() {
	dbPath := flag.String("db", "", "Path to the data file (memory when empty)")
	withHistory := flag.Bool("history", true, "Keep checkpoint history next to the data file")
	file := flag.String("file", "", "KivQL file to execute (non-interactive)")
	userName := flag.String("name", "kivdb", "Author name for checkpoints")
	userEmail := flag.String("email", "cli@kivdb.local", "Author email for checkpoints")
	logLevel := flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flag.Parse()

	logger, closer, err := config.NewLogger(config.LoggingConfig{Level: *logLevel, Format: "text", Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))

	cli := &CLI{
		out:         os.Stdout,
		color:       term.IsTerminal(int(os.Stdout.Fd())),
		historyFile: getHistoryPath(),
	}

	if interactive && *file == "" {
		cli.printBanner()
	}

	instance, err := openInstance(*dbPath, *withHistory)
	if err != nil {
		cli.errorf("Error: %v", err)
		os.Exit(1)
	}
	defer instance.Close()

	if *dbPath == "" {
		cli.successf("Using memory persistence")
	} else {
		cli.successf("Using file persistence: %s", *dbPath)
	}

	cli.engine = instance.Engine(core.Identity{Name: *userName, Email: *userEmail}, db.WithLogger(logger))
	cli.loadHistory()

	if *file != "" {
		if err := cli.importFile(*file); err != nil {
			cli.errorf("Error importing file: %v", err)
			os.Exit(1)
		}
		return
	}

	cli.run(os.Stdin, interactive)
	cli.saveHistory()
}

func openInstance(path string, history bool) (*KivDB.Instance, error) {
	if path == "" {
		return KivDB.OpenMemory()
	}
	return KivDB.OpenFile(path, history)
}

func (cli *CLI) paint(color, s string) string {
	if !cli.color {
		return s
	}
	return color + s + ResetColor
}

func (cli *CLI) successf(format string, args ...any) {
	fmt.Fprintln(cli.out, cli.paint(SuccessColor, fmt.Sprintf(format, args...)))
}

func (cli *CLI) errorf(format string, args ...any) {
	fmt.Fprintln(cli.out, cli.paint(ErrorColor, fmt.Sprintf(format, args...)))
}

func (cli *CLI) printBanner() {
	fmt.Fprintln(cli.out)
	bannerWidth := 39 // inner width of the banner box
	versionLine := fmt.Sprintf("KivDB v%s", Version)
	padding := max(bannerWidth-len(versionLine)-2, 0) // -2 for "  " margins
	leftPad := padding / 2
	rightPad := padding - leftPad

	bold := func(s string) string { return cli.paint(BoldColor+PromptColor, s) }
	fmt.Fprintln(cli.out, bold("╔═══════════════════════════════════════╗"))
	fmt.Fprintln(cli.out, bold(fmt.Sprintf("║ %*s%s%*s ║", leftPad, "", versionLine, rightPad, "")))
	fmt.Fprintln(cli.out, bold("║   Single-file Key-Value Store         ║"))
	fmt.Fprintln(cli.out, bold("╚═══════════════════════════════════════╝"))
	fmt.Fprintln(cli.out)
	fmt.Fprintln(cli.out, "Type .help for commands, .quit to exit")
	fmt.Fprintln(cli.out)
}

// run reads statements terminated by ';' until EOF or .quit.
func (cli *CLI) run(in io.Reader, interactive bool) {
	reader := bufio.NewReader(in)
	var buffer strings.Builder

	for {
		if interactive {
			fmt.Fprint(cli.out, cli.getPrompt(buffer.Len() > 0))
		}

		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			if buffer.Len() > 0 {
				cli.executeStatement(buffer.String())
			}
			if interactive {
				fmt.Fprintln(cli.out)
				cli.successf("Goodbye!")
			}
			return
		}

		input = strings.TrimRight(input, "\r\n")
		if strings.TrimSpace(input) == "" {
			continue
		}

		// Dot-commands only apply outside a pending statement.
		if buffer.Len() == 0 && strings.HasPrefix(strings.TrimSpace(input), ".") {
			if quit := cli.handleCommand(input); quit {
				return
			}
			continue
		}

		buffer.WriteString(input)

		statements, rest := splitComplete(buffer.String())
		buffer.Reset()
		if strings.TrimSpace(rest) != "" {
			buffer.WriteString(rest)
			buffer.WriteString("\n")
		}

		for _, statement := range statements {
			cli.executeStatement(statement)
		}
	}
}

func (cli *CLI) executeStatement(statement string) {
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return
	}

	cli.addToHistory(statement + ";")

	result, err := cli.engine.Execute(statement)
	if err != nil {
		cli.errorf("✗ Error: %s", db.DescribeError(err))
		return
	}
	result.Render(cli.out)
}

func (cli *CLI) getPrompt(multiLine bool) string {
	if multiLine {
		return cli.paint(PromptColor, "   ...>") + " "
	}
	return cli.paint(PromptColor, "kivdb>") + " "
}

// handleCommand runs a dot-command and reports whether the CLI should exit.
func (cli *CLI) handleCommand(input string) bool {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) == 0 {
		return false
	}

	args := parts[1:]
	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		cli.successf("Goodbye!")
		cli.saveHistory()
		return true

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".keys":
		cli.showKeys()

	case ".count":
		count, err := cli.engine.Count()
		if err != nil {
			cli.errorf("✗ Error: %v", err)
			break
		}
		fmt.Fprintf(cli.out, "%d\n", count)

	case ".stats":
		cli.showStats()

	case ".checkpoint":
		txn, err := cli.engine.Checkpoint(strings.Join(args, " "))
		if err != nil {
			cli.errorf("✗ Error: %v", err)
			break
		}
		cli.successf("✓ Checkpoint %s", shortId(txn.Id))

	case ".log":
		cli.showLog()

	case ".snapshot":
		if len(args) != 1 {
			cli.errorf("✗ Usage: .snapshot <name>")
			break
		}
		if err := cli.engine.Snapshot(args[0]); err != nil {
			cli.errorf("✗ Error: %v", err)
			break
		}
		cli.successf("✓ Snapshot %s created", args[0])

	case ".recover":
		if len(args) != 1 {
			cli.errorf("✗ Usage: .recover <name>")
			break
		}
		if err := cli.engine.Recover(args[0]); err != nil {
			cli.errorf("✗ Error: %v", err)
			break
		}
		cli.successf("✓ Recovered snapshot %s", args[0])

	case ".backup":
		if len(args) != 1 {
			cli.errorf("✗ Usage: .backup <path|file://|s3://bucket/key>")
			break
		}
		n, err := cli.engine.Backup(context.Background(), args[0])
		if err != nil {
			cli.errorf("✗ Error: %v", err)
			break
		}
		cli.successf("✓ Backup written to %s (%d bytes)", args[0], n)

	case ".restore":
		if len(args) != 1 {
			cli.errorf("✗ Usage: .restore <path|file://|s3://|http(s)://>")
			break
		}
		if err := cli.engine.RestoreBackup(context.Background(), args[0]); err != nil {
			cli.errorf("✗ Error: %v", err)
			break
		}
		cli.successf("✓ Restored from %s", args[0])

	case ".remote":
		cli.handleRemote(args)

	case ".push":
		cli.push(args)

	case ".fetch":
		cli.fetch(args)

	case ".import":
		if len(args) != 1 {
			cli.errorf("✗ Usage: .import <file.kql>")
			break
		}
		if err := cli.importFile(args[0]); err != nil {
			cli.errorf("✗ Error: %v", err)
		}

	case ".clear", ".cls":
		fmt.Fprint(cli.out, "\033[H\033[2J")

	case ".history":
		cli.printHistory()

	case ".version":
		fmt.Fprintf(cli.out, "KivDB version %s\n", Version)

	default:
		cli.errorf("✗ Unknown command: %s (type .help for commands)", parts[0])
	}

	return false
}

func (cli *CLI) printHelp() {
	heading := func(s string) string { return cli.paint(BoldColor+PromptColor, s) }

	fmt.Fprintln(cli.out)
	fmt.Fprintln(cli.out, heading("Special Commands:"))
	fmt.Fprintln(cli.out, "  .help, .h                 Show this help message")
	fmt.Fprintln(cli.out, "  .quit, .exit              Exit the CLI")
	fmt.Fprintln(cli.out, "  .keys                     List all keys")
	fmt.Fprintln(cli.out, "  .count                    Count keys")
	fmt.Fprintln(cli.out, "  .stats                    Show store statistics")
	fmt.Fprintln(cli.out, "  .checkpoint [message]     Record a checkpoint in history")
	fmt.Fprintln(cli.out, "  .log                      List checkpoints, newest first")
	fmt.Fprintln(cli.out, "  .snapshot <name>          Tag the latest checkpoint")
	fmt.Fprintln(cli.out, "  .recover <name>           Restore the data file from a snapshot")
	fmt.Fprintln(cli.out, "  .backup <target>          Export the data file (path, file://, s3://; .zst compresses)")
	fmt.Fprintln(cli.out, "  .restore <source>         Replace the data file from a backup")
	fmt.Fprintln(cli.out, "  .remote add <name> <url>  Add a history remote")
	fmt.Fprintln(cli.out, "  .remote list              List history remotes")
	fmt.Fprintln(cli.out, "  .remote remove <name>     Remove a history remote")
	fmt.Fprintln(cli.out, "  .push [remote] [token]    Push history and snapshots")
	fmt.Fprintln(cli.out, "  .fetch [remote] [token]   Fetch history and snapshots")
	fmt.Fprintln(cli.out, "  .import <file>            Execute statements from a file")
	fmt.Fprintln(cli.out, "  .history                  Show command history")
	fmt.Fprintln(cli.out, "  .clear                    Clear the screen")
	fmt.Fprintln(cli.out, "  .version                  Show version info")
	fmt.Fprintln(cli.out)
	fmt.Fprintln(cli.out, heading("Statements:"))
	fmt.Fprintln(cli.out, `  SET "key" TO "value";`)
	fmt.Fprintln(cli.out, `  GET "key";`)
	fmt.Fprintln(cli.out, `  DELETE "key";`)
	fmt.Fprintln(cli.out)
}

func (cli *CLI) showKeys() {
	keys, err := cli.engine.Keys()
	if err != nil {
		cli.errorf("✗ Error: %v", err)
		return
	}
	if len(keys) == 0 {
		fmt.Fprintln(cli.out, "(empty)")
		return
	}

	table := db.NewTable(cli.out)
	table.Header("key")
	for _, key := range keys {
		table.Row(key)
	}
	table.Render()
}

func (cli *CLI) showStats() {
	stats, err := cli.engine.Stats()
	if err != nil {
		cli.errorf("✗ Error: %v", err)
		return
	}

	table := db.NewTable(cli.out)
	table.Header("stat", "value")
	table.Row("keys", strconv.Itoa(stats.Keys))
	table.Row("size", strconv.FormatInt(stats.SizeBytes, 10)+" bytes")
	table.Row("history", strconv.FormatBool(stats.HistoryEnabled))
	if stats.LatestTransaction.Id != "" {
		table.Row("checkpoint", shortId(stats.LatestTransaction.Id))
	}
	table.Render()
}

func (cli *CLI) showLog() {
	transactions, err := cli.engine.History()
	if err != nil {
		cli.errorf("✗ Error: %v", err)
		return
	}
	if len(transactions) == 0 {
		fmt.Fprintln(cli.out, "No checkpoints")
		return
	}

	table := db.NewTable(cli.out)
	table.Header("id", "when", "author", "message")
	for _, txn := range transactions {
		table.Row(shortId(txn.Id), txn.When.Format(time.DateTime), txn.Author, strings.TrimSpace(txn.Message))
	}
	table.Render()
}

func (cli *CLI) handleRemote(args []string) {
	if len(args) == 0 {
		cli.errorf("✗ Usage: .remote add|list|remove")
		return
	}

	switch strings.ToLower(args[0]) {
	case "add":
		if len(args) != 3 {
			cli.errorf("✗ Usage: .remote add <name> <url>")
			return
		}
		if err := cli.engine.AddRemote(args[1], args[2]); err != nil {
			cli.errorf("✗ Error: %v", err)
			return
		}
		cli.successf("✓ Remote %s added", args[1])

	case "list":
		remotes, err := cli.engine.ListRemotes()
		if err != nil {
			cli.errorf("✗ Error: %v", err)
			return
		}
		if len(remotes) == 0 {
			fmt.Fprintln(cli.out, "No remotes")
			return
		}
		table := db.NewTable(cli.out)
		table.Header("name", "url")
		for _, remote := range remotes {
			table.Row(remote.Name, strings.Join(remote.URLs, ", "))
		}
		table.Render()

	case "remove":
		if len(args) != 2 {
			cli.errorf("✗ Usage: .remote remove <name>")
			return
		}
		if err := cli.engine.RemoveRemote(args[1]); err != nil {
			cli.errorf("✗ Error: %v", err)
			return
		}
		cli.successf("✓ Remote %s removed", args[1])

	default:
		cli.errorf("✗ Unknown remote command: %s", args[0])
	}
}

// remoteArgs reads the optional [remote] [token] arguments of .push and .fetch.
func remoteArgs(args []string) (string, *ps.RemoteAuth) {
	remote := ps.DefaultRemote
	if len(args) > 0 {
		remote = args[0]
	}

	var auth *ps.RemoteAuth
	if len(args) > 1 {
		auth = &ps.RemoteAuth{Type: ps.AuthTypeToken, Token: args[1]}
	}
	return remote, auth
}

func (cli *CLI) push(args []string) {
	remote, auth := remoteArgs(args)
	if err := cli.engine.Push(remote, auth); err != nil {
		cli.errorf("✗ Error: %v", err)
		return
	}
	cli.successf("✓ Pushed to %s", remote)
}

func (cli *CLI) fetch(args []string) {
	remote, auth := remoteArgs(args)
	if err := cli.engine.Fetch(remote, auth); err != nil {
		cli.errorf("✗ Error: %v", err)
		return
	}
	cli.successf("✓ Fetched from %s (use .recover to switch to a snapshot)", remote)
}

func shortId(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (cli *CLI) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	if len(cli.history) > maxHistory {
		cli.history = cli.history[len(cli.history)-maxHistory:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Fprintln(cli.out, "No command history")
		return
	}

	start := max(len(cli.history)-20, 0)
	for i := start; i < len(cli.history); i++ {
		fmt.Fprintf(cli.out, "  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".kivdb_history")
}

func (cli *CLI) loadHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cli.history = append(cli.history, scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	start := max(len(cli.history)-maxHistory, 0)
	for i := start; i < len(cli.history); i++ {
		_, _ = file.WriteString(cli.history[i] + "\n")
	}
}

// importFile reads and executes statements from a file
func (cli *CLI) importFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	statements := splitStatements(string(data))

	successCount := 0
	errorCount := 0

	for i, stmt := range statements {
		result, err := cli.engine.Execute(stmt)
		if err != nil {
			cli.errorf("[%d] ✗ %s", i+1, truncate(stmt, 50))
			fmt.Fprintf(cli.out, "      Error: %s\n", db.DescribeError(err))
			errorCount++
			continue
		}

		successCount++
		detail := ""
		switch r := result.(type) {
		case db.SetResult:
			if r.Created {
				detail = " (created)"
			} else {
				detail = " (updated)"
			}
		case db.GetResult:
			if r.Value == nil {
				detail = " (nil)"
			} else {
				detail = " = " + strconv.Quote(truncate(*r.Value, 30))
			}
		}
		cli.successf("[%d] ✓ %s%s", i+1, truncate(stmt, 50), detail)
	}

	cli.successf("\n✓ Import complete: %d succeeded, %d failed", successCount, errorCount)
	return nil
}

// splitStatements splits a script into statements separated by ';'.
// Separators inside quoted strings are ignored, and a trailing statement
// without ';' is kept.
func splitStatements(content string) []string {
	statements, rest := splitComplete(content)
	if rest = strings.TrimSpace(rest); rest != "" {
		statements = append(statements, rest)
	}
	return statements
}

// splitComplete returns the ';'-terminated statements in content and the
// unterminated remainder. A string literal ends at the next quote of either
// kind, matching the tokenizer. "--" outside a string starts a comment that
// runs to the end of the line.
func splitComplete(content string) ([]string, string) {
	var statements []string
	var current strings.Builder
	inString := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if ch == '\'' || ch == '"' {
			inString = !inString
		}

		if !inString && ch == '-' && i+1 < len(content) && content[i+1] == '-' {
			for i < len(content) && content[i] != '\n' {
				i++
			}
			continue
		}

		if !inString && ch == ';' {
			if stmt := strings.TrimSpace(current.String()); stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
			continue
		}

		current.WriteByte(ch)
	}

	return statements, current.String()
}

// truncate shortens a string to max runes with ellipsis
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
