package main

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/go-git/go-git/v6"
	"github.com/nickyhof/KivDB"
	"github.com/nickyhof/KivDB/core"
)

func setupTestCLI(t *testing.T) (*CLI, *bytes.Buffer) {
	t.Helper()

	instance, err := KivDB.OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { instance.Close() })

	var out bytes.Buffer
	return &CLI{
		engine: instance.Engine(core.Identity{Name: "test", Email: "test@test.com"}),
		out:    &out,
	}, &out
}

func TestCLIRunStatements(t *testing.T) {
	cli, out := setupTestCLI(t)

	input := `SET "greeting" TO "hello";
GET "greeting";
GET "missing";
`
	cli.run(strings.NewReader(input), false)

	output := out.String()
	if !strings.Contains(output, "OK, 1 key created") {
		t.Errorf("Expected SET confirmation, got: %s", output)
	}
	if !strings.Contains(output, `"hello"`) {
		t.Errorf("Expected quoted value, got: %s", output)
	}
	if !strings.Contains(output, "(nil)") {
		t.Errorf("Expected (nil) for missing key, got: %s", output)
	}
}

func TestCLIRunMultiLineStatement(t *testing.T) {
	cli, out := setupTestCLI(t)

	input := "SET \"a\"\nTO\n\"1\";\nGET \"a\";\n"
	cli.run(strings.NewReader(input), false)

	if !strings.Contains(out.String(), `"1"`) {
		t.Errorf("Expected multi-line SET to be applied, got: %s", out.String())
	}
}

func TestCLIRunSeveralStatementsOnOneLine(t *testing.T) {
	cli, _ := setupTestCLI(t)

	cli.run(strings.NewReader(`SET "a" TO "1"; SET "b" TO "2";`+"\n"), false)

	count, err := cli.engine.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 keys, got %d", count)
	}
}

func TestCLIRunTrailingStatementWithoutSemicolon(t *testing.T) {
	cli, out := setupTestCLI(t)

	cli.run(strings.NewReader(`SET "a" TO "1"`), false)

	if !strings.Contains(out.String(), "OK, 1 key created") {
		t.Errorf("Expected trailing statement to run at EOF, got: %s", out.String())
	}
}

func TestCLIRunError(t *testing.T) {
	cli, out := setupTestCLI(t)

	cli.run(strings.NewReader("GET;\n"), false)

	if !strings.Contains(out.String(), "parserError: getNoKey") {
		t.Errorf("Expected parser error, got: %s", out.String())
	}
}

func TestCLIQuitStopsRun(t *testing.T) {
	cli, _ := setupTestCLI(t)

	cli.run(strings.NewReader(".quit\n"+`SET "a" TO "1";`+"\n"), false)

	count, _ := cli.engine.Count()
	if count != 0 {
		t.Errorf("Expected statements after .quit to be ignored, got %d keys", count)
	}
}

func TestCLIKeysAndCount(t *testing.T) {
	cli, out := setupTestCLI(t)

	cli.handleCommand(".keys")
	if !strings.Contains(out.String(), "(empty)") {
		t.Errorf("Expected (empty) on a new store, got: %s", out.String())
	}

	cli.engine.Execute(`SET "alpha" TO "1"`)
	cli.engine.Execute(`SET "beta" TO "2"`)
	out.Reset()

	cli.handleCommand(".keys")
	if !strings.Contains(out.String(), "| alpha |") || !strings.Contains(out.String(), "| beta  |") {
		t.Errorf("Expected keys table, got:\n%s", out.String())
	}

	out.Reset()
	cli.handleCommand(".count")
	if strings.TrimSpace(out.String()) != "2" {
		t.Errorf("Expected 2, got: %q", out.String())
	}
}

func TestCLIStats(t *testing.T) {
	cli, out := setupTestCLI(t)

	cli.engine.Execute(`SET "k" TO "v"`)
	cli.handleCommand(".stats")

	output := out.String()
	if !strings.Contains(output, "| keys") || !strings.Contains(output, "17 bytes") {
		t.Errorf("Unexpected stats output:\n%s", output)
	}
}

func TestCLICheckpointLogSnapshotRecover(t *testing.T) {
	cli, out := setupTestCLI(t)

	cli.engine.Execute(`SET "k" TO "v1"`)
	cli.handleCommand(".checkpoint first version")
	cli.handleCommand(".snapshot v1")

	cli.engine.Execute(`SET "k" TO "v2"`)
	cli.handleCommand(".checkpoint")

	out.Reset()
	cli.handleCommand(".log")
	if !strings.Contains(out.String(), "first version") {
		t.Errorf("Expected checkpoint message in log, got:\n%s", out.String())
	}

	out.Reset()
	cli.handleCommand(".recover v1")
	if !strings.Contains(out.String(), "Recovered snapshot v1") {
		t.Fatalf("Recover failed: %s", out.String())
	}

	out.Reset()
	cli.run(strings.NewReader(`GET "k";`), false)
	if !strings.Contains(out.String(), `"v1"`) {
		t.Errorf("Expected recovered value v1, got: %s", out.String())
	}
}

func TestCLISnapshotUsage(t *testing.T) {
	cli, out := setupTestCLI(t)

	cli.handleCommand(".snapshot")
	if !strings.Contains(out.String(), "Usage: .snapshot <name>") {
		t.Errorf("Expected usage message, got: %s", out.String())
	}
}

func TestCLIBackupAndRestore(t *testing.T) {
	cli, out := setupTestCLI(t)
	target := filepath.Join(t.TempDir(), "backup.kiv.zst")

	cli.engine.Execute(`SET "k" TO "before"`)
	cli.handleCommand(".backup " + target)
	if !strings.Contains(out.String(), "Backup written") {
		t.Fatalf("Backup failed: %s", out.String())
	}

	cli.engine.Execute(`SET "k" TO "after"`)

	out.Reset()
	cli.handleCommand(".restore " + target)
	if !strings.Contains(out.String(), "Restored from") {
		t.Fatalf("Restore failed: %s", out.String())
	}

	out.Reset()
	cli.run(strings.NewReader(`GET "k";`), false)
	if !strings.Contains(out.String(), `"before"`) {
		t.Errorf("Expected restored value, got: %s", out.String())
	}
}

func TestCLIRemotes(t *testing.T) {
	cli, out := setupTestCLI(t)

	cli.handleCommand(".remote list")
	if !strings.Contains(out.String(), "No remotes") {
		t.Errorf("Expected no remotes, got: %s", out.String())
	}

	out.Reset()
	cli.handleCommand(".remote add origin https://example.com/history.git")
	cli.handleCommand(".remote list")
	if !strings.Contains(out.String(), "https://example.com/history.git") {
		t.Errorf("Expected remote in list, got: %s", out.String())
	}

	out.Reset()
	cli.handleCommand(".remote remove origin")
	cli.handleCommand(".remote list")
	if !strings.Contains(out.String(), "No remotes") {
		t.Errorf("Expected remote to be removed, got: %s", out.String())
	}
}

func TestCLIPushAndFetch(t *testing.T) {
	bareDir := t.TempDir()
	if _, err := git.PlainInit(bareDir, true); err != nil {
		t.Fatalf("Failed to init bare repo: %v", err)
	}

	source, out := setupTestCLI(t)
	source.engine.Execute(`SET "k" TO "shared"`)
	source.handleCommand(".checkpoint shared")
	source.handleCommand(".snapshot shared")
	source.handleCommand(".remote add origin " + bareDir)
	source.handleCommand(".push")
	if !strings.Contains(out.String(), "Pushed to origin") {
		t.Fatalf("Push failed: %s", out.String())
	}

	replica, out := setupTestCLI(t)
	replica.handleCommand(".remote add origin " + bareDir)
	replica.handleCommand(".fetch origin")
	if !strings.Contains(out.String(), "Fetched from origin") {
		t.Fatalf("Fetch failed: %s", out.String())
	}

	out.Reset()
	replica.handleCommand(".recover shared")
	replica.run(strings.NewReader(`GET "k";`), false)
	if !strings.Contains(out.String(), `"shared"`) {
		t.Errorf("Expected fetched snapshot value, got: %s", out.String())
	}
}

func TestCLIFetchWithoutRemote(t *testing.T) {
	cli, out := setupTestCLI(t)

	cli.handleCommand(".fetch")
	if !strings.Contains(out.String(), "Error") {
		t.Errorf("Expected error without a configured remote, got: %s", out.String())
	}
}

func TestCLIUnknownCommand(t *testing.T) {
	cli, out := setupTestCLI(t)

	if quit := cli.handleCommand(".bogus"); quit {
		t.Error("Unknown command should not quit")
	}
	if !strings.Contains(out.String(), "Unknown command: .bogus") {
		t.Errorf("Expected unknown command message, got: %s", out.String())
	}
}

func TestCLIImportFile(t *testing.T) {
	cli, out := setupTestCLI(t)

	script := `-- seed data
SET "a" TO "1";
SET "b" TO "semi;colon";
SET "a" TO "2";
GET "a";
DELETE "b"
`
	path := filepath.Join(t.TempDir(), "seed.kql")
	if err := os.WriteFile(path, []byte(script), 0644); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}

	if err := cli.importFile(path); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	output := out.String()
	if !strings.Contains(output, "5 succeeded, 0 failed") {
		t.Errorf("Unexpected import summary:\n%s", output)
	}
	if !strings.Contains(output, "(updated)") {
		t.Errorf("Expected updated marker:\n%s", output)
	}

	keys, err := cli.engine.Keys()
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"a"}) {
		t.Errorf("Expected [a], got %v", keys)
	}
}

func TestCLIImportMissingFile(t *testing.T) {
	cli, _ := setupTestCLI(t)

	if err := cli.importFile(filepath.Join(t.TempDir(), "missing.kql")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestCLIHistory(t *testing.T) {
	cli, out := setupTestCLI(t)
	cli.historyFile = filepath.Join(t.TempDir(), "history")

	cli.addToHistory(`GET "a";`)
	cli.addToHistory(`GET "a";`)
	cli.addToHistory(`GET "b";`)

	if len(cli.history) != 2 {
		t.Fatalf("Expected consecutive duplicates to collapse, got %v", cli.history)
	}

	cli.saveHistory()

	reloaded := &CLI{historyFile: cli.historyFile}
	reloaded.loadHistory()
	if !reflect.DeepEqual(reloaded.history, cli.history) {
		t.Errorf("Expected %v, got %v", cli.history, reloaded.history)
	}

	cli.handleCommand(".history")
	if !strings.Contains(out.String(), `2  GET "b";`) {
		t.Errorf("Unexpected history output:\n%s", out.String())
	}
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"single", `SET "a" TO "1";`, []string{`SET "a" TO "1"`}},
		{"trailing without semicolon", `GET "a"; GET "b"`, []string{`GET "a"`, `GET "b"`}},
		{"semicolon in string", `SET "a" TO "x;y";`, []string{`SET "a" TO "x;y"`}},
		{"mixed quotes close", `SET 'a" TO "1";`, []string{`SET 'a" TO "1"`}},
		{"comment", "-- comment\nGET \"a\";", []string{`GET "a"`}},
		{"dashes in string", `SET "a" TO "--";`, []string{`SET "a" TO "--"`}},
		{"empty statements", ";;  ;", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitStatements(tt.content)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitStatements(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("Expected short, got %q", got)
	}
	if got := truncate("a\nlong\tstatement", 10); got != "a long ..." {
		t.Errorf("Expected 'a long ...', got %q", got)
	}
	if got := truncate("ключключключ", 6); got != "клю..." {
		t.Errorf("Expected rune-aware truncation, got %q", got)
	}
}

func TestPaintWithoutColor(t *testing.T) {
	cli := &CLI{}
	if got := cli.paint(ErrorColor, "x"); got != "x" {
		t.Errorf("Expected plain text, got %q", got)
	}

	cli.color = true
	if got := cli.paint(ErrorColor, "x"); got != ErrorColor+"x"+ResetColor {
		t.Errorf("Expected colored text, got %q", got)
	}
}
