package commands

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/haivivi/orgchart/cmd/orgchart/internal/config"
	"github.com/haivivi/orgchart/pkg/graph"
	"github.com/haivivi/orgchart/pkg/remote"
)

const subsListing = "Name     Role\n" +
	"Bob      Engineer\n" +
	"Justin   Writer  \n" +
	"Ashok    Intern  \n" +
	"Jamal    Intern  \n"

func setupTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvDir, dir)
	return dir
}

func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	verbose = false
	contextName = ""
	formatOutput = ""
	queryExpr = ""
	outputFile = ""

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	wOut.Close()
	wErr.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr
	slog.SetDefault(slog.New(slog.DiscardHandler))

	var outBuf, errBuf bytes.Buffer
	outBuf.ReadFrom(rOut)
	errBuf.ReadFrom(rErr)

	stdout = outBuf.String()
	stderr = errBuf.String()
	if err != nil {
		exitCode = 1
		stderr += err.Error()
	}

	resetFlags(rootCmd)
	return
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
		f.Value.Set(f.DefValue)
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, code := runCmd(t, args...)
	if code != 0 {
		t.Fatalf("%v: exit %d: %s", args, code, stderr)
	}
	return stdout
}

// ---------------------------------------------------------------------------
// run
// ---------------------------------------------------------------------------

func TestRun_MemoryDefault(t *testing.T) {
	setupTestEnv(t)

	stdout := mustRun(t, "run", "setup", "subs")
	if stdout != subsListing {
		t.Fatalf("stdout =\n%q\nwant\n%q", stdout, subsListing)
	}
}

func TestRun_LogsProgress(t *testing.T) {
	setupTestEnv(t)

	_, stderr, code := runCmd(t, "run", "setup")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	for _, msg := range []string{"Dropping all edges", "Adding vertices", "Successful"} {
		if !strings.Contains(stderr, msg) {
			t.Errorf("stderr missing %q: %s", msg, stderr)
		}
	}
}

func TestRun_NothingPersistsInMemory(t *testing.T) {
	setupTestEnv(t)

	mustRun(t, "run", "setup")
	if stdout := mustRun(t, "run", "people"); stdout != "Name     Role\n" {
		t.Fatalf("stdout = %q, want header only", stdout)
	}
}

func TestRun_Unknown(t *testing.T) {
	setupTestEnv(t)

	stdout, stderr, code := runCmd(t, "run", "setup", "bogus")
	if code == 0 {
		t.Fatal("expected failure")
	}
	if !strings.Contains(stderr, "unrecognized function input: bogus - try setup, people, directs, subs") {
		t.Fatalf("stderr = %s", stderr)
	}
	// Inputs are validated before anything runs.
	if stdout != "" {
		t.Fatalf("stdout = %q, want empty", stdout)
	}
}

func TestRun_NoArgs(t *testing.T) {
	setupTestEnv(t)

	if _, _, code := runCmd(t, "run"); code == 0 {
		t.Fatal("expected failure without commands")
	}
}

func TestRun_JSONQuery(t *testing.T) {
	setupTestEnv(t)

	stdout := mustRun(t, "run", "setup", "directs", "--format", "json", "--query", "[.[].Name]")
	var names []string
	if err := json.Unmarshal([]byte(stdout), &names); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if len(names) != 2 || names[0] != "Bob" || names[1] != "Justin" {
		t.Fatalf("names = %v", names)
	}
}

func TestRun_JSONRows(t *testing.T) {
	setupTestEnv(t)

	stdout := mustRun(t, "run", "setup", "subs", "--format", "json")
	if !strings.Contains(stdout, `"Name": "Justin"`) || !strings.Contains(stdout, `"Role": "Writer"`) {
		t.Fatalf("stdout = %s", stdout)
	}
	if strings.Index(stdout, `"Name"`) > strings.Index(stdout, `"Role"`) {
		t.Fatalf("Name should come before Role: %s", stdout)
	}
}

func TestRun_YAML(t *testing.T) {
	setupTestEnv(t)

	stdout := mustRun(t, "run", "setup", "people", "--format", "yaml")
	if !strings.Contains(stdout, "Name: Alice") || !strings.Contains(stdout, "Role: Manager") {
		t.Fatalf("stdout = %s", stdout)
	}
}

func TestRun_QueryNeedsStructuredFormat(t *testing.T) {
	setupTestEnv(t)

	_, stderr, code := runCmd(t, "run", "people", "--query", ".")
	if code == 0 || !strings.Contains(stderr, "--query") {
		t.Fatalf("exit %d, stderr = %s", code, stderr)
	}
}

func TestRun_TableToFile(t *testing.T) {
	setupTestEnv(t)
	out := filepath.Join(t.TempDir(), "listing.txt")

	stdout := mustRun(t, "run", "setup", "subs", "-o", out)
	if stdout != "" {
		t.Fatalf("stdout = %q, want empty", stdout)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != subsListing {
		t.Fatalf("file =\n%q\nwant\n%q", data, subsListing)
	}
}

func TestRun_Badger(t *testing.T) {
	setupTestEnv(t)
	dataDir := t.TempDir()

	mustRun(t, "config", "add-context", "local")
	mustRun(t, "config", "set", "local", "store", "badger")
	mustRun(t, "config", "set", "local", "dir", dataDir)
	mustRun(t, "config", "use-context", "local")

	mustRun(t, "run", "setup")
	if stdout := mustRun(t, "run", "subs"); stdout != subsListing {
		t.Fatalf("stdout =\n%q\nwant\n%q", stdout, subsListing)
	}

	stdout := mustRun(t, "stats")
	if !strings.Contains(stdout, "badger") || !strings.Contains(stdout, "5") || !strings.Contains(stdout, "4") {
		t.Fatalf("stats = %s", stdout)
	}
}

func TestRun_BadgerRequiresDir(t *testing.T) {
	setupTestEnv(t)

	mustRun(t, "config", "add-context", "local")
	mustRun(t, "config", "set", "local", "store", "badger")

	_, stderr, code := runCmd(t, "run", "-c", "local", "people")
	if code == 0 || !strings.Contains(stderr, "requires dir") {
		t.Fatalf("exit %d, stderr = %s", code, stderr)
	}
}

func TestRun_Remote(t *testing.T) {
	setupTestEnv(t)

	mem := graph.NewMemory()
	srv := httptest.NewServer(remote.NewServer(mem, remote.ServerOptions{Logger: slog.New(slog.DiscardHandler)}))
	defer srv.Close()
	u, _ := url.Parse(srv.URL)

	mustRun(t, "config", "add-context", "shared")
	mustRun(t, "config", "set", "shared", "store", "remote")
	mustRun(t, "config", "set", "shared", "endpoint", u.Hostname())
	mustRun(t, "config", "set", "shared", "port", u.Port())

	mustRun(t, "run", "-c", "shared", "setup")
	if stdout := mustRun(t, "run", "-c", "shared", "subs"); stdout != subsListing {
		t.Fatalf("stdout =\n%q\nwant\n%q", stdout, subsListing)
	}

	stdout := mustRun(t, "stats", "-c", "shared", "--format", "json", "--query", ".vertices")
	if strings.TrimSpace(stdout) != "5" {
		t.Fatalf("stats = %q", stdout)
	}
}

func TestRun_UnknownContext(t *testing.T) {
	setupTestEnv(t)

	_, stderr, code := runCmd(t, "run", "-c", "nope", "people")
	if code == 0 || !strings.Contains(stderr, `context "nope" not found`) {
		t.Fatalf("exit %d, stderr = %s", code, stderr)
	}
}

// ---------------------------------------------------------------------------
// serve / stats
// ---------------------------------------------------------------------------

func TestServe_RejectsRemote(t *testing.T) {
	setupTestEnv(t)

	mustRun(t, "config", "add-context", "shared")
	mustRun(t, "config", "set", "shared", "store", "remote")
	mustRun(t, "config", "set", "shared", "endpoint", "localhost")

	_, stderr, code := runCmd(t, "serve", "-c", "shared")
	if code == 0 || !strings.Contains(stderr, "cannot serve a remote store") {
		t.Fatalf("exit %d, stderr = %s", code, stderr)
	}
}

func TestStats_Empty(t *testing.T) {
	setupTestEnv(t)

	stdout := mustRun(t, "stats")
	want := "STORE    VERTICES   EDGES\nmemory   0          0\n"
	if stdout != want {
		t.Fatalf("stdout =\n%q\nwant\n%q", stdout, want)
	}
}

func TestStats_QueryNeedsStructuredFormat(t *testing.T) {
	setupTestEnv(t)

	_, stderr, code := runCmd(t, "stats", "--query", ".Vertices")
	if code == 0 || !strings.Contains(stderr, "--query") {
		t.Fatalf("exit %d, stderr = %s", code, stderr)
	}
}

func TestStats_JSONQuery(t *testing.T) {
	setupTestEnv(t)

	stdout := mustRun(t, "stats", "--format", "json", "--query", ".vertices")
	if strings.TrimSpace(stdout) != "0" {
		t.Fatalf("stdout = %q, want 0", stdout)
	}
}

// ---------------------------------------------------------------------------
// config
// ---------------------------------------------------------------------------

func TestConfig_Contexts(t *testing.T) {
	setupTestEnv(t)

	if stdout := mustRun(t, "config", "list-contexts"); !strings.Contains(stdout, "No contexts configured") {
		t.Fatalf("list-contexts = %s", stdout)
	}
	if stdout := mustRun(t, "config", "current-context"); !strings.Contains(stdout, "No current context") {
		t.Fatalf("current-context = %s", stdout)
	}

	mustRun(t, "config", "add-context", "dev")
	mustRun(t, "config", "add-context", "prod")
	mustRun(t, "config", "use-context", "prod")

	if stdout := mustRun(t, "config", "current-context"); strings.TrimSpace(stdout) != "prod" {
		t.Fatalf("current-context = %q", stdout)
	}
	stdout := mustRun(t, "config", "list-contexts")
	if !strings.Contains(stdout, "*") || !strings.Contains(stdout, "dev") || !strings.Contains(stdout, "memory") {
		t.Fatalf("list-contexts = %s", stdout)
	}

	if _, _, code := runCmd(t, "config", "add-context", "dev"); code == 0 {
		t.Fatal("duplicate add-context should fail")
	}
	mustRun(t, "config", "delete-context", "prod")
	if stdout := mustRun(t, "config", "current-context"); !strings.Contains(stdout, "No current context") {
		t.Fatalf("current-context after delete = %s", stdout)
	}
}

func TestConfig_SetGet(t *testing.T) {
	setupTestEnv(t)

	mustRun(t, "config", "add-context", "dev")
	if stdout := mustRun(t, "config", "get", "dev", "port"); strings.TrimSpace(stdout) != "8182" {
		t.Fatalf("default port = %q", stdout)
	}
	mustRun(t, "config", "set", "dev", "port", "9000")
	if stdout := mustRun(t, "config", "get", "dev", "port"); strings.TrimSpace(stdout) != "9000" {
		t.Fatalf("port = %q", stdout)
	}

	for _, args := range [][]string{
		{"config", "set", "dev", "store", "postgres"},
		{"config", "set", "dev", "color", "blue"},
		{"config", "set", "missing", "store", "memory"},
		{"config", "get", "dev", "color"},
	} {
		if _, _, code := runCmd(t, args...); code == 0 {
			t.Errorf("%v should fail", args)
		}
	}
}

func TestConfig_View(t *testing.T) {
	setupTestEnv(t)

	mustRun(t, "config", "add-context", "dev")
	mustRun(t, "config", "set", "dev", "store", "remote")
	mustRun(t, "config", "set", "dev", "endpoint", "graph.internal")

	if stdout := mustRun(t, "config", "view", "dev"); !strings.Contains(stdout, "endpoint: graph.internal") {
		t.Fatalf("view = %s", stdout)
	}
	stdout := mustRun(t, "config", "view", "dev", "--format", "json", "--query", ".store")
	if strings.TrimSpace(stdout) != `"remote"` {
		t.Fatalf("view query = %q", stdout)
	}
	if stdout := mustRun(t, "config", "view"); !strings.Contains(stdout, "store: memory") {
		t.Fatalf("view default = %s", stdout)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func TestVersion(t *testing.T) {
	setupTestEnv(t)

	stdout := mustRun(t, "version")
	if !strings.Contains(stdout, "orgchart") {
		t.Fatalf("expected 'orgchart', got: %s", stdout)
	}
}

func TestVersionJSON(t *testing.T) {
	setupTestEnv(t)

	stdout := mustRun(t, "version", "--format", "json")
	if !strings.Contains(stdout, `"version"`) {
		t.Fatalf("expected JSON, got: %s", stdout)
	}
}
