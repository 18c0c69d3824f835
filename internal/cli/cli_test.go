package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCommand(&out, &errOut)
	root.SetArgs(args)
	code = run(root, &errOut)
	return out.String(), errOut.String(), code
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConvert_WritesNextToInput(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "servers.json", `[{"id": "a", "name": "Alpha"}, {"table": {"id": "b"}}]`)

	stdout, stderr, code := execute(t, "convert", in)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	if !strings.Contains(stdout, "servers_converted.csv") || !strings.Contains(stdout, "2 records") {
		t.Errorf("stdout = %q", stdout)
	}

	data, err := os.ReadFile(filepath.Join(dir, "servers_converted.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[1], "a,Alpha,") || !strings.HasPrefix(lines[2], "b,,") {
		t.Errorf("rows = %q", lines[1:])
	}
}

func TestConvert_Stdout(t *testing.T) {
	in := writeFile(t, t.TempDir(), "one.json", `{"id": "x"}`)

	stdout, _, code := execute(t, "convert", in, "--out", "-", "--null-policy", "null")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	lines := strings.Split(stdout, "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "x,NULL,NULL,") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestConvert_StdoutMatchesFile(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "pair.json", `[{"id": "a"}, {"id": "b"}]`)

	if _, stderr, code := execute(t, "convert", in); code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}
	file, err := os.ReadFile(filepath.Join(dir, "pair_converted.csv"))
	if err != nil {
		t.Fatal(err)
	}

	stdout, _, code := execute(t, "convert", in, "--out", "-")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if stdout != string(file) {
		t.Errorf("stdout = %q, want the file contents %q", stdout, file)
	}
	if strings.HasSuffix(stdout, "\n") {
		t.Error("stdout should not end with a newline")
	}
}

func TestConvert_NullPolicyFromEnv(t *testing.T) {
	t.Setenv("HARMONIZER_NULL_POLICY", "null")
	in := writeFile(t, t.TempDir(), "one.json", `{"id": "x"}`)

	stdout, _, code := execute(t, "convert", in, "-o", "-")
	if code != 0 || !strings.Contains(stdout, "x,NULL,") {
		t.Errorf("code = %d, stdout = %q", code, stdout)
	}
}

func TestConvert_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "harmonizer.yaml", "null-policy: \"null\"\n")
	in := writeFile(t, dir, "one.json", `{"id": "x"}`)

	stdout, stderr, code := execute(t, "--config", cfg, "convert", in, "-o", "-")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	if !strings.Contains(stdout, "x,NULL,") {
		t.Errorf("stdout = %q, want NULL placeholders from the config file", stdout)
	}
}

func TestConvert_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.json", "{oops")
	csv := writeFile(t, dir, "data.csv", "a,b")
	good := writeFile(t, dir, "good.json", `{"id": 1}`)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"invalid json", []string{"convert", bad}, "JSON001"},
		{"wrong type", []string{"convert", csv}, "FILE002"},
		{"bad policy", []string{"convert", good, "--null-policy", "zero"}, "UPL001"},
		{"too large", []string{"convert", good, "--max-file-size", "4"}, "FILE001"},
		{"missing file", []string{"convert", filepath.Join(dir, "nope.json")}, "no such file"},
		{"no args", []string{"convert"}, "accepts 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := execute(t, tt.args...)
			if code != 1 {
				t.Errorf("exit code = %d, want 1", code)
			}
			if !strings.Contains(stderr, tt.want) {
				t.Errorf("stderr = %q, want it to contain %q", stderr, tt.want)
			}
		})
	}
}

func TestConvert_DebugDumpsFirstRecord(t *testing.T) {
	in := writeFile(t, t.TempDir(), "one.json", `{"id": "dump-me"}`)

	_, stderr, code := execute(t, "convert", in, "-o", "-", "--debug")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stderr, "first record") || !strings.Contains(stderr, "dump-me") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestSchema(t *testing.T) {
	stdout, _, code := execute(t, "schema")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout, " 1  id") || !strings.Contains(stdout, "26 columns") {
		t.Errorf("stdout = %q", stdout)
	}

	stdout, _, _ = execute(t, "schema", "--header")
	if !strings.HasPrefix(stdout, "id,name,provider,") {
		t.Errorf("header = %q", stdout)
	}
}

func TestDatabaseCommands_RequireURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("HARMONIZER_DATABASE_URL", "")

	for _, cmd := range []string{"migrate", "history"} {
		_, stderr, code := execute(t, cmd)
		if code != 1 || !strings.Contains(stderr, errNoDatabase.Error()) {
			t.Errorf("%s: code = %d, stderr = %q", cmd, code, stderr)
		}
	}
}
