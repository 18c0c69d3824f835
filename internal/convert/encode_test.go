package convert

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
)

const wantHeader = "id,name,provider,description,tools,license,github_url,website_url," +
	"documentation_url,npm_url,twitter_url,discord_url,logo,category,content," +
	"installation_guide,popularity,slug,created_at,updated_at,last_updated," +
	"readme_content,main_files,dependencies,stars,forks"

func record(t *testing.T, doc string) Record {
	t.Helper()
	var r Record
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		t.Fatalf("invalid record JSON %s: %v", doc, err)
	}
	return r
}

// parseCSV reads encoder output back with encoding/csv so field counts and
// quoting are checked by an independent parser.
func parseCSV(t *testing.T, text string) [][]string {
	t.Helper()
	rows, err := csv.NewReader(strings.NewReader(text)).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v\n%s", err, text)
	}
	return rows
}

func column(t *testing.T, name string) int {
	t.Helper()
	for i, n := range ColumnNames() {
		if n == name {
			return i
		}
	}
	t.Fatalf("unknown column %q", name)
	return -1
}

func TestEncoder_Header(t *testing.T) {
	enc := NewEncoder(NullEmpty)
	if got := enc.Header(); got != wantHeader {
		t.Errorf("Header() = %q\nwant %q", got, wantHeader)
	}
	if got := len(strings.Split(enc.Header(), ",")); got != 26 {
		t.Errorf("header has %d columns, want 26", got)
	}
}

func TestEncoder_EmptySequence(t *testing.T) {
	for _, policy := range []NullPolicy{NullEmpty, NullLiteral} {
		got := NewEncoder(policy).Encode(nil)
		if got != wantHeader {
			t.Errorf("Encode(nil) with %s policy = %q, want header only", policy, got)
		}
	}
}

func TestEncoder_FieldCount(t *testing.T) {
	records := []Record{
		record(t, `{}`),
		record(t, `{"id": 1, "unknown": "x", "another": [1,2]}`),
		record(t, `{"id": 2, "name": "a,b", "description": "line1\nline2", "tools": [1], "forks": 3}`),
	}

	rows := parseCSV(t, NewEncoder(NullEmpty).Encode(records))
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	for i, row := range rows {
		if len(row) != 26 {
			t.Errorf("row %d has %d fields, want 26", i, len(row))
		}
	}
}

func TestEncoder_NullPolicy(t *testing.T) {
	tests := []struct {
		policy NullPolicy
		want   string
	}{
		{NullEmpty, ""},
		{NullLiteral, "NULL"},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			fields := NewEncoder(tt.policy).Fields(record(t, `{"id": null, "name": ""}`))
			for i, f := range fields {
				name := Schema[i].Name
				if name == "name" {
					if f != "" {
						t.Errorf("present empty string rendered as %q, want empty", f)
					}
					continue
				}
				if f != tt.want {
					t.Errorf("%s = %q, want %q", name, f, tt.want)
				}
			}
		})
	}
}

func TestEncoder_UnknownPolicyFallsBack(t *testing.T) {
	enc := NewEncoder(NullPolicy("bogus"))
	if enc.Policy() != DefaultNullPolicy {
		t.Errorf("Policy() = %q, want %q", enc.Policy(), DefaultNullPolicy)
	}
}

func TestEncoder_ToolsRoundTrip(t *testing.T) {
	out := NewEncoder(NullEmpty).Encode([]Record{
		record(t, `{"tools": [{"name": "A", "description": "d"}]}`),
	})

	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	wantCell := `"[{""name"":""A"",""description"":""d""}]"`
	if !strings.Contains(lines[1], wantCell) {
		t.Errorf("row = %q, want it to contain %q", lines[1], wantCell)
	}

	rows := parseCSV(t, out)
	if got := rows[1][column(t, "tools")]; got != `[{"name":"A","description":"d"}]` {
		t.Errorf("tools cell = %q", got)
	}
}

func TestEncoder_Escaping(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"comma", "New York, NY", `"New York, NY"`},
		{"quote", `He said "hi"`, `"He said ""hi"""`},
		{"newline", "a\nb", "\"a\nb\""},
		{"carriage return", "a\rb", "\"a\rb\""},
		{"plain", "plain text", "plain text"},
		{"leading space kept", " padded", " padded"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Escape(tt.value); got != tt.want {
				t.Errorf("Escape(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestEncoder_CommaValueInRow(t *testing.T) {
	row := NewEncoder(NullEmpty).Row(record(t, `{"id": 1, "name": "New York, NY"}`))
	if !strings.HasPrefix(row, `1,"New York, NY",`) {
		t.Errorf("Row() = %q, want quoted name in second column", row)
	}
}

func TestEncoder_Deterministic(t *testing.T) {
	records := []Record{
		record(t, `{"id": 1, "tools": [{"b": 1, "a": 2}, {"description": "x", "name": "y"}], "main_files": {"z": 1, "a": 2}}`),
		record(t, `{"id": 2, "dependencies": ["x", "y"], "stars": 10}`),
	}

	enc := NewEncoder(NullLiteral)
	first := enc.Encode(records)
	for i := 0; i < 20; i++ {
		if got := enc.Encode(records); got != first {
			t.Fatalf("Encode() run %d differs:\n%s\nvs\n%s", i, got, first)
		}
	}
}

func TestConvert_EndToEnd(t *testing.T) {
	doc := `{"table": [
		{"table": {"id": 1, "name": "alpha", "tools": [{"table": {"name": "t1", "description": "first"}}]}},
		{"id": 2, "name": "beta", "main_files": ["a.go", "b.go"]}
	]}`

	rows := parseCSV(t, Convert(Classify(json.RawMessage(doc)), NullEmpty))
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	if got := rows[1][column(t, "name")]; got != "alpha" {
		t.Errorf("row 1 name = %q, want alpha", got)
	}
	if got := rows[1][column(t, "tools")]; got != `[{"name":"t1","description":"first"}]` {
		t.Errorf("row 1 tools = %q", got)
	}
	if got := rows[2][column(t, "id")]; got != "2" {
		t.Errorf("row 2 id = %q, want 2", got)
	}
	if got := rows[2][column(t, "main_files")]; got != `["a.go","b.go"]` {
		t.Errorf("row 2 main_files = %q", got)
	}
}

func TestParseNullPolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    NullPolicy
		wantErr bool
	}{
		{"", NullEmpty, false},
		{"empty", NullEmpty, false},
		{"NULL", NullLiteral, false},
		{" null ", NullLiteral, false},
		{"none", "", true},
	}

	for _, tt := range tests {
		got, err := ParseNullPolicy(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseNullPolicy(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseNullPolicy(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
