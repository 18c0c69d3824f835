package convert

import "encoding/json"

// Resolver extracts one column's cell text from a record.
// The boolean is false when the record has no value for the column; the
// encoder then applies its NullPolicy.
type Resolver func(Record) (string, bool)

// Column pairs a CSV header name with the rule that fills it.
type Column struct {
	Name    string
	Resolve Resolver
}

// Schema is the fixed column layout of every export. Its order is the CSV
// column order and must not change.
var Schema = []Column{
	{Name: "id", Resolve: scalar("id")},
	{Name: "name", Resolve: scalar("name")},
	{Name: "provider", Resolve: scalar("provider")},
	{Name: "description", Resolve: scalar("description")},
	{Name: "tools", Resolve: tools},
	{Name: "license", Resolve: scalar("license")},
	{Name: "github_url", Resolve: scalar("github_url")},
	{Name: "website_url", Resolve: scalar("website_url")},
	{Name: "documentation_url", Resolve: scalar("documentation_url")},
	{Name: "npm_url", Resolve: scalar("npm_url")},
	{Name: "twitter_url", Resolve: scalar("twitter_url")},
	{Name: "discord_url", Resolve: scalar("discord_url")},
	{Name: "logo", Resolve: scalar("logo")},
	{Name: "category", Resolve: scalar("category")},
	{Name: "content", Resolve: scalar("content")},
	{Name: "installation_guide", Resolve: scalar("installation_guide")},
	{Name: "popularity", Resolve: scalar("popularity")},
	{Name: "slug", Resolve: scalar("slug")},
	{Name: "created_at", Resolve: scalar("created_at")},
	{Name: "updated_at", Resolve: scalar("updated_at")},
	{Name: "last_updated", Resolve: scalar("last_updated")},
	{Name: "readme_content", Resolve: scalar("readme_content")},
	{Name: "main_files", Resolve: list("main_files")},
	{Name: "dependencies", Resolve: list("dependencies")},
	{Name: "stars", Resolve: scalar("stars")},
	{Name: "forks", Resolve: scalar("forks")},
}

// ColumnNames returns the schema's header names in order.
func ColumnNames() []string {
	names := make([]string, len(Schema))
	for i, col := range Schema {
		names[i] = col.Name
	}
	return names
}

// scalar renders the field as-is.
func scalar(field string) Resolver {
	return func(r Record) (string, bool) {
		raw, ok := r.Get(field)
		if !ok {
			return "", false
		}
		return render(raw), true
	}
}

// list renders arrays as JSON text and anything else as-is.
func list(field string) Resolver {
	return func(r Record) (string, bool) {
		raw, ok := r.Get(field)
		if !ok {
			return "", false
		}
		if kindOf(raw) == kindArray {
			return string(compact(raw)), true
		}
		return render(raw), true
	}
}

// tools reduces every entry carrying both a name and a description to just
// those two keys and serializes the list as JSON text. Non-array values are
// treated as missing.
func tools(r Record) (string, bool) {
	raw, ok := r.Get("tools")
	if !ok {
		return "", false
	}
	entries, ok := decodeArray(raw)
	if !ok {
		return "", false
	}

	out := make([][]byte, len(entries))
	for i, entry := range entries {
		out[i] = toolEntry(entry)
	}
	return joinArray(out), true
}

func toolEntry(entry json.RawMessage) []byte {
	fields, ok := decodeObject(entry)
	if !ok {
		return compact(entry)
	}
	if _, ok := fields.Get("name"); !ok {
		return compact(entry)
	}
	if _, ok := fields.Get("description"); !ok {
		return compact(entry)
	}
	return pairObject(fields, "name", "description")
}
