package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/harmonizer/internal/convert"
	"github.com/JonMunkholm/harmonizer/internal/ingest"
	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"
)

// stdoutPath selects standard output for --out.
const stdoutPath = "-"

func newConvertCommand(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "convert FILE",
		Short: "Convert a JSON export to CSV",
		Long: `Convert reads a JSON file holding one record, an array of records, or
records wrapped in a "table" field, and writes the fixed-column CSV next to
it as <name>_converted.csv.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConvert(args[0], out)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", `output path, "-" for stdout (default: <name>_converted.csv next to the input)`)
	return cmd
}

func (a *app) runConvert(path, out string) error {
	policy, err := convert.ParseNullPolicy(a.v.GetString("null-policy"))
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	start := time.Now()
	doc, err := ingest.Load(filepath.Base(path), f, a.v.GetInt64("max-file-size"))
	if err != nil {
		return err
	}

	records := convert.Flatten(doc.Input)
	csv := convert.NewEncoder(policy).Encode(records)
	a.logger.Debug("converted document",
		"file", doc.FileName,
		"records", doc.Records,
		"bytes_in", doc.Size,
		"bytes_out", len(csv),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if a.v.GetBool("debug") && len(records) > 0 {
		fmt.Fprintln(a.errOut, "first record:")
		pp.Fprintln(a.errOut, debugRecord(records[0]))
	}

	if doc.TrailingBytes > 0 {
		fmt.Fprintf(a.errOut, "%s ignored %d bytes after the JSON document\n", warnText("warning:"), doc.TrailingBytes)
	}

	if out == stdoutPath {
		_, err := fmt.Fprint(a.out, csv)
		return err
	}

	if out == "" {
		out = filepath.Join(filepath.Dir(path), doc.DownloadName)
	}
	if err := os.WriteFile(out, []byte(csv), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	fmt.Fprintf(a.out, "%s %s -> %s (%d records, %d columns)\n",
		successText("converted"), path, out, doc.Records, len(convert.Schema))
	return nil
}

// debugRecord renders raw field values as strings so the dump is readable.
func debugRecord(r convert.Record) map[string]string {
	m := make(map[string]string, len(r))
	for k, v := range r {
		m[k] = string(v)
	}
	return m
}
