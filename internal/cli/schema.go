package cli

import (
	"fmt"

	"github.com/JonMunkholm/harmonizer/internal/convert"
	"github.com/spf13/cobra"
)

func newSchemaCommand(a *app) *cobra.Command {
	var header bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "List the CSV output columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := convert.ColumnNames()
			if header {
				_, err := fmt.Fprintln(a.out, convert.NewEncoder(convert.NullEmpty).Header())
				return err
			}
			for i, name := range names {
				fmt.Fprintf(a.out, "%2d  %s\n", i+1, name)
			}
			fmt.Fprintf(a.out, "\n%d columns\n", len(names))
			return nil
		},
	}
	cmd.Flags().BoolVar(&header, "header", false, "print the CSV header line only")
	return cmd
}
