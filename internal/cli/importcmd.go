package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"upstox-chainwatch/internal/errors"
	"upstox-chainwatch/internal/refdata"
)

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <instruments.csv> [name...]",
		Short: "Rebuild the reference tables from an exchange instrument dump",
		Long: `Parses the exchange F&O instrument dump and writes instrument_keys.json
and lot_sizes.json into the config directory. Optional names restrict the
import to those underlyings; by default every named instrument is kept.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(app, args[0], args[1:])
		},
	}
}

func runImport(app *App, dumpPath string, names []string) error {
	f, err := os.Open(dumpPath)
	if err != nil {
		return errors.Wrap(err, "opening instrument dump")
	}
	defer f.Close()

	keys, lots, err := refdata.ImportInstrumentDump(f, names)
	if err != nil {
		return err
	}
	if err := refdata.SaveTables(app.Config.ConfigDir, keys, lots); err != nil {
		return errors.Wrap(err, "saving reference tables")
	}

	fmt.Printf("Imported %d instrument keys and %d lot sizes into %s\n",
		len(keys), len(lots), app.Config.ConfigDir)
	return nil
}
