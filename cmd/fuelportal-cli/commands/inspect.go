package commands

import (
	"fmt"
	"myfuelportal-backend/internal/scrapers/fuelportal"
	"myfuelportal-backend/lib/util/restyutil"
	"myfuelportal-backend/pkg/htmlutil"
	"os"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var dumpDir string

func init() {
	inspectCmd.Flags().StringVar(&dumpDir, "dump", "", "A directory to write every response of the portal to.")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [--dump <dir>]",
	Short: "Renders the tank page as markdown and lists the fields that could not be read from it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var dump restyutil.InstrumentOutput
		if dumpDir != "" {
			output, err := restyutil.NewFilesystemOutput(afero.NewOsFs(), dumpDir)
			if err != nil {
				return fmt.Errorf("create dump directory: %w", err)
			}
			dump = output
		}

		fetcher, closeStore, err := newFetcher(cmd.Context(), func(opts *fuelportal.ClientOptions) {
			opts.ResponseDump = dump
		})
		if err != nil {
			return err
		}
		defer closeStore()

		doc, err := fetcher.FetchPage(cmd.Context())
		if err != nil {
			return err
		}

		container := doc.Find(fuelportal.TankContainer).First()
		if container.Length() == 0 {
			fmt.Fprintf(os.Stderr, "the page has no %s, showing all of it\n", fuelportal.TankContainer)
			container = doc.Selection
		}
		converter := md.NewConverter("", true, nil)
		fmt.Println(converter.Convert(container))
		fmt.Print("\n------------------------------------\n\n")

		page := htmlutil.NewDocument(doc)
		tank := fuelportal.ParseTank(page)
		missing := tank.Missing()
		if _, err := fuelportal.ParseLevel(page); err != nil {
			missing = append([]string{"level"}, missing...)
		}
		if len(missing) == 0 {
			fmt.Println("every field was read")
			return nil
		}
		fmt.Printf("missing fields: %s\n", strings.Join(missing, ", "))
		return nil
	},
}
