package cmd

import (
	"fmt"
	"os"

	"github.com/PuerkitoBio/goquery"
	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/notisapp/notis/internal/logging"
	"github.com/notisapp/notis/internal/selector"
)

var selectorCmd = &cobra.Command{
	Use:   "selector <page.html> <query>",
	Short: "Synthesize a robust CSS selector for an element of a captured page",
	Long: `Synthesize a robust CSS selector for a page element.

The page argument is an HTML snapshot captured by the extension; the
query argument is any CSS selector resolving to the element of interest
(for example a fragile positional one). The printed selector prefers
stable identity signals such as ids, test attributes, and hand-written
class names, and is guaranteed to resolve uniquely in the snapshot.

Example:
  notis selector snapshot.html "div:nth-child(3) > button" --copy`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open page snapshot: %w", err)
		}
		defer file.Close()

		doc, err := goquery.NewDocumentFromReader(file)
		if err != nil {
			return fmt.Errorf("failed to parse page snapshot: %w", err)
		}

		matches := doc.Find(args[1])
		if len(matches.Nodes) == 0 {
			return fmt.Errorf("no element matches %q in %s", args[1], args[0])
		}
		if len(matches.Nodes) > 1 {
			logging.Warn("query matches multiple elements, using the first",
				"query", args[1], "matches", len(matches.Nodes))
		}

		result := selector.BuildElementSelector(doc, matches.Nodes[0])
		fmt.Println(result)

		copyFlag, err := cmd.Flags().GetBool("copy")
		if err != nil {
			return err
		}
		if copyFlag {
			if err := clipboard.WriteAll(result); err != nil {
				return fmt.Errorf("failed to copy selector to clipboard: %w", err)
			}
			logging.Info("selector copied to clipboard")
		}
		return nil
	},
}

func init() {
	selectorCmd.Flags().Bool("copy", false, "Copy the selector to the system clipboard")
}
