package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/vesselcost/internal/model"
	"github.com/ppiankov/vesselcost/internal/pipeline"
)

var (
	extractJSON    bool
	extractTimeout time.Duration
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <document>",
	Short: "Show the attributes found in a datasheet",
	Long: `Extract runs only the field extractor and prints every recognized
attribute with its value and where it came from. Nothing is priced.

Example:
  vesselcost extract V-1024.pdf
  vesselcost extract V-1024.pdf --json
  pdftotext V-1024.pdf - | vesselcost extract -`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "print attributes as JSON")
	extractCmd.Flags().DurationVar(&extractTimeout, "timeout", time.Minute, "load timeout")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := commandContext(extractTimeout)
	defer cancel()

	// Extraction never calls the enrichment provider
	cfg.LLM.Enabled = false
	p := pipeline.New(cfg, pipeline.WithLogger(logger))

	run, err := extractRun(ctx, p, args[0], os.Stdin)
	if err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}

	if extractJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Document   model.DocumentMeta `json:"document"`
			Attributes []model.Attribute  `json:"attributes"`
		}{run.Document, run.Attributes.Attributes()})
	}

	fmt.Printf("%s (%s profile)\n\n", documentName(args[0]), run.Document.Profile)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ATTRIBUTE\tVALUE\tSOURCE\tMATCHED")
	for _, a := range run.Attributes.Attributes() {
		value := "-"
		if a.Present() {
			value = a.Display()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Name, value, a.Source, a.Heuristic)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	present := run.Attributes.PresentCount(model.AttributeNames()...)
	fmt.Printf("\n%d of %d attributes found\n", present, len(model.AttributeNames()))
	return nil
}
