package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/evidex/internal/bootstrap"
	"github.com/kailas-cloud/evidex/internal/config"
	"github.com/kailas-cloud/evidex/internal/domain/search/request"
	"github.com/kailas-cloud/evidex/internal/domain/section"
	chiTransport "github.com/kailas-cloud/evidex/internal/transport/chi"
	ingestuc "github.com/kailas-cloud/evidex/internal/usecase/ingest"
)

const dateLayout = "2006-01-02"

func (c *cli) ingestCmd() *cobra.Command {
	var (
		subject    string
		idHint     string
		capturedAt string
	)
	cmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Ingest plain-text documents",
		Long: `Ingest classifies, chunks, scores and indexes each file.
A file whose text is already in the corpus is reported as a duplicate.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			captured, err := parseDate(capturedAt)
			if err != nil {
				return fmt.Errorf("--captured-at: %w", err)
			}
			return c.run(cmd, func(ctx context.Context, app *bootstrap.App, _ config.Config) error {
				out := make([]chiTransport.DocumentResponse, 0, len(args))
				for _, path := range args {
					text, err := os.ReadFile(path)
					if err != nil {
						return fmt.Errorf("failed to read %s: %w", path, err)
					}
					res, err := app.Ingest.Ingest(ctx, ingestuc.Request{
						IDHint:     idHint,
						SourcePath: path,
						Text:       string(text),
						CapturedAt: captured,
						SubjectID:  subject,
					})
					if err != nil {
						return fmt.Errorf("ingest %s: %w", path, err)
					}
					d := chiTransport.DocumentToDTO(res.Document)
					d.Duplicate = res.Duplicate
					out = append(out, d)
					if !c.jsonOut {
						printDocument(cmd, d)
					}
				}
				if c.jsonOut {
					return c.printJSON(cmd, out)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "subject (student) id")
	cmd.Flags().StringVar(&idHint, "id-hint", "", "external id, or subject:<id>")
	cmd.Flags().StringVar(&capturedAt, "captured-at", "", "capture date (YYYY-MM-DD) used when the text has no date")
	return cmd
}

func (c *cli) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show a document record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, app *bootstrap.App, _ config.Config) error {
				doc, err := app.Ingest.Get(ctx, args[0])
				if err != nil {
					return err
				}
				d := chiTransport.DocumentToDTO(doc)
				if c.jsonOut {
					return c.printJSON(cmd, d)
				}
				printDocument(cmd, d)
				return nil
			})
		},
	}
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a document and all of its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, app *bootstrap.App, _ config.Config) error {
				n, err := app.Ingest.Delete(ctx, args[0])
				if err != nil {
					return err
				}
				if c.jsonOut {
					return c.printJSON(cmd, chiTransport.DeleteResponse{ID: args[0], DeletedChunks: n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s (%d chunks)\n", args[0], n)
				return nil
			})
		},
	}
}

func (c *cli) searchCmd() *cobra.Command {
	var cf contextFlags
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Rank evidence chunks for a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, app *bootstrap.App, cfg config.Config) error {
				rc, err := cf.context(cfg)
				if err != nil {
					return err
				}
				resp, err := app.Retrieval.Search(ctx, args[0], rc)
				if err != nil {
					return err
				}
				out := chiTransport.SearchResponse{
					Results:       chiTransport.ResultsToDTO(resp.Results),
					FailedQueries: resp.FailedQueries,
					Degraded:      resp.Degraded,
				}
				if c.jsonOut {
					return c.printJSON(cmd, out)
				}
				printResults(cmd, out.Results)
				if out.Degraded {
					fmt.Fprintf(cmd.OutOrStdout(), "degraded: %d sub-queries failed\n", out.FailedQueries)
				}
				return nil
			})
		},
	}
	cf.bind(cmd)
	return cmd
}

func (c *cli) evidenceCmd() *cobra.Command {
	var cf contextFlags
	cmd := &cobra.Command{
		Use:   "evidence SECTION...",
		Short: "Gather evidence for target sections",
		Long: `Evidence retrieves supporting chunks for each named section.
Run "evidexctl sections" for the canonical names.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sections, err := section.ParseAll(args)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, app *bootstrap.App, cfg config.Config) error {
				rc, err := cf.context(cfg)
				if err != nil {
					return err
				}
				set, err := app.Retrieval.RetrieveEvidence(ctx, sections, rc)
				if err != nil {
					return err
				}
				out := chiTransport.EvidenceToDTO(set)
				if c.jsonOut {
					return c.printJSON(cmd, out)
				}
				for _, n := range sections {
					fmt.Fprintf(cmd.OutOrStdout(), "== %s ==\n", n)
					printResults(cmd, out.Sections[string(n)])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "coverage %.0f%%, %d unique chunks (high %d, medium %d, low %d)\n",
					out.CoveragePercentage, out.TotalChunks,
					out.QualityDistribution.High, out.QualityDistribution.Medium, out.QualityDistribution.Low)
				return nil
			})
		},
	}
	cf.bind(cmd)
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, app *bootstrap.App, _ config.Config) error {
				st, err := app.Stats.Compute(ctx)
				if err != nil {
					return err
				}
				out := chiTransport.StatsToDTO(st)
				if c.jsonOut {
					return c.printJSON(cmd, out)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "documents: %d\nchunks: %d\naverage quality: %.3f\n",
					out.DocumentCount, out.TotalChunks, out.AverageQuality)
				for t, n := range out.DocumentTypeHistogram {
					fmt.Fprintf(cmd.OutOrStdout(), "  type %s: %d\n", t, n)
				}
				return nil
			})
		},
	}
}

func (c *cli) validateCmd() *cobra.Command {
	var sample int
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check stored chunk metadata against the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, app *bootstrap.App, _ config.Config) error {
				rep, err := app.Integrity.Validate(ctx, sample)
				if err != nil {
					return err
				}
				out := chiTransport.IntegrityToDTO(rep)
				if c.jsonOut {
					if err := c.printJSON(cmd, out); err != nil {
						return err
					}
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "valid: %t (%d/%d fields passed, %d chunks)\n",
						out.IsValid, out.FieldsPassed, out.FieldsChecked, out.ChunksScanned)
					for _, e := range out.Errors {
						fmt.Fprintln(cmd.OutOrStdout(), "error:", e)
					}
					for _, w := range out.Warnings {
						fmt.Fprintln(cmd.OutOrStdout(), "warning:", w)
					}
				}
				if !out.IsValid {
					return fmt.Errorf("integrity check failed with %d errors", len(out.Errors))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&sample, "sample", 0, "check only the first N chunks (0 checks all)")
	return cmd
}

func (c *cli) sectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sections",
		Short: "List target sections and their retrieval strategies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(_ context.Context, app *bootstrap.App, _ config.Config) error {
				out := chiTransport.SectionsToDTO(app.Library)
				if c.jsonOut {
					return c.printJSON(cmd, out)
				}
				for _, s := range out {
					fmt.Fprintf(cmd.OutOrStdout(), "%-22s threshold %.2f, max %d: %s\n",
						s.Name, s.Threshold, s.MaxChunks, strings.Join(s.SearchTerms, ", "))
				}
				return nil
			})
		},
	}
}

// contextFlags are the search context options shared by search and evidence.
type contextFlags struct {
	section     string
	types       []string
	instruments []string
	quality     float64
	from        string
	to          string
	subject     string
	maxResults  int
	recent      bool
}

func (f *contextFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.section, "section", "", "target section")
	fs.StringSliceVar(&f.types, "type", nil, "allowed document types")
	fs.StringSliceVar(&f.instruments, "instrument", nil, "allowed instrument subtypes")
	fs.Float64Var(&f.quality, "min-quality", -1, "minimum overall quality (default from config)")
	fs.StringVar(&f.from, "from", "", "authored on or after (YYYY-MM-DD)")
	fs.StringVar(&f.to, "to", "", "authored on or before (YYYY-MM-DD)")
	fs.StringVar(&f.subject, "subject", "", "boost chunks of this subject")
	fs.IntVarP(&f.maxResults, "limit", "n", 0, "maximum results per query")
	fs.BoolVar(&f.recent, "recent", false, "boost recently authored documents")
}

func (f *contextFlags) context(cfg config.Config) (request.Context, error) {
	from, err := parseDate(f.from)
	if err != nil {
		return request.Context{}, fmt.Errorf("--from: %w", err)
	}
	to, err := parseDate(f.to)
	if err != nil {
		return request.Context{}, fmt.Errorf("--to: %w", err)
	}
	q := cfg.Retrieval.DefaultQualityThreshold
	if f.quality >= 0 {
		q = f.quality
	}
	return request.New(request.Params{
		Section:          f.section,
		DocumentTypes:    f.types,
		Instruments:      f.instruments,
		QualityThreshold: &q,
		DateFrom:         from,
		DateTo:           to,
		SubjectID:        f.subject,
		MaxResults:       f.maxResults,
		BoostRecent:      f.recent,
	})
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

func printDocument(cmd *cobra.Command, d chiTransport.DocumentResponse) {
	state := "created"
	if d.Duplicate {
		state = "duplicate"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s  %s  type=%s confidence=%.2f quality=%.2f (%s) chunks=%d year=%s\n",
		state, d.ID, d.SourcePath, d.DocumentType, d.ClassificationConfidence,
		d.Quality.Overall, d.Quality.Status, d.TotalChunks, d.SchoolYear)
}

func printResults(cmd *cobra.Command, rs []chiTransport.SearchResult) {
	if len(rs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "  no results")
		return
	}
	for i, r := range rs {
		fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %.3f  %s (%s)\n", i+1, r.FinalScore,
			r.SourceAttribution.Filename, r.SourceAttribution.DocumentType)
		if r.RelevanceExplanation != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "      %s\n", r.RelevanceExplanation)
		}
		for _, h := range r.MatchHighlights {
			fmt.Fprintf(cmd.OutOrStdout(), "      > %s\n", h)
		}
	}
}
