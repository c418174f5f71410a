package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"restituiri/internal/acts"
	"restituiri/internal/address"
	"restituiri/internal/config"
	"restituiri/internal/extract"
	"restituiri/internal/geocode"
	"restituiri/internal/logging"
	"restituiri/internal/metrics"
	"restituiri/internal/pipeline"
	"restituiri/internal/storage"
	"restituiri/internal/util"
)

const lastExportKey = "last_export"

type app struct {
	cfg    config.Config
	logger *zap.Logger
}

func main() {
	cfg, err := config.Load()
	must(err)
	logger, err := logging.New(cfg.LogLevel)
	must(err)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = newRootCmd(&app{cfg: cfg, logger: logger}).ExecuteContext(ctx)
	cancel()
	_ = logger.Sync()

	must(metrics.WriteTextfile(cfg.MetricsPath))
	must(err)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "restituiri",
		Short:         "Parse, geocode and export municipal restitution case pages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		a.parseCmd(),
		a.geocodeCmd(),
		a.reprocessCmd(),
		a.normalizeCmd(),
		a.dpgsCmd(),
		a.planActsCmd(),
		a.fetchActsCmd(),
		a.linkPDFsCmd(),
		a.inspectPDFCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.convertCmd(),
		a.showCmd(),
		a.statusCmd(),
	)
	return root
}

func (a *app) openDB() (*storage.DB, error) {
	return storage.Open(a.cfg.DBPath)
}

func (a *app) parseCmd() *cobra.Command {
	var dir, file string
	var max int
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse case pages 1.html..N.html into the store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			svc := pipeline.NewParseService(db, a.cfg, a.logger)
			if file != "" {
				n, err := svc.ParseFile(file)
				if err != nil {
					return err
				}
				fmt.Printf("parsed %s rows=%d\n", file, n)
				return nil
			}
			res, err := svc.ParseDir(dir, max)
			if err != nil {
				return err
			}
			fmt.Printf("parse done files=%d rows=%d cancelled=%d empty=%d skipped=%d missing=%d failed=%d\n",
				res.Files, res.Rows, res.Cancelled, res.Empty, res.Skipped, res.Missing, res.Failed)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", a.cfg.InputDir, "directory holding N.html pages")
	cmd.Flags().IntVar(&max, "max", a.cfg.MaxFiles, "highest page number")
	cmd.Flags().StringVar(&file, "file", "", "parse a single page instead of the directory")
	return cmd
}

func (a *app) geocodeCmd() *cobra.Command {
	var limit int
	var notFound string
	cmd := &cobra.Command{
		Use:   "geocode",
		Short: "Geocode stored addresses that have no outcome yet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeDB, err := a.geocodeService()
			if err != nil {
				return err
			}
			defer closeDB()

			stats, err := svc.Run(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Printf("geocode done found=%d not_found=%d empty=%d failed=%d\n", stats.Found, stats.NotFound, stats.Empty, stats.Failed)
			if notFound == "" {
				return nil
			}
			return writeNotFound(svc, notFound)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows to geocode (0 = all)")
	cmd.Flags().StringVar(&notFound, "not-found", "", "write the not-found list to this file")
	return cmd
}

func (a *app) reprocessCmd() *cobra.Command {
	var notFound string
	cmd := &cobra.Command{
		Use:   "reprocess",
		Short: "Clean up not-found addresses and geocode them again",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeDB, err := a.geocodeService()
			if err != nil {
				return err
			}
			defer closeDB()

			stats, err := svc.Reprocess(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("reprocess done found=%d still_not_found=%d failed=%d\n", stats.Found, stats.NotFound, stats.Failed)
			if notFound == "" {
				return nil
			}
			return writeNotFound(svc, notFound)
		},
	}
	cmd.Flags().StringVar(&notFound, "not-found", "", "write the remaining not-found list to this file")
	return cmd
}

func (a *app) geocodeService() (*pipeline.GeocodeService, func(), error) {
	if err := a.cfg.Require("GEOCODE_BASE_URL", a.cfg.GeocodeBaseURL); err != nil {
		return nil, nil, err
	}
	if err := a.cfg.Require("GEOCODE_USER_AGENT", a.cfg.GeocodeUserAgent); err != nil {
		return nil, nil, err
	}
	db, err := a.openDB()
	if err != nil {
		return nil, nil, err
	}
	svc := pipeline.NewGeocodeService(db, geocode.NewClient(a.cfg, a.logger), a.logger)
	return svc, func() { _ = db.Close() }, nil
}

func writeNotFound(svc *pipeline.GeocodeService, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	n, err := svc.WriteNotFound(f)
	if err != nil {
		f.Close()
		return err
	}
	fmt.Printf("not-found list rows=%d path=%s\n", n, path)
	return f.Close()
}

func (a *app) normalizeCmd() *cobra.Command {
	var cleanup bool
	cmd := &cobra.Command{
		Use:   "normalize [address...]",
		Short: "Print the geocodable form of addresses (stdin when no arguments)",
		RunE: func(cmd *cobra.Command, args []string) error {
			convert := address.Normalize
			if cleanup {
				convert = address.CleanupNotFound
			}
			return eachLine(args, func(line string) {
				fmt.Println(convert(line))
			})
		},
	}
	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "apply the not-found cleanup instead of normalization")
	return cmd
}

func (a *app) dpgsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dpgs [text...]",
		Short: "List the DPG references in texts (stdin when no arguments)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return eachLine(args, func(line string) {
				for _, ref := range extract.AllDPGs(line) {
					year := ""
					if ref.Year != nil {
						year = strconv.Itoa(*ref.Year)
					}
					fmt.Printf("%s\t%s\t%s\t%s\n", ref.Code, util.OrNone(ref.RawDate), util.OrNone(ref.ISODate), year)
				}
			})
		},
	}
}

func eachLine(args []string, fn func(string)) error {
	if len(args) > 0 {
		for _, arg := range args {
			fn(arg)
		}
		return nil
	}
	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			fn(line)
		}
	}
	return sc.Err()
}

func (a *app) planActsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan-acts",
		Short: "List the act PDFs still to download",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			tasks, err := pipeline.NewActsService(db, nil, a.logger).Plan()
			if err != nil {
				return err
			}
			for _, t := range tasks {
				fmt.Printf("%s\t%s\t%s\t%d\t%s\n", t.CaseNumber, t.Code, t.ISODate, t.Year, acts.FileName(t))
			}
			fmt.Printf("planned=%d\n", len(tasks))
			return nil
		},
	}
}

func (a *app) fetchActsCmd() *cobra.Command {
	var dir string
	var limit int
	cmd := &cobra.Command{
		Use:   "fetch-acts",
		Short: "Download the planned act PDFs from the acts portal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.Require("ACTS_BASE_URL", a.cfg.ActsBaseURL); err != nil {
				return err
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			svc := pipeline.NewActsService(db, acts.NewClient(a.cfg, a.logger), a.logger)
			counts, err := svc.FetchAll(cmd.Context(), dir, limit)
			if err != nil {
				return err
			}
			fmt.Printf("fetch done saved=%d no_pdf=%d not_found=%d error=%d\n",
				counts["saved"], counts["no_pdf"], counts["not_found"], counts["error"])
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", a.cfg.PDFDir, "directory for downloaded PDFs")
	cmd.Flags().IntVar(&limit, "limit", 0, "max downloads (0 = all)")
	return cmd
}

func (a *app) linkPDFsCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "link-pdfs",
		Short: "Attach downloaded PDFs to the case rows they belong to",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := pipeline.NewActsService(db, nil, a.logger).LinkPDFs(dir)
			if err != nil {
				return err
			}
			fmt.Printf("linked rows=%d\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", a.cfg.PDFDir, "directory holding act PDFs")
	return cmd
}

func (a *app) inspectPDFCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect-pdf <file.pdf>...",
		Short: "Show page count and DPG references found in act PDFs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				res, err := acts.Inspect(path)
				if err != nil {
					return fmt.Errorf("inspect %s: %w", path, err)
				}
				valid := acts.Valid([]string{filepath.Base(path)}, a.cfg.PDFValidCutoff)
				fmt.Printf("%s pages=%d refs=%d valid=%t\n", path, res.Pages, len(res.Refs), valid)
				for _, ref := range res.Refs {
					fmt.Printf("  DPG %s %s\n", ref.Code, util.OrNone(ref.ISODate))
				}
			}
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var csvPath, xlsxPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the dataset with coordinates, solution groups and PDF links",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			cases, err := db.ListCases()
			if err != nil {
				return err
			}
			geocodes, err := db.Geocodes()
			if err != nil {
				return err
			}
			links, err := db.PDFLinks()
			if err != nil {
				return err
			}
			rows := pipeline.BuildExportRows(cases, geocodes, links, a.cfg.PDFValidCutoff)

			if csvPath != "" {
				if err := pipeline.ExportCSV(rows, csvPath); err != nil {
					return err
				}
			}
			if xlsxPath != "" {
				if err := pipeline.ExportXLSX(rows, xlsxPath); err != nil {
					return err
				}
			}
			if err := db.SetMetadata(lastExportKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
				return err
			}
			fmt.Printf("exported %d rows csv=%s xlsx=%s\n", len(rows), csvPath, xlsxPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", filepath.Join(a.cfg.OutputDir, "dosare.csv"), "CSV output path (empty to skip)")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", filepath.Join(a.cfg.OutputDir, "dosare.xlsx"), "XLSX output path (empty to skip)")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <dosare.csv>",
		Short: "Load an exported CSV dataset into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := pipeline.ImportCSVFile(db, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("imported rows=%d from %s\n", n, args[0])
			return nil
		},
	}
}

func (a *app) convertCmd() *cobra.Command {
	var input, inType, output string
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert one case page or CSV to CSV/XLSX without using the store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if input == "" || output == "" {
				return fmt.Errorf("--input and --output are required")
			}
			recs, err := pipeline.ReadRecords(inType, input)
			if err != nil {
				return err
			}
			rows := pipeline.StandaloneRows(recs, a.cfg.PDFValidCutoff)
			if strings.EqualFold(filepath.Ext(output), ".xlsx") {
				err = pipeline.ExportXLSX(rows, output)
			} else {
				err = pipeline.ExportCSV(rows, output)
			}
			if err != nil {
				return err
			}
			fmt.Printf("convert done rows=%d output=%s\n", len(rows), output)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "case page (.html) or dataset (.csv)")
	cmd.Flags().StringVar(&inType, "type", "", "html|csv (default: from the extension)")
	cmd.Flags().StringVar(&output, "output", "", "output .csv or .xlsx path")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <row-id>",
		Short: "Print one stored case row as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid row id %q", args[0])
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			c, err := db.GetCase(id)
			if err != nil {
				return err
			}
			if c == nil {
				return fmt.Errorf("row %d not found", id)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(c)
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show stage runs, download outcomes and the last export time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.ListRuns()
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Printf("%s %-9s %s %v\n", r.CreatedAt, r.Stage, r.RunID, r.Counts)
			}
			downloads, err := db.DownloadCounts()
			if err != nil {
				return err
			}
			fmt.Printf("downloads %v\n", downloads)
			last, err := db.GetMetadata(lastExportKey)
			if err != nil {
				return err
			}
			fmt.Printf("last export %s\n", util.OrNone(last))
			return nil
		},
	}
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
