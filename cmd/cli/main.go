package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/transtar/freight-audit/internal/config"
	"github.com/transtar/freight-audit/internal/docstore"
	"github.com/transtar/freight-audit/internal/logger"
	"github.com/transtar/freight-audit/internal/pdftext"
	"github.com/transtar/freight-audit/internal/pipeline"
	"github.com/transtar/freight-audit/internal/xlsxreport"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runAudit(log)
	case "inspect":
		runInspect(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Freight Audit CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  run       Reconcile transport orders against credit notes")
	fmt.Println("  inspect   Parse a single document and print the record")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runAudit(log zerolog.Logger) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("AUDIT_CONFIG"), "Path to the YAML config file")
	ordersGlob := fs.String("orders", "", "Glob of transport order documents")
	notesGlob := fs.String("notes", "", "Glob of credit note documents")
	output := fs.String("out", "", "Output workbook path (defaults to a timestamped name)")
	fs.Parse(os.Args[2:])

	if *ordersGlob == "" && *notesGlob == "" {
		log.Fatal().Msg("Error: at least one of --orders and --notes is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	orderDocs, err := loadGlob(*ordersGlob)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load order documents")
	}
	noteDocs, err := loadGlob(*notesGlob)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load note documents")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	state := &pipeline.AuditState{OrderDocs: orderDocs, NoteDocs: noteDocs}
	if err := pipeline.NewAuditPipeline(cfg.ReportBuilder(), cfg.Workers).Execute(ctx, state); err != nil {
		log.Fatal().Err(err).Msg("Audit failed")
	}

	for _, failure := range state.Failures {
		log.Warn().Str("document", failure.Document).Err(failure.Err).Msg("Document excluded from batch")
	}

	path := *output
	if path == "" {
		path = docstore.NewReportName(time.Now())
	}
	if err := xlsxreport.Write(path, state.Report); err != nil {
		log.Fatal().Err(err).Msg("Failed to write workbook")
	}

	fmt.Printf("Wrote %s: %d orders, %d notes, %d matched, %d excluded\n",
		path, len(state.Orders), len(state.Notes), state.MatchedCount, len(state.Failures))
}

func runInspect(log zerolog.Logger) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	file := fs.String("file", "", "Path to the document")
	kind := fs.String("type", "order", "Document type: order or note")
	fs.Parse(os.Args[2:])

	if *file == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	text, err := loadText(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read document")
	}

	var record interface{}
	switch *kind {
	case "order":
		record, err = pipeline.ParseTransportOrder(filepath.Base(*file), text)
	case "note":
		record, err = pipeline.ParseCreditNote(filepath.Base(*file), text)
	default:
		log.Fatal().Str("type", *kind).Msg("Unknown document type")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Parse failed")
	}

	out, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode record")
	}
	fmt.Println(string(out))
}

func loadGlob(pattern string) ([]pipeline.Document, error) {
	if pattern == "" {
		return nil, nil
	}
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	var docs []pipeline.Document
	for _, path := range paths {
		text, err := loadText(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, pipeline.Document{ID: filepath.Base(path), Text: text})
	}
	return docs, nil
}

func loadText(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return pdftext.ExtractFile(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
