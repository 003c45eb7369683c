package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"resumeanalyzer/internal/app"
	"resumeanalyzer/internal/domain"
	"resumeanalyzer/internal/export"
	"resumeanalyzer/internal/handler"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE...",
	Short: "Summarise résumés, or rank them against --query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("query", "q", "", "job description or search query; enables ranking mode")
	analyzeCmd.Flags().StringP("format", "f", "json", "output format: json, csv or xlsx")
	analyzeCmd.Flags().StringP("output", "o", "", "write to this file instead of stdout (default name for xlsx)")
	analyzeCmd.Flags().String("user", "", "user id recorded in the audit log")
	analyzeCmd.Flags().String("request-id", "", "request id recorded in the audit log (default: random)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	query, _ := cmd.Flags().GetString("query")
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	userID, _ := cmd.Flags().GetString("user")
	requestID, _ := cmd.Flags().GetString("request-id")

	write, ext, err := writerFor(format)
	if err != nil {
		return err
	}

	docs, err := readDocuments(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			log.Warn("cleanup failed", zap.Error(err))
		}
	}()

	batch, err := a.Analysis.Analyze(ctx, domain.AnalysisInput{
		RequestID: requestID,
		UserID:    userID,
		Query:     query,
		Documents: docs,
	})
	if err != nil {
		return err
	}

	if output == "" && ext == "xlsx" {
		output = export.BuildFilename(string(batch.Mode), batch.RequestID, ext, time.Now())
	}
	if output == "" {
		return write(cmd.OutOrStdout(), batch)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", output, err)
	}
	if err := write(f, batch); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Info("results written", zap.String("path", output), zap.String("mode", string(batch.Mode)))
	return nil
}

func writerFor(format string) (func(io.Writer, *domain.BatchResult) error, string, error) {
	switch format {
	case "json", "":
		return writeJSON, "json", nil
	case "csv":
		return export.WriteCSV, "csv", nil
	case "xlsx":
		return export.WriteXLSX, "xlsx", nil
	default:
		return nil, "", fmt.Errorf("%w: %q", domain.ErrUnknownFormat, format)
	}
}

func writeJSON(w io.Writer, batch *domain.BatchResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(handler.NewAnalysisResponse(batch))
}

func readDocuments(paths []string) ([]domain.RawDocument, error) {
	docs := make([]domain.RawDocument, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		docs = append(docs, domain.RawDocument{Filename: filepath.Base(p), Data: data})
	}
	return docs, nil
}
