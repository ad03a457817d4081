package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var billOutputDir string

var billCmd = &cobra.Command{
	Use:   "bill",
	Short: "Render bill documents",
}

var billGenerateCmd = &cobra.Command{
	Use:   "generate <flat-no> <billing-month>",
	Short: "Render one flat's bill for a month (YYYY-MM)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		st, err := openStorage(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		doc, err := newService(st, log).GenerateBill(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return writeDocument(cmd, outputDir(cfg.Doc.OutputDir), doc.Filename, doc.Bytes)
	},
}

var billBulkCmd = &cobra.Command{
	Use:   "bulk <billing-month>",
	Short: "Render every stored bill for a month (YYYY-MM) into one document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		st, err := openStorage(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		doc, err := newService(st, log).GenerateBulkBills(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return writeDocument(cmd, outputDir(cfg.Doc.OutputDir), doc.Filename, doc.Bytes)
	},
}

func outputDir(configured string) string {
	if billOutputDir != "" {
		return billOutputDir
	}
	return configured
}

func writeDocument(cmd *cobra.Command, dir, filename string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	cmd.Printf("wrote %s\n", path)
	return nil
}

func init() {
	billCmd.PersistentFlags().StringVar(&billOutputDir, "out", "", "output directory (default from EBILLING_BILLS_DIR)")
	billCmd.AddCommand(billGenerateCmd, billBulkCmd)
	rootCmd.AddCommand(billCmd)
}
