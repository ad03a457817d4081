package main

import (
	"github.com/spf13/cobra"

	"github.com/nedworks/ebilling/internal/rates"
)

var tariffCmd = &cobra.Command{
	Use:   "tariff",
	Short: "Manage the tariff slab table",
}

var tariffImportCmd = &cobra.Command{
	Use:   "import [schedule.pdf]",
	Short: "Replace the slab table from a published tariff schedule PDF",
	Long: `Parses the slab table out of a tariff schedule PDF and replaces the
stored slabs with it. With no argument the path comes from
EBILLING_TARIFF_SCHEDULE_PDF.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		path := cfg.Doc.TariffSchedule
		if len(args) == 1 {
			path = args[0]
		}

		st, err := openStorage(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		sched, err := rates.NewImportService(st, log).ImportFromPDF(cmd.Context(), path)
		if err != nil {
			return err
		}
		cmd.Printf("imported %d tariff slabs\n", len(sched.Slabs))
		return nil
	},
}

var tariffListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the stored slab table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := openStorage(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		slabs, err := st.ListTariffSlabs(cmd.Context())
		if err != nil {
			return err
		}
		for _, s := range slabs {
			cmd.Printf("%10.0f - %-10.0f %s per unit\n", s.MinUnits, s.MaxUnits, s.RatePerUnit.StringFixed(2))
		}
		return nil
	},
}

func init() {
	tariffCmd.AddCommand(tariffImportCmd, tariffListCmd)
	rootCmd.AddCommand(tariffCmd)
}
