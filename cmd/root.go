package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "photo-pages",
	Short: "A CLI tool for laying out photo pages and exporting them as PDF",
	Long: `Photo Pages arranges the photos of a project on printable pages,
lets you edit titles, captions and the order of photos per page and
exports the result as a print-ready PDF document.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
