package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the pdf2docx version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("pdf2docx", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
