package main

import (
	"os/exec"

	"github.com/charmbracelet/lipgloss"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/morphd/pkg/errors"
)

// externalTool is one binary morphd shells out to.
type externalTool struct {
	name     string
	purpose  string
	required bool
}

var externalTools = []externalTool{
	{"file", "source format detection", true},
	{"vips", "image conversion and PDF rasterization", true},
	{"ffmpeg", "audio and video conversion", true},
	{"pandoc", "document conversion", true},
	{"pdfunite", "merging folder pages into one PDF", true},
	{"magick", "rendering images to PDF pages", true},
	{"pdfinfo", "PDF page counts (single page assumed without it)", false},
	{"tar", "directory snapshots in the version store", false},
	{"notify-send", "desktop notifications", false},
	{"sudo", "delivering notifications as the file owner", false},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the external conversion tools are installed",
	Long: `Doctor looks up every external binary morphd depends on and reports
what is missing. Required tools block conversions entirely; optional
ones degrade a single feature.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		header := lipgloss.NewStyle().Bold(true).MarginBottom(1)
		cmd.Println(header.Render("morphd environment check"))

		rows := pterm.TableData{{"Tool", "Status", "Used for"}}
		missing := 0
		for _, tool := range externalTools {
			status := pterm.Green("ok")
			if _, err := exec.LookPath(tool.name); err != nil {
				if tool.required {
					status = pterm.Red("missing")
					missing++
				} else {
					status = pterm.Yellow("missing (optional)")
				}
			}
			rows = append(rows, []string{tool.name, status, tool.purpose})
		}

		table, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
		if err != nil {
			return err
		}
		cmd.Println(table)

		if missing > 0 {
			return errors.Newf(errors.ErrNotFound,
				"%d required tool(s) missing", missing)
		}
		cmd.Println("All required tools are available.")
		return nil
	},
}
