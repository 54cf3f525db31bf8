// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"os"
	"reflect"
	"strconv"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v2"

	"github.com/tfback/tfback/internal/config"
)

// Row is one result row keyed by column name.
type Row = map[string]interface{}

// InterfaceToString converts supported primitive or composite values to a
// string. A custom empty value may be provided.
func InterfaceToString(value interface{}, emptyValue ...string) string {
	if len(emptyValue) == 0 {
		emptyValue = []string{""}
	}

	if value == nil || reflect.ValueOf(value).IsZero() {
		return emptyValue[0]
	}

	// We note that the int and bool cases are unlikely to be reached due to JSON
	// parsing behavior.
	switch value := value.(type) {
	case string:
		return value
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		// Our current use cases have no need for an actual float, so we just return
		// an integer.
		return fmt.Sprintf("%.0f", value)
	case bool:
		return strconv.FormatBool(value)
	default:
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(jsonBytes)
	}
}

// Emit renders the dataset per the command's --output flag. columns fixes
// both the column order and which keys are rendered in text mode; json and
// yaml modes emit the rows as-is.
func Emit(dataset []Row, columns []string, cmd *cli.Command, w io.Writer) {
	if w == nil {
		w = os.Stdout
	}

	switch cmd.String("output") {
	case "json":
		jsonOutput, err := json.Marshal(dataset)
		if err != nil {
			log.Errorf("Emit json marshal: %v", err)
		}
		w.Write(jsonOutput)
		fmt.Fprintln(w)
	case "yaml":
		yamlOutput, err := yaml.Marshal(dataset)
		if err != nil {
			log.Errorf("Emit yaml marshal: %v", err)
		}
		w.Write(yamlOutput)
	default:
		TableWriter(dataset, columns, cmd, w)
	}
}

// TableWriter renders the result set in a tabular form honoring color,
// titles and padding options. Output is written to w. If w is nil, os.Stdout
// is used.
func TableWriter(resultSet []Row, columns []string, cmd *cli.Command, w io.Writer) {
	if w == nil {
		w = os.Stdout
	}

	// We return early if there are no results to display.
	if len(resultSet) == 0 {
		return
	}

	// We initialize the table styles.
	var (
		headerStyle  = lipgloss.NewStyle().Align(lipgloss.Left).Bold(true)
		cellStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		evenRowStyle = cellStyle
		oddRowStyle  = cellStyle
	)

	// And then color styles if --color is present.
	if cmd.Bool("color") {
		headerColor, evenColor, oddColor := getColors("colors")

		headerStyle = headerStyle.Foreground(headerColor)
		evenRowStyle = evenRowStyle.Foreground(evenColor)
		oddRowStyle = oddRowStyle.Foreground(oddColor)
	}

	// We build the table rows from the result set.
	var rows [][]string
	for _, result := range resultSet {
		row := make([]string, 0, len(columns))
		for _, col := range columns {
			row = append(row, InterfaceToString(result[col], "-"))
		}
		rows = append(rows, row)
	}

	// We render the header if present.
	if cmd.Metadata["header"] != nil {
		fmt.Fprintln(w, headerStyle.Render(cmd.Metadata["header"].(string)))
	}

	// We configure the table with padding and styles.
	pad := cmd.Int("padding")
	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == table.HeaderRow:
				style = headerStyle
			case row%2 == 0:
				style = evenRowStyle
			default:
				style = oddRowStyle
			}

			if col > 0 {
				style = style.PaddingLeft(pad)
			}

			return style
		}).
		Headers().
		Rows(rows...)

	// We add column headers if titles are enabled.
	if cmd.Bool("titles") {
		// https://github.com/charmbracelet/lipgloss/issues/261
		t = t.Headers(columns...).BorderHeader(false)
	}
	fmt.Fprintln(w, t)

	// We render the footer if present.
	if cmd.Metadata["footer"] != nil {
		fmt.Fprintln(w, headerStyle.Render(cmd.Metadata["footer"].(string)))
	}
}

// getColors returns configured color values for table rendering. Each color is
// selected based on terminal background color and brightness so that we can
// make sure output is reasonably visible for all(?) terminal themes.
func getColors(key string) (header, even, odd color.Color) {
	isDark := lipgloss.HasDarkBackground(os.Stdin, os.Stdout)

	// Use the explicit color if found in the config and leave it up to the user
	// to choose appropriate colors for their theme. If not found, pick a
	// reasonable default based on terminal background.
	resolveColor := func(key string, light string, dark string) color.Color {
		colorCfg, err := config.GetString(key)
		if err == nil {
			return lipgloss.Color(colorCfg)
		}

		if isDark {
			return lipgloss.Color(dark)
		}
		return lipgloss.Color(light)
	}

	header = resolveColor(key+".title", "#b08800", "#f6be00")
	even = resolveColor(key+".even", "#333333", "#ffffff")
	odd = resolveColor(key+".odd", "#0088a0", "#00c8f0")

	return
}
