package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"genie-adapter/internal/usecase"
)

var (
	askUser    string
	askSession string
	askMaxWait int
	askLimit   int
)

var askCmd = &cobra.Command{
	Use:   "ask QUESTION...",
	Short: "Ask the Genie space a question",
	Long: `Ask sends a natural-language question to the configured Genie space, waits for
the answer and prints the analysis, the generated SQL and the result table.

Questions from the same --user continue the same conversation until
"geniectl clear-session" is run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp(a)

		spinner, _ := pterm.DefaultSpinner.Start("Waiting for Genie...")
		out, err := a.Service.Query(cmd.Context(), usecase.QueryInput{
			UserID:    askUser,
			Question:  strings.Join(args, " "),
			SessionID: askSession,
			MaxWait:   time.Duration(askMaxWait) * time.Second,
		})
		if err != nil {
			if spinner != nil {
				spinner.Fail("Query failed")
			}
			return describeError(err)
		}
		if spinner != nil {
			spinner.Success(fmt.Sprintf("Genie answered (%s)", out.Status))
		}

		renderAnswer(out, askLimit)
		return nil
	},
}

func init() {
	askCmd.Flags().StringVarP(&askUser, "user", "u", defaultUser(), "User whose conversation to continue")
	askCmd.Flags().StringVar(&askSession, "session", "", "Continue this conversation id instead of the user's current one")
	askCmd.Flags().IntVar(&askMaxWait, "max-wait", 0, "Seconds to wait for the answer (default 120)")
	askCmd.Flags().IntVar(&askLimit, "limit", 20, "Maximum number of result rows to print (0 prints all)")
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

func renderAnswer(out usecase.QueryOutput, limit int) {
	pterm.DefaultBox.
		WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Answer")).
		WithPadding(1).
		Println(out.AnswerText)
	pterm.Println()

	if out.SQL != "" {
		pterm.Println(pterm.NewStyle(pterm.Bold).Sprint("SQL"))
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint(out.SQL))
		pterm.Println()
	}

	if len(out.Columns) > 0 {
		data, truncated := tableData(out.Columns, out.Rows, limit)
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			pterm.Warning.Println("could not render result table:", err)
		}
		if truncated {
			pterm.Println(pterm.NewStyle(pterm.FgGray).Sprintf("showing %d of %d rows", limit, out.RowCount))
		}
		pterm.Println()
	}

	pterm.Println(pterm.NewStyle(pterm.FgGray).Sprintf("session %s", out.SessionID))
}

// tableData renders columns and at most limit rows as strings. A limit of
// zero or less keeps every row.
func tableData(columns []string, rows [][]any, limit int) (pterm.TableData, bool) {
	truncated := limit > 0 && len(rows) > limit
	if truncated {
		rows = rows[:limit]
	}
	data := make(pterm.TableData, 0, len(rows)+1)
	data = append(data, append([]string(nil), columns...))
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i := range cells {
			cells[i] = "NULL"
			if i < len(row) && row[i] != nil {
				cells[i] = fmt.Sprint(row[i])
			}
		}
		data = append(data, cells)
	}
	return data, truncated
}

// describeError turns a usecase.Error into a message fit for the terminal.
func describeError(err error) error {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		return err
	}
	if ue.Detail != "" {
		return fmt.Errorf("%s: %s", ue.Code, ue.Detail)
	}
	return fmt.Errorf("%s (%s)", ue.Code, ue.Reason)
}
