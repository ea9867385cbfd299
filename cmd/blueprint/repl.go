package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/blueprint/internal/mcp"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive command loop",
	Long: `Reads one command per line in the form "<method> <json params>" and prints
the JSON result.

Example:
  blueprint> blueprint.proposal.sample {"contractSignDate":"2024-01-05","select":true}
  blueprint> blueprint.task.set_duration {"taskId":"<task-id>","duration":5}`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := newServer()
		if err != nil {
			return err
		}
		return runREPL(server, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func runREPL(server *mcp.MCPServer, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Blueprint REPL started")
	fmt.Fprintln(out, "Type 'help' for available commands or 'quit' to exit")

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "blueprint> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if input == "quit" || input == "exit" {
			fmt.Fprintln(out, "Goodbye!")
			break
		}

		if input == "help" {
			printHelp(out)
			continue
		}

		handleCommand(server, input, out)
	}
	return scanner.Err()
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Available commands:")
	fmt.Fprintln(out, "  help                                 - Show this help")
	fmt.Fprintln(out, "  quit/exit                            - Exit the REPL")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  Proposal commands:")
	fmt.Fprintln(out, "    blueprint.proposal.create          - Create a proposal")
	fmt.Fprintln(out, "    blueprint.proposal.sample          - Load the sample proposal")
	fmt.Fprintln(out, "    blueprint.proposal.list            - List proposals")
	fmt.Fprintln(out, "    blueprint.proposal.get             - Get a proposal")
	fmt.Fprintln(out, "    blueprint.proposal.set_current     - Select a proposal")
	fmt.Fprintln(out, "    blueprint.proposal.summary         - Schedule summary and insights")
	fmt.Fprintln(out, "    blueprint.proposal.import          - Load a YAML or JSON document")
	fmt.Fprintln(out, "    blueprint.proposal.save            - Write a YAML or JSON document")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  Objective and task commands:")
	fmt.Fprintln(out, "    blueprint.objective.add            - Append an objective")
	fmt.Fprintln(out, "    blueprint.task.add                 - Append a task to an objective")
	fmt.Fprintln(out, "    blueprint.task.remove              - Remove a task")
	fmt.Fprintln(out, "    blueprint.task.set_duration        - Change working days and propagate")
	fmt.Fprintln(out, "    blueprint.task.set_start           - Move a start date and propagate")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  Schedule commands:")
	fmt.Fprintln(out, "    blueprint.schedule.set_sign_date   - Set the contract sign date")
	fmt.Fprintln(out, "    blueprint.schedule.recompute       - Reschedule from the sign date")
	fmt.Fprintln(out, "    blueprint.schedule.get             - Task dates as rows")
	fmt.Fprintln(out, "    blueprint.schedule.gantt           - Gantt bars")
	fmt.Fprintln(out, "    blueprint.schedule.export          - markdown, csv, ics, json or yaml")
	fmt.Fprintln(out, "    blueprint.search                   - Search tasks")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  Calendar commands:")
	fmt.Fprintln(out, "    blueprint.calendar.is_holiday      - Classify a date")
	fmt.Fprintln(out, "    blueprint.calendar.next_working_day - Next working day after a date")
	fmt.Fprintln(out, "    blueprint.calendar.span            - Calendar days covered by N working days")
	fmt.Fprintln(out, "    blueprint.calendar.holidays        - Holidays observed in a year")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Example usage:")
	fmt.Fprintln(out, `  blueprint.proposal.create {"name":"Library","client":"City","contractSignDate":"2024-01-05"}`)
	fmt.Fprintln(out, `  blueprint.calendar.span {"start":"2024-01-05","duration":3}`)
}

func handleCommand(server *mcp.MCPServer, input string, out io.Writer) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(out, "Error: internal error: %v\n", r)
		}
	}()

	method, paramStr, _ := strings.Cut(input, " ")

	var params json.RawMessage
	if paramStr = strings.TrimSpace(paramStr); paramStr != "" {
		if err := json.Unmarshal([]byte(paramStr), &params); err != nil {
			fmt.Fprintf(out, "Error: Invalid JSON parameters: %v\n", err)
			return
		}
	}

	result, err := server.HandleCommand(method, params)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}

	if text, ok := result.(string); ok {
		fmt.Fprintln(out, text)
		return
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(out, "Error formatting result: %v\n", err)
		return
	}
	fmt.Fprintln(out, string(output))
}
