package cmd

import (
	"fmt"
	"os"
	"time"

	"pergaminos/internal/models"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var tasksLimit int

// tasksCmd lists recent background tasks for operator inspection.
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List recent background tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		appInstance, err := GetAppFromContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to get app instance: %w", err)
		}
		defer appInstance.Close()

		tasks, err := appInstance.Tasks.ListRecentTasks(ctx, tasksLimit)
		if err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks found.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Task ID", "Kind", "Status", "Progress", "Subject ID", "Created At", "Updated At"})
		table.SetBorder(true)
		table.SetRowLine(true)

		for _, task := range tasks {
			status := task.Status
			switch task.Status {
			case models.TaskStatusCompleted:
				status = color.GreenString(task.Status)
			case models.TaskStatusFailed:
				status = color.RedString(task.Status)
			case models.TaskStatusProcessing:
				status = color.YellowString(task.Status)
			}

			row := []string{
				task.ID.String(),
				task.Kind,
				status,
				fmt.Sprintf("%d%%", task.Progress),
				task.SubjectID.String(),
				task.CreatedAt.Format(time.RFC3339),
				task.UpdatedAt.Format(time.RFC3339),
			}
			table.Append(row)
		}

		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tasksCmd)
	tasksCmd.Flags().IntVar(&tasksLimit, "limit", 20, "maximum number of tasks to show")
}
