// Package output renders a *entities.ScheduleResult through one Generate
// entry point dispatching on a requested format.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/solderline/smt-scheduler/pkg/domain/entities"
)

// Config holds configuration for output generation.
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
	SolveTime time.Duration
}

// Generate creates output in the requested format.
func Generate(result *entities.ScheduleResult, config Config) error {
	switch config.Format {
	case "", "text":
		return generateTextOutput(result, config)
	case "json":
		return generateJSONOutput(result, config)
	case "html":
		return generateHTMLOutput(result, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

func generateTextOutput(result *entities.ScheduleResult, config Config) error {
	fmt.Printf("Schedule Results\n")
	fmt.Printf("================\n\n")
	fmt.Print(result.Summary())
	fmt.Printf("Solve time: %v\n\n", config.SolveTime)

	if len(result.Tasks) > 0 {
		fmt.Printf("Scheduled Tasks:\n")
		fmt.Printf("%-10s %-6s %-12s %-10s %-12s %-20s %-20s\n",
			"Product", "Batch", "Stage", "Line", "Qty", "Start", "End")
		fmt.Printf("%-10s %-6s %-12s %-10s %-12s %-20s %-20s\n",
			"----------", "------", "------------", "----------", "------------", "--------------------", "--------------------")
		for _, t := range result.Tasks {
			fmt.Printf("%-10s %d/%-4d %-12s %-10s %-12d %-20s %-20s\n",
				t.ProductID, t.BatchNumber, t.TotalBatches, t.StageName, t.LineName, t.Quantity,
				t.StartDate.Format("2006-01-02 15:04"), t.EndDate.Format("2006-01-02 15:04"))
		}
		fmt.Println()
	}

	if len(result.MissedDeadlines) > 0 {
		fmt.Printf("Missed Deadlines:\n")
		for _, m := range result.MissedDeadlines {
			fmt.Printf("  %s: due %s, completed %s (%d working days late)\n",
				m.ProductID, m.DueDate.Format("2006-01-02"), m.ActualCompletion.Format("2006-01-02"), m.DelayWorkingDays)
		}
		fmt.Println()
	}

	if len(result.CapacityAnalyses) > 0 {
		fmt.Printf("Capacity Analysis:\n")
		for _, c := range result.CapacityAnalyses {
			marker := ""
			if c.Bottleneck {
				marker = " [BOTTLENECK]"
			}
			fmt.Printf("  %s: %d/%d minutes%s\n", c.StageName, c.RequiredMinutes, c.AvailableMinutes, marker)
		}
		fmt.Println()
	}

	if len(result.FailureReasons) > 0 {
		fmt.Printf("Failure Reasons:\n")
		for _, r := range result.FailureReasons {
			fmt.Printf("  [%s] %s\n", r.Code, r.Message)
		}
	}

	if config.OutputDir != "" {
		return writeTextFile(result, config)
	}
	return nil
}

func writeTextFile(result *entities.ScheduleResult, config Config) error {
	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(config.OutputDir, "schedule.txt")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	fmt.Fprint(f, result.Summary())
	return nil
}

func generateJSONOutput(result *entities.ScheduleResult, config Config) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if config.OutputDir == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(config.OutputDir, "schedule.json")
	return os.WriteFile(path, data, 0o644)
}
