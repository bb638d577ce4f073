package output

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/solderline/smt-scheduler/pkg/domain/entities"
)

//go:embed templates/*.html
var templateFS embed.FS

// ganttBar is one rendered bar in the D3 timeline, keyed on the fields the
// browser-side script groups and colors by.
type ganttBar struct {
	Product     string `json:"product"`
	Batch       int    `json:"batch"`
	TotalBatches int   `json:"totalBatches"`
	Stage       string `json:"stage"`
	Line        string `json:"line"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
}

type ganttTemplateData struct {
	Status          string
	TaskCount       int
	MakespanMinutes int
	GeneratedAt     string
	DataJSON        template.JS
}

func generateHTMLOutput(result *entities.ScheduleResult, config Config) error {
	bars := make([]ganttBar, 0, len(result.Tasks))
	for _, t := range result.Tasks {
		bars = append(bars, ganttBar{
			Product:      t.ProductID,
			Batch:        t.BatchNumber,
			TotalBatches: t.TotalBatches,
			Stage:        t.StageName,
			Line:         t.LineName,
			Start:        t.StartMinute,
			End:          t.EndMinute,
		})
	}

	data, err := json.Marshal(bars)
	if err != nil {
		return fmt.Errorf("marshaling gantt bars: %w", err)
	}

	tmpl, err := template.ParseFS(templateFS, "templates/gantt.html")
	if err != nil {
		return fmt.Errorf("parsing gantt template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, ganttTemplateData{
		Status:          result.Status.String(),
		TaskCount:       len(result.Tasks),
		MakespanMinutes: result.MakespanMinutes,
		GeneratedAt:     time.Now().Format("2006-01-02 15:04:05"),
		DataJSON:        template.JS(data),
	})
	if err != nil {
		return fmt.Errorf("rendering gantt template: %w", err)
	}

	outDir := config.OutputDir
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(outDir, "schedule.html")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if config.Verbose {
		fmt.Printf("wrote %s\n", path)
	}
	return nil
}
