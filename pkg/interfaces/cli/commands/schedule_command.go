// Package commands implements the smtsched CLI verbs. Each verb is a
// Config struct of flag values plus a Command with an Execute(ctx) entry
// point; NewRootCommand wraps these in a cobra.Command tree so the binary
// gets cobra's flag parsing, usage text, and subcommand dispatch.
package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/solderline/smt-scheduler/pkg/application/services/orchestration"
	cfgpkg "github.com/solderline/smt-scheduler/pkg/config"
	"github.com/solderline/smt-scheduler/pkg/domain/entities"
	"github.com/solderline/smt-scheduler/pkg/infrastructure/repositories/csv"
	"github.com/solderline/smt-scheduler/pkg/infrastructure/repositories/excel"
	"github.com/solderline/smt-scheduler/pkg/infrastructure/repositories/memory"
	"github.com/solderline/smt-scheduler/pkg/infrastructure/solver"
	"github.com/solderline/smt-scheduler/pkg/interfaces/cli/output"
)

// Config holds the resolved settings for one schedule run: the parsed CLI
// flags layered over config.Config.
type Config struct {
	ConfigFile  string
	PlanStart   string
	OutputDir   string
	Format      string
	Verbose     bool
}

// Command runs one end-to-end solve and writes its report.
type Command struct {
	config Config
	logger *logrus.Logger
}

// NewScheduleCommand builds a Command bound to the given flag values and
// logger.
func NewScheduleCommand(config Config, logger *logrus.Logger) *Command {
	return &Command{config: config, logger: logger}
}

// Execute loads the catalog, runs the orchestration engine, and renders
// the result in the requested format.
func (c *Command) Execute(ctx context.Context) error {
	cfg, err := cfgpkg.Load(c.config.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if c.config.Format != "" {
		cfg.Output.Format = c.config.Format
	}
	if c.config.OutputDir != "" {
		cfg.Output.Dir = c.config.OutputDir
	}

	if c.config.Verbose {
		c.logger.Info("loading catalog")
	}
	catalog, err := c.loadCatalog(cfg)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	planStart := time.Now()
	if c.config.PlanStart != "" {
		planStart, err = time.Parse("2006-01-02", c.config.PlanStart)
		if err != nil {
			return fmt.Errorf("invalid --plan-start %q: %w", c.config.PlanStart, err)
		}
	}

	engine := orchestration.New(
		catalog, catalog, catalog, catalog, catalog,
		cfg.Flags,
		solver.Params{
			TimeLimit:  cfg.SolverTimeLimit(),
			NumWorkers: cfg.Solver.NumWorkers,
			RandomSeed: cfg.Solver.RandomSeed,
		},
	)
	engine.Logger = c.logger

	if c.config.Verbose {
		c.logger.Info("solving")
	}
	start := time.Now()
	result, err := engine.Solve(ctx, planStart)
	elapsed := time.Since(start)
	if err != nil {
		return fmt.Errorf("solve failed: %w", err)
	}

	if c.config.Verbose {
		c.logger.WithField("elapsed", elapsed).Info(result.Summary())
	}

	return output.Generate(result, output.Config{
		Format:    cfg.Output.Format,
		OutputDir: cfg.Output.Dir,
		Verbose:   c.config.Verbose,
		SolveTime: elapsed,
	})
}

// loadCatalog reads stages/lines/products/routings/calendar either from
// the Excel workbook named by input.excel in cfg or, when that is empty,
// from the five CSV files named in cfg, loading each into the in-memory
// catalog in turn.
func (c *Command) loadCatalog(cfg *cfgpkg.Config) (*memory.Catalog, error) {
	catalog := memory.NewCatalog()

	if cfg.Input.Excel != "" {
		return c.loadFromExcel(cfg, catalog)
	}
	return c.loadFromCSV(cfg, catalog)
}

func (c *Command) loadFromExcel(cfg *cfgpkg.Config, catalog *memory.Catalog) (*memory.Catalog, error) {
	wb, err := excel.Open(cfg.Input.Excel)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer wb.Close()

	stages, err := wb.LoadStages()
	if err != nil {
		return nil, fmt.Errorf("loading stages: %w", err)
	}
	if err := catalog.LoadStages(stages); err != nil {
		return nil, err
	}

	lines, err := wb.LoadLines()
	if err != nil {
		return nil, fmt.Errorf("loading lines: %w", err)
	}
	if err := catalog.LoadLines(lines); err != nil {
		return nil, err
	}

	products, err := wb.LoadProducts()
	if err != nil {
		return nil, fmt.Errorf("loading products: %w", err)
	}
	if err := catalog.LoadProducts(products); err != nil {
		return nil, err
	}

	routings, err := wb.LoadRoutings(stages, cfg.BaseLeadTime(), cfg.Complexity())
	if err != nil {
		return nil, fmt.Errorf("loading routings: %w", err)
	}
	if err := catalog.LoadRoutings(routings); err != nil {
		return nil, err
	}

	cal, err := wb.LoadCalendar(cfg.DefaultShift())
	if err != nil {
		return nil, fmt.Errorf("loading calendar: %w", err)
	}
	if err := catalog.LoadCalendar(cal); err != nil {
		return nil, err
	}

	if err := catalog.LoadStageTransferMatrix(entities.NewStageTransferMatrix(0)); err != nil {
		return nil, err
	}
	if err := catalog.LoadLineTransferMatrix(entities.NewLineTransferMatrix(0)); err != nil {
		return nil, err
	}
	return catalog, nil
}

func (c *Command) loadFromCSV(cfg *cfgpkg.Config, catalog *memory.Catalog) (*memory.Catalog, error) {
	loader := csv.NewLoader()

	stages, err := loader.LoadStages(cfg.Input.Stages)
	if err != nil {
		return nil, fmt.Errorf("loading stages: %w", err)
	}
	if err := catalog.LoadStages(stages); err != nil {
		return nil, err
	}

	lines, err := loader.LoadLines(cfg.Input.Lines)
	if err != nil {
		return nil, fmt.Errorf("loading lines: %w", err)
	}
	if err := catalog.LoadLines(lines); err != nil {
		return nil, err
	}

	products, err := loader.LoadProducts(cfg.Input.Products)
	if err != nil {
		return nil, fmt.Errorf("loading products: %w", err)
	}
	if err := catalog.LoadProducts(products); err != nil {
		return nil, err
	}

	routings, err := loader.LoadRoutings(cfg.Input.Routings, stages, cfg.BaseLeadTime(), cfg.Complexity())
	if err != nil {
		return nil, fmt.Errorf("loading routings: %w", err)
	}
	if err := catalog.LoadRoutings(routings); err != nil {
		return nil, err
	}

	cal, err := loader.LoadCalendar(cfg.Input.Calendar, cfg.DefaultShift())
	if err != nil {
		return nil, fmt.Errorf("loading calendar: %w", err)
	}
	if err := catalog.LoadCalendar(cal); err != nil {
		return nil, err
	}

	if err := catalog.LoadStageTransferMatrix(entities.NewStageTransferMatrix(0)); err != nil {
		return nil, err
	}
	if err := catalog.LoadLineTransferMatrix(entities.NewLineTransferMatrix(0)); err != nil {
		return nil, err
	}
	return catalog, nil
}
