package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arnavshah/duty-roster-go/pkg/audit"
	"github.com/arnavshah/duty-roster-go/pkg/calendar"
	"github.com/arnavshah/duty-roster-go/pkg/config"
	"github.com/arnavshah/duty-roster-go/pkg/database"
	"github.com/arnavshah/duty-roster-go/pkg/logger"
	"github.com/arnavshah/duty-roster-go/pkg/repository"
	"github.com/arnavshah/duty-roster-go/pkg/scheduler"
)

// rootOptions holds global flags and the lazily built dependencies
type rootOptions struct {
	ConfigFile string

	cfg *config.Config
	log *zap.Logger
}

// deps is what the roster commands work with
type deps struct {
	repo     *repository.GormRepository
	engine   *scheduler.Engine
	calendar *calendar.Provisioner
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Duty roster operator tool",
		Long:  "Generate, reconcile and inspect monthly duty roster suggestions.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigFile)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default ./config/config.yaml or ./config.yaml)")

	cmd.AddCommand(newGenerateCommand(opts))
	cmd.AddCommand(newReconcileCommand(opts))
	cmd.AddCommand(newRankCommand(opts))
	cmd.AddCommand(newServicesCommand(opts))
	cmd.AddCommand(newKeygenCommand(opts))

	return cmd
}

// open connects to the database and wires the engine
func (o *rootOptions) open() (*deps, error) {
	db, err := database.InitDB(o.cfg.Database, o.log)
	if err != nil {
		return nil, err
	}
	repo := repository.New(db, repository.Options{
		IncludeExtra:        o.cfg.Scheduling.SuggestForExtra,
		DefaultMonthlyLimit: o.cfg.Scheduling.DefaultMonthlyLimit,
		Observer:            audit.NewRecorder(o.cfg.Scheduling.CountExtraInLastServed),
	})
	prov, err := calendar.NewProvisioner(db, o.cfg.Scheduling)
	if err != nil {
		return nil, err
	}
	return &deps{repo: repo, engine: scheduler.New(repo), calendar: prov}, nil
}

// monthFlags are the --year/--month/--next flags shared by the month commands
type monthFlags struct {
	Year  int
	Month int
	Next  bool
}

func (f *monthFlags) register(cmd *cobra.Command, withNext bool) {
	cmd.Flags().IntVar(&f.Year, "year", 0, "target year (default: current)")
	cmd.Flags().IntVar(&f.Month, "month", 0, "target month 1-12 (default: current)")
	if withNext {
		cmd.Flags().BoolVar(&f.Next, "next", false, "use next month when --year/--month are omitted")
	}
}

// resolve fills a missing year or month from today in the configured time zone
func (f *monthFlags) resolve(o *rootOptions) (int, int, error) {
	year, month := resolveMonth(time.Now().In(o.cfg.Location()), f.Year, f.Month, f.Next)
	if err := scheduler.ValidateMonth(year, month); err != nil {
		return 0, 0, err
	}
	return year, month, nil
}

func resolveMonth(today time.Time, year, month int, next bool) (int, int) {
	if year != 0 && month != 0 {
		return year, month
	}
	if next {
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
		return first.Year(), int(first.Month())
	}
	return today.Year(), int(today.Month())
}

func monthLabel(year, month int) string {
	return fmt.Sprintf("%d-%02d", year, month)
}
