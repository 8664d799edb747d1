// Command questctl validates a quest catalog and inspects stored player progress.
//
// Process settings come from QUEST_* environment variables and database
// settings from DB_* variables. Flags override the catalog path and select
// the checks to run.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/urbanquest/quest-progression/pkg/cache"
	"github.com/urbanquest/quest-progression/pkg/common"
	"github.com/urbanquest/quest-progression/pkg/config"
	"github.com/urbanquest/quest-progression/pkg/db"
	"github.com/urbanquest/quest-progression/pkg/domain"
	"github.com/urbanquest/quest-progression/pkg/engine"
	"github.com/urbanquest/quest-progression/pkg/events"
	"github.com/urbanquest/quest-progression/pkg/repository"
	"github.com/urbanquest/quest-progression/pkg/service"
)

type options struct {
	catalogPath string
	city        string
	playerID    string
	checkDB     bool
	migrate     bool
	jsonOutput  bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		cancel()
		config.Exitf("questctl: %v", err)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("questctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.catalogPath, "catalog", "", "quest catalog file (default: QUEST_CATALOG_PATH)")
	fs.StringVar(&opts.city, "city", "", "only show quests in this city")
	fs.StringVar(&opts.playerID, "player", "", "show stored progress for this player instead of the catalog summary (requires QUEST_STORAGE_MODE=postgres)")
	fs.BoolVar(&opts.checkDB, "check-db", false, "ping PostgreSQL using DB_* settings")
	fs.BoolVar(&opts.migrate, "migrate", false, "create the progress tables (implies -check-db)")
	fs.BoolVar(&opts.jsonOutput, "json", false, "output JSON")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if opts.migrate {
		opts.checkDB = true
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	if opts.catalogPath != "" {
		settings.CatalogPath = opts.catalogPath
	}
	if opts.playerID != "" && settings.StorageMode != config.StorageModePostgres {
		return fmt.Errorf("-player requires QUEST_STORAGE_MODE=%s: %s storage holds no saved progress",
			config.StorageModePostgres, settings.StorageMode)
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: settings.SlogLevel()}))

	cfg, err := config.NewConfigLoader(settings.CatalogPath, logger).LoadConfig()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	catalog := cache.NewInMemoryQuestCatalog(cfg, settings.CatalogPath, logger)

	if opts.playerID == "" {
		quests := catalog.GetAllQuests()
		if opts.city != "" {
			quests = catalog.GetQuestsByCity(opts.city)
		}
		if err := writeSummary(stdout, summarize(quests, settings.DefaultArrivalRadiusMeters), opts.jsonOutput); err != nil {
			return err
		}
	}

	var conn *sql.DB
	if opts.checkDB || opts.playerID != "" {
		conn, err = db.Connect(db.NewConfigFromEnv())
		if err != nil {
			return err
		}
		defer func() { _ = conn.Close() }()

		if err := db.Health(conn); err != nil {
			return err
		}
		if opts.migrate {
			if err := db.EnsureSchema(ctx, conn); err != nil {
				return err
			}
			logger.Info("Schema applied")
		}
		logger.Info("Database reachable")
	}

	if opts.playerID == "" {
		return nil
	}

	svc, closeFn, err := buildService(settings, catalog, conn, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	return listProgress(ctx, svc, opts, stdout)
}

// listProgress writes the player's progress, limited to opts.city when set.
func listProgress(ctx context.Context, svc *service.QuestService, opts options, w io.Writer) error {
	var (
		progress []*domain.QuestProgress
		err      error
	)
	if opts.city != "" {
		progress, err = svc.GetPlayerProgressInCity(ctx, opts.playerID, opts.city)
	} else {
		progress, err = svc.GetPlayerProgress(ctx, opts.playerID)
	}
	if err != nil {
		return err
	}

	return writeProgress(w, opts.playerID, progress, opts.jsonOutput)
}

// buildService assembles the service for the configured storage mode.
// conn must be non-nil in postgres mode.
func buildService(settings *config.Settings, catalog cache.QuestCatalog, conn *sql.DB, logger *slog.Logger) (*service.QuestService, func(), error) {
	var repo repository.ProgressRepository
	switch settings.StorageMode {
	case config.StorageModePostgres:
		if conn == nil {
			return nil, nil, errors.New("postgres storage requires a database connection")
		}
		repo = repository.NewPostgresProgressRepository(conn)
	default:
		repo = repository.NewInMemoryProgressRepository()
	}

	closeFn := func() {}
	publisher := events.NewMultiPublisher(events.NewLogPublisher(logger))
	if settings.RedisAddr != "" {
		redisPublisher, err := events.NewRedisPublisher(events.RedisConfig{
			Addr:     settings.RedisAddr,
			Password: settings.RedisPassword,
			DB:       settings.RedisDB,
		}, settings.EventChannel)
		if err != nil {
			return nil, nil, err
		}
		publisher = events.NewMultiPublisher(events.NewLogPublisher(logger), redisPublisher)
		closeFn = func() { _ = redisPublisher.Close() }
	}

	clock := common.SystemClock{}
	eng := engine.New(catalog,
		engine.WithClock(clock),
		engine.WithDefaultRadius(settings.DefaultArrivalRadiusMeters),
		engine.WithLogger(logger),
	)

	return service.NewQuestService(catalog, eng, repo, publisher, clock, logger), closeFn, nil
}

type questSummary struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	City        string         `json:"city"`
	Stops       int            `json:"stops"`
	RemoteStops int            `json:"remote_stops"`
	TotalPoints int            `json:"total_points"`
	Challenges  map[string]int `json:"challenges"`
	MaxRadius   float64        `json:"max_arrival_radius_meters"`
}

func summarize(quests []*domain.QuestDefinition, defaultRadius float64) []questSummary {
	summaries := make([]questSummary, 0, len(quests))
	for _, q := range quests {
		s := questSummary{
			ID:          q.ID,
			Title:       q.Title,
			City:        q.City,
			Stops:       q.StopCount(),
			TotalPoints: q.TotalPoints(),
			Challenges:  make(map[string]int),
		}
		for _, stop := range q.Stops {
			s.Challenges[string(stop.ChallengeSpec.Type)]++
			if stop.Remote {
				s.RemoteStops++
				continue
			}
			if r := stop.RadiusOr(defaultRadius); r > s.MaxRadius {
				s.MaxRadius = r
			}
		}
		summaries = append(summaries, s)
	}
	return summaries
}

func writeSummary(w io.Writer, summaries []questSummary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"quests": summaries})
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "QUEST\tCITY\tSTOPS\tREMOTE\tPOINTS\tCHALLENGES")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", s.ID, s.City, s.Stops, s.RemoteStops, s.TotalPoints, formatKinds(s.Challenges))
	}
	return tw.Flush()
}

func formatKinds(kinds map[string]int) string {
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", k, kinds[k]))
	}
	return strings.Join(parts, ",")
}

func writeProgress(w io.Writer, playerID string, progress []*domain.QuestProgress, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"player_id": playerID, "progress": progress})
	}

	if len(progress) == 0 {
		_, err := fmt.Fprintf(w, "no progress for player %s\n", playerID)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "QUEST\tSTATUS\tSTOP\tPOINTS\tSTARTED")
	for _, p := range progress {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", p.QuestID, p.Status, p.CurrentStopOrder, p.AccumulatedPoints, p.StartedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
