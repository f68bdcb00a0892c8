package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"mysalah/internal/app"
	"mysalah/internal/config"
	"mysalah/internal/domain/models"
	"mysalah/internal/lib/handlers/slogpretty"
)

const (
	envLocal = "local"
	envProd  = "prod"
)

const usage = `usage: mysalah [-config path] <command>

commands:
  register  -email -password [-name]
  login     -email -password
  logout
  whoami
  times     [-force] | -city -country [-method]
  toggle    -prayer [-date]
  stats     [-days]
`

func main() {
	configPath := flag.String("config", "", "path to config file (or use CONFIG_PATH env)")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	fullName := flag.String("name", "", "full name for registration")
	force := flag.Bool("force", false, "bypass the prayer times cache")
	city := flag.String("city", "", "city for the AlAdhan fallback source")
	country := flag.String("country", "", "country for the AlAdhan fallback source")
	method := flag.Int("method", 2, "AlAdhan calculation method")
	prayerName := flag.String("prayer", "", "prayer name to toggle")
	date := flag.String("date", "", "date (YYYY-MM-DD), defaults to today")
	days := flag.Int("days", 0, "stats window in days, defaults to config")
	lat := flag.Float64("lat", 0, "latitude override for times")
	lng := flag.Float64("lng", 0, "longitude override for times")
	flag.Parse()

	if *configPath == "" {
		*configPath = os.Getenv("CONFIG_PATH")
	}
	if *configPath == "" {
		*configPath = "config/local.yaml"
	}

	cfg := config.LoadConfig(*configPath)
	logger := setupLogger(cfg.Env)

	application := app.New(logger, cfg, staticLocation{latitude: *lat, longitude: *lng})
	defer application.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, application, cfg, flag.Arg(0), cmdArgs{
		email:    *email,
		password: *password,
		fullName: *fullName,
		force:    *force,
		city:     *city,
		country:  *country,
		method:   *method,
		prayer:   *prayerName,
		date:     *date,
		days:     *days,
		lat:      *lat,
		lng:      *lng,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type cmdArgs struct {
	email, password, fullName string
	force                     bool
	city, country             string
	method                    int
	prayer, date              string
	days                      int
	lat, lng                  float64
}

func run(ctx context.Context, application *app.App, cfg *config.Config, command string, args cmdArgs) error {
	if err := application.Session.Initialize(ctx); err != nil {
		return err
	}
	if err := application.Prayers.Initialize(ctx); err != nil {
		return err
	}

	switch command {
	case "register":
		if err := application.Session.Register(ctx, args.email, args.password, args.fullName); err != nil {
			return err
		}
		fmt.Println("registered and logged in as", args.email)

	case "login":
		if err := application.Session.Login(ctx, args.email, args.password); err != nil {
			return err
		}
		fmt.Println("logged in as", args.email)

	case "logout":
		if err := application.Session.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("logged out")

	case "whoami":
		profile := application.Session.CurrentUser()
		if profile == nil {
			return errors.New("not logged in")
		}
		fmt.Printf("%s <%s> (status: %s)\n", profile.FullName, profile.Email, application.Session.Status())
		if application.Session.AccessTokenExpired() {
			fmt.Println("access token expired, next request will refresh")
		}

	case "times":
		if args.city != "" {
			timings, err := application.Aladhan.TimingsByCity(ctx, args.city, args.country, args.method)
			if err != nil {
				return err
			}
			printTimings(timings)
			return nil
		}
		result, err := application.Prayers.FetchPrayerTimes(ctx, args.lat, args.lng, args.force)
		if err != nil {
			return err
		}
		if result.Offline {
			fmt.Println("offline, showing cached data from", result.Snapshot.Date)
		} else if result.FromCache {
			fmt.Println("cached", result.Snapshot.Date)
		}
		printTimings(result.Snapshot.Timings)

	case "toggle":
		day := args.date
		if day == "" {
			day = time.Now().Format("2006-01-02")
		}
		record, err := application.Tracker.Toggle(ctx, day, args.prayer)
		if err != nil {
			return err
		}
		for _, name := range models.PrayerNames {
			mark := " "
			if record.Completed[name] {
				mark = "x"
			}
			fmt.Printf("[%s] %s\n", mark, name)
		}

	case "stats":
		window := args.days
		if window <= 0 {
			window = cfg.Stats.WindowDays
		}
		stats, err := application.Tracker.Stats(ctx, window)
		if err != nil {
			return err
		}
		fmt.Println("current streak:", stats.CurrentStreak)
		fmt.Println("best streak:   ", stats.BestStreak)
		fmt.Println("today:         ", strconv.Itoa(stats.TodayPercent)+"%")

	default:
		fmt.Print(usage)
	}
	return nil
}

func printTimings(timings map[string]string) {
	for _, name := range models.PrayerNames {
		if t, ok := timings[name]; ok {
			fmt.Printf("%-8s %s\n", name, t)
		}
	}
}

// staticLocation satisfies the location provider with CLI-supplied
// coordinates; the real mobile shell injects the device sensor here.
type staticLocation struct {
	latitude  float64
	longitude float64
}

func (s staticLocation) CurrentPosition(_ context.Context) (float64, float64, error) {
	if s.latitude == 0 && s.longitude == 0 {
		return 0, 0, errors.New("no coordinates supplied, use -lat and -lng")
	}
	return s.latitude, s.longitude, nil
}

func (s staticLocation) ReverseGeocode(_ context.Context, _, _ float64) (string, string, string, error) {
	return "", "", "", errors.New("reverse geocoding not available in CLI mode")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger
	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envProd:
		log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		panic("unknown environment: " + env)
	}
	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}
	h := opts.NewPrettyHandler(os.Stderr)

	return slog.New(h)
}
