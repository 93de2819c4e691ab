package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/claude/mapty/internal/codec"
	"github.com/claude/mapty/internal/config"
	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	format := flag.String("format", "table", "output format: table, json or raw")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	switch *format {
	case "table", "json", "raw":
	default:
		fmt.Fprintf(os.Stderr, "Usage: mapty-export [-config config.yaml] [-format table|json|raw]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	slot, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		log.Error("failed to open storage", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer slot.Close()

	text, ok, err := slot.Load(ctx)
	if err != nil {
		log.Error("failed to load workouts", "error", err)
		os.Exit(1)
	}
	if !ok {
		log.Info("no stored workouts")
		text = "[]"
	}

	if *format == "raw" {
		fmt.Println(text)
		return
	}

	workouts, report, err := codec.Decode(text)
	if err != nil {
		log.Error("stored workouts unreadable", "error", err)
		os.Exit(1)
	}
	for _, s := range report.Skipped {
		log.Warn("skipping stored workout", "index", s.Index, "id", s.ID, "reason", s.Reason)
	}

	if *format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(workouts); err != nil {
			log.Error("encoding output", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := printTable(workouts); err != nil {
		log.Error("writing table", "error", err)
		os.Exit(1)
	}
	log.Info("export complete", "workouts", len(workouts), "skipped", len(report.Skipped))
}

func printTable(workouts []models.Workout) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tKM\tMIN\tCADENCE/ELEV\tPACE/SPEED\tLAT,LNG")
	for _, w := range workouts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%.1f\t%.5f,%.5f\n",
			w.ID,
			w.CreatedAt.Format("2006-01-02 15:04"),
			w.Kind,
			strconv.FormatFloat(w.DistanceKm, 'f', -1, 64),
			strconv.FormatFloat(w.DurationMin, 'f', -1, 64),
			strconv.FormatFloat(w.Metric(), 'f', -1, 64),
			w.Derived(),
			w.Coords.Lat, w.Coords.Lng,
		)
	}
	return tw.Flush()
}
