package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/passbi/trackmap/internal/config"
	"github.com/passbi/trackmap/internal/format"
	"github.com/passbi/trackmap/internal/logging"
	"github.com/passbi/trackmap/internal/metrics"
	"github.com/passbi/trackmap/internal/pipeline"
	"github.com/passbi/trackmap/internal/publisher"
	"github.com/passbi/trackmap/internal/source"
)

type options struct {
	input   string
	output  string
	publish bool
	cfg     *config.Config
}

func main() {
	var (
		output           string
		configPath       string
		removeDuplicates bool
		publish          bool
	)

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] csv_file\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.StringVar(&output, "o", "trajectory.json", "output file")
	flag.StringVar(&output, "output", "trajectory.json", "output file")
	flag.StringVar(&configPath, "c", "", "path to YAML config file")
	flag.BoolVar(&removeDuplicates, "remove-duplicates", false, "drop repeated identical rows before building")
	flag.BoolVar(&publish, "publish", false, "publish the trajectory to NATS")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "remove-duplicates" {
			cfg.RemoveDuplicates = removeDuplicates
		}
	})

	if err := logging.Init(cfg.LogLevel, cfg.LogFile, cfg.LogMaxAgeDays); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = run(ctx, options{
		input:   flag.Arg(0),
		output:  output,
		publish: publish,
		cfg:     cfg,
	}, os.Stdout)
	if err != nil {
		log.Error(err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	rows, err := source.NewCSVFile(opts.input).ReadRows(ctx)
	if err != nil {
		return fmt.Errorf("error reading CSV file: %w", err)
	}

	collector := metrics.NewCollector()
	result := pipeline.Run(rows, pipeline.Options{
		RemoveDuplicates: opts.cfg.RemoveDuplicates,
		Workers:          opts.cfg.ParseWorkers,
		Metrics:          collector,
	})

	if result.Empty() {
		fmt.Fprintln(stdout, format.NoDataMessage)
		return nil
	}

	doc := format.NewDocument(result.Trajectory, result.Diagnostics)
	if err := writeDocument(opts.output, doc); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Trajectory with %d points (%s over %s) saved as %s\n",
		len(doc.Points), doc.Summary.TotalDistanceText, result.Trajectory.Duration(), opts.output)

	if opts.publish {
		return publishDocument(opts.cfg, doc, collector)
	}
	return nil
}

func writeDocument(path string, doc *format.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode trajectory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func publishDocument(cfg *config.Config, doc *format.Document, m publisher.PublisherMetrics) error {
	if cfg.NATSURL == "" {
		return errors.New("--publish requires nats_url (NATS_URL) to be configured")
	}

	pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject, m)
	if err != nil {
		return err
	}
	defer pub.Close()

	route := doc.RouteID()
	if err := pub.PublishDocument(route, doc); err != nil {
		return err
	}
	log.Infof("Trajectory published to %s", pub.Subject(route))
	return nil
}
