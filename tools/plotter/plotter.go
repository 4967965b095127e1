package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"stressor/pkg/metric"
)

func main() {
	var (
		inputFile  = flag.String("i", "data/out/stress_1m_samples.csv", "Path to the resource samples CSV file")
		outputDir  = flag.String("o", "figs", "Path to the directory for output figures")
		debugLevel = flag.String("d", "info", "Debug level: info, debug")
	)
	flag.Parse()
	log.SetOutput(os.Stdout)

	switch *debugLevel {
	case "info":
		log.SetLevel(log.InfoLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
		log.Debug("Debug mode is enabled")
	}

	records := parseSamples(*inputFile)
	if len(records) == 0 {
		log.Fatal("No resource samples found in ", *inputFile)
	}

	cpuValues := make([]float64, len(records))
	for i, r := range records {
		cpuValues[i] = r.CPUPercent
	}
	log.Infof("Loaded %d samples, mean CPU %.1f%%", len(records), stat.Mean(cpuValues, nil))

	if _, err := os.Stat(*outputDir); errors.Is(err, os.ErrNotExist) {
		log.Info("Creating the output directory")
		if err := os.Mkdir(*outputDir, os.ModePerm); err != nil {
			log.Fatal(err)
		}
	}

	plotFig(*outputDir, "rss.png", "Resident Set Size", "RSS (MiB)", rssSeries(records))
	plotFig(*outputDir, "cpu.png", "CPU Utilization", "CPU (%)", cpuSeries(records))
}

func parseSamples(path string) []metric.ResourceRecord {
	f, err := os.Open(path)
	if err != nil {
		log.Fatal("Cannot open the input file: ", err)
	}
	defer f.Close()

	var records []metric.ResourceRecord
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		log.Fatal("Cannot parse the input file: ", err)
	}

	return records
}

func rssSeries(records []metric.ResourceRecord) plotter.XYs {
	pts := make(plotter.XYs, len(records))
	for i, r := range records {
		pts[i].X = float64(r.ElapsedMicro) / 1e6
		pts[i].Y = float64(r.RSSBytes) / (1024 * 1024)
	}

	return pts
}

func cpuSeries(records []metric.ResourceRecord) plotter.XYs {
	pts := make(plotter.XYs, len(records))
	for i, r := range records {
		pts[i].X = float64(r.ElapsedMicro) / 1e6
		pts[i].Y = r.CPUPercent
	}

	return pts
}

func plotFig(outputDir, fileName, title, yLabel string, pts plotter.XYs) {
	p := plot.New()

	p.Title.Text = title
	p.X.Label.Text = "Elapsed (s)"
	p.Y.Label.Text = yLabel
	p.Y.Min = 0

	if err := plotutil.AddLinePoints(p, title, pts); err != nil {
		log.Fatal(err)
	}

	outPath := filepath.Join(outputDir, fileName)
	if err := p.Save(8*vg.Inch, 4*vg.Inch, outPath); err != nil {
		log.Fatal(err)
	}

	log.Info("Saved ", outPath)
}
