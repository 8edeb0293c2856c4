// Command brake-report renders an HTML report for one recorded monitor
// session: the nearest-obstacle and speed traces over time, and the TTC of
// every brake engagement.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/safety.monitor/internal/safetydb"
	"github.com/banshee-data/safety.monitor/internal/security"
)

var (
	dbPath    = flag.String("db", "safety_data.db", "Path to the monitor database")
	sessionID = flag.String("session", "", "Session to report on (default: most recent)")
	outPath   = flag.String("out", "", "Output HTML file (default: brake-report-<session>.html)")
)

func main() {
	flag.Parse()

	db, err := safetydb.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	id := *sessionID
	if id == "" {
		sessions, err := db.Sessions()
		if err != nil {
			log.Fatalf("failed to list sessions: %v", err)
		}
		if len(sessions) == 0 {
			log.Fatal("no recorded sessions")
		}
		id = sessions[0].ID
		log.Printf("reporting on most recent session %s", id)
	}

	summaries, err := db.FrameSummaries(id, 0)
	if err != nil {
		log.Fatalf("failed to load frame summaries: %v", err)
	}
	events, err := db.BrakeEvents(id, 0)
	if err != nil {
		log.Fatalf("failed to load brake events: %v", err)
	}
	if len(summaries) == 0 && len(events) == 0 {
		log.Fatalf("session %s has no recorded data", id)
	}

	page := components.NewPage()
	page.PageTitle = "brake report " + id

	if len(summaries) > 0 {
		page.AddCharts(summaryChart(summaries))
	}
	if len(events) > 0 {
		page.AddCharts(eventChart(events))
	}

	out := *outPath
	if out == "" {
		out = fmt.Sprintf("brake-report-%s.html", security.SanitizeFilename(id))
	}
	if err := security.ValidateExportPath(out); err != nil {
		log.Fatalf("refusing output path: %v", err)
	}

	f, err := os.Create(out)
	if err != nil {
		log.Fatalf("failed to create output file: %v", err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		log.Fatalf("failed to render report: %v", err)
	}
	log.Printf("wrote %s (%d summaries, %d brake events)", out, len(summaries), len(events))
}

func summaryChart(summaries []safetydb.FrameSummary) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Nearest obstacle and speed"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "m / m·s⁻¹"}),
	)

	x := make([]string, len(summaries))
	nearest := make([]opts.LineData, len(summaries))
	speed := make([]opts.LineData, len(summaries))
	for i, s := range summaries {
		x[i] = s.Stamp.Format("15:04:05")
		nearest[i] = opts.LineData{Value: s.Nearest.Distance}
		speed[i] = opts.LineData{Value: s.Speed}
	}

	line.SetXAxis(x).
		AddSeries("nearest point", nearest).
		AddSeries("speed", speed)
	return line
}

func eventChart(events []safetydb.BrakeEvent) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Brake engagements"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "beam angle (rad)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "ttc (s)"}),
	)

	pts := make([]opts.ScatterData, len(events))
	for i, e := range events {
		pts[i] = opts.ScatterData{
			Value: []interface{}{e.Angle, e.TTC},
			Name:  fmt.Sprintf("beam %d at %.2f m/s", e.Beam, e.Speed),
		}
	}
	scatter.AddSeries("events", pts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	return scatter
}
