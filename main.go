// Command safety.monitor runs the onboard collision monitor: it ingests
// range-scan frames over UDP and odometry over serial, evaluates per-beam
// time-to-collision against the vehicle perimeter, and emits emergency brake
// and steering commands to the drive bridge.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"math"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/safety.monitor/internal/api"
	"github.com/banshee-data/safety.monitor/internal/config"
	"github.com/banshee-data/safety.monitor/internal/odometry"
	"github.com/banshee-data/safety.monitor/internal/safety"
	"github.com/banshee-data/safety.monitor/internal/safetydb"
	"github.com/banshee-data/safety.monitor/internal/scan"
	"github.com/banshee-data/safety.monitor/internal/scansource"
	"github.com/banshee-data/safety.monitor/internal/timeutil"
	"github.com/banshee-data/safety.monitor/internal/version"
	"github.com/banshee-data/safety.monitor/internal/wallfollow"
)

var (
	devMode       = flag.Bool("dev", false, "Run in dev mode with a mock odometry feed")
	listen        = flag.String("listen", ":8080", "HTTP listen address")
	configPath    = flag.String("config", config.DefaultConfigPath, "Path to config JSON")
	driveAddr     = flag.String("drive-addr", "127.0.0.1:8309", "UDP address of the drive bridge")
	migrationsDir = flag.String("migrations", "migrations", "Path to database migrations")
	sessionNotes  = flag.String("notes", "", "Notes to attach to the recorded session")
)

// driveCommand is the outbound message to the drive bridge. The brake flag
// and a zero speed setpoint always travel together.
type driveCommand struct {
	Brake         bool    `json:"brake"`
	Speed         float64 `json:"speed"`
	SteeringAngle float64 `json:"steering_angle"`
}

// driveBridge publishes drive commands as JSON datagrams.
type driveBridge struct {
	conn *net.UDPConn
}

func newDriveBridge(addr string) (*driveBridge, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, err
	}
	return &driveBridge{conn: conn}, nil
}

func (b *driveBridge) send(cmd driveCommand) {
	data, err := json.Marshal(cmd)
	if err != nil {
		log.Printf("failed to marshal drive command: %v", err)
		return
	}
	if _, err := b.conn.Write(data); err != nil {
		log.Printf("failed to send drive command: %v", err)
	}
}

func (b *driveBridge) Close() error { return b.conn.Close() }

// cruiseSpeed scales the wall-follow speed down as the commanded steering
// angle grows: sharp corrections get taken slowly.
func cruiseSpeed(steer float64) float64 {
	abs := steer
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs < 10*math.Pi/180:
		return 1.5
	case abs < 20*math.Pi/180:
		return 1.0
	default:
		return 0.5
	}
}

func main() {
	flag.Parse()
	log.Printf("safety.monitor %s", version.String())

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg, err := config.LoadSafetyConfig(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || *configPath == config.DefaultConfigPath {
			log.Printf("config %s not loaded (%v); using built-in defaults", *configPath, err)
			cfg = config.EmptySafetyConfig()
		} else {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	car := safety.VehicleGeometry{
		Width:     cfg.GetVehicleWidth(),
		Wheelbase: cfg.GetWheelbase(),
		BaseLink:  cfg.GetBaseLink(),
	}
	if err := car.Validate(); err != nil {
		log.Fatalf("invalid vehicle geometry: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	bridge, err := newDriveBridge(*driveAddr)
	if err != nil {
		log.Fatalf("failed to connect to drive bridge at %s: %v", *driveAddr, err)
	}
	defer bridge.Close()

	// Scan frames fan in through a small buffer; the listener callback must
	// never block, so a full buffer drops the frame (the next sweep is at
	// most tens of milliseconds away).
	frames := make(chan *scan.Frame, 4)
	stats := &scansource.PacketStats{}
	listener := scansource.NewListener(scansource.ListenerConfig{
		Address:     cfg.GetScanListenAddr(),
		RcvBuf:      1 << 20,
		LogInterval: time.Minute,
		Stats:       stats,
		OnFrame: func(f *scan.Frame) {
			select {
			case frames <- f:
			default:
			}
		},
	})
	g.Go(func() error { return listener.Start(ctx) })

	// The one blocking step of the lifecycle: derive sensor intrinsics from
	// the first frame. No frame within the window means no perimeter model,
	// so the process must not proceed.
	log.Printf("waiting up to %v for the first scan frame...", cfg.GetIntrinsicsWait())
	lidar, err := safety.WaitForIntrinsics(ctx, timeutil.RealClock{}, frames, cfg.GetIntrinsicsWait(), cfg.GetScanBeams())
	if err != nil {
		log.Fatalf("failed to derive sensor intrinsics: %v", err)
	}
	log.Printf("sensor intrinsics: %d beams, [%.3f, %.3f] rad, %.5f rad/beam",
		lidar.Beams, lidar.AngleMin, lidar.AngleMax, lidar.AngleIncrement)

	db, err := safetydb.NewDB(cfg.GetDBPath())
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	if err := db.MigrateUp(*migrationsDir); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	session, err := db.StartSession(car, lidar, cfg.GetTTCThreshold(), *sessionNotes)
	if err != nil {
		log.Fatalf("failed to start session: %v", err)
	}
	log.Printf("recording session %s", session.ID)

	monitor, err := safety.NewMonitor(safety.MonitorConfig{
		Car:          car,
		Lidar:        lidar,
		TTCThreshold: cfg.GetTTCThreshold(),
		Publish: func(d safety.Decision) {
			bridge.send(driveCommand{Brake: true, Speed: d.Speed})
		},
		Recorder: session,
	})
	if err != nil {
		log.Fatalf("failed to build monitor: %v", err)
	}

	var wall *wallfollow.Controller
	if cfg.GetWallFollow() {
		est, err := wallfollow.NewEstimator(lidar, cfg.GetWallBeamSeparation(), cfg.GetWallLookahead())
		if err != nil {
			log.Printf("wall follower disabled: %v", err)
		} else {
			pid := wallfollow.NewPID(cfg.GetWallKp(), cfg.GetWallKi(), cfg.GetWallKd(), 1.0)
			wall, err = wallfollow.NewController(est, pid, cfg.GetWallTargetDistance(), cfg.GetMaxSteer())
			if err != nil {
				log.Printf("wall follower disabled: %v", err)
			}
		}
	}

	// Scan pump: every frame goes through the brake monitor; steering only
	// runs while the monitor is still armed.
	g.Go(func() error {
		var lastStamp time.Time
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case f := <-frames:
				if _, err := monitor.OnScan(f); err != nil {
					log.Printf("dropped scan frame: %v", err)
					continue
				}
				if wall != nil && monitor.State() == safety.StateArmed {
					dt := 0.0
					if !lastStamp.IsZero() {
						dt = f.Stamp.Sub(lastStamp).Seconds()
					}
					lastStamp = f.Stamp
					if steer, err := wall.OnScan(f, dt); err == nil {
						bridge.send(driveCommand{SteeringAngle: steer, Speed: cruiseSpeed(steer)})
					}
				}
			}
		}
	})

	// Odometry feed.
	var port odometry.Porter
	if *devMode {
		port = odometry.NewMockPort([]byte("O,12.5,1.50\n"), 100*time.Millisecond)
	} else {
		port, err = odometry.OpenPort(cfg.GetSerialPort(), odometry.PortMode{BaudRate: cfg.GetSerialBaud()})
		if err != nil {
			log.Fatalf("failed to open odometry port %s: %v", cfg.GetSerialPort(), err)
		}
	}
	mux := odometry.NewMux(port)
	defer mux.Close()

	g.Go(func() error {
		if err := mux.Monitor(ctx); err != nil && err != context.Canceled {
			return err
		}
		return ctx.Err()
	})

	g.Go(func() error {
		id, lines := mux.Subscribe()
		defer mux.Unsubscribe(id)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case line, ok := <-lines:
				if !ok {
					return ctx.Err()
				}
				sample, err := odometry.Parse(line)
				if err != nil {
					log.Printf("bad odometry line: %v", err)
					continue
				}
				monitor.OnOdometry(sample.Speed)
			}
		}
	})

	// Periodic frame summaries for post-run analysis.
	g.Go(func() error {
		ticker := timeutil.RealClock{}.NewTicker(cfg.GetSummaryInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C():
				snap := monitor.Snapshot()
				if snap.FramesSeen == 0 {
					continue
				}
				if err := session.RecordFrameSummary(snap); err != nil {
					log.Printf("failed to record frame summary: %v", err)
				}
			}
		}
	})

	// HTTP status server.
	g.Go(func() error {
		httpMux := http.NewServeMux()
		apiMux := api.NewServer(monitor, stats, db, session.ID, cfg).ServeMux()
		httpMux.Handle("/api/", http.StripPrefix("/api", apiMux))

		server := &http.Server{Addr: *listen, Handler: httpMux}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("HTTP server shutdown error: %v", err)
			}
		}()

		log.Printf("serving status API on %s", *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return ctx.Err()
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Fatalf("monitor terminated: %v", err)
	}
	log.Printf("graceful shutdown complete")
}
