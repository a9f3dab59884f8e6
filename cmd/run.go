package cmd

import (
	"os"
	"time"

	"scheduler-go/audiosource"
	"scheduler-go/busapi"
	"scheduler-go/config"
	"scheduler-go/eventloop"
	"scheduler-go/execsource"
	"scheduler-go/logging"
	"scheduler-go/powersource"
	"scheduler-go/privilege"
	"scheduler-go/store"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduling daemon in the foreground",
	Long:  `run loads the configuration, starts the event loop, and serves the control bus until signaled to stop.`,
	Args:  cobra.NoArgs,
	RunE:  runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	logger := logging.Default()

	missingRequired, missingRecommended := privilege.CheckRequired()
	if len(missingRequired) > 0 {
		logger.Warn("missing required capability; attribute application will fail with EPERM",
			"missing", missingRequired)
	}
	if len(missingRecommended) > 0 {
		logger.Warn("missing recommended capability", "missing", missingRecommended)
	}

	systemPath, distPath, dropinDir := ConfigPaths()
	cfg, err := config.Load(systemPath, distPath, dropinDir)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		return err
	}

	ctx := GetContext()

	onAC := powersource.ReadOnAC()
	dumpPath := store.StateFilePath(os.TempDir())
	loop, err := eventloop.New(cfg, onAC, dumpPath)
	if err != nil {
		logger.Error("failed to initialize event loop", "error", err)
		return err
	}

	stopWatch := make(chan struct{})
	defer close(stopWatch)
	if dropinDir != "" {
		if err := config.WatchDropinDir(dropinDir, stopWatch); err != nil {
			logger.Warn("failed to watch configuration drop-in directory", "error", err)
		}
	}

	adapter := eventloop.NewBusAdapter(loop)
	busServer, err := busapi.Serve(adapter)
	if err != nil {
		logger.Warn("control bus unavailable; SetForeground/SetProfile calls will not be reachable", "error", err)
	} else {
		defer busServer.Close()
	}

	go powersource.Watch(ctx, 30*time.Second, func(onAC bool) {
		loop.PostControl(eventloop.Message{Kind: eventloop.KindPowerTransition, OnAC: onAC})
	})

	go eventloop.PeriodicSweeper(ctx, loop, time.Duration(cfg.SweepPeriodSeconds())*time.Second)

	if tracerPath := os.Getenv("SCHEDULER_EXEC_TRACER"); tracerPath != "" {
		go func() {
			if err := execsource.Run(ctx, tracerPath, func(ev execsource.Event) {
				loop.PostExec(eventloop.Message{Kind: eventloop.KindExec, Pid: ev.Pid, ParentPid: ev.ParentPid, Exe: ev.Exe})
			}); err != nil {
				logger.Warn("exec event source failed to start", "error", err)
			}
		}()
	}

	go func() {
		if err := audiosource.Watch(ctx, func(d audiosource.Delta) {
			loop.PostControl(eventloop.Message{Kind: eventloop.KindAudioDelta, AudioPid: d.Pid, AudioActive: d.Active})
		}); err != nil {
			logger.Warn("audio session source failed to start", "error", err)
		}
	}()

	logger.Info("scheduling daemon started")
	loop.Run(ctx)
	return nil
}
