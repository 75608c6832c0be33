// panobake bakes capture orientation into equirectangular panoramas so a
// viewer can show them with zero rotation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/panobake/internal/config"
	"github.com/Faultbox/panobake/internal/logger"
	"github.com/Faultbox/panobake/internal/pipeline"
	"github.com/Faultbox/panobake/pkg/orient"
	"github.com/Faultbox/panobake/pkg/sky"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "bake":
		os.Exit(cmdBake(args, false))
	case "plan":
		os.Exit(cmdBake(args, true))
	case "angles":
		cmdAngles(args)
	case "report":
		cmdReport(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`panobake - bake capture orientation into panoramas

Usage:
  panobake <command> [options]

Commands:
  bake [flags]                         Bake every pending frame
  plan [flags]                         Print the planned rotations, write nothing
  angles -forward x,y,z [-up x,y,z]    Decompose one capture direction
  report [-o chart.png] <collection>   Chart planned angles of a collection
  config [-save] [flags]               Show (or save) the effective config

Examples:
  panobake bake -input cone_data.json -workers 4
  panobake plan -input cone_data.json -limit 10
  panobake angles -forward -0.019,0.999,-0.049 -up 0,0,1
  panobake report -o angles.png cone_data.json`)
}

// setup loads config and the global logger for a subcommand.
func setup(flags *config.Flags) *config.Config {
	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// runPipeline runs cfg and prints the summary. It returns the exit code.
func runPipeline(cfg *config.Config) int {
	defer logger.Sync()
	logger.Sugar.Debugf("Config: %+v", cfg)

	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		logger.Error("invalid options", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	summary, err := pipeline.New(opts, logger.Log).Run(ctx)
	if summary != nil {
		summary.Print(os.Stdout)
	}
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		return 1
	}
	if !summary.OK() {
		return 1
	}
	return 0
}

func cmdBake(args []string, dryRun bool) int {
	fs := flag.NewFlagSet("bake", flag.ExitOnError)
	var flags config.Flags
	flags.Bind(fs)
	fs.Parse(args)

	if dryRun {
		flags.DryRun = true
	}
	return runPipeline(setup(&flags))
}

func cmdReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	var flags config.Flags
	flags.Bind(fs)
	out := fs.String("o", "", "Chart path (default <collection>_angles.png)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: panobake report [-o chart.png] <collection>")
		os.Exit(1)
	}

	flags.Input = fs.Arg(0)
	flags.DryRun = true
	flags.Plot = *out
	if flags.Plot == "" {
		flags.Plot = strings.TrimSuffix(flags.Input, filepath.Ext(flags.Input)) + "_angles.png"
	}

	code := runPipeline(setup(&flags))
	fmt.Printf("\nChart:   %s\n", flags.Plot)
	os.Exit(code)
}

func cmdAngles(args []string) {
	fs := flag.NewFlagSet("angles", flag.ExitOnError)
	forwardArg := fs.String("forward", "", "Capture forward vector x,y,z (Z-up)")
	upArg := fs.String("up", "0,0,1", "Capture up vector x,y,z (Z-up)")
	preset := fs.String("calibration", "default", "Calibration preset")
	fs.Parse(args)

	if *forwardArg == "" {
		fmt.Fprintln(os.Stderr, "Usage: panobake angles -forward x,y,z [-up x,y,z]")
		os.Exit(1)
	}

	forward, err := parseVec(*forwardArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: -forward: %v\n", err)
		os.Exit(1)
	}
	up, err := parseVec(*upArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: -up: %v\n", err)
		os.Exit(1)
	}
	cal, err := orient.Preset(*preset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	t, err := orient.FromVectors(forward, up)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	raw := orient.Decompose(t)
	engine, err := sky.Rotation(sky.NewRenderState(forward, up, false).WithCalibration(cal))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	b := t.Basis()
	fmt.Printf("Right:    % .6f % .6f % .6f\n", b.Right.X, b.Right.Y, b.Right.Z)
	fmt.Printf("Up:       % .6f % .6f % .6f\n", b.Up.X, b.Up.Y, b.Up.Z)
	fmt.Printf("Forward:  % .6f % .6f % .6f\n", b.Forward.X, b.Forward.Y, b.Forward.Z)
	fmt.Println()
	fmt.Printf("Raw:      %s\n", raw)
	fmt.Printf("Engine:   %s (%s)\n", engine, *preset)
	fmt.Printf("Order:    %s\n", orient.RotationOrder)
	if t.GimbalLocked() {
		fmt.Println("Gimbal:   locked, roll folded into yaw")
	}
}

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	var flags config.Flags
	flags.Bind(fs)
	save := fs.Bool("save", false, "Write the effective config to the user config directory")
	fs.Parse(args)

	cfg, err := config.Load(&flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if *save {
		if err := cfg.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Saved %s\n", filepath.Join(config.ConfigDir(), config.FileName))
		return
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Stdout.Write(data)
}

func parseVec(s string) (r3.Vec, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return r3.Vec{}, errors.New("want three comma-separated numbers")
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return r3.Vec{}, err
		}
		v[i] = f
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
}
