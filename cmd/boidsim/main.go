package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"github.com/zeusync/boidsim/internal/injector"
)

func main() {
	if err := makeApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func makeApp() *cli.App {
	app := cli.NewApp()
	app.Name = "boidsim"
	app.Usage = "RTS boids steering and collision simulation"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Value: "", Usage: "YAML or TOML configuration file; defaults when empty"},
	}
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "Run the simulation in real time until interrupted",
			Action: run,
		},
		{
			Name:  "bench",
			Usage: "Step the simulation headless with a fixed Δt and print a summary",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "ticks", Value: 1000, Usage: "Number of ticks to run"},
				cli.DurationFlag{Name: "dt", Value: 16 * time.Millisecond, Usage: "Simulated time per tick"},
			},
			Action: bench,
		},
	}
	return app
}

// signalContext is cancelled on the first interrupt or termination signal.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(stopCh)
	}()
	return ctx, cancel
}

func run(c *cli.Context) error {
	e, cleanup, err := injector.InitializeEngine(injector.ConfigPath(c.GlobalString("config")))
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err = e.Populate(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	return e.Run(ctx)
}

func bench(c *cli.Context) error {
	e, cleanup, err := injector.InitializeEngine(injector.ConfigPath(c.GlobalString("config")))
	if err != nil {
		return err
	}
	defer cleanup()

	sum, err := e.Populate()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	res, err := e.Bench(ctx, c.Int("ticks"), c.Duration("dt"))
	if err != nil {
		return err
	}

	fmt.Printf("agents:         %d\n", sum.Agents)
	fmt.Printf("obstacles:      %d\n", sum.Obstacles)
	fmt.Printf("ticks:          %d\n", res.Ticks)
	fmt.Printf("simulated:      %s\n", res.SimTime)
	fmt.Printf("wall:           %s (%.0f ticks/s)\n", res.Wall.Round(time.Millisecond), res.TicksPerSecond)
	fmt.Printf("index rebuilds: %d\n", res.Rebuilds)
	fmt.Printf("mean distance:  %.3f\n", res.MeanDistance)
	fmt.Printf("max speed:      %.3f\n", res.MaxSpeed)
	return nil
}
