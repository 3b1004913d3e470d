/*
Example command line tool for the forward collision warning pipeline.

	fcw replay  -c config.yaml -k camera.yaml -i detections.jsonl
	fcw serve   -c config.yaml
	fcw rectify -k camera.yaml -i frame.jpg -o rectified.jpg [-c config.yaml] [-r result.json]

Replay reads one frame of detections per line and writes one result per
line.  Serve runs the multi-camera HTTP service.  Rectify optionally draws
the danger zone and the objects of a result over the rectified image.
*/
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	fcw "github.com/swdee/go-fcw"
	"github.com/swdee/go-fcw/camera"
	"github.com/swdee/go-fcw/collision"
	"github.com/swdee/go-fcw/config"
	"github.com/swdee/go-fcw/postprocess"
	"github.com/swdee/go-fcw/preprocess"
	"github.com/swdee/go-fcw/render"
	"github.com/swdee/go-fcw/service"
)

const (
	flagConfig = "config"
	flagCamera = "camera"
	flagInput  = "input"
	flagOutput = "output"
	flagAddr   = "addr"
	flagResult = "result"
	flagDebug  = "debug"

	// maxLineBytes is the longest line of detections replay accepts
	maxLineBytes = 16 << 20
)

func main() {

	var logger *zap.Logger

	app := &cli.App{
		Name:  "fcw",
		Usage: "forward collision warning from object detections",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			var err error
			logger, err = newLogger(c.Bool(flagDebug))
			return err
		},
		After: func(c *cli.Context) error {
			if logger != nil {
				_ = logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "replay",
				Usage: "process a JSON lines file of detections",
				Flags: []cli.Flag{
					configFlag(),
					cameraFlag(),
					&cli.StringFlag{
						Name:    flagInput,
						Aliases: []string{"i"},
						Usage:   "read frames from `FILE`, - for stdin",
						Value:   "-",
					},
					&cli.StringFlag{
						Name:    flagOutput,
						Aliases: []string{"o"},
						Usage:   "write results to `FILE`, - for stdout",
						Value:   "-",
					},
				},
				Action: func(c *cli.Context) error {
					return replayAction(c, logger)
				},
			},
			{
				Name:  "serve",
				Usage: "run the collision warning service",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  flagAddr,
						Usage: "listen address, overrides service.addr",
					},
				},
				Action: func(c *cli.Context) error {
					return serveAction(c, logger)
				},
			},
			{
				Name:  "rectify",
				Usage: "rectify an image with the camera model",
				Flags: []cli.Flag{
					cameraFlag(),
					&cli.StringFlag{
						Name:    flagConfig,
						Aliases: []string{"c"},
						Usage:   "draw the danger zone from the configuration `FILE`",
					},
					&cli.StringFlag{
						Name:    flagResult,
						Aliases: []string{"r"},
						Usage:   "draw the objects of a JSON result `FILE`",
					},
					&cli.StringFlag{
						Name:     flagInput,
						Aliases:  []string{"i"},
						Usage:    "source image `FILE`",
						Required: true,
					},
					&cli.StringFlag{
						Name:     flagOutput,
						Aliases:  []string{"o"},
						Usage:    "rectified image `FILE`",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					return rectifyAction(c, logger)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    flagConfig,
		Aliases: []string{"c"},
		Usage:   "load configuration from `FILE`",
	}
}

func cameraFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     flagCamera,
		Aliases:  []string{"k"},
		Usage:    "load camera calibration from `FILE`",
		Required: true,
	}
}

// newLogger builds a console logger with colored levels
func newLogger(debug bool) (*zap.Logger, error) {

	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	// stdout carries replay results
	cfg.OutputPaths = []string{"stderr"}

	if !debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return cfg.Build()
}

// loadConfig returns the configuration file or the defaults when no file
// was given.  Validation is left to the pipeline since a service base
// configuration may leave the danger zone to each session.
func loadConfig(c *cli.Context) (config.Config, error) {

	path := c.String(flagConfig)

	if path == "" {
		return config.Defaults(), nil
	}

	return config.Load(path)
}

func loadLabels(cfg config.Config) ([]string, error) {

	if cfg.Detector.LabelsFile == "" {
		return nil, nil
	}

	return postprocess.LoadLabels(cfg.Detector.LabelsFile)
}

func loadCamera(c *cli.Context) (*camera.Camera, error) {

	camCfg, err := config.LoadCamera(c.String(flagCamera))

	if err != nil {
		return nil, err
	}

	return camera.New(camCfg)
}

func replayAction(c *cli.Context, logger *zap.Logger) error {

	cfg, err := loadConfig(c)

	if err != nil {
		return err
	}

	labels, err := loadLabels(cfg)

	if err != nil {
		return err
	}

	cam, err := loadCamera(c)

	if err != nil {
		return err
	}

	p, err := fcw.NewPipeline(cfg, cam, fcw.WithLogger(logger), fcw.WithLabels(labels))

	if err != nil {
		return err
	}

	in, closeIn, err := openInput(c.String(flagInput))

	if err != nil {
		return err
	}

	defer closeIn()

	out, closeOut, err := openOutput(c.String(flagOutput))

	if err != nil {
		return err
	}

	defer closeOut()

	w := bufio.NewWriter(out)
	defer w.Flush()

	enc := json.NewEncoder(w)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var frames, warnings int
	var total time.Duration

	for line := 1; scanner.Scan(); line++ {

		if len(scanner.Bytes()) == 0 {
			continue
		}

		var frame fcw.Frame

		if err := json.Unmarshal(scanner.Bytes(), &frame); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		res, err := p.Process(frame)

		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		frames++
		total += res.Timing.Total()

		if len(res.DangerousDetections) > 0 {
			warnings++
		}

		if err := enc.Encode(res); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	avg := time.Duration(0)

	if frames > 0 {
		avg = total / time.Duration(frames)
	}

	logger.Info("replay finished",
		zap.Int("frames", frames),
		zap.Int("warnings", warnings),
		zap.Duration("avg_process", avg),
	)

	return nil
}

func openInput(path string) (io.Reader, func(), error) {

	if path == "-" {
		return os.Stdin, func() {}, nil
	}

	f, err := os.Open(path)

	if err != nil {
		return nil, nil, err
	}

	return f, func() { f.Close() }, nil
}

func openOutput(path string) (io.Writer, func(), error) {

	if path == "-" {
		return os.Stdout, func() {}, nil
	}

	f, err := os.Create(path)

	if err != nil {
		return nil, nil, err
	}

	return f, func() { f.Close() }, nil
}

func serveAction(c *cli.Context, logger *zap.Logger) error {

	cfg, err := loadConfig(c)

	if err != nil {
		return err
	}

	labels, err := loadLabels(cfg)

	if err != nil {
		return err
	}

	if addr := c.String(flagAddr); addr != "" {
		cfg.Service.Addr = addr
	}

	reg := service.NewRegistry(
		service.WithLogger(logger),
		service.WithBaseConfig(cfg),
		service.WithLabels(labels),
	)
	defer reg.Close()

	srv := &http.Server{
		Addr:              cfg.Service.Addr,
		Handler:           service.NewServer(reg, logger.Named("http")).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr),
			zap.Int("max_sessions", cfg.Service.MaxSessions))

		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		logger.Info("shutting down")

		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

func rectifyAction(c *cli.Context, logger *zap.Logger) error {

	cam, err := loadCamera(c)

	if err != nil {
		return err
	}

	src := gocv.IMRead(c.String(flagInput), gocv.IMReadColor)
	defer src.Close()

	if src.Empty() {
		return fmt.Errorf("error reading image %s", c.String(flagInput))
	}

	imgW, imgH := cam.ImageSize()

	if src.Cols() != imgW || src.Rows() != imgH {
		logger.Warn("image size differs from calibration",
			zap.Int("width", src.Cols()), zap.Int("height", src.Rows()),
			zap.Int("calib_width", imgW), zap.Int("calib_height", imgH),
		)
	}

	rect := preprocess.NewRectifier(cam)
	defer rect.Close()

	dest := gocv.NewMat()
	defer dest.Close()

	start := time.Now()
	rect.Rectify(src, &dest)

	w, h := rect.Size()
	logger.Info("rectified image",
		zap.Int("width", w), zap.Int("height", h),
		zap.Duration("took", time.Since(start)),
	)

	if err := drawOverlay(c, cam, &dest); err != nil {
		return err
	}

	if !gocv.IMWrite(c.String(flagOutput), dest) {
		return fmt.Errorf("error writing image %s", c.String(flagOutput))
	}

	return nil
}

// drawOverlay renders the danger zone and a result onto a rectified image
func drawOverlay(c *cli.Context, cam *camera.Camera, img *gocv.Mat) error {

	style := render.DefaultPathStyle()

	if c.String(flagConfig) != "" {

		cfg, err := config.Load(c.String(flagConfig))

		if err != nil {
			return err
		}

		render.Zone(img, cam, collision.NewPolygon(cfg.FCW.DangerZone), camera.Rectified, style)
	}

	if c.String(flagResult) == "" {
		return nil
	}

	data, err := os.ReadFile(c.String(flagResult))

	if err != nil {
		return err
	}

	var res fcw.Result

	if err := json.Unmarshal(data, &res); err != nil {
		return fmt.Errorf("error decoding result %s: %w", c.String(flagResult), err)
	}

	render.Paths(img, cam, &res, camera.Rectified, style)
	render.DangerBoxes(img, &res, render.DefaultFont(), 2)

	return nil
}
