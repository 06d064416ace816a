package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"time"

	"github.com/disintegration/imaging"

	"github.com/princedesai012/Doc-Flow/internal/capture"
	"github.com/princedesai012/Doc-Flow/internal/client"
	"github.com/princedesai012/Doc-Flow/internal/model"
)

// The capture tool stands in for the camera UI: it resolves an access token,
// watches frames for focus, and uploads the first sharp capture for each
// document still owed on the request.
func main() {
	var (
		apiURL    = flag.String("api", "http://localhost:8080", "base URL of the upload API")
		token     = flag.String("token", "", "access token from the upload link")
		docType   = flag.String("type", "", "document type to capture (default: every document still owed)")
		framesDir = flag.String("frames", "", "directory of frames standing in for the camera")
		threshold = flag.Float64("threshold", capture.DefaultBlurThreshold, "focus score below which the shutter stays locked")
		interval  = flag.Duration("interval", capture.DefaultSampleInterval, "how often to score a frame")
		timeout   = flag.Duration("timeout", 2*time.Minute, "how long to wait for a sharp frame")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if *token == "" || *framesDir == "" {
		fmt.Fprintln(os.Stderr, "usage: capture -token <token> -frames <dir> [-type <docType>]")
		os.Exit(2)
	}

	if err := run(context.Background(), logger, *apiURL, *token, *docType, *framesDir, *threshold, *interval, *timeout); err != nil {
		logger.Error("capture failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, apiURL, token, docType, framesDir string, threshold float64, interval, timeout time.Duration) error {
	api := client.New(apiURL, 30*time.Second)

	req, err := api.Resolve(ctx, token)
	if err != nil {
		return err
	}
	logger.Info("request resolved", "client", req.ClientName, "status", req.Status)

	owed := owedTypes(req, docType)
	if len(owed) == 0 {
		logger.Info("nothing to capture, all documents are in")
		return nil
	}

	source, err := capture.NewDirSource(framesDir)
	if err != nil {
		return err
	}
	gate := capture.NewGate(source, logger,
		capture.WithThreshold(threshold),
		capture.WithSampleInterval(interval),
	)
	gate.Start(ctx)
	defer gate.Stop()

	for _, dt := range owed {
		logger.Info("waiting for a sharp frame", "docType", dt)
		frame, err := waitForCapture(ctx, gate, timeout)
		if err != nil {
			return fmt.Errorf("capture %s: %w", dt, err)
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, frame, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
			return fmt.Errorf("encode %s: %w", dt, err)
		}

		updated, err := api.Upload(ctx, token, dt, dt+".jpg", &buf, "image/jpeg")
		if err != nil {
			return fmt.Errorf("upload %s: %w", dt, err)
		}
		logger.Info("document uploaded", "docType", dt, "requestStatus", updated.Status)
	}

	return nil
}

// owedTypes lists the document types still waiting on an upload. A rejected
// document is owed again.
func owedTypes(req *model.Request, only string) []string {
	var owed []string
	for _, doc := range req.Documents {
		if only != "" && doc.Type != only {
			continue
		}
		if doc.Status == model.DocPending || doc.Status == model.DocRejected {
			owed = append(owed, doc.Type)
		}
	}
	return owed
}

func waitForCapture(ctx context.Context, gate *capture.Gate, timeout time.Duration) (image.Image, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	poll := time.NewTicker(100 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, fmt.Errorf("no sharp frame within %s (last score %.1f)", timeout, gate.State().Score)
		case <-poll.C:
			if !gate.CanCapture() {
				continue
			}
			frame, err := gate.Capture(ctx)
			if err != nil {
				continue
			}
			return frame, nil
		}
	}
}
