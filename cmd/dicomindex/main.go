// Command dicomindex walks a directory tree of DICOM files and reports the
// series, slice ordering, and RT-Structure contours it finds.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/practical-imaging/dicomindex/dicom"
	"github.com/practical-imaging/dicomindex/indexer"
	"github.com/practical-imaging/dicomindex/registry"
	"github.com/practical-imaging/dicomindex/types"
)

func main() {
	dir := flag.String("dir", ".", "directory to walk for DICOM files")
	debug := flag.Bool("debug", false, "enable debug logging and a diagnostic tag-dump file")
	dumpPath := flag.String("dump-file", "dicomindex-tags.log", "diagnostic tag-dump path, written when -debug is set")
	withPixels := flag.Bool("pixels", false, "decode and rescale pixel data (slower, more memory)")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	var dumpFile *os.File
	if *debug {
		f, err := os.Create(*dumpPath)
		if err != nil {
			logger.Error("could not open tag-dump file", "path", *dumpPath, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		dumpFile = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *dir, *withPixels, dumpFile); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			logger.Info("indexing stopped", "reason", err.Error())
		default:
			logger.Error("indexing failed", "error", err)
			os.Exit(1)
		}
	}
}

func run(ctx context.Context, root string, withPixels bool, dumpFile *os.File) error {
	reg := registry.New()
	ix := indexer.New()
	ix.RegisterStandardCallbacks(reg)
	if withPixels {
		ix.RegisterPixelCallback(reg)
	}
	if dumpFile != nil {
		reg.RegisterDefault(tagDumper(dumpFile))
	}
	parser := dicom.NewParser(reg)

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		data, err := os.ReadFile(path)
		if err != nil {
			slog.WarnContext(ctx, "could not read file", "file", path, "error", err)
			return nil
		}

		ix.BeginFile(path)
		if err := parser.Parse(ctx, data); err != nil {
			slog.WarnContext(ctx, "could not parse file", "file", path, "error", err)
			return nil
		}
		return nil
	})
	if err != nil {
		return err
	}

	report(ix)
	return nil
}

// tagDumper returns a registry.Callback, installed as the default slot, that
// records every element with no dedicated callback as one human-readable
// line in w: tag, VR, description (when this system recognises the tag),
// and value length. It never fails a parse; a write error is silently
// dropped, matching the "diagnostic, not load-bearing" role of the dump.
func tagDumper(w *os.File) registry.Callback {
	return func(tag types.Tag, vr string, value []byte) {
		info := dicom.DescribeTag(tag)
		desc := info.Description
		if desc == "" {
			desc = "unrecognised"
		}
		fmt.Fprintf(w, "%s %s %s %d bytes\n", tag, vr, desc, len(value))
	}
}

func report(ix *indexer.Indexer) {
	for _, seriesUID := range ix.SeriesUIDs() {
		pairs := ix.SliceNumberPairs(seriesUID)
		contours := ix.Contours(seriesUID)
		fmt.Printf("series %s: %d ordered slices, %d contours\n", seriesUID, len(pairs), len(contours))
	}
}
