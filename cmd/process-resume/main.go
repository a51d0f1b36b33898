package main

// Extract a resume into the profile:
//   go run ./cmd/process-resume ~/Documents/resume.docx --data-dir ./data

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"interview-relay/internal/extract"
	"interview-relay/internal/profile"
	"interview-relay/internal/shared/config"
	"interview-relay/internal/shared/telemetry"
)

func main() {
	telemetry.Configure(os.Stderr, "warn", false)
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "process-resume:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg := config.Load()

	flags := pflag.NewFlagSet("process-resume", pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding user_profile.json")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.New("usage: process-resume <file.docx|file.pdf> [--data-dir DIR]")
	}
	path := flags.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	text, err := extract.FromFile(ctx, data, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("extract %s: %w", filepath.Base(path), err)
	}

	store := profile.NewFileStore(cfg.ProfilePath())
	svc, err := profile.NewService(ctx, store, nil, extract.FromFile)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if _, err := svc.Update(ctx, func(p *profile.Profile) { p.ResumeText = text }); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	fmt.Fprintf(out, "wrote %d characters of resume text to %s\n", len([]rune(text)), store.Path())
	return nil
}
