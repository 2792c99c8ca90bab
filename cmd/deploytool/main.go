package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adampresley/configinator"
	"github.com/adampresley/weddingshare/pkg/basepath"
)

/*
Config for preparing a built single page app for hosting under a base
path on a static server.
*/
type Config struct {
	Base     string `flag:"base" env:"BASE_PATH" default:"/" description:"Path prefix the app will be served under"`
	Dir      string `flag:"dir" env:"DIST_DIR" default:"./dist" description:"Directory of the built app"`
	LogLevel string `flag:"loglevel" env:"LOG_LEVEL" default:"info" description:"The log level to use"`
	Mode     string `flag:"mode" env:"MODE" default:"validate" description:"One of 'rewrite', 'htaccess', or 'validate'"`
}

func main() {
	config := Config{}
	configinator.Behold(&config)

	level := slog.LevelInfo

	if config.LogLevel == "debug" {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).With("app", "deploytool"))

	if err := run(config); err != nil {
		slog.Error("deploy tool failed", "mode", config.Mode, "dir", config.Dir, "error", err)
		os.Exit(1)
	}
}

func run(config Config) error {
	base := basepath.Normalize(config.Base)

	switch config.Mode {
	case "rewrite":
		return rewrite(config.Dir, base)

	case "htaccess":
		target := filepath.Join(config.Dir, ".htaccess")

		if err := os.WriteFile(target, []byte(basepath.Htaccess(base)), 0o644); err != nil {
			return fmt.Errorf("error writing %s: %w", target, err)
		}

		slog.Info("wrote rewrite rules", "file", target, "base", base)
		return nil

	case "validate":
		if err := basepath.ValidateDist(os.DirFS(config.Dir), base); err != nil {
			return err
		}

		slog.Info("build is valid", "dir", config.Dir, "base", base)
		return nil
	}

	return fmt.Errorf("unknown mode '%s'", config.Mode)
}

/*
rewrite points the entry document's local references at base and then
checks that everything it references exists.
*/
func rewrite(dir, base string) error {
	var (
		err  error
		b    []byte
		info fs.FileInfo
	)

	entry := filepath.Join(dir, "index.html")

	if info, err = os.Stat(entry); err != nil {
		return fmt.Errorf("error reading entry document: %w", err)
	}

	if b, err = os.ReadFile(entry); err != nil {
		return fmt.Errorf("error reading entry document: %w", err)
	}

	if b, err = basepath.RewriteHTML(bytes.NewReader(b), base); err != nil {
		return err
	}

	if err = os.WriteFile(entry, b, info.Mode().Perm()); err != nil {
		return fmt.Errorf("error writing entry document: %w", err)
	}

	slog.Info("rewrote entry document", "file", entry, "base", base)
	return basepath.ValidateDist(os.DirFS(dir), base)
}
