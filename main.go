package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/geocine/folio/internal/book"
	foliocli "github.com/geocine/folio/internal/cli"
	"github.com/geocine/folio/internal/config"
	"github.com/geocine/folio/internal/logging"
	"github.com/geocine/folio/internal/output"
	"github.com/geocine/folio/internal/vfs"
)

// application keeps what the commands share
type application struct {
	log *zap.Logger
	// errWasHandled is set once the error of a command has been logged
	errWasHandled bool
}

func (a *application) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	log, err := logging.New(logging.Options{Level: cmd.String("log-level")})
	if err != nil {
		return ctx, err
	}
	a.log = log
	a.log.Debug("Program started", zap.Strings("args", os.Args), zap.String("runtime", runtime.Version()))
	return ctx, nil
}

func (a *application) after(context.Context, *cli.Command) (err error) {
	if a.log == nil {
		return nil
	}
	// syncing a console fails with EINVAL on some systems
	if er := a.log.Sync(); er != nil && !errors.Is(er, syscall.EINVAL) && !errors.Is(er, syscall.ENOTTY) {
		err = multierr.Append(err, fmt.Errorf("unable to sync logs: %w", er))
	}
	return err
}

func (a *application) exitErrHandler(_ context.Context, _ *cli.Command, err error) {
	if a.log != nil && err != nil {
		for _, e := range multierr.Errors(err) {
			a.log.Error("Program ended with error", zap.Error(e))
		}
		a.errWasHandled = true
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := &application{}
	app := &cli.Command{
		Name:            "folio",
		Usage:           "builds documentation sites, JSON trees and ebooks from markup files",
		Version:         config.Version + " (" + runtime.Version() + ")",
		HideHelpCommand: true,
		Before:          a.before,
		After:           a.after,
		ExitErrHandler:  a.exitErrHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Value: "info",
				Usage: "log `LEVEL` (" + strings.Join(logging.Levels, ", ") + ")"},
		},
		Commands: []*cli.Command{
			{
				Name:      "build",
				Usage:     "Builds the book",
				ArgsUsage: "[BOOK] [OUTPUT]",
				Action:    a.build,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: output.Website,
						Usage: "output `FORMAT` (website, json, ebook)"},
					&cli.BoolFlag{Name: "keep-going", Aliases: []string{"k"},
						Usage: "render every page even when some fail and report the failures at the end"},
					&cli.BoolFlag{Name: "no-directory-index", Usage: "link to index.html files instead of their folder"},
					&cli.StringFlag{Name: "theme", Usage: "read layouts and assets from `DIR`/frontend instead of the built-in theme"},
				},
			},
			{
				Name:      "parse",
				Usage:     "Parses the book and prints its structure",
				ArgsUsage: "[BOOK]",
				Action:    a.parse,
			},
			{
				Name:      "init",
				Usage:     "Creates the readme, the summary and the files it references",
				ArgsUsage: "[BOOK]",
				Action:    a.initBook,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "book `TITLE`, written to book.json for a new book"},
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "skip interactive prompts"},
				},
			},
			{
				Name:      "clean",
				Usage:     "Removes the output folder",
				ArgsUsage: "[BOOK] [OUTPUT]",
				Action:    a.clean,
			},
		},
	}

	var err error
	// os.Exit skips deferred functions, nothing may be deferred after this one
	defer func() {
		stop()
		if err != nil {
			if !a.errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}

// bookDir returns the absolute book folder from the first argument and loads its .env file
func (a *application) bookDir(cmd *cli.Command) (string, error) {
	dir := cmd.Args().Get(0)
	if dir == "" {
		dir = "."
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", fmt.Errorf("book folder '%s' does not exist", dir)
	}

	env := filepath.Join(dir, ".env")
	if _, err := os.Stat(env); err == nil {
		if err := godotenv.Load(env); err != nil {
			return "", fmt.Errorf("unable to load '%s': %w", env, err)
		}
		a.log.Debug("Environment loaded", zap.String("file", env))
	}
	return dir, nil
}

func (a *application) parseBook(ctx context.Context, dir string) (*book.Book, error) {
	b := book.New(vfs.NewDir(dir), ".", book.WithLogger(a.log))
	if err := b.Parse(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// outputDir is the second argument, or "_book" inside the book folder
func outputDir(cmd *cli.Command, dir string) (string, error) {
	out := cmd.Args().Get(1)
	if out == "" {
		return filepath.Join(dir, output.DefaultRoot), nil
	}
	return filepath.Abs(out)
}

func (a *application) build(ctx context.Context, cmd *cli.Command) error {
	dir, err := a.bookDir(cmd)
	if err != nil {
		return err
	}
	out, err := outputDir(cmd, dir)
	if err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		a.log.Warn("Malformed command line, too many arguments", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	var theme fs.FS = embeddedFrontend
	if t := cmd.String("theme"); t != "" {
		theme = os.DirFS(t)
	}

	b, err := a.parseBook(ctx, dir)
	if err != nil {
		return err
	}
	gen, err := output.New(b, nil, output.Options{
		Root:           out,
		DirectoryIndex: !cmd.Bool("no-directory-index"),
		KeepGoing:      cmd.Bool("keep-going"),
		Format:         cmd.String("format"),
		Theme:          theme,
	})
	if err != nil {
		return err
	}

	a.log.Info("Building book", zap.String("book", dir), zap.String("output", out), zap.String("format", gen.Name()))
	if err := gen.Generate(ctx); err != nil {
		return err
	}
	a.log.Info("Book built", zap.String("output", out))
	return nil
}

func (a *application) parse(ctx context.Context, cmd *cli.Command) error {
	dir, err := a.bookDir(cmd)
	if err != nil {
		return err
	}
	b, err := a.parseBook(ctx, dir)
	if err != nil {
		return err
	}

	books := []*book.Book{b}
	if b.IsMultilingual() {
		a.log.Info("Multilingual book", zap.Int("languages", b.Langs().Count()))
		for _, lang := range b.Langs().List() {
			a.log.Info("Language", zap.String("id", lang.ID()), zap.String("title", lang.Title))
		}
		books = b.Books()
	}
	for _, sub := range books {
		log := a.log
		if sub.IsLanguageBook() {
			log = log.With(zap.String("language", sub.Language()))
		}
		log.Info("Readme", zap.String("file", sub.Readme().Path), zap.String("title", sub.Config().Title()))
		if s := sub.Summary(); s != nil {
			log.Info("Summary", zap.String("file", s.Path()), zap.Int("articles", s.Count()))
			for _, art := range s.Flatten() {
				log.Debug("Article", zap.String("level", art.Level), zap.String("title", art.Title), zap.String("path", art.Path))
			}
		}
		log.Info("Glossary", zap.String("file", sub.Glossary().Path()), zap.Int("entries", sub.Glossary().Count()))
	}
	return nil
}

func (a *application) initBook(_ context.Context, cmd *cli.Command) error {
	dir := cmd.Args().Get(0)
	if dir == "" {
		dir = "."
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	title := cmd.String("title")
	if title == "" && !cmd.Bool("yes") && term.IsTerminal(int(os.Stdin.Fd())) {
		title = foliocli.AskTitle(os.Stdin, os.Stdout, filepath.Base(dir))
	}

	a.log.Info("Initializing book", zap.String("book", dir))
	created, err := foliocli.Init(vfs.NewDir(dir), foliocli.InitOptions{Title: title, Logger: a.log})
	if err != nil {
		return err
	}
	a.log.Info("Book initialized", zap.Int("created", len(created)))
	return nil
}

// clean removes the output folder and reports what it held
func (a *application) clean(_ context.Context, cmd *cli.Command) error {
	dir, err := a.bookDir(cmd)
	if err != nil {
		return err
	}
	out, err := outputDir(cmd, dir)
	if err != nil {
		return err
	}
	if _, err := os.Stat(out); os.IsNotExist(err) {
		a.log.Info("Nothing to clean", zap.String("output", out))
		return nil
	}

	var files, dirs int
	var size int64
	_ = filepath.WalkDir(out, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != out {
				dirs++
			}
			return nil
		}
		if info, err := d.Info(); err == nil {
			files++
			size += info.Size()
		}
		return nil
	})
	if err := os.RemoveAll(out); err != nil {
		return fmt.Errorf("unable to remove '%s': %w", out, err)
	}
	a.log.Info("Output removed", zap.String("output", out),
		zap.Int("files", files), zap.Int("directories", dirs), zap.String("size", humanBytes(size)))
	return nil
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	val := float64(n) / float64(div)
	suffix := []string{"KiB", "MiB", "GiB", "TiB"}
	if exp >= len(suffix) {
		return fmt.Sprintf("%.1f PiB", val/float64(unit))
	}
	return fmt.Sprintf("%.1f %s", val, suffix[exp])
}
