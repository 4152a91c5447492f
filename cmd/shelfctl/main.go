// Command shelfctl works on the snippet stores directly, without the HTTP
// server: list, export, import, statistics and a manual local → remote
// migration.
//
// Every command takes --owner. Without it the command works on the
// device-local collection, exactly as an anonymous API call would.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/sakif/snippet-shelf/internal/apperror"
	"github.com/sakif/snippet-shelf/internal/config"
	"github.com/sakif/snippet-shelf/internal/repository/local"
	"github.com/sakif/snippet-shelf/internal/repository/sqlite"
	"github.com/sakif/snippet-shelf/internal/server"
	"github.com/sakif/snippet-shelf/internal/service"
	"github.com/sakif/snippet-shelf/internal/transfer"
	"github.com/sakif/snippet-shelf/internal/view"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "shelfctl:", err)
		os.Exit(1)
	}
}

// shelf carries what Before resolved to the command actions.
type shelf struct {
	cfg    *config.Config
	logger *slog.Logger
}

func ownerFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "owner",
		Aliases: []string{"o"},
		Usage:   "User id whose remote collection to use (empty = local collection)",
	}
}

func newApp() *cli.App {
	s := &shelf{}
	return &cli.App{
		Name:  "shelfctl",
		Usage: "Manage snippet shelf collections from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the TOML config file",
				Value:   "shelf.toml",
				EnvVars: []string{"SHELF_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override the configured log level (debug, info, warn, error)",
			},
		},
		Before: s.setup,
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List snippets, pinned first then newest",
				Action: s.listCommand,
				Flags: []cli.Flag{
					ownerFlag(),
					&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "all, code, sql or text", Value: "all"},
					&cli.StringSliceFlag{Name: "tag", Usage: "Only snippets carrying any of these tags"},
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Case-insensitive text search in title and body"},
				},
			},
			{
				Name:   "export",
				Usage:  "Write the whole collection as JSON or CSV",
				Action: s.exportCommand,
				Flags: []cli.Flag{
					ownerFlag(),
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json or csv", Value: "json"},
					&cli.StringFlag{Name: "out", Usage: "Output file (default stdout)"},
				},
			},
			{
				Name:   "import",
				Usage:  "Create snippets from a JSON or CSV export",
				Action: s.importCommand,
				Flags: []cli.Flag{
					ownerFlag(),
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json or csv", Value: "json"},
					&cli.StringFlag{Name: "in", Usage: "Input file (default stdin)"},
				},
			},
			{
				Name:   "migrate",
				Usage:  "Move the local collection to a user's remote collection",
				Action: s.migrateCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "owner", Aliases: []string{"o"}, Usage: "Target user id", Required: true},
				},
			},
			{
				Name:   "stats",
				Usage:  "Print usage statistics as JSON",
				Action: s.statsCommand,
				Flags:  []cli.Flag{ownerFlag()},
			},
		},
	}
}

func (s *shelf) setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if lvl := c.String("log-level"); lvl != "" {
		if _, err := config.ParseLevel(lvl); err != nil {
			return err
		}
		cfg.LogLevel = lvl
	}
	s.cfg = cfg
	s.logger = cfg.NewLogger(c.App.ErrWriter)
	return nil
}

// stores are opened per command and closed when it returns.
type stores struct {
	local  *local.Store
	remote *sqlite.DB
}

func (s *shelf) open() (*stores, error) {
	remote, err := server.OpenRemote(s.cfg.Storage.RemoteDB)
	if err != nil {
		return nil, err
	}
	localStore, err := local.Open(s.cfg.Storage.LocalDir, s.cfg.Storage.LocalInMemory, s.logger)
	if err != nil {
		remote.Close()
		return nil, err
	}
	return &stores{local: localStore, remote: remote}, nil
}

func (st *stores) Close() error {
	return errors.Join(st.local.Close(), st.remote.Close())
}

func (s *shelf) snippets(st *stores) *service.SnippetService {
	return service.NewSnippetService(service.Options{
		Local:     st.local,
		Remote:    st.remote,
		LocalOnly: s.cfg.Storage.LocalOnly,
		Logger:    s.logger,
	})
}

func (s *shelf) listCommand(c *cli.Context) error {
	kind, ok := view.ParseType(c.String("type"))
	if !ok {
		return fmt.Errorf("unknown type %q", c.String("type"))
	}

	st, err := s.open()
	if err != nil {
		return err
	}
	defer st.Close()

	all, err := s.snippets(st).List(c.Context, service.OwnerFrom(c.String("owner")))
	if err != nil {
		return err
	}
	items := view.NewIndex(all).Apply(view.Query{Type: kind, Tags: c.StringSlice("tag"), Text: c.String("query")})

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tPIN\tUSES\tTITLE\tTAGS")
	for _, sn := range items {
		pin := ""
		if sn.IsPinned {
			pin = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			sn.ID, sn.Kind, pin, sn.UseCount, sn.Title, strings.Join(sn.Tags, ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%d of %d snippets\n", len(items), len(all))
	return nil
}

func (s *shelf) exportCommand(c *cli.Context) error {
	format, err := transfer.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}

	st, err := s.open()
	if err != nil {
		return err
	}
	defer st.Close()

	all, err := s.snippets(st).List(c.Context, service.OwnerFrom(c.String("owner")))
	if err != nil {
		return err
	}

	var w io.Writer = c.App.Writer
	if path := c.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	if err := transfer.Write(w, format, view.Sort(all)); err != nil {
		return err
	}
	s.logger.Info("exported snippets", slog.Int("count", len(all)), slog.String("format", string(format)))
	return nil
}

func (s *shelf) importCommand(c *cli.Context) error {
	format, err := transfer.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}

	var r io.Reader = os.Stdin
	if path := c.String("in"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	drafts, err := transfer.Read(r, format)
	if err != nil {
		return err
	}

	st, err := s.open()
	if err != nil {
		return err
	}
	defer st.Close()

	report := s.snippets(st).Import(c.Context, service.OwnerFrom(c.String("owner")), drafts)
	for _, f := range report.Failures {
		fmt.Fprintf(c.App.Writer, "skipped #%d %q: %s\n", f.Index, f.Title, f.Reason)
	}
	fmt.Fprintf(c.App.Writer, "imported %d snippets\n", report.Imported)
	return report.Err()
}

func (s *shelf) migrateCommand(c *cli.Context) error {
	if s.cfg.Storage.LocalOnly {
		return errors.New("local_only is set; migration is disabled")
	}
	owner := c.String("owner")

	st, err := s.open()
	if err != nil {
		return err
	}
	defer st.Close()

	// Refuse to hand the collection to an account that does not exist.
	if _, err := st.remote.GetUserByID(c.Context, owner); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return fmt.Errorf("no user with id %s", owner)
		}
		return err
	}

	migrator := s.snippets(st).NewMigrator(s.cfg.Migration.Workers)
	report, err := migrator.Migrate(context.WithoutCancel(c.Context), owner)
	if err != nil {
		return err
	}

	for _, o := range report.Failed() {
		fmt.Fprintf(c.App.Writer, "failed %q: %v\n", o.Record.Title, o.Err)
	}
	fmt.Fprintf(c.App.Writer, "migrated %d of %d snippets to %s\n", report.Migrated(), report.Total(), owner)
	return report.Err()
}

func (s *shelf) statsCommand(c *cli.Context) error {
	st, err := s.open()
	if err != nil {
		return err
	}
	defer st.Close()

	all, err := s.snippets(st).List(c.Context, service.OwnerFrom(c.String("owner")))
	if err != nil {
		return err
	}
	sorted := view.Sort(all)

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(view.Summarize(sorted, sorted))
}
