package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jask/relcards/internal/config"
	"github.com/jask/relcards/internal/database"
	"github.com/jask/relcards/internal/database/repository"
	"github.com/jask/relcards/internal/logging"
	"github.com/jask/relcards/internal/metrics"
	"github.com/jask/relcards/internal/relationship"
	"github.com/jask/relcards/internal/schema"
	"github.com/jask/relcards/internal/service"
	"github.com/jask/relcards/internal/tui"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "relcards",
	Short: "Edit a record's relationship field as a board of cards",
	Long: `relcards shows the records linked through one relationship field as cards.
Cards can be reordered with the keyboard; new records can be created, existing
ones linked, and linked ones edited inline.`,
	SilenceUsage: true,
	RunE:         runBoard,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the card board (default)",
	RunE:  runBoard,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the demo post, sections and author",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.close()
		if err := database.SeedDefaults(cmd.Context(), env.db); err != nil {
			return fmt.Errorf("seed defaults: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded post %s\n", database.DemoPostID())
		return nil
	},
}

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Print the related records in display order",
	RunE:  runOrder,
}

func init() {
	cobra.OnInitialize(func() {
		if cfgFile != "" {
			_ = os.Setenv("RELCARDS_CONFIG", cfgFile)
		}
	})
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/relcards/config.toml)")
	rootCmd.AddCommand(tuiCmd, seedCmd, orderCmd, newConfigCmd())
}

// env is everything the commands share once config, logging and the database are up.
type env struct {
	cfg     config.Config
	log     *zap.SugaredLogger
	db      *sql.DB
	records *repository.RecordRepo
	links   *repository.RelationshipRepo
}

func openEnv(ctx context.Context, seed bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(logging.Options{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		File:        cfg.Log.File,
	})
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(cfg.Database.Path, cfg.Database.Migrations); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if seed && cfg.Database.Seed {
		if err := database.SeedDefaults(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("seed defaults: %w", err)
		}
	}
	logger.Debugw("database ready", "path", cfg.Database.Path)
	return &env{
		cfg:     cfg,
		log:     logger,
		db:      db,
		records: repository.NewRecordRepo(db),
		links:   repository.NewRelationshipRepo(db),
	}, nil
}

func (e *env) close() {
	_ = e.db.Close()
	_ = e.log.Sync()
}

// mount resolves the configured relationship field and mounts it over the stored links.
func (e *env) mount(ctx context.Context, opts ...relationship.Option) (*service.Session, *relationship.Field, *relationship.FetchRequest, error) {
	rc := e.cfg.Relationship
	reg := schema.Default()
	owner, ok := reg.List(rc.OwnerList)
	if !ok {
		return nil, nil, nil, &relationship.ResolutionError{List: rc.OwnerList, Path: rc.Field}
	}
	f, foreign, err := reg.Relationship(rc.OwnerList, rc.Field)
	if err != nil {
		return nil, nil, nil, err
	}
	ownerID, err := service.ResolveOwner(ctx, e.records, rc.OwnerList, rc.OwnerID)
	if err != nil {
		return nil, nil, nil, err
	}
	cfg := relationship.Config{Owner: owner, OwnerID: ownerID, Field: f, Foreign: foreign}

	sess, err := service.OpenSession(ctx, e.links, cfg, e.cfg.DisplayOptions())
	if err != nil {
		return nil, nil, nil, err
	}
	opts = append([]relationship.Option{relationship.WithLogger(e.log)}, opts...)
	field, req, err := relationship.NewField(cfg, sess.Value(), sess.OnChange, opts...)
	if err != nil {
		return nil, nil, nil, err
	}
	return sess, field, req, nil
}

func (e *env) ownerLabel(ctx context.Context, listKey, id string) string {
	rec, err := e.records.Get(ctx, id)
	if err != nil || rec == nil {
		return id
	}
	owner, _ := schema.Default().List(listKey)
	if v, ok := rec.Data[owner.LabelField]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return id
}

func runBoard(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	e, err := openEnv(ctx, true)
	if err != nil {
		return err
	}
	defer e.close()

	rec := metrics.NewRecorder()
	sess, field, req, err := e.mount(ctx, relationship.WithRecorder(rec))
	if err != nil {
		e.log.Errorw("mount relationship field", "error", err)
		return err
	}
	if addr := e.cfg.Metrics.Addr; addr != "" {
		go func() {
			if err := rec.Serve(ctx, addr, e.log); err != nil {
				e.log.Warnw("metrics server stopped", "error", err)
			}
		}()
	}

	cfg := field.Config()
	app := tui.New(ctx, tui.Deps{
		Source:      &service.ItemSource{Records: e.records},
		Session:     sess,
		Field:       field,
		Initial:     req,
		Log:         e.log,
		OwnerLabel:  e.ownerLabel(ctx, cfg.Owner.Key, cfg.OwnerID),
		StarIcon:    e.cfg.UI.StarIcon,
		SearchLimit: e.cfg.Relationship.SearchLimit,
	})
	if _, err := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	if sess.Dirty() {
		e.log.Infow("quit with unsaved links", "owner", cfg.OwnerID, "field", cfg.Field.Path)
	}
	return nil
}

func runOrder(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := openEnv(ctx, true)
	if err != nil {
		return err
	}
	defer e.close()

	_, field, req, err := e.mount(ctx)
	if err != nil {
		return err
	}
	if req != nil {
		field.ApplyFetch(relationship.Fetch(ctx, &service.ItemSource{Records: e.records}, *req))
	}
	if st := field.State(); st.Kind == relationship.StateError {
		return errors.New(st.Message)
	}

	label := field.Config().Foreign.LabelField
	out := cmd.OutOrStdout()
	for _, c := range field.Cards() {
		fmt.Fprintf(out, "%d\t%d\t%s\t%s\n", c.Index+1, c.Item.Sort, c.ID, c.Item.Label(label))
	}
	field.Teardown()
	return nil
}
