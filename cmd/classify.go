package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/grangerlab/landcover/internal/pipeline"
	"github.com/grangerlab/landcover/internal/store"
)

var classifyNoStore bool

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Run the full classification pipeline for the configured scene",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, classifyNoStore)
		if err != nil {
			return err
		}
		if st != nil {
			defer func() { _ = st.Close() }()
		}

		p := pipeline.New(cfg, st)
		result, err := p.Run(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(result), "encode result")
	},
}

// initStore opens and migrates the sqlite run store, or returns nil
// when persistence is disabled.
func initStore(ctx context.Context, disabled bool) (store.Store, error) {
	if disabled || cfg.Store.Path == "" {
		return nil, nil
	}
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	zap.L().Debug("store opened", zap.String("path", cfg.Store.Path))
	return st, nil
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyNoStore, "no-store", false, "skip persisting the run to the store")
	rootCmd.AddCommand(classifyCmd)
}
