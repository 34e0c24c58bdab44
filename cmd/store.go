package main

import (
	"context"

	"github.com/sells-group/cumulate/internal/merge"
	"github.com/sells-group/cumulate/internal/snapshot"
)

func initStore(ctx context.Context) (snapshot.Store, error) {
	return snapshot.Open(ctx, cfg.Store)
}

func loadLadder() (merge.Ladder, error) {
	if cfg.Classifier.RulesFile == "" {
		return merge.DefaultLadder(), nil
	}
	return merge.LoadLadder(cfg.Classifier.RulesFile)
}
