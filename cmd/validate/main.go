package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"NewsForge/internal/artifact"
	"NewsForge/internal/config"
	"NewsForge/internal/logging"
	"NewsForge/internal/usecase"
)

// validate checks published artifacts against their external contracts
// without rerunning any pipeline stage.
func main() {
	all := flag.Bool("all", false, "validate articles, insights and visualization presence")
	articles := flag.Bool("articles", false, "validate article files only")
	insights := flag.Bool("insights", false, "validate the insight bundle only")
	flag.Parse()

	if !*all && !*articles && !*insights {
		*all = true
	}

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)
	store := artifact.NewStore(cfg.DataDir)

	failed := 0

	if *all || *articles {
		matches, err := filepath.Glob(filepath.Join(store.ArticleDir(), "*.json"))
		if err != nil {
			logger.Error("list articles", "error", err)
			os.Exit(1)
		}
		if len(matches) == 0 {
			logger.Warn("no article files found", "dir", store.ArticleDir())
		}
		for _, path := range matches {
			raw, err := os.ReadFile(path)
			if err != nil {
				logger.Error("read article", "path", path, "error", err)
				failed++
				continue
			}
			if err := usecase.ValidateArticleJSON(raw, cfg.Generate.MinWords); err != nil {
				logger.Error("invalid article", "path", path, "error", err)
				failed++
				continue
			}
			logger.Info("article ok", "path", path)
		}
	}

	if *all || *insights {
		raw, err := os.ReadFile(store.InsightsPath())
		switch {
		case os.IsNotExist(err):
			logger.Warn("insight bundle not found", "path", store.InsightsPath())
		case err != nil:
			logger.Error("read insights", "path", store.InsightsPath(), "error", err)
			failed++
		default:
			if err := usecase.ValidateInsightsJSON(raw); err != nil {
				logger.Error("invalid insights", "path", store.InsightsPath(), "error", err)
				failed++
			} else {
				logger.Info("insights ok", "path", store.InsightsPath())
			}
		}
	}

	if *all && cfg.Insights.Charts {
		charts, err := filepath.Glob(filepath.Join(store.VisualizationDir(), "*.png"))
		if err == nil && len(charts) == 0 {
			logger.Warn("no visualizations found", "dir", store.VisualizationDir())
		}
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "validation failed for %d artifact(s)\n", failed)
		os.Exit(1)
	}
}
