package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakoblorz/go-projectdoc/internal/config"
	"github.com/jakoblorz/go-projectdoc/internal/document"
	"github.com/jakoblorz/go-projectdoc/internal/filesystem"
	"github.com/jakoblorz/go-projectdoc/internal/jobs"
	"github.com/jakoblorz/go-projectdoc/internal/logging"
	"github.com/jakoblorz/go-projectdoc/internal/providers"
	"github.com/jakoblorz/go-projectdoc/internal/views"
)

// environment carries what every command needs before flags are parsed.
type environment struct {
	fs filesystem.FileSystem
	gh GitHubFactory
}

// session is one command invocation's document with its supporting stack.
type session struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *prometheus.Registry
	doc     *document.Document
}

func (e *environment) open(cmd *cobra.Command) (*session, error) {
	configPath, _ := cmd.Flags().GetString("config")
	logLevel, _ := cmd.Flags().GetString("log-level")

	cfg, err := config.Load(e.fs, configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	reg := providers.NewRegistry()
	reg.Register(providers.DirectoryLoaderType, providers.NewDirectoryProvider(e.fs))
	if e.gh != nil {
		client, err := e.gh(cfg)
		if err != nil {
			return nil, err
		}
		reg.Register(providers.GitHubLoaderType, providers.NewGitHubProvider(client))
	}

	metrics := prometheus.NewRegistry()
	doc, err := document.New(document.Options{
		FS:        e.fs,
		Config:    cfg,
		Providers: reg,
		Metrics:   jobs.NewMetrics(metrics),
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	if err := doc.Subscribe(eventLogger{logger: logger}); err != nil {
		_ = doc.Close()
		return nil, err
	}

	return &session{cfg: cfg, logger: logger, metrics: metrics, doc: doc}, nil
}

// load opens path and waits until the document is loaded.
func (s *session) load(ctx context.Context, path string) error {
	if _, err := s.doc.Load(path); err != nil {
		return err
	}
	if err := s.doc.AwaitLoad(ctx); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// save writes the document back to the file it was loaded from.
func (s *session) save() error {
	return s.doc.Save("", s.cfg.Document.KeepBackups)
}

func (s *session) close() error {
	err := s.doc.Close()
	s.logJobs()
	_ = s.logger.Sync()
	return err
}

// logJobs reports the job outcome counters at debug level.
func (s *session) logJobs() {
	if !s.logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	families, err := s.metrics.Gather()
	if err != nil {
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fields := []zap.Field{zap.String("metric", mf.GetName())}
			for _, lp := range m.GetLabel() {
				fields = append(fields, zap.String(lp.GetName(), lp.GetValue()))
			}
			switch {
			case m.GetCounter() != nil:
				fields = append(fields, zap.Float64("value", m.GetCounter().GetValue()))
			case m.GetGauge() != nil:
				fields = append(fields, zap.Float64("value", m.GetGauge().GetValue()))
			}
			s.logger.Debug("job metrics", fields...)
		}
	}
}

type eventLogger struct {
	logger *zap.Logger
}

func (l eventLogger) HandleEvent(ev views.Event) {
	l.logger.Debug("document event", zap.String("kind", string(ev.Kind)))
}
