package app

import (
	"fmt"
	"strings"

	"github.com/yungbote/studyforge-backend/internal/clients/openai"
	"github.com/yungbote/studyforge-backend/internal/modules/studygen"
	"github.com/yungbote/studyforge-backend/internal/observability"
	"github.com/yungbote/studyforge-backend/internal/pkg/logger"
	"github.com/yungbote/studyforge-backend/internal/realtime/bus"
)

type Services struct {
	Bus          bus.Bus
	Orchestrator *studygen.Orchestrator
	Query        *studygen.Query
}

func wireServices(log *logger.Logger, cfg Config, repos Repos, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	gen, err := openai.New(openai.ConfigFromEnv(), log)
	if err != nil {
		log.Warn("Generation client unavailable; runs will fail at classification", "error", err)
		gen = openai.Unconfigured(err)
	}

	vocab := studygen.DefaultVocabulary()
	if path := strings.TrimSpace(cfg.VocabularyFile); path != "" {
		vocab, err = studygen.LoadVocabularyFile(path)
		if err != nil {
			return Services{}, fmt.Errorf("load vocabulary: %w", err)
		}
	}

	eventBus, err := wireBus(log, cfg.Redis)
	if err != nil {
		return Services{}, err
	}

	var genMetrics studygen.Metrics
	if metrics != nil {
		genMetrics = metrics
	}

	persister := studygen.NewPersister(repos.Study, repos.Unit, repos.Session, genMetrics, log)
	orchestrator := studygen.NewOrchestrator(cfg.Generation, studygen.Deps{
		Generator:   gen,
		Preferences: studygen.NewPreferenceReader(repos.Preference),
		Persister:   persister,
		Runs:        repos.Run,
		Notifier:    eventBus,
		Metrics:     genMetrics,
		Limiter:     studygen.NewLimiter(cfg.GenerationRPS, cfg.GenerationBurst),
		Vocabulary:  vocab,
		Log:         log,
	})

	return Services{
		Bus:          eventBus,
		Orchestrator: orchestrator,
		Query:        studygen.NewQuery(repos.Study, repos.Unit, repos.Session, repos.Run),
	}, nil
}

// wireBus picks Redis pub/sub when REDIS_ADDR is set so events reach every replica.
func wireBus(log *logger.Logger, cfg RedisConfig) (bus.Bus, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		log.Info("REDIS_ADDR not set; using in-process event bus")
		return bus.NewMemoryBus(), nil
	}
	b, err := bus.NewRedisBus(bus.RedisConfig{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		Channel:  cfg.Channel,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("init redis bus: %w", err)
	}
	return b, nil
}
