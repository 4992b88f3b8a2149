package main

import (
	"context"
	"flag"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/okulov/mindcast_bot/internal/app"
	"github.com/okulov/mindcast_bot/internal/commands"
	"github.com/okulov/mindcast_bot/internal/config"
	"github.com/okulov/mindcast_bot/internal/dialogue"
	"github.com/okulov/mindcast_bot/internal/generator"
	"github.com/okulov/mindcast_bot/internal/headlines"
	"github.com/okulov/mindcast_bot/internal/history"
	"github.com/okulov/mindcast_bot/internal/post"
	"github.com/okulov/mindcast_bot/internal/schedule"
	"github.com/okulov/mindcast_bot/internal/store"
	"github.com/okulov/mindcast_bot/internal/telegram"
)

func main() {
	configPath := flag.String("config", "configs/bot.yaml", "путь к файлу конфигурации")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Загружаем конфигурацию из YAML
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	// Загружаем переменные окружения (токены)
	envCfg, err := config.LoadEnv()
	if err != nil {
		logger.Fatalf("load env config: %v", err)
	}

	loc := envCfg.Location
	clock := func() time.Time { return time.Now().In(loc) }

	// Циклы расписания и команд работают параллельно, поэтому каждый
	// модуль получает собственный rand.Rand вместо одного общего.
	seed := time.Now().UnixNano()
	newRand := func() *rand.Rand {
		seed++
		return rand.New(rand.NewSource(seed))
	}

	// Открываем базу очереди постов
	db, err := store.Open(cfg.Storage.Path, loc)
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer db.Close()

	// Поднимаем историю генераций
	historyStore := history.NewFileStore(cfg.Generation.HistoryPath)
	ring, err := historyStore.Load(cfg.Generation.HistorySize)
	if err != nil {
		logger.Fatalf("load generation history: %v", err)
	}

	// Инициализируем модули
	httpClient := &http.Client{Timeout: 15 * time.Second}
	headlineSvc := headlines.NewService(cfg.Headlines, httpClient, newRand(), clock, logger)

	gen := generator.New(generator.Deps{
		Client:    generator.NewDeepSeekClient(envCfg.DeepSeekAPIKey, envCfg.DeepSeekAPIURL),
		Cfg:       cfg.Generation,
		Headlines: headlineSvc,
		History:   ring,
		Store:     historyStore,
		Rand:      newRand(),
		Clock:     clock,
		Logger:    logger,
	})

	tgClient := telegram.NewClient(envCfg.BotToken)
	publisher := telegram.NewPublisher(tgClient, envCfg.ChannelID, cfg.Telegram.ParseMode, logger)

	mode := post.Mode(cfg.Generation.Mode)
	var threads app.ThreadPublisher
	if mode == post.ModeThreads || mode == post.ModeMixed {
		manager, err := dialogue.NewManager(dialogue.Deps{
			Cfg:       cfg.Dialogue,
			Completer: gen,
			Poster:    publisher,
			Store:     dialogue.NewFileStore("state/threads.json"),
			Themes:    cfg.Generation.Themes,
			Rand:      newRand(),
			Clock:     clock,
			Logger:    logger,
		})
		if err != nil {
			logger.Fatalf("init dialogue manager: %v", err)
		}
		threads = manager
	}

	pipeline := app.New(app.Deps{
		Queue:     db,
		Generator: gen,
		Publisher: publisher,
		Threads:   threads,
		Mode:      mode,
		Rand:      newRand(),
		Clock:     clock,
		Logger:    logger,
	})

	scheduleCfg, err := schedule.FromConfig(cfg.Schedule)
	if err != nil {
		logger.Fatalf("build schedule: %v", err)
	}

	engine := schedule.NewEngine(schedule.EngineDeps{
		Config: scheduleCfg,
		Publish: func(ctx context.Context) error {
			return pipeline.GenerateAndPublish(ctx, clock())
		},
		Sweep: func(ctx context.Context) error {
			_, err := db.PurgeSentOlderThan(ctx, clock(), cfg.Schedule.RetentionDays)
			return err
		},
		Clock:   clock,
		Logger:  logger,
		Poll:    time.Duration(cfg.Schedule.PollSeconds) * time.Second,
		Spacing: time.Duration(cfg.Schedule.SpacingMinutes) * time.Minute,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Schedule.GenerateOnStartup {
		if _, err := pipeline.GenerateToCache(ctx); err != nil {
			// Неудачная предзагрузка кэша не мешает запуску
			logger.WithError(err).Warn("startup cache generation failed")
		}
	}

	listener := commands.NewListener(commands.Deps{
		Client:      tgClient,
		Pipeline:    pipeline,
		Queue:       db,
		Scheduler:   engine,
		AdminChatID: envCfg.AdminChatID,
		Mode:        mode,
		Location:    loc,
		Clock:       clock,
		Logger:      logger,
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		engine.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		listener.Run(ctx)
	}()

	logger.Info("bot started")
	wg.Wait()
	logger.Info("bot stopped")
}
