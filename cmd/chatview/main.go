// chatview demo bot: a stateful message-view runtime driving a small library
// bot over Telegram, or a scripted dry run against an in-memory transport.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mymmrac/telego"
	"golang.org/x/sync/errgroup"

	"github.com/odvcencio/chatview/pkg/config"
	"github.com/odvcencio/chatview/pkg/engine"
	"github.com/odvcencio/chatview/pkg/logging"
	"github.com/odvcencio/chatview/pkg/registry"
	"github.com/odvcencio/chatview/pkg/store"
	"github.com/odvcencio/chatview/pkg/telemetry"
	"github.com/odvcencio/chatview/pkg/transport"
)

var (
	configPath = flag.String("config", "", "path to config.yaml")
	dryRun     = flag.Bool("dry-run", false, "walk the demo views against an in-memory transport and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatview: %v\n", err)
		os.Exit(1)
	}

	if *dryRun {
		if err := runDry(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "chatview: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := serve(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "chatview: %v\n", err)
		os.Exit(1)
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		return store.NewSQLite(cfg.Store.Path)
	case "bolt":
		return store.NewBolt(cfg.Store.Path)
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func openLogger(cfg *config.Config) (*logging.Logger, error) {
	if cfg.LogDir == "" {
		return nil, nil
	}
	return logging.New(cfg.LogDir)
}

func newEngine(cfg *config.Config, st store.Store, tr transport.Transport, log *logging.Logger) (*engine.Engine, error) {
	eng := engine.New(st, registry.New(), tr, engine.Options{
		Logger:             log,
		CallbackPrefix:     cfg.Callback.Prefix,
		CallbackSeparator:  cfg.Callback.Separator,
		DisableAutoRefresh: !cfg.AutoRefresh,
	})
	if err := registerViews(eng); err != nil {
		return nil, err
	}
	return eng, nil
}

func serve(cfg *config.Config) error {
	if cfg.BotToken == "" {
		return fmt.Errorf("bot_token is required (set CHATVIEW_BOT_TOKEN)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	log, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	tg, err := transport.NewTelegram(ctx, cfg.BotToken)
	if err != nil {
		return err
	}
	eng, err := newEngine(cfg, st, tg, log)
	if err != nil {
		return err
	}

	updates, err := tg.Bot().UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting long polling: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	metricsSrv := &http.Server{Addr: cfg.MetricsBind, Handler: metricsMux()}
	g.Go(func() error {
		err := metricsSrv.ListenAndServe()
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case update, ok := <-updates:
				if !ok {
					return nil
				}
				// the engine serializes per record; updates for
				// different views may run concurrently
				go handleUpdate(ctx, eng, log, update)
			}
		}
	})

	fmt.Printf("chatview: serving (store=%s, metrics=%s)\n", cfg.Store.Backend, cfg.MetricsBind)
	return g.Wait()
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())
	return mux
}

func handleUpdate(ctx context.Context, eng *engine.Engine, log *logging.Logger, update telego.Update) {
	switch {
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		if _, err := eng.HandleButton(ctx, cq.ID, cq.Data); err != nil {
			log.Error(logging.CategoryGateway, "button_error", "", map[string]any{"error": err.Error()})
		}
	case update.Message != nil && update.Message.Text != "":
		msg := update.Message
		if strings.HasPrefix(msg.Text, "/start") {
			if _, err := eng.Send(ctx, &bookListView{}, engine.SendOptions{ChatID: msg.Chat.ID}); err != nil {
				log.Error(logging.CategoryGateway, "start_error", "", map[string]any{"error": err.Error()})
			}
			return
		}
		if _, err := eng.HandleText(ctx, msg.Chat.ID, msg.Text); err != nil {
			log.Error(logging.CategoryGateway, "text_error", "", map[string]any{"error": err.Error()})
		}
	}
}

// runDry walks the demo flow against the recording transport and prints
// every call the runtime would have made.
func runDry(cfg *config.Config) error {
	ctx := context.Background()

	tr := transport.NewMemory(1)
	eng, err := newEngine(cfg, store.NewMemory(), tr, nil)
	if err != nil {
		return err
	}

	const chat int64 = 1000
	codec := engine.Codec{Prefix: cfg.Callback.Prefix, Separator: cfg.Callback.Separator}
	if codec.Prefix == "" {
		codec.Prefix = engine.DefaultPrefix
	}
	if codec.Separator == "" {
		codec.Separator = engine.DefaultSeparator
	}

	listID, err := eng.Send(ctx, &bookListView{}, engine.SendOptions{ChatID: chat})
	if err != nil {
		return err
	}
	press := func(action string) error {
		top, _, err := eng.Focus().Top(ctx, "1:1000")
		if err != nil {
			return err
		}
		_, err = eng.HandleButton(ctx, "", codec.Encode(top, action, ""))
		return err
	}

	steps := []func() error{
		func() error { return press("down") },
		func() error { return press("read") },
		func() error { return press("next") },
		func() error { _, err := eng.HandleText(ctx, chat, "12"); return err },
		func() error { return press("close") },
		func() error { return eng.Delete(ctx, listID) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	for _, call := range tr.Calls() {
		fmt.Println(call.String())
	}
	return nil
}
