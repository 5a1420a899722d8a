package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-storefront-bot/internal/application/catalog"
	"github.com/go-storefront-bot/internal/application/confirmation"
	"github.com/go-storefront-bot/internal/application/emailcheck"
	"github.com/go-storefront-bot/internal/application/identity"
	"github.com/go-storefront-bot/internal/application/order"
	"github.com/go-storefront-bot/internal/application/verification"
	"github.com/go-storefront-bot/internal/config"
	"github.com/go-storefront-bot/internal/domain"
	"github.com/go-storefront-bot/internal/infrastructure/dns"
	"github.com/go-storefront-bot/internal/infrastructure/dynamo"
	"github.com/go-storefront-bot/internal/infrastructure/memory"
	"github.com/go-storefront-bot/internal/infrastructure/metrics"
	redisinfra "github.com/go-storefront-bot/internal/infrastructure/redis"
	s3infra "github.com/go-storefront-bot/internal/infrastructure/s3"
	"github.com/go-storefront-bot/internal/infrastructure/smtp"
	"github.com/go-storefront-bot/internal/infrastructure/sns"
	"github.com/go-storefront-bot/internal/infrastructure/sqlite"
	"github.com/go-storefront-bot/internal/infrastructure/tracing"
	"github.com/go-storefront-bot/internal/pkg/token"
	transporthttp "github.com/go-storefront-bot/internal/transport/http"
	"github.com/go-storefront-bot/internal/transport/telegram"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName     = "storefront-bot"
	updateGuardTTL  = 24 * time.Hour
	shutdownTimeout = 10 * time.Second
)

type identityRepo interface {
	Get(ctx context.Context, chatID int64) (*domain.Identity, error)
	EnsureExists(ctx context.Context, i *domain.Identity) error
	SetEmail(ctx context.Context, chatID int64, email string, now time.Time) error
}

type confirmationRepo interface {
	Replace(ctx context.Context, c *domain.Confirmation) error
	Get(ctx context.Context, chatID int64) (*domain.Confirmation, error)
	MarkConfirmed(ctx context.Context, chatID int64, challengeID string) error
}

type orderRepo interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	ListByChat(ctx context.Context, chatID int64) ([]domain.Order, error)
}

type conversationStore interface {
	Get(ctx context.Context, chatID int64) (domain.ConversationState, error)
	Set(ctx context.Context, chatID int64, state domain.ConversationState) error
}

// stores is the persistence selected by STORE_DRIVER.
type stores struct {
	identities    identityRepo
	confirmations confirmationRepo
	orders        orderRepo
	close         func() error
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, serviceName, cfg.OTELEndpoint)
	if err != nil {
		slog.Warn("tracing disabled", "err", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	m := metrics.New(prometheus.DefaultRegisterer)
	checks := map[string]func(context.Context) error{}

	st, err := openStores(ctx, cfg, checks)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer func() { _ = st.close() }()

	states, guard := conversationStores(ctx, cfg, checks)

	cat, err := loadCatalog(ctx, cfg)
	if err != nil {
		log.Fatalf("load catalog: %v", err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("telegram bot: %v", err)
	}
	sender := telegram.NewBotSender(bot)

	identities := identity.NewService(st.identities)
	challenges := confirmation.NewService(confirmation.ServiceDeps{
		Repo:     st.confirmations,
		TTL:      cfg.ConfirmationTTL,
		HashCost: cfg.CodeHashCost,
	})
	verifier := verification.NewService(verification.ServiceDeps{
		States:     states,
		Validator:  emailcheck.NewValidator(dns.NewChecker(cfg.DNSTimeout)),
		Challenges: challenges,
		Directory:  identities,
		Mailer:     smtp.NewMailer(cfg),
		NewCode:    token.NewConfirmationCode,
		Metrics:    m,
	})
	orders := order.NewService(order.ServiceDeps{
		Repo:      st.orders,
		Directory: identities,
		Catalog:   cat,
		Notifier:  orderNotifier(ctx, cfg, sender, m),
		Metrics:   m,
	})

	handler := telegram.NewHandler(telegram.HandlerDeps{
		Identities:      identities,
		Verification:    verifier,
		Orders:          orders,
		Catalog:         cat,
		Sender:          sender,
		SupportHandle:   cfg.SupportHandle,
		ReviewsChatLink: cfg.ReviewsChatLink,
	})
	dispatcher := telegram.NewDispatcher(handler, guard, cfg.Workers, m)

	deps := &transporthttp.Deps{
		Catalog: cat,
		Checks:  checks,
		Metrics: promhttp.Handler(),
	}
	if cfg.TelegramMode == config.ModeWebhook {
		deps.Updates = dispatcher
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "mode", cfg.TelegramMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	g.Go(func() error {
		if cfg.TelegramMode == config.ModeWebhook {
			return telegram.RegisterWebhook(bot, webhookURL(cfg))
		}
		return telegram.Poll(gctx, bot, dispatcher)
	})

	if err := g.Wait(); err != nil {
		slog.Error("bot stopped with error", "err", err)
		os.Exit(1)
	}
	slog.Info("bot stopped")
}

func setupLogger(cfg *config.Config) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h).With("service", serviceName))
}

func openStores(ctx context.Context, cfg *config.Config, checks map[string]func(context.Context) error) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDynamo:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		// Bootstrap DynamoDB tables (creates them if they don't exist).
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		return &stores{
			identities:    dynamo.NewIdentityRepo(client, cfg.DynamoTables.Identities),
			confirmations: dynamo.NewConfirmationRepo(client, cfg.DynamoTables.Confirmations),
			orders:        dynamo.NewOrderRepo(client, cfg.DynamoTables.Orders, cfg.DynamoTables.OrderKeys),
			close:         func() error { return nil },
		}, nil
	case config.StoreSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		checks["sqlite"] = db.Health
		return &stores{
			identities:    sqlite.NewIdentityRepo(db),
			confirmations: sqlite.NewConfirmationRepo(db),
			orders:        sqlite.NewOrderRepo(db),
			close:         db.Close,
		}, nil
	default:
		slog.Warn("using in-memory store; data is lost on restart")
		return &stores{
			identities:    memory.NewIdentityRepo(),
			confirmations: memory.NewConfirmationRepo(),
			orders:        memory.NewOrderRepo(),
			close:         func() error { return nil },
		}, nil
	}
}

// conversationStores shares state through Redis when configured so replicas
// agree on each chat's step; otherwise state lives in process memory.
func conversationStores(ctx context.Context, cfg *config.Config, checks map[string]func(context.Context) error) (conversationStore, telegram.UpdateGuard) {
	client, err := redisinfra.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	if client == nil {
		return memory.NewConversationStore(cfg.ConversationTTL), memory.NewUpdateGuard(updateGuardTTL)
	}
	checks["redis"] = client.Health
	return redisinfra.NewConversationStore(client, cfg.ConversationTTL), redisinfra.NewUpdateGuard(client, updateGuardTTL)
}

func loadCatalog(ctx context.Context, cfg *config.Config) (catalog.Service, error) {
	switch {
	case cfg.CatalogS3Bucket != "":
		client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return catalog.LoadObject(ctx, s3infra.NewStore(client, cfg.CatalogS3Bucket), cfg.CatalogS3Key)
	case cfg.CatalogFile != "":
		return catalog.LoadFile(cfg.CatalogFile)
	default:
		return catalog.Default(), nil
	}
}

// orderNotifier fans new orders out to the support chat and the SNS topic,
// whichever are configured.
func orderNotifier(ctx context.Context, cfg *config.Config, sender telegram.Sender, m *metrics.Metrics) order.Notifier {
	var channels []order.Channel
	if cfg.SupportChatID != 0 {
		channels = append(channels, order.Channel{Name: "telegram", Notifier: telegram.NewSupportNotifier(sender, cfg.SupportChatID)})
	} else {
		slog.Warn("SUPPORT_CHAT_ID not set; new orders are not posted to support")
	}
	if cfg.SNSOrderTopicARN != "" {
		if p, err := sns.NewOrderPublisher(ctx, cfg); err == nil {
			channels = append(channels, order.Channel{Name: "sns", Notifier: p})
		} else {
			slog.Warn("SNS order publisher not available", "err", err)
		}
	}
	return order.NewFanout(m, channels...)
}

func webhookURL(cfg *config.Config) string {
	return strings.TrimRight(cfg.WebhookURL, "/") + "/v1/telegram/webhook/" + cfg.WebhookSecret
}
