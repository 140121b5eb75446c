// server runs the auth-core gRPC server. Operator subcommands reuse the same
// wiring: "gc" deletes expired refresh-token and revoked-jti rows,
// "revoke-user <user-id>" force-logs a user out everywhere, and
// "events <user-id>" prints the user's recent token-lifecycle events.
package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commerce-auth-core/internal/audit"
	auditrepo "commerce-auth-core/internal/audit/repository"
	authservice "commerce-auth-core/internal/auth/service"
	"commerce-auth-core/internal/config"
	"commerce-auth-core/internal/db"
	keymaterialrepo "commerce-auth-core/internal/keymaterial/repository"
	revocationrepo "commerce-auth-core/internal/revocation/repository"
	revocationservice "commerce-auth-core/internal/revocation/service"
	"commerce-auth-core/internal/security"
	"commerce-auth-core/internal/server"
	sessionrepo "commerce-auth-core/internal/session/repository"
	sessionservice "commerce-auth-core/internal/session/service"
	"commerce-auth-core/internal/telemetry"
	otelsetup "commerce-auth-core/internal/telemetry/otel"
	"commerce-auth-core/internal/telemetry/producer"
	tokenrepo "commerce-auth-core/internal/token/repository"
	tokenservice "commerce-auth-core/internal/token/service"
)

type app struct {
	cfg      *config.Config
	issuer   *security.TokenIssuer
	registry *revocationservice.Registry
	auth     *authservice.AuthService
	trail    *audit.Trail
	tokens   *tokenrepo.PostgresRepository
	revoked  *revocationrepo.PostgresRepository
	metrics  *telemetry.Metrics
	producer *producer.KafkaProducer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, "commerce-auth-core", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()

	metrics, err := telemetry.NewMetrics(providers.MeterProvider.Meter("commerce-auth-core"))
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	a, err := newApp(ctx, cfg, metrics)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "gc":
			runGC(ctx, a)
			return
		case "revoke-user":
			if len(os.Args) < 3 {
				log.Fatal("usage: server revoke-user <user-id>")
			}
			if err := a.auth.LogoutEverywhere(ctx, os.Args[2]); err != nil {
				log.Fatalf("revoke-user: %v", err)
			}
			log.Printf("revoked all tokens for user %s", os.Args[2])
			return
		case "events":
			if len(os.Args) < 3 {
				log.Fatal("usage: server events <user-id>")
			}
			listEvents(ctx, a, os.Args[2])
			return
		default:
			log.Fatalf("unknown command %q", os.Args[1])
		}
	}

	serve(a, providers)
}

func runGC(ctx context.Context, a *app) {
	now := time.Now().UTC()
	nTokens, err := a.tokens.DeleteExpired(ctx, now)
	if err != nil {
		log.Fatalf("gc refresh tokens: %v", err)
	}
	nJtis, err := a.revoked.DeleteExpired(ctx, now)
	if err != nil {
		log.Fatalf("gc revoked jtis: %v", err)
	}
	log.Printf("gc: removed %d expired refresh tokens, %d expired revoked jtis", nTokens, nJtis)
}

func listEvents(ctx context.Context, a *app, userID string) {
	events, err := a.trail.ListByUser(ctx, userID, 0, 0)
	if err != nil {
		log.Fatalf("events: %v", err)
	}
	for _, e := range events {
		ref := e.Jti
		if ref == "" {
			ref = e.TokenID
		}
		log.Printf("%s %s/%s %s session=%s", e.CreatedAt.Format(time.RFC3339), e.TokenType, e.Action, ref, e.SessionID)
	}
	log.Printf("%d events for user %s", len(events), userID)
}

func serve(a *app, providers *otelsetup.Providers) {
	s := server.New(server.Deps{
		Issuer:   a.issuer,
		Registry: a.registry,
		Metrics:  a.metrics,
	})

	lis, err := net.Listen("tcp", a.cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	go func() {
		log.Printf("auth core listening on %s", a.cfg.GRPCAddr)
		if err := s.Serve(lis); err != nil {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	s.GracefulStop()
	if a.producer != nil {
		_ = a.producer.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = providers.Shutdown(shutdownCtx)
	log.Println("stopped")
}

func newApp(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (*app, error) {
	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	// Key provisioning failures abort startup: signing with an ephemeral key
	// would invalidate every previously issued token across the fleet.
	provisioner := security.NewProvisioner(keymaterialrepo.NewPostgresRepository(pool), cfg.SigningKeyBits)
	signer, pub, err := provisioner.ObtainKeyPair(ctx)
	if err != nil {
		return nil, err
	}

	digester, err := security.NewDigester(cfg.RefreshTokenSecret)
	if err != nil {
		return nil, err
	}

	issuer := security.NewTokenIssuer(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())

	kafkaProducer, err := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.TokenEventsKafkaTopic)
	if err != nil {
		return nil, err
	}

	eventRepo := auditrepo.NewPostgresRepository(pool)
	recorder := audit.NewRecorder(eventRepo, nil)
	if kafkaProducer != nil {
		recorder = audit.NewRecorder(eventRepo, kafkaProducer)
	}

	tokens := tokenrepo.NewPostgresRepository(pool)
	revoked := revocationrepo.NewPostgresRepository(pool)
	ledger := tokenservice.NewLedger(tokens, digester, cfg.RefreshTTL(), recorder, metrics)
	registry := revocationservice.NewRegistry(revoked, eventRepo, recorder)
	sessions := sessionservice.NewManager(sessionrepo.NewPostgresRepository(pool))

	return &app{
		cfg:      cfg,
		issuer:   issuer,
		registry: registry,
		auth:     authservice.NewAuthService(issuer, ledger, registry, sessions, recorder, metrics),
		trail:    audit.NewTrail(eventRepo),
		tokens:   tokens,
		revoked:  revoked,
		metrics:  metrics,
		producer: kafkaProducer,
	}, nil
}
