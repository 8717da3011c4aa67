package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/Verifactu-api/internal/application/billing"
	"github.com/jhoicas/Verifactu-api/internal/domain/verifactu"
	"github.com/jhoicas/Verifactu-api/internal/infrastructure/aeat"
	"github.com/jhoicas/Verifactu-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Verifactu-api/internal/interfaces/http"
	"github.com/jhoicas/Verifactu-api/pkg/config"
	"github.com/jhoicas/Verifactu-api/pkg/logger"
	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("aeat_env", cfg.Verifactu.Environment).
		Msg("iniciando aplicación")

	vf := cfg.Verifactu
	env, err := aeat.ParseEnvironment(vf.Environment)
	if err != nil {
		log.Fatal().Err(err).Msg("entorno AEAT")
	}
	mode, err := aeat.ParseAuthMode(vf.AuthMode)
	if err != nil {
		log.Fatal().Err(err).Msg("modo de autenticación AEAT")
	}
	aeatCfg, err := aeat.NewConfig(env, mode)
	if err != nil {
		log.Fatal().Err(err).Msg("configuración AEAT")
	}
	aeatCfg.WithCertificate(vf.CertPath, vf.CertKeyPath, vf.CertPassword)

	// El certificado se comprueba al arrancar; cada envío lo vuelve a cargar.
	if info, err := aeat.InspectCertificate(aeatCfg.Credentials()); err != nil {
		log.Warn().Err(err).Str("path", vf.CertPath).Msg("certificado cliente no disponible")
	} else {
		ev := log.Info()
		if info.Expired(time.Now()) {
			ev = log.Warn()
		}
		ev.Str("subject", info.Subject).Time("not_after", info.NotAfter).Msg("certificado cliente")
	}

	loc, err := pkgvf.Location(vf.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("zona horaria")
	}

	obligado := verifactu.Party{NIF: vf.IssuerNIF, NombreRazon: vf.IssuerName}
	soap := aeat.NewSOAPClient(
		aeat.WithTimeout(vf.Timeout()),
		aeat.WithLogger(log.Zerolog()),
	)
	opts := []billing.Option{
		billing.WithLogger(log.Zerolog()),
		billing.WithLocation(loc),
		billing.WithSystemInfo(verifactu.NewSistemaInformatico(
			obligado, vf.SystemName, vf.SystemID, vf.SystemVersion, vf.InstallationNumber,
		)),
	}

	// Histórico de envíos opcional (DATABASE_URL o DB_HOST).
	if cfg.DB.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		pool, err := postgres.NewPool(ctx, cfg.DB)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("conectar a la base de datos")
		}
		defer pool.Close()
		opts = append(opts, billing.WithStore(postgres.NewSubmissionRepository(pool)))
		log.Info().Msg("histórico de envíos en PostgreSQL")
	}

	mgr, err := billing.NewManager(obligado, aeatCfg, soap, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("obligado VERI*FACTU")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: vf.Timeout() + 10*time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "aeat_env": string(env)})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Manager:   mgr,
		JWTSecret: cfg.JWT.Secret,
		Logger:    log.Zerolog(),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
