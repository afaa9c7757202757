// Command migrate prepares the Postgres message store and can seed it with
// pending messages to exercise redelivery.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Kirky-X/xlink/internal/config"
	"github.com/Kirky-X/xlink/internal/db/gormdb"
	"github.com/Kirky-X/xlink/internal/domain/device"
	domain "github.com/Kirky-X/xlink/internal/domain/message"
	"github.com/Kirky-X/xlink/internal/logger"
	messagegorm "github.com/Kirky-X/xlink/internal/repository/gorm/message"
)

func main() {
	seed := flag.Int("seed", 0, "number of pending messages to insert after migrating")
	from := flag.String("from", "", "sender device id of seeded messages (random when empty)")
	flag.Parse()

	ctx := context.Background()

	// Load application configuration (DB, Redis, etc.) from env/.env.
	cfg := config.New()
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty).With().Str("component", "migrate").Logger()

	// Open a Postgres connection through our GORM adapter.
	conn, err := gormdb.New(cfg.PostgresDSN(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	log.Info().Str("db", cfg.DB.Name).Msg("connected to database")

	repo := messagegorm.NewRepository(conn)
	defer repo.Close()

	// AutoMigrate: make sure the messages table exists.
	if err := repo.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("AutoMigrate failed")
	}
	log.Info().Msg("messages table is up to date")

	if *seed <= 0 {
		return
	}

	sender := device.NewID()
	if *from != "" {
		if sender, err = device.ParseID(*from); err != nil {
			log.Fatal().Err(err).Msg("bad -from")
		}
	}

	for i := 0; i < *seed; i++ {
		// Use the domain constructor so we respect domain rules:
		// status = PENDING, timestamps, etc.
		msg, err := domain.NewText(sender, device.NewID(), seedContent(i+1), domain.PriorityNormal)
		if err != nil {
			log.Fatal().Err(err).Int("n", i+1).Msg("failed to build message")
		}
		if err := repo.Save(ctx, msg); err != nil {
			log.Fatal().Err(err).Int("n", i+1).Msg("failed to save message")
		}
		log.Debug().Str("id", msg.ID.String()).Str("to", msg.Recipient.String()).Msg("seeded message")
	}

	log.Info().Int("count", *seed).Msg("seeding done")
	fmt.Fprintf(os.Stdout, "seeded %d pending messages from %s\n", *seed, sender)
}

// seedContent generates a simple text body for seeding.
func seedContent(i int) string {
	return fmt.Sprintf("Seed message #%d queued at %s", i, time.Now().Format(time.TimeOnly))
}
