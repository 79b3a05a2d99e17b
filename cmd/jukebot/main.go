// Package main provides the bot entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/snowflake/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	apidiscord "github.com/osa030/jukebot/internal/api/discord"
	"github.com/osa030/jukebot/internal/app/fetcher"
	"github.com/osa030/jukebot/internal/app/filter"
	"github.com/osa030/jukebot/internal/app/jukebox"
	"github.com/osa030/jukebot/internal/app/playback"
	"github.com/osa030/jukebot/internal/app/resolver"
	"github.com/osa030/jukebot/internal/app/session"
	"github.com/osa030/jukebot/internal/infra/config"
	"github.com/osa030/jukebot/internal/infra/logger"
	"github.com/osa030/jukebot/internal/infra/spotify"
	"github.com/osa030/jukebot/internal/infra/youtube"
	"github.com/osa030/jukebot/internal/infra/ytdlp"
)

var (
	app        = kingpin.New("jukebot", "Discord music queue bot")
	configPath = app.Flag("config", "Path to config file").Default("config/jukebot.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available filters and exit")
)

func init() {
	app.Command("start", "Start the bot (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Bot error: %+v", err)
		os.Exit(1)
	}
}

// run wires the components and blocks until a shutdown signal.
func run(cfg *config.Config) error {
	ctx := context.Background()

	chain, err := filter.BuildChain(func(name string) (map[string]any, bool) {
		return cfg.FilterSettings(name), cfg.IsFilterEnabled(name)
	}, filter.DurationLimitName)
	if err != nil {
		return errors.Wrap(err, "invalid filter config")
	}

	videos, err := youtube.New(youtube.Config{
		APIKey:  cfg.YouTube.APIKey,
		BaseURL: cfg.YouTube.BaseURL,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create YouTube client")
	}

	var music resolver.MusicCatalog
	if cfg.Spotify.Enabled() {
		spotifyClient, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return errors.Wrap(err, "failed to create Spotify client")
		}
		music = spotifyClient
	} else {
		zlog.Info().Msg("Spotify not configured, album and playlist imports disabled")
	}

	catalog := resolver.New(videos, music, resolver.Config{
		PageSize:    cfg.Playback.PageSize,
		SearchLimit: cfg.YouTube.SearchResults,
	})

	downloader := ytdlp.New(ytdlp.Config{
		Format:      cfg.Fetcher.Format,
		AudioFormat: cfg.Fetcher.AudioFormat,
		Proxy:       cfg.Fetcher.Proxy,
	})

	if err := os.MkdirAll(cfg.Playback.AudioDir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create audio dir %s", cfg.Playback.AudioDir)
	}

	registry := session.NewRegistry(cfg.Playback.MaxSongs)
	service := jukebox.NewService(
		registry,
		catalog,
		fetcher.New(downloader, cfg.Fetcher.Timeout()),
		chain,
		playback.Config{
			PollInterval: cfg.Playback.PollInterval(),
			AudioDir:     cfg.Playback.AudioDir,
		},
	)
	commands := apidiscord.NewCommandService(service)

	guildIDs, err := parseGuildIDs(cfg.Discord.GuildIDs)
	if err != nil {
		return err
	}

	client, err := disgo.New(cfg.Discord.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(
			gateway.IntentGuilds,
			gateway.IntentGuildVoiceStates,
		)),
		bot.WithCacheConfigOpts(cache.WithCaches(
			cache.FlagGuilds,
			cache.FlagChannels,
			cache.FlagVoiceStates,
		)),
		bot.WithEventListenerFunc(commands.OnCommand),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create Discord client")
	}

	if err := apidiscord.Register(client, guildIDs); err != nil {
		return err
	}

	if err := client.OpenGateway(ctx); err != nil {
		return errors.Wrap(err, "failed to open gateway")
	}
	zlog.Info().Msg("Bot started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	zlog.Info().Msg("Received shutdown signal...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Leave voice channels before the gateway goes away
	if err := service.Close(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to stop sessions: %v", err)
	}
	client.Close(shutdownCtx)

	zlog.Info().Msgf("Bot stopped: sessions=%d", registry.Count())
	return nil
}

// parseGuildIDs converts the configured guild IDs.
func parseGuildIDs(ids []string) ([]snowflake.ID, error) {
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		parsed, err := snowflake.Parse(id)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid guild id %q", id)
		}
		out = append(out, parsed)
	}
	return out, nil
}

// printFilters prints available filters.
func printFilters() {
	fmt.Println("Available Filters:")
	for _, name := range filter.Names() {
		f := filter.GetRegistered()[name]()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}
