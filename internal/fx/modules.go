package fx

import (
	"apex-tracker/internal/auth"
	"apex-tracker/internal/config"
	"apex-tracker/internal/database"
	"apex-tracker/internal/discord"
	"apex-tracker/internal/live"
	"apex-tracker/internal/logger"
	"apex-tracker/internal/repository"
	"apex-tracker/internal/server"
	"apex-tracker/internal/service"

	"go.uber.org/fx"
)

func ProvideBroadcaster(hub *live.Hub) service.Broadcaster {
	return hub
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewSessionRepository),
	fx.Provide(repository.NewSeasonRepository),
	fx.Provide(repository.NewRPRepository),
	fx.Provide(repository.NewSnapshotRepository),
	fx.Provide(repository.NewProfileRepository),
	// live hub + webhook client
	fx.Provide(live.NewHub),
	fx.Provide(ProvideBroadcaster),
	fx.Provide(discord.NewClient),
	fx.Provide(auth.NewPINGate),
	// svc
	fx.Provide(service.NewSessionService),
	fx.Provide(service.NewRPService),
	fx.Provide(service.NewSeasonService),
	fx.Provide(service.NewPostService),
	// server
	fx.Provide(server.NewTrackerServer),
)
