package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"launcher/internal/capes"
	"launcher/internal/launcherconfig"
	"launcher/internal/logging"
	"launcher/internal/services"
	"launcher/internal/services/norisk"
)

// ErrStateNotReady is returned when a command runs before the host is ready.
var ErrStateNotReady = errors.New("launcher state not initialized")

// CapeBrowser lists capes from the remote cosmetics service.
type CapeBrowser interface {
	BrowseCapes(ctx context.Context, opts norisk.BrowseCapesOptions) (norisk.BrowseCapesResponse, error)
}

// DiscordLinker queries and removes the Discord link of a launcher account.
type DiscordLinker interface {
	DiscordLinkStatus(ctx context.Context, token string, account uuid.UUID, experimental bool) (bool, error)
	UnlinkDiscord(ctx context.Context, token string, account uuid.UUID, experimental bool) (string, error)
}

// Dependencies wires the service to the state managers.
type Dependencies struct {
	Config  *launcherconfig.Manager
	Capes   *capes.Manager
	Browser CapeBrowser
	Discord DiscordLinker
	Token   string
	Ready   func() bool
	Logger  *slog.Logger
}

// Service implements the command surface.
type Service struct {
	config  *launcherconfig.Manager
	capes   *capes.Manager
	browser CapeBrowser
	discord DiscordLinker
	token   string
	ready   func() bool
	logger  *slog.Logger
}

// New constructs a Service.
func New(deps Dependencies) *Service {
	return &Service{
		config:  deps.Config,
		capes:   deps.Capes,
		browser: deps.Browser,
		discord: deps.Discord,
		token:   deps.Token,
		ready:   deps.Ready,
		logger:  logging.NewComponentLogger(deps.Logger, "commands"),
	}
}

// begin tags ctx for logging and checks readiness.
func (s *Service) begin(ctx context.Context, name string) (context.Context, *slog.Logger, error) {
	ctx = services.WithCommand(ctx, name)
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	logger := logging.WithContext(ctx, s.logger)
	if s.ready != nil && !s.ready() {
		logger.Debug("command rejected before ready")
		return ctx, logger, ErrStateNotReady
	}
	logger.Debug("command invoked")
	return ctx, logger, nil
}

// SaveCape stores a cape with the given properties, replacing any entry with
// the same id.
func (s *Service) SaveCape(ctx context.Context, id, name string, favorite bool, tags []string) (SavedCapeInfo, error) {
	if _, _, err := s.begin(ctx, "save_cape"); err != nil {
		return SavedCapeInfo{}, err
	}
	saved, err := s.capes.Save(id, name, favorite, tags)
	if err != nil {
		return SavedCapeInfo{}, err
	}
	return toInfo(saved), nil
}

// GetAllSavedCapes lists every saved cape.
func (s *Service) GetAllSavedCapes(ctx context.Context) ([]SavedCapeInfo, error) {
	if _, _, err := s.begin(ctx, "get_all_saved_capes"); err != nil {
		return nil, err
	}
	return toInfos(s.capes.All()), nil
}

// GetSavedCapeByID returns the saved cape with id, or nil.
func (s *Service) GetSavedCapeByID(ctx context.Context, id string) (*SavedCapeInfo, error) {
	if _, _, err := s.begin(ctx, "get_saved_cape_by_id"); err != nil {
		return nil, err
	}
	return toInfoPtr(s.capes.ByID(id)), nil
}

// UpdateSavedCapeProperties changes the supplied fields of a saved cape.
func (s *Service) UpdateSavedCapeProperties(ctx context.Context, id string, name *string, favorite *bool, tags *[]string) (*SavedCapeInfo, error) {
	if _, _, err := s.begin(ctx, "update_saved_cape_properties"); err != nil {
		return nil, err
	}
	cape, found, err := s.capes.UpdateProperties(id, capes.PropertyUpdate{Name: name, Favorite: favorite, Tags: tags})
	if err != nil {
		return nil, err
	}
	return toInfoPtr(cape, found), nil
}

// ToggleCapeFavorite flips the favorite flag of a saved cape.
func (s *Service) ToggleCapeFavorite(ctx context.Context, id string) (*SavedCapeInfo, error) {
	if _, _, err := s.begin(ctx, "toggle_cape_favorite"); err != nil {
		return nil, err
	}
	cape, found, err := s.capes.ToggleFavorite(id)
	if err != nil {
		return nil, err
	}
	return toInfoPtr(cape, found), nil
}

// GetFavoriteCapes lists saved capes marked as favorite.
func (s *Service) GetFavoriteCapes(ctx context.Context) ([]SavedCapeInfo, error) {
	if _, _, err := s.begin(ctx, "get_favorite_capes"); err != nil {
		return nil, err
	}
	return toInfos(s.capes.Favorites()), nil
}

// GetCapesByTag lists saved capes carrying tag.
func (s *Service) GetCapesByTag(ctx context.Context, tag string) ([]SavedCapeInfo, error) {
	if _, _, err := s.begin(ctx, "get_capes_by_tag"); err != nil {
		return nil, err
	}
	return toInfos(s.capes.ByTag(tag)), nil
}

// AddTagToCape adds tag to a saved cape.
func (s *Service) AddTagToCape(ctx context.Context, id, tag string) (*SavedCapeInfo, error) {
	if _, _, err := s.begin(ctx, "add_tag_to_cape"); err != nil {
		return nil, err
	}
	cape, found, err := s.capes.AddTag(id, tag)
	if err != nil {
		return nil, err
	}
	return toInfoPtr(cape, found), nil
}

// RemoveTagFromCape removes tag from a saved cape.
func (s *Service) RemoveTagFromCape(ctx context.Context, id, tag string) (*SavedCapeInfo, error) {
	if _, _, err := s.begin(ctx, "remove_tag_from_cape"); err != nil {
		return nil, err
	}
	cape, found, err := s.capes.RemoveTag(id, tag)
	if err != nil {
		return nil, err
	}
	return toInfoPtr(cape, found), nil
}

// RemoveSavedCape deletes a saved cape and reports whether it existed.
func (s *Service) RemoveSavedCape(ctx context.Context, id string) (bool, error) {
	if _, _, err := s.begin(ctx, "remove_saved_cape"); err != nil {
		return false, err
	}
	return s.capes.Remove(id)
}

// BrowseCapesWithSavedInfo lists remote capes and attaches the saved record
// whose id matches each cape's hash.
func (s *Service) BrowseCapesWithSavedInfo(ctx context.Context, opts norisk.BrowseCapesOptions) ([]CapeWithSavedInfo, error) {
	ctx, logger, err := s.begin(ctx, "browse_capes_with_saved_info")
	if err != nil {
		return nil, err
	}
	if s.browser == nil {
		return nil, services.Wrap(services.ErrConfiguration, "commands", "browse capes", "no API client configured", nil)
	}
	if opts.Token == "" {
		opts.Token = s.token
	}
	opts.Experimental = s.config.IsExperimental()

	resp, err := s.browser.BrowseCapes(ctx, opts)
	if err != nil {
		logger.Warn("cape browse failed",
			logging.String(logging.FieldEventType, "cape_browse_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network access and the API token"))
		return nil, err
	}

	saved := make(map[string]capes.SavedCape)
	for _, c := range s.capes.All() {
		saved[c.ID] = c
	}
	out := make([]CapeWithSavedInfo, 0, len(resp.Capes))
	for _, cape := range resp.Capes {
		entry := CapeWithSavedInfo{Cape: cape}
		if c, ok := saved[cape.Hash]; ok {
			info := toInfo(c)
			entry.SavedInfo = &info
		}
		out = append(out, entry)
	}
	return out, nil
}

// CheckDiscordLink reports whether account has a linked Discord account.
// The experimental flag picks the staging API.
func (s *Service) CheckDiscordLink(ctx context.Context, account uuid.UUID) (bool, error) {
	ctx, logger, err := s.begin(ctx, "check_discord_link")
	if err != nil {
		return false, err
	}
	if s.discord == nil {
		return false, services.Wrap(services.ErrConfiguration, "commands", "check discord link", "no API client configured", nil)
	}
	linked, err := s.discord.DiscordLinkStatus(ctx, s.token, account, s.config.IsExperimental())
	if err != nil {
		logger.Warn("discord link check failed",
			logging.String(logging.FieldEventType, "discord_link_check_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network access and the API token"))
		return false, err
	}
	return linked, nil
}

// UnlinkDiscord removes the Discord link of account and returns the
// server's reply.
func (s *Service) UnlinkDiscord(ctx context.Context, account uuid.UUID) (string, error) {
	ctx, logger, err := s.begin(ctx, "unlink_discord")
	if err != nil {
		return "", err
	}
	if s.discord == nil {
		return "", services.Wrap(services.ErrConfiguration, "commands", "unlink discord", "no API client configured", nil)
	}
	reply, err := s.discord.UnlinkDiscord(ctx, s.token, account, s.config.IsExperimental())
	if err != nil {
		logger.Warn("discord unlink failed",
			logging.String(logging.FieldEventType, "discord_unlink_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network access and the API token"))
		return "", err
	}
	logger.Info("discord account unlinked", logging.String("account", account.String()))
	return reply, nil
}

// GetLauncherConfig returns the current launcher configuration.
func (s *Service) GetLauncherConfig(ctx context.Context) (launcherconfig.LauncherConfig, error) {
	if _, _, err := s.begin(ctx, "get_launcher_config"); err != nil {
		return launcherconfig.LauncherConfig{}, err
	}
	return s.config.Get(), nil
}

// SetLauncherConfig replaces the launcher configuration and returns the
// stored result.
func (s *Service) SetLauncherConfig(ctx context.Context, next launcherconfig.LauncherConfig) (launcherconfig.LauncherConfig, error) {
	ctx, _, err := s.begin(ctx, "set_launcher_config")
	if err != nil {
		return launcherconfig.LauncherConfig{}, err
	}
	if _, err := s.config.Set(ctx, next); err != nil {
		return launcherconfig.LauncherConfig{}, err
	}
	return s.config.Get(), nil
}
