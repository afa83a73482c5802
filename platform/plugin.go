// Package platform is the integration-facing surface of the SDK. A Plugin
// speaks line-delimited JSON-RPC 2.0 with the launcher client, routes the
// client's requests to the callbacks the integration registered, and fans
// bulk imports out into supervised per-id fetches.
package platform

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/erg0nix/spill/jsonrpc"
	"github.com/erg0nix/spill/task"
)

const tickInterval = time.Second

// Plugin is one integration endpoint. Build it with New, register the
// capabilities the integration implements, then call Run.
type Plugin struct {
	platform Platform
	version  string
	token    string
	logger   *slog.Logger
	conn     *jsonrpc.Connection

	// OnHandshakeComplete runs right after the handshake with the client,
	// once the persistent cache is available. Optional.
	OnHandshakeComplete func()

	// OnTick runs periodically once the handshake completed. It must not
	// block. Optional.
	OnTick func()

	// OnShutdown runs when the client asks the integration to shut down.
	// Optional.
	OnShutdown func(ctx context.Context)

	internalTasks *task.Manager
	externalTasks *task.Manager

	mu       sync.Mutex
	features []Feature
	seen     map[Feature]struct{}
	cache    map[string]any
	active   bool
}

// New creates a Plugin for the given platform over the given transport.
// token is the handshake token the client launched this process with. A nil
// logger falls back to slog.Default.
func New(p Platform, version string, r io.Reader, w io.Writer, token string, logger *slog.Logger) *Plugin {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("creating plugin", "platform", string(p), "version", version)

	pl := &Plugin{
		platform:      p,
		version:       version,
		token:         token,
		logger:        logger,
		conn:          jsonrpc.New(r, w, logger),
		internalTasks: task.NewManager("plugin internal", logger),
		externalTasks: task.NewManager("plugin external", logger),
		seen:          make(map[Feature]struct{}),
		cache:         make(map[string]any),
		active:        true,
	}

	pl.conn.RegisterMethod("shutdown", jsonrpc.Method{Handler: pl.handleShutdown})
	pl.conn.RegisterMethod("get_capabilities", jsonrpc.Method{Handler: pl.handleGetCapabilities, Immediate: true})
	pl.conn.RegisterMethod("ping", jsonrpc.Method{Handler: pl.handlePing, Immediate: true})
	pl.conn.RegisterMethod("initialize_cache", jsonrpc.Method{
		Handler:   pl.handleInitializeCache,
		Immediate: true,
		Sensitive: jsonrpc.SensitiveKeys("data"),
	})
	return pl
}

// Features returns the features registered so far, in registration order.
func (p *Plugin) Features() []Feature {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Feature(nil), p.features...)
}

// PersistentCache is the string-keyed cache seeded by the client at
// handshake time. The integration is its only writer; call PushCache to
// round-trip changes back to the client.
func (p *Plugin) PersistentCache() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache
}

func (p *Plugin) addFeature(f Feature) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.seen[f]; ok {
		return
	}
	p.seen[f] = struct{}{}
	p.features = append(p.features, f)
}

// external wraps a business callback so it runs under the external task
// manager; Close cancels those without touching plugin-internal work.
func (p *Plugin) external(name string, fn func(ctx context.Context) (any, error)) jsonrpc.Handler {
	return func(ctx context.Context, _ json.RawMessage) (any, error) {
		t := p.externalTasks.Create(ctx, name, true, fn)
		return t.Wait()
	}
}

func (p *Plugin) externalParams(name string, fn func(ctx context.Context, params json.RawMessage) (any, error)) jsonrpc.Handler {
	return func(ctx context.Context, params json.RawMessage) (any, error) {
		t := p.externalTasks.Create(ctx, name, true, func(tctx context.Context) (any, error) {
			return fn(tctx, params)
		})
		return t.Wait()
	}
}

// Run is the plugin's main loop; it returns when the connection closes.
func (p *Plugin) Run(ctx context.Context) {
	p.conn.Run(ctx)
	p.logger.Debug("plugin run loop finished")
}

// Close stops reading, cancels in-flight business work and schedules the
// shutdown hook. Idempotent.
func (p *Plugin) Close() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	p.active = false
	p.mu.Unlock()

	p.logger.Info("closing plugin")
	p.conn.Close()
	p.externalTasks.Cancel()
	if p.OnShutdown != nil {
		hook := p.OnShutdown
		p.internalTasks.Create(context.Background(), "shutdown", false, func(tctx context.Context) (any, error) {
			hook(tctx)
			return nil, nil
		})
	}
}

// WaitClosed blocks until every in-flight task has drained.
func (p *Plugin) WaitClosed() {
	p.logger.Debug("waiting for plugin to close")
	p.externalTasks.Wait()
	p.internalTasks.Wait()
	p.conn.WaitClosed()
	p.logger.Debug("plugin closed")
}

// CreateTask schedules integration-owned background work that Close will
// cancel together with the rest of the external set.
func (p *Plugin) CreateTask(ctx context.Context, description string, fn task.Func) *task.Task {
	return p.externalTasks.Create(ctx, description, false, fn)
}

// built-in methods

func (p *Plugin) handleShutdown(ctx context.Context, _ json.RawMessage) (any, error) {
	p.logger.Info("shutting down")
	p.Close()
	p.externalTasks.Wait()
	p.internalTasks.Wait()
	return nil, nil
}

func (p *Plugin) handleGetCapabilities(context.Context, json.RawMessage) (any, error) {
	return map[string]any{
		"platform_name": p.platform,
		"features":      p.Features(),
		"token":         p.token,
	}, nil
}

func (p *Plugin) handlePing(context.Context, json.RawMessage) (any, error) {
	return nil, nil
}

func (p *Plugin) handleInitializeCache(ctx context.Context, params json.RawMessage) (any, error) {
	var in struct {
		Data map[string]any `json:"data"`
	}
	if err := jsonrpc.UnmarshalParams(params, &in); err != nil {
		return nil, err
	}
	p.mu.Lock()
	if in.Data != nil {
		p.cache = in.Data
	}
	p.mu.Unlock()

	if p.OnHandshakeComplete != nil {
		p.OnHandshakeComplete()
	}
	p.internalTasks.Create(ctx, "tick", false, p.tickLoop)
	return nil, nil
}

func (p *Plugin) tickLoop(ctx context.Context) (any, error) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		p.mu.Lock()
		active := p.active
		p.mu.Unlock()
		if !active {
			return nil, nil
		}
		if p.OnTick != nil {
			p.OnTick()
		}
	}
}

// capability registration

// AuthenticationHandler carries the authentication callbacks. Authenticate
// and PassLoginCredentials return either an Authentication or a NextStep
// value.
type AuthenticationHandler struct {
	Authenticate         func(ctx context.Context, storedCredentials map[string]any) (any, error)
	PassLoginCredentials func(ctx context.Context, step string, credentials map[string]string, cookies []Cookie) (any, error)
}

// HandleAuthentication registers the authentication flow. Every integration
// should call it; nil callbacks answer with method-not-found.
func (p *Plugin) HandleAuthentication(h AuthenticationHandler) {
	p.conn.RegisterMethod("init_authentication", jsonrpc.Method{
		Handler: p.externalParams("init_authentication", func(ctx context.Context, params json.RawMessage) (any, error) {
			if h.Authenticate == nil {
				return nil, jsonrpc.ErrNotImplemented
			}
			var in struct {
				StoredCredentials map[string]any `json:"stored_credentials"`
			}
			if err := jsonrpc.UnmarshalParams(params, &in); err != nil {
				return nil, err
			}
			return h.Authenticate(ctx, in.StoredCredentials)
		}),
		Sensitive: jsonrpc.SensitiveKeys("stored_credentials"),
	})
	p.conn.RegisterMethod("pass_login_credentials", jsonrpc.Method{
		Handler: p.externalParams("pass_login_credentials", func(ctx context.Context, params json.RawMessage) (any, error) {
			if h.PassLoginCredentials == nil {
				return nil, jsonrpc.ErrNotImplemented
			}
			var in struct {
				Step        string            `json:"step"`
				Credentials map[string]string `json:"credentials"`
				Cookies     []Cookie          `json:"cookies"`
			}
			if err := jsonrpc.UnmarshalParams(params, &in); err != nil {
				return nil, err
			}
			return h.PassLoginCredentials(ctx, in.Step, in.Credentials, in.Cookies)
		}),
		Sensitive: jsonrpc.SensitiveKeys("credentials", "cookies"),
	})
}

// HandleOwnedGames registers the owned-games import.
func (p *Plugin) HandleOwnedGames(get func(ctx context.Context) ([]Game, error)) {
	p.conn.RegisterMethod("import_owned_games", jsonrpc.Method{
		Handler: p.external("import_owned_games", func(ctx context.Context) (any, error) {
			return get(ctx)
		}),
		ResultName: "owned_games",
	})
	p.addFeature(FeatureImportOwnedGames)
}

// HandleLocalGames registers the locally-installed-games import.
func (p *Plugin) HandleLocalGames(get func(ctx context.Context) ([]LocalGame, error)) {
	p.conn.RegisterMethod("import_local_games", jsonrpc.Method{
		Handler: p.external("import_local_games", func(ctx context.Context) (any, error) {
			return get(ctx)
		}),
		ResultName: "local_games",
	})
	p.addFeature(FeatureImportInstalledGames)
}

// HandleFriends registers the friends-list import.
func (p *Plugin) HandleFriends(get func(ctx context.Context) ([]UserInfo, error)) {
	p.conn.RegisterMethod("import_friends", jsonrpc.Method{
		Handler: p.external("import_friends", func(ctx context.Context) (any, error) {
			return get(ctx)
		}),
		ResultName: "friend_info_list",
	})
	p.addFeature(FeatureImportFriends)
}

func (p *Plugin) gameIDNotification(name string, feature Feature, fn func(ctx context.Context, gameID string) error) {
	p.conn.RegisterNotification(name, jsonrpc.Method{
		Handler: p.externalParams(name, func(ctx context.Context, params json.RawMessage) (any, error) {
			var in struct {
				GameID string `json:"game_id"`
			}
			if err := jsonrpc.UnmarshalParams(params, &in); err != nil {
				return nil, err
			}
			return nil, fn(ctx, in.GameID)
		}),
	})
	p.addFeature(feature)
}

// HandleLaunchGame registers the launch-game action.
func (p *Plugin) HandleLaunchGame(fn func(ctx context.Context, gameID string) error) {
	p.gameIDNotification("launch_game", FeatureLaunchGame, fn)
}

// HandleInstallGame registers the install-game action.
func (p *Plugin) HandleInstallGame(fn func(ctx context.Context, gameID string) error) {
	p.gameIDNotification("install_game", FeatureInstallGame, fn)
}

// HandleUninstallGame registers the uninstall-game action.
func (p *Plugin) HandleUninstallGame(fn func(ctx context.Context, gameID string) error) {
	p.gameIDNotification("uninstall_game", FeatureUninstallGame, fn)
}

// HandleLaunchPlatformClient registers launching the platform's own client.
func (p *Plugin) HandleLaunchPlatformClient(fn func(ctx context.Context) error) {
	p.conn.RegisterNotification("launch_platform_client", jsonrpc.Method{
		Handler: p.external("launch_platform_client", func(ctx context.Context) (any, error) {
			return nil, fn(ctx)
		}),
	})
	p.addFeature(FeatureLaunchPlatformClient)
}

// HandleShutdownPlatformClient registers terminating the platform's own
// client.
func (p *Plugin) HandleShutdownPlatformClient(fn func(ctx context.Context) error) {
	p.conn.RegisterNotification("shutdown_platform_client", jsonrpc.Method{
		Handler: p.external("shutdown_platform_client", func(ctx context.Context) (any, error) {
			return nil, fn(ctx)
		}),
	})
	p.addFeature(FeatureShutdownPlatformClient)
}

// ImportSource is the common shape of an import-orchestrated capability.
// Prepare runs once per import before the per-id fetches; Complete runs
// after the finished notification. Both are optional.
type ImportSource[T any] struct {
	Prepare  func(ctx context.Context, ids []string) (any, error)
	Get      func(ctx context.Context, id string, importCtx any) (T, error)
	Complete func()
}

func importerConfig[T any](p *Plugin, name string, src ImportSource[T],
	onSuccess func(id string, value T), onFailure func(id string, err *jsonrpc.Error), finishedNotification string) ImporterConfig {
	return ImporterConfig{
		Tasks:          p.externalTasks,
		Name:           name,
		PrepareContext: src.Prepare,
		Get: func(ctx context.Context, id string, importCtx any) (any, error) {
			return src.Get(ctx, id, importCtx)
		},
		OnSuccess: func(id string, value any) { onSuccess(id, value.(T)) },
		OnFailure: onFailure,
		OnFinished: func() {
			p.conn.Notify(finishedNotification, nil, jsonrpc.SensitiveNone())
		},
		OnComplete: src.Complete,
		Logger:     p.logger,
	}
}

func (p *Plugin) registerStartImport(method, idsField string, imp *Importer) {
	p.conn.RegisterMethod(method, jsonrpc.Method{
		Handler: func(ctx context.Context, params json.RawMessage) (any, error) {
			var obj map[string][]string
			if err := jsonrpc.UnmarshalParams(params, &obj); err != nil {
				return nil, err
			}
			// The request context ends with the ack; the run must outlive
			// it. Teardown cancellation comes from the external task
			// manager instead.
			return nil, imp.Start(context.WithoutCancel(ctx), obj[idsField])
		},
	})
}

// HandleAchievements registers the unlocked-achievements import.
func (p *Plugin) HandleAchievements(src ImportSource[[]Achievement]) {
	imp := NewImporter(importerConfig(p, "achievements", src,
		func(gameID string, achievements []Achievement) {
			p.conn.Notify("game_achievements_import_success", map[string]any{
				"game_id":               gameID,
				"unlocked_achievements": achievements,
			}, jsonrpc.SensitiveNone())
		},
		func(gameID string, err *jsonrpc.Error) {
			p.importFailure("game_achievements_import_failure", "game_id", gameID, err)
		},
		"achievements_import_finished"))
	p.registerStartImport("start_achievements_import", "game_ids", imp)
	p.addFeature(FeatureImportAchievements)
}

// HandleGameTimes registers the game-time import.
func (p *Plugin) HandleGameTimes(src ImportSource[GameTime]) {
	imp := NewImporter(importerConfig(p, "game times", src,
		func(_ string, gameTime GameTime) {
			p.conn.Notify("game_time_import_success", map[string]any{"game_time": gameTime}, jsonrpc.SensitiveNone())
		},
		func(gameID string, err *jsonrpc.Error) {
			p.importFailure("game_time_import_failure", "game_id", gameID, err)
		},
		"game_times_import_finished"))
	p.registerStartImport("start_game_times_import", "game_ids", imp)
	p.addFeature(FeatureImportGameTime)
}

// HandleGameLibrarySettings registers the library-settings import.
func (p *Plugin) HandleGameLibrarySettings(src ImportSource[GameLibrarySettings]) {
	imp := NewImporter(importerConfig(p, "game library settings", src,
		func(_ string, settings GameLibrarySettings) {
			p.conn.Notify("game_library_settings_import_success",
				map[string]any{"game_library_settings": settings}, jsonrpc.SensitiveNone())
		},
		func(gameID string, err *jsonrpc.Error) {
			p.importFailure("game_library_settings_import_failure", "game_id", gameID, err)
		},
		"game_library_settings_import_finished"))
	p.registerStartImport("start_game_library_settings_import", "game_ids", imp)
	p.addFeature(FeatureImportGameLibrarySettings)
}

// HandleOSCompatibility registers the OS-compatibility import.
func (p *Plugin) HandleOSCompatibility(src ImportSource[OSCompatibility]) {
	imp := NewImporter(importerConfig(p, "OS compatibility", src,
		func(gameID string, osCompat OSCompatibility) {
			p.conn.Notify("os_compatibility_import_success", map[string]any{
				"game_id":          gameID,
				"os_compatibility": osCompat,
			}, jsonrpc.SensitiveNone())
		},
		func(gameID string, err *jsonrpc.Error) {
			p.importFailure("os_compatibility_import_failure", "game_id", gameID, err)
		},
		"os_compatibility_import_finished"))
	p.registerStartImport("start_os_compatibility_import", "game_ids", imp)
	p.addFeature(FeatureImportOSCompatibility)
}

// HandleUserPresence registers the user-presence import.
func (p *Plugin) HandleUserPresence(src ImportSource[UserPresence]) {
	imp := NewImporter(importerConfig(p, "user presence", src,
		func(userID string, presence UserPresence) {
			p.conn.Notify("user_presence_import_success", map[string]any{
				"user_id":  userID,
				"presence": presence,
			}, jsonrpc.SensitiveNone())
		},
		func(userID string, err *jsonrpc.Error) {
			p.importFailure("user_presence_import_failure", "user_id", userID, err)
		},
		"user_presence_import_finished"))
	p.registerStartImport("start_user_presence_import", "user_ids", imp)
	p.addFeature(FeatureImportUserPresence)
}

// HandleLocalSize registers the local-size import. Sizes are bytes on disk.
func (p *Plugin) HandleLocalSize(src ImportSource[uint64]) {
	imp := NewImporter(importerConfig(p, "local size", src,
		func(gameID string, size uint64) {
			p.conn.Notify("local_size_import_success", map[string]any{
				"game_id":    gameID,
				"local_size": size,
			}, jsonrpc.SensitiveNone())
		},
		func(gameID string, err *jsonrpc.Error) {
			p.importFailure("local_size_import_failure", "game_id", gameID, err)
		},
		"local_size_import_finished"))
	p.registerStartImport("start_local_size_import", "game_ids", imp)
	p.addFeature(FeatureImportLocalSize)
}

// SubscriptionsHandler carries the subscription callbacks. GetSubscriptions
// lists the platform's tiers; GetGames streams the games of one subscription
// in batches through emit, which lets paginated sources report results as
// they arrive.
type SubscriptionsHandler struct {
	GetSubscriptions func(ctx context.Context) ([]Subscription, error)

	PrepareGamesContext func(ctx context.Context, subscriptionNames []string) (any, error)
	GetGames            func(ctx context.Context, subscriptionName string, importCtx any, emit func(games []SubscriptionGame)) error
	GamesComplete       func()
}

// HandleSubscriptions registers the subscriptions list and the streaming
// subscription-games import.
func (p *Plugin) HandleSubscriptions(h SubscriptionsHandler) {
	if h.GetSubscriptions != nil {
		p.conn.RegisterMethod("import_subscriptions", jsonrpc.Method{
			Handler: p.external("import_subscriptions", func(ctx context.Context) (any, error) {
				return h.GetSubscriptions(ctx)
			}),
			ResultName: "subscriptions",
		})
		p.addFeature(FeatureImportSubscriptions)
	}
	if h.GetGames == nil {
		return
	}

	cfg := ImporterConfig{
		Tasks:          p.externalTasks,
		Name:           "subscription games",
		PrepareContext: h.PrepareGamesContext,
		OnSuccess: func(name string, batch any) {
			p.conn.Notify("subscription_games_import_success", map[string]any{
				"subscription_name":  name,
				"subscription_games": batch,
			}, jsonrpc.SensitiveNone())
		},
		OnFailure: func(name string, err *jsonrpc.Error) {
			p.importFailure("subscription_games_import_failure", "subscription_name", name, err)
		},
		OnFinished: func() {
			p.conn.Notify("subscription_games_import_finished", nil, jsonrpc.SensitiveNone())
		},
		OnComplete: h.GamesComplete,
		Logger:     p.logger,
	}
	imp := NewCollectionImporter(cfg,
		func(ctx context.Context, name string, importCtx any, emit func(batch any)) error {
			return h.GetGames(ctx, name, importCtx, func(games []SubscriptionGame) { emit(games) })
		},
		func(name string) {
			p.conn.Notify("subscription_games_partial_import_finished",
				map[string]any{"subscription_name": name}, jsonrpc.SensitiveNone())
		})
	p.registerStartImport("start_subscription_games_import", "subscription_names", imp)
	p.addFeature(FeatureImportSubscriptionGames)
}

func (p *Plugin) importFailure(notification, idField, id string, err *jsonrpc.Error) {
	p.conn.Notify(notification, map[string]any{
		idField: id,
		"error": err,
	}, jsonrpc.SensitiveNone())
}

// notifications toward the client

// StoreCredentials asks the client to store credentials; they come back on
// the next authenticate call.
func (p *Plugin) StoreCredentials(credentials map[string]any) {
	p.mu.Lock()
	p.cache["credentials"] = credentials
	p.mu.Unlock()
	p.conn.Notify("store_credentials", credentials, jsonrpc.SensitiveAll())
}

// AddGame tells the client a game appeared in the user's library.
func (p *Plugin) AddGame(game Game) {
	p.conn.Notify("owned_game_added", map[string]any{"owned_game": game}, jsonrpc.SensitiveNone())
}

// RemoveGame tells the client a game left the user's library.
func (p *Plugin) RemoveGame(gameID string) {
	p.conn.Notify("owned_game_removed", map[string]any{"game_id": gameID}, jsonrpc.SensitiveNone())
}

// UpdateGame tells the client an owned game changed.
func (p *Plugin) UpdateGame(game Game) {
	p.conn.Notify("owned_game_updated", map[string]any{"owned_game": game}, jsonrpc.SensitiveNone())
}

// UnlockAchievement tells the client an achievement was just unlocked.
func (p *Plugin) UnlockAchievement(gameID string, achievement Achievement) {
	p.conn.Notify("achievement_unlocked", map[string]any{
		"game_id":     gameID,
		"achievement": achievement,
	}, jsonrpc.SensitiveNone())
}

// UpdateLocalGameStatus tells the client a local game changed state.
func (p *Plugin) UpdateLocalGameStatus(localGame LocalGame) {
	p.conn.Notify("local_game_status_changed", map[string]any{"local_game": localGame}, jsonrpc.SensitiveNone())
}

// AddFriend tells the client a user joined the friends list.
func (p *Plugin) AddFriend(user UserInfo) {
	p.conn.Notify("friend_added", map[string]any{"friend_info": user}, jsonrpc.SensitiveNone())
}

// RemoveFriend tells the client a user left the friends list.
func (p *Plugin) RemoveFriend(userID string) {
	p.conn.Notify("friend_removed", map[string]any{"user_id": userID}, jsonrpc.SensitiveNone())
}

// UpdateGameTime tells the client the play time of a game changed.
func (p *Plugin) UpdateGameTime(gameTime GameTime) {
	p.conn.Notify("game_time_updated", map[string]any{"game_time": gameTime}, jsonrpc.SensitiveNone())
}

// UpdateUserPresence tells the client the presence of a user changed.
func (p *Plugin) UpdateUserPresence(userID string, presence UserPresence) {
	p.conn.Notify("user_presence_updated", map[string]any{
		"user_id":  userID,
		"presence": presence,
	}, jsonrpc.SensitiveNone())
}

// LostAuthentication tells the client this integration can no longer act on
// behalf of the user.
func (p *Plugin) LostAuthentication() {
	p.conn.Notify("authentication_lost", nil, jsonrpc.SensitiveNone())
}

// PushCache replaces the client's copy of the persistent cache with the
// local one.
func (p *Plugin) PushCache() {
	p.mu.Lock()
	data := p.cache
	p.mu.Unlock()
	p.conn.Notify("push_cache", map[string]any{"data": data}, jsonrpc.SensitiveKeys("data"))
}

// RefreshCredentials asks the client for fresh credentials and waits for its
// answer. Client-side errors come back as *jsonrpc.Error.
func (p *Plugin) RefreshCredentials(ctx context.Context, params map[string]any) (map[string]any, error) {
	raw, err := p.conn.Request(ctx, "refresh_credentials", params, jsonrpc.SensitiveAll())
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, UnknownBackendResponse()
		}
	}
	return out, nil
}
