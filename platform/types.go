package platform

// Authentication tells the client that authentication finished for the
// given user.
type Authentication struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

// Cookie is a browser cookie handed to the client's built-in browser.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
}

// NextStep tells the client to continue authentication in its built-in
// browser with the given window parameters.
type NextStep struct {
	NextStep   string              `json:"next_step"`
	AuthParams map[string]string   `json:"auth_params"`
	Cookies    []Cookie            `json:"cookies,omitempty"`
	JS         map[string][]string `json:"js,omitempty"`
}

// LicenseInfo describes the license attached to a product. Owner defaults to
// the currently authenticated user.
type LicenseInfo struct {
	LicenseType LicenseType `json:"license_type"`
	Owner       string      `json:"owner,omitempty"`
}

// Dlc is downloadable content of a game.
type Dlc struct {
	DlcID       string      `json:"dlc_id"`
	DlcTitle    string      `json:"dlc_title"`
	LicenseInfo LicenseInfo `json:"license_info"`
}

// Game is one owned game.
type Game struct {
	GameID      string      `json:"game_id"`
	GameTitle   string      `json:"game_title"`
	Dlcs        []Dlc       `json:"dlcs,omitempty"`
	LicenseInfo LicenseInfo `json:"license_info"`
}

// Achievement is one unlocked achievement. Either the id or the name must be
// set.
type Achievement struct {
	UnlockTime      int64  `json:"unlock_time"`
	AchievementID   string `json:"achievement_id,omitempty"`
	AchievementName string `json:"achievement_name,omitempty"`
}

// LocalGame is a game present on the user's machine.
type LocalGame struct {
	GameID         string         `json:"game_id"`
	LocalGameState LocalGameState `json:"local_game_state"`
}

// UserInfo identifies a user, typically a friend of the authenticated one.
type UserInfo struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

// GameTime is the total time spent in a game, in minutes, and the unix
// timestamp of the last session.
type GameTime struct {
	GameID         string `json:"game_id"`
	TimePlayed     *int64 `json:"time_played"`
	LastPlayedTime *int64 `json:"last_played_time"`
}

// GameLibrarySettings carries the tags and visibility the user assigned to a
// game.
type GameLibrarySettings struct {
	GameID string   `json:"game_id"`
	Tags   []string `json:"tags"`
	Hidden *bool    `json:"hidden"`
}

// UserPresence describes what a user is up to.
type UserPresence struct {
	PresenceState  PresenceState `json:"presence_state"`
	GameID         string        `json:"game_id,omitempty"`
	GameTitle      string        `json:"game_title,omitempty"`
	PresenceStatus string        `json:"presence_status,omitempty"`
}

// Subscription is a subscription tier offered by the platform.
type Subscription struct {
	SubscriptionName string `json:"subscription_name"`
	Owned            *bool  `json:"owned,omitempty"`
	EndTime          *int64 `json:"end_time,omitempty"`
}

// SubscriptionGame is one game available through a subscription.
type SubscriptionGame struct {
	GameTitle string `json:"game_title"`
	GameID    string `json:"game_id"`
	StartTime *int64 `json:"start_time,omitempty"`
	EndTime   *int64 `json:"end_time,omitempty"`
}
