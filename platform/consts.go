package platform

// Platform identifies a gaming platform understood by the launcher client.
type Platform string

const (
	PlatformUnknown     Platform = "unknown"
	PlatformGog         Platform = "gog"
	PlatformSteam       Platform = "steam"
	PlatformPsn         Platform = "psn"
	PlatformXBoxOne     Platform = "xboxone"
	PlatformGeneric     Platform = "generic"
	PlatformOrigin      Platform = "origin"
	PlatformUplay       Platform = "uplay"
	PlatformBattlenet   Platform = "battlenet"
	PlatformEpic        Platform = "epic"
	PlatformBethesda    Platform = "bethesda"
	PlatformParadox     Platform = "paradox"
	PlatformHumble      Platform = "humble"
	PlatformKartridge   Platform = "kartridge"
	PlatformItchIo      Platform = "itch"
	PlatformSwitch      Platform = "nswitch"
	PlatformWiiU        Platform = "nwiiu"
	PlatformWii         Platform = "nwii"
	PlatformGameCube    Platform = "ncube"
	PlatformRiot        Platform = "riot"
	PlatformWargaming   Platform = "wargaming"
	PlatformGameBoy     Platform = "ngameboy"
	PlatformAtari       Platform = "atari"
	PlatformAmiga       Platform = "amiga"
	PlatformSnes        Platform = "snes"
	PlatformBeamdog     Platform = "beamdog"
	PlatformD2D         Platform = "d2d"
	PlatformDiscord     Platform = "discord"
	PlatformDotEmu      Platform = "dotemu"
	PlatformGameHouse   Platform = "gamehouse"
	PlatformGmg         Platform = "gmg"
	PlatformWePlay      Platform = "weplay"
	PlatformZx          Platform = "zx"
	PlatformVision      Platform = "vision"
	PlatformNes         Platform = "nes"
	PlatformSms         Platform = "sms"
	PlatformC64         Platform = "c64"
	PlatformPcEngine    Platform = "pce"
	PlatformSegaG       Platform = "segag"
	PlatformNeoGeo      Platform = "neo"
	PlatformSega32      Platform = "sega32"
	PlatformSegaCd      Platform = "segacd"
	Platform3Do         Platform = "3do"
	PlatformSaturn      Platform = "saturn"
	PlatformPsx         Platform = "psx"
	PlatformPs2         Platform = "ps2"
	PlatformN64         Platform = "n64"
	PlatformJaguar      Platform = "jaguar"
	PlatformDreamcast   Platform = "dc"
	PlatformXboxOg      Platform = "xboxog"
	PlatformAmazon      Platform = "amazon"
	PlatformGamersGate  Platform = "gg"
	PlatformNewegg      Platform = "egg"
	PlatformBestBuy     Platform = "bb"
	PlatformGameUk      Platform = "gameuk"
	PlatformFanatical   Platform = "fanatical"
	PlatformPlayAsia    Platform = "playasia"
	PlatformStadia      Platform = "stadia"
	PlatformArc         Platform = "arc"
	PlatformEso         Platform = "eso"
	PlatformGlyph       Platform = "glyph"
	PlatformAionL       Platform = "aionl"
	PlatformAion        Platform = "aion"
	PlatformBlade       Platform = "blade"
	PlatformGuildWars   Platform = "gw"
	PlatformGuildWars2  Platform = "gw2"
	PlatformLineage2    Platform = "lin2"
	PlatformFfxi        Platform = "ffxi"
	PlatformFfxiv       Platform = "ffxiv"
	PlatformTotalWar    Platform = "totalwar"
	PlatformWinStore    Platform = "winstore"
	PlatformElites      Platform = "elites"
	PlatformStarCitizen Platform = "star"
	PlatformPsp         Platform = "psp"
	PlatformPsVita      Platform = "psvita"
	PlatformNds         Platform = "nds"
	Platform3Ds         Platform = "3ds"
	PlatformPoE         Platform = "pathofexile"
	PlatformTwitch      Platform = "twitch"
	PlatformMinecraft   Platform = "minecraft"
	PlatformGameSession Platform = "gamesessions"
	PlatformNuuvem      Platform = "nuuvem"
	PlatformFXStore     Platform = "fxstore"
	PlatformIndieGala   Platform = "indiegala"
	PlatformPlayfire    Platform = "playfire"
	PlatformOculus      Platform = "oculus"
	PlatformTest        Platform = "test"
	PlatformRockstar    Platform = "rockstar"
)

// Feature is a capability an integration can declare. An integration does
// not have to support any particular set of features.
type Feature string

const (
	FeatureUnknown                   Feature = "Unknown"
	FeatureImportInstalledGames      Feature = "ImportInstalledGames"
	FeatureImportOwnedGames          Feature = "ImportOwnedGames"
	FeatureLaunchGame                Feature = "LaunchGame"
	FeatureInstallGame               Feature = "InstallGame"
	FeatureUninstallGame             Feature = "UninstallGame"
	FeatureImportAchievements        Feature = "ImportAchievements"
	FeatureImportGameTime            Feature = "ImportGameTime"
	FeatureChat                      Feature = "Chat"
	FeatureImportUsers               Feature = "ImportUsers"
	FeatureVerifyGame                Feature = "VerifyGame"
	FeatureImportFriends             Feature = "ImportFriends"
	FeatureShutdownPlatformClient    Feature = "ShutdownPlatformClient"
	FeatureLaunchPlatformClient      Feature = "LaunchPlatformClient"
	FeatureImportGameLibrarySettings Feature = "ImportGameLibrarySettings"
	FeatureImportOSCompatibility     Feature = "ImportOSCompatibility"
	FeatureImportUserPresence        Feature = "ImportUserPresence"
	FeatureImportLocalSize           Feature = "ImportLocalSize"
	FeatureImportSubscriptions       Feature = "ImportSubscriptions"
	FeatureImportSubscriptionGames   Feature = "ImportSubscriptionGames"
)

// LicenseType is how the user owns a product.
type LicenseType string

const (
	LicenseUnknown          LicenseType = "Unknown"
	LicenseSinglePurchase   LicenseType = "SinglePurchase"
	LicenseFreeToPlay       LicenseType = "FreeToPlay"
	LicenseOtherUserLicense LicenseType = "OtherUserLicense"
)

// LocalGameState is a bit set describing a locally present game. A game that
// is installed and currently running carries both flags.
type LocalGameState int

const (
	LocalGameInstalled LocalGameState = 1 << iota
	LocalGameRunning
)

// OSCompatibility is a bit set of operating systems a game runs on.
type OSCompatibility int

const (
	OSWindows OSCompatibility = 1 << iota
	OSMacOS
	OSLinux
)

// PresenceState is the coarse online state of a user.
type PresenceState string

const (
	PresenceUnknown PresenceState = "unknown"
	PresenceOnline  PresenceState = "online"
	PresenceOffline PresenceState = "offline"
	PresenceAway    PresenceState = "away"
)
