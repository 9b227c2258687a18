package config

// ManifestFileExt is the preferred unit manifest extension.
const ManifestFileExt = ".yaml"

// ManifestFileExtensions are all recognized manifest extensions.
var ManifestFileExtensions = []string{".yaml", ".yml"}

// Configuration file and environment.
const (
	ConfigBaseName = "dcolon"
	ConfigFileName = ConfigBaseName + ".yaml"
	EnvPrefix      = "DCOLON"
)

// Configuration keys. Flags bind to the key of the same meaning.
const (
	KeyResolveParallel = "resolve.parallel"
	KeyResolveFormat   = "resolve.format"
	KeyResolveColor    = "resolve.color"
	KeyStorePath       = "store.path"
	KeyNoCache         = "no-cache"
	KeyHistoryLimit    = "history.limit"

	KeyLogFilename   = "log.filename"
	KeyLogLevel      = "log.level"
	KeyLogVerbose    = "log.verbose"
	KeyLogMaxSize    = "log.max_size"
	KeyLogMaxBackups = "log.max_backups"
	KeyLogMaxAge     = "log.max_age"
	KeyLogCompress   = "log.compress"
)

// Defaults.
const (
	DefaultResolveParallel = 4
	DefaultResolveFormat   = "text"
	DefaultResolveColor    = "auto"
	DefaultStorePath       = ".dcolon/runs.db"
	DefaultNoCache         = false
	DefaultHistoryLimit    = 20

	DefaultLogFilename   = ".dcolon/dcolon.log"
	DefaultLogLevel      = "info"
	DefaultLogVerbose    = false
	DefaultLogMaxSize    = 10 // megabytes
	DefaultLogMaxBackups = 3
	DefaultLogMaxAge     = 28 // days
	DefaultLogCompress   = true
)

// Color modes for text reports.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)
