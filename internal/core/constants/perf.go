package constants

const (
	// LogMagic identifies a compliant performance log ("cFE1", big-endian)
	LogMagic uint32 = 0x63464531

	// Header and record layout
	MagicSize     = 4
	IDWordSize    = 4
	TickSize      = 8
	LogRecordSize = IDWordSize + TickSize

	// ID word masks
	ExitMask uint32 = 0x80000000
	IDMask   uint32 = 0x7fffffff

	// Time base defaults
	DefaultPrecision = 6
	MaxPrecision     = 12
	DefaultTickRate  = 1_000_000

	// UndefinedName is the display name of an ID missing from the ID list
	UndefinedName = "undefined"
)

// Log file extensions picked up by the directory scanner
var LogFileExtensions = []string{".dat", ".log", ".dat.gz", ".dat.zst", ".log.gz", ".log.zst"}
