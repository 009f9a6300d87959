package version

// Build information set by ldflags
var (
	Version = "dev"     // -X github.com/dotkeep/dotkeep/internal/version.Version={{.Version}}
	Commit  = "unknown" // -X github.com/dotkeep/dotkeep/internal/version.Commit={{.Commit}}
	Date    = "unknown" // -X github.com/dotkeep/dotkeep/internal/version.Date={{.Date}}
)
