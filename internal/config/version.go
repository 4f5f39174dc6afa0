package config

// Version is the caseqc binary version.
// Set at build time via: -ldflags "-X github.com/persistorai/caseqc/internal/config.Version=<tag>"
// Defaults to "dev" when built without ldflags.
var Version = "dev"
