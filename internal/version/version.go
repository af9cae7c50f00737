package version

// Version is the current version of the voicecall CLI.
// This value can be overridden at build time using:
//   go build -ldflags="-X 'github.com/thesujaljaiswal/Voice-Chat-Application/internal/version.Version=v1.0.0'"
var Version = "dev"
