package version

// Version is overridden at build time with
// -ldflags "-X dial-chat/internal/version.Version=...".
var Version = "dev"
