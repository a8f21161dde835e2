package model

// Version is set at build time via -ldflags "-X github.com/ppiankov/vesselcost/internal/model.Version=..."
var Version = "dev"
