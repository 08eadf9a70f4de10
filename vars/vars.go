package vars

// Populated at build time via -ldflags
var (
	VERSION = "0.0.0"
	TOKEN   = ""
)
