// Package logging builds the structured loggers used across go-hfs.
//
// Loggers are plain *slog.Logger values passed to whoever needs them; there
// is no global logger, so independent volumes never share logging state.
// Libraries default to [Discard] and only the command-line tools write
// anywhere.
//
// The With* helpers attach the context keys used consistently in log
// output:
//
//	log := logging.WithVolume(logger, "image.dsk")
//	log.Debug("header located", "offset", loc.Offset)
//	logging.WithNode(log, "catalog", 12).Warn("corrupt link")
package logging
