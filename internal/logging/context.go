package logging

import (
	"log/slog"
)

// WithVolume adds the image being read.
//
// Example:
//
//	log := logging.WithVolume(logger, path)
//	log.Info("mounted", "name", vol.Name())
func WithVolume(logger *slog.Logger, image string) *slog.Logger {
	return logger.With("volume", image)
}

// WithComponent creates a logger with component/subsystem context.
//
// Example:
//
//	log := logging.WithComponent(logger, "catalog")
//	log.Debug("decoding leaves")
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}

// WithNode adds a B*-tree and node number.
func WithNode(logger *slog.Logger, tree string, node uint32) *slog.Logger {
	return logger.With("tree", tree, "node", node)
}

// WithError creates a logger with error context.
func WithError(logger *slog.Logger, err error) *slog.Logger {
	return logger.With("error", err.Error())
}
