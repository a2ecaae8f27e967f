// Package logging builds the structured zap loggers used across discovery,
// gathering and the registry.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components receive a *zap.Logger; passing nil to any constructor in this
// module means a no-op logger. Named children keep fields such as
// "component" consistent between packages.
//
// Example Usage:
//
//	logger, err := logging.New(logging.DefaultConfig())
//	gatherLog := logger.Component("gather")
//	gatherLog.Debug("Skipping file", zap.String("file", path), zap.String("reason", "malformed"))
package logging
