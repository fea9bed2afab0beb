package engine

// This file serves as the main entry point for the Metrics module.
// The implementation has been split into multiple files for better maintainability:
// - metrics_core.go: Core Metrics struct and initialization
// - metrics_methods.go: Metric recording methods
