// Package application provides application initialization and dependency wiring.
// It builds the host config, hook registry, session cache, capability probe,
// optional database pool and settings resolver, and hands them to the HTTP
// router, keeping the main package focused on CLI parsing and orchestration.
package application
