package types

// Version is the application version, overwritten at build time via ldflags
var Version = "v0.0.0-dev"

// ServiceName is used in health responses, commit status contexts and Sentry tags
const ServiceName = "docship"

// StatusContext is the commit status context reported back to the forge
const StatusContext = "docship/docs"
