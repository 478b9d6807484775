// Warden is a per-user resource limit monitor and enforcement engine.
//
// It periodically checks every user's usage counters against configured
// limit rules, records violations, applies enforcement actions (disable,
// throttle, delete), and notifies over email, Telegram, and webhooks.
//
// Usage:
//
//	# Start the monitor and admin API with default configuration
//	warden run
//
//	# Start with a custom configuration file
//	warden run --config /etc/warden/config.yaml
//
//	# Evaluate one user's limits on demand without enforcing
//	warden check alice
//
//	# Show version information
//	warden version
package main

func main() {
	Execute()
}
