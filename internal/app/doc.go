// Package app wires the dashboard together: configuration, logging,
// OpenTelemetry, the record store, the dashboard and health services, the
// websocket hub and the chi router.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, YAML and BALANCA_* variables
//	2. Initialize logging and observability
//	3. Open the sqlite or postgres store (none for the file source)
//	4. Create the websocket hub and the services
//	5. Set up middleware and routes
//	6. Start the HTTP server, then load the dataset in the background
//
// # Usage
//
//	app, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := app.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Run waits for SIGINT or SIGTERM, then stops the refresh loop, drains the
// HTTP server, closes websocket clients and the store, and flushes metrics.
// The package never calls os.Exit.
package app
