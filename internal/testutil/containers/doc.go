// Package containers provides testcontainer management for integration tests.
//
// It starts real backing services in Docker: a MySQL 8.0 database for
// datastore tests and an Eclipse Mosquitto broker for the MQTT channel.
// Tests using this package carry the "integration" build tag:
//
//	go test -tags=integration ./...
package containers
