// Package service contains the business logic.
//
// It sits between the handler layer and the charge point runtime,
// repositories and job queue. Handlers pass it validated requests; it
// resolves charge ports, drives the simulator and reads or archives
// charge sessions.
package service
