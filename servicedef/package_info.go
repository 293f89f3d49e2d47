// Package servicedef contains the definitions of the applications that tests run against: each
// application is a named set of services, and each service is a container image plus its
// environment and an optional health check.
//
// These types are what callers build in code, and also what the config package reads from
// topology files.
package servicedef
