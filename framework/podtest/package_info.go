// Package podtest runs integration tests against provisioned applications. It assembles test
// declarations into per-application suites, runs each test in a fresh environment while
// capturing the services' output, and reports the outcomes.
//
// Test functions receive a *T, which works with testify's assert and require packages.
package podtest
