// Package framework contains the building blocks of the octopod test engine that are not specific
// to any one test run. The base package only holds shared types such as Logger; the components
// live in subpackages:
//
//   - backend: the interface to the container/network system, with a Docker implementation and an
//     in-memory mock
//   - ledger: an ordered record of provisioned resources that can be rolled back
//   - provision: creation and manipulation of networks and services, and their log streams
//   - podtest: test declarations, the suite runner, and result reporting
//
// The general model is that every test runs against a freshly provisioned copy of the application
// topology it was declared for: one isolated network, plus one container per service, each reachable
// from the others under its service name.
package framework
