// Package testutil holds helpers shared by tests and the scenario harness:
// throwaway stores and envelope capture from a bus subscription.
package testutil
