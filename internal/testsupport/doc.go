// Package testsupport holds helpers shared by package tests: temp-rooted
// configs, stub executables on PATH, a run store, and file fixtures.
package testsupport
