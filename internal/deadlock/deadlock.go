// Package deadlock configures github.com/sasha-s/go-deadlock for the module.
// Detection is off unless the module is built with the deadlock tag.
// Packages that alias go-deadlock as sync import this one for its side effect.
package deadlock
