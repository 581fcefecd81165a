// Package setup provisions ZGX devices over SSH: connection verification and
// installation of the curated AI development tooling catalog.
//
// The SSH transport lives entirely behind golang.org/x/crypto/ssh; this
// package only composes commands and sessions. Install logic is written
// against the Executor interface so it can be exercised without a device.
package setup
