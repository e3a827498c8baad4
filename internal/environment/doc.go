// Package environment holds the shared data model for shadow environments:
// repository specs, snapshot records, the environment lifecycle state machine,
// and the host-side record of a provisioned environment (metadata, workspace
// baseline, file transfer in and out of the workspace mount).
//
// The lifecycle is:
//
//	Provisioning -> Ready <-> InUse -> Destroyed
//	Provisioning -> Failed -> Destroyed
//
// Failed is reachable from Provisioning only. Transition enforces these edges.
package environment
