// Package scan discovers loadable unit specs on disk.
//
// Two conventions are recognized under the scanned root: flat descriptor
// files named "<name>.unit.hcl" (minus the reserved base template), and
// subdirectories carrying a "unit.hcl" descriptor. Malformed descriptors
// are skipped with a recorded warning; they never abort the scan.
package scan
