// Package serialization provides the .coil snapshot format for saving and
// restoring the dofs of a coil optimization graph.
//
// A snapshot records every dof owner reachable from a root node (curves,
// currents, rotations) with its dof names, free flags and values:
//
//	Format Structure:
//	  [64 bytes: Fixed header]
//	    0x00-0x03: Magic "COIL"
//	    0x04-0x07: Version (uint32 LE)
//	    0x08-0x0B: Flags (uint32 LE)
//	    0x0C-0x0F: Reserved
//	    0x10-0x17: Header size (uint64 LE)
//	    0x18-0x1F: Data size (uint64 LE)
//	    0x20-0x3F: SHA-256 checksum of the data section
//	  [Header: JSON metadata]
//	  [Padding to a 64-byte boundary]
//	  [Data: float64 LE dof values, owner after owner]
//
// Example usage:
//
//	// Save the current state
//	snap := serialization.Capture(objective)
//	snap.Objective = &j
//	if err := serialization.WriteSnapshot("run.coil", snap); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Restore into a freshly built graph
//	snap, err := serialization.ReadSnapshot("run.coil")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := snap.Apply(objective); err != nil {
//	    log.Fatal(err)
//	}
package serialization
