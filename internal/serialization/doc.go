// Package serialization stores model checkpoints in the .born binary format.
//
//	Format Structure (version 2):
//	  [0x00-0x03: Magic "BORN"]
//	  [0x04-0x07: Version (uint32 LE)]
//	  [0x08-0x0B: Flags (uint32 LE)]
//	  [0x0C-0x0F: Reserved]
//	  [0x10-0x17: Header Size (uint64 LE)]
//	  [0x18-0x1F: Data Size (uint64 LE)]
//	  [0x20-0x3F: SHA-256 of the data section]
//	  [Header: JSON metadata]
//	  [Tensor data: float64 LE, 64-byte aligned]
//
// Every tensor is a named 2-D matrix. Files are written to a temporary file
// in the target directory and renamed into place, so a crash during a save
// leaves the previous checkpoint intact.
//
// Example usage:
//
//	header := serialization.Header{ModelType: "styleshift", Checkpoint: &meta}
//	if err := serialization.SaveFile("model.born", reg.StateDict(), header); err != nil {
//	    return err
//	}
//
//	state, header, err := serialization.LoadFile("model.born")
//	if err != nil {
//	    return err
//	}
//	err = reg.LoadStateDict(state)
package serialization
