package serialization

import (
	"time"
)

// Format constants.
const (
	MagicBytes      = "BORN"
	FormatVersion   = 2    // v2: fixed header with SHA-256 checksum
	HeaderAlignment = 64   // Align tensor data to 64 bytes
	FixedHeaderSize = 64   // Fixed header size (0x40 bytes)
	ChecksumSize    = 32   // SHA-256 checksum size (32 bytes)
	ChecksumOffset  = 0x20 // Checksum offset in the fixed header
	DTypeFloat64    = "float64"

	float64Size = 8
)

// ProducerVersion is recorded in every header written by this package.
const ProducerVersion = "0.1.0"

// Flags for the .born format.
const (
	FlagHasOptimizer uint32 = 1 << 1 // bit 1: optimizer state included
	FlagHasMetadata  uint32 = 1 << 2 // bit 2: custom metadata included
)

// Header represents the JSON header in a .born file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	Producer      string            `json:"producer"`             // Version of styleshift that wrote the file
	ModelType     string            `json:"model_type"`           // Type of model
	CreatedAt     time.Time         `json:"created_at"`           // When the file was created
	Tensors       []TensorMeta      `json:"tensors"`              // Tensor metadata
	Metadata      map[string]string `json:"metadata"`             // Custom metadata
	Checkpoint    *CheckpointMeta   `json:"checkpoint,omitempty"` // Training state (optional)
}

// CheckpointMeta contains the training state needed to resume a run.
type CheckpointMeta struct {
	RunID         string    `json:"run_id"`         // Identity of the training run
	UpdateIndex   int       `json:"update_index"`   // Number of applied updates
	Epoch         int       `json:"epoch"`          // Epoch at save time
	EpochBatches  int       `json:"epoch_batches"`  // Minibatches consumed in that epoch
	HistoryErrs   []float64 `json:"history_errs"`   // Validation errors so far
	BadCounter    int       `json:"bad_counter"`    // Early stopping counter
	OptimizerType string    `json:"optimizer_type"` // Optimizer configuration name
	HasOptimizer  bool      `json:"has_optimizer"`  // Optimizer state stored under "optimizer."
}

// TensorMeta describes a tensor in the .born file.
type TensorMeta struct {
	Name   string `json:"name"`   // Parameter name (e.g., "decoder.style0.Ux")
	DType  string `json:"dtype"`  // Always "float64"
	Shape  []int  `json:"shape"`  // [rows, cols]
	Offset int64  `json:"offset"` // Offset in the data section
	Size   int64  `json:"size"`   // Size in bytes
}

// OptimizerPrefix is prepended to optimizer state names stored in a checkpoint.
const OptimizerPrefix = "optimizer."
