// Package nn implements the recurrent building blocks of the style transfer
// model.
//
// This package provides:
//   - Registry: the parameter store, keyed by (component, instance, field)
//   - Linear, Embedding: feed-forward layers
//   - GRU, ConditionalGRU, AttentionGRU: recurrent cells sharing one step
//   - Unroll: drives any Cell over a sequence with mask hold
//   - StyleAdversary: style classifier over the encoder context
//
// Every layer computes through an *autodiff.GradientTape. A nil tape runs the
// same computation without recording, which is the inference mode.
package nn
