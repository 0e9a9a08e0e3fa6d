// Package models defines the core domain models for ForMyFuture.
//
// # Models
//
//   - User: an identity that owns proposals and contributes to them
//   - Proposal: a funding request with a goal amount and a deadline
//   - Contribution: an immutable record of value sent toward a proposal
//   - Payment: a transfer record written when a proposal is settled
//
// # Design Principles
//
// 1. **Integer money**: every amount is a uint64 in the smallest currency unit
// 2. **Append-only records**: proposals and contributions are never deleted
// 3. **Avoid circular references**: relationships use identity strings and integer ids
// 4. **One source of truth**: a user's contribution history is a projection of the
// contributions collection, never stored separately
package models
