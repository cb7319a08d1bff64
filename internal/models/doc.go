// Package models defines the core domain models for Splitledger.
//
// # Models
//
//   - User: Registered account that can own and join groups
//   - Group: Up to four participants sharing expenses
//   - Participant: A group member, registered user or named guest
//   - Expense: A payment by one participant, split among several
//   - Share: One participant's owed portion of an expense
//   - Balance: Net directional debt between two participants of a group
//   - SettlementSuggestion: A transient payment proposed to settle a group
//
// # Design Principles
//
// 1. **Identifiers plus name snapshots**: Expense shares and balances store both the
// stable participant ID and the display name at write time, so results render
// without a live identity lookup.
// 2. **Balances are a projection**: The balance set of a group is regenerated from its
// expenses on every expense mutation. Only the manual adjustment path patches a
// single row in place.
// 3. **Avoid circular references**: Use ID strings instead of pointers for relationships.
package models
