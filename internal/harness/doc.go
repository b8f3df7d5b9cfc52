// Package harness runs scripted lifesteal scenarios against the real ledger,
// transfer engine and handlers.
//
// Each scenario runs in isolation over an in-memory record store, a manual
// clock and a scheduler that runs immediate work inline and holds delayed
// work until the scenario releases it. Runs are deterministic, so the trace
// of host side effects can be compared against golden files.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: steal_and_withdraw
//	description: "A transfer followed by a withdraw and its cooldown"
//	config:
//	  resource: { min: 0 }
//	participants:
//	  - { id: alice, name: Alice, zone: world, locality: "world:0:0" }
//	  - { id: bob, name: Bob }
//	setup:
//	  - { id: alice, resource: 2 }
//	flow:
//	  - { action: join, participant: alice }
//	  - { action: eliminate, participant: alice, winner: bob }
//	  - { action: withdraw, participant: bob, expect: { error: ON_COOLDOWN } }
//	  - { action: advance, duration: 301s }
//	  - { action: run_delayed }
//	assertions:
//	  - { type: resource, participant: bob, value: 22 }
//	  - { type: stored, participant: alice, expect: { resource: 0, losses: 1 } }
//	  - { type: trace_contains, kind: broadcast, message: "Alice has been eliminated!" }
//
// # Flow actions
//
//   - join, leave, eliminate (needs winner), withdraw, consume
//   - set (participant and value, unclamped)
//   - advance (duration) moves the manual clock
//   - run_delayed releases delayed work such as elimination side effects
//   - flush_all writes every dirty record
//
// # Assertion types
//
//   - resource: cached level of a participant
//   - win_loss: win and loss counters of a cached participant
//   - stored: fields of the record in the store (resource, wins, losses,
//     last_eliminated_at)
//   - trace_contains, trace_count, trace_order: trace events matched by kind,
//     participant and message
package harness
