// Package lifesteal turns host events into ledger operations.
//
// A Handler receives participant joins, leaves and eliminations, routes each
// onto the owning locality through a schedule.Scheduler and drives the ledger
// and the transfer engine from there. Side effects visible to participants
// (messages, commands, health) go through the Host interface, which the
// embedding application implements.
package lifesteal
