// Package runner drives a citest run: it turns an ordered list of profile
// configuration documents into a sequential series of command executions and
// maintains the run summary.
//
// The main components are:
//   - Runner: the orchestration state machine (prerequisite, profile loop,
//     command loop, finalize)
//   - BatchExecutor: the strategy invoked once per command; PrerequisiteChecker
//     and SummaryAppender are optional extensions of the same strategy value
//   - ResultManager: owns the summary bookkeeping (batch indices, failure count,
//     pass status)
//   - SummaryStore: persists the whole summary after every command
//
// The process working directory is treated as a scoped resource: the runner
// enters each profile's directory, resets it after every command (including
// when the executor panics) and restores the caller's directory on return.
package runner
