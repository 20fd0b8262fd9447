/*
Package ports defines the driven ports (interfaces) of the echoes host.

These interfaces decouple turn orchestration from external implementations,
allowing the runner to work with various storage backends and lock services.
The engine itself never touches them: only final RunStates, folded into
sessions, are ever persisted.

# Key Interfaces

  - SessionStore: Responsible for persisting and loading sessions between turns.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
*/
package ports
