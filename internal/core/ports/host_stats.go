package ports

import "dev.rubentxu.background-orchestrator/internal/core/domain/resource"

// HostStatsReader obtiene estadísticas del host (load, memoria, RSS del proceso).
// Implementations may perform I/O, so it is never called on hot paths.
type HostStatsReader interface {
	Read() (resource.HostStats, error)
}
