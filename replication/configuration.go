package replication

// ReplicationConfig lists the property paths a synchronizer replicates.
// Paths are relative to the synchronizer root and kept in declaration order.
type ReplicationConfig struct {
	// SpawnProperties are sent once, inside the SPAWN packet.
	SpawnProperties []string
	// SyncProperties are sent periodically in SYNC packets.
	SyncProperties []string
}

// Configuration is the value passed to the object configuration hooks.
// It is either a SpawnerConfig or a SynchronizerConfig.
type Configuration interface {
	configuration()
}

// SpawnerConfig configures an object as managed by a spawner.
type SpawnerConfig struct {
	Spawner Spawner
}

// SynchronizerConfig attaches a synchronizer to an object.
type SynchronizerConfig struct {
	Synchronizer Synchronizer
}

func (SpawnerConfig) configuration()      {}
func (SynchronizerConfig) configuration() {}
