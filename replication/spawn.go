package replication

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spacemeshos/go-replica/common/types"
	"github.com/spacemeshos/go-replica/log"
	"github.com/spacemeshos/go-replica/replication/wire"
)

// OnSpawn is called when a spawner starts managing obj.
// On the spawner authority the object gets a net id and is spawned on
// every peer it is visible to.
func (r *Replicator) OnSpawn(obj types.ObjectID, cfg Configuration) error {
	sc, ok := cfg.(SpawnerConfig)
	if !ok || sc.Spawner == nil {
		return fmt.Errorf("%w: spawn requires a spawner configuration", ErrInvalidParameter)
	}
	if !r.scene.Exists(obj) {
		return fmt.Errorf("%w: %v does not exist", ErrInvalidParameter, obj)
	}
	tn := r.track(obj)
	if tn.spawner != nil {
		return fmt.Errorf("%w: %v is already managed by spawner %v", ErrAlreadyInUse, obj, tn.spawner.ID())
	}
	tn.spawner = sc.Spawner
	r.spawned[obj] = struct{}{}
	if !r.isSpawnAuthority(tn) {
		return nil
	}
	if tn.netID == 0 {
		tn.netID = r.allocNetID()
	}
	r.logger.Debug("spawned", log.Object(obj), log.NetID(tn.netID))
	return r.updateSpawnVisibility(types.BroadcastPeer, tn)
}

// OnDespawn is called when a spawner stops managing obj. Every peer the
// object was spawned on receives DESPAWN.
func (r *Replicator) OnDespawn(obj types.ObjectID, cfg Configuration) error {
	sc, ok := cfg.(SpawnerConfig)
	if !ok || sc.Spawner == nil {
		return fmt.Errorf("%w: despawn requires a spawner configuration", ErrInvalidParameter)
	}
	tn, ok := r.tracked[obj]
	if !ok {
		return fmt.Errorf("%w: %v is not tracked", ErrInvalidParameter, obj)
	}
	if tn.spawner == nil || tn.spawner.ID() != sc.Spawner.ID() {
		return fmt.Errorf("%w: %v is not managed by spawner %v", ErrInvalidParameter, obj, sc.Spawner.ID())
	}
	packet := r.makeDespawn(tn)
	var errs []error
	for pid, info := range r.peers {
		if _, spawned := info.spawnNodes[obj]; !spawned {
			continue
		}
		delete(info.spawnNodes, obj)
		if err := r.send(pid, packet, true); err != nil {
			r.logger.Warn("failed to despawn", log.Peer(pid), log.Object(obj), zap.Error(err))
			errs = append(errs, err)
		}
	}
	tn.spawner = nil
	delete(r.spawned, obj)
	r.logger.Debug("despawned", log.Object(obj), log.NetID(tn.netID))
	return errors.Join(errs...)
}

// makeSpawn encodes the SPAWN packet of obj into the shared packet buffer.
// Synchronizers without a net id get one.
func (r *Replicator) makeSpawn(tn *trackedNode) ([]byte, error) {
	if tn.netID == 0 {
		return nil, fmt.Errorf("%w: %v has no net id", ErrUnconfigured, tn.id)
	}
	sp := tn.spawner
	spawn := wire.Spawn{
		SceneID: sp.SceneIndex(tn.id),
		NetID:   tn.netID,
		Name:    r.scene.Name(tn.id),
	}
	if spawn.IsCustom() {
		arg, err := r.codec.EncodeValue(sp.SpawnArgument(tn.id))
		if err != nil {
			return nil, fmt.Errorf("encode spawn argument of %v: %w", tn.id, err)
		}
		spawn.Arg = arg
	}
	var properties []string
	for _, id := range tn.synchronizers {
		st := r.syncs[id]
		if st == nil {
			return nil, r.bug("synchronizer of tracked node not in replication",
				log.Object(tn.id), log.Synchronizer(id))
		}
		if !r.isLocal(st.sync.Authority()) {
			continue
		}
		cfg := st.sync.ReplicationConfig()
		if cfg == nil {
			return nil, fmt.Errorf("%w: synchronizer %v has no replication config", ErrUnconfigured, id)
		}
		if st.netID == 0 {
			st.netID = r.allocNetID()
		}
		spawn.SyncIDs = append(spawn.SyncIDs, st.netID)
		properties = append(properties, cfg.SpawnProperties...)
	}
	if len(properties) > 0 {
		values, err := r.props.GetState(tn.id, properties)
		if err != nil {
			return nil, fmt.Errorf("spawn state of %v: %w", tn.id, err)
		}
		if len(values) != len(properties) {
			return nil, r.bug("property count mismatch",
				log.Object(tn.id), zap.Int("expected", len(properties)), zap.Int("got", len(values)))
		}
		state, err := r.codec.EncodeValues(values)
		if err != nil {
			return nil, fmt.Errorf("encode spawn state of %v: %w", tn.id, err)
		}
		spawn.State = state
	}
	path, err := r.cache.MakeObjectCache(sp.ID())
	if err != nil {
		return nil, fmt.Errorf("path cache for spawner %v: %w", sp.ID(), err)
	}
	spawn.SpawnerPath = path
	r.packet = spawn.AppendTo(r.packet[:0])
	return r.packet, nil
}

func (r *Replicator) makeDespawn(tn *trackedNode) []byte {
	r.packet = wire.AppendDespawn(r.packet[:0], tn.netID)
	return r.packet
}

// OnSpawnReceive instantiates the object described by a SPAWN packet from peer.
func (r *Replicator) OnSpawnReceive(from types.PeerID, buf []byte) error {
	header, err := wire.DecodeSpawnHeader(buf)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	info, ok := r.peers[from]
	if !ok {
		return fmt.Errorf("%w: spawn from %v", ErrUnavailable, from)
	}
	spawnerID, ok := r.cache.CachedObject(from, header.SpawnerPath)
	if !ok {
		return fmt.Errorf("%w: spawner path %d from %v", ErrDoesNotExist, header.SpawnerPath, from)
	}
	sp, ok := r.scene.Spawner(spawnerID)
	if !ok {
		return fmt.Errorf("%w: %v is not a spawner", ErrDoesNotExist, spawnerID)
	}
	if sp.Authority() != from {
		return fmt.Errorf("%w: %v is not the authority of spawner %v", ErrUnauthorized, from, spawnerID)
	}
	spawn, err := wire.DecodeSpawn(buf)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	if !ValidName(spawn.Name) {
		return fmt.Errorf("%w: invalid object name %q", ErrInvalidData, spawn.Name)
	}
	parent, ok := sp.SpawnParent()
	if !ok {
		return fmt.Errorf("%w: spawner %v has no spawn parent", ErrUnconfigured, spawnerID)
	}
	if r.scene.HasChild(parent, spawn.Name) {
		return fmt.Errorf("%w: %v already has a child named %q", ErrInvalidData, parent, spawn.Name)
	}
	if _, exists := info.recvNodes[spawn.NetID]; exists {
		return fmt.Errorf("%w: net id %v from %v", ErrAlreadyInUse, spawn.NetID, from)
	}

	var obj types.ObjectID
	if spawn.IsCustom() {
		arg, _, err := r.codec.DecodeValue(spawn.Arg)
		if err != nil {
			return fmt.Errorf("%w: spawn argument: %w", ErrInvalidData, err)
		}
		obj, ok = sp.InstantiateCustom(arg)
	} else {
		obj, ok = sp.InstantiateScene(spawn.SceneID)
	}
	if !ok {
		return fmt.Errorf("%w: spawner %v refused scene %d", ErrUnauthorized, spawnerID, spawn.SceneID)
	}
	r.scene.SetName(obj, spawn.Name)

	tn := r.track(obj)
	tn.spawner = sp
	tn.netID = spawn.NetID
	tn.remotePeer = from
	info.recvNodes[spawn.NetID] = obj

	// the staged payload aliases buf, it must not outlive this call.
	pending := &spawnContext{
		object:  obj,
		remote:  from,
		state:   spawn.State,
		syncIDs: spawn.SyncIDs,
	}
	r.pending = pending
	err = r.scene.AddChild(parent, obj)
	r.pending = nil
	if err != nil {
		if _, attached := r.scene.Parent(obj); !attached {
			delete(info.recvNodes, spawn.NetID)
			r.untrack(obj)
			r.scene.QueueFree(obj)
		}
		return fmt.Errorf("add %v to scene: %w", obj, err)
	}
	sp.NotifySpawned(obj)
	r.logger.Debug("received spawn",
		log.Peer(from), log.Object(obj), log.NetID(spawn.NetID), zap.String("name", spawn.Name))
	if len(pending.syncIDs) > 0 {
		return fmt.Errorf("%w: %d synchronizer ids left unused", ErrInvalidData, len(pending.syncIDs))
	}
	return nil
}

// OnDespawnReceive destroys an object the peer spawned earlier.
func (r *Replicator) OnDespawnReceive(from types.PeerID, buf []byte) error {
	id, err := wire.DecodeDespawn(buf)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	info, ok := r.peers[from]
	if !ok {
		return fmt.Errorf("%w: despawn from unknown peer %v", ErrUnauthorized, from)
	}
	obj, ok := info.recvNodes[id]
	if !ok {
		return fmt.Errorf("%w: net id %v was not spawned by %v", ErrUnauthorized, id, from)
	}
	tn, ok := r.tracked[obj]
	if !ok {
		return r.bug("received object is not tracked", log.Object(obj), log.NetID(id))
	}
	sp := tn.spawner
	if sp == nil {
		return fmt.Errorf("%w: %v has no spawner", ErrDoesNotExist, obj)
	}
	if sp.Authority() != from {
		return fmt.Errorf("%w: %v is not the authority of spawner %v", ErrUnauthorized, from, sp.ID())
	}
	delete(info.recvNodes, id)
	r.scene.RemoveFromParent(obj)
	r.scene.QueueFree(obj)
	sp.NotifyDespawned(obj)
	r.logger.Debug("received despawn", log.Peer(from), log.Object(obj), log.NetID(id))
	return nil
}
