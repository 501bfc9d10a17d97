package replication

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spacemeshos/go-replica/common/types"
	"github.com/spacemeshos/go-replica/log"
)

// spawnVisible reports whether the object is visible to peer.
// Only synchronizers with local authority vote. Any one of them seeing the
// peer is enough, and an object without voters is visible to everybody.
func (r *Replicator) spawnVisible(tn *trackedNode, peer types.PeerID) bool {
	visible := true
	for _, id := range tn.synchronizers {
		st := r.syncs[id]
		if st == nil || !r.isLocal(st.sync.Authority()) {
			continue
		}
		if st.sync.VisibleTo(peer) {
			return true
		}
		visible = false
	}
	return visible
}

// updateSpawnVisibility sends SPAWN or DESPAWN so that the spawned state of
// the object on each peer matches its visibility. Peer 0 evaluates all peers.
func (r *Replicator) updateSpawnVisibility(peer types.PeerID, tn *trackedNode) error {
	if !r.isSpawnAuthority(tn) {
		return fmt.Errorf("%w: %v is not spawned by a local authority", ErrUnauthorized, tn.id)
	}
	visible := r.spawnVisible(tn, peer)
	var toSpawn, toDespawn []types.PeerID
	if peer == types.BroadcastPeer {
		for pid, info := range r.peers {
			if _, spawned := info.spawnNodes[tn.id]; spawned {
				if !visible {
					// broadcast visibility is off, the peer may still be allowed individually.
					if !r.spawnVisible(tn, pid) {
						toDespawn = append(toDespawn, pid)
					}
				}
				continue
			}
			if visible || r.spawnVisible(tn, pid) {
				toSpawn = append(toSpawn, pid)
			}
		}
	} else {
		info, ok := r.peers[peer]
		if !ok {
			return fmt.Errorf("%w: peer %v is not connected", ErrInvalidParameter, peer)
		}
		_, spawned := info.spawnNodes[tn.id]
		switch {
		case visible && !spawned:
			toSpawn = append(toSpawn, peer)
		case !visible && spawned:
			toDespawn = append(toDespawn, peer)
		}
	}
	var errs []error
	if len(toSpawn) > 0 {
		if tn.netID == 0 {
			tn.netID = r.allocNetID()
		}
		packet, err := r.makeSpawn(tn)
		if err != nil {
			return err
		}
		for _, pid := range toSpawn {
			if _, _, err := r.cache.SendObjectCache(tn.spawner.ID(), pid); err != nil {
				err = fmt.Errorf("path cache for spawner %v: %w", tn.spawner.ID(), err)
				r.logger.Warn("failed to spawn", log.Peer(pid), log.Object(tn.id), zap.Error(err))
				errs = append(errs, err)
				continue
			}
			if err := r.send(pid, packet, true); err != nil {
				r.logger.Warn("failed to spawn", log.Peer(pid), log.Object(tn.id), zap.Error(err))
				errs = append(errs, err)
				continue
			}
			r.peers[pid].spawnNodes[tn.id] = struct{}{}
		}
	}
	if len(toDespawn) > 0 {
		packet := r.makeDespawn(tn)
		for _, pid := range toDespawn {
			delete(r.peers[pid].spawnNodes, tn.id)
			if err := r.send(pid, packet, true); err != nil {
				r.logger.Warn("failed to despawn", log.Peer(pid), log.Object(tn.id), zap.Error(err))
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// updateSyncVisibility adds or removes the synchronizer from the sync set
// of peer. Peer 0 evaluates all peers.
func (r *Replicator) updateSyncVisibility(peer types.PeerID, st *syncState) error {
	if !r.transport.Connected() || !r.isLocal(st.sync.Authority()) {
		return nil
	}
	id := st.sync.ID()
	visible := st.sync.VisibleTo(peer)
	if peer == types.BroadcastPeer {
		for pid, info := range r.peers {
			setMember(info.syncNodes, id, visible || st.sync.VisibleTo(pid))
		}
		return nil
	}
	info, ok := r.peers[peer]
	if !ok {
		return fmt.Errorf("%w: peer %v is not connected", ErrInvalidParameter, peer)
	}
	setMember(info.syncNodes, id, visible)
	return nil
}

// visibilityChanged is subscribed to every synchronizer in replication.
func (r *Replicator) visibilityChanged(sync types.ObjectID, peer types.PeerID) {
	st := r.syncs[sync]
	if st == nil {
		r.bug("visibility changed for synchronizer without replication", log.Synchronizer(sync))
		return
	}
	root := st.sync.Root()
	if _, ok := r.spawned[root]; ok {
		if tn := r.tracked[root]; tn != nil && r.isSpawnAuthority(tn) {
			if err := r.updateSpawnVisibility(peer, tn); err != nil {
				r.logger.Warn("failed to update spawn visibility",
					log.Peer(peer), log.Object(root), zap.Error(err))
			}
		}
	}
	if err := r.updateSyncVisibility(peer, st); err != nil {
		r.logger.Warn("failed to update sync visibility",
			log.Peer(peer), log.Synchronizer(sync), zap.Error(err))
	}
}

func setMember(set map[types.ObjectID]struct{}, id types.ObjectID, member bool) {
	if member {
		set[id] = struct{}{}
	} else {
		delete(set, id)
	}
}
