package replication

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/spacemeshos/go-replica/common/types"
	"github.com/spacemeshos/go-replica/log"
	"github.com/spacemeshos/go-replica/replication/wire"
)

// OnReplicationStart is called when a synchronizer of obj enters the scene.
// If obj is being spawned by a remote peer, the synchronizer takes the next
// staged net id and applies its share of the spawn state.
func (r *Replicator) OnReplicationStart(obj types.ObjectID, cfg Configuration) error {
	sc, ok := cfg.(SynchronizerConfig)
	if !ok || sc.Synchronizer == nil {
		return fmt.Errorf("%w: replication requires a synchronizer configuration", ErrInvalidParameter)
	}
	if !r.scene.Exists(obj) {
		return fmt.Errorf("%w: %v does not exist", ErrInvalidParameter, obj)
	}
	sync := sc.Synchronizer
	id := sync.ID()
	tn := r.track(obj)
	st, ok := r.syncs[id]
	if !ok {
		st = &syncState{sync: sync}
		r.syncs[id] = st
	}
	if !slices.Contains(tn.synchronizers, id) {
		tn.synchronizers = append(tn.synchronizers, id)
	}
	if st.cancel == nil {
		st.cancel = sync.SubscribeVisibility(func(peer types.PeerID) {
			r.visibilityChanged(id, peer)
		})
	}
	if err := r.updateSyncVisibility(types.BroadcastPeer, st); err != nil {
		r.logger.Warn("failed to update sync visibility", log.Synchronizer(id), zap.Error(err))
	}

	pending := r.pending
	if pending == nil || pending.object != obj || sync.Authority() != pending.remote {
		return nil
	}
	if len(pending.syncIDs) == 0 {
		return fmt.Errorf("%w: no net id staged for synchronizer %v", ErrInvalidData, id)
	}
	info, ok := r.peers[pending.remote]
	if !ok {
		return fmt.Errorf("%w: spawning peer %v is gone", ErrInvalidData, pending.remote)
	}
	st.netID = pending.syncIDs[0]
	pending.syncIDs = pending.syncIDs[1:]
	info.recvSyncIDs[st.netID] = id
	if len(pending.state) == 0 {
		return nil
	}
	rc := sync.ReplicationConfig()
	if rc == nil {
		return fmt.Errorf("%w: synchronizer %v has no replication config", ErrUnconfigured, id)
	}
	values, n, err := r.codec.DecodeValues(pending.state, len(rc.SpawnProperties))
	if err != nil {
		return fmt.Errorf("%w: spawn state of %v: %w", ErrInvalidData, id, err)
	}
	pending.state = pending.state[n:]
	if len(values) == 0 {
		return nil
	}
	return r.props.SetState(obj, rc.SpawnProperties, values)
}

// OnReplicationStop is called when a synchronizer of obj leaves the scene.
func (r *Replicator) OnReplicationStop(obj types.ObjectID, cfg Configuration) error {
	sc, ok := cfg.(SynchronizerConfig)
	if !ok || sc.Synchronizer == nil {
		return fmt.Errorf("%w: replication requires a synchronizer configuration", ErrInvalidParameter)
	}
	id := sc.Synchronizer.ID()
	st := r.syncs[id]
	if st != nil && st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}
	delete(r.syncs, id)
	for _, info := range r.peers {
		delete(info.syncNodes, id)
		if st != nil && st.netID != 0 && info.recvSyncIDs[st.netID] == id {
			delete(info.recvSyncIDs, st.netID)
		}
	}
	tn, ok := r.tracked[obj]
	if !ok {
		return fmt.Errorf("%w: %v is not tracked", ErrInvalidParameter, obj)
	}
	tn.synchronizers = removeID(tn.synchronizers, id)
	return nil
}

// OnNetworkProcess sends one SYNC round to every peer with visible
// synchronizers.
func (r *Replicator) OnNetworkProcess() {
	now := r.clock.Now()
	for pid, info := range r.peers {
		if len(info.syncNodes) == 0 {
			continue
		}
		info.lastSentSync++
		r.sendSync(pid, info, now)
	}
}

// due applies the per synchronizer send interval. A synchronizer that was
// already sent at this instant is due for every other peer too.
func (st *syncState) due(now time.Time) bool {
	if st.lastSent.Equal(now) {
		return true
	}
	if !now.Before(st.lastSent.Add(st.sync.ReplicationInterval())) {
		st.lastSent = now
		return true
	}
	return false
}

func (r *Replicator) sendSync(peer types.PeerID, info *peerInfo, now time.Time) {
	buf := wire.AppendSyncHeader(r.packet[:0], info.lastSentSync)
	for id := range info.syncNodes {
		st := r.syncs[id]
		if st == nil {
			r.bug("synchronizer in sync set without replication", log.Peer(peer), log.Synchronizer(id))
			continue
		}
		rc := st.sync.ReplicationConfig()
		if rc == nil || !r.isLocal(st.sync.Authority()) {
			continue
		}
		if !st.due(now) {
			continue
		}
		obj := st.sync.Root()
		if !r.scene.Exists(obj) {
			continue
		}
		netID := st.netID
		if netID == 0 || netID.IsPathDerived() {
			path, confirmed, err := r.cache.SendObjectCache(id, peer)
			if err != nil {
				r.logger.Warn("failed to cache synchronizer path",
					log.Peer(peer), log.Synchronizer(id), zap.Error(err))
				continue
			}
			if netID == 0 {
				netID = types.PathNetID(path)
				st.netID = netID
			}
			if !confirmed {
				droppedUnconfirmed.Inc()
				continue
			}
		}
		values, err := r.props.GetState(obj, rc.SyncProperties)
		if err != nil {
			droppedState.Inc()
			r.logger.Warn("failed to read sync state", log.Synchronizer(id), zap.Error(err))
			continue
		}
		payload, err := r.codec.EncodeValues(values)
		if err != nil {
			droppedState.Inc()
			r.logger.Warn("failed to encode sync state", log.Synchronizer(id), zap.Error(err))
			continue
		}
		if len(payload) == 0 {
			continue
		}
		entry := wire.SyncEntryHeaderSize + len(payload)
		if wire.SyncHeaderSize+entry > r.cfg.MTU {
			droppedOversize.Inc()
			r.logger.Error("sync state does not fit into mtu",
				log.Synchronizer(id), zap.Int("size", len(payload)), zap.Int("mtu", r.cfg.MTU))
			continue
		}
		if len(buf)+entry > r.cfg.MTU {
			if err := r.send(peer, buf, false); err != nil {
				r.logger.Debug("failed to send sync", log.Peer(peer), zap.Error(err))
			}
			buf = buf[:wire.SyncHeaderSize]
		}
		buf = wire.AppendSyncEntry(buf, netID, payload)
	}
	if len(buf) > wire.SyncHeaderSize {
		if err := r.send(peer, buf, false); err != nil {
			r.logger.Debug("failed to send sync", log.Peer(peer), zap.Error(err))
		}
	}
	r.packet = buf
}

// newer reports whether counter follows last in the wrapping 16 bit sequence.
func newer(counter, last uint16) bool {
	return int16(counter-last) > 0
}

// OnSyncReceive applies every entry of a SYNC packet that resolves to a
// synchronizer the sender is the authority of. Stale and unknown entries are
// skipped.
func (r *Replicator) OnSyncReceive(from types.PeerID, buf []byte) error {
	reader, err := wire.NewSyncReader(buf)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	info, ok := r.peers[from]
	if !ok {
		return fmt.Errorf("%w: sync from %v", ErrUnavailable, from)
	}
	counter := reader.Counter()
	for {
		entry, ok, err := reader.Next()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidData, err)
		}
		if !ok {
			return nil
		}
		st := r.resolveSync(from, info, entry.NetID)
		if st == nil {
			droppedUnknown.Inc()
			r.logger.Debug("sync for unknown synchronizer", log.Peer(from), log.NetID(entry.NetID))
			continue
		}
		if st.sync.Authority() != from {
			droppedForeign.Inc()
			r.logger.Debug("sync from non authority",
				log.Peer(from), log.Synchronizer(st.sync.ID()))
			continue
		}
		obj := st.sync.Root()
		if !r.scene.Exists(obj) {
			droppedUnknown.Inc()
			continue
		}
		if st.hasInbound && !newer(counter, st.lastInbound) {
			droppedStale.Inc()
			continue
		}
		st.lastInbound = counter
		st.hasInbound = true
		rc := st.sync.ReplicationConfig()
		if rc == nil {
			continue
		}
		values, n, err := r.codec.DecodeValues(entry.Payload, len(rc.SyncProperties))
		if err != nil {
			return fmt.Errorf("%w: sync state of %v: %w", ErrInvalidData, st.sync.ID(), err)
		}
		if n != len(entry.Payload) {
			return fmt.Errorf("%w: sync state of %v has %d trailing bytes",
				ErrInvalidData, st.sync.ID(), len(entry.Payload)-n)
		}
		if err := r.props.SetState(obj, rc.SyncProperties, values); err != nil {
			return fmt.Errorf("apply sync state of %v: %w", st.sync.ID(), err)
		}
	}
}

func (r *Replicator) resolveSync(from types.PeerID, info *peerInfo, id types.NetID) *syncState {
	if id.IsPathDerived() {
		obj, ok := r.cache.CachedObject(from, id.PathID())
		if !ok {
			return nil
		}
		return r.syncs[obj]
	}
	sid, ok := info.recvSyncIDs[id]
	if !ok {
		return nil
	}
	return r.syncs[sid]
}
