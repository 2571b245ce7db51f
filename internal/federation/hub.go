package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/ashton-dyke/sairen-os/internal/cfc"
)

// UploadRequest carries one rig's signed checkpoint envelope.
type UploadRequest struct {
	Envelope Envelope `json:"envelope"`
}

// UploadResponse reports whether the upload was newly accepted (true) or a
// duplicate of the rig's last upload (false).
type UploadResponse struct {
	Accepted bool `json:"accepted"`
}

// PullRequest asks for a federated round newer than LastRound.
type PullRequest struct {
	LastRound int64 `json:"last_round"`
}

// PullResponse carries the requested federated round, if one newer than
// LastRound exists.
type PullResponse struct {
	Found            bool               `json:"found"`
	Round            int64              `json:"round"`
	Checkpoint       *cfc.DualCheckpoint `json:"checkpoint,omitempty"`
	ContributingRigs []string           `json:"contributing_rigs,omitempty"`
	TotalPackets     int64              `json:"total_packets,omitempty"`
}

// AcceptancePolicy controls whether a rig pulls a federated model it
// receives from the hub.
type AcceptancePolicy int

const (
	// FreshOnly pulls only if the local network has processed zero packets.
	FreshOnly AcceptancePolicy = iota
	// BetterModel pulls whenever the remote model has seen strictly more
	// packets than the local one.
	BetterModel
	// UploadOnly never pulls; the rig only contributes checkpoints.
	UploadOnly
)

// ShouldAccept applies policy to decide whether a rig should adopt a pulled
// federated checkpoint given its own local packet count.
func ShouldAccept(policy AcceptancePolicy, localPackets, remotePackets int64) bool {
	switch policy {
	case FreshOnly:
		return localPackets == 0
	case BetterModel:
		return remotePackets > localPackets
	case UploadOnly:
		return false
	default:
		return false
	}
}

// rigUpload is the hub's bookkeeping record for one rig's latest upload.
type rigUpload struct {
	checkpoint *cfc.DualCheckpoint
	packets    int64
}

// Hub aggregates uploaded checkpoints from every rig in a fleet and
// produces federated rounds on request. It holds only the most recent
// upload per rig; a rig that uploads again simply replaces its entry.
type Hub struct {
	mu      sync.Mutex
	uploads map[string]rigUpload
	round   int64
	last    *PullResponse
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{uploads: make(map[string]rigUpload)}
}

// UploadCheckpoint verifies the envelope's signature and records it. A
// re-upload from the same rig that reports the same packets_processed as
// its stored upload is treated as a duplicate and rejected; the payload
// bytes are not compared.
func (h *Hub) UploadCheckpoint(ctx context.Context, env Envelope) (bool, error) {
	if err := env.Verify(); err != nil {
		return false, err
	}
	var ck cfc.DualCheckpoint
	if err := json.Unmarshal(env.Payload, &ck); err != nil {
		return false, fmt.Errorf("federation: decoding checkpoint payload: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.uploads[env.RigID]; ok && existing.packets == ck.Metadata.PacketsProcessed {
		return false, nil
	}
	h.uploads[env.RigID] = rigUpload{checkpoint: &ck, packets: ck.Metadata.PacketsProcessed}
	return true, nil
}

// PullFederatedModel returns the latest federated round if it is newer than
// lastRound. It computes a round from the current set of uploads when no
// round exists yet or when the latest round is not newer than lastRound;
// it does not track whether an upload has arrived since the last computed
// round.
func (h *Hub) PullFederatedModel(ctx context.Context, lastRound int64) (*PullResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.uploads) < 2 {
		return &PullResponse{Found: false}, nil
	}
	if h.last == nil || h.last.Round <= lastRound {
		if err := h.computeRoundLocked(); err != nil {
			return nil, err
		}
	}
	if h.last.Round <= lastRound {
		return &PullResponse{Found: false}, nil
	}
	return h.last, nil
}

func (h *Hub) computeRoundLocked() error {
	rigIDs := make([]string, 0, len(h.uploads))
	for id := range h.uploads {
		rigIDs = append(rigIDs, id)
	}
	sort.Strings(rigIDs)

	cks := make([]*cfc.DualCheckpoint, 0, len(rigIDs))
	totalPackets := int64(0)
	for _, id := range rigIDs {
		u := h.uploads[id]
		cks = append(cks, u.checkpoint)
		totalPackets += u.packets
	}

	merged, err := FederatedAverage(cks)
	if err != nil {
		return err
	}
	h.round++
	h.last = &PullResponse{
		Found:            true,
		Round:            h.round,
		Checkpoint:       merged,
		ContributingRigs: rigIDs,
		TotalPackets:     totalPackets,
	}
	return nil
}
