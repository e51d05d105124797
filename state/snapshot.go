// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package state

// Snapshot is the serializable form of a LeadershipState.
type Snapshot struct {
	QuorumControllerID           int32 `cbor:"1,keyasint"`
	QuorumControllerEpoch        int32 `cbor:"2,keyasint"`
	QuorumMetadataOffset         int64 `cbor:"3,keyasint"`
	QuorumMetadataEpoch          int32 `cbor:"4,keyasint"`
	LastUpdatedTimeMs            int64 `cbor:"5,keyasint"`
	MigrationVersion             int64 `cbor:"6,keyasint"`
	MarkerVersion                int64 `cbor:"7,keyasint"`
	LegacyControllerEpoch        int32 `cbor:"8,keyasint"`
	LegacyControllerEpochVersion int64 `cbor:"9,keyasint"`
}

// Snapshot returns the serializable form of the state.
func (s LeadershipState) Snapshot() Snapshot {
	return Snapshot{
		QuorumControllerID:           s.quorumControllerID,
		QuorumControllerEpoch:        s.quorumControllerEpoch,
		QuorumMetadataOffset:         s.quorumMetadataOffset,
		QuorumMetadataEpoch:          s.quorumMetadataEpoch,
		LastUpdatedTimeMs:            s.lastUpdatedTimeMs,
		MigrationVersion:             s.migrationVersion,
		MarkerVersion:                s.markerVersion,
		LegacyControllerEpoch:        s.legacyControllerEpoch,
		LegacyControllerEpochVersion: s.legacyControllerEpochVersion,
	}
}

// FromSnapshot rebuilds a state from its serializable form.
func FromSnapshot(snapshot Snapshot) LeadershipState {
	return LeadershipState{
		quorumControllerID:           snapshot.QuorumControllerID,
		quorumControllerEpoch:        snapshot.QuorumControllerEpoch,
		quorumMetadataOffset:         snapshot.QuorumMetadataOffset,
		quorumMetadataEpoch:          snapshot.QuorumMetadataEpoch,
		lastUpdatedTimeMs:            snapshot.LastUpdatedTimeMs,
		migrationVersion:             snapshot.MigrationVersion,
		markerVersion:                snapshot.MarkerVersion,
		legacyControllerEpoch:        snapshot.LegacyControllerEpoch,
		legacyControllerEpochVersion: snapshot.LegacyControllerEpochVersion,
	}
}
