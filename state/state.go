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

// Package state holds the versioned value that gates every migration write.
package state

import (
	"fmt"
)

const (
	// UnknownID marks a controller id that has not been observed.
	UnknownID int32 = -1
	// UnknownEpoch marks an epoch that has not been observed.
	UnknownEpoch int32 = -1
	// UnknownOffset marks a quorum-log offset that has not been observed.
	UnknownOffset int64 = -1
	// UnknownTime marks a timestamp that has not been recorded.
	UnknownTime int64 = -1
	// UnknownVersion marks a legacy store version that has not been read.
	UnknownVersion int64 = -2
)

// LeadershipState is the immutable set of counters threaded through every
// migration operation. Every derivation returns a new value; the receiver is
// never modified.
type LeadershipState struct {
	quorumControllerID           int32
	quorumControllerEpoch        int32
	quorumMetadataOffset         int64
	quorumMetadataEpoch          int32
	lastUpdatedTimeMs            int64
	migrationVersion             int64
	markerVersion                int64
	legacyControllerEpoch        int32
	legacyControllerEpochVersion int64
}

// Empty is the state of a migration that never started.
var Empty = LeadershipState{
	quorumControllerID:           UnknownID,
	quorumControllerEpoch:        UnknownEpoch,
	quorumMetadataOffset:         UnknownOffset,
	quorumMetadataEpoch:          UnknownEpoch,
	lastUpdatedTimeMs:            UnknownTime,
	migrationVersion:             UnknownVersion,
	markerVersion:                UnknownVersion,
	legacyControllerEpoch:        UnknownEpoch,
	legacyControllerEpochVersion: UnknownVersion,
}

// QuorumControllerID returns the id of the quorum-log controller believed to own the migration.
func (s LeadershipState) QuorumControllerID() int32 { return s.quorumControllerID }

// QuorumControllerEpoch returns the epoch of the owning quorum-log controller.
func (s LeadershipState) QuorumControllerEpoch() int32 { return s.quorumControllerEpoch }

// QuorumMetadataOffset returns the quorum-log offset the legacy store is synchronized to.
func (s LeadershipState) QuorumMetadataOffset() int64 { return s.quorumMetadataOffset }

// QuorumMetadataEpoch returns the quorum-log epoch the legacy store is synchronized to.
func (s LeadershipState) QuorumMetadataEpoch() int32 { return s.quorumMetadataEpoch }

// LastUpdatedTimeMs returns the wall clock time of the last marker write.
func (s LeadershipState) LastUpdatedTimeMs() int64 { return s.lastUpdatedTimeMs }

// MigrationVersion returns the number of state-changing migration writes.
func (s LeadershipState) MigrationVersion() int64 { return s.migrationVersion }

// MarkerVersion returns the legacy store version of the migration marker node.
func (s LeadershipState) MarkerVersion() int64 { return s.markerVersion }

// LegacyControllerEpoch returns the controller epoch recorded in the legacy store.
func (s LeadershipState) LegacyControllerEpoch() int32 { return s.legacyControllerEpoch }

// LegacyControllerEpochVersion returns the legacy store version of the controller epoch node.
func (s LeadershipState) LegacyControllerEpochVersion() int64 {
	return s.legacyControllerEpochVersion
}

// WithNewQuorumController returns a copy owned by the given quorum-log controller.
func (s LeadershipState) WithNewQuorumController(id, epoch int32) LeadershipState {
	s.quorumControllerID = id
	s.quorumControllerEpoch = epoch
	return s
}

// WithQuorumMetadataOffsetAndEpoch returns a copy synchronized up to offset and epoch.
func (s LeadershipState) WithQuorumMetadataOffsetAndEpoch(offset int64, epoch int32) LeadershipState {
	s.quorumMetadataOffset = offset
	s.quorumMetadataEpoch = epoch
	return s
}

// WithMigrationVersion returns a copy carrying the given migration and marker versions.
func (s LeadershipState) WithMigrationVersion(migrationVersion, markerVersion int64) LeadershipState {
	s.migrationVersion = migrationVersion
	s.markerVersion = markerVersion
	return s
}

// WithLegacyController returns a copy carrying the legacy controller epoch and its node version.
func (s LeadershipState) WithLegacyController(epoch int32, version int64) LeadershipState {
	s.legacyControllerEpoch = epoch
	s.legacyControllerEpochVersion = version
	return s
}

// WithUnknownLegacyController forgets the legacy controller epoch.
func (s LeadershipState) WithUnknownLegacyController() LeadershipState {
	return s.WithLegacyController(UnknownEpoch, UnknownVersion)
}

// WithLastUpdatedTimeMs returns a copy stamped with the given time.
func (s LeadershipState) WithLastUpdatedTimeMs(ms int64) LeadershipState {
	s.lastUpdatedTimeMs = ms
	return s
}

// HasMarker reports whether the migration marker has been read or created.
func (s LeadershipState) HasMarker() bool {
	return s.markerVersion != UnknownVersion
}

// HasLegacyController reports whether the controller epoch node version is known.
func (s LeadershipState) HasLegacyController() bool {
	return s.legacyControllerEpochVersion != UnknownVersion
}

// InitialMigrationComplete reports whether the quorum log has been synchronized at least once.
func (s LeadershipState) InitialMigrationComplete() bool {
	return s.quorumMetadataOffset > 0
}

// LoggableChangeSince reports whether anything other than the migration
// position and timestamps differs from other.
func (s LeadershipState) LoggableChangeSince(other LeadershipState) bool {
	return s.quorumControllerID != other.quorumControllerID ||
		s.quorumControllerEpoch != other.quorumControllerEpoch ||
		s.legacyControllerEpoch != other.legacyControllerEpoch ||
		s.legacyControllerEpochVersion != other.legacyControllerEpochVersion ||
		s.markerVersion != other.markerVersion
}

// String implements fmt.Stringer
func (s LeadershipState) String() string {
	return fmt.Sprintf("LeadershipState(quorumControllerID=%d, quorumControllerEpoch=%d, "+
		"quorumMetadataOffset=%d, quorumMetadataEpoch=%d, lastUpdatedTimeMs=%d, migrationVersion=%d, "+
		"markerVersion=%d, legacyControllerEpoch=%d, legacyControllerEpochVersion=%d)",
		s.quorumControllerID, s.quorumControllerEpoch, s.quorumMetadataOffset, s.quorumMetadataEpoch,
		s.lastUpdatedTimeMs, s.migrationVersion, s.markerVersion, s.legacyControllerEpoch,
		s.legacyControllerEpochVersion)
}
